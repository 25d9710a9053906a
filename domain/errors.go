package domain

import "errors"

var (
	// ErrUnauthorized will throw if the caller lacks the required privilege
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidParams will throw if the given request-body or params is not valid
	ErrInvalidParams = errors.New("invalid params")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("not found")
	// ErrConflict will throw if the current action already exists
	ErrConflict = errors.New("already exists")

	// oracle
	ErrNoPriceFeed = errors.New("no price feed")
	ErrStalePrice  = errors.New("stale or invalid price")

	// auction state machine
	ErrBidTooLow    = errors.New("bid too low")
	ErrTooEarly     = errors.New("auction not ended yet")
	ErrAlreadyEnded = errors.New("auction already ended")

	// custody
	ErrTransferNotApproved = errors.New("transfer not approved")
	ErrTransferFailed      = errors.New("transfer failed")
	ErrInsufficientFunds   = errors.New("insufficient funds")

	// upgrade
	ErrUnknownImplementation = errors.New("unknown implementation")
	ErrIncompatibleLayout    = errors.New("incompatible state layout")

	ErrNothingToClaim = errors.New("nothing to claim")
)
