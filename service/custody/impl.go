package custody

import (
	"math/big"
	"sync"

	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/base/log"
	"github.com/young8i/nft-auction-market/domain"
	"golang.org/x/xerrors"
)

// TransferHook runs after a fungible transfer completed. Hooks model
// untrusted receiver callbacks: they run outside the ledger mutex and may
// call back into any engine operation.
type TransferHook func(c ctx.Ctx, token, from, to domain.Address, amount *big.Int)

// NftTransferHook runs after a unique asset transfer completed.
type NftTransferHook func(c ctx.Ctx, contract, from, to domain.Address, tokenId domain.TokenId)

type nftKey struct {
	contract domain.Address
	tokenId  domain.TokenId
}

type allowanceKey struct {
	token    domain.Address
	owner    domain.Address
	operator domain.Address
}

type balanceKey struct {
	token   domain.Address
	account domain.Address
}

// Ledger is an in-process custody implementation. Balance mutations are
// atomic per call; registered hooks fire after the mutation committed.
type Ledger struct {
	mu           sync.Mutex
	balances     map[balanceKey]*big.Int
	allowances   map[allowanceKey]*big.Int
	nftOwners    map[nftKey]domain.Address
	nftApprovals map[nftKey]domain.Address
	transferHook TransferHook
	nftHook      NftTransferHook
}

func NewLedger() *Ledger {
	return &Ledger{
		balances:     map[balanceKey]*big.Int{},
		allowances:   map[allowanceKey]*big.Int{},
		nftOwners:    map[nftKey]domain.Address{},
		nftApprovals: map[nftKey]domain.Address{},
	}
}

// SetTransferHook installs a receiver callback for fungible transfers.
func (l *Ledger) SetTransferHook(h TransferHook) {
	l.transferHook = h
}

// SetNftTransferHook installs a receiver callback for unique asset transfers.
func (l *Ledger) SetNftTransferHook(h NftTransferHook) {
	l.nftHook = h
}

// Mint credits account with amount of token. Test and simulation helper.
func (l *Ledger) Mint(token, account domain.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(token, account, amount)
}

// MintNft assigns a fresh unique asset to owner. Test and simulation helper.
func (l *Ledger) MintNft(contract domain.Address, tokenId domain.TokenId, owner domain.Address) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nftOwners[nftKey{contract.ToLower(), tokenId}] = owner.ToLower()
}

func (l *Ledger) OwnerOf(c ctx.Ctx, contract domain.Address, tokenId domain.TokenId) (domain.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	owner, ok := l.nftOwners[nftKey{contract.ToLower(), tokenId}]
	if !ok {
		return domain.EmptyAddress, domain.ErrNotFound
	}
	return owner, nil
}

func (l *Ledger) ApproveNft(c ctx.Ctx, owner, operator, contract domain.Address, tokenId domain.TokenId) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := nftKey{contract.ToLower(), tokenId}
	if cur, ok := l.nftOwners[key]; !ok || !cur.Equals(owner) {
		return xerrors.Errorf("approve nft %s/%s: %w", contract, tokenId, domain.ErrTransferFailed)
	}
	l.nftApprovals[key] = operator.ToLower()
	return nil
}

func (l *Ledger) TransferNft(c ctx.Ctx, contract, from, to domain.Address, tokenId domain.TokenId) error {
	return l.transferNft(c, domain.EmptyAddress, contract, from, to, tokenId, false)
}

func (l *Ledger) TransferNftFrom(c ctx.Ctx, operator, contract, from, to domain.Address, tokenId domain.TokenId) error {
	return l.transferNft(c, operator, contract, from, to, tokenId, true)
}

func (l *Ledger) transferNft(c ctx.Ctx, operator, contract, from, to domain.Address, tokenId domain.TokenId, checkApproval bool) error {
	l.mu.Lock()
	key := nftKey{contract.ToLower(), tokenId}
	owner, ok := l.nftOwners[key]
	if !ok || !owner.Equals(from) {
		l.mu.Unlock()
		return xerrors.Errorf("nft %s/%s not owned by %s: %w", contract, tokenId, from, domain.ErrTransferFailed)
	}
	if checkApproval && !operator.Equals(from) {
		if approved, ok := l.nftApprovals[key]; !ok || !approved.Equals(operator) {
			l.mu.Unlock()
			return xerrors.Errorf("nft %s/%s not approved for %s: %w", contract, tokenId, operator, domain.ErrTransferNotApproved)
		}
	}
	l.nftOwners[key] = to.ToLower()
	delete(l.nftApprovals, key)
	hook := l.nftHook
	l.mu.Unlock()

	if hook != nil {
		hook(c, contract, from, to, tokenId)
	}
	return nil
}

func (l *Ledger) BalanceOf(c ctx.Ctx, token, account domain.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if bal, ok := l.balances[balanceKey{token.ToLower(), account.ToLower()}]; ok {
		return new(big.Int).Set(bal), nil
	}
	return big.NewInt(0), nil
}

func (l *Ledger) Approve(c ctx.Ctx, owner, operator, token domain.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return domain.ErrInvalidParams
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowances[allowanceKey{token.ToLower(), owner.ToLower(), operator.ToLower()}] = new(big.Int).Set(amount)
	return nil
}

func (l *Ledger) Transfer(c ctx.Ctx, token, from, to domain.Address, amount *big.Int) error {
	return l.transfer(c, domain.EmptyAddress, token, from, to, amount, false)
}

func (l *Ledger) TransferFrom(c ctx.Ctx, operator, token, from, to domain.Address, amount *big.Int) error {
	return l.transfer(c, operator, token, from, to, amount, true)
}

func (l *Ledger) transfer(c ctx.Ctx, operator, token, from, to domain.Address, amount *big.Int, checkAllowance bool) error {
	if amount == nil || amount.Sign() <= 0 {
		return domain.ErrInvalidParams
	}

	l.mu.Lock()
	// validate both legs before mutating anything so a failed call has no
	// partial effect
	// native value travels with the call, so no allowance applies
	spendAllowance := checkAllowance && !token.IsNative() && !operator.Equals(from)
	allowanceK := allowanceKey{token.ToLower(), from.ToLower(), operator.ToLower()}
	if spendAllowance {
		allowance, ok := l.allowances[allowanceK]
		if !ok || allowance.Cmp(amount) < 0 {
			l.mu.Unlock()
			return xerrors.Errorf("token %s from %s operator %s: %w", token, from, operator, domain.ErrTransferNotApproved)
		}
	}
	fromKey := balanceKey{token.ToLower(), from.ToLower()}
	bal, ok := l.balances[fromKey]
	if !ok || bal.Cmp(amount) < 0 {
		l.mu.Unlock()
		return xerrors.Errorf("token %s account %s: %w", token, from, domain.ErrInsufficientFunds)
	}

	if spendAllowance {
		l.allowances[allowanceK] = new(big.Int).Sub(l.allowances[allowanceK], amount)
	}
	l.balances[fromKey] = new(big.Int).Sub(bal, amount)
	l.credit(token, to, amount)
	hook := l.transferHook
	l.mu.Unlock()

	if hook != nil {
		c.WithFields(log.Fields{
			"token": token,
			"from":  from,
			"to":    to,
		}).Debug("invoking transfer hook")
		hook(c, token, from, to, amount)
	}
	return nil
}

// credit assumes l.mu is held.
func (l *Ledger) credit(token, account domain.Address, amount *big.Int) {
	key := balanceKey{token.ToLower(), account.ToLower()}
	if bal, ok := l.balances[key]; ok {
		l.balances[key] = new(big.Int).Add(bal, amount)
	} else {
		l.balances[key] = new(big.Int).Set(amount)
	}
}
