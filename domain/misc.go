package domain

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/xerrors"
)

type Address string

// NativeAsset is the asset id of the native settlement currency. The zero
// address matches the convention of on-chain price feeds.
const NativeAsset = Address("0x0000000000000000000000000000000000000000")

const EmptyAddress = Address("")

func (a Address) ToLower() Address {
	return Address(strings.ToLower(string(a)))
}

func (a Address) ToLowerStr() string {
	return strings.ToLower(string(a))
}

func (a Address) IsEmpty() bool {
	return len(a) == 0
}

func (a Address) IsNative() bool {
	return a.Equals(NativeAsset)
}

func (a Address) Equals(b Address) bool {
	return a.ToLowerStr() == b.ToLowerStr()
}

type TokenId string

func (i TokenId) String() string {
	return string(i)
}

// UsdDecimals is the fixed fractional precision of USD values, matching the
// 8-decimal convention of the price feeds.
const UsdDecimals = 8

// MaxFeeBps bounds the protocol fee rate.
const MaxFeeBps = 10000

type Table string

const (
	TableAuctions       Table = "auctions"
	TablePendingReturns Table = "pending_returns"
	TableFeeds          Table = "feeds"
	TableFactoryConfig  Table = "factory_config"
	TableEvents         Table = "events"
)

// ParseRawAmount parses a base-10 raw asset amount. Raw amounts are carried as
// big integers in the asset's smallest unit, never as floats.
func ParseRawAmount(s string) (*big.Int, error) {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, xerrors.Errorf("invalid raw amount %q: %w", s, ErrInvalidParams)
	}
	if n.Sign() <= 0 {
		return nil, xerrors.Errorf("non-positive raw amount %q: %w", s, ErrInvalidParams)
	}
	return n, nil
}

// ParseUsdValue parses a USD value and truncates it to UsdDecimals digits.
func ParseUsdValue(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, xerrors.Errorf("invalid usd value %q: %w", s, ErrInvalidParams)
	}
	return d.Truncate(UsdDecimals), nil
}
