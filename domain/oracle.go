package domain

import (
	"math/big"

	"github.com/shopspring/decimal"
	"github.com/young8i/nft-auction-market/base/ctx"
)

// FeedEntry maps a payment asset to its price feed. AssetDecimals is the
// asset's own precision; the feed's precision is reported by the feed itself.
type FeedEntry struct {
	Asset         Address `bson:"asset"`
	FeedRef       Address `bson:"feedRef"`
	AssetDecimals int32   `bson:"assetDecimals"`
}

func (e *FeedEntry) ToSelector() *FeedEntry {
	return &FeedEntry{Asset: e.Asset}
}

type FeedRepo interface {
	FindOne(ctx.Ctx, Address) (*FeedEntry, error)
	Upsert(ctx.Ctx, *FeedEntry) error
}

// OracleUsecase normalizes raw asset amounts to USD values so that bids in
// different payment assets compare on a single basis.
type OracleUsecase interface {
	// SetFeed registers or overwrites the feed for an asset. Only the oracle
	// owner may call it.
	SetFeed(c ctx.Ctx, caller Address, entry *FeedEntry) error
	// ValueInUsd converts rawAmount of asset into a USD value truncated to
	// UsdDecimals digits. Returns ErrNoPriceFeed for unregistered assets and
	// ErrStalePrice when the feed cannot supply a trustworthy rate. A stale
	// price is never reported as a zero value.
	ValueInUsd(c ctx.Ctx, asset Address, rawAmount *big.Int) (decimal.Decimal, error)
}
