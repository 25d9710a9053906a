package usecase

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/base/log"
	"github.com/young8i/nft-auction-market/domain"
	"github.com/young8i/nft-auction-market/service/pricefeed"
)

type impl struct {
	feed       domain.FeedRepo
	pricefeed  pricefeed.Service
	owner      domain.Address
	staleAfter time.Duration
	recorder   domain.EventRecorder
}

// New builds the oracle usecase. staleAfter bounds the age of a feed report;
// zero disables the check.
func New(
	feed domain.FeedRepo,
	pf pricefeed.Service,
	owner domain.Address,
	staleAfter time.Duration,
	recorder domain.EventRecorder,
) domain.OracleUsecase {
	return &impl{
		feed:       feed,
		pricefeed:  pf,
		owner:      owner,
		staleAfter: staleAfter,
		recorder:   recorder,
	}
}

func (im *impl) SetFeed(c ctx.Ctx, caller domain.Address, entry *domain.FeedEntry) error {
	if !caller.Equals(im.owner) {
		return domain.ErrUnauthorized
	}
	if entry.FeedRef.IsEmpty() || entry.AssetDecimals < 0 {
		return domain.ErrInvalidParams
	}

	if err := im.feed.Upsert(c, entry); err != nil {
		c.WithFields(log.Fields{
			"err":   err,
			"asset": entry.Asset,
		}).Error("feed.Upsert failed")
		return err
	}

	im.recorder.Record(c, &domain.Event{
		Type: domain.EventFeedSet,
		Data: map[string]interface{}{
			"asset":         entry.Asset.ToLower(),
			"feedRef":       entry.FeedRef.ToLower(),
			"assetDecimals": entry.AssetDecimals,
		},
		CreatedAt: time.Now(),
	})
	return nil
}

func (im *impl) ValueInUsd(c ctx.Ctx, asset domain.Address, rawAmount *big.Int) (decimal.Decimal, error) {
	if rawAmount == nil || rawAmount.Sign() < 0 {
		return decimal.Zero, domain.ErrInvalidParams
	}

	entry, err := im.feed.FindOne(c, asset)
	if err == domain.ErrNotFound {
		return decimal.Zero, domain.ErrNoPriceFeed
	} else if err != nil {
		c.WithFields(log.Fields{
			"err":   err,
			"asset": asset,
		}).Error("feed.FindOne failed")
		return decimal.Zero, err
	}

	round, err := im.pricefeed.LatestRoundData(c, entry.FeedRef)
	if err != nil {
		c.WithFields(log.Fields{
			"err":     err,
			"asset":   asset,
			"feedRef": entry.FeedRef,
		}).Error("pricefeed.LatestRoundData failed")
		return decimal.Zero, domain.ErrStalePrice
	}

	// A zero or negative report is never treated as a usable rate.
	if round.Rate == nil || round.Rate.Sign() <= 0 {
		return decimal.Zero, domain.ErrStalePrice
	}
	if im.staleAfter > 0 && time.Since(round.UpdatedAt) > im.staleAfter {
		return decimal.Zero, domain.ErrStalePrice
	}

	amount := decimal.NewFromBigInt(rawAmount, -entry.AssetDecimals)
	rate := decimal.NewFromBigInt(round.Rate, -round.Decimals)
	return amount.Mul(rate).Truncate(domain.UsdDecimals), nil
}
