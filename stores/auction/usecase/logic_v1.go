package usecase

import (
	"math/big"
	"time"

	"golang.org/x/xerrors"

	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/base/log"
	"github.com/young8i/nft-auction-market/domain"
	"github.com/young8i/nft-auction-market/domain/auction"
	"github.com/young8i/nft-auction-market/service/custody"
)

const (
	logicIdV1      = "v1"
	logicVersionV1 = "NftAuction"
	schemaV1       = int32(1)
)

// LogicV1 is the initial auction behavior. All mutations follow
// compute, validate, commit under the instance lock, external transfers
// outside the lock.
type LogicV1 struct {
	auctions auction.Repo
	pending  auction.PendingReturnRepo
	custody  custody.Service
	oracle   *auction.OracleHolder
	config   auction.ConfigRepo
	recorder domain.EventRecorder
	locks    *keyedMutex
	now      func() time.Time
}

func NewLogicV1(
	auctions auction.Repo,
	pending auction.PendingReturnRepo,
	cust custody.Service,
	oracle *auction.OracleHolder,
	config auction.ConfigRepo,
	recorder domain.EventRecorder,
) *LogicV1 {
	return &LogicV1{
		auctions: auctions,
		pending:  pending,
		custody:  cust,
		oracle:   oracle,
		config:   config,
		recorder: recorder,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

func (l *LogicV1) Id() string           { return logicIdV1 }
func (l *LogicV1) Version() string      { return logicVersionV1 }
func (l *LogicV1) SchemaVersion() int32 { return schemaV1 }

// checkBid validates a bid against one observed snapshot of the auction.
func (l *LogicV1) checkBid(a *auction.Auction, usd string) error {
	if a.State != auction.StateActive {
		return domain.ErrAlreadyEnded
	}
	if !l.now().Before(a.EndTime) {
		return domain.ErrAlreadyEnded
	}
	usdValue, err := domain.ParseUsdValue(usd)
	if err != nil {
		return err
	}
	if usdValue.LessThanOrEqual(a.ReservePriceUsdDecimal()) {
		return domain.ErrBidTooLow
	}
	if a.HighestBid != nil && usdValue.LessThanOrEqual(a.HighestBid.UsdValueDecimal()) {
		return domain.ErrBidTooLow
	}
	return nil
}

func (l *LogicV1) Bid(c ctx.Ctx, p *auction.BidParams) (*auction.Auction, error) {
	if p.Bidder.IsEmpty() || p.RawAmount == nil || p.RawAmount.Sign() <= 0 {
		return nil, domain.ErrInvalidParams
	}

	a, err := l.auctions.FindOne(c, p.AuctionId)
	if err != nil {
		return nil, err
	}

	usd, err := l.oracle.Get().ValueInUsd(c, p.PayToken, p.RawAmount)
	if err != nil {
		return nil, err
	}
	usdStr := usd.String()

	// cheap rejection before moving any funds
	if err := l.checkBid(a, usdStr); err != nil {
		return nil, err
	}

	// pull the funds into escrow; failure leaves no state to unwind
	escrow := a.EscrowAddress()
	if err := l.custody.TransferFrom(c, escrow, p.PayToken, p.Bidder, escrow, p.RawAmount); err != nil {
		c.WithFields(log.Fields{
			"err":       err,
			"auctionId": p.AuctionId,
			"bidder":    p.Bidder,
		}).Warn("bid funds pull failed")
		return nil, err
	}

	// funds are in escrow; commit or give them straight back
	unlock := l.locks.lock(a.Id)
	a, err = l.auctions.FindOne(c, p.AuctionId)
	if err == nil {
		err = l.checkBid(a, usdStr)
	}
	if err != nil {
		unlock()
		if rerr := l.custody.Transfer(c, p.PayToken, escrow, p.Bidder, p.RawAmount); rerr != nil {
			c.WithFields(log.Fields{
				"err":       rerr,
				"auctionId": p.AuctionId,
				"bidder":    p.Bidder,
			}).Error("returning rejected bid failed")
			l.recordPendingReturn(c, p.AuctionId, p.Bidder, p.PayToken, p.RawAmount)
		}
		return nil, err
	}

	displaced := a.HighestBid
	a.HighestBid = &auction.Bid{
		Bidder:    p.Bidder.ToLower(),
		PayToken:  p.PayToken.ToLower(),
		RawAmount: p.RawAmount.String(),
		UsdValue:  usdStr,
	}
	if err := l.auctions.Update(c, a); err != nil {
		a.HighestBid = displaced
		unlock()
		if rerr := l.custody.Transfer(c, p.PayToken, escrow, p.Bidder, p.RawAmount); rerr != nil {
			l.recordPendingReturn(c, p.AuctionId, p.Bidder, p.PayToken, p.RawAmount)
		}
		return nil, err
	}
	unlock()

	l.recorder.Record(c, &domain.Event{
		Type:      domain.EventBidPlaced,
		AuctionId: a.Id,
		Data: map[string]interface{}{
			"bidder":    p.Bidder.ToLowerStr(),
			"payToken":  p.PayToken.ToLowerStr(),
			"rawAmount": p.RawAmount.String(),
			"usdValue":  usdStr,
		},
	})

	// refund the displaced bidder outside the lock; failure never unwinds
	// the accepted bid
	if displaced != nil {
		if err := l.custody.Transfer(c, displaced.PayToken, escrow, displaced.Bidder, displaced.RawAmountInt()); err != nil {
			c.WithFields(log.Fields{
				"err":       err,
				"auctionId": a.Id,
				"bidder":    displaced.Bidder,
			}).Warn("refund failed, recorded for claim")
			l.recordPendingReturn(c, a.Id, displaced.Bidder, displaced.PayToken, displaced.RawAmountInt())
		}
	}

	return a, nil
}

func (l *LogicV1) recordPendingReturn(c ctx.Ctx, auctionId string, bidder, payToken domain.Address, amount *big.Int) {
	if err := l.pending.Add(c, &auction.PendingReturn{
		AuctionId: auctionId,
		Bidder:    bidder,
		PayToken:  payToken,
		RawAmount: amount.String(),
		CreatedAt: l.now(),
	}); err != nil {
		// funds stay in escrow; only the claim record is lost
		c.WithFields(log.Fields{
			"err":       err,
			"auctionId": auctionId,
			"bidder":    bidder,
		}).Error("pending.Add failed")
		return
	}
	l.recorder.Record(c, &domain.Event{
		Type:      domain.EventRefundFailed,
		AuctionId: auctionId,
		Data: map[string]interface{}{
			"bidder":    bidder.ToLowerStr(),
			"payToken":  payToken.ToLowerStr(),
			"rawAmount": amount.String(),
		},
	})
}

func (l *LogicV1) EndAuction(c ctx.Ctx, auctionId string) (*auction.Settlement, error) {
	unlock := l.locks.lock(auctionId)

	a, err := l.auctions.FindOne(c, auctionId)
	if err != nil {
		unlock()
		return nil, err
	}
	if a.State != auction.StateActive {
		unlock()
		return nil, domain.ErrAlreadyEnded
	}
	if l.now().Before(a.EndTime) {
		unlock()
		return nil, domain.ErrTooEarly
	}

	cfg, err := l.config.Get(c)
	if err != nil {
		unlock()
		return nil, err
	}

	// the record flips to Ended before any asset moves, so a reentrant
	// call during a transfer observes a settled auction
	a.State = auction.StateEnded
	if err := l.auctions.Update(c, a); err != nil {
		unlock()
		return nil, err
	}
	unlock()

	settlement, err := l.settle(c, a, cfg)
	if err != nil {
		// roll the record back so the caller can retry
		unlock := l.locks.lock(auctionId)
		a.State = auction.StateActive
		if uerr := l.auctions.Update(c, a); uerr != nil {
			c.WithFields(log.Fields{
				"err":       uerr,
				"auctionId": auctionId,
			}).Error("restoring active state failed")
		}
		unlock()
		return nil, err
	}

	l.recorder.Record(c, &domain.Event{
		Type:      domain.EventAuctionEnded,
		AuctionId: a.Id,
		Data: map[string]interface{}{
			"winner":        settlement.Winner.ToLowerStr(),
			"payToken":      settlement.PayToken.ToLowerStr(),
			"settledAmount": settlement.SettledAmount,
			"feeAmount":     settlement.FeeAmount,
		},
	})
	return settlement, nil
}

// settle moves the escrowed asset and funds. Any failed leg is compensated
// so the whole settlement is all-or-nothing.
func (l *LogicV1) settle(c ctx.Ctx, a *auction.Auction, cfg *auction.FactoryConfig) (*auction.Settlement, error) {
	escrow := a.EscrowAddress()

	if a.HighestBid == nil {
		if err := l.custody.TransferNft(c, a.AssetContract, escrow, a.Seller, a.AssetId); err != nil {
			c.WithFields(log.Fields{
				"err":       err,
				"auctionId": a.Id,
			}).Error("returning asset to seller failed")
			return nil, xerrors.Errorf("return asset: %w", domain.ErrTransferFailed)
		}
		return &auction.Settlement{
			AuctionId:        a.Id,
			SettledAmount:    "0",
			FeeAmount:        "0",
			ReturnedToSeller: true,
		}, nil
	}

	bid := a.HighestBid
	raw := bid.RawAmountInt()
	fee := new(big.Int).Div(new(big.Int).Mul(raw, big.NewInt(cfg.FeeBps)), big.NewInt(domain.MaxFeeBps))
	proceeds := new(big.Int).Sub(raw, fee)

	if err := l.custody.Transfer(c, bid.PayToken, escrow, a.Seller, proceeds); err != nil {
		return nil, xerrors.Errorf("seller payout: %w", domain.ErrTransferFailed)
	}
	if fee.Sign() > 0 {
		if err := l.custody.Transfer(c, bid.PayToken, escrow, cfg.FeeRecipient, fee); err != nil {
			l.compensate(c, a, bid.PayToken, a.Seller, proceeds)
			return nil, xerrors.Errorf("fee payout: %w", domain.ErrTransferFailed)
		}
	}
	if err := l.custody.TransferNft(c, a.AssetContract, escrow, bid.Bidder, a.AssetId); err != nil {
		l.compensate(c, a, bid.PayToken, a.Seller, proceeds)
		if fee.Sign() > 0 {
			l.compensate(c, a, bid.PayToken, cfg.FeeRecipient, fee)
		}
		return nil, xerrors.Errorf("asset transfer: %w", domain.ErrTransferFailed)
	}

	return &auction.Settlement{
		AuctionId:     a.Id,
		Winner:        bid.Bidder,
		PayToken:      bid.PayToken,
		SettledAmount: raw.String(),
		FeeAmount:     fee.String(),
	}, nil
}

func (l *LogicV1) compensate(c ctx.Ctx, a *auction.Auction, token, holder domain.Address, amount *big.Int) {
	if err := l.custody.Transfer(c, token, holder, a.EscrowAddress(), amount); err != nil {
		c.WithFields(log.Fields{
			"err":       err,
			"auctionId": a.Id,
			"holder":    holder,
		}).Error("compensating transfer failed")
	}
}

func (l *LogicV1) Claim(c ctx.Ctx, auctionId string, bidder domain.Address) ([]*auction.PendingReturn, error) {
	if bidder.IsEmpty() {
		return nil, domain.ErrInvalidParams
	}

	a, err := l.auctions.FindOne(c, auctionId)
	if err != nil {
		return nil, err
	}

	entries, err := l.pending.FindByBidder(c, auctionId, bidder)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, domain.ErrNothingToClaim
	}

	escrow := a.EscrowAddress()
	var claimed []*auction.PendingReturn
	for _, entry := range entries {
		// drop the record before paying so a concurrent claim can never
		// pay the same entry twice
		if err := l.pending.Remove(c, auctionId, bidder, entry.PayToken); err == domain.ErrNotFound {
			continue
		} else if err != nil {
			return claimed, err
		}
		if err := l.custody.Transfer(c, entry.PayToken, escrow, bidder, entry.RawAmountInt()); err != nil {
			c.WithFields(log.Fields{
				"err":       err,
				"auctionId": auctionId,
				"bidder":    bidder,
			}).Error("claim payout failed, record restored")
			if aerr := l.pending.Add(c, entry); aerr != nil {
				c.WithField("err", aerr).Error("pending.Add failed")
			}
			return claimed, xerrors.Errorf("claim payout: %w", domain.ErrTransferFailed)
		}
		claimed = append(claimed, entry)
		l.recorder.Record(c, &domain.Event{
			Type:      domain.EventClaimed,
			AuctionId: auctionId,
			Data: map[string]interface{}{
				"bidder":    bidder.ToLowerStr(),
				"payToken":  entry.PayToken.ToLowerStr(),
				"rawAmount": entry.RawAmount,
			},
		})
	}
	if len(claimed) == 0 {
		return nil, domain.ErrNothingToClaim
	}
	return claimed, nil
}
