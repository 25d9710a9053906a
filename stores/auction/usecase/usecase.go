package usecase

import (
	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/base/log"
	"github.com/young8i/nft-auction-market/domain"
	"github.com/young8i/nft-auction-market/domain/auction"
)

// impl dispatches every mutating operation through the logic handler the
// stored record names, so swapping an instance's logic id changes its
// behavior without touching its state.
type impl struct {
	auctions auction.Repo
	registry *auction.LogicRegistry
}

func New(auctions auction.Repo, registry *auction.LogicRegistry) auction.Usecase {
	return &impl{
		auctions: auctions,
		registry: registry,
	}
}

func (im *impl) logicFor(c ctx.Ctx, auctionId string) (auction.Logic, error) {
	a, err := im.auctions.FindOne(c, auctionId)
	if err != nil {
		return nil, err
	}
	l, err := im.registry.Get(a.LogicId)
	if err != nil {
		c.WithFields(log.Fields{
			"err":       err,
			"auctionId": auctionId,
			"logicId":   a.LogicId,
		}).Error("registry.Get failed")
		return nil, err
	}
	return l, nil
}

func (im *impl) Bid(c ctx.Ctx, p *auction.BidParams) (*auction.Auction, error) {
	l, err := im.logicFor(c, p.AuctionId)
	if err != nil {
		return nil, err
	}
	return l.Bid(c, p)
}

func (im *impl) EndAuction(c ctx.Ctx, auctionId string) (*auction.Settlement, error) {
	l, err := im.logicFor(c, auctionId)
	if err != nil {
		return nil, err
	}
	return l.EndAuction(c, auctionId)
}

func (im *impl) Claim(c ctx.Ctx, auctionId string, bidder domain.Address) ([]*auction.PendingReturn, error) {
	l, err := im.logicFor(c, auctionId)
	if err != nil {
		return nil, err
	}
	return l.Claim(c, auctionId, bidder)
}

func (im *impl) GetAuction(c ctx.Ctx, auctionId string) (*auction.Auction, error) {
	return im.auctions.FindOne(c, auctionId)
}

func (im *impl) HighestBid(c ctx.Ctx, auctionId string) (*auction.Bid, error) {
	a, err := im.auctions.FindOne(c, auctionId)
	if err != nil {
		return nil, err
	}
	return a.HighestBid, nil
}

func (im *impl) Version(c ctx.Ctx, auctionId string) (string, error) {
	l, err := im.logicFor(c, auctionId)
	if err != nil {
		return "", err
	}
	return l.Version(), nil
}
