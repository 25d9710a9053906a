package repository

import (
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	bCtx "github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/base/database/mongoclient"
	"github.com/young8i/nft-auction-market/base/log"
	"github.com/young8i/nft-auction-market/domain"
	"github.com/young8i/nft-auction-market/domain/auction"
	"github.com/young8i/nft-auction-market/service/query"
)

type auctionMongoRepo struct {
	q query.Mongo
}

func NewAuctionRepo(q query.Mongo) auction.Repo {
	return &auctionMongoRepo{
		q: q,
	}
}

func (r *auctionMongoRepo) Create(ctx bCtx.Ctx, a *auction.Auction) error {
	if _, err := r.FindActiveByItem(ctx, a.AssetContract, a.AssetId); err == nil {
		return domain.ErrConflict
	} else if err != domain.ErrNotFound {
		return err
	}
	if err := r.q.Insert(ctx, domain.TableAuctions, a); err == query.ErrDuplicateKey {
		return domain.ErrConflict
	} else if err != nil {
		ctx.WithField("err", err).Error("q.Insert failed")
		return err
	}
	return nil
}

func (r *auctionMongoRepo) FindOne(ctx bCtx.Ctx, id string) (*auction.Auction, error) {
	a := &auction.Auction{}
	qry, err := mongoclient.MakeBsonM(&auction.Auction{Id: id})
	if err != nil {
		ctx.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return nil, err
	}
	if err := r.q.FindOne(ctx, domain.TableAuctions, qry, a); err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		ctx.WithField("err", err).Error("q.FindOne failed")
		return nil, err
	}
	return a, nil
}

func (r *auctionMongoRepo) FindActiveByItem(ctx bCtx.Ctx, assetContract domain.Address, assetId domain.TokenId) (*auction.Auction, error) {
	a := &auction.Auction{}
	qry := bson.M{
		"assetContract": assetContract.ToLower(),
		"assetId":       assetId,
		"state":         auction.StateActive,
	}
	if err := r.q.FindOne(ctx, domain.TableAuctions, qry, a); err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		ctx.WithFields(log.Fields{
			"err":           err,
			"assetContract": assetContract,
			"assetId":       assetId,
		}).Error("q.FindOne failed")
		return nil, err
	}
	return a, nil
}

func (r *auctionMongoRepo) Update(ctx bCtx.Ctx, a *auction.Auction) error {
	selector, err := mongoclient.MakeBsonM(a.ToId())
	if err != nil {
		ctx.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return err
	}
	if err := r.q.Upsert(ctx, domain.TableAuctions, selector, a); err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
			"id":  a.Id,
		}).Error("q.Upsert failed")
		return err
	}
	return nil
}

func (r *auctionMongoRepo) FindAll(ctx bCtx.Ctx) ([]*auction.Auction, error) {
	var res []*auction.Auction
	if err := r.q.Search(ctx, domain.TableAuctions, 0, 1000, "createdAt", bson.M{}, &res); err != nil {
		ctx.WithField("err", err).Error("q.Search failed")
		return nil, err
	}
	return res, nil
}

// inmemAuctionRepo backs the auction table with process memory. It serves the
// standalone storage mode and the flow tests.
type inmemAuctionRepo struct {
	mu       sync.RWMutex
	auctions map[string]*auction.Auction
	order    []string
}

func NewInmemAuctionRepo() auction.Repo {
	return &inmemAuctionRepo{auctions: map[string]*auction.Auction{}}
}

func copyAuction(a *auction.Auction) *auction.Auction {
	cp := *a
	if a.HighestBid != nil {
		bid := *a.HighestBid
		cp.HighestBid = &bid
	}
	return &cp
}

func (r *inmemAuctionRepo) Create(ctx bCtx.Ctx, a *auction.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.auctions[a.Id]; ok {
		return domain.ErrConflict
	}
	for _, id := range r.order {
		live := r.auctions[id]
		if live.State == auction.StateActive &&
			live.AssetContract.Equals(a.AssetContract) &&
			live.AssetId == a.AssetId {
			return domain.ErrConflict
		}
	}
	r.auctions[a.Id] = copyAuction(a)
	r.order = append(r.order, a.Id)
	return nil
}

func (r *inmemAuctionRepo) FindOne(ctx bCtx.Ctx, id string) (*auction.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.auctions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return copyAuction(a), nil
}

func (r *inmemAuctionRepo) FindActiveByItem(ctx bCtx.Ctx, assetContract domain.Address, assetId domain.TokenId) (*auction.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		a := r.auctions[id]
		if a.State == auction.StateActive && a.AssetContract.Equals(assetContract) && a.AssetId == assetId {
			return copyAuction(a), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *inmemAuctionRepo) Update(ctx bCtx.Ctx, a *auction.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.auctions[a.Id]; !ok {
		return domain.ErrNotFound
	}
	r.auctions[a.Id] = copyAuction(a)
	return nil
}

func (r *inmemAuctionRepo) FindAll(ctx bCtx.Ctx) ([]*auction.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]*auction.Auction, 0, len(r.order))
	for _, id := range r.order {
		res = append(res, copyAuction(r.auctions[id]))
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	return res, nil
}
