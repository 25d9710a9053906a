package repository

import (
	"math/big"
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	bCtx "github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/base/log"
	"github.com/young8i/nft-auction-market/domain"
	"github.com/young8i/nft-auction-market/domain/auction"
	"github.com/young8i/nft-auction-market/service/query"
)

type pendingReturnMongoRepo struct {
	q query.Mongo
}

func NewPendingReturnRepo(q query.Mongo) auction.PendingReturnRepo {
	return &pendingReturnMongoRepo{
		q: q,
	}
}

func pendingSelector(auctionId string, bidder, payToken domain.Address) bson.M {
	return bson.M{
		"auctionId": auctionId,
		"bidder":    bidder.ToLower(),
		"payToken":  payToken.ToLower(),
	}
}

func (r *pendingReturnMongoRepo) Add(ctx bCtx.Ctx, p *auction.PendingReturn) error {
	p.Bidder = p.Bidder.ToLower()
	p.PayToken = p.PayToken.ToLower()

	selector := pendingSelector(p.AuctionId, p.Bidder, p.PayToken)
	existing := &auction.PendingReturn{}
	if err := r.q.FindOne(ctx, domain.TablePendingReturns, selector, existing); err == nil {
		merged := new(big.Int).Add(existing.RawAmountInt(), p.RawAmountInt())
		p = &auction.PendingReturn{
			AuctionId: p.AuctionId,
			Bidder:    p.Bidder,
			PayToken:  p.PayToken,
			RawAmount: merged.String(),
			CreatedAt: existing.CreatedAt,
		}
	} else if err != query.ErrNotFound {
		ctx.WithField("err", err).Error("q.FindOne failed")
		return err
	}

	if err := r.q.Upsert(ctx, domain.TablePendingReturns, selector, p); err != nil {
		ctx.WithFields(log.Fields{
			"err":       err,
			"auctionId": p.AuctionId,
			"bidder":    p.Bidder,
		}).Error("q.Upsert failed")
		return err
	}
	return nil
}

func (r *pendingReturnMongoRepo) FindByBidder(ctx bCtx.Ctx, auctionId string, bidder domain.Address) ([]*auction.PendingReturn, error) {
	var res []*auction.PendingReturn
	qry := bson.M{
		"auctionId": auctionId,
		"bidder":    bidder.ToLower(),
	}
	if err := r.q.Search(ctx, domain.TablePendingReturns, 0, 100, "createdAt", qry, &res); err != nil {
		ctx.WithFields(log.Fields{
			"err":       err,
			"auctionId": auctionId,
			"bidder":    bidder,
		}).Error("q.Search failed")
		return nil, err
	}
	return res, nil
}

func (r *pendingReturnMongoRepo) Remove(ctx bCtx.Ctx, auctionId string, bidder domain.Address, payToken domain.Address) error {
	if err := r.q.Remove(ctx, domain.TablePendingReturns, pendingSelector(auctionId, bidder, payToken)); err == query.ErrNotFound {
		return domain.ErrNotFound
	} else if err != nil {
		ctx.WithField("err", err).Error("q.Remove failed")
		return err
	}
	return nil
}

type pendingKey struct {
	auctionId string
	bidder    domain.Address
	payToken  domain.Address
}

// inmemPendingReturnRepo backs the pending return table with process memory.
type inmemPendingReturnRepo struct {
	mu      sync.Mutex
	entries map[pendingKey]*auction.PendingReturn
}

func NewInmemPendingReturnRepo() auction.PendingReturnRepo {
	return &inmemPendingReturnRepo{entries: map[pendingKey]*auction.PendingReturn{}}
}

func (r *inmemPendingReturnRepo) Add(ctx bCtx.Ctx, p *auction.PendingReturn) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pendingKey{p.AuctionId, p.Bidder.ToLower(), p.PayToken.ToLower()}
	cp := *p
	cp.Bidder = key.bidder
	cp.PayToken = key.payToken
	if existing, ok := r.entries[key]; ok {
		cp.RawAmount = new(big.Int).Add(existing.RawAmountInt(), p.RawAmountInt()).String()
		cp.CreatedAt = existing.CreatedAt
	}
	r.entries[key] = &cp
	return nil
}

func (r *inmemPendingReturnRepo) FindByBidder(ctx bCtx.Ctx, auctionId string, bidder domain.Address) ([]*auction.PendingReturn, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []*auction.PendingReturn
	for key, p := range r.entries {
		if key.auctionId == auctionId && key.bidder == bidder.ToLower() {
			cp := *p
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (r *inmemPendingReturnRepo) Remove(ctx bCtx.Ctx, auctionId string, bidder domain.Address, payToken domain.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pendingKey{auctionId, bidder.ToLower(), payToken.ToLower()}
	if _, ok := r.entries[key]; !ok {
		return domain.ErrNotFound
	}
	delete(r.entries, key)
	return nil
}
