package repository

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	bCtx "github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/base/log"
	"github.com/young8i/nft-auction-market/domain"
	"github.com/young8i/nft-auction-market/service/query"
)

type eventMongoRepo struct {
	q query.Mongo
}

func NewEventRepo(q query.Mongo) domain.EventRepo {
	return &eventMongoRepo{
		q: q,
	}
}

func (r *eventMongoRepo) Insert(ctx bCtx.Ctx, e *domain.Event) error {
	if err := r.q.Insert(ctx, domain.TableEvents, e); err != nil {
		ctx.WithField("err", err).Error("q.Insert failed")
		return err
	}
	return nil
}

func (r *eventMongoRepo) FindByAuction(ctx bCtx.Ctx, auctionId string) ([]*domain.Event, error) {
	var events []*domain.Event
	if err := r.q.Search(ctx, domain.TableEvents, 0, 1000, "createdAt", bson.M{"auctionId": auctionId}, &events); err != nil {
		ctx.WithFields(log.Fields{
			"err":       err,
			"auctionId": auctionId,
		}).Error("q.Search failed")
		return nil, err
	}
	return events, nil
}

// inmemEventRepo keeps events in memory in insertion order. It serves the
// standalone storage mode and the flow tests.
type inmemEventRepo struct {
	mu     sync.RWMutex
	events []*domain.Event
}

func NewInmemEventRepo() domain.EventRepo {
	return &inmemEventRepo{}
}

func (r *inmemEventRepo) Insert(ctx bCtx.Ctx, e *domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.events = append(r.events, &cp)
	return nil
}

func (r *inmemEventRepo) FindByAuction(ctx bCtx.Ctx, auctionId string) ([]*domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var res []*domain.Event
	for _, e := range r.events {
		if e.AuctionId == auctionId {
			cp := *e
			res = append(res, &cp)
		}
	}
	return res, nil
}
