package repository

import (
	"sync"
	"time"

	bCtx "github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/base/database/mongoclient"
	"github.com/young8i/nft-auction-market/base/log"
	"github.com/young8i/nft-auction-market/domain"
	"github.com/young8i/nft-auction-market/service/cache"
	"github.com/young8i/nft-auction-market/service/cache/provider"
	"github.com/young8i/nft-auction-market/service/cache/provider/compound"
	"github.com/young8i/nft-auction-market/service/cache/provider/primitive"
	redisCache "github.com/young8i/nft-auction-market/service/cache/provider/redis"
	"github.com/young8i/nft-auction-market/service/query"
	"github.com/young8i/nft-auction-market/service/redis"
)

type feedMongoRepo struct {
	q         query.Mongo
	feedCache cache.Service
}

// NewFeedRepo builds the mongo-backed feed repo. Reads go through a layered
// local+redis cache; pass a nil redis to run with the local layer only.
func NewFeedRepo(q query.Mongo, redis redis.Service) domain.FeedRepo {
	cacheProviders := []provider.Provider{
		primitive.NewPrimitive("feed", 128),
	}

	if redis != nil {
		cacheProviders = append(cacheProviders, redisCache.NewRedis(redis))
	}

	return &feedMongoRepo{
		q: q,
		feedCache: cache.New(cache.ServiceConfig{
			Ttl:   time.Hour,
			Pfx:   "feed",
			Cache: compound.NewCompound(cacheProviders),
		}),
	}
}

func (r *feedMongoRepo) FindOne(ctx bCtx.Ctx, asset domain.Address) (*domain.FeedEntry, error) {
	res := &domain.FeedEntry{}

	if err := r.feedCache.GetByFunc(ctx, asset.ToLowerStr(), res, func() (interface{}, error) {
		return r.findOne(ctx, asset)
	}); err != nil {
		return nil, err
	}

	return res, nil
}

func (r *feedMongoRepo) findOne(ctx bCtx.Ctx, asset domain.Address) (*domain.FeedEntry, error) {
	entry := &domain.FeedEntry{}
	qry, err := mongoclient.MakeBsonM(&domain.FeedEntry{Asset: asset.ToLower()})
	if err != nil {
		ctx.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return nil, err
	}
	if err := r.q.FindOne(ctx, domain.TableFeeds, qry, entry); err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		ctx.WithField("err", err).Error("q.FindOne failed")
		return nil, err
	}
	return entry, nil
}

func (r *feedMongoRepo) Upsert(ctx bCtx.Ctx, entry *domain.FeedEntry) error {
	entry.Asset = entry.Asset.ToLower()
	entry.FeedRef = entry.FeedRef.ToLower()
	selector, err := mongoclient.MakeBsonM(entry.ToSelector())
	if err != nil {
		ctx.WithField("err", err).Error("mongoclient.MakeBsonM failed")
		return err
	}
	if err := r.q.Upsert(ctx, domain.TableFeeds, selector, entry); err != nil {
		ctx.WithFields(log.Fields{
			"err":   err,
			"asset": entry.Asset,
		}).Error("q.Upsert failed")
		return err
	}
	if err := r.feedCache.Del(ctx, entry.Asset.ToLowerStr()); err != nil {
		ctx.WithFields(log.Fields{
			"err":   err,
			"asset": entry.Asset,
		}).Error("feedCache.Del failed")
	}
	return nil
}

// inmemFeedRepo backs the feed table with process memory. It serves the
// standalone storage mode and the flow tests.
type inmemFeedRepo struct {
	mu      sync.RWMutex
	entries map[domain.Address]*domain.FeedEntry
}

func NewInmemFeedRepo() domain.FeedRepo {
	return &inmemFeedRepo{entries: map[domain.Address]*domain.FeedEntry{}}
}

func (r *inmemFeedRepo) FindOne(ctx bCtx.Ctx, asset domain.Address) (*domain.FeedEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[asset.ToLower()]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *entry
	return &cp, nil
}

func (r *inmemFeedRepo) Upsert(ctx bCtx.Ctx, entry *domain.FeedEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	cp.Asset = cp.Asset.ToLower()
	cp.FeedRef = cp.FeedRef.ToLower()
	r.entries[cp.Asset] = &cp
	return nil
}
