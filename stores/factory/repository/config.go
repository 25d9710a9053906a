package repository

import (
	"sync"

	"go.mongodb.org/mongo-driver/bson"

	bCtx "github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/domain"
	"github.com/young8i/nft-auction-market/domain/auction"
	"github.com/young8i/nft-auction-market/service/query"
)

// the factory holds exactly one config document
const configDocId = "factory"

type configDoc struct {
	DocId string `bson:"docId"`
	auction.FactoryConfig `bson:",inline"`
}

type configMongoRepo struct {
	q query.Mongo
}

func NewConfigRepo(q query.Mongo) auction.ConfigRepo {
	return &configMongoRepo{
		q: q,
	}
}

func (r *configMongoRepo) Get(ctx bCtx.Ctx) (*auction.FactoryConfig, error) {
	doc := &configDoc{}
	if err := r.q.FindOne(ctx, domain.TableFactoryConfig, bson.M{"docId": configDocId}, doc); err == query.ErrNotFound {
		return nil, domain.ErrNotFound
	} else if err != nil {
		ctx.WithField("err", err).Error("q.FindOne failed")
		return nil, err
	}
	cfg := doc.FactoryConfig
	return &cfg, nil
}

func (r *configMongoRepo) Set(ctx bCtx.Ctx, cfg *auction.FactoryConfig) error {
	doc := &configDoc{DocId: configDocId, FactoryConfig: *cfg}
	if err := r.q.Upsert(ctx, domain.TableFactoryConfig, bson.M{"docId": configDocId}, doc); err != nil {
		ctx.WithField("err", err).Error("q.Upsert failed")
		return err
	}
	return nil
}

// inmemConfigRepo backs the factory config with process memory.
type inmemConfigRepo struct {
	mu  sync.RWMutex
	cfg *auction.FactoryConfig
}

func NewInmemConfigRepo() auction.ConfigRepo {
	return &inmemConfigRepo{}
}

func (r *inmemConfigRepo) Get(ctx bCtx.Ctx) (*auction.FactoryConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.cfg == nil {
		return nil, domain.ErrNotFound
	}
	cp := *r.cfg
	return &cp, nil
}

func (r *inmemConfigRepo) Set(ctx bCtx.Ctx, cfg *auction.FactoryConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *cfg
	r.cfg = &cp
	return nil
}
