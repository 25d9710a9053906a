package pricefeed

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/young8i/nft-auction-market/base/abi"
	"github.com/young8i/nft-auction-market/base/backoff"
	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/base/log"
	"github.com/young8i/nft-auction-market/domain"
	"github.com/young8i/nft-auction-market/domain/keys"
	"github.com/young8i/nft-auction-market/service/cache"
	"github.com/young8i/nft-auction-market/service/cache/provider/primitive"
	"github.com/young8i/nft-auction-market/service/chain"
)

// cachedRound is the serializable form of a feed report.
type cachedRound struct {
	Rate      string `json:"rate"`
	Decimals  int32  `json:"decimals"`
	UpdatedAt int64  `json:"updatedAt"`
}

type aggregatorImpl struct {
	chainClient chain.Client
	roundCache  cache.Service
	decCache    cache.Service
}

// NewAggregator reads chainlink-style aggregator feeds over rpc. Rounds are
// cached briefly to bound rpc load; the cache ttl must stay well below any
// staleness window applied by the caller so a cached round can never mask a
// stale one. Feed decimals never change for a deployed aggregator so they
// cache for much longer.
func NewAggregator(chainClient chain.Client) Service {
	return &aggregatorImpl{
		chainClient: chainClient,
		roundCache: cache.New(cache.ServiceConfig{
			Ttl:   30 * time.Second,
			Pfx:   "pricefeed_round",
			Cache: primitive.NewPrimitive("pricefeed_round", 32),
		}),
		decCache: cache.New(cache.ServiceConfig{
			Ttl:   24 * time.Hour,
			Pfx:   "pricefeed_decimals",
			Cache: primitive.NewPrimitive("pricefeed_decimals", 8),
		}),
	}
}

func (im *aggregatorImpl) LatestRoundData(c ctx.Ctx, feedRef domain.Address) (*RoundData, error) {
	var round cachedRound

	key := keys.RedisKey(feedRef.ToLowerStr(), "latest")

	if err := im.roundCache.GetByFunc(c, key, &round, func() (interface{}, error) {
		res, err := im.latestRound(c, feedRef)
		if err != nil {
			c.WithFields(log.Fields{
				"err":     err,
				"feedRef": feedRef,
			}).Error("latestRound failed")
			return nil, err
		}
		return res, nil
	}); err != nil {
		c.WithFields(log.Fields{
			"err":     err,
			"feedRef": feedRef,
		}).Error("cache.GetByFunc failed")
		return nil, err
	}

	rate, ok := new(big.Int).SetString(round.Rate, 10)
	if !ok {
		return nil, domain.ErrStalePrice
	}
	return &RoundData{
		Rate:      rate,
		Decimals:  round.Decimals,
		UpdatedAt: time.Unix(round.UpdatedAt, 0),
	}, nil
}

func (im *aggregatorImpl) latestRound(c ctx.Ctx, feedRef domain.Address) (*cachedRound, error) {
	feedAddr := common.HexToAddress(string(feedRef))

	decimals, err := im.decimals(c, feedRef)
	if err != nil {
		return nil, err
	}

	res, err := im.callWithRetry(c, feedAddr, "latestRoundData")
	if err != nil {
		c.WithFields(log.Fields{
			"err":     err,
			"feedRef": feedRef,
		}).Error("chainClient.Call failed")
		return nil, err
	}

	answer := res[1].(*big.Int)
	updatedAt := res[3].(*big.Int)

	return &cachedRound{
		Rate:      answer.String(),
		Decimals:  decimals,
		UpdatedAt: updatedAt.Int64(),
	}, nil
}

// rpc nodes drop reads under load often enough that a couple of short
// retries beat surfacing the error.
func (im *aggregatorImpl) callWithRetry(c ctx.Ctx, addr common.Address, method string) ([]interface{}, error) {
	bo := backoff.NewExponential(200*time.Millisecond, 2*time.Second)

	var res []interface{}
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		res, err = im.chainClient.Call(c, addr, abi.AggregatorV3ABI, method)
		if err == nil {
			return res, nil
		}
		if berr := bo.Backoff(c); berr != nil {
			return nil, err
		}
	}
	return nil, err
}

func (im *aggregatorImpl) decimals(c ctx.Ctx, feedRef domain.Address) (int32, error) {
	var decimals int32

	key := keys.RedisKey(feedRef.ToLowerStr(), "decimals")

	if err := im.decCache.GetByFunc(c, key, &decimals, func() (interface{}, error) {
		feedAddr := common.HexToAddress(string(feedRef))
		res, err := im.callWithRetry(c, feedAddr, "decimals")
		if err != nil {
			c.WithFields(log.Fields{
				"err":     err,
				"feedRef": feedRef,
			}).Error("chainClient.Call failed")
			return nil, err
		}
		d := int32(res[0].(uint8))
		return &d, nil
	}); err != nil {
		c.WithFields(log.Fields{
			"err":     err,
			"feedRef": feedRef,
		}).Error("cache.GetByFunc failed")
		return 0, err
	}

	return decimals, nil
}
