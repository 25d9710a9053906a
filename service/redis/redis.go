package redis

import (
	"errors"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/base/metrics"
	"github.com/young8i/nft-auction-market/domain/keys"
)

var (
	// ErrNotFound is returned when the key does not exist
	ErrNotFound = errors.New("key not found")
)

const (
	// retTTLNoKey is the return value of TTL when the key does not exist
	retTTLNoKey = -2
)

// Service wraps the redis commands this module uses
type Service interface {
	Get(c ctx.Ctx, key string) ([]byte, error)
	Set(c ctx.Ctx, key string, val []byte, expire time.Duration) error
	Del(c ctx.Ctx, ks ...string) (int, error)
	TTL(c ctx.Ctx, key string) (int, error)
	Exists(c ctx.Ctx, key string) (bool, error)
	Incrby(c ctx.Ctx, key string, delta int) (int64, error)
}

type redImpl struct {
	name string
	met  metrics.Service
	pool *redis.Pool
}

// Pools represents different pool types
type Pools struct {
	Src *redis.Pool
}

// New redis service over a redigo pool
func New(name string, met metrics.Service, pools *Pools) Service {
	return &redImpl{
		name: name,
		met:  met,
		pool: pools.Src,
	}
}

func (r *redImpl) connDo(c ctx.Ctx, commandName string, args ...interface{}) (interface{}, error) {
	defer r.met.BumpTime("redis.time", "cluster", r.name, "command", commandName).End()

	conn := r.pool.Get()
	if err := conn.Err(); err != nil {
		r.met.BumpSum("redis.getConn.err", 1, "cluster", r.name)
		return nil, err
	}

	reply, err := conn.Do(commandName, args...)

	// closing the conn asap keeps the pool small under load
	if cerr := conn.Close(); cerr != nil {
		r.met.BumpSum("redis.conn.Close.err", 1, "cluster", r.name)
	}
	return reply, err
}

func (r *redImpl) Get(c ctx.Ctx, key string) ([]byte, error) {
	tags := []string{"func", "get", "cluster", r.name, "prefix", keys.GetPrefix(key)}
	val, err := redis.Bytes(r.connDo(c, "GET", key))
	if err == redis.ErrNil {
		r.met.BumpSum("redis.miss", 1, tags...)
		return nil, ErrNotFound
	}
	if err != nil {
		r.met.BumpSum("redis.err", 1, tags...)
		return nil, err
	}
	r.met.BumpSum("redis.hit", 1, tags...)
	return val, nil
}

func (r *redImpl) Set(c ctx.Ctx, key string, val []byte, expire time.Duration) error {
	tags := []string{"func", "set", "cluster", r.name, "prefix", keys.GetPrefix(key)}
	var err error
	if expire > 0 {
		_, err = r.connDo(c, "SET", key, val, "PX", int64(expire/time.Millisecond))
	} else {
		_, err = r.connDo(c, "SET", key, val)
	}
	if err != nil {
		r.met.BumpSum("redis.err", 1, tags...)
	}
	return err
}

func (r *redImpl) Del(c ctx.Ctx, ks ...string) (int, error) {
	if len(ks) == 0 {
		return 0, nil
	}
	args := make([]interface{}, 0, len(ks))
	for _, k := range ks {
		args = append(args, k)
	}
	n, err := redis.Int(r.connDo(c, "DEL", args...))
	if err != nil {
		r.met.BumpSum("redis.err", 1, "func", "del", "cluster", r.name)
		return 0, err
	}
	return n, nil
}

func (r *redImpl) TTL(c ctx.Ctx, key string) (int, error) {
	ttl, err := redis.Int(r.connDo(c, "TTL", key))
	if err != nil {
		return 0, err
	}
	if ttl == retTTLNoKey {
		return 0, ErrNotFound
	}
	return ttl, nil
}

func (r *redImpl) Exists(c ctx.Ctx, key string) (bool, error) {
	return redis.Bool(r.connDo(c, "EXISTS", key))
}

func (r *redImpl) Incrby(c ctx.Ctx, key string, delta int) (int64, error) {
	return redis.Int64(r.connDo(c, "INCRBY", key, delta))
}
