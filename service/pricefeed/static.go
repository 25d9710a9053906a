package pricefeed

import (
	"math/big"
	"sync"
	"time"

	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/domain"
	"golang.org/x/xerrors"
)

// Static serves rates set by an operator instead of reading a chain. Used for
// local simulation and tests.
type Static struct {
	mu     sync.RWMutex
	rounds map[domain.Address]RoundData
}

func NewStatic() *Static {
	return &Static{rounds: map[domain.Address]RoundData{}}
}

func (s *Static) SetRate(feedRef domain.Address, rate *big.Int, decimals int32, updatedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rounds[feedRef.ToLower()] = RoundData{
		Rate:      new(big.Int).Set(rate),
		Decimals:  decimals,
		UpdatedAt: updatedAt,
	}
}

func (s *Static) LatestRoundData(c ctx.Ctx, feedRef domain.Address) (*RoundData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	round, ok := s.rounds[feedRef.ToLower()]
	if !ok {
		return nil, xerrors.Errorf("feed %s: %w", feedRef, domain.ErrNotFound)
	}
	return &RoundData{
		Rate:      new(big.Int).Set(round.Rate),
		Decimals:  round.Decimals,
		UpdatedAt: round.UpdatedAt,
	}, nil
}
