package pricefeed

import (
	"math/big"
	"time"

	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/domain"
)

// RoundData is the latest report of a price feed. Rate is denominated in USD
// with Decimals fractional digits.
type RoundData struct {
	Rate      *big.Int
	Decimals  int32
	UpdatedAt time.Time
}

type Service interface {
	LatestRoundData(c ctx.Ctx, feedRef domain.Address) (*RoundData, error)
}
