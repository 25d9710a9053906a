package auction

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/domain"
)

// FactoryConfig is the shared configuration every auction instance reads via
// a back-reference. FeeBps is the explicit, auditable protocol fee rate in
// basis points, taken from the settled raw amount.
type FactoryConfig struct {
	Owner            domain.Address `bson:"owner"`
	FactoryAddress   domain.Address `bson:"factoryAddress"`
	ImplementationId string         `bson:"implementationId"`
	OracleRef        domain.Address `bson:"oracleRef"`
	FeeRecipient     domain.Address `bson:"feeRecipient"`
	FeeBps           int64          `bson:"feeBps"`
}

type ConfigRepo interface {
	Get(ctx.Ctx) (*FactoryConfig, error)
	Set(ctx.Ctx, *FactoryConfig) error
}

// OracleHolder is the mutable back-reference through which instances reach
// the shared price oracle. Swapping the oracle takes effect for every
// instance immediately.
type OracleHolder struct {
	mu     sync.RWMutex
	oracle domain.OracleUsecase
	ref    domain.Address
}

func NewOracleHolder(oracle domain.OracleUsecase, ref domain.Address) *OracleHolder {
	return &OracleHolder{oracle: oracle, ref: ref}
}

func (h *OracleHolder) Get() domain.OracleUsecase {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.oracle
}

func (h *OracleHolder) Ref() domain.Address {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.ref
}

func (h *OracleHolder) Set(oracle domain.OracleUsecase, ref domain.Address) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.oracle = oracle
	h.ref = ref
}

type CreateAuctionParams struct {
	Seller          domain.Address
	AssetContract   domain.Address
	AssetId         domain.TokenId
	Duration        time.Duration
	ReservePriceUsd decimal.Decimal
}

type FactoryUsecase interface {
	// CreateAuction escrows the asset from the seller and registers a new
	// active instance wired to the shared oracle and fee configuration.
	CreateAuction(c ctx.Ctx, p *CreateAuctionParams) (*Auction, error)
	ListAuctions(c ctx.Ctx) ([]*Auction, error)
	GetConfig(c ctx.Ctx) (*FactoryConfig, error)

	SetOracle(c ctx.Ctx, caller domain.Address, oracle domain.OracleUsecase, ref domain.Address) error
	SetFeeRecipient(c ctx.Ctx, caller domain.Address, recipient domain.Address) error
	SetFeeBps(c ctx.Ctx, caller domain.Address, feeBps int64) error
	SetImplementation(c ctx.Ctx, caller domain.Address, implementationId string) error

	// UpgradeTo swaps the logic behind an existing instance, leaving its
	// persistent state untouched.
	UpgradeTo(c ctx.Ctx, caller domain.Address, auctionId string, implementationId string) error
}
