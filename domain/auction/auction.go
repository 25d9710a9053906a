package auction

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/domain"
)

type State int32

const (
	StateActive State = 1
	StateEnded  State = 2
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Bid is the currently leading bid. RawAmount and UsdValue are stored as
// base-10 strings so the persisted layout stays exact and stable across
// logic upgrades.
type Bid struct {
	Bidder    domain.Address `bson:"bidder"`
	PayToken  domain.Address `bson:"payToken"`
	RawAmount string         `bson:"rawAmount"`
	UsdValue  string         `bson:"usdValue"`
}

func (b *Bid) RawAmountInt() *big.Int {
	n, _ := new(big.Int).SetString(b.RawAmount, 10)
	return n
}

func (b *Bid) UsdValueDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(b.UsdValue)
	return d
}

// Auction is the persistent record of one auction instance. New fields must
// only ever be appended so every logic version reads the same layout.
type Auction struct {
	Id               string         `bson:"id"`
	Seller           domain.Address `bson:"seller"`
	AssetContract    domain.Address `bson:"assetContract"`
	AssetId          domain.TokenId `bson:"assetId"`
	ReservePriceUsd  string         `bson:"reservePriceUsd"`
	EndTime          time.Time      `bson:"endTime"`
	State            State          `bson:"state"`
	HighestBid       *Bid           `bson:"highestBid,omitempty"`
	LogicId          string         `bson:"logicId"`
	SchemaVersion    int32          `bson:"schemaVersion"`
	UpgradeAuthority domain.Address `bson:"upgradeAuthority"`
	CreatedAt        time.Time      `bson:"createdAt"`
}

func (a *Auction) ToId() *Auction {
	return &Auction{Id: a.Id}
}

func (a *Auction) ReservePriceUsdDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(a.ReservePriceUsd)
	return d
}

// EscrowAddress is the custody account holding the escrowed asset and all
// locked bid funds for this auction.
func (a *Auction) EscrowAddress() domain.Address {
	return domain.Address("escrow:" + a.Id)
}

// PendingReturn is a claimable balance recorded when refunding a displaced
// bidder failed. Funds stay in escrow until the bidder pulls them via Claim.
type PendingReturn struct {
	AuctionId string         `bson:"auctionId"`
	Bidder    domain.Address `bson:"bidder"`
	PayToken  domain.Address `bson:"payToken"`
	RawAmount string         `bson:"rawAmount"`
	CreatedAt time.Time      `bson:"createdAt"`
}

func (p *PendingReturn) RawAmountInt() *big.Int {
	n, _ := new(big.Int).SetString(p.RawAmount, 10)
	return n
}

// Settlement reports the outcome of EndAuction.
type Settlement struct {
	AuctionId        string         `json:"auctionId"`
	Winner           domain.Address `json:"winner,omitempty"`
	PayToken         domain.Address `json:"payToken,omitempty"`
	SettledAmount    string         `json:"settledAmount"`
	FeeAmount        string         `json:"feeAmount"`
	ReturnedToSeller bool           `json:"returnedToSeller"`
}

type Repo interface {
	// Create fails with domain.ErrConflict when the item already has a live
	// auction.
	Create(ctx.Ctx, *Auction) error
	FindOne(c ctx.Ctx, id string) (*Auction, error)
	FindActiveByItem(c ctx.Ctx, assetContract domain.Address, assetId domain.TokenId) (*Auction, error)
	Update(ctx.Ctx, *Auction) error
	// FindAll returns auctions in creation order.
	FindAll(c ctx.Ctx) ([]*Auction, error)
}

type PendingReturnRepo interface {
	// Add merges into any existing entry for the same auction, bidder and
	// pay token.
	Add(ctx.Ctx, *PendingReturn) error
	FindByBidder(c ctx.Ctx, auctionId string, bidder domain.Address) ([]*PendingReturn, error)
	Remove(c ctx.Ctx, auctionId string, bidder domain.Address, payToken domain.Address) error
}

type BidParams struct {
	AuctionId string
	Bidder    domain.Address
	PayToken  domain.Address
	RawAmount *big.Int
}

type Usecase interface {
	Bid(c ctx.Ctx, p *BidParams) (*Auction, error)
	EndAuction(c ctx.Ctx, auctionId string) (*Settlement, error)
	Claim(c ctx.Ctx, auctionId string, bidder domain.Address) ([]*PendingReturn, error)

	// side-effect-free reads
	GetAuction(c ctx.Ctx, auctionId string) (*Auction, error)
	HighestBid(c ctx.Ctx, auctionId string) (*Bid, error)
	Version(c ctx.Ctx, auctionId string) (string, error)
}
