package usecase

import (
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/domain"
	"github.com/young8i/nft-auction-market/domain/auction"
	"github.com/young8i/nft-auction-market/service/custody"
	"github.com/young8i/nft-auction-market/service/pricefeed"
	auctionRepository "github.com/young8i/nft-auction-market/stores/auction/repository"
	auctionUsecase "github.com/young8i/nft-auction-market/stores/auction/usecase"
	eventRepository "github.com/young8i/nft-auction-market/stores/event/repository"
	"github.com/young8i/nft-auction-market/stores/event/recorder"
	factoryRepository "github.com/young8i/nft-auction-market/stores/factory/repository"
	oracleRepository "github.com/young8i/nft-auction-market/stores/oracle/repository"
	oracleUsecase "github.com/young8i/nft-auction-market/stores/oracle/usecase"
)

var (
	mockCtx = ctx.Background()

	owner       = domain.Address("0xowner")
	factoryAddr = domain.Address("0xfactory")
	feeTo       = domain.Address("0xfeeto")
	seller      = domain.Address("0xseller")
	bidder      = domain.Address("0xbidder")

	nftContract = domain.Address("0xnft")
	nftId       = domain.TokenId("1")
	ethFeed     = domain.Address("0xethfeed")
)

type factorySuite struct {
	suite.Suite
	ledger   *custody.Ledger
	static   *pricefeed.Static
	holder   *auction.OracleHolder
	feeds    domain.FeedRepo
	auctions auction.Repo
	config   auction.ConfigRepo
	events   domain.EventRepo
	registry *auction.LogicRegistry
	auction  auction.Usecase
	subject  auction.FactoryUsecase
}

func TestFactorySuite(t *testing.T) {
	suite.Run(t, new(factorySuite))
}

func (s *factorySuite) SetupTest() {
	s.ledger = custody.NewLedger()
	s.static = pricefeed.NewStatic()
	s.auctions = auctionRepository.NewInmemAuctionRepo()
	pending := auctionRepository.NewInmemPendingReturnRepo()
	s.config = factoryRepository.NewInmemConfigRepo()
	s.events = eventRepository.NewInmemEventRepo()
	rec := recorder.NewSync(s.events)

	s.feeds = oracleRepository.NewInmemFeedRepo()
	oracle := oracleUsecase.New(s.feeds, s.static, owner, time.Hour, rec)
	s.holder = auction.NewOracleHolder(oracle, domain.Address("0xoracle"))

	s.static.SetRate(ethFeed, big.NewInt(3000_00000000), 8, time.Now())
	s.Require().NoError(oracle.SetFeed(mockCtx, owner, &domain.FeedEntry{
		Asset: domain.NativeAsset, FeedRef: ethFeed, AssetDecimals: 18,
	}))

	s.Require().NoError(s.config.Set(mockCtx, &auction.FactoryConfig{
		Owner:            owner,
		FactoryAddress:   factoryAddr,
		ImplementationId: "v1",
		OracleRef:        domain.Address("0xoracle"),
		FeeRecipient:     feeTo,
		FeeBps:           250,
	}))

	v1 := auctionUsecase.NewLogicV1(s.auctions, pending, s.ledger, s.holder, s.config, rec)
	s.registry = auction.NewLogicRegistry(v1, auctionUsecase.NewLogicV2(v1))
	s.auction = auctionUsecase.New(s.auctions, s.registry)
	s.subject = New(s.config, s.auctions, s.ledger, s.holder, s.registry, v1, rec)

	s.ledger.MintNft(nftContract, nftId, seller)
	s.ledger.Mint(domain.NativeAsset, bidder, new(big.Int).Mul(big.NewInt(10), big.NewInt(1e18)))
}

func (s *factorySuite) createAuction() *auction.Auction {
	s.Require().NoError(s.ledger.ApproveNft(mockCtx, seller, factoryAddr, nftContract, nftId))
	a, err := s.subject.CreateAuction(mockCtx, &auction.CreateAuctionParams{
		Seller:          seller,
		AssetContract:   nftContract,
		AssetId:         nftId,
		Duration:        time.Hour,
		ReservePriceUsd: decimal.NewFromInt(100),
	})
	s.Require().NoError(err)
	return a
}

func (s *factorySuite) TestCreateAuction() {
	a := s.createAuction()

	s.Equal(auction.StateActive, a.State)
	s.Equal("v1", a.LogicId)
	s.True(a.UpgradeAuthority.Equals(owner))
	s.Equal("100", a.ReservePriceUsd)

	nftOwner, err := s.ledger.OwnerOf(mockCtx, nftContract, nftId)
	s.Require().NoError(err)
	s.True(nftOwner.Equals(a.EscrowAddress()))

	listed, err := s.subject.ListAuctions(mockCtx)
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(a.Id, listed[0].Id)

	events, err := s.events.FindByAuction(mockCtx, a.Id)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(domain.EventAuctionCreated, events[0].Type)
}

func (s *factorySuite) TestCreateAuctionInvalidParams() {
	_, err := s.subject.CreateAuction(mockCtx, &auction.CreateAuctionParams{
		Seller:          seller,
		AssetContract:   nftContract,
		AssetId:         nftId,
		Duration:        0,
		ReservePriceUsd: decimal.NewFromInt(100),
	})
	s.ErrorIs(err, domain.ErrInvalidParams)

	_, err = s.subject.CreateAuction(mockCtx, &auction.CreateAuctionParams{
		Seller:          seller,
		AssetContract:   nftContract,
		AssetId:         nftId,
		Duration:        time.Hour,
		ReservePriceUsd: decimal.Zero,
	})
	s.ErrorIs(err, domain.ErrInvalidParams)
}

func (s *factorySuite) TestCreateAuctionNotOwner() {
	_, err := s.subject.CreateAuction(mockCtx, &auction.CreateAuctionParams{
		Seller:          bidder,
		AssetContract:   nftContract,
		AssetId:         nftId,
		Duration:        time.Hour,
		ReservePriceUsd: decimal.NewFromInt(100),
	})
	s.ErrorIs(err, domain.ErrUnauthorized)
}

func (s *factorySuite) TestCreateAuctionWithoutApproval() {
	_, err := s.subject.CreateAuction(mockCtx, &auction.CreateAuctionParams{
		Seller:          seller,
		AssetContract:   nftContract,
		AssetId:         nftId,
		Duration:        time.Hour,
		ReservePriceUsd: decimal.NewFromInt(100),
	})
	s.ErrorIs(err, domain.ErrTransferNotApproved)

	nftOwner, err := s.ledger.OwnerOf(mockCtx, nftContract, nftId)
	s.Require().NoError(err)
	s.True(nftOwner.Equals(seller))
}

func (s *factorySuite) TestCreateAuctionDuplicateItem() {
	s.createAuction()

	// escrow holds the asset now, so the second create already fails the
	// ownership check
	_, err := s.subject.CreateAuction(mockCtx, &auction.CreateAuctionParams{
		Seller:          seller,
		AssetContract:   nftContract,
		AssetId:         nftId,
		Duration:        time.Hour,
		ReservePriceUsd: decimal.NewFromInt(100),
	})
	s.Error(err)
}

func (s *factorySuite) TestSettersOwnerOnly() {
	intruder := domain.Address("0xintruder")

	s.ErrorIs(s.subject.SetFeeBps(mockCtx, intruder, 100), domain.ErrUnauthorized)
	s.ErrorIs(s.subject.SetFeeRecipient(mockCtx, intruder, feeTo), domain.ErrUnauthorized)
	s.ErrorIs(s.subject.SetImplementation(mockCtx, intruder, "v2"), domain.ErrUnauthorized)
	s.ErrorIs(s.subject.SetOracle(mockCtx, intruder, s.holder.Get(), domain.Address("0xother")), domain.ErrUnauthorized)
}

func (s *factorySuite) TestSetFeeBpsBounds() {
	s.ErrorIs(s.subject.SetFeeBps(mockCtx, owner, -1), domain.ErrInvalidParams)
	s.ErrorIs(s.subject.SetFeeBps(mockCtx, owner, domain.MaxFeeBps+1), domain.ErrInvalidParams)

	s.NoError(s.subject.SetFeeBps(mockCtx, owner, 500))
	cfg, err := s.subject.GetConfig(mockCtx)
	s.Require().NoError(err)
	s.Equal(int64(500), cfg.FeeBps)
}

func (s *factorySuite) TestSetImplementationUnknown() {
	s.ErrorIs(s.subject.SetImplementation(mockCtx, owner, "v9"), domain.ErrUnknownImplementation)
}

func (s *factorySuite) TestSetImplementationAppliesToNewAuctions() {
	s.Require().NoError(s.subject.SetImplementation(mockCtx, owner, "v2"))

	a := s.createAuction()
	s.Equal("v2", a.LogicId)

	version, err := s.auction.Version(mockCtx, a.Id)
	s.Require().NoError(err)
	s.Equal("NftAuctionV2", version)
}

func (s *factorySuite) TestSetOracleSwapsForLiveAuctions() {
	a := s.createAuction()

	// a replacement oracle with a doubled rate
	rec := recorder.NewSync(s.events)
	newStatic := pricefeed.NewStatic()
	newStatic.SetRate(ethFeed, big.NewInt(6000_00000000), 8, time.Now())
	newFeeds := oracleRepository.NewInmemFeedRepo()
	newOracle := oracleUsecase.New(newFeeds, newStatic, owner, time.Hour, rec)
	s.Require().NoError(newOracle.SetFeed(mockCtx, owner, &domain.FeedEntry{
		Asset: domain.NativeAsset, FeedRef: ethFeed, AssetDecimals: 18,
	}))

	s.Require().NoError(s.subject.SetOracle(mockCtx, owner, newOracle, domain.Address("0xoracle2")))

	// 0.05 ETH now values at $300
	raw := new(big.Int).Mul(big.NewInt(50), big.NewInt(1e15))
	_, err := s.auction.Bid(mockCtx, &auction.BidParams{
		AuctionId: a.Id, Bidder: bidder, PayToken: domain.NativeAsset, RawAmount: raw,
	})
	s.Require().NoError(err)

	highest, err := s.auction.HighestBid(mockCtx, a.Id)
	s.Require().NoError(err)
	s.Equal("300", highest.UsdValue)

	cfg, err := s.subject.GetConfig(mockCtx)
	s.Require().NoError(err)
	s.True(cfg.OracleRef.Equals(domain.Address("0xoracle2")))
}

func (s *factorySuite) TestUpgradeTo() {
	a := s.createAuction()

	raw := new(big.Int).Mul(big.NewInt(50), big.NewInt(1e15))
	_, err := s.auction.Bid(mockCtx, &auction.BidParams{
		AuctionId: a.Id, Bidder: bidder, PayToken: domain.NativeAsset, RawAmount: raw,
	})
	s.Require().NoError(err)

	before, err := s.auction.GetAuction(mockCtx, a.Id)
	s.Require().NoError(err)

	s.Require().NoError(s.subject.UpgradeTo(mockCtx, owner, a.Id, "v2"))

	version, err := s.auction.Version(mockCtx, a.Id)
	s.Require().NoError(err)
	s.Equal("NftAuctionV2", version)

	// every persisted field except the logic id reads identically
	after, err := s.auction.GetAuction(mockCtx, a.Id)
	s.Require().NoError(err)
	s.Equal("v2", after.LogicId)
	after.LogicId = before.LogicId
	s.Equal(before, after)

	// the upgraded instance still takes bids
	raw2 := new(big.Int).Mul(big.NewInt(60), big.NewInt(1e15))
	_, err = s.auction.Bid(mockCtx, &auction.BidParams{
		AuctionId: a.Id, Bidder: bidder, PayToken: domain.NativeAsset, RawAmount: raw2,
	})
	s.Require().NoError(err)
}

func (s *factorySuite) TestUpgradeToUnknownImplementation() {
	a := s.createAuction()
	s.ErrorIs(s.subject.UpgradeTo(mockCtx, owner, a.Id, "v9"), domain.ErrUnknownImplementation)
}

func (s *factorySuite) TestUpgradeToWrongAuthority() {
	a := s.createAuction()
	s.ErrorIs(s.subject.UpgradeTo(mockCtx, seller, a.Id, "v2"), domain.ErrUnauthorized)
}

type schemaV2Logic struct {
	auction.Logic
}

func (l *schemaV2Logic) Id() string           { return "v3" }
func (l *schemaV2Logic) SchemaVersion() int32 { return 2 }

func (s *factorySuite) TestUpgradeToIncompatibleLayout() {
	a := s.createAuction()

	v1, err := s.registry.Get("v1")
	s.Require().NoError(err)
	s.registry.Register(&schemaV2Logic{Logic: v1})

	s.ErrorIs(s.subject.UpgradeTo(mockCtx, owner, a.Id, "v3"), domain.ErrIncompatibleLayout)

	got, err := s.auction.GetAuction(mockCtx, a.Id)
	s.Require().NoError(err)
	s.Equal("v1", got.LogicId)
}
