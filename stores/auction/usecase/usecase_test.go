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
	eventRepository "github.com/young8i/nft-auction-market/stores/event/repository"
	"github.com/young8i/nft-auction-market/stores/event/recorder"
	factoryRepository "github.com/young8i/nft-auction-market/stores/factory/repository"
	factoryUsecase "github.com/young8i/nft-auction-market/stores/factory/usecase"
	oracleRepository "github.com/young8i/nft-auction-market/stores/oracle/repository"
	oracleUsecase "github.com/young8i/nft-auction-market/stores/oracle/usecase"
)

var (
	mockCtx = ctx.Background()

	owner   = domain.Address("0xowner")
	factory = domain.Address("0xfactory")
	feeTo   = domain.Address("0xfeeto")
	seller  = domain.Address("0xseller")
	bidder1 = domain.Address("0xbidder1")
	bidder2 = domain.Address("0xbidder2")

	nftContract = domain.Address("0xnft")
	nftId       = domain.TokenId("1")

	usdc     = domain.Address("0xusdc")
	ethFeed  = domain.Address("0xethfeed")
	usdcFeed = domain.Address("0xusdcfeed")
)

func eth(n int64, milli int64) *big.Int {
	wei := new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
	return wei.Add(wei, new(big.Int).Mul(big.NewInt(milli), big.NewInt(1e15)))
}

func usdcAmount(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e6))
}

// flakyCustody injects transfer failures around the real ledger.
type flakyCustody struct {
	custody.Service
	failTransferTo domain.Address
	failNft        bool
}

func (f *flakyCustody) Transfer(c ctx.Ctx, token, from, to domain.Address, amount *big.Int) error {
	if !f.failTransferTo.IsEmpty() && to.Equals(f.failTransferTo) {
		return domain.ErrTransferFailed
	}
	return f.Service.Transfer(c, token, from, to, amount)
}

func (f *flakyCustody) TransferNft(c ctx.Ctx, contract, from, to domain.Address, tokenId domain.TokenId) error {
	if f.failNft {
		return domain.ErrTransferFailed
	}
	return f.Service.TransferNft(c, contract, from, to, tokenId)
}

type auctionSuite struct {
	suite.Suite
	ledger   *custody.Ledger
	flaky    *flakyCustody
	static   *pricefeed.Static
	holder   *auction.OracleHolder
	auctions auction.Repo
	pending  auction.PendingReturnRepo
	config   auction.ConfigRepo
	events   domain.EventRepo
	v1       *LogicV1
	subject  auction.Usecase
	factory  auction.FactoryUsecase
}

func TestAuctionSuite(t *testing.T) {
	suite.Run(t, new(auctionSuite))
}

func (s *auctionSuite) SetupTest() {
	s.ledger = custody.NewLedger()
	s.flaky = &flakyCustody{Service: s.ledger}
	s.static = pricefeed.NewStatic()
	s.auctions = auctionRepository.NewInmemAuctionRepo()
	s.pending = auctionRepository.NewInmemPendingReturnRepo()
	s.config = factoryRepository.NewInmemConfigRepo()
	s.events = eventRepository.NewInmemEventRepo()
	rec := recorder.NewSync(s.events)

	feeds := oracleRepository.NewInmemFeedRepo()
	oracle := oracleUsecase.New(feeds, s.static, owner, time.Hour, rec)
	s.holder = auction.NewOracleHolder(oracle, domain.Address("0xoracle"))

	// ETH/USD $3000, USDC/USD $1, both 8 feed decimals
	s.static.SetRate(ethFeed, big.NewInt(3000_00000000), 8, time.Now())
	s.static.SetRate(usdcFeed, big.NewInt(1_00000000), 8, time.Now())
	s.Require().NoError(oracle.SetFeed(mockCtx, owner, &domain.FeedEntry{
		Asset: domain.NativeAsset, FeedRef: ethFeed, AssetDecimals: 18,
	}))
	s.Require().NoError(oracle.SetFeed(mockCtx, owner, &domain.FeedEntry{
		Asset: usdc, FeedRef: usdcFeed, AssetDecimals: 6,
	}))

	s.Require().NoError(s.config.Set(mockCtx, &auction.FactoryConfig{
		Owner:            owner,
		FactoryAddress:   factory,
		ImplementationId: "v1",
		OracleRef:        domain.Address("0xoracle"),
		FeeRecipient:     feeTo,
		FeeBps:           250,
	}))

	s.v1 = NewLogicV1(s.auctions, s.pending, s.flaky, s.holder, s.config, rec)
	registry := auction.NewLogicRegistry(s.v1, NewLogicV2(s.v1))
	s.subject = New(s.auctions, registry)
	s.factory = factoryUsecase.New(s.config, s.auctions, s.flaky, s.holder, registry, s.v1, rec)

	s.ledger.MintNft(nftContract, nftId, seller)
	s.ledger.Mint(domain.NativeAsset, bidder1, eth(10, 0))
	s.ledger.Mint(domain.NativeAsset, bidder2, eth(10, 0))
	s.ledger.Mint(usdc, bidder2, usdcAmount(1_000_000))
}

func (s *auctionSuite) createAuction() *auction.Auction {
	s.Require().NoError(s.ledger.ApproveNft(mockCtx, seller, factory, nftContract, nftId))
	a, err := s.factory.CreateAuction(mockCtx, &auction.CreateAuctionParams{
		Seller:          seller,
		AssetContract:   nftContract,
		AssetId:         nftId,
		Duration:        time.Hour,
		ReservePriceUsd: decimal.NewFromInt(100),
	})
	s.Require().NoError(err)
	return a
}

func (s *auctionSuite) balance(token, account domain.Address) *big.Int {
	b, err := s.ledger.BalanceOf(mockCtx, token, account)
	s.Require().NoError(err)
	return b
}

func (s *auctionSuite) fastForward(d time.Duration) {
	s.v1.now = func() time.Time { return time.Now().Add(d) }
}

func (s *auctionSuite) TestBidEndAndPayout() {
	a := s.createAuction()
	escrow := a.EscrowAddress()

	// the asset sits in escrow
	nftOwner, err := s.ledger.OwnerOf(mockCtx, nftContract, nftId)
	s.Require().NoError(err)
	s.True(nftOwner.Equals(escrow))

	// bidder1: 0.05 ETH = $150, above the $100 reserve
	_, err = s.subject.Bid(mockCtx, &auction.BidParams{
		AuctionId: a.Id, Bidder: bidder1, PayToken: domain.NativeAsset, RawAmount: eth(0, 50),
	})
	s.Require().NoError(err)

	highest, err := s.subject.HighestBid(mockCtx, a.Id)
	s.Require().NoError(err)
	s.True(highest.Bidder.Equals(bidder1))
	s.Equal("150", highest.UsdValue)

	// bidder2: 120 USDC = $120 < $150, rejected with funds untouched
	s.Require().NoError(s.ledger.Approve(mockCtx, bidder2, escrow, usdc, usdcAmount(1_000_000)))
	usdcBefore := s.balance(usdc, bidder2)
	_, err = s.subject.Bid(mockCtx, &auction.BidParams{
		AuctionId: a.Id, Bidder: bidder2, PayToken: usdc, RawAmount: usdcAmount(120),
	})
	s.ErrorIs(err, domain.ErrBidTooLow)
	s.Equal(usdcBefore, s.balance(usdc, bidder2))

	highest, err = s.subject.HighestBid(mockCtx, a.Id)
	s.Require().NoError(err)
	s.True(highest.Bidder.Equals(bidder1))

	// bidder2: 0.06 ETH = $180, becomes highest and bidder1 is refunded
	bidder1Before := s.balance(domain.NativeAsset, bidder1)
	_, err = s.subject.Bid(mockCtx, &auction.BidParams{
		AuctionId: a.Id, Bidder: bidder2, PayToken: domain.NativeAsset, RawAmount: eth(0, 60),
	})
	s.Require().NoError(err)
	s.Equal(new(big.Int).Add(bidder1Before, eth(0, 50)), s.balance(domain.NativeAsset, bidder1))

	// settle
	s.fastForward(2 * time.Hour)
	sellerBefore := s.balance(domain.NativeAsset, seller)
	feeToBefore := s.balance(domain.NativeAsset, feeTo)

	settlement, err := s.subject.EndAuction(mockCtx, a.Id)
	s.Require().NoError(err)
	s.True(settlement.Winner.Equals(bidder2))
	s.Equal(eth(0, 60).String(), settlement.SettledAmount)

	// fee = 0.06 ETH * 250bps, conservation seller + fee == settled
	fee := new(big.Int).Div(new(big.Int).Mul(eth(0, 60), big.NewInt(250)), big.NewInt(10000))
	s.Equal(fee.String(), settlement.FeeAmount)
	sellerGain := new(big.Int).Sub(s.balance(domain.NativeAsset, seller), sellerBefore)
	feeGain := new(big.Int).Sub(s.balance(domain.NativeAsset, feeTo), feeToBefore)
	s.Equal(eth(0, 60), new(big.Int).Add(sellerGain, feeGain))

	nftOwner, err = s.ledger.OwnerOf(mockCtx, nftContract, nftId)
	s.Require().NoError(err)
	s.True(nftOwner.Equals(bidder2))

	// escrow fully drained
	s.Equal(0, s.balance(domain.NativeAsset, escrow).Sign())
}

func (s *auctionSuite) TestBidBelowReserve() {
	a := s.createAuction()

	// 0.02 ETH = $60 < $100 reserve
	_, err := s.subject.Bid(mockCtx, &auction.BidParams{
		AuctionId: a.Id, Bidder: bidder1, PayToken: domain.NativeAsset, RawAmount: eth(0, 20),
	})
	s.ErrorIs(err, domain.ErrBidTooLow)

	highest, err := s.subject.HighestBid(mockCtx, a.Id)
	s.Require().NoError(err)
	s.Nil(highest)
}

func (s *auctionSuite) TestBidAtReserveRejected() {
	a := s.createAuction()
	escrow := a.EscrowAddress()

	// 100 USDC = exactly the $100 reserve; an accepted bid must strictly
	// exceed it
	s.Require().NoError(s.ledger.Approve(mockCtx, bidder2, escrow, usdc, usdcAmount(1_000_000)))
	before := s.balance(usdc, bidder2)
	_, err := s.subject.Bid(mockCtx, &auction.BidParams{
		AuctionId: a.Id, Bidder: bidder2, PayToken: usdc, RawAmount: usdcAmount(100),
	})
	s.ErrorIs(err, domain.ErrBidTooLow)
	s.Equal(before, s.balance(usdc, bidder2))

	highest, err := s.subject.HighestBid(mockCtx, a.Id)
	s.Require().NoError(err)
	s.Nil(highest)

	// a dollar over the reserve clears it
	_, err = s.subject.Bid(mockCtx, &auction.BidParams{
		AuctionId: a.Id, Bidder: bidder2, PayToken: usdc, RawAmount: usdcAmount(101),
	})
	s.Require().NoError(err)

	highest, err = s.subject.HighestBid(mockCtx, a.Id)
	s.Require().NoError(err)
	s.Equal("101", highest.UsdValue)
}

func (s *auctionSuite) TestBidWithoutFeed() {
	a := s.createAuction()

	unknown := domain.Address("0xunknown")
	s.ledger.Mint(unknown, bidder1, big.NewInt(1000))
	_, err := s.subject.Bid(mockCtx, &auction.BidParams{
		AuctionId: a.Id, Bidder: bidder1, PayToken: unknown, RawAmount: big.NewInt(1000),
	})
	s.ErrorIs(err, domain.ErrNoPriceFeed)
}

func (s *auctionSuite) TestBidStalePrice() {
	a := s.createAuction()

	s.static.SetRate(ethFeed, big.NewInt(3000_00000000), 8, time.Now().Add(-2*time.Hour))
	_, err := s.subject.Bid(mockCtx, &auction.BidParams{
		AuctionId: a.Id, Bidder: bidder1, PayToken: domain.NativeAsset, RawAmount: eth(0, 50),
	})
	s.ErrorIs(err, domain.ErrStalePrice)
}

func (s *auctionSuite) TestBidWithoutApproval() {
	a := s.createAuction()

	// erc20 bid without approving the escrow account
	before := s.balance(usdc, bidder2)
	_, err := s.subject.Bid(mockCtx, &auction.BidParams{
		AuctionId: a.Id, Bidder: bidder2, PayToken: usdc, RawAmount: usdcAmount(200),
	})
	s.ErrorIs(err, domain.ErrTransferNotApproved)
	s.Equal(before, s.balance(usdc, bidder2))

	highest, err := s.subject.HighestBid(mockCtx, a.Id)
	s.Require().NoError(err)
	s.Nil(highest)
}

func (s *auctionSuite) TestEndAuctionTooEarly() {
	a := s.createAuction()

	_, err := s.subject.EndAuction(mockCtx, a.Id)
	s.ErrorIs(err, domain.ErrTooEarly)
}

func (s *auctionSuite) TestEndAuctionTwice() {
	a := s.createAuction()

	s.fastForward(2 * time.Hour)
	_, err := s.subject.EndAuction(mockCtx, a.Id)
	s.Require().NoError(err)

	_, err = s.subject.EndAuction(mockCtx, a.Id)
	s.ErrorIs(err, domain.ErrAlreadyEnded)
}

func (s *auctionSuite) TestEndAuctionUnbid() {
	a := s.createAuction()

	s.fastForward(2 * time.Hour)
	settlement, err := s.subject.EndAuction(mockCtx, a.Id)
	s.Require().NoError(err)
	s.True(settlement.ReturnedToSeller)
	s.Equal("0", settlement.SettledAmount)

	nftOwner, err := s.ledger.OwnerOf(mockCtx, nftContract, nftId)
	s.Require().NoError(err)
	s.True(nftOwner.Equals(seller))
}

func (s *auctionSuite) TestBidAfterEndRejected() {
	a := s.createAuction()

	s.fastForward(2 * time.Hour)
	_, err := s.subject.EndAuction(mockCtx, a.Id)
	s.Require().NoError(err)

	_, err = s.subject.Bid(mockCtx, &auction.BidParams{
		AuctionId: a.Id, Bidder: bidder1, PayToken: domain.NativeAsset, RawAmount: eth(0, 50),
	})
	s.ErrorIs(err, domain.ErrAlreadyEnded)
}

func (s *auctionSuite) TestFailedRefundBecomesClaimable() {
	a := s.createAuction()

	_, err := s.subject.Bid(mockCtx, &auction.BidParams{
		AuctionId: a.Id, Bidder: bidder1, PayToken: domain.NativeAsset, RawAmount: eth(0, 50),
	})
	s.Require().NoError(err)

	// the refund to bidder1 fails; the new bid must stand anyway
	s.flaky.failTransferTo = bidder1
	bidder1Before := s.balance(domain.NativeAsset, bidder1)
	_, err = s.subject.Bid(mockCtx, &auction.BidParams{
		AuctionId: a.Id, Bidder: bidder2, PayToken: domain.NativeAsset, RawAmount: eth(0, 60),
	})
	s.Require().NoError(err)
	s.Equal(bidder1Before, s.balance(domain.NativeAsset, bidder1))

	highest, err := s.subject.HighestBid(mockCtx, a.Id)
	s.Require().NoError(err)
	s.True(highest.Bidder.Equals(bidder2))

	events, err := s.events.FindByAuction(mockCtx, a.Id)
	s.Require().NoError(err)
	var sawRefundFailed bool
	for _, e := range events {
		if e.Type == domain.EventRefundFailed {
			sawRefundFailed = true
		}
	}
	s.True(sawRefundFailed)

	// claim pays exactly once
	s.flaky.failTransferTo = domain.EmptyAddress
	claimed, err := s.subject.Claim(mockCtx, a.Id, bidder1)
	s.Require().NoError(err)
	s.Require().Len(claimed, 1)
	s.Equal(eth(0, 50).String(), claimed[0].RawAmount)
	s.Equal(new(big.Int).Add(bidder1Before, eth(0, 50)), s.balance(domain.NativeAsset, bidder1))

	_, err = s.subject.Claim(mockCtx, a.Id, bidder1)
	s.ErrorIs(err, domain.ErrNothingToClaim)
}

func (s *auctionSuite) TestClaimPayoutFailureRestoresRecord() {
	a := s.createAuction()

	_, err := s.subject.Bid(mockCtx, &auction.BidParams{
		AuctionId: a.Id, Bidder: bidder1, PayToken: domain.NativeAsset, RawAmount: eth(0, 50),
	})
	s.Require().NoError(err)

	s.flaky.failTransferTo = bidder1
	_, err = s.subject.Bid(mockCtx, &auction.BidParams{
		AuctionId: a.Id, Bidder: bidder2, PayToken: domain.NativeAsset, RawAmount: eth(0, 60),
	})
	s.Require().NoError(err)

	// payout still failing: the claim record must survive
	_, err = s.subject.Claim(mockCtx, a.Id, bidder1)
	s.ErrorIs(err, domain.ErrTransferFailed)

	s.flaky.failTransferTo = domain.EmptyAddress
	claimed, err := s.subject.Claim(mockCtx, a.Id, bidder1)
	s.Require().NoError(err)
	s.Len(claimed, 1)
}

func (s *auctionSuite) TestSettlementFailureRestoresAuction() {
	a := s.createAuction()

	_, err := s.subject.Bid(mockCtx, &auction.BidParams{
		AuctionId: a.Id, Bidder: bidder1, PayToken: domain.NativeAsset, RawAmount: eth(0, 50),
	})
	s.Require().NoError(err)

	s.fastForward(2 * time.Hour)
	s.flaky.failNft = true

	sellerBefore := s.balance(domain.NativeAsset, seller)
	feeToBefore := s.balance(domain.NativeAsset, feeTo)
	escrowBefore := s.balance(domain.NativeAsset, a.EscrowAddress())

	_, err = s.subject.EndAuction(mockCtx, a.Id)
	s.ErrorIs(err, domain.ErrTransferFailed)

	// every completed leg was compensated and the auction is active again
	s.Equal(sellerBefore, s.balance(domain.NativeAsset, seller))
	s.Equal(feeToBefore, s.balance(domain.NativeAsset, feeTo))
	s.Equal(escrowBefore, s.balance(domain.NativeAsset, a.EscrowAddress()))

	got, err := s.subject.GetAuction(mockCtx, a.Id)
	s.Require().NoError(err)
	s.Equal(auction.StateActive, got.State)

	// the retry settles cleanly
	s.flaky.failNft = false
	settlement, err := s.subject.EndAuction(mockCtx, a.Id)
	s.Require().NoError(err)
	s.True(settlement.Winner.Equals(bidder1))
}

func (s *auctionSuite) TestReentrantEndDuringSettlement() {
	a := s.createAuction()

	_, err := s.subject.Bid(mockCtx, &auction.BidParams{
		AuctionId: a.Id, Bidder: bidder1, PayToken: domain.NativeAsset, RawAmount: eth(0, 50),
	})
	s.Require().NoError(err)

	// a transfer hook re-entering EndAuction must observe the committed
	// Ended state, never a second settlement
	var reentrantErr error
	var fired bool
	s.ledger.SetTransferHook(func(c ctx.Ctx, token, from, to domain.Address, amount *big.Int) {
		if fired {
			return
		}
		fired = true
		_, reentrantErr = s.subject.EndAuction(c, a.Id)
	})

	s.fastForward(2 * time.Hour)
	_, err = s.subject.EndAuction(mockCtx, a.Id)
	s.Require().NoError(err)
	s.True(fired)
	s.ErrorIs(reentrantErr, domain.ErrAlreadyEnded)
}

func (s *auctionSuite) TestVersionReportsLogic() {
	a := s.createAuction()

	version, err := s.subject.Version(mockCtx, a.Id)
	s.Require().NoError(err)
	s.Equal("NftAuction", version)
}
