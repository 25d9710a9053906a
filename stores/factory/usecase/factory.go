package usecase

import (
	"time"

	"github.com/google/uuid"

	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/base/log"
	"github.com/young8i/nft-auction-market/domain"
	"github.com/young8i/nft-auction-market/domain/auction"
	"github.com/young8i/nft-auction-market/service/custody"
)

// InstanceLocker serializes an operation with the in-flight bids and
// settlements of one auction instance.
type InstanceLocker interface {
	WithInstanceLock(auctionId string, fn func() error) error
}

type impl struct {
	config   auction.ConfigRepo
	auctions auction.Repo
	custody  custody.Service
	oracle   *auction.OracleHolder
	registry *auction.LogicRegistry
	locker   InstanceLocker
	recorder domain.EventRecorder
	now      func() time.Time
}

func New(
	config auction.ConfigRepo,
	auctions auction.Repo,
	cust custody.Service,
	oracle *auction.OracleHolder,
	registry *auction.LogicRegistry,
	locker InstanceLocker,
	recorder domain.EventRecorder,
) auction.FactoryUsecase {
	return &impl{
		config:   config,
		auctions: auctions,
		custody:  cust,
		oracle:   oracle,
		registry: registry,
		locker:   locker,
		recorder: recorder,
		now:      time.Now,
	}
}

func (im *impl) CreateAuction(c ctx.Ctx, p *auction.CreateAuctionParams) (*auction.Auction, error) {
	if p.Seller.IsEmpty() || p.AssetContract.IsEmpty() || p.Duration <= 0 || !p.ReservePriceUsd.IsPositive() {
		return nil, domain.ErrInvalidParams
	}

	cfg, err := im.config.Get(c)
	if err != nil {
		return nil, err
	}

	logic, err := im.registry.Get(cfg.ImplementationId)
	if err != nil {
		c.WithFields(log.Fields{
			"err":              err,
			"implementationId": cfg.ImplementationId,
		}).Error("registry.Get failed")
		return nil, err
	}

	owner, err := im.custody.OwnerOf(c, p.AssetContract, p.AssetId)
	if err != nil {
		return nil, err
	}
	if !owner.Equals(p.Seller) {
		return nil, domain.ErrUnauthorized
	}

	now := im.now()
	a := &auction.Auction{
		Id:               uuid.New().String(),
		Seller:           p.Seller.ToLower(),
		AssetContract:    p.AssetContract.ToLower(),
		AssetId:          p.AssetId,
		ReservePriceUsd:  p.ReservePriceUsd.Truncate(domain.UsdDecimals).String(),
		EndTime:          now.Add(p.Duration),
		State:            auction.StateActive,
		LogicId:          logic.Id(),
		SchemaVersion:    logic.SchemaVersion(),
		UpgradeAuthority: cfg.Owner,
		CreatedAt:        now,
	}

	// pull the asset into escrow first; the seller must have approved the
	// factory address
	if err := im.custody.TransferNftFrom(c, cfg.FactoryAddress, p.AssetContract, p.Seller, a.EscrowAddress(), p.AssetId); err != nil {
		c.WithFields(log.Fields{
			"err":           err,
			"assetContract": p.AssetContract,
			"assetId":       p.AssetId,
		}).Warn("asset escrow failed")
		return nil, err
	}

	if err := im.auctions.Create(c, a); err != nil {
		// hand the asset back, the instance was never registered
		if rerr := im.custody.TransferNft(c, p.AssetContract, a.EscrowAddress(), p.Seller, p.AssetId); rerr != nil {
			c.WithFields(log.Fields{
				"err":       rerr,
				"auctionId": a.Id,
			}).Error("returning escrowed asset failed")
		}
		return nil, err
	}

	im.recorder.Record(c, &domain.Event{
		Type:      domain.EventAuctionCreated,
		AuctionId: a.Id,
		Data: map[string]interface{}{
			"seller":          a.Seller.ToLowerStr(),
			"assetContract":   a.AssetContract.ToLowerStr(),
			"assetId":         a.AssetId.String(),
			"reservePriceUsd": a.ReservePriceUsd,
			"endTime":         a.EndTime.Unix(),
			"logicId":         a.LogicId,
		},
	})
	return a, nil
}

func (im *impl) ListAuctions(c ctx.Ctx) ([]*auction.Auction, error) {
	return im.auctions.FindAll(c)
}

func (im *impl) GetConfig(c ctx.Ctx) (*auction.FactoryConfig, error) {
	return im.config.Get(c)
}

func (im *impl) requireOwner(c ctx.Ctx, caller domain.Address) (*auction.FactoryConfig, error) {
	cfg, err := im.config.Get(c)
	if err != nil {
		return nil, err
	}
	if !caller.Equals(cfg.Owner) {
		return nil, domain.ErrUnauthorized
	}
	return cfg, nil
}

func (im *impl) SetOracle(c ctx.Ctx, caller domain.Address, oracle domain.OracleUsecase, ref domain.Address) error {
	cfg, err := im.requireOwner(c, caller)
	if err != nil {
		return err
	}
	if oracle == nil || ref.IsEmpty() {
		return domain.ErrInvalidParams
	}
	cfg.OracleRef = ref.ToLower()
	if err := im.config.Set(c, cfg); err != nil {
		return err
	}
	// instances reach the oracle through the holder, so the swap takes
	// effect for every live auction at once
	im.oracle.Set(oracle, ref)
	return nil
}

func (im *impl) SetFeeRecipient(c ctx.Ctx, caller domain.Address, recipient domain.Address) error {
	cfg, err := im.requireOwner(c, caller)
	if err != nil {
		return err
	}
	if recipient.IsEmpty() {
		return domain.ErrInvalidParams
	}
	cfg.FeeRecipient = recipient.ToLower()
	return im.config.Set(c, cfg)
}

func (im *impl) SetFeeBps(c ctx.Ctx, caller domain.Address, feeBps int64) error {
	cfg, err := im.requireOwner(c, caller)
	if err != nil {
		return err
	}
	if feeBps < 0 || feeBps > domain.MaxFeeBps {
		return domain.ErrInvalidParams
	}
	cfg.FeeBps = feeBps
	return im.config.Set(c, cfg)
}

func (im *impl) SetImplementation(c ctx.Ctx, caller domain.Address, implementationId string) error {
	cfg, err := im.requireOwner(c, caller)
	if err != nil {
		return err
	}
	if _, err := im.registry.Get(implementationId); err != nil {
		return err
	}
	cfg.ImplementationId = implementationId
	return im.config.Set(c, cfg)
}

func (im *impl) UpgradeTo(c ctx.Ctx, caller domain.Address, auctionId string, implementationId string) error {
	logic, err := im.registry.Get(implementationId)
	if err != nil {
		return err
	}

	if err := im.locker.WithInstanceLock(auctionId, func() error {
		a, err := im.auctions.FindOne(c, auctionId)
		if err != nil {
			return err
		}
		if !caller.Equals(a.UpgradeAuthority) {
			return domain.ErrUnauthorized
		}
		if logic.SchemaVersion() != a.SchemaVersion {
			return domain.ErrIncompatibleLayout
		}
		if a.LogicId == implementationId {
			return nil
		}
		// only the logic id moves; every other persisted field must read
		// identically after the swap
		a.LogicId = implementationId
		return im.auctions.Update(c, a)
	}); err != nil {
		return err
	}

	im.recorder.Record(c, &domain.Event{
		Type:      domain.EventUpgraded,
		AuctionId: auctionId,
		Data: map[string]interface{}{
			"implementationId": implementationId,
			"version":          logic.Version(),
		},
	})
	return nil
}
