package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/base/delivery"
	"github.com/young8i/nft-auction-market/domain"
	"github.com/young8i/nft-auction-market/domain/auction"
	"github.com/young8i/nft-auction-market/middleware"
	authMiddleware "github.com/young8i/nft-auction-market/stores/auth/delivery/http/middleware"
)

// OracleBuilder builds a fresh oracle usecase for SetOracle swaps. The new
// oracle starts from its own feed registry under ref.
type OracleBuilder func(ref domain.Address) domain.OracleUsecase

type handler struct {
	factory     auction.FactoryUsecase
	buildOracle OracleBuilder
}

func New(e *echo.Echo, factory auction.FactoryUsecase, buildOracle OracleBuilder, authMiddleware *authMiddleware.AuthMiddleware) {
	h := &handler{factory, buildOracle}

	gs := e.Group("/auctions")

	gs.GET("", h.getAll, middleware.CacheHttp(10*time.Second))

	gs.POST("", h.create, authMiddleware.Auth())

	g := e.Group("/factory")

	g.GET("/config", h.getConfig)

	g.PUT("/config/oracle", h.setOracle, authMiddleware.Auth())

	g.PUT("/config/fee-recipient", h.setFeeRecipient, authMiddleware.Auth())

	g.PUT("/config/fee-bps", h.setFeeBps, authMiddleware.Auth())

	g.PUT("/config/implementation", h.setImplementation, authMiddleware.Auth())

	g.POST("/upgrade/:auctionId", h.upgrade, authMiddleware.Auth())
}

// getAll
//
//	@Summary		List auctions
//	@Description	List all auctions in creation order
//	@Tags			factory
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	object{data=[]auction.Auction}
//	@Router			/auctions [get]
func (h *handler) getAll(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if res, err := h.factory.ListAuctions(ctx); err != nil {
		ctx.WithField("err", err).Error("factory.ListAuctions failed")
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

// create
//
//	@Summary		Create auction
//	@Description	Escrow the caller's asset and open a new auction instance
//	@Tags			factory
//	@Accept			json
//	@Produce		json
//	@Param			params	body		http.create.params	true	"params"
//	@Success		201		{object}	object{data=auction.Auction}
//	@Failure		400
//	@Failure		401
//	@Router			/auctions [post]
func (h *handler) create(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	seller := c.Get("address").(domain.Address)

	type params struct {
		AssetContract   domain.Address `json:"assetContract"`
		AssetId         domain.TokenId `json:"assetId"`
		DurationSec     int64          `json:"durationSec"`
		ReservePriceUsd string         `json:"reservePriceUsd"`
	}

	p := &params{}

	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	reserve, err := decimal.NewFromString(p.ReservePriceUsd)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid reservePriceUsd")
	}

	res, err := h.factory.CreateAuction(ctx, &auction.CreateAuctionParams{
		Seller:          seller,
		AssetContract:   p.AssetContract,
		AssetId:         p.AssetId,
		Duration:        time.Duration(p.DurationSec) * time.Second,
		ReservePriceUsd: reserve,
	})
	if err != nil {
		ctx.WithField("err", err).Error("factory.CreateAuction failed")
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}

	return delivery.MakeJsonResp(c, http.StatusCreated, res)
}

// getConfig
//
//	@Summary		Get factory configuration
//	@Tags			factory
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	object{data=auction.FactoryConfig}
//	@Router			/factory/config [get]
func (h *handler) getConfig(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if res, err := h.factory.GetConfig(ctx); err != nil {
		ctx.WithField("err", err).Error("factory.GetConfig failed")
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

// setOracle
//
//	@Summary		Swap price oracle
//	@Description	Point every auction instance at a freshly built oracle. Owner only.
//	@Tags			factory
//	@Accept			json
//	@Produce		json
//	@Param			params	body		http.setOracle.params	true	"params"
//	@Success		200		{object}	object{data=string}
//	@Failure		401
//	@Router			/factory/config/oracle [put]
func (h *handler) setOracle(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	caller := c.Get("address").(domain.Address)

	type params struct {
		OracleRef domain.Address `json:"oracleRef"`
	}

	p := &params{}

	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	oracle := h.buildOracle(p.OracleRef)

	if err := h.factory.SetOracle(ctx, caller, oracle, p.OracleRef); err != nil {
		ctx.WithField("err", err).Error("factory.SetOracle failed")
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}

	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

// setFeeRecipient
//
//	@Summary		Set fee recipient
//	@Description	Owner only
//	@Tags			factory
//	@Accept			json
//	@Produce		json
//	@Param			params	body		http.setFeeRecipient.params	true	"params"
//	@Success		200		{object}	object{data=string}
//	@Failure		401
//	@Router			/factory/config/fee-recipient [put]
func (h *handler) setFeeRecipient(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	caller := c.Get("address").(domain.Address)

	type params struct {
		Recipient domain.Address `json:"recipient"`
	}

	p := &params{}

	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	if err := h.factory.SetFeeRecipient(ctx, caller, p.Recipient); err != nil {
		ctx.WithField("err", err).Error("factory.SetFeeRecipient failed")
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}

	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

// setFeeBps
//
//	@Summary		Set protocol fee rate
//	@Description	Fee in basis points taken from settled amounts. Owner only.
//	@Tags			factory
//	@Accept			json
//	@Produce		json
//	@Param			params	body		http.setFeeBps.params	true	"params"
//	@Success		200		{object}	object{data=string}
//	@Failure		400
//	@Failure		401
//	@Router			/factory/config/fee-bps [put]
func (h *handler) setFeeBps(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	caller := c.Get("address").(domain.Address)

	type params struct {
		FeeBps int64 `json:"feeBps"`
	}

	p := &params{}

	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	if err := h.factory.SetFeeBps(ctx, caller, p.FeeBps); err != nil {
		ctx.WithField("err", err).Error("factory.SetFeeBps failed")
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}

	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

// setImplementation
//
//	@Summary		Set default implementation
//	@Description	Implementation new auctions are created with. Owner only.
//	@Tags			factory
//	@Accept			json
//	@Produce		json
//	@Param			params	body		http.setImplementation.params	true	"params"
//	@Success		200		{object}	object{data=string}
//	@Failure		400
//	@Failure		401
//	@Router			/factory/config/implementation [put]
func (h *handler) setImplementation(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	caller := c.Get("address").(domain.Address)

	type params struct {
		ImplementationId string `json:"implementationId"`
	}

	p := &params{}

	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	if err := h.factory.SetImplementation(ctx, caller, p.ImplementationId); err != nil {
		ctx.WithField("err", err).Error("factory.SetImplementation failed")
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}

	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

// upgrade
//
//	@Summary		Upgrade auction logic
//	@Description	Swap the implementation behind a live auction without touching its state. Upgrade authority only.
//	@Tags			factory
//	@Accept			json
//	@Produce		json
//	@Param			auctionId	path		string				true	"auction id"
//	@Param			params		body		http.upgrade.params	true	"params"
//	@Success		200			{object}	object{data=string}
//	@Failure		400
//	@Failure		401
//	@Failure		409
//	@Router			/factory/upgrade/{auctionId} [post]
func (h *handler) upgrade(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	caller := c.Get("address").(domain.Address)

	type params struct {
		ImplementationId string `json:"implementationId"`
	}

	p := &params{}

	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	if err := h.factory.UpgradeTo(ctx, caller, c.Param("auctionId"), p.ImplementationId); err != nil {
		ctx.WithField("err", err).Error("factory.UpgradeTo failed")
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}

	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}
