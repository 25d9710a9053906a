package http

import (
	"math/big"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/base/delivery"
	"github.com/young8i/nft-auction-market/domain"
	authMiddleware "github.com/young8i/nft-auction-market/stores/auth/delivery/http/middleware"
)

type handler struct {
	oracle domain.OracleUsecase
}

func New(e *echo.Echo, oracle domain.OracleUsecase, authMiddleware *authMiddleware.AuthMiddleware) {
	h := &handler{oracle}

	g := e.Group("/oracle")

	g.PUT("/feeds", h.setFeed, authMiddleware.Auth())

	g.GET("/value", h.getValue)
}

// setFeed
//
//	@Summary		Register price feed
//	@Description	Register or overwrite the price feed for a payment asset. Oracle owner only.
//	@Tags			oracle
//	@Accept			json
//	@Produce		json
//	@Param			params	body		http.setFeed.params	true	"params"
//	@Success		200		{object}	object{data=string}
//	@Failure		400
//	@Failure		401
//	@Router			/oracle/feeds [put]
func (h *handler) setFeed(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	caller := c.Get("address").(domain.Address)

	type params struct {
		Asset         domain.Address `json:"asset"`
		FeedRef       domain.Address `json:"feedRef"`
		AssetDecimals int32          `json:"assetDecimals"`
	}

	p := &params{}

	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	entry := &domain.FeedEntry{
		Asset:         p.Asset,
		FeedRef:       p.FeedRef,
		AssetDecimals: p.AssetDecimals,
	}

	if err := h.oracle.SetFeed(ctx, caller, entry); err != nil {
		ctx.WithField("err", err).Error("oracle.SetFeed failed")
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}

	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

// getValue
//
//	@Summary		Quote USD value
//	@Description	Convert a raw asset amount into its USD value using the registered feed
//	@Tags			oracle
//	@Accept			json
//	@Produce		json
//	@Param			asset	query		string	true	"payment asset address"
//	@Param			amount	query		string	true	"raw amount in the asset's own decimals"
//	@Success		200		{object}	object{data=string}
//	@Failure		400
//	@Router			/oracle/value [get]
func (h *handler) getValue(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		Asset  domain.Address `query:"asset"`
		Amount string         `query:"amount"`
	}

	p := &params{}

	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	amount, ok := new(big.Int).SetString(p.Amount, 10)
	if !ok {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid amount")
	}

	value, err := h.oracle.ValueInUsd(ctx, p.Asset, amount)
	if err != nil {
		ctx.WithField("err", err).Error("oracle.ValueInUsd failed")
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}

	res := struct {
		Asset    domain.Address `json:"asset"`
		Amount   string         `json:"amount"`
		UsdValue string         `json:"usdValue"`
	}{
		Asset:    p.Asset,
		Amount:   p.Amount,
		UsdValue: value.String(),
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}
