package http

import (
	"math/big"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/base/delivery"
	"github.com/young8i/nft-auction-market/base/metrics"
	"github.com/young8i/nft-auction-market/domain"
	"github.com/young8i/nft-auction-market/domain/auction"
	"github.com/young8i/nft-auction-market/middleware"
	authMiddleware "github.com/young8i/nft-auction-market/stores/auth/delivery/http/middleware"
)

var met metrics.Service

type handler struct {
	auction auction.Usecase
}

func New(e *echo.Echo, auctionUC auction.Usecase, authMiddleware *authMiddleware.AuthMiddleware) {
	met = metrics.New("auction")

	h := &handler{auctionUC}

	g := e.Group("/auction/:auctionId")

	g.GET("", h.get)

	g.GET("/highest-bid", h.getHighestBid)

	g.GET("/version", h.getVersion, middleware.CacheHttp(30*time.Second))

	g.POST("/bids", h.bid, authMiddleware.Auth())

	g.POST("/end", h.end)

	g.POST("/claims", h.claim, authMiddleware.Auth())
}

// get
//
//	@Summary		Get auction
//	@Description	Get one auction record by id
//	@Tags			auction
//	@Accept			json
//	@Produce		json
//	@Param			auctionId	path		string	true	"auction id"
//	@Success		200			{object}	object{data=auction.Auction}
//	@Failure		404
//	@Router			/auction/{auctionId} [get]
func (h *handler) get(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if res, err := h.auction.GetAuction(ctx, c.Param("auctionId")); err != nil {
		ctx.WithField("err", err).Error("auction.GetAuction failed")
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

// getHighestBid
//
//	@Summary		Get highest bid
//	@Description	Get the currently leading bid, null when no bid was accepted yet
//	@Tags			auction
//	@Accept			json
//	@Produce		json
//	@Param			auctionId	path		string	true	"auction id"
//	@Success		200			{object}	object{data=auction.Bid}
//	@Failure		404
//	@Router			/auction/{auctionId}/highest-bid [get]
func (h *handler) getHighestBid(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if res, err := h.auction.HighestBid(ctx, c.Param("auctionId")); err != nil {
		ctx.WithField("err", err).Error("auction.HighestBid failed")
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

// getVersion
//
//	@Summary		Get implementation version
//	@Description	Report the implementation name currently serving this auction
//	@Tags			auction
//	@Accept			json
//	@Produce		json
//	@Param			auctionId	path		string	true	"auction id"
//	@Success		200			{object}	object{data=string}
//	@Failure		404
//	@Router			/auction/{auctionId}/version [get]
func (h *handler) getVersion(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if res, err := h.auction.Version(ctx, c.Param("auctionId")); err != nil {
		ctx.WithField("err", err).Error("auction.Version failed")
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}

// bid
//
//	@Summary		Place bid
//	@Description	Lock payment funds in escrow and take the lead when the USD value beats reserve and the current leader
//	@Tags			auction
//	@Accept			json
//	@Produce		json
//	@Param			auctionId	path		string			true	"auction id"
//	@Param			params		body		http.bid.params	true	"params"
//	@Success		201			{object}	object{data=auction.Auction}
//	@Failure		400
//	@Failure		401
//	@Router			/auction/{auctionId}/bids [post]
func (h *handler) bid(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	bidder := c.Get("address").(domain.Address)

	type params struct {
		PayToken  domain.Address `json:"payToken"`
		RawAmount string         `json:"rawAmount"`
	}

	p := &params{}

	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	amount, ok := new(big.Int).SetString(p.RawAmount, 10)
	if !ok {
		return delivery.MakeJsonResp(c, http.StatusBadRequest, "invalid rawAmount")
	}

	res, err := h.auction.Bid(ctx, &auction.BidParams{
		AuctionId: c.Param("auctionId"),
		Bidder:    bidder,
		PayToken:  p.PayToken,
		RawAmount: amount,
	})
	if err != nil {
		ctx.WithField("err", err).Error("auction.Bid failed")
		met.BumpSum("bid.err", 1)
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}

	met.BumpSum("bid.count", 1, "payToken", p.PayToken.ToLowerStr())
	return delivery.MakeJsonResp(c, http.StatusCreated, res)
}

// end
//
//	@Summary		End auction
//	@Description	Settle the auction once its end time passed. Anyone may call it.
//	@Tags			auction
//	@Accept			json
//	@Produce		json
//	@Param			auctionId	path		string	true	"auction id"
//	@Success		200			{object}	object{data=auction.Settlement}
//	@Failure		400
//	@Failure		404
//	@Router			/auction/{auctionId}/end [post]
func (h *handler) end(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	res, err := h.auction.EndAuction(ctx, c.Param("auctionId"))
	if err != nil {
		ctx.WithField("err", err).Error("auction.EndAuction failed")
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}

	met.BumpSum("settle.count", 1)
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

// claim
//
//	@Summary		Claim pending returns
//	@Description	Pull refunds that could not be delivered when the bid was displaced
//	@Tags			auction
//	@Accept			json
//	@Produce		json
//	@Param			auctionId	path		string	true	"auction id"
//	@Success		200			{object}	object{data=[]auction.PendingReturn}
//	@Failure		400
//	@Failure		401
//	@Router			/auction/{auctionId}/claims [post]
func (h *handler) claim(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	bidder := c.Get("address").(domain.Address)

	res, err := h.auction.Claim(ctx, c.Param("auctionId"), bidder)
	if err != nil {
		ctx.WithField("err", err).Error("auction.Claim failed")
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}

	return delivery.MakeJsonResp(c, http.StatusOK, res)
}
