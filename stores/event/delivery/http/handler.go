package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/base/delivery"
	"github.com/young8i/nft-auction-market/domain"
	"github.com/young8i/nft-auction-market/middleware"
)

type handler struct {
	events domain.EventRepo
}

func New(e *echo.Echo, events domain.EventRepo) {
	h := &handler{events}

	e.GET("/auction/:auctionId/events", h.getByAuction, middleware.CacheHttp(10*time.Second))
}

// getByAuction
//
//	@Summary		List auction events
//	@Description	List recorded events of one auction in insertion order
//	@Tags			event
//	@Accept			json
//	@Produce		json
//	@Param			auctionId	path		string	true	"auction id"
//	@Success		200			{object}	object{data=[]domain.Event}
//	@Router			/auction/{auctionId}/events [get]
func (h *handler) getByAuction(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	if res, err := h.events.FindByAuction(ctx, c.Param("auctionId")); err != nil {
		ctx.WithField("err", err).Error("events.FindByAuction failed")
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusOK, res)
	}
}
