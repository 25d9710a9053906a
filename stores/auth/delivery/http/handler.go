package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/base/delivery"
	"github.com/young8i/nft-auction-market/domain"
)

type authHandler struct {
	auth        domain.AuthUsecase
	signMessage string
}

func New(e *echo.Echo, auth domain.AuthUsecase, signMessage string) {
	handler := &authHandler{
		auth:        auth,
		signMessage: signMessage,
	}
	g := e.Group("/auth")
	g.POST("/sign", handler.sign)
	g.GET("/signMessage", handler.getSignMessage)
}

// sign
//
//	@Summary		Get access token
//	@Description	Create access token for given address after verifying the wallet signature
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Param			params	body		http.sign.params	true	"params"
//	@Success		201		{object}	object{data=string}
//	@Failure		401
//	@Failure		422
//	@Router			/auth/sign [post]
func (h *authHandler) sign(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		Address   domain.Address `json:"address" binding:"address" description:"account address" example:"0xbc4ca0eda7647a8ab7c2061c2e118a18a936f13d"` // account address
		Signature string         `json:"signature" description:"signature over the sign message by address"`
	}

	p := &params{}

	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	if tkn, err := h.auth.SignToken(ctx, p.Address, p.Signature); err != nil {
		ctx.WithField("err", err).Error("auth.SignToken failed")
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	} else {
		return delivery.MakeJsonResp(c, http.StatusCreated, tkn)
	}
}

// getSignMessage
//
//	@Summary		Get sign message
//	@Description	Message a wallet must sign before calling /auth/sign
//	@Tags			auth
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	object{msg=string}	"sign message"
//	@Router			/auth/signMessage [get]
func (h *authHandler) getSignMessage(c echo.Context) error {
	res := struct {
		Msg string `json:"message"`
	}{
		Msg: h.signMessage,
	}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}
