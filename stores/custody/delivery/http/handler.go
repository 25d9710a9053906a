package http

import (
	"math/big"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/base/delivery"
	"github.com/young8i/nft-auction-market/domain"
	"github.com/young8i/nft-auction-market/service/custody"
	authMiddleware "github.com/young8i/nft-auction-market/stores/auth/delivery/http/middleware"
)

// handler exposes the in-process custody ledger used in simulation mode.
// Approvals and faucet mints let a wallet walk the whole auction flow
// without an external settlement layer.
type handler struct {
	ledger       *custody.Ledger
	faucetAmount *big.Int
}

func New(e *echo.Echo, ledger *custody.Ledger, faucetAmount *big.Int, authMiddleware *authMiddleware.AuthMiddleware) {
	h := &handler{ledger, faucetAmount}

	g := e.Group("/custody")

	g.GET("/balance", h.getBalance)

	g.GET("/owner", h.getOwner)

	g.POST("/approve", h.approve, authMiddleware.Auth())

	g.POST("/approve-nft", h.approveNft, authMiddleware.Auth())

	g.POST("/faucet", h.faucet, authMiddleware.Auth())

	g.POST("/mint-nft", h.mintNft, authMiddleware.Auth())
}

func (h *handler) getBalance(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		Token   domain.Address `query:"token"`
		Account domain.Address `query:"account"`
	}

	p := &params{}

	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	balance, err := h.ledger.BalanceOf(ctx, p.Token, p.Account)
	if err != nil {
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}

	res := struct {
		Token   domain.Address `json:"token"`
		Account domain.Address `json:"account"`
		Balance string         `json:"balance"`
	}{p.Token, p.Account, balance.String()}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) getOwner(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	type params struct {
		Contract domain.Address `query:"contract"`
		TokenId  domain.TokenId `query:"tokenId"`
	}

	p := &params{}

	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	owner, err := h.ledger.OwnerOf(ctx, p.Contract, p.TokenId)
	if err != nil {
		ctx.WithField("err", err).Error("ledger.OwnerOf failed")
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}

	res := struct {
		Owner domain.Address `json:"owner"`
	}{owner}
	return delivery.MakeJsonResp(c, http.StatusOK, res)
}

func (h *handler) approve(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	owner := c.Get("address").(domain.Address)

	type params struct {
		Operator domain.Address `json:"operator"`
		Token    domain.Address `json:"token"`
		Amount   string         `json:"amount"`
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

	if err := h.ledger.Approve(ctx, owner, p.Operator, p.Token, amount); err != nil {
		ctx.WithField("err", err).Error("ledger.Approve failed")
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}

	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) approveNft(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	owner := c.Get("address").(domain.Address)

	type params struct {
		Operator domain.Address `json:"operator"`
		Contract domain.Address `json:"contract"`
		TokenId  domain.TokenId `json:"tokenId"`
	}

	p := &params{}

	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	if err := h.ledger.ApproveNft(ctx, owner, p.Operator, p.Contract, p.TokenId); err != nil {
		ctx.WithField("err", err).Error("ledger.ApproveNft failed")
		return delivery.MakeJsonResp(c, http.StatusInternalServerError, err)
	}

	return delivery.MakeJsonResp(c, http.StatusOK, "ok")
}

func (h *handler) faucet(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	account := c.Get("address").(domain.Address)

	type params struct {
		Token domain.Address `json:"token"`
	}

	p := &params{}

	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	h.ledger.Mint(p.Token, account, h.faucetAmount)

	res := struct {
		Token  domain.Address `json:"token"`
		Amount string         `json:"amount"`
	}{p.Token, h.faucetAmount.String()}
	return delivery.MakeJsonResp(c, http.StatusCreated, res)
}

func (h *handler) mintNft(c echo.Context) error {
	ctx := c.Get("ctx").(ctx.Ctx)

	owner := c.Get("address").(domain.Address)

	type params struct {
		Contract domain.Address `json:"contract"`
		TokenId  domain.TokenId `json:"tokenId"`
	}

	p := &params{}

	if err := c.Bind(p); err != nil {
		ctx.WithField("err", err).Error("bind failed")
		return c.JSON(http.StatusUnprocessableEntity, err)
	}

	if current, err := h.ledger.OwnerOf(ctx, p.Contract, p.TokenId); err == nil && !current.IsEmpty() {
		return delivery.MakeJsonResp(c, http.StatusConflict, "token already minted")
	}

	h.ledger.MintNft(p.Contract, p.TokenId, owner)

	return delivery.MakeJsonResp(c, http.StatusCreated, "ok")
}
