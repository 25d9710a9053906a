package domain

import (
	"github.com/golang-jwt/jwt"
	"github.com/young8i/nft-auction-market/base/ctx"
)

type JwtCustomClaims struct {
	Address string `json:"data"`
	jwt.StandardClaims
}

type AuthUsecase interface {
	// SignToken issues a bearer token for address after verifying that
	// signature was produced by it over the configured sign message.
	SignToken(c ctx.Ctx, address Address, signature string) (string, error)
	ParseToken(c ctx.Ctx, token string) (address string, err error)
}
