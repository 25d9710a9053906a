package custody

import (
	"math/big"

	"github.com/young8i/nft-auction-market/base/ctx"
	"github.com/young8i/nft-auction-market/domain"
)

// Service is the asset custody collaborator. Every call either fully succeeds
// (funds or asset move exactly once) or fails with no partial effect.
//
// Fungible transfers use domain.NativeAsset as the token id for the native
// settlement currency; a native TransferFrom needs no prior approval because
// the value travels with the call itself.
type Service interface {
	// unique assets
	OwnerOf(c ctx.Ctx, contract domain.Address, tokenId domain.TokenId) (domain.Address, error)
	ApproveNft(c ctx.Ctx, owner, operator, contract domain.Address, tokenId domain.TokenId) error
	// TransferNft moves a unique asset out of an account the caller controls.
	TransferNft(c ctx.Ctx, contract, from, to domain.Address, tokenId domain.TokenId) error
	// TransferNftFrom pulls a unique asset on behalf of operator; the owner
	// must have approved operator first.
	TransferNftFrom(c ctx.Ctx, operator, contract, from, to domain.Address, tokenId domain.TokenId) error

	// fungible assets
	BalanceOf(c ctx.Ctx, token, account domain.Address) (*big.Int, error)
	Approve(c ctx.Ctx, owner, operator, token domain.Address, amount *big.Int) error
	// Transfer moves funds out of an account the caller controls.
	Transfer(c ctx.Ctx, token, from, to domain.Address, amount *big.Int) error
	// TransferFrom pulls funds on behalf of operator, consuming allowance for
	// non-native tokens.
	TransferFrom(c ctx.Ctx, operator, token, from, to domain.Address, amount *big.Int) error
}
