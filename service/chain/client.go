package chain

import (
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	bCtx "github.com/young8i/nft-auction-market/base/ctx"
	bEthereum "github.com/young8i/nft-auction-market/base/ethereum"
	"github.com/young8i/nft-auction-market/base/log"
)

type ClientCfg struct {
	RpcUrl string
	// MaxInflight caps concurrent rpc calls, 0 uses a default
	MaxInflight int
}

const defaultMaxInflight = 8

// Client performs read-only contract calls against the settlement chain.
type Client interface {
	Call(c bCtx.Ctx, addr common.Address, contractAbi abi.ABI, method string, params ...interface{}) ([]interface{}, error)
}

type clientImpl struct {
	client *bEthereum.ThrottledClient
}

func NewClient(ctx bCtx.Ctx, cfg *ClientCfg) (Client, error) {
	client, err := ethclient.DialContext(ctx, cfg.RpcUrl)
	if err != nil {
		ctx.WithFields(log.Fields{
			"err": err,
			"url": cfg.RpcUrl,
		}).Error("failed to dial rpc")
		return nil, err
	}
	maxInflight := cfg.MaxInflight
	if maxInflight <= 0 {
		maxInflight = defaultMaxInflight
	}
	return &clientImpl{client: bEthereum.NewThrottledClient(client, maxInflight)}, nil
}

func (c *clientImpl) Call(ctx bCtx.Ctx, addr common.Address, contractAbi abi.ABI, method string, params ...interface{}) ([]interface{}, error) {
	data, err := contractAbi.Pack(method, params...)
	if err != nil {
		ctx.WithFields(log.Fields{
			"method": method,
			"params": params,
			"err":    err,
		}).Error("abi.Pack failed")
		return nil, err
	}
	msg := ethereum.CallMsg{
		To:   &addr,
		Data: data,
	}
	res, err := c.client.CallContract(ctx, msg, nil)
	if err != nil {
		ctx.WithField("err", err).Error("client.CallContract failed")
		return nil, err
	}
	unpacked, err := contractAbi.Unpack(method, res)
	if err != nil {
		ctx.WithField("err", err).Error("abi.Unpack failed")
		return nil, err
	}
	return unpacked, nil
}
