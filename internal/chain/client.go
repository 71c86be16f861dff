package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	tperr "github.com/asterion-dev/tradepath/internal/errors"
)

// Client implements Backend over a JSON-RPC endpoint.
type Client struct {
	eth *ethclient.Client
}

var _ Backend = (*Client)(nil)

func Dial(ctx context.Context, rpcURL string) (*Client, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, tperr.Wrap(tperr.KindUnavailable, "connect rpc", err)
	}
	return &Client{eth: eth}, nil
}

func (c *Client) Close() {
	c.eth.Close()
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return nil, tperr.Wrap(tperr.KindUnavailable, "read chain id", err)
	}
	return id, nil
}

func (c *Client) FeeData(ctx context.Context) (FeeData, error) {
	header, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return FeeData{}, tperr.Wrap(tperr.KindUnavailable, "fetch latest header", err)
	}
	out := FeeData{BaseFee: header.BaseFee}

	if out.BaseFee != nil {
		tipCap, err := c.eth.SuggestGasTipCap(ctx)
		if err != nil {
			// 2 gwei fallback when the node does not expose a tip estimate.
			tipCap = big.NewInt(2_000_000_000)
		}
		out.TipCap = tipCap
		return out, nil
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return FeeData{}, tperr.Wrap(tperr.KindUnavailable, "fetch gas price", err)
	}
	out.GasPrice = gasPrice
	return out, nil
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	return c.eth.TransactionReceipt(ctx, txHash)
}

func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	out, err := c.eth.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, tperr.Wrap(tperr.KindUnavailable, "contract call", err)
	}
	return out, nil
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	balance, err := c.eth.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, tperr.Wrap(tperr.KindUnavailable, "read balance", err)
	}
	return balance, nil
}
