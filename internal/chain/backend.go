package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// FeeData is a point-in-time fee estimate read from the chain. BaseFee is nil
// on chains without EIP-1559, in which case GasPrice carries the legacy
// estimate.
type FeeData struct {
	BaseFee  *big.Int
	TipCap   *big.Int
	GasPrice *big.Int
}

// Backend is the read-only chain surface the execution path depends on. It is
// satisfied by *Client (an ethclient wrapper) and by fakes in tests, so the
// executor and allowance manager never hold an ambient RPC connection.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	FeeData(ctx context.Context) (FeeData, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
}
