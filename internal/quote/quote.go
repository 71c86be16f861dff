// Package quote retrieves firm swap quotes from an aggregator.
package quote

import (
	"context"

	"github.com/asterion-dev/tradepath/internal/token"
)

// Request identifies the trade a quote is wanted for. Taker is the wallet
// that will execute the swap.
type Request struct {
	SellToken token.Ref
	BuyToken  token.Ref
	// SellAmount is an integer string in the sell token's base units.
	SellAmount  string
	Taker       string
	SlippageBps int64
}

// Transaction is the calldata package to submit for execution.
type Transaction struct {
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	Gas      string `json:"gas"`
	GasPrice string `json:"gasPrice"`
}

type Fees struct {
	ZeroExFee     string `json:"zeroExFee,omitempty"`
	IntegratorFee string `json:"integratorFee,omitempty"`
	GasFee        string `json:"gasFee,omitempty"`
}

// Permit2 carries the EIP-712 payload some quotes require signing before
// submission.
type Permit2 struct {
	Type   string         `json:"type"`
	Hash   string         `json:"hash"`
	EIP712 map[string]any `json:"eip712"`
}

// Quote is a firm, time-bounded price and calldata package. It is produced
// once, consumed exactly once by execution, and never mutated. Submission of
// a stale quote fails on-chain and callers must re-quote rather than retry.
type Quote struct {
	SellToken    token.Ref   `json:"sell_token"`
	BuyToken     token.Ref   `json:"buy_token"`
	SellAmount   string      `json:"sell_amount"`
	BuyAmount    string      `json:"buy_amount"`
	MinBuyAmount string      `json:"min_buy_amount"`
	Route        string      `json:"route"`
	Fees         Fees        `json:"fees"`
	Transaction  Transaction `json:"transaction"`
	Permit2      *Permit2    `json:"permit2,omitempty"`
	// AllowanceTarget is the relayer/vault contract that must be approved
	// to spend the sell token before execution.
	AllowanceTarget string `json:"allowance_target,omitempty"`
}

// Provider is the quote capability the orchestrator is constructed with.
// Production wires *Aggregator; tests and keyless deployments wire *Static
// explicitly.
type Provider interface {
	GetQuote(ctx context.Context, req Request) (Quote, error)
}
