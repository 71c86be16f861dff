package quote

import (
	"context"
	"math/big"

	tperr "github.com/asterion-dev/tradepath/internal/errors"
	"github.com/asterion-dev/tradepath/internal/token"
)

// Static returns deterministic quotes without touching the network. It exists
// for tests and keyless development deployments and must be wired explicitly;
// nothing falls back to it at runtime.
type Static struct {
	// Rate is buy units per sell unit as a rational number, applied without
	// decimals adjustment.
	Rate *big.Rat
	// SpenderAddress is reported as the allowance target.
	SpenderAddress string
	// TargetAddress receives the synthetic transaction.
	TargetAddress string
	// Err, when set, is returned from every call.
	Err error
}

func NewStatic() *Static {
	return &Static{
		Rate:           big.NewRat(1, 1),
		SpenderAddress: "0x000000000022d473030f116ddee9f6b43ac78ba3",
		TargetAddress:  "0x0000000000001ff3684f28c67538d4d072c22734",
	}
}

func (s *Static) GetQuote(ctx context.Context, req Request) (Quote, error) {
	if s.Err != nil {
		return Quote{}, s.Err
	}
	if err := validateRequest(req); err != nil {
		return Quote{}, err
	}
	sellAmount, err := token.ParseBaseUnits(req.SellAmount)
	if err != nil {
		return Quote{}, err
	}
	rate := s.Rate
	if rate == nil {
		rate = big.NewRat(1, 1)
	}
	buyRat := new(big.Rat).Mul(new(big.Rat).SetInt(sellAmount), rate)
	buyAmount := new(big.Int).Quo(buyRat.Num(), buyRat.Denom())
	if buyAmount.Sign() < 0 {
		return Quote{}, tperr.New(tperr.KindQuoteUnavailable, "static rate produced negative amount")
	}

	return Quote{
		SellToken:       req.SellToken,
		BuyToken:        req.BuyToken,
		SellAmount:      req.SellAmount,
		BuyAmount:       buyAmount.String(),
		MinBuyAmount:    buyAmount.String(),
		Route:           "static",
		AllowanceTarget: s.SpenderAddress,
		Transaction: Transaction{
			To:    s.TargetAddress,
			Data:  "0x",
			Value: "0",
			Gas:   "250000",
		},
	}, nil
}

var _ Provider = (*Static)(nil)
