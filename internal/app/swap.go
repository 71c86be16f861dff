package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	tperr "github.com/asterion-dev/tradepath/internal/errors"
	"github.com/asterion-dev/tradepath/internal/orchestrator"
	"github.com/asterion-dev/tradepath/internal/out"
	"github.com/asterion-dev/tradepath/internal/token"
)

type swapFlags struct {
	chainID    int64
	wallet     string
	sellToken  string
	buyToken   string
	sellAmount string
	usdAmount  string
	slippage   int64
}

func (s *runtimeState) newSwapCommand() *cobra.Command {
	var f swapFlags
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap one token for another at the best available route",
		Example: `  tradepath swap --chain 8453 --wallet 0xabc... \
    --sell ETH:0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee:18 \
    --buy USDC:0x833589fcd6edb6e08f4c7c32d4f71b54bda02913:6 \
    --usd 25`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sell, err := parseTokenFlag(f.sellToken, f.chainID)
			if err != nil {
				return err
			}
			buy, err := parseTokenFlag(f.buyToken, f.chainID)
			if err != nil {
				return err
			}

			orch, done, err := s.buildOrchestrator(cmd.Context(), f.chainID)
			if err != nil {
				return err
			}
			defer done()

			slippage := f.slippage
			if slippage <= 0 {
				slippage = s.settings.SlippageBps
			}
			start := s.runner.now()
			res := orch.Swap(cmd.Context(), orchestrator.SwapOrder{
				Wallet:      f.wallet,
				SellToken:   sell,
				BuyToken:    buy,
				SellAmount:  f.sellAmount,
				USDAmount:   f.usdAmount,
				SlippageBps: slippage,
			})
			return renderResult(s, cmd, res, start)
		},
	}
	cmd.Flags().Int64Var(&f.chainID, "chain", 8453, "chain id")
	cmd.Flags().StringVar(&f.wallet, "wallet", "", "wallet address executing the swap")
	cmd.Flags().StringVar(&f.sellToken, "sell", "", "sell token as SYMBOL:ADDRESS:DECIMALS")
	cmd.Flags().StringVar(&f.buyToken, "buy", "", "buy token as SYMBOL:ADDRESS:DECIMALS")
	cmd.Flags().StringVar(&f.sellAmount, "amount", "", "sell amount in base units")
	cmd.Flags().StringVar(&f.usdAmount, "usd", "", "sell amount in decimal USD")
	cmd.Flags().Int64Var(&f.slippage, "slippage-bps", 0, "slippage tolerance in basis points")
	_ = cmd.MarkFlagRequired("wallet")
	_ = cmd.MarkFlagRequired("sell")
	_ = cmd.MarkFlagRequired("buy")
	return cmd
}

// parseTokenFlag parses SYMBOL:ADDRESS:DECIMALS. The address
// 0xeeee...eeee stands for the chain's native asset.
func parseTokenFlag(v string, chainID int64) (token.Ref, error) {
	parts := strings.Split(strings.TrimSpace(v), ":")
	if len(parts) != 3 {
		return token.Ref{}, tperr.New(tperr.KindValidation, fmt.Sprintf("token %q: want SYMBOL:ADDRESS:DECIMALS", v))
	}
	decimals, err := strconv.Atoi(parts[2])
	if err != nil {
		return token.Ref{}, tperr.New(tperr.KindValidation, fmt.Sprintf("token %q: decimals must be an integer", v))
	}
	return token.NewRef(parts[0], parts[1], decimals, chainID)
}

func renderResult(s *runtimeState, cmd *cobra.Command, res orchestrator.Result, start time.Time) error {
	took := s.runner.now().Sub(start)
	var env out.Envelope
	if res.OK {
		env = out.Success(res.TraceID, res, took)
	} else {
		env = out.Failure(res.TraceID, tperr.New(res.ErrorKind, res.Message), took)
	}
	if err := out.Render(cmd.OutOrStdout(), env, s.settings.OutputMode); err != nil {
		return err
	}
	if !res.OK {
		return &renderedError{kind: res.ErrorKind}
	}
	return nil
}
