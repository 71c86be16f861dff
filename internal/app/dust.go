package app

import (
	"github.com/spf13/cobra"

	tperr "github.com/asterion-dev/tradepath/internal/errors"
	"github.com/asterion-dev/tradepath/internal/orchestrator"
	"github.com/asterion-dev/tradepath/internal/out"
	"github.com/asterion-dev/tradepath/internal/token"
)

func (s *runtimeState) newDustCommand() *cobra.Command {
	var (
		chainID  int64
		wallet   string
		tokens   []string
		target   string
		slippage int64
	)
	cmd := &cobra.Command{
		Use:   "dust",
		Short: "Sweep low-value token balances into a single target token",
		Long: `Converts each listed token's full balance into the target token. Tokens
with a zero balance are skipped, and one failed conversion does not stop the
remaining ones.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(tokens) == 0 {
				return tperr.New(tperr.KindValidation, "at least one --token is required")
			}
			targetRef, err := parseTokenFlag(target, chainID)
			if err != nil {
				return err
			}
			refs := make([]token.Ref, 0, len(tokens))
			for _, raw := range tokens {
				ref, err := parseTokenFlag(raw, chainID)
				if err != nil {
					return err
				}
				refs = append(refs, ref)
			}

			orch, done, err := s.buildOrchestrator(cmd.Context(), chainID)
			if err != nil {
				return err
			}
			defer done()

			if slippage <= 0 {
				slippage = s.settings.SlippageBps
			}
			start := s.runner.now()
			res := orch.Dust(cmd.Context(), orchestrator.DustOrder{
				Wallet:      wallet,
				Tokens:      refs,
				Target:      targetRef,
				SlippageBps: slippage,
			})
			took := s.runner.now().Sub(start)

			env := out.Success(res.TraceID, res, took)
			if err := out.Render(cmd.OutOrStdout(), env, s.settings.OutputMode); err != nil {
				return err
			}
			if res.Succeeded == 0 && res.Failed > 0 {
				return &renderedError{kind: tperr.KindSubmissionFailed}
			}
			return nil
		},
	}
	cmd.Flags().Int64Var(&chainID, "chain", 8453, "chain id")
	cmd.Flags().StringVar(&wallet, "wallet", "", "wallet address holding the dust")
	cmd.Flags().StringArrayVar(&tokens, "token", nil, "dust token as SYMBOL:ADDRESS:DECIMALS (repeatable)")
	cmd.Flags().StringVar(&target, "target", "", "target token as SYMBOL:ADDRESS:DECIMALS")
	cmd.Flags().Int64Var(&slippage, "slippage-bps", 0, "slippage tolerance in basis points")
	_ = cmd.MarkFlagRequired("wallet")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}
