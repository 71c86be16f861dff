package app

import (
	"github.com/spf13/cobra"

	tperr "github.com/asterion-dev/tradepath/internal/errors"
	"github.com/asterion-dev/tradepath/internal/rules"
)

type ruleFlags struct {
	chainID      int64
	wallet       string
	sellToken    string
	buyToken     string
	sellAmount   string
	slippage     int64
	triggerUser  string
	triggerGroup string
	minFollowers int
}

func (f *ruleFlags) register(cmd *cobra.Command) {
	cmd.Flags().Int64Var(&f.chainID, "chain", 8453, "chain id")
	cmd.Flags().StringVar(&f.wallet, "wallet", "", "wallet address executing the rule")
	cmd.Flags().StringVar(&f.sellToken, "sell", "", "sell token as SYMBOL:ADDRESS:DECIMALS")
	cmd.Flags().StringVar(&f.buyToken, "buy", "", "buy token as SYMBOL:ADDRESS:DECIMALS")
	cmd.Flags().StringVar(&f.sellAmount, "amount", "", "sell amount in base units")
	cmd.Flags().Int64Var(&f.slippage, "slippage-bps", 0, "slippage tolerance in basis points")
	cmd.Flags().StringVar(&f.triggerUser, "trigger-wallet", "", "trigger on this wallet's activity")
	cmd.Flags().StringVar(&f.triggerGroup, "trigger-group", "", "trigger on this group's activity")
	cmd.Flags().IntVar(&f.minFollowers, "min-followers", 0, "minimum group followers for a group trigger")
	_ = cmd.MarkFlagRequired("wallet")
	_ = cmd.MarkFlagRequired("sell")
	_ = cmd.MarkFlagRequired("buy")
	_ = cmd.MarkFlagRequired("amount")
}

func (f *ruleFlags) trigger() (rules.Trigger, error) {
	switch {
	case f.triggerUser != "" && f.triggerGroup != "":
		return nil, tperr.New(tperr.KindValidation, "use exactly one of --trigger-wallet or --trigger-group")
	case f.triggerUser != "":
		return rules.UserTrigger{WalletAddress: f.triggerUser}, nil
	case f.triggerGroup != "":
		return rules.GroupTrigger{GroupID: f.triggerGroup, MinFollowers: f.minFollowers}, nil
	default:
		return nil, tperr.New(tperr.KindValidation, "a trigger is required: --trigger-wallet or --trigger-group")
	}
}

func (f *ruleFlags) base(s *runtimeState) (rules.BaseParams, error) {
	sell, err := parseTokenFlag(f.sellToken, f.chainID)
	if err != nil {
		return rules.BaseParams{}, err
	}
	buy, err := parseTokenFlag(f.buyToken, f.chainID)
	if err != nil {
		return rules.BaseParams{}, err
	}
	slippage := f.slippage
	if slippage <= 0 {
		slippage = s.settings.SlippageBps
	}
	return rules.BaseParams{
		WalletAddress: f.wallet,
		SellToken:     sell,
		BuyToken:      buy,
		SellAmount:    f.sellAmount,
		SlippageBps:   slippage,
	}, nil
}

func (s *runtimeState) newRuleCommand() *cobra.Command {
	var f ruleFlags
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Create an autonomous trading rule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.createRule(cmd, &f, rules.TradingRule{Type: rules.RuleTypeAutonomousTrade})
		},
	}
	f.register(cmd)
	return cmd
}

func (s *runtimeState) newLimitOrderCommand() *cobra.Command {
	var (
		f            ruleFlags
		triggerPrice string
		direction    string
		profitTarget string
		expiryHours  int
	)
	cmd := &cobra.Command{
		Use:   "limit-order",
		Short: "Create a limit order rule",
		Long: `Registers a limit order with the rule service. The order fires when the
monitored price crosses the trigger; execution happens asynchronously and the
acknowledged rule id is the terminal state here.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rule := rules.TradingRule{
				Type: rules.RuleTypeLimitOrder,
				LimitOrder: &rules.LimitOrderParams{
					TriggerPriceUSD: triggerPrice,
					Direction:       rules.Direction(direction),
					ProfitTargetPct: profitTarget,
					ExpiryHours:     expiryHours,
				},
			}
			return s.createRule(cmd, &f, rule)
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&triggerPrice, "trigger-price", "", "trigger price in decimal USD")
	cmd.Flags().StringVar(&direction, "direction", string(rules.DirectionBuy), "BUY or SELL")
	cmd.Flags().StringVar(&profitTarget, "profit-target-pct", "", "optional profit target percentage")
	cmd.Flags().IntVar(&expiryHours, "expiry-hours", 0, "optional rule expiry in hours")
	_ = cmd.MarkFlagRequired("trigger-price")
	return cmd
}

func (s *runtimeState) createRule(cmd *cobra.Command, f *ruleFlags, rule rules.TradingRule) error {
	trigger, err := f.trigger()
	if err != nil {
		return err
	}
	base, err := f.base(s)
	if err != nil {
		return err
	}
	rule.Trigger = trigger
	rule.Base = base

	orch := s.ruleOrchestrator()
	start := s.runner.now()
	res := orch.CreateRule(cmd.Context(), rule)
	return renderResult(s, cmd, res, start)
}
