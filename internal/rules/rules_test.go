package rules

import (
	"testing"

	tperr "github.com/asterion-dev/tradepath/internal/errors"
	"github.com/asterion-dev/tradepath/internal/token"
)

func validRule(t *testing.T) TradingRule {
	t.Helper()
	sell, err := token.NewRef("WETH", "0x4200000000000000000000000000000000000006", 18, 8453)
	if err != nil {
		t.Fatal(err)
	}
	buy, err := token.NewRef("USDC", "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913", 6, 8453)
	if err != nil {
		t.Fatal(err)
	}
	return TradingRule{
		Type:    RuleTypeLimitOrder,
		Trigger: UserTrigger{WalletAddress: "0x00000000000000000000000000000000000000aa"},
		Base: BaseParams{
			WalletAddress: "0x00000000000000000000000000000000000000aa",
			SellToken:     sell,
			BuyToken:      buy,
			SellAmount:    "1000000000000000000",
		},
		LimitOrder: &LimitOrderParams{
			TriggerPriceUSD: "1800.50",
			Direction:       DirectionSell,
		},
	}
}

func TestValidRulePasses(t *testing.T) {
	if err := validRule(t).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRuleRequiresTrigger(t *testing.T) {
	rule := validRule(t)
	rule.Trigger = nil
	if tperr.KindOf(rule.Validate()) != tperr.KindValidation {
		t.Fatal("expected validation error for missing trigger")
	}
}

func TestLimitOrderRequiresParams(t *testing.T) {
	rule := validRule(t)
	rule.LimitOrder = nil
	if rule.Validate() == nil {
		t.Fatal("expected error for limit order without parameters")
	}

	rule = validRule(t)
	rule.LimitOrder.TriggerPriceUSD = ""
	if rule.Validate() == nil {
		t.Fatal("expected error for missing trigger price")
	}
}

func TestAutonomousTradeNeedsNoLimitParams(t *testing.T) {
	rule := validRule(t)
	rule.Type = RuleTypeAutonomousTrade
	rule.LimitOrder = nil
	if err := rule.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGroupTriggerValidation(t *testing.T) {
	if err := (GroupTrigger{GroupID: "g-1", MinFollowers: 10}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if (GroupTrigger{}).Validate() == nil {
		t.Fatal("expected error for empty group id")
	}
	if (GroupTrigger{GroupID: "g-1", MinFollowers: -1}).Validate() == nil {
		t.Fatal("expected error for negative min followers")
	}
}

func TestUnknownRuleTypeRejected(t *testing.T) {
	rule := validRule(t)
	rule.Type = RuleType("SOMETHING_ELSE")
	if rule.Validate() == nil {
		t.Fatal("expected error for unknown rule type")
	}
}
