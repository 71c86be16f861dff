// Package rules creates autonomous-trading and limit-order rules through the
// remote rule service. Rules execute asynchronously outside this system; the
// terminal state here is the service acknowledgment.
package rules

import (
	tperr "github.com/asterion-dev/tradepath/internal/errors"
	"github.com/asterion-dev/tradepath/internal/token"
)

type RuleType string

const (
	RuleTypeAutonomousTrade RuleType = "AUTONOMOUS_TRADE"
	RuleTypeLimitOrder      RuleType = "LIMIT_ORDER"
)

type Direction string

const (
	DirectionBuy  Direction = "BUY"
	DirectionSell Direction = "SELL"
)

// Trigger is a closed union: exactly one of the concrete trigger types. Each
// variant carries only its own required fields.
type Trigger interface {
	isTrigger()
	Validate() error
}

// UserTrigger fires on activity of a single tracked wallet.
type UserTrigger struct {
	WalletAddress string `json:"walletAddress"`
}

func (UserTrigger) isTrigger() {}

func (t UserTrigger) Validate() error {
	if token.NormalizeAddress(t.WalletAddress) == "" {
		return tperr.New(tperr.KindValidation, "user trigger requires a wallet address")
	}
	return nil
}

// GroupTrigger fires on aggregate activity of a tracked group.
type GroupTrigger struct {
	GroupID      string `json:"groupId"`
	MinFollowers int    `json:"minFollowers,omitempty"`
}

func (GroupTrigger) isTrigger() {}

func (t GroupTrigger) Validate() error {
	if t.GroupID == "" {
		return tperr.New(tperr.KindValidation, "group trigger requires a group id")
	}
	if t.MinFollowers < 0 {
		return tperr.New(tperr.KindValidation, "minimum followers must be non-negative")
	}
	return nil
}

// BaseParams are shared by every rule variant.
type BaseParams struct {
	WalletAddress string    `json:"walletAddress"`
	SellToken     token.Ref `json:"sellToken"`
	BuyToken      token.Ref `json:"buyToken"`
	// SellAmount is an integer string in the sell token's base units.
	SellAmount  string `json:"sellAmount"`
	SlippageBps int64  `json:"slippageBps,omitempty"`
}

// LimitOrderParams extend a limit-order rule with its trigger condition.
type LimitOrderParams struct {
	// TriggerPriceUSD is the decimal USD price at which the order fires.
	TriggerPriceUSD string    `json:"triggerPriceUsd"`
	Direction       Direction `json:"direction"`
	// ProfitTargetPct, when set, closes the position at the given gain.
	ProfitTargetPct string `json:"profitTargetPct,omitempty"`
	ExpiryHours     int    `json:"expiryHours,omitempty"`
}

// TradingRule is created once from extracted chat parameters and is immutable
// after creation; modification means creating a new rule.
type TradingRule struct {
	Type       RuleType          `json:"ruleType"`
	Trigger    Trigger           `json:"-"`
	Base       BaseParams        `json:"baseParams"`
	LimitOrder *LimitOrderParams `json:"limitOrderParams,omitempty"`
}

func (r TradingRule) Validate() error {
	switch r.Type {
	case RuleTypeAutonomousTrade, RuleTypeLimitOrder:
	default:
		return tperr.New(tperr.KindValidation, "unknown rule type")
	}
	if r.Trigger == nil {
		return tperr.New(tperr.KindValidation, "rule requires a trigger")
	}
	if err := r.Trigger.Validate(); err != nil {
		return err
	}
	if token.NormalizeAddress(r.Base.WalletAddress) == "" {
		return tperr.New(tperr.KindValidation, "rule requires the executing wallet address")
	}
	if r.Base.SellToken.Address == "" || r.Base.BuyToken.Address == "" {
		return tperr.New(tperr.KindValidation, "rule requires sell and buy tokens")
	}
	if _, err := token.ParseBaseUnits(r.Base.SellAmount); err != nil {
		return err
	}
	if r.Type == RuleTypeLimitOrder {
		if r.LimitOrder == nil {
			return tperr.New(tperr.KindValidation, "limit order rule requires limit order parameters")
		}
		if r.LimitOrder.TriggerPriceUSD == "" {
			return tperr.New(tperr.KindValidation, "limit order requires a trigger price")
		}
		switch r.LimitOrder.Direction {
		case DirectionBuy, DirectionSell:
		default:
			return tperr.New(tperr.KindValidation, "limit order direction must be BUY or SELL")
		}
	}
	return nil
}

// Ack is the rule service acknowledgment.
type Ack struct {
	ID           string   `json:"id"`
	RequestID    string   `json:"requestId"`
	RuleType     RuleType `json:"ruleType"`
	Status       string   `json:"status"`
	Instructions string   `json:"instructions,omitempty"`
}
