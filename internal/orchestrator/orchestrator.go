// Package orchestrator sequences the execution path shared by the swap,
// dust, limit-order and autonomous-trading skills: resolve price, get quote,
// ensure allowance, submit, confirm, report.
package orchestrator

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/asterion-dev/tradepath/internal/allowance"
	tperr "github.com/asterion-dev/tradepath/internal/errors"
	"github.com/asterion-dev/tradepath/internal/execution"
	"github.com/asterion-dev/tradepath/internal/price"
	"github.com/asterion-dev/tradepath/internal/quote"
	"github.com/asterion-dev/tradepath/internal/rules"
	"github.com/asterion-dev/tradepath/internal/token"
)

// Journal states, tracked per order as the state machine advances. The step
// order is fixed: a quote always precedes the allowance check, and allowance
// is ensured before submission.
const (
	statePriceResolved    = "price_resolved"
	stateQuoted           = "quoted"
	stateAllowanceEnsured = "allowance_ensured"
	stateSubmitted        = "submitted"
)

// SwapOrder is one immediate swap. Exactly one of SellAmount (base units) or
// USDAmount (decimal USD) is set; USD-denominated orders resolve through the
// price oracle first.
type SwapOrder struct {
	Wallet      string
	SellToken   token.Ref
	BuyToken    token.Ref
	SellAmount  string
	USDAmount   string
	SlippageBps int64
}

// DustOrder converts every listed low-value token into the target token,
// usually the wrapped native asset.
type DustOrder struct {
	Wallet      string
	Tokens      []token.Ref
	Target      token.Ref
	SlippageBps int64
}

// Orchestrator drives the component pipeline. Every dependency is an
// explicitly injected capability so tests can substitute fakes.
type Orchestrator struct {
	oracle   *price.Oracle
	quotes   quote.Provider
	allow    *allowance.Manager
	executor *execution.Executor
	rules    rules.Creator
	journal  *execution.Journal
	log      *slog.Logger
}

func New(oracle *price.Oracle, quotes quote.Provider, allow *allowance.Manager, executor *execution.Executor, creator rules.Creator, journal *execution.Journal, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		oracle:   oracle,
		quotes:   quotes,
		allow:    allow,
		executor: executor,
		rules:    creator,
		journal:  journal,
		log:      log,
	}
}

// Swap runs one order through the full state machine and reports a terminal
// Result. Errors are classified and rendered; they never propagate as panics.
func (o *Orchestrator) Swap(ctx context.Context, order SwapOrder) Result {
	traceID := uuid.NewString()
	log := o.log.With("trace_id", traceID, "op", "swap")

	record := execution.NewRecord(traceID, "swap", order.SellToken.ChainID, order.Wallet)
	o.save(&record)

	hash, q, err := o.runSwap(ctx, log, &record, order)
	record.TxHash = hash
	if err != nil {
		log.Error("swap failed", "error", err, "kind", tperr.KindOf(err))
		record.Status = string(execution.StatusFailed)
		if tperr.KindOf(err) == tperr.KindTransactionTimedOut {
			record.Status = string(execution.StatusTimedOut)
		}
		record.Error = err.Error()
		o.save(&record)
		res := failure(traceID, err)
		res.TxHash = hash
		if hash != "" {
			res.Outcome = execution.Status(record.Status)
		}
		return res
	}

	record.Status = string(execution.StatusConfirmed)
	o.save(&record)
	res := success(traceID)
	res.TxHash = hash
	res.Outcome = execution.StatusConfirmed
	res.BuyAmount = q.BuyAmount
	res.Route = q.Route
	return res
}

func (o *Orchestrator) runSwap(ctx context.Context, log *slog.Logger, record *execution.Record, order SwapOrder) (string, quote.Quote, error) {
	if err := validateSwap(order); err != nil {
		return "", quote.Quote{}, err
	}

	sellAmount := order.SellAmount
	if order.USDAmount != "" {
		resolved, err := o.oracle.TokenAmountForUSD(ctx, order.SellToken, order.USDAmount)
		if err != nil {
			return "", quote.Quote{}, err
		}
		sellAmount = resolved
		record.Status = statePriceResolved
		o.save(record)
		log.Info("resolved usd amount", "usd", order.USDAmount, "sell_amount", sellAmount)
	}

	required, err := token.ParseBaseUnits(sellAmount)
	if err != nil {
		return "", quote.Quote{}, err
	}
	if required.Sign() == 0 {
		return "", quote.Quote{}, tperr.New(tperr.KindValidation, "swap amount resolves to zero")
	}

	// A wallet with nothing to sell fails before any quote is requested.
	if err := o.allow.RequireBalance(ctx, order.Wallet, order.SellToken, required); err != nil {
		return "", quote.Quote{}, err
	}

	q, err := o.quotes.GetQuote(ctx, quote.Request{
		SellToken:   order.SellToken,
		BuyToken:    order.BuyToken,
		SellAmount:  sellAmount,
		Taker:       order.Wallet,
		SlippageBps: order.SlippageBps,
	})
	if err != nil {
		return "", quote.Quote{}, err
	}
	record.Status = stateQuoted
	record.Payload, _ = json.Marshal(q)
	o.save(record)
	log.Info("quote received", "buy_amount", q.BuyAmount, "route", q.Route)

	// Native sells carry value instead of an ERC-20 transfer, so there is
	// no allowance to raise.
	if !order.SellToken.IsNative() {
		spender := q.AllowanceTarget
		if spender == "" {
			spender = q.Transaction.To
		}
		if err := o.allow.Ensure(ctx, order.Wallet, spender, order.SellToken, required); err != nil {
			return "", quote.Quote{}, err
		}
	}
	record.Status = stateAllowanceEnsured
	o.save(record)

	record.Status = stateSubmitted
	o.save(record)
	outcome, err := o.executor.SubmitAndConfirm(ctx, execution.Request{
		ChainID:     order.SellToken.ChainID,
		FromAddress: order.Wallet,
		ToAddress:   q.Transaction.To,
		Data:        q.Transaction.Data,
		Value:       q.Transaction.Value,
		GasLimit:    q.Transaction.Gas,
	})
	if err != nil {
		return outcome.Hash, q, err
	}
	return outcome.Hash, q, nil
}

// Dust processes each token as an independent instance of the swap state
// machine, sequentially against the single wallet to avoid nonce and
// allowance races. A failure on one token is recorded and the loop moves on.
func (o *Orchestrator) Dust(ctx context.Context, order DustOrder) DustResult {
	traceID := uuid.NewString()
	log := o.log.With("trace_id", traceID, "op", "dust")
	out := DustResult{TraceID: traceID, Items: make([]DustItem, 0, len(order.Tokens))}

	for _, dust := range order.Tokens {
		item := DustItem{Symbol: dust.Symbol, Address: dust.Address}
		if dust.Address == order.Target.Address {
			item.Skipped = true
			out.Items = append(out.Items, item)
			continue
		}

		balance, err := o.allow.Balance(ctx, order.Wallet, dust)
		if err == nil && balance.Sign() == 0 {
			item.Skipped = true
			out.Items = append(out.Items, item)
			continue
		}

		out.Attempted++
		if err != nil {
			item.Kind = tperr.KindOf(err)
			out.Failed++
			out.Items = append(out.Items, item)
			log.Warn("dust item failed", "token", dust.Symbol, "error", err)
			continue
		}

		res := o.Swap(ctx, SwapOrder{
			Wallet:      order.Wallet,
			SellToken:   dust,
			BuyToken:    order.Target,
			SellAmount:  balance.String(),
			SlippageBps: order.SlippageBps,
		})
		item.TxHash = res.TxHash
		if res.OK {
			item.OK = true
			out.Succeeded++
		} else {
			item.Kind = res.ErrorKind
			out.Failed++
			log.Warn("dust item failed", "token", dust.Symbol, "kind", res.ErrorKind)
		}
		out.Items = append(out.Items, item)
	}

	log.Info("dust finished", "attempted", out.Attempted, "succeeded", out.Succeeded, "failed", out.Failed)
	return out
}

// CreateRule submits a limit-order or autonomous-trading rule. The terminal
// state is the remote acknowledgment; the trade itself executes
// asynchronously outside this system.
func (o *Orchestrator) CreateRule(ctx context.Context, rule rules.TradingRule) Result {
	traceID := uuid.NewString()
	log := o.log.With("trace_id", traceID, "op", "rule")

	record := execution.NewRecord(traceID, strings.ToLower(string(rule.Type)), rule.Base.SellToken.ChainID, rule.Base.WalletAddress)
	o.save(&record)

	ack, err := o.rules.CreateRule(ctx, rule)
	if err != nil {
		log.Error("rule creation failed", "error", err, "kind", tperr.KindOf(err))
		record.Status = string(execution.StatusFailed)
		record.Error = err.Error()
		o.save(&record)
		return failure(traceID, err)
	}

	record.Status = ack.Status
	record.Payload, _ = json.Marshal(ack)
	o.save(&record)
	log.Info("rule created", "rule_id", ack.ID, "status", ack.Status)

	res := success(traceID)
	res.RuleAck = &ack
	return res
}

func (o *Orchestrator) save(record *execution.Record) {
	record.Touch()
	if err := o.journal.Save(*record); err != nil {
		o.log.Warn("journal save failed", "order_id", record.ID, "error", err)
	}
}

func validateSwap(order SwapOrder) error {
	if token.NormalizeAddress(order.Wallet) == "" {
		return tperr.New(tperr.KindValidation, "swap requires a wallet address")
	}
	if order.SellToken.Address == "" || order.BuyToken.Address == "" {
		return tperr.New(tperr.KindValidation, "swap requires sell and buy tokens")
	}
	if order.SellToken.ChainID != order.BuyToken.ChainID {
		return tperr.New(tperr.KindValidation, "swap tokens must be on the same chain")
	}
	if (order.SellAmount == "") == (order.USDAmount == "") {
		return tperr.New(tperr.KindValidation, "set exactly one of sell amount or usd amount")
	}
	return nil
}
