// Package execution submits transactions through the wallet-signing service
// and polls the chain for confirmation.
package execution

import (
	"context"
	"errors"
	"log/slog"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/asterion-dev/tradepath/internal/chain"
	tperr "github.com/asterion-dev/tradepath/internal/errors"
	"github.com/asterion-dev/tradepath/internal/wallet"
)

// Request describes one transaction to submit. Gas fields are optional; when
// GasLimit is empty the quote did not carry an estimate and the wallet
// service estimates on its side.
type Request struct {
	ChainID     int64
	FromAddress string
	ToAddress   string
	Data        string
	Value       string
	GasLimit    string
}

type Options struct {
	PollInterval   time.Duration
	ConfirmTimeout time.Duration
	// GasBuffer multiplies fee fields and the quote-derived gas limit to
	// reduce underpriced-transaction failures.
	GasBuffer float64
}

func DefaultOptions() Options {
	return Options{
		PollInterval:   2 * time.Second,
		ConfirmTimeout: 60 * time.Second,
		GasBuffer:      1.2,
	}
}

// Executor drives submit-and-confirm for a single chain backend. The sender
// is a capability injected by the caller; the executor never looks up signing
// state ambiently.
type Executor struct {
	backend chain.Backend
	sender  wallet.Sender
	opts    Options
	log     *slog.Logger
}

func NewExecutor(backend chain.Backend, sender wallet.Sender, opts Options, log *slog.Logger) *Executor {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = 60 * time.Second
	}
	if opts.GasBuffer <= 1 {
		opts.GasBuffer = 1.2
	}
	if log == nil {
		log = slog.Default()
	}
	return &Executor{backend: backend, sender: sender, opts: opts, log: log}
}

// SubmitAndConfirm submits req with buffered gas parameters and waits for a
// receipt. Submission is at-most-once: a TimedOut outcome is never followed
// by an automatic re-broadcast.
func (e *Executor) SubmitAndConfirm(ctx context.Context, req Request) (Outcome, error) {
	if strings.TrimSpace(req.FromAddress) == "" || strings.TrimSpace(req.ToAddress) == "" {
		return Outcome{}, tperr.New(tperr.KindValidation, "transaction requires from and to addresses")
	}

	txReq, err := e.buildTxRequest(ctx, req)
	if err != nil {
		return Outcome{}, err
	}

	hash, err := e.sender.SendTransaction(ctx, req.ChainID, txReq)
	if err != nil {
		return Outcome{}, tperr.Reclassify(tperr.KindSubmissionFailed, "submit transaction", err)
	}
	e.log.Info("transaction submitted", "hash", hash, "chain_id", req.ChainID, "to", req.ToAddress)

	return e.confirm(ctx, hash)
}

func (e *Executor) buildTxRequest(ctx context.Context, req Request) (wallet.TxRequest, error) {
	fees, err := e.backend.FeeData(ctx)
	if err != nil {
		return wallet.TxRequest{}, tperr.Reclassify(tperr.KindSubmissionFailed, "fetch fee data", err)
	}

	out := wallet.TxRequest{
		FromAddress: req.FromAddress,
		ToAddress:   req.ToAddress,
		Data:        req.Data,
		Value:       valueOrZero(req.Value),
	}
	if req.GasLimit != "" {
		limit, ok := new(big.Int).SetString(req.GasLimit, 10)
		if !ok {
			return wallet.TxRequest{}, tperr.New(tperr.KindValidation, "invalid gas limit on request")
		}
		out.GasLimit = buffer(limit, e.opts.GasBuffer).String()
	}

	if fees.BaseFee != nil {
		tip := buffer(fees.TipCap, e.opts.GasBuffer)
		// feeCap covers two full base-fee blocks plus the buffered tip.
		maxFee := new(big.Int).Mul(fees.BaseFee, big.NewInt(2))
		maxFee.Add(maxFee, fees.TipCap)
		out.MaxFeePerGas = buffer(maxFee, e.opts.GasBuffer).String()
		out.MaxPriorityFeePerGas = tip.String()
		return out, nil
	}
	if fees.GasPrice == nil {
		return wallet.TxRequest{}, tperr.New(tperr.KindSubmissionFailed, "fee data carries neither base fee nor gas price")
	}
	out.GasPrice = buffer(fees.GasPrice, e.opts.GasBuffer).String()
	return out, nil
}

func (e *Executor) confirm(ctx context.Context, hash string) (Outcome, error) {
	waitCtx, cancel := context.WithTimeout(ctx, e.opts.ConfirmTimeout)
	defer cancel()
	ticker := time.NewTicker(e.opts.PollInterval)
	defer ticker.Stop()

	txHash := common.HexToHash(hash)
	for {
		receipt, err := e.backend.TransactionReceipt(waitCtx, txHash)
		if err == nil && receipt != nil {
			if receipt.Status == types.ReceiptStatusSuccessful {
				e.log.Info("transaction confirmed", "hash", hash, "block", receipt.BlockNumber)
				return Outcome{Status: StatusConfirmed, Hash: hash, Receipt: receipt}, nil
			}
			e.log.Warn("transaction reverted", "hash", hash, "block", receipt.BlockNumber)
			return Outcome{Status: StatusFailed, Hash: hash, Reason: "reverted on-chain", Receipt: receipt},
				tperr.New(tperr.KindTransactionReverted, "transaction reverted on-chain")
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			// Transient polling failures are tolerated until the deadline.
			e.log.Debug("receipt poll error", "hash", hash, "error", err)
		}
		select {
		case <-waitCtx.Done():
			e.log.Warn("confirmation window elapsed", "hash", hash, "timeout", e.opts.ConfirmTimeout)
			return Outcome{Status: StatusTimedOut, Hash: hash},
				tperr.New(tperr.KindTransactionTimedOut, "timed out waiting for receipt")
		case <-ticker.C:
		}
	}
}

// buffer multiplies v by factor using integer math: v * round(factor*100) / 100.
func buffer(v *big.Int, factor float64) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	pct := big.NewInt(int64(factor*100 + 0.5))
	out := new(big.Int).Mul(v, pct)
	return out.Div(out, big.NewInt(100))
}

func valueOrZero(v string) string {
	if strings.TrimSpace(v) == "" {
		return "0"
	}
	return v
}
