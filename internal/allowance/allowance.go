// Package allowance checks and raises ERC-20 spending allowances ahead of
// swap execution.
package allowance

import (
	"context"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/asterion-dev/tradepath/internal/chain"
	tperr "github.com/asterion-dev/tradepath/internal/errors"
	"github.com/asterion-dev/tradepath/internal/execution"
	"github.com/asterion-dev/tradepath/internal/token"
)

// MaxApproval is the amount written on approval so repeated swaps do not each
// pay for their own approval transaction.
var MaxApproval = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

var (
	erc20ABI     abi.ABI
	erc20ABIOnce sync.Once
)

func loadERC20ABI() abi.ABI {
	erc20ABIOnce.Do(func() {
		parsed, err := abi.JSON(strings.NewReader(token.ERC20MinimalABI))
		if err != nil {
			panic(err)
		}
		erc20ABI = parsed
	})
	return erc20ABI
}

// Manager reads on-chain allowance state and raises it when a swap needs
// more. Allowance is always read fresh: on-chain state can change between
// operations, so nothing here is cached.
type Manager struct {
	backend  chain.Backend
	executor *execution.Executor
	log      *slog.Logger
}

func NewManager(backend chain.Backend, executor *execution.Executor, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{backend: backend, executor: executor, log: log}
}

// Ensure guarantees spender may move at least required of ref on behalf of
// owner. When the current allowance is short it submits a max approval
// through the executor and waits for it to confirm, so callers must treat
// this as potentially one block slow.
func (m *Manager) Ensure(ctx context.Context, owner, spender string, ref token.Ref, required *big.Int) error {
	if required == nil || required.Sign() <= 0 {
		return tperr.New(tperr.KindValidation, "required allowance must be positive")
	}
	if !common.IsHexAddress(owner) || !common.IsHexAddress(spender) {
		return tperr.New(tperr.KindValidation, "owner and spender must be valid EVM addresses")
	}

	current, err := m.Allowance(ctx, owner, spender, ref)
	if err != nil {
		return err
	}
	if current.Cmp(required) >= 0 {
		return nil
	}
	m.log.Info("raising allowance", "token", ref.Symbol, "spender", spender, "current", current, "required", required)

	data, err := loadERC20ABI().Pack("approve", common.HexToAddress(spender), MaxApproval)
	if err != nil {
		return tperr.Wrap(tperr.KindInternal, "pack approval calldata", err)
	}
	outcome, err := m.executor.SubmitAndConfirm(ctx, execution.Request{
		ChainID:     ref.ChainID,
		FromAddress: owner,
		ToAddress:   ref.Address,
		Data:        "0x" + common.Bytes2Hex(data),
		Value:       "0",
	})
	if err != nil {
		return tperr.Reclassify(tperr.KindApprovalFailed, "approval transaction", err)
	}
	if outcome.Status != execution.StatusConfirmed {
		return tperr.New(tperr.KindApprovalFailed, "approval transaction did not confirm")
	}
	return nil
}

// Allowance reads the current on-chain allowance.
func (m *Manager) Allowance(ctx context.Context, owner, spender string, ref token.Ref) (*big.Int, error) {
	data, err := loadERC20ABI().Pack("allowance", common.HexToAddress(owner), common.HexToAddress(spender))
	if err != nil {
		return nil, tperr.Wrap(tperr.KindInternal, "pack allowance call", err)
	}
	out, err := m.call(ctx, ref.Address, data)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(out), nil
}

// Balance returns owner's balance of ref; the native asset reads the account
// balance instead of an ERC-20 call.
func (m *Manager) Balance(ctx context.Context, owner string, ref token.Ref) (*big.Int, error) {
	if !common.IsHexAddress(owner) {
		return nil, tperr.New(tperr.KindValidation, "owner must be a valid EVM address")
	}
	if ref.IsNative() {
		balance, err := m.backend.BalanceAt(ctx, common.HexToAddress(owner))
		if err != nil {
			return nil, err
		}
		return balance, nil
	}
	data, err := loadERC20ABI().Pack("balanceOf", common.HexToAddress(owner))
	if err != nil {
		return nil, tperr.Wrap(tperr.KindInternal, "pack balance call", err)
	}
	out, err := m.call(ctx, ref.Address, data)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(out), nil
}

// RequireBalance fails with InsufficientBalance unless owner holds at least
// required of ref. A zero balance is a fatal precondition, never retried.
func (m *Manager) RequireBalance(ctx context.Context, owner string, ref token.Ref, required *big.Int) error {
	balance, err := m.Balance(ctx, owner, ref)
	if err != nil {
		return err
	}
	if balance.Sign() == 0 {
		return tperr.New(tperr.KindInsufficientBalance, "wallet holds no "+ref.Symbol)
	}
	if required != nil && balance.Cmp(required) < 0 {
		return tperr.New(tperr.KindInsufficientBalance, "wallet balance below requested amount")
	}
	return nil
}

func (m *Manager) call(ctx context.Context, contract string, data []byte) ([]byte, error) {
	target := common.HexToAddress(contract)
	return m.backend.CallContract(ctx, ethereum.CallMsg{To: &target, Data: data})
}
