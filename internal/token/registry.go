package token

import (
	tperr "github.com/asterion-dev/tradepath/internal/errors"
)

// ERC20MinimalABI covers the calls the execution path needs: allowance and
// balance reads plus the approve write.
const ERC20MinimalABI = `[
  {"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
  {"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable","type":"function"}
]`

// ChainTokens holds the per-chain token addresses the execution path depends
// on: the wrapped-native token substituted for the native pseudo-address, and
// the stablecoins preferred as swap fee tokens.
type ChainTokens struct {
	WrappedNative Ref
	Stablecoins   []Ref
}

// Registry resolves chain-scoped well-known tokens. It is built once from
// configuration and read-only afterwards.
type Registry struct {
	chains map[int64]ChainTokens
}

func NewRegistry(chains map[int64]ChainTokens) *Registry {
	if chains == nil {
		chains = map[int64]ChainTokens{}
	}
	return &Registry{chains: chains}
}

// WrapNative substitutes the wrapped-native token whenever the native
// pseudo-address is supplied. All other refs pass through unchanged.
func (r *Registry) WrapNative(ref Ref) (Ref, error) {
	if !ref.IsNative() {
		return ref, nil
	}
	chain, ok := r.chains[ref.ChainID]
	if !ok || chain.WrappedNative.Address == "" {
		return Ref{}, tperr.New(tperr.KindValidation, "no wrapped-native token configured for chain")
	}
	return chain.WrappedNative, nil
}

// IsStablecoin reports whether ref is one of the chain's configured
// stablecoins.
func (r *Registry) IsStablecoin(ref Ref) bool {
	chain, ok := r.chains[ref.ChainID]
	if !ok {
		return false
	}
	for _, s := range chain.Stablecoins {
		if s.Address == ref.Address {
			return true
		}
	}
	return false
}

// DefaultRegistry covers Ethereum mainnet and Base, the chains the agent
// skills ship with. Additional chains come from configuration.
func DefaultRegistry() *Registry {
	weth, _ := NewRef("WETH", "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2", 18, 1)
	usdcMainnet, _ := NewRef("USDC", "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48", 6, 1)
	daiMainnet, _ := NewRef("DAI", "0x6b175474e89094c44da98b954eedeac495271d0f", 18, 1)
	wethBase, _ := NewRef("WETH", "0x4200000000000000000000000000000000000006", 18, 8453)
	usdcBase, _ := NewRef("USDC", "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913", 6, 8453)
	return NewRegistry(map[int64]ChainTokens{
		1: {
			WrappedNative: weth,
			Stablecoins:   []Ref{usdcMainnet, daiMainnet},
		},
		8453: {
			WrappedNative: wethBase,
			Stablecoins:   []Ref{usdcBase},
		},
	})
}
