package token

import (
	"strconv"
	"strings"

	tperr "github.com/asterion-dev/tradepath/internal/errors"
	"github.com/ethereum/go-ethereum/common"
)

// NativeAddress is the pseudo-address used by aggregators and chat commands
// to mean the chain's native asset. Price services do not quote it directly,
// so lookups substitute the wrapped-native token (see Registry.WrapNative).
const NativeAddress = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

// Ref identifies one ERC-20 token on one chain. Refs are resolved once per
// operation and never mutated afterwards.
type Ref struct {
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
	ChainID  int64  `json:"chain_id"`
}

// NewRef validates and normalizes a token reference. Addresses are lowercased
// so they can be used as cache and map keys without checksum mismatches.
func NewRef(symbol, address string, decimals int, chainID int64) (Ref, error) {
	address = NormalizeAddress(address)
	if address == "" {
		return Ref{}, tperr.New(tperr.KindValidation, "token address is required")
	}
	if address != NativeAddress && !common.IsHexAddress(address) {
		return Ref{}, tperr.New(tperr.KindValidation, "token address must be a valid EVM address")
	}
	if decimals < 0 || decimals > 77 {
		return Ref{}, tperr.New(tperr.KindValidation, "token decimals out of range")
	}
	if chainID <= 0 {
		return Ref{}, tperr.New(tperr.KindValidation, "chain id must be positive")
	}
	return Ref{
		Symbol:   strings.ToUpper(strings.TrimSpace(symbol)),
		Address:  address,
		Decimals: decimals,
		ChainID:  chainID,
	}, nil
}

// IsNative reports whether the ref is the native-asset pseudo-token.
func (r Ref) IsNative() bool {
	return r.Address == NativeAddress
}

// CacheKey is the canonical key for per-token caches, scoped by chain.
func (r Ref) CacheKey() string {
	return strings.Join([]string{"token", strconv.FormatInt(r.ChainID, 10), r.Address}, "|")
}

// NormalizeAddress lowercases a hex address after trimming whitespace.
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
