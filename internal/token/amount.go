package token

import (
	"fmt"
	"math/big"
	"regexp"
	"strings"

	tperr "github.com/asterion-dev/tradepath/internal/errors"
)

var decimalPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// ParseBaseUnits validates an amount given as a non-negative integer string
// in the token's smallest unit.
func ParseBaseUnits(v string) (*big.Int, error) {
	clean := strings.TrimSpace(v)
	n, ok := new(big.Int).SetString(clean, 10)
	if !ok {
		return nil, tperr.New(tperr.KindValidation, "amount must be an integer string in base units")
	}
	if n.Sign() < 0 {
		return nil, tperr.New(tperr.KindValidation, "amount must be non-negative")
	}
	return n, nil
}

// FormatDecimal converts a base-unit integer string into a human-readable
// decimal string, stripping trailing zeros.
func FormatDecimal(baseUnits string, decimals int) string {
	n := new(big.Int)
	n.SetString(baseUnits, 10)
	if decimals == 0 {
		return n.String()
	}

	s := n.String()
	if len(s) <= decimals {
		pad := strings.Repeat("0", decimals-len(s)+1)
		s = pad + s
	}
	intPart := s[:len(s)-decimals]
	fracPart := s[len(s)-decimals:]
	fracPart = strings.TrimRight(fracPart, "0")
	if fracPart == "" {
		return intPart
	}
	return intPart + "." + fracPart
}

// DecimalToBaseUnits converts a decimal string ("1.23") into a base-unit
// integer string for a token with the given decimal count.
func DecimalToBaseUnits(decimal string, decimals int) (string, error) {
	if !decimalPattern.MatchString(decimal) {
		return "", tperr.New(tperr.KindValidation, "amount must be in decimal form like 1.23")
	}
	parts := strings.SplitN(decimal, ".", 2)
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if len(fracPart) > decimals {
		return "", tperr.New(tperr.KindValidation, fmt.Sprintf("decimal precision exceeds token decimals (%d)", decimals))
	}

	fracPart = fracPart + strings.Repeat("0", decimals-len(fracPart))
	combined := intPart + fracPart
	combined = strings.TrimLeft(combined, "0")
	if combined == "" {
		return "0", nil
	}
	if _, ok := new(big.Int).SetString(combined, 10); !ok {
		return "", tperr.New(tperr.KindValidation, "invalid decimal amount")
	}
	return combined, nil
}

// RatToBaseUnits truncates an arbitrary-precision ratio down to the token's
// decimal precision and expands it to a base-unit integer string. Financial
// amounts never pass through floating point.
func RatToBaseUnits(v *big.Rat, decimals int) string {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	scaled := new(big.Rat).Mul(v, new(big.Rat).SetInt(scale))
	// Quo truncates toward zero, which rounds financial amounts down.
	out := new(big.Int).Quo(scaled.Num(), scaled.Denom())
	return out.String()
}
