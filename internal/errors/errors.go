package errors

import (
	"errors"
	"fmt"
)

// Kind is a stable, machine-readable classification of a terminal failure.
// Provider-specific error shapes are wrapped into a Kind at the boundary so
// internal code never branches on raw HTTP or RPC errors.
type Kind string

const (
	KindValidation          Kind = "validation_error"
	KindPriceUnavailable    Kind = "price_unavailable"
	KindQuoteUnavailable    Kind = "quote_unavailable"
	KindInsufficientBalance Kind = "insufficient_balance"
	KindApprovalFailed      Kind = "approval_failed"
	KindSubmissionFailed    Kind = "submission_failed"
	KindTransactionReverted Kind = "transaction_reverted"
	KindTransactionTimedOut Kind = "transaction_timed_out"
	KindRuleCreationFailed  Kind = "rule_creation_failed"

	KindUnavailable Kind = "unavailable"
	KindRateLimited Kind = "rate_limited"
	KindAuth        Kind = "auth_failed"
	KindInternal    Kind = "internal"
)

// UserMessage returns the plain-language message shown to end users. Raw
// provider errors and stack traces stay in logs only.
func (k Kind) UserMessage() string {
	switch k {
	case KindValidation:
		return "The request is missing or has an invalid parameter."
	case KindPriceUnavailable:
		return "Could not fetch a price for one of the tokens. Please try again later."
	case KindQuoteUnavailable:
		return "Could not get a swap quote right now. Please try again later."
	case KindInsufficientBalance:
		return "The wallet does not hold enough of the token to trade."
	case KindApprovalFailed:
		return "The token approval transaction failed."
	case KindSubmissionFailed:
		return "The transaction could not be submitted."
	case KindTransactionReverted:
		return "The transaction was rejected by the network."
	case KindTransactionTimedOut:
		return "The transaction was submitted but confirmation could not be observed in time."
	case KindRuleCreationFailed:
		return "The trading rule could not be created."
	case KindRateLimited:
		return "The service is busy. Please try again in a moment."
	case KindAuth:
		return "Authentication with an upstream service failed."
	case KindUnavailable:
		return "An upstream service is temporarily unavailable."
	default:
		return "Something went wrong. Please try again."
	}
}

// Retryable reports whether a failure of this kind may succeed on a fresh
// attempt. Logic errors and terminal chain outcomes are never retryable.
func (k Kind) Retryable() bool {
	switch k {
	case KindUnavailable, KindRateLimited:
		return true
	default:
		return false
	}
}

// Error is a typed error carrying a stable kind across package boundaries.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error { return e.Cause }

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

func As(err error) (*Error, bool) {
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// KindOf extracts the kind from err, defaulting to KindInternal for untyped
// errors so callers always have a closed set to render from.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if typed, ok := As(err); ok {
		return typed.Kind
	}
	return KindInternal
}

// Reclassify rewraps err under kind when err is not already one of the
// terminal domain kinds. Infrastructure kinds (unavailable, rate limited)
// collapse into the terminal kind at the component boundary on retry
// exhaustion.
func Reclassify(kind Kind, message string, err error) *Error {
	if typed, ok := As(err); ok && !typed.Kind.Retryable() {
		if typed.Kind == KindAuth || typed.Kind == KindInternal {
			return Wrap(kind, message, err)
		}
		return typed
	}
	return Wrap(kind, message, err)
}
