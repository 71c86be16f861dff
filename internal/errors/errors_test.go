package errors

import (
	"fmt"
	"testing"
)

func TestKindOfDefaultsToInternal(t *testing.T) {
	if got := KindOf(fmt.Errorf("boom")); got != KindInternal {
		t.Fatalf("got %s, want %s", got, KindInternal)
	}
	if got := KindOf(New(KindRateLimited, "slow down")); got != KindRateLimited {
		t.Fatalf("got %s, want %s", got, KindRateLimited)
	}
	if got := KindOf(nil); got != "" {
		t.Fatalf("got %q for nil error", got)
	}
}

func TestWrapPreservesKindThroughChain(t *testing.T) {
	inner := New(KindInsufficientBalance, "no funds")
	outer := fmt.Errorf("while swapping: %w", inner)
	typed, ok := As(outer)
	if !ok {
		t.Fatal("expected typed error through wrap chain")
	}
	if typed.Kind != KindInsufficientBalance {
		t.Fatalf("kind = %s", typed.Kind)
	}
}

func TestRetryable(t *testing.T) {
	retryable := []Kind{KindUnavailable, KindRateLimited}
	for _, k := range retryable {
		if !k.Retryable() {
			t.Fatalf("%s should be retryable", k)
		}
	}
	terminal := []Kind{KindValidation, KindInsufficientBalance, KindTransactionReverted, KindTransactionTimedOut, KindAuth}
	for _, k := range terminal {
		if k.Retryable() {
			t.Fatalf("%s should not be retryable", k)
		}
	}
}

func TestReclassify(t *testing.T) {
	// Retry-exhausted infrastructure failures collapse into the domain kind.
	infra := New(KindUnavailable, "service down")
	out := Reclassify(KindQuoteUnavailable, "fetch quote", infra)
	if out.Kind != KindQuoteUnavailable {
		t.Fatalf("kind = %s, want %s", out.Kind, KindQuoteUnavailable)
	}

	// Terminal domain kinds pass through untouched.
	balance := New(KindInsufficientBalance, "no funds")
	out = Reclassify(KindSubmissionFailed, "submit", balance)
	if out.Kind != KindInsufficientBalance {
		t.Fatalf("kind = %s, want %s", out.Kind, KindInsufficientBalance)
	}

	// Untyped causes take the new kind.
	out = Reclassify(KindSubmissionFailed, "submit", fmt.Errorf("socket closed"))
	if out.Kind != KindSubmissionFailed {
		t.Fatalf("kind = %s, want %s", out.Kind, KindSubmissionFailed)
	}
}

func TestUserMessageNeverEmpty(t *testing.T) {
	kinds := []Kind{
		KindValidation, KindPriceUnavailable, KindQuoteUnavailable,
		KindInsufficientBalance, KindApprovalFailed, KindSubmissionFailed,
		KindTransactionReverted, KindTransactionTimedOut, KindRuleCreationFailed,
		KindUnavailable, KindRateLimited, KindAuth, KindInternal, Kind("unknown"),
	}
	for _, k := range kinds {
		if k.UserMessage() == "" {
			t.Fatalf("empty user message for %s", k)
		}
	}
}
