package price

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	tperr "github.com/asterion-dev/tradepath/internal/errors"
	"github.com/asterion-dev/tradepath/internal/httpx"
	"github.com/asterion-dev/tradepath/internal/token"
)

func priceServer(t *testing.T, prices map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/price" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		price, ok := prices[r.URL.Query().Get("address")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprintf(w, `{"price":%q}`, price)
	}))
}

func mustRef(t *testing.T, symbol, address string, decimals int, chainID int64) token.Ref {
	t.Helper()
	ref, err := token.NewRef(symbol, address, decimals, chainID)
	if err != nil {
		t.Fatalf("ref %s: %v", symbol, err)
	}
	return ref
}

func TestConvertUsesUSDCrossRate(t *testing.T) {
	weth := "0x4200000000000000000000000000000000000006"
	usdc := "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913"
	srv := priceServer(t, map[string]string{weth: "2000", usdc: "1"})
	defer srv.Close()

	o := NewOracle(httpx.New(2*time.Second, 0), srv.URL, token.DefaultRegistry(), nil)
	eth := mustRef(t, "ETH", token.NativeAddress, 18, 8453)
	stable := mustRef(t, "USDC", usdc, 6, 8453)

	// 1 ETH at $2000 into a $1 6-decimal token.
	got, err := o.Convert(context.Background(), eth, stable, "1000000000000000000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "2000000000" {
		t.Fatalf("got %s, want 2000000000", got)
	}
}

func TestConvertTruncatesTowardZero(t *testing.T) {
	weth := "0x4200000000000000000000000000000000000006"
	usdc := "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913"
	srv := priceServer(t, map[string]string{weth: "2999.999999", usdc: "3"})
	defer srv.Close()

	o := NewOracle(httpx.New(2*time.Second, 0), srv.URL, token.DefaultRegistry(), nil)
	eth := mustRef(t, "ETH", token.NativeAddress, 18, 8453)
	stable := mustRef(t, "USDC", usdc, 6, 8453)

	// 1 wei: far below one base unit of the target, must truncate to zero.
	got, err := o.Convert(context.Background(), eth, stable, "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0" {
		t.Fatalf("got %s, want 0", got)
	}
}

func TestConvertZeroAmountShortCircuits(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	o := NewOracle(httpx.New(2*time.Second, 0), srv.URL, token.DefaultRegistry(), nil)
	eth := mustRef(t, "ETH", token.NativeAddress, 18, 8453)
	usdc := mustRef(t, "USDC", "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913", 6, 8453)

	got, err := o.Convert(context.Background(), eth, usdc, "0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0" {
		t.Fatalf("got %s, want 0", got)
	}
	if calls.Load() != 0 {
		t.Fatal("zero amount must not hit the price service")
	}
}

func TestTokenAmountForUSD(t *testing.T) {
	weth := "0x4200000000000000000000000000000000000006"
	srv := priceServer(t, map[string]string{weth: "2000"})
	defer srv.Close()

	o := NewOracle(httpx.New(2*time.Second, 0), srv.URL, token.DefaultRegistry(), nil)
	eth := mustRef(t, "ETH", token.NativeAddress, 18, 8453)

	got, err := o.TokenAmountForUSD(context.Background(), eth, "50")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// $50 / $2000 = 0.025 ETH.
	if got != "25000000000000000" {
		t.Fatalf("got %s, want 25000000000000000", got)
	}

	if _, err := o.TokenAmountForUSD(context.Background(), eth, "-5"); err == nil {
		t.Fatal("expected validation error for negative usd amount")
	}
}

func TestUnknownTokenMapsToPriceUnavailable(t *testing.T) {
	srv := priceServer(t, map[string]string{})
	defer srv.Close()

	o := NewOracle(httpx.New(2*time.Second, 0), srv.URL, token.DefaultRegistry(), nil)
	unknown := mustRef(t, "XYZ", "0x1111111111111111111111111111111111111111", 18, 8453)

	_, err := o.USDPrice(context.Background(), unknown)
	if tperr.KindOf(err) != tperr.KindPriceUnavailable {
		t.Fatalf("kind = %s, want %s", tperr.KindOf(err), tperr.KindPriceUnavailable)
	}
}
