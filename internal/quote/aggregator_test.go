package quote

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tperr "github.com/asterion-dev/tradepath/internal/errors"
	"github.com/asterion-dev/tradepath/internal/httpx"
	"github.com/asterion-dev/tradepath/internal/token"
)

const (
	wethBase = "0x4200000000000000000000000000000000000006"
	usdcBase = "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913"
	taker    = "0x00000000000000000000000000000000000000aa"
)

func testRequest(t *testing.T) Request {
	t.Helper()
	sell, err := token.NewRef("WETH", wethBase, 18, 8453)
	if err != nil {
		t.Fatal(err)
	}
	buy, err := token.NewRef("USDC", usdcBase, 6, 8453)
	if err != nil {
		t.Fatal(err)
	}
	return Request{
		SellToken:  sell,
		BuyToken:   buy,
		SellAmount: "1000000000000000000",
		Taker:      taker,
	}
}

const quoteBody = `{
  "buyAmount": "2000000000",
  "minBuyAmount": "1980000000",
  "route": {"fills": [{"source": "Uniswap_V3"}, {"source": "Aerodrome"}]},
  "fees": {"zeroExFee": {"amount": "100"}, "gasFee": {"amount": "42"}},
  "transaction": {"to": "0x00000000000000000000000000000000000000bb", "data": "0xdeadbeef", "value": "0", "gas": "210000"},
  "issues": {"allowance": {"spender": "0x00000000000000000000000000000000000000CC"}}
}`

func TestGetQuoteMapsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/swap/allowance-holder/quote" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("0x-api-key") != "test-key" {
			t.Error("missing api key header")
		}
		if r.Header.Get("0x-version") != "v2" {
			t.Error("missing version header")
		}
		q := r.URL.Query()
		if q.Get("sellToken") != wethBase || q.Get("buyToken") != usdcBase {
			t.Errorf("token params: sell=%s buy=%s", q.Get("sellToken"), q.Get("buyToken"))
		}
		if q.Get("chainId") != "8453" || q.Get("taker") != taker {
			t.Errorf("chainId=%s taker=%s", q.Get("chainId"), q.Get("taker"))
		}
		if q.Get("slippageBps") != "100" {
			t.Errorf("default slippage = %s, want 100", q.Get("slippageBps"))
		}
		w.Write([]byte(quoteBody))
	}))
	defer srv.Close()

	a := NewAggregator(httpx.New(2*time.Second, 0), srv.URL, "test-key", token.DefaultRegistry())
	q, err := a.GetQuote(context.Background(), testRequest(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.BuyAmount != "2000000000" || q.MinBuyAmount != "1980000000" {
		t.Fatalf("amounts: buy=%s min=%s", q.BuyAmount, q.MinBuyAmount)
	}
	if q.Route != "Uniswap_V3+Aerodrome" {
		t.Fatalf("route = %s", q.Route)
	}
	if q.AllowanceTarget != "0x00000000000000000000000000000000000000cc" {
		t.Fatalf("allowance target = %s", q.AllowanceTarget)
	}
	if q.Transaction.Gas != "210000" {
		t.Fatalf("gas = %s", q.Transaction.Gas)
	}
}

func TestGetQuoteSendsIntegratorFeeOnStablecoinSide(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("swapFeeToken") != usdcBase {
			t.Errorf("fee token = %s, want the stablecoin side", q.Get("swapFeeToken"))
		}
		if q.Get("swapFeeBps") != "30" {
			t.Errorf("fee bps = %s", q.Get("swapFeeBps"))
		}
		w.Write([]byte(quoteBody))
	}))
	defer srv.Close()

	a := NewAggregator(httpx.New(2*time.Second, 0), srv.URL, "test-key", token.DefaultRegistry()).
		WithIntegratorFee(30, "0x00000000000000000000000000000000000000fe")
	if _, err := a.GetQuote(context.Background(), testRequest(t)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetQuoteRequiresAPIKey(t *testing.T) {
	a := NewAggregator(httpx.New(time.Second, 0), "http://unused.invalid", "", token.DefaultRegistry())
	_, err := a.GetQuote(context.Background(), testRequest(t))
	if tperr.KindOf(err) != tperr.KindValidation {
		t.Fatalf("kind = %s, want %s", tperr.KindOf(err), tperr.KindValidation)
	}
}

func TestGetQuoteRejectsCrossChainPair(t *testing.T) {
	req := testRequest(t)
	req.BuyToken.ChainID = 1
	a := NewAggregator(httpx.New(time.Second, 0), "http://unused.invalid", "k", token.DefaultRegistry())
	if _, err := a.GetQuote(context.Background(), req); err == nil {
		t.Fatal("expected cross-chain validation error")
	}
}

func TestGetQuoteServiceFailureMapsToQuoteUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	a := NewAggregator(httpx.New(2*time.Second, 0), srv.URL, "test-key", token.DefaultRegistry())
	_, err := a.GetQuote(context.Background(), testRequest(t))
	if tperr.KindOf(err) != tperr.KindQuoteUnavailable {
		t.Fatalf("kind = %s, want %s", tperr.KindOf(err), tperr.KindQuoteUnavailable)
	}
}

func TestGetQuoteIncompleteResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"buyAmount": ""}`))
	}))
	defer srv.Close()

	a := NewAggregator(httpx.New(2*time.Second, 0), srv.URL, "test-key", token.DefaultRegistry())
	_, err := a.GetQuote(context.Background(), testRequest(t))
	if tperr.KindOf(err) != tperr.KindQuoteUnavailable {
		t.Fatalf("kind = %s, want %s", tperr.KindOf(err), tperr.KindQuoteUnavailable)
	}
}
