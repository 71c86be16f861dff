package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	tperr "github.com/asterion-dev/tradepath/internal/errors"
)

func get(t *testing.T, url string) *http.Request {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	return req
}

func TestRetryBudgetBoundsAttempts(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(2*time.Second, 2)
	_, err := c.DoJSON(context.Background(), get(t, srv.URL), nil)
	if err == nil {
		t.Fatal("expected error after exhausted retries")
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("attempts = %d, want 3 (1 initial + 2 retries)", got)
	}
	if tperr.KindOf(err) != tperr.KindUnavailable {
		t.Fatalf("kind = %s, want %s", tperr.KindOf(err), tperr.KindUnavailable)
	}
}

func TestRateLimitedIsRetriedThenSucceeds(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	c := New(2*time.Second, 2)
	if _, err := c.DoJSON(context.Background(), get(t, srv.URL), &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !out.OK {
		t.Fatal("expected decoded body")
	}
	if calls.Load() != 2 {
		t.Fatalf("attempts = %d, want 2", calls.Load())
	}
}

func TestClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(2*time.Second, 3)
	_, err := c.DoJSON(context.Background(), get(t, srv.URL), nil)
	if tperr.KindOf(err) != tperr.KindValidation {
		t.Fatalf("kind = %s, want %s", tperr.KindOf(err), tperr.KindValidation)
	}
	if calls.Load() != 1 {
		t.Fatalf("attempts = %d, want 1", calls.Load())
	}
}

func TestAuthFailureIsTerminal(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(2*time.Second, 3)
	_, err := c.DoJSON(context.Background(), get(t, srv.URL), nil)
	if tperr.KindOf(err) != tperr.KindAuth {
		t.Fatalf("kind = %s, want %s", tperr.KindOf(err), tperr.KindAuth)
	}
	if calls.Load() != 1 {
		t.Fatalf("attempts = %d, want 1", calls.Load())
	}
}

func TestDoBodyJSONReplaysBodyAcrossRetries(t *testing.T) {
	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 64)
		n, _ := r.Body.Read(buf)
		if string(buf[:n]) != `{"q":1}` {
			t.Errorf("attempt %d body = %q", calls.Load()+1, buf[:n])
		}
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New(2*time.Second, 1)
	var out map[string]any
	if _, err := DoBodyJSON(context.Background(), c, http.MethodPost, srv.URL, []byte(`{"q":1}`), nil, &out); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("attempts = %d, want 2", calls.Load())
	}
}
