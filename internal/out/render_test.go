package out

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	tperr "github.com/asterion-dev/tradepath/internal/errors"
)

func TestRenderJSONEnvelope(t *testing.T) {
	var buf strings.Builder
	env := Success("req-1", map[string]string{"tx": "0xabc"}, 1500*time.Millisecond)
	if err := Render(&buf, env, "json"); err != nil {
		t.Fatalf("render: %v", err)
	}

	var decoded Envelope
	if err := json.Unmarshal([]byte(buf.String()), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.Success || decoded.Meta.RequestID != "req-1" || decoded.Meta.DurationMS != 1500 {
		t.Fatalf("envelope = %+v", decoded)
	}
}

func TestRenderFailureUsesUserMessage(t *testing.T) {
	var buf strings.Builder
	env := Failure("req-2", tperr.Wrap(tperr.KindPriceUnavailable, "upstream 503 at provider xyz", nil), 0)
	if err := Render(&buf, env, "json"); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "provider xyz") {
		t.Fatal("raw provider detail must not reach the rendered output")
	}
	if !strings.Contains(out, string(tperr.KindPriceUnavailable)) {
		t.Fatal("error kind missing from output")
	}
}

func TestRenderPlainMode(t *testing.T) {
	var buf strings.Builder
	if err := Render(&buf, Success("req-3", nil, 0), "plain"); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "ok ") {
		t.Fatalf("plain output = %q", buf.String())
	}

	buf.Reset()
	if err := Render(&buf, Failure("req-4", tperr.New(tperr.KindValidation, "bad"), 0), "plain"); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.HasPrefix(buf.String(), "error ") {
		t.Fatalf("plain output = %q", buf.String())
	}
}
