package orchestrator

import (
	tperr "github.com/asterion-dev/tradepath/internal/errors"
	"github.com/asterion-dev/tradepath/internal/execution"
	"github.com/asterion-dev/tradepath/internal/rules"
)

// Result is the single value every orchestrated operation returns to the host
// layer. Errors never cross this boundary as panics or raw provider objects:
// failures carry a machine kind plus the plain-language message to render.
type Result struct {
	OK      bool   `json:"ok"`
	TraceID string `json:"trace_id"`

	// Success payloads, one of which is set depending on the operation.
	TxHash    string           `json:"tx_hash,omitempty"`
	Outcome   execution.Status `json:"outcome,omitempty"`
	BuyAmount string           `json:"buy_amount,omitempty"`
	Route     string           `json:"route,omitempty"`
	RuleAck   *rules.Ack       `json:"rule,omitempty"`

	// Failure payload.
	ErrorKind tperr.Kind `json:"error_kind,omitempty"`
	Message   string     `json:"message,omitempty"`
}

func success(traceID string) Result {
	return Result{OK: true, TraceID: traceID}
}

func failure(traceID string, err error) Result {
	kind := tperr.KindOf(err)
	return Result{
		OK:        false,
		TraceID:   traceID,
		ErrorKind: kind,
		Message:   kind.UserMessage(),
	}
}

// DustItem reports one token's pass through the dust state machine.
type DustItem struct {
	Symbol  string     `json:"symbol"`
	Address string     `json:"address"`
	TxHash  string     `json:"tx_hash,omitempty"`
	OK      bool       `json:"ok"`
	Skipped bool       `json:"skipped,omitempty"`
	Kind    tperr.Kind `json:"error_kind,omitempty"`
}

// DustResult aggregates the per-token results of a dusting run. A failed item
// never aborts its siblings; the summary counts succeeded versus attempted.
type DustResult struct {
	TraceID   string     `json:"trace_id"`
	Attempted int        `json:"attempted"`
	Succeeded int        `json:"succeeded"`
	Failed    int        `json:"failed"`
	Items     []DustItem `json:"items"`
}
