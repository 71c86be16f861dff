// Package out renders operation results for the host layer.
package out

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	tperr "github.com/asterion-dev/tradepath/internal/errors"
)

// Envelope wraps every rendered result with request metadata.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorBody `json:"error,omitempty"`
	Meta    Meta       `json:"meta"`
}

type ErrorBody struct {
	Kind    tperr.Kind `json:"kind"`
	Message string     `json:"message"`
}

type Meta struct {
	RequestID  string    `json:"request_id"`
	Timestamp  time.Time `json:"timestamp"`
	DurationMS int64     `json:"duration_ms"`
}

func Success(requestID string, data any, took time.Duration) Envelope {
	return Envelope{
		Success: true,
		Data:    data,
		Meta:    Meta{RequestID: requestID, Timestamp: time.Now().UTC(), DurationMS: took.Milliseconds()},
	}
}

func Failure(requestID string, err error, took time.Duration) Envelope {
	kind := tperr.KindOf(err)
	return Envelope{
		Success: false,
		Error:   &ErrorBody{Kind: kind, Message: kind.UserMessage()},
		Meta:    Meta{RequestID: requestID, Timestamp: time.Now().UTC(), DurationMS: took.Milliseconds()},
	}
}

// Render writes env as indented JSON, or as a one-line summary in plain mode.
func Render(w io.Writer, env Envelope, mode string) error {
	if mode != "plain" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	}
	if env.Success {
		_, err := fmt.Fprintf(w, "ok request_id=%s\n", env.Meta.RequestID)
		return err
	}
	_, err := fmt.Fprintf(w, "error kind=%s message=%q request_id=%s\n", env.Error.Kind, env.Error.Message, env.Meta.RequestID)
	return err
}
