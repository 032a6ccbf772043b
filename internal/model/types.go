/*
PURPOSE:
  Defines the core data structures used throughout the speed test.
  These models represent per-host probe results and streamed generation events.

REQUIREMENTS:
  User-specified:
  - Record host, model, status, tokens/sec and server-side total duration.
  - Carry a human-readable error message when a probe fails.

  Implementation-discovered:
  - Need JSON tags for NDJSON output.
  - Need to tell "field absent" from "field is zero" on the terminal event.

ARCHITECTURE INTEGRATION:
  - Used by: internal/engine, internal/output
  - Shared across boundaries.

ERROR HANDLING:
  - None (pure data structs).

IMPLEMENTATION RULES:
  - Build results through NewSuccess / NewFailure so that a success always
    has a model and tokens/sec, and a failure never has tokens/sec.
  - Results are values; never mutate one after it has been emitted.

USAGE:
  res := model.NewSuccess(host, "llama3.2", 50.0, 2*time.Second)

SELF-HEALING INSTRUCTIONS:
  - If new metrics are needed, add field and update the table/CSV/JSON sinks.

RELATED FILES:
  - internal/output/table.go
  - internal/output/csv.go
  - internal/output/json.go

MAINTENANCE:
  - Update when adding new metrics to capture.
*/

package model

import (
	"time"
)

// Status is the outcome of a probe.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// ErrorKind classifies why a probe failed.
type ErrorKind string

const (
	KindNone                  ErrorKind = ""
	KindDiscoveryUnreachable  ErrorKind = "discovery_unreachable"
	KindDiscoveryHTTPError    ErrorKind = "discovery_http_error"
	KindNoModelsAvailable     ErrorKind = "no_models_available"
	KindGenerationUnreachable ErrorKind = "generation_unreachable"
	KindInvalidResponse       ErrorKind = "invalid_response"
	KindMalformedStreamChunk  ErrorKind = "malformed_stream_chunk"
)

// NoModel is reported when discovery never produced a model name.
const NoModel = "N/A"

// ProbeResult represents the outcome of probing a single host.
type ProbeResult struct {
	Host            string        `json:"host"`
	Status          Status        `json:"status"`
	Model           string        `json:"model"`
	TokensPerSecond float64       `json:"tokens_per_second,omitempty"`
	TotalDuration   time.Duration `json:"total_duration_ns,omitempty"` // Server-side, verbatim
	ErrorKind       ErrorKind     `json:"error_kind,omitempty"`
	Error           string        `json:"error,omitempty"`
	CompletedAt     time.Time     `json:"completed_at"`
}

// NewSuccess builds a success result.
func NewSuccess(host, modelName string, tokensPerSecond float64, totalDuration time.Duration) ProbeResult {
	return ProbeResult{
		Host:            host,
		Status:          StatusSuccess,
		Model:           modelName,
		TokensPerSecond: tokensPerSecond,
		TotalDuration:   totalDuration,
		CompletedAt:     time.Now(),
	}
}

// NewFailure builds an error result. An empty modelName becomes NoModel.
func NewFailure(host, modelName string, kind ErrorKind, message string) ProbeResult {
	if modelName == "" {
		modelName = NoModel
	}
	return ProbeResult{
		Host:        host,
		Status:      StatusError,
		Model:       modelName,
		ErrorKind:   kind,
		Error:       message,
		CompletedAt: time.Now(),
	}
}

// OK reports whether the probe succeeded.
func (r ProbeResult) OK() bool {
	return r.Status == StatusSuccess
}

// GenerationEvent is one decoded line of a streamed /api/generate response.
// Numeric fields are pointers because the terminal event must carry them and
// a missing field is a protocol error, not a zero.
type GenerationEvent struct {
	Model         string `json:"model"`
	Response      string `json:"response"`
	Done          bool   `json:"done"`
	DoneReason    string `json:"done_reason,omitempty"`
	EvalCount     *int64 `json:"eval_count,omitempty"`
	EvalDuration  *int64 `json:"eval_duration,omitempty"`  // ns
	TotalDuration *int64 `json:"total_duration,omitempty"` // ns
	Error         string `json:"error,omitempty"`          // API-side error
}
