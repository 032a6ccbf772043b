/*
PURPOSE:
  Writes results as JSON Lines (NDJSON), one object per completed probe.
  Optimized for machine parsing (jq, log shippers).

REQUIREMENTS:
  User-specified:
  - JSON output for easier parsing.

  Implementation-discovered:
  - JSON Lines is better for streaming than a single large array.
  - Rows carry the run ID so several runs can share one log.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine.Dispatcher (through the Sink interface)
  - Consumes: internal/model.ProbeResult

ERROR HANDLING:
  - Returns error on write failure.

IMPLEMENTATION RULES:
  - Use encoding/json.NewEncoder.
  - Thread-safe.

USAGE:
  w := output.NewJSONWriter(os.Stdout, runID)
  w.Emit(result)

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Update if we switch to plain JSON array (not recommended for streaming).
*/

package output

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/daryltucker/ollama-speedtest/internal/model"
)

type jsonRecord struct {
	RunID string `json:"run_id,omitempty"`
	model.ProbeResult
}

// JSONWriter handles writing results as JSON lines.
type JSONWriter struct {
	encoder *json.Encoder
	runID   string
	mu      sync.Mutex
}

// NewJSONWriter creates a new JSONWriter.
func NewJSONWriter(w io.Writer, runID string) *JSONWriter {
	return &JSONWriter{
		encoder: json.NewEncoder(w),
		runID:   runID,
	}
}

// Emit writes a single result as a JSON line.
func (jw *JSONWriter) Emit(r model.ProbeResult) error {
	jw.mu.Lock()
	defer jw.mu.Unlock()

	return jw.encoder.Encode(jsonRecord{RunID: jw.runID, ProbeResult: r})
}

// Close is a no-op; the encoder does not buffer.
func (jw *JSONWriter) Close() error {
	return nil
}
