/*
PURPOSE:
  Writes results as CSV.
  Ensures rows are visible immediately by flushing after every write.

REQUIREMENTS:
  User-specified:
  - Output to CSV.

  Implementation-discovered:
  - Header written once on creation.
  - Failed rows leave the numeric columns empty and fill the error columns.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine.Dispatcher (through the Sink interface)
  - Consumes: internal/model.ProbeResult

ERROR HANDLING:
  - Returns error on header or row write failure.

IMPLEMENTATION RULES:
  - Use encoding/csv.
  - Flush() after every write (critical for crash resilience).
  - Use Mutex if concurrent writes are expected.

USAGE:
  w, err := output.NewCSVWriter(os.Stdout, runID)
  w.Emit(result)
  w.Close()

SELF-HEALING INSTRUCTIONS:
  - If CSV format changes, update header and record conversion.

RELATED FILES:
  - internal/model/types.go

MAINTENANCE:
  - Update Emit() mapping when ProbeResult changes.
*/

package output

import (
	"encoding/csv"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/daryltucker/ollama-speedtest/internal/model"
)

// CSVHeader is the first row written by CSVWriter.
var CSVHeader = []string{
	"run_id", "timestamp", "host", "model", "status",
	"tokens_per_second", "total_duration_ns", "error_kind", "error",
}

// CSVWriter handles writing results as CSV rows.
type CSVWriter struct {
	writer *csv.Writer
	runID  string
	mu     sync.Mutex
}

// NewCSVWriter creates a new CSVWriter and writes the header.
func NewCSVWriter(w io.Writer, runID string) (*CSVWriter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return nil, err
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}

	return &CSVWriter{
		writer: cw,
		runID:  runID,
	}, nil
}

// Emit writes a single result row.
// It is thread-safe.
func (cw *CSVWriter) Emit(r model.ProbeResult) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	var tps, total string
	if r.OK() {
		tps = strconv.FormatFloat(r.TokensPerSecond, 'f', 2, 64)
		total = strconv.FormatInt(r.TotalDuration.Nanoseconds(), 10)
	}

	record := []string{
		cw.runID,
		r.CompletedAt.Format(time.RFC3339),
		r.Host,
		r.Model,
		string(r.Status),
		tps,
		total,
		string(r.ErrorKind),
		r.Error,
	}

	if err := cw.writer.Write(record); err != nil {
		return err
	}
	cw.writer.Flush()
	return cw.writer.Error()
}

// Close flushes any buffered rows.
func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	cw.writer.Flush()
	return cw.writer.Error()
}
