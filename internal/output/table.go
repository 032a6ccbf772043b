/*
PURPOSE:
  Prints results as a fixed-width console table, one row per completed probe.

REQUIREMENTS:
  User-specified:
  - Columns: timestamp, host, model, status, tokens/sec, total duration (ns).
  - Header printed once; rows appear as probes finish.

  Implementation-discovered:
  - Failed probes have no rate or duration: print a placeholder.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine.Dispatcher (through the Sink interface)
  - Consumes: internal/model.ProbeResult

ERROR HANDLING:
  - Returns the underlying write error.

IMPLEMENTATION RULES:
  - Thread-safe.
  - Write each row in a single call so rows never interleave.

USAGE:
  w, err := output.NewTableWriter(os.Stdout)
  w.Emit(result)

RELATED FILES:
  - internal/model/types.go
*/

package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/daryltucker/ollama-speedtest/internal/model"
)

// Placeholder fills columns a failed probe has no value for.
const Placeholder = "N/A"

const tableRow = "%-20s %-20s %-15s %-10s %-12s %-20s\n"

// TableWriter prints results as console table rows.
type TableWriter struct {
	w  io.Writer
	mu sync.Mutex
}

// NewTableWriter creates a TableWriter and prints the header.
func NewTableWriter(w io.Writer) (*TableWriter, error) {
	rule := strings.Repeat("-", 100)
	header := fmt.Sprintf("\nResults:\n%s\n"+tableRow+"%s\n",
		rule, "Timestamp", "IP Address", "Model", "Status", "Tokens/sec", "Total Duration (ns)", rule)
	if _, err := io.WriteString(w, header); err != nil {
		return nil, err
	}
	return &TableWriter{w: w}, nil
}

// Emit writes a single result row.
func (tw *TableWriter) Emit(r model.ProbeResult) error {
	tw.mu.Lock()
	defer tw.mu.Unlock()

	tps, total := Placeholder, Placeholder
	if r.OK() {
		tps = strconv.FormatFloat(r.TokensPerSecond, 'f', 2, 64)
		total = strconv.FormatInt(r.TotalDuration.Nanoseconds(), 10)
	}

	_, err := fmt.Fprintf(tw.w, tableRow,
		r.CompletedAt.Format("15:04:05"), r.Host, r.Model, string(r.Status), tps, total)
	return err
}

// Close is a no-op; rows are written unbuffered.
func (tw *TableWriter) Close() error {
	return nil
}
