package output

import (
	"fmt"
	"io"

	"github.com/daryltucker/ollama-speedtest/internal/model"
)

// ResultWriter emits results in one output format.
type ResultWriter interface {
	Emit(r model.ProbeResult) error
	Close() error
}

// NewResultWriter returns the writer for format ("table", "json" or "csv").
func NewResultWriter(format string, w io.Writer, runID string) (ResultWriter, error) {
	switch format {
	case "", "table":
		tw, err := NewTableWriter(w)
		if err != nil {
			return nil, err
		}
		return tw, nil
	case "json":
		return NewJSONWriter(w, runID), nil
	case "csv":
		cw, err := NewCSVWriter(w, runID)
		if err != nil {
			return nil, err
		}
		return cw, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}
