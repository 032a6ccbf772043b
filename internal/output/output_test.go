package output

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/ollama-speedtest/internal/model"
)

func sampleResults() (model.ProbeResult, model.ProbeResult) {
	ok := model.NewSuccess("10.0.0.1", "llama3.2", 50, 2500*time.Millisecond)
	bad := model.NewFailure("10.0.0.2", "", model.KindNoModelsAvailable, "no models available")
	return ok, bad
}

func TestTableWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewTableWriter(&buf)
	require.NoError(t, err)

	header := buf.String()
	assert.Contains(t, header, "Results:")
	assert.Contains(t, header, "IP Address")
	assert.Contains(t, header, "Total Duration (ns)")
	buf.Reset()

	ok, bad := sampleResults()
	require.NoError(t, w.Emit(ok))
	require.NoError(t, w.Emit(bad))
	require.NoError(t, w.Close())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	assert.Equal(t, []string{ok.CompletedAt.Format("15:04:05"), "10.0.0.1", "llama3.2", "success", "50.00", "2500000000"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{bad.CompletedAt.Format("15:04:05"), "10.0.0.2", "N/A", "error", "N/A", "N/A"}, strings.Fields(lines[1]))
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONWriter(&buf, "run-1")

	ok, bad := sampleResults()
	require.NoError(t, w.Emit(ok))
	require.NoError(t, w.Emit(bad))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "run-1", first["run_id"])
	assert.Equal(t, "10.0.0.1", first["host"])
	assert.Equal(t, "success", first["status"])
	assert.Equal(t, 50.0, first["tokens_per_second"])
	assert.Equal(t, 2.5e9, first["total_duration_ns"])
	assert.NotContains(t, first, "error")

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "error", second["status"])
	assert.Equal(t, "N/A", second["model"])
	assert.Equal(t, "no_models_available", second["error_kind"])
	assert.NotContains(t, second, "tokens_per_second")
	assert.NotContains(t, second, "total_duration_ns")
}

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewCSVWriter(&buf, "run-1")
	require.NoError(t, err)

	ok, bad := sampleResults()
	require.NoError(t, w.Emit(ok))
	require.NoError(t, w.Emit(bad))
	require.NoError(t, w.Close())

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, CSVHeader, records[0])
	assert.Equal(t, []string{"run-1", "10.0.0.1", "llama3.2", "success", "50.00", "2500000000", "", ""},
		append([]string{records[1][0]}, records[1][2:]...))
	assert.Equal(t, []string{"10.0.0.2", "N/A", "error", "", "", "no_models_available", "no models available"}, records[2][2:])
}

func TestNewResultWriter(t *testing.T) {
	for _, format := range []string{"", "table", "json", "csv"} {
		w, err := NewResultWriter(format, &bytes.Buffer{}, "id")
		require.NoError(t, err, format)
		assert.NotNil(t, w)
	}

	_, err := NewResultWriter("xml", &bytes.Buffer{}, "id")
	assert.Error(t, err)
}

func TestSetupLogger(t *testing.T) {
	prev := Logger
	t.Cleanup(func() { SetLogger(prev) })

	var buf bytes.Buffer
	SetupLogger("info", "json", &buf)

	Logger.Debug("hidden")
	Logger.Info("shown", "key", "value")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "shown", entry["msg"])
	assert.Equal(t, "value", entry["key"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}
