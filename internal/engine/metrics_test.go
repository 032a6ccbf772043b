package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/daryltucker/ollama-speedtest/internal/model"
)

func TestMetrics_RecordResult(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordResult(model.NewSuccess("10.0.0.1", "llama3.2", 33.3, time.Second))
	m.RecordResult(model.NewFailure("10.0.0.2", "", model.KindDiscoveryHTTPError, "HTTP 500"))
	m.RecordResult(model.NewFailure("10.0.0.3", "", model.KindDiscoveryHTTPError, "HTTP 502"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ProbesTotal.WithLabelValues("success", "")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ProbesTotal.WithLabelValues("error", "discovery_http_error")))
	assert.Equal(t, 33.3, testutil.ToFloat64(m.TokensPerSecond.WithLabelValues("10.0.0.1", "llama3.2")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.TokensPerSecond))
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordResult(model.NewSuccess("h", "m", 1, time.Second))
		m.ObservePhase(PhaseDiscovery, time.Second)
	})
}

func TestProbeError_Messages(t *testing.T) {
	cause := errors.New("connection refused")
	tests := []struct {
		err  *ProbeError
		want string
	}{
		{&ProbeError{Kind: model.KindDiscoveryUnreachable, Timeout: 10 * time.Second, Err: cause}, "model discovery failed (timeout 10s): connection refused"},
		{&ProbeError{Kind: model.KindDiscoveryHTTPError, Timeout: 10 * time.Second, Detail: "HTTP 500"}, "model discovery failed (timeout 10s): HTTP 500"},
		{&ProbeError{Kind: model.KindNoModelsAvailable}, "no models available"},
		{&ProbeError{Kind: model.KindGenerationUnreachable, Timeout: 30 * time.Second, Err: cause}, "generation timeout (30s): connection refused"},
		{&ProbeError{Kind: model.KindInvalidResponse}, "invalid response format"},
		{&ProbeError{Kind: model.KindInvalidResponse, Detail: "HTTP 404"}, "invalid response format: HTTP 404"},
		{&ProbeError{Kind: model.KindMalformedStreamChunk, Err: cause}, "malformed stream chunk: connection refused"},
	}

	for _, tt := range tests {
		t.Run(string(tt.err.Kind), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}

	wrapped := &ProbeError{Kind: model.KindGenerationUnreachable, Err: cause}
	assert.ErrorIs(t, wrapped, cause)
	assert.Equal(t, model.KindNone, KindOf(cause))
}
