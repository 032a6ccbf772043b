package engine

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/daryltucker/ollama-speedtest/internal/model"
)

// Phase labels for PhaseDuration.
const (
	PhaseDiscovery  = "discovery"
	PhaseGeneration = "generation"
)

// Metrics holds the per-run collectors. A run owns its registry so that the
// textfile written at the end only describes that run.
type Metrics struct {
	// ProbesTotal counts finished probes by status and error kind
	ProbesTotal *prometheus.CounterVec

	// PhaseDuration tracks client-side wall time of each protocol phase
	PhaseDuration *prometheus.HistogramVec

	// TokensPerSecond is the last measured rate per host and model
	TokensPerSecond *prometheus.GaugeVec

	// InFlight is the number of probes currently running
	InFlight prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ProbesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "speedtest_probes_total",
				Help: "Total number of host probes by status and error kind",
			},
			[]string{"status", "kind"},
		),
		PhaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "speedtest_phase_duration_seconds",
				Help:    "Duration of the discovery and generation phases",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 30, 60, 120},
			},
			[]string{"phase"},
		),
		TokensPerSecond: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "speedtest_tokens_per_second",
				Help: "Generation throughput measured on the host",
			},
			[]string{"host", "model"},
		),
		InFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "speedtest_probes_in_flight",
				Help: "Number of probes currently running",
			},
		),
	}
}

// ObservePhase records how long a phase took.
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordResult counts a finished probe.
func (m *Metrics) RecordResult(r model.ProbeResult) {
	if m == nil {
		return
	}
	m.ProbesTotal.WithLabelValues(string(r.Status), string(r.ErrorKind)).Inc()
	if r.OK() {
		m.TokensPerSecond.WithLabelValues(r.Host, r.Model).Set(r.TokensPerSecond)
	}
}

// WriteTextfile dumps everything gathered by g in the node_exporter textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, g)
}
