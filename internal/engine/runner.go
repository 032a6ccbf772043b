/*
PURPOSE:
  High-level runner that orchestrates the speed test.
  Fans the host list out to a bounded worker pool and emits each result
  as soon as its probe completes.

REQUIREMENTS:
  User-specified:
  - At most N probes in flight; the rest wait in input order.
  - One host's failure never aborts or delays the others.
  - Return only after every host has a result.

  Implementation-discovered:
  - Output from several workers must not interleave.
  - With one worker the run must be strictly sequential in input order.

ARCHITECTURE INTEGRATION:
  - Called by: internal/cli
  - Uses: internal/engine (Probe), internal/output (sinks, logger)

ERROR HANDLING:
  - Logs errors but continues (resilience).
  - Sink write errors are logged, never fatal.

IMPLEMENTATION RULES:
  - errgroup.SetLimit is the worker pool; Go() blocks while the pool is full,
    which keeps dispatch in input order.
  - Workers hand results to a single collector over an unbuffered channel;
    only the collector touches the sink.
  - No global cancellation: every dispatched host is worked to completion.

USAGE:
  d := &engine.Dispatcher{Prober: e, Sink: sink, Workers: cfg.Threads}
  results := d.Run(ctx, hostList)

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/engine/probe.go
  - internal/output/sink.go

MAINTENANCE:
  - Update if results need to be reordered or aggregated differently.
*/

package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/daryltucker/ollama-speedtest/internal/config"
	"github.com/daryltucker/ollama-speedtest/internal/model"
	"github.com/daryltucker/ollama-speedtest/internal/output"
)

// Prober probes a single host.
type Prober interface {
	Probe(ctx context.Context, host string) model.ProbeResult
}

// Sink receives each result as soon as it is available.
type Sink interface {
	Emit(r model.ProbeResult) error
}

// Dispatcher runs a Prober over a list of hosts with bounded concurrency.
type Dispatcher struct {
	Prober  Prober
	Sink    Sink
	Workers int
	// Limiter paces probe starts. Nil means no pacing.
	Limiter *rate.Limiter
	Metrics *Metrics
}

// Run probes every host and returns the results in completion order.
func (d *Dispatcher) Run(ctx context.Context, hostList []string) []model.ProbeResult {
	workers := d.Workers
	if workers < 1 {
		workers = 1
	}

	results := make(chan model.ProbeResult)
	collected := make(chan []model.ProbeResult, 1)

	go func() {
		out := make([]model.ProbeResult, 0, len(hostList))
		for r := range results {
			if d.Sink != nil {
				if err := d.Sink.Emit(r); err != nil {
					output.Logger.Error("Failed to write result", "host", r.Host, "error", err)
				}
			}
			out = append(out, r)
		}
		collected <- out
	}()

	var g errgroup.Group
	g.SetLimit(workers)

	for _, host := range hostList {
		if d.Limiter != nil {
			if err := d.Limiter.Wait(ctx); err != nil {
				output.Logger.Warn("Pacing interrupted, dispatching anyway", "host", host, "error", err)
			}
		}

		g.Go(func() error {
			d.inFlight(1)
			r := d.Prober.Probe(ctx, host)
			d.inFlight(-1)
			results <- r
			return nil
		})
	}

	_ = g.Wait()
	close(results)
	return <-collected
}

func (d *Dispatcher) inFlight(delta float64) {
	if d.Metrics != nil {
		d.Metrics.InFlight.Add(delta)
	}
}

// Summary aggregates a finished run.
type Summary struct {
	Total            int
	Succeeded        int
	Failed           int
	MeanTokensPerSec float64
	BestHost         string
	BestTokensPerSec float64
}

// Summarize aggregates results. MeanTokensPerSec covers successes only.
func Summarize(results []model.ProbeResult) Summary {
	s := Summary{Total: len(results)}
	var sum float64
	for _, r := range results {
		if !r.OK() {
			s.Failed++
			continue
		}
		s.Succeeded++
		sum += r.TokensPerSecond
		if r.TokensPerSecond > s.BestTokensPerSec {
			s.BestTokensPerSec = r.TokensPerSecond
			s.BestHost = r.Host
		}
	}
	if s.Succeeded > 0 {
		s.MeanTokensPerSec = math.Round(sum/float64(s.Succeeded)*100) / 100
	}
	return s
}

// Run executes the full speed test against hostList, emitting to sink.
func Run(ctx context.Context, cfg *config.Config, hostList []string, sink Sink) ([]model.ProbeResult, error) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	e := New(cfg, metrics)

	d := &Dispatcher{
		Prober:  e,
		Sink:    sink,
		Workers: cfg.Threads,
		Metrics: metrics,
	}
	if cfg.Rate > 0 {
		d.Limiter = rate.NewLimiter(rate.Limit(cfg.Rate), 1)
	}

	output.Logger.Info("Starting tests", "hosts", len(hostList), "threads", cfg.Threads, "timeout", cfg.Timeout)
	results := d.Run(ctx, hostList)

	s := Summarize(results)
	output.Logger.Info("Run complete",
		"total", s.Total,
		"succeeded", s.Succeeded,
		"failed", s.Failed,
		"mean_tokens_per_second", s.MeanTokensPerSec,
		"best_host", s.BestHost,
	)

	if cfg.MetricsFile != "" {
		if err := WriteTextfile(cfg.MetricsFile, reg); err != nil {
			return results, fmt.Errorf("failed to write metrics file %s: %w", cfg.MetricsFile, err)
		}
	}

	return results, nil
}
