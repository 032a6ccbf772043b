package engine

import (
	"context"
	"math"
	"time"

	"github.com/daryltucker/ollama-speedtest/internal/model"
	"github.com/daryltucker/ollama-speedtest/internal/output"
)

// Probe runs discovery then generation against host and always returns a
// result. Failures never escape as errors: they become error results.
func (e *Engine) Probe(ctx context.Context, host string) model.ProbeResult {
	baseURL := e.BaseURL(host)
	logger := output.Logger.With("host", host)
	start := time.Now()

	modelName, err := e.Discover(ctx, baseURL)
	if err != nil {
		logger.Warn("Model discovery failed", "error", err, "elapsed", time.Since(start))
		return e.finish(model.NewFailure(host, model.NoModel, KindOf(err), err.Error()))
	}
	logger.Info("Testing Model", "model", modelName)

	ev, err := e.Generate(ctx, baseURL, modelName)
	if err != nil {
		logger.Warn("Generation failed", "model", modelName, "error", err, "elapsed", time.Since(start))
		return e.finish(model.NewFailure(host, modelName, KindOf(err), err.Error()))
	}

	tps, err := TokensPerSecond(ev)
	if err != nil {
		logger.Warn("Generation failed", "model", modelName, "error", err, "elapsed", time.Since(start))
		return e.finish(model.NewFailure(host, modelName, KindOf(err), err.Error()))
	}

	logger.Info("Generation succeeded", "model", modelName, "tokens_per_second", tps, "elapsed", time.Since(start))
	return e.finish(model.NewSuccess(host, modelName, tps, time.Duration(*ev.TotalDuration)))
}

func (e *Engine) finish(r model.ProbeResult) model.ProbeResult {
	e.Metrics.RecordResult(r)
	return r
}

// TokensPerSecond computes eval_count / eval_duration * 1e9 rounded to two
// decimals. A terminal event lacking any of eval_count, eval_duration or
// total_duration, or with a non-positive eval_duration, is an invalid response.
func TokensPerSecond(ev *model.GenerationEvent) (float64, error) {
	switch {
	case ev.EvalCount == nil:
		return 0, &ProbeError{Kind: model.KindInvalidResponse, Detail: "terminal event missing eval_count"}
	case ev.EvalDuration == nil || *ev.EvalDuration <= 0:
		return 0, &ProbeError{Kind: model.KindInvalidResponse, Detail: "terminal event missing eval_duration"}
	case ev.TotalDuration == nil:
		return 0, &ProbeError{Kind: model.KindInvalidResponse, Detail: "terminal event missing total_duration"}
	}

	tps := float64(*ev.EvalCount) / float64(*ev.EvalDuration) * 1e9
	return math.Round(tps*100) / 100, nil
}
