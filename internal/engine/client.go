/*
PURPOSE:
  Core engine for interacting with Ollama APIs.
  Handles model discovery and streaming generation against one host.

REQUIREMENTS:
  User-specified:
  - Detect models (/api/tags) within a third of the run timeout.
  - Stream a fixed prompt through /api/generate within the full timeout.

  Implementation-discovered:
  - Needs http.Client without a global Timeout: each phase gets its own
    context deadline so discovery and generation budgets stay independent.
  - The streamed body must be read incrementally (see stream.go).

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine/probe.go, internal/cli (list-models)
  - Uses: internal/config, internal/model, internal/output

ERROR HANDLING:
  - Every failure is returned as a *ProbeError with a model.ErrorKind.
  - No retries: this is a diagnostic probe.

IMPLEMENTATION RULES:
  - Use net/http with per-request contexts.
  - Wire types come from github.com/ollama/ollama/api where they fit.

USAGE:
  e := engine.New(cfg, metrics)
  names, err := e.ListModels(ctx, baseURL)
  ev, err := e.Generate(ctx, baseURL, "llama3.2")

SELF-HEALING INSTRUCTIONS:
  - If Ollama API changes, update endpoints (/api/tags, /api/generate).

RELATED FILES:
  - internal/engine/probe.go
  - internal/engine/stream.go

MAINTENANCE:
  - Update for new Ollama API features.
*/

package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/daryltucker/ollama-speedtest/internal/config"
	"github.com/daryltucker/ollama-speedtest/internal/hosts"
	"github.com/daryltucker/ollama-speedtest/internal/model"
	"github.com/daryltucker/ollama-speedtest/internal/output"
)

// Engine handles Ollama interactions.
type Engine struct {
	Config  *config.Config
	Client  *http.Client
	Metrics *Metrics
}

// New creates a new Engine. metrics may be nil.
func New(cfg *config.Config, metrics *Metrics) *Engine {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	// One connection per host is enough; probes never share a host.
	transport.MaxIdleConnsPerHost = 1

	return &Engine{
		Config:  cfg,
		Client:  &http.Client{Transport: transport},
		Metrics: metrics,
	}
}

// BaseURL returns the Ollama base URL for host.
func (e *Engine) BaseURL(host string) string {
	return hosts.BaseURL(host, e.Config.Port)
}

// ListModels returns the full model names (tag included) from /api/tags.
// The caller's context bounds the request.
func (e *Engine) ListModels(ctx context.Context, baseURL string) ([]string, error) {
	timeout := deadlineBudget(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return nil, &ProbeError{Kind: model.KindDiscoveryUnreachable, Timeout: timeout, Err: err}
	}

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, &ProbeError{Kind: model.KindDiscoveryUnreachable, Timeout: timeout, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProbeError{
			Kind:    model.KindDiscoveryHTTPError,
			Timeout: timeout,
			Detail:  fmt.Sprintf("HTTP %d", resp.StatusCode),
		}
	}

	var payload api.ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		// A body cut off by the deadline surfaces here as well.
		return nil, &ProbeError{Kind: model.KindDiscoveryUnreachable, Timeout: timeout, Err: err}
	}

	names := make([]string, 0, len(payload.Models))
	for _, m := range payload.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// Discover lists models on baseURL within the discovery budget and picks one.
func (e *Engine) Discover(ctx context.Context, baseURL string) (string, error) {
	timeout := e.Config.DiscoveryTimeout()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	names, err := e.ListModels(ctx, baseURL)
	e.Metrics.ObservePhase(PhaseDiscovery, time.Since(start))
	if err != nil {
		var pe *ProbeError
		if errors.As(err, &pe) {
			pe.Timeout = timeout
		}
		return "", err
	}

	output.Logger.Debug("Found models", "url", baseURL, "count", len(names))
	return SelectModel(names, e.Config.PreferredModel)
}

// SelectModel applies the selection rule to full model names: the preferred
// model if present, else the first listed, else KindNoModelsAvailable.
// Names are compared and returned without their ":tag" suffix.
func SelectModel(names []string, preferred string) (string, error) {
	if preferred != "" {
		for _, n := range names {
			if baseName(n) == preferred {
				return preferred, nil
			}
		}
	}
	if len(names) > 0 {
		return baseName(names[0]), nil
	}
	return "", &ProbeError{Kind: model.KindNoModelsAvailable}
}

func baseName(name string) string {
	base, _, _ := strings.Cut(name, ":")
	return base
}

// Generate streams the configured prompt through modelName on baseURL and
// returns the terminal event.
func (e *Engine) Generate(ctx context.Context, baseURL, modelName string) (*model.GenerationEvent, error) {
	timeout := e.Config.Timeout
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() { e.Metrics.ObservePhase(PhaseGeneration, time.Since(start)) }()

	reqBody, err := json.Marshal(api.GenerateRequest{
		Model:  modelName,
		Prompt: e.Config.Prompt,
	})
	if err != nil {
		return nil, &ProbeError{Kind: model.KindGenerationUnreachable, Timeout: timeout, Err: err}
	}

	trace := &httptrace.ClientTrace{
		GotConn: func(connInfo httptrace.GotConnInfo) {
			output.Logger.Debug("Network: Connected", "remote", connInfo.Conn.RemoteAddr(), "reused", connInfo.Reused)
		},
		GotFirstResponseByte: func() {
			output.Logger.Debug("Network: First Byte Received", "model", modelName, "after", time.Since(start))
		},
	}
	ctx = httptrace.WithClientTrace(ctx, trace)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/api/generate", bytes.NewReader(reqBody))
	if err != nil {
		return nil, &ProbeError{Kind: model.KindGenerationUnreachable, Timeout: timeout, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, &ProbeError{Kind: model.KindGenerationUnreachable, Timeout: timeout, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &ProbeError{
			Kind:   model.KindInvalidResponse,
			Detail: fmt.Sprintf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	parser, err := ParseStream(resp.Body)
	output.Logger.Debug("Stream consumed", "url", baseURL, "model", modelName, "events", parser.Events())
	if err != nil {
		if KindOf(err) != model.KindNone {
			return nil, err
		}
		// A read failure after the terminal event does not lose the measurement.
		if last := parser.Last(); last == nil || !last.Done {
			return nil, &ProbeError{Kind: model.KindGenerationUnreachable, Timeout: timeout, Err: err}
		}
	}

	last := parser.Last()
	if last == nil {
		return nil, &ProbeError{Kind: model.KindInvalidResponse}
	}
	if last.Error != "" {
		return nil, &ProbeError{Kind: model.KindInvalidResponse, Detail: "server error: " + last.Error}
	}
	if !last.Done {
		return nil, &ProbeError{Kind: model.KindInvalidResponse}
	}
	return last, nil
}

// deadlineBudget reports the time left on ctx, or zero when it has no deadline.
func deadlineBudget(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		return time.Until(dl)
	}
	return 0
}
