package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/daryltucker/ollama-speedtest/internal/model"
)

// ProbeError is a classified per-host failure. It never escapes the probe:
// Probe converts it into an error ProbeResult.
type ProbeError struct {
	Kind    model.ErrorKind
	Timeout time.Duration // phase budget, for unreachable/HTTP errors
	Detail  string
	Err     error
}

func (e *ProbeError) Error() string {
	timeout := e.Timeout.Round(time.Millisecond)
	switch e.Kind {
	case model.KindDiscoveryUnreachable:
		return fmt.Sprintf("model discovery failed (timeout %s): %v", timeout, e.Err)
	case model.KindDiscoveryHTTPError:
		return fmt.Sprintf("model discovery failed (timeout %s): %s", timeout, e.Detail)
	case model.KindNoModelsAvailable:
		return "no models available"
	case model.KindGenerationUnreachable:
		return fmt.Sprintf("generation timeout (%s): %v", timeout, e.Err)
	case model.KindMalformedStreamChunk:
		return fmt.Sprintf("malformed stream chunk: %v", e.Err)
	case model.KindInvalidResponse:
		if e.Detail != "" {
			return "invalid response format: " + e.Detail
		}
		return "invalid response format"
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Detail
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err, or KindNone if it is not a ProbeError.
func KindOf(err error) model.ErrorKind {
	var pe *ProbeError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return model.KindNone
}
