package engine

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/daryltucker/ollama-speedtest/internal/config"
)

// fakeOllama serves /api/tags and /api/generate for probe tests.
type fakeOllama struct {
	t *testing.T

	models     []string
	tagsStatus int
	tagsDelay  time.Duration

	// generate writes the streamed body; defaults to a single successful run.
	generate func(w http.ResponseWriter, r *http.Request)

	mu        sync.Mutex
	requested []string // models asked for on /api/generate
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/tags":
		if f.tagsDelay > 0 {
			select {
			case <-time.After(f.tagsDelay):
			case <-r.Context().Done():
				return
			}
		}
		if f.tagsStatus != 0 {
			w.WriteHeader(f.tagsStatus)
			return
		}
		type entry struct {
			Name string `json:"name"`
		}
		body := struct {
			Models []entry `json:"models"`
		}{Models: []entry{}}
		for _, m := range f.models {
			body.Models = append(body.Models, entry{Name: m})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)

	case "/api/generate":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.requested = append(f.requested, req.Model)
		f.mu.Unlock()

		if f.generate != nil {
			f.generate(w, r)
			return
		}
		writeLines(w, progressLine("The"), progressLine(" sky"), terminalLine(100, 2_000_000_000, 2_500_000_000))

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeOllama) requestedModels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requested...)
}

// start runs the fake and returns the host (ip:port) to probe.
func (f *fakeOllama) start() string {
	srv := httptest.NewServer(f)
	f.t.Cleanup(srv.Close)
	return strings.TrimPrefix(srv.URL, "http://")
}

func writeLines(w http.ResponseWriter, lines ...string) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	flusher, _ := w.(http.Flusher)
	for _, l := range lines {
		fmt.Fprintln(w, l)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

func progressLine(token string) string {
	b, _ := json.Marshal(map[string]any{"model": "llama3.2", "response": token, "done": false})
	return string(b)
}

func terminalLine(evalCount, evalDuration, totalDuration int64) string {
	return fmt.Sprintf(`{"model":"llama3.2","response":"","done":true,"done_reason":"stop","context":[1,2,3],"eval_count":%d,"eval_duration":%d,"total_duration":%d}`,
		evalCount, evalDuration, totalDuration)
}

func testConfig(timeout time.Duration) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Timeout = timeout
	return cfg
}
