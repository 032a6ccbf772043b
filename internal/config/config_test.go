package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 1, cfg.Threads)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, 10*time.Second, cfg.DiscoveryTimeout())
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, "llama3.2", cfg.PreferredModel)
	assert.Equal(t, "Why is the sky blue?", cfg.Prompt)
	assert.Equal(t, "table", cfg.Output)
	require.NoError(t, cfg.Validate())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "speedtest.yaml")
	data := []byte(`
hosts:
  - 10.0.0.1
  - 10.0.0.2
threads: 4
timeout: 45s
preferred_model: mistral
output: json
`)
	require.NoError(t, os.WriteFile(path, data, 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.Hosts)
	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, "mistral", cfg.PreferredModel)
	assert.Equal(t, "json", cfg.Output)
	// Untouched keys keep their defaults.
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, "Why is the sky blue?", cfg.Prompt)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("threads: [1, 2"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoad_NoDefaultFile(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SPEEDTEST_THREADS", "8")
	t.Setenv("SPEEDTEST_TIMEOUT", "12")
	t.Setenv("SPEEDTEST_HOSTS", "a, b,,c")
	t.Setenv("SPEEDTEST_PREFERRED_MODEL", "qwen2.5")

	cfg := DefaultConfig()
	require.NoError(t, ApplyEnv(cfg))

	assert.Equal(t, 8, cfg.Threads)
	assert.Equal(t, 12*time.Second, cfg.Timeout)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.Hosts)
	assert.Equal(t, "qwen2.5", cfg.PreferredModel)
	assert.Equal(t, "table", cfg.Output)
}

func TestApplyEnv_DurationTimeout(t *testing.T) {
	t.Setenv("SPEEDTEST_TIMEOUT", "1m30s")

	cfg := DefaultConfig()
	require.NoError(t, ApplyEnv(cfg))
	assert.Equal(t, 90*time.Second, cfg.Timeout)
}

func TestApplyEnv_BadTimeout(t *testing.T) {
	t.Setenv("SPEEDTEST_TIMEOUT", "soon")

	err := ApplyEnv(DefaultConfig())
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"zero threads", func(c *Config) { c.Threads = 0 }, true},
		{"negative threads", func(c *Config) { c.Threads = -2 }, true},
		{"sub-second timeout", func(c *Config) { c.Timeout = 500 * time.Millisecond }, true},
		{"bad port", func(c *Config) { c.Port = 70000 }, true},
		{"bad output", func(c *Config) { c.Output = "xml" }, true},
		{"negative rate", func(c *Config) { c.Rate = -1 }, true},
		{"empty prompt", func(c *Config) { c.Prompt = "" }, true},
		{"csv output", func(c *Config) { c.Output = "csv" }, false},
		{"empty preferred model", func(c *Config) { c.PreferredModel = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
