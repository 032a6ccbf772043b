/*
PURPOSE:
  Defines the configuration structure and loading logic for the speed test.
  Adheres to "Config IS Code" philosophy.

REQUIREMENTS:
  User-specified:
  - Allow configuration of worker count, per-host timeout, prompt and
    preferred model.

  Implementation-discovered:
  - Needs to support YAML parsing.
  - Needs to support Environment variables overrides (SPEEDTEST_...).
  - Needs validation before any network activity.

ARCHITECTURE INTEGRATION:
  - Used by: internal/cli, internal/engine
  - Dependencies: gopkg.in/yaml.v3, github.com/spf13/viper (env),
    github.com/go-playground/validator/v10

ERROR HANDLING:
  - Returns explicit error if config file is invalid.
  - Missing default config file falls back to defaults.

IMPLEMENTATION RULES:
  - Config struct tags should support yaml.
  - Defaults match the historical tool (1 thread, 30s timeout).

USAGE:
  cfg, err := config.Load("speedtest.yaml")
  err = config.ApplyEnv(cfg)
  err = cfg.Validate()

SELF-HEALING INSTRUCTIONS:
  - If new fields are needed, add to Config struct, DefaultConfig(),
    envKeys and the validate tags.

RELATED FILES:
  - internal/cli/run.go

MAINTENANCE:
  - Update when adding new tuning parameters.
*/

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g. SPEEDTEST_THREADS.
const EnvPrefix = "SPEEDTEST"

// DefaultPort is the port Ollama listens on.
const DefaultPort = 11434

// Config represents the full configuration for a speed test run.
type Config struct {
	Hosts          []string      `yaml:"hosts"`
	HostsFile      string        `yaml:"hosts_file"`
	Port           int           `yaml:"port" validate:"min=1,max=65535"`
	Threads        int           `yaml:"threads" validate:"min=1"`
	Timeout        time.Duration `yaml:"timeout" validate:"min=1s"`
	Prompt         string        `yaml:"prompt" validate:"required"`
	PreferredModel string        `yaml:"preferred_model"`
	// Rate limits how many probes start per second. Zero disables pacing.
	Rate        float64 `yaml:"rate" validate:"min=0"`
	Output      string  `yaml:"output" validate:"oneof=table json csv"`
	MetricsFile string  `yaml:"metrics_file"`
	LogLevel    string  `yaml:"log_level" validate:"oneof=debug info warn warning error"`
	LogFormat   string  `yaml:"log_format" validate:"oneof=text json"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:           DefaultPort,
		Threads:        1,
		Timeout:        30 * time.Second,
		Prompt:         "Why is the sky blue?",
		PreferredModel: "llama3.2",
		Output:         "table",
		LogLevel:       "warn",
		LogFormat:      "text",
	}
}

// DefaultFiles are searched in order when no --config path is given.
var DefaultFiles = []string{"speedtest.yaml", "ollama-speedtest.yaml"}

// Load reads configuration from a file.
// If path is specified, it attempts to load that file.
// If path is empty, it searches for default files in order.
// If no file found, returns default config.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	var data []byte
	var err error

	if path != "" {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		found := false
		for _, name := range DefaultFiles {
			data, err = os.ReadFile(name)
			if err == nil {
				path = name
				found = true
				break
			}
		}
		if !found {
			return cfg, nil
		}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv overrides cfg with any SPEEDTEST_* environment variables that are set.
func ApplyEnv(cfg *Config) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	keys := []string{
		"hosts", "hosts_file", "port", "threads", "timeout", "prompt",
		"preferred_model", "rate", "output", "metrics_file", "log_level", "log_format",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if v.IsSet("hosts") {
		cfg.Hosts = splitList(v.GetString("hosts"))
	}
	if v.IsSet("hosts_file") {
		cfg.HostsFile = v.GetString("hosts_file")
	}
	if v.IsSet("port") {
		cfg.Port = v.GetInt("port")
	}
	if v.IsSet("threads") {
		cfg.Threads = v.GetInt("threads")
	}
	if v.IsSet("timeout") {
		d, err := parseTimeout(v.GetString("timeout"))
		if err != nil {
			return fmt.Errorf("invalid %s_TIMEOUT: %w", EnvPrefix, err)
		}
		cfg.Timeout = d
	}
	if v.IsSet("prompt") {
		cfg.Prompt = v.GetString("prompt")
	}
	if v.IsSet("preferred_model") {
		cfg.PreferredModel = v.GetString("preferred_model")
	}
	if v.IsSet("rate") {
		cfg.Rate = v.GetFloat64("rate")
	}
	if v.IsSet("output") {
		cfg.Output = v.GetString("output")
	}
	if v.IsSet("metrics_file") {
		cfg.MetricsFile = v.GetString("metrics_file")
	}
	if v.IsSet("log_level") {
		cfg.LogLevel = v.GetString("log_level")
	}
	if v.IsSet("log_format") {
		cfg.LogFormat = v.GetString("log_format")
	}

	return nil
}

// parseTimeout accepts whole seconds ("45") or a Go duration ("1m30s").
func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if secs, err := strconv.Atoi(s); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var validate = validator.New()

// Validate checks the configuration before any network activity.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			fe := errs[0]
			return fmt.Errorf("invalid config: %s failed %q (%s)", strings.ToLower(fe.Field()), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// DiscoveryTimeout is the budget for the model listing call: a third of Timeout.
func (c *Config) DiscoveryTimeout() time.Duration {
	return c.Timeout / 3
}
