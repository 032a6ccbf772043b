/*
PURPOSE:
  Defines the root Cobra command for the speed test CLI.
  Handles global flags, config loading and logger setup.

REQUIREMENTS:
  User-specified:
  - Provide a CLI interface.
  - Support global flags like --config.

  Implementation-discovered:
  - Needs to expose an Execute() function for main.go.
  - Config precedence: defaults < file < SPEEDTEST_* env < flags.

ARCHITECTURE INTEGRATION:
  - Called by: cmd/ollama-speedtest/main.go
  - Calls: Child commands (run, list-models)
  - Modifies: output.Logger

ERROR HANDLING:
  - Returns error to main.go for exit code handling.

IMPLEMENTATION RULES:
  - Use `PersistentFlags()` for flags available to all subcommands.
  - Keep Run logic in subcommands.

USAGE:
  Called by main.go.

SELF-HEALING INSTRUCTIONS:
  - If adding new global flags, add them to init() and loadConfig().

RELATED FILES:
  - cmd/ollama-speedtest/main.go
  - internal/config/config.go
*/

package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/daryltucker/ollama-speedtest/internal/config"
	"github.com/daryltucker/ollama-speedtest/internal/output"
)

var (
	// cfgFile stores the path to the config file (if specified via flag)
	cfgFile   string
	logLevel  string
	logFormat string

	rootCmd = &cobra.Command{
		Use:   "ollama-speedtest",
		Short: "Measure Ollama generation throughput across a fleet of hosts",
		Long: `Probes one or more Ollama hosts: discovers a model on each, streams a fixed
prompt through it and reports tokens per second. Use 'run --help' for options.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./speedtest.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default warn)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
}

// loadConfig resolves the config file and environment, applies the global
// logging flags and installs the logger. Command-specific flags are applied
// by the caller.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = logFormat
	}

	output.SetupLogger(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	return cfg, nil
}
