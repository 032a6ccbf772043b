/*
PURPOSE:
  Defines the 'run' subcommand.
  Probes every host and prints one result row per completed probe.

REQUIREMENTS:
  User-specified:
  - --ip and/or --file select hosts; duplicates are dropped.
  - --threads and --timeout (seconds) tune the run.

  Implementation-discovered:
  - Need to load config first.
  - Apply flag overrides to config.
  - Reject an empty host list before any network activity.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.Run()
  - Uses: internal/config, internal/hosts, internal/output

ERROR HANDLING:
  - Returns error if config load/validation fails or no hosts are given.
  - Per-host failures are printed as rows and do not fail the command.

IMPLEMENTATION RULES:
  - Setup flags in init().
  - Logic: Load Config -> Override -> Validate -> Hosts -> Engine.Run.

USAGE:
  ollama-speedtest run --ip 10.0.0.5
  ollama-speedtest run --file hosts.txt --threads 8 --timeout 60

SELF-HEALING INSTRUCTIONS:
  - Check flag names match Config struct fields generally.

RELATED FILES:
  - internal/cli/root.go

MAINTENANCE:
  - Update when adding new CLI overrides.
*/

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/daryltucker/ollama-speedtest/internal/config"
	"github.com/daryltucker/ollama-speedtest/internal/engine"
	"github.com/daryltucker/ollama-speedtest/internal/hosts"
	"github.com/daryltucker/ollama-speedtest/internal/model"
	"github.com/daryltucker/ollama-speedtest/internal/output"
)

var (
	ipFlag          string
	hostsOverride   []string
	hostsFile       string
	threadsOverride int
	timeoutSeconds  int
	portOverride    int
	promptOverride  string
	promptFile      string
	modelOverride   string
	outputOverride  string
	rateOverride    float64
	metricsFile     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Measure tokens/sec on each host",
	Long: `Probes each Ollama host with a two-step protocol:
1. Discovery: lists models (/api/tags) within a third of the timeout and picks
   the preferred model, or the first one listed.
2. Generation: streams a fixed prompt (/api/generate) within the full timeout
   and computes tokens/sec from the final event (eval_count / eval_duration).

Rows are printed as each host finishes. A failing host is reported as an
error row and never stops the others.`,
	Example: `  # Single host
  ollama-speedtest run --ip 10.0.0.5

  # A file of hosts, 8 at a time, 60s per request
  ollama-speedtest run --file hosts.txt --threads 8 --timeout 60

  # NDJSON output and a node_exporter textfile
  ollama-speedtest run --file hosts.txt -o json --metrics-file /var/lib/node_exporter/speedtest.prom`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := applyRunFlags(cmd, cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		hostList, err := hosts.Collect(cfg.HostsFile, cfg.Hosts)
		if err != nil {
			return err
		}

		_, err = runSpeedTest(cmd.Context(), cfg, hostList, cmd.OutOrStdout(), cmd.ErrOrStderr())
		return err
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&ipFlag, "ip", "", "Single host (address or hostname) to test")
	runCmd.Flags().StringSliceVar(&hostsOverride, "hosts", nil, "Comma-separated list of hosts to test")
	runCmd.Flags().StringVarP(&hostsFile, "file", "f", "", "File containing one host per line")
	runCmd.Flags().IntVarP(&threadsOverride, "threads", "t", 1, "Number of hosts probed in parallel")
	runCmd.Flags().IntVar(&timeoutSeconds, "timeout", 30, "Timeout in seconds for each request")
	runCmd.Flags().IntVar(&portOverride, "port", config.DefaultPort, "Ollama port for hosts given without one")
	runCmd.Flags().StringVar(&promptOverride, "prompt", "", "Prompt sent to every host")
	runCmd.Flags().StringVarP(&promptFile, "prompt-file", "p", "", "Path to a text file containing the prompt (overrides --prompt)")
	runCmd.Flags().StringVarP(&modelOverride, "model", "m", "", "Preferred model (name without tag)")
	runCmd.Flags().StringVarP(&outputOverride, "output", "o", "table", "Output format: table, json, csv")
	runCmd.Flags().Float64Var(&rateOverride, "rate", 0, "Maximum probes started per second (0 = unlimited)")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics in textfile format to this path")
}

// applyRunFlags copies explicitly set flags onto cfg.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("ip") || flags.Changed("hosts") {
		var explicit []string
		explicit = append(explicit, hostsOverride...)
		if ipFlag != "" {
			explicit = append(explicit, ipFlag)
		}
		cfg.Hosts = explicit
	}
	if flags.Changed("file") {
		cfg.HostsFile = hostsFile
	}
	if flags.Changed("threads") {
		cfg.Threads = threadsOverride
	}
	if flags.Changed("timeout") {
		cfg.Timeout = time.Duration(timeoutSeconds) * time.Second
	}
	if flags.Changed("port") {
		cfg.Port = portOverride
	}
	if flags.Changed("prompt") {
		cfg.Prompt = promptOverride
	}
	if promptFile != "" {
		data, err := os.ReadFile(promptFile)
		if err != nil {
			return fmt.Errorf("failed to read prompt file: %w", err)
		}
		cfg.Prompt = string(data)
	}
	if flags.Changed("model") {
		cfg.PreferredModel = modelOverride
	}
	if flags.Changed("output") {
		cfg.Output = outputOverride
	}
	if flags.Changed("rate") {
		cfg.Rate = rateOverride
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = metricsFile
	}
	return nil
}

// runSpeedTest tags the run with an ID, builds the result writer and runs the engine.
func runSpeedTest(ctx context.Context, cfg *config.Config, hostList []string, stdout, stderr io.Writer) ([]model.ProbeResult, error) {
	runID := uuid.NewString()
	output.SetLogger(output.Logger.With("run_id", runID))

	if cfg.Output == "table" {
		fmt.Fprintf(stderr, "\nStarting tests with timeout of %s per request...\n", cfg.Timeout)
	}

	sink, err := output.NewResultWriter(cfg.Output, stdout, runID)
	if err != nil {
		return nil, err
	}
	defer sink.Close()

	return engine.Run(ctx, cfg, hostList, sink)
}
