/*
PURPOSE:
  Defines the 'list-models' subcommand.
  Helps debug connectivity and model discovery.

REQUIREMENTS:
  User-specified:
  - List available models.

  Implementation-discovered:
  - Useful validation step before full run.
  - Shows which model 'run' would pick on each host.

ARCHITECTURE INTEGRATION:
  - Calls: internal/engine.ListModels(), engine.SelectModel()

ERROR HANDLING:
  - Prints error per host and continues.

IMPLEMENTATION RULES:
  - Simple output to stdout.
  - Same discovery budget as 'run' (a third of the timeout).

USAGE:
  ollama-speedtest list-models --hosts 10.0.0.1,10.0.0.2

SELF-HEALING INSTRUCTIONS:
  - None.

RELATED FILES:
  - internal/engine/client.go
*/

package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/daryltucker/ollama-speedtest/internal/config"
	"github.com/daryltucker/ollama-speedtest/internal/engine"
	"github.com/daryltucker/ollama-speedtest/internal/hosts"
)

var (
	listHosts     []string
	listHostsFile string
	listTimeout   int
)

var listModelsCmd = &cobra.Command{
	Use:   "list-models",
	Short: "List available models on target hosts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("hosts") {
			cfg.Hosts = listHosts
		}
		if cmd.Flags().Changed("file") {
			cfg.HostsFile = listHostsFile
		}
		if cmd.Flags().Changed("timeout") {
			cfg.Timeout = time.Duration(listTimeout) * time.Second
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		hostList, err := hosts.Collect(cfg.HostsFile, cfg.Hosts)
		if err != nil {
			return err
		}

		listModels(cmd.Context(), cfg, hostList, cmd.OutOrStdout(), cmd.ErrOrStderr())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listModelsCmd)
	listModelsCmd.Flags().StringSliceVar(&listHosts, "hosts", nil, "Comma-separated list of hosts")
	listModelsCmd.Flags().StringVarP(&listHostsFile, "file", "f", "", "File containing one host per line")
	listModelsCmd.Flags().IntVar(&listTimeout, "timeout", 30, "Timeout in seconds (discovery uses a third)")
}

func listModels(ctx context.Context, cfg *config.Config, hostList []string, stdout, stderr io.Writer) {
	e := engine.New(cfg, nil)

	for _, host := range hostList {
		fmt.Fprintf(stdout, "Querying %s...\n", host)

		reqCtx, cancel := context.WithTimeout(ctx, cfg.DiscoveryTimeout())
		models, err := e.ListModels(reqCtx, e.BaseURL(host))
		cancel()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			continue
		}

		for _, m := range models {
			fmt.Fprintf(stdout, "- %s\n", m)
		}
		if picked, err := engine.SelectModel(models, cfg.PreferredModel); err == nil {
			fmt.Fprintf(stdout, "  run would use: %s\n", picked)
		}
	}
}
