package cli

import (
	"os"

	"github.com/rileyhilliard/fleetmon/internal/errors"
	"github.com/spf13/cobra"
)

// Command-specific flags
var (
	reportFlags   CollectionFlags
	reportOpts    ReportOptions
	serveFlags    CollectionFlags
	serveOpts     ServeOptions
	targetsFlags  CollectionFlags
	targetsAsJSON bool
)

// reportCmd collects from the fleet once and prints the result
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Check disk and memory usage across the fleet",
	Long: `Resolve the fleet, run the diagnostic script on every target in parallel,
and print a usage table followed by the targets over threshold.

Disk usage alerts at or above thresholds.disk, memory at or above
thresholds.memory. Targets that can't be reached, time out, or return
unreadable output are listed separately and never alert.

Examples:
  fleetmon report
  fleetmon report --filter 'web-*,db-*'
  fleetmon report --output json > usage.json
  fleetmon report --fail-on-alert --concurrency 25`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reportCommand(cmd, &reportFlags, reportOpts)
	},
}

// serveCmd runs the Prometheus exporter
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve fleet usage as Prometheus metrics",
	Long: `Start an HTTP server exposing fleet usage in the Prometheus text format.

Every scrape of the metrics path resolves the fleet and collects from it
afresh. /health reports liveness and the last scrape.

Examples:
  fleetmon serve
  fleetmon serve --listen 127.0.0.1:9200
  fleetmon serve --filter 'prod-*' --concurrency 20`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCommand(cmd, &serveFlags, serveOpts)
	},
}

// targetsCmd lists the resolved fleet without collecting
var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List the targets a report would check",
	Long: `Resolve the fleet with the current filters and list the matching targets.
Nothing is run on them.

Examples:
  fleetmon targets
  fleetmon targets --filter 'web-*' --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return targetsCommand(cmd, &targetsFlags, targetsAsJSON)
	},
}

// completionCmd generates shell completion scripts
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for fleetmon.

Examples:
  # Bash
  fleetmon completion bash > /etc/bash_completion.d/fleetmon

  # Zsh
  fleetmon completion zsh > "${fpath[1]}/_fleetmon"

  # Fish
  fleetmon completion fish > ~/.config/fish/completions/fleetmon.fish`,
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(os.Stdout)
		case "zsh":
			return rootCmd.GenZshCompletion(os.Stdout)
		case "fish":
			return rootCmd.GenFishCompletion(os.Stdout, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(os.Stdout)
		default:
			return errors.New(errors.ErrConfig,
				"Unknown shell: "+args[0],
				"Supported shells: bash, zsh, fish, powershell")
		}
	},
}

func init() {
	// report command flags
	AddCollectionFlags(reportCmd, &reportFlags)
	reportCmd.Flags().StringVarP(&reportOpts.Output, "output", "o", "table", "output format: table, json, or yaml")
	reportCmd.Flags().BoolVar(&reportOpts.FailOnAlert, "fail-on-alert", false, "exit with status 2 if any target alerts or fails")

	// serve command flags
	AddCollectionFlags(serveCmd, &serveFlags)
	serveCmd.Flags().StringVar(&serveOpts.Listen, "listen", "", "listen address (default from exporter.listen)")
	serveCmd.Flags().StringVar(&serveOpts.Path, "path", "", "metrics path (default from exporter.path)")

	// targets command flags
	AddCollectionFlags(targetsCmd, &targetsFlags)
	targetsCmd.Flags().BoolVar(&targetsAsJSON, "json", false, "print targets as JSON")

	// Register all commands
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(targetsCmd)
	rootCmd.AddCommand(completionCmd)
}
