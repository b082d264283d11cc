package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rileyhilliard/fleetmon/internal/config"
	"github.com/rileyhilliard/fleetmon/internal/directory"
	"github.com/rileyhilliard/fleetmon/internal/fleet"
	"github.com/rileyhilliard/fleetmon/internal/report"
	"github.com/rileyhilliard/fleetmon/internal/ui"
	"github.com/spf13/cobra"
)

// ReportOptions holds the report command's own flags.
type ReportOptions struct {
	Output      string
	FailOnAlert bool
}

func reportCommand(cmd *cobra.Command, flags *CollectionFlags, opts ReportOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wf, err := SetupWorkflow(ctx, flags)
	if err != nil {
		return err
	}
	defer wf.Close()

	return runReport(ctx, wf, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// runReport resolves the fleet, collects from every target and writes the
// report to out. Status lines go to errOut so json and yaml stay parseable.
func runReport(ctx context.Context, wf *WorkflowContext, opts ReportOptions, out, errOut io.Writer) error {
	format, err := report.ParseFormat(opts.Output)
	if err != nil {
		return err
	}
	cfg := wf.Config

	// An EC2 lookup without filters would sweep the whole account.
	if cfg.Transport == config.TransportSSM && len(wf.Filters) == 0 {
		fmt.Fprintf(errOut, "%s No name filters configured. Add them to %s, name_filters, or pass --filter.\n",
			ui.WarningStyle.Render(ui.SymbolWarning), cfg.TagsFile)
		return nil
	}

	fmt.Fprintf(errOut, "Monitoring instances matching [%s] %s\n",
		strings.Join(wf.Filters, ", "), ui.MutedStyle.Render(backendLabel(cfg)))

	targets := directory.Resolve(ctx, wf.Directory, wf.Filters, wf.Log)
	if len(targets) == 0 {
		fmt.Fprintln(errOut, "No instances found to monitor.")
		if format == report.FormatTable {
			return nil
		}
		return report.Render(out, nil, cfg.FleetThresholds(), format)
	}

	bar := ui.NewProgressBar(errOut, "Collecting", len(targets))
	bar.Start()
	results, err := wf.NewCoordinator(bar).Collect(ctx, targets, cfg.Collection.MaxConcurrency)
	bar.Finish()
	if err != nil {
		return err
	}

	if err := report.Render(out, results, cfg.FleetThresholds(), format); err != nil {
		return err
	}

	if opts.FailOnAlert && hasProblems(results, cfg.FleetThresholds()) {
		return errProblemsFound
	}
	return nil
}

func hasProblems(results []fleet.Result, th fleet.Thresholds) bool {
	return report.Build(results, th).HasProblems()
}

func backendLabel(cfg *config.Config) string {
	if cfg.Transport == config.TransportSSH {
		return fmt.Sprintf("(ssh, %d configured hosts)", len(cfg.Hosts))
	}
	return fmt.Sprintf("(ssm, region %s)", cfg.Region)
}
