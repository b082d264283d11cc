package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/rileyhilliard/fleetmon/internal/config"
	"github.com/rileyhilliard/fleetmon/internal/directory"
	"github.com/rileyhilliard/fleetmon/internal/doctor"
	"github.com/rileyhilliard/fleetmon/internal/logger"
	"github.com/rileyhilliard/fleetmon/internal/ui"
	"github.com/rileyhilliard/fleetmon/pkg/sshutil"
	"github.com/spf13/cobra"
)

var (
	doctorJSON   bool
	doctorSerial bool
)

// doctorCmd diagnoses configuration and connectivity issues
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose config, credential, and connectivity issues",
	Long: `Run diagnostic checks to find out why a report would come back empty or
full of errors.

Checks:
  - Config file and schema
  - Name filters and tag file
  - AWS credentials (ssm transport)
  - SSH keys, known_hosts, and each host (ssh transport)
  - Target lookup with the current filters

Examples:
  fleetmon doctor
  fleetmon doctor --json
  fleetmon doctor --serial`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return doctorCommand(cmd.Context(), cmd.OutOrStdout(), doctorJSON, doctorSerial)
	},
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorJSON, "json", false, "output in JSON format")
	doctorCmd.Flags().BoolVar(&doctorSerial, "serial", false, "run checks one at a time, in order")
	rootCmd.AddCommand(doctorCmd)
}

// DoctorOutput represents the JSON output for doctor command.
type DoctorOutput struct {
	Categories []CategoryOutput `json:"categories"`
	Summary    SummaryOutput    `json:"summary"`
}

// CategoryOutput represents a category of check results.
type CategoryOutput struct {
	Name    string               `json:"name"`
	Results []doctor.CheckResult `json:"results"`
}

// SummaryOutput summarizes the check results.
type SummaryOutput struct {
	Pass     int  `json:"pass"`
	Warn     int  `json:"warn"`
	Fail     int  `json:"fail"`
	AllClear bool `json:"all_clear"`
}

func doctorCommand(ctx context.Context, out io.Writer, asJSON, serial bool) error {
	// Load errors are reported by the schema check, not returned.
	cfg, _, _ := config.LoadOrDefault(cfgFile)

	checks := collectChecks(ctx, cfgFile, cfg)
	results := runChecks(ctx, checks, serial)

	var err error
	if asJSON {
		err = outputDoctorJSON(out, checks, results)
	} else {
		err = outputDoctorText(out, checks, results)
	}
	if err != nil {
		return err
	}
	if doctor.HasFailures(results) {
		return errProblemsFound
	}
	return nil
}

// runChecks runs checks concurrently unless serial is set.
func runChecks(ctx context.Context, checks []doctor.Check, serial bool) []doctor.CheckResult {
	if serial {
		return doctor.RunAll(ctx, checks)
	}
	return doctor.RunAllParallel(ctx, checks)
}

// collectChecks gathers the checks that apply to the configured backend.
func collectChecks(ctx context.Context, cfgPath string, cfg *config.Config) []doctor.Check {
	checks := doctor.NewConfigChecks(cfgPath, cfg)
	if cfg == nil {
		return checks
	}

	filters, err := resolveFilters(cfg, nil)
	if err != nil {
		// NameFiltersCheck reports the unreadable tag file.
		return checks
	}

	switch cfg.Transport {
	case config.TransportSSH:
		opts := sshutil.DialOptions{Timeout: cfg.Collection.DialTimeout, Logger: logger.Noop()}
		checks = append(checks, doctor.NewSSHChecks()...)
		checks = append(checks, &doctor.TargetLookupCheck{Directory: directory.NewStatic(cfg.Hosts), Filters: filters})
		checks = append(checks, doctor.NewHostsChecks(cfg.Hosts, func(ctx context.Context, host string) (sshutil.SSHClient, error) {
			return sshutil.Dial(ctx, host, opts)
		})...)
	default:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			checks = append(checks, &doctor.AWSCredentialsCheck{})
			return checks
		}
		checks = append(checks, &doctor.AWSCredentialsCheck{Config: awsCfg})
		if len(filters) > 0 {
			checks = append(checks, &doctor.TargetLookupCheck{Directory: directory.NewEC2(awsCfg), Filters: filters})
		}
	}
	return checks
}

// outputDoctorJSON outputs results grouped by category.
func outputDoctorJSON(out io.Writer, checks []doctor.Check, results []doctor.CheckResult) error {
	grouped := groupResults(checks, results)

	output := DoctorOutput{Categories: []CategoryOutput{}}
	for _, cat := range doctor.CategoryOrder {
		if rs, ok := grouped[cat]; ok {
			output.Categories = append(output.Categories, CategoryOutput{Name: cat, Results: rs})
		}
	}

	counts := doctor.CountByStatus(results)
	output.Summary = SummaryOutput{
		Pass:     counts[doctor.StatusPass],
		Warn:     counts[doctor.StatusWarn],
		Fail:     counts[doctor.StatusFail],
		AllClear: !doctor.HasIssues(results),
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

// outputDoctorText outputs results in human-readable format.
func outputDoctorText(out io.Writer, checks []doctor.Check, results []doctor.CheckResult) error {
	grouped := groupResults(checks, results)

	fmt.Fprintln(out)
	fmt.Fprintln(out, ui.HeaderStyle.Render("fleetmon Diagnostic Report"))
	fmt.Fprintln(out)

	for _, category := range doctor.CategoryOrder {
		rs, ok := grouped[category]
		if !ok {
			continue
		}
		fmt.Fprintln(out, ui.HeaderStyle.Render(category))
		for _, r := range rs {
			renderCheckResult(out, r)
		}
		fmt.Fprintln(out)
	}

	fmt.Fprintln(out, strings.Repeat("━", 60))
	fmt.Fprintln(out)

	if doctor.HasIssues(results) {
		fmt.Fprintf(out, "%s %s\n", ui.AlertStyle.Render(ui.SymbolFail), doctor.Summary(results))
	} else {
		fmt.Fprintf(out, "%s %s\n", ui.SuccessStyle.Render(ui.SymbolSuccess), doctor.Summary(results))
	}
	fmt.Fprintln(out)
	return nil
}

func renderCheckResult(out io.Writer, result doctor.CheckResult) {
	symbol := ui.SuccessStyle.Render(ui.SymbolSuccess)
	switch result.Status {
	case doctor.StatusWarn:
		symbol = ui.WarningStyle.Render(ui.SymbolWarning)
	case doctor.StatusFail:
		symbol = ui.AlertStyle.Render(ui.SymbolFail)
	}

	fmt.Fprintf(out, "  %s %s\n", symbol, result.Message)

	if result.Suggestion != "" && result.Status != doctor.StatusPass {
		for _, line := range strings.Split(result.Suggestion, "\n") {
			fmt.Fprintf(out, "    %s\n", ui.MutedStyle.Render(line))
		}
	}
}

func groupResults(checks []doctor.Check, results []doctor.CheckResult) map[string][]doctor.CheckResult {
	grouped := make(map[string][]doctor.CheckResult)
	for i, check := range checks {
		grouped[check.Category()] = append(grouped[check.Category()], results[i])
	}
	return grouped
}
