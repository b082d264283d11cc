package cli

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rileyhilliard/fleetmon/internal/errors"
	"github.com/rileyhilliard/fleetmon/internal/ui"
	"github.com/spf13/cobra"
)

// Global flags
var (
	cfgFile string
	verbose bool
	noColor bool
)

// errProblemsFound is returned by report --fail-on-alert. The report has
// already been printed, so Execute only sets the exit code.
var errProblemsFound = stderrors.New("fleet has alerts or unreachable targets")

// Exit codes
const (
	exitOK       = 0
	exitError    = 1
	exitProblems = 2
)

var rootCmd = &cobra.Command{
	Use:   "fleetmon",
	Short: "Disk and memory monitor for a fleet of machines",
	Long: `fleetmon checks disk and memory usage across a fleet of machines.

Targets come from EC2 (running instances whose Name tag matches your
filters) or from a static list of SSH hosts. A small diagnostic script runs
on every target in parallel, and the results are printed as a report or
served as Prometheus metrics.

Examples:
  fleetmon report
  fleetmon report --filter 'web-*' --output json
  fleetmon serve --listen :9100`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColor || os.Getenv("NO_COLOR") != "" {
			ui.DisableColors()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./.fleetmon.yaml or ~/.config/fleetmon/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// Execute runs the root command and exits with a non-zero status on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(handleError(os.Stderr, err))
	}
}

// handleError prints err for the user and returns the process exit code.
func handleError(w io.Writer, err error) int {
	if err == nil {
		return exitOK
	}
	if stderrors.Is(err, errProblemsFound) {
		return exitProblems
	}

	if isUnknownCommandError(err) {
		msg := err.Error()
		if name := extractUnknownCommand(err); name != "" {
			msg = fmt.Sprintf("Unknown command '%s'", name)
		}
		fmt.Fprint(w, errors.New(errors.ErrConfig, msg, "Run 'fleetmon --help' to see available commands.").Error())
		return exitError
	}

	var fmErr *errors.Error
	if stderrors.As(err, &fmErr) {
		fmt.Fprint(w, fmErr.Error())
		return exitError
	}
	fmt.Fprintf(w, "%s %s\n", ui.SymbolFail, err)
	return exitError
}

// isUnknownCommandError reports whether cobra rejected the command line.
func isUnknownCommandError(err error) bool {
	msg := err.Error()
	return strings.HasPrefix(msg, "unknown command") || strings.HasPrefix(msg, "unknown flag")
}

// extractUnknownCommand pulls the command name out of
// `unknown command "foo" for "fleetmon"`.
func extractUnknownCommand(err error) string {
	msg := err.Error()
	start := strings.Index(msg, `"`)
	if start == -1 {
		return ""
	}
	end := strings.Index(msg[start+1:], `"`)
	if end == -1 {
		return ""
	}
	return msg[start+1 : start+1+end]
}
