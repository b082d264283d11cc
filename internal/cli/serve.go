package cli

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rileyhilliard/fleetmon/internal/errors"
	"github.com/rileyhilliard/fleetmon/internal/exporter"
	"github.com/spf13/cobra"
)

// ServeOptions holds the serve command's own flags.
type ServeOptions struct {
	Listen string
	Path   string
}

func serveCommand(cmd *cobra.Command, flags *CollectionFlags, opts ServeOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wf, err := SetupWorkflow(ctx, flags)
	if err != nil {
		return err
	}
	defer wf.Close()

	srv, err := newExporter(wf, opts)
	if err != nil {
		return err
	}
	return srv.ListenAndServe(ctx)
}

// newExporter builds the metrics server from the workflow, letting flags
// override the exporter section of the config.
func newExporter(wf *WorkflowContext, opts ServeOptions) (*exporter.Server, error) {
	cfg := wf.Config
	listen := cfg.Exporter.Listen
	if opts.Listen != "" {
		listen = opts.Listen
	}
	path := cfg.Exporter.Path
	if opts.Path != "" {
		if !strings.HasPrefix(opts.Path, "/") {
			return nil, errors.New(errors.ErrConfig,
				fmt.Sprintf("--path '%s' must start with /", opts.Path),
				"Use something like /metrics.")
		}
		path = opts.Path
	}

	if len(wf.Filters) == 0 {
		wf.Log.Warn("no name filters configured; every running target will be scraped")
	}

	return exporter.New(exporter.Options{
		Listen:         listen,
		MetricsPath:    path,
		Directory:      wf.Directory,
		NameFilters:    wf.Filters,
		Collector:      wf.NewCoordinator(nil),
		MaxConcurrency: cfg.Collection.MaxConcurrency,
		Version:        version,
		Logger:         wf.Log,
	})
}
