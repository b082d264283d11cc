package cli

import (
	"context"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/rileyhilliard/fleetmon/internal/config"
	"github.com/rileyhilliard/fleetmon/internal/directory"
	"github.com/rileyhilliard/fleetmon/internal/errors"
	"github.com/rileyhilliard/fleetmon/internal/fleet"
	"github.com/rileyhilliard/fleetmon/internal/logger"
	"github.com/rileyhilliard/fleetmon/internal/transport/sshexec"
	"github.com/rileyhilliard/fleetmon/internal/transport/ssm"
	"github.com/rileyhilliard/fleetmon/pkg/sshutil"
)

// WorkflowContext carries what every command needs once config is loaded:
// where targets come from, how to reach them, and which names to select.
type WorkflowContext struct {
	Config     *config.Config
	ConfigPath string
	Directory  directory.Directory
	Factory    fleet.TransportFactory
	Filters    []string
	Log        logger.Logger

	zap *logger.ZapLogger
}

// SetupWorkflow loads config, applies flag overrides, builds the logger and
// wires the directory and transport for the configured backend.
func SetupWorkflow(ctx context.Context, flags *CollectionFlags) (*WorkflowContext, error) {
	cfg, path, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, err
	}
	if flags != nil {
		if err := flags.Apply(cfg); err != nil {
			return nil, err
		}
	}

	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	zl := logger.New(logger.Options{Level: level, Format: cfg.Log.Format})
	logger.SetDefault(zl)

	wf := &WorkflowContext{
		Config:     cfg,
		ConfigPath: path,
		Log:        zl,
		zap:        zl,
	}
	if path != "" {
		wf.Log.Debug("loaded config from %s", path)
	}

	if err := wf.wireBackend(ctx); err != nil {
		return nil, err
	}

	var extra []string
	if flags != nil {
		extra = flags.Filters
	}
	filters, err := resolveFilters(cfg, extra)
	if err != nil {
		return nil, err
	}
	wf.Filters = filters
	return wf, nil
}

// wireBackend picks the directory and transport factory for cfg.Transport.
func (wf *WorkflowContext) wireBackend(ctx context.Context) error {
	cfg := wf.Config
	switch cfg.Transport {
	case config.TransportSSH:
		wf.Directory = directory.NewStatic(cfg.Hosts)
		wf.Factory = sshexec.NewFactory(cfg.Hosts, sshutil.DialOptions{
			Timeout: cfg.Collection.DialTimeout,
			Logger:  wf.Log,
		})
		return nil
	default:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
		if err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Couldn't load AWS configuration",
				"Check your AWS credentials: aws sts get-caller-identity")
		}
		wf.Directory = directory.NewEC2(awsCfg)
		wf.Factory = ssm.NewFactory(awsCfg, cfg.Collection.Document)
		return nil
	}
}

// resolveFilters merges config name_filters, the tag file and --filter.
func resolveFilters(cfg *config.Config, flagFilters []string) ([]string, error) {
	var fromFile []string
	if cfg.TagsFile != "" {
		var err error
		fromFile, err = directory.ReadNameFilters(cfg.TagsFile)
		if err != nil {
			return nil, err
		}
	}
	var fromFlags []string
	for _, f := range flagFilters {
		fromFlags = append(fromFlags, directory.ParseNameFilters(f)...)
	}
	return directory.MergeFilters(cfg.NameFilters, fromFile, fromFlags), nil
}

// NewCoordinator builds a coordinator from the collection settings.
func (wf *WorkflowContext) NewCoordinator(progress fleet.Progress) *fleet.Coordinator {
	return fleet.NewCoordinator(wf.Factory, fleet.Config{
		PollInterval: wf.Config.Collection.PollInterval,
		MaxPolls:     wf.Config.Collection.MaxPolls,
		Progress:     progress,
		Logger:       wf.Log,
	})
}

// Close flushes the logger.
func (wf *WorkflowContext) Close() {
	if wf.zap != nil {
		_ = wf.zap.Sync()
	}
}
