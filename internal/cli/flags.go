package cli

import (
	"fmt"
	"time"

	"github.com/rileyhilliard/fleetmon/internal/config"
	"github.com/rileyhilliard/fleetmon/internal/errors"
	"github.com/spf13/cobra"
)

// CollectionFlags holds the flags shared by report, serve and targets.
type CollectionFlags struct {
	Filters      []string
	Concurrency  int
	PollInterval string
}

// AddCollectionFlags registers --filter, --concurrency and --poll-interval on a command.
func AddCollectionFlags(cmd *cobra.Command, flags *CollectionFlags) {
	cmd.Flags().StringSliceVarP(&flags.Filters, "filter", "f", nil, "name filter, repeatable (e.g. 'web-*'); merged with the config and tag file")
	cmd.Flags().IntVarP(&flags.Concurrency, "concurrency", "c", 0, "maximum targets collected at once (default from config)")
	cmd.Flags().StringVar(&flags.PollInterval, "poll-interval", "", "delay between status polls (e.g., 2s, 500ms)")
}

// Apply overrides cfg with whichever flags were set.
func (f *CollectionFlags) Apply(cfg *config.Config) error {
	if f.Concurrency < 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("--concurrency must be at least 1, got %d", f.Concurrency),
			"Leave it unset to use collection.max_concurrency from the config.")
	}
	if f.Concurrency > 0 {
		cfg.Collection.MaxConcurrency = f.Concurrency
	}

	interval, err := ParseDuration("--poll-interval", f.PollInterval)
	if err != nil {
		return err
	}
	if interval > 0 {
		cfg.Collection.PollInterval = interval
	}
	return nil
}

// ParseDuration parses a duration flag value.
// Returns zero duration if the value is empty.
func ParseDuration(flag, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.ErrConfig,
			fmt.Sprintf("'%s' doesn't look like a valid %s", value, flag),
			"Try something like 5s, 2m, or 500ms.")
	}
	if duration < 0 {
		return 0, errors.New(errors.ErrConfig,
			fmt.Sprintf("%s can't be negative", flag),
			"Try something like 5s, 2m, or 500ms.")
	}
	return duration, nil
}
