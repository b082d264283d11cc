package config

import (
	"fmt"
	"path"
	"strings"

	"github.com/rileyhilliard/fleetmon/internal/errors"
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but fleetmon only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade fleetmon or lower the version field.")
	}

	switch cfg.Transport {
	case TransportSSM:
		if strings.TrimSpace(cfg.Region) == "" {
			return errors.New(errors.ErrConfig,
				"No AWS region configured",
				"Set region in the config file or export AWS_REGION.")
		}
	case TransportSSH:
		if err := validateHosts(cfg.Hosts); err != nil {
			return err
		}
	default:
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown transport '%s'", cfg.Transport),
			"Use 'ssm' for AWS Systems Manager or 'ssh' for direct SSH.")
	}

	if err := validateThreshold("thresholds.disk", cfg.Thresholds.Disk); err != nil {
		return err
	}
	if err := validateThreshold("thresholds.memory", cfg.Thresholds.Memory); err != nil {
		return err
	}

	if err := validateCollection(cfg.Collection); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(), "Check the 'collection' section in your config file.")
	}

	for _, f := range cfg.NameFilters {
		if _, err := path.Match(f, ""); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				fmt.Sprintf("Name filter '%s' isn't a valid pattern", f),
				"Filters support * and ? wildcards; check for unbalanced brackets.")
		}
	}

	if cfg.Exporter.Path == "" || !strings.HasPrefix(cfg.Exporter.Path, "/") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("exporter.path '%s' must start with /", cfg.Exporter.Path),
			"Use something like /metrics.")
	}

	return nil
}

func validateThreshold(field string, value int) error {
	if value < 0 || value > 100 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("%s must be between 0 and 100, got %d", field, value),
			"Thresholds are percentages.")
	}
	return nil
}

func validateCollection(c CollectionConfig) error {
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("collection.max_concurrency must be at least 1, got %d", c.MaxConcurrency)
	}
	if c.MaxPolls <= 0 {
		return fmt.Errorf("collection.max_polls must be at least 1, got %d", c.MaxPolls)
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("collection.poll_interval can't be negative, got %s", c.PollInterval)
	}
	if c.DialTimeout < 0 {
		return fmt.Errorf("collection.dial_timeout can't be negative, got %s", c.DialTimeout)
	}
	return nil
}

func validateHosts(hosts map[string]Host) error {
	if len(hosts) == 0 {
		return errors.New(errors.ErrConfig,
			"No hosts configured for the ssh transport",
			"Add machines under 'hosts:' with an 'ssh:' address for each.")
	}
	for name, h := range hosts {
		if strings.TrimSpace(h.SSH) == "" {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Host '%s' has no ssh address", name),
				"Set hosts."+name+".ssh to a hostname, user@host, or SSH config alias.")
		}
		if strings.ContainsAny(name, " \t") {
			return errors.New(errors.ErrConfig,
				fmt.Sprintf("Host name '%s' contains whitespace", name),
				"Use a name like 'web-1'.")
		}
	}
	return nil
}
