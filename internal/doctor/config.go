package doctor

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/rileyhilliard/fleetmon/internal/config"
	"github.com/rileyhilliard/fleetmon/internal/directory"
	"github.com/rileyhilliard/fleetmon/internal/errors"
)

// ConfigFileCheck reports which config file is in use. Running on defaults
// is allowed, so a missing file only warns.
type ConfigFileCheck struct {
	ConfigPath string // Explicit path, or empty to search
}

func (c *ConfigFileCheck) Name() string     { return "config_file" }
func (c *ConfigFileCheck) Category() string { return CategoryConfig }

func (c *ConfigFileCheck) Run(_ context.Context) CheckResult {
	path, err := config.Find(c.ConfigPath)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    errors.Brief(err),
			Suggestion: "Check the path passed to --config",
		}
	}

	if path == "" {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "No config file found, using defaults and environment",
			Suggestion: fmt.Sprintf("Create %s or ~/%s/%s to pin thresholds and filters", config.ConfigFileName, config.GlobalConfigDir, config.GlobalConfigFile),
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Config file: %s", filepath.Base(path)),
	}
}

// ConfigSchemaCheck loads and validates the config.
type ConfigSchemaCheck struct {
	ConfigPath string
}

func (c *ConfigSchemaCheck) Name() string     { return "config_schema" }
func (c *ConfigSchemaCheck) Category() string { return CategoryConfig }

func (c *ConfigSchemaCheck) Run(_ context.Context) CheckResult {
	cfg, _, err := config.LoadOrDefault(c.ConfigPath)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    errors.Brief(err),
			Suggestion: suggestionOf(err),
		}
	}

	return CheckResult{
		Name:   c.Name(),
		Status: StatusPass,
		Message: fmt.Sprintf("Config is valid (transport %s, disk >= %d%%, memory >= %d%%)",
			cfg.Transport, cfg.Thresholds.Disk, cfg.Thresholds.Memory),
	}
}

// NameFiltersCheck warns when no filters are configured. With EC2 that
// means the report refuses to run and the exporter scrapes every running
// instance in the region.
type NameFiltersCheck struct {
	Config *config.Config
}

func (c *NameFiltersCheck) Name() string     { return "name_filters" }
func (c *NameFiltersCheck) Category() string { return CategoryConfig }

func (c *NameFiltersCheck) Run(_ context.Context) CheckResult {
	fromFile, err := directory.ReadNameFilters(c.Config.TagsFile)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    errors.Brief(err),
			Suggestion: "Check the tags_file setting and the file permissions",
		}
	}

	filters := directory.MergeFilters(c.Config.NameFilters, fromFile)
	if len(filters) == 0 {
		status := StatusWarn
		if c.Config.Transport == config.TransportSSH {
			// Every configured host is the fleet.
			status = StatusPass
		}
		return CheckResult{
			Name:       c.Name(),
			Status:     status,
			Message:    "No name filters configured",
			Suggestion: fmt.Sprintf("Add instance names to %s or name_filters", c.Config.TagsFile),
		}
	}

	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("%d name filter%s configured", len(filters), pluralize(len(filters))),
	}
}

// NewConfigChecks returns the checks that need only the config.
// cfg may be nil when loading failed; the filter check is then skipped.
func NewConfigChecks(configPath string, cfg *config.Config) []Check {
	checks := []Check{
		&ConfigFileCheck{ConfigPath: configPath},
		&ConfigSchemaCheck{ConfigPath: configPath},
	}
	if cfg != nil {
		checks = append(checks, &NameFiltersCheck{Config: cfg})
	}
	return checks
}
