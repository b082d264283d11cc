package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rileyhilliard/fleetmon/internal/errors"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the default config file name.
	ConfigFileName = ".fleetmon.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/fleetmon"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes every environment override, e.g. FLEETMON_REGION.
	EnvPrefix = "FLEETMON"
)

// Load reads config from path, layered over defaults and environment
// overrides. An empty path loads defaults and environment only.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found: "+path,
					"Check the path passed to --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
	}

	return parseConfig(v, path)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .fleetmon.yaml in current directory
// 3. ~/.config/fleetmon/config.yaml
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}

	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	if home, _ := os.UserHomeDir(); home != "" {
		globalConfig := filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
		if _, err := os.Stat(globalConfig); err == nil {
			return globalConfig, nil
		}
	}

	return "", nil
}

// LoadOrDefault finds and loads the config, validating it. Without a config
// file it returns defaults with environment overrides applied.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}

	if err := Validate(cfg); err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("region", EnvPrefix+"_REGION", "AWS_REGION")
	setDefaults(v)
	return v
}

// parseConfig converts viper config to our Config struct with defaults merged in.
func parseConfig(v *viper.Viper, path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := v.Unmarshal(cfg); err != nil {
		source := "the environment"
		if path != "" {
			source = path
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+source)
	}

	if cfg.Hosts == nil {
		cfg.Hosts = make(map[string]Host)
	}
	cfg.Transport = strings.ToLower(strings.TrimSpace(cfg.Transport))
	cfg.NameFilters = cleanFilters(cfg.NameFilters)

	return cfg, nil
}

// setDefaults registers every key so environment overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("version", d.Version)
	v.SetDefault("region", d.Region)
	v.SetDefault("transport", d.Transport)
	v.SetDefault("tags_file", d.TagsFile)
	v.SetDefault("name_filters", []string{})
	v.SetDefault("thresholds.disk", d.Thresholds.Disk)
	v.SetDefault("thresholds.memory", d.Thresholds.Memory)
	v.SetDefault("collection.max_concurrency", d.Collection.MaxConcurrency)
	v.SetDefault("collection.poll_interval", d.Collection.PollInterval.String())
	v.SetDefault("collection.max_polls", d.Collection.MaxPolls)
	v.SetDefault("collection.document", d.Collection.Document)
	v.SetDefault("collection.dial_timeout", d.Collection.DialTimeout.String())
	v.SetDefault("exporter.listen", d.Exporter.Listen)
	v.SetDefault("exporter.path", d.Exporter.Path)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

func cleanFilters(filters []string) []string {
	out := make([]string, 0, len(filters))
	for _, f := range filters {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
