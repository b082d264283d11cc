package config

import (
	"time"

	"github.com/rileyhilliard/fleetmon/internal/fleet"
)

// CurrentConfigVersion is the schema version for the config file.
const CurrentConfigVersion = 1

// Transport names accepted in the config file.
const (
	TransportSSM = "ssm"
	TransportSSH = "ssh"
)

// Config represents the complete .fleetmon.yaml configuration file.
type Config struct {
	Version     int              `yaml:"version" mapstructure:"version"`
	Region      string           `yaml:"region" mapstructure:"region"`
	Transport   string           `yaml:"transport" mapstructure:"transport"`
	TagsFile    string           `yaml:"tags_file" mapstructure:"tags_file"`
	NameFilters []string         `yaml:"name_filters" mapstructure:"name_filters"`
	Thresholds  ThresholdConfig  `yaml:"thresholds" mapstructure:"thresholds"`
	Collection  CollectionConfig `yaml:"collection" mapstructure:"collection"`
	Exporter    ExporterConfig   `yaml:"exporter" mapstructure:"exporter"`
	Hosts       map[string]Host  `yaml:"hosts" mapstructure:"hosts"`
	Log         LogConfig        `yaml:"log" mapstructure:"log"`
}

// ThresholdConfig holds the inclusive alert thresholds, in percent.
type ThresholdConfig struct {
	Disk   int `yaml:"disk" mapstructure:"disk"`
	Memory int `yaml:"memory" mapstructure:"memory"`
}

// CollectionConfig controls the fan-out and each worker's poll budget.
type CollectionConfig struct {
	MaxConcurrency int           `yaml:"max_concurrency" mapstructure:"max_concurrency"`
	PollInterval   time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	MaxPolls       int           `yaml:"max_polls" mapstructure:"max_polls"`

	// Document is the SSM document used to run the script.
	Document string `yaml:"document" mapstructure:"document"`

	// DialTimeout bounds SSH connection setup.
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
}

// ExporterConfig controls the metrics HTTP server.
type ExporterConfig struct {
	Listen string `yaml:"listen" mapstructure:"listen"`
	Path   string `yaml:"path" mapstructure:"path"`
}

// Host is a machine reachable over SSH, used when transport is "ssh".
type Host struct {
	// SSH is a hostname, user@hostname[:port], or ~/.ssh/config alias.
	SSH string `yaml:"ssh" mapstructure:"ssh"`

	// Tags are extra names the host matches in name filters.
	Tags []string `yaml:"tags" mapstructure:"tags"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultConfig returns a Config with the standard thresholds and poll budget.
func DefaultConfig() *Config {
	return &Config{
		Version:   CurrentConfigVersion,
		Region:    "us-west-2",
		Transport: TransportSSM,
		TagsFile:  "instance_tags.txt",
		Thresholds: ThresholdConfig{
			Disk:   fleet.DefaultDiskThreshold,
			Memory: fleet.DefaultRAMThreshold,
		},
		Collection: CollectionConfig{
			MaxConcurrency: fleet.DefaultMaxConcurrency,
			PollInterval:   fleet.DefaultPollInterval,
			MaxPolls:       fleet.DefaultMaxPolls,
			Document:       "AWS-RunShellScript",
			DialTimeout:    10 * time.Second,
		},
		Exporter: ExporterConfig{
			Listen: ":9100",
			Path:   "/metrics",
		},
		Hosts: make(map[string]Host),
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// FleetThresholds converts the threshold section for the classifier.
func (c *Config) FleetThresholds() fleet.Thresholds {
	return fleet.Thresholds{Disk: c.Thresholds.Disk, RAM: c.Thresholds.Memory}
}
