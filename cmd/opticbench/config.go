package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-opticbench/pkg/document"
	"github.com/dd0wney/cluso-opticbench/pkg/report"
	"github.com/dd0wney/cluso-opticbench/pkg/validation"
)

// Config is the optional YAML configuration of the command. Flags given
// on the command line override it.
type Config struct {
	LogLevel    string             `yaml:"log_level"`
	LogFormat   string             `yaml:"log_format"`
	Format      string             `yaml:"format"`
	Archive     string             `yaml:"archive"`
	MetricsFile string             `yaml:"metrics_file"`
	Events      EventsConfig       `yaml:"events"`
	S3          *document.S3Config `yaml:"s3,omitempty"`
}

// EventsConfig selects the network publisher for analysis progress.
type EventsConfig struct {
	Transport string `yaml:"transport"`
	Addr      string `yaml:"addr"`
}

// DefaultConfig returns the configuration used without a config file.
func DefaultConfig() Config {
	return Config{
		LogLevel:  "warn",
		LogFormat: "text",
		Format:    string(report.FormatTable),
	}
}

// LoadConfig reads a config file. Missing keys keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c Config) Validate() error {
	return validation.NewConfigValidator("opticbench").
		OneOf("log_level", c.LogLevel, []string{"debug", "info", "warn", "error"}).
		OneOf("log_format", c.LogFormat, []string{"json", "text"}).
		Custom("format", func() error {
			_, err := report.ParseFormat(c.Format)
			return err
		}).
		When(c.Events.Transport != "", func(cv *validation.ConfigValidator) {
			cv.OneOf("events.transport", c.Events.Transport, []string{"nng", "zmq"}).
				Required("events.addr", c.Events.Addr)
		}).
		When(c.S3 != nil, func(cv *validation.ConfigValidator) {
			cv.Custom("s3", c.S3.Validate)
		}).
		Validate()
}
