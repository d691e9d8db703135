package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings like "5s" or "1m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return fmt.Errorf("duration value node is nil")
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = dur
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels"`
}

// LoggingConfig encapsulates runtime logging options.
type LoggingConfig struct {
	Level  string     `yaml:"level"`
	Format string     `yaml:"format"`
	Loki   LokiConfig `yaml:"loki"`
}

// TelemetryConfig controls the Prometheus collector of the CLI.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MetricsFile string `yaml:"metrics_file"`
}

// WatchConfig controls the polling rebuild loop.
type WatchConfig struct {
	Interval Duration `yaml:"interval"`
}

// Config is the settings file of the hcm command.
type Config struct {
	// Modules lists module directories or directories to search for modules.
	// Relative entries are resolved against the settings file.
	Modules   []string        `yaml:"modules"`
	Workers   int             `yaml:"workers"`
	Output    string          `yaml:"output"`
	Select    string          `yaml:"select"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Watch     WatchConfig     `yaml:"watch"`
}

// Load reads and decodes the settings file from disk.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("workers must not be negative")
	}
	base := filepath.Dir(path)
	for i, module := range cfg.Modules {
		if module != "" && !filepath.IsAbs(module) {
			cfg.Modules[i] = filepath.Join(base, module)
		}
	}
	if cfg.Output != "" && !filepath.IsAbs(cfg.Output) {
		cfg.Output = filepath.Join(base, cfg.Output)
	}
	if cfg.Telemetry.MetricsFile != "" && !filepath.IsAbs(cfg.Telemetry.MetricsFile) {
		cfg.Telemetry.MetricsFile = filepath.Join(base, cfg.Telemetry.MetricsFile)
	}
	return &cfg, nil
}

// WatchInterval returns the configured polling interval.
func (c *Config) WatchInterval() time.Duration {
	if c == nil || c.Watch.Interval.Duration <= 0 {
		return time.Second
	}
	return c.Watch.Interval.Duration
}
