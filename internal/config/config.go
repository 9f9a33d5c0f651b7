// Package config handles TOML configuration for gcpinventory.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/yairfalse/gcpinventory/internal/emitter"
	"github.com/yairfalse/gcpinventory/internal/plugin/gcp"
)

// Config is the root configuration structure.
type Config struct {
	GCP       GCPConfig       `toml:"gcp"`
	Collector CollectorConfig `toml:"collector"`
	Output    OutputConfig    `toml:"output"`
	Filter    FilterConfig    `toml:"filter"`
	OTEL      OTELConfig      `toml:"otel"`
	Log       LogConfig       `toml:"log"`
}

// GCPConfig holds Google Cloud provider settings.
type GCPConfig struct {
	ProjectID       string             `toml:"project_id"`
	CredentialsFile string             `toml:"credentials_file"` // Empty means application default credentials
	Zones           []string           `toml:"zones"`
	Filter          string             `toml:"filter"`
	ImageProjects   []gcp.ImageProject `toml:"image_projects"`
}

// CollectorConfig holds collection run settings.
type CollectorConfig struct {
	Kinds       []string      `toml:"kinds"` // Empty means every registered kind
	Workers     int           `toml:"workers"`
	IntervalStr string        `toml:"interval"`
	Interval    time.Duration `toml:"-"`
	OneShot     bool          `toml:"one_shot"`
}

// OutputConfig holds record output settings.
type OutputConfig struct {
	Format string `toml:"format"`
	Path   string `toml:"path"` // Empty or "-" means stdout
}

// FilterConfig holds kind and label filters.
type FilterConfig struct {
	ExcludeKinds  []string          `toml:"exclude_kinds"`
	IncludeLabels map[string]string `toml:"include_labels"`
	ExcludeLabels map[string]string `toml:"exclude_labels"`
}

// OTELConfig holds OpenTelemetry settings.
type OTELConfig struct {
	Endpoint    string        `toml:"endpoint"`
	Insecure    bool          `toml:"insecure"`
	ServiceName string        `toml:"service_name"`
	Traces      TracesConfig  `toml:"traces"`
	Metrics     MetricsConfig `toml:"metrics"`
}

// TracesConfig holds tracing settings.
type TracesConfig struct {
	Enabled    bool    `toml:"enabled"`
	SampleRate float64 `toml:"sample_rate"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"` // Prometheus scrape address
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	cfg.Collector.Interval, _ = time.ParseDuration(cfg.Collector.IntervalStr)
	return cfg
}

// Load reads and parses a TOML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := parseInterval(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if len(cfg.GCP.ImageProjects) == 0 {
		cfg.GCP.ImageProjects = gcp.DefaultImageProjects
	}
	if cfg.Collector.Workers == 0 {
		cfg.Collector.Workers = 1
	}
	if cfg.Collector.IntervalStr == "" {
		cfg.Collector.IntervalStr = "5m"
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = emitter.FormatJSON
	}
	if cfg.Output.Path == "" {
		cfg.Output.Path = "-"
	}
	if cfg.OTEL.ServiceName == "" {
		cfg.OTEL.ServiceName = "gcpinventory"
	}
	if cfg.OTEL.Metrics.Listen == "" {
		cfg.OTEL.Metrics.Listen = ":9090"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func parseInterval(cfg *Config) error {
	d, err := time.ParseDuration(cfg.Collector.IntervalStr)
	if err != nil {
		return fmt.Errorf("parse interval %q: %w", cfg.Collector.IntervalStr, err)
	}
	cfg.Collector.Interval = d
	return nil
}

// Validate checks the configuration is valid.
func (c *Config) Validate() error {
	if c.GCP.ProjectID == "" && c.GCP.CredentialsFile == "" {
		return fmt.Errorf("gcp: project_id or credentials_file required")
	}
	for _, kind := range c.Collector.Kinds {
		if !slices.Contains(gcp.Kinds, kind) {
			return fmt.Errorf("collector: unknown kind %q", kind)
		}
	}
	if c.Collector.Workers < 0 {
		return fmt.Errorf("collector: workers must not be negative (got %d)", c.Collector.Workers)
	}
	if !c.Collector.OneShot && c.Collector.Interval <= 0 {
		return fmt.Errorf("collector: interval must be positive (got %s)", c.Collector.Interval)
	}
	switch c.Output.Format {
	case emitter.FormatJSON, emitter.FormatYAML, emitter.FormatTable:
	default:
		return fmt.Errorf("output: unknown format %q", c.Output.Format)
	}
	if c.OTEL.Traces.SampleRate < 0.0 || c.OTEL.Traces.SampleRate > 1.0 {
		return fmt.Errorf("otel: traces.sample_rate must be between 0.0 and 1.0 (got %v)", c.OTEL.Traces.SampleRate)
	}
	return nil
}

// LoadCredentials reads a service account key file into the flat field map
// handed to connectors. An empty path yields nil, meaning default credentials.
func LoadCredentials(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse credentials file: %w", err)
	}

	secret := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case string:
			secret[k] = v
		case nil:
		default:
			secret[k] = fmt.Sprint(v)
		}
	}
	return secret, nil
}
