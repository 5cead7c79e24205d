// Package config provides configuration types, defaults, and
// persistence for svcreg.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ga4gh-tools/svcreg/internal/geomap"
	"github.com/ga4gh-tools/svcreg/internal/infrastructure/registry"
	"github.com/ga4gh-tools/svcreg/internal/log"
	"github.com/ga4gh-tools/svcreg/internal/tracing"
)

// ReportConfig holds report generator settings.
type ReportConfig struct {
	// Output is the HTML file written by `svcreg report`.
	Output string `mapstructure:"output"`

	// Live enables per-service service-info probes by default.
	Live bool `mapstructure:"live"`
}

// MapConfig holds map plotter settings.
type MapConfig struct {
	// Input is the snapshot file read by `svcreg map`.
	Input string `mapstructure:"input"`

	// PNG and SVG are the rendered output paths.
	PNG string `mapstructure:"png"`
	SVG string `mapstructure:"svg"`

	// Labels annotates each marker with the server name.
	Labels bool `mapstructure:"labels"`
}

// GenerateConfig holds JSON generator settings.
type GenerateConfig struct {
	// Output is the default path for the generated JSON document.
	Output string `mapstructure:"output"`
}

// Config holds all configuration options for svcreg.
type Config struct {
	Registry registry.Config `mapstructure:"registry"`
	Report   ReportConfig    `mapstructure:"report"`
	Map      MapConfig       `mapstructure:"map"`
	Generate GenerateConfig  `mapstructure:"generate"`
	Tracing  tracing.Config  `mapstructure:"tracing"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Registry: registry.DefaultConfig(),
		Report: ReportConfig{
			Output: "registry_summary.html",
		},
		Map: MapConfig{
			Input: "drs_servers.tsv",
			PNG:   geomap.DefaultPNG,
			SVG:   geomap.DefaultSVG,
		},
		Generate: GenerateConfig{
			Output: "services.json",
		},
		Tracing: tracing.DefaultConfig(),
	}
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	if c.Registry.BaseURL == "" {
		return fmt.Errorf("registry.url must not be empty")
	}
	if c.Registry.TimeoutSeconds <= 0 {
		return fmt.Errorf("registry.timeout_seconds must be positive, got %d", c.Registry.TimeoutSeconds)
	}
	if c.Registry.RetryMax < 0 {
		return fmt.Errorf("registry.retry_max must not be negative, got %d", c.Registry.RetryMax)
	}
	return nil
}

// DefaultConfigTemplate returns the commented YAML written on first
// run.
func DefaultConfigTemplate() string {
	return `# svcreg configuration
# Lookup order: .svcreg/config.yaml (cwd), ~/.config/svcreg/config.yaml

registry:
  # GA4GH service registry base URL.
  url: ` + registry.DefaultBaseURL + `
  timeout_seconds: 30
  # Retries are off by default; failures surface immediately.
  retry_max: 0
  # Timeout for per-service live service-info probes (report --live).
  probe_timeout_seconds: 5

report:
  output: registry_summary.html
  # live: true enables service-info probes on every run.
  live: false

map:
  input: drs_servers.tsv
  png: ` + geomap.DefaultPNG + `
  svg: ` + geomap.DefaultSVG + `
  # labels: true annotates markers with server names.
  labels: false

generate:
  output: services.json

tracing:
  enabled: false
  # exporter: none, file, stdout, otlp
  exporter: stdout
  # file_path: ~/.config/svcreg/traces/traces.jsonl
  otlp_endpoint: localhost:4317
  sample_rate: 1.0
  service_name: svcreg
`
}

// WriteDefaultConfig creates a config file at the given path with
// default settings and comments. Creates the parent directory if it
// doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
