package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	require.Equal(t, "https://registry.ga4gh.org/v1", cfg.Registry.BaseURL)
	require.Equal(t, 0, cfg.Registry.RetryMax)
	require.Equal(t, "registry_summary.html", cfg.Report.Output)
	require.Equal(t, "drs_servers.tsv", cfg.Map.Input)
	require.Equal(t, "drs_world_map.png", cfg.Map.PNG)
	require.Equal(t, "drs_world_map.svg", cfg.Map.SVG)
	require.Equal(t, "services.json", cfg.Generate.Output)
	require.False(t, cfg.Tracing.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(c *Config) {}},
		{
			name:    "empty registry url",
			mutate:  func(c *Config) { c.Registry.BaseURL = "" },
			wantErr: "registry.url",
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Registry.TimeoutSeconds = 0 },
			wantErr: "timeout_seconds",
		},
		{
			name:    "negative retries",
			mutate:  func(c *Config) { c.Registry.RetryMax = -1 },
			wantErr: "retry_max",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWriteDefaultConfig_RoundTripsThroughViper(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".svcreg", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	var cfg Config
	require.NoError(t, v.Unmarshal(&cfg))

	// The written template matches the built-in defaults.
	require.Equal(t, Defaults(), cfg)
}

func TestWriteDefaultConfig_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deeply", "nested", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	_, err := os.Stat(path)
	require.NoError(t, err)
}
