package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ga4gh-tools/svcreg/internal/config"
	"github.com/ga4gh-tools/svcreg/internal/log"
	"github.com/ga4gh-tools/svcreg/internal/tracing"
)

var (
	version   = "dev"
	cfgFile   string
	cfg       config.Config
	debugFlag bool
	traceFlag bool
)

var rootCmd = &cobra.Command{
	Use:   "svcreg",
	Short: "GA4GH service registry toolkit",
	Long: `Tools for working with the GA4GH service registry: generate an HTML
summary of registered services, plot DRS server locations on a world
map, and build registry submission JSON from a spreadsheet export.`,
	Version:      version,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		// initConfig has run by now; reject bad settings before any
		// pipeline touches the network or the filesystem.
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default: ~/.config/svcreg/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"write a debug log (also enabled by SVCREG_DEBUG)")
	rootCmd.PersistentFlags().BoolVar(&traceFlag, "trace", false,
		"enable OpenTelemetry tracing for this run")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("registry.url", defaults.Registry.BaseURL)
	viper.SetDefault("registry.timeout_seconds", defaults.Registry.TimeoutSeconds)
	viper.SetDefault("registry.retry_max", defaults.Registry.RetryMax)
	viper.SetDefault("registry.probe_timeout_seconds", defaults.Registry.ProbeTimeoutSeconds)
	viper.SetDefault("report.output", defaults.Report.Output)
	viper.SetDefault("report.live", defaults.Report.Live)
	viper.SetDefault("map.input", defaults.Map.Input)
	viper.SetDefault("map.png", defaults.Map.PNG)
	viper.SetDefault("map.svg", defaults.Map.SVG)
	viper.SetDefault("map.labels", defaults.Map.Labels)
	viper.SetDefault("generate.output", defaults.Generate.Output)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)
	viper.SetDefault("tracing.service_name", defaults.Tracing.ServiceName)

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// Config lookup order:
		// 1. .svcreg/config.yaml (current directory)
		// 2. ~/.config/svcreg/config.yaml (user config)
		if _, err := os.Stat(".svcreg/config.yaml"); err == nil {
			viper.SetConfigFile(".svcreg/config.yaml")
		} else {
			home, _ := os.UserHomeDir()
			viper.AddConfigPath(filepath.Join(home, ".config", "svcreg"))
			viper.SetConfigName("config")
			viper.SetConfigType("yaml")
		}
	}

	if err := viper.ReadInConfig(); err != nil {
		// No config file found anywhere - create default at .svcreg/config.yaml
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			defaultPath := ".svcreg/config.yaml"
			if writeErr := config.WriteDefaultConfig(defaultPath); writeErr == nil {
				viper.SetConfigFile(defaultPath)
				_ = viper.ReadInConfig()
			}
			// If write fails, just continue with defaults (no config file)
		}
	}

	_ = viper.Unmarshal(&cfg)

	if traceFlag {
		cfg.Tracing.Enabled = true
	}
}

// initLogging starts the debug log when requested via --debug or
// SVCREG_DEBUG. Returns a cleanup function; logging stays off when
// neither is set.
func initLogging() (func(), error) {
	debug := debugFlag || os.Getenv("SVCREG_DEBUG") != ""
	if !debug {
		return func() {}, nil
	}

	logPath := os.Getenv("SVCREG_LOG")
	if logPath == "" {
		logPath = "debug.log"
	}

	cleanup, err := log.Init(logPath)
	if err != nil {
		return nil, fmt.Errorf("initializing logging: %w", err)
	}
	log.Info(log.CatConfig, "svcreg starting", "version", version, "logPath", logPath)
	return cleanup, nil
}

// newTracing builds the tracer provider for one command run.
func newTracing() (*tracing.Provider, error) {
	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}
	return provider, nil
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
