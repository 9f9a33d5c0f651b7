package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yairfalse/gcpinventory/internal/config"
)

var (
	configPath  string
	logLevel    string
	projectID   string
	credentials string
	zones       []string
	listFilter  string
	kinds       []string
	workers     int
	format      string
	outputPath  string
)

var rootCmd = &cobra.Command{
	Use:   "gcpinventory",
	Short: "Google Cloud inventory collector",
	Long: `gcpinventory - Google Cloud inventory collector

Collects compute instances, VPC routes and BigQuery datasets from a
project, enriches each one with everything attached to it (disks, NICs,
firewall rules, load balancers, autoscalers, routed instances, tables)
and emits one normalized record per entity.

Entities that fail to assemble are reported as error records; the rest
of the run carries on.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return setupLogging(logLevel)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.SetVersionTemplate(`gcpinventory {{.Version}} - Google Cloud inventory collector
`)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configPath, "config", "c", "", "Config file path (TOML)")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	flags.StringVarP(&projectID, "project", "p", "", "Project ID to collect")
	flags.StringVar(&credentials, "credentials", "", "Service account key file; default credentials when empty")
	flags.StringSliceVar(&zones, "zones", nil, "Restrict zonal listings to these zones")
	flags.StringVar(&listFilter, "list-filter", "", "Provider list filter expression")
	flags.StringSliceVar(&kinds, "kinds", nil, "Kinds to collect (compute_instance, route, bigquery_dataset)")
	flags.IntVar(&workers, "workers", 0, "Entities assembled concurrently per kind")
	flags.StringVarP(&format, "format", "o", "", "Output format (json, yaml, table)")
	flags.StringVar(&outputPath, "output", "", "Output file, - for stdout")
}

func setupLogging(level string) error {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	if level == "" {
		level = "info"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level: %w", err)
	}
	zerolog.SetGlobalLevel(lvl)
	return nil
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	applyFlags(cmd, cfg)

	// The config file may carry the level; the flag still wins.
	if !cmd.Flags().Changed("log-level") {
		if err := setupLogging(cfg.Log.Level); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("project") {
		cfg.GCP.ProjectID = projectID
	}
	if flags.Changed("credentials") {
		cfg.GCP.CredentialsFile = credentials
	}
	if flags.Changed("zones") {
		cfg.GCP.Zones = zones
	}
	if flags.Changed("list-filter") {
		cfg.GCP.Filter = listFilter
	}
	if flags.Changed("kinds") {
		cfg.Collector.Kinds = kinds
	}
	if flags.Changed("workers") {
		cfg.Collector.Workers = workers
	}
	if flags.Changed("format") {
		cfg.Output.Format = format
	}
	if flags.Changed("output") {
		cfg.Output.Path = outputPath
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
}
