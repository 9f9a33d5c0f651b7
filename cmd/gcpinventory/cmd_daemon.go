package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	daemonInterval time.Duration
	metricsAddr    string
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Collect continuously on an interval",
	Long: `Run gcpinventory as a daemon. A collection round runs at start and
then once per interval; every round gets a fresh run id.

Features:
- Prometheus metrics on /metrics
- Health checks on /health, /-/healthy, /-/ready
- Graceful shutdown on SIGTERM/SIGINT`,
	Example: `  gcpinventory daemon -p my-project                    # Every 5 minutes
  gcpinventory daemon -p my-project --interval 15m
  gcpinventory daemon -c gcpinventory.toml --metrics-addr :2112`,
	RunE: runDaemon,
}

func init() {
	rootCmd.AddCommand(daemonCmd)

	daemonCmd.Flags().DurationVar(&daemonInterval, "interval", 0, "Collection interval (default from config, 5m)")
	daemonCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Metrics and health server address (default from config, :9090)")
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("interval") {
		cfg.Collector.Interval = daemonInterval
		cfg.Collector.OneShot = false
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.OTEL.Metrics.Listen = metricsAddr
	}
	if cfg.Collector.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("shutdown")
		}
	}()

	ln, err := net.Listen("tcp", cfg.OTEL.Metrics.Listen)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.OTEL.Metrics.Listen, err)
	}
	srv := &http.Server{
		Handler:           a.daemon.Handler(a.telemetry.MetricsHandler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var g run.Group

	// Collection loop
	{
		loopCtx, stop := context.WithCancel(ctx)
		g.Add(func() error {
			return a.daemon.Start(loopCtx)
		}, func(error) {
			stop()
		})
	}

	// Metrics and health server
	{
		g.Add(func() error {
			log.Info().Str("addr", ln.Addr().String()).Msg("starting metrics server")
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		}, func(error) {
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		})
	}

	// Signals
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	err = g.Run()
	if errors.Is(err, run.ErrSignal) {
		log.Info().Str("reason", err.Error()).Msg("shutting down")
		return nil
	}
	return err
}
