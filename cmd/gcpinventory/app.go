package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/yairfalse/gcpinventory/internal/config"
	"github.com/yairfalse/gcpinventory/internal/daemon"
	"github.com/yairfalse/gcpinventory/internal/emitter"
	"github.com/yairfalse/gcpinventory/internal/filter"
	"github.com/yairfalse/gcpinventory/internal/plugin"
	"github.com/yairfalse/gcpinventory/internal/plugin/gcp"
	"github.com/yairfalse/gcpinventory/internal/telemetry"
)

// app is everything one command needs to run collection rounds.
type app struct {
	daemon    *daemon.Daemon
	telemetry *telemetry.Provider
	emitter   emitter.Emitter
}

// newApp wires telemetry, plugins, filter and emitters from cfg.
// withMetrics adds the Prometheus emitter and daemon metrics.
func newApp(ctx context.Context, cfg *config.Config, withMetrics bool) (*app, error) {
	tp, err := telemetry.NewProvider(ctx, cfg.OTEL)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	params, err := buildParams(cfg)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	gcp.Register(gcp.Config{ImageProjects: cfg.GCP.ImageProjects})
	plugins, err := selectPlugins(cfg.Collector.Kinds)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	emit, err := buildEmitter(cfg.Output, withMetrics)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	var metrics *daemon.DaemonMetrics
	if withMetrics {
		metrics, err = daemon.NewDaemonMetrics()
		if err != nil {
			_ = emit.Close()
			_ = tp.Shutdown(ctx)
			return nil, fmt.Errorf("create daemon metrics: %w", err)
		}
	}

	d, err := daemon.NewDaemon(daemon.Config{
		Interval: cfg.Collector.Interval,
		OneShot:  cfg.Collector.OneShot,
		Params:   params,
		Plugins:  plugins,
		Filter:   filter.New(cfg.Filter.ExcludeKinds, cfg.Filter.IncludeLabels, cfg.Filter.ExcludeLabels),
		Emitter:  emit,
		Recorder: tp,
		Metrics:  metrics,
	})
	if err != nil {
		_ = emit.Close()
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("create daemon: %w", err)
	}

	log.Info().
		Str("project", params.ProjectID).
		Strs("kinds", plugin.Names()).
		Int("workers", params.Workers).
		Str("format", cfg.Output.Format).
		Msg("gcpinventory starting")

	return &app{daemon: d, telemetry: tp, emitter: emit}, nil
}

func (a *app) Close(ctx context.Context) error {
	emitErr := a.emitter.Close()
	if err := a.telemetry.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("telemetry shutdown")
	}
	if emitErr != nil {
		return fmt.Errorf("close emitter: %w", emitErr)
	}
	return nil
}

func buildParams(cfg *config.Config) (plugin.Params, error) {
	secret, err := config.LoadCredentials(cfg.GCP.CredentialsFile)
	if err != nil {
		return plugin.Params{}, err
	}

	params := plugin.Params{
		ProjectID:  cfg.GCP.ProjectID,
		SecretData: secret,
		Filter:     cfg.GCP.Filter,
		Zones:      cfg.GCP.Zones,
		Workers:    cfg.Collector.Workers,
	}
	params.ProjectID = gcp.ProjectID(params)
	if params.ProjectID == "" {
		return plugin.Params{}, fmt.Errorf("no project id in config or credentials file")
	}
	return params, nil
}

// selectPlugins returns the registered plugins for kinds, or all of them.
func selectPlugins(kinds []string) ([]plugin.Plugin, error) {
	if len(kinds) == 0 {
		return plugin.All(), nil
	}

	plugins := make([]plugin.Plugin, 0, len(kinds))
	for _, kind := range kinds {
		p, ok := plugin.Get(kind)
		if !ok {
			return nil, fmt.Errorf("no plugin for kind %q", kind)
		}
		plugins = append(plugins, p)
	}
	return plugins, nil
}

func buildEmitter(cfg config.OutputConfig, withMetrics bool) (emitter.Emitter, error) {
	writer, err := emitter.NewFileEmitter(cfg.Path, cfg.Format)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	if !withMetrics {
		return writer, nil
	}

	prom, err := emitter.NewPrometheusEmitter()
	if err != nil {
		_ = writer.Close()
		return nil, fmt.Errorf("create prometheus emitter: %w", err)
	}
	return emitter.NewMultiEmitter(writer, prom), nil
}
