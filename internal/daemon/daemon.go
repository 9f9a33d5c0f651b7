// Package daemon runs collection rounds, once or on an interval.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yairfalse/gcpinventory/internal/emitter"
	"github.com/yairfalse/gcpinventory/internal/filter"
	"github.com/yairfalse/gcpinventory/internal/plugin"
)

var tracer = otel.Tracer("github.com/yairfalse/gcpinventory/internal/daemon")

// CollectRecorder observes every plugin collect call.
type CollectRecorder interface {
	RecordCollect(ctx context.Context, kind, project string, d time.Duration, err error)
}

// Config holds daemon configuration
type Config struct {
	Interval time.Duration
	OneShot  bool
	Params   plugin.Params
	Plugins  []plugin.Plugin
	Filter   *filter.Filter // Nil keeps every kind and record
	Emitter  emitter.Emitter
	Recorder CollectRecorder // Optional
	Metrics  *DaemonMetrics  // Optional
}

// Daemon runs collection rounds over a fixed set of plugins.
type Daemon struct {
	interval time.Duration
	oneShot  bool
	params   plugin.Params
	plugins  []plugin.Plugin
	filter   *filter.Filter
	emitter  emitter.Emitter
	recorder CollectRecorder
	metrics  *DaemonMetrics

	startTime  time.Time
	roundCount atomic.Int64

	mu        sync.RWMutex
	lastRound Round
}

// Round summarizes one collection round.
type Round struct {
	RunID     string
	Resources int
	Errors    int // Entities that failed assembly
	Failed    int // Plugins aborted by a connector failure
	Duration  time.Duration
}

// Status returns "success", "partial" or "failure".
func (r Round) Status(plugins int) string {
	switch {
	case r.Failed == 0:
		return "success"
	case r.Failed < plugins:
		return "partial"
	default:
		return "failure"
	}
}

// NewDaemon creates a new daemon instance
func NewDaemon(config Config) (*Daemon, error) {
	if config.Emitter == nil {
		return nil, errors.New("emitter required")
	}
	if !config.OneShot && config.Interval <= 0 {
		return nil, errors.New("interval must be positive")
	}
	if config.Filter != nil && config.Filter.IsEmpty() {
		config.Filter = nil
	}
	if config.Filter != nil {
		log.Info().Msg("kind and label filters active")
	}
	return &Daemon{
		interval:  config.Interval,
		oneShot:   config.OneShot,
		params:    config.Params,
		plugins:   config.Plugins,
		filter:    config.Filter,
		emitter:   config.Emitter,
		recorder:  config.Recorder,
		metrics:   config.Metrics,
		startTime: time.Now(),
	}, nil
}

// Start runs a round immediately, then one per interval until ctx is done.
// In one-shot mode it returns after the first round.
func (d *Daemon) Start(ctx context.Context) error {
	d.RunOnce(ctx)
	if d.oneShot {
		log.Info().Msg("one-shot mode, exiting")
		return nil
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			d.RunOnce(ctx)
		}
	}
}

// RunOnce collects every plugin once under a fresh run id and emits the results.
func (d *Daemon) RunOnce(ctx context.Context) Round {
	round := Round{RunID: uuid.NewString()}
	start := time.Now()

	ctx, span := tracer.Start(ctx, "collect.round")
	span.SetAttributes(attribute.String("run_id", round.RunID))
	defer span.End()

	log.Info().
		Str("run_id", round.RunID).
		Int("plugins", len(d.plugins)).
		Msg("starting collection round")

	for _, p := range d.plugins {
		if ctx.Err() != nil {
			break
		}
		if d.filter != nil && !d.filter.ShouldCollectKind(p.Name()) {
			log.Debug().Str("kind", p.Name()).Msg("kind excluded")
			continue
		}
		d.collect(ctx, p, &round)
	}

	round.Duration = time.Since(start)
	d.roundCount.Add(1)
	d.mu.Lock()
	d.lastRound = round
	d.mu.Unlock()

	status := round.Status(len(d.plugins))
	if d.metrics != nil {
		d.metrics.RecordRound(ctx, status, round.Duration)
	}
	span.SetAttributes(
		attribute.String("status", status),
		attribute.Int("resources", round.Resources),
		attribute.Int("errors", round.Errors),
	)

	log.Info().
		Str("run_id", round.RunID).
		Str("status", status).
		Int("resources", round.Resources).
		Int("errors", round.Errors).
		Int("failed_plugins", round.Failed).
		Dur("duration", round.Duration).
		Msg("collection round complete")

	return round
}

func (d *Daemon) collect(ctx context.Context, p plugin.Plugin, round *Round) {
	start := time.Now()
	result, err := p.Collect(ctx, d.params)
	if d.recorder != nil {
		d.recorder.RecordCollect(ctx, p.Name(), d.params.ProjectID, time.Since(start), err)
	}
	if err != nil {
		round.Failed++
		if d.metrics != nil {
			d.metrics.RecordCollectFailure(ctx, p.Name())
		}
		log.Error().Err(err).Str("kind", p.Name()).Msg("collect failed")
		return
	}

	result.RunID = round.RunID
	if d.filter != nil {
		result = d.filter.Apply(result)
	}
	round.Resources += len(result.Resources)
	round.Errors += len(result.Errors)
	if d.metrics != nil {
		d.metrics.RecordRecords(ctx, p.Name(), int64(len(result.Resources)))
	}

	if err := d.emitter.Emit(ctx, result); err != nil {
		log.Error().Err(err).Str("kind", p.Name()).Msg("emit failed")
	}
}

// Health returns daemon health status
func (d *Daemon) Health() HealthStatus {
	d.mu.RLock()
	last := d.lastRound
	d.mu.RUnlock()

	return HealthStatus{
		Status:    "healthy",
		Uptime:    int64(time.Since(d.startTime).Seconds()),
		Rounds:    d.roundCount.Load(),
		LastRunID: last.RunID,
	}
}

// HealthStatus represents daemon health
type HealthStatus struct {
	Status    string `json:"status"`
	Uptime    int64  `json:"uptime_seconds"`
	Rounds    int64  `json:"rounds"`
	LastRunID string `json:"last_run_id,omitempty"`
}

// RoundCount returns total rounds run
func (d *Daemon) RoundCount() int64 {
	return d.roundCount.Load()
}

// LastRound returns the most recent round summary.
func (d *Daemon) LastRound() Round {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastRound
}

// Handler serves metrics and the health endpoints.
// Ready means at least one round has completed.
func (d *Daemon) Handler(metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}

	healthy := func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, d.Health())
	}
	mux.HandleFunc("/health", healthy)
	mux.HandleFunc("/-/healthy", healthy)
	mux.HandleFunc("/-/ready", func(w http.ResponseWriter, _ *http.Request) {
		if d.RoundCount() == 0 {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "waiting for first round"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("write response")
	}
}
