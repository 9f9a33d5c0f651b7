package emitter

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/yairfalse/gcpinventory/pkg/resource"
)

// PrometheusEmitter exposes collection results as OTEL metrics, scraped in
// Prometheus format through the exporter registered on the meter provider.
type PrometheusEmitter struct {
	meter metric.Meter

	// Metrics
	resourceInfo     metric.Int64ObservableGauge
	collectDuration  metric.Float64Histogram
	resourcesTotal   metric.Int64Counter
	entityErrorTotal metric.Int64Counter

	// Latest records per kind, for the observable gauge
	mu        sync.RWMutex
	resources map[string][]resource.Resource
}

// NewPrometheusEmitter creates a Prometheus emitter on the global meter provider.
func NewPrometheusEmitter() (*PrometheusEmitter, error) {
	return NewPrometheusEmitterWithMeter(otel.Meter("gcpinventory"))
}

// NewPrometheusEmitterWithMeter creates a Prometheus emitter on meter.
func NewPrometheusEmitterWithMeter(meter metric.Meter) (*PrometheusEmitter, error) {
	e := &PrometheusEmitter{
		meter:     meter,
		resources: make(map[string][]resource.Resource),
	}

	if err := e.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return e, nil
}

func (e *PrometheusEmitter) initMetrics() error {
	var err error

	e.resourceInfo, err = e.meter.Int64ObservableGauge(
		"gcpinventory_resource_info",
		metric.WithDescription("Collected cloud resource information"),
		metric.WithInt64Callback(e.observeResources),
	)
	if err != nil {
		return fmt.Errorf("create resource_info gauge: %w", err)
	}

	e.collectDuration, err = e.meter.Float64Histogram(
		"gcpinventory_collect_duration_seconds",
		metric.WithDescription("Time taken to collect one kind"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return fmt.Errorf("create collect_duration histogram: %w", err)
	}

	e.resourcesTotal, err = e.meter.Int64Counter(
		"gcpinventory_collected_resources_total",
		metric.WithDescription("Total records collected"),
	)
	if err != nil {
		return fmt.Errorf("create collected_resources counter: %w", err)
	}

	e.entityErrorTotal, err = e.meter.Int64Counter(
		"gcpinventory_entity_errors_total",
		metric.WithDescription("Total entities that failed assembly"),
	)
	if err != nil {
		return fmt.Errorf("create entity_errors counter: %w", err)
	}

	return nil
}

// Emit records the collection result as metrics.
func (e *PrometheusEmitter) Emit(ctx context.Context, result resource.CollectResult) error {
	attrs := metric.WithAttributes(
		attribute.String("kind", result.Kind),
		attribute.String("project", result.Project),
	)

	e.collectDuration.Record(ctx, result.Duration.Seconds(), attrs)
	e.resourcesTotal.Add(ctx, int64(len(result.Resources)), attrs)
	if n := len(result.Errors); n > 0 {
		e.entityErrorTotal.Add(ctx, int64(n), attrs)
		log.Warn().
			Str("kind", result.Kind).
			Str("project", result.Project).
			Int("errors", n).
			Msg("entities failed assembly")
	}

	e.mu.Lock()
	e.resources[result.Kind] = result.Resources
	e.mu.Unlock()

	return nil
}

// observeResources is the callback for the resource_info gauge.
func (e *PrometheusEmitter) observeResources(_ context.Context, o metric.Int64Observer) error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	kinds := make([]string, 0, len(e.resources))
	for k := range e.resources {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)

	for _, kind := range kinds {
		for _, r := range e.resources[kind] {
			attrs := []attribute.KeyValue{
				attribute.String("kind", kind),
				attribute.String("id", r.Reference.ResourceID),
				attribute.String("name", r.Name),
				attribute.String("project", r.Account),
				attribute.String("region", r.RegionCode),
				attribute.String("type", resource.ResourceType(r.CloudServiceGroup, r.CloudServiceType)),
			}

			for _, l := range r.Tags {
				if l.Value != "" {
					attrs = append(attrs, attribute.String("label_"+l.Key, l.Value))
				}
			}

			o.Observe(1, metric.WithAttributes(attrs...))
		}
	}

	return nil
}

// Close is a no-op for Prometheus emitter.
func (e *PrometheusEmitter) Close() error {
	return nil
}
