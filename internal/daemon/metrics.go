package daemon

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// DaemonMetrics holds operational metrics using OTEL semantic conventions
type DaemonMetrics struct {
	rounds          metric.Int64Counter
	roundDuration   metric.Float64Histogram
	recordsEmitted  metric.Int64Gauge
	collectFailures metric.Int64Counter
}

// NewDaemonMetrics creates daemon metrics on the global meter provider.
func NewDaemonMetrics() (*DaemonMetrics, error) {
	return newDaemonMetrics(otel.Meter("gcpinventory.daemon"))
}

func newDaemonMetrics(meter metric.Meter) (*DaemonMetrics, error) {
	rounds, err := meter.Int64Counter(
		"gcpinventory.daemon.rounds",
		metric.WithDescription("Number of collection rounds"),
		metric.WithUnit("{round}"),
	)
	if err != nil {
		return nil, err
	}

	roundDuration, err := meter.Float64Histogram(
		"gcpinventory.daemon.round.duration",
		metric.WithDescription("Duration of collection rounds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 15, 30, 60, 120, 300, 600),
	)
	if err != nil {
		return nil, err
	}

	recordsEmitted, err := meter.Int64Gauge(
		"gcpinventory.records.emitted",
		metric.WithDescription("Records emitted by the latest round, per kind"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, err
	}

	collectFailures, err := meter.Int64Counter(
		"gcpinventory.daemon.collect.failures",
		metric.WithDescription("Number of collect calls aborted by a connector failure"),
		metric.WithUnit("{failure}"),
	)
	if err != nil {
		return nil, err
	}

	return &DaemonMetrics{
		rounds:          rounds,
		roundDuration:   roundDuration,
		recordsEmitted:  recordsEmitted,
		collectFailures: collectFailures,
	}, nil
}

// RecordRound records a finished round with its status
func (m *DaemonMetrics) RecordRound(ctx context.Context, status string, d time.Duration) {
	attrs := metric.WithAttributes(attribute.String("status", status))
	m.rounds.Add(ctx, 1, attrs)
	m.roundDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordRecords records how many records of kind were emitted
func (m *DaemonMetrics) RecordRecords(ctx context.Context, kind string, count int64) {
	m.recordsEmitted.Record(ctx, count,
		metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("cloud.provider", "gcp"),
		),
	)
}

// RecordCollectFailure records a plugin aborted by a connector failure
func (m *DaemonMetrics) RecordCollectFailure(ctx context.Context, kind string) {
	m.collectFailures.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("kind", kind),
		),
	)
}
