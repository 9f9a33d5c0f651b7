package daemon

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/yairfalse/gcpinventory/internal/plugin"
)

func newTestMetrics(t *testing.T) (*DaemonMetrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	dm, err := newDaemonMetrics(provider.Meter("gcpinventory.daemon"))
	require.NoError(t, err)
	return dm, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestDaemonMetrics_RecordRound(t *testing.T) {
	dm, reader := newTestMetrics(t)

	dm.RecordRound(context.Background(), "success", 3*time.Second)

	metrics := collect(t, reader)

	rounds := metrics["gcpinventory.daemon.rounds"].Data.(metricdata.Sum[int64])
	require.Len(t, rounds.DataPoints, 1)
	assert.Equal(t, int64(1), rounds.DataPoints[0].Value)
	status, ok := rounds.DataPoints[0].Attributes.Value("status")
	require.True(t, ok)
	assert.Equal(t, "success", status.AsString())

	duration := metrics["gcpinventory.daemon.round.duration"].Data.(metricdata.Histogram[float64])
	require.Len(t, duration.DataPoints, 1)
	assert.Equal(t, 3.0, duration.DataPoints[0].Sum)
	assert.Equal(t, []float64{1, 5, 15, 30, 60, 120, 300, 600}, duration.DataPoints[0].Bounds)
}

func TestDaemonMetrics_RecordRecords(t *testing.T) {
	dm, reader := newTestMetrics(t)

	ctx := context.Background()
	dm.RecordRecords(ctx, "route", 12)
	dm.RecordRecords(ctx, "route", 10)

	metrics := collect(t, reader)
	gauge := metrics["gcpinventory.records.emitted"].Data.(metricdata.Gauge[int64])
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(10), gauge.DataPoints[0].Value)
}

func TestDaemonMetrics_RecordCollectFailure(t *testing.T) {
	dm, reader := newTestMetrics(t)

	ctx := context.Background()
	dm.RecordCollectFailure(ctx, "route")
	dm.RecordCollectFailure(ctx, "route")
	dm.RecordCollectFailure(ctx, "bigquery_dataset")

	metrics := collect(t, reader)
	sum := metrics["gcpinventory.daemon.collect.failures"].Data.(metricdata.Sum[int64])
	require.Len(t, sum.DataPoints, 2)

	byKind := make(map[string]int64)
	for _, dp := range sum.DataPoints {
		kind, _ := dp.Attributes.Value("kind")
		byKind[kind.AsString()] = dp.Value
	}
	assert.Equal(t, map[string]int64{"route": 2, "bigquery_dataset": 1}, byKind)
}

func TestDaemon_RecordsMetricsPerRound(t *testing.T) {
	dm, reader := newTestMetrics(t)

	d, err := NewDaemon(Config{
		OneShot: true,
		Plugins: []plugin.Plugin{routePlugin()},
		Emitter: &recordingEmitter{},
		Metrics: dm,
	})
	require.NoError(t, err)

	d.RunOnce(context.Background())

	metrics := collect(t, reader)
	assert.Contains(t, metrics, "gcpinventory.daemon.rounds")
	gauge := metrics["gcpinventory.records.emitted"].Data.(metricdata.Gauge[int64])
	require.Len(t, gauge.DataPoints, 1)
	assert.Equal(t, int64(2), gauge.DataPoints[0].Value)
}
