package daemon

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/gcpinventory/internal/filter"
	"github.com/yairfalse/gcpinventory/internal/plugin"
	"github.com/yairfalse/gcpinventory/pkg/resource"
)

type mockPlugin struct {
	name        string
	CollectFunc func(ctx context.Context, params plugin.Params) (resource.CollectResult, error)
}

func (m *mockPlugin) Name() string { return m.name }

func (m *mockPlugin) Collect(ctx context.Context, params plugin.Params) (resource.CollectResult, error) {
	if m.CollectFunc != nil {
		return m.CollectFunc(ctx, params)
	}
	return resource.CollectResult{Kind: m.name, Project: params.ProjectID}, nil
}

type recordingEmitter struct {
	mu      sync.Mutex
	results []resource.CollectResult
	err     error
}

func (r *recordingEmitter) Emit(_ context.Context, result resource.CollectResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results = append(r.results, result)
	return r.err
}

func (r *recordingEmitter) Close() error { return nil }

func (r *recordingEmitter) Results() []resource.CollectResult {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]resource.CollectResult(nil), r.results...)
}

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) RecordCollect(_ context.Context, kind, _ string, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	status := "ok"
	if err != nil {
		status = "failed"
	}
	r.calls = append(r.calls, kind+":"+status)
}

func labeled(name string, labels map[string]string) resource.Resource {
	return resource.Resource{Name: name, Tags: resource.LabelsToPairs(labels)}
}

func routePlugin() *mockPlugin {
	return &mockPlugin{
		name: "route",
		CollectFunc: func(_ context.Context, params plugin.Params) (resource.CollectResult, error) {
			return resource.CollectResult{
				Kind:    "route",
				Project: params.ProjectID,
				Resources: []resource.Resource{
					labeled("keep", map[string]string{"env": "prod"}),
					labeled("drop", map[string]string{"env": "dev"}),
				},
				Errors: []resource.ErrorRecord{{EntityID: "3", ResourceType: "VPC.Route", Message: "boom"}},
			}, nil
		},
	}
}

func TestNewDaemon(t *testing.T) {
	_, err := NewDaemon(Config{Interval: time.Minute})
	assert.ErrorContains(t, err, "emitter required")

	_, err = NewDaemon(Config{Emitter: &recordingEmitter{}})
	assert.ErrorContains(t, err, "interval")

	d, err := NewDaemon(Config{Emitter: &recordingEmitter{}, OneShot: true})
	require.NoError(t, err)
	assert.NotNil(t, d)
}

func TestDaemon_RunOnce(t *testing.T) {
	emit := &recordingEmitter{}
	rec := &recorder{}
	failing := &mockPlugin{
		name: "compute_instance",
		CollectFunc: func(context.Context, plugin.Params) (resource.CollectResult, error) {
			return resource.CollectResult{}, errors.New("list instances: denied")
		},
	}

	d, err := NewDaemon(Config{
		OneShot:  true,
		Params:   plugin.Params{ProjectID: "my-project"},
		Plugins:  []plugin.Plugin{failing, routePlugin()},
		Filter:   filter.New(nil, map[string]string{"env": "prod"}, nil),
		Emitter:  emit,
		Recorder: rec,
	})
	require.NoError(t, err)

	round := d.RunOnce(context.Background())

	assert.NotEmpty(t, round.RunID)
	assert.Equal(t, 1, round.Resources)
	assert.Equal(t, 1, round.Errors)
	assert.Equal(t, 1, round.Failed)
	assert.Equal(t, "partial", round.Status(2))

	results := emit.Results()
	require.Len(t, results, 1)
	assert.Equal(t, round.RunID, results[0].RunID)
	assert.Equal(t, "my-project", results[0].Project)
	require.Len(t, results[0].Resources, 1)
	assert.Equal(t, "keep", results[0].Resources[0].Name)
	assert.Len(t, results[0].Errors, 1)

	assert.Equal(t, []string{"compute_instance:failed", "route:ok"}, rec.calls)
	assert.Equal(t, int64(1), d.RoundCount())
	assert.Equal(t, round.RunID, d.LastRound().RunID)
}

func TestDaemon_RunOnce_FreshRunIDs(t *testing.T) {
	emit := &recordingEmitter{}
	d, err := NewDaemon(Config{OneShot: true, Plugins: []plugin.Plugin{routePlugin()}, Emitter: emit})
	require.NoError(t, err)

	first := d.RunOnce(context.Background())
	second := d.RunOnce(context.Background())
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestDaemon_RunOnce_ExcludedKind(t *testing.T) {
	emit := &recordingEmitter{}
	d, err := NewDaemon(Config{
		OneShot: true,
		Plugins: []plugin.Plugin{routePlugin(), &mockPlugin{name: "bigquery_dataset"}},
		Filter:  filter.New([]string{"route"}, nil, nil),
		Emitter: emit,
	})
	require.NoError(t, err)

	d.RunOnce(context.Background())

	results := emit.Results()
	require.Len(t, results, 1)
	assert.Equal(t, "bigquery_dataset", results[0].Kind)
}

func TestDaemon_RunOnce_EmitFailureContinues(t *testing.T) {
	emit := &recordingEmitter{err: errors.New("disk full")}
	d, err := NewDaemon(Config{
		OneShot: true,
		Plugins: []plugin.Plugin{routePlugin(), &mockPlugin{name: "bigquery_dataset"}},
		Emitter: emit,
	})
	require.NoError(t, err)

	round := d.RunOnce(context.Background())
	assert.Len(t, emit.Results(), 2)
	assert.Equal(t, "success", round.Status(2))
}

func TestRound_Status(t *testing.T) {
	assert.Equal(t, "success", Round{}.Status(3))
	assert.Equal(t, "partial", Round{Failed: 1}.Status(3))
	assert.Equal(t, "failure", Round{Failed: 3}.Status(3))
}

func TestDaemon_Start_OneShot(t *testing.T) {
	emit := &recordingEmitter{}
	d, err := NewDaemon(Config{OneShot: true, Plugins: []plugin.Plugin{routePlugin()}, Emitter: emit})
	require.NoError(t, err)

	require.NoError(t, d.Start(context.Background()))
	assert.Equal(t, int64(1), d.RoundCount())
}

func TestDaemon_Start_Interval(t *testing.T) {
	emit := &recordingEmitter{}
	d, err := NewDaemon(Config{
		Interval: 50 * time.Millisecond,
		Plugins:  []plugin.Plugin{routePlugin()},
		Emitter:  emit,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- d.Start(ctx)
	}()

	assert.Eventually(t, func() bool { return d.RoundCount() >= 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not shut down within timeout")
	}
}

func TestDaemon_Handler(t *testing.T) {
	d, err := NewDaemon(Config{OneShot: true, Plugins: []plugin.Plugin{routePlugin()}, Emitter: &recordingEmitter{}})
	require.NoError(t, err)

	metrics := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("metrics"))
	})
	srv := httptest.NewServer(d.Handler(metrics))
	defer srv.Close()

	get := func(path string) int {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, get("/health"))
	assert.Equal(t, http.StatusOK, get("/-/healthy"))
	assert.Equal(t, http.StatusOK, get("/metrics"))
	assert.Equal(t, http.StatusServiceUnavailable, get("/-/ready"))

	d.RunOnce(context.Background())
	assert.Equal(t, http.StatusOK, get("/-/ready"))

	health := d.Health()
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, int64(1), health.Rounds)
	assert.NotEmpty(t, health.LastRunID)
}
