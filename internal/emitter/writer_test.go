package emitter

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/yairfalse/gcpinventory/pkg/resource"
)

func sampleResult() resource.CollectResult {
	return resource.CollectResult{
		Kind:    "route",
		Project: "my-project",
		RunID:   "run-1",
		Resources: []resource.Resource{
			{
				Name:              "default-route",
				Account:           "my-project",
				RegionCode:        "global",
				Provider:          resource.Provider,
				CloudServiceGroup: "VPC",
				CloudServiceType:  "Route",
				Tags:              []resource.Label{},
				Data:              &resource.RouteData{Name: "default-route", Tags: []string{}},
				Reference:         resource.Reference{ResourceID: "https://example/routes/default-route"},
				CollectedAt:       time.Now(),
			},
		},
		Errors: []resource.ErrorRecord{
			{EntityID: "7", ResourceType: "VPC.Route", Message: "boom\nmore", StackContext: "stack"},
		},
		Duration: 2 * time.Second,
	}
}

func TestNewWriterEmitter_UnknownFormat(t *testing.T) {
	_, err := NewWriterEmitter(&bytes.Buffer{}, "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestWriterEmitter_JSON(t *testing.T) {
	var buf bytes.Buffer
	e, err := NewWriterEmitter(&buf, FormatJSON)
	require.NoError(t, err)

	require.NoError(t, e.Emit(context.Background(), sampleResult()))

	var env map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &env))
	assert.Equal(t, "run-1", env["run_id"])
	assert.Equal(t, "route", env["kind"])
	assert.Equal(t, "2s", env["duration"])

	records := env["resources"].([]any)
	require.Len(t, records, 1)
	rec := records[0].(map[string]any)
	assert.Len(t, rec["fingerprint"], 16)
	assert.Equal(t, "default-route", rec["resource"].(map[string]any)["name"])

	errs := env["errors"].([]any)
	require.Len(t, errs, 1)
	assert.Equal(t, "7", errs[0].(map[string]any)["entity_id"])
}

func TestWriterEmitter_YAML(t *testing.T) {
	var buf bytes.Buffer
	e, err := NewWriterEmitter(&buf, FormatYAML)
	require.NoError(t, err)

	require.NoError(t, e.Emit(context.Background(), sampleResult()))

	var env map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &env))
	assert.Equal(t, "route", env["kind"])
	assert.Equal(t, "my-project", env["project"])
}

func TestWriterEmitter_Table(t *testing.T) {
	var buf bytes.Buffer
	e, err := NewWriterEmitter(&buf, FormatTable)
	require.NoError(t, err)

	require.NoError(t, e.Emit(context.Background(), sampleResult()))

	out := buf.String()
	assert.Contains(t, out, "default-route")
	assert.Contains(t, out, "VPC.Route")
	assert.Contains(t, out, "boom")
	assert.NotContains(t, out, "more")
}

func TestNewEnvelope_FingerprintIgnoresCollectionTime(t *testing.T) {
	a := sampleResult()
	b := sampleResult()
	b.Resources[0].CollectedAt = a.Resources[0].CollectedAt.Add(time.Hour)

	envA, err := NewEnvelope(a)
	require.NoError(t, err)
	envB, err := NewEnvelope(b)
	require.NoError(t, err)
	assert.Equal(t, envA.Resources[0].Fingerprint, envB.Resources[0].Fingerprint)

	b.Resources[0].RegionCode = "us-east1"
	envB, err = NewEnvelope(b)
	require.NoError(t, err)
	assert.NotEqual(t, envA.Resources[0].Fingerprint, envB.Resources[0].Fingerprint)
}

func TestNewEnvelope_NoErrors(t *testing.T) {
	env, err := NewEnvelope(resource.CollectResult{Kind: "route"})
	require.NoError(t, err)
	assert.NotNil(t, env.Errors)
	assert.Empty(t, env.Resources)
}

func TestNewFileEmitter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	e, err := NewFileEmitter(path, FormatJSON)
	require.NoError(t, err)

	require.NoError(t, e.Emit(context.Background(), sampleResult()))
	require.NoError(t, e.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"kind":"route"`)
}
