package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yairfalse/gcpinventory/internal/config"
	"github.com/yairfalse/gcpinventory/internal/emitter"
	"github.com/yairfalse/gcpinventory/internal/plugin"
	"github.com/yairfalse/gcpinventory/pkg/resource"
)

type mockPlugin struct{ name string }

func (m *mockPlugin) Name() string { return m.name }
func (m *mockPlugin) Collect(_ context.Context, _ plugin.Params) (resource.CollectResult, error) {
	return resource.CollectResult{Kind: m.name}, nil
}

func TestSetupLogging(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	require.NoError(t, setupLogging("debug"))
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	require.NoError(t, setupLogging(""))
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())

	assert.Error(t, setupLogging("loud"))
}

func TestApplyFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().AddFlagSet(rootCmd.PersistentFlags())
	require.NoError(t, cmd.Flags().Parse([]string{
		"--project", "flag-project",
		"--zones", "us-east1-b,us-east1-c",
		"--kinds", "route",
		"--workers", "4",
		"-o", "table",
	}))

	cfg := config.Default()
	cfg.GCP.ProjectID = "file-project"
	cfg.GCP.Filter = "status = RUNNING"
	applyFlags(cmd, cfg)

	assert.Equal(t, "flag-project", cfg.GCP.ProjectID)
	assert.Equal(t, []string{"us-east1-b", "us-east1-c"}, cfg.GCP.Zones)
	assert.Equal(t, []string{"route"}, cfg.Collector.Kinds)
	assert.Equal(t, 4, cfg.Collector.Workers)
	assert.Equal(t, "table", cfg.Output.Format)
	// Unset flags leave the file value alone.
	assert.Equal(t, "status = RUNNING", cfg.GCP.Filter)
	assert.Equal(t, "-", cfg.Output.Path)
}

func TestSelectPlugins(t *testing.T) {
	plugin.Clear()
	defer plugin.Clear()
	plugin.Register(&mockPlugin{name: "route"})
	plugin.Register(&mockPlugin{name: "compute_instance"})

	all, err := selectPlugins(nil)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "compute_instance", all[0].Name())

	some, err := selectPlugins([]string{"route"})
	require.NoError(t, err)
	require.Len(t, some, 1)
	assert.Equal(t, "route", some[0].Name())

	_, err = selectPlugins([]string{"bigquery_dataset"})
	assert.ErrorContains(t, err, `no plugin for kind "bigquery_dataset"`)
}

func TestBuildParams(t *testing.T) {
	key := filepath.Join(t.TempDir(), "key.json")
	require.NoError(t, os.WriteFile(key, []byte(`{"type":"service_account","project_id":"key-project"}`), 0600))

	cfg := config.Default()
	cfg.GCP.CredentialsFile = key
	cfg.GCP.Zones = []string{"us-east1-b"}
	cfg.Collector.Workers = 3

	params, err := buildParams(cfg)
	require.NoError(t, err)
	assert.Equal(t, "key-project", params.ProjectID)
	assert.Equal(t, "service_account", params.SecretData["type"])
	assert.Equal(t, []string{"us-east1-b"}, params.Zones)
	assert.Equal(t, 3, params.Workers)

	cfg.GCP.ProjectID = "explicit"
	params, err = buildParams(cfg)
	require.NoError(t, err)
	assert.Equal(t, "explicit", params.ProjectID)
}

func TestBuildParams_NoProject(t *testing.T) {
	_, err := buildParams(config.Default())
	assert.ErrorContains(t, err, "no project id")
}

func TestBuildEmitter(t *testing.T) {
	out := config.OutputConfig{Format: emitter.FormatJSON, Path: filepath.Join(t.TempDir(), "out.json")}

	e, err := buildEmitter(out, false)
	require.NoError(t, err)
	assert.IsType(t, &emitter.WriterEmitter{}, e)
	require.NoError(t, e.Close())

	e, err = buildEmitter(out, true)
	require.NoError(t, err)
	assert.IsType(t, &emitter.MultiEmitter{}, e)
	require.NoError(t, e.Close())

	_, err = buildEmitter(config.OutputConfig{Format: "csv", Path: out.Path}, false)
	assert.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)
	assert.Contains(t, buf.String(), "gcpinventory "+version)
}
