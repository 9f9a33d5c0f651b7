// Package gcp implements the Google Cloud collector plugins.
//
// Each plugin fetches the listings it needs once per run, then joins them
// in memory into one denormalized record per top-level entity.
package gcp

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yairfalse/gcpinventory/internal/plugin"
	"github.com/yairfalse/gcpinventory/internal/selflink"
	"github.com/yairfalse/gcpinventory/pkg/resource"
)

// Collected kinds.
const (
	KindInstance = "compute_instance"
	KindRoute    = "route"
	KindDataset  = "bigquery_dataset"
)

// Kinds lists every collected kind.
var Kinds = []string{KindInstance, KindRoute, KindDataset}

var tracer = otel.Tracer("github.com/yairfalse/gcpinventory/internal/plugin/gcp")

// Config holds GCP plugin configuration.
type Config struct {
	// ImageProjects are the public image projects used for OS
	// classification. Empty means DefaultImageProjects.
	ImageProjects []ImageProject

	// Clients builds connectors per run. Nil means NewClients.
	Clients ClientFactory
}

func (c Config) clients(ctx context.Context, params plugin.Params) (*Clients, error) {
	if c.Clients != nil {
		return c.Clients(ctx, params)
	}
	return NewClients(ctx, params)
}

func (c Config) imageProjects() []ImageProject {
	if len(c.ImageProjects) == 0 {
		return DefaultImageProjects
	}
	return c.ImageProjects
}

// Plugins returns every GCP plugin built from cfg.
func Plugins(cfg Config) []plugin.Plugin {
	return []plugin.Plugin{
		NewInstancePlugin(cfg),
		NewRoutePlugin(cfg),
		NewDatasetPlugin(cfg),
	}
}

// Register adds every GCP plugin to the plugin registry.
func Register(cfg Config) {
	for _, p := range Plugins(cfg) {
		plugin.Register(p)
	}
}

// ZoneInfo locates an entity. It is derived once from the entity's zone
// self link.
type ZoneInfo struct {
	Zone      string
	Region    string
	ProjectID string
}

func zoneInfoOf(zoneURL, project string) ZoneInfo {
	zone := selflink.Param(zoneURL, "zones")
	return ZoneInfo{
		Zone:      zone,
		Region:    selflink.RegionFromZone(zone),
		ProjectID: project,
	}
}

// helper to create resource with common fields
func newResource(project, region, group, typ, name string) resource.Resource {
	return resource.Resource{
		Name:              name,
		Account:           project,
		RegionCode:        region,
		Provider:          resource.Provider,
		CloudServiceGroup: group,
		CloudServiceType:  typ,
		Tags:              []resource.Label{},
		CollectedAt:       time.Now(),
	}
}

// startCollect opens the collection span of one plugin run.
func startCollect(ctx context.Context, kind, project string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "gcp.collect",
		trace.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("project", project),
		),
	)
}

// finishCollect records the run outcome on the span and in the log.
func finishCollect(span trace.Span, result resource.CollectResult, err error) {
	defer span.End()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Err(err).Str("kind", result.Kind).Str("project", result.Project).Msg("collection failed")
		return
	}

	span.SetAttributes(
		attribute.Int("resources", len(result.Resources)),
		attribute.Int("errors", len(result.Errors)),
	)
	log.Info().
		Str("kind", result.Kind).
		Str("project", result.Project).
		Int("resources", len(result.Resources)).
		Int("errors", len(result.Errors)).
		Dur("duration", result.Duration).
		Msg("collection complete")
}
