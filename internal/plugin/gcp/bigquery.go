package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/bigquery/v2"

	"github.com/yairfalse/gcpinventory/internal/plugin"
	"github.com/yairfalse/gcpinventory/pkg/resource"
)

const (
	groupBigQuery    = "BigQuery"
	typeSQLWorkspace = "SQLWorkspace"
)

// DatasetPlugin collects BigQuery datasets with their tables.
type DatasetPlugin struct {
	cfg Config
}

// NewDatasetPlugin creates the BigQuery dataset collector.
func NewDatasetPlugin(cfg Config) *DatasetPlugin {
	return &DatasetPlugin{cfg: cfg}
}

// Name returns the collected kind.
func (p *DatasetPlugin) Name() string {
	return KindDataset
}

// Collect lists datasets and projects, then fetches each dataset and its
// tables. A failing dataset fetch only fails that dataset.
func (p *DatasetPlugin) Collect(ctx context.Context, params plugin.Params) (result resource.CollectResult, err error) {
	start := time.Now()
	project := ProjectID(params)
	result = resource.CollectResult{Kind: p.Name(), Project: project}

	ctx, span := startCollect(ctx, p.Name(), project)
	defer func() { finishCollect(span, result, err) }()

	clients, err := p.cfg.clients(ctx, params)
	if err != nil {
		return result, errors.Wrap(err, "create clients")
	}
	api := clients.BigQuery

	var (
		datasets []*bigquery.DatasetListDatasets
		projects []*bigquery.ProjectListProjects
	)
	g, gctx := errgroup.WithContext(ctx)
	fetch(gctx, g, "datasets", &datasets, api.ListDatasets)
	fetch(gctx, g, "projects", &projects, api.ListProjects)
	if err = g.Wait(); err != nil {
		return result, err
	}

	build := func(ctx context.Context, entry *bigquery.DatasetListDatasets) (resource.Resource, error) {
		ref := entry.DatasetReference
		if ref == nil {
			return resource.Resource{}, errors.Newf("dataset %s has no reference", entry.Id)
		}
		ds, err := api.GetDataset(ctx, ref.ProjectId, ref.DatasetId)
		if err != nil {
			return resource.Resource{}, errors.Wrapf(err, "get dataset %s", ref.DatasetId)
		}
		tables, err := fetchTables(ctx, api, ref.ProjectId, ref.DatasetId)
		if err != nil {
			return resource.Resource{}, err
		}
		return assembleDataset(ds, tables, projects, project), nil
	}

	result.Resources, result.Errors = collectEach(ctx, p.Name(),
		resource.ResourceType(groupBigQuery, typeSQLWorkspace),
		datasets, params.Workers, datasetID, build)
	result.Duration = time.Since(start)
	return result, nil
}

func datasetID(entry *bigquery.DatasetListDatasets) string {
	return entry.Id
}

func fetchTables(ctx context.Context, api BigQueryAPI, projectID, dsID string) ([]*bigquery.Table, error) {
	list, err := api.ListTables(ctx, projectID, dsID)
	if err != nil {
		return nil, errors.Wrapf(err, "list tables of %s", dsID)
	}

	tables := make([]*bigquery.Table, 0, len(list))
	for _, t := range list {
		if t == nil || t.TableReference == nil {
			continue
		}
		table, err := api.GetTable(ctx, projectID, dsID, t.TableReference.TableId)
		if err != nil {
			return nil, errors.Wrapf(err, "get table %s.%s", dsID, t.TableReference.TableId)
		}
		tables = append(tables, table)
	}
	return tables, nil
}

func assembleDataset(ds *bigquery.Dataset, tables []*bigquery.Table, projects []*bigquery.ProjectListProjects, project string) resource.Resource {
	var ref resource.DatasetReference
	if ds.DatasetReference != nil {
		ref = resource.DatasetReference{
			DatasetID: ds.DatasetReference.DatasetId,
			ProjectID: ds.DatasetReference.ProjectId,
		}
	}

	data := &resource.DatasetData{
		ID:                                  ds.Id,
		Name:                                ref.DatasetID,
		Project:                             project,
		Region:                              strings.ToLower(ds.Location),
		MatchingProjects:                    matchingProjects(ref.ProjectID, projects),
		DatasetReference:                    ref,
		FriendlyName:                        ds.FriendlyName,
		Access:                              accessEntries(ds.Access),
		Labels:                              resource.LabelsToPairs(ds.Labels),
		Etag:                                ds.Etag,
		Location:                            ds.Location,
		VisibleOnConsole:                    !strings.HasPrefix(ref.DatasetID, "_"),
		DefaultTableExpirationMs:            ds.DefaultTableExpirationMs,
		DefaultTableExpirationMsDisplay:     expirationDisplay(ds.DefaultTableExpirationMs),
		DefaultPartitionExpirationMs:        ds.DefaultPartitionExpirationMs,
		DefaultPartitionExpirationMsDisplay: expirationDisplay(ds.DefaultPartitionExpirationMs),
		SelfLink:                            ds.SelfLink,
		CreationTime:                        msTime(ds.CreationTime),
		LastModifiedTime:                    msTime(ds.LastModifiedTime),
	}
	data.Tables, data.TableSchemas = tablesOf(tables)

	res := newResource(project, data.Region, groupBigQuery, typeSQLWorkspace, ref.DatasetID)
	res.Tags = data.Labels
	res.Data = data
	res.Reference = resource.Reference{
		ResourceID: ds.SelfLink,
		ExternalLink: fmt.Sprintf("https://console.cloud.google.com/bigquery?project=%s&p=%s&page=dataset&d=%s",
			project, ref.ProjectID, ref.DatasetID),
	}
	return res
}

func matchingProjects(projectID string, projects []*bigquery.ProjectListProjects) []resource.ProjectModel {
	out := []resource.ProjectModel{}
	for _, p := range projects {
		if p == nil || p.ProjectReference == nil || p.ProjectReference.ProjectId != projectID {
			continue
		}
		out = append(out, resource.ProjectModel{
			ID:           p.Id,
			Kind:         p.Kind,
			NumericID:    fmt.Sprint(p.NumericId),
			ProjectID:    p.ProjectReference.ProjectId,
			FriendlyName: p.FriendlyName,
		})
	}
	return out
}

func accessEntries(entries []*bigquery.DatasetAccess) []resource.Access {
	out := make([]resource.Access, 0, len(entries))
	for _, a := range entries {
		if a == nil {
			continue
		}
		out = append(out, resource.Access{
			Role:         a.Role,
			SpecialGroup: a.SpecialGroup,
			UserByEmail:  a.UserByEmail,
			GroupByEmail: a.GroupByEmail,
			Domain:       a.Domain,
		})
	}
	return out
}

// tablesOf converts tables and flattens their top-level columns.
func tablesOf(tables []*bigquery.Table) ([]resource.Table, []resource.TableSchemaRef) {
	out := make([]resource.Table, 0, len(tables))
	schemas := []resource.TableSchemaRef{}

	for _, t := range tables {
		if t == nil {
			continue
		}
		table := resource.Table{
			ID:               t.Id,
			Kind:             t.Kind,
			FriendlyName:     t.FriendlyName,
			Type:             t.Type,
			NumRows:          fmt.Sprint(t.NumRows),
			Schema:           []resource.TableSchema{},
			Labels:           resource.LabelsToPairs(t.Labels),
			CreationTime:     msTime(t.CreationTime),
			ExpirationTime:   msTime(t.ExpirationTime),
			LastModifiedTime: msTime(t.LastModifiedTime),
		}
		if t.TableReference != nil {
			table.TableReference = resource.TableReference{
				ProjectID: t.TableReference.ProjectId,
				DatasetID: t.TableReference.DatasetId,
				TableID:   t.TableReference.TableId,
			}
		}
		if tp := t.TimePartitioning; tp != nil {
			table.TimePartitioning = &resource.TimePartitioning{
				Type:                   tp.Type,
				ExpirationMs:           tp.ExpirationMs,
				Field:                  tp.Field,
				RequirePartitionFilter: tp.RequirePartitionFilter,
			}
		}
		if rp := t.RangePartitioning; rp != nil {
			table.RangePartitioning = &resource.RangePartitioning{Field: rp.Field}
			if rp.Range != nil {
				table.RangePartitioning.Start = rp.Range.Start
				table.RangePartitioning.End = rp.Range.End
				table.RangePartitioning.Interval = rp.Range.Interval
			}
		}
		if t.View != nil {
			legacy := t.View.UseLegacySql
			table.UseLegacySQL = &legacy
		}
		if t.Schema != nil {
			for _, f := range t.Schema.Fields {
				if f == nil {
					continue
				}
				table.Schema = append(table.Schema, resource.TableSchema{Name: f.Name, Type: f.Type, Mode: f.Mode})
				schemas = append(schemas, resource.TableSchemaRef{
					TableID: table.TableReference.TableID,
					Name:    f.Name,
					Type:    f.Type,
					Mode:    f.Mode,
				})
			}
		}
		out = append(out, table)
	}
	return out, schemas
}

// msTime formats epoch milliseconds as RFC 3339 UTC. Zero is "".
func msTime[T ~int64 | ~uint64](ms T) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(int64(ms)).UTC().Format(time.RFC3339)
}

// expirationDisplay renders an expiration in milliseconds, in days when
// it is a whole number of days.
func expirationDisplay(ms int64) string {
	if ms == 0 {
		return ""
	}
	d := time.Duration(ms) * time.Millisecond
	const day = 24 * time.Hour
	if d%day == 0 {
		return fmt.Sprintf("%d days", d/day)
	}
	return d.String()
}
