package gcp

import (
	"context"

	"google.golang.org/api/bigquery/v2"
	"google.golang.org/api/compute/v1"
)

// ComputeAPI defines the Compute Engine listings used by the collectors.
// Implementations return fully paginated listings scoped to one project.
type ComputeAPI interface {
	ListInstances(ctx context.Context) ([]*compute.Instance, error)
	ListDisks(ctx context.Context) ([]*compute.Disk, error)
	ListMachineTypes(ctx context.Context) ([]*compute.MachineType, error)
	GetMachineType(ctx context.Context, zone, name string) (*compute.MachineType, error)
	ListImages(ctx context.Context, project string) ([]*compute.Image, error)
	ListNetworks(ctx context.Context) ([]*compute.Network, error)
	ListSubnetworks(ctx context.Context) ([]*compute.Subnetwork, error)
	ListFirewalls(ctx context.Context) ([]*compute.Firewall, error)
	ListForwardingRules(ctx context.Context) ([]*compute.ForwardingRule, error)
	ListTargetPools(ctx context.Context) ([]*compute.TargetPool, error)
	ListURLMaps(ctx context.Context) ([]*compute.UrlMap, error)
	ListBackendServices(ctx context.Context) ([]*compute.BackendService, error)
	ListAutoscalers(ctx context.Context) ([]*compute.Autoscaler, error)
	ListInstanceGroupManagers(ctx context.Context) ([]*compute.InstanceGroupManager, error)
	// ListManagedInstances returns the self links of the instances managed by igm.
	ListManagedInstances(ctx context.Context, igm *compute.InstanceGroupManager) ([]string, error)
	ListRoutes(ctx context.Context) ([]*compute.Route, error)
}

// BigQueryAPI defines the BigQuery operations used by the dataset collector.
type BigQueryAPI interface {
	ListDatasets(ctx context.Context) ([]*bigquery.DatasetListDatasets, error)
	GetDataset(ctx context.Context, projectID, datasetID string) (*bigquery.Dataset, error)
	ListTables(ctx context.Context, projectID, datasetID string) ([]*bigquery.TableListTables, error)
	GetTable(ctx context.Context, projectID, datasetID, tableID string) (*bigquery.Table, error)
	ListProjects(ctx context.Context) ([]*bigquery.ProjectListProjects, error)
}

// Clients bundles the connectors for one collection run.
type Clients struct {
	Compute  ComputeAPI
	BigQuery BigQueryAPI
}
