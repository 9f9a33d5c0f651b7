package gcp

import (
	"context"
	"sync/atomic"

	"google.golang.org/api/bigquery/v2"
	"google.golang.org/api/compute/v1"

	"github.com/yairfalse/gcpinventory/internal/plugin"
)

// fakeCompute implements ComputeAPI for testing. Unset functions return
// empty listings.
type fakeCompute struct {
	instances       []*compute.Instance
	disks           []*compute.Disk
	machineTypes    []*compute.MachineType
	images          map[string][]*compute.Image
	networks        []*compute.Network
	subnetworks     []*compute.Subnetwork
	firewalls       []*compute.Firewall
	forwardingRules []*compute.ForwardingRule
	targetPools     []*compute.TargetPool
	urlMaps         []*compute.UrlMap
	backendServices []*compute.BackendService
	autoscalers     []*compute.Autoscaler
	groupManagers   []*compute.InstanceGroupManager
	managed         map[string][]string
	routes          []*compute.Route

	ListInstancesFunc  func(ctx context.Context) ([]*compute.Instance, error)
	GetMachineTypeFunc func(ctx context.Context, zone, name string) (*compute.MachineType, error)

	getMachineTypeCalls atomic.Int32
}

func (f *fakeCompute) ListInstances(ctx context.Context) ([]*compute.Instance, error) {
	if f.ListInstancesFunc != nil {
		return f.ListInstancesFunc(ctx)
	}
	return f.instances, nil
}

func (f *fakeCompute) ListDisks(context.Context) ([]*compute.Disk, error) {
	return f.disks, nil
}

func (f *fakeCompute) ListMachineTypes(context.Context) ([]*compute.MachineType, error) {
	return f.machineTypes, nil
}

func (f *fakeCompute) GetMachineType(ctx context.Context, zone, name string) (*compute.MachineType, error) {
	f.getMachineTypeCalls.Add(1)
	if f.GetMachineTypeFunc != nil {
		return f.GetMachineTypeFunc(ctx, zone, name)
	}
	return &compute.MachineType{Name: name, Zone: zone}, nil
}

func (f *fakeCompute) ListImages(_ context.Context, project string) ([]*compute.Image, error) {
	return f.images[project], nil
}

func (f *fakeCompute) ListNetworks(context.Context) ([]*compute.Network, error) {
	return f.networks, nil
}

func (f *fakeCompute) ListSubnetworks(context.Context) ([]*compute.Subnetwork, error) {
	return f.subnetworks, nil
}

func (f *fakeCompute) ListFirewalls(context.Context) ([]*compute.Firewall, error) {
	return f.firewalls, nil
}

func (f *fakeCompute) ListForwardingRules(context.Context) ([]*compute.ForwardingRule, error) {
	return f.forwardingRules, nil
}

func (f *fakeCompute) ListTargetPools(context.Context) ([]*compute.TargetPool, error) {
	return f.targetPools, nil
}

func (f *fakeCompute) ListURLMaps(context.Context) ([]*compute.UrlMap, error) {
	return f.urlMaps, nil
}

func (f *fakeCompute) ListBackendServices(context.Context) ([]*compute.BackendService, error) {
	return f.backendServices, nil
}

func (f *fakeCompute) ListAutoscalers(context.Context) ([]*compute.Autoscaler, error) {
	return f.autoscalers, nil
}

func (f *fakeCompute) ListInstanceGroupManagers(context.Context) ([]*compute.InstanceGroupManager, error) {
	return f.groupManagers, nil
}

func (f *fakeCompute) ListManagedInstances(_ context.Context, igm *compute.InstanceGroupManager) ([]string, error) {
	return f.managed[igm.Name], nil
}

func (f *fakeCompute) ListRoutes(context.Context) ([]*compute.Route, error) {
	return f.routes, nil
}

// fakeBigQuery implements BigQueryAPI for testing.
type fakeBigQuery struct {
	datasets []*bigquery.DatasetListDatasets
	full     map[string]*bigquery.Dataset
	tables   map[string][]*bigquery.Table
	projects []*bigquery.ProjectListProjects

	GetDatasetFunc func(ctx context.Context, projectID, datasetID string) (*bigquery.Dataset, error)
}

func (f *fakeBigQuery) ListDatasets(context.Context) ([]*bigquery.DatasetListDatasets, error) {
	return f.datasets, nil
}

func (f *fakeBigQuery) GetDataset(ctx context.Context, projectID, datasetID string) (*bigquery.Dataset, error) {
	if f.GetDatasetFunc != nil {
		return f.GetDatasetFunc(ctx, projectID, datasetID)
	}
	return f.full[datasetID], nil
}

func (f *fakeBigQuery) ListTables(_ context.Context, _, datasetID string) ([]*bigquery.TableListTables, error) {
	var out []*bigquery.TableListTables
	for _, t := range f.tables[datasetID] {
		out = append(out, &bigquery.TableListTables{Id: t.Id, TableReference: t.TableReference})
	}
	return out, nil
}

func (f *fakeBigQuery) GetTable(_ context.Context, _, datasetID, tableID string) (*bigquery.Table, error) {
	for _, t := range f.tables[datasetID] {
		if t.TableReference.TableId == tableID {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeBigQuery) ListProjects(context.Context) ([]*bigquery.ProjectListProjects, error) {
	return f.projects, nil
}

func staticClients(c *fakeCompute, bq *fakeBigQuery) ClientFactory {
	return func(context.Context, plugin.Params) (*Clients, error) {
		return &Clients{Compute: c, BigQuery: bq}, nil
	}
}

const (
	testProject = "my-project"
	computeBase = "https://www.googleapis.com/compute/v1/projects/my-project"
)

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }
