package gcp

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/cockroachdb/errors"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/bigquery/v2"
	"google.golang.org/api/compute/v1"
	"google.golang.org/api/option"

	"github.com/yairfalse/gcpinventory/internal/plugin"
	"github.com/yairfalse/gcpinventory/internal/selflink"
)

// ClientFactory builds the connectors for one collection run.
type ClientFactory func(ctx context.Context, params plugin.Params) (*Clients, error)

// ProjectID returns the project to collect: the explicit parameter, or the
// project_id field of the service account key.
func ProjectID(params plugin.Params) string {
	if params.ProjectID != "" {
		return params.ProjectID
	}
	return params.SecretData["project_id"]
}

// NewClients builds live connectors. SecretData, when present, is a service
// account key; otherwise application default credentials are used.
func NewClients(ctx context.Context, params plugin.Params) (*Clients, error) {
	project := ProjectID(params)
	if project == "" {
		return nil, errors.New("project id required")
	}

	creds, err := credentials(ctx, params.SecretData)
	if err != nil {
		return nil, errors.Wrap(err, "load credentials")
	}

	computeSvc, err := compute.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, errors.Wrap(err, "create compute service")
	}
	bqSvc, err := bigquery.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, errors.Wrap(err, "create bigquery service")
	}

	return &Clients{
		Compute: &computeConnector{
			svc:     computeSvc,
			project: project,
			filter:  params.Filter,
			zones:   params.Zones,
		},
		BigQuery: &bigQueryConnector{svc: bqSvc, project: project},
	}, nil
}

func credentials(ctx context.Context, secret map[string]string) (*google.Credentials, error) {
	scopes := []string{compute.ComputeReadonlyScope, bigquery.CloudPlatformReadOnlyScope}
	if len(secret) == 0 {
		return google.FindDefaultCredentials(ctx, scopes...)
	}
	raw, err := json.Marshal(secret)
	if err != nil {
		return nil, err
	}
	return google.CredentialsFromJSON(ctx, raw, scopes...)
}

// computeConnector implements ComputeAPI over the Compute Engine REST API.
// The filter applies to the top-level listings (instances, routes) only;
// zones restrict the instance listing.
type computeConnector struct {
	svc     *compute.Service
	project string
	filter  string
	zones   []string
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *computeConnector) ListInstances(ctx context.Context) ([]*compute.Instance, error) {
	var out []*compute.Instance

	if len(c.zones) > 0 {
		for _, zone := range c.zones {
			call := c.svc.Instances.List(c.project, zone)
			if c.filter != "" {
				call = call.Filter(c.filter)
			}
			err := call.Pages(ctx, func(page *compute.InstanceList) error {
				out = append(out, page.Items...)
				return nil
			})
			if err != nil {
				return nil, errors.Wrapf(err, "zone %s", zone)
			}
		}
		return out, nil
	}

	call := c.svc.Instances.AggregatedList(c.project)
	if c.filter != "" {
		call = call.Filter(c.filter)
	}
	err := call.Pages(ctx, func(page *compute.InstanceAggregatedList) error {
		for _, scope := range sortedKeys(page.Items) {
			out = append(out, page.Items[scope].Instances...)
		}
		return nil
	})
	return out, err
}

func (c *computeConnector) ListDisks(ctx context.Context) ([]*compute.Disk, error) {
	var out []*compute.Disk
	err := c.svc.Disks.AggregatedList(c.project).Pages(ctx, func(page *compute.DiskAggregatedList) error {
		for _, scope := range sortedKeys(page.Items) {
			out = append(out, page.Items[scope].Disks...)
		}
		return nil
	})
	return out, err
}

func (c *computeConnector) ListMachineTypes(ctx context.Context) ([]*compute.MachineType, error) {
	var out []*compute.MachineType
	err := c.svc.MachineTypes.AggregatedList(c.project).Pages(ctx, func(page *compute.MachineTypeAggregatedList) error {
		for _, scope := range sortedKeys(page.Items) {
			out = append(out, page.Items[scope].MachineTypes...)
		}
		return nil
	})
	return out, err
}

func (c *computeConnector) GetMachineType(ctx context.Context, zone, name string) (*compute.MachineType, error) {
	return c.svc.MachineTypes.Get(c.project, zone, name).Context(ctx).Do()
}

func (c *computeConnector) ListImages(ctx context.Context, project string) ([]*compute.Image, error) {
	var out []*compute.Image
	err := c.svc.Images.List(project).Pages(ctx, func(page *compute.ImageList) error {
		out = append(out, page.Items...)
		return nil
	})
	return out, err
}

func (c *computeConnector) ListNetworks(ctx context.Context) ([]*compute.Network, error) {
	var out []*compute.Network
	err := c.svc.Networks.List(c.project).Pages(ctx, func(page *compute.NetworkList) error {
		out = append(out, page.Items...)
		return nil
	})
	return out, err
}

func (c *computeConnector) ListSubnetworks(ctx context.Context) ([]*compute.Subnetwork, error) {
	var out []*compute.Subnetwork
	err := c.svc.Subnetworks.AggregatedList(c.project).Pages(ctx, func(page *compute.SubnetworkAggregatedList) error {
		for _, scope := range sortedKeys(page.Items) {
			out = append(out, page.Items[scope].Subnetworks...)
		}
		return nil
	})
	return out, err
}

func (c *computeConnector) ListFirewalls(ctx context.Context) ([]*compute.Firewall, error) {
	var out []*compute.Firewall
	err := c.svc.Firewalls.List(c.project).Pages(ctx, func(page *compute.FirewallList) error {
		out = append(out, page.Items...)
		return nil
	})
	return out, err
}

// ListForwardingRules returns regional rules followed by global rules.
func (c *computeConnector) ListForwardingRules(ctx context.Context) ([]*compute.ForwardingRule, error) {
	var out []*compute.ForwardingRule
	err := c.svc.ForwardingRules.AggregatedList(c.project).Pages(ctx, func(page *compute.ForwardingRuleAggregatedList) error {
		for _, scope := range sortedKeys(page.Items) {
			out = append(out, page.Items[scope].ForwardingRules...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	err = c.svc.GlobalForwardingRules.List(c.project).Pages(ctx, func(page *compute.ForwardingRuleList) error {
		out = append(out, page.Items...)
		return nil
	})
	return out, err
}

func (c *computeConnector) ListTargetPools(ctx context.Context) ([]*compute.TargetPool, error) {
	var out []*compute.TargetPool
	err := c.svc.TargetPools.AggregatedList(c.project).Pages(ctx, func(page *compute.TargetPoolAggregatedList) error {
		for _, scope := range sortedKeys(page.Items) {
			out = append(out, page.Items[scope].TargetPools...)
		}
		return nil
	})
	return out, err
}

func (c *computeConnector) ListURLMaps(ctx context.Context) ([]*compute.UrlMap, error) {
	var out []*compute.UrlMap
	err := c.svc.UrlMaps.AggregatedList(c.project).Pages(ctx, func(page *compute.UrlMapsAggregatedList) error {
		for _, scope := range sortedKeys(page.Items) {
			out = append(out, page.Items[scope].UrlMaps...)
		}
		return nil
	})
	return out, err
}

func (c *computeConnector) ListBackendServices(ctx context.Context) ([]*compute.BackendService, error) {
	var out []*compute.BackendService
	err := c.svc.BackendServices.AggregatedList(c.project).Pages(ctx, func(page *compute.BackendServiceAggregatedList) error {
		for _, scope := range sortedKeys(page.Items) {
			out = append(out, page.Items[scope].BackendServices...)
		}
		return nil
	})
	return out, err
}

func (c *computeConnector) ListAutoscalers(ctx context.Context) ([]*compute.Autoscaler, error) {
	var out []*compute.Autoscaler
	err := c.svc.Autoscalers.AggregatedList(c.project).Pages(ctx, func(page *compute.AutoscalerAggregatedList) error {
		for _, scope := range sortedKeys(page.Items) {
			out = append(out, page.Items[scope].Autoscalers...)
		}
		return nil
	})
	return out, err
}

func (c *computeConnector) ListInstanceGroupManagers(ctx context.Context) ([]*compute.InstanceGroupManager, error) {
	var out []*compute.InstanceGroupManager
	err := c.svc.InstanceGroupManagers.AggregatedList(c.project).Pages(ctx, func(page *compute.InstanceGroupManagerAggregatedList) error {
		for _, scope := range sortedKeys(page.Items) {
			out = append(out, page.Items[scope].InstanceGroupManagers...)
		}
		return nil
	})
	return out, err
}

func (c *computeConnector) ListManagedInstances(ctx context.Context, igm *compute.InstanceGroupManager) ([]string, error) {
	var out []string

	if igm.Zone != "" {
		zone := selflink.Last(igm.Zone)
		err := c.svc.InstanceGroupManagers.ListManagedInstances(c.project, zone, igm.Name).Pages(ctx,
			func(page *compute.InstanceGroupManagersListManagedInstancesResponse) error {
				for _, mi := range page.ManagedInstances {
					out = append(out, mi.Instance)
				}
				return nil
			})
		return out, err
	}

	region := selflink.Last(igm.Region)
	err := c.svc.RegionInstanceGroupManagers.ListManagedInstances(c.project, region, igm.Name).Pages(ctx,
		func(page *compute.RegionInstanceGroupManagersListInstancesResponse) error {
			for _, mi := range page.ManagedInstances {
				out = append(out, mi.Instance)
			}
			return nil
		})
	return out, err
}

func (c *computeConnector) ListRoutes(ctx context.Context) ([]*compute.Route, error) {
	var out []*compute.Route
	call := c.svc.Routes.List(c.project)
	if c.filter != "" {
		call = call.Filter(c.filter)
	}
	err := call.Pages(ctx, func(page *compute.RouteList) error {
		out = append(out, page.Items...)
		return nil
	})
	return out, err
}

// bigQueryConnector implements BigQueryAPI over the BigQuery REST API.
type bigQueryConnector struct {
	svc     *bigquery.Service
	project string
}

func (c *bigQueryConnector) ListDatasets(ctx context.Context) ([]*bigquery.DatasetListDatasets, error) {
	var out []*bigquery.DatasetListDatasets
	err := c.svc.Datasets.List(c.project).All(true).Pages(ctx, func(page *bigquery.DatasetList) error {
		out = append(out, page.Datasets...)
		return nil
	})
	return out, err
}

func (c *bigQueryConnector) GetDataset(ctx context.Context, projectID, datasetID string) (*bigquery.Dataset, error) {
	return c.svc.Datasets.Get(projectID, datasetID).Context(ctx).Do()
}

func (c *bigQueryConnector) ListTables(ctx context.Context, projectID, datasetID string) ([]*bigquery.TableListTables, error) {
	var out []*bigquery.TableListTables
	err := c.svc.Tables.List(projectID, datasetID).Pages(ctx, func(page *bigquery.TableList) error {
		out = append(out, page.Tables...)
		return nil
	})
	return out, err
}

func (c *bigQueryConnector) GetTable(ctx context.Context, projectID, datasetID, tableID string) (*bigquery.Table, error) {
	return c.svc.Tables.Get(projectID, datasetID, tableID).Context(ctx).Do()
}

func (c *bigQueryConnector) ListProjects(ctx context.Context) ([]*bigquery.ProjectListProjects, error) {
	var out []*bigquery.ProjectListProjects
	err := c.svc.Projects.List().Pages(ctx, func(page *bigquery.ProjectList) error {
		out = append(out, page.Projects...)
		return nil
	})
	return out, err
}
