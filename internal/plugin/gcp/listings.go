package gcp

import (
	"context"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/compute/v1"
)

// ImageProject maps an OS family to the public project publishing its images.
type ImageProject struct {
	Family  string `toml:"family"`
	Project string `toml:"project"`
}

// DefaultImageProjects lists the public image projects walked for OS
// classification. Order matters: the first family contained in the OS
// identity is the one used.
var DefaultImageProjects = []ImageProject{
	{Family: "centos", Project: "centos-cloud"},
	{Family: "cos", Project: "cos-cloud"},
	{Family: "debian", Project: "debian-cloud"},
	{Family: "fedora-coreos", Project: "fedora-coreos-cloud"},
	{Family: "rhel", Project: "rhel-cloud"},
	{Family: "rocky-linux", Project: "rocky-linux-cloud"},
	{Family: "opensuse", Project: "opensuse-cloud"},
	{Family: "sles", Project: "suse-cloud"},
	{Family: "ubuntu", Project: "ubuntu-os-cloud"},
	{Family: "windows", Project: "windows-cloud"},
}

// ImageFamily holds the public images of one OS family.
type ImageFamily struct {
	Family string
	Images []*compute.Image
}

// ImageCatalog is the ordered set of public images by OS family.
type ImageCatalog []ImageFamily

// managedSet holds the self links of instances that belong to a managed
// instance group.
type managedSet map[string]struct{}

func (s managedSet) contains(selfLink string) bool {
	_, ok := s[selfLink]
	return ok
}

// instanceListings are the listings shared by every instance of one run.
// Everything except the machine type catalog is read-only after fetch.
type instanceListings struct {
	instances        []*compute.Instance
	disks            []*compute.Disk
	machineTypes     *machineTypeCatalog
	images           ImageCatalog
	networks         []*compute.Network
	subnetworks      []*compute.Subnetwork
	firewalls        []*compute.Firewall
	forwardingRules  []*compute.ForwardingRule
	targetPools      []*compute.TargetPool
	urlMaps          []*compute.UrlMap
	backendServices  []*compute.BackendService
	autoscalers      []*compute.Autoscaler
	groupManagers    []*compute.InstanceGroupManager
	managedInstances managedSet
}

// routeListings are the listings used by the route collector.
type routeListings struct {
	routes    []*compute.Route
	instances []*compute.Instance
}

// maxListConcurrency bounds concurrent connector calls while fetching listings.
const maxListConcurrency = 8

func fetch[T any](ctx context.Context, g *errgroup.Group, what string, dst *[]T, list func(context.Context) ([]T, error)) {
	g.Go(func() error {
		items, err := list(ctx)
		if err != nil {
			return errors.Wrapf(err, "list %s", what)
		}
		*dst = items
		return nil
	})
}

func fetchInstanceListings(ctx context.Context, api ComputeAPI, projects []ImageProject) (*instanceListings, error) {
	l := &instanceListings{}
	var machineTypes []*compute.MachineType

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxListConcurrency)

	fetch(gctx, g, "instances", &l.instances, api.ListInstances)
	fetch(gctx, g, "disks", &l.disks, api.ListDisks)
	fetch(gctx, g, "machine types", &machineTypes, api.ListMachineTypes)
	fetch(gctx, g, "networks", &l.networks, api.ListNetworks)
	fetch(gctx, g, "subnetworks", &l.subnetworks, api.ListSubnetworks)
	fetch(gctx, g, "firewalls", &l.firewalls, api.ListFirewalls)
	fetch(gctx, g, "forwarding rules", &l.forwardingRules, api.ListForwardingRules)
	fetch(gctx, g, "target pools", &l.targetPools, api.ListTargetPools)
	fetch(gctx, g, "url maps", &l.urlMaps, api.ListURLMaps)
	fetch(gctx, g, "backend services", &l.backendServices, api.ListBackendServices)
	fetch(gctx, g, "autoscalers", &l.autoscalers, api.ListAutoscalers)
	fetch(gctx, g, "instance group managers", &l.groupManagers, api.ListInstanceGroupManagers)

	l.images = make(ImageCatalog, len(projects))
	for i, p := range projects {
		p := p
		l.images[i].Family = p.Family
		fetch(gctx, g, "images in "+p.Project, &l.images[i].Images, func(ctx context.Context) ([]*compute.Image, error) {
			return api.ListImages(ctx, p.Project)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	managed, err := fetchManagedInstances(ctx, api, l.groupManagers)
	if err != nil {
		return nil, err
	}
	l.managedInstances = managed
	l.machineTypes = newMachineTypeCatalog(api, machineTypes)

	return l, nil
}

// fetchManagedInstances collects the members of every managed instance group.
func fetchManagedInstances(ctx context.Context, api ComputeAPI, igms []*compute.InstanceGroupManager) (managedSet, error) {
	members := make([][]string, len(igms))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxListConcurrency)
	for i, igm := range igms {
		i, igm := i, igm
		g.Go(func() error {
			links, err := api.ListManagedInstances(gctx, igm)
			if err != nil {
				return errors.Wrapf(err, "list managed instances of %s", igm.Name)
			}
			members[i] = links
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set := make(managedSet)
	for _, links := range members {
		for _, link := range links {
			set[link] = struct{}{}
		}
	}
	return set, nil
}

func fetchRouteListings(ctx context.Context, api ComputeAPI) (*routeListings, error) {
	l := &routeListings{}

	g, gctx := errgroup.WithContext(ctx)
	fetch(gctx, g, "routes", &l.routes, api.ListRoutes)
	fetch(gctx, g, "instances", &l.instances, api.ListInstances)
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return l, nil
}
