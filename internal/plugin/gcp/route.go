package gcp

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"google.golang.org/api/compute/v1"

	"github.com/yairfalse/gcpinventory/internal/plugin"
	"github.com/yairfalse/gcpinventory/internal/selflink"
	"github.com/yairfalse/gcpinventory/pkg/resource"
)

const (
	groupVPC    = "VPC"
	typeRoute   = "Route"
	routeRegion = "global"

	allInstancesNote = "This route applies to all instances within the specified network"
)

// RoutePlugin collects VPC routes with the instances they apply to.
type RoutePlugin struct {
	cfg Config
}

// NewRoutePlugin creates the route collector.
func NewRoutePlugin(cfg Config) *RoutePlugin {
	return &RoutePlugin{cfg: cfg}
}

// Name returns the collected kind.
func (p *RoutePlugin) Name() string {
	return KindRoute
}

// Collect fetches routes and instances and assembles one record per route.
func (p *RoutePlugin) Collect(ctx context.Context, params plugin.Params) (result resource.CollectResult, err error) {
	start := time.Now()
	project := ProjectID(params)
	result = resource.CollectResult{Kind: p.Name(), Project: project}

	ctx, span := startCollect(ctx, p.Name(), project)
	defer func() { finishCollect(span, result, err) }()

	clients, err := p.cfg.clients(ctx, params)
	if err != nil {
		return result, errors.Wrap(err, "create clients")
	}
	listings, err := fetchRouteListings(ctx, clients.Compute)
	if err != nil {
		return result, err
	}

	build := func(_ context.Context, route *compute.Route) (resource.Resource, error) {
		return assembleRoute(route, project, listings.instances), nil
	}
	result.Resources, result.Errors = collectEach(ctx, p.Name(),
		resource.ResourceType(groupVPC, typeRoute),
		listings.routes, params.Workers, routeID, build)
	result.Duration = time.Since(start)
	return result, nil
}

func routeID(route *compute.Route) string {
	return strconv.FormatUint(route.Id, 10)
}

func assembleRoute(route *compute.Route, project string, instances []*compute.Instance) resource.Resource {
	tags := route.Tags
	if tags == nil {
		tags = []string{}
	}
	tagsDisplay := tags
	if len(tags) == 0 {
		tagsDisplay = []string{allInstancesNote}
	}

	data := &resource.RouteData{
		ID:                routeID(route),
		Name:              route.Name,
		Description:       route.Description,
		Network:           route.Network,
		DestRange:         route.DestRange,
		Priority:          route.Priority,
		NextHopInstance:   route.NextHopInstance,
		NextHopIP:         route.NextHopIp,
		NextHopNetwork:    route.NextHopNetwork,
		NextHopGateway:    route.NextHopGateway,
		NextHopILB:        route.NextHopIlb,
		NextHopPeering:    route.NextHopPeering,
		Tags:              tags,
		SelfLink:          route.SelfLink,
		CreationTimestamp: route.CreationTimestamp,
		Project:           project,
		Display: resource.RouteDisplay{
			NetworkDisplay:     selflink.Param(route.Network, "networks"),
			NextHop:            nextHopOf(route).String(),
			InstanceTagsOnList: tags,
			InstanceTags:       tagsDisplay,
		},
		ApplicableInstance: matchRouteInstances(route, project, instances),
	}

	res := newResource(project, routeRegion, groupVPC, typeRoute, route.Name)
	res.Data = data
	res.Reference = resource.Reference{
		ResourceID:   route.SelfLink,
		ExternalLink: fmt.Sprintf("https://console.cloud.google.com/networking/routes/details/%s?project=%s", route.Name, project),
	}
	return res
}
