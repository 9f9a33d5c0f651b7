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
	groupComputeEngine = "ComputeEngine"
	typeInstance       = "Instance"
)

// InstancePlugin collects Compute Engine VM instances.
type InstancePlugin struct {
	cfg Config
}

// NewInstancePlugin creates the VM instance collector.
func NewInstancePlugin(cfg Config) *InstancePlugin {
	return &InstancePlugin{cfg: cfg}
}

// Name returns the collected kind.
func (p *InstancePlugin) Name() string {
	return KindInstance
}

// Collect fetches the instance listings and assembles one record per instance.
func (p *InstancePlugin) Collect(ctx context.Context, params plugin.Params) (result resource.CollectResult, err error) {
	start := time.Now()
	project := ProjectID(params)
	result = resource.CollectResult{Kind: p.Name(), Project: project}

	ctx, span := startCollect(ctx, p.Name(), project)
	defer func() { finishCollect(span, result, err) }()

	clients, err := p.cfg.clients(ctx, params)
	if err != nil {
		return result, errors.Wrap(err, "create clients")
	}
	listings, err := fetchInstanceListings(ctx, clients.Compute, p.cfg.imageProjects())
	if err != nil {
		return result, err
	}

	run := &instanceRun{project: project, l: listings}
	result.Resources, result.Errors = collectEach(ctx, p.Name(),
		resource.ResourceType(groupComputeEngine, typeInstance),
		listings.instances, params.Workers, instanceID, run.assemble)
	result.Duration = time.Since(start)
	return result, nil
}

func instanceID(inst *compute.Instance) string {
	return strconv.FormatUint(inst.Id, 10)
}

// instanceRun holds the listings shared by every instance of one run.
type instanceRun struct {
	project string
	l       *instanceListings
}

func (r *instanceRun) assemble(ctx context.Context, inst *compute.Instance) (resource.Resource, error) {
	zi := zoneInfoOf(inst.Zone, r.project)
	id := instanceID(inst)

	cores, memory, err := r.l.machineTypes.size(ctx, zi.Zone, inst.MachineType)
	if err != nil {
		return resource.Resource{}, err
	}

	osType, osData := osInfo(inst, r.l.images)
	igm := instanceGroupManagerFor(inst, r.l.groupManagers)
	vpc, subnet := vpcAndSubnet(inst, r.l.networks, r.l.subnetworks)
	firewalls := firewallsFor(inst, r.l.firewalls)
	labels := resource.LabelsToPairs(inst.Labels)

	data := &resource.InstanceData{
		OS: osData,
		GoogleCloud: resource.GoogleCloud{
			SelfLink:            inst.SelfLink,
			Fingerprint:         inst.Fingerprint,
			ReservationAffinity: reservationAffinity(inst),
			DeletionProtection:  inst.DeletionProtection,
			Scheduling:          scheduling(inst),
			Labels:              labels,
			IsManagedInstance:   r.l.managedInstances.contains(inst.SelfLink),
		},
		Hardware: resource.Hardware{
			Core:     cores,
			Memory:   memory,
			CPUModel: inst.CpuPlatform,
			IsVM:     true,
		},
		Compute: resource.Compute{
			PublicIPAddress: publicIP(inst),
			AZ:              zi.Zone,
			InstanceID:      id,
			InstanceName:    inst.Name,
			InstanceState:   inst.Status,
			InstanceType:    selflink.Last(inst.MachineType),
			Account:         zi.ProjectID,
			Image:           imageForInstance(inst, r.l.disks),
			LaunchedAt:      inst.CreationTimestamp,
			SecurityGroups:  firewallNames(firewalls),
			Tags:            stringTags(inst),
		},
		VPC:           vpc,
		Subnet:        subnet,
		SecurityGroup: firewalls,
		LoadBalancers: loadBalancersFor(inst, igm, r.l),
		Autoscaler:    autoscalerFor(igm, r.l.autoscalers),
		Stackdriver:   stackdriverOf(id),
	}

	res := newResource(r.project, zi.Region, groupComputeEngine, typeInstance, inst.Name)
	res.InstanceType = data.Compute.InstanceType
	res.InstanceSize = float64(cores)
	res.LaunchedAt = inst.CreationTimestamp
	res.ServerType = "VM"
	res.OSType = osType
	res.PrimaryIPAddress = primaryIP(inst)
	res.IPAddresses = ipAddresses(inst)
	res.Tags = labels
	res.NICs = nicsOf(inst, r.l.subnetworks)
	res.Disks = disksOf(inst, r.l.disks)
	res.Data = data
	res.Reference = resource.Reference{
		ResourceID: inst.SelfLink,
		ExternalLink: fmt.Sprintf("https://console.cloud.google.com/compute/instancesDetail/zones/%s/instances/%s?project=%s",
			zi.Zone, inst.Name, zi.ProjectID),
	}
	return res, nil
}
