package gcp

import (
	"slices"
	"strconv"
	"strings"

	"google.golang.org/api/compute/v1"

	"github.com/yairfalse/gcpinventory/internal/selflink"
	"github.com/yairfalse/gcpinventory/pkg/resource"
)

const (
	createdByKey  = "created-by"
	allPortsMin   = 0
	allPortsMax   = 65535
	noServiceAcct = "None"
)

// matchRouteInstances projects every (instance, interface) pair attached to
// the route's network.
func matchRouteInstances(route *compute.Route, project string, instances []*compute.Instance) []resource.ComputeVM {
	vms := []resource.ComputeVM{}
	for _, inst := range instances {
		if inst == nil {
			continue
		}
		zone := selflink.Param(inst.Zone, "zones")
		region := selflink.RegionFromZone(zone)

		for _, iface := range inst.NetworkInterfaces {
			if iface == nil || iface.Network != route.Network {
				continue
			}
			vms = append(vms, resource.ComputeVM{
				ID:                strconv.FormatUint(inst.Id, 10),
				Name:              inst.Name,
				Zone:              zone,
				Region:            region,
				Address:           iface.NetworkIP,
				Subnetwork:        selflink.Param(iface.Subnetwork, "subnetworks"),
				Project:           project,
				ServiceAccounts:   serviceAccountEmails(inst.ServiceAccounts),
				CreationTimestamp: inst.CreationTimestamp,
				Labels:            resource.LabelsToPairs(inst.Labels),
				LabelsDisplay:     resource.LabelDisplay(inst.Labels),
				Tags:              networkTags(inst),
			})
		}
	}
	return vms
}

func serviceAccountEmails(accounts []*compute.ServiceAccount) []string {
	emails := make([]string, 0, len(accounts))
	for _, sa := range accounts {
		if sa != nil {
			emails = append(emails, sa.Email)
		}
	}
	if len(emails) == 0 {
		return []string{noServiceAcct}
	}
	return emails
}

func networkTags(inst *compute.Instance) []string {
	if inst.Tags == nil || inst.Tags.Items == nil {
		return []string{}
	}
	return inst.Tags.Items
}

// imageForInstance returns the source image name of the disk named after
// the instance. Disks are matched by name only.
func imageForInstance(inst *compute.Instance, disks []*compute.Disk) string {
	for _, d := range disks {
		if d != nil && d.Name == inst.Name {
			return selflink.Last(d.SourceImage)
		}
	}
	return ""
}

// instanceGroupManagerFor returns the manager named by the instance's
// created-by metadata item, or nil.
func instanceGroupManagerFor(inst *compute.Instance, igms []*compute.InstanceGroupManager) *compute.InstanceGroupManager {
	createdBy := metadataValue(inst, createdByKey)
	name := selflink.Param(createdBy, "instanceGroupManagers")
	if name == "" {
		return nil
	}
	zone := selflink.Param(createdBy, "zones")
	region := selflink.Param(createdBy, "regions")

	for _, igm := range igms {
		if igm == nil || igm.Name != name {
			continue
		}
		if zone != "" && selflink.Last(igm.Zone) == zone {
			return igm
		}
		if region != "" && selflink.Last(igm.Region) == region {
			return igm
		}
	}
	return nil
}

func metadataValue(inst *compute.Instance, key string) string {
	if inst.Metadata == nil {
		return ""
	}
	for _, item := range inst.Metadata.Items {
		if item != nil && item.Key == key && item.Value != nil {
			return *item.Value
		}
	}
	return ""
}

// autoscalerFor builds the autoscaler record of the group managing an
// instance. A nil manager or a manager without autoscaler yields the group
// information alone.
func autoscalerFor(igm *compute.InstanceGroupManager, autoscalers []*compute.Autoscaler) resource.Autoscaler {
	if igm == nil {
		return resource.Autoscaler{}
	}
	out := resource.Autoscaler{
		InstanceGroup: resource.InstanceGroup{
			ID:                   strconv.FormatUint(igm.Id, 10),
			Name:                 igm.Name,
			SelfLink:             igm.SelfLink,
			InstanceTemplateName: selflink.Last(igm.InstanceTemplate),
		},
	}
	for _, as := range autoscalers {
		if as != nil && as.Target == igm.SelfLink {
			out.ID = strconv.FormatUint(as.Id, 10)
			out.Name = as.Name
			out.SelfLink = as.SelfLink
			break
		}
	}
	return out
}

// vpcAndSubnet matches the first interface's network and subnetwork.
func vpcAndSubnet(inst *compute.Instance, networks []*compute.Network, subnets []*compute.Subnetwork) (resource.VPC, resource.Subnet) {
	var vpc resource.VPC
	var subnet resource.Subnet
	if len(inst.NetworkInterfaces) == 0 || inst.NetworkInterfaces[0] == nil {
		return vpc, subnet
	}
	iface := inst.NetworkInterfaces[0]

	for _, n := range networks {
		if n != nil && n.SelfLink == iface.Network {
			vpc = resource.VPC{
				VPCID:       strconv.FormatUint(n.Id, 10),
				VPCName:     n.Name,
				Description: n.Description,
				SelfLink:    n.SelfLink,
			}
			break
		}
	}
	if s := subnetFor(iface.Subnetwork, subnets); s != nil {
		subnet = resource.Subnet{
			SubnetID:       strconv.FormatUint(s.Id, 10),
			SubnetName:     s.Name,
			SelfLink:       s.SelfLink,
			GatewayAddress: s.GatewayAddress,
			VPC:            selflink.Param(s.Network, "networks"),
			CIDR:           s.IpCidrRange,
		}
	}
	return vpc, subnet
}

func subnetFor(selfLink string, subnets []*compute.Subnetwork) *compute.Subnetwork {
	if selfLink == "" {
		return nil
	}
	for _, s := range subnets {
		if s != nil && s.SelfLink == selfLink {
			return s
		}
	}
	return nil
}

// firewallsFor expands every firewall attached to one of the instance's
// networks into one record per protocol entry and port spec.
func firewallsFor(inst *compute.Instance, firewalls []*compute.Firewall) []resource.SecurityGroup {
	networks := make(map[string]struct{}, len(inst.NetworkInterfaces))
	for _, iface := range inst.NetworkInterfaces {
		if iface != nil && iface.Network != "" {
			networks[iface.Network] = struct{}{}
		}
	}

	rules := []resource.SecurityGroup{}
	for _, fw := range firewalls {
		if fw == nil {
			continue
		}
		if _, ok := networks[fw.Network]; !ok {
			continue
		}
		for _, a := range fw.Allowed {
			if a != nil {
				rules = append(rules, firewallRules(fw, "allow", a.IPProtocol, a.Ports)...)
			}
		}
		for _, d := range fw.Denied {
			if d != nil {
				rules = append(rules, firewallRules(fw, "deny", d.IPProtocol, d.Ports)...)
			}
		}
	}
	return rules
}

func firewallRules(fw *compute.Firewall, action, protocol string, ports []string) []resource.SecurityGroup {
	direction := strings.ToLower(fw.Direction)
	if direction == "" {
		direction = "ingress"
	}
	remote := fw.SourceRanges
	if direction == "egress" {
		remote = fw.DestinationRanges
	}

	base := resource.SecurityGroup{
		Priority:          fw.Priority,
		Direction:         direction,
		Action:            action,
		Protocol:          protocol,
		RemoteCIDR:        strings.Join(remote, ", "),
		SecurityGroupName: fw.Name,
		SecurityGroupID:   strconv.FormatUint(fw.Id, 10),
		Description:       fw.Description,
	}

	if len(ports) == 0 {
		base.PortRangeMin, base.PortRangeMax = allPortsMin, allPortsMax
		base.Port = strconv.Itoa(allPortsMin) + "-" + strconv.Itoa(allPortsMax)
		return []resource.SecurityGroup{base}
	}

	out := make([]resource.SecurityGroup, 0, len(ports))
	for _, spec := range ports {
		rule := base
		rule.Port = spec
		rule.PortRangeMin, rule.PortRangeMax = parsePortRange(spec)
		out = append(out, rule)
	}
	return out
}

// parsePortRange parses "80" or "8000-8080". Unparsable bounds are zero.
func parsePortRange(spec string) (int64, int64) {
	lo, hi, found := strings.Cut(spec, "-")
	from, _ := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
	if !found {
		return from, from
	}
	to, _ := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
	return from, to
}

// firewallNames returns the distinct names of the matched firewall rules in
// first-seen order.
func firewallNames(rules []resource.SecurityGroup) []string {
	names := []string{}
	for _, r := range rules {
		if r.SecurityGroupName != "" && !slices.Contains(names, r.SecurityGroupName) {
			names = append(names, r.SecurityGroupName)
		}
	}
	return names
}

// loadBalancersFor finds the load balancers routing traffic to the instance:
// target pools listing it and backend services serving its managed group.
func loadBalancersFor(inst *compute.Instance, igm *compute.InstanceGroupManager, l *instanceListings) []resource.LoadBalancer {
	lbs := []resource.LoadBalancer{}

	for _, tp := range l.targetPools {
		if tp == nil || !slices.Contains(tp.Instances, inst.SelfLink) {
			continue
		}
		rules := forwardingRulesFor(l.forwardingRules, func(fr *compute.ForwardingRule) bool {
			return fr.Target == tp.SelfLink
		})
		lb := loadBalancer(tp.Name, rules, "TCP")
		lb.Tags = resource.LBTags{
			LBID:       strconv.FormatUint(tp.Id, 10),
			SelfLink:   tp.SelfLink,
			SourceKind: "target_pool",
		}
		lbs = append(lbs, lb)
	}

	if igm == nil || igm.InstanceGroup == "" {
		return lbs
	}
	for _, bs := range l.backendServices {
		if bs == nil || !servesGroup(bs, igm.InstanceGroup) {
			continue
		}
		rules := forwardingRulesFor(l.forwardingRules, func(fr *compute.ForwardingRule) bool {
			return fr.BackendService == bs.SelfLink
		})
		name := bs.Name
		if um := urlMapFor(bs.SelfLink, l.urlMaps); um != nil {
			name = um.Name
		}
		protocol := bs.Protocol
		if protocol == "" {
			protocol = "TCP"
		}
		lb := loadBalancer(name, rules, protocol)
		if lb.Scheme == "" {
			lb.Scheme = bs.LoadBalancingScheme
		}
		lb.Tags = resource.LBTags{
			LBID:       strconv.FormatUint(bs.Id, 10),
			SelfLink:   bs.SelfLink,
			SourceKind: "backend_service",
		}
		lbs = append(lbs, lb)
	}
	return lbs
}

func servesGroup(bs *compute.BackendService, group string) bool {
	for _, b := range bs.Backends {
		if b != nil && b.Group == group {
			return true
		}
	}
	return false
}

// urlMapFor returns the first URL map routing to the backend service, by
// default service or through a path matcher.
func urlMapFor(backendService string, urlMaps []*compute.UrlMap) *compute.UrlMap {
	for _, um := range urlMaps {
		if um == nil {
			continue
		}
		if um.DefaultService == backendService {
			return um
		}
		for _, pm := range um.PathMatchers {
			if pm == nil {
				continue
			}
			if pm.DefaultService == backendService {
				return um
			}
			for _, pr := range pm.PathRules {
				if pr != nil && pr.Service == backendService {
					return um
				}
			}
		}
	}
	return nil
}

func forwardingRulesFor(rules []*compute.ForwardingRule, match func(*compute.ForwardingRule) bool) []*compute.ForwardingRule {
	var out []*compute.ForwardingRule
	for _, fr := range rules {
		if fr != nil && match(fr) {
			out = append(out, fr)
		}
	}
	return out
}

func loadBalancer(name string, rules []*compute.ForwardingRule, defaultType string) resource.LoadBalancer {
	lb := resource.LoadBalancer{
		Type:     defaultType,
		Name:     name,
		Port:     []int64{},
		Protocol: []string{},
	}
	for i, fr := range rules {
		if i == 0 {
			lb.DNS = fr.IPAddress
			lb.Scheme = fr.LoadBalancingScheme
			if fr.IPProtocol != "" {
				lb.Type = fr.IPProtocol
			}
		}
		if fr.IPProtocol != "" && !slices.Contains(lb.Protocol, fr.IPProtocol) {
			lb.Protocol = append(lb.Protocol, fr.IPProtocol)
		}
		for _, port := range forwardingRulePorts(fr) {
			if !slices.Contains(lb.Port, port) {
				lb.Port = append(lb.Port, port)
			}
		}
	}
	return lb
}

func forwardingRulePorts(fr *compute.ForwardingRule) []int64 {
	var ports []int64
	if fr.PortRange != "" {
		lo, _ := parsePortRange(fr.PortRange)
		ports = append(ports, lo)
	}
	for _, p := range fr.Ports {
		if n, err := strconv.ParseInt(p, 10, 64); err == nil {
			ports = append(ports, n)
		}
	}
	return ports
}
