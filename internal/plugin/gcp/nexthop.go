package gcp

import (
	"fmt"

	"google.golang.org/api/compute/v1"

	"github.com/yairfalse/gcpinventory/internal/selflink"
)

// NextHop is the routing target of a route. Exactly one variant is built
// per route by nextHopOf.
type NextHop interface {
	fmt.Stringer
	nextHop()
}

// InstanceHop routes through a VM instance.
type InstanceHop struct{ URL string }

// IPHop routes to an IP address.
type IPHop struct{ IP string }

// NetworkHop routes into a peered or local network.
type NetworkHop struct{ URL string }

// GatewayHop routes through a gateway, usually the default internet gateway.
type GatewayHop struct{ URL string }

// ILBHop routes through an internal load balancer. Target is either an IP
// address or a forwarding rule self link.
type ILBHop struct{ Target string }

// PeeringHop routes through a network peering.
type PeeringHop struct{ Name string }

// NoHop is the next hop of a route that sets none of the next hop fields.
type NoHop struct{}

func (InstanceHop) nextHop() {}
func (IPHop) nextHop()       {}
func (NetworkHop) nextHop()  {}
func (GatewayHop) nextHop()  {}
func (ILBHop) nextHop()      {}
func (PeeringHop) nextHop()  {}
func (NoHop) nextHop()       {}

func (h InstanceHop) String() string {
	name := selflink.Capitalize(selflink.Param(h.URL, "instances"))
	zone := selflink.Capitalize(selflink.Param(h.URL, "zones"))
	return fmt.Sprintf("Instance %s (zone  %s)", name, zone)
}

func (h IPHop) String() string {
	return "IP address lie within " + h.IP
}

func (h NetworkHop) String() string {
	return "Virtual network " + selflink.Param(h.URL, "networks")
}

func (h GatewayHop) String() string {
	return selflink.Param(h.URL, "gateways") + " internet gateway"
}

func (h ILBHop) String() string {
	target := h.Target
	if !selflink.IsIPAddress(target) {
		target = selflink.Param(target, "forwardingRules")
	}
	return "Loadbalancer on " + target
}

func (h PeeringHop) String() string {
	return "Peering : " + h.Name
}

func (NoHop) String() string { return "" }

// nextHopOf picks the first set next hop field in the order instance, ip,
// network, gateway, ilb, peering.
func nextHopOf(r *compute.Route) NextHop {
	switch {
	case r.NextHopInstance != "":
		return InstanceHop{URL: r.NextHopInstance}
	case r.NextHopIp != "":
		return IPHop{IP: r.NextHopIp}
	case r.NextHopNetwork != "":
		return NetworkHop{URL: r.NextHopNetwork}
	case r.NextHopGateway != "":
		return GatewayHop{URL: r.NextHopGateway}
	case r.NextHopIlb != "":
		return ILBHop{Target: r.NextHopIlb}
	case r.NextHopPeering != "":
		return PeeringHop{Name: r.NextHopPeering}
	default:
		return NoHop{}
	}
}
