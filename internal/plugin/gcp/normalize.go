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
	osLinux   = "LINUX"
	osWindows = "WINDOWS"
)

var archTokens = []string{"x86_64", "x86_32", "x64", "x86", "amd64"}

// osInfo classifies the guest OS from the licenses of the first disk.
// Only the first license decides the OS type. The image catalog walk stops
// at the first family contained in the identity that has an image with the
// same license list.
func osInfo(inst *compute.Instance, images ImageCatalog) (string, resource.OS) {
	var licenses []string
	if len(inst.Disks) > 0 && inst.Disks[0] != nil {
		licenses = inst.Disks[0].Licenses
	}

	osType := osLinux
	identity := ""
	if len(licenses) > 0 {
		identity = strings.ToLower(selflink.Last(licenses[0]))
		if strings.Contains(identity, "windows") {
			osType = osWindows
		}
	}

	return osType, imageOS(identity, licenses, images)
}

func imageOS(identity string, licenses []string, images ImageCatalog) resource.OS {
	for _, family := range images {
		if !strings.Contains(identity, family.Family) {
			continue
		}
		for _, img := range family.Images {
			if img == nil || !slices.Equal(licenses, img.Licenses) {
				continue
			}
			distro := family.Family
			if distro == "windows" {
				distro = "windows-server"
			}
			return resource.OS{
				OSDistro: distro,
				OSArch:   archOf(img.Description),
				Details:  img.Description,
			}
		}
	}
	return resource.OS{}
}

func archOf(description string) string {
	for _, token := range archTokens {
		if strings.Contains(description, token) {
			return token
		}
	}
	return ""
}

func primaryIP(inst *compute.Instance) string {
	if len(inst.NetworkInterfaces) == 0 || inst.NetworkInterfaces[0] == nil {
		return ""
	}
	return inst.NetworkInterfaces[0].NetworkIP
}

// publicIP returns the first NAT IP of the first interface.
func publicIP(inst *compute.Instance) string {
	if len(inst.NetworkInterfaces) == 0 || inst.NetworkInterfaces[0] == nil {
		return ""
	}
	return firstNATIP(inst.NetworkInterfaces[0])
}

func firstNATIP(iface *compute.NetworkInterface) string {
	for _, ac := range iface.AccessConfigs {
		if ac != nil && ac.NatIP != "" {
			return ac.NatIP
		}
	}
	return ""
}

// ipAddresses lists, interface by interface, the private IP followed by
// the interface's NAT IPs. Empty addresses are skipped.
func ipAddresses(inst *compute.Instance) []string {
	ips := []string{}
	for _, iface := range inst.NetworkInterfaces {
		if iface == nil {
			continue
		}
		if iface.NetworkIP != "" {
			ips = append(ips, iface.NetworkIP)
		}
		for _, ac := range iface.AccessConfigs {
			if ac != nil && ac.NatIP != "" {
				ips = append(ips, ac.NatIP)
			}
		}
	}
	return ips
}

// stringTags keeps the string-valued members of the instance tags, which is
// only the fingerprint; the items list is dropped.
func stringTags(inst *compute.Instance) map[string]string {
	tags := map[string]string{}
	if inst.Tags != nil && inst.Tags.Fingerprint != "" {
		tags["fingerprint"] = inst.Tags.Fingerprint
	}
	return tags
}

func scheduling(inst *compute.Instance) resource.Scheduling {
	s := resource.Scheduling{
		OnHostMaintenance: "MIGRATE",
		AutomaticRestart:  true,
	}
	if inst.Scheduling == nil {
		return s
	}
	if inst.Scheduling.OnHostMaintenance != "" {
		s.OnHostMaintenance = inst.Scheduling.OnHostMaintenance
	}
	if inst.Scheduling.AutomaticRestart != nil {
		s.AutomaticRestart = *inst.Scheduling.AutomaticRestart
	}
	s.Preemptible = inst.Scheduling.Preemptible
	return s
}

func reservationAffinity(inst *compute.Instance) string {
	if inst.ReservationAffinity == nil {
		return ""
	}
	return inst.ReservationAffinity.ConsumeReservationType
}

type diskRate struct {
	readIOPS, writeIOPS, throughput float64 // per GB
}

var diskRates = map[string]diskRate{
	"pd-standard": {readIOPS: 0.75, writeIOPS: 1.5, throughput: 0.12},
	"pd-balanced": {readIOPS: 6, writeIOPS: 6, throughput: 0.28},
	"pd-ssd":      {readIOPS: 30, writeIOPS: 30, throughput: 0.48},
}

// disksOf joins attached disks with the disk listing by self link.
func disksOf(inst *compute.Instance, disks []*compute.Disk) []resource.Disk {
	out := []resource.Disk{}
	for _, ad := range inst.Disks {
		if ad == nil {
			continue
		}
		d := resource.Disk{
			DeviceIndex: int(ad.Index),
			Device:      ad.DeviceName,
			DiskType:    "persistent_disk",
			Size:        float64(ad.DiskSizeGb),
			Tags: resource.DiskTags{
				DiskName:  selflink.Last(ad.Source),
				Encrypted: true,
				Labels:    map[string]string{},
			},
		}
		if ad.Type == "SCRATCH" {
			d.DiskType = "local-ssd"
			d.Tags.DiskType = "local-ssd"
		}

		if disk := diskBySelfLink(ad.Source, disks); disk != nil {
			if disk.SizeGb != 0 {
				d.Size = float64(disk.SizeGb)
			}
			d.Tags.DiskID = strconv.FormatUint(disk.Id, 10)
			d.Tags.DiskName = disk.Name
			d.Tags.DiskType = selflink.Last(disk.Type)
			if disk.Labels != nil {
				d.Tags.Labels = disk.Labels
			}
		}

		if rate, ok := diskRates[d.Tags.DiskType]; ok {
			d.Tags.ReadIOPS = rate.readIOPS * d.Size
			d.Tags.WriteIOPS = rate.writeIOPS * d.Size
			d.Tags.ReadThroughput = rate.throughput * d.Size
			d.Tags.WriteThroughput = rate.throughput * d.Size
		}
		out = append(out, d)
	}
	return out
}

func diskBySelfLink(selfLink string, disks []*compute.Disk) *compute.Disk {
	if selfLink == "" {
		return nil
	}
	for _, d := range disks {
		if d != nil && d.SelfLink == selfLink {
			return d
		}
	}
	return nil
}

// nicsOf builds one NIC per network interface.
func nicsOf(inst *compute.Instance, subnets []*compute.Subnetwork) []resource.NIC {
	nics := []resource.NIC{}
	for i, iface := range inst.NetworkInterfaces {
		if iface == nil {
			continue
		}
		nic := resource.NIC{
			DeviceIndex:     i,
			Device:          iface.Name,
			NICType:         "Virtual",
			IPAddresses:     []string{},
			PublicIPAddress: firstNATIP(iface),
		}
		if iface.NetworkIP != "" {
			nic.IPAddresses = append(nic.IPAddresses, iface.NetworkIP)
		}
		if s := subnetFor(iface.Subnetwork, subnets); s != nil {
			nic.CIDR = s.IpCidrRange
		}
		nics = append(nics, nic)
	}
	return nics
}

func stackdriverOf(instanceID string) resource.Stackdriver {
	return resource.Stackdriver{
		Type: "gce_instance",
		Filters: []resource.StackdriverFilter{
			{Key: "resource.labels.instance_id", Value: instanceID},
		},
	}
}
