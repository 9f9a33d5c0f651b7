// Package resource defines the normalized inventory records emitted by the collector.
package resource

import "time"

// Provider is the provider name stamped on every record.
const Provider = "google_cloud"

// Resource is one enriched inventory record, one per top-level entity
// (a VM instance, a route, a BigQuery dataset).
type Resource struct {
	Name              string    `json:"name"`
	Account           string    `json:"account"`     // Project ID
	RegionCode        string    `json:"region_code"` // e.g. "us-east1" or "global"
	Provider          string    `json:"provider"`
	CloudServiceGroup string    `json:"cloud_service_group"` // e.g. "ComputeEngine"
	CloudServiceType  string    `json:"cloud_service_type"`  // e.g. "Instance"
	InstanceType      string    `json:"instance_type,omitempty"`
	InstanceSize      float64   `json:"instance_size,omitempty"`
	LaunchedAt        string    `json:"launched_at,omitempty"`
	ServerType        string    `json:"server_type,omitempty"`
	OSType            string    `json:"os_type,omitempty"`
	PrimaryIPAddress  string    `json:"primary_ip_address,omitempty"`
	IPAddresses       []string  `json:"ip_addresses,omitempty"`
	Tags              []Label   `json:"tags"`
	NICs              []NIC     `json:"nics,omitempty"`
	Disks             []Disk    `json:"disks,omitempty"`
	Data              Data      `json:"data"`
	Reference         Reference `json:"reference"`
	CollectedAt       time.Time `json:"collected_at" hash:"ignore"`
}

// Data is the kind-specific payload of a Resource.
type Data interface {
	isData()
}

// Reference identifies the resource at the provider.
type Reference struct {
	ResourceID   string `json:"resource_id"`   // Provider self link
	ExternalLink string `json:"external_link"` // Console deep link
}

// ErrorRecord reports one top-level entity that could not be assembled.
// It never aborts the collection run.
type ErrorRecord struct {
	EntityID     string `json:"entity_id"`
	ResourceType string `json:"resource_type"` // "<group>.<type>", e.g. "VPC.Route"
	Message      string `json:"message"`
	StackContext string `json:"stack_context,omitempty"`
}

// CollectResult holds everything one collector produced in one run.
type CollectResult struct {
	Kind      string
	Project   string
	RunID     string
	Resources []Resource
	Errors    []ErrorRecord
	Duration  time.Duration
}

// ResourceType joins a cloud service group and type into the form used by ErrorRecord.
func ResourceType(group, typ string) string {
	return group + "." + typ
}
