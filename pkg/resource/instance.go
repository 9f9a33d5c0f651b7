package resource

// InstanceData is the data payload of a ComputeEngine.Instance record.
type InstanceData struct {
	OS            OS              `json:"os"`
	GoogleCloud   GoogleCloud     `json:"google_cloud"`
	Hardware      Hardware        `json:"hardware"`
	Compute       Compute         `json:"compute"`
	VPC           VPC             `json:"vpc"`
	Subnet        Subnet          `json:"subnet"`
	SecurityGroup []SecurityGroup `json:"security_group"`
	LoadBalancers []LoadBalancer  `json:"load_balancers"`
	Autoscaler    Autoscaler      `json:"autoscaler"`
	Stackdriver   Stackdriver     `json:"stackdriver"`
}

func (*InstanceData) isData() {}

// OS describes the guest operating system derived from boot disk licenses.
type OS struct {
	OSDistro string `json:"os_distro"`
	OSArch   string `json:"os_arch"`
	Details  string `json:"details"`
}

// Scheduling is the instance scheduling policy.
type Scheduling struct {
	OnHostMaintenance string `json:"on_host_maintenance"`
	AutomaticRestart  bool   `json:"automatic_restart"`
	Preemptible       bool   `json:"preemptible"`
}

// GoogleCloud holds provider-specific instance attributes.
type GoogleCloud struct {
	SelfLink            string     `json:"self_link"`
	Fingerprint         string     `json:"fingerprint"`
	ReservationAffinity string     `json:"reservation_affinity"`
	DeletionProtection  bool       `json:"deletion_protection"`
	Scheduling          Scheduling `json:"scheduling"`
	Labels              []Label    `json:"labels"`
	IsManagedInstance   bool       `json:"is_managed_instance"`
}

// Hardware is the sizing of the instance's machine type.
type Hardware struct {
	Core     int64   `json:"core"`
	Memory   float64 `json:"memory"` // GiB
	CPUModel string  `json:"cpu_model"`
	IsVM     bool    `json:"is_vm"`
}

// Compute holds the generic server view of the instance.
type Compute struct {
	Keypair         string            `json:"keypair"`
	PublicIPAddress string            `json:"public_ip_address"`
	AZ              string            `json:"az"`
	InstanceID      string            `json:"instance_id"`
	InstanceName    string            `json:"instance_name"`
	InstanceState   string            `json:"instance_state"`
	InstanceType    string            `json:"instance_type"`
	Account         string            `json:"account"`
	Image           string            `json:"image"`
	LaunchedAt      string            `json:"launched_at"`
	SecurityGroups  []string          `json:"security_groups"`
	Tags            map[string]string `json:"tags"`
}

// VPC is the network the instance's first interface is attached to.
type VPC struct {
	VPCID       string `json:"vpc_id"`
	VPCName     string `json:"vpc_name"`
	Description string `json:"description"`
	SelfLink    string `json:"self_link"`
}

// Subnet is the subnetwork of the instance's first interface.
type Subnet struct {
	SubnetID       string `json:"subnet_id"`
	SubnetName     string `json:"subnet_name"`
	SelfLink       string `json:"self_link"`
	GatewayAddress string `json:"gateway_address"`
	VPC            string `json:"vpc"`
	CIDR           string `json:"cidr"`
}

// SecurityGroup is one firewall rule entry applicable to the instance.
type SecurityGroup struct {
	Priority          int64  `json:"priority"`
	Direction         string `json:"direction"` // ingress | egress
	Action            string `json:"action"`    // allow | deny
	Protocol          string `json:"protocol"`
	PortRangeMin      int64  `json:"port_range_min"`
	PortRangeMax      int64  `json:"port_range_max"`
	Port              string `json:"port"`
	RemoteCIDR        string `json:"remote_cidr"`
	SecurityGroupName string `json:"security_group_name"`
	SecurityGroupID   string `json:"security_group_id"`
	Description       string `json:"description"`
}

// LoadBalancer is a load balancer that routes traffic to the instance.
type LoadBalancer struct {
	Type     string   `json:"type"`
	Name     string   `json:"name"`
	DNS      string   `json:"dns"`
	Port     []int64  `json:"port"`
	Protocol []string `json:"protocol"`
	Scheme   string   `json:"scheme"`
	Tags     LBTags   `json:"tags"`
}

// LBTags carries the provider resource a LoadBalancer was derived from.
type LBTags struct {
	LBID       string `json:"lb_id"`
	SelfLink   string `json:"self_link"`
	SourceKind string `json:"source_kind"` // target_pool | backend_service
}

// Autoscaler is the autoscaler and instance group managing the instance.
type Autoscaler struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	SelfLink      string        `json:"self_link"`
	InstanceGroup InstanceGroup `json:"instance_group"`
}

// InstanceGroup is the managed instance group the instance belongs to.
type InstanceGroup struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	SelfLink             string `json:"self_link"`
	InstanceTemplateName string `json:"instance_template_name"`
}

// Stackdriver links the instance to its monitoring time series.
type Stackdriver struct {
	Type    string              `json:"type"`
	Filters []StackdriverFilter `json:"filters"`
}

// StackdriverFilter is a single monitoring filter term.
type StackdriverFilter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Disk is an attached disk of an instance.
type Disk struct {
	DeviceIndex int      `json:"device_index"`
	Device      string   `json:"device"`
	DiskType    string   `json:"disk_type"`
	Size        float64  `json:"size"` // GB
	Tags        DiskTags `json:"tags"`
}

// DiskTags are the provider details of a Disk.
type DiskTags struct {
	DiskID          string            `json:"disk_id"`
	DiskName        string            `json:"disk_name"`
	DiskType        string            `json:"disk_type"` // pd-standard, pd-ssd, ...
	Encrypted       bool              `json:"encrypted"`
	ReadIOPS        float64           `json:"read_iops"`
	WriteIOPS       float64           `json:"write_iops"`
	ReadThroughput  float64           `json:"read_throughput"`  // MB/s
	WriteThroughput float64           `json:"write_throughput"` // MB/s
	Labels          map[string]string `json:"labels"`
}

// NIC is a network interface of an instance.
type NIC struct {
	DeviceIndex     int      `json:"device_index"`
	Device          string   `json:"device"`
	NICType         string   `json:"nic_type"`
	IPAddresses     []string `json:"ip_addresses"`
	CIDR            string   `json:"cidr"`
	MACAddress      string   `json:"mac_address"`
	PublicIPAddress string   `json:"public_ip_address"`
}
