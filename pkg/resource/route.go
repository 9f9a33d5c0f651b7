package resource

// RouteData is the data payload of a VPC.Route record.
type RouteData struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	Description        string       `json:"description"`
	Network            string       `json:"network"`
	DestRange          string       `json:"dest_range"`
	Priority           int64        `json:"priority"`
	NextHopInstance    string       `json:"next_hop_instance,omitempty"`
	NextHopIP          string       `json:"next_hop_ip,omitempty"`
	NextHopNetwork     string       `json:"next_hop_network,omitempty"`
	NextHopGateway     string       `json:"next_hop_gateway,omitempty"`
	NextHopILB         string       `json:"next_hop_ilb,omitempty"`
	NextHopPeering     string       `json:"next_hop_peering,omitempty"`
	Tags               []string     `json:"tags"`
	SelfLink           string       `json:"self_link"`
	CreationTimestamp  string       `json:"creation_timestamp"`
	Project            string       `json:"project"`
	Display            RouteDisplay `json:"display"`
	ApplicableInstance []ComputeVM  `json:"applicable_instance"`
}

func (*RouteData) isData() {}

// RouteDisplay holds the rendered, human-readable route fields.
type RouteDisplay struct {
	NetworkDisplay     string   `json:"network_display"`
	NextHop            string   `json:"next_hop"`
	InstanceTagsOnList []string `json:"instance_tags_on_list"`
	InstanceTags       []string `json:"instance_tags"`
}

// ComputeVM is the reduced instance projection attached to a route.
type ComputeVM struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Zone              string   `json:"zone"`
	Region            string   `json:"region"`
	Address           string   `json:"address"`
	Subnetwork        string   `json:"subnetwork"`
	Project           string   `json:"project"`
	ServiceAccounts   []string `json:"service_accounts"`
	CreationTimestamp string   `json:"creation_timestamp"`
	Labels            []Label  `json:"labels"`
	LabelsDisplay     []string `json:"labels_display"`
	Tags              []string `json:"tags"`
}
