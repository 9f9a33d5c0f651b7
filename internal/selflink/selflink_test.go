package selflink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const instanceURL = "https://www.googleapis.com/compute/v1/projects/my-project/zones/us-east1-b/instances/vm1"

func TestParam(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		segment string
		want    string
	}{
		{"zone", instanceURL, "zones", "us-east1-b"},
		{"instance", instanceURL, "instances", "vm1"},
		{"project", instanceURL, "projects", "my-project"},
		{"empty url", "", "zones", ""},
		{"absent segment", instanceURL, "networks", ""},
		{"segment is last component", "https://x/projects/p/zones", "zones", ""},
		{"first occurrence wins", "a/networks/n1/networks/n2", "networks", "n1"},
		{"short url", "networks/default", "networks", "default"},
		{"gateway", "https://www.googleapis.com/compute/v1/projects/p/global/gateways/default-internet-gateway", "gateways", "default-internet-gateway"},
		{"forwarding rule", "https://www.googleapis.com/compute/v1/projects/p/regions/us-east1/forwardingRules/fr-1", "forwardingRules", "fr-1"},
		{"no partial match", "https://x/zonesX/us-east1-b", "zones", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Param(tt.url, tt.segment))
		})
	}
}

func TestLast(t *testing.T) {
	assert.Equal(t, "n1-standard-1", Last("https://x/zones/us-east1-b/machineTypes/n1-standard-1"))
	assert.Equal(t, "plain", Last("plain"))
	assert.Equal(t, "", Last(""))
}

func TestRegionFromZone(t *testing.T) {
	assert.Equal(t, "us-east1", RegionFromZone("us-east1-b"))
	assert.Equal(t, "europe-west4", RegionFromZone("europe-west4-a"))
	assert.Equal(t, "", RegionFromZone(""))
	assert.Equal(t, "", RegionFromZone("useast1b"))
	assert.Equal(t, "", RegionFromZone("us-east1-"))
	assert.Equal(t, "", RegionFromZone("-b"))
	assert.Equal(t, "", RegionFromZone("us-east1-1"))
}

func TestIsIPAddress(t *testing.T) {
	assert.True(t, IsIPAddress("10.0.0.5"))
	assert.True(t, IsIPAddress("fd00::1"))
	assert.False(t, IsIPAddress("https://x/regions/us-east1/forwardingRules/fr-1"))
	assert.False(t, IsIPAddress(""))
}

func TestCapitalize(t *testing.T) {
	assert.Equal(t, "Web-1", Capitalize("web-1"))
	assert.Equal(t, "Us-east1-b", Capitalize("us-east1-b"))
	assert.Equal(t, "Vm", Capitalize("VM"))
	assert.Equal(t, "", Capitalize(""))
}
