package gcp

import (
	"context"
	"math"
	"sync"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/singleflight"
	"google.golang.org/api/compute/v1"

	"github.com/yairfalse/gcpinventory/internal/selflink"
)

// machineTypeCatalog is the run-scoped machine type listing. It is
// append-only: custom machine types missing from the listing are fetched
// once per name and appended.
type machineTypeCatalog struct {
	api ComputeAPI

	mu      sync.RWMutex
	items   []*compute.MachineType
	fetched map[string]*compute.MachineType

	group singleflight.Group
}

func newMachineTypeCatalog(api ComputeAPI, items []*compute.MachineType) *machineTypeCatalog {
	return &machineTypeCatalog{
		api:     api,
		items:   items,
		fetched: make(map[string]*compute.MachineType),
	}
}

// find returns the first descriptor whose self link equals url or whose
// name equals the last segment of url.
func (c *machineTypeCatalog) find(url string) *compute.MachineType {
	if url == "" {
		return nil
	}
	name := selflink.Last(url)

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, mt := range c.items {
		if mt == nil {
			continue
		}
		if mt.SelfLink == url || mt.Name == name {
			return mt
		}
	}
	return nil
}

// count reports the number of descriptors in the catalog.
func (c *machineTypeCatalog) count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// size returns the vCPU count and memory in GiB of the machine type at url.
// A descriptor reporting neither is resolved through custom.
func (c *machineTypeCatalog) size(ctx context.Context, zone, url string) (int64, float64, error) {
	if mt := c.find(url); mt != nil {
		cores, memory := mt.GuestCpus, memoryGiB(mt.MemoryMb)
		if cores != 0 || memory != 0 {
			return cores, memory, nil
		}
	}

	mt, err := c.custom(ctx, zone, url)
	if err != nil {
		return 0, 0, err
	}
	return mt.GuestCpus, memoryGiB(mt.MemoryMb), nil
}

// custom fetches a machine type by name from the connector, at most once
// per name for the lifetime of the catalog.
func (c *machineTypeCatalog) custom(ctx context.Context, zone, url string) (*compute.MachineType, error) {
	name := selflink.Last(url)
	if name == "" {
		return nil, errors.New("instance has no machine type")
	}
	if mt, ok := c.lookupFetched(name); ok {
		return mt, nil
	}

	v, err, _ := c.group.Do(name, func() (any, error) {
		if mt, ok := c.lookupFetched(name); ok {
			return mt, nil
		}
		mt, err := c.api.GetMachineType(ctx, zone, name)
		if err != nil {
			return nil, errors.Wrapf(err, "get machine type %s in %s", name, zone)
		}
		if mt == nil {
			return nil, errors.Newf("machine type %s not found in %s", name, zone)
		}

		c.mu.Lock()
		c.fetched[name] = mt
		c.items = append(c.items, mt)
		c.mu.Unlock()
		return mt, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*compute.MachineType), nil
}

func (c *machineTypeCatalog) lookupFetched(name string) (*compute.MachineType, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	mt, ok := c.fetched[name]
	return mt, ok
}

// memoryGiB converts MiB to GiB rounded to two decimals.
func memoryGiB(mb int64) float64 {
	return math.Round(float64(mb)/1024*100) / 100
}
