// Package plugin defines the collector plugin interface.
package plugin

import (
	"context"
	"sort"
	"sync"

	"github.com/yairfalse/gcpinventory/pkg/resource"
)

// Params are the per-run collection parameters handed to every plugin.
// Credentials, filter and zones are opaque here and forwarded to connectors.
type Params struct {
	ProjectID  string
	SecretData map[string]string // Service account key fields; empty means default credentials
	Filter     string            // Provider list filter expression
	Zones      []string          // Restrict zonal listings; empty means all zones
	Workers    int               // Entities assembled concurrently; <= 1 is sequential
	Options    map[string]string
}

// Plugin collects one top-level entity kind.
type Plugin interface {
	// Name returns the collected kind (e.g., "compute_instance", "route").
	Name() string

	// Collect fetches listings and assembles one record per entity.
	// Per-entity failures are returned in CollectResult.Errors; the error
	// return is reserved for connector failures while fetching listings.
	Collect(ctx context.Context, params Params) (resource.CollectResult, error)
}

// Registry holds registered plugins.
var (
	registry = make(map[string]Plugin)
	mu       sync.RWMutex
)

// Register adds a plugin to the registry.
func Register(p Plugin) {
	mu.Lock()
	defer mu.Unlock()
	registry[p.Name()] = p
}

// Get returns a plugin by name.
func Get(name string) (Plugin, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := registry[name]
	return p, ok
}

// All returns all registered plugins ordered by name.
func All() []Plugin {
	mu.RLock()
	defer mu.RUnlock()
	plugins := make([]Plugin, 0, len(registry))
	for _, p := range registry {
		plugins = append(plugins, p)
	}
	sort.Slice(plugins, func(i, j int) bool { return plugins[i].Name() < plugins[j].Name() })
	return plugins
}

// Names returns all registered plugin names, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clear removes all plugins from the registry. Used for testing.
func Clear() {
	mu.Lock()
	defer mu.Unlock()
	registry = make(map[string]Plugin)
}
