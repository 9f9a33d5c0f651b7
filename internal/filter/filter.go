// Package filter selects which kinds are collected and which collected
// records are emitted.
package filter

import (
	"github.com/yairfalse/gcpinventory/pkg/resource"
)

// Filter controls which kinds to collect and which records to keep.
type Filter struct {
	excludeKinds  map[string]bool
	includeLabels map[string]string
	excludeLabels map[string]string
}

// New creates a new Filter from the provided configuration.
func New(excludeKinds []string, includeLabels, excludeLabels map[string]string) *Filter {
	excludeMap := make(map[string]bool)
	for _, k := range excludeKinds {
		excludeMap[k] = true
	}

	return &Filter{
		excludeKinds:  excludeMap,
		includeLabels: includeLabels,
		excludeLabels: excludeLabels,
	}
}

// ShouldCollectKind returns true if the given kind should be collected.
func (f *Filter) ShouldCollectKind(kind string) bool {
	return !f.excludeKinds[kind]
}

// ShouldIncludeResource returns true if the record passes label filters.
// Labels are read from the record's tag pairs.
func (f *Filter) ShouldIncludeResource(r resource.Resource) bool {
	if len(f.includeLabels) == 0 && len(f.excludeLabels) == 0 {
		return true
	}
	labels := resource.PairsToLabels(r.Tags)

	// All include labels must match
	for k, v := range f.includeLabels {
		if got, ok := labels[k]; !ok || got != v {
			return false
		}
	}

	// Any exclude label match drops the record
	for k, v := range f.excludeLabels {
		if got, ok := labels[k]; ok && got == v {
			return false
		}
	}

	return true
}

// Apply returns a copy of result keeping only the records that pass the
// label filters. Error records are never filtered.
func (f *Filter) Apply(result resource.CollectResult) resource.CollectResult {
	if len(f.includeLabels) == 0 && len(f.excludeLabels) == 0 {
		return result
	}

	filtered := make([]resource.Resource, 0, len(result.Resources))
	for _, r := range result.Resources {
		if f.ShouldIncludeResource(r) {
			filtered = append(filtered, r)
		}
	}
	result.Resources = filtered
	return result
}

// IsEmpty returns true if no filters are configured.
func (f *Filter) IsEmpty() bool {
	return len(f.excludeKinds) == 0 && len(f.includeLabels) == 0 && len(f.excludeLabels) == 0
}
