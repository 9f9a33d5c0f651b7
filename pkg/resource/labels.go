package resource

import (
	"fmt"
	"sort"
)

// Label is the pair-list form of a provider label.
type Label struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// LabelsToPairs converts a label mapping to pair-list form, sorted by key.
func LabelsToPairs(labels map[string]string) []Label {
	pairs := make([]Label, 0, len(labels))
	for k, v := range labels {
		pairs = append(pairs, Label{Key: k, Value: v})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].Key < pairs[j].Key })
	return pairs
}

// PairsToLabels converts pair-list labels back to a mapping.
// Later pairs win on duplicate keys.
func PairsToLabels(pairs []Label) map[string]string {
	labels := make(map[string]string, len(pairs))
	for _, p := range pairs {
		labels[p.Key] = p.Value
	}
	return labels
}

// LabelDisplay renders labels as "key: value" strings in key order.
func LabelDisplay(labels map[string]string) []string {
	pairs := LabelsToPairs(labels)
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, fmt.Sprintf("%s: %s", p.Key, p.Value))
	}
	return out
}
