package models

import (
	"slices"
	"sort"
)

// Metadata holds the entities extracted from a summary, one string set per category.
// Each field is kept deduplicated and sorted; order carries no meaning.
type Metadata struct {
	Dates         []string `json:"dates"`
	Links         []string `json:"links"`
	References    []string `json:"references"`
	People        []string `json:"people"`
	Organizations []string `json:"organizations"`
	Topics        []string `json:"topics"`
	Other         []string `json:"other"`
}

// Empty reports whether no category holds a value.
func (m Metadata) Empty() bool {
	return len(m.Dates) == 0 && len(m.Links) == 0 && len(m.References) == 0 &&
		len(m.People) == 0 && len(m.Organizations) == 0 && len(m.Topics) == 0 && len(m.Other) == 0
}

// Equal compares two records category by category as sets.
func (m Metadata) Equal(o Metadata) bool {
	return sameSet(m.Dates, o.Dates) &&
		sameSet(m.Links, o.Links) &&
		sameSet(m.References, o.References) &&
		sameSet(m.People, o.People) &&
		sameSet(m.Organizations, o.Organizations) &&
		sameSet(m.Topics, o.Topics) &&
		sameSet(m.Other, o.Other)
}

// NewSet returns the distinct values of items in sorted order. It never returns nil so the
// JSON form is always an array.
func NewSet(items ...string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

func sameSet(a, b []string) bool {
	return slices.Equal(NewSet(a...), NewSet(b...))
}
