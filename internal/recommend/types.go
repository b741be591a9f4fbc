// Package recommend produces shopping suggestions from four independent
// sources: co-purchase rules, substitute similarity, seasonal produce, and
// the user's personal reorder rhythm.
//
// Each source implements [Source] and ranks its own candidates; the [Engine]
// fans out to all of them, drops anything already on the active list, and
// deduplicates across sources so an item appears in at most one group.
package recommend

import (
	"context"
	"time"
)

// Suggestion is one recommended item.
type Suggestion struct {
	ItemName string  `json:"item_name"`
	NameKey  string  `json:"name_key"`
	Category string  `json:"category,omitempty"`
	Score    float64 `json:"score"`
	Reason   string  `json:"reason"`
	Source   string  `json:"source"`
}

// Suggestions groups the merged output by source.
// Slices are non-nil so callers and the JSON surface always see arrays.
type Suggestions struct {
	CoPurchase  []Suggestion `json:"co_purchase"`
	Substitutes []Suggestion `json:"substitutes"`
	Seasonal    []Suggestion `json:"seasonal"`
	Reorder     []Suggestion `json:"reorder"`
}

// Total returns the number of suggestions across all groups.
func (s Suggestions) Total() int {
	return len(s.CoPurchase) + len(s.Substitutes) + len(s.Seasonal) + len(s.Reorder)
}

// Query carries the inputs every source ranks against. AnchorKey is empty
// when the caller wants general suggestions rather than ones related to a
// specific item; anchor-driven sources then fall back to the whole list.
type Query struct {
	// Anchor is the display form of the item the user asked about, if any.
	Anchor string

	// AnchorKey is the normalized catalog key of Anchor, empty when absent.
	AnchorKey string

	// ListKeys holds the name keys currently on the active list. Used both
	// for exclusion and as the anchor set in union mode.
	ListKeys []string

	// Now anchors seasonal and reorder calculations.
	Now time.Time
}

// HasAnchor reports whether the query names a specific item.
func (q Query) HasAnchor() bool { return q.AnchorKey != "" }

// excluded reports whether key is already on the active list.
func (q Query) excluded(key string) bool {
	for _, k := range q.ListKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Source is one ranking strategy. Rank returns its candidates best first,
// already capped to the source's own limit. Implementations must not filter
// against the active list; exclusion and cross-source dedup happen in the
// [Engine] merge so the rules live in one place.
type Source interface {
	Name() string
	Rank(ctx context.Context, q Query) ([]Suggestion, error)
}
