package recommend

import (
	"context"
	"fmt"
	"sort"

	"github.com/karlvoss/aisle/internal/catalog"
)

var _ Source = (*CoPurchaseSource)(nil)

// CoPurchaseSource suggests items frequently bought together with an anchor,
// from a precomputed rule artifact.
//
// With an anchor it returns that anchor's rule entries. Without one it runs
// in union mode: every list key acts as an anchor, candidate weights are
// summed across the rules that produced them, and the union is re-ranked by
// total weight. An item two list entries both point at outranks one with a
// single stronger edge.
type CoPurchaseSource struct {
	rules RuleSet
	index *catalog.Index
	limit int
}

// NewCoPurchaseSource builds the source. limit <= 0 falls back to 6.
func NewCoPurchaseSource(rules RuleSet, idx *catalog.Index, limit int) *CoPurchaseSource {
	if limit <= 0 {
		limit = 6
	}
	return &CoPurchaseSource{rules: rules, index: idx, limit: limit}
}

func (s *CoPurchaseSource) Name() string { return "co_purchase" }

// Rank implements [Source].
func (s *CoPurchaseSource) Rank(ctx context.Context, q Query) ([]Suggestion, error) {
	if q.HasAnchor() {
		return s.forAnchor(q.AnchorKey), nil
	}
	return s.union(q.ListKeys), nil
}

func (s *CoPurchaseSource) forAnchor(anchorKey string) []Suggestion {
	items := s.rules[anchorKey]
	out := make([]Suggestion, 0, len(items))
	for _, wi := range items {
		if len(out) == s.limit {
			break
		}
		out = append(out, s.suggestion(wi.Item, wi.Weight,
			fmt.Sprintf("Often bought with %s", displayFor(s.index, anchorKey))))
	}
	return out
}

func (s *CoPurchaseSource) union(listKeys []string) []Suggestion {
	totals := make(map[string]float64)
	names := make(map[string]string)
	for _, key := range listKeys {
		for _, wi := range s.rules[key] {
			k := catalog.NormalizeKey(wi.Item)
			totals[k] += wi.Weight
			names[k] = wi.Item
		}
	}

	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if totals[keys[i]] != totals[keys[j]] {
			return totals[keys[i]] > totals[keys[j]]
		}
		return keys[i] < keys[j]
	})

	out := make([]Suggestion, 0, s.limit)
	for _, k := range keys {
		if len(out) == s.limit {
			break
		}
		out = append(out, s.suggestion(names[k], totals[k], "Goes well with your list"))
	}
	return out
}

func (s *CoPurchaseSource) suggestion(name string, score float64, reason string) Suggestion {
	key := catalog.NormalizeKey(name)
	sug := Suggestion{
		ItemName: name,
		NameKey:  key,
		Score:    score,
		Reason:   reason,
		Source:   s.Name(),
	}
	if entry := s.index.Get(key); entry != nil {
		sug.ItemName = entry.Name
		sug.Category = entry.Category
	}
	return sug
}

// displayFor prefers the catalog's canonical name over the raw key.
func displayFor(idx *catalog.Index, key string) string {
	if entry := idx.Get(key); entry != nil {
		return entry.Name
	}
	return key
}
