package recommend

import (
	"context"
	"fmt"

	"github.com/karlvoss/aisle/internal/catalog"
)

var _ Source = (*SubstituteSource)(nil)

// SubstituteSource suggests alternatives for the anchor item from a
// precomputed similarity artifact. Candidates below the similarity floor are
// dropped: a weak substitute is worse than none.
//
// Without an anchor the source stays silent; "similar to nothing" has no
// meaning, and the other sources cover the general case.
type SubstituteSource struct {
	pairs RuleSet
	index *catalog.Index
	floor float64
	limit int
}

// NewSubstituteSource builds the source. floor outside (0, 1] falls back to
// 0.70 and limit <= 0 to 4.
func NewSubstituteSource(pairs RuleSet, idx *catalog.Index, floor float64, limit int) *SubstituteSource {
	if floor <= 0 || floor > 1 {
		floor = 0.70
	}
	if limit <= 0 {
		limit = 4
	}
	return &SubstituteSource{pairs: pairs, index: idx, floor: floor, limit: limit}
}

func (s *SubstituteSource) Name() string { return "substitutes" }

// Rank implements [Source].
func (s *SubstituteSource) Rank(ctx context.Context, q Query) ([]Suggestion, error) {
	if !q.HasAnchor() {
		return nil, nil
	}

	out := make([]Suggestion, 0, s.limit)
	for _, wi := range s.pairs[q.AnchorKey] {
		if wi.Weight < s.floor {
			continue
		}
		if len(out) == s.limit {
			break
		}
		key := catalog.NormalizeKey(wi.Item)
		sug := Suggestion{
			ItemName: wi.Item,
			NameKey:  key,
			Score:    wi.Weight,
			Reason:   fmt.Sprintf("Alternative to %s", displayFor(s.index, q.AnchorKey)),
			Source:   s.Name(),
		}
		if entry := s.index.Get(key); entry != nil {
			sug.ItemName = entry.Name
			sug.Category = entry.Category
		}
		out = append(out, sug)
	}
	return out, nil
}
