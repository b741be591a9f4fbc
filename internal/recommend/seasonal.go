package recommend

import (
	"context"
	"fmt"

	"github.com/karlvoss/aisle/internal/catalog"
)

var _ Source = (*SeasonalSource)(nil)

// SeasonalSource suggests items in season for the query's current month.
// Independent of the anchor: seasonal produce is worth surfacing whatever
// the user asked about.
type SeasonalSource struct {
	table SeasonalTable
	index *catalog.Index
	limit int
}

// NewSeasonalSource builds the source. limit <= 0 falls back to 6.
func NewSeasonalSource(table SeasonalTable, idx *catalog.Index, limit int) *SeasonalSource {
	if limit <= 0 {
		limit = 6
	}
	return &SeasonalSource{table: table, index: idx, limit: limit}
}

func (s *SeasonalSource) Name() string { return "seasonal" }

// Rank implements [Source].
func (s *SeasonalSource) Rank(ctx context.Context, q Query) ([]Suggestion, error) {
	now := q.Now
	if now.IsZero() {
		return nil, nil
	}
	month := now.Month()

	items := s.table[month]
	out := make([]Suggestion, 0, len(items))
	for _, wi := range items {
		if len(out) == s.limit {
			break
		}
		key := catalog.NormalizeKey(wi.Item)
		sug := Suggestion{
			ItemName: wi.Item,
			NameKey:  key,
			Score:    wi.Weight,
			Reason:   fmt.Sprintf("In season this %s", month),
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
