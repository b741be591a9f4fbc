package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/karlvoss/aisle/internal/list"
)

var _ Source = (*ReorderSource)(nil)

// PurchaseReader is the slice of [list.Store] the reorder source needs.
type PurchaseReader interface {
	Purchases(ctx context.Context) ([]list.PurchaseRecord, error)
}

// ReorderSource suggests items the user buys on a rhythm and is overdue for.
//
// For every item with at least two purchases it derives the average interval
// between purchases; once the time since the last purchase reaches that
// interval the item becomes a candidate, scored by how overdue it is. An
// item bought weekly and last seen ten days ago scores 10/7.
type ReorderSource struct {
	purchases PurchaseReader
	limit     int
}

// NewReorderSource builds the source. limit <= 0 falls back to 4.
func NewReorderSource(purchases PurchaseReader, limit int) *ReorderSource {
	if limit <= 0 {
		limit = 4
	}
	return &ReorderSource{purchases: purchases, limit: limit}
}

func (s *ReorderSource) Name() string { return "reorder" }

// Rank implements [Source].
func (s *ReorderSource) Rank(ctx context.Context, q Query) ([]Suggestion, error) {
	records, err := s.purchases.Purchases(ctx)
	if err != nil {
		return nil, fmt.Errorf("reorder source: %w", err)
	}
	now := q.Now
	if now.IsZero() {
		now = time.Now()
	}

	type history struct {
		name     string
		category string
		times    []time.Time
	}
	byKey := make(map[string]*history)
	for _, r := range records {
		h, ok := byKey[r.NameKey]
		if !ok {
			h = &history{name: r.ItemName, category: r.Category}
			byKey[r.NameKey] = h
		}
		h.times = append(h.times, r.PurchasedAt)
	}

	var out []Suggestion
	for key, h := range byKey {
		if len(h.times) < 2 {
			continue
		}
		sort.Slice(h.times, func(i, j int) bool { return h.times[i].Before(h.times[j]) })
		first, last := h.times[0], h.times[len(h.times)-1]
		avg := last.Sub(first) / time.Duration(len(h.times)-1)
		if avg <= 0 {
			continue
		}
		ratio := float64(now.Sub(last)) / float64(avg)
		if ratio < 1 {
			continue
		}
		out = append(out, Suggestion{
			ItemName: h.name,
			NameKey:  key,
			Category: h.category,
			Score:    ratio,
			Reason:   fmt.Sprintf("You usually buy this every %d days", int(avg.Hours()/24)),
			Source:   s.Name(),
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].NameKey < out[j].NameKey
	})
	if len(out) > s.limit {
		out = out[:s.limit]
	}
	return out, nil
}
