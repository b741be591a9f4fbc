package recommend

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/karlvoss/aisle/internal/observe"
)

// Engine fans a query out to every configured [Source] concurrently and
// merges the results.
//
// Merge rules, applied in source registration order:
//   - items already on the active list are dropped
//   - an item claimed by an earlier source is dropped from later ones, so
//     each suggestion appears in exactly one group
//
// A failing source contributes nothing; the others still answer. When a
// [ColdStart] is configured it pads the co-purchase group under its own
// timeout, either because every source came back empty or because an anchored
// query found fewer than three co-purchase candidates.
type Engine struct {
	sources   []Source
	coldStart *ColdStart
	metrics   *observe.Metrics
	logger    *slog.Logger
}

// NewEngine builds an Engine over sources in priority order. coldStart and
// metrics may be nil.
func NewEngine(sources []Source, coldStart *ColdStart, metrics *observe.Metrics, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{sources: sources, coldStart: coldStart, metrics: metrics, logger: logger}
}

// Suggest runs the query. It never returns an error: recommendation failures
// degrade to fewer (or zero) suggestions.
func (e *Engine) Suggest(ctx context.Context, q Query) Suggestions {
	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.RecordRecommend(ctx, time.Since(start))
		}
	}()
	if q.Now.IsZero() {
		q.Now = time.Now()
	}

	ranked := make([][]Suggestion, len(e.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range e.sources {
		g.Go(func() error {
			out, err := src.Rank(gctx, q)
			if err != nil {
				e.logger.Warn("suggestion source failed", "source", src.Name(), "error", err)
				return nil
			}
			ranked[i] = out
			return nil
		})
	}
	g.Wait()

	merged := e.merge(q, ranked)
	if e.coldStart.Available() && (merged.Total() == 0 || (q.HasAnchor() && len(merged.CoPurchase) < sparseCoPurchase)) {
		e.padWithColdStart(ctx, q, &merged)
	}
	return merged
}

// sparseCoPurchase is the co-purchase count below which an anchored query is
// considered data-poor enough to ask the cold-start model for more.
const sparseCoPurchase = 3

// padWithColdStart appends cold-start items to the co-purchase group, skipping
// the anchor, list items, and anything another source already claimed.
func (e *Engine) padWithColdStart(ctx context.Context, q Query, merged *Suggestions) {
	seen := make(map[string]bool, merged.Total()+1)
	if q.AnchorKey != "" {
		seen[q.AnchorKey] = true
	}
	for _, group := range [][]Suggestion{merged.CoPurchase, merged.Substitutes, merged.Seasonal, merged.Reorder} {
		for _, sug := range group {
			seen[sug.NameKey] = true
		}
	}
	for _, sug := range e.coldStart.Suggest(ctx) {
		if q.excluded(sug.NameKey) || seen[sug.NameKey] {
			continue
		}
		seen[sug.NameKey] = true
		merged.CoPurchase = append(merged.CoPurchase, sug)
	}
}

// merge applies list exclusion and cross-source dedup, keeping each source's
// internal order.
func (e *Engine) merge(q Query, ranked [][]Suggestion) Suggestions {
	out := Suggestions{
		CoPurchase:  []Suggestion{},
		Substitutes: []Suggestion{},
		Seasonal:    []Suggestion{},
		Reorder:     []Suggestion{},
	}
	claimed := make(map[string]bool)
	for i, src := range e.sources {
		for _, sug := range ranked[i] {
			if q.excluded(sug.NameKey) || claimed[sug.NameKey] {
				continue
			}
			claimed[sug.NameKey] = true
			switch src.Name() {
			case "co_purchase":
				out.CoPurchase = append(out.CoPurchase, sug)
			case "substitutes":
				out.Substitutes = append(out.Substitutes, sug)
			case "seasonal":
				out.Seasonal = append(out.Seasonal, sug)
			case "reorder":
				out.Reorder = append(out.Reorder, sug)
			default:
				out.CoPurchase = append(out.CoPurchase, sug)
			}
		}
	}
	return out
}
