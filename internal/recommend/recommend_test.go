package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/karlvoss/aisle/internal/catalog"
	"github.com/karlvoss/aisle/internal/list"
)

func testIndex(t *testing.T) *catalog.Index {
	t.Helper()
	idx, err := catalog.NewIndex([]catalog.Entry{
		{Name: "Milk", Category: "dairy", PopularityRank: 1},
		{Name: "Cereal", Category: "pantry", PopularityRank: 2},
		{Name: "Cookies", Category: "snacks", PopularityRank: 3},
		{Name: "Oat Milk", Category: "dairy", PopularityRank: 4},
		{Name: "Almond Milk", Category: "dairy", PopularityRank: 5},
		{Name: "Strawberries", Category: "produce", PopularityRank: 6},
		{Name: "Pasta", Category: "pantry", PopularityRank: 7},
		{Name: "Pasta Sauce", Category: "pantry", PopularityRank: 8},
	})
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return idx
}

func testRules() RuleSet {
	return RuleSet{
		"milk":  {{Item: "Cereal", Weight: 0.8}, {Item: "Cookies", Weight: 0.6}},
		"pasta": {{Item: "Pasta Sauce", Weight: 0.9}, {Item: "Cookies", Weight: 0.3}},
	}
}

func TestCoPurchaseAnchor(t *testing.T) {
	t.Parallel()
	src := NewCoPurchaseSource(testRules(), testIndex(t), 6)

	out, err := src.Rank(context.Background(), Query{Anchor: "Milk", AnchorKey: "milk"})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(out) != 2 || out[0].NameKey != "cereal" || out[1].NameKey != "cookies" {
		t.Errorf("out = %+v, want cereal then cookies", out)
	}
	if out[0].Category != "pantry" {
		t.Errorf("category = %q, want the catalog category filled in", out[0].Category)
	}
}

func TestCoPurchaseUnionSumsWeights(t *testing.T) {
	t.Parallel()
	src := NewCoPurchaseSource(testRules(), testIndex(t), 6)

	out, err := src.Rank(context.Background(), Query{ListKeys: []string{"milk", "pasta"}})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	// cookies appears in both rules: 0.6 + 0.3 = 0.9, tying pasta sauce;
	// the deterministic key tie-break puts cookies first.
	if len(out) != 3 {
		t.Fatalf("len(out) = %d, want 3", len(out))
	}
	if out[0].NameKey != "cookies" || out[0].Score != 0.9 {
		t.Errorf("out[0] = %+v, want cookies with the summed weight 0.9", out[0])
	}
}

func TestCoPurchaseUnknownAnchorIsEmpty(t *testing.T) {
	t.Parallel()
	src := NewCoPurchaseSource(testRules(), testIndex(t), 6)

	out, err := src.Rank(context.Background(), Query{Anchor: "Caviar", AnchorKey: "caviar"})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(out) != 0 {
		t.Errorf("out = %+v, want empty for an anchor with no rules", out)
	}
}

func TestSubstitutesApplyFloor(t *testing.T) {
	t.Parallel()
	pairs := RuleSet{
		"milk": {
			{Item: "Oat Milk", Weight: 0.85},
			{Item: "Almond Milk", Weight: 0.75},
			{Item: "Cookies", Weight: 0.40},
		},
	}
	src := NewSubstituteSource(pairs, testIndex(t), 0.70, 4)

	out, err := src.Rank(context.Background(), Query{Anchor: "Milk", AnchorKey: "milk"})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want the sub-floor candidate dropped", len(out))
	}
	if out[0].NameKey != "oat milk" || out[1].NameKey != "almond milk" {
		t.Errorf("out = %+v, want oat milk then almond milk", out)
	}

	out, _ = src.Rank(context.Background(), Query{})
	if len(out) != 0 {
		t.Errorf("anchorless substitutes = %+v, want none", out)
	}
}

func TestSeasonalByMonth(t *testing.T) {
	t.Parallel()
	table := SeasonalTable{
		time.June: {{Item: "Strawberries", Weight: 0.9}},
	}
	src := NewSeasonalSource(table, testIndex(t), 6)

	june := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	out, err := src.Rank(context.Background(), Query{Now: june})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(out) != 1 || out[0].NameKey != "strawberries" {
		t.Errorf("out = %+v, want strawberries in June", out)
	}

	january := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	out, _ = src.Rank(context.Background(), Query{Now: january})
	if len(out) != 0 {
		t.Errorf("out = %+v, want nothing in January", out)
	}
}

func TestReorderOverdueOnly(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	store := list.NewMemStore()
	ctx := context.Background()

	weekly := func(weeksAgo int) time.Time { return now.AddDate(0, 0, -7*weeksAgo) }
	if err := store.RecordPurchases(ctx, []list.PurchaseRecord{
		// milk weekly, last bought 10 days ago: overdue.
		{ItemName: "Milk", NameKey: "milk", PurchasedAt: now.AddDate(0, 0, -24)},
		{ItemName: "Milk", NameKey: "milk", PurchasedAt: now.AddDate(0, 0, -17)},
		{ItemName: "Milk", NameKey: "milk", PurchasedAt: now.AddDate(0, 0, -10)},
		// pasta weekly, last bought 2 days ago: not due yet.
		{ItemName: "Pasta", NameKey: "pasta", PurchasedAt: weekly(2)},
		{ItemName: "Pasta", NameKey: "pasta", PurchasedAt: now.AddDate(0, 0, -2)},
		// cookies bought once: no rhythm to derive.
		{ItemName: "Cookies", NameKey: "cookies", PurchasedAt: weekly(1)},
	}); err != nil {
		t.Fatalf("RecordPurchases: %v", err)
	}

	src := NewReorderSource(store, 4)
	out, err := src.Rank(ctx, Query{Now: now})
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if len(out) != 1 || out[0].NameKey != "milk" {
		t.Fatalf("out = %+v, want only the overdue milk", out)
	}
	if out[0].Score <= 1 {
		t.Errorf("score = %.2f, want an overdue ratio above 1", out[0].Score)
	}
}

// staticSource returns fixed suggestions, for engine merge tests.
type staticSource struct {
	name string
	out  []Suggestion
	err  error
}

func (s *staticSource) Name() string { return s.name }

func (s *staticSource) Rank(ctx context.Context, q Query) ([]Suggestion, error) {
	return s.out, s.err
}

func TestEngineMergeExcludesListKeys(t *testing.T) {
	t.Parallel()
	e := NewEngine([]Source{
		&staticSource{name: "co_purchase", out: []Suggestion{
			{ItemName: "Cereal", NameKey: "cereal", Source: "co_purchase"},
			{ItemName: "Milk", NameKey: "milk", Source: "co_purchase"},
		}},
	}, nil, nil, nil)

	got := e.Suggest(context.Background(), Query{ListKeys: []string{"milk"}})
	if len(got.CoPurchase) != 1 || got.CoPurchase[0].NameKey != "cereal" {
		t.Errorf("co_purchase = %+v, want the on-list milk excluded", got.CoPurchase)
	}
}

func TestEngineMergeDedupsAcrossSources(t *testing.T) {
	t.Parallel()
	e := NewEngine([]Source{
		&staticSource{name: "co_purchase", out: []Suggestion{
			{ItemName: "Cereal", NameKey: "cereal", Source: "co_purchase"},
		}},
		&staticSource{name: "seasonal", out: []Suggestion{
			{ItemName: "Cereal", NameKey: "cereal", Source: "seasonal"},
			{ItemName: "Strawberries", NameKey: "strawberries", Source: "seasonal"},
		}},
	}, nil, nil, nil)

	got := e.Suggest(context.Background(), Query{})
	if len(got.CoPurchase) != 1 {
		t.Errorf("co_purchase = %+v, want cereal claimed here", got.CoPurchase)
	}
	if len(got.Seasonal) != 1 || got.Seasonal[0].NameKey != "strawberries" {
		t.Errorf("seasonal = %+v, want cereal deduped away", got.Seasonal)
	}
}

func TestEngineSourceFailureDegrades(t *testing.T) {
	t.Parallel()
	e := NewEngine([]Source{
		&staticSource{name: "co_purchase", err: errors.New("artifact corrupted")},
		&staticSource{name: "seasonal", out: []Suggestion{
			{ItemName: "Strawberries", NameKey: "strawberries", Source: "seasonal"},
		}},
	}, nil, nil, nil)

	got := e.Suggest(context.Background(), Query{})
	if len(got.Seasonal) != 1 {
		t.Errorf("seasonal = %+v, want the healthy source still answering", got.Seasonal)
	}
	if len(got.CoPurchase) != 0 {
		t.Errorf("co_purchase = %+v, want nothing from the failed source", got.CoPurchase)
	}
}

func TestEngineUnseenAnchorReturnsEmptyArrays(t *testing.T) {
	t.Parallel()
	idx := testIndex(t)
	e := NewEngine([]Source{
		NewCoPurchaseSource(testRules(), idx, 6),
		NewSubstituteSource(RuleSet{}, idx, 0.70, 4),
	}, nil, nil, nil)

	got := e.Suggest(context.Background(), Query{Anchor: "Durian", AnchorKey: "durian"})
	if got.Total() != 0 {
		t.Errorf("got %+v, want empty groups for an unseen anchor", got)
	}
	if got.CoPurchase == nil || got.Substitutes == nil || got.Seasonal == nil || got.Reorder == nil {
		t.Error("groups must be non-nil empty arrays")
	}
}
