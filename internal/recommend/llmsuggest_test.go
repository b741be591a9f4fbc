package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/karlvoss/aisle/internal/catalog"
	"github.com/karlvoss/aisle/pkg/provider/llm"
	llmmock "github.com/karlvoss/aisle/pkg/provider/llm/mock"
)

func testColdStartValidator(t *testing.T) *catalog.Validator {
	t.Helper()
	return catalog.NewValidator(testIndex(t), 0.82, 0.55, 6)
}

func TestColdStartMapsNamesToCatalog(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `["Milk", "Cereal", "Unobtainium", "Milk"]`,
		},
	}
	c := NewColdStart(p, testColdStartValidator(t), time.Second, 6, nil)

	out := c.Suggest(context.Background())
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want the unknown and duplicate names dropped", len(out))
	}
	if out[0].NameKey != "milk" || out[1].NameKey != "cereal" {
		t.Errorf("out = %+v, want milk then cereal", out)
	}
	if out[0].Source != "cold_start" {
		t.Errorf("source = %q, want cold_start", out[0].Source)
	}
}

func TestColdStartFailureYieldsNothing(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{CompleteErr: errors.New("quota exceeded")}
	c := NewColdStart(p, testColdStartValidator(t), time.Second, 6, nil)

	if out := c.Suggest(context.Background()); out != nil {
		t.Errorf("out = %+v, want nil on provider failure", out)
	}
}

func TestColdStartDisabledWithoutProvider(t *testing.T) {
	t.Parallel()
	var c *ColdStart
	if c.Available() {
		t.Error("nil ColdStart must report unavailable")
	}

	c = NewColdStart(nil, testColdStartValidator(t), time.Second, 6, nil)
	if c.Available() {
		t.Error("ColdStart without a provider must report unavailable")
	}
	if out := c.Suggest(context.Background()); out != nil {
		t.Errorf("out = %+v, want nil", out)
	}
}

func TestEngineColdStartOnEmptyMerge(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `["Milk"]`},
	}
	cold := NewColdStart(p, testColdStartValidator(t), time.Second, 6, nil)
	e := NewEngine([]Source{
		&staticSource{name: "co_purchase"},
	}, cold, nil, nil)

	got := e.Suggest(context.Background(), Query{})
	if len(got.CoPurchase) != 1 || got.CoPurchase[0].NameKey != "milk" {
		t.Errorf("co_purchase = %+v, want the cold start filling the gap", got.CoPurchase)
	}
	if calls := p.Calls(); len(calls) != 1 {
		t.Errorf("Complete called %d times, want 1", len(calls))
	}
}

func TestEngineColdStartPadsSparseAnchor(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `["Milk", "Cereal", "Cookies"]`},
	}
	cold := NewColdStart(p, testColdStartValidator(t), time.Second, 6, nil)
	e := NewEngine([]Source{
		&staticSource{name: "co_purchase", out: []Suggestion{
			{ItemName: "Cereal", NameKey: "cereal", Source: "co_purchase"},
		}},
	}, cold, nil, nil)

	got := e.Suggest(context.Background(), Query{Anchor: "Milk", AnchorKey: "milk"})
	if len(got.CoPurchase) != 2 {
		t.Fatalf("co_purchase = %+v, want cereal plus one cold-start item", got.CoPurchase)
	}
	if got.CoPurchase[0].NameKey != "cereal" || got.CoPurchase[1].NameKey != "cookies" {
		t.Errorf("co_purchase = %+v, want the anchor and the already-claimed item dropped", got.CoPurchase)
	}
	if got.CoPurchase[1].Source != "cold_start" {
		t.Errorf("source = %q, want cold_start", got.CoPurchase[1].Source)
	}
}

func TestEngineColdStartSkippedOnRichAnchor(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `["Milk"]`},
	}
	cold := NewColdStart(p, testColdStartValidator(t), time.Second, 6, nil)
	e := NewEngine([]Source{
		&staticSource{name: "co_purchase", out: []Suggestion{
			{ItemName: "Cereal", NameKey: "cereal", Source: "co_purchase"},
			{ItemName: "Cookies", NameKey: "cookies", Source: "co_purchase"},
			{ItemName: "Oat Milk", NameKey: "oat milk", Source: "co_purchase"},
		}},
	}, cold, nil, nil)

	e.Suggest(context.Background(), Query{Anchor: "Milk", AnchorKey: "milk"})
	if calls := p.Calls(); len(calls) != 0 {
		t.Errorf("Complete called %d times, want none with three co-purchase hits", len(calls))
	}
}

func TestEngineColdStartSkippedWhenSourcesAnswer(t *testing.T) {
	t.Parallel()
	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{Content: `["Milk"]`},
	}
	cold := NewColdStart(p, testColdStartValidator(t), time.Second, 6, nil)
	e := NewEngine([]Source{
		&staticSource{name: "seasonal", out: []Suggestion{
			{ItemName: "Strawberries", NameKey: "strawberries", Source: "seasonal"},
		}},
	}, cold, nil, nil)

	e.Suggest(context.Background(), Query{})
	if calls := p.Calls(); len(calls) != 0 {
		t.Errorf("Complete called %d times, want the cold start untouched", len(calls))
	}
}
