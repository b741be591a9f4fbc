package nlu

import (
	"testing"

	"github.com/karlvoss/aisle/internal/catalog"
)

func testCatalog(t *testing.T) *catalog.Index {
	t.Helper()
	idx, err := catalog.NewIndex([]catalog.Entry{
		{Name: "Milk", Category: "dairy", PopularityRank: 1},
		{Name: "Eggs", Category: "dairy", PopularityRank: 2},
		{Name: "Bananas", Category: "produce", PopularityRank: 3},
		{Name: "Bread", Category: "bakery", PopularityRank: 4},
		{Name: "Pasta", Category: "pantry", PopularityRank: 5},
		{Name: "Greek Yogurt", Category: "dairy", PopularityRank: 6},
	})
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	return idx
}

func testExtractor(t *testing.T) *Extractor {
	t.Helper()
	return NewExtractor(testCatalog(t), nil)
}

func parse(t *testing.T, e *Extractor, transcript string) ParsedCommand {
	t.Helper()
	return e.Parse(Preprocess(transcript))
}

func TestParseAddWithQuantity(t *testing.T) {
	t.Parallel()

	cmd := parse(t, testExtractor(t), "add 2 bananas")
	if cmd.Intent != IntentAddItem {
		t.Errorf("Intent = %q, want add_item", cmd.Intent)
	}
	if cmd.Item != "bananas" {
		t.Errorf("Item = %q, want bananas", cmd.Item)
	}
	if cmd.Quantity != 2 {
		t.Errorf("Quantity = %v, want 2", cmd.Quantity)
	}
	if cmd.Confidence < 0.85 {
		t.Errorf("Confidence = %.2f, want >= 0.85", cmd.Confidence)
	}
	if cmd.Method != MethodFast {
		t.Errorf("Method = %q, want fast", cmd.Method)
	}
}

func TestParseDozen(t *testing.T) {
	t.Parallel()

	cmd := parse(t, testExtractor(t), "add a dozen eggs")
	if cmd.Intent != IntentAddItem || cmd.Item != "eggs" {
		t.Fatalf("got intent=%q item=%q, want add_item/eggs", cmd.Intent, cmd.Item)
	}
	if cmd.Quantity != 12 {
		t.Errorf("Quantity = %v, want 12", cmd.Quantity)
	}
	if cmd.Confidence < 0.85 {
		t.Errorf("Confidence = %.2f, want >= 0.85", cmd.Confidence)
	}
}

func TestParseIntents(t *testing.T) {
	t.Parallel()

	e := testExtractor(t)
	tests := []struct {
		transcript string
		want       Intent
	}{
		{"remove milk from my list", IntentRemoveItem},
		{"take off the bread", IntentRemoveItem},
		{"don't need pasta anymore", IntentRemoveItem},
		{"change milk to 3", IntentModifyItem},
		{"check off the eggs", IntentCheckItem},
		{"got the milk", IntentCheckItem},
		{"uncheck the eggs", IntentUncheckItem},
		{"do you have greek yogurt", IntentSearchItem},
		{"search for pasta", IntentSearchItem},
		{"what's on my list", IntentListItems},
		{"show my list", IntentListItems},
		{"clear my list", IntentClearList},
		{"remove everything", IntentClearList},
		{"remove all the milk", IntentRemoveItem},
		{"what else should i get", IntentGetSuggestions},
		{"suggest something for dinner", IntentGetSuggestions},
		{"i need bread", IntentAddItem},
		{"pick up some bananas", IntentAddItem},
	}
	for _, tc := range tests {
		t.Run(tc.transcript, func(t *testing.T) {
			t.Parallel()
			if cmd := parse(t, e, tc.transcript); cmd.Intent != tc.want {
				t.Errorf("Parse(%q).Intent = %q, want %q", tc.transcript, cmd.Intent, tc.want)
			}
		})
	}
}

func TestParseItemlessIntentScoresHigh(t *testing.T) {
	t.Parallel()

	e := testExtractor(t)
	for _, transcript := range []string{"what's on my list", "clear my list", "what else should i get"} {
		cmd := parse(t, e, transcript)
		if cmd.Item != "" {
			t.Errorf("Parse(%q).Item = %q, want empty", transcript, cmd.Item)
		}
		if cmd.Confidence < 0.85 {
			t.Errorf("Parse(%q).Confidence = %.2f, want >= 0.85", transcript, cmd.Confidence)
		}
	}
}

func TestParseMultiWordCatalogPhrase(t *testing.T) {
	t.Parallel()

	cmd := parse(t, testExtractor(t), "add greek yogurt")
	if cmd.Item != "greek yogurt" {
		t.Errorf("Item = %q, want the full catalog phrase", cmd.Item)
	}
}

func TestParseNonCatalogItemLowersConfidence(t *testing.T) {
	t.Parallel()

	cmd := parse(t, testExtractor(t), "add dragonfruit")
	if cmd.Item != "dragonfruit" {
		t.Fatalf("Item = %q, want dragonfruit", cmd.Item)
	}
	if cmd.Confidence >= 0.85 {
		t.Errorf("Confidence = %.2f, want < 0.85 for a non-catalog item", cmd.Confidence)
	}
}

func TestParseUnknownIntent(t *testing.T) {
	t.Parallel()

	cmd := parse(t, testExtractor(t), "flibber the jabberwock")
	if cmd.Intent != IntentUnknown {
		t.Errorf("Intent = %q, want unknown", cmd.Intent)
	}
	if cmd.Confidence >= 0.85 {
		t.Errorf("Confidence = %.2f, want < 0.85 so the fallback is consulted", cmd.Confidence)
	}
}

func TestParseUnitAndPrice(t *testing.T) {
	t.Parallel()

	e := testExtractor(t)

	cmd := parse(t, e, "add 2 bottles of milk")
	if cmd.Unit != "bottles" {
		t.Errorf("Unit = %q, want bottles", cmd.Unit)
	}
	if cmd.Quantity != 2 {
		t.Errorf("Quantity = %v, want 2", cmd.Quantity)
	}

	cmd = parse(t, e, "find milk under 5 dollars")
	if cmd.Intent != IntentSearchItem {
		t.Errorf("Intent = %q, want search_item", cmd.Intent)
	}
	if cmd.PriceMax != 5 {
		t.Errorf("PriceMax = %v, want 5", cmd.PriceMax)
	}
	if cmd.Quantity != 0 {
		t.Errorf("Quantity = %v, want 0 (price must not leak into quantity)", cmd.Quantity)
	}

	cmd = parse(t, e, "find bread under $3.50")
	if cmd.PriceMax != 3.50 {
		t.Errorf("PriceMax = %v, want 3.50", cmd.PriceMax)
	}
}

func TestParseVagueQuantityLowersConfidence(t *testing.T) {
	t.Parallel()

	e := testExtractor(t)
	vague := parse(t, e, "add some milk")
	exact := parse(t, e, "add 2 milk")
	if vague.Confidence >= exact.Confidence {
		t.Errorf("vague confidence %.2f should be below exact confidence %.2f",
			vague.Confidence, exact.Confidence)
	}
	if vague.Quantity != 1 {
		t.Errorf("Quantity = %v, want the vague default of 1", vague.Quantity)
	}
}
