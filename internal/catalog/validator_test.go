package catalog

import "testing"

func testValidator(t *testing.T) *Validator {
	t.Helper()
	return NewValidator(testIndex(t), 0.82, 0.55, 6)
}

func TestValidateExact(t *testing.T) {
	t.Parallel()

	v := testValidator(t)
	got := v.Validate("Milk")
	if got.Kind != KindMatched {
		t.Fatalf("Kind = %q, want matched", got.Kind)
	}
	if got.Entry.Name != "Milk" || got.Confidence != 1.0 || got.Corrected {
		t.Errorf("got %+v, want exact uncorrected Milk match", got)
	}
}

func TestValidateEmptyQueryMeansNoItem(t *testing.T) {
	t.Parallel()

	v := testValidator(t)
	got := v.Validate("")
	if got.Kind != KindUnresolved || got.Query != "" {
		t.Errorf("Validate(\"\") = %+v, want unresolved with empty query", got)
	}

	// An unmatched non-empty query keeps the query so the caller can tell
	// the two apart.
	got = v.Validate("flux capacitor")
	if got.Kind != KindUnresolved || got.Query != "flux capacitor" {
		t.Errorf("Validate(unmatchable) = %+v, want unresolved carrying the query", got)
	}
}

func TestValidateWordContainment(t *testing.T) {
	t.Parallel()

	v := testValidator(t)

	tests := []struct {
		query string
		want  string
	}{
		{"organic milk", "Milk"},      // catalog key contained in query
		{"chicken", "Chicken Breast"}, // query contained in catalog key
		{"2 bananas", "Bananas"},      // leading quantity stripped
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			t.Parallel()
			got := v.Validate(tc.query)
			if got.Kind != KindMatched {
				t.Fatalf("Validate(%q).Kind = %q, want matched", tc.query, got.Kind)
			}
			if got.Entry.Name != tc.want {
				t.Errorf("Validate(%q) matched %q, want %q", tc.query, got.Entry.Name, tc.want)
			}
		})
	}
}

func TestValidateFuzzyCorrection(t *testing.T) {
	t.Parallel()

	v := testValidator(t)

	// Common transcription slips should auto-correct.
	tests := []struct {
		query string
		want  string
	}{
		{"melk", "Milk"},
		{"bananes", "Bananas"},
		{"tomatos", "Tomatoes"},
	}
	for _, tc := range tests {
		t.Run(tc.query, func(t *testing.T) {
			t.Parallel()
			got := v.Validate(tc.query)
			if got.Kind != KindMatched {
				t.Fatalf("Validate(%q).Kind = %q, want matched", tc.query, got.Kind)
			}
			if got.Entry.Name != tc.want || !got.Corrected {
				t.Errorf("Validate(%q) = %+v, want corrected match on %q", tc.query, got, tc.want)
			}
			if got.Confidence >= 1.0 || got.Confidence < 0.82 {
				t.Errorf("Validate(%q).Confidence = %.2f, want in [0.82, 1.0)", tc.query, got.Confidence)
			}
		})
	}
}

func TestValidateNoiseRejected(t *testing.T) {
	t.Parallel()

	v := testValidator(t)
	for _, q := range []string{"the", "um the", "some stuff", "a thing"} {
		got := v.Validate(q)
		if got.Kind != KindUnresolved {
			t.Errorf("Validate(%q).Kind = %q, want unresolved", q, got.Kind)
		}
	}
}

func TestValidateSuggestionsCapped(t *testing.T) {
	t.Parallel()

	// A catalog with many near-misses of the same query.
	entries := []Entry{
		{Name: "Corn", PopularityRank: 3},
		{Name: "Cord", PopularityRank: 1},
		{Name: "Core", PopularityRank: 2},
		{Name: "Cork", PopularityRank: 4},
		{Name: "Corned Beef", PopularityRank: 5},
		{Name: "Coriander", PopularityRank: 6},
		{Name: "Corn Flakes", PopularityRank: 7},
	}
	idx, err := NewIndex(entries)
	if err != nil {
		t.Fatalf("NewIndex: %v", err)
	}
	// Auto-correct set unreachably high so everything lands in suggestions.
	v := NewValidator(idx, 0.999, 0.55, 3)

	got := v.Validate("corm")
	if got.Kind != KindSuggested {
		t.Fatalf("Kind = %q, want suggested", got.Kind)
	}
	if len(got.Suggestions) != 3 {
		t.Fatalf("len(Suggestions) = %d, want the cap of 3", len(got.Suggestions))
	}
	// Equal-similarity candidates must break ties by popularity rank.
	for i := 1; i < len(got.Suggestions); i++ {
		// Suggestions are ordered by score desc; within the same score, by rank.
		if got.Suggestions[i-1] == got.Suggestions[i] {
			t.Error("duplicate suggestion entries")
		}
	}
}

func TestFindBest(t *testing.T) {
	t.Parallel()

	v := testValidator(t)
	e, score := v.FindBest("greek yoghurt")
	if e == nil || e.Name != "Greek Yogurt" {
		t.Fatalf("FindBest(greek yoghurt) = %v, want Greek Yogurt", e)
	}
	if score <= 0.8 {
		t.Errorf("score = %.2f, want > 0.8", score)
	}

	if e, _ := v.FindBest(""); e != nil {
		t.Errorf("FindBest(\"\") = %+v, want nil", e)
	}
}
