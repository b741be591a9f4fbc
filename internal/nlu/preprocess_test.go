package nlu

import "testing"

func TestPreprocess(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"polite prefix and filler", "Can you add two bananas please", "add 2 bananas"},
		{"stacked openers", "hey there please add milk", "add milk"},
		{"number words", "add twenty eggs", "add 20 eggs"},
		{"dozen collapses article", "add a dozen eggs", "add 12 eggs"},
		{"couple", "get a couple of avocados", "get 2 of avocados"},
		{"article kept before noun", "add a pizza", "add a pizza"},
		{"article converted before unit", "add a bottle of milk", "add 1 bottle of milk"},
		{"multi-word filler", "add milk you know the good one", "add milk the good one"},
		{"trailing punctuation", "add milk!!", "add milk"},
		{"fillers dropped", "um uh add like milk", "add milk"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Preprocess(tc.in)
			if got.Text != tc.want {
				t.Errorf("Preprocess(%q).Text = %q, want %q", tc.in, got.Text, tc.want)
			}
		})
	}
}

func TestPreprocessVagueQuantity(t *testing.T) {
	t.Parallel()

	got := Preprocess("add some milk")
	if got.Text != "add 1 milk" {
		t.Errorf("Text = %q, want %q", got.Text, "add 1 milk")
	}
	if !got.VagueQuantity {
		t.Error("VagueQuantity = false, want true")
	}

	got = Preprocess("add a few apples")
	if got.Text != "add 1 apples" {
		t.Errorf("Text = %q, want %q", got.Text, "add 1 apples")
	}
	if !got.VagueQuantity {
		t.Error("VagueQuantity = false, want true for 'a few'")
	}

	if got := Preprocess("add 2 apples"); got.VagueQuantity {
		t.Error("VagueQuantity = true for an explicit quantity")
	}
}
