package list

import (
	"strings"
	"testing"
)

func TestViewGroupsByCategory(t *testing.T) {
	t.Parallel()

	l := List{
		ID:   "l1",
		Name: "Groceries",
		Items: []Item{
			{ID: "1", NameKey: "milk", DisplayName: "Milk", Quantity: 1, Category: "dairy", Checked: true},
			{ID: "2", NameKey: "bananas", DisplayName: "Bananas", Quantity: 6, Category: "produce"},
			{ID: "3", NameKey: "eggs", DisplayName: "Eggs", Quantity: 12, Category: "dairy"},
			{ID: "4", NameKey: "hot sauce", DisplayName: "Hot Sauce", Quantity: 1},
		},
	}

	v := l.View()
	if v.TotalItems != 4 || v.CheckedItems != 1 {
		t.Errorf("totals = %d/%d, want 4 total and 1 checked", v.TotalItems, v.CheckedItems)
	}
	if len(v.Categories) != 3 {
		t.Fatalf("len(categories) = %d, want 3", len(v.Categories))
	}
	if v.Categories[0].Category != "dairy" || v.Categories[1].Category != "other" || v.Categories[2].Category != "produce" {
		t.Errorf("category order = %v, want alphabetical with empty mapped to other",
			[]string{v.Categories[0].Category, v.Categories[1].Category, v.Categories[2].Category})
	}
	dairy := v.Categories[0]
	if dairy.Count != 2 || dairy.Items[0].NameKey != "milk" || dairy.Items[1].NameKey != "eggs" {
		t.Errorf("dairy group = %+v, want milk then eggs in insertion order", dairy)
	}
}

func TestShareText(t *testing.T) {
	t.Parallel()

	empty := List{Name: "Groceries"}
	if got := empty.ShareText(); got != "Your shopping list is empty." {
		t.Errorf("empty list text = %q", got)
	}

	l := List{
		Items: []Item{
			{DisplayName: "Milk", Quantity: 2, Unit: "liters", Checked: true},
			{DisplayName: "Bread", Quantity: 1},
		},
	}
	got := l.ShareText()
	if !strings.HasPrefix(got, "My Shopping List:") {
		t.Errorf("text = %q, want the header first", got)
	}
	if !strings.Contains(got, "[x] 2 liters Milk") {
		t.Errorf("text = %q, want the checked milk line", got)
	}
	if !strings.Contains(got, "[ ] 1 pieces Bread") {
		t.Errorf("text = %q, want pieces as the fallback unit", got)
	}
}

func TestCloneIsDeep(t *testing.T) {
	t.Parallel()

	l := List{ID: "l1", Items: []Item{{ID: "1", NameKey: "milk", Quantity: 1}}}
	c := l.Clone()
	c.Items[0].Quantity = 5
	if l.Items[0].Quantity != 1 {
		t.Error("Clone shares the items slice with the original")
	}
}
