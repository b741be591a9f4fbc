// Package list implements the shopping list aggregate and the action
// executor that applies parsed voice commands to it.
//
// A list owns its items: at most one item per normalized name key, quantities
// always >= 1. All mutations go through the [Executor], which serialises
// concurrent commands per list id and persists a full snapshot per mutation,
// so a command either applies completely or leaves the list untouched.
package list

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// AddedVia records how an item ended up on the list.
type AddedVia string

const (
	ViaVoice      AddedVia = "voice"
	ViaManual     AddedVia = "manual"
	ViaSuggestion AddedVia = "suggestion"
)

// Item is one entry on a shopping list. Owned exclusively by its List.
type Item struct {
	// ID is unique within the list.
	ID string `json:"id"`

	// NameKey is the normalized lookup key; at most one item per key exists
	// on a list.
	NameKey string `json:"name_key"`

	// DisplayName is the canonical display string.
	DisplayName string `json:"display_name"`

	// Quantity is always >= 1; a quantity reaching 0 removes the entry.
	Quantity int `json:"quantity"`

	Unit     string   `json:"unit,omitempty"`
	Category string   `json:"category"`
	Checked  bool     `json:"checked"`
	AddedVia AddedVia `json:"added_via"`
}

// List is the shopping list aggregate. Items preserve insertion order; the
// category grouping is derived on demand via [List.View].
type List struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Items []Item `json:"items"`
}

// Clone returns a deep copy, so stored state can never be mutated through a
// returned snapshot.
func (l List) Clone() List {
	out := l
	out.Items = make([]Item, len(l.Items))
	copy(out.Items, l.Items)
	return out
}

// FindByKey returns a pointer to the item with the given name key, or nil.
func (l *List) FindByKey(key string) *Item {
	for i := range l.Items {
		if l.Items[i].NameKey == key {
			return &l.Items[i]
		}
	}
	return nil
}

// FindByID returns a pointer to the item with the given id, or nil.
func (l *List) FindByID(id string) *Item {
	for i := range l.Items {
		if l.Items[i].ID == id {
			return &l.Items[i]
		}
	}
	return nil
}

// RemoveByID deletes the item with the given id, reporting whether it existed.
func (l *List) RemoveByID(id string) bool {
	for i := range l.Items {
		if l.Items[i].ID == id {
			l.Items = append(l.Items[:i], l.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Keys returns the normalized name keys of all items.
func (l List) Keys() []string {
	keys := make([]string, len(l.Items))
	for i, it := range l.Items {
		keys[i] = it.NameKey
	}
	return keys
}

// CategoryGroup is one category's slice of a list view, insertion order
// preserved within the category.
type CategoryGroup struct {
	Category string `json:"category"`
	Items    []Item `json:"items"`
	Count    int    `json:"count"`
}

// View is the presentation shape of a list: items grouped by category with
// derived totals.
type View struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Categories   []CategoryGroup `json:"categories"`
	TotalItems   int             `json:"total_items"`
	CheckedItems int             `json:"checked_items"`
}

// View derives the category-grouped presentation of the list. Categories are
// sorted alphabetically; items keep their insertion order within each group.
func (l List) View() View {
	groups := make(map[string][]Item)
	var order []string
	checked := 0
	for _, it := range l.Items {
		cat := it.Category
		if cat == "" {
			cat = "other"
		}
		if _, ok := groups[cat]; !ok {
			order = append(order, cat)
		}
		groups[cat] = append(groups[cat], it)
		if it.Checked {
			checked++
		}
	}
	sort.Strings(order)

	v := View{
		ID:           l.ID,
		Name:         l.Name,
		TotalItems:   len(l.Items),
		CheckedItems: checked,
		Categories:   make([]CategoryGroup, 0, len(order)),
	}
	for _, cat := range order {
		v.Categories = append(v.Categories, CategoryGroup{
			Category: cat,
			Items:    groups[cat],
			Count:    len(groups[cat]),
		})
	}
	return v
}

// ShareText renders the list as plain text suitable for messaging apps.
func (l List) ShareText() string {
	if len(l.Items) == 0 {
		return "Your shopping list is empty."
	}
	var b strings.Builder
	b.WriteString("My Shopping List:")
	for _, it := range l.Items {
		check := "[ ]"
		if it.Checked {
			check = "[x]"
		}
		unit := it.Unit
		if unit == "" {
			unit = "pieces"
		}
		fmt.Fprintf(&b, "\n  %s %d %s %s", check, it.Quantity, unit, it.DisplayName)
	}
	return b.String()
}

// Status classifies the outcome of one executed command.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusNoChange Status = "no_change"
	StatusError    Status = "error"
)

// ActionResult is the user-facing outcome of one command.
type ActionResult struct {
	Status  Status `json:"status"`
	Message string `json:"message"`
}

// PurchaseRecord is one line of purchase history, written when an order is
// placed. Records sharing a PurchasedAt timestamp belong to the same order.
type PurchaseRecord struct {
	ItemName     string    `json:"item_name"`
	NameKey      string    `json:"name_key"`
	Category     string    `json:"category"`
	Quantity     int       `json:"quantity"`
	Unit         string    `json:"unit,omitempty"`
	SourceListID string    `json:"source_list_id"`
	PurchasedAt  time.Time `json:"purchased_at"`
}

// Order is a group of purchase records placed together.
type Order struct {
	OrderID     string           `json:"order_id"`
	PurchasedAt time.Time        `json:"purchased_at"`
	ItemCount   int              `json:"item_count"`
	Items       []PurchaseRecord `json:"items"`
}
