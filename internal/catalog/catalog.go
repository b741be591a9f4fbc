// Package catalog provides the read-only item catalog and the entity
// resolution layer that validates extracted item names against it.
//
// The catalog is loaded once at startup from a JSON artifact produced by the
// offline data pipeline and never mutated afterwards, so an [Index] may be
// shared freely across concurrent requests without locking.
package catalog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Entry is a single catalog item. Immutable after load.
type Entry struct {
	// Name is the canonical display string (e.g., "Greek Yogurt").
	Name string `json:"name"`

	// NameKey is the lower-cased, whitespace-normalised lookup key. Unique
	// within the catalog.
	NameKey string `json:"name_key"`

	// Category is one of the fixed category set (produce, dairy, bakery, ...).
	Category string `json:"category"`

	// CommonUnits lists units the item is typically sold in, most common first.
	CommonUnits []string `json:"common_units,omitempty"`

	// AveragePrice is the typical price, zero when unknown.
	AveragePrice float64 `json:"average_price,omitempty"`

	// PopularityRank orders items by popularity; lower is more popular.
	PopularityRank int `json:"popularity_rank"`
}

// Index is the in-memory item catalog. All lookups are case-insensitive via
// [NormalizeKey]. Safe for concurrent use; read-only after construction.
type Index struct {
	byKey   map[string]*Entry
	entries []*Entry // load order
	keys    []string // same order as entries

	// categories maps category name to the number of items in it.
	categories map[string]int

	maxKeyWords int
}

// NormalizeKey lowercases s and collapses internal whitespace, producing the
// canonical catalog lookup key.
func NormalizeKey(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Load reads the catalog JSON file at path and builds an [Index].
func Load(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %q: %w", path, err)
	}
	defer f.Close()

	idx, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("catalog: parse %q: %w", path, err)
	}
	return idx, nil
}

// LoadFromReader decodes a JSON array of entries from r and builds an [Index].
// Entries with an empty name or a duplicate key are rejected.
func LoadFromReader(r io.Reader) (*Index, error) {
	var raw []Entry
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("catalog: decode json: %w", err)
	}
	return NewIndex(raw)
}

// NewIndex builds an [Index] from entries. Useful in tests where small
// catalogs are constructed from literals.
func NewIndex(entries []Entry) (*Index, error) {
	idx := &Index{
		byKey:      make(map[string]*Entry, len(entries)),
		categories: make(map[string]int),
	}
	for i := range entries {
		e := entries[i]
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("catalog: entry %d has an empty name", i)
		}
		if e.NameKey == "" {
			e.NameKey = NormalizeKey(e.Name)
		}
		if _, dup := idx.byKey[e.NameKey]; dup {
			return nil, fmt.Errorf("catalog: duplicate key %q", e.NameKey)
		}
		entry := &e
		idx.byKey[e.NameKey] = entry
		idx.entries = append(idx.entries, entry)
		idx.keys = append(idx.keys, e.NameKey)
		idx.categories[e.Category]++
		if n := len(strings.Fields(e.NameKey)); n > idx.maxKeyWords {
			idx.maxKeyWords = n
		}
	}
	return idx, nil
}

// Len returns the number of catalog entries.
func (idx *Index) Len() int { return len(idx.entries) }

// Get returns the entry for the normalised key of name, or nil.
func (idx *Index) Get(name string) *Entry {
	return idx.byKey[NormalizeKey(name)]
}

// Keys returns all catalog keys in load order. The caller must not mutate
// the returned slice.
func (idx *Index) Keys() []string { return idx.keys }

// MaxKeyWords returns the word count of the longest catalog key. Used by the
// extractor to bound its phrase-match window.
func (idx *Index) MaxKeyWords() int { return idx.maxKeyWords }

// Categories returns category names with their item counts, most populated
// first.
func (idx *Index) Categories() []CategoryCount {
	out := make([]CategoryCount, 0, len(idx.categories))
	for name, n := range idx.categories {
		out = append(out, CategoryCount{Name: name, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// CategoryCount pairs a category name with its item count.
type CategoryCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// InCategory returns the entries of a category ordered by popularity.
func (idx *Index) InCategory(category string) []*Entry {
	want := strings.ToLower(strings.TrimSpace(category))
	var out []*Entry
	for _, e := range idx.entries {
		if strings.ToLower(e.Category) == want {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PopularityRank < out[j].PopularityRank
	})
	return out
}

// Popular returns the n most popular entries across all categories.
func (idx *Index) Popular(n int) []*Entry {
	out := make([]*Entry, len(idx.entries))
	copy(out, idx.entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PopularityRank < out[j].PopularityRank
	})
	if n < len(out) {
		out = out[:n]
	}
	return out
}

// Search returns entries whose key contains the normalised query, ranked
// exact match first, then prefix, then contains, with popularity as the
// tie-break. priceMax > 0 filters out entries above that average price.
func (idx *Index) Search(query string, priceMax float64, limit int) []*Entry {
	q := NormalizeKey(query)
	if q == "" {
		return nil
	}

	type ranked struct {
		entry *Entry
		tier  int
	}
	var matches []ranked
	for _, e := range idx.entries {
		var tier int
		switch {
		case e.NameKey == q:
			tier = 0
		case strings.HasPrefix(e.NameKey, q):
			tier = 1
		case strings.Contains(e.NameKey, q):
			tier = 2
		default:
			continue
		}
		if priceMax > 0 && e.AveragePrice > priceMax {
			continue
		}
		matches = append(matches, ranked{entry: e, tier: tier})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].tier != matches[j].tier {
			return matches[i].tier < matches[j].tier
		}
		return matches[i].entry.PopularityRank < matches[j].entry.PopularityRank
	})

	out := make([]*Entry, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.entry)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
