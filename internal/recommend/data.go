package recommend

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/karlvoss/aisle/internal/catalog"
)

// WeightedItem is one candidate in a rule artifact: a display name plus the
// strength of the association that produced it.
type WeightedItem struct {
	Item   string  `json:"item"`
	Weight float64 `json:"weight"`
}

// RuleSet maps a normalized anchor key to its weighted candidates.
// The JSON artifacts key by display name; loading normalizes the keys so
// lookups match the catalog's name keys.
type RuleSet map[string][]WeightedItem

// LoadRules reads a JSON object of the form {"anchor": [{"item": ..,
// "weight": ..}, ..]} and normalizes the anchor keys.
func LoadRules(path string) (RuleSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("recommend: open %q: %w", path, err)
	}
	defer f.Close()

	var raw map[string][]WeightedItem
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return nil, fmt.Errorf("recommend: parse %q: %w", path, err)
	}

	rules := make(RuleSet, len(raw))
	for anchor, items := range raw {
		rules[catalog.NormalizeKey(anchor)] = items
	}
	return rules, nil
}

// SeasonalTable maps a calendar month to the items in season that month.
type SeasonalTable map[time.Month][]WeightedItem

// LoadSeasonal reads a JSON object keyed by month number ("1".."12").
func LoadSeasonal(path string) (SeasonalTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("recommend: open %q: %w", path, err)
	}
	defer f.Close()

	var raw map[string][]WeightedItem
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return nil, fmt.Errorf("recommend: parse %q: %w", path, err)
	}

	table := make(SeasonalTable, len(raw))
	for key, items := range raw {
		n, err := strconv.Atoi(key)
		if err != nil || n < 1 || n > 12 {
			return nil, fmt.Errorf("recommend: %q: invalid month key %q", path, key)
		}
		table[time.Month(n)] = items
	}
	return table, nil
}
