package recommend

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/karlvoss/aisle/internal/catalog"
	"github.com/karlvoss/aisle/pkg/provider/llm"
)

const coldStartPrompt = `You are a grocery shopping assistant. Suggest common grocery staples for a new user with no shopping history.

Respond with ONLY a JSON array of 6 item names, for example:
["Milk", "Eggs", "Bread", "Bananas", "Chicken Breast", "Rice"]

No explanations, no markdown fences.`

// ColdStart asks the LLM for starter suggestions when every rule-based
// source comes back empty. Strictly best-effort: the call runs under its own
// timeout and any failure simply yields nothing, the request never blocks or
// errors on it.
type ColdStart struct {
	provider  llm.Provider
	validator *catalog.Validator
	timeout   time.Duration
	limit     int
	logger    *slog.Logger
}

// NewColdStart builds a ColdStart. provider may be nil, which disables it.
// timeout <= 0 falls back to 2s, limit <= 0 to 6.
func NewColdStart(provider llm.Provider, validator *catalog.Validator, timeout time.Duration, limit int, logger *slog.Logger) *ColdStart {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	if limit <= 0 {
		limit = 6
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ColdStart{provider: provider, validator: validator, timeout: timeout, limit: limit, logger: logger}
}

// Available reports whether a provider is configured.
func (c *ColdStart) Available() bool { return c != nil && c.provider != nil }

// Suggest returns catalog-resolved starter items, or nil when the provider
// is missing, slow, or returns something unusable.
func (c *ColdStart) Suggest(ctx context.Context) []Suggestion {
	if !c.Available() {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: coldStartPrompt,
		Messages:     []llm.Message{{Role: "user", Content: "Suggest starter grocery items."}},
		Temperature:  0.7,
		MaxTokens:    150,
	})
	if err != nil {
		c.logger.Warn("cold start suggestion failed", "error", err)
		return nil
	}

	names := parseNameArray(resp.Content)
	if len(names) == 0 {
		c.logger.Warn("cold start returned no usable items", "content", resp.Content)
		return nil
	}

	seen := make(map[string]bool)
	out := make([]Suggestion, 0, c.limit)
	for _, name := range names {
		if len(out) == c.limit {
			break
		}
		entry, score := c.validator.FindBest(name)
		if entry == nil || score < 0.80 {
			continue
		}
		if seen[entry.NameKey] {
			continue
		}
		seen[entry.NameKey] = true
		out = append(out, Suggestion{
			ItemName: entry.Name,
			NameKey:  entry.NameKey,
			Category: entry.Category,
			Score:    score,
			Reason:   "Popular staple to get you started",
			Source:   "cold_start",
		})
	}
	return out
}

// parseNameArray extracts a JSON string array from content, tolerating
// markdown fences around it.
func parseNameArray(content string) []string {
	start := strings.Index(content, "[")
	end := strings.LastIndex(content, "]")
	if start < 0 || end <= start {
		return nil
	}
	var names []string
	if err := json.Unmarshal([]byte(content[start:end+1]), &names); err != nil {
		return nil
	}
	cleaned := names[:0]
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n != "" {
			cleaned = append(cleaned, n)
		}
	}
	return cleaned
}
