// Package llmextract implements the slow-path command extractor: it asks an
// LLM to parse the transcript into the same schema the fast extractor
// produces. Invoked only for transcripts the fast path scored below the
// confidence threshold, so latency and cost stay bounded to the ambiguous
// tail of traffic.
package llmextract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/karlvoss/aisle/internal/nlu"
	"github.com/karlvoss/aisle/pkg/provider/llm"
)

// fallbackConfidence is the fixed calibrated score assigned to successful LLM
// parses. The model does not self-report confidence, and measured accuracy on
// the low-confidence tail sits around this value.
const fallbackConfidence = 0.90

const systemPrompt = `You are a voice shopping assistant NLP parser.
Given a shopping voice command, extract structured information and return ONLY valid JSON.

Supported intents: add_item, remove_item, modify_item, check_item, uncheck_item, search_item, list_items, clear_list, get_suggestions

JSON schema (all fields required, use null if not found):
{
  "intent": "<intent>",
  "item": "<item name or null>",
  "quantity": <number or null>,
  "unit": "<unit string or null>",
  "category": "<grocery category or null>",
  "brand": "<brand name or null>",
  "price_max": <number or null>
}

Examples:
"add 2 bananas" -> {"intent":"add_item","item":"bananas","quantity":2,"unit":null,"category":"produce","brand":null,"price_max":null}
"remove milk from my list" -> {"intent":"remove_item","item":"milk","quantity":null,"unit":null,"category":null,"brand":null,"price_max":null}
"show my list" -> {"intent":"list_items","item":null,"quantity":null,"unit":null,"category":null,"brand":null,"price_max":null}
"clear my list" -> {"intent":"clear_list","item":null,"quantity":null,"unit":null,"category":null,"brand":null,"price_max":null}`

// ErrNoProvider is returned when the extractor was constructed without an LLM
// backend (e.g., no API key configured).
var ErrNoProvider = errors.New("llmextract: no llm provider configured")

// Extractor parses commands via an LLM provider. Safe for concurrent use.
type Extractor struct {
	provider llm.Provider
	logger   *slog.Logger
}

// New builds an Extractor over the given provider. provider may be nil, in
// which case every Parse call returns [ErrNoProvider] and the router keeps
// using fast-path results.
func New(provider llm.Provider, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{provider: provider, logger: logger}
}

// Available reports whether an LLM backend is configured.
func (e *Extractor) Available() bool { return e.provider != nil }

// wireCommand mirrors the JSON schema the prompt requests.
type wireCommand struct {
	Intent   string   `json:"intent"`
	Item     *string  `json:"item"`
	Quantity *float64 `json:"quantity"`
	Unit     *string  `json:"unit"`
	Category *string  `json:"category"`
	Brand    *string  `json:"brand"`
	PriceMax *float64 `json:"price_max"`
}

// Parse asks the LLM to interpret text and normalises the answer into a
// ParsedCommand. Any provider failure, malformed JSON, or unrecognised
// intent is returned as an error so the caller can degrade to the fast
// result.
func (e *Extractor) Parse(ctx context.Context, text string) (nlu.ParsedCommand, error) {
	if e.provider == nil {
		return nlu.ParsedCommand{}, ErrNoProvider
	}

	resp, err := e.provider.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Messages: []llm.Message{
			{Role: "user", Content: fmt.Sprintf("Parse this shopping command: %q", text)},
		},
		Temperature: 0,
		MaxTokens:   200,
	})
	if err != nil {
		return nlu.ParsedCommand{}, fmt.Errorf("llmextract: completion: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return nlu.ParsedCommand{}, errors.New("llmextract: empty completion")
	}

	var wire wireCommand
	if err := json.Unmarshal([]byte(extractJSON(resp.Content)), &wire); err != nil {
		return nlu.ParsedCommand{}, fmt.Errorf("llmextract: decode response: %w", err)
	}

	intent := nlu.Intent(wire.Intent)
	if !intent.IsValid() || intent == nlu.IntentUnknown {
		return nlu.ParsedCommand{}, fmt.Errorf("llmextract: unrecognised intent %q", wire.Intent)
	}

	cmd := nlu.ParsedCommand{
		Intent:     intent,
		Item:       deref(wire.Item),
		Unit:       deref(wire.Unit),
		Category:   deref(wire.Category),
		Brand:      deref(wire.Brand),
		Confidence: fallbackConfidence,
		Method:     nlu.MethodFallback,
	}
	if wire.Quantity != nil && *wire.Quantity > 0 {
		cmd.Quantity = *wire.Quantity
	}
	if wire.PriceMax != nil && *wire.PriceMax > 0 {
		cmd.PriceMax = *wire.PriceMax
	}

	e.logger.Debug("fallback extraction",
		"text", text,
		"intent", string(cmd.Intent),
		"item", cmd.Item)
	return cmd, nil
}

// extractJSON strips markdown fences the model sometimes wraps around its
// answer and returns the outermost {...} block.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
