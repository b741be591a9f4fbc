package llmextract

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/karlvoss/aisle/internal/nlu"
	"github.com/karlvoss/aisle/pkg/provider/llm"
	llmmock "github.com/karlvoss/aisle/pkg/provider/llm/mock"
)

func TestParseValidResponse(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: `{"intent":"add_item","item":"oat milk","quantity":2,"unit":"cartons","category":"dairy","brand":null,"price_max":null}`,
		},
	}
	e := New(p, nil)

	cmd, err := e.Parse(context.Background(), "add 2 cartons of that oat stuff")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd.Intent != nlu.IntentAddItem || cmd.Item != "oat milk" {
		t.Errorf("got intent=%q item=%q, want add_item/oat milk", cmd.Intent, cmd.Item)
	}
	if cmd.Quantity != 2 || cmd.Unit != "cartons" || cmd.Category != "dairy" {
		t.Errorf("slots = %+v, want quantity 2, cartons, dairy", cmd)
	}
	if cmd.Confidence != 0.90 {
		t.Errorf("Confidence = %.2f, want the calibrated 0.90", cmd.Confidence)
	}
	if cmd.Method != nlu.MethodFallback {
		t.Errorf("Method = %q, want fallback", cmd.Method)
	}

	calls := p.Calls()
	if len(calls) != 1 {
		t.Fatalf("Complete called %d times, want 1", len(calls))
	}
	if !strings.Contains(calls[0].Req.SystemPrompt, "Supported intents") {
		t.Error("system prompt missing the intent vocabulary")
	}
}

func TestParseFencedResponse(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{
		CompleteResponse: &llm.CompletionResponse{
			Content: "```json\n{\"intent\":\"remove_item\",\"item\":\"pasta\",\"quantity\":null,\"unit\":null,\"category\":null,\"brand\":null,\"price_max\":null}\n```",
		},
	}
	cmd, err := New(p, nil).Parse(context.Background(), "lose the pasta")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cmd.Intent != nlu.IntentRemoveItem || cmd.Item != "pasta" {
		t.Errorf("got intent=%q item=%q, want remove_item/pasta", cmd.Intent, cmd.Item)
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		p    *llmmock.Provider
	}{
		{"provider error", &llmmock.Provider{CompleteErr: errors.New("rate limited")}},
		{"empty content", &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "  "}}},
		{"malformed json", &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "sure, adding milk!"}}},
		{"unknown intent", &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{
			Content: `{"intent":"order_pizza","item":null,"quantity":null,"unit":null,"category":null,"brand":null,"price_max":null}`,
		}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tc.p, nil).Parse(context.Background(), "whatever"); err == nil {
				t.Error("expected an error, got nil")
			}
		})
	}
}

func TestParseWithoutProvider(t *testing.T) {
	t.Parallel()

	e := New(nil, nil)
	if e.Available() {
		t.Error("Available() = true without a provider")
	}
	if _, err := e.Parse(context.Background(), "add milk"); !errors.Is(err, ErrNoProvider) {
		t.Errorf("err = %v, want ErrNoProvider", err)
	}
}
