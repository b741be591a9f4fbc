package config

import (
	"strings"
	"testing"
)

func TestLoadFromReaderDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q, want the default :8080", cfg.Server.ListenAddr)
	}
	if cfg.NLU.ConfidenceThreshold != 0.85 {
		t.Errorf("confidence_threshold = %.2f, want 0.85", cfg.NLU.ConfidenceThreshold)
	}
	if cfg.List.FuzzyThreshold != 0.70 {
		t.Errorf("fuzzy_threshold = %.2f, want 0.70", cfg.List.FuzzyThreshold)
	}
	if cfg.Recommend.CoPurchaseLimit != 6 || cfg.Recommend.SubstitutesLimit != 4 {
		t.Errorf("recommend limits = %d/%d, want 6/4",
			cfg.Recommend.CoPurchaseLimit, cfg.Recommend.SubstitutesLimit)
	}
}

func TestLoadFromReaderOverrides(t *testing.T) {
	t.Parallel()

	const yml = `
server:
  listen_addr: ":9000"
  log_level: debug
nlu:
  confidence_threshold: 0.9
providers:
  llm:
    name: groq
    model: llama-3.1-8b-instant
`
	cfg, err := LoadFromReader(strings.NewReader(yml))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != ":9000" || cfg.NLU.ConfidenceThreshold != 0.9 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Providers.LLM.Name != "groq" {
		t.Errorf("llm provider = %q, want groq", cfg.Providers.LLM.Name)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	if _, err := LoadFromReader(strings.NewReader("serve:\n  port: 1\n")); err == nil {
		t.Error("expected an error for a misspelled top-level key")
	}
}

func TestValidateRanges(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yml  string
	}{
		{"bad log level", "server:\n  log_level: loud\n"},
		{"threshold above 1", "nlu:\n  confidence_threshold: 1.5\n"},
		{"floor above auto-correct", "catalog:\n  auto_correct_threshold: 0.6\n  suggestion_floor: 0.9\n"},
		{"negative timeout", "nlu:\n  fallback_timeout_ms: -1\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := LoadFromReader(strings.NewReader(tc.yml)); err == nil {
				t.Errorf("config %q validated, want an error", tc.yml)
			}
		})
	}
}
