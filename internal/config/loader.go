package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults, and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	cfg.ApplyDefaults()
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if t := cfg.NLU.ConfidenceThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("nlu.confidence_threshold %.2f is out of range [0, 1]", t))
	}
	if t := cfg.Catalog.AutoCorrectThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("catalog.auto_correct_threshold %.2f is out of range [0, 1]", t))
	}
	if t := cfg.Catalog.SuggestionFloor; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("catalog.suggestion_floor %.2f is out of range [0, 1]", t))
	}
	if cfg.Catalog.SuggestionFloor > cfg.Catalog.AutoCorrectThreshold {
		errs = append(errs, fmt.Errorf("catalog.suggestion_floor %.2f must not exceed catalog.auto_correct_threshold %.2f",
			cfg.Catalog.SuggestionFloor, cfg.Catalog.AutoCorrectThreshold))
	}
	if t := cfg.List.FuzzyThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("list.fuzzy_threshold %.2f is out of range [0, 1]", t))
	}
	if t := cfg.Recommend.SimilarityFloor; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("recommend.similarity_floor %.2f is out of range [0, 1]", t))
	}
	if cfg.NLU.FallbackTimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("nlu.fallback_timeout_ms must not be negative"))
	}

	// Soft warnings: the server still runs without the external collaborators,
	// it just degrades to fast-path-only interpretation.
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("providers.llm is not configured; low-confidence commands will use the fast-path result")
	}
	if cfg.Providers.STT.Name == "" {
		slog.Warn("providers.stt is not configured; the transcribe endpoints will return 503")
	}
	if cfg.Storage.PostgresDSN == "" {
		slog.Warn("storage.postgres_dsn is empty; lists and purchase history are kept in memory only")
	}

	return errors.Join(errs...)
}
