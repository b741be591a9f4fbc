package nlu

import (
	"context"
	"log/slog"
	"time"

	"github.com/karlvoss/aisle/internal/observe"
)

// Fallback is the slow-path extractor contract. Implemented by
// llmextract.Extractor; tests substitute their own.
type Fallback interface {
	// Parse interprets text via the external understanding service. Errors
	// (network, timeout, malformed answer) make the router keep the fast
	// result.
	Parse(ctx context.Context, text string) (ParsedCommand, error)

	// Available reports whether a backend is configured at all.
	Available() bool
}

// RouterConfig tunes the hybrid routing behaviour.
type RouterConfig struct {
	// ConfidenceThreshold gates the fallback: fast results at or above it
	// are returned directly. Default: 0.85.
	ConfidenceThreshold float64

	// FallbackTimeout bounds a single fallback call. Default: 3s.
	FallbackTimeout time.Duration
}

// Interpretation is the routing result for one transcript.
type Interpretation struct {
	// Command is the adopted parse.
	Command ParsedCommand

	// Preprocessed is the normalised transcript both extractors saw.
	Preprocessed string

	// Latency holds per-stage durations keyed "fast" and (when invoked)
	// "fallback".
	Latency map[string]time.Duration
}

// Router chooses between the fast and fallback extraction paths.
// Safe for concurrent use.
type Router struct {
	fast      *Extractor
	fallback  Fallback
	threshold float64
	timeout   time.Duration
	metrics   *observe.Metrics
	logger    *slog.Logger
}

// NewRouter builds a Router. fallback may be nil when no LLM is configured;
// metrics may be nil in tests.
func NewRouter(fast *Extractor, fallback Fallback, cfg RouterConfig, metrics *observe.Metrics, logger *slog.Logger) *Router {
	if cfg.ConfidenceThreshold <= 0 || cfg.ConfidenceThreshold > 1 {
		cfg.ConfidenceThreshold = 0.85
	}
	if cfg.FallbackTimeout <= 0 {
		cfg.FallbackTimeout = 3 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		fast:      fast,
		fallback:  fallback,
		threshold: cfg.ConfidenceThreshold,
		timeout:   cfg.FallbackTimeout,
		metrics:   metrics,
		logger:    logger,
	}
}

// Interpret turns a raw transcript into a ParsedCommand. It never fails: the
// worst case is a low-confidence fast-path result after a fallback error.
// The fallback is invoked at most once, with a bounded timeout, and only when
// the fast confidence is below the threshold; the caller re-issues the
// command if it wants a retry.
func (r *Router) Interpret(ctx context.Context, transcript string) Interpretation {
	latency := make(map[string]time.Duration, 2)

	pre := Preprocess(transcript)

	start := time.Now()
	cmd := r.fast.Parse(pre)
	latency["fast"] = time.Since(start)
	if r.metrics != nil {
		r.metrics.NLUFastDuration.Record(ctx, latency["fast"].Seconds())
	}

	if cmd.Confidence < r.threshold && r.fallback != nil && r.fallback.Available() {
		r.logger.Info("confidence below threshold, invoking fallback",
			"confidence", cmd.Confidence,
			"threshold", r.threshold)

		fbCtx, cancel := context.WithTimeout(ctx, r.timeout)
		fbStart := time.Now()
		fbCmd, err := r.fallback.Parse(fbCtx, pre.Text)
		cancel()
		latency["fallback"] = time.Since(fbStart)

		if err != nil {
			// Graceful degradation: the fast result stands regardless of
			// its confidence.
			r.logger.Warn("fallback extraction failed, using fast result", "error", err)
			if r.metrics != nil {
				r.metrics.RecordFallback(ctx, "degraded", latency["fallback"])
				r.metrics.RecordProviderError(ctx, "llm", "fallback_parse")
			}
		} else {
			cmd = fbCmd
			if r.metrics != nil {
				r.metrics.RecordFallback(ctx, "used", latency["fallback"])
			}
		}
	}

	if r.metrics != nil {
		r.metrics.RecordCommand(ctx, string(cmd.Intent), string(cmd.Method))
	}

	return Interpretation{
		Command:      cmd,
		Preprocessed: pre.Text,
		Latency:      latency,
	}
}
