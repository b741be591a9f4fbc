package nlu

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeFallback is a scripted Fallback for router tests.
type fakeFallback struct {
	mu        sync.Mutex
	cmd       ParsedCommand
	err       error
	available bool
	calls     int
}

func (f *fakeFallback) Parse(ctx context.Context, text string) (ParsedCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.cmd, f.err
}

func (f *fakeFallback) Available() bool { return f.available }

func (f *fakeFallback) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestRouter(t *testing.T, fb Fallback) *Router {
	t.Helper()
	return NewRouter(testExtractor(t), fb, RouterConfig{
		ConfidenceThreshold: 0.85,
		FallbackTimeout:     100 * time.Millisecond,
	}, nil, nil)
}

func TestInterpretHighConfidenceSkipsFallback(t *testing.T) {
	t.Parallel()

	fb := &fakeFallback{available: true}
	r := newTestRouter(t, fb)

	got := r.Interpret(context.Background(), "add 2 bananas")
	if got.Command.Method != MethodFast {
		t.Errorf("Method = %q, want fast", got.Command.Method)
	}
	if fb.callCount() != 0 {
		t.Errorf("fallback invoked %d times for a confident fast parse, want 0", fb.callCount())
	}
	if _, ok := got.Latency["fast"]; !ok {
		t.Error("Latency missing the fast stage")
	}
}

func TestInterpretLowConfidenceUsesFallback(t *testing.T) {
	t.Parallel()

	fb := &fakeFallback{
		available: true,
		cmd: ParsedCommand{
			Intent:     IntentAddItem,
			Item:       "dragonfruit",
			Confidence: 0.90,
			Method:     MethodFallback,
		},
	}
	r := newTestRouter(t, fb)

	got := r.Interpret(context.Background(), "dragonfruit smoothie mix thing")
	if fb.callCount() != 1 {
		t.Fatalf("fallback invoked %d times, want 1", fb.callCount())
	}
	if got.Command.Method != MethodFallback {
		t.Errorf("Method = %q, want fallback", got.Command.Method)
	}
	if got.Command.Confidence != 0.90 {
		t.Errorf("Confidence = %.2f, want the fallback's own 0.90", got.Command.Confidence)
	}
}

func TestInterpretFallbackErrorDegradesToFast(t *testing.T) {
	t.Parallel()

	fb := &fakeFallback{available: true, err: errors.New("rate limited")}
	r := newTestRouter(t, fb)

	got := r.Interpret(context.Background(), "flibber the jabberwock")
	if fb.callCount() != 1 {
		t.Fatalf("fallback invoked %d times, want 1 (no retry)", fb.callCount())
	}
	if got.Command.Method != MethodFast {
		t.Errorf("Method = %q, want fast after fallback failure", got.Command.Method)
	}
	if got.Command.Confidence >= 0.85 {
		t.Errorf("Confidence = %.2f, expected the low fast-path score to survive", got.Command.Confidence)
	}
}

func TestInterpretWithoutFallback(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t, nil)
	got := r.Interpret(context.Background(), "flibber the jabberwock")
	if got.Command.Method != MethodFast {
		t.Errorf("Method = %q, want fast when no fallback is configured", got.Command.Method)
	}
}
