// Package resilience guards the optional LLM collaborators. The voice
// pipeline treats the LLM as best-effort everywhere it appears; a breaker in
// front of it turns a struggling provider into fast local failures instead
// of a timeout on every low-confidence utterance.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/karlvoss/aisle/pkg/provider/llm"
)

// ErrOpen is returned without invoking the guarded call while the breaker is
// cooling down.
var ErrOpen = errors.New("breaker open")

// Breaker is a three-state circuit breaker (closed, open, half-open).
// After Threshold consecutive failures it opens for Cooldown; the first call
// after the cooldown runs as a probe, and its outcome decides whether the
// breaker closes again or re-opens. Safe for concurrent use.
type Breaker struct {
	name      string
	threshold int
	cooldown  time.Duration
	logger    *slog.Logger

	mu       sync.Mutex
	failures int
	openedAt time.Time
	open     bool
	probing  bool
}

// NewBreaker builds a breaker. threshold <= 0 falls back to 5 and
// cooldown <= 0 to 30s.
func NewBreaker(name string, threshold int, cooldown time.Duration, logger *slog.Logger) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Breaker{name: name, threshold: threshold, cooldown: cooldown, logger: logger}
}

// Do runs fn unless the breaker is open, in which case it returns [ErrOpen]
// immediately. The first call after the cooldown elapses is let through as a
// probe even though the breaker is still open.
func (b *Breaker) Do(fn func() error) error {
	if err := b.acquire(); err != nil {
		return err
	}
	err := fn()
	b.settle(err)
	return err
}

func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.open {
		return nil
	}
	if time.Since(b.openedAt) < b.cooldown || b.probing {
		return ErrOpen
	}
	b.probing = true
	b.logger.Info("breaker probing", "name", b.name)
	return nil
}

func (b *Breaker) settle(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	wasProbe := b.probing
	b.probing = false

	if err == nil {
		if b.open {
			b.logger.Info("breaker closed", "name", b.name)
		}
		b.open = false
		b.failures = 0
		return
	}

	b.failures++
	if wasProbe || (!b.open && b.failures >= b.threshold) {
		b.open = true
		b.openedAt = time.Now()
		b.logger.Warn("breaker opened", "name", b.name, "failures", b.failures)
	}
}

// Open reports whether calls would currently be rejected.
func (b *Breaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.open && (time.Since(b.openedAt) < b.cooldown || b.probing)
}

var _ llm.Provider = (*GuardedProvider)(nil)

// GuardedProvider wraps an [llm.Provider] with a [Breaker]. Both LLM call
// sites degrade gracefully on error, so a rejected call simply means the
// caller falls back to its local result a few milliseconds sooner.
type GuardedProvider struct {
	inner   llm.Provider
	breaker *Breaker
}

// Guard wraps provider. A nil provider yields a nil *GuardedProvider, which
// callers treat like any other missing provider.
func Guard(provider llm.Provider, breaker *Breaker) *GuardedProvider {
	if provider == nil {
		return nil
	}
	return &GuardedProvider{inner: provider, breaker: breaker}
}

// Complete implements [llm.Provider].
func (g *GuardedProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	var resp *llm.CompletionResponse
	err := g.breaker.Do(func() error {
		var err error
		resp, err = g.inner.Complete(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
