package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/karlvoss/aisle/pkg/provider/llm"
	llmmock "github.com/karlvoss/aisle/pkg/provider/llm/mock"
)

var errBoom = errors.New("boom")

func TestBreakerOpensAfterThreshold(t *testing.T) {
	t.Parallel()
	b := NewBreaker("test", 3, time.Minute, nil)

	for i := 0; i < 3; i++ {
		if err := b.Do(func() error { return errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: err = %v, want the call's own error", i, err)
		}
	}
	if !b.Open() {
		t.Fatal("breaker still closed after hitting the threshold")
	}
	if err := b.Do(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Errorf("err = %v, want ErrOpen without invoking fn", err)
	}
}

func TestBreakerSuccessResetsCount(t *testing.T) {
	t.Parallel()
	b := NewBreaker("test", 3, time.Minute, nil)

	b.Do(func() error { return errBoom })
	b.Do(func() error { return errBoom })
	b.Do(func() error { return nil })
	b.Do(func() error { return errBoom })
	b.Do(func() error { return errBoom })

	if b.Open() {
		t.Error("breaker opened despite the interleaved success resetting the count")
	}
}

func TestBreakerProbeAfterCooldown(t *testing.T) {
	t.Parallel()
	b := NewBreaker("test", 1, 10*time.Millisecond, nil)

	b.Do(func() error { return errBoom })
	if !b.Open() {
		t.Fatal("breaker should be open")
	}

	time.Sleep(20 * time.Millisecond)

	// Failed probe re-opens for another full cooldown.
	if err := b.Do(func() error { return errBoom }); !errors.Is(err, errBoom) {
		t.Fatalf("probe err = %v, want the call's own error", err)
	}
	if err := b.Do(func() error { return nil }); !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen right after a failed probe", err)
	}

	time.Sleep(20 * time.Millisecond)

	// Successful probe closes.
	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("probe err = %v, want nil", err)
	}
	if b.Open() {
		t.Error("breaker still open after a successful probe")
	}
}

func TestGuardedProviderShortCircuits(t *testing.T) {
	t.Parallel()
	mock := &llmmock.Provider{CompleteErr: errBoom}
	g := Guard(mock, NewBreaker("llm", 2, time.Minute, nil))
	ctx := context.Background()

	g.Complete(ctx, llm.CompletionRequest{})
	g.Complete(ctx, llm.CompletionRequest{})

	if _, err := g.Complete(ctx, llm.CompletionRequest{}); !errors.Is(err, ErrOpen) {
		t.Fatalf("err = %v, want ErrOpen once the breaker trips", err)
	}
	if calls := mock.Calls(); len(calls) != 2 {
		t.Errorf("provider called %d times, want the third call rejected locally", len(calls))
	}
}

func TestGuardNilProvider(t *testing.T) {
	t.Parallel()
	if g := Guard(nil, NewBreaker("llm", 2, time.Minute, nil)); g != nil {
		t.Error("Guard(nil) must return nil so availability checks keep working")
	}
}
