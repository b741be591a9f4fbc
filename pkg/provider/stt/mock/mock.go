// Package mock provides a test double for the stt.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/karlvoss/aisle/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Audio is the clip passed to Transcribe.
	Audio []byte
	// MimeType is the content type passed to Transcribe.
	MimeType string
}

// Provider is a mock implementation of stt.Provider.
// Zero values cause Transcribe to return nil, nil. Set Err to inject errors.
type Provider struct {
	mu sync.Mutex

	// Result is returned by Transcribe. May be nil.
	Result *stt.Result

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// TranscribeCalls records every invocation of Transcribe in order.
	TranscribeCalls []TranscribeCall
}

// Transcribe records the call and returns Result, Err.
func (p *Provider) Transcribe(ctx context.Context, audio []byte, mimeType string) (*stt.Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	clip := make([]byte, len(audio))
	copy(clip, audio)
	p.TranscribeCalls = append(p.TranscribeCalls, TranscribeCall{Ctx: ctx, Audio: clip, MimeType: mimeType})
	return p.Result, p.Err
}

// Calls returns a snapshot of all recorded invocations. Thread-safe.
func (p *Provider) Calls() []TranscribeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]TranscribeCall, len(p.TranscribeCalls))
	copy(out, p.TranscribeCalls)
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.TranscribeCalls = nil
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
