// Package stt defines the Provider interface for Speech-to-Text backends.
//
// An STT provider wraps a transcription service (e.g., the OpenAI or Groq
// Whisper APIs) and exposes a uniform batch interface: one complete audio
// clip in, one transcript out. Voice shopping commands are short utterances,
// so there is no streaming session management here; the caller records the
// clip, posts it, and receives text.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly.
package stt

import "context"

// Result is the transcription of one audio clip.
type Result struct {
	// Transcript is the transcribed speech content.
	Transcript string

	// Language is the detected (or requested) language tag, e.g. "en".
	// Empty when the provider does not report it.
	Language string

	// Confidence is the overall confidence score (0.0–1.0). Zero when the
	// provider does not report confidence.
	Confidence float64
}

// Provider is the abstraction over any batch STT backend.
type Provider interface {
	// Transcribe converts a complete audio clip into text. mimeType describes
	// the clip's encoding (e.g., "audio/webm", "audio/wav"); providers that
	// cannot handle the format must return an error rather than guessing.
	Transcribe(ctx context.Context, audio []byte, mimeType string) (*Result, error)
}
