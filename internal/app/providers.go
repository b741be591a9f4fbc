package app

import (
	"fmt"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/karlvoss/aisle/internal/config"
	"github.com/karlvoss/aisle/pkg/provider/llm"
	"github.com/karlvoss/aisle/pkg/provider/llm/anyllm"
	"github.com/karlvoss/aisle/pkg/provider/stt"
	oaistt "github.com/karlvoss/aisle/pkg/provider/stt/openai"
)

// groqAudioBaseURL is the OpenAI-compatible transcription endpoint Groq
// exposes for its hosted Whisper models.
const groqAudioBaseURL = "https://api.groq.com/openai/v1"

// buildLLM constructs the fallback LLM provider named by entry. All backends
// go through the any-llm adapter; API key and base URL are optional, the
// library falls back to the provider's environment variable.
func buildLLM(entry config.ProviderEntry) (llm.Provider, error) {
	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return anyllm.New(entry.Name, entry.Model, opts...)
}

// buildSTT constructs the transcription provider named by entry.
//
// "openai" talks to the OpenAI audio API directly; "groq" reuses the same
// client against Groq's OpenAI-compatible endpoint, which hosts the faster
// whisper-large-v3 variants.
func buildSTT(entry config.ProviderEntry) (stt.Provider, error) {
	switch entry.Name {
	case "openai":
		var opts []oaistt.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaistt.WithBaseURL(entry.BaseURL))
		}
		return oaistt.New(entry.APIKey, entry.Model, opts...)
	case "groq":
		baseURL := entry.BaseURL
		if baseURL == "" {
			baseURL = groqAudioBaseURL
		}
		model := entry.Model
		if model == "" {
			model = "whisper-large-v3-turbo"
		}
		return oaistt.New(entry.APIKey, model, oaistt.WithBaseURL(baseURL))
	default:
		return nil, fmt.Errorf("app: unsupported stt provider %q; supported: openai, groq", entry.Name)
	}
}
