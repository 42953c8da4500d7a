// Package llm provides a pluggable interface for LLM providers and the
// orchestrator that applies retry and fallback policy on top of them.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/satyashield/satyashield/internal/config"
)

var (
	// ErrExhausted is returned when every attempt against a provider failed.
	ErrExhausted = errors.New("llm: attempts exhausted")

	// ErrEmptyCompletion is returned when a provider answered with no text.
	ErrEmptyCompletion = errors.New("llm: empty completion")

	// ErrNoProvider is returned when the requested tier is not configured.
	ErrNoProvider = errors.New("llm: provider not configured")
)

// Request is a single completion request.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete returns the generated text for the request.
	Complete(ctx context.Context, req Request) (string, error)

	// Name returns the provider name.
	Name() string

	// Model returns the model the provider sends requests to.
	Model() string
}

// NewProvider creates an LLM provider from configuration.
func NewProvider(ctx context.Context, cfg config.ProviderConfig) (Provider, error) {
	switch cfg.Provider {
	case "openai", "groq":
		return NewOpenAIProvider(cfg)
	case "anthropic":
		return NewAnthropicProvider(cfg)
	case "gemini":
		return NewGeminiProvider(ctx, cfg)
	case "ollama":
		return NewOllamaProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}

func maxTokensOr(n int) int {
	if n <= 0 {
		return 512
	}
	return n
}
