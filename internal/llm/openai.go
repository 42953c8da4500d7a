package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/satyashield/satyashield/internal/config"
	openai "github.com/sashabaranov/go-openai"
)

const groqBaseURL = "https://api.groq.com/openai/v1"

// ChatClient is the subset of the OpenAI client the provider uses.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// OpenAIProvider implements Provider for OpenAI and any OpenAI-compatible API such as Groq.
type OpenAIProvider struct {
	client ChatClient
	name   string
	model  string
}

// NewOpenAIProvider creates a new OpenAI or Groq provider.
func NewOpenAIProvider(cfg config.ProviderConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", cfg.Provider)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	model := cfg.Model
	switch {
	case cfg.BaseURL != "":
		clientCfg.BaseURL = cfg.BaseURL
	case cfg.Provider == "groq":
		clientCfg.BaseURL = groqBaseURL
	}
	if model == "" {
		model = "gpt-4o-mini"
		if cfg.Provider == "groq" {
			model = "llama-3.1-8b-instant"
		}
	}

	name := cfg.Provider
	if name == "" {
		name = "openai"
	}
	return NewOpenAIProviderWithClient(openai.NewClientWithConfig(clientCfg), name, model), nil
}

// NewOpenAIProviderWithClient wraps an existing chat client.
func NewOpenAIProviderWithClient(client ChatClient, name, model string) *OpenAIProvider {
	return &OpenAIProvider{client: client, name: name, model: model}
}

func (p *OpenAIProvider) Name() string  { return p.name }
func (p *OpenAIProvider) Model() string { return p.model }

// Complete sends a chat completion with an optional system message.
func (p *OpenAIProvider) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   maxTokensOr(req.MaxTokens),
		Temperature: float32(req.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("%s completion failed: %w", p.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s returned no choices: %w", p.name, ErrEmptyCompletion)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("%s: %w", p.name, ErrEmptyCompletion)
	}
	return text, nil
}
