package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/satyashield/satyashield/internal/config"
	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"bare", `{"label":"real"}`, `{"label":"real"}`, true},
		{"prose and fences", "Sure!\n```json\n{\"label\":\"fake\",\"confidence\":0.9}\n```\nDone.", `{"label":"fake","confidence":0.9}`, true},
		{"nested", `x {"a":{"b":1},"c":2} y {"d":3}`, `{"a":{"b":1},"c":2}`, true},
		{"braces in strings", `{"explanation":"uses } and { \" inside"}`, `{"explanation":"uses } and { \" inside"}`, true},
		{"no object", "I cannot answer that.", "", false},
		{"unbalanced", `{"label":"real"`, "", false},
		{"first object invalid", `{label: real} {"label":"real"}`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.JSONEq(t, tt.want, string(got))
				assert.True(t, json.Valid(got))
			}
		})
	}
}

type scriptedProvider struct {
	replies []string
	errs    []error
	calls   int
	reqs    []Request
}

func (s *scriptedProvider) Name() string  { return "scripted" }
func (s *scriptedProvider) Model() string { return "test-model" }

func (s *scriptedProvider) Complete(ctx context.Context, req Request) (string, error) {
	i := s.calls
	s.calls++
	s.reqs = append(s.reqs, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return "", s.errs[i]
	}
	if i < len(s.replies) {
		return s.replies[i], nil
	}
	return "", ErrEmptyCompletion
}

func newTestOrchestrator(primary, fallback Provider) (*Orchestrator, *[]time.Duration) {
	o := NewOrchestrator(primary, fallback, DefaultOptions())
	var slept []time.Duration
	o.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return o, &slept
}

func TestChatCompleteRetriesWithLinearBackoff(t *testing.T) {
	boom := errors.New("503")
	p := &scriptedProvider{errs: []error{boom, boom}, replies: []string{"", "", "ok"}}
	o, slept := newTestOrchestrator(p, nil)

	text, err := o.ChatComplete(context.Background(), "sys", "prompt", 100)
	require.NoError(t, err)
	assert.Equal(t, "ok", text)
	assert.Equal(t, 3, p.calls)
	assert.Equal(t, []time.Duration{200 * time.Millisecond, 400 * time.Millisecond}, *slept)
	assert.Equal(t, "sys", p.reqs[0].System)
	assert.Equal(t, 100, p.reqs[0].MaxTokens)
}

func TestChatCompleteExhausted(t *testing.T) {
	boom := errors.New("rate limited")
	p := &scriptedProvider{errs: []error{boom, boom, boom, boom}}
	o, slept := newTestOrchestrator(p, nil)

	_, err := o.ChatComplete(context.Background(), "", "prompt", 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, p.calls)
	assert.Len(t, *slept, 2)
}

func TestChatCompleteNoPrimary(t *testing.T) {
	o, _ := newTestOrchestrator(nil, nil)
	_, err := o.ChatComplete(context.Background(), "", "p", 10)
	assert.ErrorIs(t, err, ErrNoProvider)
}

func TestGenerateSingleAttempt(t *testing.T) {
	fb := &scriptedProvider{errs: []error{errors.New("down")}}
	o, _ := newTestOrchestrator(nil, fb)

	_, err := o.Generate(context.Background(), "p", 10)
	require.Error(t, err)
	assert.Equal(t, 1, fb.calls)
}

type slowProvider struct{}

func (slowProvider) Name() string  { return "slow" }
func (slowProvider) Model() string { return "slow" }
func (slowProvider) Complete(ctx context.Context, _ Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestGenerateTimeout(t *testing.T) {
	opts := DefaultOptions()
	opts.FallbackTimeout = 20 * time.Millisecond
	o := NewOrchestrator(nil, slowProvider{}, opts)

	start := time.Now()
	_, err := o.Generate(context.Background(), "p", 10)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 2*time.Second)
}

type fakeChat struct {
	got  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (f *fakeChat) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.got = req
	return f.resp, f.err
}

func TestOpenAIProvider(t *testing.T) {
	fc := &fakeChat{resp: openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Content: "  summary text  "}},
	}}}
	p := NewOpenAIProviderWithClient(fc, "groq", "llama-3.1-8b-instant")

	text, err := p.Complete(context.Background(), Request{System: "s", Prompt: "u", MaxTokens: 300})
	require.NoError(t, err)
	assert.Equal(t, "summary text", text)
	require.Len(t, fc.got.Messages, 2)
	assert.Equal(t, openai.ChatMessageRoleSystem, fc.got.Messages[0].Role)
	assert.Equal(t, 300, fc.got.MaxTokens)
	assert.Equal(t, "llama-3.1-8b-instant", fc.got.Model)

	fc.resp = openai.ChatCompletionResponse{}
	_, err = p.Complete(context.Background(), Request{Prompt: "u"})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestOllamaProvider(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		var body ollamaGenerateRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.False(t, body.Stream)
		assert.Equal(t, 250, body.Options.NumPredict)
		w.Write([]byte(`{"response":" {\"label\":\"unsure\"} ","done":true}`))
	}))
	defer srv.Close()

	p, err := NewOllamaProvider(config.ProviderConfig{Provider: "ollama", BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	text, err := p.Complete(context.Background(), Request{Prompt: "p", MaxTokens: 250})
	require.NoError(t, err)
	assert.Equal(t, `{"label":"unsure"}`, text)
}

func TestAnthropicProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("x-api-key"))
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"bad model"}}`))
	}))
	defer srv.Close()

	p, err := NewAnthropicProvider(config.ProviderConfig{APIKey: "k", BaseURL: srv.URL})
	require.NoError(t, err)
	_, err = p.Complete(context.Background(), Request{Prompt: "p"})
	assert.ErrorContains(t, err, "bad model")
}

func TestNewProvider(t *testing.T) {
	_, err := NewProvider(context.Background(), config.ProviderConfig{Provider: "groq"})
	assert.ErrorContains(t, err, "API key is required")

	p, err := NewProvider(context.Background(), config.ProviderConfig{Provider: "groq", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "groq", p.Name())
	assert.Equal(t, "llama-3.1-8b-instant", p.Model())

	_, err = NewProvider(context.Background(), config.ProviderConfig{Provider: "mystery"})
	assert.Error(t, err)
}
