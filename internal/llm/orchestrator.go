package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Options configures retry and timeout policy.
type Options struct {
	MaxAttempts     int
	Backoff         time.Duration
	PrimaryTimeout  time.Duration
	FallbackTimeout time.Duration
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:     3,
		Backoff:         200 * time.Millisecond,
		PrimaryTimeout:  20 * time.Second,
		FallbackTimeout: 4 * time.Second,
	}
}

// Orchestrator calls the primary provider with retries and the fallback
// provider once. Either provider may be nil.
type Orchestrator struct {
	primary  Provider
	fallback Provider
	opts     Options
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(primary, fallback Provider, opts Options) *Orchestrator {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	return &Orchestrator{primary: primary, fallback: fallback, opts: opts, sleep: sleepCtx}
}

// HasPrimary reports whether a primary provider is configured.
func (o *Orchestrator) HasPrimary() bool { return o.primary != nil }

// HasFallback reports whether a fallback provider is configured.
func (o *Orchestrator) HasFallback() bool { return o.fallback != nil }

// ChatComplete asks the primary provider, retrying with linear backoff.
// The error wraps ErrExhausted and the last provider error.
func (o *Orchestrator) ChatComplete(ctx context.Context, system, prompt string, maxTokens int) (string, error) {
	if o.primary == nil {
		return "", ErrNoProvider
	}

	req := Request{System: system, Prompt: prompt, MaxTokens: maxTokens, Temperature: 0.2}
	var lastErr error
	for attempt := 1; attempt <= o.opts.MaxAttempts; attempt++ {
		text, err := o.once(ctx, o.primary, req, o.opts.PrimaryTimeout)
		if err == nil {
			return text, nil
		}
		lastErr = err
		log.Warn().Err(err).Str("provider", o.primary.Name()).Int("attempt", attempt).Msg("Primary LLM call failed")

		if attempt < o.opts.MaxAttempts {
			if err := o.sleep(ctx, o.opts.Backoff*time.Duration(attempt)); err != nil {
				return "", fmt.Errorf("%w: %w", ErrExhausted, err)
			}
		}
	}
	return "", fmt.Errorf("%w after %d attempts: %w", ErrExhausted, o.opts.MaxAttempts, lastErr)
}

// Generate asks the fallback provider once under the fallback timeout.
func (o *Orchestrator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if o.fallback == nil {
		return "", ErrNoProvider
	}
	text, err := o.once(ctx, o.fallback, Request{Prompt: prompt, MaxTokens: maxTokens, Temperature: 0.2}, o.opts.FallbackTimeout)
	if err != nil {
		log.Warn().Err(err).Str("provider", o.fallback.Name()).Msg("Fallback LLM call failed")
		return "", err
	}
	return text, nil
}

func (o *Orchestrator) once(ctx context.Context, p Provider, req Request, timeout time.Duration) (string, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return p.Complete(ctx, req)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
