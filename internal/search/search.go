// Package search provides the evidence providers and the cascade that merges their results.
package search

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/satyashield/satyashield/internal/models"
	"golang.org/x/time/rate"
)

// Query is a sanitized search request.
type Query struct {
	Text       string
	Lang       string
	Region     string
	MaxResults int
}

// Provider defines the interface for search providers.
type Provider interface {
	// Name returns the provider tag used in source strings and quota keys.
	Name() string

	// Available returns whether this provider is properly configured.
	Available() bool

	// Search returns normalized evidence for the query.
	Search(ctx context.Context, q Query) ([]models.EvidenceRecord, error)
}

// Reason classifies why a provider produced no evidence.
type Reason string

const (
	ReasonUnavailable Reason = "unavailable"
	ReasonRequest     Reason = "request"
	ReasonStatus      Reason = "status"
	ReasonDecode      Reason = "decode"
	ReasonEmpty       Reason = "empty"
)

// ProviderError is returned by every adapter failure.
type ProviderError struct {
	Provider string
	Reason   Reason
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Reason, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// ReasonOf extracts the failure reason from err, or "" if err is not a ProviderError.
func ReasonOf(err error) Reason {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Reason
	}
	return ""
}

func providerErr(provider string, reason Reason, err error) error {
	return &ProviderError{Provider: provider, Reason: reason, Err: err}
}

// client holds what every HTTP adapter shares.
type client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func newClient(name, baseURL string, rps float64) client {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return client{
		name:       name,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

// do waits for the limiter, sends req and returns the response when it is 200.
func (c *client) do(req *http.Request) (*http.Response, error) {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return nil, providerErr(c.name, ReasonRequest, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "SatyaShield/1.0 (evidence search)")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, providerErr(c.name, ReasonRequest, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, providerErr(c.name, ReasonStatus, fmt.Errorf("status %d", resp.StatusCode))
	}
	return resp, nil
}

// extractDomain returns the article host without "www.", or fallback when
// the URL has no usable host.
func extractDomain(rawURL, fallback string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return fallback
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// sourceFor picks the source label for a record.
func sourceFor(rawURL, label, provider string) string {
	if label == "" {
		label = provider
	}
	return extractDomain(rawURL, label)
}
