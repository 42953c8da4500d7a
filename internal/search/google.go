package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/satyashield/satyashield/internal/models"
)

const googleBaseURL = "https://www.googleapis.com/customsearch/v1"

// GoogleClient searches the Google Custom Search JSON API. It is the quota-gated primary.
type GoogleClient struct {
	client
	apiKey   string
	engineID string
}

// NewGoogleClient creates a Google Custom Search client.
func NewGoogleClient(apiKey, engineID string, rps float64) *GoogleClient {
	return &GoogleClient{
		client:   newClient("google", googleBaseURL, rps),
		apiKey:   apiKey,
		engineID: engineID,
	}
}

// Name returns the provider tag.
func (c *GoogleClient) Name() string {
	return c.name
}

// Available returns true if both the key and the engine ID are set.
func (c *GoogleClient) Available() bool {
	return c.apiKey != "" && c.engineID != ""
}

type googleResponse struct {
	Items []struct {
		Title       string `json:"title"`
		Link        string `json:"link"`
		Snippet     string `json:"snippet"`
		DisplayLink string `json:"displayLink"`
		Pagemap     struct {
			Metatags []map[string]string `json:"metatags"`
		} `json:"pagemap"`
	} `json:"items"`
}

// Search queries Custom Search restricted to the request language and region.
func (c *GoogleClient) Search(ctx context.Context, q Query) ([]models.EvidenceRecord, error) {
	if !c.Available() {
		return nil, providerErr(c.name, ReasonUnavailable, nil)
	}

	num := q.MaxResults
	if num <= 0 || num > 10 {
		num = 10
	}
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.engineID)
	params.Set("q", q.Text)
	params.Set("num", strconv.Itoa(num))
	if q.Lang != "" {
		params.Set("lr", "lang_"+q.Lang)
	}
	if q.Region != "" {
		params.Set("gl", q.Region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, providerErr(c.name, ReasonRequest, fmt.Errorf("failed to create request: %w", err))
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var data googleResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, providerErr(c.name, ReasonDecode, err)
	}
	if len(data.Items) == 0 {
		return nil, providerErr(c.name, ReasonEmpty, nil)
	}

	records := make([]models.EvidenceRecord, 0, len(data.Items))
	for _, item := range data.Items {
		records = append(records, models.EvidenceRecord{
			Title:       cleanTitle(item.Title),
			URL:         item.Link,
			Snippet:     cleanSnippet(item.Snippet),
			Source:      sourceFor(item.Link, item.DisplayLink, c.name),
			PublishedAt: publishedTime(item.Pagemap.Metatags),
		})
	}

	log.Debug().Int("count", len(records)).Str("query", q.Text).Msg("Google: Search completed")
	return records, nil
}

func publishedTime(metatags []map[string]string) string {
	for _, m := range metatags {
		for _, k := range []string{"article:published_time", "og:published_time", "datepublished"} {
			if v := m[k]; v != "" {
				return v
			}
		}
	}
	return ""
}
