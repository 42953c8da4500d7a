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

const newsAPIBaseURL = "https://newsapi.org/v2"

// NewsAPIClient searches NewsAPI. The key travels in the X-Api-Key header.
type NewsAPIClient struct {
	client
	apiKey string
}

// NewNewsAPIClient creates a NewsAPI client.
func NewNewsAPIClient(apiKey string, rps float64) *NewsAPIClient {
	return &NewsAPIClient{client: newClient("newsapi", newsAPIBaseURL, rps), apiKey: apiKey}
}

func (c *NewsAPIClient) Name() string    { return c.name }
func (c *NewsAPIClient) Available() bool { return c.apiKey != "" }

type newsAPIResponse struct {
	Status   string `json:"status"`
	Articles []struct {
		Source struct {
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Search queries the everything endpoint, newest first.
func (c *NewsAPIClient) Search(ctx context.Context, q Query) ([]models.EvidenceRecord, error) {
	params := url.Values{}
	params.Set("q", q.Text)
	params.Set("sortBy", "publishedAt")
	if q.Lang != "" {
		params.Set("language", q.Lang)
	}
	return c.fetch(ctx, "/everything", params, q)
}

// TopHeadlines lists headlines for the explorer.
func (c *NewsAPIClient) TopHeadlines(ctx context.Context, category string, q Query) ([]models.EvidenceRecord, error) {
	params := url.Values{}
	if category != "" {
		params.Set("category", category)
	}
	if q.Region != "" {
		params.Set("country", q.Region)
	}
	if q.Text != "" {
		params.Set("q", q.Text)
	}
	return c.fetch(ctx, "/top-headlines", params, q)
}

func (c *NewsAPIClient) fetch(ctx context.Context, path string, params url.Values, q Query) ([]models.EvidenceRecord, error) {
	if !c.Available() {
		return nil, providerErr(c.name, ReasonUnavailable, nil)
	}
	params.Set("pageSize", strconv.Itoa(maxOr(q.MaxResults, 8)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, providerErr(c.name, ReasonRequest, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var data newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, providerErr(c.name, ReasonDecode, err)
	}
	if data.Status != "" && data.Status != "ok" {
		return nil, providerErr(c.name, ReasonStatus, fmt.Errorf("api status %q", data.Status))
	}
	if len(data.Articles) == 0 {
		return nil, providerErr(c.name, ReasonEmpty, nil)
	}

	records := make([]models.EvidenceRecord, 0, len(data.Articles))
	for _, a := range data.Articles {
		records = append(records, models.EvidenceRecord{
			Title:       cleanTitle(a.Title),
			URL:         a.URL,
			Snippet:     cleanSnippet(a.Description),
			Source:      sourceFor(a.URL, a.Source.Name, c.name),
			PublishedAt: a.PublishedAt,
		})
	}

	log.Debug().Str("path", path).Int("count", len(records)).Msg("NewsAPI: Search completed")
	return records, nil
}
