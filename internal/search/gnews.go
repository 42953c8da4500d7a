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

const gnewsBaseURL = "https://gnews.io/api/v4"

// GNewsClient searches GNews. The key travels as the apikey query parameter.
type GNewsClient struct {
	client
	apiKey string
}

// NewGNewsClient creates a GNews client.
func NewGNewsClient(apiKey string, rps float64) *GNewsClient {
	return &GNewsClient{client: newClient("gnews", gnewsBaseURL, rps), apiKey: apiKey}
}

func (c *GNewsClient) Name() string    { return c.name }
func (c *GNewsClient) Available() bool { return c.apiKey != "" }

type gnewsResponse struct {
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
		Source      struct {
			Name string `json:"name"`
		} `json:"source"`
	} `json:"articles"`
}

// Search queries the GNews search endpoint.
func (c *GNewsClient) Search(ctx context.Context, q Query) ([]models.EvidenceRecord, error) {
	params := url.Values{}
	params.Set("q", q.Text)
	return c.fetch(ctx, "/search", params, q)
}

// TopHeadlines lists headlines for the explorer. An empty topic lists general news.
func (c *GNewsClient) TopHeadlines(ctx context.Context, topic string, q Query) ([]models.EvidenceRecord, error) {
	params := url.Values{}
	if topic != "" {
		params.Set("topic", topic)
	}
	if q.Text != "" {
		params.Set("q", q.Text)
	}
	return c.fetch(ctx, "/top-headlines", params, q)
}

func (c *GNewsClient) fetch(ctx context.Context, path string, params url.Values, q Query) ([]models.EvidenceRecord, error) {
	if !c.Available() {
		return nil, providerErr(c.name, ReasonUnavailable, nil)
	}
	params.Set("apikey", c.apiKey)
	params.Set("max", strconv.Itoa(maxOr(q.MaxResults, 8)))
	if q.Lang != "" {
		params.Set("lang", q.Lang)
	}
	if q.Region != "" {
		params.Set("country", q.Region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, providerErr(c.name, ReasonRequest, fmt.Errorf("failed to create request: %w", err))
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var data gnewsResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, providerErr(c.name, ReasonDecode, err)
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

	log.Debug().Str("path", path).Int("count", len(records)).Msg("GNews: Search completed")
	return records, nil
}
