package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/satyashield/satyashield/internal/models"
)

const tavilyBaseURL = "https://api.tavily.com/search"

// TavilyClient searches the Tavily API. The key travels in the JSON body.
type TavilyClient struct {
	client
	apiKey string
}

// NewTavilyClient creates a Tavily client.
func NewTavilyClient(apiKey string, rps float64) *TavilyClient {
	return &TavilyClient{client: newClient("tavily", tavilyBaseURL, rps), apiKey: apiKey}
}

func (c *TavilyClient) Name() string    { return c.name }
func (c *TavilyClient) Available() bool { return c.apiKey != "" }

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	Topic       string `json:"topic"`
	MaxResults  int    `json:"max_results"`
}

type tavilyResponse struct {
	Results []struct {
		Title         string `json:"title"`
		URL           string `json:"url"`
		Content       string `json:"content"`
		PublishedDate string `json:"published_date"`
	} `json:"results"`
}

func (c *TavilyClient) Search(ctx context.Context, q Query) ([]models.EvidenceRecord, error) {
	if !c.Available() {
		return nil, providerErr(c.name, ReasonUnavailable, nil)
	}

	body, err := json.Marshal(tavilyRequest{
		APIKey:      c.apiKey,
		Query:       q.Text,
		SearchDepth: "basic",
		Topic:       "news",
		MaxResults:  maxOr(q.MaxResults, 8),
	})
	if err != nil {
		return nil, providerErr(c.name, ReasonRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, providerErr(c.name, ReasonRequest, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var data tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, providerErr(c.name, ReasonDecode, err)
	}
	if len(data.Results) == 0 {
		return nil, providerErr(c.name, ReasonEmpty, nil)
	}

	records := make([]models.EvidenceRecord, 0, len(data.Results))
	for _, r := range data.Results {
		records = append(records, models.EvidenceRecord{
			Title:       cleanTitle(r.Title),
			URL:         r.URL,
			Snippet:     cleanSnippet(r.Content),
			Source:      sourceFor(r.URL, "", c.name),
			PublishedAt: r.PublishedDate,
		})
	}

	log.Debug().Int("count", len(records)).Msg("Tavily: Search completed")
	return records, nil
}

func maxOr(n, def int) int {
	if n <= 0 {
		return def
	}
	return n
}
