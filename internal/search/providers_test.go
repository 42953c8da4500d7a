package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv
}

func TestGoogleSearch(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "key-1", q.Get("key"))
		assert.Equal(t, "cx-1", q.Get("cx"))
		assert.Equal(t, "mars rover", q.Get("q"))
		assert.Equal(t, "lang_en", q.Get("lr"))
		assert.Equal(t, "in", q.Get("gl"))
		w.Write([]byte(`{"items":[
			{"title":"NASA <b>rover</b>","link":"https://www.nasa.gov/rover","snippet":"Landed &amp; <i>working</i>\n ok",
			 "displayLink":"www.nasa.gov","pagemap":{"metatags":[{"article:published_time":"2026-10-01T00:00:00Z"}]}},
			{"title":"Other","link":"::bad","snippet":"s","displayLink":"bbc.co.uk"}
		]}`))
	})

	c := NewGoogleClient("key-1", "cx-1", 0)
	c.baseURL = srv.URL
	got, err := c.Search(context.Background(), Query{Text: "mars rover", Lang: "en", Region: "in"})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "NASA rover", got[0].Title)
	assert.Equal(t, "Landed & working ok", got[0].Snippet)
	assert.Equal(t, "nasa.gov", got[0].Source)
	assert.Equal(t, "2026-10-01T00:00:00Z", got[0].PublishedAt)
	assert.Equal(t, "bbc.co.uk", got[1].Source)
}

func TestGoogleUnavailable(t *testing.T) {
	c := NewGoogleClient("key", "", 0)
	assert.False(t, c.Available())
	_, err := c.Search(context.Background(), Query{Text: "x"})
	assert.Equal(t, ReasonUnavailable, ReasonOf(err))
}

func TestTavilySearch(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body tavilyRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "tv-key", body.APIKey)
		assert.Equal(t, "flood relief", body.Query)
		w.Write([]byte(`{"results":[{"title":"Relief","url":"https://reuters.com/x","content":"text","published_date":"2026-10-10"}]}`))
	})

	c := NewTavilyClient("tv-key", 0)
	c.baseURL = srv.URL
	got, err := c.Search(context.Background(), Query{Text: "flood relief"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "reuters.com", got[0].Source)
	assert.Equal(t, "2026-10-10", got[0].PublishedAt)
}

func TestGNewsSearch(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "gn-key", r.URL.Query().Get("apikey"))
		w.Write([]byte(`{"articles":[{"title":"T","description":"D","url":"https://www.thehindu.com/a","publishedAt":"2026-10-11T10:00:00Z","source":{"name":"The Hindu"}}]}`))
	})

	c := NewGNewsClient("gn-key", 0)
	c.baseURL = srv.URL
	got, err := c.Search(context.Background(), Query{Text: "t"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "thehindu.com", got[0].Source)
}

func TestNewsAPISearch(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/everything", r.URL.Path)
		assert.Equal(t, "na-key", r.Header.Get("X-Api-Key"))
		assert.Empty(t, r.URL.Query().Get("apiKey"))
		w.Write([]byte(`{"status":"ok","articles":[{"source":{"name":"AP"},"title":"T","description":"D","url":"https://apnews.com/1","publishedAt":"2026-10-12"}]}`))
	})

	c := NewNewsAPIClient("na-key", 0)
	c.baseURL = srv.URL
	got, err := c.Search(context.Background(), Query{Text: "t"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "apnews.com", got[0].Source)
}

func TestProviderFailureReasons(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    Reason
	}{
		{"status", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) }, ReasonStatus},
		{"decode", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"articles":`)) }, ReasonDecode},
		{"empty", func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`{"articles":[]}`)) }, ReasonEmpty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serve(t, tt.handler)
			c := NewGNewsClient("k", 0)
			c.baseURL = srv.URL
			_, err := c.Search(context.Background(), Query{Text: "q"})
			require.Error(t, err)
			assert.Equal(t, tt.want, ReasonOf(err))
			assert.True(t, strings.HasPrefix(err.Error(), "gnews: "))
		})
	}

	c := NewGNewsClient("k", 0)
	c.baseURL = "http://127.0.0.1:1"
	_, err := c.Search(context.Background(), Query{Text: "q"})
	assert.Equal(t, ReasonRequest, ReasonOf(err))
}

func TestSourceFallbacks(t *testing.T) {
	assert.Equal(t, "example.com", sourceFor("https://WWW.Example.com/path", "Label", "p"))
	assert.Equal(t, "Label", sourceFor("not a url", "Label", "p"))
	assert.Equal(t, "p", sourceFor("", "", "p"))
}

func TestCleanSnippetBounds(t *testing.T) {
	long := strings.Repeat("पृथ्वी ", 100)
	got := cleanSnippet("<p>" + long + "</p>")
	assert.LessOrEqual(t, len([]rune(got)), maxSnippetRunes)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.NotContains(t, got, "<p>")
}
