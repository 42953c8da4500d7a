package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/satyashield/satyashield/internal/config"
	"github.com/satyashield/satyashield/internal/database"
	"github.com/satyashield/satyashield/internal/factcheck"
	"github.com/satyashield/satyashield/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRelated struct{ got models.RelatedRequest }

func (f *fakeRelated) Related(_ context.Context, req models.RelatedRequest) models.RelatedResponse {
	f.got = req
	return models.RelatedResponse{
		Items:  []models.EvidenceRecord{{Title: "t", URL: "https://nasa.gov/a", Source: "nasa.gov"}},
		Source: "google",
	}
}

type fakeChecker struct{ got *factcheck.Request }

func (f *fakeChecker) Check(_ context.Context, req factcheck.Request) *models.FactCheckResult {
	f.got = &req
	return &models.FactCheckResult{
		Verdict:          models.Verdict{Label: models.LabelUnsure, Confidence: 0, Explanation: "No readable claim provided"},
		Sources:          []models.EvidenceRecord{},
		ModelUsedSummary: models.ModelNone,
		ModelUsedVerdict: models.ModelNone,
	}
}

type fakeExplorer struct{ got models.ExploreRequest }

func (f *fakeExplorer) Explore(_ context.Context, req models.ExploreRequest) models.ExploreResponse {
	f.got = req
	return models.ExploreResponse{Items: []models.EvidenceRecord{}, Providers: []string{"newsapi"}}
}

type testServer struct {
	related  *fakeRelated
	checker  *fakeChecker
	explorer *fakeExplorer
	store    *database.MemoryStore
	handler  http.Handler
}

func newTestServer(rpm int) *testServer {
	s := &testServer{
		related:  &fakeRelated{},
		checker:  &fakeChecker{},
		explorer: &fakeExplorer{},
		store:    database.NewMemoryStore(),
	}
	cfg := config.DefaultConfig()
	cfg.RateLimits.RequestsPerMinute = rpm
	s.handler = NewRouter(cfg, NewHandler(s.related, s.checker, s.explorer, s.store))
	return s
}

func (s *testServer) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := newTestServer(60).do(http.MethodGet, "/api/v1/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), `"healthy"`)
}

func TestRequestIDEchoed(t *testing.T) {
	s := newTestServer(60)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))

	req.Header.Set("X-Request-ID", strings.Repeat("x", 65))
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Len(t, rec.Header().Get("X-Request-ID"), 36)
}

func TestRelatedGetAndPost(t *testing.T) {
	s := newTestServer(60)

	rec := s.do(http.MethodGet, "/api/v1/related?title=Mars+rover&lang=hi&region=in", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Mars rover", s.related.got.Title)
	assert.Equal(t, "hi", s.related.got.Lang)

	var resp models.RelatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "google", resp.Source)
	assert.Len(t, resp.Items, 1)

	rec = s.do(http.MethodPost, "/api/v1/related", `{"summary":"Lander wakes up"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Lander wakes up", s.related.got.Summary)

	rec = s.do(http.MethodPost, "/api/v1/related", `{"summary":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFactCheckRequiresText(t *testing.T) {
	s := newTestServer(60)

	rec := s.do(http.MethodPost, "/api/v1/fact-check", `{"newsId":"n1"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, s.checker.got)

	rec = s.do(http.MethodPost, "/api/v1/fact-check", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/v1/fact-check", `{"text":"","newsId":"n1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, s.checker.got)
	assert.Equal(t, "n1", s.checker.got.NewsID)

	var res map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	verdict := res["verdict"].(map[string]interface{})
	assert.Equal(t, "unsure", verdict["label"])
	assert.Contains(t, res, "evidenceSummary")
	assert.Contains(t, res, "sources")
}

func TestGetVerdict(t *testing.T) {
	s := newTestServer(60)

	rec := s.do(http.MethodGet, "/api/v1/verdicts/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, s.store.AttachVerdict(context.Background(), &models.StoredVerdict{
		NewsID:    "n9",
		Verdict:   models.Verdict{Label: models.LabelFake, Confidence: 0.9, Explanation: "contradicted"},
		CheckedAt: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
	}))
	rec = s.do(http.MethodGet, "/api/v1/verdicts/n9", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var v models.StoredVerdict
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.Equal(t, models.LabelFake, v.Verdict.Label)
}

func TestExplore(t *testing.T) {
	s := newTestServer(60)
	rec := s.do(http.MethodGet, "/api/v1/explore?category=science&country=in&q=isro", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ExploreRequest{Category: "science", Country: "in", Query: "isro"}, s.explorer.got)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(2)
	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/related?title=a", "").Code)
	}
	rec := s.do(http.MethodGet, "/api/v1/related?title=a", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/v1/health", "").Code)
}
