// Package api provides HTTP API handlers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/satyashield/satyashield/internal/database"
	"github.com/satyashield/satyashield/internal/factcheck"
	"github.com/satyashield/satyashield/internal/models"
)

const maxBodyBytes = 1 << 20

// RelatedFinder serves the related-articles cascade.
type RelatedFinder interface {
	Related(ctx context.Context, req models.RelatedRequest) models.RelatedResponse
}

// Checker runs fact-checks.
type Checker interface {
	Check(ctx context.Context, req factcheck.Request) *models.FactCheckResult
}

// HeadlineExplorer serves the explore feed.
type HeadlineExplorer interface {
	Explore(ctx context.Context, req models.ExploreRequest) models.ExploreResponse
}

// Handler contains all HTTP handlers.
type Handler struct {
	related  RelatedFinder
	checker  Checker
	explorer HeadlineExplorer
	verdicts database.VerdictStore
}

// NewHandler creates a new handler.
func NewHandler(related RelatedFinder, checker Checker, explorer HeadlineExplorer, verdicts database.VerdictStore) *Handler {
	return &Handler{
		related:  related,
		checker:  checker,
		explorer: explorer,
		verdicts: verdicts,
	}
}

// HealthCheck returns the service health status.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"version":   "1.0.0",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// Related returns merged evidence for a headline. GET reads query parameters,
// POST reads a JSON body.
func (h *Handler) Related(w http.ResponseWriter, r *http.Request) {
	var req models.RelatedRequest
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		req = models.RelatedRequest{
			Title:   q.Get("title"),
			Summary: q.Get("summary"),
			Lang:    q.Get("lang"),
			Region:  q.Get("region"),
		}
	} else if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	writeJSON(w, http.StatusOK, h.related.Related(r.Context(), req))
}

// FactCheck classifies a claim.
func (h *Handler) FactCheck(w http.ResponseWriter, r *http.Request) {
	var req models.FactCheckRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Text == nil {
		writeError(w, http.StatusBadRequest, "Text is required")
		return
	}

	result := h.checker.Check(r.Context(), factcheck.Request{
		Text:   *req.Text,
		NewsID: req.NewsID,
		Lang:   req.Lang,
		Region: req.Region,
	})
	writeJSON(w, http.StatusOK, result)
}

// GetVerdict returns the verdict stored for a content record.
func (h *Handler) GetVerdict(w http.ResponseWriter, r *http.Request) {
	newsID := chi.URLParam(r, "newsId")
	if newsID == "" {
		writeError(w, http.StatusBadRequest, "newsId is required")
		return
	}

	v, err := h.verdicts.GetVerdict(r.Context(), newsID)
	if errors.Is(err, database.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Verdict not found")
		return
	}
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("news_id", newsID).Msg("Failed to get verdict")
		writeError(w, http.StatusInternalServerError, "Failed to get verdict")
		return
	}

	writeJSON(w, http.StatusOK, v)
}

// Explore returns merged top headlines.
func (h *Handler) Explore(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	writeJSON(w, http.StatusOK, h.explorer.Explore(r.Context(), models.ExploreRequest{
		Category: q.Get("category"),
		Country:  q.Get("country"),
		Lang:     q.Get("lang"),
		Query:    q.Get("q"),
	}))
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

// Helper functions
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
