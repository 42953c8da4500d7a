package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/satyashield/satyashield/internal/config"
)

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(cfg *config.Config, handler *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.HealthCheck)

		r.Group(func(r chi.Router) {
			if cfg.RateLimits.RequestsPerMinute > 0 {
				r.Use(RateLimitMiddleware(cfg.RateLimits.RequestsPerMinute))
			}

			r.Get("/related", handler.Related)
			r.Post("/related", handler.Related)
			r.Post("/fact-check", handler.FactCheck)
			r.Get("/verdicts/{newsId}", handler.GetVerdict)
			r.Get("/explore", handler.Explore)
		})
	})

	return r
}
