// Package app wires configuration into the long-lived clients the service owns.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/satyashield/satyashield/internal/cache"
	"github.com/satyashield/satyashield/internal/config"
	"github.com/satyashield/satyashield/internal/database"
	"github.com/satyashield/satyashield/internal/factcheck"
	"github.com/satyashield/satyashield/internal/janitor"
	"github.com/satyashield/satyashield/internal/llm"
	"github.com/satyashield/satyashield/internal/search"
)

// App holds every dependency built from configuration.
type App struct {
	Config     *config.Config
	Store      database.Store
	Aggregator *search.Aggregator
	Explorer   *search.Explorer
	Engine     *factcheck.Engine
	Janitor    *janitor.Janitor

	closers []func() error
}

// New builds the application. Missing provider credentials disable the
// provider instead of failing startup.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	store, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a := &App{Config: cfg, Store: store, closers: []func() error{store.Close}}
	log.Info().Str("driver", cfg.Database.Driver).Msg("Database initialized")

	var cacheStore database.CacheStore = store
	var quotaStore database.QuotaStore = store
	purgers := []janitor.Purger{store}
	if cfg.Cache.Driver == "redis" {
		rs, err := database.NewRedisStore(ctx, cfg.Cache.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.closers = append(a.closers, rs.Close)
		cacheStore, quotaStore = rs, rs
		purgers = append(purgers, rs)
		log.Info().Msg("Using Redis for related cache and quota")
	}

	sc := cfg.Search
	google := search.NewGoogleClient(sc.Google.APIKey, sc.Google.SearchEngineID, sc.RequestsPerSec)
	tavily := search.NewTavilyClient(sc.Tavily.APIKey, sc.RequestsPerSec)
	gnews := search.NewGNewsClient(sc.GNews.APIKey, sc.RequestsPerSec)
	newsapi := search.NewNewsAPIClient(sc.NewsAPI.APIKey, sc.RequestsPerSec)
	for _, p := range []search.Provider{google, tavily, gnews, newsapi} {
		if !p.Available() {
			log.Warn().Str("provider", p.Name()).Msg("Search provider not configured, skipping")
		}
	}

	a.Aggregator = search.NewAggregator(
		cache.New(cacheStore, cfg.Cache.TTL),
		cache.NewLedger(quotaStore, google.Name(), cfg.Quota.EffectiveLimit()),
		google,
		[]search.Provider{tavily, gnews, newsapi},
		search.Options{
			MinResults:      sc.MinResults,
			Limit:           sc.TargetResults,
			PrimaryTimeout:  sc.PrimaryTimeout,
			FallbackTimeout: sc.FallbackTimeout,
			DefaultLang:     sc.DefaultLang,
			DefaultRegion:   sc.DefaultRegion,
		},
	)
	a.Explorer = search.NewExplorer(sc.ExploreResults, sc.FallbackTimeout, sc.DefaultLang, sc.DefaultRegion, newsapi, gnews)

	primary := buildProvider(ctx, "primary", cfg.LLM.Primary)
	fallback := buildProvider(ctx, "fallback", cfg.LLM.Fallback)
	orch := llm.NewOrchestrator(primary, fallback, llm.Options{
		MaxAttempts:     cfg.LLM.MaxAttempts,
		Backoff:         cfg.LLM.Backoff,
		PrimaryTimeout:  cfg.LLM.PrimaryTimeout,
		FallbackTimeout: cfg.LLM.FallbackTimeout,
	})
	a.Engine = factcheck.NewEngine(a.Aggregator, orch, store, cfg.FactCheck)

	if cfg.Janitor.Enabled {
		j, err := janitor.New(cfg.Janitor.Schedule, cfg.Janitor.QuotaKeepDays, purgers...)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Janitor = j
	}

	return a, nil
}

// buildProvider returns nil when the tier is disabled or cannot be created.
func buildProvider(ctx context.Context, tier string, pc config.ProviderConfig) llm.Provider {
	if !pc.Enabled() {
		log.Warn().Str("tier", tier).Msg("LLM provider disabled")
		return nil
	}
	p, err := llm.NewProvider(ctx, pc)
	if err != nil {
		log.Warn().Err(err).Str("tier", tier).Str("provider", pc.Provider).Msg("LLM provider unavailable")
		return nil
	}
	log.Info().Str("tier", tier).Str("provider", p.Name()).Str("model", p.Model()).Msg("LLM provider initialized")
	return p
}

// Close stops the janitor and releases every client in reverse order of creation.
func (a *App) Close() error {
	if a.Janitor != nil {
		a.Janitor.Stop()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
