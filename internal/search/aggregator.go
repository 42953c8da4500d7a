package search

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/satyashield/satyashield/internal/cache"
	"github.com/satyashield/satyashield/internal/models"
	"github.com/satyashield/satyashield/internal/query"
)

// Options tunes the related-articles cascade.
type Options struct {
	MinResults      int
	Limit           int
	PrimaryTimeout  time.Duration
	FallbackTimeout time.Duration
	DefaultLang     string
	DefaultRegion   string
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		MinResults:      2,
		Limit:           DefaultLimit,
		PrimaryTimeout:  10 * time.Second,
		FallbackTimeout: 4 * time.Second,
		DefaultLang:     "en",
		DefaultRegion:   "in",
	}
}

// Aggregator runs the cache → primary → fallbacks cascade.
type Aggregator struct {
	cache     *cache.Cache
	ledger    *cache.Ledger
	primary   Provider
	fallbacks []Provider
	opts      Options
}

// NewAggregator creates a cascade. fallbacks are tried in the order given.
// primary may be nil.
func NewAggregator(c *cache.Cache, ledger *cache.Ledger, primary Provider, fallbacks []Provider, opts Options) *Aggregator {
	if opts.Limit <= 0 {
		opts.Limit = DefaultLimit
	}
	if opts.MinResults <= 0 {
		opts.MinResults = 2
	}
	return &Aggregator{cache: c, ledger: ledger, primary: primary, fallbacks: fallbacks, opts: opts}
}

// Related sanitizes the request into a query and returns merged evidence
// for it. It never fails: provider and store errors degrade to fewer items.
func (a *Aggregator) Related(ctx context.Context, req models.RelatedRequest) models.RelatedResponse {
	q := query.Sanitize(query.Input{Title: req.Title, Summary: req.Summary})
	return a.Lookup(ctx, q, req.Lang, req.Region)
}

// Lookup runs the cascade for an already sanitized query.
func (a *Aggregator) Lookup(ctx context.Context, q, lang, region string) models.RelatedResponse {
	if q == "" {
		return models.RelatedResponse{Items: []models.EvidenceRecord{}, Source: models.SourceInvalidQuery}
	}
	if lang == "" {
		lang = a.opts.DefaultLang
	}
	if region == "" {
		region = a.opts.DefaultRegion
	}

	key := cache.Key(q, lang, region)
	if items, ok := a.cache.Get(ctx, key); ok {
		log.Debug().Str("query", q).Int("count", len(items)).Msg("Related: cache hit")
		return models.RelatedResponse{Items: items, Source: models.SourceMergedCache}
	}

	sq := Query{Text: q, Lang: lang, Region: region, MaxResults: a.opts.Limit}
	var merged []models.EvidenceRecord
	var contributors []string

	if a.primary != nil && a.primary.Available() {
		if ok, count := a.ledger.Allow(ctx); ok {
			items, err := a.call(ctx, a.primary, sq, a.opts.PrimaryTimeout)
			if err == nil && len(items) > 0 {
				if err := a.ledger.Increment(ctx); err != nil {
					log.Warn().Err(err).Msg("Failed to increment quota")
				}
				merged = Merge(a.opts.Limit, items)
				if len(merged) > 0 {
					contributors = append(contributors, a.primary.Name())
				}
			}
		} else {
			log.Info().Int("count", count).Int("limit", a.ledger.Limit()).Msg("Primary search quota reached, using fallbacks")
		}
	}

	for _, p := range a.fallbacks {
		if len(merged) >= a.opts.MinResults {
			break
		}
		if !p.Available() {
			continue
		}
		items, err := a.call(ctx, p, sq, a.opts.FallbackTimeout)
		if err != nil || len(items) == 0 {
			continue
		}
		before := len(merged)
		merged = Merge(a.opts.Limit, merged, items)
		if len(merged) > before {
			contributors = append(contributors, p.Name())
		}
	}

	if len(merged) == 0 {
		return models.RelatedResponse{Items: []models.EvidenceRecord{}, Source: models.SourceNone}
	}
	if err := a.cache.Set(ctx, key, merged); err != nil {
		log.Warn().Err(err).Msg("Failed to write related cache")
	}
	return models.RelatedResponse{Items: merged, Source: strings.Join(contributors, "+")}
}

func (a *Aggregator) call(ctx context.Context, p Provider, q Query, timeout time.Duration) ([]models.EvidenceRecord, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	items, err := p.Search(ctx, q)
	if err != nil {
		ev := log.Warn()
		if ReasonOf(err) == ReasonEmpty {
			ev = log.Debug()
		}
		ev.Str("provider", p.Name()).Str("reason", string(ReasonOf(err))).Err(err).Msg("Provider skipped")
		return nil, err
	}
	return items, nil
}
