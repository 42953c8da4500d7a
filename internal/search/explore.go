package search

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/satyashield/satyashield/internal/models"
	"github.com/satyashield/satyashield/internal/query"
	"golang.org/x/sync/errgroup"
)

// HeadlineSource lists top headlines for a category.
type HeadlineSource interface {
	Name() string
	Available() bool
	TopHeadlines(ctx context.Context, category string, q Query) ([]models.EvidenceRecord, error)
}

// Explorer builds the explore feed from headline sources queried concurrently.
type Explorer struct {
	sources []HeadlineSource
	limit   int
	timeout time.Duration
	lang    string
	region  string
}

// NewExplorer creates an explorer. Results are merged in the order sources are given.
func NewExplorer(limit int, timeout time.Duration, lang, region string, sources ...HeadlineSource) *Explorer {
	if limit <= 0 {
		limit = 20
	}
	return &Explorer{sources: sources, limit: limit, timeout: timeout, lang: lang, region: region}
}

// Explore fetches every source at once and merges what came back. A failing
// source contributes nothing.
func (e *Explorer) Explore(ctx context.Context, req models.ExploreRequest) models.ExploreResponse {
	q := Query{
		Text:       query.Clean(req.Query, query.MaxWords),
		Lang:       orDefault(req.Lang, e.lang),
		Region:     orDefault(req.Country, e.region),
		MaxResults: e.limit,
	}

	results := make([][]models.EvidenceRecord, len(e.sources))
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range e.sources {
		if !src.Available() {
			continue
		}
		g.Go(func() error {
			cctx := gctx
			if e.timeout > 0 {
				var cancel context.CancelFunc
				cctx, cancel = context.WithTimeout(gctx, e.timeout)
				defer cancel()
			}
			items, err := src.TopHeadlines(cctx, req.Category, q)
			if err != nil {
				log.Warn().Str("provider", src.Name()).Str("reason", string(ReasonOf(err))).Err(err).Msg("Explore source failed")
				return nil
			}
			results[i] = items
			return nil
		})
	}
	_ = g.Wait()

	resp := models.ExploreResponse{Items: []models.EvidenceRecord{}, Providers: []string{}}
	for i, items := range results {
		if len(items) == 0 {
			continue
		}
		before := len(resp.Items)
		resp.Items = Merge(e.limit, resp.Items, items)
		if len(resp.Items) > before {
			resp.Providers = append(resp.Providers, e.sources[i].Name())
		}
	}
	return resp
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
