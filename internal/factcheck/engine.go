// Package factcheck turns a claim into a verdict backed by searched evidence.
package factcheck

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
	"github.com/satyashield/satyashield/internal/config"
	"github.com/satyashield/satyashield/internal/database"
	"github.com/satyashield/satyashield/internal/models"
	"github.com/satyashield/satyashield/internal/query"
)

const (
	minQueryRunes = 3

	explainNoClaim    = "No readable claim provided"
	explainNoEvidence = "No relevant sources found"
)

// EvidenceSource runs the related-articles cascade for a sanitized query.
type EvidenceSource interface {
	Lookup(ctx context.Context, q, lang, region string) models.RelatedResponse
}

// Generator is the LLM surface the engine needs.
type Generator interface {
	ChatComplete(ctx context.Context, system, prompt string, maxTokens int) (string, error)
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Request is a single fact-check.
type Request struct {
	Text   string
	NewsID string
	Lang   string
	Region string
}

// Engine orchestrates the fact-checking pipeline.
type Engine struct {
	evidence EvidenceSource
	llm      Generator
	store    database.VerdictStore
	cfg      config.FactCheckConfig
	now      func() time.Time
}

// NewEngine creates a fact-check engine. store may be nil, in which case
// verdicts are not persisted.
func NewEngine(evidence EvidenceSource, gen Generator, store database.VerdictStore, cfg config.FactCheckConfig) *Engine {
	if cfg.MaxSources <= 0 {
		cfg.MaxSources = 8
	}
	if cfg.EvidenceChars <= 0 {
		cfg.EvidenceChars = 4000
	}
	if cfg.SummaryMaxTokens <= 0 {
		cfg.SummaryMaxTokens = 300
	}
	if cfg.VerdictMaxTokens <= 0 {
		cfg.VerdictMaxTokens = 250
	}
	return &Engine{evidence: evidence, llm: gen, store: store, cfg: cfg, now: time.Now}
}

// Check runs the claim through sanitizing, evidence gathering, summarising
// and classification. It never fails: every degraded path still yields a verdict.
func (e *Engine) Check(ctx context.Context, req Request) *models.FactCheckResult {
	start := e.now()

	q := query.Sanitize(query.Input{ClaimText: req.Text})
	if utf8.RuneCountInString(q) < minQueryRunes {
		return e.finish(start, &models.FactCheckResult{
			Verdict:          models.Verdict{Label: models.LabelUnsure, Confidence: 0, Explanation: explainNoClaim},
			Sources:          []models.EvidenceRecord{},
			SourceTag:        models.SourceInvalidQuery,
			ModelUsedSummary: models.ModelNone,
			ModelUsedVerdict: models.ModelNone,
		})
	}

	log.Info().Str("query", q).Msg("Step 1: Gathering evidence")
	related := e.evidence.Lookup(ctx, q, req.Lang, req.Region)
	sources := related.Items
	if len(sources) > e.cfg.MaxSources {
		sources = sources[:e.cfg.MaxSources]
	}

	result := &models.FactCheckResult{
		Query:            q,
		SourceTag:        related.Source,
		Sources:          sources,
		ModelUsedSummary: models.ModelNone,
		ModelUsedVerdict: models.ModelNone,
	}

	if len(sources) == 0 {
		result.Sources = []models.EvidenceRecord{}
		result.Verdict = models.Verdict{Label: models.LabelUnsure, Confidence: 0.2, Explanation: explainNoEvidence}
		e.finish(start, result)
		e.persist(ctx, req.NewsID, result)
		return result
	}

	log.Info().Int("sources", len(sources)).Msg("Step 2: Summarising evidence")
	result.EvidenceSummary, result.ModelUsedSummary = e.summarise(ctx, sources)

	log.Info().Msg("Step 3: Building verdict")
	result.Verdict, result.ModelUsedVerdict = e.judge(ctx, req.Text, result.EvidenceSummary, sources)

	e.finish(start, result)
	e.persist(ctx, req.NewsID, result)

	log.Info().
		Str("label", string(result.Verdict.Label)).
		Float64("confidence", result.Verdict.Confidence).
		Str("summary_model", string(result.ModelUsedSummary)).
		Str("verdict_model", string(result.ModelUsedVerdict)).
		Int64("duration_ms", result.ProcessingTimeMs).
		Msg("Fact-check complete")
	return result
}

func (e *Engine) finish(start time.Time, r *models.FactCheckResult) *models.FactCheckResult {
	now := e.now()
	r.CheckedAt = now.UTC()
	r.ProcessingTimeMs = now.Sub(start).Milliseconds()
	return r
}

func (e *Engine) persist(ctx context.Context, newsID string, r *models.FactCheckResult) {
	if newsID == "" || e.store == nil {
		return
	}
	err := e.store.AttachVerdict(ctx, &models.StoredVerdict{
		NewsID:           newsID,
		Verdict:          r.Verdict,
		EvidenceSummary:  r.EvidenceSummary,
		Sources:          r.Sources,
		ModelUsedSummary: r.ModelUsedSummary,
		ModelUsedVerdict: r.ModelUsedVerdict,
		CheckedAt:        r.CheckedAt,
	})
	if err != nil {
		log.Error().Err(err).Str("news_id", newsID).Msg("Failed to persist verdict")
	}
}
