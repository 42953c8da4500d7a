// Package models defines the core data structures used throughout the application.
package models

import (
	"time"
)

// Label is the classification a fact-check assigns to a claim.
type Label string

const (
	LabelReal   Label = "real"
	LabelFake   Label = "fake"
	LabelUnsure Label = "unsure"
)

// Valid reports whether l is one of the three allowed labels.
func (l Label) Valid() bool {
	switch l {
	case LabelReal, LabelFake, LabelUnsure:
		return true
	}
	return false
}

// ModelUsed records which LLM tier produced a piece of output.
type ModelUsed string

const (
	ModelPrimary  ModelUsed = "primary"
	ModelFallback ModelUsed = "fallback"
	ModelNone     ModelUsed = "none"
)

// Source tags returned by the related-articles cascade when no provider contributed.
const (
	SourceInvalidQuery = "invalid-query"
	SourceNone         = "none"
	SourceMergedCache  = "merged-cache"
)

// EvidenceRecord is one normalized search result from any provider.
// Records are treated as immutable once an adapter has built them.
type EvidenceRecord struct {
	Title       string `json:"title" bson:"title"`
	URL         string `json:"url" bson:"url"`
	Snippet     string `json:"snippet" bson:"snippet"`
	Source      string `json:"source,omitempty" bson:"source,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty" bson:"published_at,omitempty"`
}

// Verdict is the final classification of a claim.
type Verdict struct {
	Label       Label   `json:"label"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// FactCheckResult aggregates a verdict with the evidence that produced it.
type FactCheckResult struct {
	Verdict          Verdict          `json:"verdict"`
	EvidenceSummary  string           `json:"evidenceSummary"`
	Sources          []EvidenceRecord `json:"sources"`
	Query            string           `json:"query,omitempty"`
	SourceTag        string           `json:"sourceTag,omitempty"`
	ModelUsedSummary ModelUsed        `json:"modelUsedSummary"`
	ModelUsedVerdict ModelUsed        `json:"modelUsedVerdict"`
	ProcessingTimeMs int64            `json:"processingTimeMs"`
	CheckedAt        time.Time        `json:"checkedAt"`
}

// CacheEntry is a persisted merged evidence set keyed by a query digest.
type CacheEntry struct {
	Key       string           `json:"key" bson:"_id"`
	Payload   []EvidenceRecord `json:"payload" bson:"payload"`
	ExpiresAt time.Time        `json:"expiresAt" bson:"expires_at"`
	CreatedAt time.Time        `json:"createdAt" bson:"created_at"`
	UpdatedAt time.Time        `json:"updatedAt" bson:"updated_at"`
}

// QuotaCounter counts successful calls to a rate-limited provider for one UTC day.
type QuotaCounter struct {
	Date     string `json:"date" bson:"date"`
	Provider string `json:"provider" bson:"provider"`
	Count    int    `json:"count" bson:"count"`
}

// StoredVerdict is a verdict attached to a content record owned by another system.
type StoredVerdict struct {
	NewsID           string           `json:"newsId" bson:"_id"`
	Verdict          Verdict          `json:"verdict" bson:"verdict"`
	EvidenceSummary  string           `json:"evidenceSummary" bson:"evidence_summary"`
	Sources          []EvidenceRecord `json:"sources" bson:"sources"`
	ModelUsedSummary ModelUsed        `json:"modelUsedSummary" bson:"model_used_summary"`
	ModelUsedVerdict ModelUsed        `json:"modelUsedVerdict" bson:"model_used_verdict"`
	CheckedAt        time.Time        `json:"checkedAt" bson:"checked_at"`
}

// RelatedRequest is the request body for the related-articles endpoint.
type RelatedRequest struct {
	Title   string `json:"title,omitempty"`
	Summary string `json:"summary,omitempty"`
	Lang    string `json:"lang,omitempty"`
	Region  string `json:"region,omitempty"`
}

// RelatedResponse lists merged evidence and the providers that contributed it.
type RelatedResponse struct {
	Items  []EvidenceRecord `json:"items"`
	Source string           `json:"source"`
}

// FactCheckRequest is the request body for the fact-check endpoint.
// Text is a pointer so a missing field can be told apart from an empty claim.
type FactCheckRequest struct {
	Text   *string `json:"text"`
	NewsID string  `json:"newsId,omitempty"`
	Lang   string  `json:"lang,omitempty"`
	Region string  `json:"region,omitempty"`
}

// ExploreRequest selects headlines for the news explorer.
type ExploreRequest struct {
	Category string `json:"category,omitempty"`
	Country  string `json:"country,omitempty"`
	Lang     string `json:"lang,omitempty"`
	Query    string `json:"q,omitempty"`
}

// ExploreResponse is the merged explorer feed.
type ExploreResponse struct {
	Items     []EvidenceRecord `json:"items"`
	Providers []string         `json:"providers"`
}
