package search

import (
	"strings"

	"github.com/satyashield/satyashield/internal/models"
)

// DefaultLimit is the size of a merged related-articles list.
const DefaultLimit = 8

var blockedHosts = []string{"facebook", "instagram", "threads", "tiktok", "x.com", "twitter.com"}

// Blocked reports whether a record points at a social-media platform.
func Blocked(r models.EvidenceRecord) bool {
	u := strings.ToLower(r.URL)
	s := strings.ToLower(r.Source)
	for _, b := range blockedHosts {
		if strings.Contains(u, b) || strings.Contains(s, b) {
			return true
		}
	}
	return false
}

// Merge concatenates lists in order, dropping records without a URL, blocked
// records and URL duplicates (first seen wins), and truncates to limit.
// The input slices are never modified.
func Merge(limit int, lists ...[]models.EvidenceRecord) []models.EvidenceRecord {
	if limit <= 0 {
		limit = DefaultLimit
	}
	out := make([]models.EvidenceRecord, 0, limit)
	seen := make(map[string]struct{})
	for _, list := range lists {
		for _, r := range list {
			if len(out) == limit {
				return out
			}
			if r.URL == "" || Blocked(r) {
				continue
			}
			key := strings.ToLower(r.URL)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}
