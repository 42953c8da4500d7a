// Package cache implements the TTL result cache and the daily quota ledger
// that sit in front of the search providers.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/satyashield/satyashield/internal/database"
	"github.com/satyashield/satyashield/internal/models"
)

// DefaultTTL is how long a merged evidence set stays servable.
const DefaultTTL = 3 * time.Hour

// Cache stores merged evidence sets keyed by a digest of the normalized query.
type Cache struct {
	store database.CacheStore
	ttl   time.Duration
	now   func() time.Time
}

// New creates a cache over store. A non-positive ttl selects DefaultTTL.
func New(store database.CacheStore, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{store: store, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Key derives a fixed-length, storage-safe key for a query in a locale.
func Key(query, lang, region string) string {
	normalized := strings.ToLower(strings.TrimSpace(query))
	sum := sha256.Sum256([]byte(normalized + "|lang=" + lang + "|region=" + region))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached payload for key if present, non-empty and not expired.
// Store failures are logged and reported as a miss.
func (c *Cache) Get(ctx context.Context, key string) ([]models.EvidenceRecord, bool) {
	entry, err := c.store.GetCache(ctx, key)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			log.Warn().Err(err).Str("key", key).Msg("Cache read failed")
		}
		return nil, false
	}
	if !entry.ExpiresAt.After(c.now()) || len(entry.Payload) == 0 {
		return nil, false
	}
	return entry.Payload, true
}

// Set upserts payload under key with a fresh TTL. Empty payloads are never
// written so that a later request can retry the providers.
func (c *Cache) Set(ctx context.Context, key string, payload []models.EvidenceRecord) error {
	if len(payload) == 0 {
		return nil
	}
	now := c.now().UTC()
	return c.store.PutCache(ctx, &models.CacheEntry{
		Key:       key,
		Payload:   append([]models.EvidenceRecord(nil), payload...),
		ExpiresAt: now.Add(c.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	})
}
