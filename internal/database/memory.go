package database

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/satyashield/satyashield/internal/models"
)

// MemoryStore implements Store in process memory. Nothing survives a restart.
type MemoryStore struct {
	mu       sync.RWMutex
	cache    map[string]models.CacheEntry
	quota    map[string]int
	verdicts map[string]models.StoredVerdict
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		cache:    make(map[string]models.CacheEntry),
		quota:    make(map[string]int),
		verdicts: make(map[string]models.StoredVerdict),
	}
}

func quotaKey(date, provider string) string {
	return date + "|" + provider
}

func (m *MemoryStore) Migrate() error { return nil }
func (m *MemoryStore) Close() error   { return nil }

func (m *MemoryStore) GetCache(_ context.Context, key string) (*models.CacheEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entry, ok := m.cache[key]
	if !ok {
		return nil, ErrNotFound
	}
	entry.Payload = append([]models.EvidenceRecord(nil), entry.Payload...)
	return &entry, nil
}

func (m *MemoryStore) PutCache(_ context.Context, entry *models.CacheEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := *entry
	e.Payload = append([]models.EvidenceRecord(nil), entry.Payload...)
	if old, ok := m.cache[e.Key]; ok {
		e.CreatedAt = old.CreatedAt
	}
	m.cache[e.Key] = e
	return nil
}

func (m *MemoryStore) PurgeExpiredCache(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, e := range m.cache {
		if !e.ExpiresAt.After(now) {
			delete(m.cache, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) GetQuota(_ context.Context, date, provider string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.quota[quotaKey(date, provider)], nil
}

func (m *MemoryStore) IncrementQuota(_ context.Context, date, provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quota[quotaKey(date, provider)]++
	return nil
}

func (m *MemoryStore) PurgeQuotaBefore(_ context.Context, date string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k := range m.quota {
		if d, _, _ := strings.Cut(k, "|"); d < date {
			delete(m.quota, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) AttachVerdict(_ context.Context, v *models.StoredVerdict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := *v
	stored.Sources = append([]models.EvidenceRecord(nil), v.Sources...)
	m.verdicts[v.NewsID] = stored
	return nil
}

func (m *MemoryStore) GetVerdict(_ context.Context, newsID string) (*models.StoredVerdict, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.verdicts[newsID]
	if !ok {
		return nil, ErrNotFound
	}
	return &v, nil
}
