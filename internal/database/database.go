// Package database provides the data access layer with support for multiple backends.
package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/satyashield/satyashield/internal/config"
	"github.com/satyashield/satyashield/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// CacheStore persists merged evidence sets.
type CacheStore interface {
	// GetCache returns the entry for key, or ErrNotFound. Callers must still
	// compare ExpiresAt against the current time.
	GetCache(ctx context.Context, key string) (*models.CacheEntry, error)
	// PutCache upserts an entry. CreatedAt is preserved on overwrite.
	PutCache(ctx context.Context, entry *models.CacheEntry) error
	// PurgeExpiredCache removes entries that expired before now.
	PurgeExpiredCache(ctx context.Context, now time.Time) (int64, error)
}

// QuotaStore persists per-day provider call counters.
type QuotaStore interface {
	GetQuota(ctx context.Context, date, provider string) (int, error)
	IncrementQuota(ctx context.Context, date, provider string) error
	// PurgeQuotaBefore removes counters for days strictly before date.
	PurgeQuotaBefore(ctx context.Context, date string) (int64, error)
}

// VerdictStore attaches fact-check verdicts to content records.
type VerdictStore interface {
	AttachVerdict(ctx context.Context, v *models.StoredVerdict) error
	GetVerdict(ctx context.Context, newsID string) (*models.StoredVerdict, error)
}

// Store defines the interface for data persistence.
type Store interface {
	CacheStore
	QuotaStore
	VerdictStore

	// Lifecycle. Constructors run Migrate before returning.
	Close() error
	Migrate() error
}

// Open creates the store selected by the configuration.
func Open(ctx context.Context, cfg config.DatabaseConfig) (Store, error) {
	switch cfg.Driver {
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "mongo":
		return NewMongoStore(ctx, cfg.URL, cfg.Name)
	case "mysql":
		return NewMySQLStore(cfg.URL)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}
}
