// Package database provides SQLite implementation of the Store interface.
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/satyashield/satyashield/internal/models"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS related_cache (
			cache_key TEXT PRIMARY KEY,
			payload TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_related_cache_expires ON related_cache(expires_at)`,
		`CREATE TABLE IF NOT EXISTS quota_counters (
			date TEXT NOT NULL,
			provider TEXT NOT NULL,
			count INTEGER NOT NULL,
			PRIMARY KEY (date, provider)
		)`,
		`CREATE TABLE IF NOT EXISTS verdicts (
			news_id TEXT PRIMARY KEY,
			label TEXT NOT NULL,
			confidence REAL NOT NULL,
			explanation TEXT NOT NULL,
			evidence_summary TEXT NOT NULL,
			sources TEXT NOT NULL,
			model_used_summary TEXT NOT NULL,
			model_used_verdict TEXT NOT NULL,
			checked_at INTEGER NOT NULL
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetCache retrieves a cache entry by key.
func (s *SQLiteStore) GetCache(ctx context.Context, key string) (*models.CacheEntry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT cache_key, payload, expires_at, created_at, updated_at
		FROM related_cache WHERE cache_key = ?`, key)

	var entry models.CacheEntry
	var payload string
	var expiresAt, createdAt, updatedAt int64
	err := row.Scan(&entry.Key, &payload, &expiresAt, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(payload), &entry.Payload); err != nil {
		return nil, fmt.Errorf("corrupt cache payload for %s: %w", key, err)
	}
	entry.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	entry.CreatedAt = time.UnixMilli(createdAt).UTC()
	entry.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return &entry, nil
}

// PutCache upserts a cache entry, keeping the original creation time.
func (s *SQLiteStore) PutCache(ctx context.Context, entry *models.CacheEntry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO related_cache (cache_key, payload, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			payload = excluded.payload,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		entry.Key, string(payload), entry.ExpiresAt.UnixMilli(),
		entry.CreatedAt.UnixMilli(), entry.UpdatedAt.UnixMilli(),
	)
	return err
}

// PurgeExpiredCache deletes entries that expired before now.
func (s *SQLiteStore) PurgeExpiredCache(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM related_cache WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetQuota returns the counter for a provider on a date, zero if absent.
func (s *SQLiteStore) GetQuota(ctx context.Context, date, provider string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT count FROM quota_counters WHERE date = ? AND provider = ?`, date, provider).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return count, err
}

// IncrementQuota atomically bumps the counter, creating it on first use.
func (s *SQLiteStore) IncrementQuota(ctx context.Context, date, provider string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO quota_counters (date, provider, count) VALUES (?, ?, 1)
		ON CONFLICT(date, provider) DO UPDATE SET count = count + 1`, date, provider)
	return err
}

// PurgeQuotaBefore removes counters older than date.
func (s *SQLiteStore) PurgeQuotaBefore(ctx context.Context, date string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM quota_counters WHERE date < ?`, date)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// AttachVerdict stores the latest verdict for a content record.
func (s *SQLiteStore) AttachVerdict(ctx context.Context, v *models.StoredVerdict) error {
	sourcesJSON, err := json.Marshal(v.Sources)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verdicts (news_id, label, confidence, explanation, evidence_summary, sources,
			model_used_summary, model_used_verdict, checked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(news_id) DO UPDATE SET
			label = excluded.label,
			confidence = excluded.confidence,
			explanation = excluded.explanation,
			evidence_summary = excluded.evidence_summary,
			sources = excluded.sources,
			model_used_summary = excluded.model_used_summary,
			model_used_verdict = excluded.model_used_verdict,
			checked_at = excluded.checked_at`,
		v.NewsID, string(v.Verdict.Label), v.Verdict.Confidence, v.Verdict.Explanation,
		v.EvidenceSummary, string(sourcesJSON), string(v.ModelUsedSummary),
		string(v.ModelUsedVerdict), v.CheckedAt.UnixMilli(),
	)
	return err
}

// GetVerdict retrieves the verdict attached to a content record.
func (s *SQLiteStore) GetVerdict(ctx context.Context, newsID string) (*models.StoredVerdict, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT news_id, label, confidence, explanation, evidence_summary, sources,
			model_used_summary, model_used_verdict, checked_at
		FROM verdicts WHERE news_id = ?`, newsID)

	var v models.StoredVerdict
	var label, sourcesJSON, usedSummary, usedVerdict string
	var checkedAt int64
	err := row.Scan(&v.NewsID, &label, &v.Verdict.Confidence, &v.Verdict.Explanation,
		&v.EvidenceSummary, &sourcesJSON, &usedSummary, &usedVerdict, &checkedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sourcesJSON), &v.Sources); err != nil {
		return nil, fmt.Errorf("corrupt verdict sources for %s: %w", newsID, err)
	}
	v.Verdict.Label = models.Label(label)
	v.ModelUsedSummary = models.ModelUsed(usedSummary)
	v.ModelUsedVerdict = models.ModelUsed(usedVerdict)
	v.CheckedAt = time.UnixMilli(checkedAt).UTC()
	return &v, nil
}
