package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/satyashield/satyashield/internal/config"
	"github.com/satyashield/satyashield/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	exerciseStore(t, store)
}

func TestSQLiteStoreOpenFailureReleasesHandle(t *testing.T) {
	defer goleak.VerifyNone(t)

	// A directory cannot be opened as a database file.
	_, err := NewSQLiteStore(t.TempDir())
	assert.Error(t, err)
}

func TestSQLiteStoreReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	first, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := NewSQLiteStore(path)
	require.NoError(t, err)
	assert.NoError(t, second.Migrate())
	assert.NoError(t, second.Close())
}

func TestSQLiteStoreCorruptVerdictSources(t *testing.T) {
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	require.NoError(t, store.AttachVerdict(ctx, &models.StoredVerdict{
		NewsID:    "n1",
		Verdict:   models.Verdict{Label: models.LabelReal, Confidence: 0.7, Explanation: "ok"},
		CheckedAt: time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
	}))
	_, err = store.db.ExecContext(ctx, `UPDATE verdicts SET sources = ? WHERE news_id = ?`, "[{not json", "n1")
	require.NoError(t, err)

	_, err = store.GetVerdict(ctx, "n1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt verdict sources")
}

func TestOpenMemory(t *testing.T) {
	store, err := Open(context.Background(), configFor("memory"))
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, store)

	_, err = Open(context.Background(), configFor("postgres"))
	assert.Error(t, err)
}

func configFor(driver string) config.DatabaseConfig {
	return config.DatabaseConfig{Driver: driver}
}

func exerciseStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

	t.Run("cache miss", func(t *testing.T) {
		_, err := s.GetCache(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("cache upsert keeps created_at", func(t *testing.T) {
		first := &models.CacheEntry{
			Key:       "k1",
			Payload:   []models.EvidenceRecord{{Title: "a", URL: "https://a.example/1", Source: "a.example"}},
			ExpiresAt: base.Add(3 * time.Hour),
			CreatedAt: base,
			UpdatedAt: base,
		}
		require.NoError(t, s.PutCache(ctx, first))

		second := &models.CacheEntry{
			Key: "k1",
			Payload: []models.EvidenceRecord{
				{Title: "b", URL: "https://b.example/2"},
				{Title: "c", URL: "https://c.example/3", PublishedAt: "2026-10-14T08:00:00Z"},
			},
			ExpiresAt: base.Add(4 * time.Hour),
			CreatedAt: base.Add(time.Hour),
			UpdatedAt: base.Add(time.Hour),
		}
		require.NoError(t, s.PutCache(ctx, second))

		got, err := s.GetCache(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, second.Payload, got.Payload)
		assert.True(t, got.CreatedAt.Equal(base), "created_at %v", got.CreatedAt)
		assert.True(t, got.UpdatedAt.Equal(base.Add(time.Hour)))
		assert.True(t, got.ExpiresAt.Equal(base.Add(4*time.Hour)))
	})

	t.Run("purge expired cache", func(t *testing.T) {
		require.NoError(t, s.PutCache(ctx, &models.CacheEntry{
			Key:       "old",
			Payload:   []models.EvidenceRecord{{URL: "https://old.example"}},
			ExpiresAt: base.Add(-time.Minute),
			CreatedAt: base.Add(-time.Hour),
			UpdatedAt: base.Add(-time.Hour),
		}))
		n, err := s.PurgeExpiredCache(ctx, base)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		_, err = s.GetCache(ctx, "old")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.GetCache(ctx, "k1")
		assert.NoError(t, err)
	})

	t.Run("quota counters", func(t *testing.T) {
		count, err := s.GetQuota(ctx, "2026-10-15", "google")
		require.NoError(t, err)
		assert.Zero(t, count)

		for i := 0; i < 3; i++ {
			require.NoError(t, s.IncrementQuota(ctx, "2026-10-15", "google"))
		}
		require.NoError(t, s.IncrementQuota(ctx, "2026-10-14", "google"))
		require.NoError(t, s.IncrementQuota(ctx, "2026-10-15", "other"))

		count, err = s.GetQuota(ctx, "2026-10-15", "google")
		require.NoError(t, err)
		assert.Equal(t, 3, count)

		n, err := s.PurgeQuotaBefore(ctx, "2026-10-15")
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		count, err = s.GetQuota(ctx, "2026-10-14", "google")
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("verdicts", func(t *testing.T) {
		_, err := s.GetVerdict(ctx, "news-1")
		assert.ErrorIs(t, err, ErrNotFound)

		v := &models.StoredVerdict{
			NewsID:           "news-1",
			Verdict:          models.Verdict{Label: models.LabelReal, Confidence: 0.8, Explanation: "ok"},
			EvidenceSummary:  "summary",
			Sources:          []models.EvidenceRecord{{Title: "t", URL: "https://nasa.gov/x", Source: "nasa.gov"}},
			ModelUsedSummary: models.ModelFallback,
			ModelUsedVerdict: models.ModelNone,
			CheckedAt:        base,
		}
		require.NoError(t, s.AttachVerdict(ctx, v))

		v2 := *v
		v2.Verdict = models.Verdict{Label: models.LabelFake, Confidence: 0.9, Explanation: "contradicted"}
		require.NoError(t, s.AttachVerdict(ctx, &v2))

		got, err := s.GetVerdict(ctx, "news-1")
		require.NoError(t, err)
		assert.Equal(t, v2.Verdict, got.Verdict)
		assert.Equal(t, v2.Sources, got.Sources)
		assert.Equal(t, models.ModelFallback, got.ModelUsedSummary)
		assert.True(t, got.CheckedAt.Equal(base))
	})
}
