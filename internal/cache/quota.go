package cache

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/satyashield/satyashield/internal/database"
)

// DateKey formats the UTC calendar date used to bucket quota counters.
func DateKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// Ledger gates a rate-limited provider on a persisted per-day counter.
type Ledger struct {
	store    database.QuotaStore
	provider string
	limit    int
	now      func() time.Time
}

// NewLedger creates a ledger for provider allowing calls while the day's
// count stays below limit (the daily quota minus its safety buffer).
func NewLedger(store database.QuotaStore, provider string, limit int) *Ledger {
	return &Ledger{store: store, provider: provider, limit: limit, now: time.Now}
}

// WithClock replaces the time source, for tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Limit returns the effective daily limit.
func (l *Ledger) Limit() int {
	return l.limit
}

// Count returns today's count.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	return l.store.GetQuota(ctx, DateKey(l.now()), l.provider)
}

// Allow reports whether the provider may be called today. An unreadable
// ledger denies the call.
func (l *Ledger) Allow(ctx context.Context) (bool, int) {
	count, err := l.Count(ctx)
	if err != nil {
		log.Warn().Err(err).Str("provider", l.provider).Msg("Quota ledger unreadable, skipping provider")
		return false, 0
	}
	return count < l.limit, count
}

// Increment records one successful call for today.
func (l *Ledger) Increment(ctx context.Context) error {
	return l.store.IncrementQuota(ctx, DateKey(l.now()), l.provider)
}
