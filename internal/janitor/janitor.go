// Package janitor periodically removes expired cache entries and old quota counters.
package janitor

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/satyashield/satyashield/internal/cache"
)

// Purger is the store surface the janitor cleans.
type Purger interface {
	PurgeExpiredCache(ctx context.Context, now time.Time) (int64, error)
	PurgeQuotaBefore(ctx context.Context, date string) (int64, error)
}

// Janitor runs purges on a cron schedule.
type Janitor struct {
	stores   []Purger
	keepDays int
	cron     *cron.Cron
	now      func() time.Time
}

// New creates a janitor for schedule (standard cron or @every descriptors).
func New(schedule string, keepDays int, stores ...Purger) (*Janitor, error) {
	j := &Janitor{stores: stores, keepDays: keepDays, cron: cron.New(), now: time.Now}
	if _, err := j.cron.AddFunc(schedule, func() { j.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}
	return j, nil
}

// Start begins running on schedule.
func (j *Janitor) Start() {
	j.cron.Start()
	log.Info().Int("stores", len(j.stores)).Msg("Janitor started")
}

// Stop halts the schedule and waits for a running purge to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// RunOnce purges every store now and returns the rows removed.
func (j *Janitor) RunOnce(ctx context.Context) int64 {
	now := j.now()
	cutoff := cache.DateKey(now.AddDate(0, 0, -j.keepDays))

	var total int64
	for _, s := range j.stores {
		if n, err := s.PurgeExpiredCache(ctx, now); err != nil {
			log.Error().Err(err).Msg("Failed to purge expired cache")
		} else {
			total += n
		}
		if n, err := s.PurgeQuotaBefore(ctx, cutoff); err != nil {
			log.Error().Err(err).Msg("Failed to purge quota counters")
		} else {
			total += n
		}
	}
	if total > 0 {
		log.Info().Int64("rows", total).Str("quota_cutoff", cutoff).Msg("Janitor purged rows")
	}
	return total
}
