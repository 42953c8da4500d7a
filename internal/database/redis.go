package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/satyashield/satyashield/internal/models"
)

const (
	cachePrefix = "related:"
	quotaPrefix = "quota:"

	// Counters only need to outlive the day they count.
	quotaRetention = 48 * time.Hour
)

// RedisStore implements CacheStore and QuotaStore on Redis. Keys carry their
// own expiry, so purging is a no-op.
type RedisStore struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedisStore connects to the Redis instance at url.
func NewRedisStore(ctx context.Context, url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb, now: time.Now}, nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) GetCache(ctx context.Context, key string) (*models.CacheEntry, error) {
	raw, err := s.rdb.Get(ctx, cachePrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var entry models.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, fmt.Errorf("corrupt cache payload for %s: %w", key, err)
	}
	return &entry, nil
}

func (s *RedisStore) PutCache(ctx context.Context, entry *models.CacheEntry) error {
	ttl := entry.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	e := *entry
	if existing, err := s.GetCache(ctx, entry.Key); err == nil {
		e.CreatedAt = existing.CreatedAt
	}
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, cachePrefix+entry.Key, raw, ttl).Err()
}

func (s *RedisStore) PurgeExpiredCache(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (s *RedisStore) GetQuota(ctx context.Context, date, provider string) (int, error) {
	raw, err := s.rdb.Get(ctx, quotaPrefix+provider+":"+date).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(raw)
}

func (s *RedisStore) IncrementQuota(ctx context.Context, date, provider string) error {
	key := quotaPrefix + provider + ":" + date
	pipe := s.rdb.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, quotaRetention)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStore) PurgeQuotaBefore(context.Context, string) (int64, error) {
	return 0, nil
}
