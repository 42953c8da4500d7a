package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/satyashield/satyashield/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type cacheRow struct {
	CacheKey  string    `gorm:"primaryKey;size:64"`
	Payload   string    `gorm:"type:mediumtext;not null"`
	ExpiresAt time.Time `gorm:"index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (cacheRow) TableName() string { return "related_cache" }

type quotaRow struct {
	Date     string `gorm:"primaryKey;size:10"`
	Provider string `gorm:"primaryKey;size:32"`
	Count    int    `gorm:"not null"`
}

func (quotaRow) TableName() string { return "quota_counters" }

type verdictRow struct {
	NewsID           string  `gorm:"primaryKey;size:128"`
	Label            string  `gorm:"size:16;not null"`
	Confidence       float64 `gorm:"not null"`
	Explanation      string  `gorm:"type:text"`
	EvidenceSummary  string  `gorm:"type:text"`
	Sources          string  `gorm:"type:mediumtext"`
	ModelUsedSummary string  `gorm:"size:16"`
	ModelUsedVerdict string  `gorm:"size:16"`
	CheckedAt        time.Time
}

func (verdictRow) TableName() string { return "verdicts" }

// MySQLStore implements Store on MySQL through gorm.
type MySQLStore struct {
	db *gorm.DB
}

// NewMySQLStore opens a MySQL connection and migrates the schema.
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	dsn = ensureParam(dsn, "parseTime", "true")
	if !strings.Contains(dsn, "charset=") {
		dsn = ensureParam(dsn, "charset", "utf8mb4")
	}

	gormLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("mysql: %w", err)
	}

	s := &MySQLStore{db: db}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

func ensureParam(dsn, key, val string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + val
}

func (s *MySQLStore) Migrate() error {
	return s.db.AutoMigrate(&cacheRow{}, &quotaRow{}, &verdictRow{})
}

func (s *MySQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *MySQLStore) GetCache(ctx context.Context, key string) (*models.CacheEntry, error) {
	var row cacheRow
	err := s.db.WithContext(ctx).First(&row, "cache_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	entry := &models.CacheEntry{
		Key:       row.CacheKey,
		ExpiresAt: row.ExpiresAt.UTC(),
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
	if err := json.Unmarshal([]byte(row.Payload), &entry.Payload); err != nil {
		return nil, fmt.Errorf("corrupt cache payload for %s: %w", key, err)
	}
	return entry, nil
}

func (s *MySQLStore) PutCache(ctx context.Context, entry *models.CacheEntry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return err
	}
	row := cacheRow{
		CacheKey:  entry.Key,
		Payload:   string(payload),
		ExpiresAt: entry.ExpiresAt,
		CreatedAt: entry.CreatedAt,
		UpdatedAt: entry.UpdatedAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "expires_at", "updated_at"}),
	}).Create(&row).Error
}

func (s *MySQLStore) PurgeExpiredCache(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&cacheRow{})
	return res.RowsAffected, res.Error
}

func (s *MySQLStore) GetQuota(ctx context.Context, date, provider string) (int, error) {
	var row quotaRow
	err := s.db.WithContext(ctx).First(&row, "date = ? AND provider = ?", date, provider).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return row.Count, err
}

func (s *MySQLStore) IncrementQuota(ctx context.Context, date, provider string) error {
	row := quotaRow{Date: date, Provider: provider, Count: 1}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "date"}, {Name: "provider"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"count": gorm.Expr("count + 1")}),
	}).Create(&row).Error
}

func (s *MySQLStore) PurgeQuotaBefore(ctx context.Context, date string) (int64, error) {
	res := s.db.WithContext(ctx).Where("date < ?", date).Delete(&quotaRow{})
	return res.RowsAffected, res.Error
}

func (s *MySQLStore) AttachVerdict(ctx context.Context, v *models.StoredVerdict) error {
	sources, err := json.Marshal(v.Sources)
	if err != nil {
		return err
	}
	row := verdictRow{
		NewsID:           v.NewsID,
		Label:            string(v.Verdict.Label),
		Confidence:       v.Verdict.Confidence,
		Explanation:      v.Verdict.Explanation,
		EvidenceSummary:  v.EvidenceSummary,
		Sources:          string(sources),
		ModelUsedSummary: string(v.ModelUsedSummary),
		ModelUsedVerdict: string(v.ModelUsedVerdict),
		CheckedAt:        v.CheckedAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}

func (s *MySQLStore) GetVerdict(ctx context.Context, newsID string) (*models.StoredVerdict, error) {
	var row verdictRow
	err := s.db.WithContext(ctx).First(&row, "news_id = ?", newsID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	v := &models.StoredVerdict{
		NewsID: row.NewsID,
		Verdict: models.Verdict{
			Label:       models.Label(row.Label),
			Confidence:  row.Confidence,
			Explanation: row.Explanation,
		},
		EvidenceSummary:  row.EvidenceSummary,
		ModelUsedSummary: models.ModelUsed(row.ModelUsedSummary),
		ModelUsedVerdict: models.ModelUsed(row.ModelUsedVerdict),
		CheckedAt:        row.CheckedAt.UTC(),
	}
	json.Unmarshal([]byte(row.Sources), &v.Sources)
	return v, nil
}
