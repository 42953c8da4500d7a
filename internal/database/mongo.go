package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/satyashield/satyashield/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements Store on MongoDB. Cache expiry is also enforced by a
// TTL index on expires_at, so PurgeExpiredCache usually has nothing left to do.
type MongoStore struct {
	client   *mongo.Client
	database *mongo.Database
	cache    *mongo.Collection
	quota    *mongo.Collection
	verdicts *mongo.Collection
}

// NewMongoStore connects to MongoDB and ensures indexes.
func NewMongoStore(ctx context.Context, uri, name string) (*MongoStore, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("can't ping MongoDB: %w", err)
	}

	db := client.Database(name)
	s := &MongoStore{
		client:   client,
		database: db,
		cache:    db.Collection("related_cache"),
		quota:    db.Collection("quota_counters"),
		verdicts: db.Collection("verdicts"),
	}
	if err := s.Migrate(); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("can't create indexes: %w", err)
	}
	return s, nil
}

// Migrate creates the indexes the store relies on.
func (s *MongoStore) Migrate() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := s.cache.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return err
	}

	_, err = s.quota.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "date", Value: 1}, {Key: "provider", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) GetCache(ctx context.Context, key string) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	err := s.cache.FindOne(ctx, bson.M{"_id": key}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *MongoStore) PutCache(ctx context.Context, entry *models.CacheEntry) error {
	update := bson.M{
		"$set": bson.M{
			"payload":    entry.Payload,
			"expires_at": entry.ExpiresAt,
			"updated_at": entry.UpdatedAt,
		},
		"$setOnInsert": bson.M{"created_at": entry.CreatedAt},
	}
	_, err := s.cache.UpdateOne(ctx, bson.M{"_id": entry.Key}, update, options.Update().SetUpsert(true))
	return err
}

func (s *MongoStore) PurgeExpiredCache(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.cache.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": now}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) GetQuota(ctx context.Context, date, provider string) (int, error) {
	var counter models.QuotaCounter
	err := s.quota.FindOne(ctx, bson.M{"date": date, "provider": provider}).Decode(&counter)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return counter.Count, nil
}

func (s *MongoStore) IncrementQuota(ctx context.Context, date, provider string) error {
	_, err := s.quota.UpdateOne(ctx,
		bson.M{"date": date, "provider": provider},
		bson.M{"$inc": bson.M{"count": 1}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *MongoStore) PurgeQuotaBefore(ctx context.Context, date string) (int64, error) {
	res, err := s.quota.DeleteMany(ctx, bson.M{"date": bson.M{"$lt": date}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (s *MongoStore) AttachVerdict(ctx context.Context, v *models.StoredVerdict) error {
	_, err := s.verdicts.ReplaceOne(ctx, bson.M{"_id": v.NewsID}, v, options.Replace().SetUpsert(true))
	return err
}

func (s *MongoStore) GetVerdict(ctx context.Context, newsID string) (*models.StoredVerdict, error) {
	var v models.StoredVerdict
	err := s.verdicts.FindOne(ctx, bson.M{"_id": newsID}).Decode(&v)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
