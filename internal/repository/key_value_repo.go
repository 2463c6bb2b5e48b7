package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-grader/internal/models"
)

// KeyValueRepository is the durable string-keyed store behind the archive and settings.
type KeyValueRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// NewGormKeyValueRepository constructs a key value store on top of a SQL table.
func NewGormKeyValueRepository(db *gorm.DB) KeyValueRepository {
	return &gormKeyValueRepository{db: db}
}

type gormKeyValueRepository struct {
	db *gorm.DB
}

func (r *gormKeyValueRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var entry models.KeyValue
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, nil
		}
		return "", false, err
	}
	return entry.Value, true, nil
}

func (r *gormKeyValueRepository) Set(ctx context.Context, key, value string) error {
	entry := models.KeyValue{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

func (r *gormKeyValueRepository) Remove(ctx context.Context, key string) error {
	return r.db.WithContext(ctx).Where("key = ?", key).Delete(&models.KeyValue{}).Error
}

// NewRedisKeyValueRepository stores entries as plain redis strings under a key prefix.
func NewRedisKeyValueRepository(client *redis.Client, prefix string) KeyValueRepository {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "grader:"
	}
	return &redisKeyValueRepository{client: client, prefix: prefix}
}

type redisKeyValueRepository struct {
	client *redis.Client
	prefix string
}

func (r *redisKeyValueRepository) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, r.prefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return value, true, nil
}

func (r *redisKeyValueRepository) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.prefix+key, value, 0).Err()
}

func (r *redisKeyValueRepository) Remove(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// NewMemoryKeyValueRepository keeps entries in process memory only.
func NewMemoryKeyValueRepository() KeyValueRepository {
	return &memoryKeyValueRepository{entries: map[string]string{}}
}

type memoryKeyValueRepository struct {
	mu      sync.RWMutex
	entries map[string]string
}

func (r *memoryKeyValueRepository) Get(_ context.Context, key string) (string, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	value, ok := r.entries[key]
	return value, ok, nil
}

func (r *memoryKeyValueRepository) Set(_ context.Context, key, value string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = value
	return nil
}

func (r *memoryKeyValueRepository) Remove(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
	return nil
}
