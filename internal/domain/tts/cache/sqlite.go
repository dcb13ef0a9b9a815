package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/leechanwoo-kor/chatterbox/internal/platform/storage"
)

type sqliteStore struct {
	db  *gorm.DB
	ttl time.Duration
}

// NewSQLite builds a SQLite-backed synthesis cache.
func NewSQLite(db *gorm.DB, cfg Config) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite cache requires database handle")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &sqliteStore{db: db, ttl: ttl}, nil
}

func (s *sqliteStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	var record storage.SynthesisRecord
	err := s.db.WithContext(ctx).Where("cache_key = ?", key).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	if record.ExpiresAt != nil && time.Now().After(*record.ExpiresAt) {
		return Entry{}, false, nil
	}
	return Entry{Audio: record.Audio, SampleRate: record.SampleRate}, true, nil
}

func (s *sqliteStore) Put(ctx context.Context, variant, key string, entry Entry) error {
	now := time.Now()
	expires := now.Add(s.ttl)

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cache_key = ?", key).Delete(&storage.SynthesisRecord{}).Error; err != nil {
			return err
		}
		record := &storage.SynthesisRecord{
			CacheKey:   key,
			Variant:    variant,
			Audio:      entry.Audio,
			SampleRate: entry.SampleRate,
			CreatedAt:  now,
			ExpiresAt:  &expires,
		}
		return tx.Create(record).Error
	})
}

func (s *sqliteStore) CleanupExpired(ctx context.Context) error {
	return s.db.WithContext(ctx).
		Where("expires_at IS NOT NULL AND expires_at < ?", time.Now()).
		Delete(&storage.SynthesisRecord{}).
		Error
}

func (s *sqliteStore) Stats(ctx context.Context) (map[string]any, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&storage.SynthesisRecord{}).Count(&count).Error; err != nil {
		return nil, err
	}
	return map[string]any{
		"driver":  DriverSQLite,
		"entries": count,
	}, nil
}

func (s *sqliteStore) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
