// Package storage owns the SQLite database handle and the persisted
// record models shared by the domain layers.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SynthesisRecord is one cached synthesis result.
type SynthesisRecord struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	CacheKey   string     `gorm:"uniqueIndex;not null" json:"cache_key"`
	Variant    string     `gorm:"index;not null" json:"variant"`
	Audio      []byte     `gorm:"not null" json:"-"`
	SampleRate int        `gorm:"not null" json:"sample_rate"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  *time.Time `gorm:"index" json:"expires_at"`
}

func (SynthesisRecord) TableName() string {
	return "synthesis_records"
}

// Open initializes a SQLite database at dsn and migrates the schema.
// Parent directories are created as needed.
func Open(dsn string) (*gorm.DB, error) {
	if dir := filepath.Dir(dsn); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.AutoMigrate(&SynthesisRecord{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}
