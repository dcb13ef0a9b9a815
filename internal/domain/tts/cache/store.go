// Package cache stores finished synthesis results so repeated requests
// for the same text and voice skip the model entirely.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Entry is one cached synthesis result.
type Entry struct {
	Audio      []byte
	SampleRate int
}

// Store is the behaviour required by the model manager.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Put(ctx context.Context, variant, key string, entry Entry) error
	CleanupExpired(ctx context.Context) error
	Stats(ctx context.Context) (map[string]any, error)
	Close(ctx context.Context) error
}

// Config describes the high level store selection parameters.
type Config struct {
	Driver string
	TTL    time.Duration
	Redis  *RedisConfig
	SQLite *SQLiteConfig
	Memory *MemoryConfig
}

// MemoryConfig holds in-memory tuning knobs.
type MemoryConfig struct {
	GCInterval time.Duration
}

// SQLiteConfig provides the database dependency.
type SQLiteConfig struct {
	DSN string
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}

// Key derives the cache key for a synthesis request. voiceDigest is a
// content hash of the reference voice, empty for the built-in voice.
func Key(variant, text, languageID, voiceDigest string) string {
	h := sha256.New()
	h.Write([]byte(variant))
	h.Write([]byte{0})
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(languageID))
	h.Write([]byte{0})
	h.Write([]byte(voiceDigest))
	return hex.EncodeToString(h.Sum(nil))
}
