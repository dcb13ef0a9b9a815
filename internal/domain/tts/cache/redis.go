package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
}

type redisEntry struct {
	Audio      []byte `json:"audio"`
	SampleRate int    `json:"sample_rate"`
}

// NewRedis constructs a redis-backed synthesis cache.
func NewRedis(cfg Config) (Store, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	opts := &redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}
	client := redis.NewClient(opts)

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "tts:cache:"
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &redisStore{
		client: client,
		ttl:    ttl,
		prefix: prefix,
	}, nil
}

func (s *redisStore) key(k string) string {
	return s.prefix + k
}

func (s *redisStore) Get(ctx context.Context, key string) (Entry, bool, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}
	var stored redisEntry
	if err := sonic.Unmarshal(data, &stored); err != nil {
		return Entry{}, false, err
	}
	return Entry{Audio: stored.Audio, SampleRate: stored.SampleRate}, true, nil
}

func (s *redisStore) Put(ctx context.Context, _, key string, entry Entry) error {
	data, err := sonic.Marshal(redisEntry{Audio: entry.Audio, SampleRate: entry.SampleRate})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), data, s.ttl).Err()
}

// CleanupExpired is a no-op; redis expires keys on its own.
func (s *redisStore) CleanupExpired(context.Context) error {
	return nil
}

func (s *redisStore) Stats(ctx context.Context) (map[string]any, error) {
	var cursor uint64
	count := 0
	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return nil, err
		}
		count += len(keys)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return map[string]any{
		"driver":  DriverRedis,
		"entries": count,
	}, nil
}

func (s *redisStore) Close(context.Context) error {
	return s.client.Close()
}
