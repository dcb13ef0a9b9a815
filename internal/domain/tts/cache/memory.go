package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	entry     Entry
	expiresAt time.Time
}

type memoryStore struct {
	items       map[string]memoryEntry
	mutex       sync.RWMutex
	ttl         time.Duration
	cleanupFreq time.Duration
	stop        chan struct{}
	stopOnce    sync.Once
	hits        uint64
	misses      uint64
}

// NewMemory builds an in-memory synthesis cache.
func NewMemory(cfg Config) Store {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	cleanup := 5 * time.Minute
	if cfg.Memory != nil && cfg.Memory.GCInterval > 0 {
		cleanup = cfg.Memory.GCInterval
	}
	s := &memoryStore{
		items:       make(map[string]memoryEntry),
		ttl:         ttl,
		cleanupFreq: cleanup,
		stop:        make(chan struct{}),
	}
	go s.gcLoop()
	return s
}

func (s *memoryStore) gcLoop() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			_ = s.CleanupExpired(context.Background())
		case <-s.stop:
			return
		}
	}
}

func (s *memoryStore) Get(_ context.Context, key string) (Entry, bool, error) {
	s.mutex.RLock()
	item, ok := s.items[key]
	s.mutex.RUnlock()
	if !ok || time.Now().After(item.expiresAt) {
		s.mutex.Lock()
		s.misses++
		s.mutex.Unlock()
		return Entry{}, false, nil
	}
	s.mutex.Lock()
	s.hits++
	s.mutex.Unlock()
	return item.entry, true, nil
}

func (s *memoryStore) Put(_ context.Context, _, key string, entry Entry) error {
	s.mutex.Lock()
	s.items[key] = memoryEntry{entry: entry, expiresAt: time.Now().Add(s.ttl)}
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) CleanupExpired(_ context.Context) error {
	now := time.Now()
	s.mutex.Lock()
	for key, item := range s.items {
		if now.After(item.expiresAt) {
			delete(s.items, key)
		}
	}
	s.mutex.Unlock()
	return nil
}

func (s *memoryStore) Stats(_ context.Context) (map[string]any, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return map[string]any{
		"driver":  DriverMemory,
		"entries": len(s.items),
		"hits":    s.hits,
		"misses":  s.misses,
	}, nil
}

func (s *memoryStore) Close(_ context.Context) error {
	s.stopOnce.Do(func() { close(s.stop) })
	return nil
}
