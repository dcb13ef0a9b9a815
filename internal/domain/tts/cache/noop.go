package cache

import "context"

type noopStore struct{}

// NewNoop builds a cache that stores nothing. Every lookup misses.
func NewNoop() Store {
	return noopStore{}
}

func (noopStore) Get(context.Context, string) (Entry, bool, error) { return Entry{}, false, nil }

func (noopStore) Put(context.Context, string, string, Entry) error { return nil }

func (noopStore) CleanupExpired(context.Context) error { return nil }

func (noopStore) Stats(context.Context) (map[string]any, error) {
	return map[string]any{"driver": DriverNone}, nil
}

func (noopStore) Close(context.Context) error { return nil }
