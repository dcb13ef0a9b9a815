package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(Config{TTL: time.Minute})
	t.Cleanup(func() { _ = store.Close(ctx) })

	key := Key("turbo", "hello world", "", "")
	entry := Entry{Audio: []byte("RIFFfake"), SampleRate: 24000}

	if _, ok, err := store.Get(ctx, key); err != nil || ok {
		t.Fatalf("expected miss on empty cache, ok=%v err=%v", ok, err)
	}
	if err := store.Put(ctx, "turbo", key, entry); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, key)
	if err != nil || !ok {
		t.Fatalf("expected hit, ok=%v err=%v", ok, err)
	}
	if got.SampleRate != 24000 || string(got.Audio) != "RIFFfake" {
		t.Fatalf("unexpected entry: %+v", got)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats["entries"] != 1 {
		t.Errorf("entries = %v, want 1", stats["entries"])
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemory(Config{TTL: 30 * time.Millisecond})
	t.Cleanup(func() { _ = store.Close(ctx) })

	key := Key("turbo", "expiring", "", "")
	if err := store.Put(ctx, "turbo", key, Entry{Audio: []byte("x"), SampleRate: 1}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, ok, _ := store.Get(ctx, key); ok {
		t.Fatal("entry should have expired")
	}
	if err := store.CleanupExpired(ctx); err != nil {
		t.Fatalf("CleanupExpired: %v", err)
	}
	stats, _ := store.Stats(ctx)
	if stats["entries"] != 0 {
		t.Errorf("entries = %v after cleanup", stats["entries"])
	}
}

func TestKeyIsStableAndDistinct(t *testing.T) {
	a := Key("turbo", "hello", "", "")
	if a != Key("turbo", "hello", "", "") {
		t.Error("key is not deterministic")
	}
	distinct := []string{
		Key("original", "hello", "", ""),
		Key("turbo", "hello!", "", ""),
		Key("turbo", "hello", "ko", ""),
		Key("turbo", "hello", "", "digest"),
	}
	for i, k := range distinct {
		if k == a {
			t.Errorf("variation %d collided with base key", i)
		}
	}
}
