package tilecache

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"
)

func testCache(t *testing.T, ttl time.Duration) *SQLiteCache {
	t.Helper()
	cache, err := New(Config{Path: filepath.Join(t.TempDir(), "tiles.db"), TTL: ttl})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestCacheSetGet(t *testing.T) {
	cache := testCache(t, time.Hour)
	ctx := context.Background()

	tile := []byte("png bytes")
	if err := cache.Set(ctx, "k1", 8, 42, 100, tile, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok, err := cache.Get(ctx, "k1", 8, 42, 100)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok || !bytes.Equal(got, tile) {
		t.Errorf("Get = %q %v, want stored tile", got, ok)
	}
}

func TestCacheMiss(t *testing.T) {
	cache := testCache(t, time.Hour)

	_, ok, err := cache.Get(context.Background(), "absent", 0, 0, 0)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("expected a miss")
	}
}

func TestCacheKeysAreIndependent(t *testing.T) {
	cache := testCache(t, time.Hour)
	ctx := context.Background()

	_ = cache.Set(ctx, "a", 1, 0, 0, []byte("A"), 0)
	_ = cache.Set(ctx, "b", 1, 0, 0, []byte("B"), 0)

	got, ok, _ := cache.Get(ctx, "b", 1, 0, 0)
	if !ok || string(got) != "B" {
		t.Errorf("Get(b) = %q %v, want B", got, ok)
	}
}

func TestCacheExpiry(t *testing.T) {
	cache := testCache(t, time.Hour)
	ctx := context.Background()

	if err := cache.Set(ctx, "k", 1, 0, 0, []byte("old"), -time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, ok, _ := cache.Get(ctx, "k", 1, 0, 0); ok {
		t.Error("expired tile should miss")
	}

	removed, err := cache.Prune(ctx)
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("Prune removed %d, want 1", removed)
	}
}

func TestCacheOverwrite(t *testing.T) {
	cache := testCache(t, time.Hour)
	ctx := context.Background()

	_ = cache.Set(ctx, "k", 1, 0, 0, []byte("v1"), 0)
	_ = cache.Set(ctx, "k", 1, 0, 0, []byte("v2"), 0)

	got, _, _ := cache.Get(ctx, "k", 1, 0, 0)
	if string(got) != "v2" {
		t.Errorf("Get = %q, want v2", got)
	}
}

func TestKeyStability(t *testing.T) {
	k1 := Key("item", "B01,B02", "expr")
	k2 := Key("item", "B01,B02", "expr")
	k3 := Key("item", "B01", "expr")

	if k1 != k2 {
		t.Error("identical inputs must produce identical keys")
	}
	if k1 == k3 {
		t.Error("different inputs must produce different keys")
	}
	if len(k1) != 16 {
		t.Errorf("key length = %d, want 16 hex chars", len(k1))
	}
}
