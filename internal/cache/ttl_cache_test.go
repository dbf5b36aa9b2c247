package cache

import (
	"testing"
	"time"
)

func TestTTLCacheSetGet(t *testing.T) {
	cache := NewTTLCache[string, int](2, time.Second)
	cache.Set("a", 1)

	value, ok := cache.Get("a")
	if !ok || value != 1 {
		t.Fatalf("expected 1, got %d (ok=%v)", value, ok)
	}
}

func TestTTLCacheEvictsLeastRecentlyUsed(t *testing.T) {
	cache := NewTTLCache[string, int](2, time.Second)
	cache.Set("a", 1)
	cache.Set("b", 2)
	cache.Get("a")
	cache.Set("c", 3)

	if _, ok := cache.Get("b"); ok {
		t.Fatalf("expected key 'b' to be evicted")
	}
	if value, ok := cache.Get("a"); !ok || value != 1 {
		t.Fatalf("expected key 'a' to remain")
	}
	if value, ok := cache.Get("c"); !ok || value != 3 {
		t.Fatalf("expected key 'c' to remain")
	}
}

func TestTTLCacheExpires(t *testing.T) {
	now := time.Unix(1000, 0)
	cache := NewTTLCacheWithClock[string, string](4, time.Minute, func() time.Time { return now })
	cache.Set("k", "v")

	now = now.Add(30 * time.Second)
	if _, ok := cache.Get("k"); !ok {
		t.Fatalf("expected value before ttl")
	}

	now = now.Add(31 * time.Second)
	if _, ok := cache.Get("k"); ok {
		t.Fatalf("expected value to expire")
	}
	if cache.Len() != 0 {
		t.Fatalf("expired entry should be removed, len=%d", cache.Len())
	}
}

func TestTTLCacheDeleteAndPurge(t *testing.T) {
	cache := NewTTLCache[int, int](8, time.Minute)
	for i := range 4 {
		cache.Set(i, i)
	}
	cache.Delete(0)
	if cache.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", cache.Len())
	}
	cache.Purge()
	if cache.Len() != 0 {
		t.Fatalf("expected empty cache, got %d", cache.Len())
	}
	cache.Set(9, 9)
	if v, ok := cache.Get(9); !ok || v != 9 {
		t.Fatalf("cache should be usable after purge")
	}
}

func TestTTLCacheModifyKeepsExpiry(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cache := NewTTLCacheWithClock[string, int](4, time.Minute, func() time.Time { return now })

	inc := func(current int, _ bool) int { return current + 1 }
	if got, _ := cache.Modify("k", inc); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
	now = now.Add(40 * time.Second)
	if got, _ := cache.Modify("k", inc); got != 2 {
		t.Fatalf("expected 2, got %d", got)
	}
	now = now.Add(30 * time.Second)
	if got, _ := cache.Modify("k", inc); got != 1 {
		t.Fatalf("expected counter to restart after expiry, got %d", got)
	}
	if _, ok := cache.Modify("k", nil); ok {
		t.Fatalf("nil modifier should be rejected")
	}
}
