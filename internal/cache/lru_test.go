package cache

import (
	"strings"
	"testing"
	"time"
)

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUCacheExpiry(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewLRUCache[string](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(30 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("entry expired too early")
	}
	now = now.Add(2 * time.Minute)
	c.Set("other", "v")
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry returned")
	}
}

func TestLRUCacheZeroTTLNeverExpires(t *testing.T) {
	now := time.Now()
	c := NewLRUCache[int](1, 0)
	c.now = func() time.Time { return now }
	c.Set("k", 1)
	now = now.Add(24 * time.Hour)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("zero TTL should not expire")
	}
}

func TestLRUCacheDeleteFunc(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)
	c.Set("summary:1:2025-01", 1)
	c.Set("summary:1:2025-02", 2)
	c.Set("summary:2:2025-01", 3)

	removed := c.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, "summary:1:") })
	if removed != 2 || c.Size() != 1 {
		t.Fatalf("removed = %d size = %d", removed, c.Size())
	}
	if _, ok := c.Get("summary:2:2025-01"); !ok {
		t.Fatal("other user's entry should remain")
	}
}

func TestManagerStopIsIdempotent(t *testing.T) {
	m := NewManager()
	m.Register(NewLRUCache[int](1, time.Second))
	m.StartCleanup(10 * time.Millisecond)
	m.Stop()
	m.Stop()

	unstarted := NewManager()
	unstarted.Stop()
}
