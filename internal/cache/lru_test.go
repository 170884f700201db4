package cache

import (
	"testing"
	"time"
)

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU[int64, string](3, time.Hour)
	c.Set(1, "a")
	c.Set(2, "b")
	c.Set(3, "c")
	c.Get(1) // 2 is now the oldest
	c.Set(4, "d")

	if _, ok := c.Get(2); ok {
		t.Fatalf("expected key 2 to be evicted")
	}
	for _, k := range []int64{1, 3, 4} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("expected key %d to be present", k)
		}
	}
	if c.Len() != 3 {
		t.Fatalf("Len = %d", c.Len())
	}
}

func TestLRUExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRU[string, int](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("x", 1)
	c.Set("y", 2)
	if v, ok := c.Get("x"); !ok || v != 1 {
		t.Fatalf("Get before expiry = %d, %v", v, ok)
	}

	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("x"); ok {
		t.Fatalf("expected x to expire")
	}
	if n := NewJanitor(c).Sweep(); n != 1 {
		t.Fatalf("Sweep removed %d, want 1", n)
	}
	if c.Len() != 0 {
		t.Fatalf("Len after sweep = %d", c.Len())
	}

	hits, misses := c.Stats()
	if hits != 1 || misses != 1 {
		t.Fatalf("stats = %d/%d", hits, misses)
	}
}

func TestLRUDeleteAndOverwrite(t *testing.T) {
	c := NewLRU[string, int](2, time.Hour)
	c.Set("a", 1)
	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Fatalf("overwrite lost, got %d", v)
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatalf("delete failed")
	}
}
