package cache

import (
	"testing"
	"time"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLRUEviction(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a missing")
	}
	c.Set("c", 3)
	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted as least recently used")
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	clk := &clock{t: time.Unix(0, 0)}
	c := NewLRUCache[string](10, time.Minute)
	c.now = clk.now
	c.Set("k", "v")
	c.Set("other", "v")
	clk.advance(30 * time.Second)
	c.Set("other", "v2")
	clk.advance(45 * time.Second)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expected k to expire")
	}
	if removed := c.CleanExpired(); removed != 0 {
		t.Fatalf("removed = %d, want 0 (k already dropped on read)", removed)
	}
	clk.advance(time.Minute)
	if removed := c.CleanExpired(); removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
}

func TestLRUInvalidate(t *testing.T) {
	c := NewLRUCache[string](10, time.Minute)
	c.Set("k", "v")
	if !c.Invalidate("k") {
		t.Fatal("expected invalidate to find k")
	}
	if _, ok := c.Get("k"); ok {
		t.Fatal("invalid entry must miss on Get")
	}
	e, ok := c.Peek("k")
	if !ok || !e.Invalid || e.Value != "v" {
		t.Fatalf("peek = %+v, %v", e, ok)
	}
	c.Set("k", "v2")
	if v, ok := c.Get("k"); !ok || v != "v2" {
		t.Fatal("Set must clear the invalid mark")
	}
	if c.Invalidate("missing") {
		t.Fatal("invalidate of a missing key must report false")
	}
}
