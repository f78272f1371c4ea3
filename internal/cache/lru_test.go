package cache

import (
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(size int, ttl time.Duration) (*LRUCache[bool], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[bool](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUGetSet(t *testing.T) {
	c, _ := newTestCache(4, time.Minute)
	if _, ok := c.Get("habitos"); ok {
		t.Fatal("empty cache returned a hit")
	}
	c.Set("habitos", true)
	if v, ok := c.Get("habitos"); !ok || !v {
		t.Fatalf("Get = %v, %v", v, ok)
	}
	c.Delete("habitos")
	if c.Size() != 0 {
		t.Fatalf("size = %d after delete", c.Size())
	}
}

func TestLRUExpiry(t *testing.T) {
	c, clock := newTestCache(4, time.Minute)
	c.Set("gym", true)
	clock.advance(30 * time.Second)
	if _, ok := c.Get("gym"); !ok {
		t.Fatal("entry expired early")
	}
	clock.advance(31 * time.Second)
	if _, ok := c.Get("gym"); ok {
		t.Fatal("entry should have expired")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry not removed, size = %d", c.Size())
	}
}

func TestLRUEviction(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", true)
	c.Set("b", true)
	c.Get("a")
	c.Set("c", true)
	if _, ok := c.Get("b"); ok {
		t.Fatal("least recently used entry was kept")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("recently used entry was evicted")
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUStats(t *testing.T) {
	c, _ := newTestCache(1, time.Minute)
	c.Set("a", true)
	c.Get("a")
	c.Get("missing")
	c.Set("b", true)

	want := Stats{Hits: 1, Misses: 1, Evictions: 1}
	if got := c.Stats(); got != want {
		t.Fatalf("Stats = %+v, want %+v", got, want)
	}
}

func TestLRUCleanExpiredAndPurge(t *testing.T) {
	c, clock := newTestCache(8, time.Minute)
	c.Set("a", true)
	clock.advance(2 * time.Minute)
	c.Set("b", true)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired = %d, want 1", n)
	}
	c.Purge()
	if c.Size() != 0 {
		t.Fatalf("size after purge = %d", c.Size())
	}
}

func TestManagerStopIsIdempotent(t *testing.T) {
	m := NewManager()
	c, _ := newTestCache(1, time.Minute)
	m.Register(c)
	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()

	NewManager().Stop()
}
