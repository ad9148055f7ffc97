package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(size int, ttl time.Duration) (*LRUCache[string], *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUCacheGetSet(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("expected hit, got %q %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("expected miss")
	}
	s := c.Stats()
	if s.Hits != 1 || s.Misses != 1 || s.Size != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestLRUCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // b is now the oldest
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Fatalf("b should have been evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("a should survive")
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUCacheTTL(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	clock.advance(30 * time.Second)
	c.Set("b", "2") // refreshed

	clock.advance(31 * time.Second)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("a should have expired")
	}
	if n := c.CleanExpired(); n != 0 {
		t.Fatalf("b is still live, cleaned %d", n)
	}
	clock.advance(time.Minute)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected 1 cleaned, got %d", n)
	}
}

func TestLRUCacheDeletePrefix(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	c.Set("alice|all", "x")
	c.Set("alice|2024-01-01..2024-01-31", "y")
	c.Set("alicia|all", "z")
	c.Set("bob|all", "w")

	if n := c.DeletePrefix("alice|"); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if _, ok := c.Get("alicia|all"); !ok {
		t.Fatalf("prefix must respect the separator")
	}
	if c.Size() != 2 {
		t.Fatalf("expected 2 left, got %d", c.Size())
	}
}

func TestLRUCacheConcurrentAccess(t *testing.T) {
	c := NewLRUCache[int](100, time.Minute)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%150)
				c.Set(key, i)
				c.Get(key)
				if i%50 == 0 {
					c.DeletePrefix("k1")
				}
			}
		}(g)
	}
	wg.Wait()
	if c.Size() > 100 {
		t.Fatalf("size %d exceeds bound", c.Size())
	}
}

func TestManagerSweepAndStop(t *testing.T) {
	c, clock := newTestCache(10, time.Second)
	c.Set("a", "1")
	clock.advance(2 * time.Second)

	m := NewManager()
	m.Register("summary", c)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("expected 1 swept, got %d", n)
	}

	// Stop without Start must not block
	m.Stop()

	m2 := NewManager()
	m2.StartCleanup(time.Millisecond)
	m2.StartCleanup(time.Millisecond)
	m2.Stop()
	m2.Stop()
}
