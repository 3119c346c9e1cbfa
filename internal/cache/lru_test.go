package cache

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(size int, ttl time.Duration) (*LRUCache[int], *fakeClock) {
	clock := &fakeClock{t: time.Date(2023, 2, 23, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](size, ttl)
	c.now = clock.now
	return c, clock
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)
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

func TestLRUExpiry(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	clock.advance(30 * time.Second)
	c.Set("b", 20)
	clock.advance(45 * time.Second)

	if _, ok := c.Get("a"); ok {
		t.Fatal("a should have expired")
	}
	if v, ok := c.Get("b"); !ok || v != 20 {
		t.Fatalf("b = %v, %v", v, ok)
	}

	clock.advance(time.Hour)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired removed %d", n)
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Size != 0 {
		t.Fatalf("unexpected stats: %+v", st)
	}
}

func TestLRUDeleteFunc(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)
	c.Set("default|2023-02-23|5", 1)
	c.Set("default|2023-02-23|30", 2)
	c.Set("plan|2023-02-23|5", 3)

	if n := c.DeleteFunc(func(k string) bool { return strings.HasPrefix(k, "default|") }); n != 2 {
		t.Fatalf("removed %d", n)
	}
	c.Delete("missing")
	if c.Size() != 1 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUConcurrentAccess(t *testing.T) {
	c := NewLRUCache[int](16, time.Minute)
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := range 100 {
				key := string(rune('a' + (i+j)%20))
				c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()
	if c.Size() > 16 {
		t.Fatalf("size %d exceeds capacity", c.Size())
	}
}

func TestManager(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)
	c.Set("a", 1)
	clock.advance(2 * time.Minute)

	m := NewManager(nil)
	m.Register(c)
	if n := m.CleanNow(); n != 1 {
		t.Fatalf("CleanNow removed %d", n)
	}

	m.StartCleanup(context.Background(), time.Millisecond)
	m.StartCleanup(context.Background(), time.Millisecond)
	m.Stop()
	m.Stop()

	NewManager(nil).Stop()
}
