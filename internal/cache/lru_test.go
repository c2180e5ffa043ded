package cache

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// fakeClock lets tests move time forward without sleeping.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func newTestCache(maxEntries int, ttl time.Duration) (*LRU[string], *fakeClock) {
	c := New[string](Config{Name: "test", MaxEntries: maxEntries, TTL: ttl, Logger: testLogger()})
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c.now = clock.now
	return c, clock
}

func TestNew_Defaults(t *testing.T) {
	c := New[int](Config{})
	if c.config.TTL != 5*time.Minute {
		t.Errorf("expected default TTL 5m, got %v", c.config.TTL)
	}
	if c.config.Name != "cache" {
		t.Errorf("expected default name, got %q", c.config.Name)
	}
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
}

func TestLRU_SetAndGet(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)

	c.Set("key1", "value1")

	val, ok := c.Get("key1")
	if !ok || val != "value1" {
		t.Fatalf("expected value1, got %q (found=%v)", val, ok)
	}
	if _, ok := c.Get("key2"); ok {
		t.Error("expected key2 to be missing")
	}

	m := c.Metrics()
	if m.Hits != 1 || m.Misses != 1 {
		t.Errorf("expected 1 hit and 1 miss, got %+v", m)
	}
	if m.HitRate() != 50 {
		t.Errorf("expected 50%% hit rate, got %f", m.HitRate())
	}
}

func TestLRU_Expiration(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)

	c.Set("key1", "value1")
	c.SetWithTTL("key2", "value2", time.Hour)

	clock.t = clock.t.Add(2 * time.Minute)

	if _, ok := c.Get("key1"); ok {
		t.Error("expected key1 to have expired")
	}
	if _, ok := c.Get("key2"); !ok {
		t.Error("expected key2 to survive with its longer TTL")
	}
	if c.Metrics().Expirations != 1 {
		t.Errorf("expected 1 expiration, got %d", c.Metrics().Expirations)
	}
}

func TestLRU_Eviction(t *testing.T) {
	c, _ := newTestCache(2, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	c.Get("a") // a becomes most recently used
	c.Set("c", "3")

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to remain")
	}
	if c.Metrics().Evictions != 1 {
		t.Errorf("expected 1 eviction, got %d", c.Metrics().Evictions)
	}
}

func TestLRU_UpdateRefreshesTTL(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)

	c.Set("k", "old")
	clock.t = clock.t.Add(50 * time.Second)
	c.Set("k", "new")
	clock.t = clock.t.Add(50 * time.Second)

	val, ok := c.Get("k")
	if !ok || val != "new" {
		t.Errorf("expected refreshed value, got %q (found=%v)", val, ok)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
}

func TestLRU_DeleteAndClear(t *testing.T) {
	c, _ := newTestCache(10, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")

	if !c.Delete("a") {
		t.Error("expected delete to report presence")
	}
	if c.Delete("a") {
		t.Error("expected second delete to report absence")
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("expected empty cache, got %d", c.Len())
	}
	c.Set("c", "3")
	if _, ok := c.Get("c"); !ok {
		t.Error("expected cache to be usable after Clear")
	}
}

func TestLRU_Cleanup(t *testing.T) {
	c, clock := newTestCache(10, time.Minute)

	c.Set("a", "1")
	c.Set("b", "2")
	c.SetWithTTL("c", "3", time.Hour)
	clock.t = clock.t.Add(2 * time.Minute)

	if removed := c.Cleanup(); removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry left, got %d", c.Len())
	}
}

func TestLRU_Concurrent(t *testing.T) {
	c := New[int](Config{MaxEntries: 50, TTL: time.Minute, Logger: testLogger()})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%100)
				c.Set(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("expected at most 50 entries, got %d", c.Len())
	}
}
