package reliability

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testCache(cfg CacheConfig) *Cache {
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = -1 // lazy expiry only; no goroutine to leak
	}
	return NewCache(cfg)
}

// ─── Basic behaviour ───────────────────────────────────────────────

func TestCacheSetGet(t *testing.T) {
	c := testCache(CacheConfig{TTL: time.Minute})
	defer c.Stop()

	c.Set("component:HouseGain", map[string]any{"Name": "HouseGain"})

	v, ok := c.Get("component:HouseGain")
	if !ok {
		t.Fatal("Get() miss for freshly set key")
	}
	if v.(map[string]any)["Name"] != "HouseGain" {
		t.Errorf("Get() = %v, want stored value", v)
	}

	if _, ok := c.Get("component:Other"); ok {
		t.Error("Get() hit for unknown key")
	}
}

func TestCacheTTLExpiry(t *testing.T) {
	c := testCache(CacheConfig{TTL: 20 * time.Millisecond})
	defer c.Stop()

	c.Set("k", "v")
	if _, ok := c.Get("k"); !ok {
		t.Fatal("Get() miss before TTL")
	}

	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("Get() hit after TTL expiry")
	}

	stats := c.Stats()
	if stats.Expirations != 1 {
		t.Errorf("Expirations = %d, want 1", stats.Expirations)
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := testCache(CacheConfig{TTL: time.Minute})
	defer c.Stop()

	c.Set("control:HouseGain.gain", float64(-10))
	c.Invalidate("control:HouseGain.gain")

	if _, ok := c.Get("control:HouseGain.gain"); ok {
		t.Error("Get() hit after Invalidate")
	}
}

func TestCacheClear(t *testing.T) {
	c := testCache(CacheConfig{TTL: time.Minute})
	defer c.Stop()

	c.Set("a", 1)
	c.Set("b", 2)
	c.Clear()

	if stats := c.Stats(); stats.Entries != 0 || stats.Bytes != 0 {
		t.Errorf("Stats after Clear = %+v, want empty", stats)
	}
}

// ─── Eviction ──────────────────────────────────────────────────────

func TestCacheEvictsLRUOnSizeCeiling(t *testing.T) {
	// Each entry is roughly key + 64 overhead + payload; a 1 KiB ceiling
	// holds only a few 200-byte payloads.
	c := testCache(CacheConfig{TTL: time.Minute, MaxBytes: 1024})
	defer c.Stop()

	payload := strings.Repeat("x", 200)
	c.Set("a", payload)
	c.Set("b", payload)
	c.Set("c", payload)

	// Touch "a" so "b" becomes least recently used.
	if _, ok := c.Get("a"); !ok {
		t.Fatal("Get(a) miss")
	}

	c.Set("d", payload)

	if _, ok := c.Get("b"); ok {
		t.Error("LRU entry survived eviction")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry was evicted")
	}
	if c.Stats().Evictions == 0 {
		t.Error("Evictions = 0, want > 0")
	}
}

func TestCacheEvictsOnEntryCap(t *testing.T) {
	c := testCache(CacheConfig{TTL: time.Minute, MaxEntries: 3})
	defer c.Stop()

	for _, k := range []string{"a", "b", "c", "d"} {
		c.Set(k, k)
	}

	if got := c.Stats().Entries; got != 3 {
		t.Errorf("Entries = %d, want 3", got)
	}
	if _, ok := c.Get("a"); ok {
		t.Error("oldest entry survived entry-cap eviction")
	}
}

// ─── Read-through & dedup ──────────────────────────────────────────

func TestCacheGetOrLoad(t *testing.T) {
	c := testCache(CacheConfig{TTL: time.Minute})
	defer c.Stop()

	var loads atomic.Int32
	loader := func(context.Context) (any, error) {
		loads.Add(1)
		return "loaded", nil
	}

	for range 3 {
		v, err := c.GetOrLoad(context.Background(), "k", loader)
		if err != nil {
			t.Fatalf("GetOrLoad() error = %v", err)
		}
		if v != "loaded" {
			t.Errorf("GetOrLoad() = %v, want %q", v, "loaded")
		}
	}
	if got := loads.Load(); got != 1 {
		t.Errorf("loader calls = %d, want 1", got)
	}
}

func TestCacheGetOrLoadErrorNotCached(t *testing.T) {
	c := testCache(CacheConfig{TTL: time.Minute})
	defer c.Stop()

	var loads atomic.Int32
	wantErr := errors.New("core unreachable")
	_, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (any, error) {
		loads.Add(1)
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("GetOrLoad() error = %v, want %v", err, wantErr)
	}

	// A later load runs again; the failure was not cached.
	if _, err := c.GetOrLoad(context.Background(), "k", func(context.Context) (any, error) {
		loads.Add(1)
		return "ok", nil
	}); err != nil {
		t.Fatalf("GetOrLoad() error = %v", err)
	}
	if got := loads.Load(); got != 2 {
		t.Errorf("loader calls = %d, want 2", got)
	}
}

func TestCacheConcurrentLoadsDeduplicated(t *testing.T) {
	c := testCache(CacheConfig{TTL: time.Minute})
	defer c.Stop()

	var loads atomic.Int32
	gate := make(chan struct{})
	loader := func(context.Context) (any, error) {
		loads.Add(1)
		<-gate
		return "shared", nil
	}

	var wg sync.WaitGroup
	results := make([]any, 10)
	for i := range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.GetOrLoad(context.Background(), "k", loader)
			if err != nil {
				t.Errorf("GetOrLoad() error = %v", err)
				return
			}
			results[i] = v
		}()
	}

	// Give every goroutine time to queue behind the in-flight load.
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	if got := loads.Load(); got != 1 {
		t.Errorf("loader calls = %d, want 1 (in-flight dedup)", got)
	}
	for i, v := range results {
		if v != "shared" {
			t.Errorf("results[%d] = %v, want shared result", i, v)
		}
	}
}

// ─── Sweeper ───────────────────────────────────────────────────────

func TestCacheSweeperRemovesExpired(t *testing.T) {
	c := NewCache(CacheConfig{TTL: 10 * time.Millisecond, SweepInterval: 15 * time.Millisecond})
	defer c.Stop()

	c.Set("k", "v")
	time.Sleep(40 * time.Millisecond)

	// Entry count drops without any Get touching the key.
	if got := c.Stats().Entries; got != 0 {
		t.Errorf("Entries = %d after sweep, want 0", got)
	}
}

func TestCacheStopIdempotent(t *testing.T) {
	c := NewCache(CacheConfig{})
	c.Stop()
	c.Stop() // must not panic
}
