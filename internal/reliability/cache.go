package reliability

import (
	"container/list"
	"context"
	"encoding/json"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Default cache policy values.
const (
	defaultTTL           = 5 * time.Second
	defaultMaxBytes      = 8 << 20 // 8 MiB
	defaultMaxEntries    = 1024
	defaultSweepInterval = 30 * time.Second

	// entryOverhead approximates per-entry bookkeeping cost beyond the
	// serialised payload.
	entryOverhead = 64

	// fallbackEntrySize is charged when a value cannot be serialised for
	// estimation.
	fallbackEntrySize = 256
)

// CacheConfig holds response cache configuration.
type CacheConfig struct {
	// TTL is how long an entry stays valid. Default: 5 seconds.
	TTL time.Duration

	// MaxBytes is the memory ceiling across all entries, using serialised
	// size estimates. Default: 8 MiB.
	MaxBytes int64

	// MaxEntries caps the entry count regardless of size. Default: 1024.
	MaxEntries int

	// SweepInterval is how often expired entries are swept in the
	// background. Zero disables the sweeper (expiry still applies lazily).
	SweepInterval time.Duration
}

// withDefaults fills zero fields with the default policy. A negative
// SweepInterval disables the background sweeper.
func (c CacheConfig) withDefaults() CacheConfig {
	if c.TTL <= 0 {
		c.TTL = defaultTTL
	}
	if c.MaxBytes <= 0 {
		c.MaxBytes = defaultMaxBytes
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = defaultMaxEntries
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = defaultSweepInterval
	}
	return c
}

// CacheStats holds cache observability counters.
type CacheStats struct {
	Entries     int     `json:"entries"`
	Bytes       int64   `json:"bytes"`
	Hits        uint64  `json:"hits"`
	Misses      uint64  `json:"misses"`
	Evictions   uint64  `json:"evictions"`
	Expirations uint64  `json:"expirations"`
	HitRate     float64 `json:"hit_rate"`
}

// cacheEntry is one cached response with its bookkeeping.
type cacheEntry struct {
	key        string
	value      any
	insertedAt time.Time
	size       int64
}

// Cache is a bounded, TTL'd response cache for idempotent reads.
//
// Entries expire after the TTL (checked lazily on access and swept in the
// background), are evicted least-recently-used first when the estimated
// memory ceiling or entry cap is exceeded, and are invalidated explicitly by
// writes touching the same key. Concurrent identical reads are deduplicated
// into a single upstream load via singleflight.
//
// Thread Safety: all methods are safe for concurrent use. Call Stop to halt
// the background sweeper.
type Cache struct {
	cfg CacheConfig

	mu         sync.Mutex
	ll         *list.List
	items      map[string]*list.Element
	totalBytes int64

	hits        uint64
	misses      uint64
	evictions   uint64
	expirations uint64

	group singleflight.Group

	// Shutdown coordination (stopOnce prevents double-close panics)
	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

// NewCache creates a cache and starts its background sweeper (unless the
// configured sweep interval is negative). Call Stop when done.
func NewCache(cfg CacheConfig) *Cache {
	c := &Cache{
		cfg:   cfg.withDefaults(),
		ll:    list.New(),
		items: make(map[string]*list.Element),
		done:  make(chan struct{}),
	}
	if c.cfg.SweepInterval > 0 {
		c.wg.Add(1)
		go c.sweepLoop()
	}
	return c
}

// Get returns the cached value for key if present and unexpired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if time.Since(entry.insertedAt) >= c.cfg.TTL {
		c.removeElement(elem)
		c.expirations++
		c.misses++
		return nil, false
	}
	c.ll.MoveToFront(elem)
	c.hits++
	return entry.value, true
}

// Set stores a value under key, replacing any existing entry, then evicts
// least-recently-used entries until the size and count ceilings hold.
func (c *Cache) Set(key string, value any) {
	size := estimateSize(key, value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}

	entry := &cacheEntry{key: key, value: value, insertedAt: time.Now(), size: size}
	c.items[key] = c.ll.PushFront(entry)
	c.totalBytes += size

	for (c.totalBytes > c.cfg.MaxBytes || c.ll.Len() > c.cfg.MaxEntries) && c.ll.Len() > 1 {
		oldest := c.ll.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
		c.evictions++
	}
}

// GetOrLoad returns the cached value for key, or runs loader to populate it.
// Concurrent calls for the same key share a single loader invocation and its
// result. Loader errors are returned to all waiters and nothing is cached.
func (c *Cache) GetOrLoad(ctx context.Context, key string, loader func(ctx context.Context) (any, error)) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		// Another waiter may have populated the entry while this call was
		// queued behind an in-flight load.
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})
	return v, err
}

// Invalidate removes the entry for key, if present.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear removes every entry. Counters are preserved.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll.Init()
	c.items = make(map[string]*list.Element)
	c.totalBytes = 0
}

// Stop halts the background sweeper. Safe to call multiple times; the cache
// itself remains usable afterwards.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() {
		close(c.done)
		c.wg.Wait()
	})
}

// Stats returns current cache statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := CacheStats{
		Entries:     c.ll.Len(),
		Bytes:       c.totalBytes,
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
	}
	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
	}
	return stats
}

// removeElement unlinks an entry. Callers hold c.mu.
func (c *Cache) removeElement(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	c.ll.Remove(elem)
	delete(c.items, entry.key)
	c.totalBytes -= entry.size
}

// sweepLoop periodically removes expired entries.
func (c *Cache) sweepLoop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

// sweep removes all expired entries in one pass.
func (c *Cache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	var next *list.Element
	for elem := c.ll.Front(); elem != nil; elem = next {
		next = elem.Next()
		entry := elem.Value.(*cacheEntry)
		if time.Since(entry.insertedAt) >= c.cfg.TTL {
			c.removeElement(elem)
			c.expirations++
		}
	}
}

// estimateSize approximates an entry's memory cost from its serialised form.
func estimateSize(key string, value any) int64 {
	size := int64(len(key) + entryOverhead)
	if data, err := json.Marshal(value); err == nil {
		size += int64(len(data))
	} else {
		size += fallbackEntrySize
	}
	return size
}
