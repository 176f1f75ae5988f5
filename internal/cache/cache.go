// Package cache implements a content-addressed, TTL-bounded, size-bounded,
// thread-safe, persistable cache keyed by canonicalized SimulationInputs.
// Snapshots are written atomically (temp file, fsync, rename) and an
// AutoSaver drives periodic persistence.
package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/wealthpath/goalengine/internal/models"
)

// Config configures cache sizing and eviction behavior.
type Config struct {
	MaxEntries int
	TTL        time.Duration
	Disabled   bool
}

type entry struct {
	key       Key
	value     models.TrialArray
	createdAt time.Time
}

// Cache supports many readers, serialized writers, and a separate lock for
// snapshot I/O that never blocks reads.
type Cache struct {
	mu           sync.RWMutex
	snapMu       sync.Mutex // guards Save/Load only; never held during Get/Put
	cfg          Config
	log          zerolog.Logger
	entries      map[Key]*list.Element // list.Element.Value is *entry
	order        *list.List            // front = most recently used
	hits         int64
	misses       int64
	inMemoryOnly bool // set true after a corrupted load; never crashes the caller
}

// New builds an empty Cache per cfg.
func New(cfg Config, log zerolog.Logger) *Cache {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 100
	}
	if cfg.TTL <= 0 {
		cfg.TTL = time.Hour
	}
	return &Cache{
		cfg:     cfg,
		log:     log,
		entries: make(map[Key]*list.Element),
		order:   list.New(),
	}
}

// Get returns the cached TrialArray for key, or (zero, false) on a miss —
// including a miss for an entry whose TTL has elapsed, which is lazily
// evicted.
func (c *Cache) Get(key Key) (models.TrialArray, bool) {
	if c.cfg.Disabled {
		return models.TrialArray{}, false
	}

	c.mu.RLock()
	elem, ok := c.entries[key]
	if !ok {
		c.mu.RUnlock()
		c.recordMiss()
		return models.TrialArray{}, false
	}
	e := elem.Value.(*entry)
	expired := time.Since(e.createdAt) > c.cfg.TTL
	value := e.value
	c.mu.RUnlock()

	if expired {
		c.mu.Lock()
		// Re-check under the write lock: another writer may have refreshed
		// this key between our RUnlock and Lock.
		if elem, ok := c.entries[key]; ok {
			if elem.Value.(*entry).createdAt.Equal(e.createdAt) {
				c.order.Remove(elem)
				delete(c.entries, key)
			}
		}
		c.mu.Unlock()
		c.recordMiss()
		return models.TrialArray{}, false
	}

	c.mu.Lock()
	if elem, ok := c.entries[key]; ok {
		c.order.MoveToFront(elem)
	}
	c.mu.Unlock()
	c.recordHit()
	return value, true
}

// Put stores value under key, evicting the least-recently-used entry if the
// cache is at capacity.
func (c *Cache) Put(key Key, value models.TrialArray) {
	if c.cfg.Disabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		elem.Value.(*entry).value = value
		elem.Value.(*entry).createdAt = time.Now()
		c.order.MoveToFront(elem)
		return
	}

	e := &entry{key: key, value: value, createdAt: time.Now()}
	elem := c.order.PushFront(e)
	c.entries[key] = elem

	c.evictOverCapacityLocked()
}

// evictOverCapacityLocked removes least-recently-used entries until the
// cache fits MaxEntries again. Callers must hold c.mu for writing.
func (c *Cache) evictOverCapacityLocked() {
	for len(c.entries) > c.cfg.MaxEntries {
		back := c.order.Back()
		if back == nil {
			break
		}
		victim := back.Value.(*entry)
		c.order.Remove(back)
		delete(c.entries, victim.key)
	}
}

// Configure adjusts the cache's sizing and lifetime settings at runtime.
// Zero-valued fields leave the current setting unchanged; shrinking
// MaxEntries evicts least-recently-used entries immediately, and a shorter
// TTL takes effect lazily on the next Get of each entry.
func (c *Cache) Configure(cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cfg.MaxEntries > 0 {
		c.cfg.MaxEntries = cfg.MaxEntries
		c.evictOverCapacityLocked()
	}
	if cfg.TTL > 0 {
		c.cfg.TTL = cfg.TTL
	}
}

func (c *Cache) recordHit() {
	c.mu.Lock()
	c.hits++
	c.mu.Unlock()
}

func (c *Cache) recordMiss() {
	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
}

// Stats is a point-in-time snapshot of cache hit/miss counters and sizing.
type Stats struct {
	Size       int
	Hits       int64
	Misses     int64
	HitRate    float64
	TTLSeconds int
	MaxEntries int
}

func (c *Cache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	total := c.hits + c.misses
	hitRate := 0.0
	if total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return Stats{
		Size:       len(c.entries),
		Hits:       c.hits,
		Misses:     c.misses,
		HitRate:    hitRate,
		TTLSeconds: int(c.cfg.TTL.Seconds()),
		MaxEntries: c.cfg.MaxEntries,
	}
}

// Invalidate clears the whole cache (pattern == "") or every key with the
// given prefix — prefix covers the common case; Key is an opaque hash, so
// prefix matching is the most a caller can meaningfully request without a
// separate tag index.
func (c *Cache) Invalidate(pattern string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pattern == "" {
		c.entries = make(map[Key]*list.Element)
		c.order = list.New()
		return
	}

	for key, elem := range c.entries {
		if len(pattern) <= len(key) && string(key[:len(pattern)]) == pattern {
			c.order.Remove(elem)
			delete(c.entries, key)
		}
	}
}
