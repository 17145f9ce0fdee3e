// internal/cache/lru.go
//
// Expiring LRU cache for list results.
//
// Context
// -------
// The team and paper list views are read far more often than they change.
// Each entry holds a value and an absolute expiry; entries leave the cache
// when they expire, when capacity forces out the least-recently-used one,
// or when the owning store invalidates every key under its resource prefix
// after a committed mutation.
//
// Load coalesces concurrent misses for the same key through singleflight,
// so a burst of requests after invalidation issues one query.
//
// Notes
// -----
// • Keys are "<resource>:<query>" strings, e.g. "team:public".
// • Oxford commas, two spaces after periods.
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/acmlab/labsite/internal/metrics"
)

// Cache is safe for concurrent use.
type Cache struct {
	mu   sync.Mutex
	cap  int
	ttl  time.Duration
	ll   *list.List
	dict map[string]*list.Element
	sfg  singleflight.Group

	// gen bumps on every invalidation so a load that started before the
	// invalidation does not repopulate stale data.
	gen uint64

	now func() time.Time
}

type entry struct {
	key string
	val any
	exp time.Time
}

// New returns a Cache with the given capacity and TTL.  Panics on
// capacity < 1.
func New(capacity int, ttl time.Duration) *Cache {
	if capacity < 1 {
		panic("cache: capacity must be ≥1")
	}
	return &Cache{
		cap:  capacity,
		ttl:  ttl,
		ll:   list.New(),
		dict: make(map[string]*list.Element, capacity),
		now:  time.Now,
	}
}

// SetClock replaces the wall clock.  Tests only.
func (c *Cache) SetClock(now func() time.Time) {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
}

// Get returns a live value and marks it most-recently-used.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ele, hit := c.dict[key]
	if !hit {
		return nil, false
	}
	e := ele.Value.(*entry)
	if !c.now().Before(e.exp) {
		c.removeElement(ele)
		return nil, false
	}
	c.ll.MoveToFront(ele)
	return e.val, true
}

// Add inserts or replaces a value with a fresh expiry.
func (c *Cache) Add(key string, val any) {
	c.mu.Lock()
	c.addLocked(key, val)
	c.mu.Unlock()
}

func (c *Cache) addLocked(key string, val any) {
	exp := c.now().Add(c.ttl)
	if ele, hit := c.dict[key]; hit {
		ele.Value = &entry{key: key, val: val, exp: exp}
		c.ll.MoveToFront(ele)
		return
	}
	c.dict[key] = c.ll.PushFront(&entry{key: key, val: val, exp: exp})
	if c.ll.Len() > c.cap {
		c.removeElement(c.ll.Back())
	}
}

// Load returns the cached value for key or calls load once for all
// concurrent callers and caches its result.  Errors are not cached.
func (c *Cache) Load(key string, load func() (any, error)) (any, error) {
	resource, _, _ := strings.Cut(key, ":")
	if v, ok := c.Get(key); ok {
		metrics.ListCacheHitsTotal.WithLabelValues(resource).Inc()
		return v, nil
	}
	metrics.ListCacheMissesTotal.WithLabelValues(resource).Inc()

	v, err, _ := c.sfg.Do(key, func() (any, error) {
		c.mu.Lock()
		gen := c.gen
		c.mu.Unlock()

		val, err := load()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		if gen == c.gen {
			c.addLocked(key, val)
		}
		c.mu.Unlock()
		return val, nil
	})
	return v, err
}

// InvalidatePrefix drops every key starting with prefix.
func (c *Cache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	n := 0
	for k, ele := range c.dict {
		if strings.HasPrefix(k, prefix) {
			c.removeElement(ele)
			n++
		}
	}
	return n
}

// Len reports the number of entries, expired ones included until touched.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

func (c *Cache) removeElement(ele *list.Element) {
	c.ll.Remove(ele)
	delete(c.dict, ele.Value.(*entry).key)
}
