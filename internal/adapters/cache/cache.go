// Package cache keeps recently built profiles so repeat lookups for the same
// holder skip the ownership source.
package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/affinity/internal/domain/model"
	"github.com/okian/affinity/pkg/metrics"
)

// ProfileCache stores profiles by key. Cached profiles are shared read-only.
type ProfileCache interface {
	// Get returns the cached profile for key if present and not expired.
	Get(ctx context.Context, key string) (model.Profile, bool)
	// Put stores p under key, evicting the oldest entry when full.
	Put(ctx context.Context, key string, p model.Profile)
	// Invalidate drops key.
	Invalidate(ctx context.Context, key string)

	Size() int64
}

// node is one entry in the insertion-ordered list.
type node struct {
	key        string
	profile    model.Profile
	expiresAt  time.Time
	prev, next *node
}

func (n *node) reset() {
	*n = node{}
}

// inMemoryCache keeps entries in a map plus a doubly linked list ordered
// newest first. When full, the tail (oldest insertion) is evicted.
// maxSize <= 0 disables caching: Put stores nothing and Get always misses.
type inMemoryCache struct {
	mu       sync.Mutex
	entries  map[string]*node
	head     *node
	tail     *node
	maxSize  int
	ttl      time.Duration
	now      func() time.Time
	size     atomic.Int64
	nodePool sync.Pool
}

// NewProfileCache creates an in-memory profile cache.
func NewProfileCache(opts ...Option) ProfileCache {
	c := &inMemoryCache{
		maxSize: 10_000,
		ttl:     time.Minute,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.entries = make(map[string]*node)
	c.nodePool = sync.Pool{
		New: func() interface{} {
			return &node{}
		},
	}
	return c
}

func (c *inMemoryCache) disabled() bool {
	return c.maxSize <= 0
}

func (c *inMemoryCache) Get(_ context.Context, key string) (model.Profile, bool) {
	if c.disabled() {
		return model.Profile{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	n, ok := c.entries[key]
	if !ok {
		metrics.RecordProfileCacheMiss()
		return model.Profile{}, false
	}
	if c.ttl > 0 && !c.now().Before(n.expiresAt) {
		c.remove(n)
		metrics.RecordProfileCacheMiss()
		return model.Profile{}, false
	}
	metrics.RecordProfileCacheHit()
	return n.profile, true
}

func (c *inMemoryCache) Put(_ context.Context, key string, p model.Profile) {
	if c.disabled() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if n, ok := c.entries[key]; ok {
		n.profile = p
		n.expiresAt = expiresAt
		return
	}

	if len(c.entries) >= c.maxSize {
		c.remove(c.tail)
	}

	n := c.nodePool.Get().(*node)
	n.key = key
	n.profile = p
	n.expiresAt = expiresAt
	n.next = c.head
	if c.head != nil {
		c.head.prev = n
	}
	c.head = n
	if c.tail == nil {
		c.tail = n
	}
	c.entries[key] = n
	c.size.Add(1)
	metrics.UpdateProfileCacheSize(len(c.entries))
}

func (c *inMemoryCache) Invalidate(_ context.Context, key string) {
	if c.disabled() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if n, ok := c.entries[key]; ok {
		c.remove(n)
	}
}

// remove unlinks n in constant time. Must be called with c.mu held.
func (c *inMemoryCache) remove(n *node) {
	if n == nil {
		return
	}
	delete(c.entries, n.key)
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		c.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		c.tail = n.prev
	}
	n.reset()
	c.nodePool.Put(n)
	c.size.Add(-1)
	metrics.UpdateProfileCacheSize(len(c.entries))
}

func (c *inMemoryCache) Size() int64 {
	return c.size.Load()
}
