package cache

import "time"

// Option applies a configuration option to the in-memory cache.
type Option func(*inMemoryCache)

// WithMaxSize sets the maximum number of cached profiles.
// If maxSize <= 0 caching is disabled.
func WithMaxSize(maxSize int) Option {
	return func(c *inMemoryCache) {
		c.maxSize = maxSize
	}
}

// WithTTL sets how long an entry stays valid. ttl <= 0 disables expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *inMemoryCache) {
		c.ttl = ttl
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *inMemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}
