package transcript

import (
	"sync"
	"time"
)

// TTLCache holds a single value with an expiry. The clock is injectable
// so expiry can be tested without sleeping.
type TTLCache[T any] struct {
	mu        sync.Mutex
	value     T
	expiresAt time.Time
	set       bool
	ttl       time.Duration
	now       func() time.Time
}

// NewTTLCache returns an empty cache whose entries live for ttl.
func NewTTLCache[T any](ttl time.Duration) *TTLCache[T] {
	return &TTLCache[T]{ttl: ttl, now: time.Now}
}

// WithClock replaces the time source and returns the cache.
func (c *TTLCache[T]) WithClock(now func() time.Time) *TTLCache[T] {
	c.mu.Lock()
	c.now = now
	c.mu.Unlock()
	return c
}

// Get returns the value if present and not expired.
func (c *TTLCache[T]) Get() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.set || !c.now().Before(c.expiresAt) {
		var zero T
		return zero, false
	}
	return c.value, true
}

// Set stores v for the configured TTL.
func (c *TTLCache[T]) Set(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.set = true
	c.expiresAt = c.now().Add(c.ttl)
}

// Clear drops the stored value.
func (c *TTLCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	var zero T
	c.value = zero
	c.set = false
}

// ExpiresAt reports when the current value expires (zero when empty).
func (c *TTLCache[T]) ExpiresAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.set {
		return time.Time{}
	}
	return c.expiresAt
}
