package usecase

import (
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
)

// ResponseCache keeps every distinct response observed per fingerprint for
// the lifetime of the process. Lookups pick one entry at random so repeated
// requests do not always read the same text. There is no TTL or eviction.
// Safe for concurrent use; concurrent stores to one fingerprint are additive.
type ResponseCache struct {
	mu      sync.RWMutex
	entries map[string][]string
	pick    func(n int) int
}

// CacheOption configures a ResponseCache.
type CacheOption func(*ResponseCache)

// WithPicker replaces the uniform random index picker. pick(n) must return a
// value in [0, n) and be safe for concurrent use.
func WithPicker(pick func(n int) int) CacheOption {
	return func(c *ResponseCache) { c.pick = pick }
}

// NewResponseCache creates an empty cache.
func NewResponseCache(opts ...CacheOption) *ResponseCache {
	c := &ResponseCache{
		entries: make(map[string][]string),
		pick:    rand.IntN,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns one of the responses stored for fp.
func (c *ResponseCache) Lookup(fp string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	list := c.entries[fp]
	switch len(list) {
	case 0:
		return "", false
	case 1:
		return list[0], true
	}
	return list[c.pick(len(list))], true
}

// Store appends value to the list for fp unless it is already present
// verbatim. Blank values are ignored. It reports whether value was added.
func (c *ResponseCache) Store(fp, value string) bool {
	if strings.TrimSpace(value) == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if slices.Contains(c.entries[fp], value) {
		return false
	}
	c.entries[fp] = append(c.entries[fp], value)
	return true
}

// Entries returns a copy of the responses stored for fp, in insertion order.
func (c *ResponseCache) Entries(fp string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.entries[fp])
}

// Len returns the number of fingerprints with at least one response.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Reset drops every entry.
func (c *ResponseCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]string)
}
