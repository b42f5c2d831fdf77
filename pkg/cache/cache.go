package cache

import (
	"crypto/md5"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viralcraft/core/pkg/utils"
)

// Config holds cache sizing and expiry settings
type Config struct {
	// DefaultTTL is how long an entry stays servable after insertion
	DefaultTTL time.Duration
	// MaxSize bounds the number of stored entries
	MaxSize int
}

// DefaultConfig returns the settings used for interactive content generation
func DefaultConfig() *Config {
	return &Config{
		DefaultTTL: 24 * time.Hour,
		MaxSize:    500,
	}
}

type entry[V any] struct {
	value       V
	generatedAt time.Time
}

// Cache is a time-boxed key/value store used to memoize generation results.
// Lookups never return an entry older than the configured TTL; entries beyond
// capacity are evicted oldest-inserted first.
type Cache[V any] struct {
	mu      sync.Mutex
	ttl     time.Duration
	maxSize int
	entries map[string]entry[V]
	order   []string // insertion order, oldest first

	// now is overridable for deterministic expiry tests
	now func() time.Time
}

// New creates a cache with the given configuration
func New[V any](cfg *Config) *Cache[V] {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	return &Cache[V]{
		ttl:     cfg.DefaultTTL,
		maxSize: cfg.MaxSize,
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

// GenerateKey derives a deterministic cache key from normalized generation
// parameters. Identical parameter sets always yield the same key; string
// values are lower-cased and trimmed, and the product name is slugified so
// case/whitespace variants collapse to one key.
func GenerateKey(params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// Length-prefixed pairs: values containing separator characters cannot
	// collide with a differently-split parameter set.
	var b strings.Builder
	for _, k := range keys {
		v := normalizeValue(k, params[k])
		fmt.Fprintf(&b, "%d:%s=%d:%s;", len(k), k, len(v), v)
	}

	sum := md5.Sum([]byte(b.String()))
	return fmt.Sprintf("%x", sum)
}

func normalizeValue(key string, v any) string {
	switch val := v.(type) {
	case string:
		if key == "product" {
			return utils.GenerateProductSlug(val)
		}
		return strings.ToLower(strings.TrimSpace(val))
	default:
		return fmt.Sprintf("%v", val)
	}
}

// Get returns the cached value for key, or false if the key is missing or the
// entry has aged past the TTL. Expired entries are purged on lookup.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.entries[key]
	if !ok {
		return zero, false
	}

	if c.now().Sub(e.generatedAt) >= c.ttl {
		c.removeLocked(key)
		return zero, false
	}

	return e.value, true
}

// Set inserts or overwrites the value for key. At capacity the
// oldest-inserted entry is evicted before inserting.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; exists {
		c.removeLocked(key)
	}

	for len(c.entries) >= c.maxSize && len(c.order) > 0 {
		c.removeLocked(c.order[0])
	}

	c.entries[key] = entry[V]{value: value, generatedAt: c.now()}
	c.order = append(c.order, key)
}

// Len returns the number of stored entries, expired or not
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Purge drops every entry whose age has passed the TTL
func (c *Cache[V]) Purge() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	purged := 0
	for key, e := range c.entries {
		if c.now().Sub(e.generatedAt) >= c.ttl {
			c.removeLocked(key)
			purged++
		}
	}
	return purged
}

func (c *Cache[V]) removeLocked(key string) {
	delete(c.entries, key)
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}
