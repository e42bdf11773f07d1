// Package cache memoizes expensive read-only lookups for a few minutes.
//
// It is a thin wrapper over hashicorp's expirable LRU: capacity-bounded (least
// recently used entries go first) with a fixed TTL per entry. There are no
// invalidation hooks. A write through the API (granting access, say) shows up
// in cached reads only once the entry expires; callers that must not share
// entries between operators put a credential fragment in the key.
package cache

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/sakif/access-git/internal/metrics"
)

const (
	DefaultSize = 100
	DefaultTTL  = 5 * time.Minute
)

// Cache is a string-keyed TTL cache for values of type V.
// It is safe for concurrent use.
type Cache[V any] struct {
	name string
	lru  *expirable.LRU[string, V]
}

// New creates a cache holding at most size entries, each for ttl.
// name labels the hit/miss metrics.
func New[V any](name string, size int, ttl time.Duration) *Cache[V] {
	if size <= 0 {
		size = DefaultSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache[V]{
		name: name,
		lru:  expirable.NewLRU[string, V](size, nil, ttl),
	}
}

// Has reports whether key holds an unexpired value. It does not count as a use.
func (c *Cache[V]) Has(key string) bool {
	return c.lru.Contains(key)
}

// Get returns the value for key and whether it was present.
func (c *Cache[V]) Get(key string) (V, bool) {
	v, ok := c.lru.Get(key)
	if ok {
		metrics.CacheRequests.WithLabelValues(c.name, "hit").Inc()
	} else {
		metrics.CacheRequests.WithLabelValues(c.name, "miss").Inc()
	}
	return v, ok
}

// Set stores value under key, resetting its TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.lru.Add(key, value)
}

func (c *Cache[V]) Remove(key string) {
	c.lru.Remove(key)
}

func (c *Cache[V]) Len() int {
	return c.lru.Len()
}

func (c *Cache[V]) Purge() {
	c.lru.Purge()
}

// Key joins parts with ":" into a cache key, e.g. Key("teams", "octo-org").
func Key(parts ...string) string {
	return strings.Join(parts, ":")
}

// CredentialFragment returns the last six characters of a credential. It is
// enough to keep two operators' entries apart without putting the secret
// itself in memory keys or logs.
func CredentialFragment(token string) string {
	if len(token) <= 6 {
		return token
	}
	return token[len(token)-6:]
}
