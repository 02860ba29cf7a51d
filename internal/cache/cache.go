// Package cache provides an explicit TTL cache with tag-based
// invalidation. The scheduling engine itself is pure and cache-free;
// callers that want memoization wrap their reads in this cache and
// invalidate by tag (for example "family:<id>") when the underlying
// records change.
package cache

import "time"

// Cache is the read-through contract the HTTP boundary depends on.
type Cache[T any] interface {
	// Get retrieves a value if present and unexpired.
	Get(key string) (T, bool)

	// Put stores a value with a TTL and the tags it can be invalidated by.
	Put(key string, value T, ttl time.Duration, tags ...string)

	// Invalidate removes every entry carrying any of the given tags.
	Invalidate(tags ...string)

	// Size returns the current number of entries.
	Size() int
}

// Cleaner is implemented by caches that support periodic expiry sweeps.
type Cleaner interface {
	CleanExpired() int
}
