package cache

import (
	"container/list"
	"sync"
	"time"
)

// TaggedLRU is an in-memory Cache with size-based LRU eviction, per-entry
// TTL and tag invalidation. Safe for concurrent use.
type TaggedLRU[T any] struct {
	mu      sync.Mutex
	maxSize int
	items   map[string]*list.Element
	lru     *list.List
	// tag -> set of keys carrying it
	tagIndex map[string]map[string]struct{}
}

type entry[T any] struct {
	key       string
	value     T
	expiresAt time.Time
	tags      []string
}

func NewTaggedLRU[T any](maxSize int) *TaggedLRU[T] {
	return &TaggedLRU[T]{
		maxSize:  maxSize,
		items:    make(map[string]*list.Element),
		lru:      list.New(),
		tagIndex: make(map[string]map[string]struct{}),
	}
}

func (c *TaggedLRU[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, exists := c.items[key]
	if !exists {
		return zero, false
	}

	e := elem.Value.(*entry[T])
	if time.Now().After(e.expiresAt) {
		c.removeElement(elem)
		return zero, false
	}

	c.lru.MoveToFront(elem)
	return e.value, true
}

func (c *TaggedLRU[T]) Put(key string, value T, ttl time.Duration, tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(ttl),
		tags:      tags,
	}

	if elem, exists := c.items[key]; exists {
		c.unindexTags(elem.Value.(*entry[T]))
		elem.Value = e
		c.indexTags(e)
		c.lru.MoveToFront(elem)
		return
	}

	elem := c.lru.PushFront(e)
	c.items[key] = elem
	c.indexTags(e)

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

func (c *TaggedLRU[T]) Invalidate(tags ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, tag := range tags {
		for key := range c.tagIndex[tag] {
			if elem, exists := c.items[key]; exists {
				c.removeElement(elem)
			}
		}
	}
}

func (c *TaggedLRU[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// CleanExpired removes all expired entries and reports how many.
func (c *TaggedLRU[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	var toRemove []*list.Element
	for elem := c.lru.Front(); elem != nil; elem = elem.Next() {
		if now.After(elem.Value.(*entry[T]).expiresAt) {
			toRemove = append(toRemove, elem)
		}
	}
	for _, elem := range toRemove {
		c.removeElement(elem)
	}
	return len(toRemove)
}

func (c *TaggedLRU[T]) indexTags(e *entry[T]) {
	for _, tag := range e.tags {
		keys, ok := c.tagIndex[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.tagIndex[tag] = keys
		}
		keys[e.key] = struct{}{}
	}
}

func (c *TaggedLRU[T]) unindexTags(e *entry[T]) {
	for _, tag := range e.tags {
		if keys, ok := c.tagIndex[tag]; ok {
			delete(keys, e.key)
			if len(keys) == 0 {
				delete(c.tagIndex, tag)
			}
		}
	}
}

func (c *TaggedLRU[T]) removeElement(elem *list.Element) {
	e := elem.Value.(*entry[T])
	c.unindexTags(e)
	delete(c.items, e.key)
	c.lru.Remove(elem)
}
