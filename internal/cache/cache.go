// Package cache memoizes derived statistics. Every entry remembers the ledger
// revision it was computed at; a lookup at a newer revision evicts it, so a
// mutation invalidates without any explicit call.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Cleaner is implemented by anything holding state that expires.
type Cleaner interface {
	CleanExpired() int
}

// CleanAll purges expired entries of every cleaner and returns the total
// removed. The scheduler calls it periodically.
func CleanAll(cleaners ...Cleaner) int {
	total := 0
	for _, c := range cleaners {
		total += c.CleanExpired()
	}
	return total
}

// RevisionCache is a size-bounded LRU of values computed from one ledger
// revision. A key holds at most one entry, for the newest revision it was
// computed at.
type RevisionCache[T any] struct {
	mu      sync.Mutex
	maxSize int
	ttl     time.Duration
	now     func() time.Time
	items   map[string]*list.Element
	order   *list.List // front is most recently used
	latest  uint64
}

type entry[T any] struct {
	key       string
	revision  uint64
	value     T
	expiresAt time.Time
}

// NewRevisionCache creates a cache of at most maxSize keys (at least 1). A ttl
// of zero keeps entries until their revision is superseded or they are
// evicted for space.
func NewRevisionCache[T any](maxSize int, ttl time.Duration) *RevisionCache[T] {
	if maxSize < 1 {
		maxSize = 1
	}
	return &RevisionCache[T]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
		items:   make(map[string]*list.Element),
		order:   list.New(),
	}
}

// GetOrCompute returns the value cached for key at revision rev, computing
// and storing it on a miss. An entry from an older revision is dropped. A
// caller still at an older revision than the cached entry gets a fresh
// computation that does not replace the newer entry.
func (c *RevisionCache[T]) GetOrCompute(rev uint64, key string, compute func() T) (T, bool) {
	if v, ok := c.lookup(rev, key); ok {
		return v, true
	}
	v := compute()
	c.store(rev, key, v)
	return v, false
}

func (c *RevisionCache[T]) lookup(rev uint64, key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	if rev > c.latest {
		c.latest = rev
	}
	elem, ok := c.items[key]
	if !ok {
		return zero, false
	}
	e := elem.Value.(*entry[T])
	switch {
	case e.revision < rev, c.expired(e, c.now()):
		c.remove(elem)
		return zero, false
	case e.revision > rev:
		return zero, false
	}
	c.order.MoveToFront(elem)
	return e.value, true
}

func (c *RevisionCache[T]) store(rev uint64, key string, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry[T]{key: key, revision: rev, value: v}
	if c.ttl > 0 {
		e.expiresAt = c.now().Add(c.ttl)
	}

	if elem, ok := c.items[key]; ok {
		if elem.Value.(*entry[T]).revision > rev {
			return
		}
		elem.Value = e
		c.order.MoveToFront(elem)
		return
	}

	c.items[key] = c.order.PushFront(e)
	if c.order.Len() > c.maxSize {
		c.remove(c.order.Back())
	}
}

func (c *RevisionCache[T]) expired(e *entry[T], now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

func (c *RevisionCache[T]) remove(elem *list.Element) {
	delete(c.items, elem.Value.(*entry[T]).key)
	c.order.Remove(elem)
}

// CleanExpired drops entries past their TTL and entries computed at a
// revision older than the newest one looked up. It returns how many went.
func (c *RevisionCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		e := elem.Value.(*entry[T])
		if e.revision < c.latest || c.expired(e, now) {
			c.remove(elem)
			removed++
		}
		elem = next
	}
	return removed
}

// Size returns the number of cached keys.
func (c *RevisionCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
