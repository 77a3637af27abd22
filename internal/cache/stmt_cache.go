// Package cache provides an LRU cache for prepared statements. The engine
// generates deterministic parameter names, so statements produced for the
// same descriptor and filter shape share text and hit the cache.
package cache

import (
	"container/list"
	"database/sql"
	"sync"
)

// DefaultCapacity is the default maximum number of cached statements.
const DefaultCapacity = 1000

// StmtCache stores prepared statements keyed by SQL text with LRU eviction.
type StmtCache struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	lru      *list.List

	stats Stats
}

// Stats reports cache effectiveness counters.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

type entry struct {
	key  string
	stmt *sql.Stmt
}

// New creates a statement cache with the default capacity.
func New() *StmtCache {
	return WithCapacity(DefaultCapacity)
}

// WithCapacity creates a statement cache holding at most capacity entries.
func WithCapacity(capacity int) *StmtCache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &StmtCache{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		lru:      list.New(),
	}
}

// Get retrieves a prepared statement by SQL text. A hit moves the entry to
// the front of the LRU list.
func (c *StmtCache) Get(key string) (*sql.Stmt, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	c.lru.MoveToFront(elem)
	c.stats.Hits++
	return elem.Value.(*entry).stmt, true
}

// Set stores a prepared statement, evicting the least recently used entry
// when the cache is full. The evicted statement is closed.
func (c *StmtCache) Set(key string, stmt *sql.Stmt) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*entry).stmt = stmt
		return
	}

	if c.lru.Len() >= c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			e := oldest.Value.(*entry)
			_ = e.stmt.Close()
			delete(c.items, e.key)
			c.lru.Remove(oldest)
			c.stats.Evictions++
		}
	}

	c.items[key] = c.lru.PushFront(&entry{key: key, stmt: stmt})
}

// Clear closes and drops every cached statement.
func (c *StmtCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, elem := range c.items {
		_ = elem.Value.(*entry).stmt.Close()
	}
	c.items = make(map[string]*list.Element, c.capacity)
	c.lru.Init()
}

// Len returns the number of cached statements.
func (c *StmtCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Stats returns a snapshot of the cache counters.
func (c *StmtCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
