package routing

import (
	"container/list"
	"sync"
)

// homeDBEntry is one cached home-database resolution.
type homeDBEntry struct {
	impersonatedUser string
	database         string
}

// HomeDBCache resolves an impersonated user to the home database the
// cluster selected for them, so that repeated sessions for the same
// user skip a routing round trip (SPEC_FULL.md §12, resolving spec
// §9's open question on home-database resolution). Grounded on
// stmtcache.LRU's container/list + map shape, keyed by impersonated
// user instead of by SQL text.
type HomeDBCache struct {
	mu  sync.Mutex
	cap int
	m   map[string]*list.Element
	l   *list.List
}

// NewHomeDBCache builds a cache bounded to capacity entries; capacity
// <= 0 disables the cache (every Get misses, every Put is a no-op).
func NewHomeDBCache(capacity int) *HomeDBCache {
	return &HomeDBCache{
		cap: capacity,
		m:   make(map[string]*list.Element),
		l:   list.New(),
	}
}

// Get returns the cached home database for impersonatedUser, if any.
func (c *HomeDBCache) Get(impersonatedUser string) (string, bool) {
	if c.cap <= 0 {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.m[impersonatedUser]
	if !ok {
		return "", false
	}
	c.l.MoveToFront(el)
	return el.Value.(*homeDBEntry).database, true
}

// Put records database as the resolved home database for
// impersonatedUser, evicting the least recently used entry if the
// cache is at capacity.
func (c *HomeDBCache) Put(impersonatedUser, database string) {
	if c.cap <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.m[impersonatedUser]; ok {
		el.Value.(*homeDBEntry).database = database
		c.l.MoveToFront(el)
		return
	}
	if c.l.Len() >= c.cap {
		oldest := c.l.Back()
		if oldest != nil {
			c.l.Remove(oldest)
			delete(c.m, oldest.Value.(*homeDBEntry).impersonatedUser)
		}
	}
	el := c.l.PushFront(&homeDBEntry{impersonatedUser: impersonatedUser, database: database})
	c.m[impersonatedUser] = el
}

// Invalidate drops any cached resolution for impersonatedUser.
func (c *HomeDBCache) Invalidate(impersonatedUser string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.m[impersonatedUser]; ok {
		c.l.Remove(el)
		delete(c.m, impersonatedUser)
	}
}
