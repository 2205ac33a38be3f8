package engine

import (
	"container/list"
	"fmt"
	"sync"

	"github.com/hyperjump/kotae/internal/models"
)

// resultCache is an LRU cache of ask results keyed by question and result
// count. Entries are stamped with a generation; Invalidate advances the
// generation so every older entry reads as a miss. Knowledge base mutations
// and strategy swaps invalidate rather than evict.
type resultCache struct {
	capacity int

	mu    sync.Mutex
	cache map[string]*list.Element
	lru   *list.List
	gen   uint64
}

type resultEntry struct {
	key    string
	gen    uint64
	result models.MatchResult
}

func newResultCache(capacity int) *resultCache {
	if capacity < 1 {
		capacity = 1
	}
	return &resultCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

func cacheKey(question string, topK int) string {
	return fmt.Sprintf("%d\x00%s", topK, question)
}

// Get returns the cached result for key if present and current, along with
// the generation observed under the lock. A caller that misses must pass that
// generation back to Set so a result computed against since-invalidated state
// is never stored.
func (c *resultCache) Get(key string) (models.MatchResult, uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[key]
	if !ok {
		return models.MatchResult{}, c.gen, false
	}
	entry := elem.Value.(*resultEntry)
	if entry.gen != c.gen {
		c.lru.Remove(elem)
		delete(c.cache, key)
		return models.MatchResult{}, c.gen, false
	}
	c.lru.MoveToFront(elem)
	return entry.result, c.gen, true
}

// Set stores the result for key, evicting the oldest entry if at capacity.
// The write is dropped when the generation has advanced since Get: the result
// was computed against a snapshot that has been invalidated in the meantime.
func (c *resultCache) Set(key string, result models.MatchResult, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return
	}

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		entry := elem.Value.(*resultEntry)
		entry.result = result
		entry.gen = gen
		return
	}

	entry := &resultEntry{key: key, gen: gen, result: result}
	elem := c.lru.PushFront(entry)
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*resultEntry).key)
		}
	}
}

// Invalidate marks every current entry stale.
func (c *resultCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
}
