package model

import "sync"

// CollectionCounter tracks reference counts per (collection, id) pair.
//
// Counts floor at zero: decrementing an untracked pair stays at zero
// instead of going negative. Entries are pruned the moment their count
// returns to zero, so an idle counter holds no memory and membership
// can be tested by presence.
type CollectionCounter struct {
	mu     sync.Mutex
	counts map[string]map[string]int
}

// NewCollectionCounter creates an empty counter.
func NewCollectionCounter() *CollectionCounter {
	return &CollectionCounter{counts: make(map[string]map[string]int)}
}

// Increment adds one reference and returns the new count.
func (c *CollectionCounter) Increment(collection, id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := c.counts[collection]
	if ids == nil {
		ids = make(map[string]int)
		c.counts[collection] = ids
	}
	ids[id]++
	return ids[id]
}

// Decrement releases one reference and returns the new count, floored
// at zero. The entry is pruned when it reaches zero.
func (c *CollectionCounter) Decrement(collection, id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := c.counts[collection]
	if ids == nil {
		return 0
	}
	n, ok := ids[id]
	if !ok {
		return 0
	}
	n--
	if n <= 0 {
		delete(ids, id)
		if len(ids) == 0 {
			delete(c.counts, collection)
		}
		return 0
	}
	ids[id] = n
	return n
}

// Get returns the current count without modifying it.
func (c *CollectionCounter) Get(collection, id string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[collection][id]
}
