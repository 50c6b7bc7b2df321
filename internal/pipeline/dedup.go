package pipeline

import (
	"container/list"
	"sync"
)

// DedupCache is a bounded, insertion-ordered set of recently processed
// identities. One instance is shared by the stream workers, the catch-up
// scan, and the DM command checker; DM message identities reuse the same
// key space with a "dm:" prefix.
//
// Eviction is strict FIFO by insertion order, with no recency promotion.
// Best-effort only: not durable across restarts.
type DedupCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // of string, oldest at front
	members  map[string]*list.Element
}

// NewDedupCache creates a cache holding at most capacity identities.
func NewDedupCache(capacity int) *DedupCache {
	return &DedupCache{
		capacity: capacity,
		order:    list.New(),
		members:  make(map[string]*list.Element, capacity),
	}
}

// MarkAndCheck atomically checks membership and inserts if absent. It must
// be called before any expensive work so two near-simultaneous events for
// the same post cannot both proceed.
func (d *DedupCache) MarkAndCheck(identity string) (alreadySeen bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.members[identity]; ok {
		return true
	}
	d.members[identity] = d.order.PushBack(identity)
	if d.order.Len() > d.capacity {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.members, oldest.Value.(string))
	}
	return false
}

// Contains reports membership without inserting.
func (d *DedupCache) Contains(identity string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.members[identity]
	return ok
}

// Len returns the number of tracked identities.
func (d *DedupCache) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
