package kvengine

import (
	"container/heap"
	"container/list"
	"time"
)

// entry is one stored key's bookkeeping: its value, optional absolute
// expiration, and its position in the two auxiliary structures that back
// eviction (recency) and active expiration (ttl).
type entry struct {
	key   string
	value Value

	expiresAt *time.Time

	recencyElem *list.Element // element in Store.recency, Value == this *entry
	ttlIndex    int           // index in Store.ttlHeap; -1 when not scheduled
}

func newEntry(key string, value Value) *entry {
	return &entry{
		key:   key,
		value: value,

		expiresAt: nil,

		recencyElem: nil,
		ttlIndex:    -1,
	}
}

func (e *entry) hasExpiry() bool {
	return e.expiresAt != nil
}

func (e *entry) expired(now time.Time) bool {
	return e.expiresAt != nil && !now.Before(*e.expiresAt)
}

// ttlHeap is a min-heap over entries carrying an expiry, ordered so the
// soonest-to-expire entry is always at the root. It implements
// container/heap.Interface directly over *entry so Expirer can peek the next
// deadline without a secondary index.
type ttlHeap []*entry

func (h ttlHeap) Len() int { return len(h) }

func (h ttlHeap) Less(i, j int) bool {
	return h[i].expiresAt.Before(*h[j].expiresAt)
}

func (h ttlHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].ttlIndex = i
	h[j].ttlIndex = j
}

func (h *ttlHeap) Push(x any) {
	e, _ := x.(*entry) //nolint:varnamelen
	e.ttlIndex = len(*h)
	*h = append(*h, e)
}

func (h *ttlHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.ttlIndex = -1
	*h = old[:n-1]

	return e
}

// scheduleTTL inserts e into the heap if it isn't already there, or fixes
// its position if it is. Call after mutating e.expiresAt.
func (h *ttlHeap) scheduleTTL(e *entry) {
	if e.ttlIndex < 0 {
		heap.Push(h, e)

		return
	}

	heap.Fix(h, e.ttlIndex)
}

// unscheduleTTL removes e from the heap, if present. Call before clearing
// e.expiresAt or deleting e outright.
func (h *ttlHeap) unscheduleTTL(e *entry) {
	if e.ttlIndex < 0 {
		return
	}

	heap.Remove(h, e.ttlIndex)
}

// peekTTL returns the entry with the soonest expiry, or nil if none are
// scheduled.
func (h ttlHeap) peekTTL() *entry {
	if len(h) == 0 {
		return nil
	}

	return h[0]
}
