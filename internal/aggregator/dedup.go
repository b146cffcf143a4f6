package aggregator

import (
	"container/heap"
	"time"
)

// dedupSet tracks recently seen trend keys with per-entry expiry. Instead
// of one timer per key, expiries sit in a min-heap swept on ingest and on
// the cleanup tick, which bounds bookkeeping under high trend volume.
type dedupSet struct {
	seen  map[string]time.Time
	queue expiryQueue
}

func newDedupSet() *dedupSet {
	return &dedupSet{seen: make(map[string]time.Time)}
}

// Seen reports whether key is still inside its suppression window.
func (d *dedupSet) Seen(key string, now time.Time) bool {
	expiry, ok := d.seen[key]
	return ok && expiry.After(now)
}

// Add records key as seen until expiresAt.
func (d *dedupSet) Add(key string, expiresAt time.Time) {
	d.seen[key] = expiresAt
	heap.Push(&d.queue, expiryEntry{key: key, at: expiresAt})
}

// Sweep removes entries whose window has elapsed.
func (d *dedupSet) Sweep(now time.Time) {
	for d.queue.Len() > 0 && !d.queue[0].at.After(now) {
		entry := heap.Pop(&d.queue).(expiryEntry)
		// A newer expiry for the same key supersedes this heap entry.
		if expiry, ok := d.seen[entry.key]; ok && !expiry.After(entry.at) {
			delete(d.seen, entry.key)
		}
	}
}

// Len returns the number of live keys.
func (d *dedupSet) Len() int {
	return len(d.seen)
}

type expiryEntry struct {
	key string
	at  time.Time
}

type expiryQueue []expiryEntry

func (q expiryQueue) Len() int           { return len(q) }
func (q expiryQueue) Less(i, j int) bool { return q[i].at.Before(q[j].at) }
func (q expiryQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *expiryQueue) Push(x any)        { *q = append(*q, x.(expiryEntry)) }

func (q *expiryQueue) Pop() any {
	old := *q
	n := len(old)
	entry := old[n-1]
	*q = old[:n-1]
	return entry
}
