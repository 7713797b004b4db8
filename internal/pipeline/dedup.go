package pipeline

import (
	"sync"

	"github.com/movement-scanner/internal/models"
)

// DefaultDedupCapacity bounds the seen-id set before eviction kicks in
const DefaultDedupCapacity = 10_000

// Deduplicator removes exact duplicates and same-entity-pair movements from a
// stream, remembering seen ids across calls for the lifetime of the instance.
// Memory is bounded: when the seen set exceeds its capacity the oldest half is
// evicted, so ids replayed long after first sight may be re-admitted. That is
// an accepted trade-off, not a correctness bug.
//
// One instance is meant to be shared by everything that feeds the pipeline in
// a process; access is serialized internally.
type Deduplicator struct {
	mu       sync.Mutex
	capacity int
	order    []string // insertion order, oldest first
	seen     map[string]struct{}
}

// NewDeduplicator creates a deduplicator with the given seen-set capacity.
// Non-positive capacities fall back to DefaultDedupCapacity.
func NewDeduplicator(capacity int) *Deduplicator {
	if capacity <= 0 {
		capacity = DefaultDedupCapacity
	}
	return &Deduplicator{
		capacity: capacity,
		order:    make([]string, 0, capacity),
		seen:     make(map[string]struct{}, capacity),
	}
}

// Filter returns the movements that survive deduplication, preserving input
// order. A movement is dropped when its id was already seen or when both
// sides resolve to the same entity (internal shuffle). Kept movements have
// their ids recorded.
func (d *Deduplicator) Filter(movements []*models.Movement) []*models.Movement {
	d.mu.Lock()
	defer d.mu.Unlock()

	kept := make([]*models.Movement, 0, len(movements))
	for _, m := range movements {
		if _, dup := d.seen[m.ID]; dup {
			continue
		}
		if m.SameEntityPair() {
			continue
		}

		kept = append(kept, m)
		d.remember(m.ID)
	}

	return kept
}

// Seen reports whether an id is currently in the seen set
func (d *Deduplicator) Seen(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[id]
	return ok
}

// Len returns the current size of the seen set
func (d *Deduplicator) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

// remember records an id, evicting the oldest half of the set when capacity
// is exceeded. Caller holds the lock.
func (d *Deduplicator) remember(id string) {
	d.order = append(d.order, id)
	d.seen[id] = struct{}{}

	if len(d.order) <= d.capacity {
		return
	}

	half := len(d.order) / 2
	for _, old := range d.order[:half] {
		delete(d.seen, old)
	}
	d.order = append(d.order[:0:0], d.order[half:]...)
}
