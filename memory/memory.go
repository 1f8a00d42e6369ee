// Package memory implements the in-memory cache tier: an ordered index of
// values bounded by cumulative cost and entry age.
//
// All operations are synchronous and guarded by a single mutex held for
// the duration of each call; none of them suspend or perform I/O.
package memory

import (
	"sync"
	"time"

	"github.com/tiercache/tiercache/index"
	"github.com/tiercache/tiercache/metrics"
)

// Tier is a cost-bounded, age-bounded in-memory cache.
// All methods are safe for concurrent use by multiple goroutines.
type Tier[K comparable, V any] struct {
	mu    sync.Mutex
	idx   *index.Ordered[K, entry[V]]
	total int64

	opt Options[K, V]

	// Pressure watcher state, guarded by watchMu (never by mu: the
	// watcher calls Clear, which takes mu).
	watchMu   sync.Mutex
	watchStop chan struct{}
	watchDone chan struct{}
}

type entry[V any] struct {
	val      V
	cost     int64
	storedAt int64 // UnixNano of the insert/overwrite
}

// New constructs a memory tier. Negative limits are rejected.
func New[K comparable, V any](opt Options[K, V]) (*Tier[K, V], error) {
	if opt.CostLimit < 0 || opt.AgeLimit < 0 {
		return nil, ErrBadLimit
	}
	if opt.Metrics == nil {
		opt.Metrics = metrics.Noop{}
	}
	return &Tier[K, V]{
		idx: index.New[K, entry[V]](),
		opt: opt,
	}, nil
}

// Contains reports whether k is resident. No effect on recency.
func (t *Tier[K, V]) Contains(k K) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idx.Has(k)
}

// Get returns the value for k. Recency is unchanged unless the tier was
// built with TouchOnRead.
func (t *Tier[K, V]) Get(k K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.idx.Get(k)
	if !ok {
		t.opt.Metrics.Miss()
		var zero V
		return zero, false
	}
	if t.opt.TouchOnRead {
		t.idx.Touch(k)
	}
	t.opt.Metrics.Hit()
	return e.val, true
}

// Set inserts or overwrites k→v with the given cost and then trims the
// tier back under its limits. Overwriting subtracts the old cost exactly
// once before the new cost is added. Negative costs count as zero.
func (t *Tier[K, V]) Set(k K, v V, cost int64) {
	if cost < 0 {
		cost = 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.idx.Get(k); ok {
		t.total -= old.cost
	}
	t.idx.Set(k, entry[V]{val: v, cost: cost, storedAt: t.now()})
	t.total += cost
	t.trimLocked()
}

// Remove deletes k and returns the removed value.
func (t *Tier[K, V]) Remove(k K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.idx.Remove(k)
	if !ok {
		var zero V
		return zero, false
	}
	t.total -= e.cost
	t.opt.Metrics.Size(t.idx.Len(), t.total)
	return e.val, true
}

// Trim evicts least-recently-set entries until both the cost limit and the
// age limit are satisfied. Idempotent.
func (t *Tier[K, V]) Trim() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trimLocked()
}

// Clear drops all entries and resets the cost counter to zero.
func (t *Tier[K, V]) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearLocked()
}

// Len returns the number of resident entries.
func (t *Tier[K, V]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idx.Len()
}

// TotalCost returns the sum of resident entry costs.
func (t *Tier[K, V]) TotalCost() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.total
}

// -------------------- internals (mu held) --------------------

func (t *Tier[K, V]) now() int64 {
	if t.opt.Clock != nil {
		return t.opt.Clock.NowUnixNano()
	}
	return time.Now().UnixNano()
}

// trimLocked pops the least-recently-set entry while the tier is over its
// cost limit or the oldest entry is over the age limit. A single oversized
// insert may evict many entries; an over-age oldest entry keeps the loop
// going even when cost is already fine.
func (t *Tier[K, V]) trimLocked() {
	for !t.idx.Empty() {
		overCost := t.opt.CostLimit > 0 && t.total > t.opt.CostLimit

		overAge := false
		if t.opt.AgeLimit > 0 {
			if _, e, ok := t.idx.PeekBack(); ok {
				overAge = t.now()-e.storedAt > int64(t.opt.AgeLimit)
			}
		}
		if !overCost && !overAge {
			break
		}

		k, e, _ := t.idx.PopBack()
		t.total -= e.cost

		reason := metrics.EvictCapacity
		if !overCost {
			reason = metrics.EvictAge
		}
		t.opt.Metrics.Evict(reason)
		if cb := t.opt.OnEvict; cb != nil {
			cb(k, e.val, reason)
		}
	}
	t.opt.Metrics.Size(t.idx.Len(), t.total)
}

func (t *Tier[K, V]) clearLocked() {
	if cb := t.opt.OnEvict; cb != nil {
		for {
			k, e, ok := t.idx.PopBack()
			if !ok {
				break
			}
			t.opt.Metrics.Evict(metrics.EvictClear)
			cb(k, e.val, metrics.EvictClear)
		}
	} else {
		t.idx.RemoveAll()
	}
	t.total = 0
	t.opt.Metrics.Size(0, 0)
}
