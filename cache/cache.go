package cache

import (
	"context"
	"errors"

	"github.com/tiercache/tiercache/disk"
	"github.com/tiercache/tiercache/internal/singleflight"
	"github.com/tiercache/tiercache/memory"
)

// ErrNoLoader is returned by GetOrLoad when no Loader was configured.
var ErrNoLoader = errors.New("cache: no Loader provided")

// ErrNilTier is returned by New when either tier is missing.
var ErrNilTier = errors.New("cache: both tiers must be provided")

// tiered composes one memory tier and one disk tier of the same shape.
type tiered[K comparable, V any] struct {
	mem *memory.Tier[K, V]
	dsk *disk.Tier[K, V]
	opt Options[K, V]

	// singleflight group for coalescing concurrent loads in GetOrLoad.
	sf singleflight.Group[K, V]
}

// New composes a memory tier and a disk tier into a single cache.
// The tiers must already be constructed; the cache takes over the disk
// tier's lifecycle (Close).
func New[K comparable, V any](mem *memory.Tier[K, V], dsk *disk.Tier[K, V], opt Options[K, V]) (Cache[K, V], error) {
	if mem == nil || dsk == nil {
		return nil, ErrNilTier
	}
	return &tiered[K, V]{mem: mem, dsk: dsk, opt: opt}, nil
}

// Contains checks memory first and falls through to disk.
func (c *tiered[K, V]) Contains(k K) bool {
	if c.mem.Contains(k) {
		return true
	}
	return c.dsk.Contains(k)
}

// Fetch is read-through: a memory hit wins; a miss falls through to disk.
// Disk hits are deliberately not promoted into memory.
func (c *tiered[K, V]) Fetch(k K) (V, bool) {
	if v, ok := c.mem.Get(k); ok {
		return v, true
	}
	return c.dsk.Fetch(k)
}

// Set is write-through: memory synchronously, then disk. The two writes
// are not transactional.
func (c *tiered[K, V]) Set(k K, v V, cost int64) {
	c.mem.Set(k, v, cost)
	c.dsk.Set(k, v)
}

// Remove deletes from memory; when memory held a value the disk removal
// is issued fire-and-forget and the memory value is returned. Otherwise
// the result is whatever the disk removal yields.
func (c *tiered[K, V]) Remove(k K) (V, bool) {
	if v, ok := c.mem.Remove(k); ok {
		c.dsk.RemoveAsync(k, nil)
		return v, true
	}
	return c.dsk.Remove(k)
}

// Trim delegates to both tiers independently.
func (c *tiered[K, V]) Trim() {
	c.mem.Trim()
	c.dsk.Trim()
}

// Clear delegates to both tiers independently.
func (c *tiered[K, V]) Clear() {
	c.mem.Clear()
	c.dsk.Clear()
}

// GetOrLoad returns the value for k; on miss it loads via Options.Loader,
// coalescing concurrent loads for the same key (singleflight).
func (c *tiered[K, V]) GetOrLoad(ctx context.Context, k K) (V, error) {
	if v, ok := c.Fetch(k); ok {
		return v, nil
	}
	if c.opt.Loader == nil {
		var zero V
		return zero, ErrNoLoader
	}

	return c.sf.Do(ctx, k, func() (V, error) {
		// double-check after flight join
		if v, ok := c.Fetch(k); ok {
			return v, nil
		}
		v, err := c.opt.Loader(ctx, k)
		if err == nil {
			c.Set(k, v, c.costOf(v))
		}
		return v, err
	})
}

// Close shuts down the disk tier and detaches any pressure watcher.
func (c *tiered[K, V]) Close() error {
	c.mem.Unwatch()
	return c.dsk.Close()
}

func (c *tiered[K, V]) costOf(v V) int64 {
	if c.opt.Cost == nil {
		return 0
	}
	if cost := c.opt.Cost(v); cost > 0 {
		return cost
	}
	return 0
}
