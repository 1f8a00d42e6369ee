package cache

import "context"

// Cache is a two-tier key/value cache: an in-memory tier checked first,
// shadowed by a best-effort disk tier. All methods are safe for
// concurrent use by multiple goroutines.
//
// The two tiers are not transactional: a write that lands in one tier and
// fails in the other leaves them inconsistent until the next write or
// eviction of that key. Callers may rely on disk being a best-effort
// durable shadow of memory, never on the tiers agreeing at every instant.
type Cache[K comparable, V any] interface {
	// Contains reports whether k is resident in memory or on disk.
	Contains(k K) bool

	// Fetch returns the memory value for k when present, otherwise the
	// disk value. A disk hit is not promoted into memory.
	Fetch(k K) (V, bool)

	// Set writes k→v to memory with the given cost, then through to disk.
	Set(k K, v V, cost int64)

	// Remove deletes k from both tiers and returns the removed value,
	// preferring the memory copy. Removing an absent key reports absent.
	Remove(k K) (V, bool)

	// Trim runs one eviction pass on both tiers.
	Trim()

	// Clear drops all entries from both tiers.
	Clear()

	// GetOrLoad returns the value for k, loading it via Options.Loader on
	// miss and writing the loaded value through both tiers. Concurrent
	// loads for the same key are coalesced (singleflight). If no Loader
	// was configured, returns ErrNoLoader.
	GetOrLoad(ctx context.Context, k K) (V, error)

	// Close shuts down the disk tier's background work. The cache must
	// not be used after Close.
	Close() error
}
