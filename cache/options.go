package cache

import "context"

// Options configures the composed cache. Zero values are safe.
type Options[K comparable, V any] struct {
	// Loader fetches a value on cache miss. Used by GetOrLoad.
	Loader func(ctx context.Context, k K) (V, error)

	// Cost computes the memory-tier cost of a loaded value. Used by
	// GetOrLoad when writing loaded values through. Nil = all loaded
	// entries cost 0.
	Cost func(v V) int64
}
