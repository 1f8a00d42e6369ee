// Package singleflight coalesces concurrent loads for the same cache key
// so the loader runs at most once while a flight is in progress.
package singleflight

import (
	"context"
	"sync"
)

// Group deduplicates concurrent calls per key. The first caller for a key
// becomes the leader and runs fn; followers wait for the shared result.
// Publishing (val, err) happens-before close(done), so followers reading
// after <-done observe the final values.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*flight[V]
}

type flight[V any] struct {
	done chan struct{} // closed when val/err are published
	val  V
	err  error
}

// Do runs fn once for key; concurrent calls with the same key share the
// result. A follower whose ctx is cancelled returns ctx.Err() without
// stopping the leader — thread ctx into fn if the work itself must be
// cancellable.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (V, error) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*flight[V])
	}
	if f, ok := g.m[key]; ok {
		done := f.done
		g.mu.Unlock()

		select {
		case <-done:
			return f.val, f.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}

	f := &flight[V]{done: make(chan struct{})}
	g.m[key] = f
	g.mu.Unlock()

	// Run the load outside the lock.
	f.val, f.err = fn()
	close(f.done)

	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()

	return f.val, f.err
}
