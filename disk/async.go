package disk

// Non-blocking forms of the tier operations. Each enqueues the identical
// blocking form on a new goroutine and delivers the result through the
// callback (which may be nil when only completion matters). The callback
// runs on the worker goroutine, outside the tier's locks.
//
// Ordering: the barrier serializes mutations in lock-acquisition order.
// Callers needing a strict submission order across several mutations
// should use the blocking forms, or chain calls from the callbacks.

// ContainsAsync reports presence through done.
func (t *Tier[K, V]) ContainsAsync(k K, done func(ok bool)) {
	go func() {
		ok := t.Contains(k)
		if done != nil {
			done(ok)
		}
	}()
}

// FetchAsync reads and decodes k through done.
func (t *Tier[K, V]) FetchAsync(k K, done func(v V, ok bool)) {
	go func() {
		v, ok := t.Fetch(k)
		if done != nil {
			done(v, ok)
		}
	}()
}

// SetAsync stores k→v and signals completion through done.
func (t *Tier[K, V]) SetAsync(k K, v V, done func()) {
	go func() {
		t.Set(k, v)
		if done != nil {
			done()
		}
	}()
}

// RemoveAsync deletes k through done.
func (t *Tier[K, V]) RemoveAsync(k K, done func(v V, ok bool)) {
	go func() {
		v, ok := t.Remove(k)
		if done != nil {
			done(v, ok)
		}
	}()
}

// TrimAsync runs a trim pass and signals completion through done.
func (t *Tier[K, V]) TrimAsync(done func()) {
	go func() {
		t.Trim()
		if done != nil {
			done()
		}
	}()
}

// ClearAsync clears the tier and signals completion through done.
func (t *Tier[K, V]) ClearAsync(done func()) {
	go func() {
		t.Clear()
		if done != nil {
			done()
		}
	}()
}
