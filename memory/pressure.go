package memory

// Signal is a process-lifecycle event the memory tier reacts to.
// The tier does not generate signals itself; the owning application
// forwards them from whatever platform mechanism it has.
type Signal int

const (
	// SignalMemoryWarning means the process is under memory pressure.
	SignalMemoryWarning Signal = iota
	// SignalEnteredBackground means the process moved to the background.
	SignalEnteredBackground
)

// HandleSignal responds to a pressure signal. Both signals clear the tier.
func (t *Tier[K, V]) HandleSignal(Signal) {
	t.Clear()
}

// Watch consumes pressure signals from ch until Unwatch is called or ch
// is closed. At most one watcher may be active per tier; a second Watch
// call replaces the first after stopping it.
func (t *Tier[K, V]) Watch(ch <-chan Signal) {
	t.watchMu.Lock()
	defer t.watchMu.Unlock()
	t.unwatchLocked()

	stop := make(chan struct{})
	done := make(chan struct{})
	t.watchStop, t.watchDone = stop, done

	go func() {
		defer close(done)
		for {
			select {
			case s, ok := <-ch:
				if !ok {
					return
				}
				t.HandleSignal(s)
			case <-stop:
				return
			}
		}
	}()
}

// Unwatch stops the active watcher, if any, and waits for it to exit.
func (t *Tier[K, V]) Unwatch() {
	t.watchMu.Lock()
	defer t.watchMu.Unlock()
	t.unwatchLocked()
}

// unwatchLocked requires watchMu. The watcher goroutine never takes
// watchMu, so waiting on it here cannot deadlock.
func (t *Tier[K, V]) unwatchLocked() {
	if t.watchStop == nil {
		return
	}
	close(t.watchStop)
	<-t.watchDone
	t.watchStop, t.watchDone = nil, nil
}
