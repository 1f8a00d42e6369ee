package memory

import (
	"errors"
	"time"

	"github.com/tiercache/tiercache/metrics"
)

// ErrBadLimit is returned by New when a limit is negative.
var ErrBadLimit = errors.New("memory: limits must be >= 0")

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures a memory tier. Zero values are safe:
// zero limits mean unbounded, nil Metrics means metrics.Noop.
type Options[K comparable, V any] struct {
	// CostLimit caps the sum of entry costs. 0 disables cost limiting.
	CostLimit int64

	// AgeLimit caps how long an entry may stay resident after its last
	// Set. 0 disables age limiting. Age eviction is enforced by Trim,
	// which runs after every Set and may be called explicitly.
	AgeLimit time.Duration

	// TouchOnRead makes Get refresh the entry's recency. Off by default:
	// eviction order is then driven purely by write recency.
	TouchOnRead bool

	// OnEvict is called for every evicted entry while the tier lock is
	// held; keep callbacks lightweight.
	OnEvict func(k K, v V, reason metrics.EvictReason)

	// Metrics receives Hit/Miss/Evict/Size signals. Nil => metrics.Noop.
	Metrics metrics.Metrics

	// Clock allows overriding the time source (tests). Nil => time.Now().
	Clock Clock
}
