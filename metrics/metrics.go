// Package metrics defines the observability hooks shared by the cache tiers.
package metrics

// EvictReason explains why an entry was removed.
type EvictReason int

const (
	// EvictCapacity — removed to bring the tier back under its cost/byte limit.
	EvictCapacity EvictReason = iota
	// EvictAge — removed because the entry exceeded the tier's age limit.
	EvictAge
	// EvictClear — removed by Clear (including pressure-triggered clears).
	EvictClear
)

// Metrics receives tier-level observability signals.
// A Noop implementation is provided and used by default.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	// Size reports the resident entry count and the tier's aggregate
	// (total cost for the memory tier, total bytes for the disk tier).
	Size(entries int, total int64)
}

// Noop is a drop-in Metrics implementation that does nothing.
// It is safe for concurrent use and intended as the default when
// no observability backend is configured.
type Noop struct{}

func (Noop) Hit()              {}
func (Noop) Miss()             {}
func (Noop) Evict(EvictReason) {}
func (Noop) Size(int, int64)   {}

// Ensure Noop implements the Metrics interface at compile time.
var _ Metrics = Noop{}
