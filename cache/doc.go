// Package cache composes a two-tier object cache: an in-memory tier
// bounded by cumulative cost and age, and a disk-backed tier bounded by
// cumulative byte size and age.
//
// Design
//
//   - Tiers: the memory tier (package memory) answers first; a miss falls
//     through to the disk tier (package disk). Writes go through to both.
//     Disk hits are not promoted back into memory, and disk reads do not
//     refresh eviction order; both tiers evict by write recency unless
//     TouchOnRead is enabled on a tier.
//
//   - Ordering: each tier keeps its entries in an ordered index
//     (package index) from most to least recently written; the trim pass
//     repeatedly drops the least recently written entry until the tier is
//     back under its cost/byte and age limits.
//
//   - Durability: the disk tier stores one file per entry, named by a
//     percent-escaped form of the key. At startup it rebuilds its index
//     from directory metadata, so eviction order survives restarts via
//     file modification times. Files leaving the live directory are
//     staged in a trash directory and deleted by a background sweeper.
//
//   - Failure model: the disk tier is best-effort. Filesystem and codec
//     failures are logged and reported as plain misses; only constructor
//     misconfiguration surfaces as an error.
//
//   - GetOrLoad: coalesces concurrent loads for the same key using
//     singleflight and writes the loaded value through both tiers.
//
// Basic usage
//
//	mem, _ := memory.New[string, []byte](memory.Options[string, []byte]{
//	    CostLimit: 10 << 20,
//	})
//	dsk, _ := disk.Open[string, []byte](disk.Options[string, []byte]{
//	    Name:  "thumbnails",
//	    Codec: codec.Bytes(),
//	    Keys:  disk.StringKeys(),
//	})
//	c, _ := cache.New(mem, dsk, cache.Options[string, []byte]{})
//	defer c.Close()
//
//	c.Set("a", []byte("1"), 1)
//	if v, ok := c.Fetch("a"); ok {
//	    _ = v // use value
//	}
//
// Pressure signals
//
// The memory tier clears itself on application-forwarded lifecycle
// events:
//
//	sig := make(chan memory.Signal, 1)
//	mem.Watch(sig)
//	// elsewhere: sig <- memory.SignalMemoryWarning
//
// Thread-safety
//
// All methods on Cache are safe for concurrent use. Memory operations
// are O(1) under a single mutex; disk reads run concurrently with each
// other, while disk mutations take the tier exclusively.
package cache
