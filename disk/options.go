package disk

import (
	"errors"
	"log/slog"
	"time"

	"github.com/tiercache/tiercache/codec"
	"github.com/tiercache/tiercache/metrics"
)

// Defaults applied by Open when the corresponding option is zero.
const (
	DefaultByteLimit = 50 << 20 // 50 MiB
	DefaultAgeLimit  = 30 * 24 * time.Hour
)

var (
	// ErrNoName is returned by Open when Options.Name is empty.
	ErrNoName = errors.New("disk: cache name must not be empty")
	// ErrNoCodec is returned by Open when no value codec is configured.
	ErrNoCodec = errors.New("disk: value codec must be provided")
	// ErrNoKeys is returned by Open when no key codec is configured.
	ErrNoKeys = errors.New("disk: key codec must be provided")
	// ErrBadLimit is returned by Open when a limit is negative.
	ErrBadLimit = errors.New("disk: limits must be >= 0")
)

// Clock provides time in UnixNano; useful for deterministic tests.
type Clock interface{ NowUnixNano() int64 }

// Options configures a disk tier.
type Options[K comparable, V any] struct {
	// Name identifies the cache; the live directory is <Dir>/<Name>.
	// Required, non-empty.
	Name string

	// Dir is the parent directory for the cache. Empty => the platform
	// user cache directory (os.UserCacheDir).
	Dir string

	// FS is the filesystem collaborator. Nil => the operating system.
	FS Filesystem

	// Codec serializes values to and from stored bytes. Required.
	Codec codec.Codec[V]

	// Keys maps keys to their string form. Required.
	// Use StringKeys() when K is string.
	Keys KeyCodec[K]

	// ByteLimit caps the sum of stored file sizes. 0 => DefaultByteLimit.
	ByteLimit int64

	// AgeLimit caps how long a file may stay cached after its last
	// write. 0 => DefaultAgeLimit.
	AgeLimit time.Duration

	// TouchOnRead makes Fetch refresh the entry's recency in the index.
	// Off by default: disk eviction order is driven purely by write
	// recency. Note the file's modification time is not rewritten, so
	// the refreshed order does not survive a restart.
	TouchOnRead bool

	// OnEvict is called for every trim/clear eviction while the tier is
	// in its exclusive section; keep callbacks lightweight.
	OnEvict func(k K, reason metrics.EvictReason)

	// Metrics receives Hit/Miss/Evict/Size signals. Nil => metrics.Noop.
	Metrics metrics.Metrics

	// Logger receives diagnostics for swallowed filesystem and codec
	// failures. Nil => discard.
	Logger *slog.Logger

	// Clock allows overriding the time source (tests). Nil => time.Now().
	Clock Clock
}
