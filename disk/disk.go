// Package disk implements the disk-backed cache tier: one file per entry
// inside a dedicated cache directory, bounded by cumulative byte size and
// file age, with an in-memory descriptor index rebuilt from filesystem
// metadata at startup.
//
// Concurrency: read-only operations (Contains, Fetch, Len, TotalBytes)
// run concurrently with each other under a read lock; every mutating
// operation takes the write lock and so executes exclusively relative to
// all other operations on the tier. Files removed from the live directory
// are first renamed into a process-unique trash directory and deleted
// there by an independent single-worker sweeper, so slow deletes never
// block cache traffic.
//
// Every filesystem or codec failure is logged and swallowed: callers only
// ever observe present/absent results. A miss is a legitimate outcome,
// never a crash.
package disk

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-git/go-billy/v5/util"

	"github.com/tiercache/tiercache/index"
	"github.com/tiercache/tiercache/internal/cachepad"
	"github.com/tiercache/tiercache/metrics"
)

// descriptor is the in-memory record of a stored file. It caches
// filesystem truth and is reconciled against the directory at startup.
type descriptor struct {
	path    string
	modTime time.Time
	size    int64
}

// Tier is a byte-bounded, age-bounded disk cache.
// All methods are safe for concurrent use by multiple goroutines.
type Tier[K comparable, V any] struct {
	// ---- guarded by mu ----
	mu    sync.RWMutex
	idx   *index.Ordered[K, descriptor]
	total int64

	dir   string // live cache directory
	trash string // process-unique staging directory for deferred deletes

	opt Options[K, V]
	log *slog.Logger

	sweepCh   chan struct{}
	sweepDone chan struct{}
	closeOnce sync.Once
	closed    atomic.Bool

	// ---- hot counters (separate cache lines to avoid false sharing) ----
	hits   cachepad.PaddedAtomicInt64
	misses cachepad.PaddedAtomicInt64
	evicts cachepad.PaddedAtomicUint64
}

// Open constructs a disk tier and performs startup recovery: it creates
// the cache directory, rebuilds the descriptor index from directory
// metadata (oldest modification time first, so eviction order survives a
// restart), creates the trash directory, and runs one trim pass. The tier
// is fully initialized when Open returns.
func Open[K comparable, V any](opt Options[K, V]) (*Tier[K, V], error) {
	if opt.Name == "" {
		return nil, ErrNoName
	}
	if opt.Codec == nil {
		return nil, ErrNoCodec
	}
	if opt.Keys == nil {
		return nil, ErrNoKeys
	}
	if opt.ByteLimit < 0 || opt.AgeLimit < 0 {
		return nil, ErrBadLimit
	}
	if opt.ByteLimit == 0 {
		opt.ByteLimit = DefaultByteLimit
	}
	if opt.AgeLimit == 0 {
		opt.AgeLimit = DefaultAgeLimit
	}
	if opt.FS == nil {
		opt.FS = NewOSFilesystem()
	}
	if opt.Dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("disk: no parent directory: %w", err)
		}
		opt.Dir = base
	}
	if opt.Metrics == nil {
		opt.Metrics = metrics.Noop{}
	}
	if opt.Logger == nil {
		opt.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	t := &Tier[K, V]{
		idx:       index.New[K, descriptor](),
		opt:       opt,
		log:       opt.Logger.With("cache", opt.Name),
		sweepCh:   make(chan struct{}, 1),
		sweepDone: make(chan struct{}),
	}
	t.dir = opt.FS.Join(opt.Dir, escapeFilename(opt.Name))
	t.trash = opt.FS.Join(opt.Dir, fmt.Sprintf("%s.trash.%d.%d",
		escapeFilename(opt.Name), os.Getpid(), time.Now().UnixNano()))

	if err := opt.FS.MkdirAll(t.dir, 0o755); err != nil {
		return nil, fmt.Errorf("disk: create cache directory: %w", err)
	}
	if err := t.recover(); err != nil {
		return nil, err
	}
	if err := opt.FS.MkdirAll(t.trash, 0o755); err != nil {
		return nil, fmt.Errorf("disk: create trash directory: %w", err)
	}
	t.sweepStaleTrash(opt.Dir)

	go t.sweepLoop()

	t.mu.Lock()
	t.trimLocked()
	t.mu.Unlock()
	return t, nil
}

// recover lists the live directory and rebuilds the index, oldest file
// first. Files whose names do not decode back to a key are skipped.
func (t *Tier[K, V]) recover() error {
	infos, err := t.opt.FS.ReadDir(t.dir)
	if err != nil {
		return fmt.Errorf("disk: list cache directory: %w", err)
	}

	type found struct {
		key  K
		desc descriptor
	}
	files := make([]found, 0, len(infos))
	for _, fi := range infos {
		if !fi.Mode().IsRegular() {
			continue
		}
		raw, err := unescapeFilename(fi.Name())
		if err != nil {
			t.log.Warn("skipping unrecognized cache file", "file", fi.Name(), "err", err)
			continue
		}
		key, err := t.opt.Keys.DecodeKey(raw)
		if err != nil {
			t.log.Warn("skipping undecodable cache key", "file", fi.Name(), "err", err)
			continue
		}
		files = append(files, found{key: key, desc: descriptor{
			path:    t.opt.FS.Join(t.dir, fi.Name()),
			modTime: fi.ModTime(),
			size:    fi.Size(),
		}})
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].desc.modTime.Before(files[j].desc.modTime)
	})
	for _, f := range files {
		if t.idx.Has(f.key) {
			continue
		}
		t.idx.Set(f.key, f.desc)
		t.total += f.desc.size
	}
	return nil
}

// Contains reports whether k has a stored file.
func (t *Tier[K, V]) Contains(k K) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idx.Has(k)
}

// Fetch reads and decodes the stored value for k. It returns absent both
// when the key is unknown and when the read or decode fails; failures are
// logged, not surfaced.
func (t *Tier[K, V]) Fetch(k K) (V, bool) {
	if t.opt.TouchOnRead {
		// Promotion mutates the index, which needs the write lock.
		t.mu.Lock()
		defer t.mu.Unlock()
	} else {
		t.mu.RLock()
		defer t.mu.RUnlock()
	}

	var zero V
	d, ok := t.idx.Get(k)
	if !ok {
		t.miss()
		return zero, false
	}
	data, err := util.ReadFile(t.opt.FS, d.path)
	if err != nil {
		t.log.Warn("cache file unreadable", "path", d.path, "err", err)
		t.miss()
		return zero, false
	}
	v, err := t.opt.Codec.Decode(data)
	if err != nil {
		t.log.Warn("cache file undecodable", "path", d.path, "err", err)
		t.miss()
		return zero, false
	}
	if t.opt.TouchOnRead {
		t.idx.Touch(k)
	}
	t.hits.Add(1)
	t.opt.Metrics.Hit()
	return v, true
}

// Set encodes v and stores it under k, replacing any previous file for
// the key. On any failure the tier's visible state is as if the previous
// entry had simply been removed; no file is ever left behind without a
// matching descriptor.
func (t *Tier[K, V]) Set(k K, v V) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.dropLocked(k)
	t.scheduleSweep()

	data, err := t.opt.Codec.Encode(v)
	if err != nil {
		t.log.Warn("encode failed; skipping write", "err", err)
		return
	}
	path := t.pathFor(k)
	if err := util.WriteFile(t.opt.FS, path, data, 0o644); err != nil {
		t.log.Warn("cache write failed", "path", path, "err", err)
		return
	}
	fi, err := t.opt.FS.Stat(path)
	if err != nil {
		// Without attributes the descriptor cannot be built; remove the
		// file rather than leave it orphaned.
		t.log.Warn("stat after write failed; removing file", "path", path, "err", err)
		if rerr := t.opt.FS.Remove(path); rerr != nil {
			t.log.Warn("orphan removal failed", "path", path, "err", rerr)
		}
		return
	}

	t.idx.Set(k, descriptor{path: path, modTime: fi.ModTime(), size: fi.Size()})
	t.total += fi.Size()
	t.trimLocked()
}

// Link adopts an existing file on the same volume as the entry for k via
// a hard link, without copying bytes, then decodes and returns the value.
// Any previous file for k is replaced. Meant for raw-blob codecs: the
// linked file's contents were not produced by Encode.
func (t *Tier[K, V]) Link(src string, k K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero V

	t.dropLocked(k)
	t.scheduleSweep()

	path := t.pathFor(k)
	if err := t.opt.FS.Link(src, path); err != nil {
		t.log.Warn("hard link failed", "src", src, "path", path, "err", err)
		return zero, false
	}
	fi, err := t.opt.FS.Stat(path)
	if err != nil {
		t.log.Warn("stat after link failed; removing link", "path", path, "err", err)
		if rerr := t.opt.FS.Remove(path); rerr != nil {
			t.log.Warn("orphan removal failed", "path", path, "err", rerr)
		}
		return zero, false
	}

	t.idx.Set(k, descriptor{path: path, modTime: fi.ModTime(), size: fi.Size()})
	t.total += fi.Size()
	t.trimLocked()

	data, err := util.ReadFile(t.opt.FS, path)
	if err != nil {
		t.log.Warn("linked file unreadable", "path", path, "err", err)
		return zero, false
	}
	v, err := t.opt.Codec.Decode(data)
	if err != nil {
		t.log.Warn("linked file undecodable", "path", path, "err", err)
		return zero, false
	}
	return v, true
}

// Remove deletes the entry for k and returns its decoded value when the
// stored bytes are still readable. The file is moved to trash either way.
func (t *Tier[K, V]) Remove(k K) (V, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero V

	d, ok := t.idx.Get(k)
	if !ok {
		return zero, false
	}
	// Read before the file moves; a failed read degrades the result to
	// absent but never blocks the removal itself.
	data, rerr := util.ReadFile(t.opt.FS, d.path)

	t.idx.Remove(k)
	t.total -= d.size
	t.moveToTrashLocked(d)
	t.scheduleSweep()
	t.opt.Metrics.Size(t.idx.Len(), t.total)

	if rerr != nil {
		t.log.Warn("removed entry unreadable", "path", d.path, "err", rerr)
		return zero, false
	}
	v, err := t.opt.Codec.Decode(data)
	if err != nil {
		t.log.Warn("removed entry undecodable", "path", d.path, "err", err)
		return zero, false
	}
	return v, true
}

// Trim evicts least-recently-written entries until both the byte limit
// and the age limit are satisfied. Idempotent.
func (t *Tier[K, V]) Trim() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trimLocked()
}

// Clear moves every stored file to trash and resets the byte counter.
func (t *Tier[K, V]) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for {
		k, d, ok := t.idx.PopBack()
		if !ok {
			break
		}
		t.moveToTrashLocked(d)
		t.opt.Metrics.Evict(metrics.EvictClear)
		if cb := t.opt.OnEvict; cb != nil {
			cb(k, metrics.EvictClear)
		}
	}
	t.total = 0
	t.scheduleSweep()
	t.opt.Metrics.Size(0, 0)
}

// Len returns the number of indexed entries.
func (t *Tier[K, V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.idx.Len()
}

// TotalBytes returns the sum of stored file sizes.
func (t *Tier[K, V]) TotalBytes() int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.total
}

// Stats is a point-in-time snapshot of tier counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions uint64
	Entries   int
	Bytes     int64
}

// Stats returns a snapshot of the tier's counters.
func (t *Tier[K, V]) Stats() Stats {
	t.mu.RLock()
	entries, bytes := t.idx.Len(), t.total
	t.mu.RUnlock()
	return Stats{
		Hits:      t.hits.Load(),
		Misses:    t.misses.Load(),
		Evictions: t.evicts.Load(),
		Entries:   entries,
		Bytes:     bytes,
	}
}

// Close stops the trash sweeper, performs a final sweep, and removes the
// trash directory. The tier remains usable afterwards; files removed
// after Close are deleted in place instead of staged in trash.
func (t *Tier[K, V]) Close() error {
	t.closeOnce.Do(func() {
		// Mutators call scheduleSweep under the write lock, so flipping
		// the flag and closing the channel under the same lock leaves no
		// window for a send on the closed channel.
		t.mu.Lock()
		t.closed.Store(true)
		close(t.sweepCh)
		t.mu.Unlock()

		<-t.sweepDone
		t.sweepTrash()
		if err := util.RemoveAll(t.opt.FS, t.trash); err != nil {
			t.log.Warn("trash directory removal failed", "path", t.trash, "err", err)
		}
	})
	return nil
}

// -------------------- internals (mu held) --------------------

func (t *Tier[K, V]) pathFor(k K) string {
	return t.opt.FS.Join(t.dir, escapeFilename(t.opt.Keys.EncodeKey(k)))
}

func (t *Tier[K, V]) now() time.Time {
	if t.opt.Clock != nil {
		return time.Unix(0, t.opt.Clock.NowUnixNano())
	}
	return time.Now()
}

func (t *Tier[K, V]) miss() {
	t.misses.Add(1)
	t.opt.Metrics.Miss()
}

// dropLocked removes any existing entry for k and stages its file for
// deletion. Used by Set and Link before installing the replacement.
func (t *Tier[K, V]) dropLocked(k K) {
	d, ok := t.idx.Remove(k)
	if !ok {
		return
	}
	t.total -= d.size
	t.moveToTrashLocked(d)
}

// moveToTrashLocked renames the descriptor's file into the trash
// directory under the same filename. If the rename fails the file is
// deleted in place, so the live directory never keeps a stale file.
func (t *Tier[K, V]) moveToTrashLocked(d descriptor) {
	if t.closed.Load() {
		if err := t.opt.FS.Remove(d.path); err != nil {
			t.log.Warn("delete failed", "path", d.path, "err", err)
		}
		return
	}
	dst := t.opt.FS.Join(t.trash, lastElem(d.path))
	if err := t.opt.FS.Rename(d.path, dst); err != nil {
		t.log.Warn("trash move failed; deleting in place", "path", d.path, "err", err)
		if rerr := t.opt.FS.Remove(d.path); rerr != nil {
			t.log.Warn("delete failed", "path", d.path, "err", rerr)
		}
	}
}

// trimLocked pops the least-recently-written entry while the tier is over
// the byte limit or the oldest file is over the age limit, then schedules
// one sweep for the whole batch.
func (t *Tier[K, V]) trimLocked() {
	trimmed := false
	for !t.idx.Empty() {
		overBytes := t.total > t.opt.ByteLimit

		overAge := false
		if _, d, ok := t.idx.PeekBack(); ok {
			overAge = t.now().Sub(d.modTime) > t.opt.AgeLimit
		}
		if !overBytes && !overAge {
			break
		}

		k, d, _ := t.idx.PopBack()
		t.total -= d.size
		t.moveToTrashLocked(d)
		trimmed = true
		t.evicts.Add(1)

		reason := metrics.EvictCapacity
		if !overBytes {
			reason = metrics.EvictAge
		}
		t.opt.Metrics.Evict(reason)
		if cb := t.opt.OnEvict; cb != nil {
			cb(k, reason)
		}
	}
	if trimmed {
		t.scheduleSweep()
	}
	t.opt.Metrics.Size(t.idx.Len(), t.total)
}

// -------------------- trash sweeping --------------------

// scheduleSweep wakes the sweeper without blocking; a pending wake-up is
// enough, the sweeper always drains the whole directory.
func (t *Tier[K, V]) scheduleSweep() {
	if t.closed.Load() {
		return
	}
	select {
	case t.sweepCh <- struct{}{}:
	default:
	}
}

func (t *Tier[K, V]) sweepLoop() {
	defer close(t.sweepDone)
	for range t.sweepCh {
		t.sweepTrash()
	}
}

// sweepStaleTrash removes trash directories left behind by earlier
// processes whose Close never ran. Best effort; a directory that cannot
// be removed stays until the next Open.
func (t *Tier[K, V]) sweepStaleTrash(parent string) {
	infos, err := t.opt.FS.ReadDir(parent)
	if err != nil {
		t.log.Warn("parent directory listing failed", "path", parent, "err", err)
		return
	}
	prefix := escapeFilename(t.opt.Name) + ".trash."
	for _, fi := range infos {
		if !fi.IsDir() || !strings.HasPrefix(fi.Name(), prefix) {
			continue
		}
		p := t.opt.FS.Join(parent, fi.Name())
		if p == t.trash {
			continue
		}
		if err := util.RemoveAll(t.opt.FS, p); err != nil {
			t.log.Warn("stale trash removal failed", "path", p, "err", err)
		}
	}
}

// sweepTrash deletes everything currently in the trash directory.
// Failures stay behind and are retried on the next sweep.
func (t *Tier[K, V]) sweepTrash() {
	infos, err := t.opt.FS.ReadDir(t.trash)
	if err != nil {
		t.log.Warn("trash listing failed", "path", t.trash, "err", err)
		return
	}
	for _, fi := range infos {
		p := t.opt.FS.Join(t.trash, fi.Name())
		if err := t.opt.FS.Remove(p); err != nil {
			t.log.Warn("trash delete failed", "path", p, "err", err)
		}
	}
}

// lastElem returns the final path element. The tier builds all paths with
// FS.Join, which normalizes to forward slashes on every billy backend.
func lastElem(p string) string {
	for i := len(p) - 1; i >= 0; i-- {
		if p[i] == '/' || p[i] == os.PathSeparator {
			return p[i+1:]
		}
	}
	return p
}
