package disk

import (
	"bytes"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/require"

	"github.com/tiercache/tiercache/codec"
)

func reopen(t *testing.T, dir string, limit int64) *Tier[string, []byte] {
	t.Helper()
	tier, err := Open(Options[string, []byte]{
		Name:      "store",
		Dir:       dir,
		ByteLimit: limit,
		Codec:     codec.Bytes(),
		Keys:      StringKeys(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = tier.Close() })
	return tier
}

// A new instance over the same directory sees every previously-set,
// non-evicted key with the same contents.
func TestRecovery_ContentsSurviveRestart(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := reopen(t, dir, 0)
	first.Set("a", []byte("va"))
	first.Set("b", []byte("vb"))
	first.Set("sp ace/slash", []byte("vc"))
	require.NoError(t, first.Close())

	second := reopen(t, dir, 0)
	require.Equal(t, 3, second.Len())
	require.Equal(t, first.TotalBytes(), second.TotalBytes())

	for k, want := range map[string]string{
		"a": "va", "b": "vb", "sp ace/slash": "vc",
	} {
		require.True(t, second.Contains(k), "key %q", k)
		v, ok := second.Fetch(k)
		require.True(t, ok, "key %q", k)
		require.Equal(t, want, string(v))
	}
	_, ok := second.Fetch("never-set")
	require.False(t, ok)
}

// Eviction order is rebuilt from modification times: after a restart the
// oldest-written key is still the first to go.
func TestRecovery_OrderRebuiltFromModTimes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := reopen(t, dir, 0)
	blob := bytes.Repeat([]byte("x"), 40)
	first.Set("a", blob)
	time.Sleep(10 * time.Millisecond)
	first.Set("b", blob)
	time.Sleep(10 * time.Millisecond)
	first.Set("c", blob)
	require.NoError(t, first.Close())

	second := reopen(t, dir, 100)
	// 120 bytes against a 100-byte limit: the startup trim pass drops
	// exactly the oldest entry.
	require.False(t, second.Contains("a"))
	require.True(t, second.Contains("b"))
	require.True(t, second.Contains("c"))
	require.LessOrEqual(t, second.TotalBytes(), int64(100))
}

// Foreign files that do not decode to a key are ignored, not fatal.
func TestRecovery_SkipsForeignFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := reopen(t, dir, 0)
	first.Set("good", []byte("v"))
	require.NoError(t, first.Close())

	// Drop junk into the live directory: a malformed escape sequence and
	// a lowercase-hex name that this tier never writes. Accepting the
	// latter would alias the key that "%2F" encodes.
	fs := NewOSFilesystem()
	require.NoError(t, util.WriteFile(fs, fs.Join(dir, "store", "%zz"), []byte("junk"), 0o644))
	require.NoError(t, util.WriteFile(fs, fs.Join(dir, "store", "%2f"), []byte("junk"), 0o644))

	second := reopen(t, dir, 0)
	require.Equal(t, 1, second.Len())
	require.True(t, second.Contains("good"))
	_, ok := second.Fetch("/")
	require.False(t, ok)
}

// Trash directories abandoned by a crashed process are cleaned up by the
// next Open over the same parent directory.
func TestRecovery_SweepsStaleTrash(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fs := NewOSFilesystem()
	stale := fs.Join(dir, "store.trash.9999.1")
	require.NoError(t, fs.MkdirAll(stale, 0o755))
	require.NoError(t, util.WriteFile(fs, fs.Join(stale, "orphan"), []byte("x"), 0o644))

	tier := reopen(t, dir, 0)
	_, err := fs.Stat(stale)
	require.Error(t, err, "stale trash directory must be removed")
	_, err = fs.Stat(tier.trash)
	require.NoError(t, err, "the tier's own trash directory must survive")
}
