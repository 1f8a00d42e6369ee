package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tiercache/tiercache/codec"
	"github.com/tiercache/tiercache/disk"
	"github.com/tiercache/tiercache/memory"
)

type fixture struct {
	c   Cache[string, string]
	mem *memory.Tier[string, string]
	dsk *disk.Tier[string, string]
}

func newFixture(t *testing.T, opt Options[string, string]) *fixture {
	t.Helper()

	mem, err := memory.New[string, string](memory.Options[string, string]{CostLimit: 1 << 20})
	if err != nil {
		t.Fatal(err)
	}
	dsk, err := disk.Open(disk.Options[string, string]{
		Name:  "strings",
		Dir:   t.TempDir(),
		Codec: codec.JSON[string](),
		Keys:  disk.StringKeys(),
	})
	if err != nil {
		t.Fatal(err)
	}
	c, err := New(mem, dsk, opt)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return &fixture{c: c, mem: mem, dsk: dsk}
}

func TestNew_RequiresBothTiers(t *testing.T) {
	t.Parallel()

	if _, err := New[string, string](nil, nil, Options[string, string]{}); err != ErrNilTier {
		t.Fatalf("want ErrNilTier, got %v", err)
	}
}

// Set lands in both tiers; Fetch prefers the memory copy.
func TestTiered_WriteThrough(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options[string, string]{})
	f.c.Set("a", "v", 1)

	if !f.mem.Contains("a") {
		t.Fatal("memory tier must hold a")
	}
	if !f.dsk.Contains("a") {
		t.Fatal("disk tier must hold a")
	}
	if v, ok := f.c.Fetch("a"); !ok || v != "v" {
		t.Fatalf("Fetch a want v, got %q ok=%v", v, ok)
	}
}

// A memory miss with a disk hit serves the disk value without promoting
// it into memory and without any error surfacing.
func TestTiered_ReadThroughNoPromotion(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options[string, string]{})
	f.dsk.Set("only-disk", "dv") // bypass the memory tier

	if f.mem.Contains("only-disk") {
		t.Fatal("precondition: memory must miss")
	}
	v, ok := f.c.Fetch("only-disk")
	if !ok || v != "dv" {
		t.Fatalf("Fetch want dv, got %q ok=%v", v, ok)
	}
	if f.mem.Contains("only-disk") {
		t.Fatal("disk hit must not be promoted into memory")
	}

	if !f.c.Contains("only-disk") {
		t.Fatal("Contains must fall through to disk")
	}
}

// Remove prefers the memory value and fans out to disk fire-and-forget.
func TestTiered_RemoveFanOut(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options[string, string]{})
	f.c.Set("a", "v", 1)

	v, ok := f.c.Remove("a")
	if !ok || v != "v" {
		t.Fatalf("Remove want v, got %q ok=%v", v, ok)
	}
	if f.mem.Contains("a") {
		t.Fatal("a must be gone from memory")
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.dsk.Contains("a") {
		if time.Now().After(deadline) {
			t.Fatal("disk removal did not land")
		}
		time.Sleep(time.Millisecond)
	}

	// Disk-only entries are removed synchronously and returned.
	f.dsk.Set("d", "dv")
	if v, ok := f.c.Remove("d"); !ok || v != "dv" {
		t.Fatalf("Remove d want dv, got %q ok=%v", v, ok)
	}

	// Removing a key that was never set reports absent, not an error.
	if _, ok := f.c.Remove("ghost"); ok {
		t.Fatal("removing an absent key must report absent")
	}
}

func TestTiered_ClearAndTrim(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options[string, string]{})
	f.c.Set("a", "1", 1)
	f.c.Set("b", "2", 1)

	f.c.Trim() // both tiers under their limits: a no-op
	if !f.c.Contains("a") || !f.c.Contains("b") {
		t.Fatal("Trim under limits must not evict")
	}

	f.c.Clear()
	if f.c.Contains("a") || f.c.Contains("b") {
		t.Fatal("Clear must drop entries from both tiers")
	}
	if f.mem.Len() != 0 || f.dsk.Len() != 0 {
		t.Fatalf("tiers not empty: mem=%d disk=%d", f.mem.Len(), f.dsk.Len())
	}
}

func TestTiered_GetOrLoad_NoLoader(t *testing.T) {
	t.Parallel()

	f := newFixture(t, Options[string, string]{})
	if _, err := f.c.GetOrLoad(context.Background(), "k"); err != ErrNoLoader {
		t.Fatalf("want ErrNoLoader, got %v", err)
	}
}

// Concurrent GetOrLoad calls for the same key trigger the Loader at most
// once; the loaded value lands in both tiers.
func TestTiered_GetOrLoad_Singleflight(t *testing.T) {
	var calls int64

	f := newFixture(t, Options[string, string]{
		Loader: func(_ context.Context, k string) (string, error) {
			atomic.AddInt64(&calls, 1)
			time.Sleep(5 * time.Millisecond) // simulate I/O
			return "v:" + k, nil
		},
		Cost: func(v string) int64 { return int64(len(v)) },
	})

	const N = 64
	var g errgroup.Group
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < N; i++ {
		g.Go(func() error {
			v, err := f.c.GetOrLoad(ctx, "k")
			if err != nil {
				return err
			}
			if v != "v:k" {
				return fmt.Errorf("got %q", v)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("loader must run exactly once, got %d", got)
	}
	if !f.mem.Contains("k") || !f.dsk.Contains("k") {
		t.Fatal("loaded value must be written through both tiers")
	}
}

// A disk hit satisfies GetOrLoad without invoking the Loader.
func TestTiered_GetOrLoad_DiskHitSkipsLoader(t *testing.T) {
	t.Parallel()

	var calls int64
	f := newFixture(t, Options[string, string]{
		Loader: func(_ context.Context, k string) (string, error) {
			atomic.AddInt64(&calls, 1)
			return "loaded", nil
		},
	})
	f.dsk.Set("k", "from-disk")

	v, err := f.c.GetOrLoad(context.Background(), "k")
	if err != nil || v != "from-disk" {
		t.Fatalf("want from-disk, got %q err=%v", v, err)
	}
	if atomic.LoadInt64(&calls) != 0 {
		t.Fatal("loader must not run on a disk hit")
	}
}
