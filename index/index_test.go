package index

import "testing"

// Get reflects the most recent Set not followed by Remove.
func TestOrdered_SetGetRemove(t *testing.T) {
	t.Parallel()

	o := New[string, int]()
	if !o.Empty() || o.Len() != 0 {
		t.Fatal("new index must be empty")
	}

	o.Set("a", 1)
	o.Set("b", 2)
	o.Set("a", 11) // overwrite

	if v, ok := o.Get("a"); !ok || v != 11 {
		t.Fatalf("Get a want 11, got %v ok=%v", v, ok)
	}
	if !o.Has("b") {
		t.Fatal("b must be present")
	}
	if o.Len() != 2 {
		t.Fatalf("Len want 2, got %d", o.Len())
	}

	if v, ok := o.Remove("a"); !ok || v != 11 {
		t.Fatalf("Remove a want 11, got %v ok=%v", v, ok)
	}
	if _, ok := o.Get("a"); ok {
		t.Fatal("a must be absent after Remove")
	}
	if _, ok := o.Remove("a"); ok {
		t.Fatal("double Remove must report absent")
	}
}

// PopBack drains entries oldest-set first; overwrite refreshes recency.
func TestOrdered_PopBackOrder(t *testing.T) {
	t.Parallel()

	o := New[string, int]()
	o.Set("a", 1)
	o.Set("b", 2)
	o.Set("c", 3)
	o.Set("a", 10) // "a" becomes most recent; "b" is now oldest

	want := []string{"b", "c", "a"}
	for _, w := range want {
		k, _, ok := o.PopBack()
		if !ok || k != w {
			t.Fatalf("PopBack want %q, got %q ok=%v", w, k, ok)
		}
	}
	if _, _, ok := o.PopBack(); ok {
		t.Fatal("PopBack on empty index must report absent")
	}
}

// PeekBack observes the oldest entry without removing it.
func TestOrdered_PeekBack(t *testing.T) {
	t.Parallel()

	o := New[string, int]()
	if _, _, ok := o.PeekBack(); ok {
		t.Fatal("PeekBack on empty index must report absent")
	}

	o.Set("x", 1)
	o.Set("y", 2)
	if k, v, ok := o.PeekBack(); !ok || k != "x" || v != 1 {
		t.Fatalf("PeekBack want x=1, got %q=%v ok=%v", k, v, ok)
	}
	if o.Len() != 2 {
		t.Fatal("PeekBack must not remove")
	}
}

// Touch promotes an entry to most-recent without changing its value.
func TestOrdered_Touch(t *testing.T) {
	t.Parallel()

	o := New[string, int]()
	o.Set("a", 1)
	o.Set("b", 2)

	if !o.Touch("a") {
		t.Fatal("Touch existing must report true")
	}
	if o.Touch("zzz") {
		t.Fatal("Touch absent must report false")
	}

	if k, _, _ := o.PeekBack(); k != "b" {
		t.Fatalf("after Touch(a), oldest must be b, got %q", k)
	}
	if v, ok := o.Get("a"); !ok || v != 1 {
		t.Fatal("Touch must not change the value")
	}
}

// Freed slots are recycled: heavy churn must not grow the arena unboundedly.
func TestOrdered_SlotReuse(t *testing.T) {
	t.Parallel()

	o := New[string, int]()
	for i := 0; i < 10_000; i++ {
		o.Set("k", i)
		o.Remove("k")
	}
	if got := len(o.slots); got > 1 {
		t.Fatalf("arena must recycle slots, grew to %d", got)
	}
}

func TestOrdered_RemoveAll(t *testing.T) {
	t.Parallel()

	o := New[string, int]()
	o.Set("a", 1)
	o.Set("b", 2)
	o.RemoveAll()

	if !o.Empty() {
		t.Fatal("index must be empty after RemoveAll")
	}
	if _, _, ok := o.PeekBack(); ok {
		t.Fatal("no back entry after RemoveAll")
	}

	// Index stays usable after RemoveAll.
	o.Set("c", 3)
	if k, v, ok := o.PopBack(); !ok || k != "c" || v != 3 {
		t.Fatalf("PopBack after RemoveAll want c=3, got %q=%v", k, v)
	}
}

// Interleaved removals from the middle keep the ordering intact.
func TestOrdered_MiddleRemoval(t *testing.T) {
	t.Parallel()

	o := New[int, int]()
	for i := 0; i < 8; i++ {
		o.Set(i, i)
	}
	for i := 0; i < 8; i += 2 {
		o.Remove(i)
	}

	want := []int{1, 3, 5, 7}
	for _, w := range want {
		k, _, ok := o.PopBack()
		if !ok || k != w {
			t.Fatalf("PopBack want %d, got %d ok=%v", w, k, ok)
		}
	}
}
