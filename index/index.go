// Package index implements an ordered key/value map: a hash map combined
// with a most-recently-set ordering, so that the least recently set entry
// can be found and removed in O(1).
//
// Nodes live in an arena (a slice) and are addressed by stable int32 slot
// indices; the map holds indices, not pointers. Freed slots are recycled
// through a free list. This keeps the linked ordering free of dangling
// references: an index either points at a live slot or is absent from the
// map, there is no third state.
//
// The structure has no locking of its own. Callers serialize access.
package index

// none marks an absent slot reference (empty list, detached link).
const none int32 = -1

// Ordered is a key→value map that additionally maintains ordering from
// most recently set (front) to least recently set (back). Set on an
// existing key overwrites the value and moves the entry to the front, so
// the back is always the least recently inserted-or-overwritten entry.
//
// All operations are amortized O(1). The zero value is not usable; call New.
type Ordered[K comparable, V any] struct {
	byKey map[K]int32
	slots []slot[K, V]
	free  []int32
	front int32
	back  int32
}

type slot[K comparable, V any] struct {
	key  K
	val  V
	prev int32
	next int32
}

// New returns an empty Ordered index.
func New[K comparable, V any]() *Ordered[K, V] {
	return &Ordered[K, V]{
		byKey: make(map[K]int32),
		front: none,
		back:  none,
	}
}

// Len returns the number of entries.
func (o *Ordered[K, V]) Len() int { return len(o.byKey) }

// Empty reports whether the index holds no entries.
func (o *Ordered[K, V]) Empty() bool { return len(o.byKey) == 0 }

// Has reports whether k is present.
func (o *Ordered[K, V]) Has(k K) bool {
	_, ok := o.byKey[k]
	return ok
}

// Get returns the value for k without changing its position.
func (o *Ordered[K, V]) Get(k K) (V, bool) {
	if i, ok := o.byKey[k]; ok {
		return o.slots[i].val, true
	}
	var zero V
	return zero, false
}

// Set inserts k→v at the front. If k is already present its value is
// replaced and the entry moves to the front.
func (o *Ordered[K, V]) Set(k K, v V) {
	if i, ok := o.byKey[k]; ok {
		o.slots[i].val = v
		o.moveToFront(i)
		return
	}
	i := o.alloc(k, v)
	o.byKey[k] = i
	o.pushFront(i)
}

// Touch moves k to the front if present and reports whether it was found.
func (o *Ordered[K, V]) Touch(k K) bool {
	i, ok := o.byKey[k]
	if ok {
		o.moveToFront(i)
	}
	return ok
}

// Remove deletes k and returns the removed value.
func (o *Ordered[K, V]) Remove(k K) (V, bool) {
	i, ok := o.byKey[k]
	if !ok {
		var zero V
		return zero, false
	}
	v := o.slots[i].val
	delete(o.byKey, k)
	o.unlink(i)
	o.release(i)
	return v, true
}

// PeekBack returns the least recently set entry without removing it.
func (o *Ordered[K, V]) PeekBack() (K, V, bool) {
	if o.back == none {
		var zk K
		var zv V
		return zk, zv, false
	}
	s := &o.slots[o.back]
	return s.key, s.val, true
}

// PopBack removes and returns the least recently set entry.
func (o *Ordered[K, V]) PopBack() (K, V, bool) {
	if o.back == none {
		var zk K
		var zv V
		return zk, zv, false
	}
	i := o.back
	k, v := o.slots[i].key, o.slots[i].val
	delete(o.byKey, k)
	o.unlink(i)
	o.release(i)
	return k, v, true
}

// RemoveAll drops every entry. Allocated slot capacity is retained.
func (o *Ordered[K, V]) RemoveAll() {
	clear(o.byKey)
	o.slots = o.slots[:0]
	o.free = o.free[:0]
	o.front, o.back = none, none
}

// -------------------- arena internals --------------------

// alloc takes a slot from the free list or grows the arena.
func (o *Ordered[K, V]) alloc(k K, v V) int32 {
	if n := len(o.free); n > 0 {
		i := o.free[n-1]
		o.free = o.free[:n-1]
		o.slots[i] = slot[K, V]{key: k, val: v, prev: none, next: none}
		return i
	}
	o.slots = append(o.slots, slot[K, V]{key: k, val: v, prev: none, next: none})
	return int32(len(o.slots) - 1)
}

// release zeroes the slot (so held values become collectable) and recycles it.
func (o *Ordered[K, V]) release(i int32) {
	o.slots[i] = slot[K, V]{prev: none, next: none}
	o.free = append(o.free, i)
}

// pushFront links a detached slot in at the front.
func (o *Ordered[K, V]) pushFront(i int32) {
	s := &o.slots[i]
	s.prev = none
	s.next = o.front
	if o.front != none {
		o.slots[o.front].prev = i
	}
	o.front = i
	if o.back == none {
		o.back = i
	}
}

// unlink detaches a slot from the ordering.
func (o *Ordered[K, V]) unlink(i int32) {
	s := &o.slots[i]
	if s.prev != none {
		o.slots[s.prev].next = s.next
	}
	if s.next != none {
		o.slots[s.next].prev = s.prev
	}
	if o.front == i {
		o.front = s.next
	}
	if o.back == i {
		o.back = s.prev
	}
	s.prev, s.next = none, none
}

func (o *Ordered[K, V]) moveToFront(i int32) {
	if o.front == i {
		return
	}
	o.unlink(i)
	o.pushFront(i)
}
