// list.go implements an intrusive singly-linked list with O(1) append and
// cursor-based removal, backed by a global per-element-type free list
// recycled under a spin-lock rather than a general-purpose allocator.
//
// Grounded on eventloop/ingress.go's ChunkedIngress (pool-backed node
// recycling under caller-held external synchronization) and
// eventloop/state.go's FastState (atomic CAS loop primitive, here applied
// to a lock instead of a state value).
package lthread

import (
	"runtime"
	"sync/atomic"
)

// node is one element of an ilist, or one entry in a freeList's recycled
// chain (the two uses share the same struct and next pointer).
type node[T any] struct {
	value T
	next  *node[T]
}

// spinlock is a minimal CAS-based mutual exclusion primitive. It is
// appropriate here (rather than sync.Mutex) because freeList critical
// sections are a handful of pointer writes, and spec.md calls for "global
// per-type node recycling under a spin-lock" specifically.
type spinlock struct {
	held atomic.Bool
}

func (s *spinlock) Lock() {
	for !s.held.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
}

func (s *spinlock) Unlock() {
	s.held.Store(false)
}

// freeList is a global, per-element-type pool of recycled list nodes.
// Mailboxes never allocate a node directly; they borrow from and return to
// this pool, so steady-state put/get traffic across many mailboxes causes
// no incremental GC pressure.
type freeList[T any] struct {
	mu   spinlock
	head *node[T]
}

func newFreeList[T any]() *freeList[T] {
	return &freeList[T]{}
}

func (f *freeList[T]) get(value T) *node[T] {
	f.mu.Lock()
	n := f.head
	if n != nil {
		f.head = n.next
	}
	f.mu.Unlock()
	if n == nil {
		n = &node[T]{}
	}
	n.value = value
	n.next = nil
	return n
}

func (f *freeList[T]) put(n *node[T]) {
	var zero T
	n.value = zero // drop the payload reference before recycling
	f.mu.Lock()
	n.next = f.head
	f.head = n
	f.mu.Unlock()
}

// messageNodePool is the single global recycling pool shared by every
// Mailbox's four lanes (shared/local x standard/priority), since they all
// store Message elements.
var messageNodePool = newFreeList[Message]()

// ilist is a singly-linked FIFO list with O(1) PushBack/PopFront/SpliceBack
// and cursor-based mid-list removal. It is NOT safe for concurrent use;
// callers provide their own synchronization (the mailbox mutex, for the
// shared_* lanes; single-owner-thread discipline, for the local_* lanes).
type ilist[T any] struct {
	pool       *freeList[T]
	head, tail *node[T]
	length     int
}

func newIlist[T any](pool *freeList[T]) *ilist[T] {
	return &ilist[T]{pool: pool}
}

// Len returns the number of elements currently stored.
func (l *ilist[T]) Len() int { return l.length }

// PushBack appends value in O(1).
func (l *ilist[T]) PushBack(value T) {
	n := l.pool.get(value)
	if l.tail == nil {
		l.head, l.tail = n, n
	} else {
		l.tail.next = n
		l.tail = n
	}
	l.length++
}

// Front returns the first element without removing it.
func (l *ilist[T]) Front() (T, bool) {
	if l.head == nil {
		var zero T
		return zero, false
	}
	return l.head.value, true
}

// PopFront removes and returns the first element.
func (l *ilist[T]) PopFront() (T, bool) {
	if l.head == nil {
		var zero T
		return zero, false
	}
	n := l.head
	val := n.value
	l.head = n.next
	if l.head == nil {
		l.tail = nil
	}
	l.length--
	l.pool.put(n)
	return val, true
}

// SpliceBack moves every node of other onto the back of l in O(1), leaving
// other empty. Both lists must share the same pool.
func (l *ilist[T]) SpliceBack(other *ilist[T]) {
	if other.head == nil {
		return
	}
	if l.tail == nil {
		l.head = other.head
	} else {
		l.tail.next = other.head
	}
	l.tail = other.tail
	l.length += other.length
	other.head, other.tail, other.length = nil, nil, 0
}

// cursor supports a single forward pass over an ilist with O(1) removal of
// the node currently under the cursor, matching component A's "cursor
// removal" requirement without a doubly-linked list.
type cursor[T any] struct {
	list    *ilist[T]
	prev    *node[T] // node preceding cur, or nil if cur is the head
	cur     *node[T]
	started bool
}

// Cursor returns a new cursor positioned before the first element.
func (l *ilist[T]) Cursor() *cursor[T] {
	return &cursor[T]{list: l}
}

// Next advances the cursor to the next element. It returns false once the
// list is exhausted. The first call moves onto the head element.
func (c *cursor[T]) Next() bool {
	if !c.started {
		c.started = true
		c.cur = c.list.head
		c.prev = nil
		return c.cur != nil
	}
	c.prev = c.cur
	c.cur = c.cur.next
	return c.cur != nil
}

// More reports whether the cursor currently sits on a valid element,
// without advancing. Used after Remove, which already advances internally.
func (c *cursor[T]) More() bool { return c.cur != nil }

// Value returns the element currently under the cursor.
func (c *cursor[T]) Value() T { return c.cur.value }

// Remove unlinks the element currently under the cursor in O(1) and
// advances the cursor onto the following element (so callers must not call
// Next again to move past the removed element; check More instead).
func (c *cursor[T]) Remove() T {
	removed := c.cur
	next := removed.next
	if c.prev == nil {
		c.list.head = next
	} else {
		c.prev.next = next
	}
	if removed == c.list.tail {
		c.list.tail = c.prev
	}
	c.list.length--
	val := removed.value
	c.list.pool.put(removed)
	c.cur = next
	return val
}
