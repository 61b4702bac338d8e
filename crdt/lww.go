package crdt

import "bytes"

// Clock is a logical clock for LWW registers: (PeerId, logical_counter).
// Merge picks the larger clock, breaking ties deterministically by
// comparing PeerId bytes lexicographically — spec section 3 calls this out
// as required for convergence, not an implementation detail.
type Clock struct {
	Peer    [32]byte
	Counter uint64
}

// Less reports whether c sorts strictly before other: smaller counter
// first, then lexicographically smaller peer bytes on a tie.
func (c Clock) Less(other Clock) bool {
	if c.Counter != other.Counter {
		return c.Counter < other.Counter
	}
	return bytes.Compare(c.Peer[:], other.Peer[:]) < 0
}

// LWW is a last-write-wins register: merge keeps the value with the larger
// clock, with Clock.Less providing the deterministic total order.
type LWW[T any] struct {
	value T
	clock Clock
	set   bool
}

// NewLWW returns a zero-valued, unset register.
func NewLWW[T any]() *LWW[T] {
	return &LWW[T]{}
}

// Set advances the register's clock and stores value, unconditionally —
// this is the local-mutation path: the caller's own clock always wins
// locally, remote writes go through Merge instead.
func (r *LWW[T]) Set(value T, peer [32]byte) {
	next := r.clock.Counter + 1
	r.value = value
	r.clock = Clock{Peer: peer, Counter: next}
	r.set = true
}

// SetAt stores value at an explicit clock, used when replaying a remote
// write whose clock must be preserved rather than re-derived.
func (r *LWW[T]) SetAt(value T, clock Clock) {
	if r.set && !r.clock.Less(clock) {
		return
	}
	r.value = value
	r.clock = clock
	r.set = true
}

// Get returns the current value and whether the register has ever been set.
func (r *LWW[T]) Get() (T, bool) {
	return r.value, r.set
}

// Clock returns the register's current clock.
func (r *LWW[T]) Clock() Clock { return r.clock }

// Merge keeps whichever of r/other has the larger clock; on a tie, the
// comparison is deterministic (Clock.Less), so repeated merges of the same
// pair always converge to the same value.
func (r *LWW[T]) Merge(other *LWW[T]) {
	if !other.set {
		return
	}
	if !r.set || r.clock.Less(other.clock) {
		r.value = other.value
		r.clock = other.clock
		r.set = true
	}
}

// Clone returns a copy of the register.
func (r *LWW[T]) Clone() *LWW[T] {
	out := *r
	return &out
}
