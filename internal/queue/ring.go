// Package queue implements a bounded lock-free multi-producer/multi-consumer
// ring buffer following the standard Vyukov MPMC scheme: one sequence
// counter per slot, acquire/release ordering on the counter, relaxed CAS on
// the enqueue/dequeue tickets.
package queue

import "sync/atomic"

type cell[T any] struct {
	sequence uint64
	data     T
}

// Ring is a fixed-capacity lock-free MPMC queue. Capacity must be a power of
// two, at least 2. Both TryPush and TryPop are wait-free per attempt; the
// caller retries under contention.
type Ring[T any] struct {
	mask   uint64
	cells  []cell[T]
	enqPos uint64
	_      [56]byte // pad to keep enqPos/deqPos on separate cache lines
	deqPos uint64
}

// NewRing creates a ring of the given capacity, rounded up to the next
// power of two (minimum 2).
func NewRing[T any](capacity int) *Ring[T] {
	c := nextPow2(capacity)
	r := &Ring[T]{
		mask:  uint64(c - 1),
		cells: make([]cell[T], c),
	}
	for i := range r.cells {
		r.cells[i].sequence = uint64(i)
	}
	return r
}

func nextPow2(n int) int {
	if n < 2 {
		return 2
	}
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// Cap returns the ring's fixed capacity.
func (r *Ring[T]) Cap() int { return int(r.mask + 1) }

// TryPush attempts to enqueue v. Returns false if the ring is full.
func (r *Ring[T]) TryPush(v T) bool {
	pos := atomic.LoadUint64(&r.enqPos)
	for {
		c := &r.cells[pos&r.mask]
		seq := atomic.LoadUint64(&c.sequence) // acquire
		diff := int64(seq) - int64(pos)
		switch {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&r.enqPos, pos, pos+1) {
				c.data = v
				atomic.StoreUint64(&c.sequence, pos+1) // release
				return true
			}
			pos = atomic.LoadUint64(&r.enqPos)
		case diff < 0:
			return false
		default:
			pos = atomic.LoadUint64(&r.enqPos)
		}
	}
}

// TryPop attempts to dequeue into out. Returns false if the ring is empty.
func (r *Ring[T]) TryPop(out *T) bool {
	pos := atomic.LoadUint64(&r.deqPos)
	for {
		c := &r.cells[pos&r.mask]
		seq := atomic.LoadUint64(&c.sequence) // acquire
		diff := int64(seq) - int64(pos+1)
		switch {
		case diff == 0:
			if atomic.CompareAndSwapUint64(&r.deqPos, pos, pos+1) {
				*out = c.data
				var zero T
				c.data = zero
				atomic.StoreUint64(&c.sequence, pos+r.mask+1) // release, wraps for next lap
				return true
			}
			pos = atomic.LoadUint64(&r.deqPos)
		case diff < 0:
			return false
		default:
			pos = atomic.LoadUint64(&r.deqPos)
		}
	}
}
