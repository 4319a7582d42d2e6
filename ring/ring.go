// Package ring implements a fixed capacity circular buffer.
package ring

import "strconv"

// Ring holds up to Cap() elements, oldest first. Slots are reused in place
// so large element types are never copied on insertion.
type Ring[T any] struct {
	buf   []T
	start int
	n     int
}

func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("ring: invalid capacity: " + strconv.Itoa(capacity))
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

func (r *Ring[T]) Len() int { return r.n }

func (r *Ring[T]) Cap() int { return len(r.buf) }

func (r *Ring[T]) Full() bool { return r.n == len(r.buf) }

// Next claims the slot after the newest element and returns it. The slot
// still holds whatever value last occupied it.
func (r *Ring[T]) Next() *T {
	if r.Full() {
		panic("ring: push on full ring")
	}
	slot := &r.buf[r.index(r.n)]
	r.n++
	return slot
}

// At returns the i-th oldest element.
func (r *Ring[T]) At(i int) *T {
	if i < 0 || i >= r.n {
		panic("ring: index out of range: " + strconv.Itoa(i))
	}
	return &r.buf[r.index(i)]
}

// Discard drops the n oldest elements.
func (r *Ring[T]) Discard(n int) {
	if n < 0 || n > r.n {
		panic("ring: invalid discard: " + strconv.Itoa(n))
	}
	r.start = r.index(n)
	r.n -= n
}

func (r *Ring[T]) Reset() {
	r.start = 0
	r.n = 0
}

func (r *Ring[T]) index(i int) int {
	return (r.start + i) % len(r.buf)
}
