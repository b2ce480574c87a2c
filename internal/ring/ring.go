// Package ring provides a fixed-capacity history buffer indexed newest first.
package ring

// Ring keeps the most recent Cap values. Pushing onto a full ring evicts the oldest.
// At(0) is always the newest value. The zero Ring is not usable; call New.
type Ring[T any] struct {
	buf  []T
	head int // slot of the newest value
	size int
}

// New returns an empty ring holding up to capacity values.
func New[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		panic("ring: capacity must be positive")
	}
	return &Ring[T]{buf: make([]T, capacity), head: -1}
}

// Push inserts v as the newest value.
func (r *Ring[T]) Push(v T) {
	r.head = (r.head + 1) % len(r.buf)
	r.buf[r.head] = v
	if r.size < len(r.buf) {
		r.size++
	}
}

// Len returns the number of stored values.
func (r *Ring[T]) Len() int {
	return r.size
}

// Cap returns the capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

func (r *Ring[T]) slot(i int) int {
	if i < 0 || i >= r.size {
		panic("ring: index out of range")
	}
	return ((r.head-i)%len(r.buf) + len(r.buf)) % len(r.buf)
}

// At returns the value i steps back in time.
func (r *Ring[T]) At(i int) T {
	return r.buf[r.slot(i)]
}

// Ptr returns a pointer into the ring for in-place updates.
func (r *Ring[T]) Ptr(i int) *T {
	return &r.buf[r.slot(i)]
}

// Oldest returns the value that the next Push on a full ring would evict.
func (r *Ring[T]) Oldest() T {
	return r.At(r.size - 1)
}

// Clear drops every value.
func (r *Ring[T]) Clear() {
	var zero T
	for i := range r.buf {
		r.buf[i] = zero
	}
	r.head = -1
	r.size = 0
}

// Resize sets the stored count to n, keeping the newest values and zero-filling
// any new slots at the old end. Used when restoring a saved state.
func (r *Ring[T]) Resize(n int) {
	if n < 0 || n > len(r.buf) {
		panic("ring: resize out of range")
	}
	if n == r.size {
		return
	}
	values := make([]T, n)
	for i := 0; i < n && i < r.size; i++ {
		values[i] = r.At(i)
	}
	r.Clear()
	for i := n - 1; i >= 0; i-- {
		r.Push(values[i])
	}
}

// Each visits values from newest to oldest.
func (r *Ring[T]) Each(fn func(i int, v *T)) {
	for i := 0; i < r.size; i++ {
		fn(i, r.Ptr(i))
	}
}
