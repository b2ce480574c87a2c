package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPushEvictsOldest(t *testing.T) {
	r := New[int](3)
	for i := 1; i <= 5; i++ {
		r.Push(i)
		assert.LessOrEqual(t, r.Len(), 3)
		assert.Equal(t, i, r.At(0))
	}
	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []int{5, 4, 3}, collect(r))
	assert.Equal(t, 3, r.Oldest())
}

func TestPtrUpdatesInPlace(t *testing.T) {
	r := New[int](2)
	r.Push(1)
	r.Push(2)
	*r.Ptr(0) = 20
	assert.Equal(t, []int{20, 1}, collect(r))
}

func TestResize(t *testing.T) {
	r := New[int](4)
	r.Push(1)
	r.Push(2)
	r.Push(3)

	r.Resize(2)
	assert.Equal(t, []int{3, 2}, collect(r))

	r.Resize(4)
	assert.Equal(t, []int{3, 2, 0, 0}, collect(r))

	r.Push(9)
	assert.Equal(t, []int{9, 3, 2, 0}, collect(r))
}

func TestClearAndBounds(t *testing.T) {
	r := New[string](2)
	r.Push("a")
	r.Clear()
	assert.Equal(t, 0, r.Len())
	assert.Panics(t, func() { r.At(0) })
	assert.Panics(t, func() { r.Resize(3) })
	assert.Panics(t, func() { New[int](0) })
}

func collect(r *Ring[int]) []int {
	out := make([]int, 0, r.Len())
	r.Each(func(_ int, v *int) { out = append(out, *v) })
	return out
}
