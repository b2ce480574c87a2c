package geom

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTriangleIntersectsLine(t *testing.T) {
	tri := Triangle{V: [3]Vec{{1, -1, 0}, {1, 1, 0}, {1, 1, 2}}, Normal: Vec{-1, 0, 0}}

	hit, ok := tri.IntersectsLine(Line{A: Vec{0, 0.5, 1}, B: Vec{2, 0.5, 1}})
	assert.True(t, ok)
	assert.InDelta(t, 1.0, hit[0], 1e-9)

	_, ok = tri.IntersectsLine(Line{A: Vec{0, 0.5, 1}, B: Vec{0.9, 0.5, 1}})
	assert.False(t, ok, "segment stops short of the face")

	_, ok = tri.IntersectsLine(Line{A: Vec{0, -0.9, 1.9}, B: Vec{2, -0.9, 1.9}})
	assert.False(t, ok, "passes outside the triangle")

	_, ok = tri.IntersectsLine(Line{A: Vec{1, 0, 0}, B: Vec{1, 0.5, 0.5}})
	assert.False(t, ok, "coplanar segments are ignored")
}

func TestAABB(t *testing.T) {
	a := BoxAround(Vec{0, 0, 0}, Vec{1, 1, 1})
	b := BoxAround(Vec{1.5, 0, 0}, Vec{1, 1, 1})
	c := BoxAround(Vec{3, 0, 0}, Vec{0.5, 0.5, 0.5})

	assert.True(t, a.Intersects(b))
	assert.False(t, a.Intersects(c))
	assert.False(t, a.Shrunk(0.3).Intersects(b.Shrunk(0.3)))

	assert.True(t, a.IntersectsSphere(Vec{1.1, 0, 0}, 0.11))
	assert.False(t, a.IntersectsSphere(Vec{1.2, 0, 0}, 0.11))
	assert.InDelta(t, math.Sqrt(3), a.Radius(), 1e-9)
}

func TestVectorHelpers(t *testing.T) {
	assert.Equal(t, Vec{0, -1, 0}, NormalizedOr(Vec{}, Vec{0, -1, 0}))
	assert.InDelta(t, 1.0, NormalizedOr(Vec{3, 4, 0}, Zero).Len(), 1e-9)
	assert.InDelta(t, 0.5, ClampLength(Vec{3, 4, 0}, 0.5).Len(), 1e-9)
	assert.Equal(t, Vec{1, 2, 0}, ClampLength(Vec{1, 2, 0}, 10))

	r := Rotated2D(Vec{1, 0, 0}, math.Pi/2)
	assert.InDelta(t, 0.0, r[0], 1e-9)
	assert.InDelta(t, 1.0, r[1], 1e-9)

	assert.Equal(t, Vec{2, 3, 4}, MirrorXY(MirrorXY(Vec{2, 3, 4})))
	assert.Equal(t, 0.5, NormalizedClamp(5, 0, 10))
	assert.Equal(t, 1.0, NormalizedClamp(15, 0, 10))
}
