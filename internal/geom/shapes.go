package geom

import "math"

// Line is a segment from A to B.
type Line struct {
	A, B Vec
}

// Triangle is a single-sided face; Normal points toward the side it faces.
type Triangle struct {
	V      [3]Vec
	Normal Vec
}

// IntersectsLine tests the segment against the triangle and returns the hit point.
// Segments lying in the triangle's plane never intersect.
func (t Triangle) IntersectsLine(l Line) (Vec, bool) {
	const eps = 1e-9

	dir := l.B.Sub(l.A)
	e1 := t.V[1].Sub(t.V[0])
	e2 := t.V[2].Sub(t.V[0])

	h := dir.Cross(e2)
	a := e1.Dot(h)
	if math.Abs(a) < eps {
		return Zero, false
	}

	f := 1 / a
	s := l.A.Sub(t.V[0])
	u := f * s.Dot(h)
	if u < 0 || u > 1 {
		return Zero, false
	}

	q := s.Cross(e1)
	v := f * dir.Dot(q)
	if v < 0 || u+v > 1 {
		return Zero, false
	}

	k := f * e2.Dot(q)
	if k < 0 || k > 1 {
		return Zero, false
	}
	return l.A.Add(dir.Mul(k)), true
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max Vec
}

// BoxAround returns the box centered on c with the given half extents.
func BoxAround(c, half Vec) AABB {
	return AABB{Min: c.Sub(half), Max: c.Add(half)}
}

// Center returns the box midpoint.
func (b AABB) Center() Vec {
	return b.Min.Add(b.Max).Mul(0.5)
}

// Radius returns the half diagonal.
func (b AABB) Radius() float64 {
	return b.Max.Sub(b.Min).Len() * 0.5
}

// Shrunk moves every face inward by d. A negative d grows the box.
func (b AABB) Shrunk(d float64) AABB {
	off := Vec{d, d, d}
	return AABB{Min: b.Min.Add(off), Max: b.Max.Sub(off)}
}

// Intersects reports whether two boxes overlap.
func (b AABB) Intersects(o AABB) bool {
	for i := 0; i < 3; i++ {
		if b.Max[i] < o.Min[i] || b.Min[i] > o.Max[i] {
			return false
		}
	}
	return true
}

// IntersectsSphere reports whether a sphere touches the box.
func (b AABB) IntersectsSphere(center Vec, radius float64) bool {
	var d2 float64
	for i := 0; i < 3; i++ {
		c := Clamp(center[i], b.Min[i], b.Max[i])
		d := center[i] - c
		d2 += d * d
	}
	return d2 < radius*radius
}
