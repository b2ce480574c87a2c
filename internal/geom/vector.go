// Package geom holds the vector, line, triangle and bounding-box math shared by
// the ball, the players and the match adjudication code.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec is a world-space vector in meters: x along the pitch length, y across, z up.
type Vec = mgl64.Vec3

// Quat is a rotation, used by the camera.
type Quat = mgl64.Quat

// Zero is the zero vector.
var Zero = Vec{}

// Flat drops the height component.
func Flat(v Vec) Vec {
	return Vec{v[0], v[1], 0}
}

// NormalizedOr returns v with unit length, or fallback if v has no length.
func NormalizedOr(v, fallback Vec) Vec {
	l := v.Len()
	if l < 1e-9 {
		return fallback
	}
	return v.Mul(1 / l)
}

// ClampLength caps the length of v at max.
func ClampLength(v Vec, max float64) Vec {
	l := v.Len()
	if l > max && l > 0 {
		return v.Mul(max / l)
	}
	return v
}

// Rotated2D rotates v around the z axis by angle radians.
func Rotated2D(v Vec, angle float64) Vec {
	s, c := math.Sincos(angle)
	return Vec{v[0]*c - v[1]*s, v[0]*s + v[1]*c, v[2]}
}

// Angle2D returns the heading of v in the xy plane.
func Angle2D(v Vec) float64 {
	return math.Atan2(v[1], v[0])
}

// Lerp blends a toward b by t.
func Lerp(a, b Vec, t float64) Vec {
	return a.Mul(1 - t).Add(b.Mul(t))
}

// MirrorXY flips the horizontal components, the transform that swaps the two
// halves of the pitch.
func MirrorXY(v Vec) Vec {
	return Vec{-v[0], -v[1], v[2]}
}

// Clamp limits x to [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// NormalizedClamp maps x from [lo, hi] onto [0, 1], clamped.
func NormalizedClamp(x, lo, hi float64) float64 {
	if hi == lo {
		if x >= hi {
			return 1
		}
		return 0
	}
	return Clamp((x-lo)/(hi-lo), 0, 1)
}

// Sign returns -1 for negative input and 1 otherwise.
func Sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}

// AngleAxis builds a rotation of angle radians around axis.
func AngleAxis(angle float64, axis Vec) Quat {
	return mgl64.QuatRotate(angle, axis)
}

// Slerp interpolates from a toward b by t.
func Slerp(a, b Quat, t float64) Quat {
	return mgl64.QuatSlerp(a, b, t)
}
