// Package humanoid approximates a player's body with one bounding box per body
// part. The collision code uses it for tackles and for ball contact.
package humanoid

import (
	"math"

	"github.com/onthepitch/matchsim/internal/geom"
)

// Stance is the coarse body posture an animation puts the player in.
type Stance int

const (
	Standing Stance = iota
	Kicking
	Lunging
	Sliding
	Fallen
)

// PartName identifies a body part.
type PartName string

const (
	Head          PartName = "head"
	Body          PartName = "body"
	LeftUpperLeg  PartName = "left_upperleg"
	RightUpperLeg PartName = "right_upperleg"
	LeftLowerLeg  PartName = "left_lowerleg"
	RightLowerLeg PartName = "right_lowerleg"
	LeftFoot      PartName = "left_foot"
	RightFoot     PartName = "right_foot"
)

// Pose is everything the body model needs to place the parts.
type Pose struct {
	Position  geom.Vec
	Direction geom.Vec
	Stance    Stance
	// Progress runs from 0 to 1 over the current animation.
	Progress float64
}

// Part is one placed body part.
type Part struct {
	Name   PartName
	Box    geom.AABB
	Center geom.Vec
}

// IsLowerLeg reports whether the part is a foot or a lower leg.
func (p Part) IsLowerLeg() bool {
	switch p.Name {
	case LeftFoot, RightFoot, LeftLowerLeg, RightLowerLeg:
		return true
	}
	return false
}

// Model places body parts for a pose.
type Model interface {
	Parts(p Pose) []Part
}

// local describes a part in the player frame: forward, left, up.
type local struct {
	name PartName
	at   geom.Vec
	half geom.Vec
}

var standing = []local{
	{Head, geom.Vec{0, 0, 1.68}, geom.Vec{0.12, 0.12, 0.13}},
	{Body, geom.Vec{0, 0, 1.2}, geom.Vec{0.16, 0.24, 0.32}},
	{LeftUpperLeg, geom.Vec{0, 0.11, 0.7}, geom.Vec{0.1, 0.1, 0.2}},
	{RightUpperLeg, geom.Vec{0, -0.11, 0.7}, geom.Vec{0.1, 0.1, 0.2}},
	{LeftLowerLeg, geom.Vec{0, 0.11, 0.3}, geom.Vec{0.08, 0.08, 0.2}},
	{RightLowerLeg, geom.Vec{0, -0.11, 0.3}, geom.Vec{0.08, 0.08, 0.2}},
	{LeftFoot, geom.Vec{0.06, 0.11, 0.05}, geom.Vec{0.13, 0.06, 0.05}},
	{RightFoot, geom.Vec{0.06, -0.11, 0.05}, geom.Vec{0.13, 0.06, 0.05}},
}

var sliding = []local{
	{Head, geom.Vec{-0.55, 0, 0.45}, geom.Vec{0.12, 0.12, 0.13}},
	{Body, geom.Vec{-0.2, 0, 0.32}, geom.Vec{0.32, 0.24, 0.16}},
	{LeftUpperLeg, geom.Vec{0.3, 0.12, 0.22}, geom.Vec{0.2, 0.1, 0.1}},
	{RightUpperLeg, geom.Vec{0.3, -0.12, 0.18}, geom.Vec{0.2, 0.1, 0.1}},
	{LeftLowerLeg, geom.Vec{0.62, 0.14, 0.2}, geom.Vec{0.2, 0.08, 0.08}},
	{RightLowerLeg, geom.Vec{0.72, -0.12, 0.12}, geom.Vec{0.2, 0.08, 0.08}},
	{LeftFoot, geom.Vec{0.86, 0.14, 0.22}, geom.Vec{0.13, 0.06, 0.06}},
	{RightFoot, geom.Vec{1.0, -0.12, 0.1}, geom.Vec{0.13, 0.06, 0.06}},
}

var lunging = []local{
	{Head, geom.Vec{-0.1, 0, 1.55}, geom.Vec{0.12, 0.12, 0.13}},
	{Body, geom.Vec{-0.05, 0, 1.1}, geom.Vec{0.16, 0.24, 0.32}},
	{LeftUpperLeg, geom.Vec{-0.05, 0.11, 0.62}, geom.Vec{0.1, 0.1, 0.2}},
	{RightUpperLeg, geom.Vec{0.2, -0.13, 0.55}, geom.Vec{0.15, 0.1, 0.15}},
	{LeftLowerLeg, geom.Vec{-0.05, 0.11, 0.27}, geom.Vec{0.08, 0.08, 0.2}},
	{RightLowerLeg, geom.Vec{0.45, -0.15, 0.25}, geom.Vec{0.15, 0.08, 0.12}},
	{LeftFoot, geom.Vec{0.02, 0.11, 0.05}, geom.Vec{0.13, 0.06, 0.05}},
	{RightFoot, geom.Vec{0.68, -0.15, 0.08}, geom.Vec{0.13, 0.06, 0.06}},
}

var kicking = []local{
	{Head, geom.Vec{-0.05, 0, 1.66}, geom.Vec{0.12, 0.12, 0.13}},
	{Body, geom.Vec{-0.05, 0, 1.18}, geom.Vec{0.16, 0.24, 0.32}},
	{LeftUpperLeg, geom.Vec{-0.02, 0.11, 0.68}, geom.Vec{0.1, 0.1, 0.2}},
	{RightUpperLeg, geom.Vec{0.15, -0.11, 0.62}, geom.Vec{0.12, 0.1, 0.18}},
	{LeftLowerLeg, geom.Vec{-0.02, 0.11, 0.28}, geom.Vec{0.08, 0.08, 0.2}},
	{RightLowerLeg, geom.Vec{0.32, -0.11, 0.28}, geom.Vec{0.12, 0.08, 0.15}},
	{LeftFoot, geom.Vec{0.04, 0.11, 0.05}, geom.Vec{0.13, 0.06, 0.05}},
	{RightFoot, geom.Vec{0.45, -0.11, 0.12}, geom.Vec{0.13, 0.06, 0.06}},
}

var fallen = []local{
	{Head, geom.Vec{1.55, 0, 0.14}, geom.Vec{0.13, 0.12, 0.12}},
	{Body, geom.Vec{1.05, 0, 0.16}, geom.Vec{0.32, 0.24, 0.16}},
	{LeftUpperLeg, geom.Vec{0.55, 0.11, 0.12}, geom.Vec{0.2, 0.1, 0.1}},
	{RightUpperLeg, geom.Vec{0.55, -0.11, 0.12}, geom.Vec{0.2, 0.1, 0.1}},
	{LeftLowerLeg, geom.Vec{0.15, 0.11, 0.1}, geom.Vec{0.2, 0.08, 0.08}},
	{RightLowerLeg, geom.Vec{0.15, -0.11, 0.1}, geom.Vec{0.2, 0.08, 0.08}},
	{LeftFoot, geom.Vec{-0.1, 0.11, 0.08}, geom.Vec{0.06, 0.06, 0.13}},
	{RightFoot, geom.Vec{-0.1, -0.11, 0.08}, geom.Vec{0.06, 0.06, 0.13}},
}

// boxPadding loosens every part box the way mesh-derived boxes are loose.
const boxPadding = 0.08

// Procedural blends between a few keyed postures instead of sampling animation data.
type Procedural struct{}

// Parts implements Model.
func (Procedural) Parts(p Pose) []Part {
	target := standing
	switch p.Stance {
	case Kicking:
		target = kicking
	case Lunging:
		target = lunging
	case Sliding:
		target = sliding
	case Fallen:
		target = fallen
	}
	// extension peaks halfway through the animation
	ext := math.Sin(geom.Clamp(p.Progress, 0, 1) * math.Pi)
	if p.Stance == Fallen {
		ext = geom.Clamp(p.Progress*3, 0, 1)
	}

	fwd := geom.NormalizedOr(geom.Flat(p.Direction), geom.Vec{1, 0, 0})
	left := geom.Vec{-fwd[1], fwd[0], 0}

	parts := make([]Part, len(standing))
	for i, base := range standing {
		at := geom.Lerp(base.at, target[i].at, ext)
		half := geom.Lerp(base.half, target[i].half, ext)
		center := p.Position.
			Add(fwd.Mul(at[0])).
			Add(left.Mul(at[1])).
			Add(geom.Vec{0, 0, at[2]})
		// world-aligned extent of the part box rotated about z
		hx := math.Abs(fwd[0])*half[0] + math.Abs(left[0])*half[1]
		hy := math.Abs(fwd[1])*half[0] + math.Abs(left[1])*half[1]
		parts[i] = Part{
			Name:   base.name,
			Box:    geom.BoxAround(center, geom.Vec{hx + boxPadding, hy + boxPadding, half[2] + boxPadding}),
			Center: center,
		}
	}
	return parts
}
