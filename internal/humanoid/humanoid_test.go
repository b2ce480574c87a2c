package humanoid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onthepitch/matchsim/internal/geom"
)

func partByName(t *testing.T, parts []Part, name PartName) Part {
	t.Helper()
	for _, p := range parts {
		if p.Name == name {
			return p
		}
	}
	require.Failf(t, "missing part", "%s", name)
	return Part{}
}

func TestStandingPartsAreStacked(t *testing.T) {
	parts := Procedural{}.Parts(Pose{Position: geom.Vec{3, 4, 0}, Direction: geom.Vec{1, 0, 0}})
	require.Len(t, parts, 8)

	head := partByName(t, parts, Head)
	foot := partByName(t, parts, LeftFoot)
	assert.Greater(t, head.Center[2], 1.5)
	assert.Less(t, foot.Center[2], 0.1)
	for _, p := range parts {
		assert.True(t, p.Box.Intersects(geom.BoxAround(p.Center, geom.Vec{0.01, 0.01, 0.01})), p.Name)
	}
}

func TestSlidingExtendsLegsForward(t *testing.T) {
	pose := Pose{Direction: geom.Vec{0, 1, 0}, Stance: Sliding, Progress: 0.5}
	parts := Procedural{}.Parts(pose)

	foot := partByName(t, parts, RightFoot)
	assert.Greater(t, foot.Center[1], 0.9)
	assert.InDelta(t, 0.12, foot.Center[0], 1e-9)

	start := Procedural{}.Parts(Pose{Direction: geom.Vec{0, 1, 0}, Stance: Sliding})
	assert.Less(t, partByName(t, start, RightFoot).Center[1], 0.1)
}

func TestSlidingTackleReachesStandingLegs(t *testing.T) {
	tackler := Procedural{}.Parts(Pose{Direction: geom.Vec{1, 0, 0}, Stance: Sliding, Progress: 0.5})
	victim := Procedural{}.Parts(Pose{Position: geom.Vec{1.05, 0, 0}, Direction: geom.Vec{-1, 0, 0}})

	hit := false
	for _, tp := range tackler {
		box := tp.Box.Shrunk(0.1)
		for _, vp := range victim {
			if vp.IsLowerLeg() && box.Intersects(vp.Box) {
				hit = true
			}
		}
	}
	assert.True(t, hit)
}

func TestIsLowerLeg(t *testing.T) {
	assert.True(t, Part{Name: LeftFoot}.IsLowerLeg())
	assert.True(t, Part{Name: RightLowerLeg}.IsLowerLeg())
	assert.False(t, Part{Name: LeftUpperLeg}.IsLowerLeg())
	assert.False(t, Part{Name: Head}.IsLowerLeg())
}
