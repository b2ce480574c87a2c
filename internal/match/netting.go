package match

import (
	"math"
	"slices"

	"github.com/onthepitch/matchsim/internal/geom"
	"github.com/onthepitch/matchsim/internal/tuning"
)

// nettingStep is the spacing between net vertices in meters.
const nettingStep = 0.25

// Netting is the deformable net of one goal.
type Netting struct {
	Side     int
	rest     []geom.Vec
	Vertices []geom.Vec
}

// NewNetting lays out the back, roof and side nets of the goal on side. The
// vertices stop short of the posts and crossbar.
func NewNetting(pitch tuning.Pitch, side int) *Netting {
	n := &Netting{Side: side}
	s := float64(side)
	front := pitch.HalfW + pitch.LineHalfW + nettingStep
	back := pitch.HalfW + pitch.GoalDepth
	w, h := pitch.GoalHalfW, pitch.GoalH

	// back
	for y := -w; y <= w+1e-9; y += nettingStep {
		for z := 0.0; z <= h+1e-9; z += nettingStep {
			n.rest = append(n.rest, geom.Vec{back * s, y, z})
		}
	}
	for x := front; x < back-1e-9; x += nettingStep {
		// roof
		for y := -w; y <= w+1e-9; y += nettingStep {
			n.rest = append(n.rest, geom.Vec{x * s, y, h})
		}
		// sides
		for z := 0.0; z < h-1e-9; z += nettingStep {
			n.rest = append(n.rest, geom.Vec{x * s, -w, z}, geom.Vec{x * s, w, z})
		}
	}
	n.Vertices = slices.Clone(n.rest)
	return n
}

// Rest returns the undeformed vertex positions.
func (n *Netting) Rest() []geom.Vec { return n.rest }

func (n *Netting) reset() {
	copy(n.Vertices, n.rest)
}

// pull bulges the net around the ball: vertices near the ball follow it, with
// less give close to the woodwork.
func (n *Netting) pull(ballPos geom.Vec, halfW, falloffExp, woodworkScale float64) {
	shortest := math.MaxFloat64
	for _, v := range n.rest {
		shortest = math.Min(shortest, v.Sub(ballPos).Len())
	}
	woodwork := geom.Clamp((math.Abs(ballPos[0])-halfW)*woodworkScale, 0, 1)
	for i, v := range n.rest {
		influence := math.Pow(geom.Clamp((shortest+1e-4)/(v.Sub(ballPos).Len()+1e-4), 0, 1), falloffExp)
		influence *= woodwork
		influence = math.Sin(influence*math.Pi-0.5*math.Pi)*0.5 + 0.5
		if influence > 0 {
			n.Vertices[i] = geom.Lerp(v, ballPos, influence)
		}
	}
}

// UpdateGoalNetting deforms the net the ball is pressing into, or restores both
// nets once it let go.
func (m *Match) UpdateGoalNetting(ballTouchesNet bool) {
	m.nettingChanged = false
	pos := m.ball.Position()
	if ballTouchesNet {
		side := 1
		if pos[0] < 0 {
			side = 0
		}
		mp := m.params.Match
		m.netting[side].pull(pos, m.params.Pitch.HalfW, mp.NettingFalloffExp, mp.NettingWoodworkScale)
		m.resetNetting = true
		m.nettingChanged = true
		return
	}
	if m.resetNetting {
		m.netting[0].reset()
		m.netting[1].reset()
		m.resetNetting = false
		m.nettingChanged = true
	}
}

// Netting returns the net of goal side 0 (negative x) or 1.
func (m *Match) Netting(side int) *Netting { return m.netting[side] }

// NettingChanged reports whether the last netting update moved any vertex.
func (m *Match) NettingChanged() bool { return m.nettingChanged }
