// Package ball simulates the match ball: flight, bounces, rolling, spin and the
// goal net, together with a short-horizon trajectory prediction that the players
// and the adjudication code read every step.
package ball

import (
	"github.com/onthepitch/matchsim/internal/envstate"
	"github.com/onthepitch/matchsim/internal/geom"
	"github.com/onthepitch/matchsim/internal/ring"
	"github.com/onthepitch/matchsim/internal/tuning"
)

// body is the integrable part of the ball.
type body struct {
	Position geom.Vec
	Movement geom.Vec
	Rotation geom.Vec
}

// Ball is the single shared ball of a match.
type Ball struct {
	cfg   tuning.Ball
	pitch tuning.Pitch
	dt    float64

	state       body
	predictions []geom.Vec
	history     *ring.Ring[geom.Vec]
	touchesNet  bool
	mirrored    bool
}

// New places a ball at rest on the center spot.
func New(params tuning.Params) *Ball {
	b := &Ball{
		cfg:         params.Ball,
		pitch:       params.Pitch,
		dt:          float64(params.Match.StepMS) / 1000,
		predictions: make([]geom.Vec, params.Ball.HorizonMS/params.Match.StepMS+1),
		history:     ring.New[geom.Vec](params.Ball.HistorySize),
	}
	b.ResetSituation(geom.Zero)
	return b
}

// Position returns the current position.
func (b *Ball) Position() geom.Vec { return b.state.Position }

// Movement returns the current velocity in m/s.
func (b *Ball) Movement() geom.Vec { return b.state.Movement }

// Rotation returns the current spin in rad/s.
func (b *Ball) Rotation() geom.Vec { return b.state.Rotation }

// TouchesNet reports whether the ball pressed into a goal net during the last step.
func (b *Ball) TouchesNet() bool { return b.touchesNet }

// Mirrored reports whether the ball is currently in the mirrored frame.
func (b *Ball) Mirrored() bool { return b.mirrored }

// Predict returns the expected position ms milliseconds ahead. Requests beyond the
// horizon return the last predicted position.
func (b *Ball) Predict(ms int) geom.Vec {
	stepMS := int(b.dt*1000 + 0.5)
	i := ms / stepMS
	if i < 0 {
		i = 0
	}
	if i >= len(b.predictions) {
		i = len(b.predictions) - 1
	}
	return b.predictions[i]
}

// Predictions returns a copy of the whole prediction table.
func (b *Ball) Predictions() []geom.Vec {
	out := make([]geom.Vec, len(b.predictions))
	copy(out, b.predictions)
	return out
}

// AveragePosition averages the last n recorded positions.
func (b *Ball) AveragePosition(n int) geom.Vec {
	if n > b.history.Len() {
		n = b.history.Len()
	}
	if n == 0 {
		return b.state.Position
	}
	var sum geom.Vec
	for i := 0; i < n; i++ {
		sum = sum.Add(b.history.At(i))
	}
	return sum.Mul(1 / float64(n))
}

// Process advances the ball one step.
func (b *Ball) Process() {
	b.touchesNet = b.step(&b.state)
	b.history.Push(b.state.Position)
	b.updatePredictions()
}

// Touch replaces the ball velocity.
func (b *Ball) Touch(movement geom.Vec) {
	b.state.Movement = movement
	b.updatePredictions()
}

// SetPosition teleports the ball, keeping its velocity.
func (b *Ball) SetPosition(pos geom.Vec) {
	b.state.Position = pos
	b.updatePredictions()
}

// SetRotation blends the spin toward (x, y, z) by bias.
func (b *Ball) SetRotation(x, y, z, bias float64) {
	b.state.Rotation = geom.Lerp(b.state.Rotation, geom.Vec{x, y, z}, geom.Clamp(bias, 0, 1))
	b.updatePredictions()
}

// ResetSituation puts the ball at rest on focus and drops its history.
func (b *Ball) ResetSituation(focus geom.Vec) {
	b.state = body{Position: geom.Vec{focus[0], focus[1], b.cfg.Radius}}
	b.touchesNet = false
	b.history.Clear()
	b.history.Push(b.state.Position)
	b.updatePredictions()
}

// Mirror swaps the ball into the other half-pitch frame. Calling it twice restores
// the original state exactly.
func (b *Ball) Mirror() {
	b.mirrored = !b.mirrored
	b.state.Position = geom.MirrorXY(b.state.Position)
	b.state.Movement = geom.MirrorXY(b.state.Movement)
	b.state.Rotation = geom.MirrorXY(b.state.Rotation)
	for i := range b.predictions {
		b.predictions[i] = geom.MirrorXY(b.predictions[i])
	}
	b.history.Each(func(_ int, v *geom.Vec) { *v = geom.MirrorXY(*v) })
}

func (b *Ball) updatePredictions() {
	sim := b.state
	b.predictions[0] = sim.Position
	for i := 1; i < len(b.predictions); i++ {
		b.step(&sim)
		b.predictions[i] = sim.Position
	}
}

// ProcessState walks the ball fields for the state-sync traversal.
func (b *Ball) ProcessState(s *envstate.State) {
	envstate.Process(s, &b.state.Position)
	envstate.Process(s, &b.state.Movement)
	envstate.Process(s, &b.state.Rotation)
	envstate.Process(s, &b.touchesNet)
	envstate.Process(s, &b.mirrored)

	envstate.ProcessBounded[geom.Vec](s, b.history)
	if s.Load() {
		b.updatePredictions()
	}
}
