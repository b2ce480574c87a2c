package team

import (
	"math"
	"math/rand/v2"

	"github.com/onthepitch/matchsim/internal/ball"
	"github.com/onthepitch/matchsim/internal/geom"
	"github.com/onthepitch/matchsim/internal/tuning"
)

// World is the match as seen by the players during their step.
type World interface {
	Arena() *Arena
	Ball() *ball.Ball
	Params() *tuning.Params
	ActualTimeMS() int
	InPlay() bool
	InSetPiece() bool
	// SetPieceTeam is the team awarded the running set piece, -1 when none.
	SetPieceTeam() int
	Rand() *rand.Rand
	BallTouched(id PlayerID, touch TouchType)
}

// Process runs one step of every active player: decisions for idle players, then
// animation, touches and integration.
func (t *Team) Process(w World) {
	a := w.Arena()
	for _, id := range t.Players {
		p := a.Player(id)
		if !p.Active {
			continue
		}
		if p.Function == Movement {
			if p.hasCommand {
				t.obey(w, p)
			} else {
				t.think(w, p)
			}
		}
		t.advance(w, p)
	}
}

func stepSeconds(w World) float64 {
	return float64(w.Params().Match.StepMS) / 1000
}

func (t *Team) think(w World, p *Player) {
	prm := w.Params()
	b := w.Ball()
	ballPos := b.Predict(0)
	designated := t.designatedTeamPossession == p.ID
	target := t.FormationPosition(p, ballPos, prm.Pitch.HalfW, prm.Pitch.HalfH)
	speed := prm.Movement.Sprint

	switch {
	case !w.InPlay():
		target = p.Position
	case w.InSetPiece():
		if w.SetPieceTeam() == t.ID && designated {
			behind := geom.Vec{ballPos[0] - 0.4*t.AttackDirection(), ballPos[1], 0}
			target = behind
			speed = prm.Movement.Walk
			if p.possession {
				t.restart(w, p)
			}
		} else if w.SetPieceTeam() != t.ID {
			// keep the distance at set pieces
			away := geom.Flat(target.Sub(ballPos))
			if away.Len() < 9.2 {
				target = ballPos.Add(geom.NormalizedOr(away, geom.Vec{float64(t.Side), 0, 0}).Mul(9.2))
				target[2] = 0
			}
		}
	case designated:
		if p.possession {
			t.playBall(w, p)
		} else {
			target = geom.Flat(b.Predict(p.timeToBallMS))
			t.maybeTackle(w, p)
		}
	}

	if p.Function == Movement {
		steerToward(w, p, target, speed)
	}
}

// restart takes the set piece with a pass to the best placed teammate.
func (t *Team) restart(w World, p *Player) {
	if mate, ok := t.passTarget(w, p); ok {
		p.startAction(ShortPass, kickVector(p.Position, mate, 0, w.Params().Ball.Gravity))
		return
	}
	forward := geom.Vec{t.AttackDirection() * 8, 0, 0}
	p.startAction(ShortPass, forward)
}

func (t *Team) playBall(w World, p *Player) {
	prm := w.Params()
	rnd := w.Rand()
	attack := t.AttackDirection()
	goal := geom.Vec{prm.Pitch.HalfW * attack, 0, 0}
	dist := geom.Flat(goal.Sub(p.Position)).Len()

	switch {
	case dist < 24 && math.Abs(p.Position[1]) < 18:
		aim := geom.Vec{
			goal[0],
			(rnd.Float64()*2 - 1) * (prm.Pitch.GoalHalfW - 0.5),
			0.2 + rnd.Float64()*1.6,
		}
		p.startAction(Shot, kickVector(p.Position, aim, 17+10*p.Stats.Shot, prm.Ball.Gravity))
	case t.pressured(w, p, 3.5):
		if mate, ok := t.passTarget(w, p); ok {
			action := ShortPass
			if geom.Flat(mate.Sub(p.Position)).Len() > 25 {
				action = LongPass
			}
			p.startAction(action, kickVector(p.Position, mate, 0, prm.Ball.Gravity))
			return
		}
		t.dribble(w, p)
	default:
		t.dribble(w, p)
	}
}

func (t *Team) dribble(w World, p *Player) {
	prm := w.Params()
	dir := geom.Vec{t.AttackDirection(), 0, 0}
	if opp, d := t.nearestOpponent(w, p.Position); opp != nil && d < 6 {
		away := geom.NormalizedOr(geom.Flat(p.Position.Sub(opp.Position)), dir)
		dir = geom.NormalizedOr(dir.Add(away.Mul(0.6)), dir)
	}
	// stay inside the touchlines
	if math.Abs(p.Position[1]) > prm.Pitch.HalfH-4 {
		dir[1] -= geom.Sign(p.Position[1]) * 0.5
		dir = geom.NormalizedOr(dir, geom.Vec{t.AttackDirection(), 0, 0})
	}
	speed := math.Max(p.Velocity(), prm.Movement.Dribble) + 1.2 + p.Stats.BallControl
	p.startAction(BallControl, dir.Mul(speed))
	p.Movement = dir.Mul(math.Max(p.Velocity(), prm.Movement.Dribble))
}

func (t *Team) maybeTackle(w World, p *Player) {
	a := w.Arena()
	opp := &a.Teams[1-t.ID]
	if opp.designatedTeamPossession == NoPlayer {
		return
	}
	holder := a.Player(opp.designatedTeamPossession)
	if !holder.possession {
		return
	}
	delta := geom.Flat(holder.Position.Sub(p.Position))
	d := delta.Len()
	rnd := w.Rand()
	switch {
	case d < 1.3 && rnd.Float64() < 0.04+0.06*p.Stats.StandingTackle:
		p.Direction = geom.NormalizedOr(delta, p.Direction)
		p.startAction(Interfere, geom.Vec{t.AttackDirection() * 5, 0, 0})
	case d > 1.6 && d < 2.8 && rnd.Float64() < 0.004+0.01*p.Stats.SlidingTackle:
		dir := geom.NormalizedOr(delta, p.Direction)
		p.Direction = dir
		p.Movement = dir.Mul(math.Max(p.Velocity(), 5))
		p.startAction(Sliding, dir.Mul(9))
	}
}

func (t *Team) pressured(w World, p *Player, radius float64) bool {
	_, d := t.nearestOpponent(w, p.Position)
	return d < radius
}

func (t *Team) nearestOpponent(w World, pos geom.Vec) (*Player, float64) {
	a := w.Arena()
	var best *Player
	bestDist := math.MaxFloat64
	for _, id := range a.Teams[1-t.ID].Players {
		o := a.Player(id)
		if !o.Active {
			continue
		}
		if d := geom.Flat(o.Position.Sub(pos)).Len(); d < bestDist {
			best, bestDist = o, d
		}
	}
	return best, bestDist
}

// passTarget picks the open teammate that moves the ball furthest forward.
func (t *Team) passTarget(w World, p *Player) (geom.Vec, bool) {
	a := w.Arena()
	attack := t.AttackDirection()
	bestScore := math.Inf(-1)
	var best geom.Vec
	found := false
	for _, id := range t.Players {
		mate := a.Player(id)
		if id == p.ID || !mate.Active || mate.Role == GK {
			continue
		}
		d := geom.Flat(mate.Position.Sub(p.Position)).Len()
		if d < 5 || d > 40 {
			continue
		}
		_, space := t.nearestOpponent(w, mate.Position)
		score := (mate.Position[0]-p.Position[0])*attack*0.5 + math.Min(space, 8) - d*0.1
		if score > bestScore {
			bestScore = score
			best = mate.Position.Add(mate.Movement.Mul(0.5))
			found = true
		}
	}
	return best, found
}

// kickVector returns the ball velocity that carries it from from to to. With
// speed 0 the speed follows the distance and the ball stays on the ground.
func kickVector(from, to geom.Vec, speed, gravity float64) geom.Vec {
	delta := geom.Flat(to.Sub(from))
	d := delta.Len()
	dir := geom.NormalizedOr(delta, geom.Vec{1, 0, 0})
	if speed <= 0 {
		speed = geom.Clamp(5+d*0.9, 6, 24)
		v := dir.Mul(speed)
		if d > 25 {
			flight := d / speed
			v[2] = 0.5 * gravity * flight * 0.7
		}
		return v
	}
	flight := math.Max(d/speed, 0.05)
	v := dir.Mul(speed)
	v[2] = geom.Clamp((to[2]-0.11)/flight+0.5*gravity*flight, 0, speed*0.6)
	return v
}

func (t *Team) obey(w World, p *Player) {
	prm := w.Params()
	c := p.command
	p.hasCommand = false

	speed := prm.Movement.Walk
	if c.Sprint {
		speed = prm.Movement.Sprint
	}
	dir := geom.NormalizedOr(geom.Flat(c.Direction), geom.Zero)
	steer(w, p, dir.Mul(speed))

	switch c.Action {
	case ShortPass, LongPass, Shot:
		target := c.Target
		if target == geom.Zero {
			target = p.Position.Add(p.Direction.Mul(15))
		}
		kick := 0.0
		if c.Action == Shot {
			kick = 17 + 10*p.Stats.Shot
		}
		p.startAction(c.Action, kickVector(p.Position, target, kick, prm.Ball.Gravity))
	case Sliding:
		p.Movement = p.Direction.Mul(math.Max(p.Velocity(), 5))
		p.startAction(Sliding, p.Direction.Mul(9))
	case Interfere, Deflect, Trap:
		p.startAction(c.Action, p.Direction.Mul(4))
	case BallControl:
		p.startAction(BallControl, p.Direction.Mul(math.Max(p.Velocity(), prm.Movement.Dribble)+1.5))
	}
}

func steerToward(w World, p *Player, target geom.Vec, maxSpeed float64) {
	delta := geom.Flat(target.Sub(p.Position))
	dist := delta.Len()
	speed := math.Min(maxSpeed*(0.7+0.3*p.Stats.Speed)*(0.7+0.3*p.FatigueInv), dist*2.5)
	if dist < 0.15 {
		speed = 0
	}
	steer(w, p, geom.NormalizedOr(delta, geom.Zero).Mul(speed))
}

// steer accelerates toward the desired planar velocity and turns the body.
func steer(w World, p *Player, desired geom.Vec) {
	dt := stepSeconds(w)
	diff := desired.Sub(p.Movement)
	p.Movement = p.Movement.Add(geom.ClampLength(diff, (6+6*p.Stats.Acceleration)*dt))
	p.Movement[2] = 0

	toBall := geom.Flat(w.Ball().Predict(0).Sub(p.Position))
	if p.Velocity() > 0.5 {
		p.Direction = geom.NormalizedOr(geom.Flat(p.Movement), p.Direction)
	} else {
		p.Direction = geom.NormalizedOr(toBall, p.Direction)
	}
	rel := math.Remainder(geom.Angle2D(toBall)-geom.Angle2D(p.Direction), 2*math.Pi)
	p.RelBodyAngle = geom.Clamp(rel, -0.5*math.Pi, 0.5*math.Pi) * 0.5
}

func touchTypeFor(f FunctionType) TouchType {
	switch f {
	case Trap, Deflect:
		return IntentionalNonkicked
	}
	return IntentionalKicked
}

func (t *Team) reaches(w World, p *Player) bool {
	ballPos := w.Ball().Predict(0)
	foot := p.Position.Add(p.Direction.Mul(0.35))
	reach, height := 0.9, 1.0
	switch p.Function {
	case Sliding:
		reach = 1.4
	case Deflect:
		height = 2.0
	}
	return ballPos[2] < height && geom.Flat(ballPos.Sub(foot)).Len() < reach
}

func (t *Team) advance(w World, p *Player) {
	dt := stepSeconds(w)
	b := w.Ball()

	if p.controlledCollision {
		p.controlledCollision = false
		carry := geom.Flat(p.Movement).Add(p.Direction.Mul(0.6))
		b.Touch(carry)
		w.BallTouched(p.ID, IntentionalNonkicked)
	}

	if p.Function != Movement {
		p.Frame++
		if p.touchPending && p.Frame >= p.touchFrame {
			if t.reaches(w, p) {
				b.Touch(p.touchVector)
				w.BallTouched(p.ID, touchTypeFor(p.Function))
				p.touchPending = false
			} else if p.Function != Sliding && p.Function != Interfere {
				p.touchPending = false
			}
		}
		switch p.Function {
		case Sliding:
			p.Movement = p.Movement.Mul(0.985)
		case Trip:
			p.Movement = p.Movement.Mul(0.93)
		case Special:
			p.Movement = geom.Zero
		default:
			p.Movement = p.Movement.Mul(0.97)
		}
		if p.Frame >= p.FrameCount {
			p.Function = Movement
			p.Frame, p.FrameCount = 0, 0
			p.tripType = 0
			p.touchPending = false
		}
	}

	p.Position = p.Position.Add(p.Movement.Mul(dt))
	p.Position[2] = 0
	p.decayingOffset = p.decayingOffset.Mul(0.9)

	share := p.Velocity() / w.Params().Movement.Sprint
	if share > 0.4 {
		p.FatigueInv -= share * share * 0.00002
	} else {
		p.FatigueInv += 0.000004
	}
	p.FatigueInv = geom.Clamp(p.FatigueInv, 0.2, 1)
}
