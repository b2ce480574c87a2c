package referee

import (
	"github.com/onthepitch/matchsim/internal/envstate"
	"github.com/onthepitch/matchsim/internal/geom"
	"github.com/onthepitch/matchsim/internal/team"
	"github.com/onthepitch/matchsim/internal/tuning"
)

// cardFrames is how long the referee holds up a card, in steps.
const cardFrames = 150

// Official is the referee or a linesman on the pitch.
type Official struct {
	Position   geom.Vec
	Movement   geom.Vec
	Direction  geom.Vec
	Function   team.FunctionType
	Frame      int
	FrameCount int
}

// Officials are the referee and two linesmen.
type Officials struct {
	Referee  Official
	Linesmen [2]Official
	// shownFoulMS is the time of the last foul a card was shown for.
	shownFoulMS int
}

// NewOfficials places the officials at the center spot and the touchlines.
func NewOfficials(pitch tuning.Pitch) *Officials {
	o := &Officials{shownFoulMS: -1}
	o.Referee = Official{Position: geom.Vec{0, -8, 0}, Direction: geom.Vec{0, 1, 0}}
	o.Linesmen[0] = Official{Position: geom.Vec{-pitch.HalfW / 2, -pitch.HalfH - 1.5, 0}, Direction: geom.Vec{0, 1, 0}}
	o.Linesmen[1] = Official{Position: geom.Vec{pitch.HalfW / 2, pitch.HalfH + 1.5, 0}, Direction: geom.Vec{0, -1, 0}}
	return o
}

// Process moves the officials along with play and starts the card animation
// for a booking foul.
func (o *Officials) Process(ballPos geom.Vec, r *Referee, now int, prm *tuning.Params) {
	dt := float64(prm.Match.StepMS) / 1000
	pitch := prm.Pitch

	foul := r.CurrentFoul()
	if foul.Type >= FoulYellow && foul.TimeMS != o.shownFoulMS && now >= foul.TimeMS+500 {
		o.shownFoulMS = foul.TimeMS
		o.Referee.Function = team.Special
		o.Referee.Frame = 0
		o.Referee.FrameCount = cardFrames
		o.Referee.Movement = geom.Zero
	}

	if o.Referee.Function == team.Special {
		o.Referee.Frame++
		if o.Referee.Frame >= o.Referee.FrameCount {
			o.Referee.Function = team.Movement
			o.Referee.Frame, o.Referee.FrameCount = 0, 0
		}
	} else {
		ySide := geom.Sign(ballPos[1])
		if ySide == 0 {
			ySide = 1
		}
		target := geom.Vec{ballPos[0] * 0.85, ballPos[1]*0.6 - 9*ySide, 0}
		target[1] = geom.Clamp(target[1], -pitch.HalfH, pitch.HalfH)
		o.Referee.follow(target, ballPos, 7, dt)
	}

	lo := [2]float64{-pitch.HalfW, 0}
	hi := [2]float64{0, pitch.HalfW}
	for i := range o.Linesmen {
		l := &o.Linesmen[i]
		target := geom.Vec{geom.Clamp(ballPos[0], lo[i], hi[i]), l.Position[1], 0}
		l.follow(target, ballPos, 6, dt)
	}
}

func (of *Official) follow(target, look geom.Vec, maxSpeed, dt float64) {
	delta := geom.Flat(target.Sub(of.Position))
	speed := min(maxSpeed, delta.Len()*1.5)
	desired := geom.NormalizedOr(delta, geom.Zero).Mul(speed)
	of.Movement = of.Movement.Add(geom.ClampLength(desired.Sub(of.Movement), 6*dt))
	of.Position = of.Position.Add(of.Movement.Mul(dt))
	of.Direction = geom.NormalizedOr(geom.Flat(look.Sub(of.Position)), of.Direction)
}

func (o *Officials) all() []*Official {
	return []*Official{&o.Referee, &o.Linesmen[0], &o.Linesmen[1]}
}

// ProcessState walks the officials for the state-sync traversal.
func (o *Officials) ProcessState(s *envstate.State) {
	for _, of := range o.all() {
		envstate.Process(s, &of.Position)
		envstate.Process(s, &of.Movement)
		envstate.Process(s, &of.Direction)
		envstate.Process(s, &of.Function)
		envstate.Process(s, &of.Frame)
		envstate.Process(s, &of.FrameCount)
	}
	envstate.Process(s, &o.shownFoulMS)
}
