// Package referee adjudicates set pieces, fouls, cards and the match phases, and
// moves the officials around the pitch.
package referee

import (
	"fmt"
	"math"

	"github.com/onthepitch/matchsim/internal/ball"
	"github.com/onthepitch/matchsim/internal/envstate"
	"github.com/onthepitch/matchsim/internal/geom"
	"github.com/onthepitch/matchsim/internal/team"
	"github.com/onthepitch/matchsim/internal/tuning"
)

// GameMode is the restart the match is in.
type GameMode int

const (
	Normal GameMode = iota
	KickOff
	GoalKick
	FreeKick
	Corner
	ThrowIn
	Penalty
)

var modeNames = [...]string{"normal", "kickoff", "goalkick", "freekick", "corner", "throwin", "penalty"}

func (g GameMode) String() string {
	if g < 0 || int(g) >= len(modeNames) {
		return fmt.Sprintf("mode(%d)", int(g))
	}
	return modeNames[g]
}

// Phase is the period of the match.
type Phase int

const (
	PreMatch Phase = iota
	FirstHalf
	SecondHalf
	PostMatch
)

var phaseNames = [...]string{"prematch", "firsthalf", "secondhalf", "postmatch"}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// Foul types.
const (
	NoFoul     = 0
	FoulPlain  = 1
	FoulYellow = 2
	FoulRed    = 3
)

// Set piece timing relative to the stop, in ms.
const (
	goalPrepareMS = 6000
	goalStartMS   = 7000
	outPrepareMS  = 2000
	outStartMS    = 3000
	foulPrepareMS = 2000
	cardPrepareMS = 4000
	phasePrepare  = 3000
	phaseStart    = 4000
	restartGapMS  = 1000
)

// Buffer is the pending restart decision.
type Buffer struct {
	Active           bool
	DesiredSetPiece  GameMode
	TeamID           int
	SetPiecePosition geom.Vec
	StopTimeMS       int
	PrepareTimeMS    int
	StartTimeMS      int
	EndPhase         bool
	Prepared         bool
}

// Foul is the most recent infringement.
type Foul struct {
	Type     int
	Offender team.PlayerID
	Victim   team.PlayerID
	Position geom.Vec
	TimeMS   int
}

// Match is what the referee reads and drives.
type Match interface {
	Arena() *team.Arena
	Ball() *ball.Ball
	Params() *tuning.Params
	ActualTimeMS() int
	MatchTimeMS() int
	InPlay() bool
	Phase() Phase
	SetMatchPhase(p Phase)
	IsGoalScored() bool
	LastGoalTeamID() int
	LastTouchTeamID() int
	StopPlay()
	StartPlay(mode GameMode, teamID int)
	ResetSituation(focus geom.Vec)
	FoulCommitted(f Foul)
}

// Referee owns the restart buffer.
type Referee struct {
	buffer Buffer
	foul   Foul
}

// New returns an idle referee.
func New() *Referee {
	return &Referee{foul: Foul{Offender: team.NoPlayer, Victim: team.NoPlayer}}
}

// Buffer returns the pending restart.
func (r *Referee) Buffer() Buffer { return r.buffer }

// CurrentFoulType is the type of the foul being dealt with, 0 when none.
func (r *Referee) CurrentFoulType() int { return r.foul.Type }

// CurrentFoul returns the foul being dealt with.
func (r *Referee) CurrentFoul() Foul { return r.foul }

// AlterSetPiecePrepareTime delays the restart, keeping the gap to the start.
func (r *Referee) AlterSetPiecePrepareTime(ms int) {
	if !r.buffer.Active || r.buffer.Prepared {
		return
	}
	gap := r.buffer.StartTimeMS - r.buffer.PrepareTimeMS
	r.buffer.PrepareTimeMS = ms
	r.buffer.StartTimeMS = ms + gap
}

// KickOff schedules the opening kick-off of a phase.
func (r *Referee) KickOff(m Match, teamID int) {
	now := m.ActualTimeMS()
	r.schedule(m, KickOff, teamID, geom.Zero, now, now, now+restartGapMS)
	r.buffer.EndPhase = true
}

func (r *Referee) schedule(m Match, mode GameMode, teamID int, pos geom.Vec, stop, prepare, start int) {
	r.buffer = Buffer{
		Active:           true,
		DesiredSetPiece:  mode,
		TeamID:           teamID,
		SetPiecePosition: pos,
		StopTimeMS:       stop,
		PrepareTimeMS:    prepare,
		StartTimeMS:      start,
	}
	m.StopPlay()
}

// Process advances the referee one step.
func (r *Referee) Process(m Match) {
	now := m.ActualTimeMS()
	if r.buffer.Active {
		if !r.buffer.Prepared && now >= r.buffer.PrepareTimeMS {
			r.prepare(m)
		}
		if r.buffer.Prepared && now >= r.buffer.StartTimeMS {
			r.buffer.Active = false
			if m.Phase() == PostMatch {
				return
			}
			r.foul = Foul{Offender: team.NoPlayer, Victim: team.NoPlayer}
			m.StartPlay(r.buffer.DesiredSetPiece, r.buffer.TeamID)
		}
		return
	}
	if !m.InPlay() {
		return
	}

	prm := m.Params()
	half := prm.Match.HalfDurationMS
	switch {
	case m.Phase() == FirstHalf && m.MatchTimeMS() >= half:
		r.schedule(m, KickOff, 1, geom.Zero, now, now+phasePrepare, now+phaseStart)
		r.buffer.EndPhase = true
		return
	case m.Phase() == SecondHalf && m.MatchTimeMS() >= 2*half:
		r.schedule(m, Normal, 0, geom.Zero, now, now+phasePrepare, now+phaseStart)
		r.buffer.EndPhase = true
		return
	}

	if m.IsGoalScored() {
		r.schedule(m, KickOff, 1-m.LastGoalTeamID(), geom.Zero, now, now+goalPrepareMS, now+goalStartMS)
		return
	}
	r.checkBallOut(m, now)
}

func (r *Referee) checkBallOut(m Match, now int) {
	prm := m.Params()
	pos := m.Ball().Predict(0)
	limitW := prm.Pitch.HalfW + prm.Pitch.LineHalfW + prm.Ball.Radius
	limitH := prm.Pitch.HalfH + prm.Pitch.LineHalfW + prm.Ball.Radius
	lastTouch := m.LastTouchTeamID()
	other := 0
	if lastTouch == 0 {
		other = 1
	}

	switch {
	case math.Abs(pos[1]) > limitH:
		spot := geom.Vec{geom.Clamp(pos[0], -prm.Pitch.HalfW, prm.Pitch.HalfW), geom.Sign(pos[1]) * prm.Pitch.HalfH, 0}
		r.schedule(m, ThrowIn, other, spot, now, now+outPrepareMS, now+outStartMS)
	case math.Abs(pos[0]) > limitW:
		side := int(geom.Sign(pos[0]))
		defending := defendingTeam(m.Arena(), side)
		if lastTouch == defending {
			spot := geom.Vec{float64(side) * prm.Pitch.HalfW, geom.Sign(pos[1]) * prm.Pitch.HalfH, 0}
			r.schedule(m, Corner, 1-defending, spot, now, now+outPrepareMS, now+outStartMS)
		} else {
			spot := geom.Vec{float64(side) * (prm.Pitch.HalfW - 5.5), 0, 0}
			r.schedule(m, GoalKick, defending, spot, now, now+outPrepareMS, now+outStartMS)
		}
	}
}

// defendingTeam returns the team whose goal lies on side.
func defendingTeam(a *team.Arena, side int) int {
	if a.Teams[0].Side == side {
		return 0
	}
	return 1
}

func (r *Referee) prepare(m Match) {
	r.buffer.Prepared = true
	if r.buffer.EndPhase {
		switch m.Phase() {
		case PreMatch:
			m.SetMatchPhase(FirstHalf)
		case FirstHalf:
			m.SetMatchPhase(SecondHalf)
		case SecondHalf:
			m.SetMatchPhase(PostMatch)
		}
	}
	if r.foul.Type != NoFoul && r.foul.Offender != team.NoPlayer {
		offender := m.Arena().Player(r.foul.Offender)
		if offender.RedCard {
			offender.Active = false
			offender.Position = geom.Vec{offender.Position[0], -(m.Params().Pitch.HalfH + 4), 0}
			offender.Movement = geom.Zero
		}
	}
	m.ResetSituation(r.buffer.SetPiecePosition)
}

// TripNotice tells the referee that victim was tripped by offender with the given severity.
func (r *Referee) TripNotice(m Match, victim, offender team.PlayerID, tripType int) {
	if !m.InPlay() || r.buffer.Active || r.foul.Type != NoFoul {
		return
	}
	a := m.Arena()
	v, o := a.Player(victim), a.Player(offender)
	if v.TeamID == o.TeamID {
		return
	}

	foulType := NoFoul
	switch tripType {
	case 3:
		fromOffender := geom.NormalizedOr(geom.Flat(v.Position.Sub(o.Position)), v.Direction)
		fromBehind := v.Direction.Dot(fromOffender) > 0.3
		ballFar := geom.Flat(m.Ball().Predict(0).Sub(o.Position)).Len() > 2.5
		switch {
		case fromBehind && o.YellowCards > 0:
			foulType = FoulRed
		case fromBehind, ballFar:
			foulType = FoulYellow
		default:
			foulType = FoulPlain
		}
	case 2:
		foulType = FoulPlain
	case 1:
		if o.Function == team.Interfere && v.HasPossession() {
			foulType = FoulPlain
		}
	}
	if foulType == NoFoul {
		return
	}

	now := m.ActualTimeMS()
	r.foul = Foul{Type: foulType, Offender: offender, Victim: victim, Position: v.Position, TimeMS: now}
	switch foulType {
	case FoulYellow:
		o.YellowCards++
		if o.YellowCards >= 2 {
			o.RedCard = true
		}
	case FoulRed:
		o.RedCard = true
	}
	m.FoulCommitted(r.foul)

	prm := m.Params()
	mode, spot := FreeKick, v.Position
	side := m.Arena().Teams[o.TeamID].Side
	if inPenaltyArea(v.Position, side, prm.Pitch) {
		mode = Penalty
		spot = geom.Vec{float64(side) * (prm.Pitch.HalfW - 11), 0, 0}
	}
	spot[2] = 0
	prepare := foulPrepareMS
	if foulType >= FoulYellow {
		prepare = cardPrepareMS
	}
	r.schedule(m, mode, v.TeamID, spot, now, now+prepare, now+prepare+restartGapMS)
}

func inPenaltyArea(pos geom.Vec, side int, pitch tuning.Pitch) bool {
	x := pos[0] * float64(side)
	return x > pitch.HalfW-16.5 && x <= pitch.HalfW && math.Abs(pos[1]) < 20.15
}

// ProcessState walks the referee fields for the state-sync traversal.
func (r *Referee) ProcessState(s *envstate.State) {
	b := &r.buffer
	envstate.Process(s, &b.Active)
	envstate.Process(s, &b.DesiredSetPiece)
	envstate.Process(s, &b.TeamID)
	envstate.Process(s, &b.SetPiecePosition)
	envstate.Process(s, &b.StopTimeMS)
	envstate.Process(s, &b.PrepareTimeMS)
	envstate.Process(s, &b.StartTimeMS)
	envstate.Process(s, &b.EndPhase)
	envstate.Process(s, &b.Prepared)
	envstate.Process(s, &r.foul.Type)
	envstate.Process(s, &r.foul.Offender)
	envstate.Process(s, &r.foul.Victim)
	envstate.Process(s, &r.foul.Position)
	envstate.Process(s, &r.foul.TimeMS)
}
