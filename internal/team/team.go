package team

import (
	"math"

	"github.com/onthepitch/matchsim/internal/envstate"
	"github.com/onthepitch/matchsim/internal/geom"
)

// fadingDecay is the per-step retention of the fading possession amount.
const fadingDecay = 0.99

// Team is one side of the match.
type Team struct {
	ID      int
	Name    string
	Players []PlayerID
	// Side is the x sign of the goal this team defends.
	Side int

	designatedTeamPossession PlayerID
	lastTouchPlayer          PlayerID
	lastTouchType            TouchType
	timeToBallMS             int
	fadingPossession         float64
	mirrored                 bool
}

// AttackDirection is the x sign the team plays toward.
func (t *Team) AttackDirection() float64 { return float64(-t.Side) }

// Mirrored reports whether the team currently lives in the mirrored frame.
func (t *Team) Mirrored() bool { return t.mirrored }

// DesignatedTeamPossessionPlayer is the team member closest in time to the ball.
func (t *Team) DesignatedTeamPossessionPlayer() PlayerID { return t.designatedTeamPossession }

// TimeToBallMS is the best time-to-ball over the active players.
func (t *Team) TimeToBallMS() int { return t.timeToBallMS }

// FadingPossession is a slow moving 0..1 measure of recent possession.
func (t *Team) FadingPossession() float64 { return t.fadingPossession }

// LastTouchPlayer returns who on this team touched the ball last.
func (t *Team) LastTouchPlayer() PlayerID { return t.lastTouchPlayer }

// SetLastTouchPlayer records a touch by one of the team's players.
func (t *Team) SetLastTouchPlayer(id PlayerID, touch TouchType) {
	t.lastTouchPlayer = id
	t.lastTouchType = touch
}

// LastTouchBias is the last touching player's bias, 0 when nobody touched.
func (t *Team) LastTouchBias(a *Arena, decayMS, nowMS int) float64 {
	if t.lastTouchPlayer == NoPlayer {
		return 0
	}
	return a.Player(t.lastTouchPlayer).LastTouchBias(decayMS, nowMS)
}

// ActivePlayers appends the handles of players on the pitch to dst.
func (t *Team) ActivePlayers(a *Arena, dst []PlayerID) []PlayerID {
	for _, id := range t.Players {
		if a.Player(id).Active {
			dst = append(dst, id)
		}
	}
	return dst
}

// Mirror flips the team and all of its players.
func (t *Team) Mirror(a *Arena) {
	t.mirrored = !t.mirrored
	t.Side = -t.Side
	for _, id := range t.Players {
		a.Player(id).Mirror()
	}
}

// FormationPosition returns where a player stands in open play with the ball at ballPos.
func (t *Team) FormationPosition(p *Player, ballPos geom.Vec, halfW, halfH float64) geom.Vec {
	attack := t.AttackDirection()
	home := geom.Vec{p.Formation[0] * halfW * attack, p.Formation[1] * halfH * attack, 0}
	if p.Role == GK {
		home[1] = geom.Clamp(ballPos[1]*0.15, -3, 3)
		return home
	}
	home[0] += ballPos[0] * 0.45
	home[1] += ballPos[1] * 0.25
	home[0] = geom.Clamp(home[0], -halfW+2, halfW-2)
	home[1] = geom.Clamp(home[1], -halfH+1, halfH-1)
	return home
}

// KickoffPosition returns the player's spot inside his own half.
func (t *Team) KickoffPosition(p *Player, halfW, halfH float64) geom.Vec {
	attack := t.AttackDirection()
	x := math.Min(p.Formation[0]*halfW*0.6, -1.5)
	if p.Role == GK {
		x = p.Formation[0] * halfW
	}
	return geom.Vec{x * attack, p.Formation[1] * halfH * 0.8 * attack, 0}
}

// ResetSituation lines the team up around focus and clears per-phase state.
func (t *Team) ResetSituation(a *Arena, focus geom.Vec, halfW, halfH float64) {
	t.lastTouchPlayer = NoPlayer
	t.lastTouchType = NoTouch
	t.timeToBallMS = math.MaxInt32
	best := math.MaxFloat64
	t.designatedTeamPossession = NoPlayer
	for _, id := range t.Players {
		p := a.Player(id)
		p.Position = t.KickoffPosition(p, halfW, halfH)
		p.Movement = geom.Zero
		p.Direction = geom.NormalizedOr(geom.Flat(focus.Sub(p.Position)), geom.Vec{t.AttackDirection(), 0, 0})
		p.Function = Movement
		p.Frame, p.FrameCount = 0, 0
		p.touchPending = false
		p.tripType = 0
		p.possession, p.uniquePossession, p.bestPossession = false, false, false
		p.lastTouchMS = neverTouched
		p.lastTouchType = NoTouch
		p.decayingOffset = geom.Zero
		p.controlledCollision = false
		if !p.Active {
			continue
		}
		if d := geom.Flat(focus.Sub(p.Position)).Len(); d < best {
			best = d
			t.designatedTeamPossession = id
		}
	}
}

// RelaxFatigue restores stamina on every player.
func (t *Team) RelaxFatigue(a *Arena, amount float64) {
	for _, id := range t.Players {
		a.Player(id).RelaxFatigue(amount)
	}
}

// UpdatePossessionStats estimates every active player's time to the ball along the
// predicted trajectory and picks the team's designated possession player.
func (t *Team) UpdatePossessionStats(a *Arena, predictions []geom.Vec, stepMS int, sprint float64, best bool) {
	t.timeToBallMS = math.MaxInt32
	prevDesignated := t.designatedTeamPossession
	t.designatedTeamPossession = NoPlayer
	for _, id := range t.Players {
		p := a.Player(id)
		if !p.Active {
			p.possession = false
			continue
		}
		p.timeToBallMS = p.estimateTimeToBall(predictions, stepMS, sprint)
		p.possession = p.timeToBallMS <= 2*stepMS && p.Function != Trip
		if p.timeToBallMS < t.timeToBallMS || (p.timeToBallMS == t.timeToBallMS && id == prevDesignated) {
			t.timeToBallMS = p.timeToBallMS
			t.designatedTeamPossession = id
		}
	}

	amount := 0.0
	if best {
		amount = 1
	}
	t.fadingPossession = t.fadingPossession*fadingDecay + amount*(1-fadingDecay)
}

func (p *Player) estimateTimeToBall(predictions []geom.Vec, stepMS int, sprint float64) int {
	speed := sprint * (0.75 + 0.25*p.Stats.Speed) * (0.8 + 0.2*p.FatigueInv)
	pos := geom.Flat(p.Position)
	for i, pred := range predictions {
		if pred[2] > 2.2 {
			continue
		}
		t := float64(i*stepMS) / 1000
		if geom.Flat(pred).Sub(pos).Len() <= 0.5+speed*t {
			return i * stepMS
		}
	}
	last := predictions[len(predictions)-1]
	horizon := float64((len(predictions) - 1) * stepMS)
	extra := (geom.Flat(last).Sub(pos).Len() - 0.5 - speed*horizon/1000) / speed
	return int(horizon + math.Max(extra, 0)*1000)
}

// UpdateSwitch hands the team's external controllers to the players that need them
// most: the designated possession player first.
func (t *Team) UpdateSwitch(a *Arena) {
	if t.designatedTeamPossession == NoPlayer {
		return
	}
	target := a.Player(t.designatedTeamPossession)
	if target.ExternalController != NoController {
		return
	}
	for _, id := range t.Players {
		p := a.Player(id)
		if p.ExternalController == NoController || p.HasPossession() || p.Function != Movement {
			continue
		}
		target.ExternalController = p.ExternalController
		p.ExternalController = NoController
		p.hasCommand = false
		return
	}
}

// Controlled returns the players driven by external controllers.
func (t *Team) Controlled(a *Arena) []PlayerID {
	var out []PlayerID
	for _, id := range t.Players {
		if a.Player(id).ExternalController != NoController {
			out = append(out, id)
		}
	}
	return out
}

// ProcessState walks the team fields for the state-sync traversal.
func (t *Team) ProcessState(s *envstate.State) {
	envstate.Process(s, &t.Side)
	envstate.Process(s, &t.designatedTeamPossession)
	envstate.Process(s, &t.lastTouchPlayer)
	envstate.Process(s, &t.lastTouchType)
	envstate.Process(s, &t.timeToBallMS)
	envstate.Process(s, &t.fadingPossession)
	envstate.Process(s, &t.mirrored)
}
