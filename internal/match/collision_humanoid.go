package match

import (
	"math"

	"github.com/onthepitch/matchsim/internal/geom"
	"github.com/onthepitch/matchsim/internal/humanoid"
	"github.com/onthepitch/matchsim/internal/team"
)

// playerBounce is a neighbour whose movement a player partly takes over.
type playerBounce struct {
	opp   *team.Player
	force float64
}

// checkHumanoidCollisions pushes overlapping players apart, lets close players
// drag each other along, trips players that lose a duel and resolves tackles.
func (m *Match) checkHumanoidCollisions() {
	ids := m.arena.Active(m.firstTeam)
	players := make([]*team.Player, len(ids))
	for i, id := range ids {
		players[i] = m.arena.Player(id)
	}
	bounces := make([][]playerBounce, len(players))
	for i := range players {
		for j := i + 1; j < len(players); j++ {
			m.checkHumanoidCollision(players[i], players[j], &bounces[i], &bounces[j])
		}
	}

	for i, p := range players {
		var total float64
		for _, b := range bounces[i] {
			total += b.force
		}
		if total <= 0 {
			continue
		}
		var vec geom.Vec
		for _, b := range bounces[i] {
			vec = vec.Add(b.opp.Movement.Sub(p.Movement).Mul(b.force * (b.force / total)))
		}
		p.OffsetPosition(vec.Mul(0.01))
	}
}

// duelBias favors the player closer to the ball when both are their team's
// designated player. It is positive in favor of p1.
func (m *Match) duelBias(p1, p2 *team.Player) float64 {
	if p1.ID != m.arena.Teams[p1.TeamID].DesignatedTeamPossessionPlayer() ||
		p2.ID != m.arena.Teams[p2.TeamID].DesignatedTeamPossessionPlayer() {
		return 0
	}
	h := m.params.Humanoid
	b := geom.Flat(m.ball.Predict(10))
	d1 := b.Sub(p1.Position).Len()
	d2 := b.Sub(p2.Position).Len()
	return geom.Clamp(math.Min(d2, h.BallDuelCap)-math.Min(d1, h.BallDuelCap), -h.BallDuelClamp, h.BallDuelClamp)
}

func tackleBonus(p *team.Player, base, stat float64) float64 {
	if !p.TouchPending() {
		return 0
	}
	switch p.Function {
	case team.Interfere:
		return base + stat*p.Stats.StandingTackle
	case team.Sliding:
		return base + stat*p.Stats.SlidingTackle
	}
	return 0
}

func (m *Match) checkHumanoidCollision(p1, p2 *team.Player, b1, b2 *[]playerBounce) {
	h := m.params.Humanoid
	sprint := m.params.Movement.Sprint
	dt := float64(m.params.Match.StepMS) / 1000
	bounceR := h.BounceRadius()
	similarR := h.SimilarRadius()

	distance := p1.Position.Sub(p2.Position).Len()

	if distance < (bounceR+similarR)*2 {
		bounceVec := geom.NormalizedOr(p1.Position.Sub(p2.Position), geom.Vec{0, -1, 0})
		facing1 := geom.Rotated2D(p1.Direction, p1.RelBodyAngle*h.FacingBodyAngleShare)
		facing2 := geom.Rotated2D(p2.Direction, p2.RelBodyAngle*h.FacingBodyAngleShare)
		back1 := geom.Clamp(facing1.Dot(bounceVec)*0.5+0.5, 0, 1)
		back2 := geom.Clamp(facing2.Dot(bounceVec.Mul(-1))*0.5+0.5, 0, 1)

		// faster is worse
		v1, v2 := p1.Velocity(), p2.Velocity()
		velBias := geom.Clamp((v1-v2)/sprint*h.VelocityBiasCap, -h.VelocityBiasCap, h.VelocityBiasCap)
		duel := m.duelBias(p1, p2)
		balance := p1.Stats.Balance - p2.Stats.Balance

		if distance < bounceR*2 {
			bias := (back1-back2)*h.BackFacingWeight - velBias
			bias += tackleBonus(p1, h.TackleBonusBase, h.TackleBonusStat)
			bias -= tackleBonus(p2, h.TackleBonusBase, h.TackleBonusStat)
			if p1.ID == m.designated {
				bias += h.DesignatedBounceBias
			}
			if p2.ID == m.designated {
				bias -= h.DesignatedBounceBias
			}
			bias += duel + balance
			bias = geom.Clamp(bias, -1, 1) * h.BounceBiasScale
			b01 := bias*0.5 + 0.5

			depth := bounceR - distance*0.5
			offset1 := bounceVec.Mul(depth * (1 - b01) * 2)
			offset2 := bounceVec.Mul(-depth * b01 * 2)

			// the opponent of a player shielding the ball is drawn to his side,
			// but never back into him
			switch {
			case m.designated == p2.ID && p2.HasPossession():
				offset1 = withoutInward(offset1.Add(m.shieldPull(p2, p1, bounceR)), bounceVec)
			case m.designated == p1.ID && p1.HasPossession():
				offset2 = withoutInward(offset2.Add(m.shieldPull(p1, p2, bounceR)), bounceVec.Mul(-1))
			}

			p1.OffsetPosition(geom.ClampLength(offset1, sprint*dt))
			p2.OffsetPosition(geom.ClampLength(offset2, sprint*dt))
		}

		if h.SimilarForceFactor > 0 {
			shell := math.Max(0, distance-bounceR*2)
			sim := (back1-back2)*h.BackFacingWeight - velBias
			if p1.ID == m.designated {
				sim += h.DesignatedSimilarBias
			}
			if p2.ID == m.designated {
				sim -= h.DesignatedSimilarBias
			}
			sim += duel + balance
			sim = geom.Clamp(sim, -1, 1) * h.SimilarBiasScale

			force := math.Pow(geom.Clamp(1-shell/(similarR*2), 0, 1), h.SimilarExp) * h.SimilarForceFactor
			s01 := sim*0.5 + 0.5
			*b1 = append(*b1, playerBounce{opp: p2, force: force * (1 - s01)})
			*b2 = append(*b2, playerBounce{opp: p1, force: force * s01})
		}

		if distance < bounceR*2 {
			s1, s2 := m.tripSensitivity(p1, p2, back1, back2, bounceR)
			if tt := tripTypeFor(s1, h.TripThresholds); tt > 0 {
				dir := geom.NormalizedOr(p1.Movement.Mul(0.1).Add(p2.Movement.Mul(0.06)).Add(bounceVec), bounceVec)
				p1.TripMe(dir, tt)
				m.referee.TripNotice(m, p1.ID, p2.ID, tt)
			}
			if tt := tripTypeFor(s2, h.TripThresholds); tt > 0 {
				back := bounceVec.Mul(-1)
				dir := geom.NormalizedOr(p2.Movement.Mul(0.1).Add(p1.Movement.Mul(0.06)).Add(back), back)
				p2.TripMe(dir, tt)
				m.referee.TripNotice(m, p2.ID, p1.ID, tt)
			}
		}
	}

	m.checkTackle(p1, p2, distance)
}

// withoutInward drops the part of offset that points against the unit vector out.
// Offsets with no inward part keep a pair at least as far apart as before.
func withoutInward(offset, out geom.Vec) geom.Vec {
	if r := offset.Dot(out); r < 0 {
		return offset.Sub(out.Mul(r))
	}
	return offset
}

// shieldPull drags opp toward whichever side of holder is nearer.
func (m *Match) shieldPull(holder, opp *team.Player, bounceR float64) geom.Vec {
	h := m.params.Humanoid
	left := holder.Position.Add(geom.Rotated2D(holder.Direction, h.ShieldAngle*math.Pi).Mul(bounceR * 2))
	right := holder.Position.Add(geom.Rotated2D(holder.Direction, -h.ShieldAngle*math.Pi).Mul(bounceR * 2))
	side := right
	if opp.Position.Sub(left).Len() < opp.Position.Sub(right).Len() {
		side = left
	}
	return geom.ClampLength(side.Sub(opp.Position), h.ShieldStep).Mul(opp.Stats.Balance * h.ShieldWeight)
}

func (m *Match) tripSensitivity(p1, p2 *team.Player, back1, back2, bounceR float64) (float64, float64) {
	h := m.params.Humanoid
	mv := m.params.Movement
	ball := geom.Flat(m.ball.Predict(10))

	// the same penetration counts against both
	future1 := p1.Position.Add(p1.Movement.Mul(h.PenetrationLookahead))
	future2 := p2.Position.Add(p2.Movement.Mul(h.PenetrationLookahead))
	pen := math.Pow(1-geom.NormalizedClamp(future1.Sub(future2).Len(), 0, bounceR*2), h.PenetrationExp) * h.PenetrationWeight

	one := func(p *team.Player, back float64) float64 {
		s := 1 - back
		s += geom.NormalizedClamp(p.Velocity(), mv.Idle, mv.Sprint)
		if p.HasBestPossession() {
			s++
		}
		s += (1 - p.Stats.Balance) * h.BalanceWeight
		s += geom.Clamp(p.DecayingOffsetLength()*10, 0, 1)
		s += pen
		s += 1 - geom.NormalizedClamp(ball.Sub(p.Position).Len(), 0, h.BallProximityRange)
		return s / (5 + h.BalanceWeight + h.PenetrationWeight)
	}
	return one(p1, back1), one(p2, back2)
}

// tripTypeFor maps a trip sensitivity onto a trip severity, 0 for none.
func tripTypeFor(s float64, thresholds [3]float64) int {
	switch {
	case s <= thresholds[0]:
		return 0
	case s > thresholds[2]:
		return 2
	case s > thresholds[1]:
		return 1
	}
	return 0
}

type frameWindow struct{ min, max int }

func tackling(p *team.Player, w frameWindow) bool {
	return (p.Function == team.Sliding || p.Function == team.Interfere) && p.Frame > w.min && p.Frame < w.max
}

// checkTackle trips the victim when a sliding or interfering player's body
// reaches his lower legs. Simultaneous tackles cancel each other out.
func (m *Match) checkTackle(p1, p2 *team.Player, distance float64) {
	h := m.params.Humanoid
	win := frameWindow{h.TackleFrameMin, h.TackleFrameMax}
	tackle := 0
	if tackling(p1, win) {
		tackle++
	}
	if tackling(p2, win) {
		tackle += 2
	}
	if distance >= h.TackleRange || tackle == 0 || tackle == 3 {
		return
	}
	tackler, victim := p1, p2
	if tackle == 2 {
		tackler, victim = p2, p1
	}
	if !m.bodiesHit(tackler, victim, h.TackleBoxShrink) {
		return
	}
	if tackler.Frame <= h.TackleTripFrameMin || tackler.Frame >= tackler.FrameCount-h.TackleTripFrameTail {
		return
	}
	tripType := 3
	if tackler.Function == team.Interfere {
		tripType = 1
	}
	victim.TripMe(victim.Direction, tripType)
	m.referee.TripNotice(m, victim.ID, tackler.ID, tripType)
}

// bodiesHit reports whether any shrunk part of the tackler touches a lower leg
// or foot of the victim.
func (m *Match) bodiesHit(tackler, victim *team.Player, shrink float64) bool {
	var legs []humanoid.Part
	for _, part := range m.body.Parts(victim.Pose()) {
		if part.IsLowerLeg() {
			legs = append(legs, part)
		}
	}
	for _, part := range m.body.Parts(tackler.Pose()) {
		box := part.Box.Shrunk(shrink)
		for _, leg := range legs {
			if box.Intersects(leg.Box) {
				return true
			}
		}
	}
	return false
}
