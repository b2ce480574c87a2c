package match

import (
	"math"

	"github.com/onthepitch/matchsim/internal/geom"
	"github.com/onthepitch/matchsim/internal/team"
)

// collisionAnimation reports animations during which the body blocks the ball.
func collisionAnimation(f team.FunctionType) bool {
	switch f {
	case team.Movement, team.Trip, team.Sliding, team.Interfere, team.Deflect:
		return true
	}
	return false
}

// unexpectedBall reports whether the ball now goes somewhere else than the
// player expected when his animation began.
func (m *Match) unexpectedBall(p *team.Player) bool {
	bc := m.params.BallCollision
	im := m.mental.Get(p.ReactionTimeMS + p.Frame*m.params.Match.StepMS)
	if im == nil {
		return false
	}
	return im.BallPrediction(bc.UnexpectedHorizonMS).Sub(m.ball.Predict(bc.UnexpectedHorizonMS)).Len() > bc.UnexpectedDistance
}

// checkBallCollisions deflects the ball off the bodies of players who did not
// mean to play it. The designated player instead picks it up in stride.
func (m *Match) checkBallCollisions() {
	bc := m.params.BallCollision
	if m.actualTimeMS <= m.lastBallCollision+bc.CooldownMS {
		return
	}

	ballPos := m.ball.Predict(0)
	var bounceVec geom.Vec
	var bias float64
	count := 0

	for _, id := range m.arena.Active(m.firstTeam) {
		p := m.arena.Player(id)
		opp := &m.arena.Teams[1-p.TeamID]
		oppBias := opp.LastTouchBias(m.arena, bc.TouchWindowMS, m.actualTimeMS)
		ownBias := p.LastTouchBias(bc.TouchWindowMS, m.actualTimeMS)
		// nobody collides with a ball he could have predicted or just played himself
		if ownBias > bc.TouchBiasEpsilon || oppBias <= bc.TouchBiasEpsilon {
			continue
		}
		if !collisionAnimation(p.Function) || p.HasUniquePossession() {
			continue
		}
		onlyUnexpected := p.Function == team.Interfere || p.Function == team.Deflect
		if onlyUnexpected && !m.unexpectedBall(p) {
			continue
		}

		offset := bc.BoxOffsetBase
		if p.HasPossession() {
			offset -= bc.BoxOffsetPossession
		} else {
			offset += bc.BoxOffsetPossession
		}
		switch p.Function {
		case team.Sliding, team.Interfere:
			offset += bc.BoxOffsetTackle
		case team.Deflect:
			offset += bc.BoxOffsetDeflect
		}

		if p.Position.Add(geom.Vec{0, 0, bc.ProximityHeight}).Sub(ballPos).Len() >= bc.ProximityRange {
			continue
		}
		radius := m.params.Ball.Radius + offset
		designated := p.ID == m.arena.Teams[p.TeamID].DesignatedTeamPossessionPlayer()
		for _, part := range m.body.Parts(p.Pose()) {
			if !part.Box.IntersectsSphere(ballPos, radius) {
				continue
			}
			if designated && m.lastTouchBias(bc.TouchWindowMS) < bc.TouchBiasEpsilon {
				p.TriggerControlledBallCollision()
				continue
			}
			mb := oppBias*bc.OppTouchShare + (1 - bc.OppTouchShare)
			bounceVec = bounceVec.Add(geom.NormalizedOr(ballPos.Sub(part.Center), geom.Zero).Mul(mb)).Add(p.Movement.Mul(1 - mb))
			count++
			m.BallTouched(p.ID, team.Accidental)
			boxR := part.Box.Radius()
			bias += (1-geom.Clamp((ballPos.Sub(part.Box.Center()).Len()-radius)/boxR, 0, 1))*0.9 + 0.1
		}
	}

	if bias <= 0 {
		return
	}
	bounceVec = bounceVec.Mul(1 / float64(count))
	bounceVec[2] *= bc.BounceZScale
	bounceVec = geom.NormalizedOr(bounceVec, geom.Zero)

	cur := m.ball.Movement()
	speed := cur.Len()
	full := bounceVec.Mul(bc.BounceStrength).Add(bounceVec.Mul(speed * bc.BounceSpeedShare)).Sub(cur.Mul(bc.BounceRetain))
	bias = geom.Clamp(bias, 0, 1)*0.5 + 0.5
	result := full.Mul(bias).Add(cur.Mul(1 - bias))
	result = geom.ClampLength(result, speed).Mul(bc.Damping)

	m.ball.Touch(result)
	r := bc.SpinRange
	m.ball.SetRotation(m.rnd.Float64()*2*r-r, m.rnd.Float64()*2*r-r, m.rnd.Float64()*2*r-r, 0.5*bias)
	m.lastBallCollision = m.actualTimeMS
	m.log.Debug("ball deflected", "contacts", count, "speed", math.Round(result.Len()*100)/100)
}
