package match

import (
	"github.com/onthepitch/matchsim/internal/camera"
	"github.com/onthepitch/matchsim/internal/geom"
	"github.com/onthepitch/matchsim/internal/mental"
	"github.com/onthepitch/matchsim/internal/referee"
	"github.com/onthepitch/matchsim/internal/team"
)

// Process advances the match by one 10ms step. While paused only the camera and
// the iteration counter move.
func (m *Match) Process() {
	if m.exited {
		panic("match: Process after Exit")
	}
	if !m.pause {
		m.step()
	}

	if m.autoCamera {
		if m.cfg.Render {
			m.cam.UpdateIngame(m.cameraInput())
		}
		if m.goalScored && m.goalScoredTimer == m.params.Match.CelebrationPauseMS {
			m.pause = true
			m.log.Debug("celebration pause", "actualTimeMS", m.actualTimeMS)
		}
	}
	if !m.pause && m.actualTimeMS < m.params.Match.StartZoomMS {
		m.cam.BlendStart(m.actualTimeMS, m.params.Match.StartZoomMS)
	}
	m.iterations++
}

func (m *Match) step() {
	mp := m.params.Match

	if m.inPlay {
		m.checkBallCollisions()
	}
	m.referee.Process(m)

	prev := m.ball.Predict(0)
	m.ball.Process()
	m.mental.Push(m.snapshot())

	m.arena.Teams[m.firstTeam].UpdateSwitch(m.arena)
	m.arena.Teams[1-m.firstTeam].UpdateSwitch(m.arena)
	for _, id := range []int{m.firstTeam, 1 - m.firstTeam} {
		t := &m.arena.Teams[id]
		m.withMirror(m.mirroredFor(id), func() { t.Process(m) })
	}

	m.officials.Process(m.ball.Predict(0), m.referee, m.actualTimeMS, &m.params)

	m.updatePossessionStats()
	m.bestPossessionTeam = m.calculateBestPossessionTeam()
	m.arena.UpdatePossessionFlags(m.bestPossessionTeam)
	m.updateDesignated()

	m.checkHumanoidCollisions()

	if m.inPlay {
		m.matchTimeMS = int(float64(m.matchTimeMS) + float64(mp.StepMS)/m.durationFactor)
	}
	m.actualTimeMS += mp.StepMS
	if m.goalScored {
		m.goalScoredTimer += mp.StepMS
	} else {
		m.goalScoredTimer = 0
	}
	if m.inPlay && !m.inSetPiece {
		m.data.PossessionMS[m.arena.Player(m.designated).TeamID] += mp.StepMS
	}

	m.processGoals(prev)
	m.samplePossessionSide()
	m.followFoul()
}

// snapshot captures the world for the mental image ring.
func (m *Match) snapshot() mental.Image {
	im := mental.Image{
		TimeMS:          m.actualTimeMS,
		StepMS:          m.params.Match.StepMS,
		BallPredictions: m.ball.Predictions(),
		Players:         make([]mental.PlayerSnapshot, len(m.arena.Players)),
	}
	for i := range m.arena.Players {
		p := &m.arena.Players[i]
		im.Players[i] = mental.PlayerSnapshot{TeamID: p.TeamID, Position: p.Position, Movement: p.Movement}
	}
	return im
}

// followFoul films the referee while he deals with a booking.
func (m *Match) followFoul() {
	buf := m.referee.Buffer()
	mp := m.params.Match
	if !buf.Active || m.referee.CurrentFoulType() < referee.FoulYellow || buf.StopTimeMS >= m.actualTimeMS-mp.FoulCamDelayMS {
		return
	}
	if buf.PrepareTimeMS > m.actualTimeMS {
		m.autoCamera = false
		m.cam.Follow(m.officials.Referee.Position.Add(geom.Vec{0, 0, 0.8}), 1.5)
		if m.officials.Referee.Function == team.Special {
			m.referee.AlterSetPiecePrepareTime(m.actualTimeMS + mp.FoulCamExtendMS)
		}
		return
	}
	m.autoCamera = true
}

func (m *Match) cameraInput() camera.Input {
	holder := m.arena.Player(m.designated)
	in := camera.Input{
		Ball:          m.ball.Predict(0),
		BallSpeed:     m.ball.Movement().Len(),
		Holder:        holder.Position,
		HolderDir:     geom.Flat(holder.Movement).Mul(0.3),
		AttackBias:    m.arena.Teams[holder.TeamID].AttackDirection() * 4,
		HalfW:         m.params.Pitch.HalfW,
		HalfH:         m.params.Pitch.HalfH,
		GoalScored:    m.goalScored,
		GoalTimerMS:   m.goalScoredTimer,
		ScorerDelayMS: m.params.Match.ScorerCamDelayMS,
	}
	if m.lastGoalScorer != team.NoPlayer {
		in.Scorer = m.arena.Player(m.lastGoalScorer).Position
		in.HasScorer = true
	}
	return in
}
