package match

import (
	"fmt"

	"github.com/onthepitch/matchsim/internal/team"
)

// shouldSwitchDesignated applies the hysteresis that keeps the designated player
// from flickering between two players with almost the same time to the ball.
func shouldSwitchDesignated(holderMS, candidateMS int, ratio float64, offsetMS int) bool {
	return float64(candidateMS+offsetMS)/float64(holderMS+offsetMS) < ratio
}

func (m *Match) updatePossessionStats() {
	prm := &m.params
	for _, id := range []int{m.firstTeam, 1 - m.firstTeam} {
		t := &m.arena.Teams[id]
		best := id == m.bestPossessionTeam
		m.withMirror(m.mirroredFor(id), func() {
			t.UpdatePossessionStats(m.arena, m.ball.Predictions(), prm.Match.StepMS, prm.Movement.Sprint, best)
		})
	}
}

// calculateBestPossessionTeam picks the team whose best player reaches the ball
// first. A ball retainer decides it outright and a tie leaves it at -1.
func (m *Match) calculateBestPossessionTeam() int {
	if m.ballRetainer != team.NoPlayer {
		return m.arena.Player(m.ballRetainer).TeamID
	}
	t0 := m.arena.Teams[0].TimeToBallMS()
	t1 := m.arena.Teams[1].TimeToBallMS()
	switch {
	case t0 < t1:
		return 0
	case t1 < t0:
		return 1
	}
	return -1
}

func (m *Match) updateDesignated() {
	if m.ballRetainer != team.NoPlayer {
		m.designated = m.ballRetainer
		return
	}

	if m.bestPossessionTeam == -1 {
		cur := m.arena.Player(m.designated)
		d := m.arena.Teams[cur.TeamID].DesignatedTeamPossessionPlayer()
		if d == team.NoPlayer {
			panic(fmt.Sprintf("match: team %d has no designated possession player", cur.TeamID))
		}
		m.designated = d
		return
	}

	cand := m.arena.Teams[m.bestPossessionTeam].DesignatedTeamPossessionPlayer()
	if cand == team.NoPlayer || cand == m.designated {
		return
	}
	holder := m.arena.Player(m.designated)
	c := m.arena.Player(cand)
	mp := m.params.Match
	if !holder.Active || shouldSwitchDesignated(holder.TimeToBallMS(), c.TimeToBallMS(), mp.HysteresisRatio, mp.HysteresisOffsetMS) {
		m.designated = cand
	}
}

// samplePossessionSide records which team the possession is tilted toward:
// negative for team 0 and positive for team 1 with the default sides.
func (m *Match) samplePossessionSide() {
	if !m.inPlay || m.bestPossessionTeam == -1 {
		return
	}
	var v float64
	for i := range m.arena.Teams {
		t := &m.arena.Teams[i]
		v += (t.FadingPossession() - 0.5) * float64(t.Side)
	}
	m.possessionSide.Push(v)
}
