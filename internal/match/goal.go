package match

import (
	"fmt"
	"math"

	"github.com/onthepitch/matchsim/internal/geom"
	"github.com/onthepitch/matchsim/internal/team"
)

// checkForGoal reports whether the ball crossed the goal mouth on side between
// prev and its current position. Entering through the side netting does not count.
func (m *Match) checkForGoal(side int, prev geom.Vec) bool {
	pitch := m.params.Pitch
	if math.Abs(m.ball.Predict(10)[0]) < pitch.HalfW-1 {
		return false
	}
	// side netting
	if math.Abs(prev[1]) > pitch.GoalHalfW && math.Abs(prev[0]) > pitch.HalfW-pitch.LineHalfW-m.params.Ball.Radius {
		return false
	}

	x := pitch.GoalLineX(side, m.params.Ball.Radius)
	w, h := pitch.GoalHalfW, pitch.GoalH
	normal := geom.Vec{float64(-side), 0, 0}
	mouth := [2]geom.Triangle{
		{V: [3]geom.Vec{{x, w, 0}, {x, -w, 0}, {x, w, h}}, Normal: normal},
		{V: [3]geom.Vec{{x, -w, 0}, {x, -w, h}, {x, w, h}}, Normal: normal},
	}
	line := geom.Line{A: prev, B: m.ball.Predict(0)}
	for _, tri := range mouth {
		if _, ok := tri.IntersectsLine(line); ok {
			return true
		}
	}
	return false
}

// processGoals scores a ball that crossed either goal line this step.
func (m *Match) processGoals(prev geom.Vec) {
	// a ball in team 0's goal counts for team 1
	goal1 := m.checkForGoal(m.arena.Teams[0].Side, prev)
	goal0 := m.checkForGoal(m.arena.Teams[1].Side, prev)
	if goal0 || goal1 {
		m.ballIsInGoal = true
	}
	if !m.inPlay {
		return
	}
	switch {
	case goal1:
		m.scoreGoal(1)
	case goal0:
		m.scoreGoal(0)
	}
}

func (m *Match) scoreGoal(teamID int) {
	m.data.Goals[teamID]++
	m.disp.SetGoalCount(teamID, m.data.Goals[teamID])
	m.goalScored = true
	m.lastGoalTeam = teamID

	scoring := &m.arena.Teams[teamID]
	ownGoal := m.lastTouchTeamIDs[team.IntentionalKicked] != teamID &&
		m.lastTouchTeamIDs[team.IntentionalNonkicked] != teamID
	if !ownGoal {
		m.lastGoalScorer = scoring.LastTouchPlayer()
		if m.lastGoalScorer != team.NoPlayer {
			m.SpamMessage(fmt.Sprintf("GOAL for %s! %s scores!", scoring.Name, m.arena.Player(m.lastGoalScorer).Name), m.params.Match.CaptionMS)
		} else {
			m.SpamMessage("GOAL!!!", m.params.Match.CaptionMS)
		}
	} else {
		m.lastGoalScorer = m.arena.Teams[1-teamID].LastTouchPlayer()
		if m.lastGoalScorer != team.NoPlayer {
			m.SpamMessage(fmt.Sprintf("OWN GOAL! %s is so unlucky!", m.arena.Player(m.lastGoalScorer).Name), m.params.Match.CaptionMS)
		} else {
			m.SpamMessage("It's an OWN GOAL! oh noes!", m.params.Match.CaptionMS)
		}
	}

	ev := GoalEvent{
		TeamID:      teamID,
		Scorer:      m.lastGoalScorer,
		OwnGoal:     ownGoal,
		MatchTimeMS: m.matchTimeMS,
		Score:       m.data.Goals,
	}
	m.log.Info("goal",
		"team", teamID,
		"scorer", int(ev.Scorer),
		"ownGoal", ownGoal,
		"score", fmt.Sprintf("%d-%d", ev.Score[0], ev.Score[1]))
	for _, o := range m.obs {
		o.GoalScored(m, ev)
	}
}
