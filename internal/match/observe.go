package match

import (
	"github.com/onthepitch/matchsim/internal/geom"
	"github.com/onthepitch/matchsim/internal/referee"
	"github.com/onthepitch/matchsim/internal/team"
)

// PlayerInfo is one player as seen by an external agent.
type PlayerInfo struct {
	Position  geom.Vec `json:"position"`
	Direction geom.Vec `json:"direction"`
	Tired     float64  `json:"tiredFactor"`
	HasCard   bool     `json:"hasCard"`
	IsActive  bool     `json:"isActive"`
	Role      string   `json:"role"`
}

// Observation is the externally visible state of the match.
type Observation struct {
	Ball         geom.Vec         `json:"ball"`
	BallRotation geom.Vec         `json:"ballRotation"`
	BallMovement geom.Vec         `json:"ballDirection"`
	BallOwnTeam  int              `json:"ballOwnedTeam"`
	BallOwner    int              `json:"ballOwnedPlayer"`
	Score        [2]int           `json:"score"`
	InPlay       bool             `json:"inPlay"`
	GameMode     string           `json:"gameMode"`
	LeftTeam     []PlayerInfo     `json:"leftTeam"`
	RightTeam    []PlayerInfo     `json:"rightTeam"`
	Controllers  map[string][]int `json:"controllers"`
}

// GetState builds the observation of the current step.
func (m *Match) GetState() Observation {
	steps := float64(m.cfg.PhysicsStepsPerFrame)
	obs := Observation{
		Ball:         m.ball.AveragePosition(5),
		BallRotation: m.ball.Rotation().Mul(1 / steps),
		BallMovement: m.ball.Movement().Mul(1 / steps),
		BallOwnTeam:  -1,
		BallOwner:    -1,
		Score:        m.data.Goals,
		InPlay:       m.inPlay,
		GameMode:     referee.Normal.String(),
		Controllers:  map[string][]int{"left": {}, "right": {}},
	}
	if m.inSetPiece {
		obs.GameMode = m.referee.Buffer().DesiredSetPiece.String()
	}

	for tid, dst := range []*[]PlayerInfo{&obs.LeftTeam, &obs.RightTeam} {
		for i, id := range m.arena.Teams[tid].Players {
			p := m.arena.Player(id)
			*dst = append(*dst, PlayerInfo{
				Position:  p.Position,
				Direction: p.Movement.Mul(1 / steps),
				Tired:     1 - p.FatigueInv,
				HasCard:   p.HasCards(),
				IsActive:  p.Active,
				Role:      p.Role.String(),
			})
			if m.ownsBall(p) {
				obs.BallOwnTeam = tid
				obs.BallOwner = i
			}
		}
	}

	for _, s := range m.sides {
		key, tid := "left", 0
		if s.Side == 1 {
			key, tid = "right", 1
		}
		obs.Controllers[key] = append(obs.Controllers[key], m.controlledIndex(tid, s.ControllerID))
	}
	return obs
}

// ownsBall attributes the ball to a player who can play it and touched it last
// for his team.
func (m *Match) ownsBall(p *team.Player) bool {
	if !p.HasPossession() || m.lastTouchTeamID == -1 {
		return false
	}
	return m.arena.Teams[m.lastTouchTeamID].LastTouchPlayer() == p.ID
}

// controlledIndex returns the team-relative index of the player driven by
// controller, -1 when none.
func (m *Match) controlledIndex(teamID, controller int) int {
	for i, id := range m.arena.Teams[teamID].Players {
		if m.arena.Player(id).ExternalController == controller {
			return i
		}
	}
	return -1
}
