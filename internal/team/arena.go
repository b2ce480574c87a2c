package team

import (
	"fmt"

	"github.com/onthepitch/matchsim/internal/geom"
)

// formationSlot is a 4-4-2 position for a team attacking toward +x, in fractions
// of the pitch half sizes.
type formationSlot struct {
	role Role
	x, y float64
}

var formation442 = []formationSlot{
	{GK, -0.96, 0},
	{CB, -0.72, 0.14},
	{CB, -0.72, -0.14},
	{LB, -0.66, 0.55},
	{RB, -0.66, -0.55},
	{CM, -0.38, 0.12},
	{CM, -0.38, -0.12},
	{LM, -0.3, 0.6},
	{RM, -0.3, -0.6},
	{CF, -0.08, 0.1},
	{CF, -0.12, -0.18},
}

// MaxPlayers is the roster size per team.
const MaxPlayers = 11

// Arena owns every player and both teams.
type Arena struct {
	Players []Player
	Teams   [2]Team
}

// NewArena builds two teams of playersPerTeam in a 4-4-2 shape. Team 0 defends the
// negative x goal.
func NewArena(names [2]string, playersPerTeam int) (*Arena, error) {
	if playersPerTeam < 1 || playersPerTeam > MaxPlayers {
		return nil, fmt.Errorf("players per team must be between 1 and %d, got %d", MaxPlayers, playersPerTeam)
	}
	a := &Arena{Players: make([]Player, 0, 2*playersPerTeam)}
	for teamID := 0; teamID < 2; teamID++ {
		side := -1
		if teamID == 1 {
			side = 1
		}
		a.Teams[teamID] = Team{
			ID:                       teamID,
			Name:                     names[teamID],
			Side:                     side,
			designatedTeamPossession: NoPlayer,
			lastTouchPlayer:          NoPlayer,
			lastTouchType:            NoTouch,
			fadingPossession:         0.5,
		}
		for i := 0; i < playersPerTeam; i++ {
			slot := formation442[i]
			id := PlayerID(len(a.Players))
			p := newPlayer(id, teamID, slot.role, geom.Vec{slot.x, slot.y, 0})
			p.Name = fmt.Sprintf("%s %d", names[teamID], i+1)
			a.Players = append(a.Players, p)
			a.Teams[teamID].Players = append(a.Teams[teamID].Players, id)
		}
	}
	return a, nil
}

// Player resolves a handle. It panics on NoPlayer or an unknown id.
func (a *Arena) Player(id PlayerID) *Player {
	if id < 0 || int(id) >= len(a.Players) {
		panic(fmt.Sprintf("team: invalid player handle %d", id))
	}
	return &a.Players[id]
}

// TeamOf returns the team a player belongs to.
func (a *Arena) TeamOf(id PlayerID) *Team {
	return &a.Teams[a.Player(id).TeamID]
}

// Active returns every active player, first team first.
func (a *Arena) Active(firstTeam int) []PlayerID {
	out := a.Teams[firstTeam].ActivePlayers(a, nil)
	return a.Teams[1-firstTeam].ActivePlayers(a, out)
}

// UpdatePossessionFlags derives the shared possession flags once both teams have
// fresh time-to-ball estimates. bestTeam is -1 when no team is ahead.
func (a *Arena) UpdatePossessionFlags(bestTeam int) {
	holders := 0
	for i := range a.Players {
		if a.Players[i].possession {
			holders++
		}
	}
	for i := range a.Players {
		p := &a.Players[i]
		p.uniquePossession = p.possession && holders == 1
		p.bestPossession = p.possession && p.TeamID == bestTeam &&
			a.Teams[bestTeam].designatedTeamPossession == p.ID
	}
}
