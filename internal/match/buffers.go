package match

import (
	"fmt"
	"slices"

	"github.com/onthepitch/matchsim/internal/camera"
	"github.com/onthepitch/matchsim/internal/geom"
	"github.com/onthepitch/matchsim/internal/referee"
	"github.com/onthepitch/matchsim/internal/team"
)

// PlayerFrame is a player as drawn.
type PlayerFrame struct {
	ID        team.PlayerID     `json:"id"`
	TeamID    int               `json:"team"`
	Position  geom.Vec          `json:"position"`
	Direction geom.Vec          `json:"direction"`
	Function  team.FunctionType `json:"function"`
	Active    bool              `json:"active"`
}

// OfficialFrame is the referee or a linesman as drawn.
type OfficialFrame struct {
	Position  geom.Vec          `json:"position"`
	Direction geom.Vec          `json:"direction"`
	Function  team.FunctionType `json:"function"`
}

// Frame is everything drawn for one rendered step.
type Frame struct {
	Iteration    int              `json:"iteration"`
	ActualTimeMS int              `json:"actualTimeMS"`
	MatchTimeMS  int              `json:"matchTimeMS"`
	Ball         geom.Vec         `json:"ball"`
	BallRotation geom.Vec         `json:"ballRotation"`
	Players      []PlayerFrame    `json:"players"`
	Officials    [3]OfficialFrame `json:"officials"`
}

// Renderer draws the match.
type Renderer interface {
	PutCamera(v camera.View)
	PutFrame(f Frame)
	PutNetting(side int, vertices []geom.Vec)
}

// putBuffers double-buffers the drawn state so rendering can run between steps
// without seeing a half-processed match.
type putBuffers struct {
	prepared Frame
	fetched  Frame
}

// PreparePutBuffers copies the live state into the back buffer.
func (m *Match) PreparePutBuffers() {
	if m.pause {
		return
	}
	f := &m.put.prepared
	f.Iteration = m.iterations
	f.ActualTimeMS = m.actualTimeMS
	f.MatchTimeMS = m.matchTimeMS
	f.Ball = m.ball.Position()
	f.BallRotation = m.ball.Rotation()
	f.Players = f.Players[:0]
	for _, tid := range []int{m.firstTeam, 1 - m.firstTeam} {
		for _, id := range m.arena.Teams[tid].Players {
			p := m.arena.Player(id)
			f.Players = append(f.Players, PlayerFrame{
				ID:        p.ID,
				TeamID:    p.TeamID,
				Position:  p.Position,
				Direction: p.Direction,
				Function:  p.Function,
				Active:    p.Active,
			})
		}
	}
	o := m.officials
	for i, of := range []referee.Official{o.Referee, o.Linesmen[0], o.Linesmen[1]} {
		f.Officials[i] = OfficialFrame{Position: of.Position, Direction: of.Direction, Function: of.Function}
	}
}

// FetchPutBuffers swaps the back buffer to the front.
func (m *Match) FetchPutBuffers() {
	if m.iterations < 1 || m.pause {
		return
	}
	m.put.fetched = m.put.prepared
	m.put.fetched.Players = slices.Clone(m.put.prepared.Players)
}

// FetchedFrame returns the front buffer.
func (m *Match) FetchedFrame() Frame { return m.put.fetched }

// Put hands the front buffer, the camera and the scoreboard to the renderer.
func (m *Match) Put() {
	if m.iterations < 2 {
		return
	}
	m.rend.PutCamera(m.cam.View)
	if !m.pause {
		m.rend.PutFrame(m.put.fetched)
	}
	if !m.cfg.Render || m.pause {
		return
	}

	m.disp.SetClock(FormatClock(m.matchTimeMS))
	if m.caption != "" && m.captionRemoveMS <= m.actualTimeMS {
		m.caption = ""
		m.disp.HideCaption()
	}
	m.UpdateGoalNetting(m.ball.TouchesNet())
	if m.nettingChanged {
		for side, n := range m.netting {
			m.rend.PutNetting(side, n.Vertices)
		}
	}
}

// FormatClock renders a match time as mm:ss.
func FormatClock(matchTimeMS int) string {
	return fmt.Sprintf("%02d:%02d", matchTimeMS/60000, matchTimeMS/1000%60)
}

type nopRenderer struct{}

func (nopRenderer) PutCamera(camera.View)      {}
func (nopRenderer) PutFrame(Frame)             {}
func (nopRenderer) PutNetting(int, []geom.Vec) {}
