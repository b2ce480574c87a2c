package team

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onthepitch/matchsim/internal/ball"
	"github.com/onthepitch/matchsim/internal/envstate"
	"github.com/onthepitch/matchsim/internal/geom"
	"github.com/onthepitch/matchsim/internal/tuning"
)

type fakeWorld struct {
	arena        *Arena
	ball         *ball.Ball
	params       tuning.Params
	now          int
	inPlay       bool
	setPiece     bool
	setPieceTeam int
	rnd          *rand.Rand
	touches      []PlayerID
}

func newFakeWorld(t *testing.T, perTeam int) *fakeWorld {
	t.Helper()
	a, err := NewArena([2]string{"Home", "Away"}, perTeam)
	require.NoError(t, err)
	p := tuning.Default()
	return &fakeWorld{
		arena:        a,
		ball:         ball.New(p),
		params:       p,
		inPlay:       true,
		setPieceTeam: -1,
		rnd:          rand.New(rand.NewPCG(1, 2)),
	}
}

func (w *fakeWorld) Arena() *Arena          { return w.arena }
func (w *fakeWorld) Ball() *ball.Ball       { return w.ball }
func (w *fakeWorld) Params() *tuning.Params { return &w.params }
func (w *fakeWorld) ActualTimeMS() int      { return w.now }
func (w *fakeWorld) InPlay() bool           { return w.inPlay }
func (w *fakeWorld) InSetPiece() bool       { return w.setPiece }
func (w *fakeWorld) SetPieceTeam() int      { return w.setPieceTeam }
func (w *fakeWorld) Rand() *rand.Rand       { return w.rnd }
func (w *fakeWorld) BallTouched(id PlayerID, _ TouchType) {
	w.touches = append(w.touches, id)
	w.arena.Player(id).SetLastTouch(w.now, IntentionalKicked)
}

func TestNewArena(t *testing.T) {
	a, err := NewArena([2]string{"A", "B"}, 11)
	require.NoError(t, err)
	assert.Len(t, a.Players, 22)
	assert.Equal(t, -1, a.Teams[0].Side)
	assert.Equal(t, 1, a.Teams[1].Side)
	assert.Equal(t, GK, a.Player(0).Role)
	assert.Equal(t, 1, a.TeamOf(11).ID)

	active := a.Active(1)
	require.Len(t, active, 22)
	assert.Equal(t, PlayerID(11), active[0])

	_, err = NewArena([2]string{"A", "B"}, 12)
	assert.Error(t, err)
	_, err = NewArena([2]string{"A", "B"}, 0)
	assert.Error(t, err)

	assert.Panics(t, func() { a.Player(NoPlayer) })
}

func TestMirrorTwiceRestoresTeam(t *testing.T) {
	w := newFakeWorld(t, 11)
	team := &w.arena.Teams[1]
	team.ResetSituation(w.arena, geom.Zero, 55, 36)
	w.arena.Player(12).Movement = geom.Vec{2, -1, 0}
	before := make([]Player, len(w.arena.Players))
	copy(before, w.arena.Players)

	team.Mirror(w.arena)
	assert.True(t, team.Mirrored())
	assert.Equal(t, -1, team.Side)
	assert.Equal(t, -before[12].Position[0], w.arena.Player(12).Position[0])

	team.Mirror(w.arena)
	assert.False(t, team.Mirrored())
	assert.Equal(t, 1, team.Side)
	assert.Equal(t, before, w.arena.Players)
}

func TestKickoffPositionsStayInOwnHalf(t *testing.T) {
	w := newFakeWorld(t, 11)
	for i := range w.arena.Teams {
		team := &w.arena.Teams[i]
		team.ResetSituation(w.arena, geom.Zero, 55, 36)
		for _, id := range team.Players {
			x := w.arena.Player(id).Position[0]
			assert.Greater(t, x*float64(team.Side), 0.0, "player %d", id)
		}
	}
}

func TestUpdatePossessionStats(t *testing.T) {
	w := newFakeWorld(t, 3)
	team := &w.arena.Teams[0]
	w.arena.Player(0).Position = geom.Vec{-20, 0, 0}
	w.arena.Player(1).Position = geom.Vec{0.2, 0, 0}
	w.arena.Player(2).Position = geom.Vec{5, 5, 0}

	team.UpdatePossessionStats(w.arena, w.ball.Predictions(), 10, 8, true)
	assert.Equal(t, PlayerID(1), team.DesignatedTeamPossessionPlayer())
	assert.Equal(t, 0, team.TimeToBallMS())
	assert.True(t, w.arena.Player(1).HasPossession())
	assert.False(t, w.arena.Player(0).HasPossession())
	assert.Greater(t, w.arena.Player(0).TimeToBallMS(), w.arena.Player(2).TimeToBallMS())
	assert.InDelta(t, 0.505, team.FadingPossession(), 1e-9)

	w.arena.UpdatePossessionFlags(0)
	assert.True(t, w.arena.Player(1).HasUniquePossession())
	assert.True(t, w.arena.Player(1).HasBestPossession())

	w.arena.UpdatePossessionFlags(-1)
	assert.False(t, w.arena.Player(1).HasBestPossession())
}

func TestLastTouchBias(t *testing.T) {
	p := newPlayer(0, 0, CM, geom.Zero)
	assert.Zero(t, p.LastTouchBias(200, 1000))

	p.SetLastTouch(1000, IntentionalKicked)
	assert.InDelta(t, 1, p.LastTouchBias(200, 1000), 1e-9)
	assert.InDelta(t, 0.5, p.LastTouchBias(200, 1100), 1e-9)
	assert.Zero(t, p.LastTouchBias(200, 1300))
}

func TestKickoffTouchCounts(t *testing.T) {
	p := newPlayer(0, 0, CM, geom.Zero)
	assert.Equal(t, -1, p.LastTouchMS())

	p.SetLastTouch(0, IntentionalKicked)
	assert.Equal(t, 0, p.LastTouchMS())
	assert.InDelta(t, 1, p.LastTouchBias(200, 0), 1e-9)
	assert.InDelta(t, 0.5, p.LastTouchBias(200, 100), 1e-9)

	w := newFakeWorld(t, 11)
	w.arena.Player(3).SetLastTouch(0, Accidental)
	w.arena.Teams[0].ResetSituation(w.arena, geom.Zero, 55, 36)
	assert.Equal(t, -1, w.arena.Player(3).LastTouchMS())
	assert.Zero(t, w.arena.Player(3).LastTouchBias(200, 0))
}

func TestTripKeepsStrongest(t *testing.T) {
	p := newPlayer(0, 0, CM, geom.Zero)
	p.Movement = geom.Vec{5, 0, 0}
	p.TripMe(geom.Vec{0, 1, 0}, 2)
	assert.Equal(t, Trip, p.Function)
	assert.Equal(t, 2, p.TripType())
	frames := p.FrameCount

	p.TripMe(geom.Vec{0, 1, 0}, 1)
	assert.Equal(t, 2, p.TripType())
	assert.Equal(t, frames, p.FrameCount)

	p.TripMe(geom.Vec{1, 0, 0}, 3)
	assert.Equal(t, 3, p.TripType())
	assert.False(t, p.TouchPending())
}

func TestChaserRunsToBall(t *testing.T) {
	w := newFakeWorld(t, 1)
	chaser := w.arena.Player(0)
	chaser.Position = geom.Vec{-10, 0, 0}
	w.arena.Player(1).Position = geom.Vec{40, 0, 0}
	team := &w.arena.Teams[0]
	team.UpdatePossessionStats(w.arena, w.ball.Predictions(), 10, 8, false)
	require.Equal(t, PlayerID(0), team.DesignatedTeamPossessionPlayer())

	for i := 0; i < 100; i++ {
		team.Process(w)
	}
	assert.Greater(t, chaser.Position[0], -8.0)
	assert.InDelta(t, 0, chaser.Position[1], 0.1)
}

func TestDribbleTouchesBall(t *testing.T) {
	w := newFakeWorld(t, 1)
	p := w.arena.Player(0)
	p.Position = geom.Vec{-0.3, 0, 0}
	w.arena.Player(1).Position = geom.Vec{40, 30, 0}
	team := &w.arena.Teams[0]
	team.UpdatePossessionStats(w.arena, w.ball.Predictions(), 10, 8, true)
	require.True(t, p.HasPossession())

	for i := 0; i < 10; i++ {
		team.Process(w)
	}
	require.NotEmpty(t, w.touches)
	assert.Equal(t, PlayerID(0), w.touches[0])
	assert.Greater(t, w.ball.Movement()[0], 0.0)
}

func TestKickVector(t *testing.T) {
	v := kickVector(geom.Zero, geom.Vec{10, 0, 0}, 0, 9.81)
	assert.Greater(t, v[0], 0.0)
	assert.Zero(t, v[2])

	shot := kickVector(geom.Zero, geom.Vec{20, 0, 2}, 20, 9.81)
	assert.Greater(t, shot[2], 0.0)
	assert.InDelta(t, 20, geom.Flat(shot).Len(), 1e-9)
}

func TestUpdateSwitchHandsOverController(t *testing.T) {
	w := newFakeWorld(t, 3)
	team := &w.arena.Teams[0]
	w.arena.Player(0).ExternalController = 0
	w.arena.Player(0).Position = geom.Vec{-30, 0, 0}
	w.arena.Player(1).Position = geom.Vec{-20, 10, 0}
	w.arena.Player(2).Position = geom.Vec{0.3, 0, 0}
	team.UpdatePossessionStats(w.arena, w.ball.Predictions(), 10, 8, false)

	team.UpdateSwitch(w.arena)
	assert.Equal(t, NoController, w.arena.Player(0).ExternalController)
	assert.Equal(t, 0, w.arena.Player(2).ExternalController)
	assert.Equal(t, []PlayerID{2}, team.Controlled(w.arena))
}

func TestPlayerStateRoundTrip(t *testing.T) {
	w := newFakeWorld(t, 2)
	p := w.arena.Player(1)
	p.Position = geom.Vec{1, 2, 0}
	p.Movement = geom.Vec{3, 0, 0}
	p.startAction(ShortPass, geom.Vec{9, 1, 0})
	p.SetLastTouch(340, Accidental)

	saver := envstate.NewSaver()
	p.ProcessState(saver)
	w.arena.Teams[0].ProcessState(saver)
	require.NoError(t, saver.Err())

	var restored Player
	var team Team
	loader := envstate.NewLoader(saver.Bytes())
	restored.ProcessState(loader)
	team.ProcessState(loader)
	require.NoError(t, loader.Finish())

	assert.Equal(t, p.Position, restored.Position)
	assert.Equal(t, ShortPass, restored.Function)
	assert.True(t, restored.TouchPending())
	assert.Equal(t, Accidental, restored.LastTouchType())
	assert.Equal(t, w.arena.Teams[0].Side, team.Side)
}
