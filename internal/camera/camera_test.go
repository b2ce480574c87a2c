package camera

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onthepitch/matchsim/internal/envstate"
	"github.com/onthepitch/matchsim/internal/geom"
)

func newCamera(method Method) *Camera {
	s := DefaultSettings()
	s.Method = method
	return New(s, 150, rand.New(rand.NewPCG(1, 2)))
}

func input() Input {
	return Input{
		Ball:          geom.Vec{10, 5, 0.11},
		Holder:        geom.Vec{9, 5, 0},
		HolderDir:     geom.Vec{1, 0, 0},
		HalfW:         55,
		HalfH:         36,
		ScorerDelayMS: 1000,
	}
}

func TestParseMethod(t *testing.T) {
	for _, m := range []Method{Wide, BirdsEye, Tele} {
		got, err := ParseMethod(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseMethod("drone")
	assert.Error(t, err)
}

func TestAimClampsToPitch(t *testing.T) {
	c := newCamera(Wide)
	in := input()
	in.Ball = geom.Vec{200, -200, 5}
	in.Holder = geom.Vec{200, -200, 0}

	aim := c.Aim(in)
	assert.InDelta(t, 55*0.84/0.51, aim[0], 1e-9)
	assert.InDelta(t, -36*0.6/0.51*(0.75*0.75+0.25), aim[1], 1e-9)
	assert.InDelta(t, 0.2, aim[2], 1e-9)
}

func TestHistoryIsBounded(t *testing.T) {
	c := newCamera(Wide)
	for i := 0; i < 400; i++ {
		c.UpdateIngame(input())
	}
	assert.Equal(t, 150, c.HistoryLen())
	c.ClearHistory()
	assert.Zero(t, c.HistoryLen())
}

func TestMethodsPlaceTheRig(t *testing.T) {
	wide := newCamera(Wide)
	wide.UpdateIngame(input())
	assert.Less(t, wide.NodePosition[1], -20.0)
	assert.Equal(t, 200.0, wide.FarCap)

	birds := newCamera(BirdsEye)
	birds.UpdateIngame(input())
	aim := birds.Aim(input())
	assert.InDelta(t, aim[0], birds.NodePosition[0], 1e-9)
	assert.InDelta(t, 60, birds.NodePosition[2], 1e-9)
	assert.Equal(t, 28.0, birds.FOV)

	tele := newCamera(Tele)
	tele.UpdateIngame(input())
	assert.Equal(t, 15.0, tele.FOV)
	assert.Equal(t, 300.0, tele.FarCap)
}

func TestScorerCam(t *testing.T) {
	c := newCamera(Wide)
	in := input()
	in.GoalScored = true
	in.GoalTimerMS = 500
	c.UpdateIngame(in)
	assert.NotEqual(t, 35.0, c.FOV)

	in.GoalTimerMS = 2000
	in.Scorer = geom.Vec{40, 2, 0}
	in.HasScorer = true
	c.UpdateIngame(in)
	assert.Equal(t, 35.0, c.FOV)
	want := geom.Vec{40, 2, 0}.Add(geom.Rotated2D(geom.Vec{0, -1, 0}, 1).Mul(15)).Add(geom.Vec{0, 0, 3})
	assert.InDelta(t, want[0], c.NodePosition[0], 1e-9)
	assert.InDelta(t, want[1], c.NodePosition[1], 1e-9)
	assert.InDelta(t, 3, c.NodePosition[2], 1e-9)
}

func TestFollow(t *testing.T) {
	c := newCamera(Wide)
	c.Follow(geom.Vec{10, 0, 0.8}, 1.5)
	assert.InDelta(t, 10-10/1.5, c.NodePosition[0], 1e-9)
	assert.InDelta(t, 0, c.NodePosition[1], 1e-9)
	assert.InDelta(t, 3.8, c.NodePosition[2], 1e-9)
	assert.Equal(t, 60.0, c.FOV)
}

func TestBlendStart(t *testing.T) {
	c := newCamera(Wide)
	c.UpdateIngame(input())
	before := c.View

	c.BlendStart(2000, 2000)
	assert.Equal(t, before, c.View)

	c.BlendStart(0, 2000)
	assert.InDelta(t, 60, c.NodePosition[2], 1e-9)
	assert.InDelta(t, 40, c.FOV, 1e-9)
	assert.InDelta(t, 2, c.NearCap, 1e-9)

	c = newCamera(Wide)
	c.UpdateIngame(input())
	c.BlendStart(1000, 2000)
	assert.InDelta(t, (before.FOV+40)/2, c.FOV, 1e-9)
}

func TestStateRoundTrip(t *testing.T) {
	c := newCamera(Tele)
	for i := 0; i < 20; i++ {
		c.UpdateIngame(input())
	}
	saver := envstate.NewSaver()
	c.ProcessState(saver)
	c.ProcessHistory(saver)
	require.NoError(t, saver.Err())

	loaded := newCamera(Tele)
	loader := envstate.NewLoader(saver.Bytes())
	loaded.ProcessState(loader)
	loaded.ProcessHistory(loader)
	require.NoError(t, loader.Finish())
	assert.Equal(t, c.View, loaded.View)
	assert.Equal(t, c.HistoryLen(), loaded.HistoryLen())

	validator := envstate.NewValidator(saver.Bytes())
	c.ProcessState(validator)
	c.ProcessHistory(validator)
	assert.NoError(t, validator.Finish())
}
