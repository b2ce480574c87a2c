package ball

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onthepitch/matchsim/internal/envstate"
	"github.com/onthepitch/matchsim/internal/geom"
	"github.com/onthepitch/matchsim/internal/tuning"
)

func TestRestingBallStaysPut(t *testing.T) {
	b := New(tuning.Default())
	for i := 0; i < 100; i++ {
		b.Process()
	}
	assert.InDelta(t, 0.11, b.Position()[2], 1e-9)
	assert.Equal(t, geom.Zero, b.Movement())
	assert.Equal(t, b.Position(), b.Predict(3000))
}

func TestPredictionMatchesSimulation(t *testing.T) {
	b := New(tuning.Default())
	b.Touch(geom.Vec{12, 3, 6})
	predicted := b.Predict(500)
	for i := 0; i < 50; i++ {
		b.Process()
	}
	assert.InDelta(t, 0, b.Position().Sub(predicted).Len(), 1e-9)
}

func TestRollingBallSlowsDown(t *testing.T) {
	b := New(tuning.Default())
	b.Touch(geom.Vec{10, 0, 0})
	b.Process()
	first := b.Movement().Len()
	for i := 0; i < 300; i++ {
		b.Process()
	}
	assert.Less(t, b.Movement().Len(), first)
	assert.Greater(t, b.Position()[0], 1.0)
}

func TestBounceLosesEnergy(t *testing.T) {
	b := New(tuning.Default())
	b.SetPosition(geom.Vec{0, 0, 5})
	maxAfterBounce := 0.0
	bounced := false
	for i := 0; i < 400; i++ {
		before := b.Movement()[2]
		b.Process()
		if before < 0 && b.Movement()[2] > 0 {
			bounced = true
		}
		if bounced && b.Position()[2] > maxAfterBounce {
			maxAfterBounce = b.Position()[2]
		}
	}
	require.True(t, bounced)
	assert.Less(t, maxAfterBounce, 5.0)
}

func TestNetStopsBall(t *testing.T) {
	p := tuning.Default()
	b := New(p)
	b.SetPosition(geom.Vec{p.Pitch.HalfW - 1, 0, 0.5})
	b.Touch(geom.Vec{30, 0, 0})
	hit := false
	for i := 0; i < 100; i++ {
		b.Process()
		hit = hit || b.TouchesNet()
	}
	assert.True(t, hit)
	assert.Less(t, b.Position()[0], p.Pitch.HalfW+p.Pitch.LineHalfW+p.Pitch.GoalDepth)
}

func TestMirrorTwiceRestores(t *testing.T) {
	b := New(tuning.Default())
	b.SetPosition(geom.Vec{3, -4, 1})
	b.Touch(geom.Vec{5, 2, 3})
	b.SetRotation(10, -5, 2, 1)
	b.Process()
	pos, mov, rot := b.Position(), b.Movement(), b.Rotation()
	pred := b.Predict(700)

	b.Mirror()
	assert.True(t, b.Mirrored())
	assert.InDelta(t, -pos[0], b.Position()[0], 1e-12)
	b.Mirror()

	assert.False(t, b.Mirrored())
	assert.Equal(t, pos, b.Position())
	assert.Equal(t, mov, b.Movement())
	assert.Equal(t, rot, b.Rotation())
	assert.Equal(t, pred, b.Predict(700))
}

func TestAveragePosition(t *testing.T) {
	b := New(tuning.Default())
	b.Touch(geom.Vec{10, 0, 0})
	for i := 0; i < 5; i++ {
		b.Process()
	}
	avg := b.AveragePosition(5)
	assert.Less(t, avg[0], b.Position()[0])
	assert.Greater(t, avg[0], 0.0)
}

func TestProcessStateRoundTrip(t *testing.T) {
	b := New(tuning.Default())
	b.Touch(geom.Vec{8, 1, 2})
	for i := 0; i < 7; i++ {
		b.Process()
	}

	saver := envstate.NewSaver()
	b.ProcessState(saver)
	require.NoError(t, saver.Err())

	restored := New(tuning.Default())
	loader := envstate.NewLoader(saver.Bytes())
	restored.ProcessState(loader)
	require.NoError(t, loader.Finish())

	assert.Equal(t, b.Position(), restored.Position())
	assert.Equal(t, b.Movement(), restored.Movement())
	assert.Equal(t, b.AveragePosition(5), restored.AveragePosition(5))
	assert.Equal(t, b.Predict(1000), restored.Predict(1000))
}
