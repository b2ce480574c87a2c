package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onthepitch/matchsim/internal/dispatcher"
	"github.com/onthepitch/matchsim/pkg/core"
)

// mockLogger implements dispatcher.Logger for testing
type mockLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *mockLogger) Debug(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Info(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

func (l *mockLogger) Error(msg string, keysAndValues ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, msg)
}

// mockBackend implements storage.Backend for testing
type mockBackend struct {
	mu sync.Mutex

	match      *core.Match
	result     *core.MatchResult
	frames     []*core.Frame
	goals      []*core.GoalEvent
	fouls      []*core.FoulEvent
	possession []*core.PossessionSample
	telemetry  []*core.TelemetryEvent

	framesAtEnd int
	frameDelay  time.Duration
	failFrames  bool
	writeTime   time.Duration
}

func (b *mockBackend) Init() error  { return nil }
func (b *mockBackend) Close() error { return nil }

func (b *mockBackend) StartMatch(m *core.Match) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.match = m
	return nil
}

func (b *mockBackend) EndMatch(r *core.MatchResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.result = r
	b.framesAtEnd = len(b.frames)
	return nil
}

func (b *mockBackend) RecordFrame(f *core.Frame) error {
	if b.frameDelay > 0 {
		time.Sleep(b.frameDelay)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failFrames {
		return errors.New("disk full")
	}
	b.frames = append(b.frames, f)
	return nil
}

func (b *mockBackend) RecordGoal(g *core.GoalEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.goals = append(b.goals, g)
	return nil
}

func (b *mockBackend) RecordFoul(f *core.FoulEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fouls = append(b.fouls, f)
	return nil
}

func (b *mockBackend) RecordPossession(s *core.PossessionSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.possession = append(b.possession, s)
	return nil
}

func (b *mockBackend) RecordTelemetry(t *core.TelemetryEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.telemetry = append(b.telemetry, t)
	return nil
}

func (b *mockBackend) GetLastDBWriteDuration() time.Duration {
	return b.writeTime
}

func newTestPipeline(t *testing.T, backend *mockBackend) (*dispatcher.Dispatcher, *Manager) {
	t.Helper()
	d, err := dispatcher.New(&mockLogger{})
	require.NoError(t, err)

	m := NewManager(Dependencies{}, backend)
	m.RegisterHandlers(d)
	t.Cleanup(d.Close)
	return d, m
}

func TestRegisterHandlers(t *testing.T) {
	d, _ := newTestPipeline(t, &mockBackend{})

	for _, cmd := range []string{CmdMatchStart, CmdFrame, CmdGoal, CmdFoul, CmdPossession, CmdTelemetry, CmdMatchEnd} {
		assert.True(t, d.HasHandler(cmd), cmd)
	}
}

func TestMatchLifecycleForwardsRecords(t *testing.T) {
	backend := &mockBackend{}
	d, m := newTestPipeline(t, backend)

	require.NoError(t, d.Publish(CmdMatchStart, &core.Match{Name: "Home vs Away", Seed: 7}))
	for i := uint(1); i <= 20; i++ {
		require.NoError(t, d.Publish(CmdFrame, &core.Frame{Iteration: i * 10}))
	}
	require.NoError(t, d.Publish(CmdGoal, &core.GoalEvent{Iteration: 55, TeamID: 1}))
	require.NoError(t, d.Publish(CmdFoul, &core.FoulEvent{Iteration: 60, Type: "foul"}))
	require.NoError(t, d.Publish(CmdPossession, &core.PossessionSample{Iteration: 100}))
	require.NoError(t, d.Publish(CmdTelemetry, &core.TelemetryEvent{Iteration: 100}))
	require.NoError(t, d.Publish(CmdMatchEnd, &core.MatchResult{Goals: [2]int{0, 1}, Ticks: 200}))

	backend.mu.Lock()
	defer backend.mu.Unlock()
	require.NotNil(t, backend.match)
	assert.Equal(t, "Home vs Away", backend.match.Name)
	assert.Len(t, backend.goals, 1)
	assert.Len(t, backend.fouls, 1)
	assert.Len(t, backend.possession, 1)
	assert.Len(t, backend.telemetry, 1)
	require.NotNil(t, backend.result)
	assert.Equal(t, 200, backend.result.Ticks)
	assert.Zero(t, m.Failures())

	// frames keep their order through the buffer
	require.Len(t, backend.frames, 20)
	for i, f := range backend.frames {
		assert.Equal(t, uint(i+1)*10, f.Iteration)
	}
}

func TestMatchEndWaitsForBufferedFrames(t *testing.T) {
	backend := &mockBackend{frameDelay: time.Millisecond}
	d, _ := newTestPipeline(t, backend)

	require.NoError(t, d.Publish(CmdMatchStart, &core.Match{}))
	for i := 0; i < 15; i++ {
		require.NoError(t, d.Publish(CmdFrame, &core.Frame{}))
	}
	require.NoError(t, d.Publish(CmdMatchEnd, &core.MatchResult{}))

	backend.mu.Lock()
	defer backend.mu.Unlock()
	assert.Equal(t, 15, backend.framesAtEnd)
}

func TestUnexpectedPayload(t *testing.T) {
	d, _ := newTestPipeline(t, &mockBackend{})

	err := d.Publish(CmdMatchStart, "not a match")
	assert.ErrorIs(t, err, ErrUnexpectedPayload)

	err = d.Publish(CmdMatchEnd, &core.Frame{})
	assert.ErrorIs(t, err, ErrUnexpectedPayload)
}

func TestBackendFailuresAreCounted(t *testing.T) {
	backend := &mockBackend{failFrames: true}
	d, m := newTestPipeline(t, backend)

	require.NoError(t, d.Publish(CmdMatchStart, &core.Match{}))
	require.NoError(t, d.Publish(CmdFrame, &core.Frame{}))
	require.NoError(t, d.Publish(CmdFrame, &core.Frame{}))
	d.Drain()

	assert.Equal(t, int64(2), m.Failures())
}

func TestGetLastDBWriteDuration(t *testing.T) {
	m := NewManager(Dependencies{}, &mockBackend{writeTime: 40 * time.Millisecond})
	assert.Equal(t, 40*time.Millisecond, m.GetLastDBWriteDuration())
}

func TestGetLastDBWriteDuration_Unsupported(t *testing.T) {
	m := NewManager(Dependencies{}, plainBackend{})
	assert.Zero(t, m.GetLastDBWriteDuration())
}

type plainBackend struct{}

func (plainBackend) Init() error                                   { return nil }
func (plainBackend) Close() error                                  { return nil }
func (plainBackend) StartMatch(*core.Match) error                  { return nil }
func (plainBackend) EndMatch(*core.MatchResult) error              { return nil }
func (plainBackend) RecordFrame(*core.Frame) error                 { return nil }
func (plainBackend) RecordGoal(*core.GoalEvent) error              { return nil }
func (plainBackend) RecordFoul(*core.FoulEvent) error              { return nil }
func (plainBackend) RecordPossession(*core.PossessionSample) error { return nil }
func (plainBackend) RecordTelemetry(*core.TelemetryEvent) error    { return nil }

type mockMetrics struct {
	mu     sync.Mutex
	points []string
	fail   bool
}

func (m *mockMetrics) add(kind, match string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("influx down")
	}
	m.points = append(m.points, kind+":"+match)
	return nil
}

func (m *mockMetrics) WriteTelemetry(_ context.Context, match string, _ *core.TelemetryEvent) error {
	return m.add("telemetry", match)
}

func (m *mockMetrics) WriteGoal(_ context.Context, match string, _ *core.GoalEvent) error {
	return m.add("goal", match)
}

func (m *mockMetrics) WriteFoul(_ context.Context, match string, _ *core.FoulEvent) error {
	return m.add("foul", match)
}

func TestMetricsReceiveEvents(t *testing.T) {
	backend := &mockBackend{}
	metrics := &mockMetrics{}
	d, err := dispatcher.New(&mockLogger{})
	require.NoError(t, err)
	t.Cleanup(d.Close)
	m := NewManager(Dependencies{Metrics: metrics}, backend)
	m.RegisterHandlers(d)

	require.NoError(t, d.Publish(CmdMatchStart, &core.Match{Name: "derby"}))
	require.NoError(t, d.Publish(CmdGoal, &core.GoalEvent{}))
	require.NoError(t, d.Publish(CmdFoul, &core.FoulEvent{}))
	require.NoError(t, d.Publish(CmdTelemetry, &core.TelemetryEvent{}))
	require.NoError(t, d.Publish(CmdMatchEnd, &core.MatchResult{}))

	metrics.mu.Lock()
	defer metrics.mu.Unlock()
	assert.ElementsMatch(t, []string{"goal:derby", "foul:derby", "telemetry:derby"}, metrics.points)
}

func TestMetricsFailureDoesNotFailEvent(t *testing.T) {
	backend := &mockBackend{}
	d, err := dispatcher.New(&mockLogger{})
	require.NoError(t, err)
	t.Cleanup(d.Close)
	m := NewManager(Dependencies{Metrics: &mockMetrics{fail: true}}, backend)
	m.RegisterHandlers(d)

	require.NoError(t, d.Publish(CmdMatchStart, &core.Match{}))
	require.NoError(t, d.Publish(CmdGoal, &core.GoalEvent{}))
	d.Drain()

	assert.Zero(t, m.Failures())
	backend.mu.Lock()
	assert.Len(t, backend.goals, 1)
	backend.mu.Unlock()
}
