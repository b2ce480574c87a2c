package worker

import (
	"context"
	"fmt"

	"github.com/onthepitch/matchsim/internal/dispatcher"
	"github.com/onthepitch/matchsim/pkg/core"
)

type drainer interface {
	Drain()
}

// RegisterHandlers registers all event handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	m.drainer = d

	// Lifecycle - sync so the backend is ready before records arrive
	d.Register(CmdMatchStart, m.handleMatchStart, dispatcher.Logged())
	d.Register(CmdMatchEnd, m.handleMatchEnd, dispatcher.Logged())

	// Frames never drop; the match waits instead
	d.Register(CmdFrame, m.handleFrame, dispatcher.Buffered(10000), dispatcher.Blocking())

	// Match events - buffered
	d.Register(CmdGoal, m.handleGoal, dispatcher.Buffered(100), dispatcher.Blocking(), dispatcher.Logged())
	d.Register(CmdFoul, m.handleFoul, dispatcher.Buffered(1000), dispatcher.Logged())
	d.Register(CmdPossession, m.handlePossession, dispatcher.Buffered(1000))
	d.Register(CmdTelemetry, m.handleTelemetry, dispatcher.Buffered(1000))
}

func (m *Manager) handleMatchStart(e dispatcher.Event) (any, error) {
	match, ok := e.Payload.(*core.Match)
	if !ok {
		return nil, unexpected(e.Command, e.Payload)
	}
	if err := m.backend.StartMatch(match); err != nil {
		return nil, fmt.Errorf("failed to start match: %w", err)
	}
	m.matchName.Store(match.Name)
	m.deps.Logger.Info("Match recording started",
		"name", match.Name,
		"seed", match.Seed,
		"players", len(match.Players))
	return nil, nil
}

func (m *Manager) handleMatchEnd(e dispatcher.Event) (any, error) {
	result, ok := e.Payload.(*core.MatchResult)
	if !ok {
		return nil, unexpected(e.Command, e.Payload)
	}

	// Sync handlers run on the dispatching goroutine, so waiting here
	// orders every buffered record before EndMatch.
	if m.drainer != nil {
		m.drainer.Drain()
	}

	if err := m.backend.EndMatch(result); err != nil {
		return nil, fmt.Errorf("failed to end match: %w", err)
	}
	m.deps.Logger.Info("Match recording ended",
		"score", fmt.Sprintf("%d-%d", result.Goals[0], result.Goals[1]),
		"ticks", result.Ticks,
		"failures", m.failures.Load())
	return nil, nil
}

func (m *Manager) handleFrame(e dispatcher.Event) (any, error) {
	f, ok := e.Payload.(*core.Frame)
	if !ok {
		return nil, unexpected(e.Command, e.Payload)
	}
	return nil, m.record(e.Command, m.backend.RecordFrame(f))
}

func (m *Manager) handleGoal(e dispatcher.Event) (any, error) {
	g, ok := e.Payload.(*core.GoalEvent)
	if !ok {
		return nil, unexpected(e.Command, e.Payload)
	}
	if m.deps.Metrics != nil {
		m.metric(e.Command, m.deps.Metrics.WriteGoal(context.Background(), m.currentMatch(), g))
	}
	return nil, m.record(e.Command, m.backend.RecordGoal(g))
}

func (m *Manager) handleFoul(e dispatcher.Event) (any, error) {
	f, ok := e.Payload.(*core.FoulEvent)
	if !ok {
		return nil, unexpected(e.Command, e.Payload)
	}
	if m.deps.Metrics != nil {
		m.metric(e.Command, m.deps.Metrics.WriteFoul(context.Background(), m.currentMatch(), f))
	}
	return nil, m.record(e.Command, m.backend.RecordFoul(f))
}

func (m *Manager) handlePossession(e dispatcher.Event) (any, error) {
	s, ok := e.Payload.(*core.PossessionSample)
	if !ok {
		return nil, unexpected(e.Command, e.Payload)
	}
	return nil, m.record(e.Command, m.backend.RecordPossession(s))
}

func (m *Manager) handleTelemetry(e dispatcher.Event) (any, error) {
	t, ok := e.Payload.(*core.TelemetryEvent)
	if !ok {
		return nil, unexpected(e.Command, e.Payload)
	}
	if m.deps.Metrics != nil {
		m.metric(e.Command, m.deps.Metrics.WriteTelemetry(context.Background(), m.currentMatch(), t))
	}
	return nil, m.record(e.Command, m.backend.RecordTelemetry(t))
}

func (m *Manager) record(command string, err error) error {
	if err == nil {
		return nil
	}
	m.failures.Add(1)
	return fmt.Errorf("%s: %w", command, err)
}

// metric logs metrics sink failures; they never fail the event.
func (m *Manager) metric(command string, err error) {
	if err != nil {
		m.deps.Logger.Warn("Metrics write failed", "command", command, "error", err)
	}
}
