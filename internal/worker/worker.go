// Package worker forwards match events from the dispatcher to the active
// storage backend.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/onthepitch/matchsim/internal/storage"
	"github.com/onthepitch/matchsim/pkg/core"
)

// Commands published by a running match.
const (
	CmdMatchStart = ":MATCH:START:"
	CmdFrame      = ":FRAME:"
	CmdGoal       = ":GOAL:"
	CmdFoul       = ":FOUL:"
	CmdPossession = ":POSSESSION:"
	CmdTelemetry  = ":TELEMETRY:"
	CmdMatchEnd   = ":MATCH:END:"
)

// ErrUnexpectedPayload is returned when an event carries the wrong record type.
var ErrUnexpectedPayload = errors.New("unexpected payload")

// MetricsWriter receives a copy of telemetry and match events. The influx
// manager implements it.
type MetricsWriter interface {
	WriteTelemetry(ctx context.Context, match string, t *core.TelemetryEvent) error
	WriteGoal(ctx context.Context, match string, g *core.GoalEvent) error
	WriteFoul(ctx context.Context, match string, f *core.FoulEvent) error
}

// Dependencies holds all dependencies for the worker manager
type Dependencies struct {
	Logger  *slog.Logger
	Metrics MetricsWriter // optional
}

// Manager manages worker goroutines
type Manager struct {
	deps    Dependencies
	backend storage.Backend
	drainer drainer

	failures  atomic.Int64
	matchName atomic.Value // string
}

// NewManager creates a new worker manager
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

// Failures returns how many events the backend rejected.
func (m *Manager) Failures() int64 {
	return m.failures.Load()
}

// DBWriteDurationProvider is an optional interface that backends can implement
// to expose their last DB write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// GetLastDBWriteDuration returns the duration of the last DB write cycle.
// Returns 0 if the backend doesn't support this metric.
func (m *Manager) GetLastDBWriteDuration() time.Duration {
	if p, ok := m.backend.(DBWriteDurationProvider); ok {
		return p.GetLastDBWriteDuration()
	}
	return 0
}

func (m *Manager) currentMatch() string {
	name, _ := m.matchName.Load().(string)
	return name
}

func unexpected(command string, payload any) error {
	return fmt.Errorf("%s: %w %T", command, ErrUnexpectedPayload, payload)
}
