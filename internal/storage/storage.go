// Package storage defines the backend contract the recording pipeline writes
// through.
package storage

import (
	"errors"

	"github.com/onthepitch/matchsim/pkg/core"
)

// ErrNotStarted is returned when a record arrives before StartMatch.
var ErrNotStarted = errors.New("storage: no match started")

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Match management
	StartMatch(m *core.Match) error
	EndMatch(r *core.MatchResult) error

	// State recording
	RecordFrame(f *core.Frame) error

	// Event recording
	RecordGoal(e *core.GoalEvent) error
	RecordFoul(e *core.FoulEvent) error
	RecordPossession(s *core.PossessionSample) error
	RecordTelemetry(e *core.TelemetryEvent) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to a replay server.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
}
