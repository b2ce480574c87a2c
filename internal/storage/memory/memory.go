// Package memory keeps a whole match in memory and exports it as a replay
// JSON file when the match ends.
package memory

import (
	"sync"

	"github.com/onthepitch/matchsim/internal/config"
	"github.com/onthepitch/matchsim/internal/storage"
	"github.com/onthepitch/matchsim/pkg/core"
)

// Backend stores match data in memory and exports to JSON
type Backend struct {
	cfg    config.MemoryConfig
	match  *core.Match
	result *core.MatchResult

	frames     []core.Frame
	goals      []core.GoalEvent
	fouls      []core.FoulEvent
	possession []core.PossessionSample
	telemetry  []core.TelemetryEvent

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

var (
	_ storage.Backend    = (*Backend)(nil)
	_ storage.Uploadable = (*Backend)(nil)
)

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartMatch begins recording a new match
func (b *Backend) StartMatch(m *core.Match) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.match = m
	b.result = nil
	b.frames = nil
	b.goals = nil
	b.fouls = nil
	b.possession = nil
	b.telemetry = nil
	b.idCounter = 0
	b.lastExportPath = ""
	return nil
}

// EndMatch stores the result and exports the match
func (b *Backend) EndMatch(r *core.MatchResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.match == nil {
		return storage.ErrNotStarted
	}
	b.result = r
	return b.exportJSON()
}

func (b *Backend) RecordFrame(f *core.Frame) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.match == nil {
		return storage.ErrNotStarted
	}
	b.frames = append(b.frames, *f)
	return nil
}

// RecordGoal assigns the goal an ID and keeps it.
func (b *Backend) RecordGoal(e *core.GoalEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.match == nil {
		return storage.ErrNotStarted
	}
	b.idCounter++
	e.ID = b.idCounter
	b.goals = append(b.goals, *e)
	return nil
}

// RecordFoul assigns the foul an ID and keeps it.
func (b *Backend) RecordFoul(e *core.FoulEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.match == nil {
		return storage.ErrNotStarted
	}
	b.idCounter++
	e.ID = b.idCounter
	b.fouls = append(b.fouls, *e)
	return nil
}

func (b *Backend) RecordPossession(s *core.PossessionSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.match == nil {
		return storage.ErrNotStarted
	}
	b.possession = append(b.possession, *s)
	return nil
}

// RecordTelemetry keeps the snapshot; telemetry is not part of the export.
func (b *Backend) RecordTelemetry(e *core.TelemetryEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.match == nil {
		return storage.ErrNotStarted
	}
	b.telemetry = append(b.telemetry, *e)
	return nil
}

// Counts reports how many records of each kind are held.
func (b *Backend) Counts() (frames, goals, fouls, possession, telemetry int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.frames), len(b.goals), len(b.fouls), len(b.possession), len(b.telemetry)
}

// GetExportedFilePath returns the file written by the last EndMatch.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata describes the exported match for upload.
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var meta core.UploadMetadata
	if b.match != nil {
		meta.MatchName = b.match.Name
		meta.HomeTeam = b.match.HomeTeam
		meta.AwayTeam = b.match.AwayTeam
		meta.Tag = b.match.Tag
	}
	if b.result != nil {
		meta.Score = b.result.Goals
		meta.MatchDurationMS = b.result.MatchTimeMS
	}
	return meta
}
