package postgres

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/onthepitch/matchsim/internal/config"
	"github.com/onthepitch/matchsim/internal/model"
	"github.com/onthepitch/matchsim/internal/storage"
	"github.com/onthepitch/matchsim/internal/storage/memory"
	"github.com/onthepitch/matchsim/pkg/core"
)

func newSQLiteBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	b := New(Dependencies{
		DB:               db,
		SimulatorVersion: "test",
		TuningVersion:    "1.0.0",
		WriteInterval:    time.Hour,
	})
	require.NoError(t, b.Init())
	t.Cleanup(func() {
		b.Close()
		sqlDB.Close()
	})
	return b
}

func sampleMatch() *core.Match {
	return &core.Match{
		Name:           "Home vs Away",
		HomeTeam:       "Home",
		AwayTeam:       "Away",
		PlayersPerTeam: 2,
		Seed:           99,
		StartTime:      time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC),
		Players: []core.Player{
			{ID: 0, TeamID: 0, Name: "Home 1", Role: "GK"},
			{ID: 1, TeamID: 0, Name: "Home 2", Role: "CF"},
			{ID: 2, TeamID: 1, Name: "Away 1", Role: "GK"},
			{ID: 3, TeamID: 1, Name: "Away 2", Role: "CF"},
		},
	}
}

func count(t *testing.T, db *gorm.DB, m any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

func TestInitClose(t *testing.T) {
	b := newSQLiteBackend(t)
	require.NotNil(t, b.queues)
	require.NotNil(t, b.stopChan)
	assert.True(t, b.DB().Migrator().HasTable(&model.Frame{}))
	assert.Equal(t, int64(1), count(t, b.DB(), &model.SimulatorInfo{}))

	require.NoError(t, b.Close())
	// closing twice is harmless
	require.NoError(t, b.Close())
}

func TestRecordBeforeStart(t *testing.T) {
	b := newSQLiteBackend(t)
	assert.ErrorIs(t, b.RecordFrame(&core.Frame{}), storage.ErrNotStarted)
	assert.ErrorIs(t, b.RecordGoal(&core.GoalEvent{}), storage.ErrNotStarted)
	assert.ErrorIs(t, b.EndMatch(&core.MatchResult{}), storage.ErrNotStarted)
}

func TestStartMatchInsertsRoster(t *testing.T) {
	b := newSQLiteBackend(t)
	m := sampleMatch()
	require.NoError(t, b.StartMatch(m))

	assert.NotZero(t, m.ID)
	assert.Equal(t, m.ID, b.MatchID())
	assert.Equal(t, int64(4), count(t, b.DB(), &model.Player{}))
}

func TestRecordsAreQueuedUntilFlush(t *testing.T) {
	b := newSQLiteBackend(t)
	require.NoError(t, b.StartMatch(sampleMatch()))

	require.NoError(t, b.RecordFrame(&core.Frame{Iteration: 10, Ball: core.Position3D{X: 1}}))
	require.NoError(t, b.RecordFoul(&core.FoulEvent{Iteration: 12, Type: "foul", OffenderID: 1, VictimID: 2}))
	require.NoError(t, b.RecordPossession(&core.PossessionSample{Iteration: 10, BestTeam: 0}))
	require.NoError(t, b.RecordTelemetry(&core.TelemetryEvent{Iteration: 10, TicksPerSecond: 100}))

	lengths := b.QueueLengths()
	assert.Equal(t, 1, lengths["frames"])
	assert.Equal(t, 1, lengths["fouls"])
	assert.Equal(t, 1, lengths["performance"])
	assert.Equal(t, int64(0), count(t, b.DB(), &model.Frame{}))

	require.NoError(t, b.flush())
	assert.Equal(t, int64(1), count(t, b.DB(), &model.Frame{}))
	assert.Equal(t, int64(1), count(t, b.DB(), &model.FoulEvent{}))
	assert.Equal(t, int64(1), count(t, b.DB(), &model.PossessionSample{}))
	assert.Equal(t, int64(1), count(t, b.DB(), &model.SimPerformance{}))
	assert.Zero(t, b.QueueLengths()["frames"])
}

func TestGoalCarriesApproach(t *testing.T) {
	b := newSQLiteBackend(t)
	require.NoError(t, b.StartMatch(sampleMatch()))

	for i := 0; i < approachLength+5; i++ {
		require.NoError(t, b.RecordFrame(&core.Frame{Iteration: uint(i), Ball: core.Position3D{X: float64(i), Z: 0.1}}))
	}
	scorer := uint16(1)
	require.NoError(t, b.RecordGoal(&core.GoalEvent{Iteration: 40, TeamID: 0, ScorerID: &scorer, Score: [2]int{1, 0}}))

	goals := b.queues.Goals.Drain()
	require.Len(t, goals, 1)
	assert.Equal(t, approachLength, goals[0].Approach.Coordinates().Length())
	assert.Equal(t, float64(5), goals[0].Approach.Coordinates().GetXY(0).X)
}

func TestEndMatchStoresResultAndLoads(t *testing.T) {
	b := newSQLiteBackend(t)
	m := sampleMatch()
	require.NoError(t, b.StartMatch(m))

	for i := uint(1); i <= 3; i++ {
		require.NoError(t, b.RecordFrame(&core.Frame{
			Iteration:   i * 10,
			MatchTimeMS: int(i) * 100,
			Ball:        core.Position3D{X: float64(i), Y: 2, Z: 0.5},
			Players:     []core.PlayerState{{PlayerID: 1, Position: core.Position3D{X: 3}, Function: "movement", Active: true}},
		}))
	}
	scorer := uint16(3)
	require.NoError(t, b.RecordGoal(&core.GoalEvent{Iteration: 25, TeamID: 1, ScorerID: &scorer, ScorerName: "Away 2", Score: [2]int{0, 1}}))
	require.NoError(t, b.RecordFoul(&core.FoulEvent{Iteration: 15, Type: "yellow", OffenderID: 0, VictimID: 3, Position: core.Position3D{X: -4, Y: 1}}))
	require.NoError(t, b.RecordPossession(&core.PossessionSample{Iteration: 30, BestTeam: 1, PossessionMS: [2]int{100, 200}}))

	end := time.Date(2024, 5, 1, 15, 5, 0, 0, time.UTC)
	require.NoError(t, b.EndMatch(&core.MatchResult{Goals: [2]int{0, 1}, PossessionMS: [2]int{100, 200}, MatchTimeMS: 300, Ticks: 30, EndTime: end}))
	assert.Zero(t, b.MatchID())
	assert.Positive(t, b.GetLastDBWriteDuration())

	stored, err := b.LoadMatch(m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Home vs Away", stored.Match.Name)
	assert.Equal(t, uint64(99), stored.Match.Seed)
	assert.Len(t, stored.Match.Players, 4)
	assert.Equal(t, [2]int{0, 1}, stored.Result.Goals)
	assert.Equal(t, 30, stored.Result.Ticks)
	assert.True(t, stored.Result.EndTime.Equal(end))

	require.Len(t, stored.Frames, 3)
	assert.Equal(t, uint(10), stored.Frames[0].Iteration)
	assert.Equal(t, core.Position3D{X: 1, Y: 2, Z: 0.5}, stored.Frames[0].Ball)
	require.Len(t, stored.Frames[2].Players, 1)
	assert.Equal(t, "movement", stored.Frames[2].Players[0].Function)

	require.Len(t, stored.Goals, 1)
	require.NotNil(t, stored.Goals[0].ScorerID)
	assert.Equal(t, uint16(3), *stored.Goals[0].ScorerID)
	require.Len(t, stored.Fouls, 1)
	assert.Equal(t, "yellow", stored.Fouls[0].Type)
	assert.Equal(t, -4.0, stored.Fouls[0].Position.X)
	require.Len(t, stored.Possession, 1)
}

func TestStoredMatchReplaysIntoMemory(t *testing.T) {
	b := newSQLiteBackend(t)
	m := sampleMatch()
	require.NoError(t, b.StartMatch(m))
	require.NoError(t, b.RecordFrame(&core.Frame{Iteration: 10}))
	require.NoError(t, b.EndMatch(&core.MatchResult{Goals: [2]int{2, 2}, MatchTimeMS: 100}))

	stored, err := b.LoadMatch(m.ID)
	require.NoError(t, err)

	mem := memory.New(config.MemoryConfig{OutputDir: t.TempDir()})
	require.NoError(t, stored.Replay(mem))

	frames, _, _, _, _ := mem.Counts()
	assert.Equal(t, 1, frames)
	assert.Equal(t, [2]int{2, 2}, mem.GetExportMetadata().Score)
	assert.NotEmpty(t, mem.GetExportedFilePath())
}

func TestLoadMatchMissing(t *testing.T) {
	b := newSQLiteBackend(t)
	_, err := b.LoadMatch(12345)
	assert.Error(t, err)
}
