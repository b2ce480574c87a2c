package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onthepitch/matchsim/internal/config"
	"github.com/onthepitch/matchsim/internal/storage"
	"github.com/onthepitch/matchsim/pkg/core"
)

func testMatch() *core.Match {
	return &core.Match{
		Name:             "Home vs Away",
		HomeTeam:         "Home",
		AwayTeam:         "Away",
		Seed:             3,
		Tag:              "Cup",
		SimulatorVersion: "dev",
		TuningVersion:    "1.0.0",
		StartTime:        time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC),
		Players: []core.Player{
			{ID: 0, TeamID: 0, Name: "Home 1", Role: "GK"},
			{ID: 11, TeamID: 1, Name: "Away 1", Role: "GK"},
		},
	}
}

func recordSome(t *testing.T, b *Backend) {
	t.Helper()
	scorer := uint16(9)
	require.NoError(t, b.RecordFrame(&core.Frame{
		Iteration:   10,
		MatchTimeMS: 400,
		InPlay:      true,
		Ball:        core.Position3D{X: 1.234, Y: -2, Z: 0.11},
		Players: []core.PlayerState{
			{PlayerID: 0, Position: core.Position3D{X: -50, Y: 0}, Direction: core.Position3D{X: 1}, Function: "movement", Active: true},
		},
	}))
	require.NoError(t, b.RecordFrame(&core.Frame{Iteration: 20, MatchTimeMS: 800}))
	require.NoError(t, b.RecordGoal(&core.GoalEvent{Iteration: 15, TeamID: 0, ScorerID: &scorer, Score: [2]int{1, 0}}))
	require.NoError(t, b.RecordGoal(&core.GoalEvent{Iteration: 18, TeamID: 1, OwnGoal: true, Score: [2]int{1, 1}}))
	require.NoError(t, b.RecordFoul(&core.FoulEvent{Iteration: 19, Type: "yellow", OffenderID: 12, VictimID: 3, Position: core.Position3D{X: 10, Y: 5}}))
	require.NoError(t, b.RecordPossession(&core.PossessionSample{Iteration: 20, BestTeam: 1, Tilt: 0.456}))
	require.NoError(t, b.RecordTelemetry(&core.TelemetryEvent{Iteration: 20, TicksPerSecond: 950}))
}

func TestRecordBeforeStart(t *testing.T) {
	b := New(config.MemoryConfig{})
	assert.ErrorIs(t, b.RecordFrame(&core.Frame{}), storage.ErrNotStarted)
	assert.ErrorIs(t, b.RecordGoal(&core.GoalEvent{}), storage.ErrNotStarted)
	assert.ErrorIs(t, b.EndMatch(&core.MatchResult{}), storage.ErrNotStarted)
}

func TestRecordAssignsEventIDs(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.StartMatch(testMatch()))

	g := &core.GoalEvent{}
	f := &core.FoulEvent{}
	require.NoError(t, b.RecordGoal(g))
	require.NoError(t, b.RecordFoul(f))
	assert.Equal(t, uint(1), g.ID)
	assert.Equal(t, uint(2), f.ID)
}

func TestStartMatchResets(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.StartMatch(testMatch()))
	recordSome(t, b)

	frames, goals, fouls, possession, telemetry := b.Counts()
	assert.Equal(t, []int{2, 2, 1, 1, 1}, []int{frames, goals, fouls, possession, telemetry})

	require.NoError(t, b.StartMatch(testMatch()))
	frames, goals, fouls, possession, telemetry = b.Counts()
	assert.Equal(t, []int{0, 0, 0, 0, 0}, []int{frames, goals, fouls, possession, telemetry})
}

func TestBuildExport(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.StartMatch(testMatch()))
	recordSome(t, b)
	b.result = &core.MatchResult{Goals: [2]int{1, 1}, PossessionMS: [2]int{500, 300}, MatchTimeMS: 800}

	export := b.buildExport()
	assert.Equal(t, FormatVersion, export.FormatVersion)
	assert.Equal(t, "Home vs Away", export.MatchName)
	assert.Equal(t, [2]int{1, 1}, export.Score)
	assert.Equal(t, uint(20), export.EndFrame)
	require.Len(t, export.Players, 2)
	assert.Equal(t, "Away 1", export.Players[1].Name)

	require.Len(t, export.Frames, 2)
	first := export.Frames[0]
	assert.Equal(t, uint(10), first[0])
	assert.Equal(t, []float64{1.23, -2, 0.11}, first[2])
	assert.Equal(t, 1, first[3])
	players := first[4].([][]any)
	require.Len(t, players, 1)
	assert.Equal(t, "movement", players[0][5])

	require.Len(t, export.Events, 3)
	assert.Equal(t, []any{uint(15), "goal", uint8(0), 9, 0, "1-0"}, export.Events[0])
	assert.Equal(t, -1, export.Events[1][3])
	assert.Equal(t, "foul", export.Events[2][1])

	require.Len(t, export.Possession, 1)
	assert.Equal(t, 0.46, export.Possession[0][2])
}

func TestEndMatchWritesJSON(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir})
	require.NoError(t, b.StartMatch(testMatch()))
	recordSome(t, b)
	require.NoError(t, b.EndMatch(&core.MatchResult{Goals: [2]int{1, 1}, MatchTimeMS: 800}))

	path := b.GetExportedFilePath()
	assert.Equal(t, filepath.Join(dir, "Home_vs_Away_20240501_150000.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded ReplayExport
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "Cup", decoded.Tag)
	assert.Len(t, decoded.Frames, 2)

	meta := b.GetExportMetadata()
	assert.Equal(t, "Home vs Away", meta.MatchName)
	assert.Equal(t, [2]int{1, 1}, meta.Score)
	assert.Equal(t, 800, meta.MatchDurationMS)
}

func TestEndMatchWritesGzip(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})
	require.NoError(t, b.StartMatch(testMatch()))
	require.NoError(t, b.EndMatch(&core.MatchResult{}))

	path := b.GetExportedFilePath()
	assert.True(t, strings.HasSuffix(path, ".json.gz"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	defer gz.Close()

	var decoded ReplayExport
	require.NoError(t, json.NewDecoder(gz).Decode(&decoded))
	assert.Equal(t, "Home", decoded.HomeTeam)
	assert.Empty(t, decoded.Frames)
}

func TestBoolToInt(t *testing.T) {
	assert.Equal(t, 1, boolToInt(true))
	assert.Equal(t, 0, boolToInt(false))
}
