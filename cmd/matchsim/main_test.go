package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onthepitch/matchsim/internal/config"
	"github.com/onthepitch/matchsim/internal/envstate"
	"github.com/onthepitch/matchsim/internal/match"
	"github.com/onthepitch/matchsim/internal/storage/memory"
	"github.com/onthepitch/matchsim/internal/tuning"
)

// writeConfig writes a config file into a temp dir and returns the dir.
func writeConfig(t *testing.T, storage map[string]any, maxTicks int) string {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() {
		viper.Reset()
		slog.SetDefault(prev)
	})

	dir := t.TempDir()
	cfg := map[string]any{
		"logLevel": "debug",
		"logsDir":  filepath.Join(dir, "logs"),
		"storage":  storage,
		"simulation": map[string]any{
			"maxTicks":   maxTicks,
			"frameEvery": 5,
		},
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), data, 0644))
	return dir
}

func memoryStorage(dir string) map[string]any {
	return map[string]any{
		"type": "memory",
		"memory": map[string]any{
			"outputDir":      filepath.Join(dir, "recordings"),
			"compressOutput": false,
		},
	}
}

func TestHttpToWS(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"http://localhost:5000", "ws://localhost:5000"},
		{"https://replays.example.org/", "wss://replays.example.org"},
		{"ws://already", "ws://already"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, httpToWS(tt.in), tt.in)
	}
}

func TestCreateStorageBackend(t *testing.T) {
	b, err := createStorageBackend(slog.Default(), config.StorageConfig{Type: "memory"}, tuning.Version)
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)

	b, err = createStorageBackend(slog.Default(), config.StorageConfig{}, tuning.Version)
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)

	_, err = createStorageBackend(slog.Default(), config.StorageConfig{Type: "tape"}, tuning.Version)
	assert.ErrorContains(t, err, "tape")
}

func TestExecuteVersionAndUsage(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, execute(context.Background(), []string{"version"}, &out))
	assert.Contains(t, out.String(), ProgramName+" "+BuildVersion)

	out.Reset()
	assert.ErrorIs(t, execute(context.Background(), nil, &out), errUsage)
	assert.Contains(t, out.String(), "Commands:")

	assert.ErrorContains(t, execute(context.Background(), []string{"kick"}, &out), `unknown command "kick"`)
	assert.Error(t, execute(context.Background(), []string{"validate"}, &out))
}

func TestSnapshotFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.snap")
	in := &snapshotFile{
		SimulatorVersion: "test",
		Config:           match.DefaultConfig(),
		Tuning:           tuning.Default(),
		Ticks:            40,
		Steps:            10,
		Before:           []byte{1, 2, 3},
		After:            []byte{4, 5},
	}
	require.NoError(t, writeSnapshot(path, in))

	out, err := readSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	in.Before = nil
	require.NoError(t, writeSnapshot(path, in))
	_, err = readSnapshot(path)
	assert.ErrorContains(t, err, "no state")

	require.NoError(t, os.WriteFile(path, []byte("not msgpack"), 0644))
	_, err = readSnapshot(path)
	assert.Error(t, err)
}

func TestRunRecordsToMemory(t *testing.T) {
	dir := t.TempDir()
	cfgDir := writeConfig(t, memoryStorage(dir), 60)

	var out bytes.Buffer
	require.NoError(t, execute(context.Background(), []string{"run", "-config", cfgDir, "-no-metrics"}, &out))

	assert.Contains(t, out.String(), "Home ")
	assert.Contains(t, out.String(), "60 ticks")
	assert.Contains(t, out.String(), "replay:")

	files, err := filepath.Glob(filepath.Join(dir, "recordings", "*.json"))
	require.NoError(t, err)
	require.Len(t, files, 1)

	var export memory.ReplayExport
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &export))

	logs, err := filepath.Glob(filepath.Join(cfgDir, "logs", ProgramName+"*.log"))
	require.NoError(t, err)
	assert.NotEmpty(t, logs)
}

func TestRunCancelledStillRecords(t *testing.T) {
	dir := t.TempDir()
	cfgDir := writeConfig(t, memoryStorage(dir), 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	require.NoError(t, execute(ctx, []string{"run", "-config", cfgDir}, &out))
	assert.Contains(t, out.String(), "0 ticks")
}

func TestSnapshotValidateReplay(t *testing.T) {
	dir := t.TempDir()
	cfgDir := writeConfig(t, memoryStorage(dir), 30)
	snap := filepath.Join(dir, "kickoff.snap")

	var out bytes.Buffer
	require.NoError(t, execute(context.Background(), []string{"snapshot", "-config", cfgDir, "-ticks", "40", "-steps", "25", snap}, &out))
	assert.Contains(t, out.String(), "tick 40")

	s, err := readSnapshot(snap)
	require.NoError(t, err)
	assert.Equal(t, 40, s.Ticks)
	assert.Equal(t, 25, s.Steps)

	out.Reset()
	require.NoError(t, execute(context.Background(), []string{"validate", "-config", cfgDir, snap}, &out))
	assert.Contains(t, out.String(), "ok")

	out.Reset()
	require.NoError(t, execute(context.Background(), []string{"replay", "-config", cfgDir, snap}, &out))
	assert.Contains(t, out.String(), "70 ticks")

	// a check point from another tick cannot match
	after := s.After
	s.After = s.Before
	require.NoError(t, writeSnapshot(snap, s))
	err = execute(context.Background(), []string{"validate", "-config", cfgDir, snap}, &out)
	assert.Error(t, err)

	// a damaged state is reported, not loaded
	s.After = after
	s.Before = append([]byte{0xcf, 0, 0, 0x40, 0, 0, 0, 0, 0}, s.Before[1:]...)
	require.NoError(t, writeSnapshot(snap, s))
	err = execute(context.Background(), []string{"validate", "-config", cfgDir, snap}, &out)
	assert.ErrorContains(t, err, "load state")
	assert.ErrorIs(t, err, envstate.ErrCorrupt)
}

func TestExportFromSQLiteDump(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "matches.db")
	cfgDir := writeConfig(t, map[string]any{
		"type": "sqlite",
		"sqlite": map[string]any{
			"outputPath":   dbPath,
			"dumpInterval": "0s",
		},
		"memory": map[string]any{
			"outputDir":      filepath.Join(dir, "exports"),
			"compressOutput": false,
		},
	}, 40)

	var out bytes.Buffer
	require.NoError(t, execute(context.Background(), []string{"run", "-config", cfgDir}, &out))
	_, err := os.Stat(dbPath)
	require.NoError(t, err)

	out.Reset()
	require.NoError(t, execute(context.Background(), []string{"export", "-config", cfgDir, "-db", dbPath, "1"}, &out))
	path := strings.TrimSpace(out.String())
	assert.Equal(t, filepath.Join(dir, "exports"), filepath.Dir(path))
	_, err = os.Stat(path)
	assert.NoError(t, err)

	assert.ErrorContains(t, execute(context.Background(), []string{"export", "-config", cfgDir, "x"}, &out), "invalid match id")
}
