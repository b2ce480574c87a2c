package sqlitestorage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/onthepitch/matchsim/internal/config"
	"github.com/onthepitch/matchsim/internal/model"
	"github.com/onthepitch/matchsim/internal/storage"
	"github.com/onthepitch/matchsim/pkg/core"
)

func newBackend(t *testing.T, cfg config.SQLiteConfig) *Backend {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	b, err := New(cfg, dsn, nil, "test", "1.0.0")
	require.NoError(t, err)
	require.NoError(t, b.Init())
	return b
}

func openDump(t *testing.T, path string) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func TestBackendImplementsInterface(t *testing.T) {
	var _ storage.Backend = (*Backend)(nil)
}

func TestEndMatchDumpsToDisk(t *testing.T) {
	out := filepath.Join(t.TempDir(), "nested", "matches.db")
	b := newBackend(t, config.SQLiteConfig{OutputPath: out})
	defer b.Close()

	m := &core.Match{Name: "A vs B", HomeTeam: "A", AwayTeam: "B", StartTime: time.Now(),
		Players: []core.Player{{ID: 0, TeamID: 0, Name: "A 1", Role: "GK"}}}
	require.NoError(t, b.StartMatch(m))
	require.NoError(t, b.RecordFrame(&core.Frame{Iteration: 1}))
	require.NoError(t, b.RecordFrame(&core.Frame{Iteration: 2}))
	require.NoError(t, b.EndMatch(&core.MatchResult{Goals: [2]int{1, 0}}))

	require.FileExists(t, out)
	db := openDump(t, out)

	var frames int64
	require.NoError(t, db.Model(&model.Frame{}).Count(&frames).Error)
	assert.Equal(t, int64(2), frames)

	var stored model.Match
	require.NoError(t, db.First(&stored).Error)
	assert.Equal(t, uint8(1), stored.Result.HomeGoals)
	assert.True(t, stored.EndTime.Valid)
}

func TestCloseWritesFinalDump(t *testing.T) {
	out := filepath.Join(t.TempDir(), "final.db")
	b := newBackend(t, config.SQLiteConfig{OutputPath: out, DumpInterval: time.Hour})

	require.NoError(t, b.StartMatch(&core.Match{Name: "unfinished", StartTime: time.Now()}))
	require.NoError(t, b.RecordFrame(&core.Frame{Iteration: 7}))
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	db := openDump(t, out)
	var frames int64
	require.NoError(t, db.Model(&model.Frame{}).Count(&frames).Error)
	assert.Equal(t, int64(1), frames)
}

func TestPeriodicDump(t *testing.T) {
	out := filepath.Join(t.TempDir(), "periodic.db")
	b := newBackend(t, config.SQLiteConfig{OutputPath: out, DumpInterval: 20 * time.Millisecond})
	defer b.Close()

	assert.Eventually(t, func() bool {
		_, err := os.Stat(out)
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
}

func TestNoOutputPathSkipsDumps(t *testing.T) {
	b := newBackend(t, config.SQLiteConfig{})
	require.NoError(t, b.StartMatch(&core.Match{Name: "x", StartTime: time.Now()}))
	require.NoError(t, b.EndMatch(&core.MatchResult{}))
	require.NoError(t, b.Close())
}
