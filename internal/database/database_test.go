package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/onthepitch/matchsim/internal/model"
)

func memoryDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := GetSqliteDBStandalone(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

func TestMigrateCreatesTables(t *testing.T) {
	db := memoryDB(t)
	require.NoError(t, Migrate(db, "1.2.0", "1.0.0"))

	for _, m := range model.DatabaseModels {
		assert.True(t, db.Migrator().HasTable(m), "%T", m)
	}
}

func TestMigrateRegistersVersionOnce(t *testing.T) {
	db := memoryDB(t)
	require.NoError(t, Migrate(db, "1.2.0", "1.0.0"))
	require.NoError(t, Migrate(db, "1.2.0", "1.0.0"))
	require.NoError(t, Migrate(db, "1.3.0", "1.0.0"))

	var count int64
	require.NoError(t, db.Model(&model.SimulatorInfo{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db := memoryDB(t)
	require.NoError(t, Migrate(db, "", ""))

	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "match.db")
	require.NoError(t, DumpMemoryDBToDisk(db, path))
	// a second dump replaces the first
	require.NoError(t, DumpMemoryDBToDisk(db, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	db := memoryDB(t)
	assert.Error(t, DumpMemoryDBToDisk(db, ""))
}

func TestPostgresDSN(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "db.local")
	viper.Set("db.port", "5433")
	viper.Set("db.username", "sim")
	viper.Set("db.password", "pw")
	viper.Set("db.database", "matches")

	assert.Equal(t, "host=db.local port=5433 user=sim password=pw dbname=matches sslmode=disable", PostgresDSN())
}

func TestManagerFallsBackToSQLite(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("db.host", "127.0.0.1")
	viper.Set("db.port", "1")

	m := NewManager(zerolog.Nop())
	m.SqliteFilePath = filepath.Join(t.TempDir(), "fallback.db")
	require.NoError(t, m.Connect())
	t.Cleanup(func() { m.SqlDB.Close() })

	assert.True(t, m.IsValid)
	assert.True(t, m.ShouldSaveLocal)
	require.NoError(t, m.Setup("1.2.0", "1.0.0"))
	assert.True(t, m.DB.Migrator().HasTable(&model.Frame{}))
}
