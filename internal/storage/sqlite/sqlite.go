// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; only the in-memory DB and the dumps are SQLite specific.
package sqlitestorage

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/onthepitch/matchsim/internal/config"
	"github.com/onthepitch/matchsim/internal/database"
	"github.com/onthepitch/matchsim/internal/storage/postgres"
	"github.com/onthepitch/matchsim/pkg/core"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*postgres.Backend
	db       *gorm.DB
	cfg      config.SQLiteConfig
	log      *slog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// New creates a new SQLite storage backend. An empty dsn opens the shared
// in-memory database.
func New(cfg config.SQLiteConfig, dsn string, log *slog.Logger, simulatorVersion, tuningVersion string) (*Backend, error) {
	if log == nil {
		log = slog.Default()
	}
	db, err := database.GetSqliteDBStandalone(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		// every connection to a memory DB would otherwise get its own copy
		sqlDB.SetMaxOpenConns(1)
	}

	gormBackend := postgres.New(postgres.Dependencies{
		DB:               db,
		Logger:           log,
		SimulatorVersion: simulatorVersion,
		TuningVersion:    tuningVersion,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      log,
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.OutputPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}

	return nil
}

// EndMatch stores the result and dumps the finished match to disk.
func (b *Backend) EndMatch(r *core.MatchResult) error {
	if err := b.Backend.EndMatch(r); err != nil {
		return err
	}
	if b.cfg.OutputPath == "" {
		return nil
	}
	return b.Dump()
}

// Dump writes a point-in-time copy of the database to the configured path.
func (b *Backend) Dump() error {
	start := time.Now()
	if err := database.DumpMemoryDBToDisk(b.db, b.cfg.OutputPath); err != nil {
		return err
	}
	b.log.Debug("Dumped to disk", "path", b.cfg.OutputPath, "duration", time.Since(start))
	return nil
}

// Close stops the dump goroutine, flushes the embedded backend and writes a final dump.
func (b *Backend) Close() error {
	var err error
	b.once.Do(func() {
		close(b.stopChan)
		b.wg.Wait()
		err = b.Backend.Close()
		if err == nil && b.cfg.OutputPath != "" {
			err = b.Dump()
		}
	})
	return err
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			if err := b.Dump(); err != nil {
				b.log.Error("Error dumping to disk", "error", err)
			}
		}
	}
}
