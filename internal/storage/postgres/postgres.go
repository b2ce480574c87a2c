// Package postgres implements the storage.Backend interface using GORM/PostgreSQL
// with internal queues and a background DB writer goroutine.
package postgres

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"gorm.io/gorm"

	"github.com/onthepitch/matchsim/internal/database"
	"github.com/onthepitch/matchsim/internal/model"
	"github.com/onthepitch/matchsim/internal/model/convert"
	"github.com/onthepitch/matchsim/internal/queue"
	"github.com/onthepitch/matchsim/internal/storage"
	"github.com/onthepitch/matchsim/pkg/core"
)

// approachLength is how many recorded ball positions make up a goal's approach line.
const approachLength = 30

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB               *gorm.DB
	Logger           *slog.Logger
	SimulatorVersion string
	TuningVersion    string
	// WriteInterval is the pause between background write cycles. Defaults to 2s.
	WriteInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Frames      *queue.Queue[model.Frame]
	Goals       *queue.Queue[model.GoalEvent]
	Fouls       *queue.Queue[model.FoulEvent]
	Possession  *queue.Queue[model.PossessionSample]
	Performance *queue.Queue[model.SimPerformance]
}

func newQueues() *queues {
	return &queues{
		Frames:      queue.New[model.Frame](),
		Goals:       queue.New[model.GoalEvent](),
		Fouls:       queue.New[model.FoulEvent](),
		Possession:  queue.New[model.PossessionSample](),
		Performance: queue.New[model.SimPerformance](),
	}
}

// Backend implements storage.Backend using GORM/PostgreSQL with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	queues   *queues
	matchID  atomic.Uint64
	stopChan chan struct{}
	done     chan struct{}

	// writeMu serializes write cycles between the background writer and EndMatch.
	writeMu   sync.Mutex
	lastWrite atomic.Int64

	ballMu    sync.Mutex
	ballTrail []core.Position3D
}

var _ storage.Backend = (*Backend)(nil)

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.WriteInterval <= 0 {
		deps.WriteInterval = 2 * time.Second
	}
	return &Backend{
		deps:   deps,
		queues: newQueues(),
	}
}

// Init runs schema migration and starts the DB writer goroutine.
// If no DB was injected via Dependencies, it creates its own postgres connection.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.GetPostgresDBStandalone()
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
	}

	b.deps.Logger.Info("Migrating schema", "dialect", b.deps.DB.Name())
	if err := database.Migrate(b.deps.DB, b.deps.SimulatorVersion, b.deps.TuningVersion); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writerLoop()
	return nil
}

// DB exposes the underlying connection, mainly for the SQLite wrapper.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Close stops the DB writer goroutine after a final write cycle.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil
	return nil
}

// MatchID returns the database ID of the match being recorded.
func (b *Backend) MatchID() uint {
	return uint(b.matchID.Load())
}

// StartMatch inserts the match and its roster synchronously so records can
// reference the new ID.
func (b *Backend) StartMatch(m *core.Match) error {
	if b.deps.DB == nil {
		return fmt.Errorf("start match: database not initialized")
	}

	// anything still queued belongs to the previous match
	b.flush()

	gormMatch := convert.CoreToMatch(*m)
	err := b.deps.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&gormMatch).Error; err != nil {
			return fmt.Errorf("failed to insert new match: %w", err)
		}
		players := convert.CoreToPlayers(gormMatch.ID, m.Players)
		if len(players) > 0 {
			if err := tx.Create(&players).Error; err != nil {
				return fmt.Errorf("failed to insert players: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	m.ID = gormMatch.ID
	b.matchID.Store(uint64(gormMatch.ID))

	b.ballMu.Lock()
	b.ballTrail = b.ballTrail[:0]
	b.ballMu.Unlock()

	b.deps.Logger.Info("Match stored", "matchId", gormMatch.ID, "players", len(m.Players))
	return nil
}

// EndMatch writes everything still queued and stores the result on the match row.
func (b *Backend) EndMatch(r *core.MatchResult) error {
	matchID := b.MatchID()
	if matchID == 0 {
		return storage.ErrNotStarted
	}

	if err := b.flush(); err != nil {
		return fmt.Errorf("final write: %w", err)
	}

	endTime := r.EndTime
	if endTime.IsZero() {
		endTime = time.Now()
	}
	err := b.deps.DB.Model(&model.Match{}).Where("id = ?", matchID).Updates(map[string]any{
		"end_time":                  sql.NullTime{Time: endTime, Valid: true},
		"result_home_goals":         r.Goals[0],
		"result_away_goals":         r.Goals[1],
		"result_home_possession_ms": r.PossessionMS[0],
		"result_away_possession_ms": r.PossessionMS[1],
		"result_match_time_ms":      r.MatchTimeMS,
		"result_ticks":              r.Ticks,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to store match result: %w", err)
	}
	b.matchID.Store(0)
	return nil
}

func (b *Backend) current() (uint, error) {
	id := b.MatchID()
	if id == 0 {
		return 0, storage.ErrNotStarted
	}
	return id, nil
}

// RecordFrame converts and queues a frame, and remembers the ball position
// for goal approach lines.
func (b *Backend) RecordFrame(f *core.Frame) error {
	matchID, err := b.current()
	if err != nil {
		return err
	}
	gormObj := convert.CoreToFrame(*f)
	gormObj.MatchID = matchID
	b.queues.Frames.Push(gormObj)

	b.ballMu.Lock()
	b.ballTrail = append(b.ballTrail, f.Ball)
	if len(b.ballTrail) > approachLength {
		b.ballTrail = b.ballTrail[len(b.ballTrail)-approachLength:]
	}
	b.ballMu.Unlock()
	return nil
}

// RecordGoal converts and queues a goal with the ball's recent path.
func (b *Backend) RecordGoal(e *core.GoalEvent) error {
	matchID, err := b.current()
	if err != nil {
		return err
	}
	gormObj := convert.CoreToGoalEvent(*e)
	gormObj.MatchID = matchID

	b.ballMu.Lock()
	gormObj.Approach = convert.PathToLineString(b.ballTrail)
	b.ballMu.Unlock()

	b.queues.Goals.Push(gormObj)
	return nil
}

// RecordFoul converts and queues a foul.
func (b *Backend) RecordFoul(e *core.FoulEvent) error {
	matchID, err := b.current()
	if err != nil {
		return err
	}
	gormObj := convert.CoreToFoulEvent(*e)
	gormObj.MatchID = matchID
	b.queues.Fouls.Push(gormObj)
	return nil
}

// RecordPossession converts and queues a possession sample.
func (b *Backend) RecordPossession(s *core.PossessionSample) error {
	matchID, err := b.current()
	if err != nil {
		return err
	}
	gormObj := convert.CoreToPossessionSample(*s)
	gormObj.MatchID = matchID
	b.queues.Possession.Push(gormObj)
	return nil
}

// RecordTelemetry converts and queues a performance sample.
func (b *Backend) RecordTelemetry(e *core.TelemetryEvent) error {
	matchID, err := b.current()
	if err != nil {
		return err
	}
	gormObj := convert.CoreToSimPerformance(*e)
	gormObj.MatchID = matchID
	gormObj.LastWriteDurationMs = float32(b.GetLastDBWriteDuration().Microseconds()) / 1000
	b.queues.Performance.Push(gormObj)
	return nil
}

// GetLastDBWriteDuration returns how long the last write cycle took.
func (b *Backend) GetLastDBWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

// QueueLengths reports the pending rows per table.
func (b *Backend) QueueLengths() map[string]int {
	return map[string]int{
		"frames":      b.queues.Frames.Len(),
		"goals":       b.queues.Goals.Len(),
		"fouls":       b.queues.Fouls.Len(),
		"possession":  b.queues.Possession.Len(),
		"performance": b.queues.Performance.Len(),
	}
}

// writeQueue writes all items from a queue to the database in a transaction.
// Failed batches are pushed back for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) error {
	if q.Empty() {
		return nil
	}

	items := q.Drain()
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
	if err != nil {
		log.Error("Error creating rows", "table", name, "count", len(items), "error", err)
		q.Requeue(items)
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// flush runs one write cycle and returns the first error.
func (b *Backend) flush() error {
	b.writeMu.Lock()
	defer b.writeMu.Unlock()

	start := time.Now()
	db := b.deps.DB
	log := b.deps.Logger

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	keep(writeQueue(db, b.queues.Frames, "frames", log))
	keep(writeQueue(db, b.queues.Goals, "goal events", log))
	keep(writeQueue(db, b.queues.Fouls, "foul events", log))
	keep(writeQueue(db, b.queues.Possession, "possession samples", log))
	keep(writeQueue(db, b.queues.Performance, "sim performances", log))

	b.lastWrite.Store(int64(time.Since(start)))
	return firstErr
}

// writerLoop periodically drains queues into the DB until Close.
func (b *Backend) writerLoop() {
	defer close(b.done)

	ticker := time.NewTicker(b.deps.WriteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			b.flush()
			return
		case <-ticker.C:
			b.flush()
		}
	}
}
