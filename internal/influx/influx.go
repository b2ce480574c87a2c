// Package influx sends match telemetry and events to InfluxDB, falling back
// to a gzip line-protocol file when the server cannot be reached.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/onthepitch/matchsim/pkg/core"
)

// Bucket names.
const (
	BucketMatchEvents    = "match_events"
	BucketSimPerformance = "sim_performance"
)

// DefaultBucketNames are the buckets created on first connect.
var DefaultBucketNames = []string{
	BucketMatchEvents,
	BucketSimPerformance,
}

// ErrDisabled is returned by Connect when influx.enabled is false.
var ErrDisabled = errors.New("influx disabled")

// Manager handles InfluxDB connections and writes.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string

	backupFile *os.File
	mu         sync.Mutex
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		IsValid:     false,
		BucketNames: DefaultBucketNames,
		Logger:      log,
		BackupPath:  backupPath,
	}
}

// ServerURL builds the server address from the influx section of the config.
func ServerURL() string {
	return fmt.Sprintf(
		"%s://%s:%s",
		viper.GetString("influx.protocol"),
		viper.GetString("influx.host"),
		viper.GetString("influx.port"),
	)
}

// Connect establishes a connection to InfluxDB. When the server does not
// answer, points go to the backup file instead.
func (m *Manager) Connect(ctx context.Context) error {
	if !viper.GetBool("influx.enabled") {
		return ErrDisabled
	}

	m.Client = influxdb2.NewClientWithOptions(
		ServerURL(),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	running, err := m.Client.Ping(pingCtx)
	cancel()

	if err != nil || !running {
		m.IsValid = false
		if m.BackupWriter == nil {
			m.Logger.Info().Str("backupPath", m.BackupPath).
				Msg("Failed to initialize InfluxDB client, writing to backup file")

			file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %w", err)
			}
			m.backupFile = file
			m.BackupWriter = gzip.NewWriter(file)
		}
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
		return nil
	}

	m.IsValid = true
	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.CreateWriters()
	m.Logger.Info().Msg("InfluxDB client initialized")
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgName := viper.GetString("influx.org")

	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		influxOrg, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	retention := int64(viper.GetInt("influx.retentionDays"))
	if retention <= 0 {
		retention = 90
	}
	for _, bucket := range m.BucketNames {
		if _, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: 60 * 60 * 24 * retention,
		})
		if err != nil {
			m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
			return err
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	orgName := viper.GetString("influx.org")
	for _, bucket := range m.BucketNames {
		m.Writers[bucket] = m.Client.WriteAPI(orgName, bucket)

		errorsCh := m.Writers[bucket].Errors()
		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, errorsCh)
	}

	m.Logger.Debug().Int("buckets", len(m.BucketNames)).Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or the backup file.
func (m *Manager) WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		w, ok := m.Writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}
	lineProtocol := strings.TrimSuffix(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := m.BackupWriter.Write([]byte(lineProtocol + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// WriteTelemetry stores a per-second performance sample.
func (m *Manager) WriteTelemetry(ctx context.Context, match string, t *core.TelemetryEvent) error {
	return m.WritePoint(ctx, BucketSimPerformance, TelemetryPoint(match, t))
}

// WriteGoal stores a goal.
func (m *Manager) WriteGoal(ctx context.Context, match string, g *core.GoalEvent) error {
	return m.WritePoint(ctx, BucketMatchEvents, GoalPoint(match, g))
}

// WriteFoul stores a foul.
func (m *Manager) WriteFoul(ctx context.Context, match string, f *core.FoulEvent) error {
	return m.WritePoint(ctx, BucketMatchEvents, FoulPoint(match, f))
}

// Close flushes the writers and the backup file.
func (m *Manager) Close() error {
	if m.Client != nil {
		for _, w := range m.Writers {
			w.Flush()
		}
		m.Client.Close()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var err error
	if m.BackupWriter != nil {
		err = m.BackupWriter.Close()
		m.BackupWriter = nil
	}
	if m.backupFile != nil {
		if cerr := m.backupFile.Close(); err == nil {
			err = cerr
		}
		m.backupFile = nil
	}
	return err
}

// TelemetryPoint builds the sim_performance point for a sample.
func TelemetryPoint(match string, t *core.TelemetryEvent) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		"tick_rate",
		map[string]string{"match": match},
		map[string]any{
			"iteration":        int64(t.Iteration),
			"ticks_per_second": t.TicksPerSecond,
			"step_avg_ms":      t.StepAvgMS,
			"step_max_ms":      t.StepMaxMS,
			"queue_depth":      t.QueueDepth,
			"heap_alloc_bytes": int64(t.HeapAllocBytes),
			"goroutines":       t.Goroutines,
		},
		t.Time,
	)
}

// GoalPoint builds the match_events point for a goal.
func GoalPoint(match string, g *core.GoalEvent) *influxdb2_write.Point {
	fields := map[string]any{
		"iteration":     int64(g.Iteration),
		"match_time_ms": g.MatchTimeMS,
		"home_score":    g.Score[0],
		"away_score":    g.Score[1],
		"own_goal":      g.OwnGoal,
	}
	if g.ScorerID != nil {
		fields["scorer_id"] = int(*g.ScorerID)
	}
	return influxdb2.NewPoint(
		"goal",
		map[string]string{"match": match, "team": strconv.Itoa(int(g.TeamID))},
		fields,
		g.Time,
	)
}

// FoulPoint builds the match_events point for a foul.
func FoulPoint(match string, f *core.FoulEvent) *influxdb2_write.Point {
	return influxdb2.NewPoint(
		"foul",
		map[string]string{"match": match, "type": f.Type},
		map[string]any{
			"iteration":     int64(f.Iteration),
			"match_time_ms": f.MatchTimeMS,
			"offender_id":   int(f.OffenderID),
			"victim_id":     int(f.VictimID),
			"x":             f.Position.X,
			"y":             f.Position.Y,
		},
		f.Time,
	)
}
