package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/onthepitch/matchsim/internal/session"
	"github.com/onthepitch/matchsim/pkg/core"
)

// TickSource reports the step statistics of the running match.
type TickSource interface {
	TakeStats() session.Stats
}

// TelemetrySink receives the samples. session.Recorder implements it.
type TelemetrySink interface {
	Telemetry(t *core.TelemetryEvent)
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Logger     *slog.Logger
	Ticks      TickSource
	Sink       TelemetrySink
	QueueDepth func() int
	LastWrite  func() time.Duration
	// StatusFile is rewritten with the latest sample. Empty disables it.
	StatusFile string
	Interval   time.Duration
}

// Status is the snapshot written to the status file.
type Status struct {
	Time                time.Time `json:"time"`
	Iteration           int       `json:"iteration"`
	TicksPerSecond      float64   `json:"ticksPerSecond"`
	StepAvgMs           float64   `json:"stepAvgMs"`
	StepMaxMs           float64   `json:"stepMaxMs"`
	QueueDepth          int       `json:"queueDepth"`
	LastWriteDurationMs float64   `json:"lastWriteDurationMs"`
	HeapAllocBytes      uint64    `json:"heapAllocBytes"`
	Goroutines          int       `json:"goroutines"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

// Sample takes one reading.
func (s *Service) Sample(now time.Time) Status {
	st := Status{Time: now, Goroutines: runtime.NumGoroutine()}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	st.HeapAllocBytes = mem.HeapAlloc

	if s.deps.Ticks != nil {
		stats := s.deps.Ticks.TakeStats()
		st.Iteration = stats.Iteration
		st.TicksPerSecond = stats.TicksPerSecond()
		st.StepAvgMs = ms(stats.StepAvg())
		st.StepMaxMs = ms(stats.StepMax)
	}
	if s.deps.QueueDepth != nil {
		st.QueueDepth = s.deps.QueueDepth()
	}
	if s.deps.LastWrite != nil {
		st.LastWriteDurationMs = ms(s.deps.LastWrite())
	}
	return st
}

// Telemetry converts a status to the recorded event.
func (st Status) Telemetry() *core.TelemetryEvent {
	return &core.TelemetryEvent{
		Time:           st.Time,
		Iteration:      uint(st.Iteration),
		TicksPerSecond: st.TicksPerSecond,
		StepAvgMS:      st.StepAvgMs,
		StepMaxMS:      st.StepMaxMs,
		QueueDepth:     st.QueueDepth,
		HeapAllocBytes: st.HeapAllocBytes,
		Goroutines:     st.Goroutines,
	}
}

func (s *Service) writeStatus(st Status) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	tmp := s.deps.StatusFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.deps.StatusFile)
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
			close(done)
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				st := s.Sample(now)
				if s.deps.Sink != nil {
					s.deps.Sink.Telemetry(st.Telemetry())
				}
				if s.deps.StatusFile != "" {
					if err := s.writeStatus(st); err != nil {
						logger.Error("Error writing status file", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning || s.stopChan == nil {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	s.stopChan = nil
	done := s.done
	s.mu.Unlock()
	<-done
}
