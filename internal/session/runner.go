package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/onthepitch/matchsim/internal/match"
	"github.com/onthepitch/matchsim/internal/referee"
)

// RunnerConfig controls the step loop.
type RunnerConfig struct {
	// MaxTicks stops the match early. Zero runs to full time.
	MaxTicks int
	// FrameEvery records a frame every n ticks. Zero disables frames.
	FrameEvery int
	// SampleEveryMS is the actual-time interval between possession samples.
	SampleEveryMS int
	// Realtime paces the loop at one step per step length of wall time.
	Realtime bool
}

// Stats covers the steps since the previous TakeStats.
type Stats struct {
	Iteration int
	Steps     int
	StepTotal time.Duration
	StepMax   time.Duration
	Elapsed   time.Duration
}

// StepAvg is the mean step duration.
func (s Stats) StepAvg() time.Duration {
	if s.Steps == 0 {
		return 0
	}
	return s.StepTotal / time.Duration(s.Steps)
}

// TicksPerSecond is the step rate over the window.
func (s Stats) TicksPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Steps) / s.Elapsed.Seconds()
}

// Runner drives a match one step at a time and feeds the recorder.
type Runner struct {
	m   *match.Match
	rec *Recorder
	cfg RunnerConfig
	log *slog.Logger

	mu        sync.Mutex
	window    Stats
	windowAt  time.Time
	iteration int
}

// NewRunner creates a runner for m. The recorder must be one of the match's
// observers.
func NewRunner(m *match.Match, rec *Recorder, cfg RunnerConfig, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	if cfg.SampleEveryMS <= 0 {
		cfg.SampleEveryMS = 1000
	}
	return &Runner{m: m, rec: rec, cfg: cfg, log: log, windowAt: time.Now()}
}

// Match returns the match being run.
func (r *Runner) Match() *match.Match { return r.m }

// Done reports whether the loop would stop before the next step.
func (r *Runner) Done() bool {
	if r.m.Exited() || r.m.Phase() == referee.PostMatch {
		return true
	}
	return r.cfg.MaxTicks > 0 && r.m.Iterations() >= r.cfg.MaxTicks
}

// Step runs one match step and publishes the records that fall on it.
func (r *Runner) Step() {
	m := r.m

	// the celebration pause is only for the display
	if m.Paused() && m.IsGoalScored() {
		m.SetPause(false)
	}

	start := time.Now()
	m.Process()
	d := time.Since(start)

	it := m.Iterations()
	r.mu.Lock()
	r.iteration = it
	r.window.Steps++
	r.window.StepTotal += d
	if d > r.window.StepMax {
		r.window.StepMax = d
	}
	r.mu.Unlock()

	r.rec.Context().Update(it, m.MatchTimeMS(), m.Phase().String())

	if r.cfg.FrameEvery > 0 && it%r.cfg.FrameEvery == 0 {
		r.rec.Frame(m)
	}
	stepMS := m.Params().Match.StepMS
	if (it*stepMS)%r.cfg.SampleEveryMS == 0 {
		r.rec.Possession(m)
	}
}

// Run steps the match until full time, MaxTicks or ctx is done, then exits
// the match so the result is recorded. It returns ctx's error when cancelled.
func (r *Runner) Run(ctx context.Context) error {
	var tick <-chan time.Time
	if r.cfg.Realtime {
		t := time.NewTicker(time.Duration(r.m.Params().Match.StepMS) * time.Millisecond)
		defer t.Stop()
		tick = t.C
	}

	r.log.Info("Match started", "maxTicks", r.cfg.MaxTicks, "realtime", r.cfg.Realtime)
	var err error
	for !r.Done() {
		if err = ctx.Err(); err != nil {
			break
		}
		r.Step()
		if tick != nil {
			select {
			case <-ctx.Done():
			case <-tick:
			}
		}
	}
	r.m.Exit()
	return err
}

// TakeStats returns the current window and starts a new one.
func (r *Runner) TakeStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	s := r.window
	s.Iteration = r.iteration
	s.Elapsed = now.Sub(r.windowAt)
	r.window = Stats{}
	r.windowAt = now
	return s
}
