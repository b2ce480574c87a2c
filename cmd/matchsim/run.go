package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/onthepitch/matchsim/internal/config"
	"github.com/onthepitch/matchsim/internal/database"
	"github.com/onthepitch/matchsim/internal/match"
	"github.com/onthepitch/matchsim/internal/monitor"
	"github.com/onthepitch/matchsim/internal/session"
	"github.com/onthepitch/matchsim/internal/storage"
	"github.com/onthepitch/matchsim/internal/storage/memory"
	pgstorage "github.com/onthepitch/matchsim/internal/storage/postgres"
	"github.com/onthepitch/matchsim/internal/tuning"
)

// discard drops events; snapshot and validate runs record nothing.
type discard struct{}

func (discard) Publish(string, any) error { return nil }

func parseWithFile(fs *flag.FlagSet, args []string, what string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return "", fmt.Errorf("%s: expected one %s argument", fs.Name(), what)
	}
	return fs.Arg(0), nil
}

func runCommand(ctx context.Context, args []string, out io.Writer) error {
	fs, o := newFlagSet("run", out)
	if err := fs.Parse(args); err != nil {
		return err
	}

	a, err := newApp(ctx, o)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, params, err := a.matchConfig()
	if err != nil {
		return err
	}
	return a.record(ctx, cfg, params, nil, out)
}

// record plays a match through the storage pipeline. A non-nil state is
// loaded before the first step; MaxTicks then counts from the loaded tick.
func (a *app) record(ctx context.Context, cfg match.Config, params tuning.Params, state []byte, out io.Writer) error {
	p, err := a.openPipeline(params.Version)
	if err != nil {
		return err
	}
	defer p.Close()

	sc := config.GetSimulationConfig()
	rec := session.NewRecorder(p.dispatcher, a.session, a.log, session.RecorderConfig{
		Tag:              sc.Tag,
		SimulatorVersion: BuildVersion,
		StartTime:        time.Now(),
	})
	m, err := match.New(cfg, params, match.Context{Logger: a.log, Observers: []match.Observer{rec}})
	if err != nil {
		return fmt.Errorf("create match: %w", err)
	}

	maxTicks := sc.MaxTicks
	if state != nil {
		if err := m.LoadState(state); err != nil {
			m.Exit()
			return fmt.Errorf("load state: %w", err)
		}
		if maxTicks > 0 {
			maxTicks += m.Iterations()
		}
		a.log.Info("Loaded match state", "iteration", m.Iterations(), "matchTime", match.FormatClock(m.MatchTimeMS()))
	}

	runner := session.NewRunner(m, rec, session.RunnerConfig{
		MaxTicks:   maxTicks,
		FrameEvery: sc.FrameEvery,
		Realtime:   sc.Realtime,
	}, a.log)

	mon := monitor.NewService(monitor.Dependencies{
		Logger:     a.log,
		Ticks:      runner,
		Sink:       rec,
		QueueDepth: p.dispatcher.QueueDepth,
		LastWrite:  p.workers.GetLastDBWriteDuration,
		StatusFile: filepath.Join(a.logsDir, ProgramName+".status.json"),
	})
	if err := mon.Start(); err != nil {
		a.log.Warn("Status monitor not started", "error", err)
	}

	runErr := runner.Run(ctx)
	mon.Stop()

	if err := a.otel.Flush(context.Background()); err != nil {
		a.log.Warn("Failed to flush otel logs", "error", err)
	}

	published, failed := rec.Published()
	if f := p.workers.Failures(); f > 0 || failed > 0 {
		a.log.Warn("Match recorded with failures", "publishFailures", failed, "storageFailures", f)
	}
	a.log.Info("Match finished", "ticks", m.Iterations(), "events", published)

	data := m.Data()
	fmt.Fprintf(out, "%s %d - %d %s (%s, %d ticks)\n",
		cfg.TeamNames[0], data.Goals[0], data.Goals[1], cfg.TeamNames[1],
		match.FormatClock(m.MatchTimeMS()), m.Iterations())
	if up, ok := p.backend.(storage.Uploadable); ok && up.GetExportedFilePath() != "" {
		fmt.Fprintln(out, "replay:", up.GetExportedFilePath())
	}
	upload(context.WithoutCancel(ctx), a.log, p.backend)

	if errors.Is(runErr, context.Canceled) {
		a.log.Warn("Match interrupted", "iteration", m.Iterations())
		return nil
	}
	return runErr
}

// advance steps the runner up to n times and returns how many steps ran.
func advance(ctx context.Context, r *session.Runner, n int) (int, error) {
	done := 0
	for ; done < n && !r.Done(); done++ {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		r.Step()
	}
	return done, nil
}

// newQuietMatch builds a match whose records go nowhere.
func (a *app) newQuietMatch(cfg match.Config, params tuning.Params) (*match.Match, *session.Runner, error) {
	rec := session.NewRecorder(discard{}, a.session, a.log, session.RecorderConfig{SimulatorVersion: BuildVersion})
	m, err := match.New(cfg, params, match.Context{Logger: a.log, Observers: []match.Observer{rec}})
	if err != nil {
		return nil, nil, fmt.Errorf("create match: %w", err)
	}
	return m, session.NewRunner(m, rec, session.RunnerConfig{}, a.log), nil
}

func snapshotCommand(ctx context.Context, args []string, out io.Writer) error {
	fs, o := newFlagSet("snapshot", out)
	ticks := fs.Int("ticks", 1000, "steps to run before the snapshot")
	steps := fs.Int("steps", 100, "steps between the snapshot and its check point")
	path, err := parseWithFile(fs, args, "file")
	if err != nil {
		return err
	}

	a, err := newApp(ctx, o)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg, params, err := a.matchConfig()
	if err != nil {
		return err
	}
	m, runner, err := a.newQuietMatch(cfg, params)
	if err != nil {
		return err
	}
	defer m.Exit()

	if _, err := advance(ctx, runner, *ticks); err != nil {
		return err
	}
	snap := &snapshotFile{
		SimulatorVersion: BuildVersion,
		Config:           cfg,
		Tuning:           params,
		Ticks:            m.Iterations(),
	}
	if snap.Before, err = m.SaveState(); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	if snap.Steps, err = advance(ctx, runner, *steps); err != nil {
		return err
	}
	if snap.After, err = m.SaveState(); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	if err := writeSnapshot(path, snap); err != nil {
		return err
	}
	a.log.Info("Snapshot written", "path", path, "ticks", snap.Ticks, "steps", snap.Steps, "bytes", len(snap.Before))
	fmt.Fprintf(out, "%s: tick %d, check point after %d steps\n", path, snap.Ticks, snap.Steps)
	return nil
}

func validateCommand(ctx context.Context, args []string, out io.Writer) error {
	fs, o := newFlagSet("validate", out)
	path, err := parseWithFile(fs, args, "file")
	if err != nil {
		return err
	}
	snap, err := readSnapshot(path)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, o)
	if err != nil {
		return err
	}
	defer a.Close()

	m, runner, err := a.newQuietMatch(snap.Config, snap.Tuning)
	if err != nil {
		return err
	}
	defer m.Exit()

	if err := m.LoadState(snap.Before); err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	n, err := advance(ctx, runner, snap.Steps)
	if err != nil {
		return err
	}
	if n != snap.Steps {
		return fmt.Errorf("match stopped after %d of %d steps", n, snap.Steps)
	}
	if err := m.ValidateState(snap.After); err != nil {
		a.log.Error("Snapshot diverged", "path", path, "error", err)
		return fmt.Errorf("validate %s: %w", path, err)
	}

	a.log.Info("Snapshot validated", "path", path, "ticks", snap.Ticks, "steps", snap.Steps)
	fmt.Fprintf(out, "%s: ok (%d steps from tick %d)\n", path, snap.Steps, snap.Ticks)
	return nil
}

func replayCommand(ctx context.Context, args []string, out io.Writer) error {
	fs, o := newFlagSet("replay", out)
	path, err := parseWithFile(fs, args, "file")
	if err != nil {
		return err
	}
	snap, err := readSnapshot(path)
	if err != nil {
		return err
	}

	a, err := newApp(ctx, o)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.record(ctx, snap.Config, snap.Tuning, snap.Before, out)
}

func exportCommand(ctx context.Context, args []string, out io.Writer) error {
	fs, o := newFlagSet("export", out)
	dbPath := fs.String("db", "", "read from this SQLite file instead of the configured database")
	arg, err := parseWithFile(fs, args, "match id")
	if err != nil {
		return err
	}
	id, err := strconv.ParseUint(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid match id %q: %w", arg, err)
	}

	a, err := newApp(ctx, o)
	if err != nil {
		return err
	}
	defer a.Close()

	storageCfg := config.GetStorageConfig()
	var db *gorm.DB
	if *dbPath != "" {
		if db, err = database.GetSqliteDBStandalone(*dbPath); err != nil {
			return fmt.Errorf("open %s: %w", *dbPath, err)
		}
		if err := database.Migrate(db, "", ""); err != nil {
			return err
		}
	} else {
		// postgres, falling back to the last SQLite dump
		mgr := database.NewManager(a.zl.With().Str("component", "database").Logger())
		mgr.SqliteFilePath = storageCfg.SQLite.OutputPath
		if err := mgr.Connect(); err != nil {
			return err
		}
		if err := mgr.Setup("", ""); err != nil {
			return err
		}
		db = mgr.DB
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	stored, err := pgstorage.New(pgstorage.Dependencies{DB: db, Logger: a.log}).LoadMatch(uint(id))
	if err != nil {
		return err
	}

	mem := memory.New(storageCfg.Memory)
	if err := stored.Replay(mem); err != nil {
		return fmt.Errorf("export match %d: %w", id, err)
	}
	a.log.Info("Match exported", "id", id, "frames", len(stored.Frames), "path", mem.GetExportedFilePath())
	fmt.Fprintln(out, mem.GetExportedFilePath())

	upload(ctx, a.log, mem)
	return nil
}
