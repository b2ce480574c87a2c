package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/onthepitch/matchsim/internal/camera"
	"github.com/onthepitch/matchsim/internal/config"
	"github.com/onthepitch/matchsim/internal/influx"
	"github.com/onthepitch/matchsim/internal/logging"
	"github.com/onthepitch/matchsim/internal/match"
	intOtel "github.com/onthepitch/matchsim/internal/otel"
	"github.com/onthepitch/matchsim/internal/session"
	"github.com/onthepitch/matchsim/internal/tuning"
)

// options are the flags shared by every command.
type options struct {
	configDir string
	logLevel  string
	storage   string
	seed      uint64
	maxTicks  int
	realtime  bool
	noMetrics bool
}

func newFlagSet(name string, out io.Writer) (*flag.FlagSet, *options) {
	o := &options{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	fs.StringVar(&o.configDir, "config", ".", "directory holding "+config.FileName)
	fs.StringVar(&o.logLevel, "log-level", "", "override logLevel")
	fs.StringVar(&o.storage, "storage", "", "override storage.type (memory, sqlite, postgres, websocket)")
	fs.Uint64Var(&o.seed, "seed", 0, "override simulation.seed")
	fs.IntVar(&o.maxTicks, "max-ticks", -1, "override simulation.maxTicks, 0 plays to full time")
	fs.BoolVar(&o.realtime, "realtime", false, "pace the match at wall clock speed")
	fs.BoolVar(&o.noMetrics, "no-metrics", false, "skip the influx connection")
	return fs, o
}

// apply writes the flag overrides over the loaded config.
func (o *options) apply() {
	if o.logLevel != "" {
		viper.Set("logLevel", o.logLevel)
	}
	if o.storage != "" {
		viper.Set("storage.type", o.storage)
	}
	if o.seed != 0 {
		viper.Set("simulation.seed", o.seed)
	}
	if o.maxTicks >= 0 {
		viper.Set("simulation.maxTicks", o.maxTicks)
	}
	if o.realtime {
		viper.Set("simulation.realtime", true)
	}
	if o.noMetrics {
		viper.Set("influx.enabled", false)
	}
}

// app holds the ambient services of one command invocation.
type app struct {
	log      *slog.Logger
	zl       zerolog.Logger
	slogMgr  *logging.SlogManager
	otel     *intOtel.Provider
	influx   *influx.Manager
	session  *session.Context
	runStart time.Time
	logsDir  string

	files []*os.File
}

func newApp(ctx context.Context, o *options) (*app, error) {
	a := &app{
		slogMgr:  logging.NewSlogManager(),
		session:  session.NewContext(),
		runStart: time.Now(),
	}

	cfgErr := config.Load(o.configDir)
	o.apply()

	a.logsDir = viper.GetString("logsDir")
	if err := os.MkdirAll(a.logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs dir: %w", err)
	}

	logFile, err := a.create(logging.LogFilePath(a.logsDir, ProgramName, "", a.runStart))
	if err != nil {
		return nil, err
	}

	oc := config.GetOTelConfig()
	var otelWriter io.Writer
	if oc.Enabled {
		if otelWriter, err = a.create(logging.LogFilePath(a.logsDir, ProgramName, "otel", a.runStart)); err != nil {
			a.closeFiles()
			return nil, err
		}
	}
	otelCfg := intOtel.FromSettings(oc.Enabled, oc.ServiceName, oc.BatchTimeout, oc.Endpoint, oc.Insecure, otelWriter)
	otelCfg.ServiceVersion = BuildVersion
	a.otel, err = intOtel.New(otelCfg)
	if err != nil {
		a.closeFiles()
		return nil, fmt.Errorf("failed to set up otel: %w", err)
	}

	opts := []logging.Option{logging.WithContext(a.session.LogAttrs)}
	var gelfErr error
	if viper.GetBool("graylog.enabled") {
		w, err := a.slogMgr.DialGraylog(viper.GetString("graylog.address"))
		if err != nil {
			gelfErr = err
		} else {
			opts = append(opts, logging.WithGELF(w))
		}
	}
	a.slogMgr.Setup(logFile, viper.GetString("logLevel"), a.otel.LoggerProvider(), opts...)
	a.log = a.slogMgr.Logger()
	slog.SetDefault(a.log)

	if cfgErr != nil {
		a.log.Warn("Running with default config", "error", cfgErr)
	}
	if gelfErr != nil {
		a.log.Warn("Graylog disabled", "error", gelfErr)
	}
	a.log.Info("Starting", "program", ProgramName, "version", BuildVersion, "buildDate", BuildDate)

	a.zl = zerolog.New(logFile).With().Timestamp().Logger()
	backup := filepath.Join(a.logsDir, fmt.Sprintf("%s_influx_%s.lp.gz", ProgramName, a.runStart.Format("20060102_150405")))
	im := influx.NewManager(a.zl.With().Str("component", "influx").Logger(), backup)
	switch err := im.Connect(ctx); {
	case errors.Is(err, influx.ErrDisabled):
	case err != nil:
		a.log.Warn("Influx unavailable", "error", err)
	default:
		a.influx = im
	}

	return a, nil
}

func (a *app) create(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}
	a.files = append(a.files, f)
	return f, nil
}

func (a *app) closeFiles() {
	for _, f := range a.files {
		f.Close()
	}
	a.files = nil
}

// matchConfig builds the scenario from the simulation and camera sections.
func (a *app) matchConfig() (match.Config, tuning.Params, error) {
	sc := config.GetSimulationConfig()
	cc := config.GetCameraConfig()

	method, err := camera.ParseMethod(cc.Method)
	if err != nil {
		return match.Config{}, tuning.Params{}, err
	}
	params, err := config.GetTuning()
	if err != nil {
		return match.Config{}, tuning.Params{}, err
	}

	cfg := match.Config{
		TeamNames:             [2]string{sc.HomeTeam, sc.AwayTeam},
		MatchDuration:         sc.MatchDuration,
		SymmetricMode:         sc.SymmetricMode,
		ReverseTeamProcessing: sc.ReverseTeamProcessing,
		Render:                sc.Render,
		PhysicsStepsPerFrame:  sc.PhysicsStepsPerFrame,
		PlayersPerTeam:        sc.PlayersPerTeam,
		Seed:                  sc.Seed,
		Camera: camera.Settings{
			FOV:         cc.FOV,
			Zoom:        cc.Zoom,
			Height:      cc.Height,
			AngleFactor: cc.AngleFactor,
			Method:      method,
		},
	}
	return cfg, params, nil
}

// Close flushes and shuts down the ambient services.
func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.influx != nil {
		if err := a.influx.Close(); err != nil {
			a.log.Warn("Failed to close influx", "error", err)
		}
	}
	a.log.Info("Shutting down")
	if err := a.slogMgr.Close(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s: close logging: %v\n", ProgramName, err)
	}
	if err := a.otel.Shutdown(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s: shutdown otel: %v\n", ProgramName, err)
	}
	a.closeFiles()
}
