package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/viper"

	"github.com/onthepitch/matchsim/internal/api"
	"github.com/onthepitch/matchsim/internal/config"
	"github.com/onthepitch/matchsim/internal/dispatcher"
	"github.com/onthepitch/matchsim/internal/storage"
	"github.com/onthepitch/matchsim/internal/storage/memory"
	pgstorage "github.com/onthepitch/matchsim/internal/storage/postgres"
	sqlitestorage "github.com/onthepitch/matchsim/internal/storage/sqlite"
	wsstorage "github.com/onthepitch/matchsim/internal/storage/websocket"
	"github.com/onthepitch/matchsim/internal/worker"
)

// pipeline carries recorded events from the match to the storage backend.
type pipeline struct {
	log        *slog.Logger
	dispatcher *dispatcher.Dispatcher
	backend    storage.Backend
	workers    *worker.Manager
}

func (a *app) openPipeline(tuningVersion string) (*pipeline, error) {
	storageCfg := config.GetStorageConfig()

	backend, err := createStorageBackend(a.log, storageCfg, tuningVersion)
	if err != nil {
		a.log.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		a.log.Error("Failed to initialize storage backend", "error", err)
		return nil, fmt.Errorf("init %s storage: %w", storageCfg.Type, err)
	}

	d, err := dispatcher.New(a.log.With("component", "dispatcher"))
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	deps := worker.Dependencies{Logger: a.log}
	if a.influx != nil {
		deps.Metrics = a.influx
	}
	workers := worker.NewManager(deps, backend)

	a.log.Debug("Registering worker handlers with dispatcher")
	workers.RegisterHandlers(d)
	a.log.Info("Worker handlers registered with dispatcher", "storage", storageCfg.Type)

	return &pipeline{log: a.log, dispatcher: d, backend: backend, workers: workers}, nil
}

// Close waits for queued events and releases the backend.
func (p *pipeline) Close() {
	p.dispatcher.Close()
	if err := p.backend.Close(); err != nil {
		p.log.Error("Failed to close storage backend", "error", err)
	}
}

func createStorageBackend(log *slog.Logger, storageCfg config.StorageConfig, tuningVersion string) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		log.Info("Postgres storage backend initialized")
		return pgstorage.New(pgstorage.Dependencies{
			Logger:           log,
			SimulatorVersion: BuildVersion,
			TuningVersion:    tuningVersion,
		}), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, "", log, BuildVersion, tuningVersion)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		log.Info("SQLite storage backend initialized", "path", storageCfg.SQLite.OutputPath)
		return backend, nil

	case "websocket":
		wsURL := storageCfg.WebSocket.URL
		if wsURL == "" {
			wsURL = httpToWS(viper.GetString("api.serverUrl")) + "/ingest"
		}
		secret := storageCfg.WebSocket.Secret
		if secret == "" {
			secret = viper.GetString("api.apiKey")
		}
		log.Info("WebSocket storage backend initialized", "url", wsURL)
		return wsstorage.New(wsstorage.Config{
			URL:    wsURL,
			Secret: secret,
		}, log), nil

	case "memory", "":
		log.Info("Memory storage backend initialized", "dir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}

// httpToWS converts an HTTP(S) URL to a WebSocket URL.
func httpToWS(httpURL string) string {
	s := strings.TrimRight(httpURL, "/")
	s = strings.Replace(s, "https://", "wss://", 1)
	s = strings.Replace(s, "http://", "ws://", 1)
	return s
}

// upload sends the exported replay to the replay server when the backend
// produced one and uploads are switched on.
func upload(ctx context.Context, log *slog.Logger, backend storage.Backend) {
	up, ok := backend.(storage.Uploadable)
	if !ok || !viper.GetBool("api.upload") {
		return
	}
	path := up.GetExportedFilePath()
	if path == "" {
		log.Warn("No exported file to upload")
		return
	}

	client := api.New(viper.GetString("api.serverUrl"), viper.GetString("api.apiKey"))
	if err := client.Healthcheck(ctx); err != nil {
		log.Warn("Replay server unavailable, skipping upload", "error", err)
		return
	}
	if err := client.Upload(ctx, path, up.GetExportMetadata()); err != nil {
		log.Error("Failed to upload replay", "path", path, "error", err)
		return
	}
	log.Info("Replay uploaded", "path", path)
}
