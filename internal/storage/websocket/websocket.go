// Package websocket streams a match live to a replay server.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/onthepitch/matchsim/internal/storage"
	"github.com/onthepitch/matchsim/pkg/core"
	"github.com/onthepitch/matchsim/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL    string
	Secret string
}

// Backend streams match data over WebSocket.
// It implements storage.Backend but not storage.Uploadable.
type Backend struct {
	conn    *connection
	cfg     Config
	started atomic.Bool
}

var _ storage.Backend = (*Backend)(nil)

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("backend", "websocket")),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Dropped is the number of messages lost to a full send queue.
func (b *Backend) Dropped() int64 { return b.conn.dropped.Load() }

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

func (b *Backend) sendEnvelope(msgType string, payload any) error {
	if !b.started.Load() {
		return storage.ErrNotStarted
	}
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartMatch sends the match header and waits for the server ack.
func (b *Backend) StartMatch(m *core.Match) error {
	data, err := marshalEnvelope(streaming.TypeStartMatch, streaming.StartMatchPayload{Match: m})
	if err != nil {
		return err
	}
	b.conn.setStartMessage(data)
	if err := b.conn.sendAndWait(data, streaming.TypeStartMatch, ackTimeout); err != nil {
		return err
	}
	b.started.Store(true)
	return nil
}

// EndMatch sends the result and waits for the server ack.
func (b *Backend) EndMatch(r *core.MatchResult) error {
	if !b.started.Load() {
		return storage.ErrNotStarted
	}
	data, err := marshalEnvelope(streaming.TypeEndMatch, streaming.EndMatchPayload{Result: r})
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeEndMatch, ackTimeout)

	b.conn.setStartMessage(nil)
	b.started.Store(false)
	return err
}

func (b *Backend) RecordFrame(f *core.Frame) error {
	return b.sendEnvelope(streaming.TypeFrame, f)
}

func (b *Backend) RecordGoal(e *core.GoalEvent) error {
	return b.sendEnvelope(streaming.TypeGoal, e)
}

func (b *Backend) RecordFoul(e *core.FoulEvent) error {
	return b.sendEnvelope(streaming.TypeFoul, e)
}

func (b *Backend) RecordPossession(s *core.PossessionSample) error {
	return b.sendEnvelope(streaming.TypePossession, s)
}

func (b *Backend) RecordTelemetry(e *core.TelemetryEvent) error {
	return b.sendEnvelope(streaming.TypeTelemetry, e)
}
