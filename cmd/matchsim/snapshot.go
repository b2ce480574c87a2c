package main

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/onthepitch/matchsim/internal/match"
	"github.com/onthepitch/matchsim/internal/tuning"
)

const snapshotVersion = 1

// snapshotFile is a saved match with a check point: Before is the state after
// Ticks steps and After the state Steps steps later.
type snapshotFile struct {
	Version          int           `msgpack:"version"`
	SimulatorVersion string        `msgpack:"simulatorVersion"`
	Config           match.Config  `msgpack:"config"`
	Tuning           tuning.Params `msgpack:"tuning"`
	Ticks            int           `msgpack:"ticks"`
	Steps            int           `msgpack:"steps"`
	Before           []byte        `msgpack:"before"`
	After            []byte        `msgpack:"after"`
}

func writeSnapshot(path string, s *snapshotFile) error {
	s.Version = snapshotVersion
	data, err := msgpack.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

func readSnapshot(path string) (*snapshotFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var s snapshotFile
	if err := msgpack.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", path, err)
	}
	if s.Version != snapshotVersion {
		return nil, fmt.Errorf("snapshot %s has version %d, want %d", path, s.Version, snapshotVersion)
	}
	if len(s.Before) == 0 {
		return nil, fmt.Errorf("snapshot %s holds no state", path)
	}
	return &s, nil
}
