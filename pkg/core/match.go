// Package core holds the storage-neutral records of a simulated match. Every
// storage backend consumes these types.
package core

import "time"

// Position3D is a point on or above the pitch, in meters. X runs along the
// length of the pitch, Z is up.
type Position3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Match describes a recorded match
type Match struct {
	ID               uint
	Name             string
	HomeTeam         string
	AwayTeam         string
	PlayersPerTeam   int
	Seed             uint64
	MatchDuration    float64
	SymmetricMode    bool
	TuningVersion    string
	SimulatorVersion string
	Tag              string
	StartTime        time.Time
	Players          []Player
}

// Player is a roster entry.
type Player struct {
	ID     uint16
	TeamID uint8
	Name   string
	Role   string
}

// MatchResult is what EndMatch stores.
type MatchResult struct {
	Goals        [2]int
	PossessionMS [2]int
	MatchTimeMS  int
	Ticks        int
	EndTime      time.Time
}

// UploadMetadata is sent along with an exported replay.
type UploadMetadata struct {
	MatchName       string
	HomeTeam        string
	AwayTeam        string
	Score           [2]int
	MatchDurationMS int
	Tag             string
}
