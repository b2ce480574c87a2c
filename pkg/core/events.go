package core

import (
	"time"
)

// PlayerState is one player in a recorded frame.
type PlayerState struct {
	PlayerID  uint16
	TeamID    uint8
	Position  Position3D
	Direction Position3D
	Function  string
	Active    bool
}

// Frame is a sampled step of the match.
type Frame struct {
	Iteration    uint
	Time         time.Time
	ActualTimeMS int
	MatchTimeMS  int
	Phase        string
	InPlay       bool
	Ball         Position3D
	BallRotation Position3D
	Players      []PlayerState
}

// GoalEvent represents a goal.
// ScorerID is nil when nobody touched the ball before it went in.
type GoalEvent struct {
	ID          uint
	Time        time.Time
	Iteration   uint
	MatchTimeMS int
	TeamID      uint8
	ScorerID    *uint16
	ScorerName  string
	OwnGoal     bool
	Score       [2]int
}

// FoulEvent represents a whistled foul. Type is "foul", "yellow" or "red".
type FoulEvent struct {
	ID          uint
	Time        time.Time
	Iteration   uint
	MatchTimeMS int
	Type        string
	OffenderID  uint16
	VictimID    uint16
	Position    Position3D
}

// PossessionSample is the possession picture once per recorded interval.
// BestTeam is -1 while the ball is contested.
type PossessionSample struct {
	Time         time.Time
	Iteration    uint
	MatchTimeMS  int
	BestTeam     int8
	DesignatedID uint16
	Tilt         float64
	PossessionMS [2]int
}

// TelemetryEvent is a performance snapshot of the simulator.
type TelemetryEvent struct {
	Time           time.Time
	Iteration      uint
	TicksPerSecond float64
	StepAvgMS      float64
	StepMaxMS      float64
	QueueDepth     int
	HeapAllocBytes uint64
	Goroutines     int
}
