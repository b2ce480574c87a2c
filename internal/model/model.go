package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&SimulatorInfo{},
	&Match{},
	&Player{},
	&Frame{},
	&GoalEvent{},
	&FoulEvent{},
	&PossessionSample{},
	&SimPerformance{},
}

////////////////////////
// SYSTEM MODELS
////////////////////////

// SimulatorInfo records which simulator builds have written to this database
type SimulatorInfo struct {
	gorm.Model
	SimulatorVersion string `json:"simulatorVersion" gorm:"size:64;uniqueIndex"`
	TuningVersion    string `json:"tuningVersion" gorm:"size:64"`
}

func (*SimulatorInfo) TableName() string {
	return "simulator_infos"
}

// SimPerformance is one per-second telemetry sample of the running match
type SimPerformance struct {
	ID                  uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time                time.Time `json:"time" gorm:"index:idx_simperformance_time"`
	MatchID             uint      `json:"matchId" gorm:"index:idx_simperformance_match_id"`
	Match               Match     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Iteration           uint      `json:"iteration"`
	TicksPerSecond      float32   `json:"ticksPerSecond"`
	StepAvgMs           float32   `json:"stepAvgMs"`
	StepMaxMs           float32   `json:"stepMaxMs"`
	QueueDepth          uint32    `json:"queueDepth"`
	HeapAllocBytes      uint64    `json:"heapAllocBytes"`
	Goroutines          uint16    `json:"goroutines"`
	LastWriteDurationMs float32   `json:"lastWriteDurationMs"`
}

func (*SimPerformance) TableName() string {
	return "sim_performances"
}

////////////////////////
// RECORDING MODELS
////////////////////////

// Match is one simulated match
type Match struct {
	gorm.Model
	Name             string         `json:"name" gorm:"size:200"`
	HomeTeam         string         `json:"homeTeam" gorm:"size:127"`
	AwayTeam         string         `json:"awayTeam" gorm:"size:127"`
	PlayersPerTeam   uint8          `json:"playersPerTeam"`
	Seed             int64          `json:"seed"` // uint64 seed stored bit-for-bit
	MatchDuration    float32        `json:"matchDuration" gorm:"default:1.0"`
	SymmetricMode    bool           `json:"symmetricMode"`
	TuningVersion    string         `json:"tuningVersion" gorm:"size:64"`
	SimulatorVersion string         `json:"simulatorVersion" gorm:"size:64"`
	Tag              string         `json:"tag" gorm:"size:127"`
	StartTime        time.Time      `json:"startTime" gorm:"index:idx_match_start"`
	EndTime          sql.NullTime   `json:"endTime"`
	Result           MatchResult    `json:"result" gorm:"embedded;embeddedPrefix:result_"`
	Settings         datatypes.JSON `json:"settings"`

	Players           []Player
	GoalEvents        []GoalEvent
	FoulEvents        []FoulEvent
	PossessionSamples []PossessionSample
}

func (*Match) TableName() string {
	return "matches"
}

// MatchResult is filled in when the match ends
type MatchResult struct {
	HomeGoals        uint8 `json:"homeGoals"`
	AwayGoals        uint8 `json:"awayGoals"`
	HomePossessionMs uint  `json:"homePossessionMs"`
	AwayPossessionMs uint  `json:"awayPossessionMs"`
	MatchTimeMs      uint  `json:"matchTimeMs"`
	Ticks            uint  `json:"ticks"`
}

// Player is a roster entry
// Uses composite primary key (MatchID, PlayerID)
type Player struct {
	MatchID  uint   `json:"matchId" gorm:"primaryKey;autoIncrement:false"`
	PlayerID uint16 `json:"playerId" gorm:"primaryKey;autoIncrement:false"`
	Match    Match  `gorm:"foreignkey:MatchID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	TeamID   uint8  `json:"teamId"`
	Name     string `json:"name" gorm:"size:64"`
	Role     string `json:"role" gorm:"size:16"`
}

func (*Player) TableName() string {
	return "players"
}

// Frame is a recorded snapshot of the pitch
// Uses composite primary key (MatchID, Iteration)
type Frame struct {
	MatchID      uint           `json:"matchId" gorm:"primaryKey;autoIncrement:false"`
	Iteration    uint           `json:"iteration" gorm:"primaryKey;autoIncrement:false"`
	Match        Match          `gorm:"foreignkey:MatchID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	Time         time.Time      `json:"time"`
	ActualTimeMs uint           `json:"actualTimeMs"`
	MatchTimeMs  uint           `json:"matchTimeMs" gorm:"index:idx_frame_match_time"`
	Phase        string         `json:"phase" gorm:"size:32"`
	InPlay       bool           `json:"inPlay"`
	Ball         geom.Point     `json:"ball"`       // ground position of the ball
	BallHeight   float32        `json:"ballHeight"` // Z coordinate
	BallRotation datatypes.JSON `json:"ballRotation"`
	Players      datatypes.JSON `json:"players"` // []core.PlayerState
}

func (*Frame) TableName() string {
	return "frames"
}

// GoalEvent is a goal, own goals included
type GoalEvent struct {
	ID          uint          `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time     `json:"time"`
	MatchID     uint          `json:"matchId" gorm:"index:idx_goalevent_match_id"`
	Match       Match         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Iteration   uint          `json:"iteration"`
	MatchTimeMs uint          `json:"matchTimeMs"`
	TeamID      uint8         `json:"teamId"`                       // team credited with the goal
	ScorerID    sql.NullInt32 `json:"scorerId" gorm:"default:NULL"` // null when nobody touched the ball
	ScorerName  string        `json:"scorerName" gorm:"size:64"`
	OwnGoal     bool          `json:"ownGoal"`
	HomeScore   uint8         `json:"homeScore"`
	AwayScore   uint8         `json:"awayScore"`

	// ball path over the frames leading up to the goal
	Approach geom.LineString `json:"approach"`
}

func (*GoalEvent) TableName() string {
	return "goal_events"
}

// FoulEvent is a foul, optionally carded
type FoulEvent struct {
	ID          uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time  `json:"time"`
	MatchID     uint       `json:"matchId" gorm:"index:idx_foulevent_match_id"`
	Match       Match      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Iteration   uint       `json:"iteration"`
	MatchTimeMs uint       `json:"matchTimeMs"`
	Type        string     `json:"type" gorm:"size:16"` // foul, yellow, red
	OffenderID  uint16     `json:"offenderId"`
	VictimID    uint16     `json:"victimId"`
	Position    geom.Point `json:"position"`
}

func (*FoulEvent) TableName() string {
	return "foul_events"
}

// PossessionSample tracks who controls the game
type PossessionSample struct {
	ID               uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time             time.Time `json:"time"`
	MatchID          uint      `json:"matchId" gorm:"index:idx_possession_match_id"`
	Match            Match     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:MatchID;"`
	Iteration        uint      `json:"iteration"`
	MatchTimeMs      uint      `json:"matchTimeMs"`
	BestTeam         int8      `json:"bestTeam"` // -1 when tied
	DesignatedID     uint16    `json:"designatedId"`
	Tilt             float32   `json:"tilt"`
	HomePossessionMs uint      `json:"homePossessionMs"`
	AwayPossessionMs uint      `json:"awayPossessionMs"`
}

func (*PossessionSample) TableName() string {
	return "possession_samples"
}
