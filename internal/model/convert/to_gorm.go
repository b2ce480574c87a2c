// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"database/sql"
	"encoding/json"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"

	"github.com/onthepitch/matchsim/internal/model"
	"github.com/onthepitch/matchsim/pkg/core"
)

// positionToPoint drops Z; callers store height separately where it matters.
func positionToPoint(p core.Position3D) geom.Point {
	return geom.NewPoint(geom.Coordinates{XY: geom.XY{X: p.X, Y: p.Y}, Type: geom.DimXY})
}

// PathToLineString converts a ball path to a geom.LineString. Fewer than two
// positions give an empty line.
func PathToLineString(path []core.Position3D) geom.LineString {
	if len(path) < 2 {
		return geom.LineString{}
	}
	coords := make([]float64, 0, len(path)*3)
	for _, p := range path {
		coords = append(coords, p.X, p.Y, p.Z)
	}
	seq := geom.NewSequence(coords, geom.DimXYZ)
	return geom.NewLineString(seq)
}

func toJSON(v any, empty string) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return datatypes.JSON(empty)
	}
	return datatypes.JSON(data)
}

// CoreToMatch converts a core.Match to a GORM model.Match.
// Players are converted separately so they can be inserted with the match ID.
func CoreToMatch(m core.Match) model.Match {
	return model.Match{
		Name:             m.Name,
		HomeTeam:         m.HomeTeam,
		AwayTeam:         m.AwayTeam,
		PlayersPerTeam:   uint8(m.PlayersPerTeam),
		Seed:             int64(m.Seed),
		MatchDuration:    float32(m.MatchDuration),
		SymmetricMode:    m.SymmetricMode,
		TuningVersion:    m.TuningVersion,
		SimulatorVersion: m.SimulatorVersion,
		Tag:              m.Tag,
		StartTime:        m.StartTime,
		Settings:         datatypes.JSON("{}"),
	}
}

// CoreToPlayers converts the roster of a match.
func CoreToPlayers(matchID uint, players []core.Player) []model.Player {
	out := make([]model.Player, len(players))
	for i, p := range players {
		out[i] = model.Player{
			MatchID:  matchID,
			PlayerID: p.ID,
			TeamID:   p.TeamID,
			Name:     p.Name,
			Role:     p.Role,
		}
	}
	return out
}

// CoreToMatchResult converts the end-of-match summary.
func CoreToMatchResult(r core.MatchResult) model.MatchResult {
	return model.MatchResult{
		HomeGoals:        uint8(r.Goals[0]),
		AwayGoals:        uint8(r.Goals[1]),
		HomePossessionMs: uint(r.PossessionMS[0]),
		AwayPossessionMs: uint(r.PossessionMS[1]),
		MatchTimeMs:      uint(r.MatchTimeMS),
		Ticks:            uint(r.Ticks),
	}
}

// CoreToFrame converts a core.Frame to a GORM model.Frame.
func CoreToFrame(f core.Frame) model.Frame {
	return model.Frame{
		Iteration:    f.Iteration,
		Time:         f.Time,
		ActualTimeMs: uint(f.ActualTimeMS),
		MatchTimeMs:  uint(f.MatchTimeMS),
		Phase:        f.Phase,
		InPlay:       f.InPlay,
		Ball:         positionToPoint(f.Ball),
		BallHeight:   float32(f.Ball.Z),
		BallRotation: toJSON(f.BallRotation, "{}"),
		Players:      toJSON(f.Players, "[]"),
	}
}

// CoreToGoalEvent converts a core.GoalEvent to a GORM model.GoalEvent.
func CoreToGoalEvent(e core.GoalEvent) model.GoalEvent {
	var scorer sql.NullInt32
	if e.ScorerID != nil {
		scorer = sql.NullInt32{Int32: int32(*e.ScorerID), Valid: true}
	}
	return model.GoalEvent{
		ID:          e.ID,
		Time:        e.Time,
		Iteration:   e.Iteration,
		MatchTimeMs: uint(e.MatchTimeMS),
		TeamID:      e.TeamID,
		ScorerID:    scorer,
		ScorerName:  e.ScorerName,
		OwnGoal:     e.OwnGoal,
		HomeScore:   uint8(e.Score[0]),
		AwayScore:   uint8(e.Score[1]),
	}
}

// CoreToFoulEvent converts a core.FoulEvent to a GORM model.FoulEvent.
func CoreToFoulEvent(e core.FoulEvent) model.FoulEvent {
	return model.FoulEvent{
		ID:          e.ID,
		Time:        e.Time,
		Iteration:   e.Iteration,
		MatchTimeMs: uint(e.MatchTimeMS),
		Type:        e.Type,
		OffenderID:  e.OffenderID,
		VictimID:    e.VictimID,
		Position:    positionToPoint(e.Position),
	}
}

// CoreToPossessionSample converts a core.PossessionSample to a GORM model.PossessionSample.
func CoreToPossessionSample(s core.PossessionSample) model.PossessionSample {
	return model.PossessionSample{
		Time:             s.Time,
		Iteration:        s.Iteration,
		MatchTimeMs:      uint(s.MatchTimeMS),
		BestTeam:         s.BestTeam,
		DesignatedID:     s.DesignatedID,
		Tilt:             float32(s.Tilt),
		HomePossessionMs: uint(s.PossessionMS[0]),
		AwayPossessionMs: uint(s.PossessionMS[1]),
	}
}

// CoreToSimPerformance converts a core.TelemetryEvent to a GORM model.SimPerformance.
func CoreToSimPerformance(e core.TelemetryEvent) model.SimPerformance {
	return model.SimPerformance{
		Time:           e.Time,
		Iteration:      e.Iteration,
		TicksPerSecond: float32(e.TicksPerSecond),
		StepAvgMs:      float32(e.StepAvgMS),
		StepMaxMs:      float32(e.StepMaxMS),
		QueueDepth:     uint32(e.QueueDepth),
		HeapAllocBytes: e.HeapAllocBytes,
		Goroutines:     uint16(e.Goroutines),
	}
}
