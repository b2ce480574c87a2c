package convert

import (
	"encoding/json"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/onthepitch/matchsim/internal/model"
	"github.com/onthepitch/matchsim/pkg/core"
)

// pointToPosition converts a geom.Point to a core.Position3D on the ground.
func pointToPosition(p geom.Point) core.Position3D {
	coord, ok := p.Coordinates()
	if !ok {
		return core.Position3D{}
	}
	return core.Position3D{X: coord.XY.X, Y: coord.XY.Y}
}

// LineStringToPath converts a geom.LineString back to a ball path.
func LineStringToPath(ls geom.LineString) []core.Position3D {
	seq := ls.Coordinates()
	if seq.Length() == 0 {
		return nil
	}
	path := make([]core.Position3D, seq.Length())
	for i := 0; i < seq.Length(); i++ {
		c := seq.Get(i)
		path[i] = core.Position3D{X: c.XY.X, Y: c.XY.Y, Z: c.Z}
	}
	return path
}

// MatchToCore converts a GORM Match and its roster to a core.Match.
func MatchToCore(m model.Match) core.Match {
	players := make([]core.Player, len(m.Players))
	for i, p := range m.Players {
		players[i] = core.Player{ID: p.PlayerID, TeamID: p.TeamID, Name: p.Name, Role: p.Role}
	}
	return core.Match{
		ID:               m.ID,
		Name:             m.Name,
		HomeTeam:         m.HomeTeam,
		AwayTeam:         m.AwayTeam,
		PlayersPerTeam:   int(m.PlayersPerTeam),
		Seed:             uint64(m.Seed),
		MatchDuration:    float64(m.MatchDuration),
		SymmetricMode:    m.SymmetricMode,
		TuningVersion:    m.TuningVersion,
		SimulatorVersion: m.SimulatorVersion,
		Tag:              m.Tag,
		StartTime:        m.StartTime,
		Players:          players,
	}
}

// MatchResultToCore converts the stored summary of a match.
func MatchResultToCore(m model.Match) core.MatchResult {
	r := core.MatchResult{
		Goals:        [2]int{int(m.Result.HomeGoals), int(m.Result.AwayGoals)},
		PossessionMS: [2]int{int(m.Result.HomePossessionMs), int(m.Result.AwayPossessionMs)},
		MatchTimeMS:  int(m.Result.MatchTimeMs),
		Ticks:        int(m.Result.Ticks),
	}
	if m.EndTime.Valid {
		r.EndTime = m.EndTime.Time
	}
	return r
}

// FrameToCore converts a GORM Frame to a core.Frame.
func FrameToCore(f model.Frame) core.Frame {
	out := core.Frame{
		Iteration:    f.Iteration,
		Time:         f.Time,
		ActualTimeMS: int(f.ActualTimeMs),
		MatchTimeMS:  int(f.MatchTimeMs),
		Phase:        f.Phase,
		InPlay:       f.InPlay,
		Ball:         pointToPosition(f.Ball),
	}
	out.Ball.Z = float64(f.BallHeight)
	if len(f.BallRotation) > 0 {
		_ = json.Unmarshal(f.BallRotation, &out.BallRotation)
	}
	if len(f.Players) > 0 {
		_ = json.Unmarshal(f.Players, &out.Players)
	}
	return out
}

// GoalEventToCore converts a GORM GoalEvent to a core.GoalEvent.
func GoalEventToCore(e model.GoalEvent) core.GoalEvent {
	out := core.GoalEvent{
		ID:          e.ID,
		Time:        e.Time,
		Iteration:   e.Iteration,
		MatchTimeMS: int(e.MatchTimeMs),
		TeamID:      e.TeamID,
		ScorerName:  e.ScorerName,
		OwnGoal:     e.OwnGoal,
		Score:       [2]int{int(e.HomeScore), int(e.AwayScore)},
	}
	if e.ScorerID.Valid {
		id := uint16(e.ScorerID.Int32)
		out.ScorerID = &id
	}
	return out
}

// FoulEventToCore converts a GORM FoulEvent to a core.FoulEvent.
func FoulEventToCore(e model.FoulEvent) core.FoulEvent {
	return core.FoulEvent{
		ID:          e.ID,
		Time:        e.Time,
		Iteration:   e.Iteration,
		MatchTimeMS: int(e.MatchTimeMs),
		Type:        e.Type,
		OffenderID:  e.OffenderID,
		VictimID:    e.VictimID,
		Position:    pointToPosition(e.Position),
	}
}

// PossessionSampleToCore converts a GORM PossessionSample to a core.PossessionSample.
func PossessionSampleToCore(s model.PossessionSample) core.PossessionSample {
	return core.PossessionSample{
		Time:         s.Time,
		Iteration:    s.Iteration,
		MatchTimeMS:  int(s.MatchTimeMs),
		BestTeam:     s.BestTeam,
		DesignatedID: s.DesignatedID,
		Tilt:         float64(s.Tilt),
		PossessionMS: [2]int{int(s.HomePossessionMs), int(s.AwayPossessionMs)},
	}
}
