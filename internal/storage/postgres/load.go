package postgres

import (
	"fmt"

	"github.com/onthepitch/matchsim/internal/model"
	"github.com/onthepitch/matchsim/internal/model/convert"
	"github.com/onthepitch/matchsim/pkg/core"
)

// StoredMatch is a match read back from the database.
type StoredMatch struct {
	Match      core.Match
	Result     core.MatchResult
	Frames     []core.Frame
	Goals      []core.GoalEvent
	Fouls      []core.FoulEvent
	Possession []core.PossessionSample
}

// LoadMatch reads a stored match with all its records, ordered by iteration.
func (b *Backend) LoadMatch(id uint) (*StoredMatch, error) {
	db := b.deps.DB

	var m model.Match
	if err := db.Preload("Players").First(&m, id).Error; err != nil {
		return nil, fmt.Errorf("load match %d: %w", id, err)
	}

	var frames []model.Frame
	if err := db.Where("match_id = ?", id).Order("iteration").Find(&frames).Error; err != nil {
		return nil, fmt.Errorf("load frames: %w", err)
	}
	var goals []model.GoalEvent
	if err := db.Where("match_id = ?", id).Order("iteration").Find(&goals).Error; err != nil {
		return nil, fmt.Errorf("load goals: %w", err)
	}
	var fouls []model.FoulEvent
	if err := db.Where("match_id = ?", id).Order("iteration").Find(&fouls).Error; err != nil {
		return nil, fmt.Errorf("load fouls: %w", err)
	}
	var samples []model.PossessionSample
	if err := db.Where("match_id = ?", id).Order("iteration").Find(&samples).Error; err != nil {
		return nil, fmt.Errorf("load possession: %w", err)
	}

	out := &StoredMatch{
		Match:      convert.MatchToCore(m),
		Result:     convert.MatchResultToCore(m),
		Frames:     make([]core.Frame, len(frames)),
		Goals:      make([]core.GoalEvent, len(goals)),
		Fouls:      make([]core.FoulEvent, len(fouls)),
		Possession: make([]core.PossessionSample, len(samples)),
	}
	for i, f := range frames {
		out.Frames[i] = convert.FrameToCore(f)
	}
	for i, g := range goals {
		out.Goals[i] = convert.GoalEventToCore(g)
	}
	for i, f := range fouls {
		out.Fouls[i] = convert.FoulEventToCore(f)
	}
	for i, s := range samples {
		out.Possession[i] = convert.PossessionSampleToCore(s)
	}
	return out, nil
}

// Replay feeds a stored match into another backend, for example to export
// it as a replay file.
func (s *StoredMatch) Replay(dst interface {
	StartMatch(*core.Match) error
	EndMatch(*core.MatchResult) error
	RecordFrame(*core.Frame) error
	RecordGoal(*core.GoalEvent) error
	RecordFoul(*core.FoulEvent) error
	RecordPossession(*core.PossessionSample) error
}) error {
	m := s.Match
	if err := dst.StartMatch(&m); err != nil {
		return err
	}
	for i := range s.Frames {
		if err := dst.RecordFrame(&s.Frames[i]); err != nil {
			return err
		}
	}
	for i := range s.Goals {
		if err := dst.RecordGoal(&s.Goals[i]); err != nil {
			return err
		}
	}
	for i := range s.Fouls {
		if err := dst.RecordFoul(&s.Fouls[i]); err != nil {
			return err
		}
	}
	for i := range s.Possession {
		if err := dst.RecordPossession(&s.Possession[i]); err != nil {
			return err
		}
	}
	r := s.Result
	return dst.EndMatch(&r)
}
