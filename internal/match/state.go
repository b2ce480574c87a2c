package match

import (
	"fmt"

	"github.com/onthepitch/matchsim/internal/envstate"
)

// ProcessState walks the whole match in a fixed order. Team-indexed values are
// walked in processing order so a match with reversed team processing stores the
// same bytes as its mirror image. Render-only values are walked with validation
// switched off.
func (m *Match) ProcessState(s *envstate.State) {
	first, second := m.firstTeam, 1-m.firstTeam

	m.mental.ProcessState(s)
	for _, tid := range []int{first, second} {
		for _, id := range m.arena.Teams[tid].Players {
			m.arena.Player(id).ProcessState(s)
		}
	}

	envstate.Process(s, &m.data.Goals[first])
	envstate.Process(s, &m.data.Goals[second])
	envstate.Process(s, &m.data.PossessionMS[first])
	envstate.Process(s, &m.data.PossessionMS[second])
	m.arena.Teams[first].ProcessState(s)
	m.arena.Teams[second].ProcessState(s)
	m.officials.ProcessState(s)

	s.SetValidate(false)
	for _, tid := range []int{first, second} {
		for _, id := range m.arena.Teams[tid].Players {
			envstate.Process(s, &m.arena.Player(id).ExternalController)
		}
	}
	s.SetValidate(true)

	m.ball.ProcessState(s)

	envstate.Process(s, &m.iterations)
	envstate.Process(s, &m.matchTimeMS)
	envstate.Process(s, &m.actualTimeMS)
	envstate.Process(s, &m.goalScoredTimer)
	envstate.Process(s, &m.pause)
	envstate.Process(s, &m.phase)
	envstate.Process(s, &m.inPlay)
	envstate.Process(s, &m.inSetPiece)
	envstate.Process(s, &m.goalScored)
	envstate.Process(s, &m.ballIsInGoal)
	m.processTeamID(s, &m.lastGoalTeam)
	envstate.Process(s, &m.lastGoalScorer)
	m.processTeamID(s, &m.setPieceTeam)
	for i := range m.lastTouchTeamIDs {
		m.processTeamID(s, &m.lastTouchTeamIDs[i])
	}
	m.processTeamID(s, &m.lastTouchTeamID)
	m.processTeamID(s, &m.bestPossessionTeam)
	envstate.Process(s, &m.designated)
	envstate.Process(s, &m.ballRetainer)

	envstate.ProcessBounded[float64](s, m.possessionSide)
	envstate.Process(s, &m.autoCamera)

	s.SetValidate(false)
	m.cam.ProcessState(s)
	envstate.Process(s, &m.lastBallCollision)
	m.cam.ProcessHistory(s)
	s.SetValidate(true)

	m.referee.ProcessState(s)
	m.processRand(s)

	if s.Load() {
		m.resetNetting = true
		m.nettingChanged = true
	}
}

// processTeamID walks a team index relative to the first processed team.
func (m *Match) processTeamID(s *envstate.State, id *int) {
	rel := m.relativeTeam(*id)
	envstate.Process(s, &rel)
	if s.Load() {
		*id = m.relativeTeam(rel)
	}
}

// relativeTeam swaps 0 and 1 when team 1 is processed first. -1 stays -1.
func (m *Match) relativeTeam(id int) int {
	if m.firstTeam == 1 && id != -1 {
		return 1 - id
	}
	return id
}

func (m *Match) processRand(s *envstate.State) {
	raw, err := m.src.MarshalBinary()
	if err != nil {
		panic(fmt.Sprintf("match: marshal random source: %v", err))
	}
	envstate.ProcessSlice(s, &raw)
	if s.Load() && s.Err() == nil {
		if err := m.src.UnmarshalBinary(raw); err != nil {
			s.Fail(fmt.Errorf("%w: random source: %v", envstate.ErrCorrupt, err))
		}
	}
}

// SaveState encodes the match.
func (m *Match) SaveState() ([]byte, error) {
	s := envstate.NewSaver()
	m.ProcessState(s)
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("save match state: %w", err)
	}
	return s.Bytes(), nil
}

// LoadState restores a match saved with SaveState.
func (m *Match) LoadState(data []byte) error {
	s := envstate.NewLoader(data)
	m.ProcessState(s)
	if err := s.Finish(); err != nil {
		return fmt.Errorf("load match state: %w", err)
	}
	return nil
}

// ValidateState compares the match against a saved state. A difference wraps
// envstate.ErrMismatch.
func (m *Match) ValidateState(data []byte) error {
	s := envstate.NewValidator(data)
	m.ProcessState(s)
	if err := s.Finish(); err != nil {
		return fmt.Errorf("validate match state: %w", err)
	}
	return nil
}
