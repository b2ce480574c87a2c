package session

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/onthepitch/matchsim/internal/geom"
	"github.com/onthepitch/matchsim/internal/match"
	"github.com/onthepitch/matchsim/internal/referee"
	"github.com/onthepitch/matchsim/internal/team"
	"github.com/onthepitch/matchsim/internal/worker"
	"github.com/onthepitch/matchsim/pkg/core"
)

// Publisher accepts match events. The dispatcher implements it.
type Publisher interface {
	Publish(command string, payload any) error
}

// RecorderConfig describes what the recorder stamps onto the match.
type RecorderConfig struct {
	Tag              string
	SimulatorVersion string
	// StartTime anchors event timestamps; records are stamped StartTime plus
	// the match's actual time. Zero means time.Now at creation.
	StartTime time.Time
}

// Recorder observes a match and publishes its lifecycle and records.
type Recorder struct {
	pub   Publisher
	ctx   *Context
	log   *slog.Logger
	cfg   RecorderConfig
	match *core.Match

	published atomic.Int64
	failed    atomic.Int64
}

var _ match.Observer = (*Recorder)(nil)

// NewRecorder creates a recorder publishing to pub.
func NewRecorder(pub Publisher, ctx *Context, log *slog.Logger, cfg RecorderConfig) *Recorder {
	if log == nil {
		log = slog.Default()
	}
	if ctx == nil {
		ctx = NewContext()
	}
	return &Recorder{pub: pub, ctx: ctx, log: log, cfg: cfg}
}

// Context returns the session context the recorder updates.
func (r *Recorder) Context() *Context { return r.ctx }

// Published returns how many events were accepted and how many failed.
func (r *Recorder) Published() (ok, failed int64) {
	return r.published.Load(), r.failed.Load()
}

func (r *Recorder) publish(command string, payload any) {
	if err := r.pub.Publish(command, payload); err != nil {
		r.failed.Add(1)
		r.log.Error("Failed to publish match event", "command", command, "error", err)
		return
	}
	r.published.Add(1)
}

func (r *Recorder) stamp(m *match.Match) time.Time {
	return r.cfg.StartTime.Add(time.Duration(m.ActualTimeMS()) * time.Millisecond)
}

func position(v geom.Vec) core.Position3D {
	return core.Position3D{X: v[0], Y: v[1], Z: v[2]}
}

// MatchCreated publishes the match and its roster.
func (r *Recorder) MatchCreated(m *match.Match) {
	if r.cfg.StartTime.IsZero() {
		r.cfg.StartTime = time.Now()
	}
	cfg := m.Config()
	arena := m.Arena()

	cm := &core.Match{
		Name:             cfg.TeamNames[0] + " vs " + cfg.TeamNames[1],
		HomeTeam:         cfg.TeamNames[0],
		AwayTeam:         cfg.TeamNames[1],
		PlayersPerTeam:   cfg.PlayersPerTeam,
		Seed:             cfg.Seed,
		MatchDuration:    cfg.MatchDuration,
		SymmetricMode:    cfg.SymmetricMode,
		TuningVersion:    m.Params().Version,
		SimulatorVersion: r.cfg.SimulatorVersion,
		Tag:              r.cfg.Tag,
		StartTime:        r.cfg.StartTime,
		Players:          make([]core.Player, len(arena.Players)),
	}
	for i := range arena.Players {
		p := &arena.Players[i]
		cm.Players[i] = core.Player{
			ID:     uint16(p.ID),
			TeamID: uint8(p.TeamID),
			Name:   p.Name,
			Role:   p.Role.String(),
		}
	}
	r.match = cm
	r.ctx.SetMatch(cm)
	r.publish(worker.CmdMatchStart, cm)
}

// GoalScored publishes a goal.
func (r *Recorder) GoalScored(m *match.Match, g match.GoalEvent) {
	e := &core.GoalEvent{
		Time:        r.stamp(m),
		Iteration:   uint(m.Iterations()),
		MatchTimeMS: g.MatchTimeMS,
		TeamID:      uint8(g.TeamID),
		OwnGoal:     g.OwnGoal,
		Score:       g.Score,
	}
	if g.Scorer != team.NoPlayer {
		id := uint16(g.Scorer)
		e.ScorerID = &id
		e.ScorerName = m.Arena().Player(g.Scorer).Name
	}
	r.publish(worker.CmdGoal, e)
}

// FoulTypeName maps a referee foul type to its recorded name.
func FoulTypeName(t int) string {
	switch t {
	case referee.FoulYellow:
		return "yellow"
	case referee.FoulRed:
		return "red"
	default:
		return "foul"
	}
}

// FoulCommitted publishes a whistled foul.
func (r *Recorder) FoulCommitted(m *match.Match, f referee.Foul) {
	e := &core.FoulEvent{
		Time:        r.stamp(m),
		Iteration:   uint(m.Iterations()),
		MatchTimeMS: m.MatchTimeMS(),
		Type:        FoulTypeName(f.Type),
		Position:    position(f.Position),
	}
	if f.Offender != team.NoPlayer {
		e.OffenderID = uint16(f.Offender)
	}
	if f.Victim != team.NoPlayer {
		e.VictimID = uint16(f.Victim)
	}
	r.publish(worker.CmdFoul, e)
}

// MatchExited publishes the result.
func (r *Recorder) MatchExited(m *match.Match) {
	data := m.Data()
	result := &core.MatchResult{
		Goals:        data.Goals,
		PossessionMS: data.PossessionMS,
		MatchTimeMS:  m.MatchTimeMS(),
		Ticks:        m.Iterations(),
		EndTime:      r.stamp(m),
	}
	r.publish(worker.CmdMatchEnd, result)
	r.ctx.EndMatch()
}

// Frame publishes the current state of the pitch.
func (r *Recorder) Frame(m *match.Match) {
	arena := m.Arena()
	f := &core.Frame{
		Iteration:    uint(m.Iterations()),
		Time:         r.stamp(m),
		ActualTimeMS: m.ActualTimeMS(),
		MatchTimeMS:  m.MatchTimeMS(),
		Phase:        m.Phase().String(),
		InPlay:       m.InPlay(),
		Ball:         position(m.Ball().Predict(0)),
		BallRotation: position(m.Ball().Rotation()),
		Players:      make([]core.PlayerState, len(arena.Players)),
	}
	for i := range arena.Players {
		p := &arena.Players[i]
		f.Players[i] = core.PlayerState{
			PlayerID:  uint16(p.ID),
			TeamID:    uint8(p.TeamID),
			Position:  position(p.Position),
			Direction: position(p.Direction),
			Function:  p.Function.String(),
			Active:    p.Active,
		}
	}
	r.publish(worker.CmdFrame, f)
}

// Possession publishes the possession picture. Tilt is the mean of the
// possession side history.
func (r *Recorder) Possession(m *match.Match) {
	var tilt float64
	if h := m.PossessionSideHistory(); len(h) > 0 {
		for _, v := range h {
			tilt += v
		}
		tilt /= float64(len(h))
	}
	s := &core.PossessionSample{
		Time:         r.stamp(m),
		Iteration:    uint(m.Iterations()),
		MatchTimeMS:  m.MatchTimeMS(),
		BestTeam:     int8(m.BestPossessionTeam()),
		DesignatedID: uint16(m.DesignatedPossessionPlayer()),
		Tilt:         tilt,
		PossessionMS: m.Data().PossessionMS,
	}
	r.publish(worker.CmdPossession, s)
}

// Telemetry publishes a performance sample while a match is recorded.
func (r *Recorder) Telemetry(t *core.TelemetryEvent) {
	if !r.ctx.Active() {
		return
	}
	r.publish(worker.CmdTelemetry, t)
}
