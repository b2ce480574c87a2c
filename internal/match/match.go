// Package match runs one soccer match at a fixed 10ms step: ball and player
// physics, collision resolution, possession, refereeing, goals, the broadcast
// camera and the deterministic state traversal used for snapshots and replays.
package match

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/onthepitch/matchsim/internal/ball"
	"github.com/onthepitch/matchsim/internal/camera"
	"github.com/onthepitch/matchsim/internal/geom"
	"github.com/onthepitch/matchsim/internal/humanoid"
	"github.com/onthepitch/matchsim/internal/mental"
	"github.com/onthepitch/matchsim/internal/referee"
	"github.com/onthepitch/matchsim/internal/ring"
	"github.com/onthepitch/matchsim/internal/team"
	"github.com/onthepitch/matchsim/internal/tuning"
)

// Config is the scenario a match is created with.
type Config struct {
	TeamNames [2]string
	// MatchDuration scales the match clock: 1.0 plays 90 minutes of match time
	// in 22.5 minutes of simulated time.
	MatchDuration         float64
	SymmetricMode         bool
	ReverseTeamProcessing bool
	Render                bool
	PhysicsStepsPerFrame  int
	PlayersPerTeam        int
	Seed                  uint64
	Camera                camera.Settings
}

// DefaultConfig returns a full-length eleven-a-side match.
func DefaultConfig() Config {
	return Config{
		TeamNames:            [2]string{"Home", "Away"},
		MatchDuration:        1.0,
		SymmetricMode:        true,
		PhysicsStepsPerFrame: 10,
		PlayersPerTeam:       team.MaxPlayers,
		Seed:                 1,
		Camera:               camera.DefaultSettings(),
	}
}

// Display shows the scoreboard and the message caption.
type Display interface {
	SetGoalCount(teamID, goals int)
	SetClock(clock string)
	ShowCaption(msg string)
	HideCaption()
}

// AdboardSource enumerates the adboard textures and the placeholders in the
// stadium that take one.
type AdboardSource interface {
	Textures() []string
	Placeholders() int
	Assign(placeholder int, texture string)
}

// GoalEvent describes a goal as it is scored.
type GoalEvent struct {
	TeamID      int
	Scorer      team.PlayerID
	OwnGoal     bool
	MatchTimeMS int
	Score       [2]int
}

// Observer is told about the match lifecycle.
type Observer interface {
	MatchCreated(m *Match)
	GoalScored(m *Match, g GoalEvent)
	FoulCommitted(m *Match, f referee.Foul)
	MatchExited(m *Match)
}

// Context carries the collaborators a match is built with. Nil fields get a
// no-op or default implementation.
type Context struct {
	Body      humanoid.Model
	Display   Display
	Renderer  Renderer
	Adboards  AdboardSource
	Logger    *slog.Logger
	Observers []Observer
}

// SideSelection binds an external controller to a team: side -1 is team 0 and
// side 1 is team 1. Any other side leaves the controller unused.
type SideSelection struct {
	ControllerID int
	Side         int
}

// MatchData is the score sheet.
type MatchData struct {
	Goals        [2]int
	PossessionMS [2]int
}

// Match is one running game.
type Match struct {
	cfg    Config
	params tuning.Params
	body   humanoid.Model
	disp   Display
	rend   Renderer
	ads    AdboardSource
	log    *slog.Logger
	obs    []Observer

	src        *rand.PCG
	rnd        *rand.Rand
	renderRand *rand.Rand

	arena     *team.Arena
	ball      *ball.Ball
	referee   *referee.Referee
	officials *referee.Officials
	mental    *mental.Ring
	cam       *camera.Camera
	data      MatchData
	sides     []SideSelection

	firstTeam      int
	durationFactor float64

	iterations      int
	matchTimeMS     int
	actualTimeMS    int
	goalScoredTimer int
	pause           bool
	phase           referee.Phase
	inPlay          bool
	inSetPiece      bool
	setPieceTeam    int
	goalScored      bool
	ballIsInGoal    bool
	lastGoalTeam    int
	lastGoalScorer  team.PlayerID

	lastTouchTeamIDs   [team.TouchTypes]int
	lastTouchTeamID    int
	bestPossessionTeam int
	designated         team.PlayerID
	ballRetainer       team.PlayerID
	possessionSide     *ring.Ring[float64]
	autoCamera         bool
	lastBallCollision  int

	caption         string
	captionRemoveMS int
	netting         [2]*Netting
	resetNetting    bool
	nettingChanged  bool
	put             putBuffers

	exited bool
}

// New builds a match lined up for the opening kick-off.
func New(cfg Config, params tuning.Params, ctx Context) (*Match, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid tuning table: %w", err)
	}
	if cfg.MatchDuration <= 0 {
		return nil, fmt.Errorf("match duration must be positive, got %v", cfg.MatchDuration)
	}
	if cfg.PhysicsStepsPerFrame <= 0 {
		return nil, fmt.Errorf("physics steps per frame must be positive, got %d", cfg.PhysicsStepsPerFrame)
	}
	arena, err := team.NewArena(cfg.TeamNames, cfg.PlayersPerTeam)
	if err != nil {
		return nil, fmt.Errorf("create teams: %w", err)
	}

	m := &Match{
		cfg:                cfg,
		params:             params,
		body:               ctx.Body,
		disp:               ctx.Display,
		rend:               ctx.Renderer,
		ads:                ctx.Adboards,
		log:                ctx.Logger,
		obs:                slices.Clone(ctx.Observers),
		src:                rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15),
		renderRand:         rand.New(rand.NewPCG(cfg.Seed+1, 0x5851f42d4c957f2d)),
		arena:              arena,
		ball:               ball.New(params),
		referee:            referee.New(),
		officials:          referee.NewOfficials(params.Pitch),
		mental:             mental.NewRing(params.Match.MentalImages, params.Match.StepMS),
		durationFactor:     cfg.MatchDuration*0.2 + 0.05,
		phase:              referee.PreMatch,
		setPieceTeam:       -1,
		lastGoalTeam:       -1,
		lastGoalScorer:     team.NoPlayer,
		lastTouchTeamID:    -1,
		bestPossessionTeam: -1,
		designated:         arena.Teams[0].Players[0],
		ballRetainer:       team.NoPlayer,
		possessionSide:     ring.New[float64](params.Match.PossessionHistory),
		autoCamera:         true,
	}
	m.rnd = rand.New(m.src)
	m.cam = camera.New(cfg.Camera, params.Match.CameraHistory, m.renderRand)
	if cfg.ReverseTeamProcessing {
		m.firstTeam = 1
	}
	if m.body == nil {
		m.body = humanoid.Procedural{}
	}
	if m.disp == nil {
		m.disp = nopDisplay{}
	}
	if m.rend == nil {
		m.rend = nopRenderer{}
	}
	if m.log == nil {
		m.log = slog.Default()
	}
	for i := range m.lastTouchTeamIDs {
		m.lastTouchTeamIDs[i] = -1
	}
	for side := 0; side < 2; side++ {
		m.netting[side] = NewNetting(params.Pitch, 2*side-1)
	}

	m.ResetSituation(geom.Zero)
	m.referee.KickOff(m, 0)
	m.log.Info("match created",
		"home", cfg.TeamNames[0],
		"away", cfg.TeamNames[1],
		"playersPerTeam", cfg.PlayersPerTeam,
		"seed", cfg.Seed,
		"symmetric", cfg.SymmetricMode,
		"tuning", params.Version)
	for _, o := range m.obs {
		o.MatchCreated(m)
	}
	return m, nil
}

// Exit tears the match down and notifies the observers. Later calls do nothing.
func (m *Match) Exit() {
	if m.exited {
		return
	}
	m.exited = true
	m.mental.Clear()
	m.cam.ClearHistory()
	m.disp.HideCaption()
	m.log.Info("match exited",
		"iterations", m.iterations,
		"score", fmt.Sprintf("%d-%d", m.data.Goals[0], m.data.Goals[1]))
	for _, o := range m.obs {
		o.MatchExited(m)
	}
}

// Exited reports whether Exit was called.
func (m *Match) Exited() bool { return m.exited }

// Config returns the scenario.
func (m *Match) Config() Config { return m.cfg }

// Arena returns the players and teams.
func (m *Match) Arena() *team.Arena { return m.arena }

// Ball returns the match ball.
func (m *Match) Ball() *ball.Ball { return m.ball }

// Params returns the tuning table.
func (m *Match) Params() *tuning.Params { return &m.params }

// Referee returns the referee.
func (m *Match) Referee() *referee.Referee { return m.referee }

// Officials returns the referee and linesmen bodies.
func (m *Match) Officials() *referee.Officials { return m.officials }

// Camera returns the broadcast camera.
func (m *Match) Camera() *camera.Camera { return m.cam }

// Rand is the deterministic random source of the simulation.
func (m *Match) Rand() *rand.Rand { return m.rnd }

// Data returns the score sheet.
func (m *Match) Data() MatchData { return m.data }

// Iterations counts Process calls.
func (m *Match) Iterations() int { return m.iterations }

// MatchTimeMS is the scaled match clock.
func (m *Match) MatchTimeMS() int { return m.matchTimeMS }

// ActualTimeMS is the simulated wall time.
func (m *Match) ActualTimeMS() int { return m.actualTimeMS }

// Phase returns the period being played.
func (m *Match) Phase() referee.Phase { return m.phase }

// InPlay reports whether the ball is live.
func (m *Match) InPlay() bool { return m.inPlay }

// InSetPiece reports a restart that has not been taken yet.
func (m *Match) InSetPiece() bool { return m.inSetPiece }

// SetPieceTeam is the team taking the pending restart, -1 when none.
func (m *Match) SetPieceTeam() int {
	if !m.inSetPiece {
		return -1
	}
	return m.setPieceTeam
}

// Paused reports the celebration pause.
func (m *Match) Paused() bool { return m.pause }

// SetPause freezes or resumes the simulation. Iterations still count.
func (m *Match) SetPause(p bool) { m.pause = p }

// IsGoalScored reports a goal not yet restarted from.
func (m *Match) IsGoalScored() bool { return m.goalScored }

// GoalScoredTimerMS is how long the current goal has been celebrated.
func (m *Match) GoalScoredTimerMS() int { return m.goalScoredTimer }

// LastGoalTeamID is the team that scored last, -1 before the first goal.
func (m *Match) LastGoalTeamID() int { return m.lastGoalTeam }

// LastGoalScorer is the scorer of the last goal, NoPlayer when unknown.
func (m *Match) LastGoalScorer() team.PlayerID { return m.lastGoalScorer }

// LastTouchTeamID is the team that touched the ball last, -1 when none.
func (m *Match) LastTouchTeamID() int { return m.lastTouchTeamID }

// LastTouchTeamIDOf is the last team to touch the ball with the given touch type.
func (m *Match) LastTouchTeamIDOf(t team.TouchType) int { return m.lastTouchTeamIDs[t] }

// BestPossessionTeam is the team closest in time to the ball, -1 on a tie.
func (m *Match) BestPossessionTeam() int { return m.bestPossessionTeam }

// DesignatedPossessionPlayer is the single player the match considers in charge
// of the ball.
func (m *Match) DesignatedPossessionPlayer() team.PlayerID { return m.designated }

// BallRetainer is the player holding the ball in his hands, NoPlayer when none.
func (m *Match) BallRetainer() team.PlayerID { return m.ballRetainer }

// SetBallRetainer hands the ball to a player, or releases it with NoPlayer.
func (m *Match) SetBallRetainer(id team.PlayerID) { m.ballRetainer = id }

// Caption returns the message currently on screen and whether it is visible.
func (m *Match) Caption() (string, bool) {
	return m.caption, m.caption != "" && m.captionRemoveMS > m.actualTimeMS
}

// PossessionSideHistory returns the possession-side samples, newest first.
func (m *Match) PossessionSideHistory() []float64 {
	out := make([]float64, 0, m.possessionSide.Len())
	m.possessionSide.Each(func(_ int, v *float64) { out = append(out, *v) })
	return out
}

// MentalImage returns the snapshot taken historyMS ago, clamped to the stored range.
func (m *Match) MentalImage(historyMS int) *mental.Image { return m.mental.Get(historyMS) }

// MentalImages returns the number of stored snapshots.
func (m *Match) MentalImages() int { return m.mental.Len() }

// UpdateLatestMentalImageBallPredictions refreshes the newest snapshot after the
// ball was touched outside the regular step.
func (m *Match) UpdateLatestMentalImageBallPredictions() {
	m.mental.UpdateLatestBallPredictions(m.ball.Predictions())
}

// SpamMessage shows a caption for ms milliseconds.
func (m *Match) SpamMessage(msg string, ms int) {
	m.caption = msg
	m.captionRemoveMS = m.actualTimeMS + ms
	m.disp.ShowCaption(msg)
	m.log.Info("caption", "message", msg, "until", m.captionRemoveMS)
}

// UpdateControllerSetup hands the external controllers to the teams. Controller
// ids must lie in [0, 2*MaxPlayers); anything else is a programming error.
func (m *Match) UpdateControllerSetup(sides []SideSelection) {
	for i := range m.arena.Players {
		m.arena.Players[i].ExternalController = team.NoController
	}
	m.sides = m.sides[:0]
	for _, s := range sides {
		if s.ControllerID < 0 || s.ControllerID >= 2*team.MaxPlayers {
			panic(fmt.Sprintf("match: controller %d outside of the %d available", s.ControllerID, 2*team.MaxPlayers))
		}
		var t *team.Team
		switch s.Side {
		case -1:
			t = &m.arena.Teams[0]
		case 1:
			t = &m.arena.Teams[1]
		default:
			continue
		}
		m.sides = append(m.sides, s)
		m.assignController(t, s.ControllerID)
	}
}

func (m *Match) assignController(t *team.Team, controller int) {
	candidates := make([]team.PlayerID, 0, len(t.Players)+1)
	if d := t.DesignatedTeamPossessionPlayer(); d != team.NoPlayer {
		candidates = append(candidates, d)
	}
	candidates = append(candidates, t.Players...)
	for _, id := range candidates {
		p := m.arena.Player(id)
		if p.Active && p.ExternalController == team.NoController {
			p.ExternalController = controller
			return
		}
	}
	panic(fmt.Sprintf("match: team %d has more controllers than active players", t.ID))
}

// ResetSituation lines both teams up around focus and drops all transient state.
func (m *Match) ResetSituation(focus geom.Vec) {
	m.cam.ClearHistory()
	m.ballRetainer = team.NoPlayer
	m.mental.Clear()
	m.goalScored = false
	m.ballIsInGoal = false
	for i := range m.lastTouchTeamIDs {
		m.lastTouchTeamIDs[i] = -1
	}
	m.lastTouchTeamID = -1
	m.lastGoalScorer = team.NoPlayer
	m.bestPossessionTeam = -1
	m.possessionSide.Clear()
	m.lastBallCollision = 0

	m.ball.ResetSituation(focus)
	pitch := m.params.Pitch
	m.arena.Teams[m.firstTeam].ResetSituation(m.arena, focus, pitch.HalfW, pitch.HalfH)
	m.arena.Teams[1-m.firstTeam].ResetSituation(m.arena, focus, pitch.HalfW, pitch.HalfH)
}

// SetMatchPhase moves to a new period. The first half starts with fully rested teams.
func (m *Match) SetMatchPhase(p referee.Phase) {
	m.phase = p
	if p == referee.FirstHalf {
		m.arena.Teams[m.firstTeam].RelaxFatigue(m.arena, 1)
		m.arena.Teams[1-m.firstTeam].RelaxFatigue(m.arena, 1)
	}
	m.log.Info("match phase", "phase", p.String(), "matchTimeMS", m.matchTimeMS)
}

// RandomizeAdboards gives every adboard placeholder a texture. An empty texture
// set leaves the stadium as it is.
func (m *Match) RandomizeAdboards() {
	if m.ads == nil {
		return
	}
	textures := slices.Clone(m.ads.Textures())
	if len(textures) == 0 {
		m.log.Warn("no adboard textures found, keeping placeholders")
		return
	}
	slices.Sort(textures)
	for i := 0; i < m.ads.Placeholders(); i++ {
		m.ads.Assign(i, textures[m.renderRand.IntN(len(textures))])
	}
}

// StopPlay makes the ball dead.
func (m *Match) StopPlay() {
	m.inPlay = false
}

// StartPlay restarts the match with a set piece for teamID. Normal mode
// restarts without one.
func (m *Match) StartPlay(mode referee.GameMode, teamID int) {
	m.inPlay = true
	m.inSetPiece = mode != referee.Normal
	m.setPieceTeam = teamID
}

// BallTouched records a touch by a player. The first touch takes the pending set piece.
func (m *Match) BallTouched(id team.PlayerID, touch team.TouchType) {
	p := m.arena.Player(id)
	p.SetLastTouch(m.actualTimeMS, touch)
	m.arena.Teams[p.TeamID].SetLastTouchPlayer(id, touch)
	m.lastTouchTeamIDs[touch] = p.TeamID
	m.lastTouchTeamID = p.TeamID
	if touch != team.Accidental {
		m.inSetPiece = false
	}
}

// FoulCommitted forwards a whistled foul to the observers.
func (m *Match) FoulCommitted(f referee.Foul) {
	m.log.Info("foul",
		"type", f.Type,
		"offender", int(f.Offender),
		"victim", int(f.Victim),
		"matchTimeMS", m.matchTimeMS)
	for _, o := range m.obs {
		o.FoulCommitted(m, f)
	}
}

// lastTouchBias is the bias of whichever team touched the ball last.
func (m *Match) lastTouchBias(decayMS int) float64 {
	if m.lastTouchTeamID == -1 {
		return 0
	}
	return m.arena.Teams[m.lastTouchTeamID].LastTouchBias(m.arena, decayMS, m.actualTimeMS)
}

type nopDisplay struct{}

func (nopDisplay) SetGoalCount(int, int) {}
func (nopDisplay) SetClock(string)       {}
func (nopDisplay) ShowCaption(string)    {}
func (nopDisplay) HideCaption()          {}
