package team

import (
	"math"

	"github.com/onthepitch/matchsim/internal/envstate"
	"github.com/onthepitch/matchsim/internal/geom"
	"github.com/onthepitch/matchsim/internal/humanoid"
)

// NoController marks a player driven by the built-in AI.
const NoController = -1

// frame counts and touch frames per animation, in steps
var animations = map[FunctionType]struct{ frames, touch int }{
	BallControl: {20, 6},
	Trap:        {20, 8},
	ShortPass:   {30, 12},
	LongPass:    {36, 14},
	Shot:        {36, 16},
	Sliding:     {40, 14},
	Interfere:   {30, 12},
	Deflect:     {24, 8},
	Special:     {100, 0},
}

// Command is an externally supplied input for one step.
type Command struct {
	Direction geom.Vec
	Sprint    bool
	Action    FunctionType
	// Target is the requested ball destination for pass and shot actions.
	Target geom.Vec
}

// Player is one humanoid on the pitch.
type Player struct {
	ID        PlayerID
	TeamID    int
	Name      string
	Role      Role
	Stats     Stats
	Active    bool
	Formation geom.Vec

	Position     geom.Vec
	Movement     geom.Vec
	Direction    geom.Vec
	RelBodyAngle float64

	Function     FunctionType
	Frame        int
	FrameCount   int
	touchPending bool
	touchFrame   int
	touchVector  geom.Vec
	tripType     int

	FatigueInv         float64
	YellowCards        int
	RedCard            bool
	ReactionTimeMS     int
	ExternalController int

	timeToBallMS        int
	possession          bool
	uniquePossession    bool
	bestPossession      bool
	lastTouchMS         int
	lastTouchType       TouchType
	decayingOffset      geom.Vec
	controlledCollision bool

	command    Command
	hasCommand bool
}

func newPlayer(id PlayerID, teamID int, role Role, formation geom.Vec) Player {
	return Player{
		ID:                 id,
		TeamID:             teamID,
		Role:               role,
		Stats:              AverageStats(),
		Active:             true,
		Formation:          formation,
		Direction:          geom.Vec{1, 0, 0},
		FatigueInv:         1,
		ReactionTimeMS:     120,
		ExternalController: NoController,
		lastTouchMS:        neverTouched,
		lastTouchType:      NoTouch,
	}
}

// Velocity returns the planar speed in m/s.
func (p *Player) Velocity() float64 {
	return geom.Flat(p.Movement).Len()
}

// TimeToBallMS returns the last possession estimate.
func (p *Player) TimeToBallMS() int { return p.timeToBallMS }

// HasPossession reports whether the player can play the ball right now.
func (p *Player) HasPossession() bool { return p.possession }

// HasUniquePossession reports possession that nobody else shares.
func (p *Player) HasUniquePossession() bool { return p.uniquePossession }

// HasBestPossession reports possession by the best team's designated player.
func (p *Player) HasBestPossession() bool { return p.bestPossession }

// HasCards reports any yellow or red card.
func (p *Player) HasCards() bool { return p.YellowCards > 0 || p.RedCard }

// TripType returns the severity of the current trip, 0 when standing.
func (p *Player) TripType() int {
	if p.Function != Trip {
		return 0
	}
	return p.tripType
}

// DecayingOffsetLength measures how hard the player has been pushed recently.
func (p *Player) DecayingOffsetLength() float64 { return p.decayingOffset.Len() }

// OffsetPosition displaces the player without changing his movement.
func (p *Player) OffsetPosition(offset geom.Vec) {
	offset[2] = 0
	p.Position = p.Position.Add(offset)
	p.decayingOffset = p.decayingOffset.Add(offset)
}

// TripMe knocks the player over. A weaker trip never replaces a stronger one.
func (p *Player) TripMe(direction geom.Vec, tripType int) {
	if p.Function == Trip && p.tripType >= tripType {
		return
	}
	frames := 30 + 15*tripType
	if tripType == 1 {
		frames = 20
	}
	p.Function = Trip
	p.Frame = 0
	p.FrameCount = frames
	p.tripType = tripType
	p.touchPending = false
	dir := geom.NormalizedOr(geom.Flat(direction), p.Direction)
	p.Movement = dir.Mul(math.Min(p.Velocity(), 3))
	if tripType > 1 {
		p.Direction = dir
	}
}

// TriggerControlledBallCollision asks the player to take the ball in stride on his next step.
func (p *Player) TriggerControlledBallCollision() {
	p.controlledCollision = true
}

// ControlledBallCollision reports a pending controlled pickup.
func (p *Player) ControlledBallCollision() bool { return p.controlledCollision }

// SetLastTouch records a ball touch at nowMS.
func (p *Player) SetLastTouch(nowMS int, t TouchType) {
	p.lastTouchMS = nowMS
	p.lastTouchType = t
}

// neverTouched marks a player without a ball touch since the last reset.
// Match time 0 is a valid touch time, so it cannot serve as the marker.
const neverTouched = -1

// LastTouchMS returns when the player last touched the ball, -1 if never.
func (p *Player) LastTouchMS() int { return p.lastTouchMS }

// LastTouchType returns the class of the last touch.
func (p *Player) LastTouchType() TouchType { return p.lastTouchType }

// LastTouchBias fades from 1 right after a touch to 0 after decayMS.
func (p *Player) LastTouchBias(decayMS, nowMS int) float64 {
	if p.lastTouchMS == neverTouched || decayMS <= 0 {
		return 0
	}
	return geom.Clamp(1-float64(nowMS-p.lastTouchMS)/float64(decayMS), 0, 1)
}

// TouchPending reports an animation whose ball contact has not happened yet.
func (p *Player) TouchPending() bool { return p.touchPending }

// SetCommand stores an external input for the next step.
func (p *Player) SetCommand(c Command) {
	p.command = c
	p.hasCommand = true
}

// RelaxFatigue restores a share of the lost stamina.
func (p *Player) RelaxFatigue(amount float64) {
	p.FatigueInv = geom.Clamp(p.FatigueInv+(1-p.FatigueInv)*amount, 0, 1)
}

// Pose maps the animation state to the body model.
func (p *Player) Pose() humanoid.Pose {
	pose := humanoid.Pose{Position: p.Position, Direction: p.Direction}
	if p.FrameCount > 0 {
		pose.Progress = float64(p.Frame) / float64(p.FrameCount)
	}
	switch p.Function {
	case Sliding:
		pose.Stance = humanoid.Sliding
	case Interfere, Deflect:
		pose.Stance = humanoid.Lunging
	case ShortPass, LongPass, Shot, BallControl, Trap:
		pose.Stance = humanoid.Kicking
	case Trip:
		if p.tripType > 1 {
			pose.Stance = humanoid.Fallen
		}
	}
	return pose
}

// startAction begins an animation. touch is the ball velocity applied at the touch frame.
func (p *Player) startAction(f FunctionType, touch geom.Vec) {
	anim := animations[f]
	p.Function = f
	p.Frame = 0
	p.FrameCount = anim.frames
	p.touchFrame = anim.touch
	p.touchVector = touch
	p.touchPending = f.Touches()
}

// Mirror flips the player into the other half-pitch frame.
func (p *Player) Mirror() {
	p.Position = geom.MirrorXY(p.Position)
	p.Movement = geom.MirrorXY(p.Movement)
	p.Direction = geom.MirrorXY(p.Direction)
	p.touchVector = geom.MirrorXY(p.touchVector)
	p.decayingOffset = geom.MirrorXY(p.decayingOffset)
	p.command.Direction = geom.MirrorXY(p.command.Direction)
	p.command.Target = geom.MirrorXY(p.command.Target)
}

// ProcessState walks the player fields for the state-sync traversal.
func (p *Player) ProcessState(s *envstate.State) {
	envstate.Process(s, &p.Active)
	envstate.Process(s, &p.Position)
	envstate.Process(s, &p.Movement)
	envstate.Process(s, &p.Direction)
	envstate.Process(s, &p.RelBodyAngle)
	envstate.Process(s, &p.Function)
	envstate.Process(s, &p.Frame)
	envstate.Process(s, &p.FrameCount)
	envstate.Process(s, &p.touchPending)
	envstate.Process(s, &p.touchFrame)
	envstate.Process(s, &p.touchVector)
	envstate.Process(s, &p.tripType)
	envstate.Process(s, &p.FatigueInv)
	envstate.Process(s, &p.YellowCards)
	envstate.Process(s, &p.RedCard)
	envstate.Process(s, &p.timeToBallMS)
	envstate.Process(s, &p.possession)
	envstate.Process(s, &p.uniquePossession)
	envstate.Process(s, &p.bestPossession)
	envstate.Process(s, &p.lastTouchMS)
	envstate.Process(s, &p.lastTouchType)
	envstate.Process(s, &p.decayingOffset)
	envstate.Process(s, &p.controlledCollision)
}
