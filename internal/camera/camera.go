// Package camera computes the broadcast camera that films the match: the smoothed
// in-game camera, the scorer orbit after a goal, the referee follow shot for
// bookings and the zoom-in at kick-off.
package camera

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/onthepitch/matchsim/internal/envstate"
	"github.com/onthepitch/matchsim/internal/geom"
	"github.com/onthepitch/matchsim/internal/ring"
)

// Method selects the in-game camera rig.
type Method int

const (
	Wide Method = iota + 1
	BirdsEye
	Tele
)

func (m Method) String() string {
	switch m {
	case Wide:
		return "wide"
	case BirdsEye:
		return "birdseye"
	case Tele:
		return "tele"
	default:
		return fmt.Sprintf("method(%d)", int(m))
	}
}

// ParseMethod maps a configuration name onto a Method.
func ParseMethod(s string) (Method, error) {
	switch s {
	case "wide", "":
		return Wide, nil
	case "birdseye":
		return BirdsEye, nil
	case "tele":
		return Tele, nil
	}
	return 0, fmt.Errorf("unknown camera method %q", s)
}

// Settings are the user camera preferences, all in [0, 1] except Method.
type Settings struct {
	FOV         float64
	Zoom        float64
	Height      float64
	AngleFactor float64
	Method      Method
}

// DefaultSettings returns the stock broadcast camera.
func DefaultSettings() Settings {
	return Settings{FOV: 0.5, Zoom: 0.5, Height: 0.5, AngleFactor: 0.5, Method: Wide}
}

// View is what the renderer needs to place the camera.
type View struct {
	Orientation     geom.Quat
	NodeOrientation geom.Quat
	NodePosition    geom.Vec
	FOV             float64
	NearCap         float64
	FarCap          float64
}

// Input is the part of the match the in-game camera looks at.
type Input struct {
	Ball      geom.Vec
	BallSpeed float64
	Holder    geom.Vec
	HolderDir geom.Vec
	// AttackBias shifts the aim toward the attacking direction of the team
	// holding the ball, in meters.
	AttackBias float64
	HalfW      float64
	HalfH      float64

	GoalScored    bool
	GoalTimerMS   int
	Scorer        geom.Vec
	HasScorer     bool
	ScorerDelayMS int
}

// Camera is the match camera.
type Camera struct {
	View
	settings Settings
	history  *ring.Ring[geom.Vec]
	rnd      *rand.Rand
}

// New returns a camera looking down at the center spot. rnd only feeds the
// hand-held shudder, which never affects the simulation.
func New(settings Settings, historySize int, rnd *rand.Rand) *Camera {
	c := &Camera{
		settings: settings,
		history:  ring.New[geom.Vec](historySize),
		rnd:      rnd,
	}
	c.View = View{
		Orientation:     mgl64.QuatIdent(),
		NodeOrientation: mgl64.QuatIdent(),
		NodePosition:    geom.Vec{40, 0, 100},
		FOV:             25,
		NearCap:         1,
		FarCap:          220,
	}
	return c
}

// Settings returns the camera preferences.
func (c *Camera) Settings() Settings { return c.settings }

// ClearHistory forgets the smoothing samples.
func (c *Camera) ClearHistory() { c.history.Clear() }

// HistoryLen returns the number of smoothing samples.
func (c *Camera) HistoryLen() int { return c.history.Len() }

// Aim returns the clamped point the in-game camera tries to center.
func (c *Camera) Aim(in Input) geom.Vec {
	const playerBias = 0.6
	s := c.settings
	zoom := s.Zoom
	height := s.Height * 1.5

	aim := geom.Lerp(in.Ball, in.Holder, playerBias).Add(in.HolderDir)
	aim[0] += in.AttackBias
	aim[2] *= 0.1

	maxW := in.HalfW * 0.84 / (zoom + 0.01)
	maxH := in.HalfH * 0.6 / (zoom + 0.01) * (height*0.75 + 0.25)
	if math.Abs(aim[0]) > maxW {
		aim[0] = maxW * geom.Sign(aim[0])
	}
	if math.Abs(aim[1]) > maxH {
		aim[1] = maxH * geom.Sign(aim[1])
	}
	return aim
}

// weightedAverage blends the history, oldest to newest, favoring the middle and
// cutting off sharply at the newest sample.
func (c *Camera) weightedAverage() geom.Vec {
	n := c.history.Len()
	var avg geom.Vec
	var total float64
	for k := 0; k < n; k++ {
		i := float64(n - 1 - k)
		f := i / float64(n)
		w := (math.Sin((f-0.3)*1.4*math.Pi)*0.5 + 0.5) * math.Pow(1-f, 0.3)
		avg = avg.Add(c.history.At(k).Mul(w))
		total += w
	}
	if total == 0 {
		return c.history.At(0)
	}
	return avg.Mul(1 / total)
}

// UpdateIngame films play. After a goal has been celebrated for ScorerDelayMS it
// orbits the scorer instead.
func (c *Camera) UpdateIngame(in Input) {
	s := c.settings
	fov := 0.5 + s.FOV*0.5
	zoom := s.Zoom
	height := s.Height * 1.5

	aim := c.Aim(in)
	shudder := geom.Vec{c.rnd.Float64()*0.2 - 0.1, c.rnd.Float64()*0.2 - 0.1, 0}.Mul((in.BallSpeed*0.8 + 6) * 0.2)
	c.history.Push(aim.Add(shudder.Mul(float64(c.history.Len()) / float64(c.history.Cap()))))
	avg := c.weightedAverage()

	if in.GoalScored && in.GoalTimerMS >= in.ScorerDelayMS {
		target := geom.Flat(in.Ball)
		if in.HasScorer {
			target = in.Scorer
		}
		rot := float64(in.GoalTimerMS) * 0.0005
		c.Orientation = geom.AngleAxis(0.45*math.Pi, geom.Vec{1, 0, 0})
		c.NodeOrientation = geom.AngleAxis(rot, geom.Vec{0, 0, 1})
		c.NodePosition = target.Add(geom.Rotated2D(geom.Vec{0, -1, 0}, rot).Mul(15)).Add(geom.Vec{0, 0, 3})
		c.FOV = 35
		c.NearCap = 1
		c.FarCap = 220
		return
	}

	angleFac := 1 - s.AngleFactor*0.4
	switch s.Method {
	case BirdsEye:
		c.Orientation = mgl64.QuatIdent()
		c.NodeOrientation = mgl64.QuatIdent()
		c.NodePosition = geom.Vec{avg[0], avg[1], 50 + zoom*20}
		c.FOV = 28
		c.NearCap = 40 + height - 5
		c.FarCap = 250
	case Tele:
		zoom = (0.6 + zoom) / fov
		c.Orientation = geom.AngleAxis(0.3*math.Pi*height+0.4*math.Pi*(1-height), geom.Vec{1, 0, 0})
		c.NodeOrientation = mgl64.QuatIdent()
		offset := geom.Vec{0, -175, 125}.Mul(height).Add(geom.Vec{0, -230, 65}.Mul(1 - height))
		c.NodePosition = geom.Vec{avg[0] * 0.9, avg[1] * 0.7, avg[2] * 0.2}.Add(offset.Mul(zoom * 0.4))
		c.FOV = 15
		c.NearCap = 50 + zoom*10
		c.FarCap = 300
	default:
		zoom = (0.6 + zoom) / fov
		height = 4 + height*10
		distRot := avg[1] / 800
		c.Orientation = geom.AngleAxis(distRot+(0.42-height*0.01)*math.Pi, geom.Vec{1, 0, 0})
		c.NodeOrientation = geom.AngleAxis(-avg[0]/in.HalfW*(1-angleFac)*0.25*math.Pi*1.24, geom.Vec{0, 0, 1})
		scale := geom.Vec{
			(1 - s.AngleFactor*0.2) * (1 - s.Zoom*0.3),
			0.9 - s.Zoom*0.3,
			0.2,
		}
		rig := geom.Vec{0, -41.4 - s.FOV*3.7 + math.Pow(height, 1.2)*0.46, 10 + height}.Mul(zoom)
		c.NodePosition = geom.Vec{avg[0] * scale[0], avg[1] * scale[1], avg[2] * scale[2]}.Add(rig)
		c.FOV = fov*28 - c.NodePosition[1]/30
		c.NearCap = c.NodePosition[2]
		c.FarCap = 200
	}
}

// Follow frames target from behind at a distance of 10/zoom.
func (c *Camera) Follow(target geom.Vec, zoom float64) {
	c.Orientation = geom.AngleAxis(0.4*math.Pi, geom.Vec{1, 0, 0})
	c.NodeOrientation = geom.AngleAxis(geom.Angle2D(target)+1.5*math.Pi, geom.Vec{0, 0, 1})
	back := geom.NormalizedOr(geom.Flat(target), geom.Vec{0, -1, 0}).Mul(10 / zoom)
	c.NodePosition = target.Sub(back).Add(geom.Vec{0, 0, 3})
	c.FOV = 60
	c.NearCap = 1
	c.FarCap = 220
}

// BlendStart pulls the view toward the overhead opening shot during the first
// zoomMS of the match, sine-eased.
func (c *Camera) BlendStart(actualMS, zoomMS int) {
	if actualMS >= zoomMS || zoomMS <= 0 {
		return
	}
	t := float64(max(0, min(actualMS, zoomMS))) / float64(zoomMS)
	bias := math.Sin(t*math.Pi-0.5*math.Pi)*-0.5 + 0.5

	c.Orientation = geom.Slerp(c.Orientation, mgl64.QuatIdent(), bias)
	c.NodeOrientation = geom.Slerp(c.NodeOrientation, mgl64.QuatIdent(), bias)
	c.NodePosition = geom.Lerp(c.NodePosition, geom.Vec{0, 0, 60}, bias)
	c.FOV = c.FOV*(1-bias) + 40*bias
	c.NearCap = c.NearCap*(1-bias) + 2*bias
}

// ProcessState walks the view. None of it influences play, so callers switch
// validation off around it.
func (c *Camera) ProcessState(s *envstate.State) {
	envstate.Process(s, &c.Orientation)
	envstate.Process(s, &c.NodeOrientation)
	envstate.Process(s, &c.NodePosition)
	envstate.Process(s, &c.FOV)
	envstate.Process(s, &c.NearCap)
	envstate.Process(s, &c.FarCap)
}

// ProcessHistory walks the smoothing samples, oldest first.
func (c *Camera) ProcessHistory(s *envstate.State) {
	envstate.ProcessBounded[geom.Vec](s, c.history)
}
