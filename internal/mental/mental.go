// Package mental keeps the short history of world snapshots the players react to.
// A player with a reaction time of r milliseconds acts on the image from r ago.
package mental

import (
	"math"

	"github.com/onthepitch/matchsim/internal/envstate"
	"github.com/onthepitch/matchsim/internal/geom"
	"github.com/onthepitch/matchsim/internal/ring"
)

// PlayerSnapshot is a player's kinematic state at one instant.
type PlayerSnapshot struct {
	TeamID   int
	Position geom.Vec
	Movement geom.Vec
}

// Image is the world at one past step.
type Image struct {
	TimeMS          int
	StepMS          int
	BallPredictions []geom.Vec
	Players         []PlayerSnapshot
}

// BallPrediction reads the ball trajectory ms after the image was taken.
func (im *Image) BallPrediction(ms int) geom.Vec {
	if len(im.BallPredictions) == 0 {
		return geom.Zero
	}
	i := 0
	if im.StepMS > 0 {
		i = ms / im.StepMS
	}
	i = max(0, min(i, len(im.BallPredictions)-1))
	return im.BallPredictions[i]
}

func (im *Image) mirror(team0, team1, ball bool) {
	if ball {
		for i := range im.BallPredictions {
			im.BallPredictions[i] = geom.MirrorXY(im.BallPredictions[i])
		}
	}
	for i := range im.Players {
		p := &im.Players[i]
		if (p.TeamID == 0 && team0) || (p.TeamID == 1 && team1) {
			p.Position = geom.MirrorXY(p.Position)
			p.Movement = geom.MirrorXY(p.Movement)
		}
	}
}

func (im *Image) processState(s *envstate.State) {
	envstate.Process(s, &im.TimeMS)
	envstate.Process(s, &im.StepMS)
	envstate.ProcessSlice(s, &im.BallPredictions)
	n := envstate.ProcessCount(s, len(im.Players))
	if s.Err() != nil {
		return
	}
	if s.Load() {
		im.Players = make([]PlayerSnapshot, n)
	}
	for i := 0; i < n && s.Err() == nil; i++ {
		var p PlayerSnapshot
		if i < len(im.Players) {
			p = im.Players[i]
		}
		envstate.Process(s, &p.TeamID)
		envstate.Process(s, &p.Position)
		envstate.Process(s, &p.Movement)
		if i < len(im.Players) {
			im.Players[i] = p
		}
	}
}

// Ring holds the most recent images, newest first.
type Ring struct {
	images *ring.Ring[Image]
	stepMS int
}

// NewRing returns an empty ring of the given capacity.
func NewRing(capacity, stepMS int) *Ring {
	return &Ring{images: ring.New[Image](capacity), stepMS: stepMS}
}

// Len returns the number of stored images.
func (r *Ring) Len() int { return r.images.Len() }

// Push stores a new image in front, evicting the oldest beyond capacity.
func (r *Ring) Push(im Image) { r.images.Push(im) }

// Clear drops every image.
func (r *Ring) Clear() { r.images.Clear() }

// At returns the image i steps back.
func (r *Ring) At(i int) *Image { return r.images.Ptr(i) }

// Get returns the image from historyMS ago. Out of range requests clamp to the
// oldest or newest image; it returns nil only on an empty ring.
func (r *Ring) Get(historyMS int) *Image {
	if r.images.Len() == 0 {
		return nil
	}
	i := int(math.Round(float64(historyMS) / float64(r.stepMS)))
	i = max(0, min(i, r.images.Len()-1))
	return r.images.Ptr(i)
}

// UpdateLatestBallPredictions refreshes only the newest image.
func (r *Ring) UpdateLatestBallPredictions(predictions []geom.Vec) {
	if r.images.Len() == 0 {
		return
	}
	r.images.Ptr(0).BallPredictions = predictions
}

// Mirror applies the mirror transform to the selected entities in every image.
func (r *Ring) Mirror(team0, team1, ball bool) {
	r.images.Each(func(_ int, im *Image) { im.mirror(team0, team1, ball) })
}

// ProcessState walks the images oldest first so a loaded ring keeps its order.
func (r *Ring) ProcessState(s *envstate.State) {
	n := envstate.ProcessCountMax(s, r.images.Len(), r.images.Cap())
	if s.Err() != nil {
		return
	}
	if s.Load() {
		r.images.Resize(n)
	}
	for i := n - 1; i >= 0 && s.Err() == nil; i-- {
		if i < r.images.Len() {
			r.images.Ptr(i).processState(s)
			continue
		}
		var extra Image
		extra.processState(s)
	}
}
