// Package team holds the players and the two sides of a match. Players live in an
// Arena and are referenced everywhere else by PlayerID.
package team

import "fmt"

// PlayerID indexes Arena.Players.
type PlayerID int

// NoPlayer is the empty handle.
const NoPlayer PlayerID = -1

// FunctionType is the kind of animation a player is performing.
type FunctionType int

const (
	Movement FunctionType = iota
	BallControl
	Trap
	ShortPass
	LongPass
	Shot
	Sliding
	Interfere
	Deflect
	Trip
	Special
)

var functionNames = [...]string{
	"movement", "ballcontrol", "trap", "shortpass", "longpass", "shot",
	"sliding", "interfere", "deflect", "trip", "special",
}

func (f FunctionType) String() string {
	if f < 0 || int(f) >= len(functionNames) {
		return fmt.Sprintf("function(%d)", int(f))
	}
	return functionNames[f]
}

// Touches reports whether the animation is meant to play the ball.
func (f FunctionType) Touches() bool {
	switch f {
	case BallControl, Trap, ShortPass, LongPass, Shot, Sliding, Interfere, Deflect:
		return true
	}
	return false
}

// TouchType classifies a ball touch.
type TouchType int

const (
	IntentionalKicked TouchType = iota
	IntentionalNonkicked
	Accidental
	NoTouch
)

// TouchTypes is the number of touch classes tracked per match.
const TouchTypes = 4

// Role is a formation slot.
type Role int

const (
	GK Role = iota
	CB
	LB
	RB
	DM
	CM
	LM
	RM
	AM
	CF
)

var roleNames = [...]string{"GK", "CB", "LB", "RB", "DM", "CM", "LM", "RM", "AM", "CF"}

func (r Role) String() string {
	if r < 0 || int(r) >= len(roleNames) {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return roleNames[r]
}

// Stats are normalized 0..1 player attributes.
type Stats struct {
	Balance        float64 `json:"balance"`
	StandingTackle float64 `json:"standingTackle"`
	SlidingTackle  float64 `json:"slidingTackle"`
	Speed          float64 `json:"speed"`
	Acceleration   float64 `json:"acceleration"`
	ShortPass      float64 `json:"shortPass"`
	Shot           float64 `json:"shot"`
	BallControl    float64 `json:"ballControl"`
}

// AverageStats is a plain mid-table player.
func AverageStats() Stats {
	return Stats{
		Balance:        0.5,
		StandingTackle: 0.5,
		SlidingTackle:  0.5,
		Speed:          0.5,
		Acceleration:   0.5,
		ShortPass:      0.5,
		Shot:           0.5,
		BallControl:    0.5,
	}
}
