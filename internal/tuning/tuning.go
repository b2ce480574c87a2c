// Package tuning groups every physics and adjudication constant of the match
// simulator into one versioned table.
package tuning

import "fmt"

// Version identifies the constant set. It is stored with every recording.
const Version = "1.0.0"

// Pitch holds field dimensions in meters.
type Pitch struct {
	HalfW     float64 `mapstructure:"halfW"`
	HalfH     float64 `mapstructure:"halfH"`
	LineHalfW float64 `mapstructure:"lineHalfW"`
	GoalHalfW float64 `mapstructure:"goalHalfW"`
	GoalH     float64 `mapstructure:"goalH"`
	GoalDepth float64 `mapstructure:"goalDepth"`
}

// Movement holds player velocity bands in m/s.
type Movement struct {
	Idle    float64 `mapstructure:"idle"`
	Dribble float64 `mapstructure:"dribble"`
	Walk    float64 `mapstructure:"walk"`
	Sprint  float64 `mapstructure:"sprint"`
}

// Humanoid holds the player-versus-player collision model.
type Humanoid struct {
	DistanceFactor        float64    `mapstructure:"distanceFactor"`
	BounceRadiusFactor    float64    `mapstructure:"bounceRadiusFactor"`
	SimilarRadiusFactor   float64    `mapstructure:"similarRadiusFactor"`
	SimilarExp            float64    `mapstructure:"similarExp"`
	SimilarForceFactor    float64    `mapstructure:"similarForceFactor"`
	BackFacingWeight      float64    `mapstructure:"backFacingWeight"`
	FacingBodyAngleShare  float64    `mapstructure:"facingBodyAngleShare"`
	VelocityBiasCap       float64    `mapstructure:"velocityBiasCap"`
	TackleBonusBase       float64    `mapstructure:"tackleBonusBase"`
	TackleBonusStat       float64    `mapstructure:"tackleBonusStat"`
	DesignatedBounceBias  float64    `mapstructure:"designatedBounceBias"`
	DesignatedSimilarBias float64    `mapstructure:"designatedSimilarBias"`
	BallDuelCap           float64    `mapstructure:"ballDuelCap"`
	BallDuelClamp         float64    `mapstructure:"ballDuelClamp"`
	BounceBiasScale       float64    `mapstructure:"bounceBiasScale"`
	SimilarBiasScale      float64    `mapstructure:"similarBiasScale"`
	ShieldAngle           float64    `mapstructure:"shieldAngle"`
	ShieldWeight          float64    `mapstructure:"shieldWeight"`
	ShieldStep            float64    `mapstructure:"shieldStep"`
	BalanceWeight         float64    `mapstructure:"balanceWeight"`
	PenetrationWeight     float64    `mapstructure:"penetrationWeight"`
	PenetrationLookahead  float64    `mapstructure:"penetrationLookahead"`
	PenetrationExp        float64    `mapstructure:"penetrationExp"`
	BallProximityRange    float64    `mapstructure:"ballProximityRange"`
	TripThresholds        [3]float64 `mapstructure:"tripThresholds"`
	TackleFrameMin        int        `mapstructure:"tackleFrameMin"`
	TackleFrameMax        int        `mapstructure:"tackleFrameMax"`
	TackleTripFrameMin    int        `mapstructure:"tackleTripFrameMin"`
	TackleTripFrameTail   int        `mapstructure:"tackleTripFrameTail"`
	TackleRange           float64    `mapstructure:"tackleRange"`
	TackleBoxShrink       float64    `mapstructure:"tackleBoxShrink"`
}

// BallCollision holds the player-versus-ball contact model.
type BallCollision struct {
	CooldownMS          int     `mapstructure:"cooldownMS"`
	TouchWindowMS       int     `mapstructure:"touchWindowMS"`
	TouchBiasEpsilon    float64 `mapstructure:"touchBiasEpsilon"`
	BoxOffsetBase       float64 `mapstructure:"boxOffsetBase"`
	BoxOffsetPossession float64 `mapstructure:"boxOffsetPossession"`
	BoxOffsetTackle     float64 `mapstructure:"boxOffsetTackle"`
	BoxOffsetDeflect    float64 `mapstructure:"boxOffsetDeflect"`
	ProximityHeight     float64 `mapstructure:"proximityHeight"`
	ProximityRange      float64 `mapstructure:"proximityRange"`
	UnexpectedDistance  float64 `mapstructure:"unexpectedDistance"`
	UnexpectedHorizonMS int     `mapstructure:"unexpectedHorizonMS"`
	OppTouchShare       float64 `mapstructure:"oppTouchShare"`
	BounceStrength      float64 `mapstructure:"bounceStrength"`
	BounceSpeedShare    float64 `mapstructure:"bounceSpeedShare"`
	BounceRetain        float64 `mapstructure:"bounceRetain"`
	BounceZScale        float64 `mapstructure:"bounceZScale"`
	Damping             float64 `mapstructure:"damping"`
	SpinRange           float64 `mapstructure:"spinRange"`
}

// Ball holds the ball body constants.
type Ball struct {
	Radius       float64 `mapstructure:"radius"`
	Gravity      float64 `mapstructure:"gravity"`
	AirDrag      float64 `mapstructure:"airDrag"`
	Magnus       float64 `mapstructure:"magnus"`
	Restitution  float64 `mapstructure:"restitution"`
	RollFriction float64 `mapstructure:"rollFriction"`
	RollDecel    float64 `mapstructure:"rollDecel"`
	SpinDecay    float64 `mapstructure:"spinDecay"`
	NetDamping   float64 `mapstructure:"netDamping"`
	HorizonMS    int     `mapstructure:"horizonMS"`
	HistorySize  int     `mapstructure:"historySize"`
}

// Match holds the tick loop and adjudication constants.
type Match struct {
	StepMS               int     `mapstructure:"stepMS"`
	HysteresisRatio      float64 `mapstructure:"hysteresisRatio"`
	HysteresisOffsetMS   int     `mapstructure:"hysteresisOffsetMS"`
	MentalImages         int     `mapstructure:"mentalImages"`
	PossessionHistory    int     `mapstructure:"possessionHistory"`
	CameraHistory        int     `mapstructure:"cameraHistory"`
	CelebrationPauseMS   int     `mapstructure:"celebrationPauseMS"`
	ScorerCamDelayMS     int     `mapstructure:"scorerCamDelayMS"`
	FoulCamDelayMS       int     `mapstructure:"foulCamDelayMS"`
	FoulCamExtendMS      int     `mapstructure:"foulCamExtendMS"`
	StartZoomMS          int     `mapstructure:"startZoomMS"`
	CaptionMS            int     `mapstructure:"captionMS"`
	HalfDurationMS       int     `mapstructure:"halfDurationMS"`
	NettingFalloffExp    float64 `mapstructure:"nettingFalloffExp"`
	NettingWoodworkScale float64 `mapstructure:"nettingWoodworkScale"`
}

// Params is the complete table.
type Params struct {
	Version       string        `mapstructure:"version"`
	Pitch         Pitch         `mapstructure:"pitch"`
	Movement      Movement      `mapstructure:"movement"`
	Humanoid      Humanoid      `mapstructure:"humanoid"`
	BallCollision BallCollision `mapstructure:"ballCollision"`
	Ball          Ball          `mapstructure:"ball"`
	Match         Match         `mapstructure:"match"`
}

// Default returns the reference constants.
func Default() Params {
	return Params{
		Version: Version,
		Pitch: Pitch{
			HalfW:     55.0,
			HalfH:     36.0,
			LineHalfW: 0.06,
			GoalHalfW: 3.7,
			GoalH:     2.5,
			GoalDepth: 2.2,
		},
		Movement: Movement{
			Idle:    0,
			Dribble: 3.5,
			Walk:    5.0,
			Sprint:  8.0,
		},
		Humanoid: Humanoid{
			DistanceFactor:        0.72,
			BounceRadiusFactor:    0.5,
			SimilarRadiusFactor:   0.8,
			SimilarExp:            0.2,
			SimilarForceFactor:    0.25,
			BackFacingWeight:      0.8,
			FacingBodyAngleShare:  0.7,
			VelocityBiasCap:       0.2,
			TackleBonusBase:       0.1,
			TackleBonusStat:       0.4,
			DesignatedBounceBias:  0.4,
			DesignatedSimilarBias: 0.6,
			BallDuelCap:           1.2,
			BallDuelClamp:         0.6,
			BounceBiasScale:       0.5,
			SimilarBiasScale:      0.9,
			ShieldAngle:           0.3,
			ShieldWeight:          0.3,
			ShieldStep:            0.01,
			BalanceWeight:         3,
			PenetrationWeight:     6,
			PenetrationLookahead:  0.03,
			PenetrationExp:        0.4,
			BallProximityRange:    0.7,
			TripThresholds:        [3]float64{0.38, 0.48, 0.58},
			TackleFrameMin:        5,
			TackleFrameMax:        28,
			TackleTripFrameMin:    10,
			TackleTripFrameTail:   6,
			TackleRange:           2.0,
			TackleBoxShrink:       0.1,
		},
		BallCollision: BallCollision{
			CooldownMS:          150,
			TouchWindowMS:       200,
			TouchBiasEpsilon:    0.01,
			BoxOffsetBase:       -0.1,
			BoxOffsetPossession: 0.03,
			BoxOffsetTackle:     0.1,
			BoxOffsetDeflect:    0.2,
			ProximityHeight:     0.8,
			ProximityRange:      2.5,
			UnexpectedDistance:  0.5,
			UnexpectedHorizonMS: 1000,
			OppTouchShare:       0.8,
			BounceStrength:      6.0,
			BounceSpeedShare:    0.6,
			BounceRetain:        0.2,
			BounceZScale:        0.6,
			Damping:             0.7,
			SpinRange:           30,
		},
		Ball: Ball{
			Radius:       0.11,
			Gravity:      9.81,
			AirDrag:      0.015,
			Magnus:       0.0008,
			Restitution:  0.6,
			RollFriction: 0.3,
			RollDecel:    0.6,
			SpinDecay:    0.99,
			NetDamping:   0.1,
			HorizonMS:    3000,
			HistorySize:  16,
		},
		Match: Match{
			StepMS:               10,
			HysteresisRatio:      0.85,
			HysteresisOffsetMS:   10,
			MentalImages:         30,
			PossessionHistory:    6000,
			CameraHistory:        150,
			CelebrationPauseMS:   6000,
			ScorerCamDelayMS:     1000,
			FoulCamDelayMS:       1000,
			FoulCamExtendMS:      1000,
			StartZoomMS:          2000,
			CaptionMS:            4000,
			HalfDurationMS:       45 * 60 * 1000,
			NettingFalloffExp:    1.5,
			NettingWoodworkScale: 2.0,
		},
	}
}

// BounceRadius is the radius inside which two players push each other apart.
func (h Humanoid) BounceRadius() float64 {
	return h.BounceRadiusFactor * h.DistanceFactor
}

// SimilarRadius is the extra shell in which players take over each other's movement.
func (h Humanoid) SimilarRadius() float64 {
	return h.SimilarRadiusFactor * h.DistanceFactor
}

// GoalLineX is the x coordinate of the goal mouth plane for the given side.
func (p Pitch) GoalLineX(side int, ballRadius float64) float64 {
	return (p.HalfW + p.LineHalfW + ballRadius) * float64(side)
}

// Validate rejects tables that would break the simulator's invariants.
func (p Params) Validate() error {
	if p.Match.StepMS <= 0 {
		return fmt.Errorf("match.stepMS must be positive, got %d", p.Match.StepMS)
	}
	if p.Match.MentalImages <= 0 || p.Match.PossessionHistory <= 0 || p.Match.CameraHistory <= 0 {
		return fmt.Errorf("history capacities must be positive")
	}
	if p.Ball.HorizonMS < p.BallCollision.UnexpectedHorizonMS {
		return fmt.Errorf("ball.horizonMS %d shorter than collision horizon %d", p.Ball.HorizonMS, p.BallCollision.UnexpectedHorizonMS)
	}
	t := p.Humanoid.TripThresholds
	if !(t[0] <= t[1] && t[1] <= t[2]) {
		return fmt.Errorf("humanoid.tripThresholds must be ascending, got %v", t)
	}
	if p.Movement.Sprint <= p.Movement.Idle {
		return fmt.Errorf("movement.sprint must exceed movement.idle")
	}
	if p.Pitch.HalfW <= 0 || p.Pitch.HalfH <= 0 {
		return fmt.Errorf("pitch dimensions must be positive")
	}
	return nil
}
