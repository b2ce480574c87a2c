package ball

import (
	"math"

	"github.com/onthepitch/matchsim/internal/geom"
)

// step integrates s over one tick and reports whether the goal net was hit.
func (b *Ball) step(s *body) bool {
	dt := b.dt
	r := b.cfg.Radius
	prev := s.Position
	pos, mov, rot := s.Position, s.Movement, s.Rotation

	if pos[2] > r+0.01 || mov[2] > 0.01 {
		mov[2] -= b.cfg.Gravity * dt
		mov = mov.Sub(mov.Mul(b.cfg.AirDrag * mov.Len() * dt))
		mov = mov.Add(rot.Cross(mov).Mul(b.cfg.Magnus * dt))
	} else {
		horiz := geom.Flat(mov)
		speed := horiz.Len()
		if speed > 0 {
			dec := (b.cfg.RollDecel + b.cfg.RollFriction*speed) * dt
			if dec >= speed {
				horiz = geom.Zero
			} else {
				horiz = horiz.Mul((speed - dec) / speed)
			}
		}
		mov = horiz
	}

	pos = pos.Add(mov.Mul(dt))
	if pos[2] < r {
		pos[2] = r
		if mov[2] < -1 {
			mov[2] = -mov[2] * b.cfg.Restitution
			mov[0] *= 0.9
			mov[1] *= 0.9
		} else {
			mov[2] = 0
		}
	}
	rot = rot.Mul(b.cfg.SpinDecay)

	hit := b.collideNet(prev, &pos, &mov)
	s.Position, s.Movement, s.Rotation = pos, mov, rot
	return hit
}

// inGoal reports whether p lies inside either goal frame behind the line.
func (b *Ball) inGoal(p geom.Vec) bool {
	lineX := b.pitch.HalfW + b.pitch.LineHalfW
	ax := math.Abs(p[0])
	return ax > lineX && ax < lineX+b.pitch.GoalDepth+b.cfg.Radius &&
		math.Abs(p[1]) < b.pitch.GoalHalfW && p[2] < b.pitch.GoalH
}

func (b *Ball) collideNet(prev geom.Vec, pos, mov *geom.Vec) bool {
	if !b.inGoal(*pos) {
		return false
	}
	lineX := b.pitch.HalfW + b.pitch.LineHalfW
	damp := b.cfg.NetDamping
	if math.Abs(prev[0]) > lineX && !b.inGoal(prev) {
		// entered through the side, back or roof netting
		*pos = prev
		*mov = mov.Mul(-damp)
		return true
	}

	r := b.cfg.Radius
	hit := false
	backX := lineX + b.pitch.GoalDepth - r
	if math.Abs(pos[0]) > backX {
		pos[0] = backX * geom.Sign(pos[0])
		mov[0] = -mov[0] * damp
		hit = true
	}
	sideY := b.pitch.GoalHalfW - r
	if math.Abs(pos[1]) > sideY {
		pos[1] = sideY * geom.Sign(pos[1])
		mov[1] = -mov[1] * damp
		hit = true
	}
	roofZ := b.pitch.GoalH - r
	if pos[2] > roofZ {
		pos[2] = roofZ
		mov[2] = -mov[2] * damp
		hit = true
	}
	return hit
}
