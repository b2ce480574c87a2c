package match

// mirrorWorld flips both teams, the ball and the mental images into the other
// half-pitch frame. Applying it twice restores every value exactly.
func (m *Match) mirrorWorld() {
	m.arena.Teams[0].Mirror(m.arena)
	m.arena.Teams[1].Mirror(m.arena)
	m.ball.Mirror()
	m.mental.Mirror(true, true, true)
}

// withMirror runs fn in the mirrored frame when on is set.
func (m *Match) withMirror(on bool, fn func()) {
	if !on {
		fn()
		return
	}
	m.mirrorWorld()
	defer m.mirrorWorld()
	fn()
}

// mirroredFor reports whether teamID runs its AI in the mirrored frame.
func (m *Match) mirroredFor(teamID int) bool {
	return m.cfg.SymmetricMode && teamID != m.firstTeam
}
