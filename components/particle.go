package components

// Particle is the kinematic state of one fluid particle.
// Its index in the owning slice is its identity; the spatial grid stores indices, never pointers.
type Particle struct {
	Pos     Vec2
	Vel     Vec2
	PrevPos Vec2 // position before the last prediction, used to rebuild Vel

	// CellSlot is this particle's index inside its grid cell list (-1 = not indexed).
	// Owned by the grid.
	CellSlot int
}

// NewParticle creates a particle at rest at (x, y).
func NewParticle(x, y float32) Particle {
	p := Vec2{X: x, Y: y}
	return Particle{
		Pos:      p,
		PrevPos:  p,
		CellSlot: -1,
	}
}

// Speed returns the velocity magnitude.
func (p *Particle) Speed() float32 {
	return p.Vel.Len()
}
