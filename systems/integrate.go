package systems

import "github.com/pthm-cable/pbfluid/components"

// ResolveBoundaries clamps each particle into bounds, scaling the velocity of
// every violated axis by restitution, then applies gravity to Vel.Y.
// Collision response sees last step's velocity; gravity is for this step.
// Returns the number of axis clamps performed.
func ResolveBoundaries(ps []components.Particle, bounds components.Rect, restitution, gravity, dt float32) int {
	clamps := 0
	dv := gravity * dt

	for i := range ps {
		p := &ps[i]

		if p.Pos.X < bounds.Min.X {
			p.Pos.X = bounds.Min.X
			p.Vel.X *= restitution
			clamps++
		} else if p.Pos.X > bounds.Max.X {
			p.Pos.X = bounds.Max.X
			p.Vel.X *= restitution
			clamps++
		}

		if p.Pos.Y < bounds.Min.Y {
			p.Pos.Y = bounds.Min.Y
			p.Vel.Y *= restitution
			clamps++
		} else if p.Pos.Y > bounds.Max.Y {
			p.Pos.Y = bounds.Max.Y
			p.Vel.Y *= restitution
			clamps++
		}

		p.Vel.Y += dv
	}

	return clamps
}

// Predict saves each position into PrevPos and advances it by Vel*dt.
func Predict(ps []components.Particle, dt float32) {
	for i := range ps {
		p := &ps[i]
		p.PrevPos = p.Pos
		p.Pos = p.Pos.Add(p.Vel.Scale(dt))
	}
}

// ReconstructVelocity sets Vel from the displacement realised this step,
// so clamps and relaxation corrections feed back into motion.
func ReconstructVelocity(ps []components.Particle, dt float32) {
	for i := range ps {
		p := &ps[i]
		p.Vel = p.Pos.Sub(p.PrevPos).Div(dt)
	}
}
