package systems

import (
	"math"
	"math/rand"

	"github.com/pthm-cable/pbfluid/components"
)

// RelaxParams holds the tunables of the density relaxation pass.
type RelaxParams struct {
	Radius                 float32
	PressureMultiplier     float32
	NearPressureMultiplier float32
	RestDensity            float32
}

// contact is a neighbour within the interaction radius.
type contact struct {
	j   int
	q   float32          // distance / radius, in [0, 1)
	dir components.Vec2 // unit vector from i towards j
}

// Relaxer runs the density relaxation pass. It owns the scratch buffers and
// the random source for the coincident-particle fallback, so one Relaxer
// must not be shared between goroutines.
type Relaxer struct {
	rng       *rand.Rand
	neighbors []int
	contacts  []contact
}

// NewRelaxer creates a relaxer. rng supplies fallback directions for
// particles at identical positions; nil falls back to +X.
func NewRelaxer(rng *rand.Rand) *Relaxer {
	return &Relaxer{
		rng:       rng,
		neighbors: make([]int, 0, 64),
		contacts:  make([]contact, 0, 64),
	}
}

// Relax pushes neighbouring particles apart (or together) directly in
// position space. It is a single in-place pass in index order: a neighbour's
// position may already have been moved by an earlier particle, so results
// depend on iteration order.
//
// Pressure is not clamped to zero. Sparse regions (density below rest) get
// negative pressure and attract.
//
// If densities is non-nil it must have len(ps) entries; each particle's
// density is written into it.
func (r *Relaxer) Relax(ps []components.Particle, grid *HashGrid, p RelaxParams, dt float32, densities []float32) {
	dt2 := dt * dt
	invRadius := 1 / p.Radius

	for i := range ps {
		r.neighbors = grid.NeighborsInto(r.neighbors[:0], grid.KeyFor(ps[i].Pos))
		r.contacts = r.contacts[:0]

		var density, nearDensity float32
		for _, j := range r.neighbors {
			if j == i {
				continue
			}
			diff := ps[j].Pos.Sub(ps[i].Pos)
			dist := diff.Len()
			q := dist * invRadius
			if q >= 1 {
				continue
			}

			var dir components.Vec2
			if dist == 0 {
				dir = r.fallbackDir()
			} else {
				dir = diff.Div(dist)
			}

			oneMinusQ := 1 - q
			density += oneMinusQ * oneMinusQ
			nearDensity += oneMinusQ * oneMinusQ * oneMinusQ
			r.contacts = append(r.contacts, contact{j: j, q: q, dir: dir})
		}

		if densities != nil {
			densities[i] = density
		}

		pressure := p.PressureMultiplier * (density - p.RestDensity)
		nearPressure := p.NearPressureMultiplier * nearDensity

		var delta components.Vec2
		for _, c := range r.contacts {
			oneMinusQ := 1 - c.q
			mag := (pressure*oneMinusQ + nearPressure*oneMinusQ*oneMinusQ) * dt2
			half := c.dir.Scale(mag * 0.5)

			ps[c.j].Pos = ps[c.j].Pos.Add(half)
			delta = delta.Sub(half)
		}

		ps[i].Pos = ps[i].Pos.Add(delta)
	}
}

// fallbackDir returns a unit vector for separating coincident particles.
func (r *Relaxer) fallbackDir() components.Vec2 {
	if r.rng == nil {
		return components.Vec2{X: 1}
	}
	a := r.rng.Float64() * 2 * math.Pi
	return components.Vec2{X: float32(math.Cos(a)), Y: float32(math.Sin(a))}
}

// DensityAt returns the density and near density seen by a particle at pos,
// skipping index self. Used for diagnostics and for calibrating RestDensity.
func DensityAt(ps []components.Particle, grid *HashGrid, pos components.Vec2, self int, radius float32, buf []int) (density, nearDensity float32) {
	buf = grid.NeighborsInto(buf[:0], grid.KeyFor(pos))
	for _, j := range buf {
		if j == self {
			continue
		}
		q := pos.Dist(ps[j].Pos) / radius
		if q >= 1 {
			continue
		}
		oneMinusQ := 1 - q
		density += oneMinusQ * oneMinusQ
		nearDensity += oneMinusQ * oneMinusQ * oneMinusQ
	}
	return density, nearDensity
}
