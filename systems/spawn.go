package systems

import (
	"math/rand"

	"github.com/pthm-cable/pbfluid/components"
)

// SpawnBlock places count particles on a square lattice, columns wide,
// starting at origin. Each particle is nudged by up to ±jitter on both axes
// when rng is non-nil, which breaks the symmetry of a perfect lattice.
func SpawnBlock(origin components.Vec2, count, columns int, spacing, jitter float32, rng *rand.Rand) []components.Particle {
	if count <= 0 {
		return nil
	}
	if columns < 1 {
		columns = 1
	}

	ps := make([]components.Particle, 0, count)
	for i := 0; i < count; i++ {
		col := i % columns
		row := i / columns
		x := origin.X + float32(col)*spacing
		y := origin.Y + float32(row)*spacing
		if rng != nil && jitter > 0 {
			x += (rng.Float32()*2 - 1) * jitter
			y += (rng.Float32()*2 - 1) * jitter
		}
		ps = append(ps, components.NewParticle(x, y))
	}
	return ps
}

// SpawnScatter places count particles uniformly at random inside area.
func SpawnScatter(area components.Rect, count int, rng *rand.Rand) []components.Particle {
	if count <= 0 {
		return nil
	}

	ps := make([]components.Particle, 0, count)
	for i := 0; i < count; i++ {
		x := area.Min.X + rng.Float32()*area.Width()
		y := area.Min.Y + rng.Float32()*area.Height()
		ps = append(ps, components.NewParticle(x, y))
	}
	return ps
}
