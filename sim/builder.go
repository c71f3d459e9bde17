package sim

import (
	"math/rand"

	"github.com/pthm-cable/pbfluid/components"
	"github.com/pthm-cable/pbfluid/systems"
)

// Defaults for a freshly created Builder. Boundaries default to a point at
// the origin and must be set before particles have room to move.
const (
	DefaultGravity                = 196.0
	DefaultInteractionRadius      = 40.0
	DefaultPressureMultiplier     = 45.0
	DefaultNearPressureMultiplier = 45.0
	DefaultRestDensity            = 9.0
	DefaultRestitution            = -0.5
	DefaultSeed                   = 1
)

// Builder assembles the parameters and initial particles of a Simulation.
// Every With method returns a modified copy, so a base Builder can be reused
// to derive variants.
type Builder struct {
	Gravity                float32
	Boundaries             components.Rect
	InteractionRadius      float32
	PressureMultiplier     float32
	NearPressureMultiplier float32
	RestDensity            float32
	Restitution            float32
	Seed                   int64

	particles []components.Particle
	newRand   func() *rand.Rand
}

// NewBuilder returns a Builder holding the documented defaults and no particles.
func NewBuilder() Builder {
	return Builder{
		Gravity:                DefaultGravity,
		InteractionRadius:      DefaultInteractionRadius,
		PressureMultiplier:     DefaultPressureMultiplier,
		NearPressureMultiplier: DefaultNearPressureMultiplier,
		RestDensity:            DefaultRestDensity,
		Restitution:            DefaultRestitution,
		Seed:                   DefaultSeed,
	}
}

// WithGravity returns a copy with the downward acceleration replaced.
func (b Builder) WithGravity(g float32) Builder {
	b.Gravity = g
	return b
}

// WithBoundaries returns a copy with the confining rectangle replaced.
func (b Builder) WithBoundaries(r components.Rect) Builder {
	b.Boundaries = r
	return b
}

// WithInteractionRadius returns a copy with the neighbour radius replaced.
func (b Builder) WithInteractionRadius(r float32) Builder {
	b.InteractionRadius = r
	return b
}

// WithPressureMultiplier returns a copy with the pressure stiffness replaced.
func (b Builder) WithPressureMultiplier(k float32) Builder {
	b.PressureMultiplier = k
	return b
}

// WithNearPressureMultiplier returns a copy with the near-pressure stiffness replaced.
func (b Builder) WithNearPressureMultiplier(k float32) Builder {
	b.NearPressureMultiplier = k
	return b
}

// WithRestDensity returns a copy with the target density replaced.
func (b Builder) WithRestDensity(d float32) Builder {
	b.RestDensity = d
	return b
}

// WithRestitution returns a copy with the boundary bounce factor replaced.
func (b Builder) WithRestitution(r float32) Builder {
	b.Restitution = r
	return b
}

// WithSeed returns a copy that seeds a fresh random source on Build.
// Ignored when WithRand supplied a source.
func (b Builder) WithSeed(seed int64) Builder {
	b.Seed = seed
	return b
}

// WithRand returns a copy whose engines draw the coincident-particle
// fallback from newRand. Build calls newRand once per engine, so it must
// return a fresh source each time; sharing one source between engines breaks
// their reproducibility.
func (b Builder) WithRand(newRand func() *rand.Rand) Builder {
	b.newRand = newRand
	return b
}

// WithParticles returns a copy holding its own copy of ps.
func (b Builder) WithParticles(ps []components.Particle) Builder {
	b.particles = copyParticles(ps)
	return b
}

// Particles returns the builder's initial particles. Read-only.
func (b Builder) Particles() []components.Particle {
	return b.particles
}

// Validate reports the first parameter the engine cannot run with.
func (b Builder) Validate() error {
	if err := checkRadius(b.InteractionRadius); err != nil {
		return err
	}
	if !finite(b.Gravity) {
		return paramError("gravity must be finite, got %v", b.Gravity)
	}
	if !finite(b.PressureMultiplier) || !finite(b.NearPressureMultiplier) {
		return paramError("pressure multipliers must be finite, got %v and %v",
			b.PressureMultiplier, b.NearPressureMultiplier)
	}
	if !finite(b.RestDensity) {
		return paramError("rest density must be finite, got %v", b.RestDensity)
	}
	if !finite(b.Restitution) || b.Restitution < -1 || b.Restitution > 0 {
		return paramError("restitution must be in [-1, 0], got %v", b.Restitution)
	}
	r := b.Boundaries
	if !finite(r.Min.X) || !finite(r.Min.Y) || !finite(r.Max.X) || !finite(r.Max.Y) || !r.Valid() {
		return paramError("boundaries must be finite with min <= max, got %v", r)
	}
	return nil
}

// Build validates the parameters and returns a Simulation holding a copy of
// the particles. The result still needs Init before the first Step.
func (b Builder) Build() (*Simulation, error) {
	if err := b.Validate(); err != nil {
		return nil, err
	}

	newRand := b.newRand
	if newRand == nil {
		seed := b.Seed
		newRand = func() *rand.Rand { return rand.New(rand.NewSource(seed)) }
	}
	rng := newRand()

	return &Simulation{
		Gravity:                b.Gravity,
		Boundaries:             b.Boundaries,
		InteractionRadius:      b.InteractionRadius,
		PressureMultiplier:     b.PressureMultiplier,
		NearPressureMultiplier: b.NearPressureMultiplier,
		RestDensity:            b.RestDensity,
		Restitution:            b.Restitution,
		particles:              copyParticles(b.particles),
		newRand:                newRand,
		relaxer:                systems.NewRelaxer(rng),
	}, nil
}
