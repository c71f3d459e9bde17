// Package sim is the particle fluid engine: a grid-accelerated,
// position-based density relaxation integrator.
//
// A Simulation is not safe for concurrent use. The owner serialises Step,
// parameter writes and snapshot reads behind its own lock (see package runner).
package sim

import (
	"fmt"
	"math/rand"

	"github.com/pthm-cable/pbfluid/components"
	"github.com/pthm-cable/pbfluid/systems"
)

// Step phase names, reported to a PhaseTimer in this order.
const (
	PhaseBoundaries = "boundaries"
	PhaseReindex    = "reindex"
	PhasePredict    = "predict"
	PhaseRelax      = "relax"
	PhaseVelocity   = "velocity"
)

// Phases lists the step phases in execution order.
var Phases = []string{PhaseBoundaries, PhaseReindex, PhasePredict, PhaseRelax, PhaseVelocity}

// PhaseTimer receives a call as each step phase begins.
type PhaseTimer interface {
	StartPhase(phase string)
}

// Simulation owns the particle store, the spatial grid and the physical parameters.
// The exported fields may be rewritten by the owner between steps.
type Simulation struct {
	Gravity                float32
	Boundaries             components.Rect
	InteractionRadius      float32
	PressureMultiplier     float32
	NearPressureMultiplier float32
	RestDensity            float32
	Restitution            float32

	particles []components.Particle
	densities []float32
	grid      *systems.HashGrid
	relaxer   *systems.Relaxer
	newRand   func() *rand.Rand
	timer     PhaseTimer

	initialized    bool
	steps          uint64
	lastCollisions int
}

// Init indexes every particle in the grid and seeds PrevPos from Pos.
// Must be called once before the first Step; calling it again resets the grid.
func (s *Simulation) Init() error {
	if err := checkRadius(s.InteractionRadius); err != nil {
		return err
	}

	for i := range s.particles {
		s.particles[i].PrevPos = s.particles[i].Pos
	}
	s.grid = systems.NewHashGrid(s.InteractionRadius)
	s.grid.Rebuild(s.particles)

	if len(s.densities) != len(s.particles) {
		s.densities = make([]float32, len(s.particles))
	}
	s.initialized = true
	return nil
}

// Step advances the simulation by dt seconds:
// boundaries and gravity, grid re-indexing, prediction, density relaxation,
// then velocity reconstruction.
func (s *Simulation) Step(dt float32) error {
	if !(dt > 0) || !finite(dt) {
		return fmt.Errorf("%w: dt must be positive, got %v", ErrInvalidTimestep, dt)
	}
	if !s.initialized {
		return ErrNotInitialized
	}
	if err := checkRadius(s.InteractionRadius); err != nil {
		return err
	}
	if s.grid.Radius() != s.InteractionRadius {
		s.grid = systems.NewHashGrid(s.InteractionRadius)
		s.grid.Rebuild(s.particles)
	}

	ps := s.particles

	s.startPhase(PhaseBoundaries)
	s.lastCollisions = systems.ResolveBoundaries(ps, s.Boundaries, s.Restitution, s.Gravity, dt)

	s.startPhase(PhaseReindex)
	s.grid.Reindex(ps)

	s.startPhase(PhasePredict)
	systems.Predict(ps, dt)

	s.startPhase(PhaseRelax)
	s.relaxer.Relax(ps, s.grid, systems.RelaxParams{
		Radius:                 s.InteractionRadius,
		PressureMultiplier:     s.PressureMultiplier,
		NearPressureMultiplier: s.NearPressureMultiplier,
		RestDensity:            s.RestDensity,
	}, dt, s.densities)

	s.startPhase(PhaseVelocity)
	systems.ReconstructVelocity(ps, dt)

	s.steps++
	return nil
}

func (s *Simulation) startPhase(name string) {
	if s.timer != nil {
		s.timer.StartPhase(name)
	}
}

// SetPhaseTimer installs a timer notified at each phase boundary. nil disables timing.
func (s *Simulation) SetPhaseTimer(t PhaseTimer) {
	s.timer = t
}

// Particles returns the live particle store. The slice is a read-only view:
// it must not be modified or retained across Step calls.
func (s *Simulation) Particles() []components.Particle {
	return s.particles
}

// Snapshot copies the particles into dst (grown as needed) and returns it.
func (s *Simulation) Snapshot(dst []components.Particle) []components.Particle {
	return append(dst[:0], s.particles...)
}

// Densities returns the density each particle saw during the last relaxation
// pass (zero before the first Step). Read-only, like Particles.
func (s *Simulation) Densities() []float32 {
	return s.densities
}

// WithParticles returns a new, uninitialised engine with the same parameters
// and a copy of ps. The receiver is unchanged. The new engine gets its own
// random source, started afresh from the builder's seed or factory.
func (s *Simulation) WithParticles(ps []components.Particle) *Simulation {
	next := &Simulation{
		Gravity:                s.Gravity,
		Boundaries:             s.Boundaries,
		InteractionRadius:      s.InteractionRadius,
		PressureMultiplier:     s.PressureMultiplier,
		NearPressureMultiplier: s.NearPressureMultiplier,
		RestDensity:            s.RestDensity,
		Restitution:            s.Restitution,
		particles:              copyParticles(ps),
		newRand:                s.newRand,
		relaxer:                systems.NewRelaxer(s.newRand()),
		timer:                  s.timer,
	}
	return next
}

// Len returns the particle count.
func (s *Simulation) Len() int {
	return len(s.particles)
}

// Steps returns the number of completed steps.
func (s *Simulation) Steps() uint64 {
	return s.steps
}

// LastCollisions returns how many boundary clamps the last step performed.
func (s *Simulation) LastCollisions() int {
	return s.lastCollisions
}

// Initialized reports whether Init has succeeded.
func (s *Simulation) Initialized() bool {
	return s.initialized
}

func copyParticles(ps []components.Particle) []components.Particle {
	out := make([]components.Particle, len(ps))
	copy(out, ps)
	for i := range out {
		out[i].CellSlot = -1
	}
	return out
}
