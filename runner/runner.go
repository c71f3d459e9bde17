// Package runner drives a sim.Simulation at a fixed timestep and owns the
// lock that serialises stepping, parameter edits and snapshot reads.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pthm-cable/pbfluid/components"
	"github.com/pthm-cable/pbfluid/sim"
)

// Hooks observe each step. Both run on the stepping goroutine with the
// runner's lock held, so they may read the engine freely but must not call
// back into the Runner.
type Hooks struct {
	BeforeStep func(s *sim.Simulation)
	AfterStep  func(s *sim.Simulation)
}

// Runner steps a Simulation with a fixed dt, draining elapsed wall time
// through an accumulator.
type Runner struct {
	mu sync.Mutex

	sim      *sim.Simulation
	dt       float32
	dtDur    time.Duration
	maxSteps int
	hooks    Hooks

	accum  time.Duration
	paused bool
}

// New wraps s, initialising it if needed. maxSteps caps the steps one
// Advance may take; leftover time beyond the cap is dropped.
func New(s *sim.Simulation, dt float32, maxSteps int) (*Runner, error) {
	if !(dt > 0) {
		return nil, fmt.Errorf("%w: dt must be positive, got %v", sim.ErrInvalidTimestep, dt)
	}
	if maxSteps < 1 {
		maxSteps = 1
	}
	if !s.Initialized() {
		if err := s.Init(); err != nil {
			return nil, fmt.Errorf("initializing simulation: %w", err)
		}
	}
	return &Runner{
		sim:      s,
		dt:       dt,
		dtDur:    time.Duration(float64(dt) * float64(time.Second)),
		maxSteps: maxSteps,
	}, nil
}

// SetHooks installs step observers.
func (r *Runner) SetHooks(h Hooks) {
	r.mu.Lock()
	r.hooks = h
	r.mu.Unlock()
}

// DT returns the fixed step size in seconds.
func (r *Runner) DT() float32 {
	return r.dt
}

// MaxStepsPerAdvance returns the catch-up cap.
func (r *Runner) MaxStepsPerAdvance() int {
	return r.maxSteps
}

// Advance adds elapsed to the accumulator and runs as many whole steps as
// it covers, up to the cap. Returns the number of steps taken.
func (r *Runner) Advance(elapsed time.Duration) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.paused || elapsed <= 0 {
		return 0, nil
	}

	r.accum += elapsed
	n := 0
	for r.accum >= r.dtDur && n < r.maxSteps {
		if err := r.stepLocked(); err != nil {
			r.accum = 0
			return n, err
		}
		r.accum -= r.dtDur
		n++
	}
	// Spiral of death: drop what the cap could not cover.
	if r.accum >= r.dtDur {
		r.accum = 0
	}
	return n, nil
}

// StepN runs exactly n steps regardless of pause state or the cap.
func (r *Runner) StepN(n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := 0; i < n; i++ {
		if err := r.stepLocked(); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) stepLocked() error {
	if r.hooks.BeforeStep != nil {
		r.hooks.BeforeStep(r.sim)
	}
	if err := r.sim.Step(r.dt); err != nil {
		return err
	}
	if r.hooks.AfterStep != nil {
		r.hooks.AfterStep(r.sim)
	}
	return nil
}

// Run advances the simulation on every tick of interval until ctx is done.
// Returns nil on cancellation, or the first step error.
func (r *Runner) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			elapsed := now.Sub(last)
			last = now
			if _, err := r.Advance(elapsed); err != nil {
				return err
			}
		}
	}
}

// Do runs fn with the lock held. Use it to edit parameters between steps.
func (r *Runner) Do(fn func(s *sim.Simulation) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(r.sim)
}

// Snapshot copies the particles into dst and returns it, along with the
// number of completed steps.
func (r *Runner) Snapshot(dst []components.Particle) ([]components.Particle, uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sim.Snapshot(dst), r.sim.Steps()
}

// Replace swaps in a new engine, initialising it if needed, and clears the
// accumulator.
func (r *Runner) Replace(s *sim.Simulation) error {
	return r.ReplaceThen(s, nil)
}

// ReplaceThen is Replace with fn run under the same lock hold as the swap,
// so no step can land between the two.
func (r *Runner) ReplaceThen(s *sim.Simulation, fn func(s *sim.Simulation)) error {
	if !s.Initialized() {
		if err := s.Init(); err != nil {
			return fmt.Errorf("initializing simulation: %w", err)
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sim = s
	r.accum = 0
	if fn != nil {
		fn(s)
	}
	return nil
}

// SetPaused stops or resumes Advance. StepN ignores it.
func (r *Runner) SetPaused(p bool) {
	r.mu.Lock()
	r.paused = p
	if p {
		r.accum = 0
	}
	r.mu.Unlock()
}

// Paused reports whether Advance is suspended.
func (r *Runner) Paused() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused
}

// Steps returns the engine's completed step count.
func (r *Runner) Steps() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sim.Steps()
}
