// Package telemetry provides fluid health tracking, performance timing and CSV output.
package telemetry

import "github.com/pthm-cable/pbfluid/components"

// Collector accumulates events within time windows and produces WindowStats.
type Collector struct {
	windowDurationSec   float64
	windowDurationTicks int32
	dt                  float32

	// Current window tracking
	windowStartTick int32

	// Event counters for current window
	collisions int

	// Scratch reused across flushes
	speeds    []float64
	densities []float64
	vx, vy    []float32
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec float64, dt float32) *Collector {
	ticksPerWindow := int32(windowDurationSec/float64(dt) + 0.5)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationSec:   windowDurationSec,
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordStep records the boundary clamps performed by one step.
func (c *Collector) RecordStep(collisions int) {
	c.collisions += collisions
}

// StartWindow discards the open window and starts a new one at tick.
// Used on reset so a window never mixes two fluids.
func (c *Collector) StartWindow(tick int32) {
	c.windowStartTick = tick
	c.collisions = 0
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
// The caller must provide:
// - currentTick: the current simulation tick
// - ps: the particle store (read only)
// - densities: per-particle density from the last step, may be nil
// - bounds: the confining rectangle, for counting escaped particles
func (c *Collector) Flush(
	currentTick int32,
	ps []components.Particle,
	densities []float32,
	bounds components.Rect,
) WindowStats {
	c.speeds = c.speeds[:0]
	c.vx = c.vx[:0]
	c.vy = c.vy[:0]
	escaped := 0
	for i := range ps {
		p := &ps[i]
		c.speeds = append(c.speeds, float64(p.Speed()))
		c.vx = append(c.vx, p.Vel.X)
		c.vy = append(c.vy, p.Vel.Y)
		if !bounds.Contains(p.Pos) {
			escaped++
		}
	}

	c.densities = c.densities[:0]
	for _, d := range densities {
		c.densities = append(c.densities, float64(d))
	}

	speed := ComputeDistribution(c.speeds)
	density := ComputeDistribution(c.densities)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * float64(c.dt),

		Particles: len(ps),

		SpeedMean: speed.Mean,
		SpeedStd:  speed.Std,
		SpeedP10:  speed.P10,
		SpeedP50:  speed.P50,
		SpeedP90:  speed.P90,
		SpeedMax:  speed.Max,

		KineticEnergy: KineticEnergy(c.vx, c.vy),

		DensityMean: density.Mean,
		DensityStd:  density.Std,
		DensityMax:  density.Max,

		Collisions: c.collisions,
		Escaped:    escaped,
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.collisions = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}

// WindowDurationSec returns the configured window length in sim seconds.
func (c *Collector) WindowDurationSec() float64 {
	return c.windowDurationSec
}
