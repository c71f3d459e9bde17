package main

import (
	"math"
	"sync"

	"github.com/pthm-cable/pbfluid/config"
	"github.com/pthm-cable/pbfluid/telemetry"
)

// failedFitness is returned for parameter sets the engine rejects or that
// blow up mid-run.
const failedFitness = 1e6

// Fitness weights.
const (
	motionWeight = 0.002 // per unit of kinetic energy per particle
	escapeWeight = 10.0  // per fraction of particles outside the walls
)

// FitnessEvaluator runs headless simulations and computes fitness.
type FitnessEvaluator struct {
	params        *ParamVector
	maxTicks      int32
	seeds         []int64
	baseConfig    *config.Config
	statsWindow   float64
	warmupWindows int

	mu          sync.Mutex
	lastMetrics Metrics // from the most recent Evaluate call
}

// NewFitnessEvaluator creates a new evaluator. The first warmupWindows stats
// windows of each run are ignored while the block collapses into a pool.
func NewFitnessEvaluator(params *ParamVector, maxTicks int32, seeds []int64, baseCfg *config.Config, warmupWindows int) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:        params,
		maxTicks:      maxTicks,
		seeds:         seeds,
		baseConfig:    baseCfg,
		statsWindow:   2.0,
		warmupWindows: warmupWindows,
	}
}

// LastMetrics returns the seed-averaged metrics from the most recent evaluation.
func (fe *FitnessEvaluator) LastMetrics() Metrics {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastMetrics
}

// Metrics summarise the settled windows of a run.
type Metrics struct {
	Motion    float64 // mean kinetic energy per particle
	DensityCV float64 // mean density std / mean density
	Escaped   float64 // mean fraction of particles outside the walls
}

// Fitness combines metrics into a scalar (lower = better).
func (m Metrics) Fitness() float64 {
	return m.DensityCV + motionWeight*m.Motion + escapeWeight*m.Escaped
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
// Seeds run in parallel, each with its own engine.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	fe.params.ApplyToConfig(cfg, x)

	results := make([]Metrics, len(fe.seeds))
	failed := make([]bool, len(fe.seeds))
	var wg sync.WaitGroup

	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s int64) {
			defer wg.Done()
			windows, err := runSimulation(cfg, s, fe.maxTicks, fe.statsWindow)
			if err != nil {
				failed[idx] = true
				return
			}
			m, ok := computeMetrics(windows, fe.warmupWindows)
			results[idx] = m
			failed[idx] = !ok
		}(i, seed)
	}
	wg.Wait()

	var avg Metrics
	for i, m := range results {
		if failed[i] {
			return failedFitness
		}
		avg.Motion += m.Motion
		avg.DensityCV += m.DensityCV
		avg.Escaped += m.Escaped
	}
	n := float64(len(fe.seeds))
	avg.Motion /= n
	avg.DensityCV /= n
	avg.Escaped /= n

	fe.mu.Lock()
	fe.lastMetrics = avg
	fe.mu.Unlock()

	fitness := avg.Fitness()
	if math.IsNaN(fitness) || math.IsInf(fitness, 0) {
		return failedFitness
	}
	return fitness
}

// runSimulation executes a single headless run and returns its stats windows.
func runSimulation(cfg *config.Config, seed int64, maxTicks int32, statsWindow float64) ([]telemetry.WindowStats, error) {
	b, err := cfg.BuilderWithSeed(seed)
	if err != nil {
		return nil, err
	}
	s, err := b.Build()
	if err != nil {
		return nil, err
	}
	if err := s.Init(); err != nil {
		return nil, err
	}

	dt := cfg.Derived.DT32
	collector := telemetry.NewCollector(statsWindow, dt)

	var windows []telemetry.WindowStats
	for tick := int32(1); tick <= maxTicks; tick++ {
		if err := s.Step(dt); err != nil {
			return nil, err
		}
		collector.RecordStep(s.LastCollisions())
		if collector.ShouldFlush(tick) {
			windows = append(windows, collector.Flush(tick, s.Particles(), s.Densities(), s.Boundaries))
		}
	}
	return windows, nil
}

// computeMetrics averages the windows after warmup. Reports false when no
// window is left to score.
func computeMetrics(windows []telemetry.WindowStats, warmupWindows int) (Metrics, bool) {
	if len(windows) <= warmupWindows {
		return Metrics{}, false
	}

	var m Metrics
	var count float64
	for _, w := range windows[warmupWindows:] {
		if w.Particles == 0 {
			continue
		}
		n := float64(w.Particles)
		m.Motion += w.KineticEnergy / n
		if w.DensityMean > 0 {
			m.DensityCV += w.DensityStd / w.DensityMean
		}
		m.Escaped += float64(w.Escaped) / n
		count++
	}
	if count == 0 {
		return Metrics{}, false
	}

	m.Motion /= count
	m.DensityCV /= count
	m.Escaped /= count
	return m, true
}

// copyConfig copies the base config. Config holds only values, so a struct
// copy is deep.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	return &cfg
}
