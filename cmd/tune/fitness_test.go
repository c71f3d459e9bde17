package main

import (
	"math"
	"testing"

	"github.com/pthm-cable/pbfluid/config"
	"github.com/pthm-cable/pbfluid/telemetry"
)

func TestComputeMetrics(t *testing.T) {
	windows := []telemetry.WindowStats{
		{Particles: 100, KineticEnergy: 1e6, DensityMean: 1, DensityStd: 5, Escaped: 100}, // warmup, ignored
		{Particles: 100, KineticEnergy: 500, DensityMean: 10, DensityStd: 2},
		{Particles: 100, KineticEnergy: 1500, DensityMean: 10, DensityStd: 4, Escaped: 10},
	}

	m, ok := computeMetrics(windows, 1)
	if !ok {
		t.Fatal("computeMetrics reported no scored windows")
	}

	tests := []struct {
		name      string
		got, want float64
	}{
		{"motion", m.Motion, 10},
		{"density cv", m.DensityCV, 0.3},
		{"escaped", m.Escaped, 0.05},
		{"fitness", m.Fitness(), 0.3 + motionWeight*10 + escapeWeight*0.05},
	}
	for _, tt := range tests {
		if math.Abs(tt.got-tt.want) > 1e-9 {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestComputeMetricsNeedsSettledWindows(t *testing.T) {
	windows := []telemetry.WindowStats{{Particles: 10}, {Particles: 10}}
	if _, ok := computeMetrics(windows, 2); ok {
		t.Error("expected no score when every window is warmup")
	}
	if _, ok := computeMetrics([]telemetry.WindowStats{{}, {}}, 0); ok {
		t.Error("expected no score when every window is empty")
	}
}

func TestFitnessPrefersCalmPools(t *testing.T) {
	calm := Metrics{Motion: 2, DensityCV: 0.1}
	sloshing := Metrics{Motion: 200, DensityCV: 0.1}
	leaking := Metrics{Motion: 2, DensityCV: 0.1, Escaped: 0.2}

	if calm.Fitness() >= sloshing.Fitness() {
		t.Errorf("calm %v should beat sloshing %v", calm.Fitness(), sloshing.Fitness())
	}
	if calm.Fitness() >= leaking.Fitness() {
		t.Errorf("calm %v should beat leaking %v", calm.Fitness(), leaking.Fitness())
	}
}

func smallConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Spawn.Count = 100
	cfg.Spawn.Columns = 10
	return cfg
}

func TestRunSimulation(t *testing.T) {
	cfg := smallConfig(t)

	// 0.5s windows at 60 ticks/s = 30 ticks each
	windows, err := runSimulation(cfg, 7, 60, 0.5)
	if err != nil {
		t.Fatalf("runSimulation: %v", err)
	}
	if len(windows) != 2 {
		t.Fatalf("got %d windows, want 2", len(windows))
	}
	for i, w := range windows {
		if w.Particles != 100 {
			t.Errorf("window %d has %d particles, want 100", i, w.Particles)
		}
	}
	if windows[1].WindowEndTick != 60 {
		t.Errorf("last window ends at %d, want 60", windows[1].WindowEndTick)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	cfg := smallConfig(t)
	params := NewParamVector()
	fe := NewFitnessEvaluator(params, 60, []int64{1, 2}, cfg, 1)
	fe.statsWindow = 0.25

	x := params.ExtractFromConfig(cfg)
	a := fe.Evaluate(x)
	b := fe.Evaluate(x)
	if a != b {
		t.Errorf("Evaluate not deterministic: %v then %v", a, b)
	}
	if a >= failedFitness {
		t.Errorf("default parameters scored as failed: %v", a)
	}
}
