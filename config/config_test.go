package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/pbfluid/components"
	"github.com/pthm-cable/pbfluid/sim"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Physics.Gravity != sim.DefaultGravity ||
		cfg.Physics.InteractionRadius != sim.DefaultInteractionRadius ||
		cfg.Physics.RestDensity != sim.DefaultRestDensity {
		t.Errorf("physics defaults drifted from the engine defaults: %+v", cfg.Physics)
	}
	if cfg.Derived.WorldW32 != float32(cfg.Screen.Width) || cfg.Derived.WorldH32 != float32(cfg.Screen.Height) {
		t.Errorf("world should default to screen size, got %vx%v", cfg.Derived.WorldW32, cfg.Derived.WorldH32)
	}
	if cfg.Derived.Bounds.Min.X != float32(cfg.World.Margin) {
		t.Errorf("bounds min x = %v, want margin %v", cfg.Derived.Bounds.Min.X, cfg.World.Margin)
	}
	if cfg.Derived.StatsWindowTicks != 300 {
		t.Errorf("StatsWindowTicks = %d, want 300 (5s at 60Hz)", cfg.Derived.StatsWindowTicks)
	}
}

func TestLoadOverlaysUserFile(t *testing.T) {
	path := writeFile(t, `
physics:
  gravity: 50
world:
  width: 600
  height: 400
  margin: 10
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Physics.Gravity != 50 {
		t.Errorf("gravity = %v, want 50", cfg.Physics.Gravity)
	}
	// Untouched keys keep their defaults.
	if cfg.Physics.PressureMultiplier != sim.DefaultPressureMultiplier {
		t.Errorf("pressure multiplier = %v, want default", cfg.Physics.PressureMultiplier)
	}
	b := cfg.Derived.Bounds
	if b.Min.X != 10 || b.Min.Y != 10 || b.Max.X != 590 || b.Max.Y != 390 {
		t.Errorf("bounds = %+v", b)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "physics: [1, 2"},
		{"zero dt", "physics:\n  dt: 0\n"},
		{"no catch-up steps", "physics:\n  max_steps_per_frame: 0\n"},
		{"unknown pattern", "spawn:\n  pattern: spiral\n"},
		{"block without columns", "spawn:\n  columns: 0\n"},
		{"negative count", "spawn:\n  count: -1\n"},
		{"zero stats window", "telemetry:\n  stats_window: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeFile(t, tt.body)); err == nil {
				t.Error("Load succeeded, want error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v, want os.ErrNotExist", err)
	}
}

func TestBuilderSpawnsParticles(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}

	b, err := cfg.Builder()
	if err != nil {
		t.Fatalf("Builder: %v", err)
	}
	if got := len(b.Particles()); got != cfg.Spawn.Count {
		t.Errorf("spawned %d particles, want %d", got, cfg.Spawn.Count)
	}
	if b.Boundaries != cfg.Derived.Bounds {
		t.Errorf("boundaries = %v, want %v", b.Boundaries, cfg.Derived.Bounds)
	}

	again, _ := cfg.Builder()
	for i, p := range b.Particles() {
		if again.Particles()[i] != p {
			t.Fatalf("particle %d differs between builds with the same seed", i)
		}
	}

	s, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	if err := s.Step(cfg.Derived.DT32); err != nil {
		t.Fatal(err)
	}
}

func TestBuilderScatterStaysInBounds(t *testing.T) {
	cfg, err := Load(writeFile(t, "spawn:\n  pattern: scatter\n  count: 200\n"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := cfg.Builder()
	if err != nil {
		t.Fatal(err)
	}
	for i, p := range b.Particles() {
		if !cfg.Derived.Bounds.Contains(p.Pos) {
			t.Errorf("particle %d at %v outside %v", i, p.Pos, cfg.Derived.Bounds)
		}
	}
}

func TestBuilderInBoundsFollowsResizedWorld(t *testing.T) {
	cfg, err := Load(writeFile(t, "spawn:\n  pattern: scatter\n  count: 200\n"))
	if err != nil {
		t.Fatal(err)
	}

	// A window shrunk well inside the configured world.
	small := components.NewRect(10, 10, 120, 90)
	b, err := cfg.BuilderInBounds(3, small)
	if err != nil {
		t.Fatal(err)
	}
	if b.Boundaries != small {
		t.Errorf("Boundaries = %v, want %v", b.Boundaries, small)
	}
	for i, p := range b.Particles() {
		if !small.Contains(p.Pos) {
			t.Fatalf("particle %d spawned at %v outside %v", i, p.Pos, small)
		}
	}
}

func TestBuilderRejectsBadPhysics(t *testing.T) {
	cfg, err := Load(writeFile(t, "physics:\n  restitution: 0.5\n"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := cfg.Builder(); !errors.Is(err, sim.ErrInvalidParameter) {
		t.Errorf("Builder error = %v, want sim.ErrInvalidParameter", err)
	}
}

func TestBoundsForClampsMargin(t *testing.T) {
	r := BoundsFor(100, 40, 30)
	if !r.Valid() {
		t.Fatalf("BoundsFor produced an inverted rect %v", r)
	}
	if r.Min.Y != 20 || r.Max.Y != 20 {
		t.Errorf("vertical bounds = %v..%v, want collapsed at 20", r.Min.Y, r.Max.Y)
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Physics.RestDensity = 3.5

	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatalf("WriteYAML: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("Load written file: %v", err)
	}
	if back.Physics.RestDensity != 3.5 {
		t.Errorf("rest density = %v, want 3.5", back.Physics.RestDensity)
	}
}
