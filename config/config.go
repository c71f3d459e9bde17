// Package config provides configuration loading and access for the simulation.
package config

import (
	_ "embed"
	"fmt"
	"math/rand"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/pbfluid/components"
	"github.com/pthm-cable/pbfluid/sim"
	"github.com/pthm-cable/pbfluid/systems"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Spawn patterns.
const (
	PatternBlock   = "block"
	PatternScatter = "scatter"
)

// Config holds all simulation configuration parameters.
type Config struct {
	Screen    ScreenConfig    `yaml:"screen"`
	World     WorldConfig     `yaml:"world"`
	Physics   PhysicsConfig   `yaml:"physics"`
	Spawn     SpawnConfig     `yaml:"spawn"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Stream    StreamConfig    `yaml:"stream"`
	Render    RenderConfig    `yaml:"render"`

	// Derived values computed after loading
	Derived DerivedConfig `yaml:"-"`
}

// ScreenConfig holds display settings.
type ScreenConfig struct {
	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	TargetFPS int `yaml:"target_fps"`
}

// WorldConfig holds the simulated area. The fluid is confined to the world
// rectangle shrunk by Margin on every side.
type WorldConfig struct {
	Width  int     `yaml:"width"`  // 0 = use screen width
	Height int     `yaml:"height"` // 0 = use screen height
	Margin float64 `yaml:"margin"`
}

// PhysicsConfig holds the engine parameters.
type PhysicsConfig struct {
	DT                     float64 `yaml:"dt"`
	Gravity                float64 `yaml:"gravity"`
	InteractionRadius      float64 `yaml:"interaction_radius"`
	PressureMultiplier     float64 `yaml:"pressure_multiplier"`
	NearPressureMultiplier float64 `yaml:"near_pressure_multiplier"`
	RestDensity            float64 `yaml:"rest_density"`
	Restitution            float64 `yaml:"restitution"`      // velocity factor on wall contact, in [-1, 0]
	MaxStepsPerFrame       int     `yaml:"max_steps_per_frame"` // cap on catch-up steps per frame
}

// SpawnConfig describes the initial particle layout.
type SpawnConfig struct {
	Pattern string  `yaml:"pattern"`
	Count   int     `yaml:"count"`
	Columns int     `yaml:"columns"`
	Spacing float64 `yaml:"spacing"`
	OriginX float64 `yaml:"origin_x"`
	OriginY float64 `yaml:"origin_y"`
	Jitter  float64 `yaml:"jitter"`
	Seed    int64   `yaml:"seed"` // seeds both spawning and the engine
}

// TelemetryConfig holds telemetry parameters.
type TelemetryConfig struct {
	StatsWindow         float64 `yaml:"stats_window"` // seconds of sim time
	PerfCollectorWindow int     `yaml:"perf_collector_window"`
}

// StreamConfig holds the websocket frame stream settings.
type StreamConfig struct {
	Address    string `yaml:"address"`
	IntervalMs int    `yaml:"interval_ms"`
}

// RenderConfig holds particle drawing settings.
type RenderConfig struct {
	ParticleRadius float64 `yaml:"particle_radius"`
	SpeedColorMax  float64 `yaml:"speed_color_max"` // speed mapped to the hottest colour
}

// DerivedConfig holds computed values derived from the loaded config.
type DerivedConfig struct {
	DT32             float32         // Physics.DT as float32
	ScreenW32        float32         // Screen.Width as float32
	ScreenH32        float32         // Screen.Height as float32
	WorldW32         float32         // Effective world width as float32
	WorldH32         float32         // Effective world height as float32
	Bounds           components.Rect // World rectangle inset by margin
	StatsWindowTicks int             // Telemetry.StatsWindow in steps
}

// global holds the loaded configuration.
var global *Config

// Init loads configuration from the given path, or uses embedded defaults if path is empty.
// Must be called before Cfg().
func Init(path string) error {
	cfg, err := Load(path)
	if err != nil {
		return err
	}
	global = cfg
	return nil
}

// MustInit is like Init but panics on error.
func MustInit(path string) {
	if err := Init(path); err != nil {
		panic(fmt.Sprintf("config: failed to initialize: %v", err))
	}
}

// Cfg returns the global configuration. Panics if Init was not called.
func Cfg() *Config {
	if global == nil {
		panic("config: Cfg() called before Init()")
	}
	return global
}

// Load loads configuration from a YAML file, merging with embedded defaults.
// If path is empty, only embedded defaults are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		// Only overwrites fields present in the file
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.computeDerived()

	return cfg, nil
}

// Validate checks the settings the engine does not validate itself.
// Physical parameters are checked by sim.Builder when Builder is called.
func (c *Config) Validate() error {
	switch {
	case c.Screen.Width <= 0 || c.Screen.Height <= 0:
		return fmt.Errorf("screen size must be positive, got %dx%d", c.Screen.Width, c.Screen.Height)
	case c.World.Width < 0 || c.World.Height < 0:
		return fmt.Errorf("world size must not be negative, got %dx%d", c.World.Width, c.World.Height)
	case c.World.Margin < 0:
		return fmt.Errorf("world.margin must not be negative, got %v", c.World.Margin)
	case !(c.Physics.DT > 0):
		return fmt.Errorf("physics.dt must be positive, got %v", c.Physics.DT)
	case c.Physics.MaxStepsPerFrame < 1:
		return fmt.Errorf("physics.max_steps_per_frame must be at least 1, got %d", c.Physics.MaxStepsPerFrame)
	case c.Spawn.Count < 0:
		return fmt.Errorf("spawn.count must not be negative, got %d", c.Spawn.Count)
	case c.Telemetry.StatsWindow <= 0:
		return fmt.Errorf("telemetry.stats_window must be positive, got %v", c.Telemetry.StatsWindow)
	case c.Telemetry.PerfCollectorWindow < 1:
		return fmt.Errorf("telemetry.perf_collector_window must be at least 1, got %d", c.Telemetry.PerfCollectorWindow)
	case c.Stream.IntervalMs < 1:
		return fmt.Errorf("stream.interval_ms must be at least 1, got %d", c.Stream.IntervalMs)
	}

	switch c.Spawn.Pattern {
	case PatternBlock:
		if c.Spawn.Columns < 1 {
			return fmt.Errorf("spawn.columns must be at least 1, got %d", c.Spawn.Columns)
		}
		if c.Spawn.Spacing <= 0 {
			return fmt.Errorf("spawn.spacing must be positive, got %v", c.Spawn.Spacing)
		}
	case PatternScatter:
	default:
		return fmt.Errorf("unknown spawn.pattern %q", c.Spawn.Pattern)
	}
	return nil
}

// computeDerived calculates values derived from loaded config.
func (c *Config) computeDerived() {
	c.Derived.DT32 = float32(c.Physics.DT)
	c.Derived.ScreenW32 = float32(c.Screen.Width)
	c.Derived.ScreenH32 = float32(c.Screen.Height)

	// World dimensions default to screen size if not specified
	worldW := c.World.Width
	if worldW == 0 {
		worldW = c.Screen.Width
	}
	worldH := c.World.Height
	if worldH == 0 {
		worldH = c.Screen.Height
	}
	c.Derived.WorldW32 = float32(worldW)
	c.Derived.WorldH32 = float32(worldH)
	c.Derived.Bounds = BoundsFor(c.Derived.WorldW32, c.Derived.WorldH32, float32(c.World.Margin))

	c.Derived.StatsWindowTicks = int(c.Telemetry.StatsWindow/c.Physics.DT + 0.5)
	if c.Derived.StatsWindowTicks < 1 {
		c.Derived.StatsWindowTicks = 1
	}
}

// BoundsFor returns the confining rectangle for a w x h area with the given
// margin. A margin wider than the area collapses to the centre line.
func BoundsFor(w, h, margin float32) components.Rect {
	mx := min(margin, w/2)
	my := min(margin, h/2)
	return components.NewRect(mx, my, w-mx, h-my)
}

// Builder returns a sim.Builder carrying the physics settings and the
// spawned particles. The same seed drives spawning and the engine.
func (c *Config) Builder() (sim.Builder, error) {
	return c.BuilderWithSeed(c.Spawn.Seed)
}

// BuilderWithSeed is Builder with the spawn seed replaced.
func (c *Config) BuilderWithSeed(seed int64) (sim.Builder, error) {
	return c.BuilderInBounds(seed, c.Derived.Bounds)
}

// BuilderInBounds is BuilderWithSeed with the walls replaced, for a world
// that has been resized since the config was loaded. Scattered particles
// spawn inside bounds.
func (c *Config) BuilderInBounds(seed int64, bounds components.Rect) (sim.Builder, error) {
	rng := rand.New(rand.NewSource(seed))

	var ps []components.Particle
	switch c.Spawn.Pattern {
	case PatternScatter:
		ps = systems.SpawnScatter(bounds, c.Spawn.Count, rng)
	default:
		origin := components.Vec2{X: float32(c.Spawn.OriginX), Y: float32(c.Spawn.OriginY)}
		ps = systems.SpawnBlock(origin, c.Spawn.Count, c.Spawn.Columns,
			float32(c.Spawn.Spacing), float32(c.Spawn.Jitter), rng)
	}

	b := sim.NewBuilder().
		WithGravity(float32(c.Physics.Gravity)).
		WithBoundaries(bounds).
		WithInteractionRadius(float32(c.Physics.InteractionRadius)).
		WithPressureMultiplier(float32(c.Physics.PressureMultiplier)).
		WithNearPressureMultiplier(float32(c.Physics.NearPressureMultiplier)).
		WithRestDensity(float32(c.Physics.RestDensity)).
		WithRestitution(float32(c.Physics.Restitution)).
		WithSeed(seed).
		WithParticles(ps)

	if err := b.Validate(); err != nil {
		return sim.Builder{}, fmt.Errorf("physics config: %w", err)
	}
	return b, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
