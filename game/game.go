// Package game wires the fluid engine to its runner, telemetry and the raylib front end.
package game

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pthm-cable/pbfluid/camera"
	"github.com/pthm-cable/pbfluid/components"
	"github.com/pthm-cable/pbfluid/config"
	"github.com/pthm-cable/pbfluid/renderer"
	"github.com/pthm-cable/pbfluid/runner"
	"github.com/pthm-cable/pbfluid/sim"
	"github.com/pthm-cable/pbfluid/stream"
	"github.com/pthm-cable/pbfluid/telemetry"
	"github.com/pthm-cable/pbfluid/ui"
)

// Steps-per-update limits for the speed keys.
const (
	minStepsPerUpdate = 1
	maxStepsPerUpdate = 10
)

// Options configures a Game.
type Options struct {
	Seed           int64
	LogStats       bool
	StatsWindowSec float64
	OutputDir      string
	Headless       bool
	StepsPerUpdate int
}

// Game holds the complete application state around one fluid engine.
type Game struct {
	runner  *runner.Runner
	rngSeed int64

	// tick counts steps across resets. Written by the step hooks, so it is
	// only touched with the runner's lock held.
	tick int32

	// Telemetry
	collector     *telemetry.Collector
	perfCollector *telemetry.PerfCollector
	outputManager *telemetry.OutputManager
	logStats      bool
	statsCallback func(telemetry.WindowStats)
	lastStats     *telemetry.WindowStats

	// Rendering, nil when headless
	camera           *camera.Camera
	particleRenderer *renderer.ParticleRenderer
	hud              *ui.HUD
	perfPanel        *ui.PerfPanel
	statsPanel       *ui.StatsPanel
	tuningPanel      *ui.TuningPanel
	showPerf         bool
	drawBuf          []components.Particle

	stream *stream.Server

	headless       bool
	stepsPerUpdate int
	bounds         components.Rect
	followWindow   bool
	screenWidth    float32
	screenHeight   float32
}

// NewGameWithOptions builds the engine from the global config and prepares
// telemetry. Graphical mode needs an open raylib window.
func NewGameWithOptions(opts Options) (*Game, error) {
	cfg := config.Cfg()

	g := &Game{
		rngSeed:        opts.Seed,
		logStats:       opts.LogStats,
		headless:       opts.Headless,
		stepsPerUpdate: clampSteps(opts.StepsPerUpdate),
		bounds:         cfg.Derived.Bounds,
		followWindow:   cfg.World.Width == 0 && cfg.World.Height == 0,
		screenWidth:    cfg.Derived.ScreenW32,
		screenHeight:   cfg.Derived.ScreenH32,
		perfCollector:  telemetry.NewPerfCollector(cfg.Telemetry.PerfCollectorWindow),
	}

	statsWindow := opts.StatsWindowSec
	if statsWindow <= 0 {
		statsWindow = cfg.Telemetry.StatsWindow
	}
	g.collector = telemetry.NewCollector(statsWindow, cfg.Derived.DT32)

	b, err := cfg.BuilderWithSeed(opts.Seed)
	if err != nil {
		return nil, err
	}
	s, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("building simulation: %w", err)
	}
	s.SetPhaseTimer(g.perfCollector)

	g.runner, err = runner.New(s, cfg.Derived.DT32, cfg.Physics.MaxStepsPerFrame)
	if err != nil {
		return nil, err
	}
	g.runner.SetHooks(runner.Hooks{
		BeforeStep: g.beforeStep,
		AfterStep:  g.afterStep,
	})

	om, err := telemetry.NewOutputManager(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	g.outputManager = om
	if err := om.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config", "error", err)
	}

	if !g.headless {
		g.initRendering()
	}

	slog.Info("simulation ready",
		"particles", s.Len(),
		"seed", g.rngSeed,
		"bounds", g.bounds,
	)

	return g, nil
}

func (g *Game) initRendering() {
	cfg := config.Cfg()
	worldW, worldH := cfg.Derived.WorldW32, cfg.Derived.WorldH32

	g.camera = camera.New(g.screenWidth, g.screenHeight, worldW, worldH)
	g.particleRenderer = renderer.NewParticleRenderer(
		float32(cfg.Render.ParticleRadius),
		float32(cfg.Render.SpeedColorMax),
	)
	g.hud = ui.NewHUD()
	g.perfPanel = ui.NewPerfPanel(10, 110)
	g.statsPanel = ui.NewStatsPanel(int32(g.screenWidth)-250, 10, 240)
	g.tuningPanel = ui.NewTuningPanel(10, int32(g.screenHeight)-330, 280)
}

func clampSteps(n int) int {
	return max(minStepsPerUpdate, min(maxStepsPerUpdate, n))
}

// Runner exposes the locked engine for other front ends.
func (g *Game) Runner() *runner.Runner {
	return g.runner
}

// Bounds returns the current confining rectangle.
func (g *Game) Bounds() components.Rect {
	return g.bounds
}

// SetStatsCallback registers fn to receive every flushed stats window.
func (g *Game) SetStatsCallback(fn func(telemetry.WindowStats)) {
	g.statsCallback = fn
}

// AttachStream routes client edits from srv to the engine and keeps its
// bounds in step with window resizes.
func (g *Game) AttachStream(srv *stream.Server) {
	g.stream = srv
	srv.OnControl = g.applyControl
}

func (g *Game) applyControl(c stream.Control) error {
	if err := g.runner.Do(c.Apply); err != nil {
		return err
	}
	if c.Paused != nil {
		g.runner.SetPaused(*c.Paused)
	}
	return nil
}

// UpdateHeadless runs stepsPerUpdate steps with no rendering or input.
func (g *Game) UpdateHeadless() error {
	return g.runner.StepN(g.stepsPerUpdate)
}

// Update handles input and advances the simulation by the frame time,
// stepsPerUpdate times over.
func (g *Game) Update(frameTime float32) {
	g.handleInput()

	elapsed := time.Duration(float64(frameTime) * float64(time.Second))
	for i := 0; i < g.stepsPerUpdate; i++ {
		if _, err := g.runner.Advance(elapsed); err != nil {
			slog.Error("step failed, pausing", "error", err)
			g.runner.SetPaused(true)
			return
		}
	}
}

// TogglePause flips the runner's pause state.
func (g *Game) TogglePause() {
	g.runner.SetPaused(!g.runner.Paused())
}

// Reset respawns the fluid from config with the current bounds. The tick
// counter keeps running so telemetry windows stay ordered; the open window is
// dropped.
func (g *Game) Reset() {
	b, err := config.Cfg().BuilderInBounds(g.rngSeed, g.bounds)
	if err != nil {
		slog.Error("reset failed", "error", err)
		return
	}
	s, err := b.Build()
	if err != nil {
		slog.Error("reset failed", "error", err)
		return
	}
	s.SetPhaseTimer(g.perfCollector)
	err = g.runner.ReplaceThen(s, func(*sim.Simulation) {
		g.collector.StartWindow(g.tick)
	})
	if err != nil {
		slog.Error("reset failed", "error", err)
		return
	}
	slog.Info("simulation reset", "particles", s.Len())
}

// Tick returns the number of steps taken since start, across resets.
func (g *Game) Tick() int32 {
	var t int32
	_ = g.runner.Do(func(*sim.Simulation) error {
		t = g.tick
		return nil
	})
	return t
}

// Unload releases all resources.
func (g *Game) Unload() {
	if err := g.outputManager.Close(); err != nil {
		slog.Error("failed to close output", "error", err)
	}
}
