package game

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pbfluid/config"
	"github.com/pthm-cable/pbfluid/sim"
	"github.com/pthm-cable/pbfluid/telemetry"
	"github.com/pthm-cable/pbfluid/ui"
)

var backgroundColor = rl.Color{R: 8, G: 12, B: 20, A: 255}

// Draw renders the fluid, the HUD and the panels.
func (g *Game) Draw() {
	g.perfCollector.RecordFrame()

	var steps uint64
	g.drawBuf, steps = g.runner.Snapshot(g.drawBuf)
	paused := g.runner.Paused()

	rl.BeginDrawing()
	defer rl.EndDrawing()
	rl.ClearBackground(backgroundColor)

	g.particleRenderer.DrawBounds(g.bounds, g.camera)
	g.particleRenderer.Draw(g.drawBuf, g.camera)

	cfg := config.Cfg()
	g.hud.Draw(ui.HUDData{
		Title:          "pbfluid",
		Particles:      len(g.drawBuf),
		Tick:           steps,
		SimTimeSec:     float64(steps) * cfg.Physics.DT,
		StepsPerUpdate: g.stepsPerUpdate,
		FPS:            rl.GetFPS(),
		Paused:         paused,
	})

	if g.showPerf {
		g.perfPanel.Draw(g.perfCollector.Stats(), telemetry.ReportedPhases())
	}
	g.statsPanel.Draw(g.lastStats)

	g.drawTuningPanel(paused)

	g.hud.DrawControls(int32(g.screenHeight), controlsText)
}

// drawTuningPanel shows the parameter sliders and applies any edits between steps.
func (g *Game) drawTuningPanel(paused bool) {
	var params ui.Params
	_ = g.runner.Do(func(s *sim.Simulation) error {
		params = ui.ParamsOf(s)
		return nil
	})

	edited, actions := g.tuningPanel.Draw(params, paused)
	if edited != params {
		_ = g.runner.Do(func(s *sim.Simulation) error {
			edited.ApplyTo(s)
			return nil
		})
	}

	if actions.TogglePause {
		g.TogglePause()
	}
	if actions.Reset {
		g.Reset()
	}
}
