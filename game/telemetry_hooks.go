package game

import (
	"log/slog"

	"github.com/pthm-cable/pbfluid/sim"
	"github.com/pthm-cable/pbfluid/telemetry"
)

// beforeStep opens the perf sample for the coming step.
func (g *Game) beforeStep(*sim.Simulation) {
	g.perfCollector.StartTick()
}

// afterStep records the step's wall contacts and flushes telemetry when a
// window closes.
func (g *Game) afterStep(s *sim.Simulation) {
	g.perfCollector.StartPhase(telemetry.PhaseTelemetry)

	g.collector.RecordStep(s.LastCollisions())
	g.tick++
	g.flushTelemetry(s)

	g.perfCollector.EndTick()
}

// flushTelemetry checks if the stats window should be flushed and writes it out.
func (g *Game) flushTelemetry(s *sim.Simulation) {
	if !g.collector.ShouldFlush(g.tick) {
		return
	}

	stats := g.collector.Flush(g.tick, s.Particles(), s.Densities(), s.Boundaries)
	perfStats := g.perfCollector.Stats()
	g.lastStats = &stats

	// Call stats callback if provided
	if g.statsCallback != nil {
		g.statsCallback(stats)
	}

	// Log stats if enabled (console output)
	if g.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	// Write to CSV if output manager is enabled
	if g.outputManager != nil {
		if err := g.outputManager.WriteTelemetry(stats); err != nil {
			slog.Error("failed to write telemetry", "error", err)
		}
		if err := g.outputManager.WritePerf(perfStats, stats.WindowEndTick, stats.Particles); err != nil {
			slog.Error("failed to write perf", "error", err)
		}
	}
}
