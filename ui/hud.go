package ui

import (
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pbfluid/telemetry"
)

// HUDData holds all the data needed to render the main HUD.
type HUDData struct {
	Title          string
	Particles      int
	Tick           uint64
	SimTimeSec     float64
	StepsPerUpdate int
	FPS            int32
	Paused         bool
}

// HUD renders the main heads-up display.
type HUD struct {
	renderer *Renderer
}

// NewHUD creates a new HUD renderer.
func NewHUD() *HUD {
	return &HUD{
		renderer: NewRenderer(),
	}
}

// Draw renders the HUD.
func (h *HUD) Draw(data HUDData) {
	rl.DrawText(data.Title, 10, 10, 20, rl.White)

	rl.DrawText(
		fmt.Sprintf("Particles: %d | Tick: %d | Time: %.1fs", data.Particles, data.Tick, data.SimTimeSec),
		10, 35, 16, rl.LightGray,
	)
	rl.DrawText(
		fmt.Sprintf("Speed: %dx | FPS: %d", data.StepsPerUpdate, data.FPS),
		10, 55, 16, rl.LightGray,
	)

	statusText := "Running"
	if data.Paused {
		statusText = "PAUSED"
	}
	rl.DrawText(statusText, 10, 75, 16, rl.Yellow)
}

// DrawControls renders the control legend at the bottom of the screen.
func (h *HUD) DrawControls(screenHeight int32, controls string) {
	rl.DrawText(controls, 10, screenHeight-25, 14, rl.Gray)
}

// PerfPanel renders the per-phase step timing.
type PerfPanel struct {
	renderer *Renderer
	x, y     int32
}

// NewPerfPanel creates a new performance panel.
func NewPerfPanel(x, y int32) *PerfPanel {
	return &PerfPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
	}
}

// SetPosition updates the panel position.
func (p *PerfPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders the performance panel, listing phases in the given order.
func (p *PerfPanel) Draw(stats telemetry.PerfStats, phases []string) {
	x := p.x
	y := p.y

	rl.DrawText("Step Performance", x, y, 16, rl.White)
	y += 20

	rl.DrawText(fmt.Sprintf("Avg step: %s (%.0f/s)", stats.AvgTickDuration.Round(time.Microsecond), stats.TicksPerSecond), x, y, 14, rl.Yellow)
	y += 16

	for _, name := range phases {
		avg := stats.PhaseAvg[name]
		pct := stats.PhasePct[name]

		color := rl.LightGray
		if pct > 50 {
			color = rl.Red
		} else if pct > 25 {
			color = rl.Orange
		}

		rl.DrawText(
			fmt.Sprintf("%-12s %8s %5.1f%%", name, avg.Round(time.Microsecond), pct),
			x, y, 12, color,
		)
		y += 14
	}
}

// StatsSections describes the WindowStats panel layout.
var StatsSections = []SectionDescriptor{
	{
		ID:    "motion",
		Title: "Motion",
		Fields: []FieldDescriptor{
			{ID: "speed_mean", Label: "Mean speed", Widget: WidgetText, Format: "%.1f", Getter: windowGetter(func(s *telemetry.WindowStats) float64 { return s.SpeedMean })},
			{ID: "speed_p90", Label: "P90 speed", Widget: WidgetText, Format: "%.1f", Getter: windowGetter(func(s *telemetry.WindowStats) float64 { return s.SpeedP90 })},
			{ID: "speed_max", Label: "Max speed", Widget: WidgetText, Format: "%.1f", Getter: windowGetter(func(s *telemetry.WindowStats) float64 { return s.SpeedMax })},
			{ID: "kinetic_energy", Label: "Kinetic energy", Widget: WidgetText, Format: "%.0f", Getter: windowGetter(func(s *telemetry.WindowStats) float64 { return s.KineticEnergy })},
		},
	},
	{
		ID:    "density",
		Title: "Density",
		Fields: []FieldDescriptor{
			{ID: "density_mean", Label: "Mean", Widget: WidgetText, Format: "%.2f", Getter: windowGetter(func(s *telemetry.WindowStats) float64 { return s.DensityMean })},
			{ID: "density_std", Label: "Std dev", Widget: WidgetText, Format: "%.2f", Getter: windowGetter(func(s *telemetry.WindowStats) float64 { return s.DensityStd })},
			{ID: "density_max", Label: "Max", Widget: WidgetText, Format: "%.2f", Getter: windowGetter(func(s *telemetry.WindowStats) float64 { return s.DensityMax })},
		},
	},
	{
		ID:    "walls",
		Title: "Walls",
		Fields: []FieldDescriptor{
			{ID: "collisions", Label: "Collisions", Widget: WidgetText, Format: "%.0f", Getter: windowGetter(func(s *telemetry.WindowStats) float64 { return float64(s.Collisions) })},
			{ID: "escaped", Label: "Escaped", Widget: WidgetText, Format: "%.0f", Getter: windowGetter(func(s *telemetry.WindowStats) float64 { return float64(s.Escaped) })},
		},
	},
}

func windowGetter(f func(*telemetry.WindowStats) float64) func(any) float32 {
	return func(data any) float32 {
		s, ok := data.(*telemetry.WindowStats)
		if !ok || s == nil {
			return 0
		}
		return float32(f(s))
	}
}

// StatsPanel renders the most recent telemetry window.
type StatsPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
}

// NewStatsPanel creates a new stats panel.
func NewStatsPanel(x, y, width int32) *StatsPanel {
	return &StatsPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
	}
}

// SetPosition updates the panel position.
func (p *StatsPanel) SetPosition(x, y int32) {
	p.x = x
	p.y = y
}

// Draw renders stats, or nothing before the first window closes.
func (p *StatsPanel) Draw(stats *telemetry.WindowStats) {
	if stats == nil {
		return
	}
	r := p.renderer
	padding := r.Theme.Padding

	height := padding*2 + r.Theme.LineHeight
	for _, sd := range StatsSections {
		height += r.SectionHeight(sd, stats)
	}
	r.DrawPanel(p.x, p.y, p.width, height)

	y := p.y + padding
	rl.DrawText(fmt.Sprintf("Window ending t=%.1fs", stats.SimTimeSec), p.x+padding, y, 14, rl.White)
	y += r.Theme.LineHeight
	for _, sd := range StatsSections {
		y = r.DrawSection(p.x+padding, y, sd, stats, p.width-padding*2)
	}
}
