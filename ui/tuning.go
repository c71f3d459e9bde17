package ui

import (
	"fmt"

	gui "github.com/gen2brain/raylib-go/raygui"
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pbfluid/sim"
)

// Params are the engine parameters exposed to the tuning panel.
type Params struct {
	Gravity                float32
	InteractionRadius      float32
	PressureMultiplier     float32
	NearPressureMultiplier float32
	RestDensity            float32
	Restitution            float32
}

// ParamsOf reads the tunable parameters of s.
func ParamsOf(s *sim.Simulation) Params {
	return Params{
		Gravity:                s.Gravity,
		InteractionRadius:      s.InteractionRadius,
		PressureMultiplier:     s.PressureMultiplier,
		NearPressureMultiplier: s.NearPressureMultiplier,
		RestDensity:            s.RestDensity,
		Restitution:            s.Restitution,
	}
}

// ApplyTo writes p into s. Slider ranges keep every value valid.
func (p Params) ApplyTo(s *sim.Simulation) {
	s.Gravity = p.Gravity
	s.InteractionRadius = p.InteractionRadius
	s.PressureMultiplier = p.PressureMultiplier
	s.NearPressureMultiplier = p.NearPressureMultiplier
	s.RestDensity = p.RestDensity
	s.Restitution = p.Restitution
}

// SliderSpec describes one tuning slider.
type SliderSpec struct {
	Label    string
	Min, Max float32
	Format   string
	Field    func(p *Params) *float32
}

// TuningSliders lists the panel's sliders in display order.
var TuningSliders = []SliderSpec{
	{"Gravity", 0, 600, "%.0f", func(p *Params) *float32 { return &p.Gravity }},
	{"Interaction radius", 5, 80, "%.1f", func(p *Params) *float32 { return &p.InteractionRadius }},
	{"Pressure", 0, 200, "%.1f", func(p *Params) *float32 { return &p.PressureMultiplier }},
	{"Near pressure", 0, 200, "%.1f", func(p *Params) *float32 { return &p.NearPressureMultiplier }},
	{"Rest density", 0, 30, "%.2f", func(p *Params) *float32 { return &p.RestDensity }},
	{"Restitution", -1, 0, "%.2f", func(p *Params) *float32 { return &p.Restitution }},
}

// TuningActions reports the buttons pressed this frame.
type TuningActions struct {
	TogglePause bool
	Reset       bool
}

// TuningPanel renders raygui sliders for the engine parameters.
type TuningPanel struct {
	renderer *Renderer
	x, y     int32
	width    int32
	visible  bool
}

// NewTuningPanel creates a new tuning panel, initially visible.
func NewTuningPanel(x, y, width int32) *TuningPanel {
	return &TuningPanel{
		renderer: NewRenderer(),
		x:        x,
		y:        y,
		width:    width,
		visible:  true,
	}
}

// SetPosition updates the panel position.
func (t *TuningPanel) SetPosition(x, y int32) {
	t.x = x
	t.y = y
}

// IsVisible returns whether the panel is shown.
func (t *TuningPanel) IsVisible() bool {
	return t.visible
}

// Toggle switches panel visibility.
func (t *TuningPanel) Toggle() bool {
	t.visible = !t.visible
	return t.visible
}

// Draw renders the sliders for p and returns the edited values and any
// button presses. p is returned unchanged while the panel is hidden.
func (t *TuningPanel) Draw(p Params, paused bool) (Params, TuningActions) {
	var actions TuningActions
	if !t.visible {
		return p, actions
	}

	r := t.renderer
	padding := r.Theme.Padding
	rowHeight := int32(38)
	height := padding*3 + 20 + rowHeight*int32(len(TuningSliders)) + 30
	r.DrawPanel(t.x, t.y, t.width, height)

	x := float32(t.x + padding)
	y := float32(t.y + padding)
	sliderWidth := float32(t.width - padding*2 - 60)

	rl.DrawText("Fluid Parameters", int32(x), int32(y), 16, rl.White)
	y += 24

	for _, spec := range TuningSliders {
		v := spec.Field(&p)
		rl.DrawText(spec.Label, int32(x), int32(y), r.Theme.FontSize, r.Theme.LabelColor)
		y += 14
		*v = gui.SliderBar(
			rl.Rectangle{X: x, Y: y, Width: sliderWidth, Height: 16},
			"", "",
			*v, spec.Min, spec.Max,
		)
		rl.DrawText(fmt.Sprintf(spec.Format, *v), int32(x+sliderWidth+8), int32(y+2), r.Theme.FontSize, r.Theme.ValueColor)
		y += float32(rowHeight - 14)
	}

	y += float32(padding)
	if gui.Button(rl.Rectangle{X: x, Y: y, Width: 100, Height: 26}, toggleText(paused, "Resume", "Pause")) {
		actions.TogglePause = true
	}
	if gui.Button(rl.Rectangle{X: x + 110, Y: y, Width: 100, Height: 26}, "Reset") {
		actions.Reset = true
	}

	return p, actions
}

func toggleText(cond bool, ifTrue, ifFalse string) string {
	if cond {
		return ifTrue
	}
	return ifFalse
}
