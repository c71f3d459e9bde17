package renderer

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/pbfluid/camera"
	"github.com/pthm-cable/pbfluid/components"
)

// speedPalette runs from still water to fast spray.
var speedPalette = []rl.Color{
	{R: 20, G: 60, B: 160, A: 255},
	{R: 40, G: 150, B: 220, A: 255},
	{R: 120, G: 220, B: 240, A: 255},
	{R: 245, G: 250, B: 255, A: 255},
}

// ParticleRenderer draws fluid particles as discs coloured by speed.
type ParticleRenderer struct {
	radius   float32
	speedMax float32
}

// NewParticleRenderer creates a new particle renderer. Speeds at or above
// speedMax get the hottest colour.
func NewParticleRenderer(radius, speedMax float32) *ParticleRenderer {
	return &ParticleRenderer{radius: radius, speedMax: speedMax}
}

// SpeedColor maps speed onto the palette.
func (r *ParticleRenderer) SpeedColor(speed float32) rl.Color {
	if r.speedMax <= 0 {
		return speedPalette[0]
	}
	t := speed / r.speedMax
	t = max(0, min(1, t))

	seg := t * float32(len(speedPalette)-1)
	i := int(seg)
	if i >= len(speedPalette)-1 {
		return speedPalette[len(speedPalette)-1]
	}
	return lerpColor(speedPalette[i], speedPalette[i+1], seg-float32(i))
}

func lerpColor(a, b rl.Color, t float32) rl.Color {
	l := func(x, y uint8) uint8 {
		return uint8(float32(x) + (float32(y)-float32(x))*t)
	}
	return rl.Color{R: l(a.R, b.R), G: l(a.G, b.G), B: l(a.B, b.B), A: l(a.A, b.A)}
}

// Draw renders the visible particles through cam.
func (r *ParticleRenderer) Draw(particles []components.Particle, cam *camera.Camera) {
	size := max(r.radius*cam.Zoom, 1)
	for i := range particles {
		p := &particles[i]
		if !cam.IsVisible(p.Pos.X, p.Pos.Y, r.radius) {
			continue
		}
		sx, sy := cam.WorldToScreen(p.Pos.X, p.Pos.Y)
		rl.DrawCircleV(rl.Vector2{X: sx, Y: sy}, size, r.SpeedColor(p.Speed()))
	}
}

// DrawBounds outlines the confining rectangle.
func (r *ParticleRenderer) DrawBounds(bounds components.Rect, cam *camera.Camera) {
	x0, y0 := cam.WorldToScreen(bounds.Min.X, bounds.Min.Y)
	x1, y1 := cam.WorldToScreen(bounds.Max.X, bounds.Max.Y)
	rl.DrawRectangleLinesEx(
		rl.Rectangle{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0},
		2,
		rl.Color{R: 70, G: 90, B: 110, A: 255},
	)
}
