// Package components defines the plain data types shared by the engine and its front ends.
package components

import "math"

// Vec2 is a 2D vector in world units.
type Vec2 struct {
	X, Y float32
}

// Add returns v + o.
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns v - o.
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale returns v * s.
func (v Vec2) Scale(s float32) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Div returns v / s.
func (v Vec2) Div(s float32) Vec2 {
	return Vec2{X: v.X / s, Y: v.Y / s}
}

// Neg returns -v.
func (v Vec2) Neg() Vec2 {
	return Vec2{X: -v.X, Y: -v.Y}
}

// LenSq returns the squared magnitude (avoids sqrt in hot paths).
func (v Vec2) LenSq() float32 {
	return v.X*v.X + v.Y*v.Y
}

// Len returns the magnitude of v.
func (v Vec2) Len() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y)))
}

// Normalize returns v scaled to unit length.
// The zero vector has no direction: the result is NaN in both components,
// so callers that can hit it must pick their own fallback.
func (v Vec2) Normalize() Vec2 {
	return v.Div(v.Len())
}

// Dist returns the distance between v and o.
func (v Vec2) Dist(o Vec2) float32 {
	return o.Sub(v).Len()
}

// IsZero reports whether both components are exactly zero.
func (v Vec2) IsZero() bool {
	return v.X == 0 && v.Y == 0
}

// Rect is an axis-aligned rectangle, Min being the top-left corner in screen coordinates.
type Rect struct {
	Min, Max Vec2
}

// NewRect builds a rectangle from its corner coordinates.
func NewRect(minX, minY, maxX, maxY float32) Rect {
	return Rect{Min: Vec2{X: minX, Y: minY}, Max: Vec2{X: maxX, Y: maxY}}
}

// Valid reports whether Min is not beyond Max on either axis.
func (r Rect) Valid() bool {
	return r.Min.X <= r.Max.X && r.Min.Y <= r.Max.Y
}

// Width returns the horizontal extent.
func (r Rect) Width() float32 {
	return r.Max.X - r.Min.X
}

// Height returns the vertical extent.
func (r Rect) Height() float32 {
	return r.Max.Y - r.Min.Y
}

// Contains reports whether p lies inside r, edges included.
func (r Rect) Contains(p Vec2) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

// Inset shrinks r by m on every side. The result may be invalid if m is too large.
func (r Rect) Inset(m float32) Rect {
	return Rect{
		Min: Vec2{X: r.Min.X + m, Y: r.Min.Y + m},
		Max: Vec2{X: r.Max.X - m, Y: r.Max.Y - m},
	}
}
