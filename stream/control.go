package stream

import (
	"github.com/pthm-cable/pbfluid/sim"
)

// Control is a parameter edit sent by a client. Nil fields are left alone.
type Control struct {
	Gravity                *float32 `json:"gravity,omitempty"`
	InteractionRadius      *float32 `json:"interaction_radius,omitempty"`
	PressureMultiplier     *float32 `json:"pressure_multiplier,omitempty"`
	NearPressureMultiplier *float32 `json:"near_pressure_multiplier,omitempty"`
	RestDensity            *float32 `json:"rest_density,omitempty"`
	Restitution            *float32 `json:"restitution,omitempty"`
	Paused                 *bool    `json:"paused,omitempty"`
}

// Apply writes the edit to s if the resulting parameters validate. s is
// unchanged on error. Paused is not an engine parameter and is ignored here.
func (c Control) Apply(s *sim.Simulation) error {
	b := sim.NewBuilder().
		WithGravity(pick(c.Gravity, s.Gravity)).
		WithBoundaries(s.Boundaries).
		WithInteractionRadius(pick(c.InteractionRadius, s.InteractionRadius)).
		WithPressureMultiplier(pick(c.PressureMultiplier, s.PressureMultiplier)).
		WithNearPressureMultiplier(pick(c.NearPressureMultiplier, s.NearPressureMultiplier)).
		WithRestDensity(pick(c.RestDensity, s.RestDensity)).
		WithRestitution(pick(c.Restitution, s.Restitution))
	if err := b.Validate(); err != nil {
		return err
	}

	s.Gravity = b.Gravity
	s.InteractionRadius = b.InteractionRadius
	s.PressureMultiplier = b.PressureMultiplier
	s.NearPressureMultiplier = b.NearPressureMultiplier
	s.RestDensity = b.RestDensity
	s.Restitution = b.Restitution
	return nil
}

func pick(v *float32, cur float32) float32 {
	if v == nil {
		return cur
	}
	return *v
}
