package sim

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidParameter reports a physical parameter the engine cannot run with.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrInvalidTimestep reports a non-positive or NaN dt passed to Step.
	ErrInvalidTimestep = errors.New("invalid timestep")

	// ErrNotInitialized reports a Step on an engine that has not been through Init.
	ErrNotInitialized = errors.New("simulation not initialized")
)

func paramError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}

func finite(v float32) bool {
	f := float64(v)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func checkRadius(r float32) error {
	if !finite(r) || r <= 0 {
		return paramError("interaction radius must be positive and finite, got %v", r)
	}
	return nil
}
