package dsp

import (
	"github.com/cybre/beat-puppet/internal/geom"
	"github.com/cybre/beat-puppet/internal/utils"
)

// Smooth moves current toward target by the fraction alpha (one-pole low-pass).
// alpha is clamped to [0, 1]; alpha=1 yields target and alpha=0 yields current exactly.
func Smooth(current, target, alpha float64) float64 {
	switch {
	case alpha <= 0:
		return current
	case alpha >= 1:
		return target
	}
	return current + (target-current)*alpha
}

// SmoothVec applies Smooth independently to each axis.
func SmoothVec(current, target geom.Vec2, alpha float64) geom.Vec2 {
	return geom.Vec2{
		X: Smooth(current.X, target.X, alpha),
		Y: Smooth(current.Y, target.Y, alpha),
	}
}

// Smoother implements a simple exponential moving average that starts from a known
// value instead of snapping to the first sample, so callers never see a jump.
type Smoother struct {
	alpha float64
	value float64
}

// NewSmoother constructs a Smoother using the supplied alpha (0..1) and starting value.
// Smaller values produce heavier smoothing. Smoother is a value; copying one forks it.
func NewSmoother(alpha, initial float64) Smoother {
	return Smoother{alpha: utils.Clamp(alpha, 0.0, 1.0), value: initial}
}

// Step updates the internal state and returns the smoothed value.
func (s *Smoother) Step(target float64) float64 {
	s.value = Smooth(s.value, target, s.alpha)
	return s.value
}

// Value returns the current smoothed value without updating it.
func (s *Smoother) Value() float64 {
	return s.value
}
