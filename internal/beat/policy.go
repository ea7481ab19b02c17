package beat

// PulsePolicy decides how far the pulse jumps when a beat is detected. The detector
// caps the result at its ceiling.
type PulsePolicy interface {
	Raise(pulse, bassAvg float64) float64
}

// FixedIncrement adds a constant step to the current pulse on every beat.
type FixedIncrement struct {
	Step float64
}

// Raise implements PulsePolicy.
func (p FixedIncrement) Raise(pulse, _ float64) float64 {
	return pulse + p.Step
}

// MagnitudeScaled replaces the pulse with Base + bassAvg/Scale, so louder kicks jump higher.
type MagnitudeScaled struct {
	Base  float64
	Scale float64
}

// Raise implements PulsePolicy.
func (p MagnitudeScaled) Raise(pulse, bassAvg float64) float64 {
	if p.Scale <= 0 {
		return pulse
	}
	return p.Base + bassAvg/p.Scale
}
