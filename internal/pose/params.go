package pose

import "math"

// Motion holds the oscillation and placement constants of the scheduler.
type Motion struct {
	JumpBaseHeight float64
	JumpGain       float64
	JumpSpeed      float64
	RestSag        float64

	WingBaseSpeed    float64
	WingSpeedDivisor float64
	WingMinSpeed     float64
	WingAmplitude    float64
	WingPulseGain    float64

	FingerTilt  float64
	FingerSpeed float64

	TailSpeed     float64
	TailAmplitude float64
	TailOffset    float64

	FaceBob  float64
	FaceLift float64

	PausedScale float64
}

// Smoothing holds the per-channel low-pass alphas.
type Smoothing struct {
	Body     float64
	BodyRest float64
	Wing     float64
	WingRest float64
	Finger   float64
	Pulse    float64
	Scale    float64
	Face     float64
}

// Params configures a Scheduler.
type Params struct {
	Motion     Motion
	Smoothing  Smoothing
	PulseFloor float64
}

// DefaultParams returns the baseline tuning.
func DefaultParams() Params {
	return Params{
		Motion: Motion{
			JumpBaseHeight:   20,
			JumpGain:         40,
			JumpSpeed:        6,
			RestSag:          40,
			WingBaseSpeed:    3,
			WingSpeedDivisor: 120,
			WingMinSpeed:     1,
			WingAmplitude:    math.Pi / 7,
			WingPulseGain:    0.5,
			FingerTilt:       math.Pi / 4,
			FingerSpeed:      2,
			TailSpeed:        1.5,
			TailAmplitude:    math.Pi / 9,
			TailOffset:       math.Pi / 4,
			FaceBob:          6,
			FaceLift:         10,
			PausedScale:      0.95,
		},
		Smoothing: Smoothing{
			Body:     0.06,
			BodyRest: 0.05,
			Wing:     0.12,
			WingRest: 0.1,
			Finger:   0.1,
			Pulse:    0.08,
			Scale:    0.1,
			Face:     0.2,
		},
		PulseFloor: 0.05,
	}
}
