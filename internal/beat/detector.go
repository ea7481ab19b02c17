package beat

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/cybre/beat-puppet/internal/utils"
)

const (
	// DefaultHistorySize is roughly one second of frames at 43 frames/s.
	DefaultHistorySize = 43
	// DefaultPulseFloor is the resting pulse; the pulse never decays below it.
	DefaultPulseFloor = 0.05
	// DefaultPulseCeiling caps the pulse under repeated beats.
	DefaultPulseCeiling = 2.0
)

// Options tunes the behaviour of the Detector.
type Options struct {
	BassBandFraction float64
	MinBassBins      int
	HistorySize      int
	ThresholdRatio   float64
	AbsoluteFloor    float64
	DecayFactor      float64
	PulseFloor       float64
	PulseCeiling     float64
	Policy           PulsePolicy
}

// Detector turns spectrum frames into a decaying pulse that spikes whenever the bass
// band jumps well above its recent average.
//
// The history starts zero-filled, so the detector is more trigger-happy for the first
// HistorySize frames while the average warms up.
type Detector struct {
	opts Options

	pulse        float64
	history      []float64
	historyIndex int
	lastBass     float64
	lastBeat     bool
}

// NewDetector returns a ready-to-use Detector. Zero fields fall back to defaults.
func NewDetector(opts Options) *Detector {
	if opts.BassBandFraction <= 0 {
		opts.BassBandFraction = 0.12
	}
	if opts.MinBassBins <= 0 {
		opts.MinBassBins = 2
	}
	if opts.HistorySize <= 0 {
		opts.HistorySize = DefaultHistorySize
	}
	if opts.ThresholdRatio <= 0 {
		opts.ThresholdRatio = 1.3
	}
	if opts.AbsoluteFloor <= 0 {
		opts.AbsoluteFloor = 100
	}
	if opts.DecayFactor <= 0 || opts.DecayFactor >= 1 {
		opts.DecayFactor = 0.95
	}
	if opts.PulseFloor <= 0 {
		opts.PulseFloor = DefaultPulseFloor
	}
	if opts.PulseCeiling <= opts.PulseFloor {
		opts.PulseCeiling = DefaultPulseCeiling
	}
	if opts.Policy == nil {
		opts.Policy = FixedIncrement{Step: 0.5}
	}

	return &Detector{
		opts:    opts,
		pulse:   opts.PulseFloor,
		history: make([]float64, opts.HistorySize),
	}
}

// Detect runs one detection step over frame. An empty frame counts as zero energy.
func (d *Detector) Detect(frame []float64) {
	bassAvg := d.bassAverage(frame)
	historyAvg := stat.Mean(d.history, nil)

	d.history[d.historyIndex] = bassAvg
	d.historyIndex = (d.historyIndex + 1) % len(d.history)

	d.lastBass = bassAvg
	d.lastBeat = bassAvg > historyAvg*d.opts.ThresholdRatio && bassAvg > d.opts.AbsoluteFloor
	if d.lastBeat {
		d.pulse = math.Min(d.opts.PulseCeiling, d.opts.Policy.Raise(d.pulse, bassAvg))
	}

	d.pulse *= d.opts.DecayFactor
	d.pulse = utils.Clamp(utils.FiniteOr(d.pulse, d.opts.PulseFloor), d.opts.PulseFloor, d.opts.PulseCeiling)
}

// CurrentPulse returns the latest pulse value.
func (d *Detector) CurrentPulse() float64 {
	return d.pulse
}

// LastBass returns the bass band average of the most recent frame.
func (d *Detector) LastBass() float64 {
	return d.lastBass
}

// LastBeat reports whether the most recent frame triggered a beat.
func (d *Detector) LastBeat() bool {
	return d.lastBeat
}

// History returns a copy of the bass history buffer in slot order.
func (d *Detector) History() []float64 {
	out := make([]float64, len(d.history))
	copy(out, d.history)
	return out
}

// HistoryIndex returns the slot the next sample will be written to.
func (d *Detector) HistoryIndex() int {
	return d.historyIndex
}

// Floor returns the configured pulse floor.
func (d *Detector) Floor() float64 {
	return d.opts.PulseFloor
}

// BassBins returns how many leading bins make up the bass band for a frame of n bins.
func (d *Detector) BassBins(n int) int {
	if n <= 0 {
		return 0
	}
	bins := int(math.Ceil(d.opts.BassBandFraction * float64(n)))
	bins = max(bins, d.opts.MinBassBins)
	return min(bins, n)
}

func (d *Detector) bassAverage(frame []float64) float64 {
	bins := d.BassBins(len(frame))
	if bins == 0 {
		return 0
	}
	return utils.FiniteOr(stat.Mean(frame[:bins], nil), 0)
}
