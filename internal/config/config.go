package config

import (
	"math"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/cybre/beat-puppet/internal/beat"
	"github.com/cybre/beat-puppet/internal/pose"
	"github.com/cybre/beat-puppet/internal/rig"
)

var ErrInvalidConfig = eris.New("invalid configuration")

// Pulse policy kinds.
const (
	PolicyFixed  = "fixed"
	PolicyScaled = "scaled"
)

// Config is one complete tuning of the engine: a detector, a motion profile and the
// rig it drives.
type Config struct {
	Name      string     `yaml:"name"`
	Rig       string     `yaml:"rig"`
	Anchor    rig.Anchor `yaml:"anchor"`
	Detector  Detector   `yaml:"detector"`
	Motion    Motion     `yaml:"motion"`
	Smoothing Smoothing  `yaml:"smoothing"`
}

// Detector configures beat detection.
type Detector struct {
	BassBandFraction float64 `yaml:"bass_band_fraction"`
	MinBassBins      int     `yaml:"min_bass_bins"`
	HistorySize      int     `yaml:"history_size"`
	ThresholdRatio   float64 `yaml:"threshold_ratio"`
	AbsoluteFloor    float64 `yaml:"absolute_floor"`
	DecayFactor      float64 `yaml:"decay_factor"`
	PulseFloor       float64 `yaml:"pulse_floor"`
	PulseCeiling     float64 `yaml:"pulse_ceiling"`
	Policy           Policy  `yaml:"policy"`
}

// Policy selects how the pulse responds to a beat.
type Policy struct {
	Kind      string  `yaml:"kind"`
	Increment float64 `yaml:"increment"`
	Base      float64 `yaml:"base"`
	Scale     float64 `yaml:"scale"`
}

// Motion configures the pose scheduler's oscillators.
type Motion struct {
	JumpBaseHeight   float64 `yaml:"jump_base_height"`
	JumpGain         float64 `yaml:"jump_gain"`
	JumpSpeed        float64 `yaml:"jump_speed"`
	RestSag          float64 `yaml:"rest_sag"`
	WingBaseSpeed    float64 `yaml:"wing_base_speed"`
	WingSpeedDivisor float64 `yaml:"wing_speed_divisor"`
	WingMinSpeed     float64 `yaml:"wing_min_speed"`
	WingAmplitude    float64 `yaml:"wing_amplitude"`
	WingPulseGain    float64 `yaml:"wing_pulse_gain"`
	FingerTilt       float64 `yaml:"finger_tilt"`
	FingerSpeed      float64 `yaml:"finger_speed"`
	TailSpeed        float64 `yaml:"tail_speed"`
	TailAmplitude    float64 `yaml:"tail_amplitude"`
	TailOffset       float64 `yaml:"tail_offset"`
	FaceBob          float64 `yaml:"face_bob"`
	FaceLift         float64 `yaml:"face_lift"`
	PausedScale      float64 `yaml:"paused_scale"`
}

// Smoothing holds the low-pass alphas, each in (0, 1].
type Smoothing struct {
	Body     float64 `yaml:"body"`
	BodyRest float64 `yaml:"body_rest"`
	Wing     float64 `yaml:"wing"`
	WingRest float64 `yaml:"wing_rest"`
	Finger   float64 `yaml:"finger"`
	Pulse    float64 `yaml:"pulse"`
	Scale    float64 `yaml:"scale"`
	Face     float64 `yaml:"face"`
}

// Load reads a YAML file and overlays it onto base. Fields missing from the file keep
// the base value. The result is validated.
func Load(path string, base Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, eris.Wrapf(err, "read config file %s", path)
	}
	return Parse(data, base)
}

// Parse overlays YAML data onto base and validates the result.
func Parse(data []byte, base Config) (Config, error) {
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, eris.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first out-of-range field.
func (c Config) Validate() error {
	d := c.Detector
	switch {
	case !inRange(d.BassBandFraction, 0, 1) || d.BassBandFraction == 0:
		return eris.Wrapf(ErrInvalidConfig, "detector.bass_band_fraction %v must be in (0, 1]", d.BassBandFraction)
	case d.MinBassBins < 1:
		return eris.Wrapf(ErrInvalidConfig, "detector.min_bass_bins %d must be >= 1", d.MinBassBins)
	case d.HistorySize < 1:
		return eris.Wrapf(ErrInvalidConfig, "detector.history_size %d must be >= 1", d.HistorySize)
	case !(d.ThresholdRatio > 1) || math.IsInf(d.ThresholdRatio, 0):
		return eris.Wrapf(ErrInvalidConfig, "detector.threshold_ratio %v must be > 1", d.ThresholdRatio)
	case !(d.AbsoluteFloor >= 0):
		return eris.Wrapf(ErrInvalidConfig, "detector.absolute_floor %v must be >= 0", d.AbsoluteFloor)
	case !(d.DecayFactor > 0 && d.DecayFactor < 1):
		return eris.Wrapf(ErrInvalidConfig, "detector.decay_factor %v must be in (0, 1)", d.DecayFactor)
	case !(d.PulseFloor > 0 && d.PulseFloor < d.PulseCeiling):
		return eris.Wrapf(ErrInvalidConfig, "detector pulse floor %v must be in (0, ceiling %v)", d.PulseFloor, d.PulseCeiling)
	case !finite(d.AbsoluteFloor) || !finite(d.PulseCeiling):
		return eris.Wrapf(ErrInvalidConfig, "detector absolute floor %v and pulse ceiling %v must be finite", d.AbsoluteFloor, d.PulseCeiling)
	case !finite(d.Policy.Increment) || !finite(d.Policy.Base) || !finite(d.Policy.Scale):
		return eris.Wrapf(ErrInvalidConfig, "detector.policy values must be finite")
	}

	switch d.Policy.Kind {
	case PolicyFixed:
		if !(d.Policy.Increment > 0) {
			return eris.Wrapf(ErrInvalidConfig, "detector.policy.increment %v must be > 0", d.Policy.Increment)
		}
	case PolicyScaled:
		if !(d.Policy.Scale > 0) {
			return eris.Wrapf(ErrInvalidConfig, "detector.policy.scale %v must be > 0", d.Policy.Scale)
		}
	default:
		return eris.Wrapf(ErrInvalidConfig, "detector.policy.kind %q must be %q or %q", d.Policy.Kind, PolicyFixed, PolicyScaled)
	}

	s := c.Smoothing
	alphas := map[string]float64{
		"body": s.Body, "body_rest": s.BodyRest, "wing": s.Wing, "wing_rest": s.WingRest,
		"finger": s.Finger, "pulse": s.Pulse, "scale": s.Scale, "face": s.Face,
	}
	names := make([]string, 0, len(alphas))
	for name := range alphas {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if alpha := alphas[name]; !(alpha > 0 && alpha <= 1) {
			return eris.Wrapf(ErrInvalidConfig, "smoothing.%s %v must be in (0, 1]", name, alpha)
		}
	}

	if err := c.Motion.validate(); err != nil {
		return err
	}
	if c.Motion.WingSpeedDivisor <= 0 {
		return eris.Wrapf(ErrInvalidConfig, "motion.wing_speed_divisor %v must be > 0", c.Motion.WingSpeedDivisor)
	}

	if _, err := c.BuildRig(); err != nil {
		return eris.Wrap(err, "rig")
	}
	return nil
}

// DetectorOptions converts the detector section for beat.NewDetector.
func (c Config) DetectorOptions() beat.Options {
	d := c.Detector
	var policy beat.PulsePolicy = beat.FixedIncrement{Step: d.Policy.Increment}
	if d.Policy.Kind == PolicyScaled {
		policy = beat.MagnitudeScaled{Base: d.Policy.Base, Scale: d.Policy.Scale}
	}
	return beat.Options{
		BassBandFraction: d.BassBandFraction,
		MinBassBins:      d.MinBassBins,
		HistorySize:      d.HistorySize,
		ThresholdRatio:   d.ThresholdRatio,
		AbsoluteFloor:    d.AbsoluteFloor,
		DecayFactor:      d.DecayFactor,
		PulseFloor:       d.PulseFloor,
		PulseCeiling:     d.PulseCeiling,
		Policy:           policy,
	}
}

// SchedulerParams converts the motion and smoothing sections for pose.NewScheduler.
func (c Config) SchedulerParams() pose.Params {
	m, s := c.Motion, c.Smoothing
	return pose.Params{
		Motion: pose.Motion{
			JumpBaseHeight:   m.JumpBaseHeight,
			JumpGain:         m.JumpGain,
			JumpSpeed:        m.JumpSpeed,
			RestSag:          m.RestSag,
			WingBaseSpeed:    m.WingBaseSpeed,
			WingSpeedDivisor: m.WingSpeedDivisor,
			WingMinSpeed:     m.WingMinSpeed,
			WingAmplitude:    m.WingAmplitude,
			WingPulseGain:    m.WingPulseGain,
			FingerTilt:       m.FingerTilt,
			FingerSpeed:      m.FingerSpeed,
			TailSpeed:        m.TailSpeed,
			TailAmplitude:    m.TailAmplitude,
			TailOffset:       m.TailOffset,
			FaceBob:          m.FaceBob,
			FaceLift:         m.FaceLift,
			PausedScale:      m.PausedScale,
		},
		Smoothing: pose.Smoothing{
			Body:     s.Body,
			BodyRest: s.BodyRest,
			Wing:     s.Wing,
			WingRest: s.WingRest,
			Finger:   s.Finger,
			Pulse:    s.Pulse,
			Scale:    s.Scale,
			Face:     s.Face,
		},
		PulseFloor: c.Detector.PulseFloor,
	}
}

// BuildRig builds the configured rig around the configured anchor.
func (c Config) BuildRig() (*rig.Model, error) {
	return rig.Catalog(c.Rig, c.Anchor)
}

func (m Motion) validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"jump_base_height", m.JumpBaseHeight},
		{"jump_gain", m.JumpGain},
		{"jump_speed", m.JumpSpeed},
		{"rest_sag", m.RestSag},
		{"wing_base_speed", m.WingBaseSpeed},
		{"wing_speed_divisor", m.WingSpeedDivisor},
		{"wing_min_speed", m.WingMinSpeed},
		{"wing_amplitude", m.WingAmplitude},
		{"wing_pulse_gain", m.WingPulseGain},
		{"finger_tilt", m.FingerTilt},
		{"finger_speed", m.FingerSpeed},
		{"tail_speed", m.TailSpeed},
		{"tail_amplitude", m.TailAmplitude},
		{"tail_offset", m.TailOffset},
		{"face_bob", m.FaceBob},
		{"face_lift", m.FaceLift},
		{"paused_scale", m.PausedScale},
	}
	for _, f := range fields {
		if !finite(f.value) {
			return eris.Wrapf(ErrInvalidConfig, "motion.%s %v must be finite", f.name, f.value)
		}
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}
