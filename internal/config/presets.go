package config

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/cybre/beat-puppet/internal/beat"
	"github.com/cybre/beat-puppet/internal/rig"
)

// DefaultPreset is used when no preset is requested.
const DefaultPreset = "classic"

var presets = map[string]func(Config) Config{
	// classic is the plain dragon: moderate detector, fixed increments.
	"classic": func(c Config) Config {
		return c
	},
	// bouncer jumps off loud kicks with magnitude-scaled pulses and a face that bobs.
	"bouncer": func(c Config) Config {
		c.Rig = rig.DragonFace
		c.Detector.ThresholdRatio = 1.2
		c.Detector.AbsoluteFloor = 90
		c.Detector.DecayFactor = 0.92
		c.Detector.Policy = Policy{Kind: PolicyScaled, Base: 0.3, Scale: 150}
		c.Motion.JumpGain = 60
		c.Motion.FaceBob = 10
		return c
	},
	// flapper keeps the body calm and spends the energy on the wings.
	"flapper": func(c Config) Config {
		c.Detector.ThresholdRatio = 1.35
		c.Motion.JumpGain = 20
		c.Motion.WingBaseSpeed = 4
		c.Motion.WingPulseGain = 1
		c.Smoothing.Wing = 0.1
		return c
	},
	// heavy only reacts to strong bass and lingers on each hit.
	"heavy": func(c Config) Config {
		c.Rig = rig.DragonFull
		c.Detector.ThresholdRatio = 1.45
		c.Detector.AbsoluteFloor = 120
		c.Detector.DecayFactor = 0.97
		c.Detector.Policy = Policy{Kind: PolicyScaled, Base: 0.5, Scale: 120}
		c.Motion.JumpBaseHeight = 30
		c.Motion.RestSag = 50
		c.Motion.PausedScale = 0.93
		return c
	},
	// gentle smooths everything a little harder.
	"gentle": func(c Config) Config {
		c.Rig = rig.DragonFace
		c.Detector.DecayFactor = 0.96
		c.Detector.Policy.Increment = 0.3
		c.Motion.JumpGain = 25
		c.Smoothing.Body = 0.05
		c.Smoothing.Wing = 0.1
		c.Smoothing.Pulse = 0.06
		return c
	},
	// fingers adds wiggling fingers tilted outward.
	"fingers": func(c Config) Config {
		c.Rig = rig.DragonHands
		c.Detector.ThresholdRatio = 1.25
		c.Detector.AbsoluteFloor = 110
		c.Motion.FingerSpeed = 2
		c.Smoothing.Finger = 0.12
		return c
	},
}

// Base returns the shared baseline every preset starts from.
func Base() Config {
	return Config{
		Name:   DefaultPreset,
		Rig:    rig.Dragon,
		Anchor: rig.DefaultAnchor(),
		Detector: Detector{
			BassBandFraction: 0.12,
			MinBassBins:      2,
			HistorySize:      beat.DefaultHistorySize,
			ThresholdRatio:   1.3,
			AbsoluteFloor:    100,
			DecayFactor:      0.95,
			PulseFloor:       beat.DefaultPulseFloor,
			PulseCeiling:     beat.DefaultPulseCeiling,
			Policy:           Policy{Kind: PolicyFixed, Increment: 0.5},
		},
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
	}
}

// Preset returns the named preset.
func Preset(name string) (Config, error) {
	apply, ok := presets[name]
	if !ok {
		return Config{}, eris.Errorf("unknown preset %q", name)
	}
	cfg := apply(Base())
	cfg.Name = name
	return cfg, nil
}

// PresetNames lists the available presets in alphabetical order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
