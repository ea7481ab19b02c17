package main

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cybre/beat-puppet/internal/config"
)

func TestEffectiveFFTSize(t *testing.T) {
	cases := map[int]int{
		0:    256,
		-4:   256,
		1:    4,
		4:    4,
		200:  256,
		256:  256,
		1000: 1024,
	}
	for requested, want := range cases {
		assert.Equal(t, want, effectiveFFTSize(requested), "requested %d", requested)
	}
}

func TestSanitizeChannelCount(t *testing.T) {
	assert.Equal(t, 1, sanitizeChannelCount(0, 2))
	assert.Equal(t, 2, sanitizeChannelCount(4, 2))
	assert.Equal(t, 2, sanitizeChannelCount(2, 0))
}

func TestEffectiveSampleRate(t *testing.T) {
	assert.Equal(t, 48000.0, effectiveSampleRate(48000, 44100))
	assert.Equal(t, 96000.0, effectiveSampleRate(0, 96000))
	assert.Equal(t, 44100.0, effectiveSampleRate(0, 0))
}

func TestEffectiveInitialDeviceIndex(t *testing.T) {
	assert.Equal(t, 0, effectiveInitialDeviceIndex(3, 1, 0))
	assert.Equal(t, 2, effectiveInitialDeviceIndex(2, 1, 3))
	assert.Equal(t, 1, effectiveInitialDeviceIndex(-1, 1, 3))
	assert.Equal(t, 0, effectiveInitialDeviceIndex(-1, 7, 3))
}

func TestIntervalFromHz(t *testing.T) {
	assert.Equal(t, time.Second/60, intervalFromHz(0))
	assert.Equal(t, 20*time.Millisecond, intervalFromHz(50))
}

func TestLoadEngineConfig(t *testing.T) {
	cfg, err := loadEngineConfig("heavy", "")
	require.NoError(t, err)
	assert.Equal(t, "heavy", cfg.Name)

	path := filepath.Join(t.TempDir(), "puppet.yaml")
	require.NoError(t, os.WriteFile(path, []byte("motion:\n  jump_gain: 42\n"), 0o600))
	cfg, err = loadEngineConfig(config.DefaultPreset, path)
	require.NoError(t, err)
	assert.Equal(t, 42.0, cfg.Motion.JumpGain)

	_, err = loadEngineConfig("nope", "")
	assert.Error(t, err)
}

func TestSelectExplicitPresetForSynthetic(t *testing.T) {
	sel, err := selectPresetAndDevice(config.PresetNames(), nil, -1, runtimeOptions{
		preset:    "flapper",
		presetSet: true,
		source:    sourceSynthetic,
	})
	require.NoError(t, err)
	assert.Equal(t, "flapper", sel.preset)
	assert.Nil(t, sel.device)
}

func TestSelectExplicitPresetAndDevice(t *testing.T) {
	devices := []*portaudio.DeviceInfo{
		{Index: 0, Name: "mic", MaxInputChannels: 1},
		{Index: 1, Name: "monitor", MaxInputChannels: 2},
	}
	sel, err := selectPresetAndDevice(config.PresetNames(), devices, 0, runtimeOptions{
		preset:      "classic",
		presetSet:   true,
		source:      sourceCapture,
		deviceIndex: 1,
	})
	require.NoError(t, err)
	assert.Equal(t, "classic", sel.preset)
	assert.Equal(t, "monitor", sel.device.Name)
}

func TestSelectRejectsBadChoices(t *testing.T) {
	_, err := selectPresetAndDevice(config.PresetNames(), nil, -1, runtimeOptions{
		preset: "nope", presetSet: true, source: sourceSynthetic,
	})
	assert.Error(t, err)

	_, err = selectPresetAndDevice(config.PresetNames(), nil, -1, runtimeOptions{
		preset: "classic", presetSet: true, source: sourceCapture,
	})
	assert.Error(t, err)

	devices := []*portaudio.DeviceInfo{{Name: "mic", MaxInputChannels: 1}}
	_, err = selectPresetAndDevice(config.PresetNames(), devices, 0, runtimeOptions{
		preset: "classic", presetSet: true, source: sourceCapture, deviceIndex: 3,
	})
	assert.Error(t, err)
}

func TestBuildChoices(t *testing.T) {
	presets := buildPresetChoices([]string{"classic", "fingers", "missing"})
	require.Len(t, presets, 3)
	assert.Equal(t, "classic", presets[0].Label)
	assert.Equal(t, "rig:dragon · pulse:fixed · ratio:1.30", presets[0].Detail)
	assert.Contains(t, presets[1].Preview, "rig dragon-hands · 10 parts")
	assert.Contains(t, presets[1].Preview, "- finger_left_upper (finger)")
	assert.Empty(t, presets[2].Preview)

	devices := buildDeviceChoices([]*portaudio.DeviceInfo{{Name: "mic", DefaultSampleRate: 48000, MaxInputChannels: 2}})
	require.Len(t, devices, 1)
	assert.Equal(t, "[0] mic", devices[0].Label)
	assert.Contains(t, devices[0].Detail, "48000Hz")
}

func TestRuntimeOptionsValidate(t *testing.T) {
	valid := runtimeOptions{source: sourceSynthetic, bpm: 120, tickHz: 60, sampleHz: 60, gate: 0.01}
	require.NoError(t, valid.validate())

	cases := map[string]func(o *runtimeOptions){
		"source":        func(o *runtimeOptions) { o.source = "file" },
		"huge bpm":      func(o *runtimeOptions) { o.bpm = 1e12 },
		"inf bpm":       func(o *runtimeOptions) { o.bpm = math.Inf(1) },
		"nan bpm":       func(o *runtimeOptions) { o.bpm = math.NaN() },
		"zero bpm":      func(o *runtimeOptions) { o.bpm = 0 },
		"nan tick":      func(o *runtimeOptions) { o.tickHz = math.NaN() },
		"inf sample":    func(o *runtimeOptions) { o.sampleHz = math.Inf(1) },
		"negative gate": func(o *runtimeOptions) { o.gate = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			o := valid
			mutate(&o)
			assert.Error(t, o.validate())
		})
	}
}
