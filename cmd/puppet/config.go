package main

import (
	"fmt"
	"slices"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rotisserie/eris"

	"github.com/cybre/beat-puppet/internal/config"
	"github.com/cybre/beat-puppet/internal/ui"
)

type selection struct {
	preset string
	device *portaudio.DeviceInfo
}

// selectPresetAndDevice resolves what the flags left open, asking interactively when
// a terminal is available. devices is empty for the synthetic source.
func selectPresetAndDevice(
	presets []string,
	devices []*portaudio.DeviceInfo,
	defaultDeviceIndex int,
	opts runtimeOptions,
) (selection, error) {
	if len(presets) == 0 {
		return selection{}, eris.New("no presets available")
	}
	wantDevice := opts.source == sourceCapture
	if wantDevice && len(devices) == 0 {
		return selection{}, eris.New("no input devices available")
	}

	var sel selection

	presetIndex := slices.Index(presets, opts.preset)
	if opts.presetSet {
		if presetIndex < 0 {
			return selection{}, eris.Errorf("unknown preset %q", opts.preset)
		}
		sel.preset = presets[presetIndex]
	}
	if wantDevice && opts.deviceIndex >= 0 {
		if opts.deviceIndex >= len(devices) {
			return selection{}, eris.Errorf("invalid device index %d", opts.deviceIndex)
		}
		sel.device = devices[opts.deviceIndex]
	}

	needPreset := sel.preset == ""
	needDevice := wantDevice && sel.device == nil

	if !needPreset && !needDevice {
		return sel, nil
	}

	initialPreset := presetIndex
	if initialPreset < 0 {
		initialPreset = max(slices.Index(presets, config.DefaultPreset), 0)
	}
	initialDevice := effectiveInitialDeviceIndex(opts.deviceIndex, defaultDeviceIndex, len(devices))

	pickers := []ui.Picker{{
		Title:   "Select a motion preset",
		Name:    "Preset",
		Choices: buildPresetChoices(presets),
		Initial: initialPreset,
		Ask:     needPreset,
	}}
	if wantDevice {
		pickers = append(pickers, ui.Picker{
			Title:   "Select an audio input device",
			Name:    "Device",
			Choices: buildDeviceChoices(devices),
			Initial: initialDevice,
			Ask:     needDevice,
		})
	}

	result, err := ui.RunSetup(pickers...)
	if err != nil {
		if !eris.Is(err, ui.ErrNoInteractiveTTY) {
			return selection{}, err
		}
		result = []int{initialPreset, initialDevice}
	}

	if needPreset {
		sel.preset = presets[result[0]]
	}
	if needDevice {
		sel.device = devices[result[1]]
	}

	return sel, nil
}

// loadEngineConfig starts from the named preset and overlays the optional YAML file.
func loadEngineConfig(preset, path string) (config.Config, error) {
	base, err := config.Preset(preset)
	if err != nil {
		return config.Config{}, err
	}
	if path == "" {
		return base, base.Validate()
	}
	return config.Load(path, base)
}

// buildPresetChoices describes each preset with its detector tuning and previews the
// parts of the rig it drives.
func buildPresetChoices(presets []string) []ui.Choice {
	choices := make([]ui.Choice, len(presets))
	for i, name := range presets {
		choices[i] = ui.Choice{Label: name}

		cfg, err := config.Preset(name)
		if err != nil {
			continue
		}
		d := cfg.Detector
		choices[i].Detail = fmt.Sprintf("rig:%s · pulse:%s · ratio:%.2f", cfg.Rig, d.Policy.Kind, d.ThresholdRatio)

		preview := []string{
			fmt.Sprintf("threshold ×%.2f over %d frames, floor %.0f", d.ThresholdRatio, d.HistorySize, d.AbsoluteFloor),
			fmt.Sprintf("decay %.2f, pulse %.2f..%.2f", d.DecayFactor, d.PulseFloor, d.PulseCeiling),
		}
		if model, err := cfg.BuildRig(); err == nil {
			preview = append(preview, "", fmt.Sprintf("rig %s · %d parts", model.Name(), model.Len()))
			for _, part := range model.Parts() {
				preview = append(preview, fmt.Sprintf("- %s (%s)", part.Name, part.Role))
			}
		}
		choices[i].Preview = preview
	}
	return choices
}

func buildDeviceChoices(devices []*portaudio.DeviceInfo) []ui.Choice {
	choices := make([]ui.Choice, len(devices))
	for i, dev := range devices {
		choices[i] = ui.Choice{
			Label: fmt.Sprintf("[%d] %s", i, dev.Name),
			Detail: fmt.Sprintf("%.0fHz · in:%d · latency:%.1fms",
				dev.DefaultSampleRate,
				dev.MaxInputChannels,
				dev.DefaultLowInputLatency.Seconds()*1000,
			),
		}
	}
	return choices
}

func effectiveInitialDeviceIndex(requested, fallback, length int) int {
	if length == 0 {
		return 0
	}
	if requested >= 0 && requested < length {
		return requested
	}
	if fallback >= 0 && fallback < length {
		return fallback
	}
	return 0
}

func sanitizeChannelCount(requested, max int) int {
	if requested <= 0 {
		return 1
	}

	if max > 0 && requested > max {
		return max
	}

	return requested
}

func effectiveSampleRate(requested, deviceDefault float64) float64 {
	if requested > 0 {
		return requested
	}

	if deviceDefault > 0 {
		return deviceDefault
	}

	return 44100
}

// effectiveFFTSize rounds the requested window up to a power of two of at least 4.
func effectiveFFTSize(requested int) int {
	if requested <= 0 {
		return 256
	}

	size := 4
	for size < requested {
		size <<= 1
	}
	return size
}

func intervalFromHz(hz float64) time.Duration {
	if hz <= 0 {
		return time.Second / 60
	}
	return time.Duration(float64(time.Second) / hz)
}
