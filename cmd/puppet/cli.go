package main

import (
	"flag"
	"math"
	"time"

	"github.com/rotisserie/eris"

	"github.com/cybre/beat-puppet/internal/audio"
	"github.com/cybre/beat-puppet/internal/config"
)

const (
	sourceCapture   = "capture"
	sourceSynthetic = "synthetic"
)

type runtimeOptions struct {
	preset      string
	presetSet   bool
	configPath  string
	source      string
	bpm         float64
	deviceIndex int
	sampleRate  float64
	fftSize     int
	channels    int
	latency     time.Duration
	tickHz      float64
	sampleHz    float64
	wsAddr      string
	gate        float64
	visualize   bool
	debug       bool
}

func parseCLIFlags() runtimeOptions {
	var (
		cfg       runtimeOptions
		latencyMs int
	)

	flag.StringVar(&cfg.preset, "preset", config.DefaultPreset, "motion preset (omit to choose interactively)")
	flag.StringVar(&cfg.configPath, "config", "", "YAML file overlaid onto the preset")
	flag.StringVar(&cfg.source, "source", sourceCapture, "spectrum source: capture or synthetic")
	flag.Float64Var(&cfg.bpm, "bpm", 120, "tempo of the synthetic source")
	flag.IntVar(&cfg.deviceIndex, "device", -1, "audio input device index (leave blank to choose interactively)")
	flag.Float64Var(&cfg.sampleRate, "sample-rate", 0, "capture sample rate (0 = device default)")
	flag.IntVar(&cfg.fftSize, "fft-size", 256, "FFT window in samples (power of two; bins = size/2)")
	flag.IntVar(&cfg.channels, "channels", 2, "number of input channels to capture (<= device max)")
	flag.IntVar(&latencyMs, "latency-ms", 0, "override input latency in milliseconds (0 = device default)")
	flag.Float64Var(&cfg.tickHz, "tick-hz", 60, "animation ticks per second")
	flag.Float64Var(&cfg.sampleHz, "sample-hz", 60, "beat detection samples per second")
	flag.StringVar(&cfg.wsAddr, "ws", "", "serve the pose stream on this address, e.g. :8080 (empty = off)")
	flag.Float64Var(&cfg.gate, "gate", 0.01, "RMS level above which captured audio counts as playing")
	flag.BoolVar(&cfg.debug, "debug", false, "enable debug logging")
	flag.BoolVar(&cfg.visualize, "visualize", false, "render the live pose in the terminal (logs go to stderr)")
	flag.Parse()

	flag.Visit(func(f *flag.Flag) {
		if f.Name == "preset" {
			cfg.presetSet = true
		}
	})
	cfg.latency = time.Duration(latencyMs) * time.Millisecond

	return cfg
}

func (o runtimeOptions) validate() error {
	switch {
	case o.source != sourceCapture && o.source != sourceSynthetic:
		return eris.Errorf("unknown source %q (want %s or %s)", o.source, sourceCapture, sourceSynthetic)
	case !(o.bpm > 0 && o.bpm <= audio.MaxBPM):
		return eris.Errorf("bpm %v must be in (0, %d]", o.bpm, audio.MaxBPM)
	case math.IsNaN(o.tickHz) || math.IsInf(o.tickHz, 0) || math.IsNaN(o.sampleHz) || math.IsInf(o.sampleHz, 0):
		return eris.New("tick-hz and sample-hz must be finite")
	case math.IsNaN(o.gate) || o.gate < 0:
		return eris.Errorf("gate %v must be >= 0", o.gate)
	}
	return nil
}
