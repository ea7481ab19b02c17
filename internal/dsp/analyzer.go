package dsp

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/cybre/beat-puppet/internal/utils"
)

// AnalyzerOptions tunes how magnitudes are smoothed and mapped to the 0..255 scale.
type AnalyzerOptions struct {
	// TimeConstant blends each bin with its previous value (0 = no smoothing).
	TimeConstant float64
	MinDecibels  float64
	MaxDecibels  float64
}

// DefaultAnalyzerOptions mirrors the defaults of a browser analyser node.
func DefaultAnalyzerOptions() AnalyzerOptions {
	return AnalyzerOptions{
		TimeConstant: 0.8,
		MinDecibels:  -100,
		MaxDecibels:  -30,
	}
}

// Analyzer transforms mono PCM frames into byte-scaled frequency magnitudes
// (fftSize/2 bins, each in 0..255). It reuses scratch buffers to keep allocations
// predictable for real-time processing.
type Analyzer struct {
	fftSize  int
	opts     AnalyzerOptions
	window   []float64
	windowed []float64
	smoothed []float64
}

// NewAnalyzer constructs an Analyzer for the given power-of-two FFT size.
func NewAnalyzer(fftSize int, opts AnalyzerOptions) *Analyzer {
	if fftSize < 4 || fftSize&(fftSize-1) != 0 {
		panic("dsp: fftSize must be a power of two >= 4")
	}
	if opts.MaxDecibels <= opts.MinDecibels {
		opts = DefaultAnalyzerOptions()
	}
	opts.TimeConstant = utils.Clamp(opts.TimeConstant, 0.0, 0.99)

	return &Analyzer{
		fftSize:  fftSize,
		opts:     opts,
		window:   HannWindow(fftSize),
		windowed: make([]float64, fftSize),
		smoothed: make([]float64, fftSize/2),
	}
}

// Bins returns the number of magnitude bins produced per frame.
func (a *Analyzer) Bins() int {
	return a.fftSize / 2
}

// Process computes the spectrum of frame into dst (grown if needed) and returns it.
// Frames shorter than the FFT size are zero padded; longer frames are truncated.
func (a *Analyzer) Process(frame []float64, dst []float64) []float64 {
	n := copy(a.windowed, frame)
	for i := n; i < len(a.windowed); i++ {
		a.windowed[i] = 0
	}
	ApplyWindowInPlace(a.windowed, a.window)

	spectrum := fft.FFTReal(a.windowed)

	bins := a.Bins()
	if cap(dst) < bins {
		dst = make([]float64, bins)
	} else {
		dst = dst[:bins]
	}

	span := a.opts.MaxDecibels - a.opts.MinDecibels
	tc := a.opts.TimeConstant
	for i := range bins {
		mag := cmplx.Abs(spectrum[i]) / float64(a.fftSize)
		a.smoothed[i] = tc*a.smoothed[i] + (1-tc)*mag

		if a.smoothed[i] <= 0 {
			dst[i] = 0
			continue
		}
		db := 20 * math.Log10(a.smoothed[i])
		scaled := 255 * (db - a.opts.MinDecibels) / span
		dst[i] = math.Floor(utils.Clamp(scaled, 0.0, 255.0))
	}

	return dst
}

// RootMeanSquare computes the RMS value of a frame.
func RootMeanSquare(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sumSquares float64
	for _, sample := range frame {
		sumSquares += sample * sample
	}
	return math.Sqrt(sumSquares / float64(len(frame)))
}

// ToMono averages interleaved multi-channel data into a mono frame.
func ToMono(samples []float32, channels int, dst []float64) []float64 {
	if channels <= 0 {
		channels = 1
	}
	frameLen := len(samples) / channels
	if cap(dst) < frameLen {
		dst = make([]float64, frameLen)
	} else {
		dst = dst[:frameLen]
	}
	if frameLen == 0 {
		return dst
	}
	idx := 0
	for i := range frameLen {
		sum := 0.0
		for c := 0; c < channels; c++ {
			sum += float64(samples[idx])
			idx++
		}
		dst[i] = sum / float64(channels)
	}
	return dst
}

// HannWindow returns a precomputed Hann window for the requested size.
func HannWindow(n int) []float64 {
	if n <= 0 {
		return nil
	}
	window := make([]float64, n)
	if n == 1 {
		window[0] = 1
		return window
	}
	for i := range n {
		window[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return window
}

// ApplyWindowInPlace multiplies samples by a window function in-place.
func ApplyWindowInPlace(samples []float64, window []float64) {
	switch {
	case len(samples) == 0:
		return
	case len(samples) != len(window):
		panic("dsp: window length mismatch")
	}
	for i := range samples {
		samples[i] *= window[i]
	}
}
