package dsp

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyzerSilenceIsZero(t *testing.T) {
	a := NewAnalyzer(256, DefaultAnalyzerOptions())
	require.Equal(t, 128, a.Bins())

	out := a.Process(make([]float64, 256), nil)
	require.Len(t, out, 128)
	for _, v := range out {
		assert.Equal(t, 0.0, v)
	}
}

func TestAnalyzerLowToneLandsInBassBins(t *testing.T) {
	const size = 256
	a := NewAnalyzer(size, AnalyzerOptions{TimeConstant: 0, MinDecibels: -100, MaxDecibels: -30})

	frame := make([]float64, size)
	for i := range frame {
		frame[i] = 0.5 * math.Sin(2*math.Pi*4*float64(i)/size)
	}

	out := a.Process(frame, nil)
	for _, v := range out {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 255.0)
	}
	assert.Greater(t, out[4], out[100])
	assert.Greater(t, out[4], 200.0)
}

func TestAnalyzerReusesDestination(t *testing.T) {
	a := NewAnalyzer(64, DefaultAnalyzerOptions())
	dst := make([]float64, 0, 64)
	out := a.Process(make([]float64, 10), dst)
	assert.Len(t, out, 32)
	assert.Equal(t, cap(dst), cap(out))
}

func TestNewAnalyzerRejectsNonPowerOfTwo(t *testing.T) {
	assert.Panics(t, func() { NewAnalyzer(300, DefaultAnalyzerOptions()) })
	assert.Panics(t, func() { NewAnalyzer(2, DefaultAnalyzerOptions()) })
}

func TestToMono(t *testing.T) {
	out := ToMono([]float32{1, 3, -2, 2, 0.5, 0.5}, 2, nil)
	assert.Equal(t, []float64{2, 0, 0.5}, out)
}

func TestRootMeanSquare(t *testing.T) {
	assert.Equal(t, 0.0, RootMeanSquare(nil))
	assert.InDelta(t, 1.0, RootMeanSquare([]float64{1, -1, 1, -1}), 1e-12)
}

func TestHannWindowEndpoints(t *testing.T) {
	w := HannWindow(8)
	require.Len(t, w, 8)
	assert.InDelta(t, 0, w[0], 1e-12)
	assert.InDelta(t, 0, w[7], 1e-12)
	assert.Equal(t, []float64{1}, HannWindow(1))
}
