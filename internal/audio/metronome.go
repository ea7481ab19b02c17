package audio

import (
	"math"
	"sync"
	"time"
)

// MaxBPM is the fastest tempo a Metronome plays; faster requests are clamped to it.
const MaxBPM = 1000

// MetronomeOptions shapes the synthetic track.
type MetronomeOptions struct {
	BPM       float64
	Bins      int
	KickLevel float64
	BedLevel  float64
	KickDecay time.Duration
	Playing   bool
	Now       func() time.Time
}

// Metronome is a synthetic track: a kick drum burst in the bass bins at a fixed tempo
// over a quiet bed. It owns its own Transport, and its track position only advances
// while playing. Paused, it yields silent frames.
type Metronome struct {
	*Transport

	opts MetronomeOptions

	mu       sync.Mutex
	position time.Duration
	last     time.Time
}

// NewMetronome returns a Metronome. Zero options fall back to 120 BPM, 128 bins.
// A non-finite tempo also falls back to 120 BPM.
func NewMetronome(opts MetronomeOptions) *Metronome {
	if !(opts.BPM > 0) || math.IsInf(opts.BPM, 1) {
		opts.BPM = 120
	}
	opts.BPM = min(opts.BPM, MaxBPM)
	if opts.Bins <= 0 {
		opts.Bins = 128
	}
	if opts.KickLevel <= 0 {
		opts.KickLevel = 220
	}
	if opts.BedLevel < 0 {
		opts.BedLevel = 0
	}
	if opts.KickDecay <= 0 {
		opts.KickDecay = 120 * time.Millisecond
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Metronome{
		Transport: NewTransport(opts.Playing),
		opts:      opts,
		last:      opts.Now(),
	}
}

// Period returns the time between kicks.
func (m *Metronome) Period() time.Duration {
	return max(time.Duration(float64(time.Minute)/m.opts.BPM), time.Nanosecond)
}

// Position returns how far into the track playback is.
func (m *Metronome) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()
	return m.position
}

// Spectrum writes the current frame into dst and returns it.
func (m *Metronome) Spectrum(dst []float64) []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.advance()

	bins := m.opts.Bins
	if cap(dst) < bins {
		dst = make([]float64, bins)
	} else {
		dst = dst[:bins]
	}
	for i := range dst {
		dst[i] = 0
	}
	if !m.IsPlaying() {
		return dst
	}

	sinceKick := m.position % m.Period()
	envelope := math.Exp(-float64(sinceKick) / float64(m.opts.KickDecay))
	bass := max(2, int(math.Ceil(0.12*float64(bins))))
	for i := range dst {
		// The bed rolls off toward the top of the spectrum.
		dst[i] = m.opts.BedLevel * (1 - float64(i)/float64(bins))
		if i < bass {
			dst[i] = math.Max(dst[i], m.opts.KickLevel*envelope)
		}
		dst[i] = math.Min(255, dst[i])
	}
	return dst
}

func (m *Metronome) advance() {
	now := m.opts.Now()
	if m.IsPlaying() {
		m.position += now.Sub(m.last)
	}
	m.last = now
}
