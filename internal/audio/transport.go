package audio

import (
	"sync"
	"sync/atomic"
	"time"
)

// Transport is a manually driven play/pause switch.
type Transport struct {
	playing atomic.Bool
}

// NewTransport returns a Transport in the given state.
func NewTransport(playing bool) *Transport {
	t := &Transport{}
	t.playing.Store(playing)
	return t
}

// IsPlaying reports whether audio is flowing.
func (t *Transport) IsPlaying() bool {
	return t.playing.Load()
}

// Play starts playback.
func (t *Transport) Play() {
	t.playing.Store(true)
}

// Pause stops playback.
func (t *Transport) Pause() {
	t.playing.Store(false)
}

// Toggle flips the state and returns the new one.
func (t *Transport) Toggle() bool {
	for {
		cur := t.playing.Load()
		if t.playing.CompareAndSwap(cur, !cur) {
			return !cur
		}
	}
}

// minGateHold bounds how long a gate stays open without any loud frame, so a release
// of zero still closes when the stream stops delivering audio.
const minGateHold = 50 * time.Millisecond

// Gate reports playing while captured audio is above a loudness threshold. It opens on
// the first loud frame and closes once no loud frame has arrived for the release time,
// whether the signal went quiet or frames stopped arriving altogether.
type Gate struct {
	threshold float64
	release   time.Duration
	now       func() time.Time

	mu        sync.Mutex
	open      bool
	lastLoud  time.Time
	observing bool
}

// NewGate constructs a Gate. now supplies the clock IsPlaying measures against and
// defaults to time.Now; Observe timestamps must come from the same clock.
func NewGate(threshold float64, release time.Duration, now func() time.Time) *Gate {
	if now == nil {
		now = time.Now
	}
	return &Gate{threshold: threshold, release: max(release, 0), now: now}
}

// Observe feeds the RMS of one captured frame.
func (g *Gate) Observe(ts time.Time, rms float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.observing = true
	if rms >= g.threshold {
		g.open = true
		g.lastLoud = ts
		return
	}
	if g.open && ts.Sub(g.lastLoud) >= g.release {
		g.open = false
	}
}

// Reset closes the gate, e.g. when the capture stream stops.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = false
	g.observing = false
}

// IsPlaying reports whether the gate is open and a loud frame arrived recently.
func (g *Gate) IsPlaying() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.observing || !g.open {
		return false
	}
	return g.now().Sub(g.lastLoud) < max(g.release, minGateHold)
}
