package audio

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gordonklaus/portaudio"
	"github.com/rotisserie/eris"

	"github.com/cybre/beat-puppet/internal/dsp"
)

// CaptureConfig describes the input stream to open.
type CaptureConfig struct {
	Device     *portaudio.DeviceInfo
	SampleRate float64
	FFTSize    int
	Channels   int
	Latency    time.Duration
	// Now timestamps frames and ages them; defaults to time.Now.
	Now        func() time.Time
}

const (
	// staleBuffers is how many buffer periods a spectrum may age before it is dropped.
	staleBuffers  = 4
	minStaleAfter = 100 * time.Millisecond
)

// Capture reads live audio from a PortAudio input device and keeps the spectrum of
// the most recent window. Spectrum returns nil before the first frame arrives and
// again once the stream stops delivering frames.
type Capture struct {
	cfg        CaptureConfig
	logger     *slog.Logger
	gate       *Gate
	analyzer   *dsp.Analyzer
	frames     chan []float32
	staleAfter time.Duration

	mu       sync.Mutex
	latest   []float64
	latestAt time.Time
}

// NewCapture prepares a Capture. gate may be nil when nothing tracks loudness.
func NewCapture(cfg CaptureConfig, gate *Gate, logger *slog.Logger) (*Capture, error) {
	if cfg.Device == nil {
		return nil, eris.New("audio device is not specified")
	}
	if cfg.FFTSize < 4 || cfg.FFTSize&(cfg.FFTSize-1) != 0 {
		return nil, eris.Errorf("fft size %d must be a power of two", cfg.FFTSize)
	}
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	staleAfter := minStaleAfter
	if cfg.SampleRate > 0 {
		period := time.Duration(float64(time.Second) * float64(cfg.FFTSize) / cfg.SampleRate)
		staleAfter = max(staleAfter, staleBuffers*period)
	}

	return &Capture{
		cfg:        cfg,
		logger:     logger,
		gate:       gate,
		analyzer:   dsp.NewAnalyzer(cfg.FFTSize, dsp.DefaultAnalyzerOptions()),
		frames:     make(chan []float32, 32),
		staleAfter: staleAfter,
	}, nil
}

// Bins returns the number of bins per spectrum frame.
func (c *Capture) Bins() int {
	return c.analyzer.Bins()
}

// Spectrum copies the latest frame into dst and returns it. It returns nil when no
// audio has been captured yet or the latest frame is older than a few buffer periods.
func (c *Capture) Spectrum(dst []float64) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.latest == nil || c.cfg.Now().Sub(c.latestAt) > c.staleAfter {
		return nil
	}
	if cap(dst) < len(c.latest) {
		dst = make([]float64, len(c.latest))
	} else {
		dst = dst[:len(c.latest)]
	}
	copy(dst, c.latest)
	return dst
}

// Run opens the stream and analyzes frames until ctx is done.
func (c *Capture) Run(ctx context.Context) error {
	c.logger.Info("using audio input device",
		slog.String("name", c.cfg.Device.Name),
		slog.Float64("sample_rate", c.cfg.SampleRate),
		slog.Int("channels", c.cfg.Channels),
		slog.Int("fft_size", c.cfg.FFTSize))

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   c.cfg.Device,
			Channels: c.cfg.Channels,
			Latency:  c.cfg.Device.DefaultLowInputLatency,
		},
		SampleRate:      c.cfg.SampleRate,
		FramesPerBuffer: c.cfg.FFTSize,
	}
	if c.cfg.Latency > 0 {
		params.Input.Latency = c.cfg.Latency
	}

	stream, err := portaudio.OpenStream(params, c.onAudio)
	if err != nil {
		return eris.Wrap(err, "open audio stream")
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return eris.Wrap(err, "start audio stream")
	}
	defer stream.Stop()
	if c.gate != nil {
		defer c.gate.Reset()
	}

	var mono []float64
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-c.frames:
			mono = dsp.ToMono(frame, c.cfg.Channels, mono)
			c.Process(c.cfg.Now(), mono)
		}
	}
}

// Process analyzes one mono frame as if it had just been captured.
func (c *Capture) Process(ts time.Time, mono []float64) {
	if c.gate != nil {
		c.gate.Observe(ts, dsp.RootMeanSquare(mono))
	}

	c.mu.Lock()
	c.latest = c.analyzer.Process(mono, c.latest)
	c.latestAt = ts
	c.mu.Unlock()
}

// onAudio runs on the PortAudio thread. When the consumer falls behind, the oldest
// queued frame is dropped.
func (c *Capture) onAudio(in []float32) {
	frame := make([]float32, len(in))
	copy(frame, in)

	select {
	case c.frames <- frame:
	default:
		select {
		case <-c.frames:
		default:
		}
		select {
		case c.frames <- frame:
		default:
		}
	}
}
