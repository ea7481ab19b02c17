package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/cybre/beat-puppet/internal/beat"
	"github.com/cybre/beat-puppet/internal/config"
	"github.com/cybre/beat-puppet/internal/pose"
)

var ErrAlreadyRunning = eris.New("session already running")

// SpectrumSource supplies the latest frequency magnitudes. It must be safe to call
// before audio starts, returning an empty frame.
type SpectrumSource interface {
	Spectrum(dst []float64) []float64
}

// TransportState reports whether audio is actually flowing.
type TransportState interface {
	IsPlaying() bool
}

// Renderer applies a pose to whatever draws the rig.
type Renderer interface {
	Render(p pose.Pose) error
}

// Options wires a Session to its collaborators.
type Options struct {
	ID uuid.UUID
	// Source may be nil, in which case the detector never runs and the pulse stays at
	// its floor.
	Source         SpectrumSource
	Transport      TransportState
	Renderer       Renderer
	SampleInterval time.Duration
	TickInterval   time.Duration
	Now            func() time.Time
	Logger         *slog.Logger
}

// Session is one audio analysis session. It owns the beat detector, the pose
// scheduler and their buffers, and runs the sampling and animation cadences.
type Session struct {
	id        uuid.UUID
	cfg       config.Config
	opts      Options
	logger    *slog.Logger
	detector  *beat.Detector
	scheduler *pose.Scheduler
	bodyName  string

	mu      sync.Mutex
	start   time.Time
	frame   []float64
	playing bool
	last    pose.Pose
	ticks   uint64

	lifecycle sync.Mutex
	cancel    context.CancelFunc
	done      chan error
}

// NewSession validates cfg and builds the engine. Rig problems surface here, never
// while ticking.
func NewSession(cfg config.Config, opts Options) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Transport == nil {
		return nil, eris.New("session needs a transport")
	}
	if opts.Renderer == nil {
		return nil, eris.New("session needs a renderer")
	}

	model, err := cfg.BuildRig()
	if err != nil {
		return nil, eris.Wrap(err, "build rig")
	}

	body, _ := model.Body()

	if opts.ID == uuid.Nil {
		opts.ID = uuid.New()
	}
	if opts.SampleInterval <= 0 {
		opts.SampleInterval = time.Second / 60
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second / 60
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Session{
		id:        opts.ID,
		cfg:       cfg,
		opts:      opts,
		logger:    opts.Logger.With(slog.String("session", opts.ID.String())),
		detector:  beat.NewDetector(cfg.DetectorOptions()),
		scheduler: pose.NewScheduler(model, cfg.SchedulerParams()),
		bodyName:  body.Name,
		start:     opts.Now(),
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Pulse returns the detector's current pulse.
func (s *Session) Pulse() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detector.CurrentPulse()
}

// LastPose returns the most recently emitted pose.
func (s *Session) LastPose() pose.Pose {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Detect runs one detection step against the source. Without a source it does nothing.
func (s *Session) Detect() {
	if s.opts.Source == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = s.opts.Source.Spectrum(s.frame)
	s.detector.Detect(s.frame)
}

// Tick computes and renders one pose. Render failures are logged, not returned.
func (s *Session) Tick() pose.Pose {
	s.mu.Lock()
	now := s.opts.Now()
	playing := s.opts.Transport.IsPlaying()
	if playing != s.playing {
		s.logger.Info("transport changed", slog.Bool("playing", playing))
		s.playing = playing
	}

	p := s.scheduler.Tick(now.Sub(s.start).Seconds(), playing, s.detector.CurrentPulse())
	s.last = p
	s.ticks++
	s.mu.Unlock()

	if err := s.opts.Renderer.Render(p); err != nil {
		s.logger.Warn("failed to render pose", slog.Any("error", err))
	}
	return p
}

// Run drives both cadences until ctx is done.
func (s *Session) Run(ctx context.Context) error {
	s.logger.Info("starting session",
		slog.String("preset", s.cfg.Name),
		slog.String("rig", s.cfg.Rig),
		slog.Duration("sample_interval", s.opts.SampleInterval),
		slog.Duration("tick_interval", s.opts.TickInterval))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return every(gctx, s.opts.SampleInterval, s.Detect)
	})

	g.Go(func() error {
		debugTicker := time.NewTicker(2 * time.Second)
		defer debugTicker.Stop()
		ticker := time.NewTicker(s.opts.TickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				s.Tick()
			case <-debugTicker.C:
				s.logSnapshot()
			}
		}
	})

	return g.Wait()
}

// Start runs the session in the background. Stop ends it.
func (s *Session) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	if s.cancel != nil {
		return ErrAlreadyRunning
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan error, 1)

	go func(done chan<- error) {
		done <- s.Run(runCtx)
	}(s.done)

	return nil
}

// Stop cancels a running session and waits for it to finish. Stopping an idle
// session is a no-op.
func (s *Session) Stop() error {
	s.lifecycle.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.lifecycle.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()

	if err := <-done; err != nil && !eris.Is(err, context.Canceled) {
		return err
	}
	s.logger.Info("session stopped")
	return nil
}

func (s *Session) logSnapshot() {
	s.mu.Lock()
	p, ticks := s.last, s.ticks
	bass, hit := s.detector.LastBass(), s.detector.LastBeat()
	s.mu.Unlock()

	attrs := []any{
		slog.Uint64("ticks", ticks),
		slog.Float64("bass", bass),
		slog.Bool("beat", hit),
		slog.Float64("pulse", p.Pulse),
		slog.Float64("jump_height", p.JumpHeight),
		slog.Bool("playing", p.Playing),
		slog.String("expression", p.Expression.String()),
	}
	if body, ok := p.Part(s.bodyName); ok {
		attrs = append(attrs, slog.Float64("body_y", body.Position.Y))
	}
	s.logger.Debug("animation state", attrs...)
}

// every calls fn once per interval until ctx is done.
func every(ctx context.Context, interval time.Duration, fn func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fn()
		}
	}
}
