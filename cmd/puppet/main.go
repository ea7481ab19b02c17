package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/gordonklaus/portaudio"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/cybre/beat-puppet/internal/audio"
	"github.com/cybre/beat-puppet/internal/config"
	"github.com/cybre/beat-puppet/internal/controller"
	"github.com/cybre/beat-puppet/internal/render"
	"github.com/cybre/beat-puppet/internal/ui"
)

const gateRelease = 750 * time.Millisecond

func main() {
	cfg := parseCLIFlags()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := runPuppet(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func runPuppet(ctx context.Context, opts runtimeOptions) error {
	if err := opts.validate(); err != nil {
		return err
	}

	logger := setupLogger(opts.debug, opts.visualize)

	var (
		devices       []*portaudio.DeviceInfo
		defaultDevice = -1
	)
	if opts.source == sourceCapture {
		if err := portaudio.Initialize(); err != nil {
			return eris.Wrap(err, "initialize PortAudio")
		}
		defer portaudio.Terminate()

		var err error
		devices, err = portaudio.Devices()
		if err != nil {
			return eris.Wrap(err, "enumerate audio devices")
		}
		if dev, err := portaudio.DefaultInputDevice(); err == nil {
			defaultDevice = dev.Index
		} else {
			logger.Warn("no default audio input device", slog.Any("error", err))
		}
	}

	sel, err := selectPresetAndDevice(config.PresetNames(), devices, defaultDevice, opts)
	if err != nil {
		return eris.Wrap(err, "select preset/device")
	}

	engineCfg, err := loadEngineConfig(sel.preset, opts.configPath)
	if err != nil {
		return eris.Wrap(err, "load configuration")
	}

	if err := run(ctx, logger, engineCfg, sel, opts); err != nil && !eris.Is(err, context.Canceled) {
		logger.Error("puppet loop failed", slog.Any("error", err))
		return err
	}

	return nil
}

func setupLogger(debug, visualize bool) *slog.Logger {
	logOutput := os.Stdout
	logLevel := slog.LevelInfo
	if debug {
		logLevel = slog.LevelDebug
	}
	if visualize && !debug {
		logLevel = slog.LevelWarn
	}
	if visualize {
		logOutput = os.Stderr
	}

	logger := slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	return logger
}

func run(ctx context.Context, logger *slog.Logger, cfg config.Config, sel selection, opts runtimeOptions) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	fftSize := effectiveFFTSize(opts.fftSize)

	var (
		source    controller.SpectrumSource
		transport controller.TransportState
		toggler   ui.Toggler
		capture   *audio.Capture
	)

	switch opts.source {
	case sourceSynthetic:
		metronome := audio.NewMetronome(audio.MetronomeOptions{
			BPM:     opts.bpm,
			Bins:    fftSize / 2,
			Playing: true,
		})
		source, transport, toggler = metronome, metronome, metronome
		logger.Info("using synthetic source",
			slog.Float64("bpm", opts.bpm),
			slog.Duration("period", metronome.Period()))
	default:
		if sel.device.MaxInputChannels < 1 {
			return eris.Errorf("device %s has no input channels; select a loopback/monitor device", sel.device.Name)
		}
		gate := audio.NewGate(opts.gate, gateRelease, nil)
		var err error
		capture, err = audio.NewCapture(audio.CaptureConfig{
			Device:     sel.device,
			SampleRate: effectiveSampleRate(opts.sampleRate, sel.device.DefaultSampleRate),
			FFTSize:    fftSize,
			Channels:   sanitizeChannelCount(opts.channels, sel.device.MaxInputChannels),
			Latency:    opts.latency,
		}, gate, logger)
		if err != nil {
			return err
		}
		if opts.channels > sel.device.MaxInputChannels {
			logger.Warn("requested channels exceed device capabilities",
				slog.Int("requested", opts.channels),
				slog.Int("max", sel.device.MaxInputChannels))
		}
		source, transport = capture, gate
	}

	id := uuid.New()
	renderers := render.Multi{}

	if opts.visualize {
		viz := ui.NewVisualizer(ui.NewStage(cfg.Anchor), cancel, toggler)
		defer viz.Close()
		renderers = append(renderers, viz)
	}

	var broadcaster *render.Broadcaster
	if opts.wsAddr != "" {
		broadcaster = render.NewBroadcaster(id.String(), logger)
		renderers = append(renderers, broadcaster)
	}

	if opts.debug {
		renderers = append(renderers, render.NewLogRenderer(logger, max(int(opts.tickHz), 1)))
	}

	session, err := controller.NewSession(cfg, controller.Options{
		ID:             id,
		Source:         source,
		Transport:      transport,
		Renderer:       renderers,
		SampleInterval: intervalFromHz(opts.sampleHz),
		TickInterval:   intervalFromHz(opts.tickHz),
		Logger:         logger,
	})
	if err != nil {
		return eris.Wrap(err, "create session")
	}

	g, gctx := errgroup.WithContext(runCtx)

	if capture != nil {
		g.Go(func() error {
			return capture.Run(gctx)
		})
	}

	g.Go(func() error {
		return session.Run(gctx)
	})

	if broadcaster != nil {
		g.Go(func() error {
			return broadcaster.Serve(gctx, opts.wsAddr)
		})
	}

	if err := g.Wait(); err != nil {
		if eris.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	return nil
}
