package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/0xlemi/bertcam/internal/audio"
	"github.com/0xlemi/bertcam/internal/camera"
	"github.com/0xlemi/bertcam/internal/capture"
	"github.com/0xlemi/bertcam/internal/config"
	"github.com/0xlemi/bertcam/internal/library"
	"github.com/0xlemi/bertcam/internal/ui"
)

const (
	// Meter settings
	meterFramesPerBuffer = 1024
	meterChannels        = 2
	meterSampleRate      = 44100
	meterInterval        = 80 * time.Millisecond
	spectrumBands        = 24

	// Preview settings
	previewRate   = 10
	frameInterval = time.Second / previewRate
)

type App struct {
	Config     *config.Config
	Discoverer *capture.FFmpegDiscoverer
	Library    *library.Library
	Controller *camera.Controller

	meter      audio.Capturer
	closeMeter func() error
	frames     *capture.FrameBuffer // nil when the preview is off
	logger     *slog.Logger
}

func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	policy, err := library.ParsePolicy(cfg.LibraryAuthorization)
	if err != nil {
		return nil, err
	}

	discoverer := capture.NewFFmpegDiscoverer(cfg.FFmpegPath, logger.With("component", "discovery"))
	encoder := capture.NewFFmpegEncoder(cfg.FFmpegPath, logger.With("component", "encoder"))
	lib := library.New(cfg.LibraryDir, policy, logger.With("component", "library"))
	meter, closeMeter := newMeter(cfg.Meter, logger.With("component", "meter"))

	opts := camera.Options{
		DocumentsDir: cfg.DocumentsDir,
		Camera:       cfg.Camera,
		AudioInput:   cfg.AudioInput,
		Output: capture.OutputSettings{
			VideoSize: cfg.VideoSize,
			Framerate: cfg.Framerate,
			Preset:    cfg.Preset,
		},
		Monitor: meter,
	}
	var frames *capture.FrameBuffer
	if cfg.Preview {
		frames = &capture.FrameBuffer{}
		width, height := cfg.PreviewDimensions()
		opts.Previewer = encoder
		opts.Preview = capture.PreviewSpec{Width: width, Height: height, Rate: previewRate, Sink: frames}
	}
	ctrl := camera.New(discoverer, encoder, lib, opts, logger.With("component", "camera"))

	return &App{
		Config:     cfg,
		Discoverer: discoverer,
		Library:    lib,
		Controller: ctrl,
		meter:      meter,
		closeMeter: closeMeter,
		frames:     frames,
		logger:     logger,
	}, nil
}

// newMeter opens PortAudio for the live meter. Without it the preview shows
// silence.
func newMeter(enabled bool, logger *slog.Logger) (audio.Capturer, func() error) {
	silent := audio.NewSilentCapturer(meterSampleRate)
	noop := func() error { return nil }
	if !enabled {
		return silent, noop
	}
	pa, err := audio.NewPortAudioCapturer(meterFramesPerBuffer, meterChannels, logger)
	if err != nil {
		logger.Warn("audio meter unavailable", "error", err)
		return silent, noop
	}
	return pa, pa.Close
}

// Run shows the camera screen until the user quits.
func (a *App) Run(ctx context.Context) error {
	model := ui.NewModel(a.Controller, a.Config.SplashDuration)
	p := tea.NewProgram(model, tea.WithAltScreen())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		<-ctx.Done()
		p.Quit()
	}()

	// Start a goroutine for meter updates
	go pumpLevels(ctx, a.meter, p.Send, meterInterval)
	if a.frames != nil {
		go pumpFrames(ctx, a.frames, p.Send, frameInterval)
	}

	_, err := p.Run()
	return err
}

// pumpLevels analyzes the meter buffer every interval and sends the result.
// When the meter stops, one silent reading is sent so the preview clears.
func pumpLevels(ctx context.Context, meter audio.Capturer, send func(tea.Msg), interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	cleared := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		buffer, err := meter.GetBuffer()
		if err != nil {
			if !cleared {
				send(ui.LevelsMsg{Levels: audio.Analyze(nil, spectrumBands)})
				cleared = true
			}
			continue
		}
		cleared = false
		send(ui.LevelsMsg{
			Levels: audio.Analyze(buffer, spectrumBands),
			Device: meter.DeviceName(),
		})
	}
}

// pumpFrames sends the latest preview frame every interval, skipping ticks
// where it has not changed.
func pumpFrames(ctx context.Context, frames *capture.FrameBuffer, send func(tea.Msg), interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last uint64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		frame, seq, ok := frames.Latest()
		if seq == last {
			continue
		}
		last = seq
		send(ui.FrameMsg{Frame: frame, OK: ok})
	}
}

// Close stops the session, waits for recordings in flight to reach the
// library, then releases the meter.
func (a *App) Close() error {
	return errors.Join(a.Controller.Close(), a.closeMeter())
}
