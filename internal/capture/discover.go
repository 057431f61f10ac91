package capture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os/exec"
)

// FFmpegDiscoverer lists devices with the platform's capture tooling
// (ffmpeg -list_devices on macOS and Windows, /dev/video* and arecord on Linux).
type FFmpegDiscoverer struct {
	ffmpegPath string
	logger     *slog.Logger
}

// NewFFmpegDiscoverer creates a discoverer. ffmpegPath may be a bare command
// name resolved through PATH.
func NewFFmpegDiscoverer(ffmpegPath string, logger *slog.Logger) *FFmpegDiscoverer {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegDiscoverer{ffmpegPath: ffmpegPath, logger: logger}
}

func (d *FFmpegDiscoverer) VideoDevices(ctx context.Context) ([]Device, error) {
	devices, err := getPlatformConfig().listVideo(ctx, d.ffmpegPath)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("listed video devices", "count", len(devices))
	return devices, nil
}

func (d *FFmpegDiscoverer) AudioDevices(ctx context.Context) ([]Device, error) {
	devices, err := getPlatformConfig().listAudio(ctx, d.ffmpegPath)
	if err != nil {
		return nil, err
	}
	d.logger.Debug("listed audio devices", "count", len(devices))
	return devices, nil
}

// InputFormat is the ffmpeg capture format used on this OS.
func InputFormat() string {
	return getPlatformConfig().format
}

// CheckFFmpeg reports whether the ffmpeg binary can be found.
func CheckFFmpeg(ffmpegPath string) error {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if _, err := exec.LookPath(ffmpegPath); err != nil {
		return &deviceError{wrapped: ErrFFmpegNotFound, help: installHint}
	}
	return nil
}

// runListing runs a device listing command and returns its combined output.
// Listing commands always exit non-zero (ffmpeg has no input to open), so
// only a failure to start the binary is treated as an error.
func runListing(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			notFound := errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist)
			if notFound && name != "arecord" {
				return "", &deviceError{wrapped: ErrFFmpegNotFound, help: installHint}
			}
			return "", fmt.Errorf("running %s: %w", name, err)
		}
	}
	return string(out), nil
}
