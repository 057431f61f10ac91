// Package audio taps the selected microphone for the live preview: a level
// meter and spectrum bars while the capture session runs.
package audio

import (
	"errors"
	"sync"

	"github.com/0xlemi/bertcam/internal/capture"
)

var ErrNotCapturing = errors.New("audio capture not started")

// AudioBuffer represents a buffer of mono audio samples
type AudioBuffer struct {
	Samples    []float32
	SampleRate int
}

// Capturer taps an audio device. It satisfies capture.Monitor so a capture
// session can start and stop it.
type Capturer interface {
	// Start begins capturing from device, or the default input when nil
	Start(device *capture.Device) error

	// Stop ends audio capture
	Stop() error

	// GetBuffer returns a copy of the latest buffer
	GetBuffer() (*AudioBuffer, error)

	// IsCapturing returns true if currently capturing audio
	IsCapturing() bool

	// DeviceName is the device being captured, empty when idle
	DeviceName() string
}

var _ capture.Monitor = Capturer(nil)

// SilentCapturer stands in when the meter is disabled or no audio backend is
// available. It tracks start and stop but never produces sound.
type SilentCapturer struct {
	mu          sync.Mutex
	isCapturing bool
	device      string
	sampleRate  int
}

func NewSilentCapturer(sampleRate int) *SilentCapturer {
	return &SilentCapturer{sampleRate: sampleRate}
}

func (c *SilentCapturer) Start(device *capture.Device) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isCapturing = true
	c.device = ""
	if device != nil {
		c.device = device.Name
	}
	return nil
}

func (c *SilentCapturer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isCapturing = false
	c.device = ""
	return nil
}

func (c *SilentCapturer) GetBuffer() (*AudioBuffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isCapturing {
		return nil, ErrNotCapturing
	}
	return &AudioBuffer{SampleRate: c.sampleRate}, nil
}

func (c *SilentCapturer) IsCapturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isCapturing
}

func (c *SilentCapturer) DeviceName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.device
}
