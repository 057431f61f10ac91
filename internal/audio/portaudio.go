package audio

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/0xlemi/bertcam/internal/capture"
)

// PortAudioCapturer implements audio capture using PortAudio
type PortAudioCapturer struct {
	mu            sync.Mutex
	isCapturing   bool
	stream        *portaudio.Stream
	deviceName    string
	framesPerBuf  int
	channels      int
	amplification float32 // Audio signal amplification factor
	logger        *slog.Logger

	bufferMutex sync.Mutex
	buffer      *AudioBuffer
}

// NewPortAudioCapturer initializes PortAudio. Close terminates it.
func NewPortAudioCapturer(framesPerBuffer, channels int, logger *slog.Logger) (*PortAudioCapturer, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}
	return &PortAudioCapturer{
		framesPerBuf:  framesPerBuffer,
		channels:      channels,
		amplification: 2.0,
		logger:        logger,
		buffer:        &AudioBuffer{},
	}, nil
}

// Start opens an input stream on the PortAudio device matching device, or the
// default input when device is nil or has no PortAudio counterpart.
func (c *PortAudioCapturer) Start(device *capture.Device) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isCapturing {
		return errors.New("audio capture already started")
	}

	in, err := c.inputDevice(device)
	if err != nil {
		return err
	}

	params := portaudio.LowLatencyParameters(in, nil)
	channels := c.channels
	if in.MaxInputChannels < channels {
		channels = in.MaxInputChannels
	}
	params.Input.Channels = channels
	params.FramesPerBuffer = c.framesPerBuf

	sampleRate := int(params.SampleRate)
	process := func(in []float32) {
		c.processAudio(in, channels, sampleRate)
	}
	stream, err := portaudio.OpenStream(params, process)
	if err != nil {
		return fmt.Errorf("opening input stream on %s: %w", in.Name, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		return fmt.Errorf("starting input stream on %s: %w", in.Name, err)
	}

	c.stream = stream
	c.deviceName = in.Name
	c.isCapturing = true
	c.logger.Info("audio meter started", "device", in.Name, "channels", channels, "sample_rate", sampleRate)
	return nil
}

func (c *PortAudioCapturer) inputDevice(device *capture.Device) (*portaudio.DeviceInfo, error) {
	if device != nil {
		inputs, err := inputDevices()
		if err != nil {
			return nil, err
		}
		names := make([]string, len(inputs))
		for i, d := range inputs {
			names[i] = d.Name
		}
		if i := matchDevice(names, *device); i >= 0 {
			return inputs[i], nil
		}
		c.logger.Warn("no portaudio device for audio input, using default", "device", device.Name)
	}

	in, err := portaudio.DefaultInputDevice()
	if err != nil {
		return nil, fmt.Errorf("finding default input: %w", err)
	}
	return in, nil
}

func inputDevices() ([]*portaudio.DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("listing portaudio devices: %w", err)
	}
	var inputs []*portaudio.DeviceInfo
	for _, d := range devices {
		if d.MaxInputChannels > 0 {
			inputs = append(inputs, d)
		}
	}
	return inputs, nil
}

// InputDeviceNames lists the PortAudio capture devices. It initializes and
// terminates PortAudio itself.
func InputDeviceNames() ([]string, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("initializing portaudio: %w", err)
	}
	defer portaudio.Terminate()

	inputs, err := inputDevices()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(inputs))
	for i, d := range inputs {
		names[i] = d.Name
	}
	return names, nil
}

// matchDevice finds the PortAudio device name for a capture device. Names are
// compared after normalization; ALSA devices are also matched by their
// "(hw:N,M)" suffix and by name prefix.
func matchDevice(names []string, d capture.Device) int {
	for i, name := range names {
		if capture.SameName(name, d.Name) {
			return i
		}
	}
	if strings.HasPrefix(d.ID, "hw:") {
		suffix := "(" + d.ID + ")"
		for i, name := range names {
			if strings.HasSuffix(name, suffix) {
				return i
			}
		}
	}
	for i, name := range names {
		if d.Name != "" && len(name) > len(d.Name) && capture.SameName(name[:len(d.Name)], d.Name) {
			return i
		}
	}
	return -1
}

// Stop closes the stream. PortAudio stays initialized for the next Start.
func (c *PortAudioCapturer) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isCapturing {
		return ErrNotCapturing
	}

	c.isCapturing = false
	c.deviceName = ""
	stream := c.stream
	c.stream = nil

	if err := stream.Stop(); err != nil {
		stream.Close()
		return err
	}
	if err := stream.Close(); err != nil {
		return err
	}
	c.logger.Info("audio meter stopped")
	return nil
}

// Close stops capturing and terminates PortAudio.
func (c *PortAudioCapturer) Close() error {
	if c.IsCapturing() {
		if err := c.Stop(); err != nil {
			c.logger.Warn("stopping audio meter", "error", err)
		}
	}
	return portaudio.Terminate()
}

// processAudio is the callback function for audio processing
func (c *PortAudioCapturer) processAudio(in []float32, channels, sampleRate int) {
	mono := mixdown(in, channels, c.amplification)

	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()
	c.buffer.Samples = mono
	c.buffer.SampleRate = sampleRate
}

// mixdown averages interleaved channels into mono and applies gain.
func mixdown(in []float32, channels int, gain float32) []float32 {
	if channels < 1 {
		channels = 1
	}
	mono := make([]float32, len(in)/channels)
	for i := range mono {
		sum := float32(0)
		for ch := 0; ch < channels; ch++ {
			sum += in[i*channels+ch]
		}
		mono[i] = (sum / float32(channels)) * gain
	}
	return mono
}

// GetBuffer returns the current audio buffer
func (c *PortAudioCapturer) GetBuffer() (*AudioBuffer, error) {
	if !c.IsCapturing() {
		return nil, ErrNotCapturing
	}

	c.bufferMutex.Lock()
	defer c.bufferMutex.Unlock()

	// Create a copy of the buffer to return
	bufferCopy := &AudioBuffer{
		Samples:    make([]float32, len(c.buffer.Samples)),
		SampleRate: c.buffer.SampleRate,
	}
	copy(bufferCopy.Samples, c.buffer.Samples)

	return bufferCopy, nil
}

// IsCapturing returns true if currently capturing audio
func (c *PortAudioCapturer) IsCapturing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isCapturing
}

func (c *PortAudioCapturer) DeviceName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deviceName
}
