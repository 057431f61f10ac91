package capture

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Category describes what the app does with audio.
type Category int

const (
	CategoryAmbient Category = iota
	CategoryRecord
	CategoryPlayAndRecord
)

func (c Category) String() string {
	switch c {
	case CategoryAmbient:
		return "ambient"
	case CategoryRecord:
		return "record"
	case CategoryPlayAndRecord:
		return "play-and-record"
	default:
		return "unknown"
	}
}

func (c Category) records() bool {
	return c == CategoryRecord || c == CategoryPlayAndRecord
}

// CategoryOptions refine a category.
type CategoryOptions uint

const (
	OptionMixWithOthers CategoryOptions = 1 << iota
	OptionAllowBluetooth
	OptionAllowBluetoothA2DP
	OptionDefaultToSpeaker
)

func (o CategoryOptions) String() string {
	if o == 0 {
		return "none"
	}
	var names []string
	for _, opt := range []struct {
		bit  CategoryOptions
		name string
	}{
		{OptionMixWithOthers, "mix-with-others"},
		{OptionAllowBluetooth, "allow-bluetooth"},
		{OptionAllowBluetoothA2DP, "allow-bluetooth-a2dp"},
		{OptionDefaultToSpeaker, "default-to-speaker"},
	} {
		if o&opt.bit != 0 {
			names = append(names, opt.name)
		}
	}
	return strings.Join(names, "|")
}

// AudioSession is the process-wide audio routing state: what the app does
// with audio and which input it prefers.
type AudioSession struct {
	discoverer Discoverer
	logger     *slog.Logger

	mu        sync.Mutex
	category  Category
	options   CategoryOptions
	active    bool
	preferred *AudioInput
}

func NewAudioSession(d Discoverer, logger *slog.Logger) *AudioSession {
	return &AudioSession{discoverer: d, logger: logger}
}

// SetCategory sets the category and options. Speaker and A2DP routing only
// make sense when playing and recording; Bluetooth input needs a recording
// category.
func (a *AudioSession) SetCategory(c Category, opts CategoryOptions) error {
	if opts&(OptionDefaultToSpeaker|OptionAllowBluetoothA2DP) != 0 && c != CategoryPlayAndRecord {
		return fmt.Errorf("%w: %s with %s", ErrInvalidOptions, c, opts)
	}
	if opts&OptionAllowBluetooth != 0 && !c.records() {
		return fmt.Errorf("%w: %s with %s", ErrInvalidOptions, c, opts)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.category, a.options = c, opts
	a.logger.Debug("audio session category set", "category", c, "options", opts)
	return nil
}

func (a *AudioSession) Category() (Category, CategoryOptions) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.category, a.options
}

func (a *AudioSession) SetActive(active bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.active = active
	return nil
}

func (a *AudioSession) IsActive() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.active
}

func (a *AudioSession) checkRecording() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.active || !a.category.records() {
		return ErrSessionInactive
	}
	return nil
}

// AvailableInputs lists the audio inputs. The session must be active with a
// recording category.
func (a *AudioSession) AvailableInputs(ctx context.Context) ([]AudioInput, error) {
	devices, err := a.availableDevices(ctx)
	if err != nil {
		return nil, err
	}
	inputs := make([]AudioInput, len(devices))
	for i, d := range devices {
		inputs[i] = d.AudioInput()
	}
	return inputs, nil
}

func (a *AudioSession) availableDevices(ctx context.Context) ([]Device, error) {
	if err := a.checkRecording(); err != nil {
		return nil, err
	}
	return a.discoverer.AudioDevices(ctx)
}

// SetPreferredInput routes recording through in. It must be currently available.
func (a *AudioSession) SetPreferredInput(ctx context.Context, in AudioInput) error {
	devices, err := a.availableDevices(ctx)
	if err != nil {
		return err
	}
	if _, ok := FindDevice(devices, in.UID); !ok {
		return fmt.Errorf("%w: %s", ErrInputNotAvailable, in.Name)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.preferred = &in
	a.logger.Info("preferred audio input set", "uid", in.UID, "name", in.Name)
	return nil
}

func (a *AudioSession) PreferredInput() (AudioInput, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.preferred == nil {
		return AudioInput{}, false
	}
	return *a.preferred, true
}

// DefaultAudioDevice returns the preferred input when it is still present,
// otherwise the first available input.
func (a *AudioSession) DefaultAudioDevice(ctx context.Context) (*Device, error) {
	devices, err := a.availableDevices(ctx)
	if err != nil {
		return nil, err
	}
	if len(devices) == 0 {
		return nil, ErrNoAudioDevice
	}
	if pref, ok := a.PreferredInput(); ok {
		if d, ok := FindDevice(devices, pref.UID); ok {
			return d, nil
		}
		a.logger.Warn("preferred audio input disappeared, using first available", "uid", pref.UID)
	}
	return &devices[0], nil
}
