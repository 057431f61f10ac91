package capture

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// MediaType is the kind of samples a device or connection carries.
type MediaType int

const (
	MediaVideo MediaType = iota
	MediaAudio
)

func (m MediaType) String() string {
	switch m {
	case MediaVideo:
		return "video"
	case MediaAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Position is the physical facing of a camera.
type Position int

const (
	PositionUnspecified Position = iota
	PositionBack
	PositionFront
)

func (p Position) String() string {
	switch p {
	case PositionBack:
		return "back"
	case PositionFront:
		return "front"
	default:
		return "unspecified"
	}
}

// Device is a capture device as reported by the OS.
type Device struct {
	ID       string // identifier understood by the encoder (e.g. "0", "/dev/video0", "hw:1,0")
	Name     string // display name
	Media    MediaType
	Position Position
}

// AudioInput identifies one selectable microphone or line source.
type AudioInput struct {
	UID  string
	Name string
}

// AudioInput returns the descriptor for an audio device.
func (d Device) AudioInput() AudioInput {
	return AudioInput{UID: d.ID, Name: d.Name}
}

// Discoverer enumerates capture devices.
type Discoverer interface {
	VideoDevices(ctx context.Context) ([]Device, error)
	AudioDevices(ctx context.Context) ([]Device, error)
}

// DefaultVideoDevice picks the camera for the given position. Desktop cameras
// rarely report a facing, so unspecified devices are accepted next and any
// device after that.
func DefaultVideoDevice(ctx context.Context, d Discoverer, position Position) (*Device, error) {
	devices, err := d.VideoDevices(ctx)
	if err != nil {
		return nil, err
	}
	return ChooseVideoDevice(devices, position)
}

// ChooseVideoDevice applies the DefaultVideoDevice preference to a listing.
func ChooseVideoDevice(devices []Device, position Position) (*Device, error) {
	if len(devices) == 0 {
		return nil, ErrNoVideoDevice
	}
	for _, want := range []Position{position, PositionUnspecified} {
		for i := range devices {
			if devices[i].Position == want {
				return &devices[i], nil
			}
		}
	}
	return &devices[0], nil
}

// FindDevice returns the device whose ID or name matches key.
func FindDevice(devices []Device, key string) (*Device, bool) {
	for i := range devices {
		if devices[i].ID == key {
			return &devices[i], true
		}
	}
	for i := range devices {
		if SameName(devices[i].Name, key) {
			return &devices[i], true
		}
	}
	return nil, false
}

// SameName compares device names the way different OS APIs report them:
// Unicode-normalized, case-folded, surrounding space ignored.
func SameName(a, b string) bool {
	return normalizeName(a) == normalizeName(b)
}

func normalizeName(s string) string {
	// Casers are stateful, so each call gets its own.
	return cases.Fold().String(norm.NFC.String(strings.TrimSpace(s)))
}

// guessPosition infers the camera facing from its name.
func guessPosition(name string) Position {
	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "back"), strings.Contains(lower, "rear"):
		return PositionBack
	case strings.Contains(lower, "front"), strings.Contains(lower, "facetime"):
		return PositionFront
	default:
		return PositionUnspecified
	}
}
