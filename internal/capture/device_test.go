package capture_test

import (
	"context"
	"errors"
	"testing"

	"github.com/0xlemi/bertcam/internal/capture"
	"github.com/0xlemi/bertcam/internal/capture/capturetest"
)

func TestDefaultVideoDevice(t *testing.T) {
	back := capture.Device{ID: "2", Name: "Back Camera", Media: capture.MediaVideo, Position: capture.PositionBack}
	front := capture.Device{ID: "1", Name: "FaceTime HD", Media: capture.MediaVideo, Position: capture.PositionFront}
	usb := capturetest.Camera("0", "USB Webcam")

	tests := []struct {
		name    string
		devices []capture.Device
		wantID  string
		wantErr error
	}{
		{"prefers back", []capture.Device{front, usb, back}, "2", nil},
		{"falls back to unspecified", []capture.Device{front, usb}, "0", nil},
		{"falls back to any", []capture.Device{front}, "1", nil},
		{"none", nil, "", capture.ErrNoVideoDevice},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := capturetest.NewDiscoverer(tt.devices, nil)
			got, err := capture.DefaultVideoDevice(context.Background(), d, capture.PositionBack)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if err == nil && got.ID != tt.wantID {
				t.Errorf("Expected device %q, got %q", tt.wantID, got.ID)
			}
		})
	}
}

func TestFindDevice(t *testing.T) {
	devices := []capture.Device{
		capturetest.Mic("hw:0,0", "HDA Intel PCH: ALC3246 Analog"),
		capturetest.Mic("hw:1,0", "Café USB Mic"),
	}

	if d, ok := capture.FindDevice(devices, "hw:1,0"); !ok || d.Name != "Café USB Mic" {
		t.Errorf("Expected lookup by ID to find the USB mic, got %+v, %v", d, ok)
	}
	// Decomposed é, different case, padded.
	if d, ok := capture.FindDevice(devices, "  CAFE\u0301 usb mic "); !ok || d.ID != "hw:1,0" {
		t.Errorf("Expected lookup by name to find the USB mic, got %+v, %v", d, ok)
	}
	if _, ok := capture.FindDevice(devices, "missing"); ok {
		t.Error("Expected no match for unknown key")
	}
}

func TestSameName(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"MacBook Pro Microphone", "macbook pro microphone", true},
		{"Réglage Mic", "RE\u0301GLAGE MIC", true},
		{"Mic 1", "Mic 2", false},
	}
	for _, tt := range tests {
		if got := capture.SameName(tt.a, tt.b); got != tt.want {
			t.Errorf("SameName(%q, %q) = %v, expected %v", tt.a, tt.b, got, tt.want)
		}
	}
}
