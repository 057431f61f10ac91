package audio

import (
	"errors"
	"math"
	"testing"

	"github.com/0xlemi/bertcam/internal/capture"
)

func sine(freq float64, amplitude float32, sampleRate, n int) *AudioBuffer {
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = amplitude * float32(math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}
	return &AudioBuffer{Samples: samples, SampleRate: sampleRate}
}

func TestAnalyze_Silence(t *testing.T) {
	levels := Analyze(&AudioBuffer{Samples: make([]float32, 1024), SampleRate: 44100}, 8)
	if levels.DB != SilenceDB || levels.Level() != 0 {
		t.Errorf("Expected silence, got %.1f dB (level %.2f)", levels.DB, levels.Level())
	}
	for i, b := range levels.Bands {
		if b != 0 {
			t.Errorf("Expected band %d to be empty, got %.2f", i, b)
		}
	}
}

func TestAnalyze_Empty(t *testing.T) {
	levels := Analyze(nil, 4)
	if len(levels.Bands) != 4 || levels.DB != SilenceDB {
		t.Errorf("Unexpected levels for nil buffer: %+v", levels)
	}
}

func TestAnalyze_SineLevel(t *testing.T) {
	levels := Analyze(sine(1000, 0.5, 44100, 4096), 0)

	// RMS of a sine is amplitude/sqrt(2).
	want := 0.5 / math.Sqrt2
	if math.Abs(levels.RMS-want) > 0.01 {
		t.Errorf("Expected RMS %.3f, got %.3f", want, levels.RMS)
	}
	if math.Abs(levels.Peak-0.5) > 0.01 {
		t.Errorf("Expected peak 0.5, got %.3f", levels.Peak)
	}
	if math.Abs(levels.DB-(-9.03)) > 0.2 {
		t.Errorf("Expected about -9 dB, got %.2f", levels.DB)
	}
}

func TestAnalyze_SinePeaksInItsBand(t *testing.T) {
	const bands = 16
	levels := Analyze(sine(1000, 0.8, 44100, 4096), bands)

	edges := bandEdges(bands, minBandHz, maxBandHz)
	want := -1
	for i := 0; i < bands; i++ {
		if 1000 >= edges[i] && 1000 < edges[i+1] {
			want = i
		}
	}
	loudest := 0
	for i, b := range levels.Bands {
		if b > levels.Bands[loudest] {
			loudest = i
		}
	}
	if loudest != want {
		t.Errorf("Expected band %d to be loudest, got %d (%v)", want, loudest, levels.Bands)
	}
	if levels.Bands[want] < 0.9 {
		t.Errorf("Expected a loud sine to fill its band, got %.2f", levels.Bands[want])
	}
}

func TestBandEdges(t *testing.T) {
	edges := bandEdges(3, 100, 800)
	want := []float64{100, 200, 400, 800}
	for i := range want {
		if math.Abs(edges[i]-want[i]) > 1e-9 {
			t.Errorf("Edge %d: expected %.1f, got %.1f", i, want[i], edges[i])
		}
	}
}

func TestMixdown(t *testing.T) {
	got := mixdown([]float32{0.2, 0.4, -0.2, -0.4}, 2, 2)
	want := []float32{0.6, -0.6}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-6 {
			t.Errorf("Sample %d: expected %.2f, got %.2f", i, want[i], got[i])
		}
	}
}

func TestMatchDevice(t *testing.T) {
	names := []string{
		"MacBook Pro Microphone",
		"HDA Intel PCH: ALC3246 Analog (hw:0,0)",
		"USB PnP Sound Device: Audio (hw:2,0)",
	}
	tests := []struct {
		name   string
		device capture.Device
		want   int
	}{
		{"exact name", capture.Device{ID: "0", Name: "macbook pro microphone"}, 0},
		{"alsa hw id", capture.Device{ID: "hw:2,0", Name: "USB PnP Sound Device: USB Audio"}, 2},
		{"name prefix", capture.Device{ID: "x", Name: "HDA Intel PCH: ALC3246 Analog"}, 1},
		{"unknown", capture.Device{ID: "9", Name: "Ghost"}, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := matchDevice(names, tt.device); got != tt.want {
				t.Errorf("Expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestSilentCapturer(t *testing.T) {
	c := NewSilentCapturer(48000)
	if _, err := c.GetBuffer(); !errors.Is(err, ErrNotCapturing) {
		t.Errorf("Expected ErrNotCapturing before start, got %v", err)
	}
	if err := c.Start(&capture.Device{Name: "USB Mic"}); err != nil {
		t.Fatal(err)
	}
	if !c.IsCapturing() || c.DeviceName() != "USB Mic" {
		t.Errorf("Expected capturing from USB Mic, got %v %q", c.IsCapturing(), c.DeviceName())
	}
	buf, err := c.GetBuffer()
	if err != nil || len(buf.Samples) != 0 || buf.SampleRate != 48000 {
		t.Errorf("Expected an empty buffer at 48kHz, got %+v, %v", buf, err)
	}
	c.Stop()
	if c.IsCapturing() {
		t.Error("Expected capture to stop")
	}
}
