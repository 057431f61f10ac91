package audio

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

const (
	// SilenceDB is the floor reported for an empty or silent buffer.
	SilenceDB = -100.0
	// meterRangeDB is the span mapped onto a 0..1 meter.
	meterRangeDB = 60.0

	minBandHz = 60.0
	maxBandHz = 12000.0
)

// Levels summarizes one buffer for display.
type Levels struct {
	RMS   float64
	Peak  float64
	DB    float64   // RMS in dBFS, SilenceDB when silent
	Bands []float64 // log-spaced spectrum, each 0..1
}

// Level maps DB onto 0..1 for a meter.
func (l Levels) Level() float64 {
	return dbToUnit(l.DB)
}

func dbToUnit(db float64) float64 {
	v := (db + meterRangeDB) / meterRangeDB
	return math.Max(0, math.Min(1, v))
}

// Analyze computes the level and a spectrum of the given number of bands.
func Analyze(buffer *AudioBuffer, bands int) Levels {
	levels := Levels{DB: SilenceDB, Bands: make([]float64, bands)}
	if buffer == nil || len(buffer.Samples) < 2 {
		return levels
	}

	// Calculate RMS volume of the buffer
	sumSquares := 0.0
	for _, sample := range buffer.Samples {
		v := float64(sample)
		sumSquares += v * v
		if a := math.Abs(v); a > levels.Peak {
			levels.Peak = a
		}
	}
	levels.RMS = math.Sqrt(sumSquares / float64(len(buffer.Samples)))
	if levels.RMS > 0.0000001 { // Avoid log(0)
		levels.DB = 20 * math.Log10(levels.RMS)
	}

	if bands > 0 && buffer.SampleRate > 0 {
		spectrumBands(levels.Bands, buffer)
	}
	return levels
}

// spectrumBands fills out with the loudest bin of each log-spaced band,
// scaled so a full-scale sine reads 1.
func spectrumBands(out []float64, buffer *AudioBuffer) {
	windowed := applyHannWindow(buffer.Samples)

	// Convert from []float32 to []complex128 for the FFT
	complexSamples := make([]complex128, len(windowed))
	for i, sample := range windowed {
		complexSamples[i] = complex(float64(sample), 0)
	}
	spectrum := fft.FFT(complexSamples)

	// We only need to look at the first half of the spectrum (Nyquist theorem)
	half := spectrum[:len(spectrum)/2]
	binSizeHz := float64(buffer.SampleRate) / float64(len(spectrum))
	// A Hann-windowed full-scale sine peaks at N/4.
	fullScale := float64(len(spectrum)) / 4

	hi := math.Min(maxBandHz, float64(buffer.SampleRate)/2)
	edges := bandEdges(len(out), minBandHz, hi)
	for b := range out {
		lo := int(edges[b] / binSizeHz)
		up := int(math.Ceil(edges[b+1] / binSizeHz))
		if lo < 1 {
			lo = 1 // Avoid DC component
		}
		if up > len(half) {
			up = len(half)
		}
		peak := 0.0
		for i := lo; i < up; i++ {
			if m := cmplx.Abs(half[i]); m > peak {
				peak = m
			}
		}
		db := SilenceDB
		if peak > 0 {
			db = 20 * math.Log10(peak/fullScale)
		}
		out[b] = dbToUnit(db)
	}
}

// bandEdges returns n+1 frequencies spaced evenly on a log scale.
func bandEdges(n int, lo, hi float64) []float64 {
	edges := make([]float64, n+1)
	ratio := hi / lo
	for i := range edges {
		edges[i] = lo * math.Pow(ratio, float64(i)/float64(n))
	}
	return edges
}

// applyHannWindow applies a Hann window to the audio samples
func applyHannWindow(samples []float32) []float32 {
	windowedSamples := make([]float32, len(samples))
	for i, sample := range samples {
		// Hann window coefficient
		windowCoeff := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(len(samples)-1)))
		windowedSamples[i] = sample * float32(windowCoeff)
	}
	return windowedSamples
}
