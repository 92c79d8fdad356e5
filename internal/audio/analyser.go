package audio

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Analyser defaults match a browser analyser node
const (
	DefaultFFTSize   = 512
	DefaultSmoothing = 0.1
	DefaultMinDB     = -100.0
	DefaultMaxDB     = -30.0
)

// Analyser produces byte frequency data the way a web audio analyser node
// does: Blackman window, FFT, magnitude scaled by 1/N, exponential smoothing
// over time, conversion to decibels and mapping of [minDB, maxDB] onto 0..255.
// It is not safe for concurrent use.
type Analyser struct {
	fftSize   int
	smoothing float64
	minDB     float64
	maxDB     float64

	fft      *fourier.FFT
	window   []float64
	frame    []float64
	coeffs   []complex128
	smoothed []float64
	out      []uint8
}

// NewAnalyser creates an analyser. fftSize must be a power of two; other
// values fall back to DefaultFFTSize.
func NewAnalyser(fftSize int, smoothing float64) *Analyser {
	if fftSize < 32 || fftSize&(fftSize-1) != 0 {
		fftSize = DefaultFFTSize
	}
	if smoothing < 0 || smoothing >= 1 {
		smoothing = DefaultSmoothing
	}

	return &Analyser{
		fftSize:   fftSize,
		smoothing: smoothing,
		minDB:     DefaultMinDB,
		maxDB:     DefaultMaxDB,
		fft:       fourier.NewFFT(fftSize),
		window:    blackman(fftSize),
		frame:     make([]float64, fftSize),
		coeffs:    make([]complex128, fftSize/2+1),
		smoothed:  make([]float64, fftSize/2),
		out:       make([]uint8, fftSize/2),
	}
}

// BinCount returns the number of frequency bins, half the FFT size
func (a *Analyser) BinCount() int {
	return a.fftSize / 2
}

// Reset clears the smoothing history
func (a *Analyser) Reset() {
	for i := range a.smoothed {
		a.smoothed[i] = 0
	}
}

// ByteFrequencyData analyses the fftSize samples ending just before end.
// Positions outside samples read as silence. The returned slice is reused by
// the next call.
func (a *Analyser) ByteFrequencyData(samples []float64, end int) []uint8 {
	start := end - a.fftSize
	for i := range a.frame {
		idx := start + i
		v := 0.0
		if idx >= 0 && idx < len(samples) {
			v = samples[idx]
		}
		a.frame[i] = v * a.window[i]
	}

	a.coeffs = a.fft.Coefficients(a.coeffs, a.frame)

	scale := 1.0 / float64(a.fftSize)
	rangeScale := 255.0 / (a.maxDB - a.minDB)
	for k := range a.out {
		magnitude := cmplx.Abs(a.coeffs[k]) * scale
		a.smoothed[k] = a.smoothing*a.smoothed[k] + (1-a.smoothing)*magnitude

		db := 20 * math.Log10(a.smoothed[k])
		scaled := (db - a.minDB) * rangeScale
		switch {
		case math.IsNaN(scaled) || scaled <= 0:
			a.out[k] = 0
		case scaled >= 255:
			a.out[k] = 255
		default:
			a.out[k] = uint8(scaled)
		}
	}
	return a.out
}

func blackman(n int) []float64 {
	const (
		alpha = 0.16
		a0    = 0.5 * (1 - alpha)
		a1    = 0.5
		a2    = 0.5 * alpha
	)
	w := make([]float64, n)
	for i := range w {
		x := float64(i) / float64(n)
		w[i] = a0 - a1*math.Cos(2*math.Pi*x) + a2*math.Cos(4*math.Pi*x)
	}
	return w
}
