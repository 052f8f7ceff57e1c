package audio

import (
	"math"

	fft "github.com/mjibson/go-dsp/fft"
)

const (
	// FFTSize is the number of samples analyzed at once, giving FFTSize/2 bins.
	FFTSize     = 2048
	minDecibels = -100.0
	maxDecibels = -30.0
)

// Spectrum is one analysis of a block of mono samples.
type Spectrum struct {
	// Bins are smoothed magnitudes scaled from [minDecibels, maxDecibels]
	// to [0, 1].
	Bins []float32
	// RMS and Peak are levels in dBFS. Silence is -Inf.
	RMS  float64
	Peak float64
}

// Meter analyzes consecutive blocks with temporal smoothing of the bins.
type Meter struct {
	smoothing float64
	window    []float64
	lastFFT   []float64
}

// NewMeter creates a meter. smoothing is in [0, 1); 0.8 is the usual value.
func NewMeter(smoothing float64) *Meter {
	lastFFT := make([]float64, FFTSize/2)
	for i := range lastFFT {
		lastFFT[i] = minDecibels
	}
	return &Meter{
		smoothing: smoothing,
		window:    blackmanWindow(FFTSize),
		lastFFT:   lastFFT,
	}
}

// Analyze runs one FFT over the last FFTSize samples, zero padded at the
// front when fewer are given.
func (m *Meter) Analyze(samples []float32) Spectrum {
	var sp Spectrum
	sp.RMS, sp.Peak = Levels(samples)

	if len(samples) > FFTSize {
		samples = samples[len(samples)-FFTSize:]
	}
	offset := FFTSize - len(samples)
	samples64 := make([]float64, FFTSize)
	for i, s := range samples {
		samples64[offset+i] = float64(s) * m.window[offset+i]
	}

	fftResult := fft.FFTReal(samples64)

	sp.Bins = make([]float32, FFTSize/2)
	for i := range sp.Bins {
		re := real(fftResult[i])
		im := imag(fftResult[i])
		magnitude := math.Sqrt(re*re+im*im) * (2.0 / float64(FFTSize))
		db := 20 * math.Log10(magnitude+1e-9)

		m.lastFFT[i] = (m.smoothing * m.lastFFT[i]) + ((1.0 - m.smoothing) * db)
		smoothedDb := m.lastFFT[i]

		switch {
		case smoothedDb < minDecibels:
			sp.Bins[i] = 0
		case smoothedDb > maxDecibels:
			sp.Bins[i] = 1
		default:
			sp.Bins[i] = float32((smoothedDb - minDecibels) / (maxDecibels - minDecibels))
		}
	}
	return sp
}

// Levels returns the RMS and peak level of samples in dBFS.
func Levels(samples []float32) (rms, peak float64) {
	if len(samples) == 0 {
		return math.Inf(-1), math.Inf(-1)
	}
	var sum, pk float64
	for _, s := range samples {
		v := float64(s)
		sum += v * v
		if a := math.Abs(v); a > pk {
			pk = a
		}
	}
	return toDB(math.Sqrt(sum / float64(len(samples)))), toDB(pk)
}

func toDB(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}

// blackmanWindow generates a Blackman window, as used by Shadertoy.
func blackmanWindow(size int) []float64 {
	window := make([]float64, size)
	a0 := 0.42
	a1 := 0.5
	a2 := 0.08
	invSize := 1.0 / float64(size-1)
	for i := range window {
		t := float64(i) * invSize
		window[i] = a0 - (a1 * math.Cos(2*math.Pi*t)) + (a2 * math.Cos(4*math.Pi*t))
	}
	return window
}
