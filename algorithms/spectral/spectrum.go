package spectral

import (
	"fmt"

	"github.com/RyanBlaney/trackiq/algorithms/windowing"
)

// Spectrum is one magnitude spectrum with the frequency of each bin.
type Spectrum struct {
	Magnitudes  []float64
	Frequencies []float64
	SampleRate  int
}

// Len returns the number of bins.
func (s *Spectrum) Len() int { return len(s.Magnitudes) }

// LinearFrequencies spaces n bins evenly over [0, sampleRate/2) so bin i sits
// at i*(sampleRate/2)/n.
func LinearFrequencies(n, sampleRate int) []float64 {
	freqs := make([]float64, n)
	if n == 0 {
		return freqs
	}
	step := float64(sampleRate) / 2 / float64(n)
	for i := range freqs {
		freqs[i] = float64(i) * step
	}
	return freqs
}

// AnalysisWindow copies size samples centred on the middle of signal. Short
// signals are zero-padded at the end.
func AnalysisWindow(signal []float64, size int) []float64 {
	frame := make([]float64, size)
	if len(signal) <= size {
		copy(frame, signal)
		return frame
	}
	start := (len(signal) - size) / 2
	copy(frame, signal[start:start+size])
	return frame
}

// SpectrumAnalyzer computes the single-window magnitude spectrum used by the
// scalar spectral descriptors.
type SpectrumAnalyzer struct {
	windowSize int
	window     *windowing.Hann
	fft        *FFT
}

// NewSpectrumAnalyzer builds an analyzer with a normalized symmetric Hann window.
func NewSpectrumAnalyzer(windowSize int) *SpectrumAnalyzer {
	return &SpectrumAnalyzer{
		windowSize: windowSize,
		window:     windowing.NewNormalizedHann(windowSize),
		fft:        NewFFT(),
	}
}

// Compute windows one analysis frame of signal and returns its spectrum.
func (sa *SpectrumAnalyzer) Compute(signal []float64, sampleRate int) (*Spectrum, error) {
	if sa.windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive: %d", sampleRate)
	}

	frame := AnalysisWindow(signal, sa.windowSize)
	if err := sa.window.ApplyInPlace(frame); err != nil {
		return nil, err
	}

	mags := sa.fft.Magnitude(frame)
	return &Spectrum{
		Magnitudes:  mags,
		Frequencies: LinearFrequencies(len(mags), sampleRate),
		SampleRate:  sampleRate,
	}, nil
}
