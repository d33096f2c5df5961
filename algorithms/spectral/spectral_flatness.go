package spectral

import (
	"math"
)

// SpectralFlatness computes spectral flatness (Wiener entropy)
type SpectralFlatness struct {
	minThreshold float64 // Floor applied before taking logs
}

// NewSpectralFlatness creates a new spectral flatness calculator
func NewSpectralFlatness() *SpectralFlatness {
	return &SpectralFlatness{
		minThreshold: 1e-10,
	}
}

// Compute calculates spectral flatness for a single magnitude spectrum.
// Returns ratio of geometric mean to arithmetic mean (0-1 range).
// Tonal content sits near 0, white noise near 1.
func (sf *SpectralFlatness) Compute(magnitudeSpectrum []float64) float64 {
	if len(magnitudeSpectrum) == 0 {
		return 0.0
	}

	logSum := 0.0
	arithmeticMean := 0.0
	for _, magnitude := range magnitudeSpectrum {
		logSum += math.Log(max(magnitude, sf.minThreshold))
		arithmeticMean += magnitude
	}
	arithmeticMean /= float64(len(magnitudeSpectrum))

	if arithmeticMean <= sf.minThreshold {
		return 0.0
	}

	geometricMean := math.Exp(logSum / float64(len(magnitudeSpectrum)))

	return min(geometricMean/arithmeticMean, 1.0)
}
