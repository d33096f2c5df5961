package spectral

import "gonum.org/v1/gonum/floats"

// SpectralCrest computes the ratio of the spectral peak to the mean magnitude.
type SpectralCrest struct{}

// NewSpectralCrest creates a new spectral crest calculator
func NewSpectralCrest() *SpectralCrest {
	return &SpectralCrest{}
}

// Compute returns max/mean of the magnitudes, or 0 for an empty or silent
// spectrum.
func (sc *SpectralCrest) Compute(spectrum []float64) float64 {
	if len(spectrum) == 0 {
		return 0
	}

	mean := floats.Sum(spectrum) / float64(len(spectrum))
	if mean == 0 {
		return 0
	}

	return floats.Max(spectrum) / mean
}

// ComputeFrames processes multiple frames efficiently
func (sc *SpectralCrest) ComputeFrames(spectrogram [][]float64) []float64 {
	crests := make([]float64, len(spectrogram))
	for t, spectrum := range spectrogram {
		crests[t] = sc.Compute(spectrum)
	}
	return crests
}
