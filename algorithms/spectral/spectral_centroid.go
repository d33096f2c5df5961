package spectral

// SpectralCentroid computes the magnitude-weighted mean frequency of a spectrum.
type SpectralCentroid struct{}

// NewSpectralCentroid creates a new spectral centroid calculator
func NewSpectralCentroid() *SpectralCentroid {
	return &SpectralCentroid{}
}

// Compute returns the centroid in the units of freqs. A spectrum with no
// energy has a centroid of 0.
func (sc *SpectralCentroid) Compute(spectrum, freqs []float64) float64 {
	n := min(len(spectrum), len(freqs))
	if n == 0 {
		return 0.0
	}

	numerator := 0.0
	denominator := 0.0

	for i := range n {
		numerator += freqs[i] * spectrum[i]
		denominator += spectrum[i]
	}

	if denominator == 0 {
		return 0
	}

	return numerator / denominator
}

// ComputeFrames applies Compute to every frame of a spectrogram.
func (sc *SpectralCentroid) ComputeFrames(spectrogram [][]float64, freqs []float64) []float64 {
	centroids := make([]float64, len(spectrogram))
	for t, spectrum := range spectrogram {
		centroids[t] = sc.Compute(spectrum, freqs)
	}
	return centroids
}
