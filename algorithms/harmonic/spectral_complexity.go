package harmonic

const (
	DefaultComplexityThreshold = 0.005
	DefaultComplexityMaxPeaks  = 100
)

// SpectralComplexity counts the spectral peaks above a magnitude threshold.
type SpectralComplexity struct {
	peaks *SpectralPeaks
}

// NewSpectralComplexity creates a counter that reports at most maxPeaks.
func NewSpectralComplexity(threshold float64, maxPeaks int) *SpectralComplexity {
	return &SpectralComplexity{
		peaks: NewSpectralPeaks(PeakParams{
			MagnitudeThreshold: threshold,
			MaxPeaks:           maxPeaks,
			OrderBy:            OrderByMagnitude,
		}),
	}
}

// Compute returns the number of peaks as a float64 so it can sit alongside
// the other scalar descriptors.
func (sc *SpectralComplexity) Compute(magnitudes, freqs []float64) float64 {
	return float64(len(sc.peaks.DetectPeaks(magnitudes, freqs)))
}
