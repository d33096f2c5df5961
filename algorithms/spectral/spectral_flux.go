package spectral

import (
	"math"
)

// SpectralFlux measures spectral change between consecutive frames.
type SpectralFlux struct {
	halfRectify bool
}

// NewSpectralFlux creates a flux calculator. With halfRectify only energy
// increases contribute.
func NewSpectralFlux(halfRectify bool) *SpectralFlux {
	return &SpectralFlux{halfRectify: halfRectify}
}

// ComputePair returns the L2 norm of current-previous. A nil previous frame
// stands for silence, so the first frame's flux is its own L2 norm.
func (sf *SpectralFlux) ComputePair(previous, current []float64) float64 {
	sum := 0.0
	for f, mag := range current {
		prev := 0.0
		if f < len(previous) {
			prev = previous[f]
		}
		diff := mag - prev
		if sf.halfRectify && diff < 0 {
			continue
		}
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

// Compute calculates spectral flux for every frame of a spectrogram after the
// first.
func (sf *SpectralFlux) Compute(spectrogram [][]float64) []float64 {
	if len(spectrogram) < 2 {
		return []float64{}
	}

	flux := make([]float64, len(spectrogram)-1)
	for t := 1; t < len(spectrogram); t++ {
		flux[t-1] = sf.ComputePair(spectrogram[t-1], spectrogram[t])
	}
	return flux
}
