package spectral

// DefaultRolloffThreshold is the energy fraction used for spectral_rolloff.
const DefaultRolloffThreshold = 0.85

// SpectralRolloff computes spectral rolloff frequency
type SpectralRolloff struct {
	threshold float64
}

// NewSpectralRolloff creates a rolloff calculator for the given energy
// fraction (typically 0.85).
func NewSpectralRolloff(threshold float64) *SpectralRolloff {
	return &SpectralRolloff{threshold: threshold}
}

// Compute returns the frequency below which threshold of the spectral energy
// lies.
func (sr *SpectralRolloff) Compute(spectrum, freqs []float64) float64 {
	n := min(len(spectrum), len(freqs))
	if n == 0 {
		return 0.0
	}

	totalEnergy := 0.0
	for _, mag := range spectrum[:n] {
		totalEnergy += mag * mag
	}

	if totalEnergy == 0 {
		return 0
	}

	targetEnergy := sr.threshold * totalEnergy
	cumulativeEnergy := 0.0

	for i := range n {
		cumulativeEnergy += spectrum[i] * spectrum[i]
		if cumulativeEnergy >= targetEnergy {
			return freqs[i]
		}
	}

	return freqs[n-1]
}
