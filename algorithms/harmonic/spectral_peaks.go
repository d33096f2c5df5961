package harmonic

import (
	"math"
	"sort"
)

// SpectralPeak represents a detected spectral peak
type SpectralPeak struct {
	Frequency float64 // Peak frequency in Hz
	Magnitude float64 // Peak magnitude
	BinIndex  int     // Original FFT bin index
}

// PeakOrder selects the order of the returned peaks.
type PeakOrder int

const (
	OrderByMagnitude PeakOrder = iota
	OrderByFrequency
)

// PeakParams configures SpectralPeaks.
type PeakParams struct {
	MinFrequency       float64
	MaxFrequency       float64 // zero means no upper bound
	MagnitudeThreshold float64 // peaks must be strictly above this
	MaxPeaks           int
	OrderBy            PeakOrder
	Interpolate        bool
}

// SpectralPeaks finds local maxima of a magnitude spectrum.
type SpectralPeaks struct {
	params PeakParams
}

// NewSpectralPeaks creates a new spectral peaks analyzer
func NewSpectralPeaks(params PeakParams) *SpectralPeaks {
	if params.MaxPeaks <= 0 {
		params.MaxPeaks = 100
	}
	return &SpectralPeaks{params: params}
}

// DetectPeaks returns the peaks of magnitudes whose frequency lies in the
// configured range. freqs must be evenly spaced and as long as magnitudes.
// When more than MaxPeaks are found the loudest are kept.
func (sp *SpectralPeaks) DetectPeaks(magnitudes, freqs []float64) []SpectralPeak {
	n := min(len(magnitudes), len(freqs))
	if n == 0 {
		return []SpectralPeak{}
	}
	p := sp.params

	lo, hi := 0, n-1
	for lo < n && freqs[lo] < p.MinFrequency {
		lo++
	}
	if p.MaxFrequency > 0 {
		for hi >= 0 && freqs[hi] > p.MaxFrequency {
			hi--
		}
	}
	if lo > hi {
		return []SpectralPeak{}
	}

	binWidth := 0.0
	if n > 1 {
		binWidth = freqs[1] - freqs[0]
	}

	var peaks []SpectralPeak
	for i := lo; i <= hi; i++ {
		m := magnitudes[i]
		if m <= p.MagnitudeThreshold {
			continue
		}
		risesFromLeft := i == lo || m > magnitudes[i-1]
		fallsToRight := i == hi || m >= magnitudes[i+1]
		if !risesFromLeft || !fallsToRight {
			continue
		}
		// flat tops report the first bin only
		if i < hi && m == magnitudes[i+1] {
			j := i + 1
			for j < hi && magnitudes[j] == m {
				j++
			}
			if magnitudes[j] > m {
				continue
			}
		}

		peak := SpectralPeak{
			Frequency: freqs[i],
			Magnitude: m,
			BinIndex:  i,
		}
		if p.Interpolate {
			peak = refine(magnitudes, peak, binWidth)
		}
		peaks = append(peaks, peak)
	}

	sort.SliceStable(peaks, func(i, j int) bool {
		return peaks[i].Magnitude > peaks[j].Magnitude
	})
	if len(peaks) > p.MaxPeaks {
		peaks = peaks[:p.MaxPeaks]
	}
	if p.OrderBy == OrderByFrequency {
		sort.Slice(peaks, func(i, j int) bool {
			return peaks[i].Frequency < peaks[j].Frequency
		})
	}

	return peaks
}

// refine moves a peak to the vertex of the parabola through its bin and
// both neighbours.
func refine(magnitudes []float64, peak SpectralPeak, binWidth float64) SpectralPeak {
	binIdx := peak.BinIndex
	if binIdx <= 0 || binIdx >= len(magnitudes)-1 {
		return peak
	}

	y1 := magnitudes[binIdx-1]
	y2 := magnitudes[binIdx]
	y3 := magnitudes[binIdx+1]

	denom := 2.0 * (2.0*y2 - y1 - y3)
	if math.Abs(denom) <= 1e-10 {
		return peak
	}
	offset := (y3 - y1) / denom

	a := 0.5 * (y1 - 2.0*y2 + y3)
	b := 0.5 * (y3 - y1)

	peak.Frequency += offset * binWidth
	peak.Magnitude = y2 + a*offset*offset + b*offset
	return peak
}
