package chroma

import (
	"math"

	"github.com/RyanBlaney/trackiq/algorithms/common"
	"github.com/RyanBlaney/trackiq/algorithms/harmonic"
)

// WeightType selects how a peak spreads over neighbouring HPCP bins.
type WeightType string

const (
	WeightNone          WeightType = "none"
	WeightCosine        WeightType = "cosine"
	WeightSquaredCosine WeightType = "squared_cosine"
)

// HPCPParams holds parameters for HPCP computation
type HPCPParams struct {
	Size          int        `json:"size"`           // Size of output HPCP vector (12, 24, 36)
	ReferenceFreq float64    `json:"reference_freq"` // Reference frequency for A4 (440 Hz)
	WeightType    WeightType `json:"weight_type"`
	WindowSize    float64    `json:"window_size"` // Window size in semitones (default 1.0)
	BandPreset    bool       `json:"band_preset"` // normalize low and high bands separately
	SplitFreq     float64    `json:"split_freq"`  // Split frequency for band preset
	MinFreq       float64    `json:"min_freq"`
	MaxFreq       float64    `json:"max_freq"`
	NonLinear     bool       `json:"non_linear"`
	Normalized    bool       `json:"normalized"` // unit-max output
}

// DefaultHPCPParams returns a 36-bin profile over 40-5000 Hz.
func DefaultHPCPParams() HPCPParams {
	return HPCPParams{
		Size:          36,
		ReferenceFreq: 440.0,
		WeightType:    WeightSquaredCosine,
		WindowSize:    1.0,
		BandPreset:    true,
		SplitFreq:     500.0,
		MinFreq:       40.0,
		MaxFreq:       5000.0,
		NonLinear:     false,
		Normalized:    true,
	}
}

// HPCPResult contains the result of HPCP computation
type HPCPResult struct {
	HPCP       []float64 `json:"hpcp"`       // bin 0 is C
	Size       int       `json:"size"`       // Size of HPCP vector
	Resolution float64   `json:"resolution"` // semitones per bin
	RefFreq    float64   `json:"ref_freq"`
	Mean       float64   `json:"mean"`
}

// HPCP computes Harmonic Pitch Class Profile from spectral peaks
type HPCP struct {
	params HPCPParams
	peaks  *harmonic.SpectralPeaks
}

// NewHPCP creates a new HPCP analyzer with default parameters
func NewHPCP() *HPCP {
	return NewHPCPWithParams(DefaultHPCPParams())
}

// NewHPCPWithParams creates a new HPCP analyzer with custom parameters
func NewHPCPWithParams(params HPCPParams) *HPCP {
	if params.Size <= 0 {
		params.Size = 36
	}
	if params.ReferenceFreq <= 0 {
		params.ReferenceFreq = 440.0
	}
	if params.WindowSize <= 0 {
		params.WindowSize = 1.0
	}
	return &HPCP{
		params: params,
		peaks: harmonic.NewSpectralPeaks(harmonic.PeakParams{
			MaxFrequency: params.MaxFreq,
			MaxPeaks:     100,
			OrderBy:      harmonic.OrderByFrequency,
			Interpolate:  true,
		}),
	}
}

// ComputeFromSpectrum detects peaks in a magnitude spectrum whose bin
// frequencies are freqs and profiles them.
func (h *HPCP) ComputeFromSpectrum(magnitudes, freqs []float64) HPCPResult {
	return h.ComputeFromSpectralPeaks(h.peaks.DetectPeaks(magnitudes, freqs))
}

// ComputeFromSpectralPeaks computes HPCP from spectral peaks
func (h *HPCP) ComputeFromSpectralPeaks(peaks []harmonic.SpectralPeak) HPCPResult {
	p := h.params
	low := make([]float64, p.Size)
	high := make([]float64, p.Size)

	for _, peak := range peaks {
		if peak.Frequency < p.MinFreq || peak.Frequency > p.MaxFreq || peak.Magnitude <= 0 {
			continue
		}
		target := low
		if p.BandPreset && peak.Frequency >= p.SplitFreq {
			target = high
		}
		h.addPeakContribution(target, peak)
	}

	hpcp := low
	if p.BandPreset {
		unitMax(low)
		unitMax(high)
		for i := range hpcp {
			hpcp[i] += high[i]
		}
	}

	if p.NonLinear {
		applyNonLinearTransform(hpcp)
	}
	if p.Normalized {
		unitMax(hpcp)
	}

	return HPCPResult{
		HPCP:       hpcp,
		Size:       p.Size,
		Resolution: 12.0 / float64(p.Size),
		RefFreq:    p.ReferenceFreq,
		Mean:       common.Mean(hpcp),
	}
}

// frequencyToBin maps a frequency to a fractional HPCP bin with C at 0.
func (h *HPCP) frequencyToBin(freq float64) float64 {
	size := float64(h.params.Size)
	semitonesFromA := 12 * math.Log2(freq/h.params.ReferenceFreq)
	return floorMod((semitonesFromA+9)*size/12, size)
}

// addPeakContribution spreads the squared peak magnitude over the bins
// within half a window of the peak.
func (h *HPCP) addPeakContribution(hpcp []float64, peak harmonic.SpectralPeak) {
	size := h.params.Size
	center := h.frequencyToBin(peak.Frequency)
	windowBins := h.params.WindowSize * float64(size) / 12
	energy := peak.Magnitude * peak.Magnitude

	startBin := int(math.Ceil(center - windowBins/2))
	endBin := int(math.Floor(center + windowBins/2))
	for bin := startBin; bin <= endBin; bin++ {
		distance := math.Abs(float64(bin) - center)
		if distance > windowBins/2 {
			continue
		}
		wrapped := ((bin % size) + size) % size
		hpcp[wrapped] += energy * h.windowWeight(distance, windowBins)
	}
}

// windowWeight is 1 at the peak and reaches 0 at half a window away
func (h *HPCP) windowWeight(distance, windowBins float64) float64 {
	angle := math.Pi * distance / windowBins
	switch h.params.WeightType {
	case WeightCosine:
		return math.Max(0, math.Cos(angle))
	case WeightSquaredCosine:
		c := math.Max(0, math.Cos(angle))
		return c * c
	default:
		return 1.0
	}
}

func applyNonLinearTransform(hpcp []float64) {
	for i, v := range hpcp {
		if v > 0 {
			s := math.Sin(v * math.Pi * 0.5)
			hpcp[i] = s * s
		}
	}
}

func unitMax(values []float64) {
	peak := 0.0
	for _, v := range values {
		peak = max(peak, v)
	}
	if peak <= 0 {
		return
	}
	for i := range values {
		values[i] /= peak
	}
}

// GetParams returns the parameters in use.
func (h *HPCP) GetParams() HPCPParams {
	return h.params
}
