package spectral

import (
	"fmt"
	"math"
)

// MFCC computes Mel-Frequency Cepstral Coefficients from a magnitude
// spectrum and its bin frequencies.
type MFCC struct {
	params MFCCParams

	melScale   *MelScale
	filterBank [][]float64
	bankBins   int
	dctMatrix  [][]float64
}

// MFCCParams contains parameters for MFCC computation
type MFCCParams struct {
	NumCoefficients int     `json:"num_coefficients"` // default 13
	NumMelFilters   int     `json:"num_mel_filters"`  // default 40
	LowFreq         float64 `json:"low_freq"`         // default 0
	HighFreq        float64 `json:"high_freq"`        // default 11000, capped at Nyquist
	LogFloor        float64 `json:"log_floor"`        // default 1e-10
	LifterCoeff     float64 `json:"lifter_coeff"`     // 0 disables liftering
}

// DefaultMFCCParams returns 13 coefficients from 40 bands over 0-11 kHz.
func DefaultMFCCParams() MFCCParams {
	return MFCCParams{
		NumCoefficients: 13,
		NumMelFilters:   40,
		LowFreq:         0,
		HighFreq:        11000,
		LogFloor:        1e-10,
	}
}

// MFCCResult contains MFCC computation results
type MFCCResult struct {
	MFCC     []float64 `json:"mfcc"`      // cepstral coefficients
	MelBands []float64 `json:"mel_bands"` // band energies before the log
}

// NewMFCC creates a new MFCC computer with default parameters
func NewMFCC() *MFCC {
	return NewMFCCWithParams(DefaultMFCCParams())
}

// NewMFCCWithParams creates a new MFCC computer with custom parameters
func NewMFCCWithParams(params MFCCParams) *MFCC {
	defaults := DefaultMFCCParams()
	if params.NumCoefficients <= 0 {
		params.NumCoefficients = defaults.NumCoefficients
	}
	if params.NumMelFilters <= 0 {
		params.NumMelFilters = defaults.NumMelFilters
	}
	if params.HighFreq <= 0 {
		params.HighFreq = defaults.HighFreq
	}
	if params.LogFloor <= 0 {
		params.LogFloor = defaults.LogFloor
	}

	m := &MFCC{
		params:   params,
		melScale: NewMelScale(),
	}
	m.createDCTMatrix()
	return m
}

// Compute calculates MFCC coefficients for one spectrum. The filter bank is
// rebuilt whenever the bin count changes.
func (mfcc *MFCC) Compute(magnitudes, freqs []float64) (*MFCCResult, error) {
	if len(magnitudes) == 0 {
		return nil, fmt.Errorf("empty magnitude spectrum")
	}
	if len(freqs) != len(magnitudes) {
		return nil, fmt.Errorf("frequency bins (%d) do not match spectrum (%d)", len(freqs), len(magnitudes))
	}

	if mfcc.filterBank == nil || mfcc.bankBins != len(magnitudes) {
		if err := mfcc.initialize(freqs); err != nil {
			return nil, err
		}
	}

	powerSpectrum := make([]float64, len(magnitudes))
	for i, mag := range magnitudes {
		powerSpectrum[i] = mag * mag
	}

	bands := mfcc.melScale.ApplyFilterBank(powerSpectrum, mfcc.filterBank)

	logBands := make([]float64, len(bands))
	for i, b := range bands {
		logBands[i] = 20 * math.Log10(max(b, mfcc.params.LogFloor))
	}

	coeffs := mfcc.applyDCT(logBands)
	if mfcc.params.LifterCoeff > 0 {
		coeffs = mfcc.applyLiftering(coeffs)
	}

	return &MFCCResult{
		MFCC:     coeffs,
		MelBands: bands,
	}, nil
}

func (mfcc *MFCC) initialize(freqs []float64) error {
	nyquist := 2 * freqs[len(freqs)-1]
	if len(freqs) > 1 {
		nyquist = freqs[len(freqs)-1] + (freqs[1] - freqs[0])
	}
	high := min(mfcc.params.HighFreq, nyquist)

	bank := mfcc.melScale.WarpedFilterBank(mfcc.params.NumMelFilters, freqs, mfcc.params.LowFreq, high)
	if len(bank) == 0 {
		return fmt.Errorf("failed to create mel filter bank for %d bins up to %.1f Hz", len(freqs), high)
	}
	mfcc.filterBank = bank
	mfcc.bankBins = len(freqs)
	return nil
}

// createDCTMatrix builds an orthonormal DCT-II matrix
func (mfcc *MFCC) createDCTMatrix() {
	numCoeffs := mfcc.params.NumCoefficients
	numFilters := mfcc.params.NumMelFilters
	mfcc.dctMatrix = make([][]float64, numCoeffs)

	for k := range numCoeffs {
		mfcc.dctMatrix[k] = make([]float64, numFilters)

		scale := math.Sqrt(2.0 / float64(numFilters))
		if k == 0 {
			scale = math.Sqrt(1.0 / float64(numFilters))
		}
		for n := range numFilters {
			mfcc.dctMatrix[k][n] = scale * math.Cos(math.Pi*float64(k)*(float64(n)+0.5)/float64(numFilters))
		}
	}
}

// applyDCT applies the Discrete Cosine Transform
func (mfcc *MFCC) applyDCT(logMelSpectrum []float64) []float64 {
	mfccCoeffs := make([]float64, len(mfcc.dctMatrix))

	for k, row := range mfcc.dctMatrix {
		sum := 0.0
		for n := 0; n < len(logMelSpectrum) && n < len(row); n++ {
			sum += logMelSpectrum[n] * row[n]
		}
		mfccCoeffs[k] = sum
	}

	return mfccCoeffs
}

// applyLiftering applies sinusoidal liftering, leaving C0 untouched
func (mfcc *MFCC) applyLiftering(mfccCoeffs []float64) []float64 {
	liftered := make([]float64, len(mfccCoeffs))
	l := mfcc.params.LifterCoeff

	for i, coeff := range mfccCoeffs {
		if i == 0 {
			liftered[i] = coeff
			continue
		}
		liftered[i] = coeff * (1.0 + (l/2.0)*math.Sin(math.Pi*float64(i)/l))
	}

	return liftered
}

// Params returns the effective MFCC parameters
func (mfcc *MFCC) Params() MFCCParams {
	return mfcc.params
}
