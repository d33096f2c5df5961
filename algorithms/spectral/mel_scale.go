package spectral

import (
	"math"
)

// MelScale provides mel frequency conversion and filter bank construction.
// Two flavours are used: the HTK formula for MFCC band edges and the Slaney
// (linear below 1 kHz, logarithmic above) scale for mel spectrograms.
type MelScale struct{}

// NewMelScale creates a new mel scale converter
func NewMelScale() *MelScale {
	return &MelScale{}
}

// HzToMel converts frequency in Hz to the HTK mel scale
func (ms *MelScale) HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts HTK mel back to Hz
func (ms *MelScale) MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

const (
	slaneyFSp       = 200.0 / 3
	slaneyMinLogHz  = 1000.0
	slaneyMinLogMel = slaneyMinLogHz / slaneyFSp
)

var slaneyLogStep = math.Log(6.4) / 27.0

// HzToMelSlaney converts Hz to the Slaney mel scale.
func (ms *MelScale) HzToMelSlaney(hz float64) float64 {
	if hz < slaneyMinLogHz {
		return hz / slaneyFSp
	}
	return slaneyMinLogMel + math.Log(hz/slaneyMinLogHz)/slaneyLogStep
}

// MelToHzSlaney converts Slaney mel to Hz.
func (ms *MelScale) MelToHzSlaney(mel float64) float64 {
	if mel < slaneyMinLogMel {
		return mel * slaneyFSp
	}
	return slaneyMinLogHz * math.Exp(slaneyLogStep*(mel-slaneyMinLogMel))
}

// SlaneyFilterBank builds numFilters triangular filters over the fftSize/2+1
// STFT bins, spaced on the Slaney scale and area-normalized (2/bandwidth).
func (ms *MelScale) SlaneyFilterBank(numFilters, fftSize, sampleRate int, lowFreq, highFreq float64) [][]float64 {
	if numFilters <= 0 || fftSize <= 0 {
		return nil
	}
	numBins := fftSize/2 + 1

	fftFreqs := make([]float64, numBins)
	for k := range fftFreqs {
		fftFreqs[k] = float64(k) * float64(sampleRate) / float64(fftSize)
	}

	lowMel := ms.HzToMelSlaney(lowFreq)
	highMel := ms.HzToMelSlaney(highFreq)
	edges := make([]float64, numFilters+2)
	for i := range edges {
		edges[i] = ms.MelToHzSlaney(lowMel + float64(i)*(highMel-lowMel)/float64(numFilters+1))
	}

	filterBank := make([][]float64, numFilters)
	for m := range numFilters {
		filter := make([]float64, numBins)
		left, center, right := edges[m], edges[m+1], edges[m+2]
		enorm := 2.0 / (right - left)
		for k, f := range fftFreqs {
			lower := (f - left) / (center - left)
			upper := (right - f) / (right - center)
			filter[k] = max(0, min(lower, upper)) * enorm
		}
		filterBank[m] = filter
	}
	return filterBank
}

// WarpedFilterBank builds numFilters triangles whose edges are equally spaced
// on the HTK mel scale and whose weights are evaluated in the mel domain at
// each entry of freqs. Every non-empty filter is scaled to sum to 1.
func (ms *MelScale) WarpedFilterBank(numFilters int, freqs []float64, lowFreq, highFreq float64) [][]float64 {
	if numFilters <= 0 || len(freqs) == 0 || highFreq <= lowFreq {
		return nil
	}

	lowMel := ms.HzToMel(lowFreq)
	highMel := ms.HzToMel(highFreq)
	edges := make([]float64, numFilters+2)
	step := (highMel - lowMel) / float64(numFilters+1)
	for i := range edges {
		edges[i] = lowMel + float64(i)*step
	}

	binMels := make([]float64, len(freqs))
	for k, f := range freqs {
		binMels[k] = ms.HzToMel(f)
	}

	filterBank := make([][]float64, numFilters)
	for m := range numFilters {
		filter := make([]float64, len(freqs))
		left, center, right := edges[m], edges[m+1], edges[m+2]
		sum := 0.0
		for k, mel := range binMels {
			var w float64
			switch {
			case mel > left && mel <= center:
				w = (mel - left) / (center - left)
			case mel > center && mel < right:
				w = (right - mel) / (right - center)
			}
			filter[k] = w
			sum += w
		}
		if sum > 0 {
			for k := range filter {
				filter[k] /= sum
			}
		}
		filterBank[m] = filter
	}
	return filterBank
}

// ApplyFilterBank applies mel filter bank to power spectrum
func (ms *MelScale) ApplyFilterBank(powerSpectrum []float64, filterBank [][]float64) []float64 {
	if len(filterBank) == 0 || len(powerSpectrum) == 0 {
		return []float64{}
	}

	melSpectrum := make([]float64, len(filterBank))

	for i, filter := range filterBank {
		sum := 0.0
		for j := 0; j < len(filter) && j < len(powerSpectrum); j++ {
			sum += powerSpectrum[j] * filter[j]
		}
		melSpectrum[i] = sum
	}

	return melSpectrum
}

// PowerToDB converts power values to decibels relative to ref, flooring at
// amin and clipping everything more than topDB below the maximum. topDB <= 0
// disables clipping.
func PowerToDB(power [][]float64, ref, amin, topDB float64) [][]float64 {
	refDB := 10 * math.Log10(max(amin, ref))
	maxDB := math.Inf(-1)

	out := make([][]float64, len(power))
	for t, frame := range power {
		row := make([]float64, len(frame))
		for k, p := range frame {
			row[k] = 10*math.Log10(max(amin, p)) - refDB
			maxDB = max(maxDB, row[k])
		}
		out[t] = row
	}

	if topDB > 0 && !math.IsInf(maxDB, -1) {
		floor := maxDB - topDB
		for _, row := range out {
			for k := range row {
				row[k] = max(row[k], floor)
			}
		}
	}
	return out
}
