package chroma

import (
	"math"
	"testing"

	"github.com/RyanBlaney/trackiq/algorithms/harmonic"
	"github.com/RyanBlaney/trackiq/algorithms/spectral"
)

func sine(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func argmax(values []float64) int {
	best := 0
	for i, v := range values {
		if v > values[best] {
			best = i
		}
	}
	return best
}

func TestFilterBankShape(t *testing.T) {
	bank := FilterBank(22050, 2048, 12, 440)
	if len(bank) != 12 || len(bank[0]) != 1025 {
		t.Fatalf("bank shape = %dx%d, want 12x1025", len(bank), len(bank[0]))
	}
	for c, row := range bank {
		for k, w := range row {
			if w < 0 || math.IsNaN(w) {
				t.Fatalf("weight[%d][%d] = %f", c, k, w)
			}
		}
	}
}

func TestChromaSTFTFindsA(t *testing.T) {
	const sr = 22050
	cs := NewChromaSTFTDefault(sr)

	chromagram, err := cs.ComputeChroma(sine(440, sr, sr))
	if err != nil {
		t.Fatalf("ComputeChroma failed: %v", err)
	}
	if len(chromagram) != 1+sr/512 {
		t.Fatalf("frames = %d, want %d", len(chromagram), 1+sr/512)
	}

	dominant := cs.GetDominantChroma(chromagram)
	mid := chromagram[len(chromagram)/2]
	if got := dominant[len(dominant)/2]; got != 9 {
		t.Fatalf("dominant class = %s, want A", cs.GetChromaLabels()[got])
	}
	if mid[9] != 1 {
		t.Fatalf("frame not max-normalized: peak = %f", mid[9])
	}

	mean, err := cs.Mean(sine(440, sr, sr))
	if err != nil {
		t.Fatalf("Mean failed: %v", err)
	}
	if mean <= 0 || mean > 1 {
		t.Fatalf("mean chroma = %f, want in (0, 1]", mean)
	}
}

func TestChromaSTFTSilence(t *testing.T) {
	mean, err := NewChromaSTFTDefault(22050).Mean(make([]float64, 4096))
	if err != nil {
		t.Fatalf("Mean failed: %v", err)
	}
	if mean != 0 {
		t.Fatalf("silent chroma = %f, want 0", mean)
	}

	if _, err := NewChromaSTFTDefault(22050).ComputeChroma(nil); err == nil {
		t.Fatal("expected error for empty signal")
	}
}

func TestChromaFromSharedSTFT(t *testing.T) {
	const sr = 22050
	signal := sine(523.25, sr, sr)
	for i, v := range sine(659.25, sr, sr) {
		signal[i] += v
	}
	cs := NewChromaSTFTDefault(sr)

	want, err := cs.Mean(signal)
	if err != nil {
		t.Fatalf("Mean failed: %v", err)
	}
	stft, err := spectral.NewSTFT().ComputeCentered(signal, 2048, 512, sr)
	if err != nil {
		t.Fatalf("ComputeCentered failed: %v", err)
	}
	got, err := cs.MeanFromSTFT(stft)
	if err != nil {
		t.Fatalf("MeanFromSTFT failed: %v", err)
	}
	if got != want {
		t.Fatalf("shared STFT mean = %g, want %g", got, want)
	}

	other, err := spectral.NewSTFT().ComputeCentered(signal, 2048, 512, 44100)
	if err != nil {
		t.Fatalf("ComputeCentered failed: %v", err)
	}
	if _, err := cs.MeanFromSTFT(other); err == nil {
		t.Fatal("expected error for sample rate mismatch")
	}
}

func TestHPCPFromPeaks(t *testing.T) {
	h := NewHPCP()
	if p := h.GetParams(); p.Size != 36 || p.ReferenceFreq != 440 || !p.BandPreset {
		t.Fatalf("unexpected default params %+v", p)
	}
	res := h.ComputeFromSpectralPeaks([]harmonic.SpectralPeak{{Frequency: 440, Magnitude: 1}})
	if res.Size != 36 || len(res.HPCP) != 36 {
		t.Fatalf("size = %d", res.Size)
	}
	if got := argmax(res.HPCP); got != 27 {
		t.Fatalf("A4 landed in bin %d, want 27", got)
	}
	if res.HPCP[27] != 1 {
		t.Fatalf("peak bin = %f, want 1 after normalization", res.HPCP[27])
	}

	c := h.ComputeFromSpectralPeaks([]harmonic.SpectralPeak{{Frequency: 261.6255653, Magnitude: 1}})
	if got := argmax(c.HPCP); got != 0 {
		t.Fatalf("C4 landed in bin %d, want 0", got)
	}

	outside := h.ComputeFromSpectralPeaks([]harmonic.SpectralPeak{{Frequency: 20, Magnitude: 1}, {Frequency: 8000, Magnitude: 1}})
	if outside.Mean != 0 {
		t.Fatalf("peaks outside 40-5000 Hz contributed: mean = %f", outside.Mean)
	}
}

func TestHPCPBandPresetNormalizesBandsSeparately(t *testing.T) {
	res := NewHPCP().ComputeFromSpectralPeaks([]harmonic.SpectralPeak{
		{Frequency: 440, Magnitude: 1},
		{Frequency: 1046.502, Magnitude: 0.01},
	})
	// both bands reach 1 before the final unit-max scaling
	if math.Abs(res.HPCP[27]-res.HPCP[0]) > 1e-6 {
		t.Fatalf("A = %f, C = %f, want equal", res.HPCP[27], res.HPCP[0])
	}
}

func TestHPCPFromToneSpectrum(t *testing.T) {
	const sr = 44100
	spec, err := spectral.NewSpectrumAnalyzer(2048).Compute(sine(440, sr, sr), sr)
	if err != nil {
		t.Fatalf("spectrum: %v", err)
	}
	params := DefaultHPCPParams()
	params.BandPreset = false
	res := NewHPCPWithParams(params).ComputeFromSpectrum(spec.Magnitudes, spec.Frequencies)
	if got := argmax(res.HPCP); got != 27 {
		t.Fatalf("tone landed in bin %d, want 27", got)
	}
}
