package spectral

import (
	"math"
	"testing"
)

func sineWave(freq float64, sampleRate, n int, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestLinearFrequencies(t *testing.T) {
	freqs := LinearFrequencies(4, 8000)
	want := []float64{0, 1000, 2000, 3000}
	for i := range want {
		if freqs[i] != want[i] {
			t.Fatalf("freqs = %v, want %v", freqs, want)
		}
	}
}

func TestAnalysisWindowCentersAndPads(t *testing.T) {
	signal := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	got := AnalysisWindow(signal, 4)
	want := []float64{2, 3, 4, 5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("window = %v, want %v", got, want)
		}
	}

	short := AnalysisWindow([]float64{1, 2}, 4)
	if len(short) != 4 || short[0] != 1 || short[1] != 2 || short[2] != 0 || short[3] != 0 {
		t.Fatalf("short window = %v", short)
	}
}

func TestSpectrumAnalyzerPeaksAtToneBin(t *testing.T) {
	const sr = 44100
	spec, err := NewSpectrumAnalyzer(2048).Compute(sineWave(440, sr, sr, 0.5), sr)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if spec.Len() != 1025 || len(spec.Frequencies) != 1025 {
		t.Fatalf("unexpected spectrum length %d", spec.Len())
	}

	best := 0
	for i, m := range spec.Magnitudes {
		if m > spec.Magnitudes[best] {
			best = i
		}
	}
	if best != 20 && best != 21 {
		t.Fatalf("peak bin = %d, want 20 or 21", best)
	}
	if spec.Magnitudes[best] < 0.3 || spec.Magnitudes[best] > 0.55 {
		t.Fatalf("peak magnitude = %f, want close to the 0.5 amplitude", spec.Magnitudes[best])
	}
}

func TestSpectralCentroid(t *testing.T) {
	freqs := LinearFrequencies(100, 20000)
	spectrum := make([]float64, 100)
	spectrum[10] = 3

	if got := NewSpectralCentroid().Compute(spectrum, freqs); got != freqs[10] {
		t.Fatalf("centroid = %f, want %f", got, freqs[10])
	}

	spectrum[30] = 3
	want := (freqs[10] + freqs[30]) / 2
	if got := NewSpectralCentroid().Compute(spectrum, freqs); !almostEqual(got, want, 1e-9) {
		t.Fatalf("centroid = %f, want %f", got, want)
	}

	if got := NewSpectralCentroid().Compute(make([]float64, 100), freqs); got != 0 {
		t.Fatalf("silent centroid = %f, want 0", got)
	}
}

func TestSpectralRolloff(t *testing.T) {
	freqs := LinearFrequencies(100, 20000)
	flat := make([]float64, 100)
	for i := range flat {
		flat[i] = 1
	}
	got := NewSpectralRolloff(DefaultRolloffThreshold).Compute(flat, freqs)
	if got != freqs[84] {
		t.Fatalf("rolloff = %f, want %f", got, freqs[84])
	}
	if got := NewSpectralRolloff(0.85).Compute(make([]float64, 100), freqs); got != 0 {
		t.Fatalf("silent rolloff = %f, want 0", got)
	}
}

func TestSpectralFlux(t *testing.T) {
	flux := NewSpectralFlux(false)
	if got := flux.ComputePair(nil, []float64{3, 4}); got != 5 {
		t.Fatalf("flux against silence = %f, want 5", got)
	}
	if got := flux.ComputePair([]float64{3, 4}, []float64{3, 4}); got != 0 {
		t.Fatalf("flux of identical frames = %f, want 0", got)
	}

	rectified := NewSpectralFlux(true)
	if got := rectified.ComputePair([]float64{5, 0}, []float64{0, 2}); got != 2 {
		t.Fatalf("half-rectified flux = %f, want 2", got)
	}

	series := flux.Compute([][]float64{{0, 0}, {3, 4}, {3, 4}})
	if len(series) != 2 || series[0] != 5 || series[1] != 0 {
		t.Fatalf("flux series = %v", series)
	}
}

func TestSpectralCrest(t *testing.T) {
	crest := NewSpectralCrest()
	if got := crest.Compute([]float64{1, 1, 1, 5}); got != 2.5 {
		t.Fatalf("crest = %f, want 2.5", got)
	}
	if got := crest.Compute([]float64{0, 0, 0}); got != 0 {
		t.Fatalf("silent crest = %f, want 0", got)
	}
}

func TestSpectralFlatness(t *testing.T) {
	flat := NewSpectralFlatness()

	uniform := []float64{2, 2, 2, 2}
	if got := flat.Compute(uniform); !almostEqual(got, 1, 1e-12) {
		t.Fatalf("flatness of uniform spectrum = %f, want 1", got)
	}

	tonal := make([]float64, 512)
	tonal[40] = 1
	if got := flat.Compute(tonal); got > 0.01 {
		t.Fatalf("flatness of a single peak = %f, want near 0", got)
	}

	if got := flat.Compute(make([]float64, 16)); got != 0 {
		t.Fatalf("flatness of silence = %f, want 0", got)
	}
}

func TestSTFTRoundTrip(t *testing.T) {
	const sr = 8000
	signal := sineWave(300, sr, 5001, 0.6)
	for i, v := range sineWave(1234, sr, 5001, 0.2) {
		signal[i] += v
	}

	stft := NewSTFT()
	res, err := stft.ComputeCentered(signal, 2048, 512, sr)
	if err != nil {
		t.Fatalf("ComputeCentered failed: %v", err)
	}
	if res.TimeFrames != 1+len(signal)/512 {
		t.Fatalf("frames = %d, want %d", res.TimeFrames, 1+len(signal)/512)
	}

	back, err := stft.InverseCentered(res.Complex, 2048, 512, len(signal))
	if err != nil {
		t.Fatalf("InverseCentered failed: %v", err)
	}
	for i := range signal {
		if !almostEqual(back[i], signal[i], 1e-8) {
			t.Fatalf("sample %d: got %g, want %g", i, back[i], signal[i])
		}
	}
}

func TestMagnitudeSTFTDropsComplex(t *testing.T) {
	const sr = 8000
	signal := sineWave(500, sr, 4000, 0.5)

	full, err := NewSTFT().ComputeCentered(signal, 512, 128, sr)
	if err != nil {
		t.Fatalf("ComputeCentered failed: %v", err)
	}
	magOnly, err := NewMagnitudeSTFT().ComputeCentered(signal, 512, 128, sr)
	if err != nil {
		t.Fatalf("ComputeCentered failed: %v", err)
	}
	if magOnly.Complex != nil {
		t.Fatal("magnitude-only STFT kept its complex spectrogram")
	}
	if full.Complex == nil {
		t.Fatal("default STFT dropped its complex spectrogram")
	}

	var power []float64
	for frame := range full.TimeFrames {
		power = magOnly.FramePower(frame, power)
		for k, m := range full.Magnitude[frame] {
			if magOnly.Magnitude[frame][k] != m || power[k] != m*m {
				t.Fatalf("frame %d bin %d: magnitude %g power %g, want %g and %g",
					frame, k, magOnly.Magnitude[frame][k], power[k], m, m*m)
			}
		}
	}
}

func TestOverlapAddRejectsBadFrames(t *testing.T) {
	if _, err := NewOverlapAdd(512, 0, 4); err == nil {
		t.Fatal("expected error for zero hop")
	}
	ola, err := NewOverlapAdd(512, 128, 4)
	if err != nil {
		t.Fatalf("NewOverlapAdd failed: %v", err)
	}
	if err := ola.Add(4, make([]complex128, 257)); err == nil {
		t.Fatal("expected error for frame index past the end")
	}
	if err := ola.Add(0, make([]complex128, 100)); err == nil {
		t.Fatal("expected error for wrong bin count")
	}
	if out := ola.Result(300); len(out) != 300 {
		t.Fatalf("result length = %d, want 300", len(out))
	}
}

func TestMFCCSilenceHasFlatCepstrum(t *testing.T) {
	freqs := LinearFrequencies(1025, 44100)
	res, err := NewMFCC().Compute(make([]float64, 1025), freqs)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if len(res.MFCC) != 13 {
		t.Fatalf("coefficients = %d, want 13", len(res.MFCC))
	}
	for i, c := range res.MFCC {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			t.Fatalf("coefficient %d is not finite", i)
		}
	}
	if !almostEqual(res.MFCC[1], 0, 1e-9) {
		t.Fatalf("c1 of silence = %g, want 0", res.MFCC[1])
	}
}

func TestMFCCTone(t *testing.T) {
	const sr = 44100
	spec, err := NewSpectrumAnalyzer(2048).Compute(sineWave(440, sr, 4096, 0.5), sr)
	if err != nil {
		t.Fatalf("spectrum: %v", err)
	}
	res, err := NewMFCC().Compute(spec.Magnitudes, spec.Frequencies)
	if err != nil {
		t.Fatalf("Compute failed: %v", err)
	}
	if len(res.MelBands) != 40 {
		t.Fatalf("bands = %d, want 40", len(res.MelBands))
	}
	for i, c := range res.MFCC {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			t.Fatalf("coefficient %d is not finite", i)
		}
	}

	if _, err := NewMFCC().Compute(spec.Magnitudes, spec.Frequencies[:10]); err == nil {
		t.Fatal("expected error for mismatched frequency vector")
	}
}

func TestSlaneyFilterBankShape(t *testing.T) {
	bank := NewMelScale().SlaneyFilterBank(128, 2048, 22050, 0, 11025)
	if len(bank) != 128 || len(bank[0]) != 1025 {
		t.Fatalf("bank shape = %dx%d", len(bank), len(bank[0]))
	}
	for m, filter := range bank {
		nonZero := false
		for _, w := range filter {
			if w < 0 {
				t.Fatalf("negative weight in filter %d", m)
			}
			if w > 0 {
				nonZero = true
			}
		}
		if m > 10 && !nonZero {
			t.Fatalf("filter %d is empty", m)
		}
	}
}

func TestPowerToDBClipsToTopDB(t *testing.T) {
	db := PowerToDB([][]float64{{1, 1e-12, 0.1}}, 1, 1e-10, 80)
	if db[0][0] != 0 {
		t.Fatalf("0 dB reference = %f", db[0][0])
	}
	if db[0][1] != -80 {
		t.Fatalf("clipped value = %f, want -80", db[0][1])
	}
	if !almostEqual(db[0][2], -10, 1e-9) {
		t.Fatalf("0.1 power = %f dB, want -10", db[0][2])
	}
}

func TestZeroCrossingRate(t *testing.T) {
	zcr := NewZeroCrossingRate(2048, 512)

	alternating := []float64{1, -1, 1, -1}
	if got := zcr.Compute(alternating); got != 0.75 {
		t.Fatalf("alternating rate = %f, want 0.75", got)
	}
	if got := zcr.Compute([]float64{0, 0, 1, 2}); got != 0 {
		t.Fatalf("zeros count as positive, got %f", got)
	}

	const sr = 44100
	stats := zcr.ComputeStatistics(sineWave(440, sr, 5*sr, 0.5))
	want := 2 * 440.0 / sr
	if !almostEqual(stats.Mean, want, want*0.05) {
		t.Fatalf("mean rate = %f, want about %f", stats.Mean, want)
	}
	if stats.Frames != 1+5*sr/512 {
		t.Fatalf("frames = %d, want %d", stats.Frames, 1+5*sr/512)
	}
}
