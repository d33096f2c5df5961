package temporal

import (
	"math"
	"testing"

	"github.com/RyanBlaney/trackiq/algorithms/spectral"
)

func clickTrain(sampleRate int, bpm float64, seconds float64) []float64 {
	n := int(seconds * float64(sampleRate))
	signal := make([]float64, n)
	period := int(60.0 / bpm * float64(sampleRate))
	for start := 0; start < n; start += period {
		for i := 0; i < 64 && start+i < n; i++ {
			signal[start+i] = math.Exp(-float64(i)/8) * math.Sin(2*math.Pi*float64(i)/6)
		}
	}
	return signal
}

func TestComputeRMSCentered(t *testing.T) {
	signal := make([]float64, 10000)
	for i := range signal {
		signal[i] = 0.5
	}

	env := NewEnvelope().ComputeRMSCentered(signal, 2048, 512)
	if want := 1 + len(signal)/512; len(env) != want {
		t.Fatalf("frames = %d, want %d", len(env), want)
	}
	if math.Abs(env[0]-0.5/math.Sqrt2) > 1e-12 {
		t.Fatalf("first frame = %f, want half-filled RMS %f", env[0], 0.5/math.Sqrt2)
	}
	if math.Abs(env[8]-0.5) > 1e-12 {
		t.Fatalf("interior frame = %f, want 0.5", env[8])
	}

	if got := NewEnvelope().MeanRMS(nil, 2048, 512); got != 0 {
		t.Fatalf("empty mean RMS = %f, want 0", got)
	}
}

func TestOnsetStrengthFraming(t *testing.T) {
	const sr = 22050
	signal := clickTrain(sr, 120, 4)

	od := NewOnsetDetection()
	env, err := od.Strength(signal, sr)
	if err != nil {
		t.Fatalf("Strength failed: %v", err)
	}
	if want := 1 + len(signal)/512; len(env) != want {
		t.Fatalf("envelope length = %d, want %d", len(env), want)
	}
	for i := range 3 {
		if env[i] != 0 {
			t.Fatalf("leading value %d = %f, want 0", i, env[i])
		}
	}
	for i, v := range env {
		if v < 0 || math.IsNaN(v) {
			t.Fatalf("value %d = %f, want non-negative", i, v)
		}
	}

	mean, err := od.MeanStrength(signal, sr)
	if err != nil {
		t.Fatalf("MeanStrength failed: %v", err)
	}
	if mean <= 0 {
		t.Fatalf("mean onset strength of clicks = %f, want positive", mean)
	}
}

func TestStrengthFromSTFTMatchesStrength(t *testing.T) {
	const sr = 22050
	signal := clickTrain(sr, 100, 3)

	stft, err := spectral.NewMagnitudeSTFT().ComputeCentered(signal, 2048, 512, sr)
	if err != nil {
		t.Fatalf("ComputeCentered failed: %v", err)
	}
	envs, err := NewOnsetDetection().StrengthFromSTFT(stft, AggregateMedian, AggregateMean)
	if err != nil {
		t.Fatalf("StrengthFromSTFT failed: %v", err)
	}
	if len(envs) != 2 {
		t.Fatalf("got %d envelopes, want 2", len(envs))
	}

	for i, how := range []Aggregation{AggregateMedian, AggregateMean} {
		params := DefaultOnsetParams()
		params.Aggregate = how
		want, err := NewOnsetDetectionWithParams(params).Strength(signal, sr)
		if err != nil {
			t.Fatalf("Strength failed: %v", err)
		}
		if len(want) != len(envs[i]) {
			t.Fatalf("aggregation %d: length %d, want %d", how, len(envs[i]), len(want))
		}
		for k := range want {
			if want[k] != envs[i][k] {
				t.Fatalf("aggregation %d frame %d = %g, want %g", how, k, envs[i][k], want[k])
			}
		}
	}

	mismatched, err := spectral.NewMagnitudeSTFT().ComputeCentered(signal, 1024, 512, sr)
	if err != nil {
		t.Fatalf("ComputeCentered failed: %v", err)
	}
	if _, err := NewOnsetDetection().StrengthFromSTFT(mismatched); err == nil {
		t.Fatal("expected error for mismatched framing")
	}
}

func TestOnsetStrengthSilence(t *testing.T) {
	mean, err := NewOnsetDetection().MeanStrength(make([]float64, 22050), 22050)
	if err != nil {
		t.Fatalf("MeanStrength failed: %v", err)
	}
	if mean != 0 {
		t.Fatalf("silent onset strength = %f, want 0", mean)
	}

	if _, err := NewOnsetDetection().Strength(make([]float64, 100), 0); err == nil {
		t.Fatal("expected error for zero sample rate")
	}
}

func TestEstimateTempoClickTrain(t *testing.T) {
	const sr = 22050
	bpm, err := NewTempoEstimation().EstimateTempo(clickTrain(sr, 120, 12), sr)
	if err != nil {
		t.Fatalf("EstimateTempo failed: %v", err)
	}
	if bpm < 110 || bpm > 130 {
		t.Fatalf("tempo = %f, want 110..130", bpm)
	}
}

func TestEstimateTempoSilenceFallsBackToPrior(t *testing.T) {
	const sr = 22050
	bpm, err := NewTempoEstimation().EstimateTempo(make([]float64, 3*sr), sr)
	if err != nil {
		t.Fatalf("EstimateTempo failed: %v", err)
	}
	want := 60.0 * sr / (512.0 * 22)
	if math.Abs(bpm-want) > 1e-9 {
		t.Fatalf("silent tempo = %f, want %f", bpm, want)
	}

	if _, err := NewTempoEstimation().EstimateTempo(nil, sr); err == nil {
		t.Fatal("expected error for empty signal")
	}
}

func TestLinearRampPad(t *testing.T) {
	got := linearRampPad([]float64{2, 4}, 2)
	want := []float64{0, 1, 2, 4, 2, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("padded = %v, want %v", got, want)
		}
	}
}

func TestAutocorrelate(t *testing.T) {
	buf := make([]float64, 8)
	copy(buf, []float64{1, 2, 3})
	ac := autocorrelate(buf, 3)
	want := []float64{14, 8, 3}
	for i := range want {
		if math.Abs(ac[i]-want[i]) > 1e-9 {
			t.Fatalf("autocorrelation = %v, want %v", ac, want)
		}
	}
}
