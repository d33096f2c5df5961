package features

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/RyanBlaney/trackiq/algorithms/spectral"
)

func randomSignal(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()*0.6 - 0.3
	}
	return out
}

func TestExtractSamplesComputesOneSpectrogram(t *testing.T) {
	ex := NewExtractor(nil)
	compute := ex.computeSTFT
	calls := 0
	ex.computeSTFT = func(signal []float64, windowSize, hopSize, sampleRate int) (*spectral.STFTResult, error) {
		calls++
		return compute(signal, windowSize, hopSize, sampleRate)
	}

	v, err := ex.ExtractSamples(context.Background(), randomSignal(22050, 3), 22050)
	if err != nil {
		t.Fatalf("ExtractSamples failed: %v", err)
	}
	if calls != 1 {
		t.Fatalf("spectrogram computed %d times, want 1", calls)
	}
	if v.Tempo <= 0 || v.ChromaSTFT <= 0 || v.HarmonicRMS <= 0 || v.OnsetStrength <= 0 {
		t.Fatalf("features from the shared spectrogram are empty: %+v", v)
	}
}

func TestTimeDomainStopsAfterCancellation(t *testing.T) {
	ex := NewExtractor(nil)
	a := &analysis{signal: randomSignal(22050, 5), sampleRate: 22050}
	if err := ex.spectrogram(context.Background(), a, nil); err != nil {
		t.Fatalf("spectrogram failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var v Vector
	err := ex.timeDomain(ctx, a, &v)

	var perr *ProcessingError
	if !errors.As(err, &perr) || perr.Stage != "time_domain" {
		t.Fatalf("expected time_domain ProcessingError, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if v.Tempo != 0 || v.HarmonicRMS != 0 {
		t.Fatalf("work continued after cancellation: %+v", v)
	}
}

func TestSpectralDomainReleasesSpectrogram(t *testing.T) {
	ex := NewExtractor(nil)
	a := &analysis{signal: randomSignal(8192, 9), sampleRate: 22050}
	if err := ex.spectrogram(context.Background(), a, nil); err != nil {
		t.Fatalf("spectrogram failed: %v", err)
	}
	var v Vector
	if err := ex.spectralDomain(context.Background(), a, &v); err != nil {
		t.Fatalf("spectralDomain failed: %v", err)
	}
	if a.stft != nil {
		t.Fatal("spectrogram still referenced after its last reader")
	}
}
