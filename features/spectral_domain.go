package features

import (
	"context"
	"errors"
	"math"

	"github.com/RyanBlaney/trackiq/algorithms/chroma"
	"github.com/RyanBlaney/trackiq/algorithms/harmonic"
	"github.com/RyanBlaney/trackiq/algorithms/spectral"
)

// spectralDomain fills chroma from the shared spectrogram and the
// single-window spectral descriptors.
func (e *Extractor) spectralDomain(ctx context.Context, a *analysis, v *Vector) error {
	sampleRate := a.sampleRate
	chromaMean, err := chroma.NewChromaSTFT(sampleRate, e.config.FrameLength, e.config.HopLength, 440.0).MeanFromSTFT(a.stft)
	if err != nil {
		return &ProcessingError{Stage: "spectral_domain", Feature: "chroma_stft", Err: err}
	}
	v.ChromaSTFT = chromaMean
	// last reader of the spectrogram
	a.stft = nil

	if err := checkpoint(ctx, "spectral_domain"); err != nil {
		return err
	}
	spec, err := spectral.NewSpectrumAnalyzer(e.config.WindowSize).Compute(a.signal, sampleRate)
	if err != nil {
		return &ProcessingError{Stage: "spectral_domain", Err: err}
	}
	if spec.Len() == 0 {
		return &ProcessingError{Stage: "spectral_domain", Err: errors.New("empty spectrum")}
	}
	mags, freqs := spec.Magnitudes, spec.Frequencies

	v.SpectralCentroid = spectral.NewSpectralCentroid().Compute(mags, freqs)
	v.SpectralRolloff = spectral.NewSpectralRolloff(spectral.DefaultRolloffThreshold).Compute(mags, freqs)
	v.SpectralFlux = spectral.NewSpectralFlux(false).ComputePair(nil, mags)
	v.SpectralCrest = spectral.NewSpectralCrest().Compute(mags)
	v.SpectralFlatness = spectral.NewSpectralFlatness().Compute(mags)
	v.SpectralComplexity = harmonic.NewSpectralComplexity(
		harmonic.DefaultComplexityThreshold,
		harmonic.DefaultComplexityMaxPeaks,
	).Compute(mags, freqs)
	v.HPCPMean = chroma.NewHPCP().ComputeFromSpectrum(mags, freqs).Mean

	mfccParams := spectral.DefaultMFCCParams()
	mfccParams.HighFreq = math.Min(mfccParams.HighFreq, float64(sampleRate)/2)
	mfcc, err := spectral.NewMFCCWithParams(mfccParams).Compute(mags, freqs)
	if err != nil {
		return &ProcessingError{Stage: "spectral_domain", Feature: "mfcc_mean", Err: err}
	}
	if len(mfcc.MFCC) < 2 {
		return &ProcessingError{Stage: "spectral_domain", Feature: "mfcc_mean", Err: errors.New("fewer than two coefficients")}
	}
	v.MFCCMean = mfcc.MFCC[1]

	return nil
}
