package features

import (
	"context"

	"github.com/RyanBlaney/trackiq/algorithms/common"
	"github.com/RyanBlaney/trackiq/algorithms/harmonic"
	"github.com/RyanBlaney/trackiq/algorithms/spectral"
	"github.com/RyanBlaney/trackiq/algorithms/temporal"
)

// timeDomain fills the frame-based statistics: tempo, onset strength, zero
// crossing rate and the three RMS values. Onset, tempo and HPSS all read the
// shared spectrogram.
func (e *Extractor) timeDomain(ctx context.Context, a *analysis, v *Vector) error {
	const stage = "time_domain"
	frame, hop := e.config.FrameLength, e.config.HopLength

	onsetParams := temporal.DefaultOnsetParams()
	onsetParams.FrameLength = frame
	onsetParams.HopLength = hop
	envs, err := temporal.NewOnsetDetectionWithParams(onsetParams).
		StrengthFromSTFT(a.stft, temporal.AggregateMedian, temporal.AggregateMean)
	if err != nil {
		return &ProcessingError{Stage: stage, Feature: "onset_strength", Err: err}
	}
	medianEnv, meanEnv := envs[0], envs[1]
	v.OnsetStrength = common.Mean(meanEnv)

	if err := checkpoint(ctx, stage); err != nil {
		return err
	}
	tempo, err := temporal.NewTempoEstimationWithParams(temporal.TempoParams{
		HopLength:  hop,
		OnsetFrame: frame,
	}).EstimateFromEnvelope(medianEnv, a.sampleRate)
	if err != nil {
		return &ProcessingError{Stage: stage, Feature: "tempo", Err: err}
	}
	v.Tempo = tempo

	if err := checkpoint(ctx, stage); err != nil {
		return err
	}
	v.ZeroCrossingRate = spectral.NewZeroCrossingRate(frame, hop).ComputeStatistics(a.signal).Mean

	envelope := temporal.NewEnvelope()
	v.RMS = envelope.MeanRMS(a.signal, frame, hop)

	if err := checkpoint(ctx, stage); err != nil {
		return err
	}
	parts, err := harmonic.NewHPSS(harmonic.DefaultKernelSize, frame, hop).SeparateSTFT(ctx, a.stft, len(a.signal))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &ProcessingError{Stage: stage, Err: ctxErr}
		}
		return &ProcessingError{Stage: stage, Feature: "harmonic_rms", Err: err}
	}
	v.HarmonicRMS = envelope.MeanRMS(parts.Harmonic, frame, hop)
	v.PercussiveRMS = envelope.MeanRMS(parts.Percussive, frame, hop)

	return nil
}
