package transcode

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

func qualitySpec(quality string) resampling.QualitySpec {
	switch quality {
	case "fast":
		return resampling.QualitySpec{Preset: resampling.QualityLow}
	case "medium":
		return resampling.QualitySpec{Preset: resampling.QualityMedium}
	default:
		return resampling.QualitySpec{Preset: resampling.QualityHigh}
	}
}

// Resample converts mono samples between rates. Equal rates return pcm unchanged.
func Resample(pcm []float64, from, to int, quality string) ([]float64, error) {
	if from <= 0 || to <= 0 {
		return nil, fmt.Errorf("invalid sample rates %d -> %d", from, to)
	}
	if from == to || len(pcm) == 0 {
		return pcm, nil
	}

	r, err := resampling.New(&resampling.Config{
		InputRate:  float64(from),
		OutputRate: float64(to),
		Channels:   1,
		Quality:    qualitySpec(quality),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	out, err := r.Process(pcm)
	if err != nil {
		return nil, fmt.Errorf("resample error: %w", err)
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, fmt.Errorf("resample flush: %w", err)
	}
	return append(out, tail...), nil
}
