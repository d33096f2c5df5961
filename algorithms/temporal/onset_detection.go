package temporal

import (
	"fmt"
	"sort"

	"github.com/RyanBlaney/trackiq/algorithms/common"
	"github.com/RyanBlaney/trackiq/algorithms/spectral"
)

// Aggregation selects how per-band onset values are combined per frame.
type Aggregation int

const (
	AggregateMean Aggregation = iota
	AggregateMedian
)

// OnsetParams configures the onset strength envelope.
type OnsetParams struct {
	FrameLength int         `json:"frame_length"` // STFT size, default 2048
	HopLength   int         `json:"hop_length"`   // default 512
	NumMels     int         `json:"num_mels"`     // default 128
	Lag         int         `json:"lag"`          // frames between compared spectra, default 1
	TopDB       float64     `json:"top_db"`       // dynamic range kept below the peak, default 80
	Aggregate   Aggregation `json:"aggregate"`
}

// DefaultOnsetParams returns the framing shared by every frame-based feature.
func DefaultOnsetParams() OnsetParams {
	return OnsetParams{
		FrameLength: 2048,
		HopLength:   512,
		NumMels:     128,
		Lag:         1,
		TopDB:       80,
		Aggregate:   AggregateMean,
	}
}

// OnsetDetection computes spectral-flux onset strength on a log-power mel
// spectrogram.
type OnsetDetection struct {
	params   OnsetParams
	stft     *spectral.STFT
	melScale *spectral.MelScale
}

// NewOnsetDetection creates an onset detector with default parameters.
func NewOnsetDetection() *OnsetDetection {
	return NewOnsetDetectionWithParams(DefaultOnsetParams())
}

// NewOnsetDetectionWithParams fills zero fields from DefaultOnsetParams.
func NewOnsetDetectionWithParams(params OnsetParams) *OnsetDetection {
	defaults := DefaultOnsetParams()
	if params.FrameLength <= 0 {
		params.FrameLength = defaults.FrameLength
	}
	if params.HopLength <= 0 {
		params.HopLength = defaults.HopLength
	}
	if params.NumMels <= 0 {
		params.NumMels = defaults.NumMels
	}
	if params.Lag <= 0 {
		params.Lag = defaults.Lag
	}
	if params.TopDB <= 0 {
		params.TopDB = defaults.TopDB
	}
	return &OnsetDetection{
		params:   params,
		stft:     spectral.NewMagnitudeSTFT(),
		melScale: spectral.NewMelScale(),
	}
}

// Params returns the effective parameters.
func (od *OnsetDetection) Params() OnsetParams {
	return od.params
}

// Strength returns one onset value per STFT frame. The first
// Lag+FrameLength/(2*HopLength) values are zero so that each value lines up
// with the frame where the energy rise ends.
func (od *OnsetDetection) Strength(signal []float64, sampleRate int) ([]float64, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive: %d", sampleRate)
	}
	p := od.params

	stft, err := od.stft.ComputeCentered(signal, p.FrameLength, p.HopLength, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("onset STFT failed: %w", err)
	}
	envs, err := od.StrengthFromSTFT(stft, p.Aggregate)
	if err != nil {
		return nil, err
	}
	return envs[0], nil
}

// StrengthFromSTFT builds the log-power mel spectrogram of an existing
// centred STFT once and returns one envelope per requested aggregation, in
// the order given. The STFT must use the detector's frame and hop length.
func (od *OnsetDetection) StrengthFromSTFT(stft *spectral.STFTResult, aggs ...Aggregation) ([][]float64, error) {
	p := od.params
	if stft == nil || stft.TimeFrames == 0 {
		return nil, fmt.Errorf("empty STFT")
	}
	if stft.WindowSize != p.FrameLength || stft.HopSize != p.HopLength {
		return nil, fmt.Errorf("STFT framing %d/%d does not match onset framing %d/%d",
			stft.WindowSize, stft.HopSize, p.FrameLength, p.HopLength)
	}
	if stft.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive: %d", stft.SampleRate)
	}
	if len(aggs) == 0 {
		aggs = []Aggregation{p.Aggregate}
	}

	sampleRate := stft.SampleRate
	bank := od.melScale.SlaneyFilterBank(p.NumMels, p.FrameLength, sampleRate, 0, float64(sampleRate)/2)
	mel := make([][]float64, stft.TimeFrames)
	var power []float64
	for t := range mel {
		power = stft.FramePower(t, power)
		mel[t] = od.melScale.ApplyFilterBank(power, bank)
	}
	logMel := spectral.PowerToDB(mel, 1.0, 1e-10, p.TopDB)

	numFrames := len(logMel)
	envelopes := make([][]float64, len(aggs))
	for i := range envelopes {
		envelopes[i] = make([]float64, numFrames)
	}
	pad := p.Lag + p.FrameLength/(2*p.HopLength)

	diffs := make([]float64, p.NumMels)
	for t := p.Lag; t < numFrames; t++ {
		out := t - p.Lag + pad
		if out >= numFrames {
			break
		}
		for m := range diffs {
			diffs[m] = max(0, logMel[t][m]-logMel[t-p.Lag][m])
		}
		for i, how := range aggs {
			envelopes[i][out] = aggregate(diffs, how)
		}
	}

	return envelopes, nil
}

// MeanStrength is the arithmetic mean of Strength.
func (od *OnsetDetection) MeanStrength(signal []float64, sampleRate int) (float64, error) {
	env, err := od.Strength(signal, sampleRate)
	if err != nil {
		return 0, err
	}
	return common.Mean(env), nil
}

func aggregate(values []float64, how Aggregation) float64 {
	if len(values) == 0 {
		return 0
	}
	if how == AggregateMedian {
		sorted := make([]float64, len(values))
		copy(sorted, values)
		sort.Float64s(sorted)
		mid := len(sorted) / 2
		if len(sorted)%2 == 0 {
			return (sorted[mid-1] + sorted[mid]) / 2
		}
		return sorted[mid]
	}
	return common.Mean(values)
}
