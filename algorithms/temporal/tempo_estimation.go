package temporal

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/trackiq/algorithms/common"
	"github.com/RyanBlaney/trackiq/algorithms/windowing"
	"github.com/mjibson/go-dsp/fft"
)

// TempoParams configures the autocorrelation tempo estimator.
type TempoParams struct {
	HopLength  int     `json:"hop_length"`  // onset envelope hop, default 512
	WinLength  int     `json:"win_length"`  // tempogram window in onset frames, default 384
	StartBPM   float64 `json:"start_bpm"`   // centre of the log-normal prior, default 120
	StdBPM     float64 `json:"std_bpm"`     // prior width in octaves, default 1
	MaxTempo   float64 `json:"max_tempo"`   // upper bound, default 320
	OnsetFrame int     `json:"onset_frame"` // STFT size for the onset envelope, default 2048
}

// DefaultTempoParams returns the estimator defaults.
func DefaultTempoParams() TempoParams {
	return TempoParams{
		HopLength:  512,
		WinLength:  384,
		StartBPM:   120,
		StdBPM:     1,
		MaxTempo:   320,
		OnsetFrame: 2048,
	}
}

// TempoEstimation picks the lag of the time-averaged autocorrelation
// tempogram that best matches a log-normal tempo prior.
type TempoEstimation struct {
	params        TempoParams
	onsetDetector *OnsetDetection
}

// NewTempoEstimation creates a new tempo estimator
func NewTempoEstimation() *TempoEstimation {
	return NewTempoEstimationWithParams(DefaultTempoParams())
}

// NewTempoEstimationWithParams fills zero fields from DefaultTempoParams.
func NewTempoEstimationWithParams(params TempoParams) *TempoEstimation {
	defaults := DefaultTempoParams()
	if params.HopLength <= 0 {
		params.HopLength = defaults.HopLength
	}
	if params.WinLength <= 0 {
		params.WinLength = defaults.WinLength
	}
	if params.StartBPM <= 0 {
		params.StartBPM = defaults.StartBPM
	}
	if params.StdBPM <= 0 {
		params.StdBPM = defaults.StdBPM
	}
	if params.MaxTempo <= 0 {
		params.MaxTempo = defaults.MaxTempo
	}
	if params.OnsetFrame <= 0 {
		params.OnsetFrame = defaults.OnsetFrame
	}

	onsetParams := DefaultOnsetParams()
	onsetParams.FrameLength = params.OnsetFrame
	onsetParams.HopLength = params.HopLength
	onsetParams.Aggregate = AggregateMedian

	return &TempoEstimation{
		params:        params,
		onsetDetector: NewOnsetDetectionWithParams(onsetParams),
	}
}

// EstimateTempo estimates tempo in BPM from the raw signal using a
// median-aggregated onset envelope.
func (te *TempoEstimation) EstimateTempo(signal []float64, sampleRate int) (float64, error) {
	if len(signal) == 0 {
		return 0, fmt.Errorf("empty signal")
	}
	env, err := te.onsetDetector.Strength(signal, sampleRate)
	if err != nil {
		return 0, err
	}
	return te.EstimateFromEnvelope(env, sampleRate)
}

// EstimateFromEnvelope estimates tempo from an onset envelope sampled every
// HopLength samples. An envelope without energy yields the tempo nearest the
// prior's centre.
func (te *TempoEstimation) EstimateFromEnvelope(envelope []float64, sampleRate int) (float64, error) {
	if len(envelope) == 0 {
		return 0, fmt.Errorf("empty onset envelope")
	}
	if sampleRate <= 0 {
		return 0, fmt.Errorf("sample rate must be positive: %d", sampleRate)
	}
	p := te.params

	tg := te.meanTempogram(envelope)

	bestLag := -1
	bestScore := math.Inf(-1)
	for lag := 1; lag < len(tg); lag++ {
		bpm := te.lagToBPM(lag, sampleRate)
		if bpm >= p.MaxTempo {
			continue
		}
		z := (math.Log2(bpm) - math.Log2(p.StartBPM)) / p.StdBPM
		score := math.Log1p(1e6*tg[lag]) - 0.5*z*z
		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}
	if bestLag < 0 {
		return 0, fmt.Errorf("no admissible tempo lag in a %d-frame window", p.WinLength)
	}

	return te.lagToBPM(bestLag, sampleRate), nil
}

func (te *TempoEstimation) lagToBPM(lag, sampleRate int) float64 {
	return 60.0 * float64(sampleRate) / (float64(te.params.HopLength) * float64(lag))
}

// meanTempogram averages per-frame, max-normalized autocorrelations of
// Hann-windowed envelope segments centred on every onset frame.
func (te *TempoEstimation) meanTempogram(envelope []float64) []float64 {
	win := te.params.WinLength
	half := win / 2
	padded := linearRampPad(envelope, half)
	hann := windowing.NewHann(win, false).Coefficients()

	fftSize := common.NextPowerOfTwo(2*win - 1)
	buf := make([]float64, fftSize)
	mean := make([]float64, win)

	for t := range envelope {
		clear(buf)
		for i := range win {
			buf[i] = padded[t+i] * hann[i]
		}
		ac := autocorrelate(buf, win)

		peak := 0.0
		for _, v := range ac {
			peak = max(peak, math.Abs(v))
		}
		if peak > math.SmallestNonzeroFloat64 {
			for i := range ac {
				ac[i] /= peak
			}
		}
		for i, v := range ac {
			mean[i] += v
		}
	}

	for i := range mean {
		mean[i] /= float64(len(envelope))
	}
	return mean
}

// autocorrelate returns lags 0..maxLag-1 of the autocorrelation of the
// zero-padded frame buf using the power spectrum.
func autocorrelate(buf []float64, maxLag int) []float64 {
	spectrum := fft.FFTReal(buf)
	for i, c := range spectrum {
		re, im := real(c), imag(c)
		spectrum[i] = complex(re*re+im*im, 0)
	}
	inv := fft.IFFT(spectrum)
	out := make([]float64, maxLag)
	for i := range out {
		out[i] = real(inv[i])
	}
	return out
}

// linearRampPad pads both ends with a linear ramp from zero to the edge value.
func linearRampPad(signal []float64, pad int) []float64 {
	n := len(signal)
	out := make([]float64, n+2*pad)
	copy(out[pad:], signal)
	if n == 0 || pad == 0 {
		return out
	}
	first, last := signal[0], signal[n-1]
	for i := range pad {
		out[i] = first * float64(i) / float64(pad)
		out[pad+n+i] = last * float64(pad-1-i) / float64(pad)
	}
	return out
}
