package spectral

import (
	"math"

	"github.com/RyanBlaney/trackiq/algorithms/common"
	"gonum.org/v1/gonum/stat"
)

// ZeroCrossingRate calculates the fraction of sign changes per frame.
type ZeroCrossingRate struct {
	frameSize int
	hopSize   int
}

// ZCRStatistics summarizes per-frame rates.
type ZCRStatistics struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Frames int     `json:"frames"`
}

// NewZeroCrossingRate creates a calculator with the given framing.
func NewZeroCrossingRate(frameSize, hopSize int) *ZeroCrossingRate {
	return &ZeroCrossingRate{
		frameSize: frameSize,
		hopSize:   hopSize,
	}
}

// Compute returns crossings divided by frame length. Zero is treated as a
// positive sample, so only true sign-bit changes count.
func (zcr *ZeroCrossingRate) Compute(frame []float64) float64 {
	if len(frame) < 2 {
		return 0.0
	}

	crossings := 0
	for i := 1; i < len(frame); i++ {
		if math.Signbit(frame[i-1]) != math.Signbit(frame[i]) {
			crossings++
		}
	}

	return float64(crossings) / float64(len(frame))
}

// ComputeFrames calculates ZCR for frames centred on every hop, padding the
// signal edges by repetition.
func (zcr *ZeroCrossingRate) ComputeFrames(signal []float64) []float64 {
	if len(signal) == 0 || zcr.frameSize <= 0 || zcr.hopSize <= 0 {
		return []float64{}
	}

	padded := common.PadCenter(signal, zcr.frameSize/2, common.PadEdge)
	frames := common.Frames(padded, zcr.frameSize, zcr.hopSize)

	rates := make([]float64, len(frames))
	for i, frame := range frames {
		rates[i] = zcr.Compute(frame)
	}
	return rates
}

// ComputeStatistics summarizes ComputeFrames over the whole signal.
func (zcr *ZeroCrossingRate) ComputeStatistics(signal []float64) ZCRStatistics {
	rates := zcr.ComputeFrames(signal)
	if len(rates) == 0 {
		return ZCRStatistics{}
	}

	mean, std := stat.MeanStdDev(rates, nil)
	if len(rates) < 2 {
		std = 0
	}
	lo, hi := rates[0], rates[0]
	for _, r := range rates[1:] {
		lo = min(lo, r)
		hi = max(hi, r)
	}

	return ZCRStatistics{
		Mean:   mean,
		StdDev: std,
		Min:    lo,
		Max:    hi,
		Frames: len(rates),
	}
}
