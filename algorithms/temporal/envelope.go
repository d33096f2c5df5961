package temporal

import (
	"math"

	"github.com/RyanBlaney/trackiq/algorithms/common"
)

// Envelope provides amplitude envelope extraction
type Envelope struct{}

// NewEnvelope creates a new envelope extractor
func NewEnvelope() *Envelope {
	return &Envelope{}
}

// ComputeRMS computes RMS envelope with given frame and hop sizes
func (e *Envelope) ComputeRMS(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) < frameSize || frameSize <= 0 || hopSize <= 0 {
		return []float64{}
	}

	frames := common.Frames(signal, frameSize, hopSize)
	envelope := make([]float64, len(frames))

	for i, frame := range frames {
		sumSquares := 0.0
		for _, v := range frame {
			sumSquares += v * v
		}
		envelope[i] = math.Sqrt(sumSquares / float64(frameSize))
	}

	return envelope
}

// ComputeRMSCentered zero-pads frameSize/2 samples on each side so frame t
// is centred on sample t*hopSize.
func (e *Envelope) ComputeRMSCentered(signal []float64, frameSize, hopSize int) []float64 {
	if len(signal) == 0 || frameSize <= 0 {
		return []float64{}
	}
	padded := common.PadCenter(signal, frameSize/2, common.PadConstant)
	return e.ComputeRMS(padded, frameSize, hopSize)
}

// MeanRMS is the average of the centred RMS envelope.
func (e *Envelope) MeanRMS(signal []float64, frameSize, hopSize int) float64 {
	return common.Mean(e.ComputeRMSCentered(signal, frameSize, hopSize))
}
