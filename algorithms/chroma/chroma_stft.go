package chroma

import (
	"fmt"
	"math"

	"github.com/RyanBlaney/trackiq/algorithms/common"
	"github.com/RyanBlaney/trackiq/algorithms/spectral"
)

// ChromaSTFT computes chromagram using Short-Time Fourier Transform
//
// Each STFT power frame is projected onto 12 pitch classes with a bank of
// Gaussian bumps (one per class and octave), weighted towards the middle
// octaves. Bin 0 is C.
type ChromaSTFT struct {
	sampleRate int
	windowSize int
	hopSize    int
	tuningFreq float64 // A4 frequency (default 440 Hz)
	chromaBins int
	stft       *spectral.STFT
	filterBank [][]float64
}

// NewChromaSTFT creates a new STFT-based chromagram calculator
func NewChromaSTFT(sampleRate, windowSize, hopSize int, tuningFreq float64) *ChromaSTFT {
	return &ChromaSTFT{
		sampleRate: sampleRate,
		windowSize: windowSize,
		hopSize:    hopSize,
		tuningFreq: tuningFreq,
		chromaBins: 12,
		stft:       spectral.NewMagnitudeSTFT(),
		filterBank: FilterBank(sampleRate, windowSize, 12, tuningFreq),
	}
}

// NewChromaSTFTDefault creates chromagram with standard A4=440Hz tuning
func NewChromaSTFTDefault(sampleRate int) *ChromaSTFT {
	return NewChromaSTFT(sampleRate, 2048, 512, 440.0)
}

// ComputeChroma returns one max-normalized 12-bin vector per centred STFT
// frame. Silent frames stay all zero.
func (cs *ChromaSTFT) ComputeChroma(signal []float64) ([][]float64, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	stftResult, err := cs.stft.ComputeCentered(signal, cs.windowSize, cs.hopSize, cs.sampleRate)
	if err != nil {
		return nil, err
	}
	return cs.ComputeChromaFromSTFT(stftResult)
}

// ComputeChromaFromSTFT projects an existing STFT, which must share the
// calculator's window size and sample rate.
func (cs *ChromaSTFT) ComputeChromaFromSTFT(stftResult *spectral.STFTResult) ([][]float64, error) {
	if stftResult == nil || stftResult.TimeFrames == 0 {
		return nil, fmt.Errorf("empty STFT")
	}
	if stftResult.WindowSize != cs.windowSize || stftResult.SampleRate != cs.sampleRate {
		return nil, fmt.Errorf("STFT window %d at %d Hz does not match chroma window %d at %d Hz",
			stftResult.WindowSize, stftResult.SampleRate, cs.windowSize, cs.sampleRate)
	}

	chromagram := make([][]float64, stftResult.TimeFrames)
	var power []float64
	for t := range chromagram {
		power = stftResult.FramePower(t, power)
		chromagram[t] = make([]float64, cs.chromaBins)
		for c, weights := range cs.filterBank {
			sum := 0.0
			for k, w := range weights {
				sum += w * power[k]
			}
			chromagram[t][c] = sum
		}
		cs.normalizeChromaFrame(chromagram[t])
	}

	return chromagram, nil
}

// Mean averages the chromagram over bins and frames.
func (cs *ChromaSTFT) Mean(signal []float64) (float64, error) {
	chromagram, err := cs.ComputeChroma(signal)
	if err != nil {
		return 0, err
	}
	return common.MatrixMean(chromagram), nil
}

// MeanFromSTFT is Mean over an existing STFT.
func (cs *ChromaSTFT) MeanFromSTFT(stftResult *spectral.STFTResult) (float64, error) {
	chromagram, err := cs.ComputeChromaFromSTFT(stftResult)
	if err != nil {
		return 0, err
	}
	return common.MatrixMean(chromagram), nil
}

// normalizeChromaFrame scales a frame so its largest bin is 1
func (cs *ChromaSTFT) normalizeChromaFrame(chromaFrame []float64) {
	peak := 0.0
	for _, v := range chromaFrame {
		peak = max(peak, math.Abs(v))
	}
	if peak < math.SmallestNonzeroFloat64 {
		return
	}
	for i := range chromaFrame {
		chromaFrame[i] /= peak
	}
}

// GetChromaLabels returns the pitch class names in bin order.
func (cs *ChromaSTFT) GetChromaLabels() []string {
	return []string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
}

// GetDominantChroma returns the strongest pitch class per frame.
func (cs *ChromaSTFT) GetDominantChroma(chromagram [][]float64) []int {
	dominant := make([]int, len(chromagram))
	for t, frame := range chromagram {
		best := 0
		for c, v := range frame {
			if v > frame[best] {
				best = c
			}
		}
		dominant[t] = best
	}
	return dominant
}

// FilterBank builds the [nChroma][1+nfft/2] projection from STFT bins to
// pitch classes. Every FFT bin contributes a Gaussian bump to each class,
// each bin's weights are L2-normalized, then scaled by a Gaussian over
// octaves centred on octave 5 with a two-octave deviation.
func FilterBank(sampleRate, nfft, nChroma int, tuningFreq float64) [][]float64 {
	const (
		centerOctave = 5.0
		octaveWidth  = 2.0
	)
	if tuningFreq <= 0 {
		tuningFreq = 440.0
	}
	chromas := float64(nChroma)

	// frqbins[0] is a virtual bin below DC; the rest are FFT bins 1..nfft-1
	frqbins := make([]float64, nfft)
	for k := 1; k < nfft; k++ {
		freq := float64(k) * float64(sampleRate) / float64(nfft)
		frqbins[k] = chromas * math.Log2(freq/(tuningFreq/16))
	}
	frqbins[0] = frqbins[1] - 1.5*chromas

	binWidth := make([]float64, nfft)
	for k := 0; k < nfft-1; k++ {
		binWidth[k] = max(frqbins[k+1]-frqbins[k], 1.0)
	}
	binWidth[nfft-1] = 1

	half := math.Round(chromas / 2)
	weights := make([][]float64, nChroma)
	for c := range weights {
		weights[c] = make([]float64, nfft)
		for k := range nfft {
			d := floorMod(frqbins[k]-float64(c)+half+10*chromas, chromas) - half
			z := 2 * d / binWidth[k]
			weights[c][k] = math.Exp(-0.5 * z * z)
		}
	}

	for k := range nfft {
		norm := 0.0
		for c := range weights {
			norm += weights[c][k] * weights[c][k]
		}
		norm = math.Sqrt(norm)
		octave := (frqbins[k]/chromas - centerOctave) / octaveWidth
		scale := math.Exp(-0.5 * octave * octave)
		if norm >= math.SmallestNonzeroFloat64 {
			scale /= norm
		}
		for c := range weights {
			weights[c][k] *= scale
		}
	}

	// rotate so bin 0 is C rather than A
	shift := 3 * (nChroma / 12)
	numBins := nfft/2 + 1
	bank := make([][]float64, nChroma)
	for c := range bank {
		bank[c] = make([]float64, numBins)
		copy(bank[c], weights[(c+shift)%nChroma][:numBins])
	}
	return bank
}

func floorMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	return r
}
