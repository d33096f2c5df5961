package harmonic

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/RyanBlaney/trackiq/algorithms/common"
	"github.com/RyanBlaney/trackiq/algorithms/spectral"
)

// DefaultKernelSize is the median filter length used in both directions.
const DefaultKernelSize = 31

// HPSS splits a signal into harmonic and percussive parts by median
// filtering its magnitude spectrogram.
type HPSS struct {
	kernelSize int
	windowSize int
	hopSize    int
	stft       *spectral.STFT
}

// HPSSResult holds the two time-domain components. Both have the length of
// the input.
type HPSSResult struct {
	Harmonic   []float64
	Percussive []float64
}

// NewHPSS creates a separator; an even kernel size is rounded up.
func NewHPSS(kernelSize, windowSize, hopSize int) *HPSS {
	if kernelSize <= 0 {
		kernelSize = DefaultKernelSize
	}
	if kernelSize%2 == 0 {
		kernelSize++
	}
	return &HPSS{
		kernelSize: kernelSize,
		windowSize: windowSize,
		hopSize:    hopSize,
		stft:       spectral.NewSTFT(),
	}
}

// resynthBlock is the number of frames masked in parallel before they are
// overlap-added.
const resynthBlock = 256

// Separate computes soft Wiener-style masks from the time-smoothed
// (harmonic) and frequency-smoothed (percussive) magnitudes and resynthesizes
// each masked spectrogram.
func (h *HPSS) Separate(signal []float64, sampleRate int) (*HPSSResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	stft, err := h.stft.ComputeCentered(signal, h.windowSize, h.hopSize, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("HPSS STFT failed: %w", err)
	}
	return h.SeparateSTFT(context.Background(), stft, len(signal))
}

// SeparateSTFT separates an existing centred STFT that carries its complex
// spectrogram. Both outputs have length samples. Only the harmonic
// enhancement is held for the whole signal; percussive enhancement and the
// masked frames are built block by block during resynthesis.
func (h *HPSS) SeparateSTFT(ctx context.Context, stft *spectral.STFTResult, length int) (*HPSSResult, error) {
	if stft == nil || stft.TimeFrames == 0 {
		return nil, fmt.Errorf("empty STFT")
	}
	if stft.Complex == nil {
		return nil, fmt.Errorf("HPSS needs the complex spectrogram")
	}
	if stft.WindowSize != h.windowSize || stft.HopSize != h.hopSize {
		return nil, fmt.Errorf("STFT framing %d/%d does not match HPSS framing %d/%d",
			stft.WindowSize, stft.HopSize, h.windowSize, h.hopSize)
	}

	harmEnh := h.filterAcrossTime(stft.Magnitude)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	harmOLA, err := spectral.NewOverlapAdd(h.windowSize, h.hopSize, stft.TimeFrames)
	if err != nil {
		return nil, fmt.Errorf("harmonic resynthesis failed: %w", err)
	}
	percOLA, err := spectral.NewOverlapAdd(h.windowSize, h.hopSize, stft.TimeFrames)
	if err != nil {
		return nil, fmt.Errorf("percussive resynthesis failed: %w", err)
	}

	block := min(resynthBlock, stft.TimeFrames)
	harmFrames := make([][]complex128, block)
	percFrames := make([][]complex128, block)
	for i := range block {
		harmFrames[i] = make([]complex128, stft.FreqBins)
		percFrames[i] = make([]complex128, stft.FreqBins)
	}

	for start := 0; start < stft.TimeFrames; start += block {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := min(block, stft.TimeFrames-start)
		parallelFor(n, func(i int) {
			t := start + i
			percEnh := common.MedianFilter(stft.Magnitude[t], h.kernelSize)
			for k, c := range stft.Complex[t] {
				mh, mp := softMasks(harmEnh[t][k], percEnh[k])
				harmFrames[i][k] = c * complex(mh, 0)
				percFrames[i][k] = c * complex(mp, 0)
			}
		})
		for i := range n {
			if err := harmOLA.Add(start+i, harmFrames[i]); err != nil {
				return nil, fmt.Errorf("harmonic resynthesis failed: %w", err)
			}
			if err := percOLA.Add(start+i, percFrames[i]); err != nil {
				return nil, fmt.Errorf("percussive resynthesis failed: %w", err)
			}
		}
	}

	return &HPSSResult{Harmonic: harmOLA.Result(length), Percussive: percOLA.Result(length)}, nil
}

// softMasks returns power-2 masks for the two components. Bins where both
// enhanced magnitudes vanish go to neither component.
func softMasks(harm, perc float64) (float64, float64) {
	z := max(harm, perc)
	if z < math.SmallestNonzeroFloat64 || math.IsNaN(z) {
		return 0, 0
	}
	x, y := harm/z, perc/z
	x2, y2 := x*x, y*y
	den := x2 + y2
	return x2 / den, y2 / den
}

// filterAcrossTime median-filters every frequency bin along time.
func (h *HPSS) filterAcrossTime(mag [][]float64) [][]float64 {
	numFrames := len(mag)
	numBins := len(mag[0])
	out := make([][]float64, numFrames)
	for t := range out {
		out[t] = make([]float64, numBins)
	}

	parallelFor(numBins, func(k int) {
		column := make([]float64, numFrames)
		for t := range numFrames {
			column[t] = mag[t][k]
		}
		filtered := common.MedianFilter(column, h.kernelSize)
		for t, v := range filtered {
			out[t][k] = v
		}
	})
	return out
}

func parallelFor(n int, fn func(i int)) {
	workers := max(1, min(runtime.NumCPU(), n))
	jobs := make(chan int, n)
	for i := range n {
		jobs <- i
	}
	close(jobs)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				fn(i)
			}
		}()
	}
	wg.Wait()
}
