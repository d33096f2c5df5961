package spectral

import (
	"fmt"
	"math/cmplx"
	"runtime"
	"sync"

	"github.com/RyanBlaney/trackiq/algorithms/common"
	"github.com/RyanBlaney/trackiq/algorithms/windowing"
)

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	fft         *FFT
	keepComplex bool
}

// STFTResult holds the result of STFT analysis
type STFTResult struct {
	Magnitude      [][]float64    `json:"magnitude"`   // Time x Frequency magnitude matrix
	Complex        [][]complex128 `json:"-"`           // Raw complex spectrogram
	TimeFrames     int            `json:"time_frames"` // Number of time frames
	FreqBins       int            `json:"freq_bins"`   // n_fft/2 + 1
	SampleRate     int            `json:"sample_rate"`
	WindowSize     int            `json:"window_size"`
	HopSize        int            `json:"hop_size"`
	FreqResolution float64        `json:"freq_resolution"` // Hz per bin
	TimeResolution float64        `json:"time_resolution"` // seconds per frame
}

// FramePower writes |X|^2 of frame t into dst, growing it when needed, and
// returns it. Callers iterating over many frames reuse one buffer this way
// instead of holding a full power matrix.
func (r *STFTResult) FramePower(t int, dst []float64) []float64 {
	frame := r.Magnitude[t]
	if cap(dst) < len(frame) {
		dst = make([]float64, len(frame))
	}
	dst = dst[:len(frame)]
	for k, m := range frame {
		dst[k] = m * m
	}
	return dst
}

// BinFrequencies returns the centre frequency of each bin in Hz.
func (r *STFTResult) BinFrequencies() []float64 {
	freqs := make([]float64, r.FreqBins)
	for k := range freqs {
		freqs[k] = float64(k) * r.FreqResolution
	}
	return freqs
}

// Window interface for windowing functions
type Window interface {
	ApplyInPlace(signal []float64) error
	Coefficients() []float64
}

// NewSTFT creates an STFT calculator that keeps both the magnitude and the
// complex spectrogram.
func NewSTFT() *STFT {
	return &STFT{
		fft:         NewFFT(),
		keepComplex: true,
	}
}

// NewMagnitudeSTFT creates an STFT calculator whose results carry only
// magnitudes. Complex is nil.
func NewMagnitudeSTFT() *STFT {
	return &STFT{fft: NewFFT()}
}

// ComputeCentered pads windowSize/2 zeros on each side and analyses with a
// periodic Hann window, so frame t is centred on sample t*hopSize.
func (s *STFT) ComputeCentered(signal []float64, windowSize, hopSize, sampleRate int) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}
	padded := common.PadCenter(signal, windowSize/2, common.PadConstant)
	return s.ComputeWithWindow(padded, windowSize, hopSize, sampleRate, windowing.NewHann(windowSize, false))
}

// ComputeWithWindow computes STFT with parallel processing and custom window type
func (s *STFT) ComputeWithWindow(signal []float64, windowSize int, hopSize int, sampleRate int, window Window) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive")
	}

	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive")
	}

	numFrames := common.FrameCount(len(signal), windowSize, hopSize)
	if numFrames <= 0 {
		return nil, fmt.Errorf("signal too short for given window size and hop size")
	}

	freqBins := windowSize/2 + 1

	magnitude := make([][]float64, numFrames)
	var complexSpectrum [][]complex128
	if s.keepComplex {
		complexSpectrum = make([][]complex128, numFrames)
	}
	for i := range numFrames {
		magnitude[i] = make([]float64, freqBins)
		if s.keepComplex {
			complexSpectrum[i] = make([]complex128, freqBins)
		}
	}

	numWorkers := s.getOptimalWorkerCount(numFrames)
	jobs := make(chan int, numFrames)

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// Reuse frame buffer for this worker
			frameBuffer := make([]float64, windowSize)

			for frameIdx := range jobs {
				start := frameIdx * hopSize
				copy(frameBuffer, signal[start:start+windowSize])

				if window != nil {
					if err := window.ApplyInPlace(frameBuffer); err != nil {
						errOnce.Do(func() { firstErr = err })
						continue
					}
				}

				fftResult := s.fft.Compute(frameBuffer)
				for i := range freqBins {
					magnitude[frameIdx][i] = cmplx.Abs(fftResult[i])
				}
				if complexSpectrum != nil {
					copy(complexSpectrum[frameIdx], fftResult[:freqBins])
				}
			}
		}()
	}

	for frameIdx := range numFrames {
		jobs <- frameIdx
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("windowing failed: %w", firstErr)
	}

	return &STFTResult{
		Magnitude:      magnitude,
		Complex:        complexSpectrum,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		FreqResolution: float64(sampleRate) / float64(windowSize),
		TimeResolution: float64(hopSize) / float64(sampleRate),
	}, nil
}

// InverseCentered undoes ComputeCentered: each frame is inverse transformed,
// windowed again, overlap-added and divided by the summed squared window.
// The result is trimmed or zero-padded to length samples.
func (s *STFT) InverseCentered(frames [][]complex128, windowSize, hopSize, length int) ([]float64, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("no frames")
	}
	ola, err := NewOverlapAdd(windowSize, hopSize, len(frames))
	if err != nil {
		return nil, err
	}
	for t, frame := range frames {
		if err := ola.Add(t, frame); err != nil {
			return nil, err
		}
	}
	return ola.Result(length), nil
}

// OverlapAdd resynthesizes a centred STFT one frame at a time, so callers
// can build masked frames on the fly instead of storing a second
// spectrogram. It is not safe for concurrent use.
type OverlapAdd struct {
	fft        *FFT
	windowSize int
	hopSize    int
	numFrames  int
	win        []float64
	out        []float64
	norm       []float64
}

// NewOverlapAdd prepares an accumulator for numFrames frames.
func NewOverlapAdd(windowSize, hopSize, numFrames int) (*OverlapAdd, error) {
	if windowSize <= 0 || hopSize <= 0 {
		return nil, fmt.Errorf("window and hop size must be positive")
	}
	if numFrames <= 0 {
		return nil, fmt.Errorf("no frames")
	}
	total := windowSize + hopSize*(numFrames-1)
	return &OverlapAdd{
		fft:        NewFFT(),
		windowSize: windowSize,
		hopSize:    hopSize,
		numFrames:  numFrames,
		win:        windowing.NewHann(windowSize, false).Coefficients(),
		out:        make([]float64, total),
		norm:       make([]float64, total),
	}, nil
}

// Add inverse transforms frame t and accumulates it.
func (o *OverlapAdd) Add(t int, frame []complex128) error {
	if t < 0 || t >= o.numFrames {
		return fmt.Errorf("frame index %d out of range [0, %d)", t, o.numFrames)
	}
	if len(frame) != o.windowSize/2+1 {
		return fmt.Errorf("frame %d has %d bins, want %d", t, len(frame), o.windowSize/2+1)
	}
	samples := o.fft.InverseReal(frame, o.windowSize)
	offset := t * o.hopSize
	for i, v := range samples {
		o.out[offset+i] += v * o.win[i]
		o.norm[offset+i] += o.win[i] * o.win[i]
	}
	return nil
}

// Result normalizes the accumulated signal and removes the centring pad.
func (o *OverlapAdd) Result(length int) []float64 {
	const tiny = 1e-300
	result := make([]float64, length)
	start := o.windowSize / 2
	for i := range result {
		j := start + i
		if j >= len(o.out) {
			break
		}
		if o.norm[j] > tiny {
			result[i] = o.out[j] / o.norm[j]
		} else {
			result[i] = o.out[j]
		}
	}
	return result
}

// getOptimalWorkerCount determines the optimal number of workers based on workload
func (s *STFT) getOptimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	if numFrames < 100 {
		return max(1, min(numCPU/2, numFrames))
	}

	if numFrames < 1000 {
		return max(1, min(numCPU, 8))
	}

	return numCPU
}
