package spectral

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// FFT wraps mjibson/go-dsp for real-valued frames.
type FFT struct{}

// NewFFT creates a new FFT calculator
func NewFFT() *FFT {
	return &FFT{}
}

// Compute returns the full complex spectrum of a real frame. go-dsp handles
// non-power-of-two sizes.
func (f *FFT) Compute(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// HalfSpectrum returns bins 0..n/2 of the spectrum of x.
func (f *FFT) HalfSpectrum(x []float64) []complex128 {
	full := f.Compute(x)
	if len(full) == 0 {
		return full
	}
	return full[:len(full)/2+1]
}

// Magnitude returns |X[k]| for bins 0..n/2.
func (f *FFT) Magnitude(x []float64) []float64 {
	half := f.HalfSpectrum(x)
	mags := make([]float64, len(half))
	for i, c := range half {
		mags[i] = cmplx.Abs(c)
	}
	return mags
}

// InverseReal rebuilds an n-sample real frame from its non-negative bins
// (n/2+1 values), using conjugate symmetry for the rest.
func (f *FFT) InverseReal(half []complex128, n int) []float64 {
	if n == 0 || len(half) == 0 {
		return []float64{}
	}

	full := make([]complex128, n)
	for k := 0; k < len(half) && k < n; k++ {
		full[k] = half[k]
	}
	for k := 1; k < (n+1)/2; k++ {
		if k < len(half) {
			full[n-k] = cmplx.Conj(half[k])
		}
	}
	// DC and Nyquist of a real signal carry no imaginary part
	full[0] = complex(real(full[0]), 0)
	if n%2 == 0 && n/2 < len(half) {
		full[n/2] = complex(real(half[n/2]), 0)
	}

	inv := fft.IFFT(full)
	out := make([]float64, n)
	for i, v := range inv {
		out[i] = real(v)
	}
	return out
}
