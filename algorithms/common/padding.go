package common

// PadMode selects how samples outside a signal are synthesized.
type PadMode int

const (
	// PadConstant fills with zeros.
	PadConstant PadMode = iota
	// PadEdge repeats the first and last sample.
	PadEdge
	// PadReflect mirrors around the edge sample (c b | a b c | b a).
	PadReflect
)

// PadToEven appends one zero when len(signal) is odd. The input is never
// modified; an even-length input is returned as is.
func PadToEven(signal []float64) []float64 {
	if len(signal)%2 == 0 {
		return signal
	}
	padded := make([]float64, len(signal)+1)
	copy(padded, signal)
	return padded
}

// PadCenter adds pad samples on both sides of signal.
func PadCenter(signal []float64, pad int, mode PadMode) []float64 {
	return PadBoth(signal, pad, pad, mode)
}

// PadBoth adds left and right padding using mode.
func PadBoth(signal []float64, left, right int, mode PadMode) []float64 {
	n := len(signal)
	out := make([]float64, left+n+right)
	copy(out[left:], signal)
	if n == 0 || mode == PadConstant {
		return out
	}

	for i := range left {
		out[left-1-i] = padSample(signal, -1-i, mode)
	}
	for i := range right {
		out[left+n+i] = padSample(signal, n+i, mode)
	}
	return out
}

func padSample(signal []float64, idx int, mode PadMode) float64 {
	n := len(signal)
	switch mode {
	case PadEdge:
		if idx < 0 {
			return signal[0]
		}
		return signal[n-1]
	case PadReflect:
		if n == 1 {
			return signal[0]
		}
		period := 2 * (n - 1)
		idx %= period
		if idx < 0 {
			idx += period
		}
		if idx >= n {
			idx = period - idx
		}
		return signal[idx]
	default:
		return 0
	}
}

// FrameCount is the number of full frames of length frameLength at hop that
// fit in n samples.
func FrameCount(n, frameLength, hop int) int {
	if n < frameLength || hop <= 0 {
		return 0
	}
	return 1 + (n-frameLength)/hop
}

// Frames slices signal into overlapping frames that share its backing array.
func Frames(signal []float64, frameLength, hop int) [][]float64 {
	count := FrameCount(len(signal), frameLength, hop)
	frames := make([][]float64, count)
	for i := range count {
		start := i * hop
		frames[i] = signal[start : start+frameLength]
	}
	return frames
}
