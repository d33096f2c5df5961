package common

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Mean calculates the arithmetic mean of a slice using gonum
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// MatrixMean averages every element of a rectangular or ragged matrix.
func MatrixMean(m [][]float64) float64 {
	var sum float64
	n := 0
	for _, row := range m {
		sum += floats.Sum(row)
		n += len(row)
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return math.Sqrt(floats.Dot(data, data) / float64(len(data)))
}

// ReflectIndex folds i into [0, n) using half-sample symmetric reflection
// (d c b a | a b c d | d c b a).
func ReflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * n
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i - 1
	}
	return i
}

// MedianFilter applies a centered median filter of odd length size with
// reflected borders.
func MedianFilter(data []float64, size int) []float64 {
	result := make([]float64, len(data))
	if len(data) == 0 {
		return result
	}
	if size <= 1 {
		copy(result, data)
		return result
	}
	if size%2 == 0 {
		size++
	}

	half := size / 2
	window := make([]float64, size)
	for i := range data {
		for k := -half; k <= half; k++ {
			window[k+half] = data[ReflectIndex(i+k, len(data))]
		}
		sort.Float64s(window)
		result[i] = window[half]
	}
	return result
}

// NextPowerOfTwo finds the next power of 2 >= n
func NextPowerOfTwo(n int) int {
	if n <= 0 {
		return 1
	}

	power := 1
	for power < n {
		power <<= 1
	}
	return power
}
