package testsupport

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/RyanBlaney/trackiq/transcode"
)

// SineWave returns n samples of a sine at freq Hz.
func SineWave(freq float64, sampleRate, n int, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

// WriteWAV encodes samples as a 16-bit mono WAV file at path.
func WriteWAV(t testing.TB, path string, samples []float64, sampleRate int) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	if err := transcode.EncodeWAV(f, samples, sampleRate); err != nil {
		t.Fatalf("EncodeWAV %s: %v", path, err)
	}
}

// WAVBytes returns the encoded WAV file for samples.
func WAVBytes(t testing.TB, samples []float64, sampleRate int) []byte {
	t.Helper()

	path := filepath.Join(t.TempDir(), "clip.wav")
	WriteWAV(t, path, samples, sampleRate)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return data
}
