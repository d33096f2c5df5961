package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func sine(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func writeWAV(t *testing.T, path string, pcm []float64, sampleRate int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()
	if err := EncodeWAV(f, pcm, sampleRate); err != nil {
		t.Fatalf("EncodeWAV failed: %v", err)
	}
}

func TestValidateExtension(t *testing.T) {
	tests := []struct {
		name string
		ok   bool
	}{
		{"song.mp3", true},
		{"SONG.WAV", true},
		{"a.b.flac", true},
		{"voice.m4a", true},
		{"track.ogg", true},
		{"notes.txt", false},
		{"noext", false},
		{"clip.mp4", false},
	}
	for _, tt := range tests {
		err := ValidateExtension(tt.name)
		if tt.ok && err != nil {
			t.Fatalf("ValidateExtension(%q) = %v, want nil", tt.name, err)
		}
		if !tt.ok {
			var ufe *UnsupportedFormatError
			if !errors.As(err, &ufe) {
				t.Fatalf("ValidateExtension(%q) = %v, want UnsupportedFormatError", tt.name, err)
			}
		}
	}
}

func TestAllowedExtensionsSorted(t *testing.T) {
	want := []string{".flac", ".m4a", ".mp3", ".ogg", ".wav"}
	got := AllowedExtensions()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestDecodeWAVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	src := sine(440, 22050, 11025)
	writeWAV(t, path, src, 22050)

	data, err := NewDecoder(nil).DecodeFile(context.Background(), path)
	if err != nil {
		t.Fatalf("DecodeFile failed: %v", err)
	}
	if data.SampleRate != 22050 {
		t.Fatalf("sample rate = %d, want 22050", data.SampleRate)
	}
	if len(data.PCM) != len(src) {
		t.Fatalf("len = %d, want %d", len(data.PCM), len(src))
	}
	for i := range src {
		if math.Abs(data.PCM[i]-src[i]) > 1e-3 {
			t.Fatalf("sample %d = %f, want %f", i, data.PCM[i], src[i])
		}
	}
	if data.Source == nil || data.Source.Decoder != "native" {
		t.Fatalf("expected native decoder source info, got %+v", data.Source)
	}
}

func TestDecodeWAVDownmixesStereo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 8000},
		SourceBitDepth: 16,
	}
	for range 800 {
		buf.Data = append(buf.Data, 16384, 8192)
	}
	enc := wav.NewEncoder(f, 8000, 16, 2, 1)
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close encoder: %v", err)
	}
	f.Close()

	data, err := NewDecoder(nil).DecodeFile(context.Background(), path)
	if err != nil {
		t.Fatalf("DecodeFile failed: %v", err)
	}
	if len(data.PCM) != 800 {
		t.Fatalf("len = %d, want 800", len(data.PCM))
	}
	want := (16384.0 + 8192.0) / 2 / 32768
	if math.Abs(data.PCM[10]-want) > 1e-9 {
		t.Fatalf("downmixed sample = %f, want %f", data.PCM[10], want)
	}
	if data.Source.SourceChannels != 2 {
		t.Fatalf("source channels = %d, want 2", data.Source.SourceChannels)
	}
}

func TestDecodeResamplesToTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hi.wav")
	writeWAV(t, path, sine(440, 48000, 48000), 48000)

	cfg := DefaultDecoderConfig()
	cfg.TargetSampleRate = 16000
	data, err := NewDecoder(cfg).DecodeFile(context.Background(), path)
	if err != nil {
		t.Fatalf("DecodeFile failed: %v", err)
	}
	if data.SampleRate != 16000 {
		t.Fatalf("sample rate = %d, want 16000", data.SampleRate)
	}
	if math.Abs(float64(len(data.PCM))-16000) > 320 {
		t.Fatalf("resampled length = %d, want about 16000", len(data.PCM))
	}
}

// writeRawWAV writes a canonical 44-byte header with the given format tag
// followed by payload.
func writeRawWAV(t *testing.T, path string, formatTag, bitDepth uint16, channels uint16, sampleRate uint32, payload []byte) {
	t.Helper()
	blockAlign := channels * bitDepth / 8
	var b bytes.Buffer
	b.WriteString("RIFF")
	binary.Write(&b, binary.LittleEndian, uint32(36+len(payload)))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	binary.Write(&b, binary.LittleEndian, uint32(16))
	binary.Write(&b, binary.LittleEndian, formatTag)
	binary.Write(&b, binary.LittleEndian, channels)
	binary.Write(&b, binary.LittleEndian, sampleRate)
	binary.Write(&b, binary.LittleEndian, sampleRate*uint32(blockAlign))
	binary.Write(&b, binary.LittleEndian, blockAlign)
	binary.Write(&b, binary.LittleEndian, bitDepth)
	b.WriteString("data")
	binary.Write(&b, binary.LittleEndian, uint32(len(payload)))
	b.Write(payload)
	if err := os.WriteFile(path, b.Bytes(), 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
}

func TestDecodeFloat32WAV(t *testing.T) {
	const sr = 22050
	src := sine(440, sr, 2205)
	for i := range src {
		src[i] *= 0.2
	}
	var payload bytes.Buffer
	for _, s := range src {
		binary.Write(&payload, binary.LittleEndian, float32(s))
	}
	path := filepath.Join(t.TempDir(), "float.wav")
	writeRawWAV(t, path, 3, 32, 1, sr, payload.Bytes())

	data, err := NewDecoder(nil).DecodeFile(context.Background(), path)
	if err != nil {
		t.Fatalf("DecodeFile failed: %v", err)
	}
	if len(data.PCM) != len(src) {
		t.Fatalf("len = %d, want %d", len(data.PCM), len(src))
	}
	var sumSq float64
	for i := range src {
		if math.Abs(data.PCM[i]-src[i]) > 1e-6 {
			t.Fatalf("sample %d = %f, want %f", i, data.PCM[i], src[i])
		}
		sumSq += data.PCM[i] * data.PCM[i]
	}
	if rms := math.Sqrt(sumSq / float64(len(src))); math.Abs(rms-0.1/math.Sqrt2) > 1e-3 {
		t.Fatalf("rms = %f, want %f", rms, 0.1/math.Sqrt2)
	}
	if data.Source.Decoder != "native" || data.Source.Codec != "pcm_f32le" {
		t.Fatalf("unexpected source info %+v", data.Source)
	}
}

func TestDecodeWAVRejectsUnknownFormatTag(t *testing.T) {
	// 16-bit payload labelled as ADPCM must not be read as PCM
	path := filepath.Join(t.TempDir(), "adpcm.wav")
	writeRawWAV(t, path, 2, 16, 1, 8000, make([]byte, 1600))

	cfg := DefaultDecoderConfig()
	cfg.FFmpegPath = filepath.Join(t.TempDir(), "no-ffmpeg")
	_, err := NewDecoder(cfg).DecodeFile(context.Background(), path)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}

	if _, err := decodeWAV(bytes.NewReader(mustReadFile(t, path))); !errors.Is(err, errUnsupportedWAVEncoding) && !errors.Is(err, errInvalidWAV) {
		t.Fatalf("decodeWAV error = %v, want an unsupported encoding error", err)
	}
}

func mustReadFile(t *testing.T, path string) []byte {
	t.Helper()
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return raw
}

func TestDecodeCorruptWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wav")
	if err := os.WriteFile(path, []byte("definitely not audio"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := NewDecoder(nil).DecodeFile(context.Background(), path)
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
}

func TestDecodeBytesRejectsUnknownExtension(t *testing.T) {
	_, err := NewDecoder(nil).DecodeBytes(context.Background(), []byte{1, 2, 3}, ".txt")
	var ufe *UnsupportedFormatError
	if !errors.As(err, &ufe) {
		t.Fatalf("expected UnsupportedFormatError, got %v", err)
	}
}

func TestDecodeBytesWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	writeWAV(t, path, sine(220, 8000, 4000), 8000)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	data, err := NewDecoder(nil).DecodeBytes(context.Background(), raw, ".wav")
	if err != nil {
		t.Fatalf("DecodeBytes failed: %v", err)
	}
	if len(data.PCM) != 4000 || data.SampleRate != 8000 {
		t.Fatalf("got %d samples at %d Hz", len(data.PCM), data.SampleRate)
	}
}

func TestParseFFprobeOutput(t *testing.T) {
	raw := []byte(`{"streams":[{"codec_type":"audio","codec_name":"mp3","sample_rate":"44100","channels":2,"duration":"3.5","bit_rate":"128000","codec_long_name":"MP3"}]}`)
	meta, err := parseFFprobeOutput(raw)
	if err != nil {
		t.Fatalf("parseFFprobeOutput failed: %v", err)
	}
	if meta.SampleRate != 44100 || meta.Channels != 2 || meta.Codec != "mp3" || meta.Bitrate != 128000 {
		t.Fatalf("unexpected metadata %+v", meta)
	}

	if _, err := parseFFprobeOutput([]byte(`{"streams":[]}`)); err == nil {
		t.Fatal("expected error for missing streams")
	}
}

func TestDecodeFLACWithFFmpeg(t *testing.T) {
	ffmpeg, err := exec.LookPath("ffmpeg")
	if err != nil {
		t.Skip("ffmpeg not installed")
	}
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not installed")
	}

	dir := t.TempDir()
	wavPath := filepath.Join(dir, "tone.wav")
	flacPath := filepath.Join(dir, "tone.flac")
	writeWAV(t, wavPath, sine(440, 16000, 16000), 16000)
	if out, err := exec.Command(ffmpeg, "-v", "error", "-i", wavPath, flacPath).CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg convert: %v: %s", err, out)
	}

	data, err := NewDecoder(nil).DecodeFile(context.Background(), flacPath)
	if err != nil {
		t.Fatalf("DecodeFile failed: %v", err)
	}
	if data.SampleRate != 16000 {
		t.Fatalf("sample rate = %d, want 16000", data.SampleRate)
	}
	if math.Abs(float64(len(data.PCM))-16000) > 100 {
		t.Fatalf("len = %d, want about 16000", len(data.PCM))
	}
}
