package transcode

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVE format tags from the fmt chunk.
const (
	wavFormatPCM       = 1
	wavFormatIEEEFloat = 3
)

var (
	errInvalidWAV             = errors.New("invalid WAV file")
	errUnsupportedWAVEncoding = errors.New("unsupported WAV encoding")
)

// decodeWAV reads integer PCM or 32-bit float WAV data and downmixes it to
// mono floats. Any other format tag, including WAVE_FORMAT_EXTENSIBLE, is
// rejected so the caller can hand the file to ffmpeg.
func decodeWAV(r io.ReadSeeker) (*AudioData, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return nil, errInvalidWAV
	}

	isFloat := false
	switch {
	case decoder.WavAudioFormat == wavFormatPCM:
	case decoder.WavAudioFormat == wavFormatIEEEFloat && decoder.BitDepth == 32:
		isFloat = true
	default:
		return nil, fmt.Errorf("%w: format tag 0x%04X at %d bits",
			errUnsupportedWAVEncoding, decoder.WavAudioFormat, decoder.BitDepth)
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("read PCM buffer: %w", err)
	}
	if buf == nil || buf.Format == nil {
		return nil, errInvalidWAV
	}

	channels := buf.Format.NumChannels
	if channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", channels)
	}
	sampleRate := buf.Format.SampleRate
	if sampleRate <= 0 {
		sampleRate = int(decoder.SampleRate)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate: %d", sampleRate)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth <= 0 {
		bitDepth = int(decoder.BitDepth)
	}

	codec := fmt.Sprintf("pcm_s%d", bitDepth)
	var pcm []float64
	if isFloat {
		codec = "pcm_f32le"
		pcm = downmixFloat32(buf)
	} else {
		pcm = downmix(buf, bitDepth)
	}

	return &AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   1,
		Duration:   samplesToDuration(len(pcm), sampleRate),
		Source: &SourceInfo{
			Format:         "wav",
			Codec:          codec,
			SampleRate:     sampleRate,
			SourceChannels: channels,
			Decoder:        "native",
		},
	}, nil
}

// downmix averages interleaved channels after scaling to the unit range.
func downmix(buf *audio.IntBuffer, bitDepth int) []float64 {
	channels := buf.Format.NumChannels
	scale := 1.0
	if bitDepth > 0 {
		scale = float64(int64(1) << uint(bitDepth-1))
	}
	// 8-bit WAV is unsigned
	offset := 0.0
	if bitDepth == 8 {
		offset = scale
	}

	frames := len(buf.Data) / channels
	pcm := make([]float64, frames)
	for i := range frames {
		var sum float64
		for c := range channels {
			sum += (float64(buf.Data[i*channels+c]) - offset) / scale
		}
		pcm[i] = sum / float64(channels)
	}
	return pcm
}

// downmixFloat32 averages interleaved channels of an IEEE float buffer. The
// go-audio reader hands back the raw 32-bit patterns as integers.
func downmixFloat32(buf *audio.IntBuffer) []float64 {
	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels
	pcm := make([]float64, frames)
	for i := range frames {
		var sum float64
		for c := range channels {
			sum += float64(math.Float32frombits(uint32(buf.Data[i*channels+c])))
		}
		pcm[i] = sum / float64(channels)
	}
	return pcm
}

// EncodeWAV writes mono samples in [-1, 1] as 16-bit PCM.
func EncodeWAV(w io.WriteSeeker, pcm []float64, sampleRate int) error {
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		SourceBitDepth: 16,
		Data:           make([]int, len(pcm)),
	}
	for i, s := range pcm {
		s = max(-1, min(1, s))
		buf.Data[i] = int(s * 32767)
	}

	encoder := wav.NewEncoder(w, sampleRate, 16, 1, 1)
	if err := encoder.Write(buf); err != nil {
		return fmt.Errorf("write samples: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("finalize wav: %w", err)
	}
	return nil
}
