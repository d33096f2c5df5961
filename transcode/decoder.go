package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/trackiq/logging"
)

// AudioData is a decoded mono waveform.
type AudioData struct {
	PCM        []float64     `json:"-"`
	SampleRate int           `json:"sample_rate"`
	Channels   int           `json:"channels"`
	Duration   time.Duration `json:"duration"`
	Source     *SourceInfo   `json:"source,omitempty"`
}

// SourceInfo describes the input before downmixing and resampling.
type SourceInfo struct {
	Path           string `json:"path,omitempty"`
	Format         string `json:"format"`
	Codec          string `json:"codec,omitempty"`
	SampleRate     int    `json:"sample_rate"`
	SourceChannels int    `json:"source_channels"`
	Bitrate        int    `json:"bitrate,omitempty"`
	Decoder        string `json:"decoder"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetSampleRate int           `json:"target_sample_rate"` // 0 keeps the native rate
	ResampleQuality  string        `json:"resample_quality"`   // "fast", "medium", "high"
	FFmpegPath       string        `json:"ffmpeg_path"`
	FFprobePath      string        `json:"ffprobe_path"`
	Timeout          time.Duration `json:"timeout"` // per ffmpeg/ffprobe invocation
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate: 0,
		ResampleQuality:  "high",
		FFmpegPath:       "ffmpeg",
		FFprobePath:      "ffprobe",
		Timeout:          2 * time.Minute,
	}
}

// Decoder turns audio files into mono PCM. WAV is read natively, everything
// else goes through ffmpeg.
type Decoder struct {
	config *DecoderConfig
}

// AudioMetadata holds detected audio properties from FFprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{config: config}
}

// DecodeFile decodes the file at path to mono PCM.
func (d *Decoder) DecodeFile(ctx context.Context, path string) (*AudioData, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeFile",
		"filename":  path,
	})

	if err := ValidateExtension(path); err != nil {
		return nil, err
	}

	logger.Debug("Starting audio file decode")

	var (
		data *AudioData
		err  error
	)
	if Extension(path) == ".wav" {
		data, err = d.decodeWAVFile(ctx, path, logger)
	} else {
		data, err = d.decodeFileWithFFmpeg(ctx, path, logger)
	}
	if err != nil {
		return nil, err
	}
	if data.Source != nil {
		data.Source.Path = path
	}
	return d.finish(data, path)
}

// DecodeBytes decodes in-memory audio. ext selects the decoder (".wav", ".mp3", ...).
func (d *Decoder) DecodeBytes(ctx context.Context, data []byte, ext string) (*AudioData, error) {
	logger := logging.WithContext(ctx).WithFields(logging.Fields{
		"component": "audio_decoder",
		"function":  "DecodeBytes",
		"data_size": len(data),
	})

	if err := ValidateExtension("input" + ext); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, &DecodeError{Op: "read", Err: errors.New("empty audio data")}
	}

	logger.Debug("Starting audio bytes decode")

	var (
		audioData *AudioData
		err       error
	)
	if strings.ToLower(ext) == ".wav" {
		audioData, err = decodeWAV(bytes.NewReader(data))
		if err != nil {
			logger.Debug("Native WAV decode failed, trying ffmpeg", logging.Fields{"error": err.Error()})
			audioData, err = d.ffmpegFallback(err, func() (*AudioData, error) {
				return d.decodeWithFFmpeg(ctx, data, logger)
			})
		}
	} else {
		audioData, err = d.decodeWithFFmpeg(ctx, data, logger)
	}
	if err != nil {
		return nil, err
	}
	return d.finish(audioData, "")
}

func (d *Decoder) decodeWAVFile(ctx context.Context, path string, logger logging.Logger) (*AudioData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &DecodeError{Path: path, Op: "open", Err: err}
	}
	defer f.Close()

	data, err := decodeWAV(f)
	if err == nil {
		return data, nil
	}

	// extensible, compressed and 64-bit float WAV are left to ffmpeg
	logger.Debug("Native WAV decode failed, trying ffmpeg", logging.Fields{"error": err.Error()})
	return d.ffmpegFallback(&DecodeError{Path: path, Op: "wav", Err: err}, func() (*AudioData, error) {
		return d.decodeFileWithFFmpeg(ctx, path, logger)
	})
}

// ffmpegFallback runs decode and keeps nativeErr when ffmpeg is not installed.
func (d *Decoder) ffmpegFallback(nativeErr error, decode func() (*AudioData, error)) (*AudioData, error) {
	if _, err := exec.LookPath(d.config.FFmpegPath); err != nil {
		var de *DecodeError
		if errors.As(nativeErr, &de) {
			return nil, nativeErr
		}
		return nil, &DecodeError{Op: "wav", Err: nativeErr}
	}
	return decode()
}

// finish resamples when a target rate is configured and rejects empty output.
func (d *Decoder) finish(data *AudioData, path string) (*AudioData, error) {
	if len(data.PCM) == 0 {
		return nil, &DecodeError{Path: path, Op: "decode", Err: errors.New("no audio samples decoded")}
	}

	target := d.config.TargetSampleRate
	if target > 0 && target != data.SampleRate {
		pcm, err := Resample(data.PCM, data.SampleRate, target, d.config.ResampleQuality)
		if err != nil {
			return nil, &DecodeError{Path: path, Op: "resample", Err: err}
		}
		data.PCM = pcm
		data.SampleRate = target
		data.Duration = samplesToDuration(len(pcm), target)
	}
	return data, nil
}

func (d *Decoder) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.config.Timeout > 0 {
		return context.WithTimeout(ctx, d.config.Timeout)
	}
	return context.WithCancel(ctx)
}

// probeAudio uses ffprobe to get audio information from a file or stdin.
func (d *Decoder) probeAudio(ctx context.Context, input string, stdin []byte) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "a:0",
		input,
	}

	probeCtx, cancel := d.commandContext(ctx)
	defer cancel()

	cmd := exec.CommandContext(probeCtx, d.config.FFprobePath, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	output, err := cmd.Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("ffprobe failed: %w, stderr: %s", err, strings.TrimSpace(string(exitError.Stderr)))
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseFFprobeOutput(output)
}

// parseFFprobeOutput parses ffprobe JSON to extract audio metadata
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType     string `json:"codec_type"`
			CodecName     string `json:"codec_name"`
			SampleRate    string `json:"sample_rate"`
			Channels      int    `json:"channels"`
			Duration      string `json:"duration"`
			BitRate       string `json:"bit_rate"`
			CodecLongName string `json:"codec_long_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("no audio streams found")
	}

	stream := probe.Streams[0]
	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("stream is not audio type: %s", stream.CodecType)
	}

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %q", stream.SampleRate)
	}

	duration, err := strconv.ParseFloat(stream.Duration, 64)
	if err != nil {
		duration = 0
	}

	bitrate, err := strconv.Atoi(stream.BitRate)
	if err != nil {
		bitrate = 0
	}

	if stream.Channels <= 0 {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     stream.CodecLongName,
	}, nil
}

func (d *Decoder) decodeFileWithFFmpeg(ctx context.Context, path string, logger logging.Logger) (*AudioData, error) {
	metadata, err := d.probeAudio(ctx, path, nil)
	if err != nil {
		logger.Error(err, "Failed to probe audio file")
		return nil, &DecodeError{Path: path, Op: "probe", Err: err}
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": metadata.SampleRate,
		"input_channels":    metadata.Channels,
		"input_codec":       metadata.Codec,
		"input_duration":    metadata.Duration,
	})

	output, err := d.runFFmpeg(ctx, path, nil, metadata, logger)
	if err != nil {
		return nil, &DecodeError{Path: path, Op: "ffmpeg", Err: err}
	}
	return d.processFFmpegOutput(output, metadata, path, logger), nil
}

func (d *Decoder) decodeWithFFmpeg(ctx context.Context, data []byte, logger logging.Logger) (*AudioData, error) {
	metadata, err := d.probeAudio(ctx, "pipe:0", data)
	if err != nil {
		logger.Error(err, "Failed to probe audio metadata")
		return nil, &DecodeError{Op: "probe", Err: err}
	}

	output, err := d.runFFmpeg(ctx, "pipe:0", data, metadata, logger)
	if err != nil {
		return nil, &DecodeError{Op: "ffmpeg", Err: err}
	}
	return d.processFFmpegOutput(output, metadata, "", logger), nil
}

func (d *Decoder) runFFmpeg(ctx context.Context, input string, stdin []byte, metadata *AudioMetadata, logger logging.Logger) ([]byte, error) {
	args := d.buildFFmpegArgs(input, metadata)

	runCtx, cancel := d.commandContext(ctx)
	defer cancel()

	cmd := exec.CommandContext(runCtx, d.config.FFmpegPath, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	logger.Debug("Running ffmpeg command", logging.Fields{
		"args": strings.Join(args, " "),
	})

	output, err := cmd.Output()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			logger.Error(err, "Ffmpeg decode failed", logging.Fields{
				"stderr": string(exitError.Stderr),
			})
			return nil, fmt.Errorf("ffmpeg decode failed: %w, stderr: %s", err, strings.TrimSpace(string(exitError.Stderr)))
		}
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}
	return output, nil
}

// buildFFmpegArgs decodes the first audio stream to raw mono f64le at the native rate.
func (d *Decoder) buildFFmpegArgs(input string, metadata *AudioMetadata) []string {
	return []string{
		"-v", "error",
		"-i", input,
		"-map", "0:a:0",
		"-f", "f64le",
		"-ac", "1",
		"-ar", strconv.Itoa(metadata.SampleRate),
		"pipe:1",
	}
}

func (d *Decoder) processFFmpegOutput(output []byte, metadata *AudioMetadata, path string, logger logging.Logger) *AudioData {
	samples := bytesToFloat64(output)
	duration := samplesToDuration(len(samples), metadata.SampleRate)

	logger.Debug("FFmpeg decode completed successfully", logging.Fields{
		"output_samples":  len(samples),
		"sample_rate":     metadata.SampleRate,
		"output_duration": duration.Seconds(),
	})

	return &AudioData{
		PCM:        samples,
		SampleRate: metadata.SampleRate,
		Channels:   1,
		Duration:   duration,
		Source: &SourceInfo{
			Path:           path,
			Format:         metadata.Format,
			Codec:          metadata.Codec,
			SampleRate:     metadata.SampleRate,
			SourceChannels: metadata.Channels,
			Bitrate:        metadata.Bitrate,
			Decoder:        "ffmpeg",
		},
	}
}

// bytesToFloat64 converts raw float64 bytes to []float64
func bytesToFloat64(data []byte) []float64 {
	if len(data)%8 != 0 {
		data = data[:len(data)-(len(data)%8)]
	}

	if len(data) == 0 {
		return nil
	}

	sampleCount := len(data) / 8
	samples := make([]float64, sampleCount)

	for i := range sampleCount {
		bits := binary.LittleEndian.Uint64(data[i*8 : i*8+8])
		samples[i] = math.Float64frombits(bits)
	}

	return samples
}

func samplesToDuration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(sampleRate)
}

// CheckFFmpeg reports whether the configured ffmpeg and ffprobe binaries run.
func (d *Decoder) CheckFFmpeg(ctx context.Context) error {
	for _, bin := range []string{d.config.FFmpegPath, d.config.FFprobePath} {
		if err := exec.CommandContext(ctx, bin, "-version").Run(); err != nil {
			return fmt.Errorf("%s not available: %w", bin, err)
		}
	}
	return nil
}
