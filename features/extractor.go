package features

import (
	"context"
	"fmt"
	"time"

	"github.com/RyanBlaney/trackiq/algorithms/common"
	"github.com/RyanBlaney/trackiq/algorithms/spectral"
	"github.com/RyanBlaney/trackiq/logging"
	"github.com/RyanBlaney/trackiq/transcode"
)

// ExtractorConfig holds the framing used by every analyzer and the decoder
// settings.
type ExtractorConfig struct {
	SampleRate  int                      `json:"sample_rate"`  // 0 keeps the native rate
	FrameLength int                      `json:"frame_length"` // STFT size for frame statistics
	HopLength   int                      `json:"hop_length"`
	WindowSize  int                      `json:"window_size"` // single spectral analysis window
	Decoder     *transcode.DecoderConfig `json:"decoder"`
}

// DefaultExtractorConfig returns 2048/512 framing at the native rate.
func DefaultExtractorConfig() *ExtractorConfig {
	return &ExtractorConfig{
		SampleRate:  0,
		FrameLength: 2048,
		HopLength:   512,
		WindowSize:  2048,
		Decoder:     transcode.DefaultDecoderConfig(),
	}
}

// Extractor turns audio into a Vector. It keeps no per-call state and may be
// shared between goroutines.
type Extractor struct {
	config  *ExtractorConfig
	decoder *transcode.Decoder
	logger  logging.Logger

	// computeSTFT produces the one centred spectrogram shared by onset,
	// tempo, chroma and HPSS.
	computeSTFT func(signal []float64, windowSize, hopSize, sampleRate int) (*spectral.STFTResult, error)
}

// analysis is the per-call state handed from stage to stage.
type analysis struct {
	signal     []float64
	sampleRate int
	stft       *spectral.STFTResult
}

// NewExtractor creates an extractor; nil selects DefaultExtractorConfig.
func NewExtractor(config *ExtractorConfig) *Extractor {
	defaults := DefaultExtractorConfig()
	if config == nil {
		config = defaults
	}
	cfg := *config
	config = &cfg
	if config.FrameLength <= 0 {
		config.FrameLength = defaults.FrameLength
	}
	if config.HopLength <= 0 {
		config.HopLength = defaults.HopLength
	}
	if config.WindowSize <= 0 {
		config.WindowSize = defaults.WindowSize
	}
	if config.Decoder == nil {
		config.Decoder = defaults.Decoder
	}

	decoderConfig := *config.Decoder
	decoderConfig.TargetSampleRate = config.SampleRate

	return &Extractor{
		config:  config,
		decoder: transcode.NewDecoder(&decoderConfig),
		logger: logging.WithFields(logging.Fields{
			"component": "feature_extractor",
		}),
		computeSTFT: spectral.NewSTFT().ComputeCentered,
	}
}

// ExtractFile decodes the file at path and extracts its features. Decoder
// errors are returned unchanged.
func (e *Extractor) ExtractFile(ctx context.Context, path string) (Vector, error) {
	audio, err := e.decoder.DecodeFile(ctx, path)
	if err != nil {
		return Vector{}, err
	}
	return e.ExtractSamples(ctx, audio.PCM, audio.SampleRate)
}

// ExtractBytes decodes in-memory audio whose format is given by ext.
func (e *Extractor) ExtractBytes(ctx context.Context, data []byte, ext string) (Vector, error) {
	audio, err := e.decoder.DecodeBytes(ctx, data, ext)
	if err != nil {
		return Vector{}, err
	}
	return e.ExtractSamples(ctx, audio.PCM, audio.SampleRate)
}

// ExtractSamples computes all features of a mono waveform. The context is
// checked between stages and between the steps inside them.
func (e *Extractor) ExtractSamples(ctx context.Context, pcm []float64, sampleRate int) (Vector, error) {
	logger := e.logger.WithContext(ctx).WithFields(logging.Fields{
		"function":    "ExtractSamples",
		"samples":     len(pcm),
		"sample_rate": sampleRate,
	})

	if len(pcm) == 0 {
		return Vector{}, &ProcessingError{Stage: "input", Err: ErrEmptySignal}
	}
	if sampleRate <= 0 {
		return Vector{}, &ProcessingError{Stage: "input", Err: fmt.Errorf("invalid sample rate %d", sampleRate)}
	}

	a := &analysis{signal: common.PadToEven(pcm), sampleRate: sampleRate}
	start := time.Now()

	var v Vector
	stages := []struct {
		name string
		run  func(context.Context, *analysis, *Vector) error
	}{
		{"stft", e.spectrogram},
		{"time_domain", e.timeDomain},
		{"spectral_domain", e.spectralDomain},
	}
	for _, stage := range stages {
		if err := ctx.Err(); err != nil {
			return Vector{}, &ProcessingError{Stage: stage.name, Err: err}
		}
		stageStart := time.Now()
		if err := stage.run(ctx, a, &v); err != nil {
			logger.Error(err, "Feature stage failed", logging.Fields{"stage": stage.name})
			return Vector{}, err
		}
		logger.Debug("Feature stage complete", logging.Fields{
			"stage":       stage.name,
			"duration_ms": time.Since(stageStart).Milliseconds(),
		})
	}

	if err := v.Validate(); err != nil {
		logger.Error(err, "Non-finite feature value")
		return Vector{}, err
	}

	logger.Debug("Feature extraction complete", logging.Fields{
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return v, nil
}

func (e *Extractor) spectrogram(_ context.Context, a *analysis, _ *Vector) error {
	stft, err := e.computeSTFT(a.signal, e.config.FrameLength, e.config.HopLength, a.sampleRate)
	if err != nil {
		return &ProcessingError{Stage: "stft", Err: err}
	}
	a.stft = stft
	return nil
}

// checkpoint reports a cancelled or expired context as a ProcessingError for
// the given stage.
func checkpoint(ctx context.Context, stage string) error {
	if err := ctx.Err(); err != nil {
		return &ProcessingError{Stage: stage, Err: err}
	}
	return nil
}
