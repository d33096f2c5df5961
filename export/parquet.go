// Package export writes stored feature records to columnar files.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/RyanBlaney/trackiq/features"
	"github.com/RyanBlaney/trackiq/storage"
)

// Row is the flat Parquet layout of a stored record.
type Row struct {
	ID                 int64   `parquet:"id"`
	Filename           string  `parquet:"filename"`
	CreatedAt          int64   `parquet:"created_at_ms"`
	Tempo              float64 `parquet:"tempo"`
	OnsetStrength      float64 `parquet:"onset_strength"`
	ChromaSTFT         float64 `parquet:"chroma_stft"`
	ZeroCrossingRate   float64 `parquet:"zero_crossing_rate"`
	RMS                float64 `parquet:"rms"`
	HarmonicRMS        float64 `parquet:"harmonic_rms"`
	PercussiveRMS      float64 `parquet:"percussive_rms"`
	SpectralCentroid   float64 `parquet:"spectral_centroid"`
	SpectralRolloff    float64 `parquet:"spectral_rolloff"`
	SpectralFlux       float64 `parquet:"spectral_flux"`
	SpectralCrest      float64 `parquet:"spectral_crest"`
	SpectralComplexity float64 `parquet:"spectral_complexity"`
	HPCPMean           float64 `parquet:"hpcp_mean"`
	MFCCMean           float64 `parquet:"mfcc_mean"`
	SpectralFlatness   float64 `parquet:"spectral_flatness"`
}

// NewRow flattens a record.
func NewRow(rec *storage.Record) Row {
	v := rec.Features
	return Row{
		ID:                 rec.ID,
		Filename:           rec.Filename,
		CreatedAt:          rec.CreatedAt.UnixMilli(),
		Tempo:              v.Tempo,
		OnsetStrength:      v.OnsetStrength,
		ChromaSTFT:         v.ChromaSTFT,
		ZeroCrossingRate:   v.ZeroCrossingRate,
		RMS:                v.RMS,
		HarmonicRMS:        v.HarmonicRMS,
		PercussiveRMS:      v.PercussiveRMS,
		SpectralCentroid:   v.SpectralCentroid,
		SpectralRolloff:    v.SpectralRolloff,
		SpectralFlux:       v.SpectralFlux,
		SpectralCrest:      v.SpectralCrest,
		SpectralComplexity: v.SpectralComplexity,
		HPCPMean:           v.HPCPMean,
		MFCCMean:           v.MFCCMean,
		SpectralFlatness:   v.SpectralFlatness,
	}
}

// Record converts the row back into a storage record.
func (r Row) Record() *storage.Record {
	return &storage.Record{
		ID:        r.ID,
		Filename:  r.Filename,
		CreatedAt: time.UnixMilli(r.CreatedAt).UTC(),
		Features: features.Vector{
			Tempo:              r.Tempo,
			OnsetStrength:      r.OnsetStrength,
			ChromaSTFT:         r.ChromaSTFT,
			ZeroCrossingRate:   r.ZeroCrossingRate,
			RMS:                r.RMS,
			HarmonicRMS:        r.HarmonicRMS,
			PercussiveRMS:      r.PercussiveRMS,
			SpectralCentroid:   r.SpectralCentroid,
			SpectralRolloff:    r.SpectralRolloff,
			SpectralFlux:       r.SpectralFlux,
			SpectralCrest:      r.SpectralCrest,
			SpectralComplexity: r.SpectralComplexity,
			HPCPMean:           r.HPCPMean,
			MFCCMean:           r.MFCCMean,
			SpectralFlatness:   r.SpectralFlatness,
		},
	}
}

// Compression maps a codec name onto a writer option. Empty selects snappy.
func Compression(name string) (parquet.WriterOption, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "snappy":
		return parquet.Compression(&parquet.Snappy), nil
	case "zstd":
		return parquet.Compression(&parquet.Zstd), nil
	case "gzip":
		return parquet.Compression(&parquet.Gzip), nil
	case "none", "uncompressed":
		return parquet.Compression(&parquet.Uncompressed), nil
	default:
		return nil, fmt.Errorf("unknown parquet compression %q", name)
	}
}

// WriteParquet writes records to w as a single Parquet file.
func WriteParquet(w io.Writer, records []*storage.Record, opts ...parquet.WriterOption) error {
	if len(opts) == 0 {
		opts = []parquet.WriterOption{parquet.Compression(&parquet.Snappy)}
	}
	pw := parquet.NewGenericWriter[Row](w, opts...)

	rows := make([]Row, 0, len(records))
	for _, rec := range records {
		if rec == nil {
			continue
		}
		rows = append(rows, NewRow(rec))
	}
	if _, err := pw.Write(rows); err != nil {
		_ = pw.Close()
		return fmt.Errorf("write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return nil
}

// ReadParquet reads every row of a file written by WriteParquet.
func ReadParquet(ra io.ReaderAt) ([]*storage.Record, error) {
	gr := parquet.NewGenericReader[Row](ra)
	defer gr.Close()

	out := make([]*storage.Record, 0, gr.NumRows())
	batch := make([]Row, 256)
	for {
		n, err := gr.Read(batch)
		for _, row := range batch[:n] {
			out = append(out, row.Record())
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read parquet rows: %w", err)
		}
	}
	return out, nil
}
