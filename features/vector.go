package features

import "math"

// Vector holds the 15 scalar descriptors of one audio file. Field order is
// the canonical key order and is kept by encoding/json.
type Vector struct {
	Tempo              float64 `json:"tempo" parquet:"tempo"`
	OnsetStrength      float64 `json:"onset_strength" parquet:"onset_strength"`
	ChromaSTFT         float64 `json:"chroma_stft" parquet:"chroma_stft"`
	ZeroCrossingRate   float64 `json:"zero_crossing_rate" parquet:"zero_crossing_rate"`
	RMS                float64 `json:"rms" parquet:"rms"`
	HarmonicRMS        float64 `json:"harmonic_rms" parquet:"harmonic_rms"`
	PercussiveRMS      float64 `json:"percussive_rms" parquet:"percussive_rms"`
	SpectralCentroid   float64 `json:"spectral_centroid" parquet:"spectral_centroid"`
	SpectralRolloff    float64 `json:"spectral_rolloff" parquet:"spectral_rolloff"`
	SpectralFlux       float64 `json:"spectral_flux" parquet:"spectral_flux"`
	SpectralCrest      float64 `json:"spectral_crest" parquet:"spectral_crest"`
	SpectralComplexity float64 `json:"spectral_complexity" parquet:"spectral_complexity"`
	HPCPMean           float64 `json:"hpcp_mean" parquet:"hpcp_mean"`
	MFCCMean           float64 `json:"mfcc_mean" parquet:"mfcc_mean"`
	SpectralFlatness   float64 `json:"spectral_flatness" parquet:"spectral_flatness"`
}

var names = []string{
	"tempo",
	"onset_strength",
	"chroma_stft",
	"zero_crossing_rate",
	"rms",
	"harmonic_rms",
	"percussive_rms",
	"spectral_centroid",
	"spectral_rolloff",
	"spectral_flux",
	"spectral_crest",
	"spectral_complexity",
	"hpcp_mean",
	"mfcc_mean",
	"spectral_flatness",
}

// Names returns the feature keys in canonical order.
func Names() []string {
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Values returns the features in the order of Names.
func (v Vector) Values() []float64 {
	return []float64{
		v.Tempo,
		v.OnsetStrength,
		v.ChromaSTFT,
		v.ZeroCrossingRate,
		v.RMS,
		v.HarmonicRMS,
		v.PercussiveRMS,
		v.SpectralCentroid,
		v.SpectralRolloff,
		v.SpectralFlux,
		v.SpectralCrest,
		v.SpectralComplexity,
		v.HPCPMean,
		v.MFCCMean,
		v.SpectralFlatness,
	}
}

// Map returns the features keyed by name.
func (v Vector) Map() map[string]float64 {
	values := v.Values()
	m := make(map[string]float64, len(names))
	for i, name := range names {
		m[name] = values[i]
	}
	return m
}

// FromValues builds a Vector from values ordered as Names.
func FromValues(values []float64) (Vector, bool) {
	if len(values) != len(names) {
		return Vector{}, false
	}
	return Vector{
		Tempo:              values[0],
		OnsetStrength:      values[1],
		ChromaSTFT:         values[2],
		ZeroCrossingRate:   values[3],
		RMS:                values[4],
		HarmonicRMS:        values[5],
		PercussiveRMS:      values[6],
		SpectralCentroid:   values[7],
		SpectralRolloff:    values[8],
		SpectralFlux:       values[9],
		SpectralCrest:      values[10],
		SpectralComplexity: values[11],
		HPCPMean:           values[12],
		MFCCMean:           values[13],
		SpectralFlatness:   values[14],
	}, true
}

// Validate returns a ProcessingError naming the first non-finite feature.
func (v Vector) Validate() error {
	for i, value := range v.Values() {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			return &ProcessingError{
				Stage:   "validate",
				Feature: names[i],
				Err:     errNotFinite(value),
			}
		}
	}
	return nil
}
