package features

import (
	"math"
	"slices"

	"github.com/cardoc/cardoc-go/internal/dsp"
	"github.com/cardoc/cardoc-go/internal/errors"
)

// Volume categories by mean RMS level
const (
	VolumeVeryLoud  = "very_loud"
	VolumeLoud      = "loud"
	VolumeModerate  = "moderate"
	VolumeQuiet     = "quiet"
	VolumeVeryQuiet = "very_quiet"
)

const (
	maxReportedRMS = 100
	dbFloor        = 1e-10
)

// Decibels summarises the short-time RMS level in dBFS.
type Decibels struct {
	MaxDB          float64   `json:"max_db"`
	MinDB          float64   `json:"min_db"`
	MeanDB         float64   `json:"mean_db"`
	StdDB          float64   `json:"std_db"`
	DynamicRangeDB float64   `json:"dynamic_range_db"`
	VolumeCategory string    `json:"volume_category"`
	RMSValues      []float64 `json:"rms_values"`
	AnalysisFailed bool      `json:"analysis_failed,omitempty"`
}

// AnalyzeDecibels converts framed RMS energy of y to decibels.
func AnalyzeDecibels(y []float64) (Decibels, error) {
	if len(y) == 0 {
		return Decibels{}, errors.NewStd("empty waveform")
	}
	rms := dsp.RMS(y, NFFT, HopLength)
	if len(rms) == 0 {
		return Decibels{}, errors.NewStd("no RMS frames")
	}

	db := make([]float64, len(rms))
	for i, v := range rms {
		db[i] = 20 * math.Log10(v+dbFloor)
	}

	maxDB, minDB := slices.Max(db), slices.Min(db)
	mean := dsp.Mean(db)
	return Decibels{
		MaxDB:          maxDB,
		MinDB:          minDB,
		MeanDB:         mean,
		StdDB:          dsp.Std(db),
		DynamicRangeDB: maxDB - minDB,
		VolumeCategory: VolumeCategory(mean),
		RMSValues:      db[:min(len(db), maxReportedRMS)],
	}, nil
}

// VolumeCategory buckets a mean level in dBFS.
func VolumeCategory(meanDB float64) string {
	switch {
	case meanDB > -20:
		return VolumeVeryLoud
	case meanDB > -30:
		return VolumeLoud
	case meanDB > -40:
		return VolumeModerate
	case meanDB > -50:
		return VolumeQuiet
	default:
		return VolumeVeryQuiet
	}
}

// FailedDecibels is reported when the level analysis fails.
func FailedDecibels(error) Decibels {
	return Decibels{RMSValues: []float64{}, AnalysisFailed: true}
}
