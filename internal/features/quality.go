package features

import (
	"math"
	"slices"

	"github.com/cardoc/cardoc-go/internal/dsp"
	"github.com/cardoc/cardoc-go/internal/errors"
)

// Quality ratings
const (
	RatingExcellent = "excellent"
	RatingGood      = "good"
	RatingFair      = "fair"
	RatingPoor      = "poor"
)

// Quality issues
const (
	IssueBackgroundNoise = "High background noise"
	IssueLowDynamicRange = "Low dynamic range"
	IssueClipping        = "Audio clipping detected"
	IssueTooMuchSilence  = "Too much silence in recording"
	IssueTooShort        = "Recording too short for reliable analysis"
	IssueAnalysisFailed  = "Quality analysis failed"
)

// Quality recommendations
const (
	RecommendQuieterPlace = "Consider re-recording in a quieter environment"
	RecommendCloser       = "Record closer to engine with less background noise"
	RecommendLowerVolume  = "Reduce recording volume to avoid distortion"
	RecommendLonger       = "Record for at least 5-10 seconds for better analysis"
	RecommendEngineOn     = "Ensure engine is running during recording"
	RecommendReRecord     = "Re-record audio in quieter environment"
)

const (
	clipThreshold    = 0.95
	silenceThreshold = 0.01
	// snrNoNoiseFloor is reported when the 10th percentile amplitude is zero
	snrNoNoiseFloor = 50.0
	minDuration     = 3.0
)

// Quality describes how usable a recording is for analysis.
type Quality struct {
	Score           float64  `json:"score"`
	Rating          string   `json:"rating"`
	SNRDB           float64  `json:"snr_db"`
	DynamicRangeDB  float64  `json:"dynamic_range_db"`
	ClippingRatio   float64  `json:"clipping_ratio"`
	SilenceRatio    float64  `json:"silence_ratio"`
	DurationSeconds float64  `json:"duration_seconds"`
	SampleRate      int      `json:"sample_rate"`
	Issues          []string `json:"issues"`
	Recommendations []string `json:"recommendations"`
}

// AssessQuality scores y on signal-to-noise ratio, dynamic range, clipping
// and silence with weights 0.3/0.3/0.2/0.2.
func AssessQuality(y []float64, sampleRate int) (Quality, error) {
	if len(y) == 0 || sampleRate <= 0 {
		return Quality{}, errors.NewStd("empty waveform")
	}

	abs := dsp.Abs(y)
	var power float64
	var clipped, silent int
	for i, v := range y {
		power += v * v
		if abs[i] > clipThreshold {
			clipped++
		}
		if abs[i] < silenceThreshold {
			silent++
		}
	}
	n := float64(len(y))
	power /= n

	snr := snrNoNoiseFloor
	if floor := dsp.Percentile(abs, 10); floor > 0 {
		snr = 10 * math.Log10(power/(floor*floor))
	}
	dynamicRange := 20 * math.Log10(slices.Max(abs)/(dsp.Mean(abs)+1e-10))
	clipRatio := float64(clipped) / n
	silenceRatio := float64(silent) / n
	duration := n / float64(sampleRate)

	score := min(snr/30, 1)*0.3 +
		min(dynamicRange/40, 1)*0.3 +
		(1-clipRatio)*0.2 +
		(1-silenceRatio)*0.2
	score = max(0, min(1, score))

	var issues []string
	if snr < 15 {
		issues = append(issues, IssueBackgroundNoise)
	}
	if dynamicRange < 15 {
		issues = append(issues, IssueLowDynamicRange)
	}
	if clipRatio > 0.01 {
		issues = append(issues, IssueClipping)
	}
	if silenceRatio > 0.5 {
		issues = append(issues, IssueTooMuchSilence)
	}
	if duration < minDuration {
		issues = append(issues, IssueTooShort)
	}

	return Quality{
		Score:           dsp.Round(score, 3),
		Rating:          RateQuality(score),
		SNRDB:           dsp.Round(snr, 1),
		DynamicRangeDB:  dsp.Round(dynamicRange, 1),
		ClippingRatio:   dsp.Round(clipRatio, 4),
		SilenceRatio:    dsp.Round(silenceRatio, 3),
		DurationSeconds: dsp.Round(duration, 2),
		SampleRate:      sampleRate,
		Issues:          nonNil(issues),
		Recommendations: QualityRecommendations(score, issues),
	}, nil
}

// RateQuality buckets a quality score.
func RateQuality(score float64) string {
	switch {
	case score > 0.8:
		return RatingExcellent
	case score > 0.6:
		return RatingGood
	case score > 0.4:
		return RatingFair
	default:
		return RatingPoor
	}
}

// QualityRecommendations maps a score and its issues to remediation advice.
func QualityRecommendations(score float64, issues []string) []string {
	recs := []string{}
	if score < 0.5 {
		recs = append(recs, RecommendQuieterPlace)
	}
	for _, pair := range [...]struct{ issue, rec string }{
		{IssueBackgroundNoise, RecommendCloser},
		{IssueClipping, RecommendLowerVolume},
		{IssueTooShort, RecommendLonger},
		{IssueTooMuchSilence, RecommendEngineOn},
	} {
		if slices.Contains(issues, pair.issue) {
			recs = append(recs, pair.rec)
		}
	}
	return recs
}

// FailedQuality is the neutral quality reported when assessment fails.
func FailedQuality(error) Quality {
	return Quality{
		Score:           0.3,
		Rating:          RatingPoor,
		Issues:          []string{IssueAnalysisFailed},
		Recommendations: []string{RecommendReRecord},
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
