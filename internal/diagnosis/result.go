package diagnosis

import (
	"time"

	"github.com/cardoc/cardoc-go/internal/faults"
	"github.com/cardoc/cardoc-go/internal/features"
	"github.com/cardoc/cardoc-go/internal/vision"
)

// FailureKind classifies a failed analysis.
type FailureKind string

const (
	FailureValidation FailureKind = "validation"
	FailureDecode     FailureKind = "decode"
)

// AudioResult is the outcome of one engine-sound analysis. A failed
// analysis is still structurally complete.
type AudioResult struct {
	ID                 string                    `json:"analysis_id"`
	AnalysisSuccessful bool                      `json:"analysis_successful"`
	AnalysisFailed     bool                      `json:"analysis_failed,omitempty"`
	ErrorMessage       string                    `json:"error_message,omitempty"`
	FailureKind        FailureKind               `json:"failure_kind,omitempty"`
	DetectedSounds     []string                  `json:"detected_sounds"`
	DetectedFaults     []faults.Candidate        `json:"detected_faults"`
	SoundPatterns      []features.Pattern        `json:"sound_patterns"`
	FrequencyAnalysis  features.FrequencyProfile `json:"frequency_analysis"`
	DecibelAnalysis    features.Decibels         `json:"decibel_analysis"`
	AnomalyAnalysis    features.Anomalies        `json:"anomaly_analysis"`
	AudioQuality       features.Quality          `json:"audio_quality"`
	OverallConfidence  float64                   `json:"overall_confidence"`
	UrgencyLevel       faults.Level              `json:"urgency_level"`
	RepairKeywords     []string                  `json:"repair_keywords"`
	Metadata           AudioMetadata             `json:"analysis_metadata"`
}

// AudioMetadata describes the processed clip.
type AudioMetadata struct {
	DurationSeconds      float64   `json:"duration_seconds,omitempty"`
	SampleRate           int       `json:"sample_rate,omitempty"`
	Format               string    `json:"format,omitempty"`
	TotalFaultsDetected  int       `json:"total_faults_detected"`
	ProcessingSuccessful bool      `json:"processing_successful"`
	AnalyzedAt           time.Time `json:"analysis_timestamp"`
	Error                string    `json:"error,omitempty"`
}

// ImageResult is the outcome of one dashboard-photo analysis.
type ImageResult struct {
	ID                string           `json:"analysis_id"`
	DashboardDetected bool             `json:"dashboard_detected"`
	DashboardSignals  vision.Dashboard `json:"dashboard_signals"`
	DetectedLights    []vision.Light   `json:"detected_lights"`
	ImageQuality      vision.Quality   `json:"image_quality"`
	OverallConfidence float64          `json:"overall_confidence"`
	UrgencyLevel      faults.Level     `json:"urgency_level"`
	RepairKeywords    []string         `json:"repair_keywords"`
	ErrorMessage      string           `json:"error_message,omitempty"`
	FailureKind       FailureKind      `json:"failure_kind,omitempty"`
	Metadata          ImageMetadata    `json:"analysis_metadata"`
}

// ImageMetadata describes the processed photo.
type ImageMetadata struct {
	ImageDimensions      string    `json:"image_dimensions,omitempty"`
	Format               string    `json:"format,omitempty"`
	TotalLightsFound     int       `json:"total_lights_found"`
	ProcessingSuccessful bool      `json:"processing_successful"`
	AnalyzedAt           time.Time `json:"analysis_timestamp"`
	Error                string    `json:"error,omitempty"`
}

// Successful reports whether the photo was decoded and analysed.
func (r *ImageResult) Successful() bool {
	return r.Metadata.ProcessingSuccessful
}
