package service

import (
	"math"
	"time"

	"github.com/cardoc/cardoc-go/internal/diagnosis"
	"github.com/cardoc/cardoc-go/internal/faults"
	"github.com/cardoc/cardoc-go/internal/narration"
	"github.com/cardoc/cardoc-go/internal/tutorials"
)

// Client-facing urgency values
const (
	UrgencyImmediate  = "immediate"
	UrgencySoon       = "soon"
	UrgencyMonitoring = "monitoring"
)

// Defaults used when a narrative leaves a list empty
var (
	defaultEngineIssues          = []string{"Engine sound analysis completed"}
	defaultDashboardIssues       = []string{"Dashboard analysis completed"}
	defaultEngineRecommendations = []string{"Continue monitoring engine performance"}
	defaultDashboardRecommend    = []string{"Consult vehicle manual for warning light meanings"}
	defaultEngineKeywords        = []string{"engine diagnostic repair"}
	defaultDashboardKeywords     = []string{"dashboard warning light fix"}
)

// Response is one completed diagnosis as returned to clients and stored
// with its record.
type Response struct {
	DiagnosticID     string               `json:"diagnostic_id"`
	UserID           string               `json:"user_id"`
	DiagnosisType    string               `json:"diagnosis_type"`
	Status           string               `json:"status"`
	DetectedIssues   []string             `json:"detected_issues"`
	ConfidenceScore  float64              `json:"confidence_score"`
	UrgencyLevel     string               `json:"urgency_level"`
	AnalysisResults  AnalysisResults      `json:"analysis_results"`
	Recommendations  []string             `json:"recommendations"`
	YouTubeTutorials []tutorials.Tutorial `json:"youtube_tutorials"`
	CreatedAt        time.Time            `json:"created_at"`
	Cached           bool                 `json:"cached,omitempty"`
}

// AnalysisResults carries the analysis and its interpretation.
type AnalysisResults struct {
	Audio                   *diagnosis.AudioResult `json:"audio_analysis,omitempty"`
	Image                   *diagnosis.ImageResult `json:"image_analysis,omitempty"`
	Narrative               *narration.Narrative   `json:"narration"`
	SafeToDrive             bool                   `json:"safe_to_drive"`
	ImmediateActionRequired bool                   `json:"immediate_action_required"`
	SafetyAssessment        narration.SafetyInfo   `json:"safety_assessment"`
	ArchivePath             string                 `json:"archive_path,omitempty"`
}

// HistoryEntry summarises one stored diagnosis.
type HistoryEntry struct {
	DiagnosticID    string    `json:"diagnostic_id"`
	DiagnosisType   string    `json:"diagnosis_type"`
	Status          string    `json:"status"`
	UrgencyLevel    string    `json:"urgency_level"`
	ConfidenceScore float64   `json:"confidence_score"`
	CreatedAt       time.Time `json:"created_at"`
}

// ClientUrgency maps an internal urgency level to the value clients see.
func ClientUrgency(level faults.Level) string {
	switch level {
	case faults.LevelCritical:
		return UrgencyImmediate
	case faults.LevelWarning:
		return UrgencySoon
	default:
		return UrgencyMonitoring
	}
}

// ConfidenceScore clamps c to [0, 1] and rounds it to three decimals.
func ConfidenceScore(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	c = max(0, min(1, c))
	return math.Round(c*1000) / 1000
}

func orDefault(list, fallback []string) []string {
	if len(list) == 0 {
		return append([]string(nil), fallback...)
	}
	return list
}
