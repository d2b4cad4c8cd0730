// Package narration turns structured analysis results into a mechanic-style
// narrative: named issues, urgency, recommendations, safety advice and the
// search keywords used for repair tutorials.
//
// Narratives come from a Gemini model when one is configured. The model's
// reply is always checked against the analysis it describes, and a
// deterministic narrative is produced whenever the model is disabled,
// fails, or replies with something that is not JSON.
package narration

import (
	"context"
	"time"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/diagnosis"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/faults"
	"github.com/cardoc/cardoc-go/internal/logger"
)

// DefaultTimeout bounds one model call when the configuration leaves it unset.
const DefaultTimeout = 60 * time.Second

// Source values of a Narrative
const (
	SourceModel    = "gemini"
	SourceFallback = "fallback"
)

// Assessment is the overall verdict of a narrative.
type Assessment struct {
	Severity                string `json:"severity"`
	SafeToDrive             bool   `json:"safe_to_drive"`
	ImmediateActionRequired bool   `json:"immediate_action_required"`
	EstimatedRepairCost     string `json:"estimated_repair_cost"`
}

// SafetyInfo is driver-facing safety advice.
type SafetyInfo struct {
	DrivingSafety    string `json:"driving_safety"`
	ImmediateActions string `json:"immediate_actions"`
	WarningSigns     string `json:"warning_signs"`
}

// Narrative is the human-readable interpretation of one analysis.
type Narrative struct {
	DetectedIssues  []string     `json:"detected_issues"`
	Confidence      float64      `json:"confidence_score"`
	Urgency         faults.Level `json:"urgency_level"`
	Assessment      Assessment   `json:"overall_assessment"`
	Recommendations []string     `json:"recommendations"`
	RepairKeywords  []string     `json:"repair_keywords"`
	Safety          SafetyInfo   `json:"safety_info"`
	Source          string       `json:"source"`

	hasConfidence bool
}

// Generator produces a model reply for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Narrator builds narratives, consulting a Generator when one is set.
// The zero value is not usable; use New or NewWithGenerator.
type Narrator struct {
	gen     Generator
	timeout time.Duration
	log     logger.Logger
}

// GetLogger returns the narration logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("narration")
}

// New returns a Narrator backed by Gemini when settings enable it, and a
// fallback-only Narrator otherwise.
func New(ctx context.Context, settings *conf.NarrationSettings) (*Narrator, error) {
	if settings == nil || !settings.Enabled {
		return NewWithGenerator(nil, 0), nil
	}
	if settings.APIKey == "" {
		return nil, errors.Newf("narration is enabled but no API key is set").
			Component("narration").
			Category(errors.CategoryConfiguration).
			Context("field", "api_key").
			Build()
	}
	gen, err := NewGemini(ctx, settings)
	if err != nil {
		return nil, err
	}
	return NewWithGenerator(gen, settings.Timeout), nil
}

// NewWithGenerator returns a Narrator using gen, which may be nil.
func NewWithGenerator(gen Generator, timeout time.Duration) *Narrator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Narrator{gen: gen, timeout: timeout, log: GetLogger()}
}

// Enabled reports whether a model is consulted.
func (n *Narrator) Enabled() bool {
	return n != nil && n.gen != nil
}

// EngineSound narrates an engine-sound analysis. It never fails.
func (n *Narrator) EngineSound(ctx context.Context, r *diagnosis.AudioResult) *Narrative {
	if n.Enabled() {
		if out, ok := n.ask(ctx, "engine_sound", engineSoundPrompt(r)); ok {
			validateEngineSound(out, r)
			return out
		}
	}
	return fallbackEngineSound(r)
}

// Dashboard narrates a dashboard analysis. It never fails.
func (n *Narrator) Dashboard(ctx context.Context, r *diagnosis.ImageResult) *Narrative {
	if n.Enabled() {
		if out, ok := n.ask(ctx, "dashboard_scan", dashboardPrompt(r)); ok {
			validateDashboard(out, r)
			return out
		}
	}
	return fallbackDashboard(r)
}

// ask runs the model and parses its reply. ok is false when the caller
// should fall back.
func (n *Narrator) ask(ctx context.Context, kind, prompt string) (*Narrative, bool) {
	log := n.log.WithContext(ctx)
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	start := time.Now()
	reply, err := n.gen.Generate(ctx, prompt)
	if err != nil {
		ee := errors.New(err).
			Component("narration").
			Category(errors.CategoryNarration).
			Context("operation", "generate").
			Context("diagnosis_type", kind).
			Build()
		log.Warn("narration model call failed, using fallback",
			logger.String("diagnosis_type", kind),
			logger.Error(ee))
		return nil, false
	}

	out, err := Parse(reply)
	if err != nil {
		log.Warn("narration reply is not valid JSON, using fallback",
			logger.String("diagnosis_type", kind),
			logger.Int("reply_length", len(reply)),
			logger.Error(err))
		return nil, false
	}

	log.Debug("narration generated",
		logger.String("diagnosis_type", kind),
		logger.Duration("elapsed", time.Since(start)))
	return out, true
}
