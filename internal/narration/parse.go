package narration

import (
	"strings"

	"github.com/antonholmquist/jason"

	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/faults"
)

// stripFences removes a markdown code fence around a reply and any prose
// outside the outermost JSON object.
func stripFences(reply string) string {
	s := strings.TrimSpace(reply)
	switch {
	case strings.HasPrefix(s, "```json"):
		s = s[len("```json"):]
	case strings.HasPrefix(s, "```"):
		s = s[len("```"):]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")

	if i, j := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); i >= 0 && j > i {
		s = s[i : j+1]
	}
	return strings.TrimSpace(s)
}

// Parse decodes a model reply. Missing fields are left at their zero value;
// a reply that is not a JSON object is an error.
func Parse(reply string) (*Narrative, error) {
	obj, err := jason.NewObjectFromBytes([]byte(stripFences(reply)))
	if err != nil {
		return nil, errors.New(err).
			Component("narration").
			Category(errors.CategoryNarration).
			Context("operation", "parse_reply").
			Build()
	}

	n := &Narrative{Source: SourceModel}
	n.DetectedIssues = stringArray(obj, "detected_issues")
	n.Recommendations = stringArray(obj, "recommendations")
	n.RepairKeywords = stringArray(obj, "repair_keywords")

	if c, err := obj.GetFloat64("confidence_score"); err == nil {
		n.Confidence = c
		n.hasConfidence = true
	}
	if u, err := obj.GetString("urgency_level"); err == nil {
		n.Urgency = faults.Level(strings.ToLower(strings.TrimSpace(u)))
	}

	n.Assessment.SafeToDrive = true
	if a, err := obj.GetObject("overall_assessment"); err == nil {
		n.Assessment.Severity, _ = a.GetString("severity")
		n.Assessment.EstimatedRepairCost, _ = a.GetString("estimated_repair_cost")
		if v, err := a.GetBoolean("safe_to_drive"); err == nil {
			n.Assessment.SafeToDrive = v
		}
		n.Assessment.ImmediateActionRequired, _ = a.GetBoolean("immediate_action_required")
	}
	if s, err := obj.GetObject("safety_info"); err == nil {
		n.Safety.DrivingSafety, _ = s.GetString("driving_safety")
		n.Safety.ImmediateActions, _ = s.GetString("immediate_actions")
		n.Safety.WarningSigns, _ = s.GetString("warning_signs")
	}
	return n, nil
}

// stringArray returns the non-empty strings of key, skipping other values.
func stringArray(obj *jason.Object, key string) []string {
	values, err := obj.GetValueArray(key)
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		if s, err := v.String(); err == nil && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	return out
}
