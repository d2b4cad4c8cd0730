package narration

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cardoc/cardoc-go/internal/diagnosis"
	"github.com/cardoc/cardoc-go/internal/faults"
	"github.com/cardoc/cardoc-go/internal/vision"
)

// Confidence floors applied to model replies
const (
	EngineConfidenceFloor    = 0.5
	EngineConfidenceCap      = 0.95
	DashboardConfidenceFloor = 0.6
	DashboardConfidence      = 0.75
	FallbackConfidence       = 0.75

	maxEngineKeywords    = 6
	maxDashboardKeywords = 5
)

// Placeholder issue lists the model emits when it gives up
var (
	engineGaveUp    = []string{"Unable to analyze engine sound"}
	dashboardGaveUp = []string{"Unable to analyze dashboard"}
)

// titleCase upper-cases the first letter of each word. A cases.Caser keeps
// state between calls, so each call builds its own.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func validLevel(l faults.Level) bool {
	return l == faults.LevelNormal || l == faults.LevelWarning || l == faults.LevelCritical
}

// lightUrgency maps light colours to an urgency: any red light is critical,
// yellow, orange or amber is a warning.
func lightUrgency(lights []vision.Light) faults.Level {
	level := faults.LevelNormal
	for _, l := range lights {
		switch strings.ToLower(l.Color) {
		case "red":
			return faults.LevelCritical
		case "yellow", "orange", "amber":
			level = faults.LevelWarning
		}
	}
	return level
}

// firstSeen returns the distinct non-empty entries of ss in order, at most
// limit of them.
func firstSeen(ss []string, limit int) []string {
	out := make([]string, 0, min(len(ss), limit))
	for _, s := range ss {
		if s == "" || slices.Contains(out, s) {
			continue
		}
		out = append(out, s)
		if len(out) == limit {
			break
		}
	}
	return out
}

func faultKeywords(candidates []faults.Candidate) []string {
	var all []string
	for _, c := range candidates {
		all = append(all, c.Keywords...)
	}
	return firstSeen(all, maxEngineKeywords)
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}

// validateEngineSound reconciles a model narrative with the audio result
// it describes.
func validateEngineSound(n *Narrative, r *diagnosis.AudioResult) {
	switch {
	case len(r.DetectedFaults) > 0:
		n.Urgency = faults.Urgency(r.DetectedFaults)
	case !validLevel(n.Urgency):
		n.Urgency = r.UrgencyLevel
	}
	if !validLevel(n.Urgency) {
		n.Urgency = faults.LevelNormal
	}

	if !n.hasConfidence || n.Confidence < EngineConfidenceFloor {
		base := r.AudioQuality.Score * 0.6
		if len(r.DetectedFaults) > 0 {
			var sum float64
			for _, c := range r.DetectedFaults {
				sum += c.Confidence
			}
			mean := sum / float64(len(r.DetectedFaults))
			n.Confidence = min(base+mean*0.4, EngineConfidenceCap)
		} else {
			n.Confidence = base
		}
		n.hasConfidence = true
	}
	n.Confidence = clamp01(n.Confidence)

	if len(n.DetectedIssues) == 0 || slices.Equal(n.DetectedIssues, engineGaveUp) {
		if len(r.DetectedFaults) > 0 {
			n.DetectedIssues = make([]string, 0, len(r.DetectedFaults))
			for _, c := range r.DetectedFaults {
				n.DetectedIssues = append(n.DetectedIssues, c.DisplayName)
			}
		} else {
			n.DetectedIssues = []string{"Engine Sound Analysis Completed - No Critical Issues Detected"}
		}
	}

	if len(n.RepairKeywords) == 0 {
		if len(r.DetectedFaults) > 0 {
			n.RepairKeywords = faultKeywords(r.DetectedFaults)
		} else {
			n.RepairKeywords = []string{"engine maintenance", "engine diagnostic", "car engine inspection"}
		}
	}

	if n.Assessment.Severity == "" {
		n.Assessment.Severity = string(n.Urgency)
	}
}

// validateDashboard reconciles a model narrative with the image result it
// describes.
func validateDashboard(n *Narrative, r *diagnosis.ImageResult) {
	switch {
	case len(r.DetectedLights) > 0:
		n.Urgency = lightUrgency(r.DetectedLights)
	case !validLevel(n.Urgency):
		n.Urgency = r.UrgencyLevel
	}
	if !validLevel(n.Urgency) {
		n.Urgency = faults.LevelNormal
	}

	if !n.hasConfidence || n.Confidence < DashboardConfidenceFloor {
		n.Confidence = DashboardConfidence
		n.hasConfidence = true
	}
	n.Confidence = clamp01(n.Confidence)

	if len(n.DetectedIssues) == 0 || slices.Equal(n.DetectedIssues, dashboardGaveUp) {
		if len(r.DetectedLights) > 0 {
			n.DetectedIssues = make([]string, 0, len(r.DetectedLights))
			for _, l := range r.DetectedLights {
				n.DetectedIssues = append(n.DetectedIssues, titleCase(colorOrUnknown(l.Color))+" Warning Light Active")
			}
		} else {
			n.DetectedIssues = []string{"Dashboard Warning System Check Required"}
		}
	}

	if len(n.RepairKeywords) == 0 {
		n.RepairKeywords = []string{"dashboard warning light fix", "car diagnostic scan", "warning light meaning"}
	}

	if n.Assessment.Severity == "" {
		n.Assessment.Severity = string(n.Urgency)
	}
}

func colorOrUnknown(c string) string {
	if c == "" {
		return "unknown"
	}
	return strings.ToLower(c)
}

// fallbackEngineSound narrates an audio result without a model.
func fallbackEngineSound(r *diagnosis.AudioResult) *Narrative {
	if len(r.DetectedFaults) == 0 {
		return &Narrative{
			DetectedIssues: []string{"Engine Sound Analysis Completed"},
			Confidence:     clamp01(r.AudioQuality.Score),
			Urgency:        faults.LevelNormal,
			Assessment: Assessment{
				Severity:            string(faults.LevelNormal),
				SafeToDrive:         true,
				EstimatedRepairCost: "$0-100",
			},
			Recommendations: []string{
				"Continue monitoring engine sounds during operation",
				"Perform regular engine maintenance",
				"Schedule routine engine inspection if concerned",
			},
			RepairKeywords: []string{"engine maintenance guide", "engine sound diagnosis", "preventive car maintenance"},
			Safety: SafetyInfo{
				DrivingSafety:    "Safe to drive normally",
				ImmediateActions: "Monitor engine performance",
				WarningSigns:     "Unusual noises, performance changes",
			},
			Source:        SourceFallback,
			hasConfidence: true,
		}
	}

	urgency := faults.Urgency(r.DetectedFaults)
	issues := make([]string, 0, len(r.DetectedFaults))
	for _, c := range r.DetectedFaults {
		switch c.Urgency {
		case faults.LevelCritical:
			issues = append(issues, c.DisplayName+" - Critical Issue")
		case faults.LevelWarning:
			issues = append(issues, c.DisplayName+" - Needs Attention")
		default:
			issues = append(issues, c.DisplayName+" Detected")
		}
	}

	critical := urgency == faults.LevelCritical
	cost := "$100-500"
	rpm := "Monitor engine performance"
	driving := "Drive with normal caution"
	if critical {
		cost = "$200-1000"
		rpm = "Avoid high RPM operation until diagnosed"
		driving = "Avoid aggressive driving"
	}
	followUp := "Continue regular maintenance"
	if urgency != faults.LevelNormal {
		followUp = "Schedule repair appointment soon"
	}

	return &Narrative{
		DetectedIssues: issues,
		Confidence:     FallbackConfidence,
		Urgency:        urgency,
		Assessment: Assessment{
			Severity:                string(urgency),
			SafeToDrive:             !critical,
			ImmediateActionRequired: critical,
			EstimatedRepairCost:     cost,
		},
		Recommendations: []string{
			"Have engine inspected by qualified mechanic",
			"Check engine oil level and condition",
			rpm,
			followUp,
		},
		RepairKeywords: faultKeywords(r.DetectedFaults),
		Safety: SafetyInfo{
			DrivingSafety:    driving,
			ImmediateActions: "Check oil level and coolant before driving",
			WarningSigns:     "Loss of power, unusual vibrations, smoke, overheating",
		},
		Source:        SourceFallback,
		hasConfidence: true,
	}
}

// fallbackDashboard narrates an image result without a model.
func fallbackDashboard(r *diagnosis.ImageResult) *Narrative {
	if len(r.DetectedLights) == 0 {
		return &Narrative{
			DetectedIssues: []string{"Dashboard System Check Required"},
			Confidence:     0.70,
			Urgency:        faults.LevelNormal,
			Assessment: Assessment{
				Severity:            string(faults.LevelNormal),
				SafeToDrive:         true,
				EstimatedRepairCost: "$0-50",
			},
			Recommendations: []string{
				"Perform visual dashboard inspection",
				"Check owner's manual for warning light meanings",
				"Schedule routine diagnostic if concerned",
			},
			RepairKeywords: []string{"dashboard warning lights guide", "car warning lights meaning", "dashboard diagnostic check"},
			Safety: SafetyInfo{
				DrivingSafety:    "Safe to drive normally",
				ImmediateActions: "Monitor dashboard for any new lights",
				WarningSigns:     "New warning lights appearing",
			},
			Source:        SourceFallback,
			hasConfidence: true,
		}
	}

	urgency := lightUrgency(r.DetectedLights)
	issues := make([]string, 0, len(r.DetectedLights))
	var keywords []string
	for _, l := range r.DetectedLights {
		color := colorOrUnknown(l.Color)
		name := titleCase(color)
		switch color {
		case "red":
			issues = append(issues, "Critical "+name+" Warning Light")
			keywords = append(keywords, color+" warning light fix", color+" dashboard light repair")
		case "yellow", "orange", "amber":
			issues = append(issues, name+" Caution Light Active")
			keywords = append(keywords, color+" warning light meaning", color+" dashboard light fix")
		default:
			issues = append(issues, name+" Indicator Light")
			keywords = append(keywords, color+" light meaning", "dashboard indicator")
		}
	}

	critical := urgency == faults.LevelCritical
	cost := "$25-150"
	driving := "Safe for normal driving"
	if critical {
		cost = "$50-300"
		driving = "Exercise caution"
	}

	return &Narrative{
		DetectedIssues: issues,
		Confidence:     FallbackConfidence,
		Urgency:        urgency,
		Assessment: Assessment{
			Severity:                string(urgency),
			SafeToDrive:             !critical,
			ImmediateActionRequired: critical,
			EstimatedRepairCost:     cost,
		},
		Recommendations: []string{
			"Identify specific warning light meanings",
			"Check vehicle owner's manual",
			"Schedule diagnostic scan if multiple lights active",
			"Do not ignore red warning lights",
		},
		RepairKeywords: firstSeen(keywords, maxDashboardKeywords),
		Safety: SafetyInfo{
			DrivingSafety:    driving,
			ImmediateActions: "Stop and check if red lights are flashing",
			WarningSigns:     "Multiple warning lights, unusual vehicle behavior",
		},
		Source:        SourceFallback,
		hasConfidence: true,
	}
}
