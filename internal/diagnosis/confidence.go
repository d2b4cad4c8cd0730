package diagnosis

import (
	"github.com/cardoc/cardoc-go/internal/dsp"
	"github.com/cardoc/cardoc-go/internal/faults"
	"github.com/cardoc/cardoc-go/internal/features"
	"github.com/cardoc/cardoc-go/internal/vision"
)

const (
	maxImageKeywords = 5
	// nonCriticalWeight discounts candidates that are not critical
	nonCriticalWeight = 0.8
)

// AudioConfidence fuses recording quality, fault candidates, the presence of
// a dominant frequency and pattern strengths into one score in [0, 1].
func AudioConfidence(qualityScore float64, candidates []faults.Candidate, dominantFrequency float64, patterns []features.Pattern) float64 {
	confidence := qualityScore * 0.3

	if len(candidates) > 0 {
		var sum float64
		for _, c := range candidates {
			weight := nonCriticalWeight
			if c.Severity == faults.LevelCritical {
				weight = 1
			}
			sum += c.Confidence * weight
		}
		confidence += sum / float64(len(candidates)) * 0.4
	} else {
		confidence += 0.2
	}

	if dominantFrequency > 0 {
		confidence += 0.2
	}

	if len(patterns) > 0 {
		confidence += dsp.Mean(features.Strengths(patterns)) * 0.1
	}

	return min(confidence, 1)
}

// ImageConfidence fuses dashboard presence, photo quality and light
// confidences into one score in [0, 1].
func ImageConfidence(dashboardDetected bool, qualityScore float64, lights []vision.Light) float64 {
	var confidence float64
	if dashboardDetected {
		confidence += 0.3
	}
	confidence += qualityScore * 0.3

	if len(lights) > 0 {
		var sum float64
		for _, l := range lights {
			sum += l.Confidence
		}
		confidence += sum / float64(len(lights)) * 0.4
	} else {
		confidence += 0.2
	}
	return min(confidence, 1)
}

// ImageUrgency is critical when any red light is lit, warning when any
// yellow, orange or amber light is lit, otherwise normal.
func ImageUrgency(lights []vision.Light) faults.Level {
	urgency := faults.LevelNormal
	for _, l := range lights {
		switch l.Color {
		case "red":
			return faults.LevelCritical
		case "yellow", "orange", "amber":
			urgency = faults.LevelWarning
		}
	}
	return urgency
}

// defaultImageKeywords are searched when no light was detected
var defaultImageKeywords = []string{
	"dashboard warning lights guide",
	"car warning lights meaning",
	"dashboard diagnostic check",
}

// ImageKeywords derives repair search phrases from light colours in
// first-seen order, at most five.
func ImageKeywords(lights []vision.Light) []string {
	if len(lights) == 0 {
		return append([]string(nil), defaultImageKeywords...)
	}

	seen := make(map[string]struct{})
	keywords := []string{}
	add := func(kw string) {
		if _, dup := seen[kw]; dup || len(keywords) == maxImageKeywords {
			return
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}

	for _, l := range lights {
		c := l.Color
		switch c {
		case "red":
			add(c + " warning light fix")
			add(c + " dashboard light repair")
		case "yellow", "orange", "amber":
			add(c + " warning light meaning")
			add(c + " dashboard light fix")
		default:
			add(c + " light meaning")
			add("dashboard indicator")
		}
	}
	return keywords
}
