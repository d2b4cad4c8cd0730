package faults

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/cardoc/cardoc-go/internal/features"
)

// Scoring weights and the acceptance threshold
const (
	DominantWeight = 0.3
	PeakWeight     = 0.2
	BandWeight     = 0.2
	// CandidateThreshold is the confidence a signature must exceed to be reported
	CandidateThreshold = 0.4

	peaksForFullCredit = 3.0
	maxRepairKeywords  = 8
)

// Evidence is the subset of audio features the matcher scores against.
type Evidence struct {
	DominantFrequency float64
	BandEnergies      map[string]float64
	PeakFrequencies   []float64
	Patterns          []features.Pattern
}

// EvidenceFrom selects the matching inputs from extracted features.
func EvidenceFrom(f *features.Features) Evidence {
	return Evidence{
		DominantFrequency: f.Spectrum.DominantFrequency,
		BandEnergies:      f.Spectrum.BandEnergies,
		PeakFrequencies:   f.Spectrum.PeakFrequencies,
		Patterns:          f.Patterns,
	}
}

// Candidate is a fault signature that matched a clip.
type Candidate struct {
	Name            string   `json:"name"`
	DisplayName     string   `json:"display_name"`
	Confidence      float64  `json:"confidence"`
	Severity        Level    `json:"severity"`
	Urgency         Level    `json:"urgency"`
	Keywords        []string `json:"keywords"`
	Evidence        []string `json:"evidence"`
	FrequencyRange  Range    `json:"frequency_range"`
	Characteristics []string `json:"characteristics"`
}

// Score accumulates the confidence of sig against ev, capped at 1, and the
// evidence strings of every rule that fired.
func Score(sig *Signature, ev Evidence) (float64, []string) {
	var confidence float64
	evidence := []string{}

	if sig.Range.Contains(ev.DominantFrequency) {
		confidence += DominantWeight
		evidence = append(evidence,
			fmt.Sprintf("Dominant frequency %.0fHz matches %s", ev.DominantFrequency, sig.Name))
	}

	var matching []float64
	for _, f := range ev.PeakFrequencies {
		if sig.Range.Contains(f) {
			matching = append(matching, f)
		}
	}
	if len(matching) > 0 {
		confidence += PeakWeight * min(float64(len(matching))/peaksForFullCredit, 1)
		evidence = append(evidence,
			fmt.Sprintf("Peak frequencies %s match %s", formatFloatList(matching), sig.Name))
	}

	if sig.band != nil && sig.band.holds(ev.BandEnergies) {
		confidence += BandWeight
		evidence = append(evidence, sig.band.evidence)
	}

	for _, p := range ev.Patterns {
		weight, ok := sig.patterns[p.Type]
		if !ok {
			continue
		}
		confidence += p.Strength * weight
		evidence = append(evidence,
			fmt.Sprintf("%s pattern strength: %.2f", patternName(p.Type), p.Strength))
	}

	return min(confidence, 1), evidence
}

// Match scores every signature and returns those above CandidateThreshold,
// most confident first. Equal confidences keep table order.
func Match(ev Evidence) []Candidate {
	candidates := []Candidate{}
	for _, sig := range signatures {
		confidence, evidence := Score(sig, ev)
		if confidence <= CandidateThreshold {
			continue
		}
		candidates = append(candidates, Candidate{
			Name:            sig.Name,
			DisplayName:     sig.DisplayName(),
			Confidence:      confidence,
			Severity:        sig.Severity,
			Urgency:         sig.Urgency,
			Keywords:        slices.Clone(sig.Keywords),
			Evidence:        evidence,
			FrequencyRange:  sig.Range,
			Characteristics: slices.Clone(sig.Characteristics),
		})
	}

	slices.SortStableFunc(candidates, func(a, b Candidate) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		default:
			return 0
		}
	})
	return candidates
}

// Urgency is critical if any candidate is critical, else warning if any is
// warning, else normal.
func Urgency(candidates []Candidate) Level {
	for _, c := range candidates {
		if c.Urgency == LevelCritical {
			return LevelCritical
		}
	}
	for _, c := range candidates {
		if c.Urgency == LevelWarning {
			return LevelWarning
		}
	}
	return LevelNormal
}

// RepairKeywords returns the candidates' keywords in first-seen order
// without duplicates, at most eight.
func RepairKeywords(candidates []Candidate) []string {
	seen := make(map[string]struct{})
	keywords := []string{}
	for _, c := range candidates {
		for _, kw := range c.Keywords {
			if _, dup := seen[kw]; dup {
				continue
			}
			seen[kw] = struct{}{}
			keywords = append(keywords, kw)
			if len(keywords) == maxRepairKeywords {
				return keywords
			}
		}
	}
	return keywords
}

// Names returns the candidate names in order.
func Names(candidates []Candidate) []string {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	return names
}

// formatFloat prints f in its shortest form, always with a fractional part.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eIN") {
		s += ".0"
	}
	return s
}

func formatFloatList(values []float64) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = formatFloat(v)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
