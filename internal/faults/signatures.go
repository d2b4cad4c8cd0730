// Package faults holds the static table of engine fault signatures and
// scores them against extracted audio features.
package faults

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/cardoc/cardoc-go/internal/features"
)

// Level is a severity or urgency classification.
type Level string

const (
	LevelNormal   Level = "normal"
	LevelWarning  Level = "warning"
	LevelCritical Level = "critical"
)

// Range is a closed frequency interval in Hz.
type Range struct {
	Low  float64
	High float64
}

// Contains reports whether f lies in [Low, High].
func (r Range) Contains(f float64) bool {
	return f >= r.Low && f <= r.High
}

// MarshalJSON renders the range as a two-element array.
func (r Range) MarshalJSON() ([]byte, error) {
	return []byte("[" + formatFloat(r.Low) + ", " + formatFloat(r.High) + "]"), nil
}

// bandRule is a signature-specific band-energy dominance test.
type bandRule struct {
	evidence string
	holds    func(bands map[string]float64) bool
}

// Signature is one named fault with its matching rules. Signatures are
// immutable and shared across concurrent matches.
type Signature struct {
	Name            string
	Range           Range
	Characteristics []string
	Severity        Level
	Urgency         Level
	Keywords        []string

	displayName string
	band        *bandRule
	patterns    map[features.PatternType]float64
}

// DisplayName is the Title Case form of the signature name.
func (s *Signature) DisplayName() string {
	return s.displayName
}

// DisplayName converts snake_case names to Title Case words. A cases.Caser
// keeps state between calls, so each call builds its own.
func DisplayName(name string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(name, "_", " "))
}

// patternNames holds the Title Case label of each pattern type, filled once
// at init and read-only afterwards.
var patternNames = map[features.PatternType]string{}

func patternName(p features.PatternType) string {
	if name, ok := patternNames[p]; ok {
		return name
	}
	return DisplayName(string(p))
}

func init() {
	for _, sig := range signatures {
		sig.displayName = DisplayName(sig.Name)
	}
	for _, p := range []features.PatternType{
		features.PatternRhythmic,
		features.PatternContinuous,
		features.PatternImpulsive,
		features.PatternHarmonic,
		features.PatternNoise,
	} {
		patternNames[p] = DisplayName(string(p))
	}
}

// Band-energy rules shared by several signatures
var (
	midOverBass = &bandRule{
		evidence: "Mid-frequency energy dominance",
		holds: func(b map[string]float64) bool {
			return b[features.BandMid] > b[features.BandBass]
		},
	}
	highMidOverSubBass = &bandRule{
		evidence: "High-mid frequency energy dominance",
		holds: func(b map[string]float64) bool {
			return b[features.BandHighMid] > b[features.BandSubBass]
		},
	}
	presenceShare = &bandRule{
		evidence: "High-frequency energy dominance",
		holds: func(b map[string]float64) bool {
			var total float64
			for _, band := range features.Bands {
				total += b[band.Name]
			}
			return b[features.BandPresence] > total*0.3
		},
	}
	bassOverPresence = &bandRule{
		evidence: "Low-frequency energy dominance",
		holds: func(b map[string]float64) bool {
			return b[features.BandBass] > b[features.BandPresence]
		},
	}
)

// Pattern compatibility weights
var (
	impulsiveFamily  = map[features.PatternType]float64{features.PatternImpulsive: 0.3}
	rhythmicFamily   = map[features.PatternType]float64{features.PatternRhythmic: 0.3}
	continuousFamily = map[features.PatternType]float64{features.PatternContinuous: 0.3}
	noiseFamily      = map[features.PatternType]float64{features.PatternNoise: 0.2}
)

// signatures is the fault table in declaration order; ties in confidence
// keep this order.
var signatures = []*Signature{
	{
		Name:            "spark_plug_misfire",
		Range:           Range{800, 2500},
		Characteristics: []string{"irregular", "popping", "intermittent"},
		Severity:        LevelWarning,
		Urgency:         LevelWarning,
		Keywords:        []string{"spark plug misfire", "engine misfire repair", "ignition system fix"},
		band:            midOverBass,
		patterns:        impulsiveFamily,
	},
	{
		Name:            "timing_chain_rattle",
		Range:           Range{1200, 4000},
		Characteristics: []string{"metallic", "startup_noise", "chain_rattle"},
		Severity:        LevelCritical,
		Urgency:         LevelCritical,
		Keywords:        []string{"timing chain rattle", "timing chain replacement", "engine timing noise"},
		band:            highMidOverSubBass,
		patterns:        rhythmicFamily,
	},
	{
		Name:            "worn_engine_bearings",
		Range:           Range{500, 2000},
		Characteristics: []string{"deep_knocking", "load_dependent", "metallic"},
		Severity:        LevelCritical,
		Urgency:         LevelCritical,
		Keywords:        []string{"engine bearing noise", "rod bearing replacement", "engine rebuild"},
		band:            bassOverPresence,
		patterns:        noiseFamily,
	},
	{
		Name:            "valve_lifter_noise",
		Range:           Range{1000, 3000},
		Characteristics: []string{"ticking", "rhythmic", "top_end"},
		Severity:        LevelWarning,
		Urgency:         LevelWarning,
		Keywords:        []string{"valve lifter noise", "hydraulic lifter repair", "valve adjustment"},
		band:            midOverBass,
		patterns:        rhythmicFamily,
	},
	{
		Name:            "serpentine_belt_squeal",
		Range:           Range{2000, 8000},
		Characteristics: []string{"high_pitched", "continuous", "belt_related"},
		Severity:        LevelWarning,
		Urgency:         LevelWarning,
		Keywords:        []string{"serpentine belt squeal", "belt replacement", "belt tensioner repair"},
		band:            presenceShare,
		patterns:        continuousFamily,
	},
	{
		Name:            "brake_pad_squeal",
		Range:           Range{3000, 10000},
		Characteristics: []string{"very_high_pitched", "braking_only", "metallic"},
		Severity:        LevelWarning,
		Urgency:         LevelWarning,
		Keywords:        []string{"brake pad squeal", "brake pad replacement", "brake service"},
		band:            presenceShare,
		patterns:        continuousFamily,
	},
	{
		Name:            "cv_joint_clicking",
		Range:           Range{1500, 5000},
		Characteristics: []string{"clicking", "turning_only", "rhythmic"},
		Severity:        LevelWarning,
		Urgency:         LevelWarning,
		Keywords:        []string{"CV joint clicking", "CV joint replacement", "axle repair"},
		patterns:        rhythmicFamily,
	},
	{
		Name:            "exhaust_leak",
		Range:           Range{100, 1000},
		Characteristics: []string{"hissing", "continuous", "exhaust_related"},
		Severity:        LevelNormal,
		Urgency:         LevelNormal,
		Keywords:        []string{"exhaust leak repair", "muffler replacement", "exhaust system fix"},
		band:            bassOverPresence,
	},
	{
		Name:            "turbo_whistle",
		Range:           Range{4000, 12000},
		Characteristics: []string{"whistling", "boost_dependent", "high_pitched"},
		Severity:        LevelWarning,
		Urgency:         LevelWarning,
		Keywords:        []string{"turbo whistle", "turbocharger repair", "boost leak fix"},
		patterns:        continuousFamily,
	},
	{
		Name:            "engine_knock",
		Range:           Range{1000, 4000},
		Characteristics: []string{"knocking", "load_dependent", "metallic"},
		Severity:        LevelCritical,
		Urgency:         LevelCritical,
		Keywords:        []string{"engine knock repair", "carbon cleaning", "octane booster"},
		band:            highMidOverSubBass,
		patterns:        noiseFamily,
	},
}

// Signatures returns the fault table in declaration order.
func Signatures() []*Signature {
	return append([]*Signature(nil), signatures...)
}

// Lookup returns the signature with the given name.
func Lookup(name string) (*Signature, bool) {
	for _, s := range signatures {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}
