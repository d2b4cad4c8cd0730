package faults

import (
	"encoding/json"
	"slices"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardoc/cardoc-go/internal/features"
)

func TestSignatures_Table(t *testing.T) {
	t.Parallel()

	sigs := Signatures()
	names := make([]string, len(sigs))
	for i, s := range sigs {
		names[i] = s.Name
		assert.Len(t, s.Keywords, 3, s.Name)
		assert.Less(t, s.Range.Low, s.Range.High, s.Name)
		assert.Equal(t, s.Severity, s.Urgency, s.Name)
	}
	assert.Equal(t, []string{
		"spark_plug_misfire", "timing_chain_rattle", "worn_engine_bearings",
		"valve_lifter_noise", "serpentine_belt_squeal", "brake_pad_squeal",
		"cv_joint_clicking", "exhaust_leak", "turbo_whistle", "engine_knock",
	}, names)

	// the returned slice is a copy
	sigs[0] = nil
	assert.NotNil(t, Signatures()[0])
}

func TestDisplayName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Timing Chain Rattle", DisplayName("timing_chain_rattle"))
	assert.Equal(t, "Cv Joint Clicking", DisplayName("cv_joint_clicking"))
}

func TestScore_AllRulesFire(t *testing.T) {
	t.Parallel()

	sig, ok := Lookup("timing_chain_rattle")
	require.True(t, ok)

	ev := Evidence{
		DominantFrequency: 1500,
		BandEnergies:      map[string]float64{features.BandHighMid: 10, features.BandSubBass: 1},
		PeakFrequencies:   []float64{1500, 1512.5, 3000, 9000},
		Patterns: []features.Pattern{
			{Type: features.PatternRhythmic, Strength: 0.5},
			{Type: features.PatternNoise, Strength: 0.9},
		},
	}

	confidence, evidence := Score(sig, ev)
	assert.InDelta(t, 0.3+0.2+0.2+0.15, confidence, 1e-12)
	assert.Equal(t, []string{
		"Dominant frequency 1500Hz matches timing_chain_rattle",
		"Peak frequencies [1500.0, 1512.5, 3000.0] match timing_chain_rattle",
		"High-mid frequency energy dominance",
		"Rhythmic pattern strength: 0.50",
	}, evidence)
}

func TestScore_CappedAtOne(t *testing.T) {
	t.Parallel()

	sig, _ := Lookup("spark_plug_misfire")
	ev := Evidence{
		DominantFrequency: 1000,
		BandEnergies:      map[string]float64{features.BandMid: 5},
		PeakFrequencies:   []float64{900, 1000, 1100},
		Patterns: []features.Pattern{
			{Type: features.PatternImpulsive, Strength: 1},
			{Type: features.PatternImpulsive, Strength: 1},
		},
	}
	confidence, _ := Score(sig, ev)
	assert.InDelta(t, 1.0, confidence, 0)
}

func TestScore_MonotonicInEvidence(t *testing.T) {
	t.Parallel()

	base := Evidence{DominantFrequency: 50, BandEnergies: map[string]float64{}}
	additions := []func(Evidence) Evidence{
		func(e Evidence) Evidence { e.DominantFrequency = 1500; return e },
		func(e Evidence) Evidence { e.PeakFrequencies = append(e.PeakFrequencies, 1800); return e },
		func(e Evidence) Evidence {
			e.BandEnergies = map[string]float64{features.BandMid: 3, features.BandHighMid: 3, features.BandPresence: 9}
			return e
		},
		func(e Evidence) Evidence {
			e.Patterns = append(e.Patterns,
				features.Pattern{Type: features.PatternRhythmic, Strength: 0.7},
				features.Pattern{Type: features.PatternNoise, Strength: 0.6})
			return e
		},
	}

	for _, sig := range Signatures() {
		ev := base
		prev, _ := Score(sig, ev)
		for _, add := range additions {
			ev = add(ev)
			next, _ := Score(sig, ev)
			assert.GreaterOrEqual(t, next, prev, sig.Name)
			assert.LessOrEqual(t, next, 1.0, sig.Name)
			prev = next
		}
	}
}

func TestMatch_ThresholdIsExclusive(t *testing.T) {
	t.Parallel()

	// three peaks plus bass dominance give exhaust_leak exactly 0.4
	ev := Evidence{
		DominantFrequency: 50,
		BandEnergies:      map[string]float64{features.BandBass: 10},
		PeakFrequencies:   []float64{150, 300, 450},
	}
	sig, _ := Lookup("exhaust_leak")
	confidence, _ := Score(sig, ev)
	require.InDelta(t, 0.4, confidence, 0)

	assert.NotContains(t, Names(Match(ev)), "exhaust_leak")
}

func TestMatch_SortedWithStableTies(t *testing.T) {
	t.Parallel()

	ev := Evidence{
		DominantFrequency: 1500,
		BandEnergies: map[string]float64{
			features.BandMid:     10,
			features.BandHighMid: 10,
			features.BandBass:    1,
		},
		PeakFrequencies: []float64{},
		Patterns:        []features.Pattern{{Type: features.PatternRhythmic, Strength: 1}},
	}

	candidates := Match(ev)
	names := Names(candidates)
	// timing_chain_rattle and valve_lifter_noise both score 0.8; table order wins
	require.GreaterOrEqual(t, len(names), 2)
	assert.Equal(t, []string{"timing_chain_rattle", "valve_lifter_noise"}, names[:2])
	for i := 1; i < len(candidates); i++ {
		assert.GreaterOrEqual(t, candidates[i-1].Confidence, candidates[i].Confidence)
	}

	c := candidates[0]
	assert.Equal(t, "Timing Chain Rattle", c.DisplayName)
	assert.Equal(t, LevelCritical, c.Urgency)
	assert.Equal(t, Range{1200, 4000}, c.FrequencyRange)
	assert.NotEmpty(t, c.Evidence)
}

func TestMatch_Deterministic(t *testing.T) {
	t.Parallel()

	ev := Evidence{
		DominantFrequency: 2500,
		BandEnergies:      map[string]float64{features.BandPresence: 8, features.BandMid: 1},
		PeakFrequencies:   []float64{2500, 4500, 6000},
		Patterns:          []features.Pattern{{Type: features.PatternContinuous, Strength: 0.9}},
	}
	assert.Equal(t, Match(ev), Match(ev))
}

func TestMatch_ConcurrentCallsAgree(t *testing.T) {
	t.Parallel()

	ev := Evidence{
		DominantFrequency: 1500,
		BandEnergies: map[string]float64{
			features.BandMid:     10,
			features.BandHighMid: 10,
			features.BandBass:    1,
		},
		PeakFrequencies: []float64{1500, 1800, 3000},
		Patterns: []features.Pattern{
			{Type: features.PatternRhythmic, Strength: 0.8},
			{Type: features.PatternNoise, Strength: 0.6},
			{Type: features.PatternImpulsive, Strength: 0.5},
		},
	}
	want := Match(ev)
	require.NotEmpty(t, want)

	sig, _ := Lookup("timing_chain_rattle")
	wantScore, wantEvidence := Score(sig, ev)

	const goroutines, iterations = 16, 500
	var wg sync.WaitGroup
	results := make([][]Candidate, goroutines)
	mismatches := make([]int, goroutines)
	for g := range goroutines {
		wg.Go(func() {
			for range iterations {
				results[g] = Match(ev)
				score, evidence := Score(sig, ev)
				if score != wantScore || !slices.Equal(evidence, wantEvidence) {
					mismatches[g]++
				}
				_ = DisplayName("serpentine_belt_squeal")
			}
		})
	}
	wg.Wait()

	for g := range goroutines {
		assert.Equal(t, want, results[g])
		assert.Zero(t, mismatches[g])
	}
}

func TestUrgency(t *testing.T) {
	t.Parallel()

	assert.Equal(t, LevelNormal, Urgency(nil))
	assert.Equal(t, LevelNormal, Urgency([]Candidate{{Urgency: LevelNormal}}))
	assert.Equal(t, LevelWarning, Urgency([]Candidate{{Urgency: LevelNormal}, {Urgency: LevelWarning}}))
	assert.Equal(t, LevelCritical, Urgency([]Candidate{{Urgency: LevelWarning}, {Urgency: LevelCritical}}))
}

func TestRepairKeywords(t *testing.T) {
	t.Parallel()

	candidates := []Candidate{
		{Keywords: []string{"a", "b", "c"}},
		{Keywords: []string{"b", "d", "e"}},
		{Keywords: []string{"f", "g", "h"}},
		{Keywords: []string{"i", "j"}},
	}
	assert.Equal(t, []string{"a", "b", "c", "d", "e", "f", "g", "h"}, RepairKeywords(candidates))
	assert.Empty(t, RepairKeywords(nil))
}

func TestRange_JSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(Candidate{FrequencyRange: Range{800, 2500}})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"frequency_range":[800.0,2500.0]`)
}
