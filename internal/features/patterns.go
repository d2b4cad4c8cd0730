package features

import (
	"github.com/cardoc/cardoc-go/internal/dsp"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/logger"
)

// PatternType names a qualitative sound shape.
type PatternType string

const (
	PatternRhythmic   PatternType = "rhythmic"
	PatternContinuous PatternType = "continuous"
	PatternImpulsive  PatternType = "impulsive"
	PatternHarmonic   PatternType = "harmonic"
	PatternNoise      PatternType = "noise"
)

// Detection thresholds; a pattern is reported when its strength exceeds them
const (
	RhythmicThreshold   = 0.4
	ContinuousThreshold = 0.6
	ImpulsiveThreshold  = 0.3
	HarmonicThreshold   = 0.3
	NoiseThreshold      = 0.5
)

const (
	minBeats             = 3
	sustainedEnergyRatio = 0.2
	onsetDensityScale    = 5.0
	flatnessFloor        = 1e-10
)

// patternCharacteristics are the fixed descriptive tags of each pattern.
var patternCharacteristics = map[PatternType][]string{
	PatternRhythmic:   {"regular_intervals", "engine_related", "mechanical"},
	PatternContinuous: {"sustained", "mechanical", "wear_related"},
	PatternImpulsive:  {"sudden", "impact", "combustion_related"},
	PatternHarmonic:   {"tonal", "engine_fundamental", "rpm_related"},
	PatternNoise:      {"random", "wear_related", "mechanical_stress"},
}

// Pattern is one detected sound shape with its strength in [0, 1].
type Pattern struct {
	Type            PatternType `json:"pattern_type"`
	Strength        float64     `json:"strength"`
	Tempo           float64     `json:"tempo,omitempty"`
	BeatCount       int         `json:"beat_count,omitempty"`
	DurationRatio   float64     `json:"duration_ratio,omitempty"`
	OnsetCount      int         `json:"onset_count,omitempty"`
	Characteristics []string    `json:"characteristics"`
}

func newPattern(t PatternType, strength float64) Pattern {
	return Pattern{
		Type:            t,
		Strength:        strength,
		Characteristics: append([]string(nil), patternCharacteristics[t]...),
	}
}

// Strengths returns the strength of every pattern, in order.
func Strengths(patterns []Pattern) []float64 {
	out := make([]float64, len(patterns))
	for i, p := range patterns {
		out[i] = p.Strength
	}
	return out
}

// DetectPatterns runs the five independent detectors over y and its
// spectrogram. Each detector is guarded: a failure yields strength 0 for
// that detector only. Patterns are returned in detector order.
func DetectPatterns(log logger.Logger, y []float64, s *dsp.Spectrogram) []Pattern {
	if log == nil {
		log = GetLogger()
	}
	zero := func(error) float64 { return 0 }
	patterns := []Pattern{}
	if s == nil {
		return patterns
	}

	var tempo float64
	var beats []int
	rhythmic := guard(log, "rhythmic_pattern", zero, func() (float64, error) {
		env := dsp.OnsetStrength(s, dsp.Median)
		tempo, beats = dsp.TrackBeats(env, s.SampleRate, s.Hop)
		return RhythmicStrength(beats), nil
	})
	if rhythmic > RhythmicThreshold {
		p := newPattern(PatternRhythmic, rhythmic)
		p.Tempo = tempo
		p.BeatCount = len(beats)
		patterns = append(patterns, p)
	}

	continuity := guard(log, "continuous_pattern", zero, func() (float64, error) {
		return Continuity(y)
	})
	if continuity > ContinuousThreshold {
		p := newPattern(PatternContinuous, continuity)
		p.DurationRatio = continuity
		patterns = append(patterns, p)
	}

	var onsets []int
	impulsive := guard(log, "impulsive_pattern", zero, func() (float64, error) {
		env := dsp.OnsetStrength(s, dsp.Mean)
		onsets = dsp.OnsetDetect(env, dsp.DefaultOnsetParams(s.SampleRate, s.Hop))
		return Impulsiveness(len(y), len(onsets)), nil
	})
	if impulsive > ImpulsiveThreshold {
		p := newPattern(PatternImpulsive, impulsive)
		p.OnsetCount = len(onsets)
		patterns = append(patterns, p)
	}

	harmonic := guard(log, "harmonic_pattern", zero, func() (float64, error) {
		return HarmonicStrength(s)
	})
	if harmonic > HarmonicThreshold {
		patterns = append(patterns, newPattern(PatternHarmonic, harmonic))
	}

	noise := guard(log, "noise_pattern", zero, func() (float64, error) {
		return NoiseLevel(s)
	})
	if noise > NoiseThreshold {
		patterns = append(patterns, newPattern(PatternNoise, noise))
	}

	return patterns
}

// RhythmicStrength is 1/(1 + cv) of the beat-to-beat intervals, or 0 with
// fewer than three beats.
func RhythmicStrength(beats []int) float64 {
	if len(beats) < minBeats {
		return 0
	}
	intervals := make([]float64, len(beats)-1)
	for i := range intervals {
		intervals[i] = float64(beats[i+1] - beats[i])
	}
	mean := dsp.Mean(intervals)
	if mean <= 0 {
		return 0
	}
	return min(1/(1+dsp.Std(intervals)/mean), 1)
}

// Continuity is the fraction of RMS frames above 20% of the loudest frame.
func Continuity(y []float64) (float64, error) {
	if len(y) == 0 {
		return 0, errors.NewStd("empty waveform")
	}
	rms := dsp.RMS(y, NFFT, HopLength)
	if len(rms) == 0 {
		return 0, errors.NewStd("no RMS frames")
	}
	peak := rms[dsp.ArgMax(rms)]
	var sustained int
	for _, v := range rms {
		if v > peak*sustainedEnergyRatio {
			sustained++
		}
	}
	return min(float64(sustained)/float64(len(rms)), 1), nil
}

// Impulsiveness scales the onset density per hop-sized frame by 5.
func Impulsiveness(samples, onsets int) float64 {
	frames := samples / HopLength
	if onsets == 0 || frames == 0 {
		return 0
	}
	return min(float64(onsets)/float64(frames)*onsetDensityScale, 1)
}

// HarmonicStrength is the mean per-frame maximum of the normalised chroma.
func HarmonicStrength(s *dsp.Spectrogram) (float64, error) {
	fb := dsp.ChromaFilterbank(s.SampleRate, s.NFFT)
	chroma := dsp.Chroma(s.Power(), fb)
	if len(chroma) == 0 {
		return 0, errors.NewStd("no chroma frames")
	}
	maxima := make([]float64, len(chroma))
	for t, row := range chroma {
		maxima[t] = row[dsp.ArgMax(row)]
	}
	return min(dsp.Mean(maxima), 1), nil
}

// NoiseLevel is the mean spectral flatness of the power spectrogram.
func NoiseLevel(s *dsp.Spectrogram) (float64, error) {
	flat := dsp.SpectralFlatness(s, flatnessFloor)
	if len(flat) == 0 {
		return 0, errors.NewStd("no spectral frames")
	}
	return min(dsp.Mean(flat), 1), nil
}

// FailedPatterns is the empty pattern list of a failed analysis.
func FailedPatterns() []Pattern { return []Pattern{} }
