package features

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardoc/cardoc-go/internal/dsp"
	"github.com/cardoc/cardoc-go/internal/logger"
)

const sr = 22050

func constant(v float64, seconds float64) []float64 {
	y := make([]float64, int(seconds*sr))
	for i := range y {
		y[i] = v
	}
	return y
}

func sine(freq, amp, seconds float64) []float64 {
	y := make([]float64, int(seconds*sr))
	for i := range y {
		y[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/sr)
	}
	return y
}

func whiteNoise(amp, seconds float64) []float64 {
	rng := rand.New(rand.NewPCG(1, 2))
	y := make([]float64, int(seconds*sr))
	for i := range y {
		y[i] = amp * (2*rng.Float64() - 1)
	}
	return y
}

func TestAssessQuality_ConstantSignal(t *testing.T) {
	t.Parallel()

	q, err := AssessQuality(constant(0.5, 4), sr)
	require.NoError(t, err)

	assert.InDelta(t, 0.4, q.Score, 1e-9)
	assert.Equal(t, RatingPoor, q.Rating)
	assert.InDelta(t, 0, q.SNRDB, 1e-9)
	assert.InDelta(t, 4.0, q.DurationSeconds, 0)
	assert.Equal(t, []string{IssueBackgroundNoise, IssueLowDynamicRange}, q.Issues)
	assert.Equal(t, []string{RecommendQuieterPlace, RecommendCloser}, q.Recommendations)
}

func TestAssessQuality_ClippedShortClip(t *testing.T) {
	t.Parallel()

	q, err := AssessQuality(constant(1, 1), sr)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, q.ClippingRatio, 0)
	assert.Contains(t, q.Issues, IssueClipping)
	assert.Contains(t, q.Issues, IssueTooShort)
	assert.Contains(t, q.Recommendations, RecommendLowerVolume)
	assert.Contains(t, q.Recommendations, RecommendLonger)
	assert.GreaterOrEqual(t, q.Score, 0.0)
	assert.LessOrEqual(t, q.Score, 1.0)
}

func TestAssessQuality_SilentTailAndNoiseFloor(t *testing.T) {
	t.Parallel()

	// mostly silence: the 10th percentile is zero so SNR is pinned at 50 dB
	y := make([]float64, 5*sr)
	copy(y, sine(200, 0.8, 1))
	q, err := AssessQuality(y, sr)
	require.NoError(t, err)

	assert.InDelta(t, 50, q.SNRDB, 0)
	assert.Contains(t, q.Issues, IssueTooMuchSilence)
	assert.Contains(t, q.Recommendations, RecommendEngineOn)
}

func TestAssessQuality_Empty(t *testing.T) {
	t.Parallel()

	_, err := AssessQuality(nil, sr)
	require.Error(t, err)

	fallback := FailedQuality(err)
	assert.InDelta(t, 0.3, fallback.Score, 0)
	assert.Equal(t, RatingPoor, fallback.Rating)
	assert.Equal(t, []string{IssueAnalysisFailed}, fallback.Issues)
}

func TestRateQuality(t *testing.T) {
	t.Parallel()

	assert.Equal(t, RatingExcellent, RateQuality(0.81))
	assert.Equal(t, RatingGood, RateQuality(0.8))
	assert.Equal(t, RatingFair, RateQuality(0.6))
	assert.Equal(t, RatingPoor, RateQuality(0.4))
}

func TestAnalyzeSpectrum_Tone(t *testing.T) {
	t.Parallel()

	s := dsp.NewSpectrogram(sine(1500, 0.5, 2), sr, NFFT, HopLength)
	p, err := AnalyzeSpectrum(s)
	require.NoError(t, err)

	assert.InDelta(t, 1500, p.DominantFrequency, 11)
	assert.Equal(t, BandMid, p.Distribution.DominantBand)
	require.NotEmpty(t, p.PeakFrequencies)
	assert.InDelta(t, 1500, p.PeakFrequencies[0], 11)
	assert.Len(t, p.PeakMagnitudes, len(p.PeakFrequencies))
	assert.Len(t, p.BandEnergies, len(Bands))
	assert.Greater(t, p.BandEnergy(BandMid), p.BandEnergy(BandBass))
	assert.InDelta(t, 1500, p.SpectralCentroid, 200)
	assert.Less(t, p.Distribution.FrequencySpread, 50.0)
	assert.LessOrEqual(t, len(p.BandPeaks[BandMid]), 3)
}

func TestAnalyzeSpectrum_Nil(t *testing.T) {
	t.Parallel()

	_, err := AnalyzeSpectrum(nil)
	require.Error(t, err)
	assert.True(t, FailedSpectrum(err).AnalysisFailed)
}

func TestDominantBand_FirstWinsTies(t *testing.T) {
	t.Parallel()

	assert.Equal(t, BandBass, dominantBand(map[string]float64{BandBass: 2, BandHighMid: 2}))
	assert.Equal(t, BandSubBass, dominantBand(map[string]float64{}))
}

func TestAnalyzeDecibels(t *testing.T) {
	t.Parallel()

	d, err := AnalyzeDecibels(constant(0.1, 2))
	require.NoError(t, err)

	assert.InDelta(t, -20, d.MaxDB, 1e-6)
	assert.Len(t, d.RMSValues, 87)
	assert.InDelta(t, d.MaxDB-d.MinDB, d.DynamicRangeDB, 1e-12)
	assert.Equal(t, VolumeLoud, d.VolumeCategory)

	long, err := AnalyzeDecibels(constant(0.1, 10))
	require.NoError(t, err)
	assert.Len(t, long.RMSValues, 100)
}

func TestVolumeCategory(t *testing.T) {
	t.Parallel()

	tests := map[float64]string{
		-10: VolumeVeryLoud,
		-20: VolumeLoud,
		-35: VolumeModerate,
		-45: VolumeQuiet,
		-50: VolumeVeryQuiet,
	}
	for db, want := range tests {
		assert.Equal(t, want, VolumeCategory(db), "%.0f dB", db)
	}
}

func TestAnalyzeAnomalies_SingleBurst(t *testing.T) {
	t.Parallel()

	y := constant(0.01, 3)
	for i := sr; i < sr+sr/5; i++ {
		y[i] = 0.9
	}

	a, err := AnalyzeAnomalies(y, sr)
	require.NoError(t, err)

	require.Equal(t, 1, a.Count)
	require.Len(t, a.Regions, 1)
	assert.InDelta(t, 1.0, a.Regions[0].StartTime, 0.06)
	assert.InDelta(t, 0.2, a.Regions[0].Duration, 0.1)
	assert.InDelta(t, a.Regions[0].StartTime+a.Regions[0].Duration, a.Regions[0].EndTime, 1e-9)
	assert.Greater(t, a.Percentage, 0.0)
	assert.InDelta(t, a.MaxDuration, a.TotalTime, 0.01)
}

func TestAnalyzeAnomalies_CapsRegions(t *testing.T) {
	t.Parallel()

	y := constant(0.001, 13)
	for burst := range 12 {
		start := (burst + 1) * sr
		for i := start; i < start+441; i++ {
			y[i] = 0.9
		}
	}

	a, err := AnalyzeAnomalies(y, sr)
	require.NoError(t, err)
	assert.Equal(t, 12, a.Count)
	assert.Len(t, a.Regions, maxReportedRegions)
	for i := 1; i < len(a.Regions); i++ {
		assert.Greater(t, a.Regions[i].StartTime, a.Regions[i-1].StartTime)
	}
}

func TestRhythmicStrength(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, RhythmicStrength([]int{0, 10, 20, 30}), 1e-12)
	assert.InDelta(t, 1/1.2, RhythmicStrength([]int{0, 10, 25}), 1e-12)
	assert.Zero(t, RhythmicStrength([]int{0, 10}))
}

func TestImpulsiveness(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Impulsiveness(sr, 0))
	assert.InDelta(t, 1.0, Impulsiveness(5120, 2), 0)
	assert.InDelta(t, 0.1, Impulsiveness(51200, 2), 1e-12)
	assert.Zero(t, Impulsiveness(100, 3))
}

func TestContinuityAndNoise(t *testing.T) {
	t.Parallel()

	c, err := Continuity(constant(0.3, 2))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, c, 0)

	noisy, err := NoiseLevel(dsp.NewSpectrogram(whiteNoise(0.5, 2), sr, NFFT, HopLength))
	require.NoError(t, err)
	tonal, err := NoiseLevel(dsp.NewSpectrogram(sine(440, 0.5, 2), sr, NFFT, HopLength))
	require.NoError(t, err)
	assert.Greater(t, noisy, 0.4)
	assert.Less(t, tonal, 0.1)
}

func TestHarmonicStrength_Tone(t *testing.T) {
	t.Parallel()

	h, err := HarmonicStrength(dsp.NewSpectrogram(sine(440, 0.5, 2), sr, NFFT, HopLength))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, h, 1e-9)
}

func TestDetectPatterns_Characteristics(t *testing.T) {
	t.Parallel()

	y := sine(440, 0.5, 3)
	patterns := DetectPatterns(logger.NewNopLogger(), y, dsp.NewSpectrogram(y, sr, NFFT, HopLength))

	byType := map[PatternType]Pattern{}
	for _, p := range patterns {
		byType[p.Type] = p
		assert.Greater(t, p.Strength, 0.0)
		assert.LessOrEqual(t, p.Strength, 1.0)
	}
	require.Contains(t, byType, PatternContinuous)
	assert.Equal(t, []string{"sustained", "mechanical", "wear_related"}, byType[PatternContinuous].Characteristics)
	assert.InDelta(t, byType[PatternContinuous].Strength, byType[PatternContinuous].DurationRatio, 0)
	require.Contains(t, byType, PatternHarmonic)
	assert.NotContains(t, byType, PatternNoise)
}

func TestGuard_RecoversPanic(t *testing.T) {
	t.Parallel()

	got := guard(logger.NewNopLogger(), "boom", func(err error) string { return "fallback: " + err.Error() },
		func() (string, error) { panic("index out of range") })
	assert.Equal(t, "fallback: boom panicked: index out of range", got)
}

func TestExtract_EmptyWaveformDegrades(t *testing.T) {
	t.Parallel()

	f := NewExtractor(logger.NewNopLogger()).Extract(nil, sr)

	assert.Equal(t, RatingPoor, f.Quality.Rating)
	assert.True(t, f.Spectrum.AnalysisFailed)
	assert.True(t, f.Decibels.AnalysisFailed)
	assert.True(t, f.Anomalies.AnalysisFailed)
	assert.Empty(t, f.Patterns)
}

func TestExtract_Deterministic(t *testing.T) {
	t.Parallel()

	y := sine(1500, 0.4, 2)
	for i := range y {
		y[i] += 0.05 * math.Sin(float64(i)*0.37)
	}
	ex := NewExtractor(logger.NewNopLogger())
	assert.Equal(t, ex.Extract(y, sr), ex.Extract(y, sr))
}
