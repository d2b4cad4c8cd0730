package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardoc/cardoc-go/internal/diagnosis"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/faults"
	"github.com/cardoc/cardoc-go/internal/myaudio"
	"github.com/cardoc/cardoc-go/internal/vision"
)

func newAnalysisMetrics(t *testing.T) *AnalysisMetrics {
	t.Helper()
	m, err := NewAnalysisMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	return m
}

func TestObserveAudio(t *testing.T) {
	t.Parallel()
	m := newAnalysisMetrics(t)

	m.ObserveAudio(&diagnosis.AudioResult{
		AnalysisSuccessful: true,
		DetectedFaults:     make([]faults.Candidate, 3),
		OverallConfidence:  0.72,
		UrgencyLevel:       faults.LevelCritical,
	}, 250*time.Millisecond)
	m.ObserveAudio(diagnosis.FailedAudio("a", time.Now(), diagnosis.FailureValidation, "File must be an audio file"), time.Millisecond)
	m.ObserveAudio(nil, time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(m.analysesTotal.WithLabelValues(LabelAudio, StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.analysesTotal.WithLabelValues(LabelAudio, "validation")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.urgencyTotal.WithLabelValues(LabelAudio, "critical")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.faultCandidates))
	assert.Equal(t, 1, testutil.CollectAndCount(m.analysisDuration))
}

func TestObserveImage(t *testing.T) {
	t.Parallel()
	m := newAnalysisMetrics(t)

	m.ObserveImage(&diagnosis.ImageResult{
		DetectedLights:    make([]vision.Light, 2),
		OverallConfidence: 0.65,
		UrgencyLevel:      faults.LevelWarning,
		Metadata:          diagnosis.ImageMetadata{ProcessingSuccessful: true},
	}, 40*time.Millisecond)
	m.ObserveImage(diagnosis.FailedImage("b", time.Now(), diagnosis.FailureDecode, vision.MsgUndecodable), time.Millisecond)

	assert.InDelta(t, 1, testutil.ToFloat64(m.analysesTotal.WithLabelValues(LabelImage, StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.analysesTotal.WithLabelValues(LabelImage, "decode")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.urgencyTotal.WithLabelValues(LabelImage, "warning")), 0)
}

func TestRecordDecode(t *testing.T) {
	t.Parallel()
	m := newAnalysisMetrics(t)

	silent := errors.New(myaudio.ErrSilent).Category(errors.CategoryAudioDecode).Build()
	missing := errors.Newf("ffmpeg not found").Category(errors.CategoryConfiguration).Build()

	m.RecordDecode("wav", 3*time.Millisecond, nil)
	m.RecordDecode("wav", 2*time.Millisecond, silent)
	m.RecordDecode("mp3", time.Millisecond, missing)
	m.RecordDecode("mp3", time.Millisecond, errors.NewStd("garbage"))

	assert.InDelta(t, 1, testutil.ToFloat64(m.decodesTotal.WithLabelValues("wav", StatusSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.decodesTotal.WithLabelValues("wav", StatusError)), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.decodesTotal.WithLabelValues("mp3", StatusError)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.decodeFailures.WithLabelValues("wav", "silent")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.decodeFailures.WithLabelValues("mp3", "configuration")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.decodeFailures.WithLabelValues("mp3", "unreadable")), 0)
}

func TestDuplicateRegistration(t *testing.T) {
	t.Parallel()
	registry := prometheus.NewRegistry()

	_, err := NewAnalysisMetrics(registry)
	require.NoError(t, err)
	_, err = NewAnalysisMetrics(registry)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}
