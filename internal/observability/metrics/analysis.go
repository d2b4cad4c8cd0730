package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/cardoc/cardoc-go/internal/diagnosis"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/myaudio"
)

// AnalysisMetrics contains Prometheus metrics for the analysis core. It
// satisfies diagnosis.Observer and myaudio.DecodeObserver.
type AnalysisMetrics struct {
	analysesTotal    *prometheus.CounterVec
	analysisDuration *prometheus.HistogramVec
	confidence       *prometheus.HistogramVec
	faultCandidates  prometheus.Histogram
	lightsDetected   prometheus.Histogram
	urgencyTotal     *prometheus.CounterVec
	decodesTotal     *prometheus.CounterVec
	decodeDuration   *prometheus.HistogramVec
	decodeFailures   *prometheus.CounterVec
}

var (
	_ diagnosis.Observer     = (*AnalysisMetrics)(nil)
	_ myaudio.DecodeObserver = (*AnalysisMetrics)(nil)
)

// NewAnalysisMetrics creates and registers analysis metrics.
func NewAnalysisMetrics(registry *prometheus.Registry) (*AnalysisMetrics, error) {
	m := &AnalysisMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, errors.New(err).
			Component("metrics").
			Category(errors.CategoryConfiguration).
			Context("collector", "analysis").
			Build()
	}
	return m, nil
}

func (m *AnalysisMetrics) initMetrics() {
	m.analysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardoc_analyses_total",
			Help: "Total number of analyses by modality and outcome",
		},
		[]string{"modality", "outcome"}, // outcome: success, validation, decode
	)

	m.analysisDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cardoc_analysis_duration_seconds",
			Help:    "Time taken for a complete analysis",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12), // 10ms to ~20s
		},
		[]string{"modality"},
	)

	m.confidence = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cardoc_analysis_confidence",
			Help:    "Overall confidence of successful analyses",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		},
		[]string{"modality"},
	)

	m.faultCandidates = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cardoc_fault_candidates",
		Help:    "Number of fault candidates per successful audio analysis",
		Buckets: prometheus.LinearBuckets(0, 1, 11),
	})

	m.lightsDetected = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cardoc_lights_detected",
		Help:    "Number of warning lights per successful image analysis",
		Buckets: prometheus.ExponentialBuckets(1, BucketFactor2, 8),
	})

	m.urgencyTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardoc_analysis_urgency_total",
			Help: "Total number of analyses by modality and urgency level",
		},
		[]string{"modality", "urgency"},
	)

	m.decodesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardoc_audio_decodes_total",
			Help: "Total number of audio decode attempts",
		},
		[]string{"format", "status"},
	)

	m.decodeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cardoc_audio_decode_duration_seconds",
			Help:    "Time taken to decode an uploaded clip",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15), // 1ms to ~16s
		},
		[]string{"format"},
	)

	m.decodeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cardoc_audio_decode_failures_total",
			Help: "Total number of failed audio decodes by format and reason",
		},
		[]string{"format", "reason"}, // reason: unreadable, empty, silent, configuration
	)
}

func (m *AnalysisMetrics) getCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.analysesTotal,
		m.analysisDuration,
		m.confidence,
		m.faultCandidates,
		m.lightsDetected,
		m.urgencyTotal,
		m.decodesTotal,
		m.decodeDuration,
		m.decodeFailures,
	}
}

// Describe implements the Collector interface
func (m *AnalysisMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.getCollectors() {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *AnalysisMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.getCollectors() {
		collector.Collect(ch)
	}
}

// ObserveAudio records a finished engine-sound analysis.
func (m *AnalysisMetrics) ObserveAudio(result *diagnosis.AudioResult, elapsed time.Duration) {
	if result == nil {
		return
	}
	m.analysisDuration.WithLabelValues(LabelAudio).Observe(elapsed.Seconds())
	if !result.AnalysisSuccessful {
		m.analysesTotal.WithLabelValues(LabelAudio, string(result.FailureKind)).Inc()
		return
	}
	m.analysesTotal.WithLabelValues(LabelAudio, StatusSuccess).Inc()
	m.confidence.WithLabelValues(LabelAudio).Observe(result.OverallConfidence)
	m.faultCandidates.Observe(float64(len(result.DetectedFaults)))
	m.urgencyTotal.WithLabelValues(LabelAudio, string(result.UrgencyLevel)).Inc()
}

// ObserveImage records a finished dashboard analysis.
func (m *AnalysisMetrics) ObserveImage(result *diagnosis.ImageResult, elapsed time.Duration) {
	if result == nil {
		return
	}
	m.analysisDuration.WithLabelValues(LabelImage).Observe(elapsed.Seconds())
	if !result.Successful() {
		m.analysesTotal.WithLabelValues(LabelImage, string(result.FailureKind)).Inc()
		return
	}
	m.analysesTotal.WithLabelValues(LabelImage, StatusSuccess).Inc()
	m.confidence.WithLabelValues(LabelImage).Observe(result.OverallConfidence)
	m.lightsDetected.Observe(float64(len(result.DetectedLights)))
	m.urgencyTotal.WithLabelValues(LabelImage, string(result.UrgencyLevel)).Inc()
}

// RecordDecode records one audio decode attempt.
func (m *AnalysisMetrics) RecordDecode(format string, duration time.Duration, err error) {
	m.decodeDuration.WithLabelValues(format).Observe(duration.Seconds())
	if err == nil {
		m.decodesTotal.WithLabelValues(format, StatusSuccess).Inc()
		return
	}
	m.decodesTotal.WithLabelValues(format, StatusError).Inc()
	m.decodeFailures.WithLabelValues(format, decodeFailureReason(err)).Inc()
}

// decodeFailureReason keeps the reason label to a fixed set of values.
func decodeFailureReason(err error) string {
	switch {
	case errors.Is(err, myaudio.ErrEmpty):
		return "empty"
	case errors.Is(err, myaudio.ErrSilent):
		return "silent"
	case errors.IsCategory(err, errors.CategoryConfiguration):
		return "configuration"
	default:
		return "unreadable"
	}
}
