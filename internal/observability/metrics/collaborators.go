package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cardoc/cardoc-go/internal/errors"
)

// CollaboratorMetrics records the outcome of the side effects around an
// analysis: cache, persistence, archival, notification, publishing,
// narration and tutorial search. It implements Recorder.
type CollaboratorMetrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationErrors   *prometheus.CounterVec
}

var _ Recorder = (*CollaboratorMetrics)(nil)

// NewCollaboratorMetrics creates and registers collaborator metrics.
func NewCollaboratorMetrics(registry *prometheus.Registry) (*CollaboratorMetrics, error) {
	m := &CollaboratorMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardoc_collaborator_operations_total",
				Help: "Total number of collaborator operations by status",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cardoc_collaborator_operation_duration_seconds",
				Help:    "Time taken for collaborator operations",
				Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15),
			},
			[]string{"operation"},
		),
		operationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cardoc_collaborator_errors_total",
				Help: "Total number of collaborator errors by category",
			},
			[]string{"operation", "error_type"},
		),
	}
	if err := registry.Register(m); err != nil {
		return nil, errors.New(err).
			Component("metrics").
			Category(errors.CategoryConfiguration).
			Context("collector", "collaborators").
			Build()
	}
	return m, nil
}

// Describe implements the Collector interface
func (m *CollaboratorMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.operationsTotal.Describe(ch)
	m.operationDuration.Describe(ch)
	m.operationErrors.Describe(ch)
}

// Collect implements the Collector interface
func (m *CollaboratorMetrics) Collect(ch chan<- prometheus.Metric) {
	m.operationsTotal.Collect(ch)
	m.operationDuration.Collect(ch)
	m.operationErrors.Collect(ch)
}

// RecordOperation implements Recorder.
func (m *CollaboratorMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordDuration implements Recorder.
func (m *CollaboratorMetrics) RecordDuration(operation string, seconds float64) {
	m.operationDuration.WithLabelValues(operation).Observe(seconds)
}

// RecordError implements Recorder.
func (m *CollaboratorMetrics) RecordError(operation, errorType string) {
	m.operationErrors.WithLabelValues(operation, errorType).Inc()
}

// RecordOutcome records status, duration and, when err is non-nil, its
// error category for one operation.
func RecordOutcome(r Recorder, operation string, seconds float64, err error) {
	if r == nil {
		return
	}
	r.RecordDuration(operation, seconds)
	if err == nil {
		r.RecordOperation(operation, StatusSuccess)
		return
	}
	r.RecordOperation(operation, StatusError)
	r.RecordError(operation, errorType(err))
}

func errorType(err error) string {
	var ee *errors.EnhancedError
	if errors.As(err, &ee) && ee.Category != "" {
		return string(ee.Category)
	}
	return string(errors.CategoryGeneric)
}
