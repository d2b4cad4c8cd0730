// Package metrics provides custom Prometheus metrics for the CarDoc service.
package metrics

// Recorder defines a minimal interface for recording metrics.
// Collaborators of the diagnosis service depend on it rather than on
// concrete metric implementations.
type Recorder interface {
	// RecordOperation records an operation (e.g. "cache_get", "archive")
	// with its status (e.g. "success", "error", "hit").
	RecordOperation(operation, status string)

	// RecordDuration records the duration of an operation in seconds.
	RecordDuration(operation string, seconds float64)

	// RecordError records an error occurrence with its category.
	RecordError(operation, errorType string)
}

// NoOpRecorder is a no-op implementation of the Recorder interface.
type NoOpRecorder struct{}

// RecordOperation does nothing.
func (n *NoOpRecorder) RecordOperation(operation, status string) {}

// RecordDuration does nothing.
func (n *NoOpRecorder) RecordDuration(operation string, seconds float64) {}

// RecordError does nothing.
func (n *NoOpRecorder) RecordError(operation, errorType string) {}

// NewNoOpRecorder creates a new no-op recorder instance.
func NewNoOpRecorder() *NoOpRecorder {
	return &NoOpRecorder{}
}
