// Package metrics provides constants used across metric definitions.
package metrics

import "time"

// Operation constants recorded through the Recorder interface by the
// collaborators of the diagnosis service.
const (
	// OpCacheGet represents result cache lookups.
	OpCacheGet = "cache_get"
	// OpCacheSet represents result cache stores.
	OpCacheSet = "cache_set"
	// OpDbInsert represents diagnostic record inserts.
	OpDbInsert = "db_insert"
	// OpDbQuery represents diagnostic record queries.
	OpDbQuery = "db_query"
	// OpDbDelete represents diagnostic record deletes.
	OpDbDelete = "db_delete"
	// OpArchive represents raw upload archival.
	OpArchive = "archive"
	// OpNotify represents urgent-result notifications.
	OpNotify = "notify"
	// OpMQTTPublish represents result summary publishing.
	OpMQTTPublish = "mqtt_publish"
	// OpNarration represents diagnosis narration requests.
	OpNarration = "narration"
	// OpTutorialSearch represents tutorial search requests.
	OpTutorialSearch = "tutorial_search"
)

// Label value constants used for metric labels.
const (
	// LabelAudio is the modality label for engine-sound analyses.
	LabelAudio = "audio"
	// LabelImage is the modality label for dashboard analyses.
	LabelImage = "image"
	// StatusSuccess marks a successful operation.
	StatusSuccess = "success"
	// StatusError marks a failed operation.
	StatusError = "error"
	// StatusHit marks a cache hit.
	StatusHit = "hit"
	// StatusMiss marks a cache miss.
	StatusMiss = "miss"
	// StatusSkipped marks an operation that was not attempted.
	StatusSkipped = "skipped"
)

// Histogram bucket configuration constants.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart100B is the starting bucket for 100 byte histograms (100B to ~100MB range).
	BucketStart100B = 100.0

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2
	// BucketFactor10 is the exponential growth factor of 10 for larger ranges.
	BucketFactor10 = 10

	// BucketCount6 defines 6 exponential buckets.
	BucketCount6 = 6
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
	// BucketCount15 defines 15 exponential buckets.
	BucketCount15 = 15
)

// ShutdownTimeout is the timeout for graceful shutdown of the metrics endpoint.
const ShutdownTimeout = 5 * time.Second
