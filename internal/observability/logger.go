// Package observability provides Prometheus metrics functionality for monitoring the CarDoc service.
package observability

import "github.com/cardoc/cardoc-go/internal/logger"

// Package-level cached logger instance for efficiency.
var log = logger.Global().Module("metrics")
