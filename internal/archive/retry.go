package archive

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/cardoc/cardoc-go/internal/errors"
)

// Retry defaults shared by the remote targets
const (
	DefaultMaxRetries   = 3
	DefaultRetryBackoff = time.Second
	DefaultTimeout      = 30 * time.Second
)

// transientErrorPatterns contains substrings that indicate a retriable error
var transientErrorPatterns = []string{
	"connection reset",
	"connection refused",
	"connection closed",
	"timeout",
	"temporary",
	"broken pipe",
	"no route to host",
	"EOF",
	"ssh: handshake failed",
	"resource temporarily unavailable",
}

// IsTransientError reports whether err is likely temporary.
func IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	if os.IsTimeout(err) {
		return true
	}

	errStr := err.Error()
	for _, pattern := range transientErrorPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// RetryConfig holds configuration for retry operations
type RetryConfig struct {
	MaxRetries int
	Backoff    time.Duration
}

// withRetry runs op until it succeeds, fails permanently or runs out of
// attempts. The backoff grows linearly.
func withRetry(ctx context.Context, cfg RetryConfig, op func() error) error {
	attempts := max(cfg.MaxRetries, 1)
	var lastErr error
	for attempt := range attempts {
		if err := ctx.Err(); err != nil {
			return errors.Join(err, lastErr)
		}

		err := op()
		if err == nil {
			return nil
		}
		if !IsTransientError(err) {
			return err
		}
		lastErr = err

		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(ctx.Err(), lastErr)
		case <-time.After(cfg.Backoff * time.Duration(attempt+1)):
		}
	}
	return lastErr
}
