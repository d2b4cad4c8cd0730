// Package resultcache stores finished diagnoses keyed by the hash of the
// uploaded media, so a re-upload of the same clip or photo skips analysis.
package resultcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/logger"
)

// defaultTTL applies when settings carry no positive TTL.
const defaultTTL = time.Hour

// Cache stores opaque encoded results. Get reports a miss with ok=false
// and a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key derives the cache key of a media upload. kind separates audio and
// image entries that happen to share bytes.
func Key(kind string, data []byte) string {
	sum := sha256.Sum256(data)
	return kind + ":" + hex.EncodeToString(sum[:])
}

// New builds the backend selected in settings. A disabled cache yields a
// Cache that always misses.
func New(settings *conf.CacheSettings) (Cache, error) {
	if !settings.Enabled {
		return Disabled{}, nil
	}
	switch settings.Backend {
	case conf.CacheBackendRedis:
		return NewRedis(settings.Redis, settings.TTL)
	case conf.CacheBackendMemory, "":
		return NewMemory(settings.TTL), nil
	default:
		return nil, errors.Newf("unknown cache backend %q", settings.Backend).
			Component("resultcache").
			Category(errors.CategoryConfiguration).
			Context("backend", settings.Backend).
			Build()
	}
}

// Disabled is a Cache that stores nothing.
type Disabled struct{}

func (Disabled) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Disabled) Set(context.Context, string, []byte) error         { return nil }
func (Disabled) Delete(context.Context, string) error              { return nil }
func (Disabled) Close() error                                      { return nil }

// GetLogger returns the resultcache logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("resultcache")
}

func cacheError(err error, backend, operation string) error {
	return errors.New(err).
		Component("resultcache").
		Category(errors.CategoryCache).
		Context("backend", backend).
		Context("operation", operation).
		Build()
}
