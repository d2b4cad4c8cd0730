// Package api provides the HTTP server infrastructure for CarDoc.
// This package contains the main server implementation while the JSON API
// endpoints are organized in the v2 subpackage.
package api

import (
	"fmt"
	"net"
	"time"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/logger"
)

// GetLogger returns the api package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api")
}

// Default constants for the HTTP server.
const (
	DefaultListen          = ":8080"
	DefaultReadTimeout     = 60 * time.Second // uploads of up to 25 MB over slow links
	DefaultWriteTimeout    = 120 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 10 * time.Second

	// DefaultBodyLimit leaves room for multipart framing around the largest upload.
	DefaultBodyLimit = "30M"
)

// Config holds the HTTP server configuration.
type Config struct {
	Listen         string   // host:port to bind
	AllowedOrigins []string // CORS allowed origins, empty disables CORS

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	BodyLimit string // Maximum request body size (e.g., "1M", "30M")

	Debug bool
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Listen:          DefaultListen,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		IdleTimeout:     DefaultIdleTimeout,
		ShutdownTimeout: DefaultShutdownTimeout,
		BodyLimit:       DefaultBodyLimit,
	}
}

// ConfigFromSettings creates a Config from the application settings.
func ConfigFromSettings(settings *conf.Settings) *Config {
	cfg := DefaultConfig()

	if settings.WebServer.Listen != "" {
		cfg.Listen = settings.WebServer.Listen
	}
	if settings.WebServer.BodyLimit != "" {
		cfg.BodyLimit = settings.WebServer.BodyLimit
	}
	cfg.AllowedOrigins = settings.WebServer.CORSOrigins
	cfg.Debug = settings.WebServer.Debug || settings.Debug

	return cfg
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if _, _, err := net.SplitHostPort(c.Listen); err != nil {
		return errors.New(err).
			Component("api").
			Category(errors.CategoryConfiguration).
			Context("listen", c.Listen).
			Build()
	}

	if c.ReadTimeout <= 0 {
		return errors.ValidationError("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return errors.ValidationError("write timeout must be positive")
	}

	return nil
}

// String returns a human-readable representation of the config.
func (c *Config) String() string {
	cors := "disabled"
	if len(c.AllowedOrigins) > 0 {
		cors = fmt.Sprintf("%v", c.AllowedOrigins)
	}
	return fmt.Sprintf("Server Config: listen=%s, body_limit=%s, cors=%s, debug=%v",
		c.Listen, c.BodyLimit, cors, c.Debug)
}
