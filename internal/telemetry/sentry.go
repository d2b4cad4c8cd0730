// Package telemetry initializes Sentry error reporting and connects it to
// the enhanced error builder.
package telemetry

import (
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/logger"
)

var sentryInitialized atomic.Bool

// InitSentry sets up the Sentry SDK when enabled in settings and installs the
// Sentry reporter for built errors. With Sentry disabled it is a no-op.
func InitSentry(settings *conf.Settings, version string) error {
	if !settings.Sentry.Enabled {
		logger.Global().Module("telemetry").Debug("sentry disabled")
		return nil
	}

	return initWithOptions(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       settings.Sentry.SampleRate,
		Debug:            settings.Debug,
		AttachStacktrace: false,
		Environment:      settings.Sentry.Environment,
		ServerName:       "",
		Release:          fmt.Sprintf("cardoc@%s", version),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
}

func initWithOptions(opts sentry.ClientOptions) error {
	if err := sentry.Init(opts); err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Context("operation", "sentry_init").
			Build()
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("platform", runtime.GOOS)
		scope.SetTag("arch", runtime.GOARCH)
	})

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	sentryInitialized.Store(true)

	logger.Global().Module("telemetry").Info("sentry telemetry initialized",
		logger.String("environment", opts.Environment),
		logger.String("release", opts.Release))
	return nil
}

// applyPrivacyFilters strips host and user identifying data from an event
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	if event.Request != nil {
		event.Request.Cookies = ""
		event.Request.Headers = nil
		event.Request.QueryString = ""
	}
	return event
}

// Flush waits for queued events; safe to call when Sentry was never initialized.
func Flush(timeout time.Duration) {
	if !sentryInitialized.Load() {
		return
	}
	if !sentry.Flush(timeout) {
		logger.Global().Module("telemetry").Warn("sentry flush timed out", logger.Duration("timeout", timeout))
	}
}

// Shutdown detaches the reporter and flushes pending events.
func Shutdown(timeout time.Duration) {
	errors.SetTelemetryReporter(nil)
	Flush(timeout)
	sentryInitialized.Store(false)
}
