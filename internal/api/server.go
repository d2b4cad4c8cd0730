package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	mw "github.com/cardoc/cardoc-go/internal/api/middleware"
	v2 "github.com/cardoc/cardoc-go/internal/api/v2"
	"github.com/cardoc/cardoc-go/internal/buildinfo"
	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/logger"
	"github.com/cardoc/cardoc-go/internal/observability"
)

// Server is the main HTTP server for CarDoc.
// It manages the Echo framework instance, middleware, and all HTTP routes.
type Server struct {
	// Core components
	echo     *echo.Echo
	config   *Config
	settings *conf.Settings
	logger   logger.Logger

	// Dependencies
	service v2.Diagnoser
	metrics *observability.Metrics
	build   buildinfo.BuildInfo

	// API controller
	apiController *v2.Controller

	// Separate /metrics listener, nil when metrics share the API port
	metricsEndpoint *observability.Endpoint

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	errCh  chan error
}

// ServerOption is a functional option for configuring the Server.
type ServerOption func(*Server)

// WithLogger sets the logger for the server.
func WithLogger(l logger.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetrics sets the observability metrics for the server.
func WithMetrics(m *observability.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithBuildInfo sets the build metadata reported by the health endpoint.
func WithBuildInfo(bi buildinfo.BuildInfo) ServerOption {
	return func(s *Server) {
		s.build = bi
	}
}

// New creates a new HTTP server serving svc with the given settings and options.
func New(settings *conf.Settings, svc v2.Diagnoser, opts ...ServerOption) (*Server, error) {
	config := ConfigFromSettings(settings)
	if err := config.Validate(); err != nil {
		return nil, errors.New(err).
			Component("api").
			Category(errors.CategoryConfiguration).
			Context("operation", "validate_server_config").
			Build()
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		config:   config,
		settings: settings,
		service:  svc,
		build:    &buildinfo.Context{},
		ctx:      ctx,
		cancel:   cancel,
		errCh:    make(chan error, 1),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = GetLogger()
	}

	s.echo = echo.New()
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Logger = logger.NewEchoLoggerAdapter(s.logger)
	s.echo.Debug = config.Debug

	s.echo.Server.ReadTimeout = config.ReadTimeout
	s.echo.Server.WriteTimeout = config.WriteTimeout
	s.echo.Server.IdleTimeout = config.IdleTimeout

	s.setupMiddleware()
	s.setupRoutes()

	if s.metrics != nil && settings.Metrics.Enabled && settings.Metrics.Listen != "" {
		endpoint, err := observability.NewEndpoint(settings, s.metrics)
		if err != nil {
			cancel()
			return nil, err
		}
		s.metricsEndpoint = endpoint
	}

	s.logger.Info("HTTP server initialized",
		logger.String("listen", config.Listen),
		logger.String("body_limit", config.BodyLimit),
		logger.Bool("cors", len(config.AllowedOrigins) > 0),
		logger.Bool("debug", config.Debug),
	)

	return s, nil
}

// setupMiddleware configures the Echo middleware stack.
func (s *Server) setupMiddleware() {
	// Recovery middleware - should be first
	s.echo.Use(echomw.Recover())

	s.echo.Use(mw.NewRequestID())
	s.echo.Use(mw.NewRequestLogger(s.logger))

	securityConfig := mw.DefaultSecurityConfig()
	securityConfig.AllowedOrigins = s.config.AllowedOrigins

	if len(securityConfig.AllowedOrigins) > 0 {
		s.echo.Use(mw.NewCORS(securityConfig))
	}

	s.echo.Use(mw.NewBodyLimit(s.config.BodyLimit))
	s.echo.Use(mw.NewGzip())
	s.echo.Use(mw.NewSecureHeaders(securityConfig))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	opts := []v2.Option{
		v2.WithBuildInfo(s.build),
		v2.WithLogger(s.logger.Module("v2")),
	}
	if s.metrics != nil {
		opts = append(opts, v2.WithMetrics(s.metrics))
	}
	s.apiController = v2.New(s.echo, s.service, s.settings, opts...)

	// Root level alias for load balancers
	s.echo.GET("/health", s.apiController.HealthCheck)

	s.logger.Debug("Routes initialized", logger.String("api_version", "v2"))
}

// Start begins serving HTTP requests in a background goroutine and returns
// immediately. Errors from the listener are reported by Wait.
func (s *Server) Start() {
	if s.metricsEndpoint != nil {
		s.metricsEndpoint.Start(s.ctx, &s.wg)
	}

	s.wg.Go(func() {
		s.logger.Info("Starting HTTP server", logger.String("address", s.config.Listen))
		if err := s.echo.Start(s.config.Listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server error", logger.Error(err))
			s.errCh <- err
		}
	})
}

// Wait blocks until ctx is cancelled, the server shuts down or the
// listener fails.
func (s *Server) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return nil
	case <-s.ctx.Done():
		return nil
	case err := <-s.errCh:
		return err
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()

	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	if err := s.echo.Shutdown(ctx); err != nil {
		s.logger.Error("Error during server shutdown", logger.Error(err))
		return errors.New(err).
			Component("api").
			Category(errors.CategoryGeneric).
			Context("operation", "shutdown").
			Build()
	}

	s.wg.Wait()
	s.logger.Info("Server shutdown complete")
	return nil
}

// Addr returns the bound listener address, or nil before Start has bound it.
func (s *Server) Addr() net.Addr {
	return s.echo.ListenerAddr()
}

// WaitForListener polls until the listener is bound or timeout elapses.
func (s *Server) WaitForListener(timeout time.Duration) (net.Addr, error) {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if addr := s.Addr(); addr != nil {
			return addr, nil
		}
		select {
		case err := <-s.errCh:
			return nil, err
		case <-time.After(10 * time.Millisecond):
		}
	}
	return nil, errors.Newf("server did not bind %s within %s", s.config.Listen, timeout).
		Component("api").
		Category(errors.CategoryGeneric).
		Build()
}

// APIController returns the v2 API controller.
func (s *Server) APIController() *v2.Controller {
	return s.apiController
}

// Echo returns the underlying Echo instance.
// This is useful for testing or advanced configuration.
func (s *Server) Echo() *echo.Echo {
	return s.echo
}
