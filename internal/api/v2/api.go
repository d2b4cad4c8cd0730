// internal/api/v2/api.go
package api

import (
	"context"
	"crypto/rand"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/cardoc/cardoc-go/internal/buildinfo"
	"github.com/cardoc/cardoc-go/internal/conf"
	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/logger"
	"github.com/cardoc/cardoc-go/internal/observability"
	"github.com/cardoc/cardoc-go/internal/service"
)

// Diagnoser is the part of the diagnosis service the API exposes.
type Diagnoser interface {
	DiagnoseEngineSound(ctx context.Context, userID string, data []byte, contentType, filename string) (*service.Response, error)
	DiagnoseDashboard(ctx context.Context, userID string, data []byte) (*service.Response, error)
	Get(ctx context.Context, id string) (*service.Response, error)
	History(ctx context.Context, userID string, limit int) ([]service.HistoryEntry, error)
	Delete(ctx context.Context, id string) error
}

// Controller manages the API routes and handlers
type Controller struct {
	Echo     *echo.Echo
	Group    *echo.Group
	Service  Diagnoser
	Settings *conf.Settings

	build     buildinfo.BuildInfo
	metrics   *observability.Metrics
	logger    logger.Logger
	startTime time.Time
}

// Option is a functional option for configuring the Controller.
type Option func(*Controller)

// WithMetrics records HTTP metrics and serves them on /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) { c.metrics = m }
}

// WithBuildInfo sets the version reported by the health endpoint.
func WithBuildInfo(bi buildinfo.BuildInfo) Option {
	return func(c *Controller) { c.build = bi }
}

// WithLogger replaces the API logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// GetLogger returns the API v2 logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("api.v2")
}

// New creates the API controller and registers its routes on e.
func New(e *echo.Echo, svc Diagnoser, settings *conf.Settings, opts ...Option) *Controller {
	c := &Controller{
		Echo:      e,
		Group:     e.Group("/api/v2"),
		Service:   svc,
		Settings:  settings,
		build:     &buildinfo.Context{},
		logger:    GetLogger(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.initRoutes()
	return c
}

// initRoutes registers all API endpoints
func (c *Controller) initRoutes() {
	if c.metrics != nil {
		c.Group.Use(c.MetricsMiddleware())
		c.Echo.GET("/metrics", echo.WrapHandler(c.metrics.Handler()))
	}

	c.Group.GET("/health", c.HealthCheck)

	c.Group.POST("/diagnose/engine-sound", c.DiagnoseEngineSound)
	c.Group.POST("/diagnose/dashboard", c.DiagnoseDashboard)

	c.Group.GET("/diagnoses/:id", c.GetDiagnosis)
	c.Group.DELETE("/diagnoses/:id", c.DeleteDiagnosis)
	c.Group.GET("/users/:user_id/diagnoses", c.ListUserDiagnoses)
}

// MetricsMiddleware records request counts, latency and upload sizes by
// route.
func (c *Controller) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)

			req := ctx.Request()
			path := ctx.Path()
			status := ctx.Response().Status
			var he *echo.HTTPError
			if err != nil && errors.As(err, &he) {
				status = he.Code
			}
			if status >= http.StatusBadRequest {
				c.metrics.HTTP.RecordHTTPRequestError(req.Method, path, errorType(status))
			}
			c.metrics.HTTP.RecordHTTPRequest(req.Method, path, status, time.Since(start).Seconds())
			if req.Method == http.MethodPost && req.ContentLength > 0 {
				c.metrics.HTTP.RecordUploadSize(path, req.ContentLength)
			}
			return err
		}
	}
}

func errorType(status int) string {
	switch {
	case status == http.StatusBadRequest:
		return "validation"
	case status == http.StatusNotFound:
		return "not-found"
	case status == http.StatusRequestEntityTooLarge:
		return "too-large"
	case status >= http.StatusInternalServerError:
		return "internal"
	default:
		return "client"
	}
}

// Error response structure
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // Unique identifier for tracking this error
}

// NewErrorResponse creates a new API error response
func NewErrorResponse(err error, message string, code int, correlationID string) *ErrorResponse {
	if correlationID == "" {
		correlationID = generateCorrelationID()
	}

	errorStr := message
	if err != nil {
		errorStr = err.Error()
	}

	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
	}
}

// generateCorrelationID creates a unique identifier for error tracking using cryptographic randomness
func generateCorrelationID() string {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	const length = 8

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "ERR-RAND"
	}
	for i := range b {
		b[i] = charset[int(b[i])%len(charset)]
	}
	return string(b)
}

// StatusFor maps a service error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, service.ErrPersistenceDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HandleError constructs and returns an appropriate error response
func (c *Controller) HandleError(ctx echo.Context, err error, message string, code int) error {
	req := ctx.Request()
	errorResp := NewErrorResponse(err, message, code, ctx.Response().Header().Get(echo.HeaderXRequestID))

	log := c.logger.WithContext(req.Context())
	fields := []logger.Field{
		logger.String("correlation_id", errorResp.CorrelationID),
		logger.String("message", message),
		logger.Int("code", code),
		logger.String("path", req.URL.Path),
		logger.String("method", req.Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(err))
	}
	if code >= http.StatusInternalServerError {
		log.Error("API error", fields...)
	} else {
		log.Warn("API request rejected", fields...)
	}

	return ctx.JSON(code, errorResp)
}

// HandleServiceError answers with the status and message that fit err.
func (c *Controller) HandleServiceError(ctx echo.Context, err error) error {
	code := StatusFor(err)
	message := service.Message(err)
	if code == http.StatusInternalServerError {
		message = "Internal server error"
	}
	return c.HandleError(ctx, err, message, code)
}
