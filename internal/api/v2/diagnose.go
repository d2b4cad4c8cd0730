// internal/api/v2/diagnose.go
package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cardoc/cardoc-go/internal/errors"
	"github.com/cardoc/cardoc-go/internal/logger"
)

// DefaultMaxUploadBytes caps an upload when settings leave it unset.
const DefaultMaxUploadBytes = 25 << 20

// upload is a multipart file read into memory.
type upload struct {
	data        []byte
	contentType string
	filename    string
}

// readUpload reads the multipart file field, bounded by the configured
// upload limit.
func (c *Controller) readUpload(ctx echo.Context, field string) (*upload, error) {
	fh, err := ctx.FormFile(field)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, field+" is required")
	}

	limit := int64(DefaultMaxUploadBytes)
	if c.Settings != nil && c.Settings.Analysis.MaxUploadBytes > 0 {
		limit = c.Settings.Analysis.MaxUploadBytes
	}
	if fh.Size > limit {
		return nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("%s exceeds the %d byte upload limit", field, limit))
	}

	data, err := readFormFile(fh, limit)
	if err != nil {
		return nil, err
	}
	return &upload{
		data:        data,
		contentType: fh.Header.Get(echo.HeaderContentType),
		filename:    fh.Filename,
	}, nil
}

func readFormFile(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(io.LimitReader(f, limit))
}

// DiagnoseEngineSound handles POST /api/v2/diagnose/engine-sound
func (c *Controller) DiagnoseEngineSound(ctx echo.Context) error {
	userID := strings.TrimSpace(ctx.FormValue("user_id"))
	if userID == "" {
		return c.HandleError(ctx, nil, "user_id is required", http.StatusBadRequest)
	}

	up, err := c.readUpload(ctx, "audio_file")
	if err != nil {
		return c.handleUploadError(ctx, err)
	}

	resp, err := c.Service.DiagnoseEngineSound(ctx.Request().Context(), userID, up.data, up.contentType, up.filename)
	if err != nil {
		return c.HandleServiceError(ctx, err)
	}

	c.logger.WithContext(ctx.Request().Context()).Debug("engine sound diagnosed",
		logger.String("diagnostic_id", resp.DiagnosticID),
		logger.Int("bytes", len(up.data)))
	return ctx.JSON(http.StatusOK, resp)
}

// DiagnoseDashboard handles POST /api/v2/diagnose/dashboard
func (c *Controller) DiagnoseDashboard(ctx echo.Context) error {
	userID := strings.TrimSpace(ctx.FormValue("user_id"))
	if userID == "" {
		return c.HandleError(ctx, nil, "user_id is required", http.StatusBadRequest)
	}

	up, err := c.readUpload(ctx, "image_file")
	if err != nil {
		return c.handleUploadError(ctx, err)
	}
	if !strings.HasPrefix(up.contentType, "image/") {
		return c.HandleError(ctx, nil, "File must be an image", http.StatusBadRequest)
	}

	resp, err := c.Service.DiagnoseDashboard(ctx.Request().Context(), userID, up.data)
	if err != nil {
		return c.HandleServiceError(ctx, err)
	}

	c.logger.WithContext(ctx.Request().Context()).Debug("dashboard diagnosed",
		logger.String("diagnostic_id", resp.DiagnosticID),
		logger.Int("bytes", len(up.data)))
	return ctx.JSON(http.StatusOK, resp)
}

func (c *Controller) handleUploadError(ctx echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return c.HandleError(ctx, nil, fmt.Sprint(he.Message), he.Code)
	}
	return c.HandleError(ctx, err, "Failed to read upload", http.StatusBadRequest)
}
