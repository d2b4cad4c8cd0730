// internal/api/v2/diagnoses.go
package api

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/cardoc/cardoc-go/internal/datastore"
	"github.com/cardoc/cardoc-go/internal/service"
)

// HistoryResponse lists the diagnoses of one user.
type HistoryResponse struct {
	UserID    string                 `json:"user_id"`
	Count     int                    `json:"count"`
	Diagnoses []service.HistoryEntry `json:"diagnoses"`
}

// GetDiagnosis handles GET /api/v2/diagnoses/:id
func (c *Controller) GetDiagnosis(ctx echo.Context) error {
	resp, err := c.Service.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return c.HandleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, resp)
}

// DeleteDiagnosis handles DELETE /api/v2/diagnoses/:id
func (c *Controller) DeleteDiagnosis(ctx echo.Context) error {
	if err := c.Service.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return c.HandleServiceError(ctx, err)
	}
	return ctx.NoContent(http.StatusNoContent)
}

// ListUserDiagnoses handles GET /api/v2/users/:user_id/diagnoses?limit=N
func (c *Controller) ListUserDiagnoses(ctx echo.Context) error {
	limit := datastore.DefaultListLimit
	if raw := ctx.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > datastore.MaxListLimit {
			return c.HandleError(ctx, err, "limit must be between 1 and "+strconv.Itoa(datastore.MaxListLimit), http.StatusBadRequest)
		}
		limit = n
	}

	userID := ctx.Param("user_id")
	entries, err := c.Service.History(ctx.Request().Context(), userID, limit)
	if err != nil {
		return c.HandleServiceError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, HistoryResponse{
		UserID:    userID,
		Count:     len(entries),
		Diagnoses: entries,
	})
}
