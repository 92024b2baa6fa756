package echo

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	app "github.com/mohammadpnp/identity-migration/internal/application/migration"
)

type MigrationHandler struct {
	start  app.StartMigrationRun
	get    app.GetMigrationRun
	repair app.RepairLinks
}

type startMigrationRequest struct {
	Strategy string `json:"strategy"`
}

func NewMigrationHandler(start app.StartMigrationRun, get app.GetMigrationRun, repair app.RepairLinks) *MigrationHandler {
	return &MigrationHandler{start: start, get: get, repair: repair}
}

func (h *MigrationHandler) StartMigration(c echo.Context) error {
	var req startMigrationRequest
	if err := c.Bind(&req); err != nil {
		return writeError(c, http.StatusBadRequest, "bad_request", "invalid request body")
	}

	out, err := h.start.Execute(c.Request().Context(), app.StartMigrationRunInput{Strategy: req.Strategy})
	if err != nil {
		if errors.Is(err, app.ErrInvalidStrategy) {
			return writeError(c, http.StatusBadRequest, "invalid_strategy", "strategy must be admin_create or self_signup")
		}
		return writeError(c, http.StatusInternalServerError, "internal_error", "failed to enqueue migration run")
	}

	return c.JSON(http.StatusAccepted, apiResponse{Data: out})
}

func (h *MigrationHandler) GetMigration(c echo.Context) error {
	out, err := h.get.Execute(c.Request().Context(), app.GetMigrationRunInput{ID: c.Param("id")})
	if err != nil {
		if errors.Is(err, app.ErrInvalidRunID) {
			return writeError(c, http.StatusBadRequest, "invalid_run_id", "id must be a valid UUID")
		}
		if errors.Is(err, app.ErrRunNotFound) {
			return writeError(c, http.StatusNotFound, "not_found", "migration run not found")
		}
		return writeError(c, http.StatusInternalServerError, "internal_error", "failed to get migration run")
	}

	return c.JSON(http.StatusOK, apiResponse{Data: out})
}

func (h *MigrationHandler) RepairLinks(c echo.Context) error {
	out, err := h.repair.Execute(c.Request().Context(), app.RepairLinksInput{RunID: c.Param("id")})
	if err != nil {
		if errors.Is(err, app.ErrInvalidRunID) {
			return writeError(c, http.StatusBadRequest, "invalid_run_id", "id must be a valid UUID")
		}
		return writeError(c, http.StatusInternalServerError, "internal_error", "failed to repair links")
	}

	return c.JSON(http.StatusOK, apiResponse{Data: out})
}
