package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bizdesk/internal/api/middleware"
	"bizdesk/internal/services"
)

type ImportHandler struct {
	imports *services.ImportService
}

func NewImportHandler(imports *services.ImportService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

// Start queues a customer import.
// @Summary Import customers
// @Description Stores the rows as a pending batch; a worker creates the customers.
// @Tags customers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ws path string true "Workspace ID"
// @Param request body services.ImportRequest true "Rows"
// @Success 202 {object} models.ImportBatch
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 429 {object} map[string]string "Too many imports"
// @Router /workspaces/{ws}/imports [post]
func (h *ImportHandler) Start(c echo.Context) error {
	var req services.ImportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	batch, err := h.imports.Start(c.Request().Context(), middleware.Scope(c), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusAccepted, batch)
}

// Rollback deletes every customer created by a batch.
// @Summary Roll back an import
// @Tags customers
// @Produce json
// @Security BearerAuth
// @Param ws path string true "Workspace ID"
// @Param id path string true "Batch ID"
// @Success 200 {object} models.ImportBatch
// @Failure 400 {object} map[string]string "Already rolled back"
// @Router /workspaces/{ws}/imports/{id}/rollback [post]
func (h *ImportHandler) Rollback(c echo.Context) error {
	batch, err := h.imports.Rollback(c.Request().Context(), middleware.Scope(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, batch)
}
