package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bizdesk/internal/api/middleware"
	"bizdesk/internal/services"
)

type WorkspaceHandler struct {
	workspaces *services.WorkspaceService
}

func NewWorkspaceHandler(workspaces *services.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{workspaces: workspaces}
}

type WorkspaceRequest struct {
	Name string `json:"name" validate:"required,min=2"`
}

type PurgeRequest struct {
	Confirm string `json:"confirm" validate:"required"`
}

// List returns every workspace the caller can open.
// @Summary List workspaces
// @Tags workspaces
// @Produce json
// @Security BearerAuth
// @Success 200 {array} services.WorkspaceAccess
// @Router /workspaces [get]
func (h *WorkspaceHandler) List(c echo.Context) error {
	list, err := h.workspaces.List(c.Request().Context(), middleware.GetCaller(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, list)
}

// Create makes a new workspace owned by the caller.
// @Summary Create workspace
// @Tags workspaces
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body WorkspaceRequest true "Workspace"
// @Success 201 {object} models.Workspace
// @Router /workspaces [post]
func (h *WorkspaceHandler) Create(c echo.Context) error {
	var req WorkspaceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ws, err := h.workspaces.Create(c.Request().Context(), middleware.GetCaller(c), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, ws)
}

func (h *WorkspaceHandler) Rename(c echo.Context) error {
	var req WorkspaceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	ws, err := h.workspaces.Rename(c.Request().Context(), middleware.GetCaller(c), c.Param(middleware.WorkspaceParam), req.Name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ws)
}

// Permissions lists the permission table of a workspace. Owner only.
// @Summary List workspace permissions
// @Tags workspaces
// @Produce json
// @Security BearerAuth
// @Param ws path string true "Workspace ID"
// @Success 200 {array} models.Permission
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /workspaces/{ws}/permissions [get]
func (h *WorkspaceHandler) Permissions(c echo.Context) error {
	perms, err := h.workspaces.Permissions(c.Request().Context(), middleware.GetCaller(c), c.Param(middleware.WorkspaceParam))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, perms)
}

// Grant creates or replaces the permission of a user.
// @Summary Grant permission
// @Tags workspaces
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ws path string true "Workspace ID"
// @Param request body services.GrantRequest true "Grant"
// @Success 200 {object} models.Permission
// @Failure 404 {object} map[string]string "User not found"
// @Router /workspaces/{ws}/permissions [put]
func (h *WorkspaceHandler) Grant(c echo.Context) error {
	var req services.GrantRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	perm, err := h.workspaces.Grant(c.Request().Context(), middleware.GetCaller(c), c.Param(middleware.WorkspaceParam), req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, perm)
}

func (h *WorkspaceHandler) Revoke(c echo.Context) error {
	err := h.workspaces.Revoke(c.Request().Context(), middleware.GetCaller(c), c.Param(middleware.WorkspaceParam), c.Param("user"))
	if err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Purge deletes a workspace and all of its data.
// @Summary Purge workspace
// @Description Deletes every row of the workspace. confirm must equal the workspace name.
// @Tags workspaces
// @Accept json
// @Security BearerAuth
// @Param ws path string true "Workspace ID"
// @Param request body PurgeRequest true "Confirmation"
// @Success 204 "No content"
// @Failure 400 {object} map[string]string "Confirmation mismatch"
// @Router /workspaces/{ws} [delete]
func (h *WorkspaceHandler) Purge(c echo.Context) error {
	var req PurgeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := h.workspaces.Purge(c.Request().Context(), middleware.GetCaller(c), c.Param(middleware.WorkspaceParam), req.Confirm); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
