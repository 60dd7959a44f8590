package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bizdesk/internal/api/middleware"
	"bizdesk/internal/models"
	"bizdesk/internal/services"
)

// FlowHandler serves the task and idea actions beyond plain CRUD.
type FlowHandler struct {
	flow *services.FlowService
}

func NewFlowHandler(flow *services.FlowService) *FlowHandler {
	return &FlowHandler{flow: flow}
}

// ConvertIdea turns an idea into a task and deletes the idea.
// @Summary Convert idea to task
// @Tags flow
// @Produce json
// @Security BearerAuth
// @Param ws path string true "Workspace ID"
// @Param id path string true "Idea ID"
// @Success 201 {object} models.Task
// @Router /workspaces/{ws}/flow/ideas/{id}/convert [post]
func (h *FlowHandler) ConvertIdea(c echo.Context) error {
	task, err := h.flow.ConvertIdea(c.Request().Context(), middleware.Scope(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, task)
}

type FoodHandler struct {
	food *services.FoodService
}

func NewFoodHandler(food *services.FoodService) *FoodHandler {
	return &FoodHandler{food: food}
}

type AddRecipeRequest struct {
	RecipeID string `json:"recipeId" validate:"required"`
}

func (h *FoodHandler) ToggleItem(c echo.Context) error {
	item, err := h.food.ToggleItem(c.Request().Context(), middleware.Scope(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

func (h *FoodHandler) ClearChecked(c echo.Context) error {
	removed, err := h.food.ClearChecked(c.Request().Context(), middleware.Scope(c), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int64{"removed": removed})
}

// AddRecipe appends one item per recipe ingredient to a shopping list.
// @Summary Add recipe to shopping list
// @Tags food
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ws path string true "Workspace ID"
// @Param id path string true "List ID"
// @Param request body AddRecipeRequest true "Recipe"
// @Success 200 {array} models.ShoppingItem
// @Router /workspaces/{ws}/food/lists/{id}/recipes [post]
func (h *FoodHandler) AddRecipe(c echo.Context) error {
	var req AddRecipeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	items, err := h.food.AddRecipeToList(c.Request().Context(), middleware.Scope(c), req.RecipeID, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

type DashboardHandler struct {
	dashboard *services.DashboardService
}

func NewDashboardHandler(dashboard *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

type DashboardRequest struct {
	Widgets []services.Widget `json:"widgets" validate:"required"`
}

// Get returns the caller's layout or the default one.
// @Summary Get dashboard layout
// @Tags dashboard
// @Produce json
// @Security BearerAuth
// @Param ws path string true "Workspace ID"
// @Success 200 {object} models.DashboardLayout
// @Router /workspaces/{ws}/dashboard [get]
func (h *DashboardHandler) Get(c echo.Context) error {
	layout, err := h.dashboard.Get(c.Request().Context(), middleware.Scope(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, layout)
}

func (h *DashboardHandler) Save(c echo.Context) error {
	var req DashboardRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	layout, err := h.dashboard.Save(c.Request().Context(), middleware.Scope(c), req.Widgets)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, layout)
}

func (h *DashboardHandler) Reset(c echo.Context) error {
	if err := h.dashboard.Reset(c.Request().Context(), middleware.Scope(c)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type SettingsHandler struct {
	settings *services.SettingsService
}

func NewSettingsHandler(settings *services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settings: settings}
}

type LogoUploadRequest struct {
	FileName    string `json:"fileName" validate:"required"`
	ContentType string `json:"contentType" validate:"required"`
}

// @Summary Get company settings
// @Tags settings
// @Produce json
// @Security BearerAuth
// @Param ws path string true "Workspace ID"
// @Success 200 {object} models.CompanySettings
// @Router /workspaces/{ws}/settings [get]
func (h *SettingsHandler) Get(c echo.Context) error {
	settings, err := h.settings.Get(c.Request().Context(), middleware.Scope(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

func (h *SettingsHandler) Update(c echo.Context) error {
	var in models.CompanySettings
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&in); err != nil {
		return err
	}
	settings, err := h.settings.Update(c.Request().Context(), middleware.Scope(c), &in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, settings)
}

// LogoUploadURL presigns an upload for the company logo.
// @Summary Presign logo upload
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param ws path string true "Workspace ID"
// @Param request body LogoUploadRequest true "File"
// @Success 200 {object} services.LogoUpload
// @Router /workspaces/{ws}/settings/logo-upload-url [post]
func (h *SettingsHandler) LogoUploadURL(c echo.Context) error {
	var req LogoUploadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	upload, err := h.settings.LogoUploadURL(c.Request().Context(), middleware.Scope(c), req.FileName, req.ContentType)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, upload)
}
