package controllers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"bizdesk/internal/api/middleware"
	"bizdesk/internal/models"
	"bizdesk/internal/services"
)

const defaultListLimit = 50

// reserved query parameters that are not column filters
var reserved = map[string]bool{
	"page":  true,
	"limit": true,
	"sort":  true,
	"order": true,
	"token": true,
}

type (
	createFunc[PT any] func(ctx context.Context, scope services.Scope, entity PT) error
	updateFunc[PT any] func(ctx context.Context, scope services.Scope, id string, entity PT) error
	deleteFunc         func(ctx context.Context, scope services.Scope, id string) error
)

// ScopedController exposes a ScopedService as workspace CRUD routes.
type ScopedController[T any, PT interface {
	*T
	models.ScopedEntity
}] struct {
	service *services.ScopedService[T, PT]
	create  createFunc[PT]
	update  updateFunc[PT]
	remove  deleteFunc
}

// NewScopedController creates a controller backed by service.
func NewScopedController[T any, PT interface {
	*T
	models.ScopedEntity
}](service *services.ScopedService[T, PT]) *ScopedController[T, PT] {
	return &ScopedController[T, PT]{
		service: service,
		create:  service.Create,
		update:  service.Update,
		remove:  service.Delete,
	}
}

// WithCreate replaces the create operation, e.g. to assign numbers first.
func (c *ScopedController[T, PT]) WithCreate(fn func(ctx context.Context, scope services.Scope, entity PT) error) *ScopedController[T, PT] {
	c.create = fn
	return c
}

func (c *ScopedController[T, PT]) WithUpdate(fn func(ctx context.Context, scope services.Scope, id string, entity PT) error) *ScopedController[T, PT] {
	c.update = fn
	return c
}

// WithDelete replaces the delete operation with a cascading one.
func (c *ScopedController[T, PT]) WithDelete(fn func(ctx context.Context, scope services.Scope, id string) error) *ScopedController[T, PT] {
	c.remove = fn
	return c
}

// Create handles creation of new entities
func (c *ScopedController[T, PT]) Create(ctx echo.Context) error {
	entity := PT(new(T))
	if err := ctx.Bind(entity); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body "+err.Error())
	}

	if err := ctx.Validate(entity); err != nil {
		return err
	}

	if err := c.create(ctx.Request().Context(), middleware.Scope(ctx), entity); err != nil {
		return err
	}

	return ctx.JSON(http.StatusCreated, entity)
}

// Get handles retrieval of a single entity
func (c *ScopedController[T, PT]) Get(ctx echo.Context) error {
	entity, err := c.service.Get(ctx.Request().Context(), middleware.Scope(ctx), ctx.Param("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, entity)
}

// ListOptions reads pagination, sorting and column filters from the query string.
func ListOptions(ctx echo.Context) services.ListOptions {
	page, _ := strconv.Atoi(ctx.QueryParam("page"))
	limit, _ := strconv.Atoi(ctx.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultListLimit
	}

	filters := make(map[string]string)
	for key, values := range ctx.QueryParams() {
		if !reserved[key] && len(values) > 0 {
			filters[key] = values[0]
		}
	}

	return services.ListOptions{
		Page:    page,
		Limit:   limit,
		Filters: filters,
		Sort:    ctx.QueryParam("sort"),
		Order:   ctx.QueryParam("order"),
	}
}

// List handles retrieval of multiple entities with pagination and filtering
func (c *ScopedController[T, PT]) List(ctx echo.Context) error {
	opts := ListOptions(ctx)
	entities, total, err := c.service.List(ctx.Request().Context(), middleware.Scope(ctx), opts)
	if err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, map[string]interface{}{
		"data":  entities,
		"total": total,
		"page":  opts.Page,
		"limit": opts.Limit,
	})
}

// Update handles updating an existing entity
func (c *ScopedController[T, PT]) Update(ctx echo.Context) error {
	entity := PT(new(T))
	if err := ctx.Bind(entity); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body "+err.Error())
	}

	if err := ctx.Validate(entity); err != nil {
		return err
	}

	if err := c.update(ctx.Request().Context(), middleware.Scope(ctx), ctx.Param("id"), entity); err != nil {
		return err
	}

	return ctx.JSON(http.StatusOK, entity)
}

// Delete handles deletion of an entity
func (c *ScopedController[T, PT]) Delete(ctx echo.Context) error {
	if err := c.remove(ctx.Request().Context(), middleware.Scope(ctx), ctx.Param("id")); err != nil {
		return err
	}

	return ctx.NoContent(http.StatusNoContent)
}

// RegisterRoutes registers CRUD routes for the controller
func (c *ScopedController[T, PT]) RegisterRoutes(g *echo.Group, path string, methods ...string) {
	if len(methods) == 0 {
		methods = []string{"POST", "GET", "PUT", "DELETE"}
	}

	for _, method := range methods {
		switch method {
		case "POST":
			g.POST(path, c.Create)
		case "GET":
			g.GET(path+"/:id", c.Get)
			g.GET(path, c.List)
		case "PUT":
			g.PUT(path+"/:id", c.Update)
		case "DELETE":
			g.DELETE(path+"/:id", c.Delete)
		}
	}
}
