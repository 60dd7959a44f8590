package api

import (
	"net/http"

	"bizdesk/internal/api/middleware"
	"bizdesk/internal/api/registry"
	"bizdesk/internal/handlers"
	"bizdesk/internal/routes"

	_ "bizdesk/docs/swagger"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func (s *Server) registerRoutes() {
	s.echo.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "bizdesk")
	})
	// Health check
	// @Summary Health check
	// @Description Check if the server and its database are up
	// @Accept json
	// @Produce json
	// @Success 200 {object} map[string]string "OK"
	// @Router /health [get]
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	// API v1 group
	api := s.echo.Group("/api/v1")
	auth := middleware.NewAuthMiddleware(s.identity, "/auth/google")
	api.Use(auth.Middleware())

	svc := s.services
	routes.SetupAuthRoutes(api, handlers.NewAuthHandler(s.identity, svc.Workspaces))

	ws := routes.SetupWorkspaceRoutes(api, routes.WorkspaceHandlers{
		Workspaces: handlers.NewWorkspaceHandler(svc.Workspaces),
		Invoices:   handlers.NewInvoiceHandler(svc.Invoices),
		Imports:    handlers.NewImportHandler(svc.Imports),
		Budget:     handlers.NewBudgetHandler(svc.Budget),
		Finance:    handlers.NewFinanceHandler(svc.Finance),
		Flow:       handlers.NewFlowHandler(svc.Flow),
		Food:       handlers.NewFoodHandler(svc.Food),
		Dashboard:  handlers.NewDashboardHandler(svc.Dashboard),
		Settings:   handlers.NewSettingsHandler(svc.Settings),
		Live:       handlers.NewLiveHandler(s.hub),
	})

	// Register CRUD routes for all workspace models
	registry.RegisterCRUDRoutes(ws, svc)
}
