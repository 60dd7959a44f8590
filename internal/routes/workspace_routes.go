package routes

import (
	"github.com/labstack/echo/v4"

	"bizdesk/internal/api/middleware"
	"bizdesk/internal/handlers"
	"bizdesk/internal/utils/logger"
)

// WorkspaceHandlers bundles the handlers mounted under /workspaces.
type WorkspaceHandlers struct {
	Workspaces *handlers.WorkspaceHandler
	Invoices   *handlers.InvoiceHandler
	Imports    *handlers.ImportHandler
	Budget     *handlers.BudgetHandler
	Finance    *handlers.FinanceHandler
	Flow       *handlers.FlowHandler
	Food       *handlers.FoodHandler
	Dashboard  *handlers.DashboardHandler
	Settings   *handlers.SettingsHandler
	Live       *handlers.LiveHandler
}

// SetupWorkspaceRoutes mounts workspace management on api and returns the
// per-workspace group for the CRUD registry.
func SetupWorkspaceRoutes(api *echo.Group, h WorkspaceHandlers) *echo.Group {
	log := logger.New("workspace_routes")

	workspaces := api.Group("/workspaces")
	workspaces.GET("", h.Workspaces.List)
	workspaces.POST("", h.Workspaces.Create)

	ws := workspaces.Group("/:ws", middleware.RequireWorkspace())
	ws.PUT("", h.Workspaces.Rename)
	ws.DELETE("", h.Workspaces.Purge)
	ws.GET("/permissions", h.Workspaces.Permissions)
	ws.PUT("/permissions", h.Workspaces.Grant)
	ws.DELETE("/permissions/:user", h.Workspaces.Revoke)

	ws.GET("/invoices/gaps", h.Invoices.Gaps)
	ws.GET("/invoices/next-number", h.Invoices.NextNumber)
	ws.POST("/invoices/:id/paid", h.Invoices.MarkPaid)
	ws.POST("/invoices/:id/archive", h.Invoices.Archive)
	ws.POST("/invoices/:id/pdf", h.Invoices.UploadPDF)

	ws.POST("/imports", h.Imports.Start)
	ws.POST("/imports/:id/rollback", h.Imports.Rollback)

	ws.GET("/budget/monthly", h.Budget.Monthly)
	ws.GET("/budget/yearly", h.Budget.Yearly)
	ws.PUT("/budget/outgoings/:id/overrides/:year/:month", h.Budget.SetOverride)
	ws.DELETE("/budget/outgoings/:id/overrides/:year/:month", h.Budget.ClearOverride)

	ws.PUT("/finance/accounts/:id/balances/:year/:month", h.Finance.RecordBalance)
	ws.GET("/finance/liquidity", h.Finance.Liquidity)
	ws.GET("/finance/liquidity/series", h.Finance.LiquiditySeries)

	ws.POST("/flow/ideas/:id/convert", h.Flow.ConvertIdea)

	ws.POST("/food/items/:id/toggle", h.Food.ToggleItem)
	ws.POST("/food/lists/:id/clear-checked", h.Food.ClearChecked)
	ws.POST("/food/lists/:id/recipes", h.Food.AddRecipe)

	ws.GET("/dashboard", h.Dashboard.Get)
	ws.PUT("/dashboard", h.Dashboard.Save)
	ws.DELETE("/dashboard", h.Dashboard.Reset)

	ws.GET("/settings", h.Settings.Get)
	ws.PUT("/settings", h.Settings.Update)
	ws.POST("/settings/logo-upload-url", h.Settings.LogoUploadURL)

	ws.GET("/live", h.Live.Stream)

	log.Success("Workspace routes initialized successfully")
	return ws
}
