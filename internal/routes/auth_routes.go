package routes

import (
	"github.com/labstack/echo/v4"

	"bizdesk/internal/api/middleware"
	"bizdesk/internal/handlers"
)

// SetupAuthRoutes mounts login, profile and allow-list routes on api. The
// auth middleware must already be installed on api; the login route is in
// its skip list.
func SetupAuthRoutes(api *echo.Group, authHandler *handlers.AuthHandler) {
	// Public auth routes group
	auth := api.Group("/auth")
	auth.POST("/google", authHandler.GoogleLogin)

	api.GET("/me", authHandler.GetMe)

	// Allow-list management (admins from the static allow-list)
	admin := api.Group("/admin", middleware.RequireAdmin())
	admin.GET("/authorized-emails", authHandler.ListAuthorizedEmails)
	admin.POST("/authorized-emails", authHandler.AuthorizeEmail)
	admin.DELETE("/authorized-emails/:email", authHandler.RevokeEmail)
}
