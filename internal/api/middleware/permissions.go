package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bizdesk/internal/services"
)

// WorkspaceParam is the path parameter carrying the workspace id.
const WorkspaceParam = "ws"

// Scope builds the service scope from the caller and the :ws path parameter.
func Scope(c echo.Context) services.Scope {
	return services.Scope{
		Caller:      GetCaller(c),
		WorkspaceID: c.Param(WorkspaceParam),
	}
}

// RequireWorkspace rejects requests whose :ws parameter is empty. Module
// permissions are checked by the services.
func RequireWorkspace() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Param(WorkspaceParam) == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "missing workspace id")
			}
			return next(c)
		}
	}
}

// RequireAdmin allows only allow-list admins through.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !GetCaller(c).Admin {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
			}
			return next(c)
		}
	}
}
