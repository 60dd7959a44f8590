package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"bizdesk/internal/authz"
	"bizdesk/internal/utils/logger"
)

var log = logger.New("auth_middleware")

const callerKey = "caller"

// Authenticator turns a bearer token into a caller.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (authz.Caller, error)
}

type AuthMiddleware struct {
	auth Authenticator
	// skip lists path suffixes served without a token.
	skip []string
}

func NewAuthMiddleware(auth Authenticator, skip ...string) *AuthMiddleware {
	return &AuthMiddleware{
		auth: auth,
		skip: skip,
	}
}

func (m *AuthMiddleware) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			for _, suffix := range m.skip {
				if strings.HasSuffix(c.Path(), suffix) {
					return next(c)
				}
			}

			token, err := bearerToken(c)
			if err != nil {
				return err
			}

			caller, err := m.auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				log.Debug("Rejected token for %s: %v", c.Path(), err)
				return err
			}

			c.Set(callerKey, caller)
			return next(c)
		}
	}
}

// bearerToken reads the Authorization header. Websocket clients cannot set
// headers from the browser, so a token query parameter is accepted too.
func bearerToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
	if authHeader == "" {
		if token := c.QueryParam("token"); token != "" {
			return token, nil
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
	}

	tokenParts := strings.Split(authHeader, " ")
	if len(tokenParts) != 2 || tokenParts[0] != "Bearer" || tokenParts[1] == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
	}
	return tokenParts[1], nil
}

// GetCaller returns the authenticated caller, or an anonymous one.
func GetCaller(c echo.Context) authz.Caller {
	if caller, ok := c.Get(callerKey).(authz.Caller); ok {
		return caller
	}
	return authz.Caller{}
}

// GetUserID Helper functions to get values from context
func GetUserID(c echo.Context) string {
	return GetCaller(c).UserID
}
