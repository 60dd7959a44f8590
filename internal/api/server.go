package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-advanced-admin/admin"
	admingorm "github.com/go-advanced-admin/orm-gorm"
	adminecho "github.com/go-advanced-admin/web-echo"
	"golang.org/x/time/rate"

	"bizdesk/internal/api/validator"
	"bizdesk/internal/config"
	"bizdesk/internal/errs"
	"bizdesk/internal/identity"
	"bizdesk/internal/live"
	"bizdesk/internal/models"
	"bizdesk/internal/services"

	console "bizdesk/internal/utils/logger"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"gorm.io/gorm"
)

type Server struct {
	echo     *echo.Echo
	config   *config.Config
	db       *gorm.DB
	services *services.Services
	identity *identity.Service
	hub      *live.Hub
}

var log = console.New("API-Server")

// NewServer @title Bizdesk API
// @version 1.0
// @description Multi-tenant back office for small businesses: invoices, customers, budget, finance, flow and food.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func NewServer(cfg *config.Config, db *gorm.DB, svc *services.Services, ident *identity.Service) (*Server, error) {
	e := echo.New()
	e.HideBanner = true

	// Create custom validator
	v, err := validator.NewValidator()
	if err != nil {
		return nil, log.Error("Failed to create validator", err)
	}
	e.Validator = v

	// Websocket upgrades need the raw connection.
	skipLive := func(c echo.Context) bool {
		return strings.HasSuffix(c.Path(), "/live")
	}

	// Configure middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPut, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentLength},
	}))
	e.Use(middleware.RequestID())
	e.Use(middleware.Secure())
	e.Use(middleware.TimeoutWithConfig(middleware.TimeoutConfig{
		Skipper: skipLive,
		Timeout: 30 * time.Second,
	}))
	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Skipper: skipLive,
		Level:   5,
	}))
	e.Use(middleware.BodyLimit("10M"))

	// Custom error handler
	e.HTTPErrorHandler = customHTTPErrorHandler

	// Create server instance
	s := &Server{
		echo:     e,
		config:   cfg,
		db:       db,
		services: svc,
		identity: ident,
		hub:      live.NewHub(svc.Bus, svc.Policy),
	}

	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(rate.Limit(20))))

	if cfg.Admin.Enabled {
		if err := s.mountAdminPanel(); err != nil {
			return nil, err
		}
	}

	// Register routes
	s.registerRoutes()
	return s, nil
}

// adminWrites lists the panel models operators may change. Every other
// model is read only, and nothing is created through the panel.
var adminWrites = map[string]struct{ update, delete bool }{
	"permissions":       {update: true, delete: true},
	"authorized_emails": {delete: true},
}

// adminPermission checks basic-auth credentials and the write rules above.
func adminPermission(user, password []byte) admin.PermissionFunc {
	return func(request admin.PermissionRequest, ctx interface{}) (bool, error) {
		c, ok := ctx.(echo.Context)
		if !ok {
			return false, nil
		}
		u, p, ok := c.Request().BasicAuth()
		if !ok {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Basic realm="bizdesk admin"`)
			return false, nil
		}
		userOK := subtle.ConstantTimeCompare([]byte(u), user) == 1
		passwordOK := subtle.ConstantTimeCompare([]byte(p), password) == 1
		if !userOK || !passwordOK {
			return false, nil
		}
		if request.Action == nil {
			return true, nil
		}

		var rights struct{ update, delete bool }
		if request.ModelName != nil {
			rights = adminWrites[*request.ModelName]
		}
		switch *request.Action {
		case "read", "log_view":
			return true, nil
		case "update":
			return rights.update, nil
		case "delete":
			return rights.delete, nil
		default:
			return false, nil
		}
	}
}

// mountAdminPanel serves go-advanced-admin behind basic auth.
func (s *Server) mountAdminPanel() error {
	// Create a new GORM integrator
	gormIntegrator := admingorm.NewIntegrator(s.db)
	// Create a new Echo integrator
	echoIntegrator := adminecho.NewIntegrator(s.echo.Group(""))

	permissionChecker := adminPermission([]byte(s.config.Admin.User), []byte(s.config.Admin.Password))

	// Create a new admin panel
	adminPanel, err := admin.NewPanel(
		gormIntegrator, echoIntegrator, permissionChecker, nil,
	)
	if err != nil {
		return log.Error("Failed to create admin panel", err)
	}

	// Register the admin panel
	app, err := adminPanel.RegisterApp(
		"Bizdesk",
		"Bizdesk Admin Panel",
		nil,
	)
	if err != nil {
		return log.Error("Failed to register admin app", err)
	}

	for _, model := range models.AdminModels() {
		if _, err := app.RegisterModel(model, nil); err != nil {
			return log.Error("Failed to register admin model", err)
		}
	}

	log.Success("Admin panel mounted")
	return nil
}

func (s *Server) Start() error {
	return s.echo.Start(fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port))
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	return s.echo.Shutdown(ctx)
}

// Health check endpoint
func (s *Server) healthCheck(c echo.Context) error {
	status, code := "healthy", http.StatusOK
	if sqlDB, err := s.db.DB(); err != nil || sqlDB.PingContext(c.Request().Context()) != nil {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	return c.JSON(code, map[string]interface{}{
		"status":  status,
		"version": "1.0.0",
		"clients": s.hub.Clients(),
		"time":    time.Now().Format(time.RFC3339),
	})
}

var kindStatus = map[errs.Kind]int{
	errs.KindUnauthenticated: http.StatusUnauthorized,
	errs.KindForbidden:       http.StatusForbidden,
	errs.KindNotFound:        http.StatusNotFound,
	errs.KindValidation:      http.StatusBadRequest,
	errs.KindRateLimited:     http.StatusTooManyRequests,
	errs.KindInternal:        http.StatusInternalServerError,
}

// Custom HTTP error handler
func customHTTPErrorHandler(err error, c echo.Context) {
	var (
		code    = http.StatusInternalServerError
		message interface{}
	)

	var (
		he *echo.HTTPError
		de *errs.Error
		ve validator.ValidationErrors
	)
	switch {
	case errors.As(err, &he):
		code = he.Code
		message = he.Message
	case errors.As(err, &ve):
		code = http.StatusBadRequest
		message = ve.Fields()
	case errors.As(err, &de):
		code = kindStatus[de.Kind]
		message = de.Message
		if de.Kind == errs.KindInternal {
			log.Warn("%s %s: %v", c.Request().Method, c.Path(), err)
			message = http.StatusText(code)
		}
	default:
		log.Warn("%s %s: unhandled error: %v", c.Request().Method, c.Path(), err)
		message = http.StatusText(code)
	}

	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, map[string]interface{}{
				"error": message,
				"code":  code,
				"time":  time.Now().Format(time.RFC3339),
			})
		}
		if err != nil {
			c.Echo().Logger.Error(err)
		}
	}
}
