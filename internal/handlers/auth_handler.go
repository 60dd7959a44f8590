package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"bizdesk/internal/api/middleware"
	"bizdesk/internal/identity"
	"bizdesk/internal/services"
	"bizdesk/internal/utils/logger"
)

type AuthHandler struct {
	identity   *identity.Service
	workspaces *services.WorkspaceService
	log        *logger.Logger
}

func NewAuthHandler(identity *identity.Service, workspaces *services.WorkspaceService) *AuthHandler {
	return &AuthHandler{identity: identity, workspaces: workspaces, log: logger.New("AuthHandler")}
}

type GoogleAuthRequest struct {
	AccessToken string `json:"access_token" validate:"required"`
}

type AuthorizeEmailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// GoogleLogin exchanges a Google access token for a session token.
// @Summary Login with Google
// @Description Exchange a Google OAuth access token for a bizdesk session. The email must be on the allow-list.
// @Tags auth
// @Accept json
// @Produce json
// @Param request body GoogleAuthRequest true "Google access token"
// @Success 200 {object} identity.Session
// @Failure 400 {object} map[string]string "Validation error"
// @Failure 401 {object} map[string]string "Invalid Google token"
// @Failure 403 {object} map[string]string "Email not authorized"
// @Router /auth/google [post]
func (h *AuthHandler) GoogleLogin(c echo.Context) error {
	var req GoogleAuthRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	session, err := h.identity.Login(c.Request().Context(), req.AccessToken)
	if err != nil {
		return err
	}

	h.log.Success("User %s logged in", session.User.Email)
	return c.JSON(http.StatusOK, session)
}

// GetMe returns the current user with the workspaces they can open.
// @Summary Current user
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string "Unauthorized"
// @Router /me [get]
func (h *AuthHandler) GetMe(c echo.Context) error {
	ctx := c.Request().Context()
	caller := middleware.GetCaller(c)

	_, user, err := h.identity.Resolve(ctx, caller.Email)
	if err != nil {
		return err
	}
	workspaces, err := h.workspaces.List(ctx, caller)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"user":       user,
		"admin":      caller.Admin,
		"workspaces": workspaces,
	})
}

// ListAuthorizedEmails returns the dynamic allow-list.
// @Summary List authorized emails
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.AuthorizedEmail
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /admin/authorized-emails [get]
func (h *AuthHandler) ListAuthorizedEmails(c echo.Context) error {
	emails, err := h.identity.AuthorizedEmails(c.Request().Context(), middleware.GetCaller(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, emails)
}

// AuthorizeEmail adds an email to the allow-list.
// @Summary Authorize an email
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AuthorizeEmailRequest true "Email"
// @Success 201 {object} models.AuthorizedEmail
// @Failure 400 {object} map[string]string "Already authorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Router /admin/authorized-emails [post]
func (h *AuthHandler) AuthorizeEmail(c echo.Context) error {
	var req AuthorizeEmailRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	entry, err := h.identity.AuthorizeEmail(c.Request().Context(), middleware.GetCaller(c), req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, entry)
}

// RevokeEmail removes an email from the allow-list.
// @Summary Revoke an email
// @Tags admin
// @Security BearerAuth
// @Param email path string true "Email"
// @Success 204 "No content"
// @Failure 404 {object} map[string]string "Not found"
// @Router /admin/authorized-emails/{email} [delete]
func (h *AuthHandler) RevokeEmail(c echo.Context) error {
	if err := h.identity.RevokeEmail(c.Request().Context(), middleware.GetCaller(c), c.Param("email")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
