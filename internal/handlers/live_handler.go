package handlers

import (
	"github.com/labstack/echo/v4"

	"bizdesk/internal/api/middleware"
	"bizdesk/internal/live"
)

type LiveHandler struct {
	hub *live.Hub
}

func NewLiveHandler(hub *live.Hub) *LiveHandler {
	return &LiveHandler{hub: hub}
}

// Stream upgrades to a websocket that receives the workspace's changes.
// @Summary Live change feed
// @Description Websocket. Pass the session token as ?token=.
// @Tags live
// @Param ws path string true "Workspace ID"
// @Param token query string true "Session token"
// @Router /workspaces/{ws}/live [get]
func (h *LiveHandler) Stream(c echo.Context) error {
	scope := middleware.Scope(c)
	return h.hub.Serve(c.Response(), c.Request(), scope.Caller, scope.WorkspaceID)
}
