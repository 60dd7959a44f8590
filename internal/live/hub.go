// Package live pushes committed workspace changes to websocket clients.
package live

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"bizdesk/internal/authz"
	"bizdesk/internal/events"
	"bizdesk/internal/models"
	"bizdesk/internal/utils/logger"
)

var log = logger.New("LIVE")

const (
	writeTimeout = 10 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = pongTimeout * 9 / 10
	sendBuffer   = 64
)

// Hub tracks connected clients and fans out bus changes to them.
type Hub struct {
	policy   *authz.Policy
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}

	unsubscribe func()
}

type client struct {
	hub         *Hub
	conn        *websocket.Conn
	caller      authz.Caller
	workspaceID string
	send        chan events.Change

	mu      sync.RWMutex
	modules map[models.Module]bool
}

// NewHub subscribes to every change on bus.
func NewHub(bus *events.EventBus, policy *authz.Policy) *Hub {
	h := &Hub{
		policy:  policy,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	h.unsubscribe = bus.OnAny(func(data interface{}) {
		if change, ok := data.(events.Change); ok {
			h.dispatch(change)
		}
	})
	return h
}

// Serve authorizes the caller on the workspace, upgrades the connection and
// blocks until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, caller authz.Caller, workspaceID string) error {
	modules, err := h.policy.ViewableModules(r.Context(), caller, workspaceID)
	if err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the HTTP error
		log.Warn("Websocket upgrade failed: %v", err)
		return nil
	}

	c := &client{
		hub:         h,
		conn:        conn,
		caller:      caller,
		workspaceID: workspaceID,
		send:        make(chan events.Change, sendBuffer),
	}
	c.setModules(modules)

	h.register(c)
	log.Info("Client %s joined workspace %s", caller.Email, workspaceID)

	go c.writePump()
	c.readPump()
	return nil
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close stops listening to the bus and disconnects every client.
func (h *Hub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) dispatch(change events.Change) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		if c.workspaceID != change.WorkspaceID {
			continue
		}
		if change.Table == "permissions" {
			go c.refreshModules()
		}
		if !c.canSee(change.Module) {
			continue
		}
		select {
		case c.send <- change:
		default:
			log.Warn("Dropping %s for slow client %s", change.Name(), c.caller.Email)
		}
	}
}

func (c *client) setModules(modules []models.Module) {
	set := make(map[models.Module]bool, len(modules))
	for _, m := range modules {
		set[m] = true
	}
	c.mu.Lock()
	c.modules = set
	c.mu.Unlock()
}

// canSee reports whether changes of module may be shown. Workspace level
// changes are published under ModuleAll and reach every member.
func (c *client) canSee(module models.Module) bool {
	if module == models.ModuleAll {
		return true
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.modules[module]
}

func (c *client) refreshModules() {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	modules, err := c.hub.policy.ViewableModules(ctx, c.caller, c.workspaceID)
	if err != nil {
		log.Info("Closing client %s: %v", c.caller.Email, err)
		c.setModules(nil)
		_ = c.conn.Close()
		return
	}
	c.setModules(modules)
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("Client %s read error: %v", c.caller.Email, err)
			}
			return
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case change, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteJSON(change); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
