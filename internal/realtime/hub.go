// Package realtime pushes settings changes to every connection a user holds
// open, and lets clients listen for them.
package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	applog "idlely/internal/log"
)

// EventSettingsUpdated is sent after a user's stored settings change.
const EventSettingsUpdated = "customization.updated"

const writeTimeout = 5 * time.Second

// Message is the envelope written to every socket.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// conn serializes writes to a websocket connection.
type conn struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *conn) write(msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	return c.ws.WriteJSON(msg)
}

// Hub tracks open connections per user.
type Hub struct {
	mu     sync.RWMutex
	byUser map[string]map[*conn]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{byUser: make(map[string]map[*conn]struct{})}
}

// Register adds ws under userID. The returned func unregisters and closes it.
func (h *Hub) Register(userID string, ws *websocket.Conn) func() {
	c := &conn{ws: ws}

	h.mu.Lock()
	conns, ok := h.byUser[userID]
	if !ok {
		conns = make(map[*conn]struct{})
		h.byUser[userID] = conns
	}
	conns[c] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { h.remove(userID, c) })
	}
}

func (h *Hub) remove(userID string, c *conn) {
	h.mu.Lock()
	if conns, ok := h.byUser[userID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.byUser, userID)
		}
	}
	h.mu.Unlock()
	_ = c.ws.Close()
}

// Connections reports how many sockets userID has open.
func (h *Hub) Connections(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.byUser[userID])
}

// Notify sends event to every connection of userID. Connections that fail to
// accept the write are dropped. It returns how many connections received it.
func (h *Hub) Notify(ctx context.Context, userID, event string, payload any) int {
	h.mu.RLock()
	targets := make([]*conn, 0, len(h.byUser[userID]))
	for c := range h.byUser[userID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		applog.Debug(ctx, "no realtime listeners", "user", userID, "event", event)
		return 0
	}

	delivered := 0
	msg := Message{Event: event, Data: payload}
	for _, c := range targets {
		if err := c.write(msg); err != nil {
			applog.Warn(ctx, "dropping realtime connection", "user", userID, "event", event, "error", err)
			h.remove(userID, c)
			continue
		}
		delivered++
	}
	return delivered
}

// Close drops every connection.
func (h *Hub) Close() {
	h.mu.Lock()
	all := h.byUser
	h.byUser = make(map[string]map[*conn]struct{})
	h.mu.Unlock()

	for _, conns := range all {
		for c := range conns {
			_ = c.ws.Close()
		}
	}
}
