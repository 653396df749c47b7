package services

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// EventTripsChanged is sent after a trip is created, updated or deleted
const EventTripsChanged = "trips_changed"

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type      string `json:"type"`
	TripID    int64  `json:"trip_id,omitempty"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

// WSConn is the part of *websocket.Conn the hub writes to
type WSConn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// hubConn serializes writes; gorilla connections allow one concurrent writer
type hubConn struct {
	mu   sync.Mutex
	conn WSConn
}

func (c *hubConn) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// EventHub manages WebSocket connections, several per user
type EventHub struct {
	mu          sync.RWMutex
	connections map[string]map[WSConn]*hubConn
	now         func() time.Time
}

// NewEventHub creates a new WebSocket hub
func NewEventHub() *EventHub {
	return &EventHub{
		connections: make(map[string]map[WSConn]*hubConn),
		now:         time.Now,
	}
}

// Register registers a new WebSocket connection for a user
func (h *EventHub) Register(username string, conn WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.connections[username]
	if !ok {
		conns = make(map[WSConn]*hubConn)
		h.connections[username] = conns
	}
	conns[conn] = &hubConn{conn: conn}

	log.Info().Str("username", username).Int("connections", len(conns)).Msg("WebSocket connection registered")
}

// Unregister closes and removes one connection of a user
func (h *EventHub) Unregister(username string, conn WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	conns, ok := h.connections[username]
	if !ok {
		return
	}
	if _, ok := conns[conn]; !ok {
		return
	}

	conn.Close()
	delete(conns, conn)
	if len(conns) == 0 {
		delete(h.connections, username)
	}
	log.Info().Str("username", username).Msg("WebSocket connection unregistered")
}

// ConnectionCount returns how many live connections a user has
func (h *EventHub) ConnectionCount(username string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[username])
}

// SendToUser sends a message to every connection of a user.
// Connections that fail to write are dropped.
func (h *EventHub) SendToUser(username string, message WSMessage) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	h.mu.RLock()
	targets := make([]*hubConn, 0, len(h.connections[username]))
	for _, c := range h.connections[username] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	var firstErr error
	for _, c := range targets {
		if err := c.write(data); err != nil {
			h.Unregister(username, c.conn)
			if firstErr == nil {
				firstErr = fmt.Errorf("failed to send message: %w", err)
			}
		}
	}
	return firstErr
}

// NotifyTripsChanged tells a user's open pages that their trips changed
func (h *EventHub) NotifyTripsChanged(username string, tripID int64) {
	message := WSMessage{
		Type:      EventTripsChanged,
		TripID:    tripID,
		Timestamp: h.now().UnixMilli(),
	}
	if err := h.SendToUser(username, message); err != nil {
		log.Error().Err(err).Str("username", username).Msg("Failed to notify trips changed")
	}
}

// CloseAll closes every connection, used on shutdown
func (h *EventHub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for username, conns := range h.connections {
		for conn := range conns {
			conn.Close()
		}
		delete(h.connections, username)
	}
}
