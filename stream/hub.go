// Package stream broadcasts particle frames to websocket clients and accepts
// parameter edits back from them.
package stream

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = time.Second

// Hub tracks connected clients. Each connection carries its own write lock,
// since gorilla connections allow one concurrent writer.
type Hub struct {
	mu      sync.RWMutex
	clients map[*websocket.Conn]*sync.Mutex
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]*sync.Mutex)}
}

func (h *Hub) add(conn *websocket.Conn) *sync.Mutex {
	m := &sync.Mutex{}
	h.mu.Lock()
	h.clients[conn] = m
	h.mu.Unlock()
	return m
}

func (h *Hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.clients, conn)
	h.mu.Unlock()
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast writes v as JSON to every client, dropping those that fail.
func (h *Hub) Broadcast(v any) {
	var failed []*websocket.Conn

	h.mu.RLock()
	for conn, m := range h.clients {
		if err := writeJSON(conn, m, v); err != nil {
			slog.Debug("stream client write failed", "remote", conn.RemoteAddr().String(), "error", err)
			failed = append(failed, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range failed {
		conn.Close()
		h.remove(conn)
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, m := range h.clients {
		m.Lock()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(writeWait))
		m.Unlock()
		conn.Close()
		delete(h.clients, conn)
	}
}

func writeJSON(conn *websocket.Conn, m *sync.Mutex, v any) error {
	m.Lock()
	defer m.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}
