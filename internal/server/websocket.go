package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Write timeout for outbound frames
	writeTimeout = 10 * time.Second
)

// Connection is one live session subscribed to asset events.
type Connection struct {
	conn *websocket.Conn
	send chan []byte
	hub  *Hub
}

// Hub tracks every connected session and fans out asset events, most
// importantly manifest regeneration during development.
type Hub struct {
	connections map[*Connection]bool
	broadcast   chan []byte
	register    chan *Connection
	unregister  chan *Connection
	mu          sync.RWMutex
}

// ReloadEvent is pushed to sessions when the manifest changes on disk.
type ReloadEvent struct {
	Type      string `json:"type"`
	Generated string `json:"generated,omitempty"`
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		connections: make(map[*Connection]bool),
		broadcast:   make(chan []byte, 64),
		register:    make(chan *Connection),
		unregister:  make(chan *Connection),
	}
}

// Run starts the hub's main loop. It exits when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.connections[conn] = true
			h.mu.Unlock()
			log.Printf("[Server] session connected, %d total", h.Count())

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.connections[conn]; ok {
				delete(h.connections, conn)
				close(conn.send)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			// Write lock: slow sessions are pruned from the map here.
			h.mu.Lock()
			for conn := range h.connections {
				select {
				case conn.send <- message:
				default:
					close(conn.send)
					delete(h.connections, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast queues a message for every connected session.
func (h *Hub) Broadcast(message []byte) {
	select {
	case h.broadcast <- message:
	default:
		log.Printf("[Server] broadcast queue full, dropping message")
	}
}

// Count returns the number of connected sessions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// handleWebSocket upgrades the connection and registers it with the hub.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// Development server; bundle delivery is same-data as the
			// public HTTP routes.
			return true
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Server] WebSocket upgrade failed: %v", err)
		return
	}

	c := &Connection{
		conn: conn,
		send: make(chan []byte, 16),
		hub:  s.hub,
	}
	s.hub.register <- c

	go c.writePump()
	go c.readPump()
}

// writePump forwards hub messages to the peer.
func (c *Connection) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

// readPump drains the connection until the peer goes away; inbound
// messages are ignored, the events channel is one-way.
func (c *Connection) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// WatchManifest polls the manifest file and broadcasts a reload event
// whenever its modification time changes. It exits when ctx is
// cancelled.
func (s *Server) WatchManifest(ctx context.Context, path string, interval time.Duration) {
	var lastMod time.Time
	if info, err := os.Stat(path); err == nil {
		lastMod = info.ModTime()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			if info.ModTime().Equal(lastMod) {
				continue
			}
			lastMod = info.ModTime()

			event, err := json.Marshal(ReloadEvent{
				Type:      "manifest_reload",
				Generated: lastMod.UTC().Format(time.RFC3339),
			})
			if err != nil {
				continue
			}
			log.Printf("[Server] manifest changed, notifying %d sessions", s.hub.Count())
			s.hub.Broadcast(event)
		}
	}
}
