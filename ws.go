package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// StateEvent is the JSON frame pushed to websocket clients on every
// device lifecycle transition.
type StateEvent struct {
	State string `json:"state"`
	// Stamp is the event time in Unix milliseconds.
	Stamp int64 `json:"stamp"`
}

// Hub fans device state changes out to websocket clients.
type Hub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	clientsMu sync.RWMutex
	clients   map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a Hub with no clients.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients: make(map[*wsClient]struct{}),
	}
}

// ServeWS upgrades the request and streams state events to the client
// until it goes away. Incoming frames are read and discarded; the
// stream is one way.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", "error", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 64)}

	h.clientsMu.Lock()
	h.clients[client] = struct{}{}
	total := len(h.clients)
	h.clientsMu.Unlock()
	h.logger.Debug("Websocket client connected", "clients", total)

	go func() {
		defer conn.Close()
		for msg := range client.send {
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.clientsMu.Lock()
	delete(h.clients, client)
	total = len(h.clients)
	h.clientsMu.Unlock()
	close(client.send)
	h.logger.Debug("Websocket client disconnected", "clients", total)
}

// Broadcast pushes a state event to every connected client. A client
// whose send buffer is full misses the event rather than stall the
// rest.
func (h *Hub) Broadcast(state string) {
	payload, err := json.Marshal(StateEvent{State: state, Stamp: time.Now().UnixMilli()})
	if err != nil {
		return
	}

	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- payload:
		default:
		}
	}
}
