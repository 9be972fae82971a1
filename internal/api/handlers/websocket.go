package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/amaumene/watchduo/internal/models"
	"github.com/sirupsen/logrus"
	"nhooyr.io/websocket"
)

// WSMessage is one event pushed to connected clients
type WSMessage struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type wsClient struct {
	send chan []byte
}

// WSHub pushes collection changes to every connected websocket client
type WSHub struct {
	mu      sync.RWMutex
	clients map[*wsClient]bool
	logger  *logrus.Logger
}

// NewWSHub creates an empty hub
func NewWSHub(logger *logrus.Logger) *WSHub {
	return &WSHub{
		clients: make(map[*wsClient]bool),
		logger:  logger,
	}
}

// Broadcast sends an event to every client, dropping it for clients that lag
func (h *WSHub) Broadcast(event string, data interface{}) {
	msg, err := json.Marshal(WSMessage{Event: event, Data: data})
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode websocket message")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		select {
		case client.send <- msg:
		default:
		}
	}
}

// Run forwards store changes as "item:<type>" events until ctx is done
func (h *WSHub) Run(ctx context.Context, changes <-chan models.Change) {
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			h.Broadcast("item:"+string(change.Type), change)
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WSHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *WSHub) addClient(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = true
}

func (h *WSHub) removeClient(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

// ServeHTTP upgrades the connection and streams events until the client leaves
func (h *WSHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket accept failed")
		return
	}

	client := &wsClient{send: make(chan []byte, 64)}
	h.addClient(client)
	h.logger.WithField("remote_addr", r.RemoteAddr).Debug("WebSocket client connected")

	ctx := r.Context()
	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for msg := range client.send {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	// Read until the client disconnects; clients never send anything meaningful
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}

	h.removeClient(client)
	h.logger.WithField("remote_addr", r.RemoteAddr).Debug("WebSocket client disconnected")
}
