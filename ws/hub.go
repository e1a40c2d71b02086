// Package ws provides WebSocket connection management. A Hub owns all
// connection state and mutates it exclusively from its run loop, so no
// locking is needed; clients talk to the hub over channels.
package ws

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Message is the JSON frame exchanged with clients.
type Message struct {
	Type     string         `json:"type"`
	Data     map[string]any `json:"data,omitempty"`
	Target   string         `json:"target,omitempty"`
	ClientID string         `json:"client_id,omitempty"`
}

type countRequest struct {
	response chan int
}

// Hub maintains the set of active connections and routes messages
// between them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	count      chan countRequest
	logger     *zap.Logger

	shutdown     chan struct{}
	shutdownDone chan struct{}
}

// NewHub creates a hub. Call Run in its own goroutine before serving
// connections.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:      make(map[*Client]bool),
		broadcast:    make(chan *Message, 256),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		count:        make(chan countRequest),
		logger:       logger,
		shutdown:     make(chan struct{}),
		shutdownDone: make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	defer close(h.shutdownDone)

	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info("client connected",
				zap.String("client_id", client.ID),
				zap.String("user_id", client.UserID))
			client.deliver(&Message{
				Type: "welcome",
				Data: map[string]any{"client_id": client.ID},
			})

		case client := <-h.unregister:
			h.dropClient(client)

		case message := <-h.broadcast:
			h.route(message)

		case req := <-h.count:
			req.response <- len(h.clients)

		case <-h.shutdown:
			h.logger.Info("closing client connections", zap.Int("count", len(h.clients)))
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			return
		}
	}
}

func (h *Hub) dropClient(client *Client) {
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
		h.logger.Info("client disconnected", zap.String("client_id", client.ID))
	}
}

// route delivers a message to its target, or to everyone when the
// target is empty. A client whose send queue is full is dropped.
func (h *Hub) route(message *Message) {
	for client := range h.clients {
		if message.Target != "" && client.ID != message.Target && client.UserID != message.Target {
			continue
		}
		if !client.deliver(message) {
			h.logger.Warn("client send queue full, dropping",
				zap.String("client_id", client.ID))
			h.dropClient(client)
		}
	}
}

// Broadcast queues a message for delivery to all connected clients.
func (h *Hub) Broadcast(message *Message) {
	select {
	case h.broadcast <- message:
	case <-h.shutdown:
	}
}

// SendToUser queues a message for one user's connections.
func (h *Hub) SendToUser(userID string, message *Message) {
	message.Target = userID
	h.Broadcast(message)
}

// ClientCount reports the number of connected clients.
func (h *Hub) ClientCount() int {
	req := countRequest{response: make(chan int, 1)}
	select {
	case h.count <- req:
		return <-req.response
	case <-h.shutdown:
		return 0
	}
}

// Stop closes every connection and stops the run loop. It is shaped to
// register directly as an application shutdown hook.
func (h *Hub) Stop(ctx context.Context) error {
	h.Broadcast(&Message{
		Type: "server_shutdown",
		Data: map[string]any{"time": time.Now().Unix()},
	})
	close(h.shutdown)

	select {
	case <-h.shutdownDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
