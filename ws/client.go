package ws

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

var wsJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Client is one WebSocket connection registered with a hub.
type Client struct {
	ID     string
	UserID string
	hub    *Hub
	conn   *websocket.Conn
	send   chan *Message
	logger *zap.Logger
}

// NewClient wraps an upgraded connection. Start ReadPump and WritePump
// in their own goroutines after registering the client with the hub.
func NewClient(hub *Hub, conn *websocket.Conn, userID string, logger *zap.Logger) *Client {
	return &Client{
		ID:     uuid.New().String(),
		UserID: userID,
		hub:    hub,
		conn:   conn,
		send:   make(chan *Message, 64),
		logger: logger,
	}
}

func (c *Client) deliver(message *Message) bool {
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// ReadPump reads frames from the connection and forwards them to the
// hub until the peer disconnects.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.shutdown:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("read error", zap.String("client_id", c.ID), zap.Error(err))
			}
			return
		}

		var message Message
		if err := wsJSON.Unmarshal(raw, &message); err != nil {
			c.deliver(&Message{Type: "error", Data: map[string]any{"reason": "malformed message"}})
			continue
		}
		message.ClientID = c.ID

		switch message.Type {
		case "ping":
			c.deliver(&Message{Type: "pong", Data: map[string]any{"time": time.Now().Unix()}})
		default:
			c.hub.Broadcast(&message)
		}
	}
}

// WritePump writes queued frames to the connection and keeps the
// connection alive with pings. It returns when the hub closes the send
// queue or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}

			raw, err := wsJSON.Marshal(message)
			if err != nil {
				c.logger.Warn("marshal error", zap.String("client_id", c.ID), zap.Error(err))
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
