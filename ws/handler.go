package ws

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// HandlerConfig configures the upgrade handler.
type HandlerConfig struct {
	// ReadBufferSize and WriteBufferSize are passed to the upgrader.
	// Zero means the underlying defaults.
	ReadBufferSize  int
	WriteBufferSize int

	// CheckOrigin decides whether to accept a cross-origin upgrade.
	// Nil accepts every origin.
	CheckOrigin func(r *http.Request) bool

	// UserID extracts the user identity for the connection. Nil falls
	// back to the "user" query parameter.
	UserID func(r *http.Request) string
}

// Handler returns an http.Handler that upgrades requests to WebSocket
// connections registered with hub. Mount it next to the dispatcher;
// upgrades need the raw connection and bypass the response pipeline.
func Handler(hub *Hub, logger *zap.Logger) http.Handler {
	return HandlerWithConfig(hub, logger, HandlerConfig{})
}

// HandlerWithConfig is Handler with explicit configuration.
func HandlerWithConfig(hub *Hub, logger *zap.Logger, config HandlerConfig) http.Handler {
	checkOrigin := config.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	userID := config.UserID
	if userID == nil {
		userID = func(r *http.Request) string { return r.URL.Query().Get("user") }
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  config.ReadBufferSize,
		WriteBufferSize: config.WriteBufferSize,
		CheckOrigin:     checkOrigin,
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("upgrade failed", zap.Error(err))
			return
		}

		client := NewClient(hub, conn, userID(r), logger)
		select {
		case hub.register <- client:
		case <-hub.shutdown:
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	})
}
