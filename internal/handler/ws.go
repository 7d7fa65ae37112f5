package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/efreitasn/perpengine/internal/events"
)

const wsWriteTimeout = 10 * time.Second

// WSHandler streams order lifecycle events over a websocket.
type WSHandler struct {
	hub      *events.Hub
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(hub *events.Hub, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Stream handles GET /ws: it subscribes the connection to the event
// hub and writes each event as a JSON message until the client goes
// away or falls too far behind.
func (h *WSHandler) Stream(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	sub := h.hub.Subscribe(64)
	defer h.hub.Unsubscribe(sub)
	defer conn.Close()

	// Drain client frames so close/ping control messages are handled.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for ev := range sub.C {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			h.logger.Debug("ws write failed", slog.String("error", err.Error()))
			return
		}
	}
}
