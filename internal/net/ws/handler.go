// Package ws upgrades viewer connections and runs their message loops.
package ws

import (
	nethttp "net/http"

	"github.com/gorilla/websocket"

	"nightdrive/server"
	"nightdrive/server/internal/net/proto"
	"nightdrive/server/internal/telemetry"
)

// HandlerConfig carries the optional collaborators for a websocket handler.
type HandlerConfig struct {
	Logger telemetry.Logger
}

// Handler upgrades HTTP requests into viewer websocket sessions.
type Handler struct {
	hub      *server.Hub
	logger   telemetry.Logger
	upgrader websocket.Upgrader
}

// NewHandler constructs a websocket handler bound to the hub.
func NewHandler(hub *server.Hub, cfg HandlerConfig) *Handler {
	return &Handler{
		hub:    hub,
		logger: cfg.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *nethttp.Request) bool {
				return true
			},
		},
	}
}

// Handle upgrades the request and pumps the session until the viewer leaves.
func (h *Handler) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	viewerID := r.URL.Query().Get("id")
	if viewerID == "" {
		nethttp.Error(w, "missing id", nethttp.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("upgrade failed for %s: %v", viewerID, err)
		}
		return
	}

	sub, frame, ok := h.hub.Subscribe(viewerID, conn)
	if !ok {
		message := websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unknown viewer")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}

	data, err := proto.EncodeFrameV1(frame)
	if err != nil {
		if h.logger != nil {
			h.logger.Printf("failed to marshal initial frame for %s: %v", viewerID, err)
		}
		h.hub.Disconnect(viewerID)
		return
	}
	if err := sub.WriteMessage(websocket.TextMessage, data); err != nil {
		h.hub.Disconnect(viewerID)
		return
	}

	session := &session{
		hub:      h.hub,
		logger:   h.logger,
		viewerID: viewerID,
		conn:     conn,
		sub:      sub,
	}
	session.run()
}
