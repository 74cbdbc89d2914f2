package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/tasktide/tasktide/internal/realtime"
)

// WebSocketHandler upgrades authenticated requests into realtime sessions
// on the tasks group.
type WebSocketHandler struct {
	hub        *realtime.Hub
	bufferSize int
	upgrader   websocket.Upgrader
	logger     *slog.Logger
}

// NewWebSocketHandler creates a WebSocketHandler. bufferSize is the
// per-session outbound queue length.
func NewWebSocketHandler(hub *realtime.Hub, bufferSize int, logger *slog.Logger) *WebSocketHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebSocketHandler{
		hub:        hub,
		bufferSize: bufferSize,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logger.With(slog.String("component", "ws_handler")),
	}
}

// Serve handles GET /ws. Authentication has already happened in the
// middleware chain; the upgrade failing is the upgrader's to report.
func (h *WebSocketHandler) Serve(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		h.logger.Debug("websocket upgrade failed",
			"error", err,
			"user_id", userID,
			"remote_addr", r.RemoteAddr)
		return
	}

	session := realtime.NewSession(h.hub, conn, h.bufferSize, h.logger)

	h.logger.Info("websocket session started",
		"user_id", userID,
		"remote_addr", r.RemoteAddr)

	go session.WritePump()
	session.ReadPump()
}
