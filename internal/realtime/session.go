package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// writeWait is the deadline for a single outbound write.
	writeWait = 10 * time.Second

	// pongWait is how long a connection may stay silent before it is
	// considered dead; pingPeriod must be shorter.
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound frames from clients.
	maxMessageSize = 64 * 1024
)

// Session represents one live websocket connection. It joins the tasks
// group on construction and leaves it when either pump exits. Inbound
// client JSON is re-published verbatim to the group, so any client message
// is echoed to every member, the sender included.
type Session struct {
	id     uuid.UUID
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	logger *slog.Logger

	// sendMu serializes trySend against close: the read pump tears the
	// session down on its own goroutine while the hub's run loop may be
	// mid-delivery, and a send on a closed channel panics.
	sendMu sync.Mutex
	closed bool
}

// NewSession wraps an upgraded connection and joins it to the tasks group.
// The caller must start ReadPump and WritePump on separate goroutines.
func NewSession(hub *Hub, conn *websocket.Conn, bufferSize int, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		id:     uuid.New(),
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, bufferSize),
		logger: logger.With(slog.String("component", "realtime_session")),
	}
	hub.Join(GroupTasks, s)
	return s
}

// close releases the session's outbound channel exactly once. The write
// pump notices the closed channel and tears down the connection.
func (s *Session) close() {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.send)
}

// trySend hands a payload to the session's outbound buffer without
// blocking. It reports false only when the session is live and its buffer
// is full; a closed session swallows the payload, since its pumps are
// already tearing down and it has left the group.
func (s *Session) trySend(payload []byte) bool {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.send <- payload:
		return true
	default:
		return false
	}
}

// ReadPump consumes frames from the client until the connection errors or
// closes. Each well-formed JSON frame is re-published to the tasks group;
// malformed frames are logged and skipped rather than killing the session.
// On exit the session leaves the group, so no further events reach it.
func (s *Session) ReadPump() {
	defer func() {
		s.hub.Leave(GroupTasks, s)
		s.close()
		if err := s.conn.Close(); err != nil {
			s.logger.Debug("closing connection after read pump", "error", err, "session_id", s.id)
		}
	}()

	s.conn.SetReadLimit(maxMessageSize)
	if err := s.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		s.logger.Error("failed to set read deadline", "error", err, "session_id", s.id)
		return
	}
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("unexpected close", "error", err, "session_id", s.id)
			}
			return
		}

		if !json.Valid(message) {
			s.logger.Warn("dropping malformed client message",
				"session_id", s.id,
				"size", len(message))
			continue
		}

		// Echo-relay: the raw client payload becomes a group event visible
		// to all members, including this one.
		s.hub.Publish(GroupTasks, message)
	}
}

// WritePump forwards group events to the connection as text frames and
// keeps the connection alive with pings. It exits when the outbound channel
// is closed or a write fails.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := s.conn.Close(); err != nil {
			s.logger.Debug("closing connection after write pump", "error", err, "session_id", s.id)
		}
	}()

	for {
		select {
		case message, ok := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// The hub evicted this session or is shutting down.
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				s.logger.Debug("write failed", "error", err, "session_id", s.id)
				return
			}
		case <-ticker.C:
			if err := s.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
