// Package realtime implements the broadcast side channel: a hub of named
// fan-out groups, websocket subscriber sessions, and the publisher that
// feeds task snapshots into the hub. Delivery is best-effort and
// at-most-once; nothing here is persisted or replayed.
package realtime

import (
	"context"
	"log/slog"
	"sync"
)

// GroupTasks is the well-known group every session joins and every task
// event is published to.
const GroupTasks = "tasks"

// envelope pairs a payload with its destination group on the hub's internal
// publish queue.
type envelope struct {
	group   string
	payload []byte
}

// Hub owns the group-membership registry and fans published payloads out to
// the members of a group. Publishing is a non-blocking handoff onto an
// internal queue drained by Run; delivery to each session goes through that
// session's own buffered outbound channel, so one stalled connection never
// delays the others.
type Hub struct {
	logger *slog.Logger

	mu     sync.Mutex
	groups map[string]map[*Session]struct{}

	queue chan envelope
}

// NewHub creates a hub with the given publish queue size.
// Call Run to start delivery.
func NewHub(queueSize int, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger: logger.With(slog.String("component", "realtime_hub")),
		groups: make(map[string]map[*Session]struct{}),
		queue:  make(chan envelope, queueSize),
	}
}

// Run drains the publish queue until the context is cancelled. It is the
// only goroutine that fans out, which keeps delivery for a group in publish
// order.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case env := <-h.queue:
			h.deliver(env)
		}
	}
}

// Join adds the session to the named group. Joining is idempotent.
func (h *Hub) Join(group string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[group]
	if !ok {
		members = make(map[*Session]struct{})
		h.groups[group] = members
	}
	members[s] = struct{}{}

	h.logger.Debug("session joined group",
		"group", group,
		"session_id", s.id,
		"member_count", len(members))
}

// Leave removes the session from the named group. A session that is not a
// member is a no-op.
func (h *Hub) Leave(group string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.groups[group]
	if !ok {
		return
	}
	delete(members, s)
	if len(members) == 0 {
		delete(h.groups, group)
	}

	h.logger.Debug("session left group",
		"group", group,
		"session_id", s.id)
}

// Publish enqueues the payload for delivery to every current member of the
// group. It never blocks: when the queue is full the event is dropped and
// logged, per the at-most-once broadcast policy.
func (h *Hub) Publish(group string, payload []byte) {
	select {
	case h.queue <- envelope{group: group, payload: payload}:
	default:
		h.logger.Warn("publish queue full, dropping event",
			"group", group,
			"payload_size", len(payload))
	}
}

// deliver fans one envelope out to a snapshot of the group's members.
// Members are copied under the lock so a concurrent join or leave cannot
// race the send loop.
func (h *Hub) deliver(env envelope) {
	h.mu.Lock()
	members := make([]*Session, 0, len(h.groups[env.group]))
	for s := range h.groups[env.group] {
		members = append(members, s)
	}
	h.mu.Unlock()

	for _, s := range members {
		if s.trySend(env.payload) {
			continue
		}
		// The session's outbound buffer is full. Dropping it keeps this
		// delivery loop from stalling on one slow connection.
		h.logger.Warn("session send buffer full, evicting",
			"group", env.group,
			"session_id", s.id)
		h.Leave(env.group, s)
		s.close()
	}
}

// closeAll evicts every session on shutdown.
func (h *Hub) closeAll() {
	h.mu.Lock()
	sessions := make(map[*Session]struct{})
	for _, members := range h.groups {
		for s := range members {
			sessions[s] = struct{}{}
		}
	}
	h.groups = make(map[string]map[*Session]struct{})
	h.mu.Unlock()

	for s := range sessions {
		s.close()
	}
}
