package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// TaskEvent is the point-in-time snapshot of a task that is broadcast after
// every successful create or update. Assignee and creator are resolved to
// display values before publishing so subscribers never need a second
// lookup.
type TaskEvent struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	AssignedUser string    `json:"assigned_user"`
	CreatedBy    string    `json:"created_by"`
	StartDate    string    `json:"start_date"`
	DueDate      string    `json:"due_date"`
	IsCompleted  bool      `json:"is_completed"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TaskEventPublisher serializes task snapshots and hands them to the hub
// for the tasks group.
type TaskEventPublisher struct {
	hub    *Hub
	logger *slog.Logger
}

// NewTaskEventPublisher creates a publisher over the given hub.
func NewTaskEventPublisher(hub *Hub, logger *slog.Logger) *TaskEventPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskEventPublisher{
		hub:    hub,
		logger: logger.With(slog.String("component", "task_event_publisher")),
	}
}

// PublishTask broadcasts the snapshot to the tasks group. It is
// fire-and-forget: serialization or enqueue problems are logged and
// swallowed so the triggering mutation can never be failed by its side
// channel.
func (p *TaskEventPublisher) PublishTask(ctx context.Context, event TaskEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to serialize task event",
			"error", err,
			"task_id", event.ID)
		return
	}

	p.hub.Publish(GroupTasks, payload)
}
