package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tasktide/tasktide/internal/domain"
	"github.com/tasktide/tasktide/internal/realtime"
	"github.com/tasktide/tasktide/internal/store"
)

// EventPublisher is the broadcast side channel for task mutations. It must
// be fire-and-forget: implementations never block meaningfully and never
// surface delivery failures to the caller.
type EventPublisher interface {
	PublishTask(ctx context.Context, event realtime.TaskEvent)
}

// CreateTaskParams carries the fields for a new task. A nil StartDate
// defaults to the creation date.
type CreateTaskParams struct {
	Title       string
	Description string
	AssigneeID  uuid.UUID
	StartDate   *time.Time
	DueDate     time.Time
}

// TaskList is one page of a creator's non-deleted tasks.
type TaskList struct {
	Tasks []*domain.Task
	Total int64
}

// TaskService implements the task lifecycle: create, update, soft-delete
// toggle, and creator-scoped reads. Every successful create or update
// commits to the store first and then broadcasts the post-mutation snapshot
// exactly once; the broadcast can never fail the mutation.
type TaskService struct {
	tasks     store.TaskStore
	users     store.UserStore
	publisher EventPublisher
	logger    *slog.Logger
}

// NewTaskService creates a TaskService with the given dependencies.
func NewTaskService(
	tasks store.TaskStore,
	users store.UserStore,
	publisher EventPublisher,
	logger *slog.Logger,
) *TaskService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskService{
		tasks:     tasks,
		users:     users,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "task_service")),
	}
}

// Create validates and persists a new task for creatorID, then broadcasts
// its snapshot.
func (s *TaskService) Create(
	ctx context.Context,
	creatorID uuid.UUID,
	params CreateTaskParams,
) (*domain.Task, error) {
	task, err := domain.NewTask(
		creatorID,
		params.AssigneeID,
		params.Title,
		params.Description,
		params.StartDate,
		params.DueDate,
	)
	if err != nil {
		return nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}

	s.publishSnapshot(ctx, task)
	return task, nil
}

// Update applies a partial update to a task the requester created. A
// requester who is not the creator gets ErrTaskNotOwned and the task is
// left unchanged. On success the post-update snapshot is broadcast.
func (s *TaskService) Update(
	ctx context.Context,
	taskID, requesterID uuid.UUID,
	update domain.TaskUpdate,
) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID, false)
	if err != nil {
		return nil, err
	}

	if task.CreatedBy != requesterID {
		return nil, ErrTaskNotOwned
	}

	if err := task.ApplyUpdate(update); err != nil {
		return nil, err
	}

	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, err
	}

	s.publishSnapshot(ctx, task)
	return task, nil
}

// ToggleDelete flips the task's soft-delete flag and reports the resulting
// state. The read goes through the unfiltered view so a previously deleted
// task can be restored by the same operation.
func (s *TaskService) ToggleDelete(
	ctx context.Context,
	taskID, requesterID uuid.UUID,
) (deleted bool, err error) {
	task, err := s.tasks.GetByID(ctx, taskID, true)
	if err != nil {
		return false, err
	}

	if task.CreatedBy != requesterID {
		return false, ErrTaskNotOwned
	}

	deleted = task.ToggleDeleted()
	if err := s.tasks.Update(ctx, task); err != nil {
		return false, err
	}

	s.logger.Info("toggled task deletion",
		"task_id", task.ID,
		"is_deleted", deleted)

	return deleted, nil
}

// Get retrieves one of the requester's own non-deleted tasks. Tasks created
// by other users are indistinguishable from missing ones.
func (s *TaskService) Get(ctx context.Context, taskID, requesterID uuid.UUID) (*domain.Task, error) {
	return s.tasks.GetForCreator(ctx, taskID, requesterID, false)
}

// List returns one page of the requester's non-deleted tasks,
// newest-created first.
func (s *TaskService) List(
	ctx context.Context,
	requesterID uuid.UUID,
	page, pageSize int,
) (*TaskList, error) {
	if page < 1 {
		page = 1
	}

	tasks, err := s.tasks.ListForCreator(ctx, requesterID, (page-1)*pageSize, pageSize)
	if err != nil {
		return nil, err
	}

	total, err := s.tasks.CountForCreator(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	return &TaskList{Tasks: tasks, Total: total}, nil
}

// publishSnapshot resolves display names and hands the post-mutation
// snapshot to the publisher. The mutation has already committed; any
// failure here is logged and swallowed.
func (s *TaskService) publishSnapshot(ctx context.Context, task *domain.Task) {
	assignee, err := s.users.GetByID(ctx, task.AssigneeID)
	if err != nil {
		s.logger.Error("skipping broadcast, failed to resolve assignee",
			"error", err,
			"task_id", task.ID,
			"assignee_id", task.AssigneeID)
		return
	}

	creator, err := s.users.GetByID(ctx, task.CreatedBy)
	if err != nil {
		s.logger.Error("skipping broadcast, failed to resolve creator",
			"error", err,
			"task_id", task.ID,
			"creator_id", task.CreatedBy)
		return
	}

	s.publisher.PublishTask(ctx, realtime.TaskEvent{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		AssignedUser: assignee.DisplayName(),
		CreatedBy:    creator.Username,
		StartDate:    task.StartDate.Format(time.DateOnly),
		DueDate:      task.DueDate.Format(time.DateOnly),
		IsCompleted:  task.IsCompleted,
		CreatedAt:    task.CreatedAt,
		UpdatedAt:    task.UpdatedAt,
	})
}
