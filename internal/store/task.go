package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/tasktide/tasktide/internal/domain"
)

// TaskStore defines the interface for task data persistence. All reads are
// scoped to the task's creator: a task id belonging to another account is
// indistinguishable from a missing one.
type TaskStore interface {
	// Create saves a new task to the store.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by ID regardless of creator. Mutation paths
	// use it so a non-creator can be told apart from a missing task.
	// Soft-deleted tasks are invisible unless includeDeleted is set.
	// Returns ErrTaskNotFound if no matching task exists.
	GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.Task, error)

	// GetForCreator retrieves a task by ID, restricted to tasks created by
	// creatorID. Soft-deleted tasks are invisible unless includeDeleted is
	// set; the delete-toggle path reads through the unfiltered view so a
	// deleted task can be restored.
	// Returns ErrTaskNotFound if no matching task exists.
	GetForCreator(ctx context.Context, id, creatorID uuid.UUID, includeDeleted bool) (*domain.Task, error)

	// Update persists the mutable fields of an existing task, including the
	// soft-delete flag. Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// ListForCreator returns the creator's non-deleted tasks ordered
	// newest-created first. offset/limit implement page slicing.
	ListForCreator(ctx context.Context, creatorID uuid.UUID, offset, limit int) ([]*domain.Task, error)

	// CountForCreator returns the number of non-deleted tasks created by
	// creatorID.
	CountForCreator(ctx context.Context, creatorID uuid.UUID) (int64, error)

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) TaskStore
}
