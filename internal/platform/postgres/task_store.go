package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/tasktide/tasktide/internal/domain"
	"github.com/tasktide/tasktide/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db store.DBTX
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface.
func NewPostgresTaskStore(db store.DBTX) *PostgresTaskStore {
	return &PostgresTaskStore{db: db}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

const taskColumns = `id, title, description, assignee_id, created_by,
	start_date, due_date, is_completed, is_deleted, created_at, updated_at`

// Create implements store.TaskStore.Create.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO tasks (id, title, description, assignee_id, created_by,
			start_date, due_date, is_completed, is_deleted, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.ExecContext(ctx, query,
		task.ID, task.Title, task.Description, task.AssigneeID, task.CreatedBy,
		task.StartDate, task.DueDate, task.IsCompleted, task.IsDeleted,
		task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: assignee or creator does not exist", store.ErrInvalidEntity)
		}
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetByID implements store.TaskStore.GetByID.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`
	if !includeDeleted {
		query += ` AND NOT is_deleted`
	}

	return s.getOne(ctx, query, id)
}

// GetForCreator implements store.TaskStore.GetForCreator.
func (s *PostgresTaskStore) GetForCreator(
	ctx context.Context,
	id, creatorID uuid.UUID,
	includeDeleted bool,
) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND created_by = $2`
	if !includeDeleted {
		query += ` AND NOT is_deleted`
	}

	return s.getOne(ctx, query, id, creatorID)
}

// Update implements store.TaskStore.Update. The creator and creation
// timestamp are immutable and deliberately absent from the statement.
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE tasks
		SET title = $2, description = $3, assignee_id = $4, start_date = $5,
			due_date = $6, is_completed = $7, is_deleted = $8, updated_at = $9
		WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query,
		task.ID, task.Title, task.Description, task.AssigneeID,
		task.StartDate, task.DueDate, task.IsCompleted, task.IsDeleted,
		task.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: assignee does not exist", store.ErrInvalidEntity)
		}
		return fmt.Errorf("failed to update task: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if rows == 0 {
		return store.ErrTaskNotFound
	}

	return nil
}

// ListForCreator implements store.TaskStore.ListForCreator.
func (s *PostgresTaskStore) ListForCreator(
	ctx context.Context,
	creatorID uuid.UUID,
	offset, limit int,
) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE created_by = $1 AND NOT is_deleted
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3`

	rows, err := s.db.QueryContext(ctx, query, creatorID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}

	return tasks, nil
}

// CountForCreator implements store.TaskStore.CountForCreator.
func (s *PostgresTaskStore) CountForCreator(ctx context.Context, creatorID uuid.UUID) (int64, error) {
	query := `SELECT COUNT(*) FROM tasks WHERE created_by = $1 AND NOT is_deleted`

	var count int64
	if err := s.db.QueryRowContext(ctx, query, creatorID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tasks: %w", err)
	}

	return count, nil
}

// WithTx implements store.TaskStore.WithTx.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx}
}

func (s *PostgresTaskStore) getOne(ctx context.Context, query string, args ...any) (*domain.Task, error) {
	task, err := scanTask(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID, &task.Title, &task.Description, &task.AssigneeID, &task.CreatedBy,
		&task.StartDate, &task.DueDate, &task.IsCompleted, &task.IsDeleted,
		&task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	// date columns come back at midnight in the session zone; normalize to
	// the UTC calendar dates the domain works with.
	task.StartDate = domain.NormalizeDate(task.StartDate)
	task.DueDate = domain.NormalizeDate(task.DueDate)
	return &task, nil
}
