package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasktide/tasktide/internal/domain"
	"github.com/tasktide/tasktide/internal/realtime"
	"github.com/tasktide/tasktide/internal/store"
)

// fakeTaskStore is an in-memory TaskStore for service tests.
type fakeTaskStore struct {
	tasks     map[uuid.UUID]*domain.Task
	createErr error
	updateErr error
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (f *fakeTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if f.createErr != nil {
		return f.createErr
	}
	copied := *task
	f.tasks[task.ID] = &copied
	return nil
}

func (f *fakeTaskStore) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.Task, error) {
	task, ok := f.tasks[id]
	if !ok || (task.IsDeleted && !includeDeleted) {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (f *fakeTaskStore) GetForCreator(
	ctx context.Context,
	id, creatorID uuid.UUID,
	includeDeleted bool,
) (*domain.Task, error) {
	task, err := f.GetByID(ctx, id, includeDeleted)
	if err != nil {
		return nil, err
	}
	if task.CreatedBy != creatorID {
		return nil, store.ErrTaskNotFound
	}
	return task, nil
}

func (f *fakeTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	copied := *task
	f.tasks[task.ID] = &copied
	return nil
}

func (f *fakeTaskStore) ListForCreator(
	ctx context.Context,
	creatorID uuid.UUID,
	offset, limit int,
) ([]*domain.Task, error) {
	var result []*domain.Task
	for _, task := range f.tasks {
		if task.CreatedBy == creatorID && !task.IsDeleted {
			copied := *task
			result = append(result, &copied)
		}
	}
	// Newest-created first, matching the store contract.
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if offset > len(result) {
		return nil, nil
	}
	result = result[offset:]
	if limit < len(result) {
		result = result[:limit]
	}
	return result, nil
}

func (f *fakeTaskStore) CountForCreator(ctx context.Context, creatorID uuid.UUID) (int64, error) {
	var count int64
	for _, task := range f.tasks {
		if task.CreatedBy == creatorID && !task.IsDeleted {
			count++
		}
	}
	return count, nil
}

func (f *fakeTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return f
}

// fakeUserDirectory implements the user lookups the service needs for
// snapshot resolution.
type fakeUserDirectory struct {
	users map[uuid.UUID]*domain.User
}

func newFakeUserDirectory(users ...*domain.User) *fakeUserDirectory {
	dir := &fakeUserDirectory{users: make(map[uuid.UUID]*domain.User)}
	for _, user := range users {
		dir.users[user.ID] = user
	}
	return dir
}

func (f *fakeUserDirectory) Create(ctx context.Context, user *domain.User) error {
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserDirectory) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

func (f *fakeUserDirectory) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, store.ErrUserNotFound
}

func (f *fakeUserDirectory) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return nil, store.ErrUserNotFound
}

func (f *fakeUserDirectory) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

func (f *fakeUserDirectory) WithTx(tx *sql.Tx) store.UserStore {
	return f
}

// capturePublisher records every published event.
type capturePublisher struct {
	events []realtime.TaskEvent
}

func (c *capturePublisher) PublishTask(ctx context.Context, event realtime.TaskEvent) {
	c.events = append(c.events, event)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serviceFixture(t *testing.T) (*TaskService, *fakeTaskStore, *capturePublisher, *domain.User, *domain.User) {
	t.Helper()

	creator := &domain.User{
		ID:        uuid.New(),
		Username:  "creator",
		Email:     "creator@example.com",
		FirstName: "Cleo",
		LastName:  "Creator",
	}
	assignee := &domain.User{
		ID:        uuid.New(),
		Username:  "assignee",
		Email:     "assignee@example.com",
		FirstName: "Avery",
		LastName:  "Assignee",
	}

	tasks := newFakeTaskStore()
	publisher := &capturePublisher{}
	svc := NewTaskService(tasks, newFakeUserDirectory(creator, assignee), publisher, discardLogger())

	return svc, tasks, publisher, creator, assignee
}

func validParams(assigneeID uuid.UUID) CreateTaskParams {
	return CreateTaskParams{
		Title:       "Ship release",
		Description: "cut the tag",
		AssigneeID:  assigneeID,
		DueDate:     domain.Today().AddDate(0, 0, 7),
	}
}

func TestTaskServiceCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("creates and broadcasts exactly once", func(t *testing.T) {
		svc, tasks, publisher, creator, assignee := serviceFixture(t)

		task, err := svc.Create(ctx, creator.ID, validParams(assignee.ID))
		require.NoError(t, err)

		stored, err := tasks.GetByID(ctx, task.ID, false)
		require.NoError(t, err)
		assert.Equal(t, creator.ID, stored.CreatedBy)

		require.Len(t, publisher.events, 1)
		event := publisher.events[0]
		assert.Equal(t, task.ID, event.ID)
		assert.Equal(t, "Ship release", event.Title)
		assert.Equal(t, "Avery Assignee", event.AssignedUser)
		assert.Equal(t, "creator", event.CreatedBy)
		assert.Equal(t, task.DueDate.Format(time.DateOnly), event.DueDate)
	})

	t.Run("validation failure stores and broadcasts nothing", func(t *testing.T) {
		svc, tasks, publisher, creator, assignee := serviceFixture(t)

		params := validParams(assignee.ID)
		params.Title = ""

		_, err := svc.Create(ctx, creator.ID, params)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Empty(t, tasks.tasks)
		assert.Empty(t, publisher.events)
	})

	t.Run("store failure suppresses the broadcast", func(t *testing.T) {
		svc, tasks, publisher, creator, assignee := serviceFixture(t)
		tasks.createErr = errors.New("db down")

		_, err := svc.Create(ctx, creator.ID, validParams(assignee.ID))
		require.Error(t, err)
		assert.Empty(t, publisher.events)
	})

	t.Run("unresolvable assignee drops the broadcast but not the create", func(t *testing.T) {
		svc, _, publisher, creator, _ := serviceFixture(t)

		params := validParams(uuid.New()) // no such user in the directory

		task, err := svc.Create(ctx, creator.ID, params)
		require.NoError(t, err)
		assert.NotNil(t, task)
		assert.Empty(t, publisher.events)
	})
}

func TestTaskServiceUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("creator updates and the snapshot is rebroadcast", func(t *testing.T) {
		svc, _, publisher, creator, assignee := serviceFixture(t)

		task, err := svc.Create(ctx, creator.ID, validParams(assignee.ID))
		require.NoError(t, err)

		newTitle := "Ship hotfix"
		updated, err := svc.Update(ctx, task.ID, creator.ID, domain.TaskUpdate{Title: &newTitle})
		require.NoError(t, err)
		assert.Equal(t, newTitle, updated.Title)

		require.Len(t, publisher.events, 2)
		assert.Equal(t, newTitle, publisher.events[1].Title)
	})

	t.Run("non-creator is rejected with ownership error", func(t *testing.T) {
		svc, tasks, publisher, creator, assignee := serviceFixture(t)

		task, err := svc.Create(ctx, creator.ID, validParams(assignee.ID))
		require.NoError(t, err)

		newTitle := "hijacked"
		_, err = svc.Update(ctx, task.ID, assignee.ID, domain.TaskUpdate{Title: &newTitle})
		assert.ErrorIs(t, err, ErrTaskNotOwned)

		stored, err := tasks.GetByID(ctx, task.ID, false)
		require.NoError(t, err)
		assert.Equal(t, "Ship release", stored.Title)
		assert.Len(t, publisher.events, 1, "only the create may broadcast")
	})

	t.Run("unknown task reports not found", func(t *testing.T) {
		svc, _, _, creator, _ := serviceFixture(t)

		newTitle := "x"
		_, err := svc.Update(ctx, uuid.New(), creator.ID, domain.TaskUpdate{Title: &newTitle})
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("one-sided date update is checked against stored dates", func(t *testing.T) {
		svc, _, _, creator, assignee := serviceFixture(t)

		params := validParams(assignee.ID)
		start := domain.Today().AddDate(0, 0, 2)
		params.StartDate = &start
		params.DueDate = domain.Today().AddDate(0, 0, 4)

		task, err := svc.Create(ctx, creator.ID, params)
		require.NoError(t, err)

		// Moving the start date onto the stored due date is rejected.
		badStart := params.DueDate
		_, err = svc.Update(ctx, task.ID, creator.ID, domain.TaskUpdate{StartDate: &badStart})
		assert.ErrorIs(t, err, domain.ErrDueBeforeStart)
	})
}

func TestTaskServiceToggleDelete(t *testing.T) {
	ctx := context.Background()

	t.Run("toggle deletes then restores", func(t *testing.T) {
		svc, _, publisher, creator, assignee := serviceFixture(t)

		task, err := svc.Create(ctx, creator.ID, validParams(assignee.ID))
		require.NoError(t, err)

		deleted, err := svc.ToggleDelete(ctx, task.ID, creator.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		// The task is gone from creator-scoped reads while deleted.
		_, err = svc.Get(ctx, task.ID, creator.ID)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)

		deleted, err = svc.ToggleDelete(ctx, task.ID, creator.ID)
		require.NoError(t, err)
		assert.False(t, deleted)

		restored, err := svc.Get(ctx, task.ID, creator.ID)
		require.NoError(t, err)
		assert.False(t, restored.IsDeleted)

		assert.Len(t, publisher.events, 1, "delete toggles do not broadcast")
	})

	t.Run("non-creator cannot toggle", func(t *testing.T) {
		svc, _, _, creator, assignee := serviceFixture(t)

		task, err := svc.Create(ctx, creator.ID, validParams(assignee.ID))
		require.NoError(t, err)

		_, err = svc.ToggleDelete(ctx, task.ID, assignee.ID)
		assert.ErrorIs(t, err, ErrTaskNotOwned)
	})
}

func TestTaskServiceReads(t *testing.T) {
	ctx := context.Background()

	t.Run("get hides other creators' tasks as not found", func(t *testing.T) {
		svc, _, _, creator, assignee := serviceFixture(t)

		task, err := svc.Create(ctx, creator.ID, validParams(assignee.ID))
		require.NoError(t, err)

		_, err = svc.Get(ctx, task.ID, assignee.ID)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})

	t.Run("list counts only the requester's live tasks", func(t *testing.T) {
		svc, _, _, creator, assignee := serviceFixture(t)

		first, err := svc.Create(ctx, creator.ID, validParams(assignee.ID))
		require.NoError(t, err)
		_, err = svc.Create(ctx, creator.ID, validParams(assignee.ID))
		require.NoError(t, err)

		_, err = svc.ToggleDelete(ctx, first.ID, creator.ID)
		require.NoError(t, err)

		list, err := svc.List(ctx, creator.ID, 1, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 1, list.Total)
		require.Len(t, list.Tasks, 1)

		list, err = svc.List(ctx, assignee.ID, 1, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 0, list.Total)
		assert.Empty(t, list.Tasks)
	})

	t.Run("list returns newest-created first", func(t *testing.T) {
		svc, tasks, _, creator, assignee := serviceFixture(t)

		now := time.Now().UTC()
		for i, title := range []string{"oldest", "middle", "newest"} {
			params := validParams(assignee.ID)
			params.Title = title
			task, err := svc.Create(ctx, creator.ID, params)
			require.NoError(t, err)

			// Spread creation times out so ordering does not hinge on
			// clock resolution.
			stored := tasks.tasks[task.ID]
			stored.CreatedAt = now.Add(time.Duration(i) * time.Minute)
		}

		list, err := svc.List(ctx, creator.ID, 1, 10)
		require.NoError(t, err)
		require.Len(t, list.Tasks, 3)
		assert.Equal(t, "newest", list.Tasks[0].Title)
		assert.Equal(t, "middle", list.Tasks[1].Title)
		assert.Equal(t, "oldest", list.Tasks[2].Title)
	})
}
