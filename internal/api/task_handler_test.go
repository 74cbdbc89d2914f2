package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tasktide/tasktide/internal/api/shared"
	"github.com/tasktide/tasktide/internal/domain"
	"github.com/tasktide/tasktide/internal/realtime"
	"github.com/tasktide/tasktide/internal/service"
	"github.com/tasktide/tasktide/internal/store"
)

// memoryTaskStore is an in-memory TaskStore for handler tests.
type memoryTaskStore struct {
	tasks map[uuid.UUID]*domain.Task
}

func newMemoryTaskStore() *memoryTaskStore {
	return &memoryTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (m *memoryTaskStore) Create(ctx context.Context, task *domain.Task) error {
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *memoryTaskStore) GetByID(ctx context.Context, id uuid.UUID, includeDeleted bool) (*domain.Task, error) {
	task, ok := m.tasks[id]
	if !ok || (task.IsDeleted && !includeDeleted) {
		return nil, store.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (m *memoryTaskStore) GetForCreator(
	ctx context.Context,
	id, creatorID uuid.UUID,
	includeDeleted bool,
) (*domain.Task, error) {
	task, err := m.GetByID(ctx, id, includeDeleted)
	if err != nil {
		return nil, err
	}
	if task.CreatedBy != creatorID {
		return nil, store.ErrTaskNotFound
	}
	return task, nil
}

func (m *memoryTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if _, ok := m.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *memoryTaskStore) ListForCreator(
	ctx context.Context,
	creatorID uuid.UUID,
	offset, limit int,
) ([]*domain.Task, error) {
	var result []*domain.Task
	for _, task := range m.tasks {
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

func (m *memoryTaskStore) CountForCreator(ctx context.Context, creatorID uuid.UUID) (int64, error) {
	var count int64
	for _, task := range m.tasks {
		if task.CreatedBy == creatorID && !task.IsDeleted {
			count++
		}
	}
	return count, nil
}

func (m *memoryTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return m
}

// memoryUserStore resolves users by ID only.
type memoryUserStore struct {
	users map[uuid.UUID]*domain.User
}

func newMemoryUserStore(users ...*domain.User) *memoryUserStore {
	m := &memoryUserStore{users: make(map[uuid.UUID]*domain.User)}
	for _, user := range users {
		m.users[user.ID] = user
	}
	return m
}

func (m *memoryUserStore) Create(ctx context.Context, user *domain.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *memoryUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return user, nil
}

func (m *memoryUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, store.ErrUserNotFound
}

func (m *memoryUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return nil, store.ErrUserNotFound
}

func (m *memoryUserStore) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

func (m *memoryUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return m
}

// dropPublisher swallows every event; handler tests do not assert on the
// broadcast path.
type dropPublisher struct{}

func (dropPublisher) PublishTask(ctx context.Context, event realtime.TaskEvent) {}

type handlerFixture struct {
	router   http.Handler
	creator  *domain.User
	assignee *domain.User
	tasks    *memoryTaskStore
}

// asUser injects an authenticated user the way the auth middleware would.
func asUser(userID uuid.UUID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), shared.UserIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func newHandlerFixture(t *testing.T, userID uuid.UUID) *handlerFixture {
	t.Helper()

	creator := &domain.User{
		ID:        userID,
		Username:  "creator",
		Email:     "creator@example.com",
		FirstName: "Cleo",
		LastName:  "Creator",
	}
	assignee := &domain.User{
		ID:       uuid.New(),
		Username: "assignee",
		Email:    "assignee@example.com",
	}

	tasks := newMemoryTaskStore()
	users := newMemoryUserStore(creator, assignee)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.NewTaskService(tasks, users, dropPublisher{}, logger)
	handler := NewTaskHandler(svc, users)

	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(asUser(userID))
		r.Get("/api/tasks", handler.List)
		r.Post("/api/tasks", handler.Create)
		r.Get("/api/tasks/{id}", handler.Get)
		r.Put("/api/tasks/{id}", handler.Update)
		r.Patch("/api/tasks/{id}", handler.Update)
		r.Delete("/api/tasks/{id}", handler.ToggleDelete)
	})

	return &handlerFixture{router: r, creator: creator, assignee: assignee, tasks: tasks}
}

func (f *handlerFixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	r := httptest.NewRequest(method, path, reader)
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	return w
}

func (f *handlerFixture) createTask(t *testing.T) TaskResponse {
	t.Helper()

	due := domain.Today().AddDate(0, 0, 7).Format(time.DateOnly)
	w := f.do(t, http.MethodPost, "/api/tasks", map[string]interface{}{
		"title":         "Ship release",
		"description":   "cut the tag",
		"assigned_user": f.assignee.ID,
		"due_date":      due,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp TaskResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestTaskHandlerCreate(t *testing.T) {
	userID := uuid.New()

	t.Run("valid create returns 201 with the snapshot", func(t *testing.T) {
		f := newHandlerFixture(t, userID)
		resp := f.createTask(t)

		assert.Equal(t, "Ship release", resp.Title)
		assert.Equal(t, f.assignee.ID, resp.AssignedUser)
		assert.Equal(t, "creator", resp.CreatedBy.Username)
		assert.Equal(t, domain.Today().Format(time.DateOnly), resp.StartDate, "start date defaults to today")
	})

	t.Run("missing due date is 400", func(t *testing.T) {
		f := newHandlerFixture(t, userID)
		w := f.do(t, http.MethodPost, "/api/tasks", map[string]interface{}{
			"title":         "no due date",
			"assigned_user": f.assignee.ID,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("due date today is 400", func(t *testing.T) {
		f := newHandlerFixture(t, userID)
		w := f.do(t, http.MethodPost, "/api/tasks", map[string]interface{}{
			"title":         "too soon",
			"assigned_user": f.assignee.ID,
			"due_date":      domain.Today().Format(time.DateOnly),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		f := newHandlerFixture(t, userID)
		w := f.do(t, http.MethodPost, "/api/tasks", map[string]interface{}{
			"title":         "x",
			"assigned_user": f.assignee.ID,
			"due_date":      domain.Today().AddDate(0, 0, 1).Format(time.DateOnly),
			"created_by":    uuid.New(), // creator comes from the token, never the body
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTaskHandlerGet(t *testing.T) {
	userID := uuid.New()

	t.Run("returns an owned task", func(t *testing.T) {
		f := newHandlerFixture(t, userID)
		created := f.createTask(t)

		w := f.do(t, http.MethodGet, "/api/tasks/"+created.ID.String(), nil)
		assert.Equal(t, http.StatusOK, w.Code)

		var resp TaskResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, created.ID, resp.ID)
	})

	t.Run("another user's task is 404", func(t *testing.T) {
		f := newHandlerFixture(t, userID)
		created := f.createTask(t)

		// Same store, different authenticated user.
		foreign := newHandlerFixture(t, uuid.New())
		foreign.tasks.tasks = f.tasks.tasks

		w := foreign.do(t, http.MethodGet, "/api/tasks/"+created.ID.String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("a malformed id is 400", func(t *testing.T) {
		f := newHandlerFixture(t, userID)
		w := f.do(t, http.MethodGet, "/api/tasks/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTaskHandlerUpdate(t *testing.T) {
	userID := uuid.New()

	t.Run("patch updates only the supplied fields", func(t *testing.T) {
		f := newHandlerFixture(t, userID)
		created := f.createTask(t)

		w := f.do(t, http.MethodPatch, "/api/tasks/"+created.ID.String(), map[string]interface{}{
			"is_completed": true,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		var resp TaskResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.True(t, resp.IsCompleted)
		assert.Equal(t, created.Title, resp.Title)
	})

	t.Run("a non-creator gets 403", func(t *testing.T) {
		f := newHandlerFixture(t, userID)
		created := f.createTask(t)

		foreign := newHandlerFixture(t, uuid.New())
		foreign.tasks.tasks = f.tasks.tasks

		w := foreign.do(t, http.MethodPut, "/api/tasks/"+created.ID.String(), map[string]interface{}{
			"title": "hijacked",
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("moving the due date before the stored start date is 400", func(t *testing.T) {
		f := newHandlerFixture(t, userID)

		// Create with an explicit future start date.
		start := domain.Today().AddDate(0, 0, 3).Format(time.DateOnly)
		due := domain.Today().AddDate(0, 0, 5).Format(time.DateOnly)
		w := f.do(t, http.MethodPost, "/api/tasks", map[string]interface{}{
			"title":         "windowed",
			"assigned_user": f.assignee.ID,
			"start_date":    start,
			"due_date":      due,
		})
		require.Equal(t, http.StatusCreated, w.Code)
		var created TaskResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

		w = f.do(t, http.MethodPatch, "/api/tasks/"+created.ID.String(), map[string]interface{}{
			"due_date": domain.Today().AddDate(0, 0, 2).Format(time.DateOnly),
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestTaskHandlerToggleDelete(t *testing.T) {
	userID := uuid.New()

	t.Run("delete then restore", func(t *testing.T) {
		f := newHandlerFixture(t, userID)
		created := f.createTask(t)
		path := "/api/tasks/" + created.ID.String()

		w := f.do(t, http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Body.String())

		// The deleted task vanishes from reads.
		w = f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		// A second delete restores it.
		w = f.do(t, http.MethodDelete, path, nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "restored")

		w = f.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		f := newHandlerFixture(t, userID)
		w := f.do(t, http.MethodDelete, "/api/tasks/"+uuid.NewString(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTaskHandlerList(t *testing.T) {
	userID := uuid.New()

	t.Run("envelope carries count and data", func(t *testing.T) {
		f := newHandlerFixture(t, userID)
		f.createTask(t)
		f.createTask(t)

		w := f.do(t, http.MethodGet, "/api/tasks", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp TaskListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.EqualValues(t, 2, resp.Count)
		assert.Len(t, resp.Data, 2)
		assert.Equal(t, "200", resp.ResponseCode)
		assert.Nil(t, resp.Next)
		assert.Nil(t, resp.Previous)
	})

	t.Run("pagination links reflect the window", func(t *testing.T) {
		f := newHandlerFixture(t, userID)
		for i := 0; i < 3; i++ {
			f.createTask(t)
		}

		w := f.do(t, http.MethodGet, "/api/tasks?page=1&page_size=2", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp TaskListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.EqualValues(t, 3, resp.Count)
		assert.Len(t, resp.Data, 2)
		require.NotNil(t, resp.Next)
		assert.Equal(t, "/api/tasks?page=2&page_size=2", *resp.Next)
		assert.Nil(t, resp.Previous)

		w = f.do(t, http.MethodGet, "/api/tasks?page=2&page_size=2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp = TaskListResponse{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Len(t, resp.Data, 1)
		assert.Nil(t, resp.Next)
		require.NotNil(t, resp.Previous)
		assert.Equal(t, "/api/tasks?page=1&page_size=2", *resp.Previous)
	})

	t.Run("another user's listing is empty", func(t *testing.T) {
		f := newHandlerFixture(t, userID)
		f.createTask(t)

		foreign := newHandlerFixture(t, uuid.New())
		foreign.tasks.tasks = f.tasks.tasks

		w := foreign.do(t, http.MethodGet, "/api/tasks", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var resp TaskListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.EqualValues(t, 0, resp.Count)
		assert.Empty(t, resp.Data)
	})
}
