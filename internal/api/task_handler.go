package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/tasktide/tasktide/internal/domain"
	"github.com/tasktide/tasktide/internal/service"
	"github.com/tasktide/tasktide/internal/store"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// TaskHandler handles task lifecycle API requests. Every endpoint is
// creator-scoped: list and get never surface another user's tasks, and
// mutations on them report 403 or 404 per the service rules.
type TaskHandler struct {
	taskService *service.TaskService
	users       store.UserStore
	validator   *validator.Validate
}

// NewTaskHandler creates a new TaskHandler with the given dependencies.
func NewTaskHandler(taskService *service.TaskService, users store.UserStore) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		users:       users,
		validator:   validator.New(),
	}
}

// List handles GET /tasks: one page of the caller's non-deleted tasks,
// newest first, in the message/count/next/previous/data envelope.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", defaultPageSize)
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > maxPageSize {
		pageSize = defaultPageSize
	}

	list, err := h.taskService.List(r.Context(), userID, page, pageSize)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	creator, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to list tasks")
		return
	}

	data := make([]TaskResponse, 0, len(list.Tasks))
	for _, task := range list.Tasks {
		data = append(data, newTaskResponse(task, creator))
	}

	RespondWithJSON(w, r, http.StatusOK, TaskListResponse{
		Message:      "Tasks retrieved successfully",
		ResponseCode: strconv.Itoa(http.StatusOK),
		Count:        list.Total,
		Next:         pageLink(r, page+1, pageSize, int64(page)*int64(pageSize) < list.Total),
		Previous:     pageLink(r, page-1, pageSize, page > 1),
		Data:         data,
	})
}

// Create handles POST /tasks.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateTaskRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	startDate, err := parseDate(req.StartDate)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	dueDate, err := parseDate(req.DueDate)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.taskService.Create(r.Context(), userID, service.CreateTaskParams{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssignedUser,
		StartDate:   startDate,
		DueDate:     *dueDate,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	creator, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to create task")
		return
	}

	RespondWithJSON(w, r, http.StatusCreated, newTaskResponse(task, creator))
}

// Get handles GET /tasks/{id}. A task created by another user is reported
// as missing.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	taskID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.taskService.Get(r.Context(), taskID, userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	creator, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to retrieve task")
		return
	}

	RespondWithJSON(w, r, http.StatusOK, newTaskResponse(task, creator))
}

// Update handles PUT and PATCH /tasks/{id}; both apply a partial update
// and answer with the post-update snapshot.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	taskID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	var req UpdateTaskRequest
	if err := DecodeJSON(r, &req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	update, err := taskUpdateFromRequest(req)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	task, err := h.taskService.Update(r.Context(), taskID, userID, update)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	creator, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to update task")
		return
	}

	RespondWithJSON(w, r, http.StatusOK, newTaskResponse(task, creator))
}

// ToggleDelete handles DELETE /tasks/{id}: 204 with no body when the task
// is now deleted, 200 with a message when it was restored.
func (h *TaskHandler) ToggleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	taskID, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	deleted, err := h.taskService.ToggleDelete(r.Context(), taskID, userID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if deleted {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	RespondWithJSON(w, r, http.StatusOK, map[string]string{
		"message": "Task restored successfully",
	})
}

// taskUpdateFromRequest converts the wire-level update, with its string
// dates, into the domain update.
func taskUpdateFromRequest(req UpdateTaskRequest) (domain.TaskUpdate, error) {
	update := domain.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		AssigneeID:  req.AssignedUser,
		IsCompleted: req.IsCompleted,
	}

	if req.StartDate != nil {
		start, err := parseDate(*req.StartDate)
		if err != nil {
			return domain.TaskUpdate{}, err
		}
		update.StartDate = start
	}
	if req.DueDate != nil {
		due, err := parseDate(*req.DueDate)
		if err != nil {
			return domain.TaskUpdate{}, err
		}
		update.DueDate = due
	}

	return update, nil
}

// queryInt reads an integer query parameter, falling back on absence or
// garbage.
func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

// pageLink builds the next/previous URL for the list envelope, or nil when
// the page does not exist.
func pageLink(r *http.Request, page, pageSize int, exists bool) *string {
	if !exists {
		return nil
	}
	link := fmt.Sprintf("%s?page=%d&page_size=%d", r.URL.Path, page, pageSize)
	return &link
}
