package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/tasktide/tasktide/internal/domain"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Username        string `json:"username"         validate:"required,min=3,max=64"`
	Email           string `json:"email"            validate:"required,email"`
	FirstName       string `json:"first_name"       validate:"required"`
	LastName        string `json:"last_name"        validate:"required"`
	Password        string `json:"password"         validate:"required,min=8,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	Avatar          string `json:"avatar"           validate:"omitempty,url"`
}

// RegisterResponse defines the successful response for registration.
type RegisterResponse struct {
	ID         uuid.UUID `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	DateJoined time.Time `json:"date_joined"`
}

// LoginRequest defines the payload for the login endpoint. Username is the
// login identifier and may be either a username or an email address.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required,min=1"`
}

// LoginResponse defines the successful response for the login endpoint.
type LoginResponse struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    string    `json:"expires_at,omitempty"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token
// refresh endpoint.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    string `json:"expires_at"`
}

// CreateTaskRequest defines the payload for task creation. Dates use the
// 2006-01-02 form; start_date defaults to today when omitted.
type CreateTaskRequest struct {
	Title        string    `json:"title"         validate:"required,max=200"`
	Description  string    `json:"description"`
	AssignedUser uuid.UUID `json:"assigned_user" validate:"required"`
	StartDate    string    `json:"start_date"    validate:"omitempty,datetime=2006-01-02"`
	DueDate      string    `json:"due_date"      validate:"required,datetime=2006-01-02"`
}

// UpdateTaskRequest defines the payload for task updates. Absent fields are
// left unchanged; PUT and PATCH share this shape.
type UpdateTaskRequest struct {
	Title        *string    `json:"title"         validate:"omitempty,max=200"`
	Description  *string    `json:"description"`
	AssignedUser *uuid.UUID `json:"assigned_user"`
	IsCompleted  *bool      `json:"is_completed"`
	StartDate    *string    `json:"start_date"    validate:"omitempty,datetime=2006-01-02"`
	DueDate      *string    `json:"due_date"      validate:"omitempty,datetime=2006-01-02"`
}

// CreatedByInfo identifies a task's creator in responses.
type CreatedByInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Username  string `json:"username"`
}

// TaskResponse is the API representation of a task.
type TaskResponse struct {
	ID           uuid.UUID     `json:"id"`
	Title        string        `json:"title"`
	Description  string        `json:"description"`
	AssignedUser uuid.UUID     `json:"assigned_user"`
	IsCompleted  bool          `json:"is_completed"`
	IsDeleted    bool          `json:"is_deleted"`
	CreatedBy    CreatedByInfo `json:"created_by"`
	StartDate    string        `json:"start_date"`
	DueDate      string        `json:"due_date"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// TaskListResponse is the paginated envelope for task listings.
type TaskListResponse struct {
	Message      string         `json:"message"`
	ResponseCode string         `json:"responseCode"`
	Count        int64          `json:"count"`
	Next         *string        `json:"next"`
	Previous     *string        `json:"previous"`
	Data         []TaskResponse `json:"data"`
}

// newTaskResponse converts a domain task to its API representation.
func newTaskResponse(task *domain.Task, creator *domain.User) TaskResponse {
	return TaskResponse{
		ID:           task.ID,
		Title:        task.Title,
		Description:  task.Description,
		AssignedUser: task.AssigneeID,
		IsCompleted:  task.IsCompleted,
		IsDeleted:    task.IsDeleted,
		CreatedBy: CreatedByInfo{
			FirstName: creator.FirstName,
			LastName:  creator.LastName,
			Email:     creator.Email,
			Username:  creator.Username,
		},
		StartDate: task.StartDate.Format(time.DateOnly),
		DueDate:   task.DueDate.Format(time.DateOnly),
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	}
}
