package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Task validation errors.
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = fmt.Errorf("%w: task ID cannot be empty", ErrValidation)

	// ErrTaskTitleEmpty is returned when a task has no title.
	ErrTaskTitleEmpty = fmt.Errorf("%w: title cannot be empty", ErrValidation)

	// ErrTaskAssigneeEmpty is returned when a task has no assigned user.
	ErrTaskAssigneeEmpty = fmt.Errorf("%w: assigned user is required", ErrValidation)

	// ErrTaskCreatorEmpty is returned when a task has no creator.
	ErrTaskCreatorEmpty = fmt.Errorf("%w: creator is required", ErrValidation)

	// ErrTaskDueDateZero is returned when a task has no due date.
	ErrTaskDueDateZero = fmt.Errorf("%w: due date is required", ErrValidation)

	// ErrDateNotFuture is returned when a supplied start date lies in the
	// past or a supplied due date does not lie strictly in the future.
	ErrDateNotFuture = fmt.Errorf("%w: start date and due date must be future dates", ErrValidation)

	// ErrDueBeforeStart is returned when the due date would precede the
	// start date.
	ErrDueBeforeStart = fmt.Errorf("%w: due date cannot be earlier than start date", ErrValidation)
)

// Task represents a unit of work created by one user and assigned to
// another. Deletion is a soft toggle: flipping IsDeleted back restores the
// task. Only the creator may mutate a task; CreatedBy is immutable after
// creation.
type Task struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AssigneeID  uuid.UUID `json:"assigned_user"`
	CreatedBy   uuid.UUID `json:"created_by"`
	StartDate   time.Time `json:"start_date"`
	DueDate     time.Time `json:"due_date"`
	IsCompleted bool      `json:"is_completed"`
	IsDeleted   bool      `json:"is_deleted"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskUpdate carries a partial set of task fields for an update. Nil fields
// are left unchanged. Date fields interact with the stored task: see
// ApplyUpdate.
type TaskUpdate struct {
	Title       *string
	Description *string
	AssigneeID  *uuid.UUID
	IsCompleted *bool
	StartDate   *time.Time
	DueDate     *time.Time
}

// NormalizeDate truncates a timestamp to its calendar date in UTC. Task
// start and due dates carry date precision only.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current calendar date in UTC.
func Today() time.Time {
	return NormalizeDate(time.Now())
}

// NewTask creates a new Task owned by creatorID. A nil startDate defaults to
// the creation date; the default is applied after validation, so only
// explicitly supplied dates are checked against the calendar.
func NewTask(
	creatorID, assigneeID uuid.UUID,
	title, description string,
	startDate *time.Time,
	dueDate time.Time,
) (*Task, error) {
	if err := validateDates(startDate, &dueDate, nil, nil); err != nil {
		return nil, err
	}

	start := Today()
	if startDate != nil {
		start = NormalizeDate(*startDate)
	}

	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		Title:       title,
		Description: description,
		AssigneeID:  assigneeID,
		CreatedBy:   creatorID,
		StartDate:   start,
		DueDate:     NormalizeDate(dueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}

	if t.Title == "" {
		return ErrTaskTitleEmpty
	}

	if t.AssigneeID == uuid.Nil {
		return ErrTaskAssigneeEmpty
	}

	if t.CreatedBy == uuid.Nil {
		return ErrTaskCreatorEmpty
	}

	if t.DueDate.IsZero() {
		return ErrTaskDueDateZero
	}

	return nil
}

// ApplyUpdate validates the partial update against the stored task and, on
// success, applies it and bumps UpdatedAt. The task is left untouched when
// validation fails.
//
// When only one of the two dates is supplied, it is checked strictly against
// the stored value of the other date; when both are supplied, equality is
// allowed. The asymmetry is a deliberate policy carried by the task
// lifecycle contract.
func (t *Task) ApplyUpdate(update TaskUpdate) error {
	if update.Title != nil && *update.Title == "" {
		return ErrTaskTitleEmpty
	}
	if update.AssigneeID != nil && *update.AssigneeID == uuid.Nil {
		return ErrTaskAssigneeEmpty
	}

	if err := validateDates(update.StartDate, update.DueDate, &t.StartDate, &t.DueDate); err != nil {
		return err
	}

	if update.Title != nil {
		t.Title = *update.Title
	}
	if update.Description != nil {
		t.Description = *update.Description
	}
	if update.AssigneeID != nil {
		t.AssigneeID = *update.AssigneeID
	}
	if update.IsCompleted != nil {
		t.IsCompleted = *update.IsCompleted
	}
	if update.StartDate != nil {
		t.StartDate = NormalizeDate(*update.StartDate)
	}
	if update.DueDate != nil {
		t.DueDate = NormalizeDate(*update.DueDate)
	}

	t.UpdatedAt = time.Now().UTC()
	return nil
}

// ToggleDeleted flips the soft-delete flag and reports the resulting state.
// Invoking it on a deleted task restores the task.
func (t *Task) ToggleDeleted() bool {
	t.IsDeleted = !t.IsDeleted
	t.UpdatedAt = time.Now().UTC()
	return t.IsDeleted
}

// validateDates enforces the calendar invariants shared by create and
// update. storedStart/storedDue are nil at creation time; on update they
// hold the pre-update values used for one-sided checks.
//
// A supplied start date may fall on today; a supplied due date must be
// strictly after today.
func validateDates(newStart, newDue, storedStart, storedDue *time.Time) error {
	today := Today()

	if newStart != nil && NormalizeDate(*newStart).Before(today) {
		return ErrDateNotFuture
	}
	if newDue != nil && !NormalizeDate(*newDue).After(today) {
		return ErrDateNotFuture
	}

	switch {
	case newStart != nil && newDue != nil:
		if NormalizeDate(*newDue).Before(NormalizeDate(*newStart)) {
			return ErrDueBeforeStart
		}
	case newStart != nil && storedDue != nil:
		if !storedDue.After(NormalizeDate(*newStart)) {
			return ErrDueBeforeStart
		}
	case newDue != nil && storedStart != nil:
		if !NormalizeDate(*newDue).After(*storedStart) {
			return ErrDueBeforeStart
		}
	}

	return nil
}
