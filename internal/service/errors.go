// Package service implements the application's use cases on top of the
// store interfaces: account registration and the task lifecycle with its
// best-effort broadcast side channel.
package service

import "errors"

// Common service errors.
var (
	// ErrTaskNotOwned is returned when a user other than the creator tries
	// to update or delete a task. The assignee has no mutation rights.
	ErrTaskNotOwned = errors.New("task can only be modified by its creator")
)
