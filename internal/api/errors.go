package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tasktide/tasktide/internal/domain"
	"github.com/tasktide/tasktide/internal/service"
	"github.com/tasktide/tasktide/internal/service/auth"
	"github.com/tasktide/tasktide/internal/store"
)

// Machine-readable error codes for login failures. Credentials, inactive
// account, and ambiguous identity all surface as 400 but must stay
// distinguishable to the caller.
const (
	CodeInvalidCredentials = "invalid_credentials"
	CodeInactiveAccount    = "inactive_account"
	CodeAmbiguousIdentity  = "ambiguous_identity"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status
// codes based on the error type. This prevents leaking internal error
// types or messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Authentication errors
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid),
		errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return http.StatusUnauthorized

	// Authorization errors
	case errors.Is(err, service.ErrTaskNotOwned),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden

	// Not found errors
	case store.IsNotFoundError(err):
		return http.StatusNotFound

	// Bad request errors: validation failures, login failures, and
	// duplicate registrations all report as 400 on this API.
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, store.ErrInvalidEntity),
		store.IsDuplicateError(err),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInactiveAccount),
		errors.Is(err, auth.ErrAmbiguousIdentity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal
// details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrTokenNotYetValid):
		return "Invalid token"

	case errors.Is(err, auth.ErrInvalidRefreshToken),
		errors.Is(err, auth.ErrExpiredRefreshToken),
		errors.Is(err, auth.ErrWrongTokenType):
		return "Invalid refresh token"

	case errors.Is(err, auth.ErrInvalidCredentials):
		return "Access denied due to invalid credentials"

	case errors.Is(err, auth.ErrInactiveAccount):
		return "User is not active"

	case errors.Is(err, auth.ErrAmbiguousIdentity):
		return "Access denied due to mistaken identity"

	case errors.Is(err, service.ErrTaskNotOwned):
		return "You do not have permission to perform this action"

	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, store.ErrUsernameExists):
		return "User with username already exists"

	case errors.Is(err, store.ErrEmailExists):
		return "User with email already exists"

	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, store.ErrInvalidEntity):
		// Domain validation messages are written for users; pass them on.
		return err.Error()

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Validator errors look like:
	// "Key: 'LoginRequest.Email' Error:Field validation for 'Email' failed on the 'required' tag"
	if strings.Contains(errMsg, "Field validation") {
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "email":
		return "invalid email format"
	case "min":
		return "too short"
	case "max":
		return "too long"
	case "eqfield":
		return "fields do not match"
	case "datetime":
		return "must use the 2006-01-02 form"
	case "url":
		return "invalid URL"
	default:
		return "validation failed"
	}
}

// ErrorCode returns the machine-readable code for login failures, or "".
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return CodeInvalidCredentials
	case errors.Is(err, auth.ErrInactiveAccount):
		return CodeInactiveAccount
	case errors.Is(err, auth.ErrAmbiguousIdentity):
		return CodeAmbiguousIdentity
	default:
		return ""
	}
}

// HandleAPIError writes the response for err using the shared mapping. An
// empty userMessage falls back to the safe message for the error type.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, userMessage string) {
	status := MapErrorToStatusCode(err)
	if userMessage == "" {
		userMessage = GetSafeErrorMessage(err)
	}
	RespondWithErrorAndLog(w, r, status, userMessage, err)
}
