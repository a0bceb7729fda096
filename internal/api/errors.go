package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/service"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, store.ErrUserNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, service.ErrTaskAlreadyCompleted),
		errors.Is(err, service.ErrTaskNotArchivable),
		errors.Is(err, store.ErrEmailExists),
		errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict

	// Bad request errors
	case isValidationError(err),
		errors.Is(err, store.ErrInvalidEntity):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, store.ErrTaskNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrUserNotFound):
		return "User not found"

	case errors.Is(err, service.ErrTaskAlreadyCompleted):
		return "Task is already completed"

	case errors.Is(err, service.ErrTaskNotArchivable):
		return "Task is not old enough to archive"

	case errors.Is(err, store.ErrEmailExists):
		return "Email already exists"

	case isValidationError(err):
		// Validation errors carry field-level messages that are safe to show.
		var validationErr *domain.ValidationError
		if errors.As(err, &validationErr) {
			return validationErr.Field + ": " + validationErr.Message
		}
		return "Invalid request data"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError converts a struct-tag validation error into a
// user-friendly message without echoing internal type names back to the
// client.
func SanitizeValidationError(err error) string {
	if err == nil {
		return "Invalid request data"
	}
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fieldErr := validationErrs[0]
		field := strings.ToLower(fieldErr.Field())
		switch fieldErr.Tag() {
		case "required":
			return field + " is required"
		case "email":
			return field + " must be a valid email address"
		case "uuid":
			return field + " must be a valid UUID"
		case "oneof":
			return field + " must be one of: " + fieldErr.Param()
		case "min":
			return field + " is too short"
		case "max":
			return field + " is too long"
		default:
			return field + " is invalid"
		}
	}
	return "Invalid request data"
}

// isValidationError recognizes both the ErrValidation sentinel and the
// structured *domain.ValidationError, which may wrap a more specific
// sentinel instead of ErrValidation itself.
func isValidationError(err error) bool {
	var validationErr *domain.ValidationError
	return errors.Is(err, domain.ErrValidation) || errors.As(err, &validationErr)
}
