package service

import (
	"errors"
	"fmt"
)

// Service-level business rule errors.
var (
	// ErrTaskAlreadyCompleted is returned when completing a task that is
	// already in the completed status. The rejection is deliberate rather
	// than a silent no-op so callers can distinguish a repeat request.
	ErrTaskAlreadyCompleted = errors.New("task is already completed")

	// ErrTaskNotArchivable is returned when archiving a completed task that
	// has not yet aged past the archive threshold.
	ErrTaskNotArchivable = errors.New("task must be completed for the full archive threshold before archiving")
)

// TaskServiceError is a custom error type for task service errors. It wraps
// unexpected failures with the operation that produced them; business rule
// sentinels are returned bare so callers can match them with errors.Is.
type TaskServiceError struct {
	Operation string
	Message   string
	Err       error
}

// Error implements the error interface for TaskServiceError.
func (e *TaskServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("task service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("task service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *TaskServiceError) Unwrap() error {
	return e.Err
}

// NewTaskServiceError creates a new TaskServiceError.
func NewTaskServiceError(operation, message string, err error) *TaskServiceError {
	return &TaskServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
