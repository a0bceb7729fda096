package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

// Valid task statuses.
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
)

// IsValid reports whether the status is one of the recognized values.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusPending, TaskStatusInProgress, TaskStatusCompleted:
		return true
	}
	return false
}

// TaskPriority represents the priority level of a task.
type TaskPriority string

// Valid task priorities.
const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
)

// IsValid reports whether the priority is one of the recognized values.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	}
	return false
}

// Label returns the human-readable form of the priority.
func (p TaskPriority) Label() string {
	switch p {
	case TaskPriorityLow:
		return "Low"
	case TaskPriorityMedium:
		return "Medium"
	case TaskPriorityHigh:
		return "High"
	}
	return string(p)
}

// Task-specific validation errors
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = errors.New("task ID cannot be empty")

	// ErrTaskTitleEmpty is returned when a task's title is empty.
	ErrTaskTitleEmpty = errors.New("task title cannot be empty")

	// ErrTaskCreatorEmpty is returned when a task's creator ID is empty or nil.
	ErrTaskCreatorEmpty = errors.New("task creator ID cannot be empty")

	// ErrTaskDueDatePast is returned when a new task's due date is in the past.
	ErrTaskDueDatePast = errors.New("due date cannot be in the past for new tasks")
)

// Task represents a single task in the system. The same underlying row
// backs both the general task operations and the completed-task view.
type Task struct {
	ID          uuid.UUID    `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `json:"status"`
	Priority    TaskPriority `json:"priority"`
	DueDate     *time.Time   `json:"due_date,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty"`
	CreatedBy   uuid.UUID    `json:"created_by"`
	AssignedTo  *uuid.UUID   `json:"assigned_to,omitempty"`
	IsDeleted   bool         `json:"is_deleted"`
	DeletedAt   *time.Time   `json:"deleted_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// NewTaskParams holds the optional fields accepted when creating a task.
// Zero values fall back to the documented defaults (medium priority,
// pending status, no due date, unassigned).
type NewTaskParams struct {
	Description string
	Priority    TaskPriority
	Status      TaskStatus
	DueDate     *time.Time
	AssignedTo  *uuid.UUID
}

// NewTask creates a new Task owned by createdBy. It generates the task ID,
// applies defaults and validates the result against now. A due date strictly
// before now is rejected with ErrTaskDueDatePast.
func NewTask(title string, createdBy uuid.UUID, params NewTaskParams, now time.Time) (*Task, error) {
	status := params.Status
	if status == "" {
		status = TaskStatusPending
	}
	priority := params.Priority
	if priority == "" {
		priority = TaskPriorityMedium
	}

	task := &Task{
		ID:          uuid.New(),
		Title:       title,
		Description: params.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     params.DueDate,
		CreatedBy:   createdBy,
		AssignedTo:  params.AssignedTo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if task.DueDate != nil && task.DueDate.Before(now) {
		return nil, NewValidationError("due_date", "cannot be in the past for new tasks", ErrTaskDueDatePast)
	}

	// A task may be created directly in the completed state; the
	// completion timestamp is stamped the same way a later transition
	// would stamp it.
	if task.Status == TaskStatusCompleted {
		task.CompletedAt = &now
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

	if t.CreatedBy == uuid.Nil {
		return ErrTaskCreatorEmpty
	}

	if !t.Status.IsValid() {
		return ErrInvalidStatus
	}

	if !t.Priority.IsValid() {
		return ErrInvalidPriority
	}

	return nil
}

// MarkComplete transitions the task to the completed status and stamps the
// completion time. CompletedAt is only set on the first transition; a task
// completed, reopened and completed again keeps its original timestamp.
func (t *Task) MarkComplete(now time.Time) {
	t.Status = TaskStatusCompleted
	if t.CompletedAt == nil {
		t.CompletedAt = &now
	}
	t.UpdatedAt = now
}

// SoftDelete marks the task inactive without removing the row.
func (t *Task) SoftDelete(now time.Time) {
	t.IsDeleted = true
	t.DeletedAt = &now
	t.UpdatedAt = now
}

// Restore clears the soft-delete flags, making the task active again.
func (t *Task) Restore(now time.Time) {
	t.IsDeleted = false
	t.DeletedAt = nil
	t.UpdatedAt = now
}

// IsOverdue reports whether the task's due date has passed without the task
// being completed. Tasks with no due date are never overdue.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate != nil && t.Status != TaskStatusCompleted {
		return now.After(*t.DueDate)
	}
	return false
}

// DaysUntilDue returns the number of whole days until the due date, or nil
// if the task has no due date. The result is negative for overdue tasks.
func (t *Task) DaysUntilDue(now time.Time) *int {
	if t.DueDate == nil {
		return nil
	}
	days := int(t.DueDate.Sub(now).Hours() / 24)
	return &days
}
