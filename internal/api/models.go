package api

import (
	"time"

	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/service"
)

// CreateTaskRequest is the request body for creating a task.
type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description"`
	Status      string     `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	Priority    string     `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *time.Time `json:"due_date"`
	CreatedBy   string     `json:"created_by" validate:"required,uuid"`
	AssignedTo  *string    `json:"assigned_to" validate:"omitempty,uuid"`
}

// UpdateTaskRequest is the request body for a partial task update. Absent
// fields leave the stored value unchanged.
type UpdateTaskRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description"`
	Status      *string    `json:"status" validate:"omitempty,oneof=pending in_progress completed"`
	Priority    *string    `json:"priority" validate:"omitempty,oneof=low medium high"`
	DueDate     *time.Time `json:"due_date"`
	AssignedTo  *string    `json:"assigned_to" validate:"omitempty,uuid"`
}

// BulkAssignRequest is the request body for assigning several tasks at once.
type BulkAssignRequest struct {
	TaskIDs    []string `json:"task_ids" validate:"required,min=1,dive,uuid"`
	AssignedTo string   `json:"assigned_to" validate:"required,uuid"`
}

// TaskResponse is the wire representation of a task.
type TaskResponse struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	CompletedAt *time.Time `json:"completed_at"`
	CreatedBy   string     `json:"created_by"`
	AssignedTo  *string    `json:"assigned_to"`
	IsOverdue   bool       `json:"is_overdue"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TaskListResponse wraps a list of tasks with its count.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Count int            `json:"count"`
}

// UserResponse is the wire representation of a user.
type UserResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateUserRequest is the request body for creating a user.
type CreateUserRequest struct {
	Email       string `json:"email" validate:"required,email"`
	DisplayName string `json:"display_name" validate:"max=150"`
}

// CompletedTaskResponse augments a task with completion-age fields.
type CompletedTaskResponse struct {
	TaskResponse
	DaysSinceCompletion *int `json:"days_since_completion"`
	WasOverdue          bool `json:"was_overdue"`
	IsArchivable        bool `json:"is_archivable"`
}

func taskToResponse(task *domain.Task, now time.Time) TaskResponse {
	resp := TaskResponse{
		ID:          task.ID.String(),
		Title:       task.Title,
		Description: task.Description,
		Status:      string(task.Status),
		Priority:    string(task.Priority),
		DueDate:     task.DueDate,
		CompletedAt: task.CompletedAt,
		CreatedBy:   task.CreatedBy.String(),
		IsOverdue:   task.IsOverdue(now),
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}
	if task.AssignedTo != nil {
		assignee := task.AssignedTo.String()
		resp.AssignedTo = &assignee
	}
	return resp
}

func tasksToListResponse(tasks []*domain.Task, now time.Time) TaskListResponse {
	resp := TaskListResponse{
		Tasks: make([]TaskResponse, 0, len(tasks)),
		Count: len(tasks),
	}
	for _, task := range tasks {
		resp.Tasks = append(resp.Tasks, taskToResponse(task, now))
	}
	return resp
}

func userToResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:          user.ID.String(),
		Email:       user.Email,
		DisplayName: user.DisplayName,
		CreatedAt:   user.CreatedAt,
	}
}

func completedToResponse(ct *service.CompletedTask, now time.Time, thresholdDays int) CompletedTaskResponse {
	return CompletedTaskResponse{
		TaskResponse:        taskToResponse(ct.Task, now),
		DaysSinceCompletion: ct.DaysSinceCompletion(now),
		WasOverdue:          ct.WasOverdue(),
		IsArchivable:        ct.IsArchivable(now, thresholdDays),
	}
}
