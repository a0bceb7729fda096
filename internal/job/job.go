// Package job provides the background job infrastructure: a persistent,
// worker-pool based runner with bounded retry, the notification and
// maintenance jobs dispatched by the services, and an interval scheduler
// for periodic work.
package job

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current state of a job.
type JobStatus string

// Possible job status values
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Job kind identifiers. These are the names services enqueue by and the
// values persisted in the jobs table.
const (
	KindTaskCreated              = "task_created"
	KindTaskReminder             = "task_reminder"
	KindCleanupOldCompletedTasks = "cleanup_old_completed_tasks"
	KindDailyTaskSummary         = "daily_task_summary"
	KindCheckOverdueTasks        = "check_overdue_tasks"
)

// Job represents a unit of background work to be processed.
type Job interface {
	// ID returns the job's unique identifier
	ID() uuid.UUID

	// Kind returns the job kind identifier
	Kind() string

	// Payload returns the job data as a byte slice
	Payload() []byte

	// Execute runs the job logic
	Execute(ctx context.Context) error
}

// JobRecord is the persisted form of a job. Recovered records are turned
// back into executable Jobs through a JobFactory.
type JobRecord struct {
	ID           uuid.UUID
	Kind         string
	Payload      []byte
	Status       JobStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// JobFactory builds an executable Job of the given kind from its persisted
// payload. The Dispatcher is the canonical implementation.
type JobFactory interface {
	CreateJob(kind string, payload []byte) (Job, error)
}

// JobStore defines the interface for persisting jobs.
type JobStore interface {
	// SaveJob persists a new job with pending status.
	SaveJob(ctx context.Context, job Job) error

	// UpdateJobStatus updates the status of a job. Unknown job IDs are a no-op.
	UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status JobStatus, errorMsg string) error

	// GetPendingJobs retrieves all jobs with "pending" status.
	GetPendingJobs(ctx context.Context) ([]*JobRecord, error)

	// GetProcessingJobs retrieves jobs with "processing" status.
	// If olderThan is non-zero, only returns jobs that have been in this state
	// longer than the specified duration.
	GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]*JobRecord, error)
}
