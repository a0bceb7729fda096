package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/mail"
)

// Common errors
var (
	ErrNilTaskReader   = errors.New("task reader cannot be nil")
	ErrNilUserReader   = errors.New("user reader cannot be nil")
	ErrNilMailer       = errors.New("mailer cannot be nil")
	ErrNilLogger       = errors.New("logger cannot be nil")
	ErrEmptyTaskID     = errors.New("task ID cannot be empty")
	ErrUnknownJobKind  = errors.New("unknown job kind")
	ErrInvalidPayload  = errors.New("invalid job payload")
)

// TaskReader is the subset of the task service the notification jobs need.
type TaskReader interface {
	// GetTask retrieves a task by its ID regardless of cache state.
	GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)
}

// UserReader resolves the users referenced by tasks.
type UserReader interface {
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// TaskPayload is the persisted payload for per-task jobs.
type TaskPayload struct {
	TaskID uuid.UUID `json:"task_id"`
}

// TaskCreatedJob sends the "task created" email to the creator and, when
// set, the assignee.
type TaskCreatedJob struct {
	id      uuid.UUID
	taskID  uuid.UUID
	payload []byte
	tasks   TaskReader
	users   UserReader
	mailer  mail.Mailer
	logger  *slog.Logger
}

// NewTaskCreatedJob creates a new task-created notification job.
func NewTaskCreatedJob(
	taskID uuid.UUID,
	payload []byte,
	tasks TaskReader,
	users UserReader,
	mailer mail.Mailer,
	logger *slog.Logger,
) (*TaskCreatedJob, error) {
	if tasks == nil {
		return nil, ErrNilTaskReader
	}
	if users == nil {
		return nil, ErrNilUserReader
	}
	if mailer == nil {
		return nil, ErrNilMailer
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if taskID == uuid.Nil {
		return nil, ErrEmptyTaskID
	}

	return &TaskCreatedJob{
		id:      uuid.New(),
		taskID:  taskID,
		payload: payload,
		tasks:   tasks,
		users:   users,
		mailer:  mailer,
		logger:  logger,
	}, nil
}

// ID returns the job's unique identifier
func (j *TaskCreatedJob) ID() uuid.UUID { return j.id }

// Kind returns the job kind identifier
func (j *TaskCreatedJob) Kind() string { return KindTaskCreated }

// Payload returns the job data as a byte slice
func (j *TaskCreatedJob) Payload() []byte { return j.payload }

// Execute loads the task, composes the notification email and sends it to
// the creator and assignee. A task with no reachable recipients is logged
// and skipped, not an error.
func (j *TaskCreatedJob) Execute(ctx context.Context) error {
	task, err := j.tasks.GetTask(ctx, j.taskID)
	if err != nil {
		return fmt.Errorf("failed to load task %s: %w", j.taskID, err)
	}

	recipients, creator, assignee, err := j.resolveRecipients(ctx, task)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		j.logger.Warn("no email recipients for task", "task_id", j.taskID)
		return nil
	}

	dueDate := "Not set"
	if task.DueDate != nil {
		dueDate = task.DueDate.Format("2006-01-02 15:04")
	}
	assigneeName := "Unassigned"
	if assignee != nil {
		assigneeName = assignee.Name()
	}

	msg := mail.Message{
		To:      recipients,
		Subject: fmt.Sprintf("New Task Created: %s", task.Title),
		Body: fmt.Sprintf(
			"A new task has been created:\n\n"+
				"Title: %s\n"+
				"Description: %s\n"+
				"Priority: %s\n"+
				"Due Date: %s\n"+
				"Created By: %s\n"+
				"Assigned To: %s\n\n"+
				"Status: %s\n\n"+
				"Please log in to view more details.\n",
			task.Title,
			task.Description,
			task.Priority.Label(),
			dueDate,
			creator.Name(),
			assigneeName,
			task.Status,
		),
	}

	if err := j.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send task created notification: %w", err)
	}

	j.logger.Info("task creation notification sent",
		"task_id", j.taskID,
		"recipient_count", len(recipients))
	return nil
}

// resolveRecipients looks up the creator and assignee, returning the
// deduplicated list of non-empty email addresses.
func (j *TaskCreatedJob) resolveRecipients(
	ctx context.Context,
	task *domain.Task,
) ([]string, *domain.User, *domain.User, error) {
	creator, err := j.users.GetUser(ctx, task.CreatedBy)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load task creator: %w", err)
	}

	seen := map[string]bool{}
	var recipients []string
	if creator.Email != "" {
		seen[creator.Email] = true
		recipients = append(recipients, creator.Email)
	}

	var assignee *domain.User
	if task.AssignedTo != nil {
		assignee, err = j.users.GetUser(ctx, *task.AssignedTo)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load task assignee: %w", err)
		}
		if assignee.Email != "" && !seen[assignee.Email] {
			recipients = append(recipients, assignee.Email)
		}
	}

	return recipients, creator, assignee, nil
}

// Reminder urgency labels.
const (
	urgencyOverdue = "OVERDUE"
	urgencyDueSoon = "DUE SOON"
)

// TaskReminderJob sends a reminder email for a task approaching, or past,
// its due date.
type TaskReminderJob struct {
	id      uuid.UUID
	taskID  uuid.UUID
	payload []byte
	tasks   TaskReader
	users   UserReader
	mailer  mail.Mailer
	logger  *slog.Logger
	now     func() time.Time
}

// NewTaskReminderJob creates a new task reminder job.
func NewTaskReminderJob(
	taskID uuid.UUID,
	payload []byte,
	tasks TaskReader,
	users UserReader,
	mailer mail.Mailer,
	logger *slog.Logger,
) (*TaskReminderJob, error) {
	if tasks == nil {
		return nil, ErrNilTaskReader
	}
	if users == nil {
		return nil, ErrNilUserReader
	}
	if mailer == nil {
		return nil, ErrNilMailer
	}
	if logger == nil {
		return nil, ErrNilLogger
	}
	if taskID == uuid.Nil {
		return nil, ErrEmptyTaskID
	}

	return &TaskReminderJob{
		id:      uuid.New(),
		taskID:  taskID,
		payload: payload,
		tasks:   tasks,
		users:   users,
		mailer:  mailer,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// ID returns the job's unique identifier
func (j *TaskReminderJob) ID() uuid.UUID { return j.id }

// Kind returns the job kind identifier
func (j *TaskReminderJob) Kind() string { return KindTaskReminder }

// Payload returns the job data as a byte slice
func (j *TaskReminderJob) Payload() []byte { return j.payload }

// Execute sends a reminder for the task if it is still open and due within
// 24 hours or already overdue. Completed, deleted and far-future tasks are
// skipped without error.
func (j *TaskReminderJob) Execute(ctx context.Context) error {
	task, err := j.tasks.GetTask(ctx, j.taskID)
	if err != nil {
		return fmt.Errorf("failed to load task %s: %w", j.taskID, err)
	}

	if task.IsDeleted || task.Status == domain.TaskStatusCompleted {
		j.logger.Debug("skipping reminder for inactive or completed task", "task_id", j.taskID)
		return nil
	}

	urgency, ok := j.classify(task)
	if !ok {
		j.logger.Debug("skipping reminder, task not urgent", "task_id", j.taskID)
		return nil
	}

	recipient, err := j.resolveRecipient(ctx, task)
	if err != nil {
		return err
	}
	if recipient == "" {
		j.logger.Warn("no reminder recipient for task", "task_id", j.taskID)
		return nil
	}

	msg := mail.Message{
		To:      []string{recipient},
		Subject: fmt.Sprintf("Task Reminder: %s - %s", task.Title, urgency),
		Body: fmt.Sprintf(
			"This is a reminder about your task:\n\n"+
				"Title: %s\n"+
				"Description: %s\n"+
				"Priority: %s\n"+
				"Due Date: %s\n"+
				"Status: %s\n\n"+
				"Please complete this task as soon as possible.\n",
			task.Title,
			task.Description,
			task.Priority.Label(),
			task.DueDate.Format("2006-01-02 15:04"),
			urgency,
		),
	}

	if err := j.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("failed to send task reminder: %w", err)
	}

	j.logger.Info("task reminder sent",
		"task_id", j.taskID,
		"urgency", urgency)
	return nil
}

// classify returns the reminder urgency label for the task and whether a
// reminder should be sent at all. Tasks without a due date or due more than
// 24 hours out are not urgent.
func (j *TaskReminderJob) classify(task *domain.Task) (string, bool) {
	if task.DueDate == nil {
		return "", false
	}

	hoursUntilDue := task.DueDate.Sub(j.now()).Hours()
	switch {
	case hoursUntilDue < 0:
		return urgencyOverdue, true
	case hoursUntilDue < 24:
		return urgencyDueSoon, true
	default:
		return "", false
	}
}

// resolveRecipient prefers the assignee's email and falls back to the creator.
func (j *TaskReminderJob) resolveRecipient(ctx context.Context, task *domain.Task) (string, error) {
	if task.AssignedTo != nil {
		assignee, err := j.users.GetUser(ctx, *task.AssignedTo)
		if err != nil {
			return "", fmt.Errorf("failed to load task assignee: %w", err)
		}
		if assignee.Email != "" {
			return assignee.Email, nil
		}
	}

	creator, err := j.users.GetUser(ctx, task.CreatedBy)
	if err != nil {
		return "", fmt.Errorf("failed to load task creator: %w", err)
	}
	return creator.Email, nil
}
