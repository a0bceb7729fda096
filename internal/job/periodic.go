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

var (
	ErrNilArchiver      = errors.New("archiver cannot be nil")
	ErrNilUserLister    = errors.New("user lister cannot be nil")
	ErrNilStatsProvider = errors.New("stats provider cannot be nil")
	ErrNilOverdueSource = errors.New("overdue source cannot be nil")
	ErrNilEnqueuer      = errors.New("enqueuer cannot be nil")
)

// Archiver sweeps old completed tasks into the archive.
type Archiver interface {
	// ArchiveOldCompletedTasks archives completed tasks older than the
	// threshold and returns how many it archived.
	ArchiveOldCompletedTasks(ctx context.Context, thresholdDays int) (int, error)
}

// UserLister enumerates users for summary delivery.
type UserLister interface {
	ListUsers(ctx context.Context) ([]*domain.User, error)
}

// StatsProvider computes the per-owner task statistics.
type StatsProvider interface {
	Statistics(ctx context.Context, ownerID uuid.UUID) (domain.TaskStatistics, error)
}

// OverdueSource lists the currently overdue tasks.
type OverdueSource interface {
	OverdueTasks(ctx context.Context) ([]*domain.Task, error)
}

// Enqueuer submits follow-up jobs. The Dispatcher implements it.
type Enqueuer interface {
	Enqueue(ctx context.Context, kind string, payload any) error
}

// CleanupJob archives completed tasks older than the configured threshold.
// Scheduled daily.
type CleanupJob struct {
	id            uuid.UUID
	archiver      Archiver
	thresholdDays int
	logger        *slog.Logger
}

// NewCleanupJob creates a new cleanup job.
func NewCleanupJob(archiver Archiver, thresholdDays int, logger *slog.Logger) (*CleanupJob, error) {
	if archiver == nil {
		return nil, ErrNilArchiver
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &CleanupJob{
		id:            uuid.New(),
		archiver:      archiver,
		thresholdDays: thresholdDays,
		logger:        logger,
	}, nil
}

// ID returns the job's unique identifier
func (j *CleanupJob) ID() uuid.UUID { return j.id }

// Kind returns the job kind identifier
func (j *CleanupJob) Kind() string { return KindCleanupOldCompletedTasks }

// Payload returns the job data as a byte slice
func (j *CleanupJob) Payload() []byte { return []byte("{}") }

// Execute runs the archive sweep.
func (j *CleanupJob) Execute(ctx context.Context) error {
	j.logger.Info("starting cleanup of old completed tasks",
		"threshold_days", j.thresholdDays)

	archived, err := j.archiver.ArchiveOldCompletedTasks(ctx, j.thresholdDays)
	if err != nil {
		return fmt.Errorf("cleanup of old completed tasks failed: %w", err)
	}

	j.logger.Info("cleanup complete", "archived_count", archived)
	return nil
}

// DailySummaryJob emails every active user their task statistics.
// Users without email or without tasks are skipped; per-user send failures
// are logged and do not fail the batch.
type DailySummaryJob struct {
	id     uuid.UUID
	users  UserLister
	stats  StatsProvider
	mailer mail.Mailer
	logger *slog.Logger
	now    func() time.Time
}

// NewDailySummaryJob creates a new daily summary job.
func NewDailySummaryJob(
	users UserLister,
	stats StatsProvider,
	mailer mail.Mailer,
	logger *slog.Logger,
) (*DailySummaryJob, error) {
	if users == nil {
		return nil, ErrNilUserLister
	}
	if stats == nil {
		return nil, ErrNilStatsProvider
	}
	if mailer == nil {
		return nil, ErrNilMailer
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &DailySummaryJob{
		id:     uuid.New(),
		users:  users,
		stats:  stats,
		mailer: mailer,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

// ID returns the job's unique identifier
func (j *DailySummaryJob) ID() uuid.UUID { return j.id }

// Kind returns the job kind identifier
func (j *DailySummaryJob) Kind() string { return KindDailyTaskSummary }

// Payload returns the job data as a byte slice
func (j *DailySummaryJob) Payload() []byte { return []byte("{}") }

// Execute sends the summaries.
func (j *DailySummaryJob) Execute(ctx context.Context) error {
	users, err := j.users.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list users for daily summary: %w", err)
	}

	sent := 0
	for _, user := range users {
		if user.Email == "" {
			continue
		}

		stats, err := j.stats.Statistics(ctx, user.ID)
		if err != nil {
			j.logger.Error("failed to compute statistics for daily summary",
				"user_id", user.ID,
				"error", err)
			continue
		}

		// Only send if user has active tasks
		if stats.Total == 0 {
			continue
		}

		msg := mail.Message{
			To:      []string{user.Email},
			Subject: fmt.Sprintf("Daily Task Summary - %s", j.now().Format("2006-01-02")),
			Body: fmt.Sprintf(
				"Hello %s,\n\n"+
					"Here's your daily task summary:\n\n"+
					"Total Tasks: %d\n"+
					"Pending: %d\n"+
					"In Progress: %d\n"+
					"Completed: %d\n"+
					"Overdue: %d\n"+
					"High Priority: %d\n\n"+
					"Have a productive day!\n",
				user.Name(),
				stats.Total,
				stats.Pending,
				stats.InProgress,
				stats.Completed,
				stats.Overdue,
				stats.HighPriority,
			),
		}

		if err := j.mailer.Send(ctx, msg); err != nil {
			j.logger.Error("failed to send daily summary",
				"user_id", user.ID,
				"error", err)
			continue
		}

		sent++
	}

	j.logger.Info("daily summary sent", "emails_sent", sent)
	return nil
}

// OverdueCheckJob finds overdue tasks and enqueues a reminder for each.
// Scheduled hourly.
type OverdueCheckJob struct {
	id       uuid.UUID
	overdue  OverdueSource
	enqueuer Enqueuer
	logger   *slog.Logger
}

// NewOverdueCheckJob creates a new overdue check job.
func NewOverdueCheckJob(
	overdue OverdueSource,
	enqueuer Enqueuer,
	logger *slog.Logger,
) (*OverdueCheckJob, error) {
	if overdue == nil {
		return nil, ErrNilOverdueSource
	}
	if enqueuer == nil {
		return nil, ErrNilEnqueuer
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &OverdueCheckJob{
		id:       uuid.New(),
		overdue:  overdue,
		enqueuer: enqueuer,
		logger:   logger,
	}, nil
}

// ID returns the job's unique identifier
func (j *OverdueCheckJob) ID() uuid.UUID { return j.id }

// Kind returns the job kind identifier
func (j *OverdueCheckJob) Kind() string { return KindCheckOverdueTasks }

// Payload returns the job data as a byte slice
func (j *OverdueCheckJob) Payload() []byte { return []byte("{}") }

// Execute triggers a reminder job per overdue task. Individual enqueue
// failures are logged and the rest of the batch continues.
func (j *OverdueCheckJob) Execute(ctx context.Context) error {
	tasks, err := j.overdue.OverdueTasks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list overdue tasks: %w", err)
	}

	triggered := 0
	for _, task := range tasks {
		if err := j.enqueuer.Enqueue(ctx, KindTaskReminder, TaskPayload{TaskID: task.ID}); err != nil {
			j.logger.Error("failed to enqueue overdue reminder",
				"task_id", task.ID,
				"error", err)
			continue
		}
		triggered++
	}

	j.logger.Info("triggered overdue task reminders", "count", triggered)
	return nil
}
