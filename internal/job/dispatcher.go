package job

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskboard-api/internal/mail"
)

// UserDirectory combines the user lookup and listing capabilities the jobs
// need.
type UserDirectory interface {
	UserReader
	UserLister
}

// Deps bundles the collaborators the concrete jobs need. The interfaces are
// satisfied structurally by the service layer and the mail package, which
// keeps this package free of upward imports.
type Deps struct {
	Tasks    TaskReader
	Users    UserDirectory
	Stats    StatsProvider
	Overdue  OverdueSource
	Archiver Archiver
	Mailer   mail.Mailer
}

// Dispatcher builds and submits jobs by kind. It is the Notifier the
// services enqueue through and the JobFactory the runner recovers through.
type Dispatcher struct {
	runner        *Runner
	deps          Deps
	thresholdDays int
	logger        *slog.Logger
}

// NewDispatcher creates a dispatcher submitting to the given runner and
// registers it as the runner's recovery factory. thresholdDays configures
// the cleanup job's archive threshold.
func NewDispatcher(runner *Runner, deps Deps, thresholdDays int, logger *slog.Logger) (*Dispatcher, error) {
	if runner == nil {
		return nil, fmt.Errorf("runner cannot be nil")
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	d := &Dispatcher{
		runner:        runner,
		deps:          deps,
		thresholdDays: thresholdDays,
		logger:        logger.With(slog.String("component", "job_dispatcher")),
	}
	runner.SetFactory(d)
	return d, nil
}

// Ensure Dispatcher implements the JobFactory and Enqueuer interfaces
var (
	_ JobFactory = (*Dispatcher)(nil)
	_ Enqueuer   = (*Dispatcher)(nil)
)

// Enqueue marshals the payload, builds the job for the kind and submits it
// to the runner.
func (d *Dispatcher) Enqueue(ctx context.Context, kind string, payload any) error {
	raw := []byte("{}")
	if payload != nil {
		var err error
		raw, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload for %s job: %w", kind, err)
		}
	}

	job, err := d.CreateJob(kind, raw)
	if err != nil {
		return err
	}

	if err := d.runner.Submit(ctx, job); err != nil {
		return fmt.Errorf("failed to submit %s job: %w", kind, err)
	}

	d.logger.Debug("job enqueued", "job_kind", kind, "job_id", job.ID())
	return nil
}

// CreateJob implements JobFactory. It is also used by the runner to rebuild
// executable jobs from persisted records during recovery.
func (d *Dispatcher) CreateJob(kind string, payload []byte) (Job, error) {
	switch kind {
	case KindTaskCreated:
		var p TaskPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return NewTaskCreatedJob(p.TaskID, payload, d.deps.Tasks, d.deps.Users, d.deps.Mailer, d.logger)

	case KindTaskReminder:
		var p TaskPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return NewTaskReminderJob(p.TaskID, payload, d.deps.Tasks, d.deps.Users, d.deps.Mailer, d.logger)

	case KindCleanupOldCompletedTasks:
		return NewCleanupJob(d.deps.Archiver, d.thresholdDays, d.logger)

	case KindDailyTaskSummary:
		return NewDailySummaryJob(d.deps.Users, d.deps.Stats, d.deps.Mailer, d.logger)

	case KindCheckOverdueTasks:
		return NewOverdueCheckJob(d.deps.Overdue, d, d.logger)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownJobKind, kind)
	}
}
