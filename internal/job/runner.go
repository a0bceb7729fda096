package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RunnerConfig holds configuration for the job runner
type RunnerConfig struct {
	// WorkerCount determines how many concurrent workers process jobs
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory job queue
	QueueSize int

	// MaxAttempts bounds how many times a failing job is executed before
	// it is marked failed. Includes the first attempt.
	MaxAttempts int

	// RetryBackoff is the fixed delay between attempts.
	RetryBackoff time.Duration

	// StuckJobAge defines how long a job can be in processing state
	// before it's considered stuck and reset
	StuckJobAge time.Duration

	// StuckJobCheckInterval defines how often to check for stuck jobs
	// If zero, defaults to 5 minutes
	StuckJobCheckInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:           2,
		QueueSize:             100,
		MaxAttempts:           3,
		RetryBackoff:          time.Minute,
		StuckJobAge:           30 * time.Minute,
		StuckJobCheckInterval: 5 * time.Minute,
	}
}

// Runner manages background job processing. Delivery is at-least-once:
// jobs are persisted before queueing, failed attempts are retried with a
// fixed backoff up to MaxAttempts, and exhausted jobs are marked failed.
// Failures never propagate to the code that enqueued the job; they surface
// only through logs and the jobs table.
type Runner struct {
	store      JobStore
	factory    JobFactory
	jobChan    chan Job
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     RunnerConfig
	logger     *slog.Logger
}

// NewRunner creates a new Runner. The factory is used to rebuild executable
// jobs from persisted records during crash recovery; it may be set later
// via SetFactory but must be set before Start.
func NewRunner(store JobStore, config RunnerConfig, logger *slog.Logger) *Runner {
	// Apply default check interval if not specified
	if config.StuckJobCheckInterval == 0 {
		config.StuckJobCheckInterval = 5 * time.Minute
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = 1
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		store:      store,
		jobChan:    make(chan Job, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		wg:         sync.WaitGroup{},
		config:     config,
		logger:     logger,
	}
}

// SetFactory sets the factory used to rebuild recovered jobs.
func (r *Runner) SetFactory(factory JobFactory) {
	r.factory = factory
}

// Submit persists a new job and adds it to the queue.
func (r *Runner) Submit(ctx context.Context, job Job) error {
	// Save job to database first
	if err := r.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	// Then add to in-memory queue
	select {
	case r.jobChan <- job:
		return nil
	default:
		// Queue is full, return error
		return fmt.Errorf("job queue is full, try again later")
	}
}

// Start initializes the worker pool and begins processing jobs
func (r *Runner) Start() error {
	// Recover unfinished jobs from previous runs
	if err := r.Recover(); err != nil {
		return fmt.Errorf("failed to recover jobs: %w", err)
	}

	// Start worker goroutines
	for i := 0; i < r.config.WorkerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	// Start goroutine to check for stuck jobs periodically
	r.wg.Add(1)
	go r.stuckJobMonitor()

	return nil
}

// Stop gracefully shuts down the job runner
func (r *Runner) Stop() {
	r.cancelFunc()
	r.wg.Wait()
	close(r.jobChan)
}

// Recover loads any unfinished jobs from the database and requeues them.
// Jobs left in processing state by a crash are reset to pending first.
func (r *Runner) Recover() error {
	ctx := context.Background()

	pendingJobs, err := r.store.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending jobs: %w", err)
	}

	// Get all processing jobs regardless of age; anything still marked
	// processing at startup was interrupted.
	processingJobs, err := r.store.GetProcessingJobs(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing jobs: %w", err)
	}

	r.logger.Info("recovering unfinished jobs",
		"pending_count", len(pendingJobs),
		"processing_count", len(processingJobs))

	for _, record := range pendingJobs {
		r.requeueRecord(ctx, record, false)
	}

	for _, record := range processingJobs {
		r.requeueRecord(ctx, record, true)
	}

	return nil
}

// requeueRecord turns a persisted record back into an executable job and
// puts it on the queue. When reset is true the record's status is moved
// back to pending first.
func (r *Runner) requeueRecord(ctx context.Context, record *JobRecord, reset bool) {
	if r.factory == nil {
		r.logger.Error("cannot recover job without a factory",
			"job_id", record.ID,
			"job_kind", record.Kind)
		return
	}

	if reset {
		if err := r.store.UpdateJobStatus(ctx, record.ID, JobStatusPending, "Reset after recovery"); err != nil {
			r.logger.Error("failed to reset processing job status",
				"job_id", record.ID,
				"job_kind", record.Kind,
				"error", err)
			return
		}
	}

	rebuilt, err := r.factory.CreateJob(record.Kind, record.Payload)
	if err != nil {
		r.logger.Error("failed to rebuild recovered job",
			"job_id", record.ID,
			"job_kind", record.Kind,
			"error", err)
		if updateErr := r.store.UpdateJobStatus(ctx, record.ID, JobStatusFailed, err.Error()); updateErr != nil {
			r.logger.Error("failed to mark unrecoverable job as failed",
				"job_id", record.ID,
				"error", updateErr)
		}
		return
	}

	select {
	case r.jobChan <- &recoveredJob{record: record, exec: rebuilt}:
		// Successfully requeued
	default:
		r.logger.Error("failed to requeue job, queue is full",
			"job_id", record.ID,
			"job_kind", record.Kind)
	}
}

// recoveredJob wraps a rebuilt job so it keeps the identity of its
// persisted record.
type recoveredJob struct {
	record *JobRecord
	exec   Job
}

func (j *recoveredJob) ID() uuid.UUID   { return j.record.ID }
func (j *recoveredJob) Kind() string    { return j.record.Kind }
func (j *recoveredJob) Payload() []byte { return j.record.Payload }

func (j *recoveredJob) Execute(ctx context.Context) error {
	return j.exec.Execute(ctx)
}

// worker processes jobs from the queue
func (r *Runner) worker(id int) {
	defer r.wg.Done()

	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			// Context cancelled, stop worker
			r.logger.Debug("stopping worker", "worker_id", id)
			return

		case job, ok := <-r.jobChan:
			if !ok {
				// Channel closed, stop worker
				r.logger.Debug("job channel closed, stopping worker", "worker_id", id)
				return
			}

			r.processJob(job, id)
		}
	}
}

// processJob handles execution of a single job, retrying failed attempts
// with a fixed backoff up to the configured attempt limit.
func (r *Runner) processJob(job Job, workerID int) {
	ctx := r.ctx
	logger := r.logger.With(
		"job_id", job.ID(),
		"job_kind", job.Kind(),
		"worker_id", workerID,
	)

	// Update job status to processing
	if err := r.store.UpdateJobStatus(ctx, job.ID(), JobStatusProcessing, ""); err != nil {
		logger.Error("failed to update job status to processing", "error", err)
		return
	}

	logger.Info("processing job")

	var lastErr error
	for attempt := 1; attempt <= r.config.MaxAttempts; attempt++ {
		lastErr = job.Execute(ctx)
		if lastErr == nil {
			logger.Info("job completed successfully", "attempt", attempt)
			if updateErr := r.store.UpdateJobStatus(ctx, job.ID(), JobStatusCompleted, ""); updateErr != nil {
				logger.Error("failed to update job status to completed", "error", updateErr)
			}
			return
		}

		logger.Error("job attempt failed",
			"attempt", attempt,
			"max_attempts", r.config.MaxAttempts,
			"error", lastErr)

		if attempt == r.config.MaxAttempts {
			break
		}

		// Fixed backoff before the next attempt, abandoned on shutdown.
		select {
		case <-ctx.Done():
			logger.Warn("runner stopping, abandoning retries")
			return
		case <-time.After(r.config.RetryBackoff):
		}
	}

	logger.Error("job failed after exhausting retries", "error", lastErr)
	if updateErr := r.store.UpdateJobStatus(ctx, job.ID(), JobStatusFailed, lastErr.Error()); updateErr != nil {
		logger.Error("failed to update job status to failed", "error", updateErr)
	}
}

// stuckJobMonitor periodically checks for jobs that have been in "processing"
// state for too long and resets them
func (r *Runner) stuckJobMonitor() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config.StuckJobCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			// Context cancelled, stop monitor
			return

		case <-ticker.C:
			ctx := context.Background()

			stuckJobs, err := r.store.GetProcessingJobs(ctx, r.config.StuckJobAge)
			if err != nil {
				r.logger.Error("failed to check for stuck jobs", "error", err)
				continue
			}

			if len(stuckJobs) > 0 {
				r.logger.Info("found stuck jobs", "count", len(stuckJobs))

				for _, record := range stuckJobs {
					r.requeueRecord(ctx, record, true)
				}
			}
		}
	}
}
