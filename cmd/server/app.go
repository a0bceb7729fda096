package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/phrazzld/taskboard-api/internal/config"
	"github.com/phrazzld/taskboard-api/internal/job"
	"github.com/phrazzld/taskboard-api/internal/mail"
	"github.com/phrazzld/taskboard-api/internal/platform/postgres"
	redisplatform "github.com/phrazzld/taskboard-api/internal/platform/redis"
	"github.com/phrazzld/taskboard-api/internal/service"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// application holds the initialized dependencies of the server process.
type application struct {
	config *config.Config
	logger *slog.Logger

	db          *sql.DB
	redisClient *redis.Client

	taskStore store.TaskStore
	userStore store.UserStore

	taskService      service.TaskService
	completedService service.CompletedTaskService

	runner     *job.Runner
	dispatcher *job.Dispatcher
	scheduler  *job.Scheduler
}

// dispatcherNotifier defers binding the dispatcher so the task service can be
// constructed before the jobs that depend on it.
type dispatcherNotifier struct {
	dispatcher *job.Dispatcher
}

var _ service.Notifier = (*dispatcherNotifier)(nil)

func (n *dispatcherNotifier) Enqueue(ctx context.Context, kind string, payload any) error {
	if n.dispatcher == nil {
		return errors.New("job dispatcher is not initialized")
	}
	return n.dispatcher.Enqueue(ctx, kind, payload)
}

// newApplication wires every component of the server: database, cache,
// stores, services, and the background job system. The caller owns the
// returned application and must call cleanup when done.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := setupAppDatabase(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Cache.RedisAddr,
	})
	cache, err := redisplatform.NewCache(redisClient, cfg.Cache.KeyPrefix, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up cache: %w", err)
	}

	taskStore := postgres.NewPostgresTaskStore(db)
	userStore := postgres.NewPostgresUserStore(db)
	jobStore := postgres.NewPostgresJobStore(db)

	runner := job.NewRunner(jobStore, job.RunnerConfig{
		WorkerCount:           cfg.Job.WorkerCount,
		QueueSize:             cfg.Job.QueueSize,
		MaxAttempts:           cfg.Job.MaxAttempts,
		RetryBackoff:          time.Duration(cfg.Job.RetryBackoffSeconds) * time.Second,
		StuckJobAge:           time.Duration(cfg.Job.StuckJobAgeMinutes) * time.Minute,
		StuckJobCheckInterval: 5 * time.Minute,
	}, logger)

	notifier := &dispatcherNotifier{}
	cacheTTL := time.Duration(cfg.Cache.TTLSeconds) * time.Second

	taskService, err := service.NewTaskService(taskStore, cache, notifier, cacheTTL, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up task service: %w", err)
	}
	completedService, err := service.NewCompletedTaskService(taskStore, userStore, taskService, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up completed task service: %w", err)
	}

	var mailer mail.Mailer
	if cfg.Mail.Enabled {
		mailer = mail.NewSMTPMailer(cfg.Mail.SMTPAddr, cfg.Mail.From)
	} else {
		mailer = mail.NewLogMailer(logger)
	}

	taskSource := service.NewJobTaskSource(taskService)
	dispatcher, err := job.NewDispatcher(runner, job.Deps{
		Tasks:    taskSource,
		Users:    service.NewJobUserDirectory(userStore),
		Stats:    taskSource,
		Overdue:  taskSource,
		Archiver: completedService,
		Mailer:   mailer,
	}, cfg.Job.ArchiveThresholdDays, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up job dispatcher: %w", err)
	}
	notifier.dispatcher = dispatcher

	scheduler := job.NewScheduler(dispatcher, []job.Schedule{
		{Kind: job.KindCleanupOldCompletedTasks, Interval: time.Duration(cfg.Job.CleanupIntervalMinutes) * time.Minute},
		{Kind: job.KindDailyTaskSummary, Interval: time.Duration(cfg.Job.SummaryIntervalMinutes) * time.Minute},
		{Kind: job.KindCheckOverdueTasks, Interval: time.Duration(cfg.Job.OverdueCheckIntervalMinutes) * time.Minute},
	}, logger)

	return &application{
		config:           cfg,
		logger:           logger,
		db:               db,
		redisClient:      redisClient,
		taskStore:        taskStore,
		userStore:        userStore,
		taskService:      taskService,
		completedService: completedService,
		runner:           runner,
		dispatcher:       dispatcher,
		scheduler:        scheduler,
	}, nil
}

// startBackground starts the job runner (recovering persisted jobs) and the
// periodic scheduler.
func (app *application) startBackground() error {
	if err := app.runner.Start(); err != nil {
		return fmt.Errorf("failed to start job runner: %w", err)
	}
	app.scheduler.Start()
	return nil
}

// cleanup stops background work and releases connections. Safe to call once
// during shutdown.
func (app *application) cleanup() {
	app.scheduler.Stop()
	app.runner.Stop()

	if err := app.redisClient.Close(); err != nil {
		app.logger.Error("failed to close redis client", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("failed to close database connection", "error", err)
	}
}
