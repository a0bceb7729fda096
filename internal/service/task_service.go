package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/job"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// Cache keys mirror the layout used by the read path: one entry per task,
// one entry per user's task list, and a single shared entry for the overdue
// set. Write operations invalidate exactly the keys they may have staled.
const (
	cacheKeyTaskFmt      = "task:%s"
	cacheKeyUserTasksFmt = "user_tasks:%s"
	cacheKeyOverdueTasks = "overdue_tasks"
)

// Cache abstracts the read-through cache used by task lookups. Implementations
// must treat a missing key as (false, nil), not an error.
type Cache interface {
	// Get unmarshals the cached value for key into dest and reports whether
	// the key was present.
	Get(ctx context.Context, key string, dest any) (bool, error)

	// Set stores value under key with the given TTL.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Notifier enqueues background jobs triggered by task lifecycle events.
type Notifier interface {
	Enqueue(ctx context.Context, kind string, payload any) error
}

// UpdateTaskParams carries a partial update. Nil fields are left unchanged.
type UpdateTaskParams struct {
	Title       *string
	Description *string
	Status      *domain.TaskStatus
	Priority    *domain.TaskPriority
	DueDate     *time.Time
	AssignedTo  *uuid.UUID
}

// TaskService defines the task lifecycle operations exposed to the API and to
// background jobs. All mutating operations run inside a transaction and
// invalidate the cache entries they may have staled before returning.
type TaskService interface {
	// Create validates and persists a new task, then enqueues a creation
	// notification. A failed enqueue is logged but does not fail the create.
	Create(ctx context.Context, title string, createdBy uuid.UUID, params domain.NewTaskParams) (*domain.Task, error)

	// Get returns an active (non-deleted) task by ID, reading through the
	// cache when useCache is true. Returns store.ErrTaskNotFound for missing
	// or soft-deleted tasks.
	Get(ctx context.Context, id uuid.UUID, useCache bool) (*domain.Task, error)

	// Update applies a partial update to an active task. A transition into
	// the completed status stamps CompletedAt if it was never set; leaving
	// the completed status never clears it.
	Update(ctx context.Context, id uuid.UUID, params UpdateTaskParams) (*domain.Task, error)

	// Complete marks an active task completed. Completing a task that is
	// already completed returns ErrTaskAlreadyCompleted and leaves the
	// original CompletedAt untouched.
	Complete(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// SoftDelete marks an active task deleted. Already-deleted and missing
	// tasks both return store.ErrTaskNotFound.
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// Restore brings a soft-deleted task back into the active set.
	Restore(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// BulkAssign assigns every listed task to assignee in a single
	// transaction. If any task is missing or deleted the whole batch rolls
	// back and store.ErrTaskNotFound is returned.
	BulkAssign(ctx context.Context, taskIDs []uuid.UUID, assignee uuid.UUID) ([]*domain.Task, error)

	// Statistics aggregates task counts for the tasks created by owner.
	Statistics(ctx context.Context, owner uuid.UUID) (domain.TaskStatistics, error)

	// GetOverdueTasks returns active, non-completed tasks whose due date has
	// passed, optionally reading through the shared overdue cache entry.
	GetOverdueTasks(ctx context.Context, useCache bool) ([]*domain.Task, error)

	// ListByUser returns the active tasks created by or assigned to userID.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error)
}

type taskServiceImpl struct {
	tasks    store.TaskStore
	cache    Cache
	notifier Notifier
	cacheTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time
	runTx    func(ctx context.Context, db *sql.DB, fn store.TxFn) error
	group    singleflight.Group
}

var _ TaskService = (*taskServiceImpl)(nil)

// NewTaskService creates a new TaskService with the given dependencies.
func NewTaskService(
	tasks store.TaskStore,
	cache Cache,
	notifier Notifier,
	cacheTTL time.Duration,
	logger *slog.Logger,
) (TaskService, error) {
	if tasks == nil {
		return nil, errors.New("task store cannot be nil")
	}
	if cache == nil {
		return nil, errors.New("cache cannot be nil")
	}
	if notifier == nil {
		return nil, errors.New("notifier cannot be nil")
	}
	if cacheTTL <= 0 {
		return nil, errors.New("cache TTL must be positive")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	return &taskServiceImpl{
		tasks:    tasks,
		cache:    cache,
		notifier: notifier,
		cacheTTL: cacheTTL,
		logger:   logger.With(slog.String("component", "task_service")),
		now:      func() time.Time { return time.Now().UTC() },
		runTx:    store.RunInTransaction,
	}, nil
}

func taskCacheKey(id uuid.UUID) string {
	return fmt.Sprintf(cacheKeyTaskFmt, id)
}

func userTasksCacheKey(id uuid.UUID) string {
	return fmt.Sprintf(cacheKeyUserTasksFmt, id)
}

func (s *taskServiceImpl) Create(ctx context.Context, title string, createdBy uuid.UUID, params domain.NewTaskParams) (*domain.Task, error) {
	log := s.logger.With(slog.String("operation", "create"))

	task, err := domain.NewTask(title, createdBy, params, s.now())
	if err != nil {
		return nil, err
	}

	err = s.runTx(ctx, s.tasks.DB(), func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Create(ctx, task)
	})
	if err != nil {
		return nil, NewTaskServiceError("create", "failed to save task", err)
	}

	s.invalidateTaskCaches(ctx, task)

	payload := job.TaskPayload{TaskID: task.ID}
	if err := s.notifier.Enqueue(ctx, job.KindTaskCreated, payload); err != nil {
		// Notification is best-effort: the task is already committed.
		log.Warn("failed to enqueue creation notification",
			slog.String("task_id", task.ID.String()),
			slog.String("error", err.Error()))
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("created_by", createdBy.String()),
		slog.String("priority", string(task.Priority)))
	return task, nil
}

func (s *taskServiceImpl) Get(ctx context.Context, id uuid.UUID, useCache bool) (*domain.Task, error) {
	if !useCache {
		return s.getActive(ctx, id)
	}

	key := taskCacheKey(id)
	var cached domain.Task
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		// A broken cache degrades to a store read, it never fails the request.
		s.logger.Warn("cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	} else if found {
		return &cached, nil
	}

	// Collapse concurrent misses for the same task into one store read.
	v, err, _ := s.group.Do(key, func() (any, error) {
		task, err := s.getActive(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, task, s.cacheTTL); err != nil {
			s.logger.Warn("cache write failed",
				slog.String("key", key),
				slog.String("error", err.Error()))
		}
		return task, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Task), nil
}

// getActive loads a task and hides soft-deleted rows behind ErrTaskNotFound.
func (s *taskServiceImpl) getActive(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.IsDeleted {
		return nil, store.ErrTaskNotFound
	}
	return task, nil
}

func (s *taskServiceImpl) Update(ctx context.Context, id uuid.UUID, params UpdateTaskParams) (*domain.Task, error) {
	log := s.logger.With(slog.String("operation", "update"), slog.String("task_id", id.String()))

	task, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}

	previousAssignee := task.AssignedTo

	if params.Title != nil {
		task.Title = *params.Title
	}
	if params.Description != nil {
		task.Description = *params.Description
	}
	if params.Priority != nil {
		if !params.Priority.IsValid() {
			return nil, domain.NewValidationError("priority", "invalid task priority", domain.ErrInvalidPriority)
		}
		task.Priority = *params.Priority
	}
	if params.DueDate != nil {
		due := *params.DueDate
		task.DueDate = &due
	}
	if params.AssignedTo != nil {
		assignee := *params.AssignedTo
		task.AssignedTo = &assignee
	}
	if params.Status != nil {
		if !params.Status.IsValid() {
			return nil, domain.NewValidationError("status", "invalid task status", domain.ErrInvalidStatus)
		}
		if *params.Status == domain.TaskStatusCompleted {
			task.MarkComplete(s.now())
		} else {
			// CompletedAt is a historical record; moving a task out of the
			// completed status does not erase when it was first completed.
			task.Status = *params.Status
		}
	}
	task.UpdatedAt = s.now()

	if err := task.Validate(); err != nil {
		return nil, err
	}

	err = s.runTx(ctx, s.tasks.DB(), func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Update(ctx, task)
	})
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, err
		}
		return nil, NewTaskServiceError("update", "failed to save task", err)
	}

	s.invalidateTaskCaches(ctx, task)
	if previousAssignee != nil && (task.AssignedTo == nil || *previousAssignee != *task.AssignedTo) {
		s.invalidateCacheKey(ctx, userTasksCacheKey(*previousAssignee))
	}

	log.Debug("task updated")
	return task, nil
}

func (s *taskServiceImpl) Complete(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := s.logger.With(slog.String("operation", "complete"), slog.String("task_id", id.String()))

	task, err := s.getActive(ctx, id)
	if err != nil {
		return nil, err
	}
	if task.Status == domain.TaskStatusCompleted {
		return nil, ErrTaskAlreadyCompleted
	}

	task.MarkComplete(s.now())
	task.UpdatedAt = s.now()

	err = s.runTx(ctx, s.tasks.DB(), func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Update(ctx, task)
	})
	if err != nil {
		return nil, NewTaskServiceError("complete", "failed to save task", err)
	}

	s.invalidateTaskCaches(ctx, task)

	log.Info("task completed")
	return task, nil
}

func (s *taskServiceImpl) SoftDelete(ctx context.Context, id uuid.UUID) error {
	log := s.logger.With(slog.String("operation", "soft_delete"), slog.String("task_id", id.String()))

	task, err := s.getActive(ctx, id)
	if err != nil {
		return err
	}

	task.SoftDelete(s.now())

	err = s.runTx(ctx, s.tasks.DB(), func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Update(ctx, task)
	})
	if err != nil {
		return NewTaskServiceError("soft_delete", "failed to save task", err)
	}

	s.invalidateTaskCaches(ctx, task)

	log.Info("task soft-deleted")
	return nil
}

func (s *taskServiceImpl) Restore(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := s.logger.With(slog.String("operation", "restore"), slog.String("task_id", id.String()))

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !task.IsDeleted {
		// Restoring an active task is a no-op.
		return task, nil
	}

	task.Restore(s.now())

	err = s.runTx(ctx, s.tasks.DB(), func(ctx context.Context, tx *sql.Tx) error {
		return s.tasks.WithTx(tx).Update(ctx, task)
	})
	if err != nil {
		return nil, NewTaskServiceError("restore", "failed to save task", err)
	}

	s.invalidateTaskCaches(ctx, task)

	log.Info("task restored")
	return task, nil
}

func (s *taskServiceImpl) BulkAssign(ctx context.Context, taskIDs []uuid.UUID, assignee uuid.UUID) ([]*domain.Task, error) {
	log := s.logger.With(slog.String("operation", "bulk_assign"))

	updated := make([]*domain.Task, 0, len(taskIDs))
	err := s.runTx(ctx, s.tasks.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txStore := s.tasks.WithTx(tx)
		for _, id := range taskIDs {
			task, err := txStore.GetByID(ctx, id)
			if err != nil {
				return fmt.Errorf("task %s: %w", id, err)
			}
			if task.IsDeleted {
				return fmt.Errorf("task %s: %w", id, store.ErrTaskNotFound)
			}
			task.AssignedTo = &assignee
			task.UpdatedAt = s.now()
			if err := txStore.Update(ctx, task); err != nil {
				return fmt.Errorf("task %s: %w", id, err)
			}
			updated = append(updated, task)
		}
		return nil
	})
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, err
		}
		return nil, NewTaskServiceError("bulk_assign", "failed to assign tasks", err)
	}

	for _, task := range updated {
		s.invalidateTaskCaches(ctx, task)
	}

	log.Info("tasks assigned",
		slog.Int("count", len(updated)),
		slog.String("assignee", assignee.String()))
	return updated, nil
}

func (s *taskServiceImpl) Statistics(ctx context.Context, owner uuid.UUID) (domain.TaskStatistics, error) {
	base := store.Tasks().CreatedBy(owner)

	var stats domain.TaskStatistics
	counts := []struct {
		dest   *int
		filter store.TaskFilter
	}{
		{&stats.Total, base.Active()},
		{&stats.Pending, base.Pending()},
		{&stats.InProgress, base.InProgress()},
		{&stats.Completed, base.Completed()},
		{&stats.Overdue, base.OverdueAt(s.now())},
		{&stats.HighPriority, base.HighPriority()},
	}
	for _, c := range counts {
		n, err := s.tasks.Count(ctx, c.filter)
		if err != nil {
			return domain.TaskStatistics{}, NewTaskServiceError("statistics", "failed to count tasks", err)
		}
		*c.dest = n
	}
	return stats, nil
}

func (s *taskServiceImpl) GetOverdueTasks(ctx context.Context, useCache bool) ([]*domain.Task, error) {
	if useCache {
		var cached []*domain.Task
		found, err := s.cache.Get(ctx, cacheKeyOverdueTasks, &cached)
		if err != nil {
			s.logger.Warn("cache read failed",
				slog.String("key", cacheKeyOverdueTasks),
				slog.String("error", err.Error()))
		} else if found {
			return cached, nil
		}
	}

	tasks, err := s.tasks.List(ctx, store.Tasks().OverdueAt(s.now()))
	if err != nil {
		return nil, NewTaskServiceError("overdue_tasks", "failed to list overdue tasks", err)
	}

	if useCache {
		if err := s.cache.Set(ctx, cacheKeyOverdueTasks, tasks, s.cacheTTL); err != nil {
			s.logger.Warn("cache write failed",
				slog.String("key", cacheKeyOverdueTasks),
				slog.String("error", err.Error()))
		}
	}
	return tasks, nil
}

func (s *taskServiceImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error) {
	key := userTasksCacheKey(userID)
	var cached []*domain.Task
	found, err := s.cache.Get(ctx, key, &cached)
	if err != nil {
		s.logger.Warn("cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	} else if found {
		return cached, nil
	}

	created, err := s.tasks.List(ctx, store.Tasks().CreatedBy(userID))
	if err != nil {
		return nil, NewTaskServiceError("list_by_user", "failed to list created tasks", err)
	}
	assigned, err := s.tasks.List(ctx, store.Tasks().AssignedTo(userID))
	if err != nil {
		return nil, NewTaskServiceError("list_by_user", "failed to list assigned tasks", err)
	}

	seen := make(map[uuid.UUID]bool, len(created))
	tasks := make([]*domain.Task, 0, len(created)+len(assigned))
	for _, t := range created {
		seen[t.ID] = true
		tasks = append(tasks, t)
	}
	for _, t := range assigned {
		if !seen[t.ID] {
			tasks = append(tasks, t)
		}
	}

	if err := s.cache.Set(ctx, key, tasks, s.cacheTTL); err != nil {
		s.logger.Warn("cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
	return tasks, nil
}

// invalidateTaskCaches drops every cache entry the given task can appear in:
// its own entry, the task lists of its creator and assignee, and the shared
// overdue set.
func (s *taskServiceImpl) invalidateTaskCaches(ctx context.Context, task *domain.Task) {
	s.invalidateCacheKey(ctx, taskCacheKey(task.ID))
	s.invalidateCacheKey(ctx, userTasksCacheKey(task.CreatedBy))
	if task.AssignedTo != nil {
		s.invalidateCacheKey(ctx, userTasksCacheKey(*task.AssignedTo))
	}
	s.invalidateCacheKey(ctx, cacheKeyOverdueTasks)
}

func (s *taskServiceImpl) invalidateCacheKey(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.Warn("cache invalidation failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}
}
