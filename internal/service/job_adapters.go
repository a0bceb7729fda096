package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/job"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// JobTaskSource adapts TaskService to the read interfaces background jobs
// consume. Single lookups go through the cache; the overdue sweep reads the
// store directly so reminders never act on a stale snapshot.
type JobTaskSource struct {
	tasks TaskService
}

// NewJobTaskSource creates a new JobTaskSource.
func NewJobTaskSource(tasks TaskService) *JobTaskSource {
	return &JobTaskSource{tasks: tasks}
}

var (
	_ job.TaskReader    = (*JobTaskSource)(nil)
	_ job.StatsProvider = (*JobTaskSource)(nil)
	_ job.OverdueSource = (*JobTaskSource)(nil)
)

// GetTask implements job.TaskReader.
func (a *JobTaskSource) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return a.tasks.Get(ctx, id, true)
}

// Statistics implements job.StatsProvider.
func (a *JobTaskSource) Statistics(ctx context.Context, owner uuid.UUID) (domain.TaskStatistics, error) {
	return a.tasks.Statistics(ctx, owner)
}

// OverdueTasks implements job.OverdueSource.
func (a *JobTaskSource) OverdueTasks(ctx context.Context) ([]*domain.Task, error) {
	return a.tasks.GetOverdueTasks(ctx, false)
}

// JobUserDirectory adapts UserStore to the user lookups background jobs need.
type JobUserDirectory struct {
	users store.UserStore
}

// NewJobUserDirectory creates a new JobUserDirectory.
func NewJobUserDirectory(users store.UserStore) *JobUserDirectory {
	return &JobUserDirectory{users: users}
}

var _ job.UserDirectory = (*JobUserDirectory)(nil)

// GetUser implements job.UserReader.
func (a *JobUserDirectory) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return a.users.GetByID(ctx, id)
}

// ListUsers implements job.UserLister.
func (a *JobUserDirectory) ListUsers(ctx context.Context) ([]*domain.User, error) {
	return a.users.List(ctx)
}
