package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/platform/logger"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// taskColumns is the canonical select list shared by every task query so row
// scanning stays in one place.
const taskColumns = `id, title, description, status, priority, due_date, completed_at,
	created_by, assigned_to, is_deleted, deleted_at, created_at, updated_at`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db    store.DBTX
	sqlDB *sql.DB
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection that should be initialized and managed by the caller.
func NewPostgresTaskStore(db *sql.DB) *PostgresTaskStore {
	return &PostgresTaskStore{
		db:    db,
		sqlDB: db,
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:    tx,
		sqlDB: s.sqlDB,
	}
}

// DB implements store.TaskStore.DB
func (s *PostgresTaskStore) DB() *sql.DB {
	return s.sqlDB
}

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	if err := task.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.CompletedAt,
		task.CreatedBy,
		task.AssignedTo,
		task.IsDeleted,
		task.DeletedAt,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to insert task",
			"task_id", task.ID,
			"error", err)
		return MapError(err)
	}

	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		mapped := MapError(err)
		if store.IsNotFoundError(mapped) {
			return nil, store.ErrTaskNotFound
		}
		return nil, mapped
	}
	return task, nil
}

// Update implements store.TaskStore.Update
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContext(ctx)

	if err := task.Validate(); err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET title = $2,
			description = $3,
			status = $4,
			priority = $5,
			due_date = $6,
			completed_at = $7,
			assigned_to = $8,
			is_deleted = $9,
			deleted_at = $10,
			updated_at = $11
		WHERE id = $1
	`

	result, err := s.db.ExecContext(ctx, query,
		task.ID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.DueDate,
		task.CompletedAt,
		task.AssignedTo,
		task.IsDeleted,
		task.DeletedAt,
		task.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to update task",
			"task_id", task.ID,
			"error", err)
		return MapError(err)
	}

	if err := CheckRowsAffected(result, "task"); err != nil {
		return store.ErrTaskNotFound
	}
	return nil
}

// List implements store.TaskStore.List
func (s *PostgresTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	log := logger.FromContext(ctx)

	where, args := buildTaskWhere(filter)
	query := `SELECT ` + taskColumns + ` FROM tasks` + where + taskOrderClause(filter.Order)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks", "error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, MapError(err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return tasks, nil
}

// Count implements store.TaskStore.Count
func (s *PostgresTaskStore) Count(ctx context.Context, filter store.TaskFilter) (int, error) {
	where, args := buildTaskWhere(filter)
	query := `SELECT COUNT(*) FROM tasks` + where

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var task domain.Task
	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.DueDate,
		&task.CompletedAt,
		&task.CreatedBy,
		&task.AssignedTo,
		&task.IsDeleted,
		&task.DeletedAt,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// buildTaskWhere translates a TaskFilter into a WHERE clause and its
// positional arguments. Every predicate joins with AND, matching the
// filter's conjunctive semantics.
func buildTaskWhere(filter store.TaskFilter) (string, []any) {
	var clauses []string
	var args []any

	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.ActiveOnly {
		clauses = append(clauses, "is_deleted = FALSE")
	}
	if filter.DeletedOnly {
		clauses = append(clauses, "is_deleted = TRUE")
	}
	for _, status := range filter.Statuses {
		clauses = append(clauses, "status = "+arg(status))
	}
	for _, status := range filter.ExcludeStatuses {
		clauses = append(clauses, "status <> "+arg(status))
	}
	for _, priority := range filter.Priorities {
		clauses = append(clauses, "priority = "+arg(priority))
	}
	for _, creator := range filter.Creators {
		clauses = append(clauses, "created_by = "+arg(creator))
	}
	for _, assignee := range filter.Assignees {
		clauses = append(clauses, "assigned_to = "+arg(assignee))
	}
	if filter.MaxDue != nil {
		clauses = append(clauses, "due_date IS NOT NULL AND due_date < "+arg(*filter.MaxDue))
	}
	if filter.MinCompleted != nil {
		clauses = append(clauses, "completed_at IS NOT NULL AND completed_at >= "+arg(*filter.MinCompleted))
	}
	if filter.MaxCompleted != nil {
		clauses = append(clauses, "completed_at IS NOT NULL AND completed_at < "+arg(*filter.MaxCompleted))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func taskOrderClause(order store.TaskOrder) string {
	switch order {
	case store.OrderRecentlyCompletedFirst:
		return " ORDER BY completed_at DESC NULLS LAST"
	default:
		return " ORDER BY created_at DESC"
	}
}
