package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/domain"
)

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task to the store.
	// Returns validation errors if the task data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID, whether or not it is
	// soft-deleted. Returns ErrTaskNotFound if no row exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update persists the full current state of an existing task.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// List returns the tasks matching the filter, ordered per the filter's
	// Order setting.
	List(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// Count returns the number of tasks matching the filter.
	Count(ctx context.Context, filter TaskFilter) (int, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	// This allows for multiple operations to be executed within a single transaction.
	// The transaction should be created and managed by the caller (typically a service).
	//
	// Example usage:
	//   err := store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
	//       txStore := taskStore.WithTx(tx)
	//       return txStore.Update(ctx, task)
	//   })
	WithTx(tx *sql.Tx) TaskStore

	// DB returns the underlying database connection, used by services to
	// open transactions spanning multiple store calls.
	DB() *sql.DB
}
