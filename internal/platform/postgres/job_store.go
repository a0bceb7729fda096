package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/job"
	"github.com/phrazzld/taskboard-api/internal/platform/logger"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// PostgresJobStore implements the job.JobStore interface using PostgreSQL.
// Jobs are persisted before they enter the in-memory queue so a crashed
// process can recover and requeue them on restart.
type PostgresJobStore struct {
	db store.DBTX
}

// NewPostgresJobStore creates a new PostgresJobStore
func NewPostgresJobStore(db store.DBTX) *PostgresJobStore {
	return &PostgresJobStore{
		db: db,
	}
}

// Ensure PostgresJobStore implements job.JobStore interface
var _ job.JobStore = (*PostgresJobStore)(nil)

// SaveJob implements job.JobStore.SaveJob
func (s *PostgresJobStore) SaveJob(ctx context.Context, j job.Job) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO jobs (id, kind, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, query,
		j.ID(),
		j.Kind(),
		j.Payload(),
		job.JobStatusPending,
		now,
		now,
	)
	if err != nil {
		log.Error("failed to save job",
			"job_id", j.ID(),
			"job_kind", j.Kind(),
			"error", err)
		return MapError(err)
	}

	return nil
}

// UpdateJobStatus implements job.JobStore.UpdateJobStatus
func (s *PostgresJobStore) UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status job.JobStatus, errorMsg string) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE jobs
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := s.db.ExecContext(ctx, query,
		status,
		errorMsg,
		time.Now().UTC(),
		jobID,
	)
	if err != nil {
		log.Error("failed to update job status",
			"job_id", jobID,
			"status", status,
			"error", err)
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if rowsAffected == 0 {
		// Unknown job IDs are tolerated: the row may have been pruned.
		log.Warn("no job found with ID to update status", "job_id", jobID)
	}

	return nil
}

// GetPendingJobs implements job.JobStore.GetPendingJobs
func (s *PostgresJobStore) GetPendingJobs(ctx context.Context) ([]*job.JobRecord, error) {
	return s.getJobsByStatus(ctx, job.JobStatusPending, 0)
}

// GetProcessingJobs implements job.JobStore.GetProcessingJobs
func (s *PostgresJobStore) GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]*job.JobRecord, error) {
	return s.getJobsByStatus(ctx, job.JobStatusProcessing, olderThan)
}

func (s *PostgresJobStore) getJobsByStatus(ctx context.Context, status job.JobStatus, olderThan time.Duration) ([]*job.JobRecord, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, kind, payload, status, error_message, created_at, updated_at
		FROM jobs
		WHERE status = $1
	`
	args := []any{status}

	if olderThan > 0 {
		query += ` AND updated_at < $2`
		args = append(args, time.Now().UTC().Add(-olderThan))
	}

	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query jobs",
			"status", status,
			"error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var records []*job.JobRecord
	for rows.Next() {
		var record job.JobRecord
		var errorMsg sql.NullString
		if err := rows.Scan(
			&record.ID,
			&record.Kind,
			&record.Payload,
			&record.Status,
			&errorMsg,
			&record.CreatedAt,
			&record.UpdatedAt,
		); err != nil {
			return nil, MapError(err)
		}
		record.ErrorMessage = errorMsg.String
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return records, nil
}
