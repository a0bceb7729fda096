package job

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockJobStore implements the JobStore interface for testing
type MockJobStore struct {
	mutex          sync.RWMutex
	records        map[uuid.UUID]*JobRecord
	statusTimes    map[uuid.UUID]time.Time
	SaveFn         func(ctx context.Context, job Job) error
	UpdateStatusFn func(ctx context.Context, jobID uuid.UUID, status JobStatus, errorMsg string) error
}

// NewMockJobStore creates a new MockJobStore with default implementations
func NewMockJobStore() *MockJobStore {
	store := &MockJobStore{
		records:     make(map[uuid.UUID]*JobRecord),
		statusTimes: make(map[uuid.UUID]time.Time),
	}

	// Default behavior for SaveJob
	store.SaveFn = func(ctx context.Context, job Job) error {
		store.mutex.Lock()
		defer store.mutex.Unlock()

		now := time.Now().UTC()
		store.records[job.ID()] = &JobRecord{
			ID:        job.ID(),
			Kind:      job.Kind(),
			Payload:   job.Payload(),
			Status:    JobStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		store.statusTimes[job.ID()] = now
		return nil
	}

	// Default behavior for UpdateJobStatus
	store.UpdateStatusFn = func(ctx context.Context, jobID uuid.UUID, status JobStatus, errorMsg string) error {
		store.mutex.Lock()
		defer store.mutex.Unlock()

		record, exists := store.records[jobID]
		if !exists {
			return nil // Simulate "not found" as a no-op for testing simplicity
		}

		record.Status = status
		record.ErrorMessage = errorMsg
		record.UpdatedAt = time.Now().UTC()
		store.statusTimes[jobID] = record.UpdatedAt
		return nil
	}

	return store
}

// Ensure MockJobStore implements the JobStore interface
var _ JobStore = (*MockJobStore)(nil)

// SaveJob implements JobStore.SaveJob
func (s *MockJobStore) SaveJob(ctx context.Context, job Job) error {
	return s.SaveFn(ctx, job)
}

// UpdateJobStatus implements JobStore.UpdateJobStatus
func (s *MockJobStore) UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status JobStatus, errorMsg string) error {
	return s.UpdateStatusFn(ctx, jobID, status, errorMsg)
}

// GetPendingJobs implements JobStore.GetPendingJobs
func (s *MockJobStore) GetPendingJobs(ctx context.Context) ([]*JobRecord, error) {
	return s.getByStatus(JobStatusPending, 0), nil
}

// GetProcessingJobs implements JobStore.GetProcessingJobs
func (s *MockJobStore) GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]*JobRecord, error) {
	return s.getByStatus(JobStatusProcessing, olderThan), nil
}

func (s *MockJobStore) getByStatus(status JobStatus, olderThan time.Duration) []*JobRecord {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	cutoff := time.Now().Add(-olderThan)
	var out []*JobRecord
	for id, record := range s.records {
		if record.Status != status {
			continue
		}
		if olderThan > 0 && s.statusTimes[id].After(cutoff) {
			continue
		}
		out = append(out, record)
	}
	return out
}

// GetRecord returns the stored record for a job ID, if any.
func (s *MockJobStore) GetRecord(jobID uuid.UUID) (*JobRecord, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	record, ok := s.records[jobID]
	return record, ok
}
