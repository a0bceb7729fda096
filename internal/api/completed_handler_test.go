package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/service"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// MockCompletedTaskService is a mock implementation of
// service.CompletedTaskService for testing
type MockCompletedTaskService struct {
	GetFn        func(ctx context.Context, id uuid.UUID) (*service.CompletedTask, error)
	RecentFn     func(ctx context.Context, days int) ([]*service.CompletedTask, error)
	ArchivableFn func(ctx context.Context, thresholdDays int) ([]*service.CompletedTask, error)
	ArchiveFn    func(ctx context.Context, id uuid.UUID, thresholdDays int) error
	SaveFn       func(ctx context.Context, task *domain.Task) (*domain.Task, error)
	SummaryFn    func(ctx context.Context, id uuid.UUID) (service.CompletionSummary, error)
	ReportFn     func(ctx context.Context, userID uuid.UUID, days int) (service.CompletionReport, error)
	SweepFn      func(ctx context.Context, thresholdDays int) (int, error)
}

var _ service.CompletedTaskService = (*MockCompletedTaskService)(nil)

func (m *MockCompletedTaskService) Get(ctx context.Context, id uuid.UUID) (*service.CompletedTask, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, id)
	}
	return nil, nil
}

func (m *MockCompletedTaskService) Recent(ctx context.Context, days int) ([]*service.CompletedTask, error) {
	if m.RecentFn != nil {
		return m.RecentFn(ctx, days)
	}
	return nil, nil
}

func (m *MockCompletedTaskService) Archivable(ctx context.Context, thresholdDays int) ([]*service.CompletedTask, error) {
	if m.ArchivableFn != nil {
		return m.ArchivableFn(ctx, thresholdDays)
	}
	return nil, nil
}

func (m *MockCompletedTaskService) Archive(ctx context.Context, id uuid.UUID, thresholdDays int) error {
	if m.ArchiveFn != nil {
		return m.ArchiveFn(ctx, id, thresholdDays)
	}
	return nil
}

func (m *MockCompletedTaskService) Save(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, task)
	}
	return task, nil
}

func (m *MockCompletedTaskService) Summary(ctx context.Context, id uuid.UUID) (service.CompletionSummary, error) {
	if m.SummaryFn != nil {
		return m.SummaryFn(ctx, id)
	}
	return service.CompletionSummary{}, nil
}

func (m *MockCompletedTaskService) Report(ctx context.Context, userID uuid.UUID, days int) (service.CompletionReport, error) {
	if m.ReportFn != nil {
		return m.ReportFn(ctx, userID, days)
	}
	return service.CompletionReport{}, nil
}

func (m *MockCompletedTaskService) ArchiveOldCompletedTasks(ctx context.Context, thresholdDays int) (int, error) {
	if m.SweepFn != nil {
		return m.SweepFn(ctx, thresholdDays)
	}
	return 0, nil
}

func newTestCompletedRouter(svc service.CompletedTaskService, thresholdDays int) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewCompletedTaskHandler(svc, thresholdDays, logger)

	r := chi.NewRouter()
	r.Route("/api/completed-tasks", func(r chi.Router) {
		r.Get("/", handler.Recent)
		r.Get("/report", handler.Report)
		r.Get("/{id}", handler.Get)
		r.Post("/{id}/archive", handler.Archive)
	})
	return r
}

func completedSample(id uuid.UUID, completedDaysAgo int) *service.CompletedTask {
	now := time.Now().UTC()
	completedAt := now.AddDate(0, 0, -completedDaysAgo)
	created := completedAt.Add(-48 * time.Hour)
	return &service.CompletedTask{
		Task: &domain.Task{
			ID:          id,
			Title:       "Quarterly report",
			Status:      domain.TaskStatusCompleted,
			Priority:    domain.TaskPriorityHigh,
			CompletedAt: &completedAt,
			CreatedBy:   uuid.New(),
			CreatedAt:   created,
			UpdatedAt:   completedAt,
		},
	}
}

func TestCompletedTaskHandler_Recent(t *testing.T) {
	t.Run("default lookback window", func(t *testing.T) {
		mock := &MockCompletedTaskService{
			RecentFn: func(ctx context.Context, days int) ([]*service.CompletedTask, error) {
				assert.Equal(t, 7, days)
				return []*service.CompletedTask{completedSample(uuid.New(), 2)}, nil
			},
		}
		router := newTestCompletedRouter(mock, 30)

		req := httptest.NewRequest(http.MethodGet, "/api/completed-tasks", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp []CompletedTaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp, 1)
		assert.Equal(t, "Quarterly report", resp[0].Title)
		require.NotNil(t, resp[0].DaysSinceCompletion)
		assert.Equal(t, 2, *resp[0].DaysSinceCompletion)
		assert.False(t, resp[0].IsArchivable)
	})

	t.Run("custom days parameter", func(t *testing.T) {
		mock := &MockCompletedTaskService{
			RecentFn: func(ctx context.Context, days int) ([]*service.CompletedTask, error) {
				assert.Equal(t, 30, days)
				return nil, nil
			},
		}
		router := newTestCompletedRouter(mock, 30)

		req := httptest.NewRequest(http.MethodGet, "/api/completed-tasks?days=30", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("malformed days falls back to default", func(t *testing.T) {
		mock := &MockCompletedTaskService{
			RecentFn: func(ctx context.Context, days int) ([]*service.CompletedTask, error) {
				assert.Equal(t, 7, days)
				return nil, nil
			},
		}
		router := newTestCompletedRouter(mock, 30)

		req := httptest.NewRequest(http.MethodGet, "/api/completed-tasks?days=soon", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCompletedTaskHandler_Get(t *testing.T) {
	fixedTaskID := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	t.Run("old completed task is archivable", func(t *testing.T) {
		mock := &MockCompletedTaskService{
			GetFn: func(ctx context.Context, id uuid.UUID) (*service.CompletedTask, error) {
				return completedSample(id, 45), nil
			},
		}
		router := newTestCompletedRouter(mock, 30)

		req := httptest.NewRequest(http.MethodGet, "/api/completed-tasks/"+fixedTaskID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp CompletedTaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.IsArchivable)
	})

	t.Run("non-completed task maps to 404", func(t *testing.T) {
		mock := &MockCompletedTaskService{
			GetFn: func(ctx context.Context, id uuid.UUID) (*service.CompletedTask, error) {
				return nil, store.ErrTaskNotFound
			},
		}
		router := newTestCompletedRouter(mock, 30)

		req := httptest.NewRequest(http.MethodGet, "/api/completed-tasks/"+fixedTaskID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCompletedTaskHandler_Archive(t *testing.T) {
	fixedTaskID := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	t.Run("success returns 204 with configured threshold", func(t *testing.T) {
		mock := &MockCompletedTaskService{
			ArchiveFn: func(ctx context.Context, id uuid.UUID, thresholdDays int) error {
				assert.Equal(t, fixedTaskID, id)
				assert.Equal(t, 30, thresholdDays)
				return nil
			},
		}
		router := newTestCompletedRouter(mock, 30)

		req := httptest.NewRequest(http.MethodPost, "/api/completed-tasks/"+fixedTaskID.String()+"/archive", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("too-young task maps to 409", func(t *testing.T) {
		mock := &MockCompletedTaskService{
			ArchiveFn: func(ctx context.Context, id uuid.UUID, thresholdDays int) error {
				return service.ErrTaskNotArchivable
			},
		}
		router := newTestCompletedRouter(mock, 30)

		req := httptest.NewRequest(http.MethodPost, "/api/completed-tasks/"+fixedTaskID.String()+"/archive", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestCompletedTaskHandler_Report(t *testing.T) {
	fixedUserID := uuid.MustParse("11111111-1111-1111-1111-111111111111")

	t.Run("returns the aggregated report", func(t *testing.T) {
		completedAt := time.Now().UTC().Add(-24 * time.Hour)
		days := 2
		mock := &MockCompletedTaskService{
			ReportFn: func(ctx context.Context, userID uuid.UUID, lookback int) (service.CompletionReport, error) {
				assert.Equal(t, fixedUserID, userID)
				assert.Equal(t, 14, lookback)
				return service.CompletionReport{
					User:           "Ana",
					PeriodDays:     14,
					TotalCompleted: 1,
					Tasks: []service.CompletionSummary{{
						TaskID:              uuid.New(),
						Title:               "Quarterly report",
						CompletedAt:         &completedAt,
						DaysSinceCompletion: &days,
						CompletedBy:         "Ana",
						Priority:            "high",
					}},
				}, nil
			},
		}
		router := newTestCompletedRouter(mock, 30)

		req := httptest.NewRequest(http.MethodGet, "/api/completed-tasks/report?user_id="+fixedUserID.String()+"&days=14", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var report service.CompletionReport
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
		assert.Equal(t, "Ana", report.User)
		assert.Equal(t, 1, report.TotalCompleted)
		require.Len(t, report.Tasks, 1)
		assert.Equal(t, "Quarterly report", report.Tasks[0].Title)
	})

	t.Run("missing user_id maps to 400", func(t *testing.T) {
		router := newTestCompletedRouter(&MockCompletedTaskService{}, 30)

		req := httptest.NewRequest(http.MethodGet, "/api/completed-tasks/report", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown user maps to 404", func(t *testing.T) {
		mock := &MockCompletedTaskService{
			ReportFn: func(ctx context.Context, userID uuid.UUID, days int) (service.CompletionReport, error) {
				return service.CompletionReport{}, store.ErrUserNotFound
			},
		}
		router := newTestCompletedRouter(mock, 30)

		req := httptest.NewRequest(http.MethodGet, "/api/completed-tasks/report?user_id="+fixedUserID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
