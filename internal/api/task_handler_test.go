package api

import (
	"bytes"
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

// MockTaskService is a mock implementation of service.TaskService for testing
type MockTaskService struct {
	CreateFn          func(ctx context.Context, title string, createdBy uuid.UUID, params domain.NewTaskParams) (*domain.Task, error)
	GetFn             func(ctx context.Context, id uuid.UUID, useCache bool) (*domain.Task, error)
	UpdateFn          func(ctx context.Context, id uuid.UUID, params service.UpdateTaskParams) (*domain.Task, error)
	CompleteFn        func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	SoftDeleteFn      func(ctx context.Context, id uuid.UUID) error
	RestoreFn         func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	BulkAssignFn      func(ctx context.Context, taskIDs []uuid.UUID, assignee uuid.UUID) ([]*domain.Task, error)
	StatisticsFn      func(ctx context.Context, owner uuid.UUID) (domain.TaskStatistics, error)
	GetOverdueTasksFn func(ctx context.Context, useCache bool) ([]*domain.Task, error)
	ListByUserFn      func(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error)
}

var _ service.TaskService = (*MockTaskService)(nil)

func (m *MockTaskService) Create(ctx context.Context, title string, createdBy uuid.UUID, params domain.NewTaskParams) (*domain.Task, error) {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, title, createdBy, params)
	}
	return nil, nil
}

func (m *MockTaskService) Get(ctx context.Context, id uuid.UUID, useCache bool) (*domain.Task, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, id, useCache)
	}
	return nil, nil
}

func (m *MockTaskService) Update(ctx context.Context, id uuid.UUID, params service.UpdateTaskParams) (*domain.Task, error) {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, params)
	}
	return nil, nil
}

func (m *MockTaskService) Complete(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.CompleteFn != nil {
		return m.CompleteFn(ctx, id)
	}
	return nil, nil
}

func (m *MockTaskService) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if m.SoftDeleteFn != nil {
		return m.SoftDeleteFn(ctx, id)
	}
	return nil
}

func (m *MockTaskService) Restore(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if m.RestoreFn != nil {
		return m.RestoreFn(ctx, id)
	}
	return nil, nil
}

func (m *MockTaskService) BulkAssign(ctx context.Context, taskIDs []uuid.UUID, assignee uuid.UUID) ([]*domain.Task, error) {
	if m.BulkAssignFn != nil {
		return m.BulkAssignFn(ctx, taskIDs, assignee)
	}
	return nil, nil
}

func (m *MockTaskService) Statistics(ctx context.Context, owner uuid.UUID) (domain.TaskStatistics, error) {
	if m.StatisticsFn != nil {
		return m.StatisticsFn(ctx, owner)
	}
	return domain.TaskStatistics{}, nil
}

func (m *MockTaskService) GetOverdueTasks(ctx context.Context, useCache bool) ([]*domain.Task, error) {
	if m.GetOverdueTasksFn != nil {
		return m.GetOverdueTasksFn(ctx, useCache)
	}
	return nil, nil
}

func (m *MockTaskService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error) {
	if m.ListByUserFn != nil {
		return m.ListByUserFn(ctx, userID)
	}
	return nil, nil
}

func newTestTaskRouter(svc service.TaskService) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := NewTaskHandler(svc, logger)

	r := chi.NewRouter()
	r.Route("/api/tasks", func(r chi.Router) {
		r.Post("/", handler.Create)
		r.Get("/{id}", handler.Get)
		r.Patch("/{id}", handler.Update)
		r.Delete("/{id}", handler.Delete)
		r.Post("/{id}/complete", handler.Complete)
		r.Post("/{id}/restore", handler.Restore)
		r.Post("/bulk-assign", handler.BulkAssign)
		r.Get("/statistics", handler.Statistics)
		r.Get("/overdue", handler.Overdue)
		r.Get("/", handler.ListByUser)
	})
	return r
}

func sampleTask(id, createdBy uuid.UUID) *domain.Task {
	now := time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Task{
		ID:        id,
		Title:     "Write onboarding doc",
		Status:    domain.TaskStatusPending,
		Priority:  domain.TaskPriorityMedium,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestTaskHandler_Create(t *testing.T) {
	fixedTaskID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	fixedUserID := uuid.MustParse("11111111-1111-1111-1111-111111111111")

	tests := []struct {
		name           string
		body           interface{}
		setupMock      func(*MockTaskService)
		expectedStatus int
		expectedErrMsg string
	}{
		{
			name: "successful_creation",
			body: CreateTaskRequest{
				Title:     "Write onboarding doc",
				CreatedBy: fixedUserID.String(),
			},
			setupMock: func(ms *MockTaskService) {
				ms.CreateFn = func(ctx context.Context, title string, createdBy uuid.UUID, params domain.NewTaskParams) (*domain.Task, error) {
					return sampleTask(fixedTaskID, createdBy), nil
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "missing_title",
			body: CreateTaskRequest{
				CreatedBy: fixedUserID.String(),
			},
			setupMock:      func(ms *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
			expectedErrMsg: "title is required",
		},
		{
			name: "invalid_status_value",
			body: CreateTaskRequest{
				Title:     "Write onboarding doc",
				Status:    "archived",
				CreatedBy: fixedUserID.String(),
			},
			setupMock:      func(ms *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "malformed_created_by",
			body: map[string]string{
				"title":      "Write onboarding doc",
				"created_by": "not-a-uuid",
			},
			setupMock:      func(ms *MockTaskService) {},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "domain_validation_failure",
			body: CreateTaskRequest{
				Title:     "Write onboarding doc",
				CreatedBy: fixedUserID.String(),
			},
			setupMock: func(ms *MockTaskService) {
				ms.CreateFn = func(ctx context.Context, title string, createdBy uuid.UUID, params domain.NewTaskParams) (*domain.Task, error) {
					return nil, &domain.ValidationError{Field: "due_date", Message: "due date cannot be in the past", Err: domain.ErrTaskDueDatePast}
				}
			},
			expectedStatus: http.StatusBadRequest,
			expectedErrMsg: "due date cannot be in the past",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mock := &MockTaskService{}
			tc.setupMock(mock)
			router := newTestTaskRouter(mock)

			payload, err := json.Marshal(tc.body)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodPost, "/api/tasks", bytes.NewReader(payload))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.expectedStatus, rec.Code)

			if tc.expectedStatus == http.StatusCreated {
				var resp TaskResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, fixedTaskID.String(), resp.ID)
				assert.Equal(t, "Write onboarding doc", resp.Title)
				return
			}
			if tc.expectedErrMsg != "" {
				var errResp map[string]interface{}
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &errResp))
				assert.Contains(t, errResp["error"], tc.expectedErrMsg)
			}
		})
	}
}

func TestTaskHandler_Get(t *testing.T) {
	fixedTaskID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	fixedUserID := uuid.MustParse("11111111-1111-1111-1111-111111111111")

	t.Run("found", func(t *testing.T) {
		mock := &MockTaskService{
			GetFn: func(ctx context.Context, id uuid.UUID, useCache bool) (*domain.Task, error) {
				assert.True(t, useCache, "cache should be used by default")
				return sampleTask(id, fixedUserID), nil
			},
		}
		router := newTestTaskRouter(mock)

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+fixedTaskID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, fixedTaskID.String(), resp.ID)
	})

	t.Run("cache bypass via query parameter", func(t *testing.T) {
		mock := &MockTaskService{
			GetFn: func(ctx context.Context, id uuid.UUID, useCache bool) (*domain.Task, error) {
				assert.False(t, useCache)
				return sampleTask(id, fixedUserID), nil
			},
		}
		router := newTestTaskRouter(mock)

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+fixedTaskID.String()+"?use_cache=false", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not found maps to 404", func(t *testing.T) {
		mock := &MockTaskService{
			GetFn: func(ctx context.Context, id uuid.UUID, useCache bool) (*domain.Task, error) {
				return nil, store.ErrTaskNotFound
			},
		}
		router := newTestTaskRouter(mock)

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+fixedTaskID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id maps to 400", func(t *testing.T) {
		router := newTestTaskRouter(&MockTaskService{})

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/not-a-uuid", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTaskHandler_Complete(t *testing.T) {
	fixedTaskID := uuid.MustParse("22222222-2222-2222-2222-222222222222")
	fixedUserID := uuid.MustParse("11111111-1111-1111-1111-111111111111")

	t.Run("success", func(t *testing.T) {
		mock := &MockTaskService{
			CompleteFn: func(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
				task := sampleTask(id, fixedUserID)
				now := time.Now().UTC()
				task.Status = domain.TaskStatusCompleted
				task.CompletedAt = &now
				return task, nil
			},
		}
		router := newTestTaskRouter(mock)

		req := httptest.NewRequest(http.MethodPost, "/api/tasks/"+fixedTaskID.String()+"/complete", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, string(domain.TaskStatusCompleted), resp.Status)
		assert.NotNil(t, resp.CompletedAt)
	})

	t.Run("already completed maps to 409", func(t *testing.T) {
		mock := &MockTaskService{
			CompleteFn: func(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
				return nil, service.ErrTaskAlreadyCompleted
			},
		}
		router := newTestTaskRouter(mock)

		req := httptest.NewRequest(http.MethodPost, "/api/tasks/"+fixedTaskID.String()+"/complete", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func TestTaskHandler_Delete(t *testing.T) {
	fixedTaskID := uuid.MustParse("22222222-2222-2222-2222-222222222222")

	t.Run("success returns 204", func(t *testing.T) {
		deleted := false
		mock := &MockTaskService{
			SoftDeleteFn: func(ctx context.Context, id uuid.UUID) error {
				deleted = true
				assert.Equal(t, fixedTaskID, id)
				return nil
			},
		}
		router := newTestTaskRouter(mock)

		req := httptest.NewRequest(http.MethodDelete, "/api/tasks/"+fixedTaskID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.True(t, deleted)
	})

	t.Run("missing task maps to 404", func(t *testing.T) {
		mock := &MockTaskService{
			SoftDeleteFn: func(ctx context.Context, id uuid.UUID) error {
				return store.ErrTaskNotFound
			},
		}
		router := newTestTaskRouter(mock)

		req := httptest.NewRequest(http.MethodDelete, "/api/tasks/"+fixedTaskID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTaskHandler_BulkAssign(t *testing.T) {
	fixedUserID := uuid.MustParse("11111111-1111-1111-1111-111111111111")
	first := uuid.MustParse("33333333-3333-3333-3333-333333333333")
	second := uuid.MustParse("44444444-4444-4444-4444-444444444444")

	t.Run("assigns all listed tasks", func(t *testing.T) {
		mock := &MockTaskService{
			BulkAssignFn: func(ctx context.Context, taskIDs []uuid.UUID, assignee uuid.UUID) ([]*domain.Task, error) {
				assert.Equal(t, []uuid.UUID{first, second}, taskIDs)
				assert.Equal(t, fixedUserID, assignee)

				out := make([]*domain.Task, len(taskIDs))
				for i, id := range taskIDs {
					task := sampleTask(id, fixedUserID)
					task.AssignedTo = &assignee
					out[i] = task
				}
				return out, nil
			},
		}
		router := newTestTaskRouter(mock)

		body, err := json.Marshal(BulkAssignRequest{
			TaskIDs:    []string{first.String(), second.String()},
			AssignedTo: fixedUserID.String(),
		})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/tasks/bulk-assign", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var resp TaskListResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Count)
		require.Len(t, resp.Tasks, 2)
		assert.Equal(t, fixedUserID.String(), *resp.Tasks[0].AssignedTo)
	})

	t.Run("missing task rolls whole batch into 404", func(t *testing.T) {
		mock := &MockTaskService{
			BulkAssignFn: func(ctx context.Context, taskIDs []uuid.UUID, assignee uuid.UUID) ([]*domain.Task, error) {
				return nil, store.ErrTaskNotFound
			},
		}
		router := newTestTaskRouter(mock)

		body, err := json.Marshal(BulkAssignRequest{
			TaskIDs:    []string{first.String()},
			AssignedTo: fixedUserID.String(),
		})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/tasks/bulk-assign", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("empty task list fails validation", func(t *testing.T) {
		router := newTestTaskRouter(&MockTaskService{})

		body, err := json.Marshal(BulkAssignRequest{
			TaskIDs:    []string{},
			AssignedTo: fixedUserID.String(),
		})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/api/tasks/bulk-assign", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTaskHandler_Statistics(t *testing.T) {
	fixedUserID := uuid.MustParse("11111111-1111-1111-1111-111111111111")

	t.Run("returns aggregated counts", func(t *testing.T) {
		mock := &MockTaskService{
			StatisticsFn: func(ctx context.Context, owner uuid.UUID) (domain.TaskStatistics, error) {
				assert.Equal(t, fixedUserID, owner)
				return domain.TaskStatistics{Total: 5, Pending: 2, Completed: 3}, nil
			},
		}
		router := newTestTaskRouter(mock)

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/statistics?user_id="+fixedUserID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)

		var stats domain.TaskStatistics
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
		assert.Equal(t, 5, stats.Total)
		assert.Equal(t, 3, stats.Completed)
	})

	t.Run("missing user_id maps to 400", func(t *testing.T) {
		router := newTestTaskRouter(&MockTaskService{})

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/statistics", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestTaskHandler_Overdue(t *testing.T) {
	fixedUserID := uuid.MustParse("11111111-1111-1111-1111-111111111111")

	mock := &MockTaskService{
		GetOverdueTasksFn: func(ctx context.Context, useCache bool) ([]*domain.Task, error) {
			past := time.Now().UTC().Add(-time.Hour)
			task := sampleTask(uuid.New(), fixedUserID)
			task.DueDate = &past
			return []*domain.Task{task}, nil
		},
	}
	router := newTestTaskRouter(mock)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks/overdue", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp TaskListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.True(t, resp.Tasks[0].IsOverdue)
}
