package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/taskboard-api/internal/domain"
	"github.com/phrazzld/taskboard-api/internal/store"
)

// mockTaskStore is an in-memory store.TaskStore. Reads hand out copies so a
// caller's mutations only become visible through Update, the same contract a
// real database gives.
type mockTaskStore struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]domain.Task
	getCalls  int
	updateErr error
}

func newMockTaskStore() *mockTaskStore {
	return &mockTaskStore{tasks: make(map[uuid.UUID]domain.Task)}
}

func (m *mockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[task.ID] = *task
	return nil
}

func (m *mockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getCalls++
	task, ok := m.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	copied := task
	return &copied, nil
}

func (m *mockTaskStore) Update(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.tasks[task.ID]; !ok {
		return store.ErrTaskNotFound
	}
	m.tasks[task.ID] = *task
	return nil
}

func (m *mockTaskStore) List(ctx context.Context, filter store.TaskFilter) ([]*domain.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Task
	for _, task := range m.tasks {
		if filter.Match(&task) {
			copied := task
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if filter.Order == store.OrderRecentlyCompletedFirst {
			ti, tj := out[i].CompletedAt, out[j].CompletedAt
			if ti != nil && tj != nil {
				return ti.After(*tj)
			}
			return tj == nil
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *mockTaskStore) Count(ctx context.Context, filter store.TaskFilter) (int, error) {
	tasks, err := m.List(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(tasks), nil
}

func (m *mockTaskStore) WithTx(tx *sql.Tx) store.TaskStore { return m }
func (m *mockTaskStore) DB() *sql.DB                       { return nil }

// snapshot and restore emulate transaction rollback in tests.
func (m *mockTaskStore) snapshot() map[uuid.UUID]domain.Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make(map[uuid.UUID]domain.Task, len(m.tasks))
	for id, task := range m.tasks {
		copied[id] = task
	}
	return copied
}

func (m *mockTaskStore) restore(tasks map[uuid.UUID]domain.Task) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks = tasks
}

// mockUserStore is an in-memory store.UserStore.
type mockUserStore struct {
	mu    sync.Mutex
	users map[uuid.UUID]domain.User
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[uuid.UUID]domain.User)}
}

func (m *mockUserStore) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return store.ErrEmailExists
		}
	}
	m.users[user.ID] = *user
	return nil
}

func (m *mockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	copied := user
	return &copied, nil
}

func (m *mockUserStore) List(ctx context.Context) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.User
	for _, user := range m.users {
		copied := user
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out, nil
}

// mockCache is an in-memory Cache storing JSON-encoded values.
type mockCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes []string
	getErr  error
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string, dest any) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return false, m.getErr
	}
	data, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dest)
}

func (m *mockCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = data
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	m.deletes = append(m.deletes, key)
	return nil
}

func (m *mockCache) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

// mockNotifier records enqueued jobs.
type mockNotifier struct {
	mu       sync.Mutex
	enqueued []enqueuedJob
	err      error
}

type enqueuedJob struct {
	kind    string
	payload any
}

func (m *mockNotifier) Enqueue(ctx context.Context, kind string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, enqueuedJob{kind: kind, payload: payload})
	return nil
}

func (m *mockNotifier) kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.enqueued))
	for i, e := range m.enqueued {
		out[i] = e.kind
	}
	return out
}
