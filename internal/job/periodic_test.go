package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskboard-api/internal/domain"
)

// fakeStats serves canned statistics per user.
type fakeStats struct {
	stats map[uuid.UUID]domain.TaskStatistics
	err   error
}

func (f *fakeStats) Statistics(ctx context.Context, ownerID uuid.UUID) (domain.TaskStatistics, error) {
	if f.err != nil {
		return domain.TaskStatistics{}, f.err
	}
	return f.stats[ownerID], nil
}

// fakeOverdue serves a fixed overdue task list.
type fakeOverdue struct {
	tasks []*domain.Task
	err   error
}

func (f *fakeOverdue) OverdueTasks(ctx context.Context) ([]*domain.Task, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tasks, nil
}

// fakeEnqueuer records enqueued kinds and payloads.
type fakeEnqueuer struct {
	mu       sync.Mutex
	enqueued []struct {
		kind    string
		payload any
	}
	err error
}

func (f *fakeEnqueuer) Enqueue(ctx context.Context, kind string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.enqueued = append(f.enqueued, struct {
		kind    string
		payload any
	}{kind, payload})
	return nil
}

func (f *fakeEnqueuer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.enqueued)
}

func TestCleanupJob(t *testing.T) {
	t.Parallel()

	t.Run("runs the sweep with the configured threshold", func(t *testing.T) {
		t.Parallel()

		archiver := &fakeArchiver{archived: 4}
		job, err := NewCleanupJob(archiver, 30, testLogger())
		require.NoError(t, err)

		require.NoError(t, job.Execute(context.Background()))
		assert.Equal(t, 1, archiver.calls)
		assert.Equal(t, 30, archiver.lastDays)
	})

	t.Run("sweep failure propagates", func(t *testing.T) {
		t.Parallel()

		archiver := &fakeArchiver{err: errors.New("database offline")}
		job, err := NewCleanupJob(archiver, 30, testLogger())
		require.NoError(t, err)

		err = job.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cleanup of old completed tasks failed")
	})

	t.Run("nil archiver", func(t *testing.T) {
		t.Parallel()

		job, err := NewCleanupJob(nil, 30, testLogger())
		assert.Nil(t, job)
		assert.ErrorIs(t, err, ErrNilArchiver)
	})
}

func TestDailySummaryJob(t *testing.T) {
	t.Parallel()

	active := makeUser("active@example.com", "Ada")
	idle := makeUser("idle@example.com", "Ivo")
	noEmail := makeUser("", "Nameless")

	newJob := func(t *testing.T, mailer *fakeMailer) *DailySummaryJob {
		t.Helper()

		_, users, _ := notificationDeps(active, idle, noEmail)
		stats := &fakeStats{stats: map[uuid.UUID]domain.TaskStatistics{
			active.ID:  {Total: 5, Pending: 2, InProgress: 1, Completed: 2, Overdue: 1, HighPriority: 1},
			idle.ID:    {},
			noEmail.ID: {Total: 3},
		}}

		job, err := NewDailySummaryJob(users, stats, mailer, testLogger())
		require.NoError(t, err)
		return job
	}

	t.Run("sends only to users with email and active tasks", func(t *testing.T) {
		t.Parallel()

		mailer := &fakeMailer{}
		job := newJob(t, mailer)
		job.now = func() time.Time { return time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC) }

		require.NoError(t, job.Execute(context.Background()))

		sent := mailer.Sent()
		require.Len(t, sent, 1)
		assert.Equal(t, []string{"active@example.com"}, sent[0].To)
		assert.Equal(t, "Daily Task Summary - 2026-09-01", sent[0].Subject)
		assert.Contains(t, sent[0].Body, "Hello Ada")
		assert.Contains(t, sent[0].Body, "Total Tasks: 5")
		assert.Contains(t, sent[0].Body, "Overdue: 1")
	})

	t.Run("send failures do not fail the batch", func(t *testing.T) {
		t.Parallel()

		mailer := &fakeMailer{err: errors.New("smtp refused")}
		job := newJob(t, mailer)

		assert.NoError(t, job.Execute(context.Background()))
	})
}

func TestOverdueCheckJob(t *testing.T) {
	t.Parallel()

	t.Run("enqueues one reminder per overdue task", func(t *testing.T) {
		t.Parallel()

		first := uuid.New()
		second := uuid.New()
		overdue := &fakeOverdue{tasks: []*domain.Task{
			{ID: first},
			{ID: second},
		}}
		enqueuer := &fakeEnqueuer{}

		job, err := NewOverdueCheckJob(overdue, enqueuer, testLogger())
		require.NoError(t, err)

		require.NoError(t, job.Execute(context.Background()))
		require.Equal(t, 2, enqueuer.count())

		assert.Equal(t, KindTaskReminder, enqueuer.enqueued[0].kind)
		assert.Equal(t, TaskPayload{TaskID: first}, enqueuer.enqueued[0].payload)
		assert.Equal(t, TaskPayload{TaskID: second}, enqueuer.enqueued[1].payload)
	})

	t.Run("enqueue failures are logged, not fatal", func(t *testing.T) {
		t.Parallel()

		overdue := &fakeOverdue{tasks: []*domain.Task{{ID: uuid.New()}}}
		enqueuer := &fakeEnqueuer{err: errors.New("queue is full")}

		job, err := NewOverdueCheckJob(overdue, enqueuer, testLogger())
		require.NoError(t, err)

		assert.NoError(t, job.Execute(context.Background()))
	})

	t.Run("listing failure propagates", func(t *testing.T) {
		t.Parallel()

		overdue := &fakeOverdue{err: errors.New("database offline")}
		enqueuer := &fakeEnqueuer{}

		job, err := NewOverdueCheckJob(overdue, enqueuer, testLogger())
		require.NoError(t, err)

		err = job.Execute(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to list overdue tasks")
	})
}

func TestScheduler(t *testing.T) {
	t.Parallel()

	t.Run("enqueues on each tick", func(t *testing.T) {
		t.Parallel()

		enqueuer := &fakeEnqueuer{}
		scheduler := NewScheduler(enqueuer, []Schedule{
			{Kind: KindCheckOverdueTasks, Interval: 20 * time.Millisecond},
		}, testLogger())

		scheduler.Start()

		deadline := time.After(2 * time.Second)
		for enqueuer.count() < 2 {
			select {
			case <-deadline:
				t.Fatal("timed out waiting for scheduled enqueues")
			case <-time.After(5 * time.Millisecond):
			}
		}
		scheduler.Stop()

		enqueuer.mu.Lock()
		defer enqueuer.mu.Unlock()
		for _, e := range enqueuer.enqueued {
			assert.Equal(t, KindCheckOverdueTasks, e.kind)
		}
	})

	t.Run("non-positive interval disables the schedule", func(t *testing.T) {
		t.Parallel()

		enqueuer := &fakeEnqueuer{}
		scheduler := NewScheduler(enqueuer, []Schedule{
			{Kind: KindDailyTaskSummary, Interval: 0},
		}, testLogger())

		scheduler.Start()
		time.Sleep(50 * time.Millisecond)
		scheduler.Stop()

		assert.Zero(t, enqueuer.count())
	})
}
