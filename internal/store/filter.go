package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskboard-api/internal/domain"
)

// TaskOrder selects the ordering applied to task listings.
type TaskOrder int

const (
	// OrderNewestFirst orders by creation time, newest first. This is the
	// default ordering for task listings.
	OrderNewestFirst TaskOrder = iota

	// OrderRecentlyCompletedFirst orders by completion time, newest first.
	// Used by the completed-task view.
	OrderRecentlyCompletedFirst
)

// TaskFilter is a composable, conjunctive predicate set over tasks.
//
// Each predicate method returns a modified copy, so filters chain like
//
//	store.Tasks().Active().Completed().CreatedBy(userID)
//
// Predicates compose by logical AND and are order-independent: every
// predicate accumulates into its own field, so applying the same set in any
// sequence yields the same result set. Contradictory chains (for example
// Completed().Pending()) match nothing rather than last-one-wins.
//
// The filter is consumed two ways: store implementations translate it into
// query clauses, and Match evaluates it against an in-memory task, which
// keeps the predicate semantics testable without a database.
type TaskFilter struct {
	ActiveOnly  bool
	DeletedOnly bool

	Statuses        []domain.TaskStatus
	ExcludeStatuses []domain.TaskStatus
	Priorities      []domain.TaskPriority
	Creators        []uuid.UUID
	Assignees       []uuid.UUID

	// MaxDue restricts to tasks with a due date strictly before this time.
	MaxDue *time.Time

	// MinCompleted restricts to tasks completed at or after this time.
	MinCompleted *time.Time

	// MaxCompleted restricts to tasks completed strictly before this time.
	MaxCompleted *time.Time

	Order TaskOrder
}

// Tasks returns an empty filter matching every task, deleted ones included.
func Tasks() TaskFilter {
	return TaskFilter{}
}

// Active restricts to non-deleted tasks.
func (f TaskFilter) Active() TaskFilter {
	f.ActiveOnly = true
	return f
}

// Deleted restricts to soft-deleted tasks.
func (f TaskFilter) Deleted() TaskFilter {
	f.DeletedOnly = true
	return f
}

// Completed restricts to active tasks with the completed status.
func (f TaskFilter) Completed() TaskFilter {
	return f.withStatus(domain.TaskStatusCompleted)
}

// Pending restricts to active tasks with the pending status.
func (f TaskFilter) Pending() TaskFilter {
	return f.withStatus(domain.TaskStatusPending)
}

// InProgress restricts to active tasks with the in_progress status.
func (f TaskFilter) InProgress() TaskFilter {
	return f.withStatus(domain.TaskStatusInProgress)
}

func (f TaskFilter) withStatus(status domain.TaskStatus) TaskFilter {
	f.ActiveOnly = true
	f.Statuses = appendUnique(f.Statuses, status)
	return f
}

// OverdueAt restricts to active tasks whose due date has passed as of now
// and that are not completed. Tasks without a due date are vacuously not
// overdue and never match.
func (f TaskFilter) OverdueAt(now time.Time) TaskFilter {
	f.ActiveOnly = true
	f.ExcludeStatuses = appendUnique(f.ExcludeStatuses, domain.TaskStatusCompleted)
	f = f.dueBefore(now)
	return f
}

// ByPriority restricts to active tasks with the given priority.
func (f TaskFilter) ByPriority(priority domain.TaskPriority) TaskFilter {
	f.ActiveOnly = true
	f.Priorities = appendUnique(f.Priorities, priority)
	return f
}

// HighPriority restricts to active high-priority tasks.
func (f TaskFilter) HighPriority() TaskFilter {
	return f.ByPriority(domain.TaskPriorityHigh)
}

// CreatedBy restricts to active tasks created by the given user.
func (f TaskFilter) CreatedBy(userID uuid.UUID) TaskFilter {
	f.ActiveOnly = true
	f.Creators = appendUnique(f.Creators, userID)
	return f
}

// AssignedTo restricts to active tasks assigned to the given user.
func (f TaskFilter) AssignedTo(userID uuid.UUID) TaskFilter {
	f.ActiveOnly = true
	f.Assignees = appendUnique(f.Assignees, userID)
	return f
}

// CompletedSince restricts to tasks completed at or after the given time.
func (f TaskFilter) CompletedSince(t time.Time) TaskFilter {
	if f.MinCompleted == nil || t.After(*f.MinCompleted) {
		f.MinCompleted = &t
	}
	return f
}

// CompletedOlderThan restricts to tasks completed strictly before the given time.
func (f TaskFilter) CompletedOlderThan(t time.Time) TaskFilter {
	if f.MaxCompleted == nil || t.Before(*f.MaxCompleted) {
		f.MaxCompleted = &t
	}
	return f
}

// RecentlyCompletedFirst orders results by completion time, newest first.
func (f TaskFilter) RecentlyCompletedFirst() TaskFilter {
	f.Order = OrderRecentlyCompletedFirst
	return f
}

func (f TaskFilter) dueBefore(t time.Time) TaskFilter {
	// Conjunction of bounds keeps the tightest one.
	if f.MaxDue == nil || t.Before(*f.MaxDue) {
		f.MaxDue = &t
	}
	return f
}

// Match evaluates the filter against a single task.
func (f TaskFilter) Match(t *domain.Task) bool {
	if f.ActiveOnly && t.IsDeleted {
		return false
	}
	if f.DeletedOnly && !t.IsDeleted {
		return false
	}

	for _, status := range f.Statuses {
		if t.Status != status {
			return false
		}
	}
	for _, status := range f.ExcludeStatuses {
		if t.Status == status {
			return false
		}
	}
	for _, priority := range f.Priorities {
		if t.Priority != priority {
			return false
		}
	}
	for _, creator := range f.Creators {
		if t.CreatedBy != creator {
			return false
		}
	}
	for _, assignee := range f.Assignees {
		if t.AssignedTo == nil || *t.AssignedTo != assignee {
			return false
		}
	}

	if f.MaxDue != nil {
		if t.DueDate == nil || !t.DueDate.Before(*f.MaxDue) {
			return false
		}
	}
	if f.MinCompleted != nil {
		if t.CompletedAt == nil || t.CompletedAt.Before(*f.MinCompleted) {
			return false
		}
	}
	if f.MaxCompleted != nil {
		if t.CompletedAt == nil || !t.CompletedAt.Before(*f.MaxCompleted) {
			return false
		}
	}

	return true
}

func appendUnique[T comparable](values []T, value T) []T {
	for _, v := range values {
		if v == value {
			return values
		}
	}
	// Copy on append so chained filters never share backing arrays.
	out := make([]T, len(values), len(values)+1)
	copy(out, values)
	return append(out, value)
}
