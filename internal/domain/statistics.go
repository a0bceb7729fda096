package domain

// TaskStatistics holds the per-owner task counts reported by the statistics
// operation and the daily summary emails.
type TaskStatistics struct {
	Total        int `json:"total"`
	Pending      int `json:"pending"`
	InProgress   int `json:"in_progress"`
	Completed    int `json:"completed"`
	Overdue      int `json:"overdue"`
	HighPriority int `json:"high_priority"`
}
