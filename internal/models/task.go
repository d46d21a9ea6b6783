package models

import "time"

// Task is a unit of work referenced from exactly one column.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Assignees   []string   `json:"assignees"`
	Labels      []string   `json:"labels"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Normalize replaces nil slices with empty ones.
func (t *Task) Normalize() {
	if t.Assignees == nil {
		t.Assignees = []string{}
	}
	if t.Labels == nil {
		t.Labels = []string{}
	}
}

// Overdue reports whether the task has a due date before now.
func (t Task) Overdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now)
}
