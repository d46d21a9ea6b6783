package models

import "time"

// Board is a kanban board. Column order is display order.
type Board struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Columns     []Column  `json:"columns"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Column is an ordered list of task ids on a board.
type Column struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	TaskIDs []string `json:"taskIds"`
}

// DefaultColumnTitles seed every new board.
var DefaultColumnTitles = []string{"To Do", "In Progress", "Done"}

// Normalize replaces nil slices with empty ones so a board always encodes
// "columns": [] and "taskIds": [].
func (b *Board) Normalize() {
	if b.Columns == nil {
		b.Columns = []Column{}
	}
	for i := range b.Columns {
		if b.Columns[i].TaskIDs == nil {
			b.Columns[i].TaskIDs = []string{}
		}
	}
}

// Clone returns a deep copy.
func (b Board) Clone() Board {
	out := b
	out.Columns = CloneColumns(b.Columns)
	return out
}

// CloneColumns deep-copies a columns array.
func CloneColumns(cols []Column) []Column {
	out := make([]Column, len(cols))
	for i, c := range cols {
		out[i] = Column{ID: c.ID, Title: c.Title, TaskIDs: append([]string{}, c.TaskIDs...)}
	}
	return out
}

// ColumnIndex returns the position of the column with id, or -1.
func (b Board) ColumnIndex(id string) int {
	for i, c := range b.Columns {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// Column looks up a column by id.
func (b Board) Column(id string) (Column, bool) {
	if i := b.ColumnIndex(id); i >= 0 {
		return b.Columns[i], true
	}
	return Column{}, false
}

// LocateTask returns the column holding taskID and the task's position in it.
func (b Board) LocateTask(taskID string) (columnID string, index int, ok bool) {
	for _, c := range b.Columns {
		for i, id := range c.TaskIDs {
			if id == taskID {
				return c.ID, i, true
			}
		}
	}
	return "", -1, false
}

// TaskCount is the number of task references across all columns.
func (b Board) TaskCount() int {
	n := 0
	for _, c := range b.Columns {
		n += len(c.TaskIDs)
	}
	return n
}
