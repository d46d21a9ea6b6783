package board

import "errors"

// Board-related errors
var (
	// Validation errors
	ErrEmptyTitle   = errors.New("title cannot be empty")
	ErrTitleTooLong = errors.New("title cannot exceed 200 characters")

	// Precondition errors
	ErrNoBoardSelected = errors.New("no board selected")

	// Lookup errors
	ErrBoardNotFound  = errors.New("board not found")
	ErrColumnNotFound = errors.New("column not found")

	// ErrTaskNotInColumn means a move named a source column that no longer
	// holds the task.
	ErrTaskNotInColumn = errors.New("task not in source column")
)
