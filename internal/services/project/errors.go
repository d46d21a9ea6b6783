package project

import "errors"

// Domain errors for project service
var (
	// Validation errors
	ErrEmptyName   = errors.New("project name cannot be empty")
	ErrNameTooLong = errors.New("project name cannot exceed 100 characters")
	ErrBadDates    = errors.New("project end date is before its start date")

	// Precondition errors
	ErrAuthRequired     = errors.New("user not authenticated")
	ErrNoProjectContext = errors.New("no project selected")

	// Lookup errors
	ErrProjectNotFound = errors.New("project not found")
)
