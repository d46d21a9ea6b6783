package cli

import (
	"errors"
	"fmt"

	"github.com/thenoetrevino/collabflow/internal/docstore"
	"github.com/thenoetrevino/collabflow/internal/models"
	"github.com/thenoetrevino/collabflow/internal/push"
	boardservice "github.com/thenoetrevino/collabflow/internal/services/board"
	notificationservice "github.com/thenoetrevino/collabflow/internal/services/notification"
	projectservice "github.com/thenoetrevino/collabflow/internal/services/project"
)

// Exit codes for CLI commands.
// These codes follow Unix conventions and provide consistent error reporting
// across all CLI commands.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitGeneral indicates a general error occurred.
	// Use for: Store errors, relay errors, unexpected failures,
	// or any error that doesn't fit the specific categories below.
	ExitGeneral = 1

	// ExitUsage indicates incorrect command usage.
	// Use for: Missing required flags, invalid flag combinations,
	// or when the user needs to provide different arguments.
	ExitUsage = 2

	// ExitNotFound indicates a requested resource was not found.
	// Use for: Board, column, task or project ids that don't exist.
	ExitNotFound = 3

	// ExitDataErr indicates invalid or malformed data.
	// Use for: Invalid JSON input or documents that cannot be decoded.
	ExitDataErr = 4

	// ExitValidation indicates a validation error.
	// Use for: Empty titles, invalid priorities, unparseable dates,
	// or any case where input fails validation rules.
	ExitValidation = 5

	// ExitUnavailable indicates notifications cannot work here.
	// Use for: Missing permission, no signed-in user, relay not running.
	ExitUnavailable = 6
)

// ExitError carries the process exit code for a failed command. The message
// has already been printed by the formatter.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// Classify maps an error to an exit code and a machine-readable code.
func Classify(err error) (int, string) {
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code, "ERROR"
	}

	var relayErr *push.RelayError
	switch {
	case errors.Is(err, boardservice.ErrBoardNotFound),
		errors.Is(err, boardservice.ErrColumnNotFound),
		errors.Is(err, boardservice.ErrTaskNotInColumn),
		errors.Is(err, projectservice.ErrProjectNotFound),
		errors.Is(err, ErrTaskNotFound),
		errors.Is(err, docstore.ErrNotFound):
		return ExitNotFound, "NOT_FOUND"

	case errors.Is(err, boardservice.ErrEmptyTitle),
		errors.Is(err, boardservice.ErrTitleTooLong),
		errors.Is(err, projectservice.ErrEmptyName),
		errors.Is(err, projectservice.ErrNameTooLong),
		errors.Is(err, projectservice.ErrBadDates),
		errors.Is(err, models.ErrInvalidPriority),
		errors.Is(err, ErrInvalidDate):
		return ExitValidation, "VALIDATION_ERROR"

	case errors.Is(err, boardservice.ErrNoBoardSelected),
		errors.Is(err, projectservice.ErrNoProjectContext):
		return ExitUsage, "NO_CONTEXT"

	case errors.Is(err, notificationservice.ErrAuthRequired),
		errors.Is(err, projectservice.ErrAuthRequired),
		errors.Is(err, push.ErrNoUser):
		return ExitUnavailable, "AUTH_REQUIRED"

	case errors.Is(err, notificationservice.ErrUnsupportedPlatform),
		errors.Is(err, notificationservice.ErrInsecureContext),
		errors.Is(err, notificationservice.ErrPermissionDenied),
		errors.Is(err, notificationservice.ErrNoToken),
		errors.As(err, &relayErr):
		return ExitUnavailable, "NOTIFICATIONS_UNAVAILABLE"
	}

	var pe *docstore.PersistenceError
	if errors.As(err, &pe) {
		return ExitGeneral, "STORE_ERROR"
	}
	return ExitGeneral, "ERROR"
}

// Fail prints err through f and returns it as an ExitError.
func Fail(f *OutputFormatter, err error) error {
	return FailWithSuggestion(f, err, suggestionFor(err))
}

// FailWithSuggestion is Fail with an explicit hint.
func FailWithSuggestion(f *OutputFormatter, err error, suggestion string) error {
	code, name := Classify(err)
	_ = f.ErrorWithSuggestion(name, err.Error(), suggestion)
	return &ExitError{Code: code, Err: err}
}

// Usage reports a usage error.
func Usage(f *OutputFormatter, format string, args ...any) error {
	err := fmt.Errorf(format, args...)
	_ = f.Error("USAGE_ERROR", err.Error())
	return &ExitError{Code: ExitUsage, Err: err}
}

func suggestionFor(err error) string {
	var relayErr *push.RelayError
	switch {
	case errors.As(err, &relayErr):
		return relayErr.Hint
	case errors.Is(err, boardservice.ErrBoardNotFound):
		return "Use 'collabflow board list' to see available boards"
	case errors.Is(err, boardservice.ErrColumnNotFound):
		return "Use 'collabflow board show' to see the board's columns"
	case errors.Is(err, ErrTaskNotFound):
		return "Use 'collabflow board show' to see the board's tasks"
	case errors.Is(err, projectservice.ErrProjectNotFound):
		return "Use 'collabflow project list' to see your projects"
	case errors.Is(err, notificationservice.ErrAuthRequired),
		errors.Is(err, projectservice.ErrAuthRequired),
		errors.Is(err, push.ErrNoUser):
		return "Set user.id in the config file or COLLABFLOW_USER"
	case errors.Is(err, notificationservice.ErrPermissionDenied):
		return "Set notifications.permission to granted or prompt"
	default:
		return ""
	}
}
