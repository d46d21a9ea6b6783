package push

import (
	"errors"
	"os"
	"syscall"
)

var (
	ErrNotConnected = errors.New("not connected to relay")
	ErrClosed       = errors.New("push client closed")
	ErrNoUser       = errors.New("no signed-in user to register")
)

// ErrorCode represents relay connection failure kinds.
type ErrorCode int

const (
	ErrSocketNotFound ErrorCode = iota
	ErrSocketPermission
	ErrRelayNotRunning
	ErrConnectionRefused
)

// RelayError is a connection failure with a hint for the user.
type RelayError struct {
	Code    ErrorCode
	Message string
	Hint    string
	Err     error
}

func (e *RelayError) Error() string {
	if e.Hint != "" {
		return e.Message + ". " + e.Hint
	}
	return e.Message
}

func (e *RelayError) Unwrap() error {
	return e.Err
}

// ClassifyRelayError maps dial errors to RelayError.
func ClassifyRelayError(err error) *RelayError {
	if err == nil {
		return nil
	}

	if errors.Is(err, os.ErrNotExist) {
		return &RelayError{
			Code:    ErrSocketNotFound,
			Message: "Relay socket not found",
			Hint:    "Start the relay: collabflow relay",
			Err:     err,
		}
	}

	if errors.Is(err, os.ErrPermission) {
		return &RelayError{
			Code:    ErrSocketPermission,
			Message: "Permission denied",
			Hint:    "Check the socket directory permissions: chmod 700 on its parent",
			Err:     err,
		}
	}

	var errno syscall.Errno
	if errors.As(err, &errno) && errno == syscall.ECONNREFUSED {
		return &RelayError{
			Code:    ErrConnectionRefused,
			Message: "Connection refused",
			Hint:    "The relay may have crashed. Restart it: collabflow relay",
			Err:     err,
		}
	}

	return &RelayError{
		Code:    ErrRelayNotRunning,
		Message: "Relay not running",
		Hint:    "Start the relay: collabflow relay",
		Err:     err,
	}
}
