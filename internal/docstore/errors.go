package docstore

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("document not found")
	ErrInvalidPath = errors.New("invalid document path")
	ErrClosed      = errors.New("document store closed")
	ErrBadFilter   = errors.New("unsupported filter operator")
)

// PersistenceError reports a failed remote read or write made on behalf of
// a service operation.
type PersistenceError struct {
	Op   string
	Path string
	Err  error
}

func (e *PersistenceError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("persistence: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("persistence: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Persist wraps err as a PersistenceError. It returns nil for a nil err and
// leaves an existing PersistenceError untouched.
func Persist(op string, target fmt.Stringer, err error) error {
	if err == nil {
		return nil
	}
	var pe *PersistenceError
	if errors.As(err, &pe) {
		return err
	}
	path := ""
	if target != nil {
		path = target.String()
	}
	return &PersistenceError{Op: op, Path: path, Err: err}
}
