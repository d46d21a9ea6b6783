package types

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// IDFunc mints document ids. Services take one so tests can use predictable
// ids.
type IDFunc func() string

// NewID returns a random UUID string.
func NewID() string {
	return uuid.NewString()
}

// Sequence returns an IDFunc producing prefix-1, prefix-2, ...
func Sequence(prefix string) IDFunc {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

// Clock returns the current time. Services take one for deterministic tests.
type Clock func() time.Time
