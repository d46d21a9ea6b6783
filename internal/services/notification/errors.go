package notification

import (
	"errors"

	"github.com/thenoetrevino/collabflow/internal/models"
)

// Initialization errors, in the order Initialize checks them
var (
	ErrAuthRequired        = errors.New("user must be authenticated to enable notifications")
	ErrUnsupportedPlatform = errors.New("push notifications are not supported on this platform")
	ErrInsecureContext     = errors.New("push notifications require a secure context")
	ErrPermissionDenied    = errors.New("notification permission denied")
	ErrNoToken             = errors.New("no registration token available")
)

// ErrInvalidPriority rejects a preferences patch with an unknown priority.
var ErrInvalidPriority = models.ErrInvalidPriority
