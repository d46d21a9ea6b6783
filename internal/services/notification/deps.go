package notification

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/thenoetrevino/collabflow/internal/models"
)

// Permission is the user's answer to a notification permission request.
type Permission string

const (
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
	PermissionDefault Permission = "default"
)

// Messaging is the push service the pipeline registers with.
type Messaging interface {
	RequestPermission(ctx context.Context) (Permission, error)
	// RegisterWorker installs the background delivery worker.
	RegisterWorker(ctx context.Context) error
	// Token returns the device token pushes are addressed to.
	Token(ctx context.Context) (string, error)
	// OnMessage routes foreground deliveries to fn until the returned func
	// is called.
	OnMessage(fn func(models.PushPayload)) (func(), error)
}

// Platform reports what the runtime can do.
type Platform interface {
	Supported() bool
	SecureContext() bool
}

// SoundPlayer plays the cue for a notification type.
type SoundPlayer interface {
	Play(t models.NotificationType) error
}

// Alerter shows transient messages to the user.
type Alerter interface {
	Info(msg string)
	Success(msg string)
	Error(msg string)
}

type nopAlerter struct{}

func (nopAlerter) Info(string)    {}
func (nopAlerter) Success(string) {}
func (nopAlerter) Error(string)   {}

type nopSound struct{}

func (nopSound) Play(models.NotificationType) error { return nil }

// BellPlayer rings the terminal bell in place of the type's sound asset.
type BellPlayer struct {
	W      io.Writer
	Logger *slog.Logger
}

func (b BellPlayer) Play(t models.NotificationType) error {
	if b.Logger != nil {
		b.Logger.Debug("playing notification sound", "type", t, "asset", SoundPath(t))
	}
	_, err := fmt.Fprint(b.W, "\a")
	return err
}

// WriterAlerter prints alerts as prefixed lines.
type WriterAlerter struct {
	W io.Writer
}

func (a WriterAlerter) Info(msg string)    { fmt.Fprintf(a.W, "• %s\n", msg) }
func (a WriterAlerter) Success(msg string) { fmt.Fprintf(a.W, "✓ %s\n", msg) }
func (a WriterAlerter) Error(msg string)   { fmt.Fprintf(a.W, "✗ %s\n", msg) }
