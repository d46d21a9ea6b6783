// Package httpapi exposes boards and notifications over HTTP: a server-sent
// events stream of board snapshots and an endpoint that sends notifications.
package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/thenoetrevino/collabflow/internal/models"
	"github.com/thenoetrevino/collabflow/internal/relay"
	boardservice "github.com/thenoetrevino/collabflow/internal/services/board"
	notificationservice "github.com/thenoetrevino/collabflow/internal/services/notification"
	"github.com/thenoetrevino/collabflow/internal/types"
)

// Authenticator resolves the user behind an Authorization header.
type Authenticator interface {
	UserIDFromAuthHeader(header string) (string, error)
}

// NotificationSender stores a notification and pushes it to the recipient.
type NotificationSender interface {
	Send(ctx context.Context, userID string, in notificationservice.NewNotification) (models.Notification, error)
}

// Deps wires the API. Metrics may be nil when the relay runs elsewhere.
type Deps struct {
	Auth   Authenticator
	Sender NotificationSender
	// Boards returns a board service of its own for each stream.
	Boards    func() boardservice.Service
	Metrics   func() relay.Snapshot
	Logger    *slog.Logger
	Now       types.Clock
	KeepAlive time.Duration
}

// New builds the echo server with every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	Register(e, d)
	return e
}

// Register adds the API routes to e.
func Register(e *echo.Echo, d Deps) {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	if d.KeepAlive <= 0 {
		d.KeepAlive = 15 * time.Second
	}

	e.GET("/healthz", healthz)
	e.GET("/relay/metrics", relayMetrics(d.Metrics))

	authed := e.Group("", requireUser(d.Auth, d.Logger))
	authed.GET("/boards/:id/stream", streamBoard(d))
	authed.POST("/notifications", postNotification(d.Sender, d.Logger))
}

// Serve runs e on addr until ctx is cancelled, then shuts it down.
func Serve(ctx context.Context, e *echo.Echo, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
