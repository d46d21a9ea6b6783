// Package worker shows pushes that arrive while no foreground handler is
// listening and routes clicks on them.
package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/thenoetrevino/collabflow/internal/models"
)

const (
	DefaultTag   = "default"
	DefaultURL   = "/"
	DefaultIcon  = "/logo192.png"
	DefaultBadge = "/badge.png"
)

// VibratePattern is used when the user enabled vibration.
var VibratePattern = []int{100, 50, 100}

// Options is how a background notification is displayed.
type Options struct {
	Title              string                      `json:"title"`
	Body               string                      `json:"body"`
	Icon               string                      `json:"icon"`
	Badge              string                      `json:"badge"`
	Vibrate            []int                       `json:"vibrate,omitempty"`
	Silent             bool                        `json:"silent"`
	RequireInteraction bool                        `json:"requireInteraction"`
	Actions            []models.NotificationAction `json:"actions,omitempty"`
	Tag                string                      `json:"tag"`
	Renotify           bool                        `json:"renotify"`
	URL                string                      `json:"url"`
}

// Display shows rendered notifications.
type Display interface {
	Show(ctx context.Context, opts Options) error
}

// Window is an open client window.
type Window interface {
	URL() string
	Focus(ctx context.Context) error
}

// Windows lists and opens client windows.
type Windows interface {
	List(ctx context.Context) ([]Window, error)
	Open(ctx context.Context, url string) error
}

// Click is a user interaction with a shown notification. Action is empty
// for a click on the notification body.
type Click struct {
	Action string
	URL    string
}

// Worker renders background deliveries and handles clicks.
type Worker struct {
	display Display
	windows Windows
	logger  *slog.Logger
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func WithWindows(windows Windows) Option {
	return func(w *Worker) { w.windows = windows }
}

func New(display Display, opts ...Option) *Worker {
	w := &Worker{display: display, logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Render maps a push payload to display options. Missing preferences count
// as everything enabled.
func Render(p models.PushPayload) Options {
	prefs := models.DefaultNotificationPreferences()
	if p.Data.Preferences != nil {
		prefs = *p.Data.Preferences
	}

	opts := Options{
		Title:              p.Notification.Title,
		Body:               p.Notification.Body,
		Icon:               DefaultIcon,
		Badge:              DefaultBadge,
		Silent:             !prefs.SoundEnabled,
		RequireInteraction: p.Data.RequireInteraction == "true",
		Actions:            append([]models.NotificationAction(nil), p.Data.Actions...),
		Tag:                p.Data.Tag,
		Renotify:           p.Data.Renotify == "true",
		URL:                p.Data.URL,
	}
	if prefs.VibrationEnabled {
		opts.Vibrate = append([]int(nil), VibratePattern...)
	}
	if opts.Tag == "" {
		opts.Tag = DefaultTag
	}
	if opts.URL == "" {
		opts.URL = DefaultURL
	}
	return opts
}

// HandleBackground shows a delivery.
func (w *Worker) HandleBackground(ctx context.Context, p models.PushPayload) error {
	opts := Render(p)
	w.logger.Debug("showing background notification", "tag", opts.Tag, "type", p.Data.Type)
	if err := w.display.Show(ctx, opts); err != nil {
		return fmt.Errorf("show notification: %w", err)
	}
	return nil
}

// HandleClick focuses the window already showing the notification's URL,
// or opens a new one. Action buttons are only logged.
func (w *Worker) HandleClick(ctx context.Context, c Click) error {
	if c.Action != "" {
		w.logger.Info("notification action clicked", "action", c.Action)
		return nil
	}
	if w.windows == nil {
		w.logger.Debug("no window manager, ignoring click", "url", c.URL)
		return nil
	}

	url := c.URL
	if url == "" {
		url = DefaultURL
	}

	windows, err := w.windows.List(ctx)
	if err != nil {
		return fmt.Errorf("list windows: %w", err)
	}
	for _, win := range windows {
		if win.URL() == url {
			return win.Focus(ctx)
		}
	}
	return w.windows.Open(ctx, url)
}
