package app

import (
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/thenoetrevino/collabflow/internal/docstore"
	"github.com/thenoetrevino/collabflow/internal/push"
	"github.com/thenoetrevino/collabflow/internal/types"
)

// Option is a functional option for configuring App initialization
type Option func(*appConfig)

// appConfig holds the configuration for App initialization
type appConfig struct {
	store          docstore.Store
	logger         *slog.Logger
	tracerProvider trace.TracerProvider
	out            io.Writer
	prompt         push.Prompter
	now            types.Clock
	newID          types.IDFunc
}

// WithStore uses store instead of opening the configured backend. The app
// does not close it.
func WithStore(store docstore.Store) Option {
	return func(cfg *appConfig) {
		cfg.store = store
	}
}

// WithLogger sets the logger for the application
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *appConfig) {
		cfg.logger = logger
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(cfg *appConfig) {
		cfg.tracerProvider = tp
	}
}

// WithOutput is where alerts and background notifications are printed.
func WithOutput(w io.Writer) Option {
	return func(cfg *appConfig) {
		cfg.out = w
	}
}

// WithPrompt asks the user for notification permission under the prompt
// policy.
func WithPrompt(p push.Prompter) Option {
	return func(cfg *appConfig) {
		cfg.prompt = p
	}
}

func WithClock(now types.Clock) Option {
	return func(cfg *appConfig) {
		cfg.now = now
	}
}

func WithIDs(newID types.IDFunc) Option {
	return func(cfg *appConfig) {
		cfg.newID = newID
	}
}
