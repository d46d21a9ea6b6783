// Command relay runs the push relay on its own, for service managers that
// start it outside the collabflow CLI.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/thenoetrevino/collabflow/internal/config"
	"github.com/thenoetrevino/collabflow/internal/logging"
	"github.com/thenoetrevino/collabflow/internal/relay"
)

func main() {
	// Set up signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		slog.Error("invalid log level", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, level)
	slog.SetDefault(logger)

	// NewServer creates the socket directory with owner-only permissions
	server, err := relay.NewServer(cfg.Relay.Socket, relay.WithLogger(logger))
	if err != nil {
		slog.Error("failed to create relay", "error", err)
		os.Exit(1)
	}

	slog.Info("collabflow relay starting", "socket_path", cfg.Relay.Socket, "pid", os.Getpid())

	// Start the relay (blocks until shutdown)
	if err := server.Start(ctx); err != nil {
		slog.Error("relay error", "error", err)
		os.Exit(1)
	}

	slog.Info("collabflow relay shutting down gracefully")
}
