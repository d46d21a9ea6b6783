// Package serve holds the long-running cli commands: the push relay and the
// HTTP API.
package serve

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
	"github.com/thenoetrevino/collabflow/internal/relay"
)

// RelayCmd returns the relay command
func RelayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the push relay",
		Long: `Run the relay that fans pushes out to subscribed devices. It listens on
a unix socket in a private directory until interrupted.`,
		RunE: runRelay,
	}

	cmd.Flags().String("socket", "", "Socket path (defaults to relay.socket from the config)")

	return cmd
}

func runRelay(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	formatter := cli.NewFormatter(cmd)

	cliInstance, err := cli.GetCLIFromContext(ctx)
	if err != nil {
		return cli.Fail(formatter, err)
	}
	defer func() {
		if err := cliInstance.Close(); err != nil {
			slog.Error("failed to close CLI", "error", err)
		}
	}()

	socket, _ := cmd.Flags().GetString("socket")
	if socket == "" {
		socket = cliInstance.App.Config.Relay.Socket
	}

	server, err := relay.NewServer(socket, relay.WithLogger(cliInstance.App.Logger))
	if err != nil {
		return cli.Fail(formatter, err)
	}

	slog.Info("collabflow relay starting", "socket_path", socket, "pid", os.Getpid())
	formatter.Message("Relay listening on %s (Ctrl+C to stop)", socket)

	// Blocks until shutdown
	if err := server.Start(ctx); err != nil {
		slog.Error("relay error", "error", err)
		return cli.Fail(formatter, err)
	}

	slog.Info("collabflow relay shutting down gracefully")
	return nil
}
