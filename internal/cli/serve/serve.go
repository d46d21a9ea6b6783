package serve

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
	"github.com/thenoetrevino/collabflow/internal/httpapi"
	"github.com/thenoetrevino/collabflow/internal/relay"
	boardservice "github.com/thenoetrevino/collabflow/internal/services/board"
)

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve board streams and the notification endpoint over HTTP.

By default the push relay runs inside the same process; use --relay=false
to push through a relay started with 'collabflow relay'.

Routes:
  GET  /healthz
  GET  /boards/:id/stream     server-sent events, token as Bearer or ?token=
  POST /notifications         store and push a notification
  GET  /relay/metrics         counters of the embedded relay`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "Listen address (defaults to http.addr from the config)")
	cmd.Flags().Bool("relay", true, "Run the push relay in this process")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	formatter := cli.NewFormatter(cmd)
	addr, _ := cmd.Flags().GetString("addr")
	embedRelay, _ := cmd.Flags().GetBool("relay")

	cliInstance, err := cli.GetCLIFromContext(ctx)
	if err != nil {
		return cli.Fail(formatter, err)
	}
	defer func() {
		if err := cliInstance.Close(); err != nil {
			slog.Error("failed to close CLI", "error", err)
		}
	}()
	a := cliInstance.App

	if addr == "" {
		addr = a.Config.HTTP.Addr
	}

	sender := a.Sender(ctx)
	deps := httpapi.Deps{
		Sender: sender,
		Boards: func() boardservice.Service {
			return boardservice.NewService(a.Store,
				boardservice.WithLogger(a.Logger),
				boardservice.WithClock(a.Now))
		},
		Logger: a.Logger,
	}

	verifier, err := a.Verifier()
	if err != nil {
		return cli.Fail(formatter, err)
	}
	if verifier != nil {
		defer verifier.Close()
		deps.Auth = verifier
	} else {
		slog.Warn("no token verifier configured: authenticated routes are disabled")
	}

	relayDone := make(chan struct{})
	if embedRelay {
		server, err := relay.NewServer(a.Config.Relay.Socket, relay.WithLogger(a.Logger))
		if err != nil {
			return cli.Fail(formatter, err)
		}
		sender.Publish = server.Publish
		deps.Metrics = server.Metrics

		relayCtx, cancelRelay := context.WithCancel(ctx)
		defer func() {
			cancelRelay()
			<-relayDone
		}()
		go func() {
			defer close(relayDone)
			if err := server.Start(relayCtx); err != nil {
				slog.Error("relay error", "error", err)
			}
		}()
	} else {
		close(relayDone)
	}

	e := httpapi.New(deps)
	slog.Info("collabflow api starting", "addr", addr, "relay", embedRelay)
	formatter.Message("Serving on http://%s (Ctrl+C to stop)", addr)

	if err := httpapi.Serve(ctx, e, addr); err != nil {
		return cli.Fail(formatter, err)
	}
	slog.Info("collabflow api stopped")
	return nil
}
