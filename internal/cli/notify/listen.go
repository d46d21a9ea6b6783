package notify

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
	"github.com/thenoetrevino/collabflow/internal/cli/styles"
	"github.com/thenoetrevino/collabflow/internal/models"
	notificationservice "github.com/thenoetrevino/collabflow/internal/services/notification"
)

// ListenCmd returns the notify listen subcommand
func ListenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Print notifications as they arrive",
		Long: `Register for push notifications and print each one as it arrives,
until interrupted. With --json every notification is written as one JSON
line.`,
		RunE: runListen,
	}

	cmd.Flags().Int("count", 0, "Exit after this many notifications (0 waits forever)")

	cli.AddOutputFlags(cmd)

	return cmd
}

func runListen(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	formatter := cli.NewFormatter(cmd)
	limit, _ := cmd.Flags().GetInt("count")
	out := cmd.OutOrStdout()

	cliInstance, err := cli.GetCLIFromContext(ctx)
	if err != nil {
		return cli.Fail(formatter, err)
	}
	defer func() {
		if err := cliInstance.Close(); err != nil {
			slog.Error("failed to close CLI", "error", err)
		}
	}()

	svc := cliInstance.App.NotificationService
	if _, err := svc.LoadPreferences(ctx); err != nil {
		slog.Warn("using default notification preferences", "error", err)
	}

	received := make(chan models.Notification, 16)
	remove := svc.OnNotification(func(n models.Notification) {
		select {
		case received <- n:
		default:
			slog.Warn("dropping notification: printer is behind", "notification_id", n.ID)
		}
	})
	defer remove()

	if err := svc.Initialize(ctx); err != nil {
		return cli.Fail(formatter, err)
	}
	formatter.Message("Listening for notifications (Ctrl+C to stop)")

	enc := json.NewEncoder(out)
	for count := 0; limit <= 0 || count < limit; count++ {
		select {
		case <-ctx.Done():
			return nil
		case n := <-received:
			switch {
			case formatter.JSON:
				if err := enc.Encode(n); err != nil {
					return err
				}
			case formatter.Quiet:
				fmt.Fprintln(out, n.ID)
			default:
				ago := notificationservice.FormatTime(n.CreatedAt, cliInstance.App.Now())
				fmt.Fprintln(out, styles.RenderNotification(n, ago))
			}
		}
	}
	return nil
}
