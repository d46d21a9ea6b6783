package notify

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
	"github.com/thenoetrevino/collabflow/internal/models"
	notificationservice "github.com/thenoetrevino/collabflow/internal/services/notification"
)

// SendCmd returns the notify send subcommand
func SendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a notification to a user",
		Long: `Store a notification for a user and push it to their devices.

The notification is stored even when the relay cannot be reached, so it
still shows up in the recipient's list.

Examples:
  collabflow notify send --to=bob --title="Task assigned" --body="Write docs" --type=task
  collabflow notify send --to=bob --title="Deploy" --url=/boards/b1 --require-interaction
`,
		RunE: runSend,
	}

	// Required flags
	cmd.Flags().String("to", "", "Recipient user ID (required)")
	cmd.Flags().String("title", "", "Notification title (required)")
	for _, name := range []string{"to", "title"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			slog.Error("failed to mark flag as required", "error", err)
		}
	}

	// Optional flags
	cmd.Flags().String("body", "", "Notification body (use - for stdin)")
	cmd.Flags().String("type", string(models.NotificationSystem), "Type: task, project or system")
	cmd.Flags().String("url", "", "Path opened when the notification is clicked")
	cmd.Flags().String("tag", "", "Tag that groups notifications")
	cmd.Flags().Bool("renotify", false, "Alert again when replacing a tagged notification")
	cmd.Flags().Bool("require-interaction", false, "Keep the notification until dismissed")

	cli.AddOutputFlags(cmd)

	return cmd
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatter := cli.NewFormatter(cmd)

	to, _ := cmd.Flags().GetString("to")
	title, _ := cmd.Flags().GetString("title")
	body, _ := cmd.Flags().GetString("body")
	typ, _ := cmd.Flags().GetString("type")
	url, _ := cmd.Flags().GetString("url")
	tag, _ := cmd.Flags().GetString("tag")
	renotify, _ := cmd.Flags().GetBool("renotify")
	requireInteraction, _ := cmd.Flags().GetBool("require-interaction")

	t, ok := models.ParseNotificationType(typ)
	if !ok {
		return cli.Usage(formatter, "unknown notification type %q (must be: task, project, system)", typ)
	}

	body, err := cli.ReadText(body, cmd.InOrStdin())
	if err != nil {
		return cli.Fail(formatter, err)
	}

	cliInstance, err := cli.GetCLIFromContext(ctx)
	if err != nil {
		return cli.Fail(formatter, err)
	}
	defer func() {
		if err := cliInstance.Close(); err != nil {
			slog.Error("failed to close CLI", "error", err)
		}
	}()

	in := notificationservice.NewNotification{
		Title:              title,
		Body:               body,
		Type:               t,
		Tag:                tag,
		Renotify:           renotify,
		RequireInteraction: requireInteraction,
	}
	if url != "" {
		in.Data = map[string]string{"url": url}
	}

	n, err := cliInstance.App.Sender(ctx).Send(ctx, to, in)
	if err != nil {
		if n.ID != "" {
			err = fmt.Errorf("notification %s stored but not pushed: %w", n.ID, err)
		}
		return cli.Fail(formatter, err)
	}

	return formatter.Success(n, func(w io.Writer) error {
		fmt.Fprintf(w, "✓ Notification sent to %s (ID: %s)\n", n.UserID, n.ID)
		fmt.Fprintf(w, "  %s\n", notificationservice.FormatMessage(n))
		return nil
	})
}
