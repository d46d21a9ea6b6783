package notify

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
	"github.com/thenoetrevino/collabflow/internal/docstore"
	notificationservice "github.com/thenoetrevino/collabflow/internal/services/notification"
)

// ReadCmd returns the notify read subcommand
func ReadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read",
		Short: "Mark a notification as read",
		RunE:  runRead,
	}

	// Required flags
	cmd.Flags().String("id", "", "Notification ID (required)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}

	cli.AddOutputFlags(cmd)

	return cmd
}

// readResult identifies a notification marked read.
type readResult struct {
	ID string `json:"id"`
}

func (r readResult) GetID() string { return r.ID }

func runRead(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatter := cli.NewFormatter(cmd)

	id, _ := cmd.Flags().GetString("id")

	cliInstance, err := cli.GetCLIFromContext(ctx)
	if err != nil {
		return cli.Fail(formatter, err)
	}
	defer func() {
		if err := cliInstance.Close(); err != nil {
			slog.Error("failed to close CLI", "error", err)
		}
	}()

	user, ok := cliInstance.App.Session.CurrentUser()
	if !ok {
		return cli.Fail(formatter, notificationservice.ErrAuthRequired)
	}

	// Only the recipient's own notifications can be marked
	p := docstore.Doc(notificationservice.NotificationsCollection, id)
	snap, err := cliInstance.App.Store.Get(ctx, p)
	if err != nil {
		return cli.Fail(formatter, docstore.Persist("get notification", p, err))
	}
	if !snap.Exists || snap.Data["userId"] != user.ID {
		return cli.Fail(formatter, fmt.Errorf("%w: notification %s", docstore.ErrNotFound, id))
	}

	cliInstance.App.NotificationService.MarkAsRead(ctx, id)

	return formatter.Success(readResult{ID: id}, func(w io.Writer) error {
		fmt.Fprintf(w, "✓ Notification %s marked as read\n", id)
		return nil
	})
}

// ReadAllCmd returns the notify read-all subcommand
func ReadAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "read-all",
		Short: "Mark all of your notifications as read",
		RunE:  runReadAll,
	}

	cli.AddOutputFlags(cmd)

	return cmd
}

func runReadAll(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
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

	user, ok := cliInstance.App.Session.CurrentUser()
	if !ok {
		return cli.Fail(formatter, notificationservice.ErrAuthRequired)
	}

	if err := cliInstance.App.NotificationService.MarkAllAsRead(ctx); err != nil {
		return cli.Fail(formatter, err)
	}

	return formatter.Success(map[string]string{"userId": user.ID}, func(w io.Writer) error {
		fmt.Fprintf(w, "✓ All notifications for %s marked as read\n", user.ID)
		return nil
	})
}
