package notify

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
)

// registration is what a successful handshake reports.
type registration struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

func (r registration) GetID() string { return r.Token }

// InitCmd returns the notify init subcommand
func InitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Register this device for push notifications",
		Long: `Run the push handshake: check the signed-in user and the platform,
ask for permission, register with the relay and store the device token on
the user document.`,
		RunE: runInit,
	}

	cli.AddOutputFlags(cmd)

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
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

	svc := cliInstance.App.NotificationService
	if err := svc.Initialize(ctx); err != nil {
		return cli.Fail(formatter, err)
	}

	user, _ := cliInstance.App.Session.CurrentUser()
	reg := registration{UserID: user.ID, Token: svc.Token()}
	return formatter.Success(reg, func(w io.Writer) error {
		fmt.Fprintf(w, "✓ Notifications enabled for %s\n", reg.UserID)
		fmt.Fprintf(w, "  Token: %s\n", reg.Token)
		return nil
	})
}
