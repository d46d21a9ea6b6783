// Package notify holds the cli commands for the notification pipeline
// e.g., collabflow notify ...
package notify

import (
	"github.com/spf13/cobra"
)

// NotifyCmd returns the notify parent command
func NotifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "notify",
		Short: "Send, receive and manage notifications",
		Long: `Work with push notifications delivered through the relay.

Examples:
  collabflow notify init                           # Check the push handshake
  collabflow notify listen                         # Print notifications as they arrive
  collabflow notify send --to=bob --title="Review" --type=task
  collabflow notify read --id=<notification-id>
  collabflow notify read-all
  collabflow notify prefs --sound=false --task-priority=high`,
	}

	cmd.AddCommand(InitCmd())
	cmd.AddCommand(ListenCmd())
	cmd.AddCommand(SendCmd())
	cmd.AddCommand(ReadCmd())
	cmd.AddCommand(ReadAllCmd())
	cmd.AddCommand(PrefsCmd())

	return cmd
}
