// Package use holds all cli commands related to setting contextual information
// e.g., collabflow use ...
package use

import (
	"github.com/spf13/cobra"
)

// UseCmd returns the use parent command
func UseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use",
		Short: "Manage contextual settings (board, project)",
		Long: `Set and manage contextual information for the current shell session.

The 'use' command allows you to set persistent context that applies to
subsequent commands, eliminating the need to repeatedly specify flags.

Available contexts:
  - board: Set the board that task and column commands work on
  - project: Set the current project context

Examples:
  eval $(collabflow use board <board-id>)   # Use a board
  eval $(collabflow use board --clear)      # Clear board context
  collabflow use project --show             # Show current project`,
	}

	cmd.AddCommand(BoardCmd())
	cmd.AddCommand(ProjectCmd())

	return cmd
}
