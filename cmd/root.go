package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli/board"
	"github.com/thenoetrevino/collabflow/internal/cli/column"
	"github.com/thenoetrevino/collabflow/internal/cli/notify"
	"github.com/thenoetrevino/collabflow/internal/cli/project"
	"github.com/thenoetrevino/collabflow/internal/cli/serve"
	"github.com/thenoetrevino/collabflow/internal/cli/task"
	"github.com/thenoetrevino/collabflow/internal/cli/use"
	"github.com/thenoetrevino/collabflow/internal/config"
	"github.com/thenoetrevino/collabflow/internal/logging"
)

// NewRootCmd builds the collabflow command tree.
func NewRootCmd() *cobra.Command {
	var logFile io.Closer

	root := &cobra.Command{
		Use:   "collabflow",
		Short: "Collabflow - collaborative boards, projects and notifications",
		Long: `Collabflow manages shared kanban boards and projects and delivers
notifications to every device a user is signed in on.

Output is human-readable by default; pass --json for agents or --quiet to
print only ids.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg, err := config.Load()
			if err != nil {
				return
			}
			closer, err := logging.Init(cfg.Log.Path, cfg.Log.Level)
			if err != nil {
				fmt.Fprintf(os.Stderr, "warning: logging disabled: %v\n", err)
				return
			}
			logFile = closer
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logFile != nil {
				_ = logFile.Close()
			}
		},
	}

	root.AddCommand(board.BoardCmd())
	root.AddCommand(column.ColumnCmd())
	root.AddCommand(task.TaskCmd())
	root.AddCommand(project.ProjectCmd())
	root.AddCommand(use.UseCmd())
	root.AddCommand(notify.NotifyCmd())
	root.AddCommand(serve.RelayCmd())
	root.AddCommand(serve.ServeCmd())

	return root
}

// Execute runs the command line under ctx.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
