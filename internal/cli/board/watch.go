package board

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
	"github.com/thenoetrevino/collabflow/internal/launcher"
)

// WatchCmd returns the board watch subcommand
func WatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow a board live",
		Long: `Open a live view of a board that redraws whenever anyone changes it.

Keys:
  h/l      select column
  j/k      select task
  H/L      move the selected task to the previous/next column
  q        quit
`,
		RunE: runWatch,
	}

	cli.AddBoardFlag(cmd)

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatter := cli.NewFormatter(cmd)

	boardID, err := cli.BoardID(cmd)
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

	err = launcher.Watch(ctx, cliInstance.App, boardID,
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.OutOrStdout()),
	)
	if err != nil {
		return cli.Fail(formatter, err)
	}
	return nil
}
