package board

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
)

// ListCmd returns the board list subcommand
func ListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all boards",
		Long:  "List every board, oldest first.",
		RunE:  runList,
	}

	cli.AddOutputFlags(cmd)

	return cmd
}

func runList(cmd *cobra.Command, args []string) error {
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

	boards, err := cliInstance.App.BoardService.ListBoards(ctx)
	if err != nil {
		return cli.Fail(formatter, err)
	}

	summaries := make([]summary, len(boards))
	for i, b := range boards {
		summaries[i] = summarize(b)
	}

	if formatter.Quiet {
		for _, s := range summaries {
			fmt.Fprintln(formatter.Out, s.ID)
		}
		return nil
	}

	return formatter.Success(summaries, func(w io.Writer) error {
		if len(summaries) == 0 {
			fmt.Fprintln(w, "No boards found")
			return nil
		}
		fmt.Fprintf(w, "Found %d board(s):\n\n", len(summaries))
		for _, s := range summaries {
			fmt.Fprintf(w, "  %s  %s  (%d columns, %d tasks)\n", s.ID, s.Title, s.Columns, s.Tasks)
		}
		return nil
	})
}
