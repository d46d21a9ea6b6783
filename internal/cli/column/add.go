package column

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
)

// AddCmd returns the column add subcommand
func AddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append a column to a board",
		Long: `Append an empty column to the end of a board.

Examples:
  collabflow column add --board=<board-id> --title="Review"
  COL=$(collabflow column add --title="Review" --quiet)
`,
		RunE: runAdd,
	}

	// Required flags
	cmd.Flags().String("title", "", "Column title (required)")
	if err := cmd.MarkFlagRequired("title"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}

	cli.AddBoardFlag(cmd)
	cli.AddOutputFlags(cmd)

	return cmd
}

func runAdd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatter := cli.NewFormatter(cmd)

	title, _ := cmd.Flags().GetString("title")
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

	b, err := cliInstance.App.BoardService.Open(ctx, boardID)
	if err != nil {
		return cli.Fail(formatter, err)
	}

	col, err := cliInstance.App.BoardService.AddColumn(ctx, title)
	if err != nil {
		return cli.Fail(formatter, err)
	}

	return formatter.Success(col, func(w io.Writer) error {
		fmt.Fprintf(w, "✓ Column '%s' added successfully (ID: %s)\n", col.Title, col.ID)
		fmt.Fprintf(w, "  Board: %s\n", b.Title)
		fmt.Fprintf(w, "  Position: %d of %d\n", len(b.Columns)+1, len(b.Columns)+1)
		return nil
	})
}
