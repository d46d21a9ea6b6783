package column

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
	boardservice "github.com/thenoetrevino/collabflow/internal/services/board"
)

// DeleteCmd returns the column delete subcommand
func DeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Remove a column from a board",
		Long: `Remove a column. The documents of its tasks are kept; the tasks simply
no longer appear on the board.`,
		RunE: runDelete,
	}

	// Required flags
	cmd.Flags().String("id", "", "Column ID or title (required)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}

	cli.AddBoardFlag(cmd)
	cli.AddOutputFlags(cmd)

	return cmd
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatter := cli.NewFormatter(cmd)

	ref, _ := cmd.Flags().GetString("id")
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
	col, ok := cli.FindColumn(b, ref)
	if !ok {
		return cli.FailWithSuggestion(formatter,
			fmt.Errorf("%w: %s", boardservice.ErrColumnNotFound, ref),
			"Available columns: "+cli.ColumnTitles(b))
	}

	if err := cliInstance.App.BoardService.DeleteColumn(ctx, col.ID); err != nil {
		return cli.Fail(formatter, err)
	}

	return formatter.Success(col, func(w io.Writer) error {
		fmt.Fprintf(w, "✓ Column '%s' deleted (ID: %s)\n", col.Title, col.ID)
		if n := len(col.TaskIDs); n > 0 {
			fmt.Fprintf(w, "  %d task(s) no longer appear on the board\n", n)
		}
		return nil
	})
}
