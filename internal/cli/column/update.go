package column

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
	boardservice "github.com/thenoetrevino/collabflow/internal/services/board"
)

// UpdateCmd returns the column update subcommand
func UpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Rename a column or reorder its tasks",
		Long: `Update a column in place.

Examples:
  # Rename
  collabflow column update --id=<column-id> --title="Shipped"

  # Reorder tasks; the list replaces the column's task order
  collabflow column update --id=<column-id> --tasks=<t2>,<t1>
`,
		RunE: runUpdate,
	}

	// Required flags
	cmd.Flags().String("id", "", "Column ID or title (required)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}

	// Optional flags
	cmd.Flags().String("title", "", "New column title")
	cmd.Flags().String("tasks", "", "Comma separated task ids in their new order")

	cli.AddBoardFlag(cmd)
	cli.AddOutputFlags(cmd)

	return cmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatter := cli.NewFormatter(cmd)

	ref, _ := cmd.Flags().GetString("id")

	var patch boardservice.ColumnPatch
	if cmd.Flags().Changed("title") {
		title, _ := cmd.Flags().GetString("title")
		patch.Title = &title
	}
	if cmd.Flags().Changed("tasks") {
		tasks, _ := cmd.Flags().GetString("tasks")
		patch.TaskIDs = cli.SplitList(tasks)
	}
	if patch.Title == nil && patch.TaskIDs == nil {
		return cli.Usage(formatter, "at least one of --title or --tasks must be specified")
	}

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

	if err := cliInstance.App.BoardService.UpdateColumn(ctx, col.ID, patch); err != nil {
		return cli.Fail(formatter, err)
	}

	updated, _ := cliInstance.App.BoardService.CurrentBoard()
	col, _ = updated.Column(col.ID)

	return formatter.Success(col, func(w io.Writer) error {
		fmt.Fprintf(w, "✓ Column '%s' updated successfully (ID: %s)\n", col.Title, col.ID)
		fmt.Fprintf(w, "  Tasks: %d\n", len(col.TaskIDs))
		return nil
	})
}
