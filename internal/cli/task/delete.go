package task

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
)

// DeleteCmd returns the task delete subcommand
func DeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a task",
		Long:  "Remove a task from its board and delete its document.",
		RunE:  runDelete,
	}

	// Required flags
	cmd.Flags().String("id", "", "Task ID (required)")
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

	taskID, _ := cmd.Flags().GetString("id")
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

	_, task, _, err := cliInstance.OpenTask(ctx, boardID, taskID)
	if err != nil {
		return cli.Fail(formatter, err)
	}

	if err := cliInstance.App.BoardService.DeleteTask(ctx, taskID); err != nil {
		return cli.Fail(formatter, err)
	}

	return formatter.Success(task, func(w io.Writer) error {
		fmt.Fprintf(w, "✓ Task '%s' deleted (ID: %s)\n", task.Title, task.ID)
		return nil
	})
}
