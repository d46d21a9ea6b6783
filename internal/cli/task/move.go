package task

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
	"github.com/thenoetrevino/collabflow/internal/models"
	boardservice "github.com/thenoetrevino/collabflow/internal/services/board"
)

// MoveCmd returns the task move subcommand
func MoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <next|prev|column>",
		Short: "Move a task to another column",
		Long: `Move a task to the end of another column.

Examples:
  collabflow task move --id=<task-id> next
  collabflow task move --id=<task-id> prev
  collabflow task move --id=<task-id> "Done"
`,
		Args: cobra.ExactArgs(1),
		RunE: runMove,
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

// moved is the result of a move.
type moved struct {
	TaskID string `json:"taskId"`
	From   string `json:"from"`
	To     string `json:"to"`
}

func (m moved) GetID() string { return m.TaskID }

func runMove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatter := cli.NewFormatter(cmd)

	taskID, _ := cmd.Flags().GetString("id")
	target := args[0]
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

	b, task, fromID, err := cliInstance.OpenTask(ctx, boardID, taskID)
	if err != nil {
		return cli.Fail(formatter, err)
	}
	from := b.ColumnIndex(fromID)

	// Handle the target: next, prev, or column name
	var to models.Column
	switch strings.ToLower(target) {
	case "next":
		if from+1 >= len(b.Columns) {
			return cli.Usage(formatter, "task is already in the last column (%s)", b.Columns[from].Title)
		}
		to = b.Columns[from+1]
	case "prev":
		if from == 0 {
			return cli.Usage(formatter, "task is already in the first column (%s)", b.Columns[from].Title)
		}
		to = b.Columns[from-1]
	default:
		found, ok := cli.FindColumn(b, target)
		if !ok {
			return cli.FailWithSuggestion(formatter,
				fmt.Errorf("%w: %s", boardservice.ErrColumnNotFound, target),
				"Available columns: "+cli.ColumnTitles(b)+", or use next/prev")
		}
		to = found
	}

	if err := cliInstance.App.BoardService.MoveTask(ctx, taskID, fromID, to.ID); err != nil {
		return cli.Fail(formatter, err)
	}

	result := moved{TaskID: taskID, From: fromID, To: to.ID}
	return formatter.Success(result, func(w io.Writer) error {
		fmt.Fprintf(w, "✓ Task '%s' moved from '%s' to '%s'\n", task.Title, b.Columns[from].Title, to.Title)
		return nil
	})
}
