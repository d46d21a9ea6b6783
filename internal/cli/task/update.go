package task

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
	boardservice "github.com/thenoetrevino/collabflow/internal/services/board"
)

// UpdateCmd returns the task update subcommand
func UpdateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update a task",
		Long: `Update task fields. Only the flags given are changed.

Examples:
  collabflow task update --id=<task-id> --title="New title"
  collabflow task update --id=<task-id> --assignees=alice,bob --labels=
  collabflow task update --id=<task-id> --due=none
`,
		RunE: runUpdate,
	}

	// Required flags
	cmd.Flags().String("id", "", "Task ID (required)")
	if err := cmd.MarkFlagRequired("id"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}

	// Optional flags
	cmd.Flags().String("title", "", "New title")
	cmd.Flags().String("description", "", "New description in markdown (use - for stdin)")
	cmd.Flags().String("assignees", "", "Comma separated assignees (empty clears)")
	cmd.Flags().String("labels", "", "Comma separated labels (empty clears)")
	cmd.Flags().String("due", "", `New due date, or "none" to clear`)

	cli.AddBoardFlag(cmd)
	cli.AddOutputFlags(cmd)

	return cmd
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatter := cli.NewFormatter(cmd)

	taskID, _ := cmd.Flags().GetString("id")
	boardID, err := cli.BoardID(cmd)
	if err != nil {
		return cli.Fail(formatter, err)
	}

	changed := false
	for _, name := range []string{"title", "description", "assignees", "labels", "due"} {
		changed = changed || cmd.Flags().Changed(name)
	}
	if !changed {
		return cli.Usage(formatter, "at least one of --title, --description, --assignees, --labels or --due must be specified")
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

	var patch boardservice.TaskPatch
	if cmd.Flags().Changed("title") {
		title, _ := cmd.Flags().GetString("title")
		patch.Title = &title
	}
	if cmd.Flags().Changed("description") {
		description, _ := cmd.Flags().GetString("description")
		description, err = cli.ReadText(description, cmd.InOrStdin())
		if err != nil {
			return cli.Fail(formatter, err)
		}
		patch.Description = &description
	}
	if cmd.Flags().Changed("assignees") {
		assignees, _ := cmd.Flags().GetString("assignees")
		list := cli.SplitList(assignees)
		patch.Assignees = &list
	}
	if cmd.Flags().Changed("labels") {
		labels, _ := cmd.Flags().GetString("labels")
		list := cli.SplitList(labels)
		patch.Labels = &list
	}
	if cmd.Flags().Changed("due") {
		due, _ := cmd.Flags().GetString("due")
		patch.DueDate, patch.ClearDueDate, err = cli.ParseDue(due, cliInstance.App.Now())
		if err != nil {
			return cli.FailWithSuggestion(formatter, err, `Try "tomorrow 5pm", "+3d", "2025-01-31" or "none"`)
		}
	}

	if _, _, _, err := cliInstance.OpenTask(ctx, boardID, taskID); err != nil {
		return cli.Fail(formatter, err)
	}
	if err := cliInstance.App.BoardService.UpdateTask(ctx, taskID, patch); err != nil {
		return cli.Fail(formatter, err)
	}

	task, _ := cliInstance.App.BoardService.Task(taskID)
	return formatter.Success(task, func(w io.Writer) error {
		fmt.Fprintf(w, "✓ Task '%s' updated successfully (ID: %s)\n", task.Title, task.ID)
		return nil
	})
}
