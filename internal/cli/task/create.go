package task

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
	boardservice "github.com/thenoetrevino/collabflow/internal/services/board"
)

// CreateCmd returns the task create subcommand
func CreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new task",
		Long: `Create a task at the end of a column.

Examples:
  # Simple task (human-readable output)
  collabflow task create --title="Fix bug" --board=<board-id>

  # JSON output for agents
  collabflow task create --title="Fix bug" --json

  # Quiet mode for bash capture
  TASK_ID=$(collabflow task create --title="Fix bug" --quiet)

  # Full example with all options
  collabflow task create \
    --title="Add authentication" \
    --description="Implement JWT auth" \
    --column="In Progress" \
    --assignees=alice,bob \
    --labels=backend,security \
    --due="next friday 5pm"
`,
		RunE: runCreate,
	}

	// Required flags
	cmd.Flags().String("title", "", "Task title (required)")
	if err := cmd.MarkFlagRequired("title"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}

	// Optional flags
	cmd.Flags().String("description", "", "Task description in markdown (use - for stdin)")
	cmd.Flags().String("column", "", "Column ID or title (defaults to first column)")
	cmd.Flags().String("assignees", "", "Comma separated assignees")
	cmd.Flags().String("labels", "", "Comma separated labels")
	cmd.Flags().String("due", "", `Due date, e.g. "tomorrow 5pm", "+3d", "2025-01-31"`)

	cli.AddBoardFlag(cmd)
	cli.AddOutputFlags(cmd)

	return cmd
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatter := cli.NewFormatter(cmd)

	title, _ := cmd.Flags().GetString("title")
	description, _ := cmd.Flags().GetString("description")
	columnRef, _ := cmd.Flags().GetString("column")
	assignees, _ := cmd.Flags().GetString("assignees")
	labels, _ := cmd.Flags().GetString("labels")
	due, _ := cmd.Flags().GetString("due")

	boardID, err := cli.BoardID(cmd)
	if err != nil {
		return cli.Fail(formatter, err)
	}

	// Handle description from stdin
	description, err = cli.ReadText(description, cmd.InOrStdin())
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

	req := boardservice.CreateTaskRequest{
		Title:       title,
		Description: description,
		Assignees:   cli.SplitList(assignees),
		Labels:      cli.SplitList(labels),
	}
	if strings.TrimSpace(due) != "" {
		t, err := cli.ParseDate(due, cliInstance.App.Now())
		if err != nil {
			return cli.FailWithSuggestion(formatter, err, `Try "tomorrow 5pm", "+3d" or "2025-01-31"`)
		}
		req.DueDate = &t
	}

	b, err := cliInstance.App.BoardService.Open(ctx, boardID)
	if err != nil {
		return cli.Fail(formatter, err)
	}
	if len(b.Columns) == 0 {
		return cli.FailWithSuggestion(formatter,
			fmt.Errorf("%w: board has no columns", boardservice.ErrColumnNotFound),
			"Create one using 'collabflow column add --title=<title>'")
	}

	// Determine target column
	col := b.Columns[0]
	if columnRef != "" {
		found, ok := cli.FindColumn(b, columnRef)
		if !ok {
			return cli.FailWithSuggestion(formatter,
				fmt.Errorf("%w: %s", boardservice.ErrColumnNotFound, columnRef),
				"Available columns: "+cli.ColumnTitles(b))
		}
		col = found
	}

	task, err := cliInstance.App.BoardService.CreateTask(ctx, col.ID, req)
	if err != nil {
		return cli.Fail(formatter, err)
	}

	return formatter.Success(task, func(w io.Writer) error {
		fmt.Fprintf(w, "✓ Task '%s' created successfully (ID: %s)\n", task.Title, task.ID)
		fmt.Fprintf(w, "  Board: %s\n", b.Title)
		fmt.Fprintf(w, "  Column: %s\n", col.Title)
		if len(task.Assignees) > 0 {
			fmt.Fprintf(w, "  Assignees: %s\n", strings.Join(task.Assignees, ", "))
		}
		if len(task.Labels) > 0 {
			fmt.Fprintf(w, "  Labels: %s\n", strings.Join(task.Labels, ", "))
		}
		if task.DueDate != nil {
			fmt.Fprintf(w, "  Due: %s\n", task.DueDate.Local().Format("Mon Jan 2 15:04"))
		}
		return nil
	})
}
