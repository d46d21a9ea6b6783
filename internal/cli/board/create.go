package board

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
	"github.com/thenoetrevino/collabflow/internal/models"
)

// CreateCmd returns the board create subcommand
func CreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new board",
		Long: `Create a board seeded with the To Do, In Progress and Done columns.

Examples:
  # Human-readable output
  collabflow board create --title="Launch"

  # Capture the id and make it the shell's board context
  BOARD=$(collabflow board create --title="Launch" --quiet)
  eval $(collabflow use board $BOARD)
`,
		RunE: runCreate,
	}

	// Required flags
	cmd.Flags().String("title", "", "Board title (required)")
	if err := cmd.MarkFlagRequired("title"); err != nil {
		slog.Error("failed to mark flag as required", "error", err)
	}

	// Optional flags
	cmd.Flags().String("description", "", "Board description (use - for stdin)")

	// Agent-friendly flags (REQUIRED on all commands)
	cli.AddOutputFlags(cmd)

	return cmd
}

func runCreate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatter := cli.NewFormatter(cmd)

	title, _ := cmd.Flags().GetString("title")
	description, _ := cmd.Flags().GetString("description")

	description, err := cli.ReadText(description, cmd.InOrStdin())
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

	b, err := cliInstance.App.BoardService.CreateBoard(ctx, title, description)
	if err != nil {
		return cli.Fail(formatter, err)
	}

	return formatter.Success(b, func(w io.Writer) error {
		fmt.Fprintf(w, "✓ Board '%s' created successfully (ID: %s)\n", b.Title, b.ID)
		for _, c := range b.Columns {
			fmt.Fprintf(w, "  Column: %s (%s)\n", c.Title, c.ID)
		}
		return nil
	})
}

// summary is the list entry of a board.
type summary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Columns   int    `json:"columns"`
	Tasks     int    `json:"tasks"`
	UpdatedAt string `json:"updatedAt"`
}

func summarize(b models.Board) summary {
	return summary{
		ID:        b.ID,
		Title:     b.Title,
		Columns:   len(b.Columns),
		Tasks:     b.TaskCount(),
		UpdatedAt: b.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}
