package board

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
	"github.com/thenoetrevino/collabflow/internal/cli/styles"
	"github.com/thenoetrevino/collabflow/internal/models"
)

// View is a board with its loaded tasks keyed by column id.
type View struct {
	Board models.Board             `json:"board"`
	Tasks map[string][]models.Task `json:"tasks"`
}

func (v View) GetID() string { return v.Board.ID }

// ShowCmd returns the board show subcommand
func ShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show a board with its columns and tasks",
		Long: `Render a board's columns side by side.

Examples:
  collabflow board show --board=<board-id>
  collabflow board show --json
`,
		RunE: runShow,
	}

	cli.AddBoardFlag(cmd)
	cli.AddOutputFlags(cmd)

	return cmd
}

func runShow(cmd *cobra.Command, args []string) error {
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

	b, err := cliInstance.OpenBoard(ctx, boardID)
	if err != nil {
		return cli.Fail(formatter, err)
	}

	svc := cliInstance.App.BoardService
	view := View{Board: b, Tasks: make(map[string][]models.Task, len(b.Columns))}
	for _, c := range b.Columns {
		view.Tasks[c.ID] = svc.ColumnTasks(c.ID)
	}

	return formatter.Success(view, func(w io.Writer) error {
		_, err := fmt.Fprintln(w, styles.RenderBoard(b, svc.ColumnTasks, cliInstance.App.Now()))
		return err
	})
}
