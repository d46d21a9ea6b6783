package task

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/thenoetrevino/collabflow/internal/cli"
	boardservice "github.com/thenoetrevino/collabflow/internal/services/board"
)

// DropCmd returns the task drop subcommand
func DropCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Apply a finished drag gesture",
		Long: `Apply the result of dragging a task, as reported by a board UI.

A drop outside any column, or back onto the slot it started from, does
nothing. The task always lands at the end of the destination column.

Examples:
  # From a drag-and-drop result
  collabflow task drop --result='{"draggableId":"t1","source":{"droppableId":"c1","index":0},"destination":{"droppableId":"c2","index":3}}'

  # Read the result from stdin
  echo "$RESULT" | collabflow task drop --result=-

  # The same gesture from flags
  collabflow task drop --id=t1 --from=c1 --from-index=0 --to=c2 --index=3
`,
		RunE: runDrop,
	}

	cmd.Flags().String("result", "", "Drop result as JSON (use - for stdin)")
	cmd.Flags().String("id", "", "Dragged task ID")
	cmd.Flags().String("from", "", "Source column ID")
	cmd.Flags().Int("from-index", 0, "Position in the source column")
	cmd.Flags().String("to", "", "Destination column ID (omit for a drop outside any column)")
	cmd.Flags().Int("index", 0, "Position in the destination column")

	cli.AddBoardFlag(cmd)
	cli.AddOutputFlags(cmd)

	return cmd
}

// dropOutcome reports whether a drop turned into a move.
type dropOutcome struct {
	TaskID string `json:"taskId"`
	Moved  bool   `json:"moved"`
}

func (d dropOutcome) GetID() string { return d.TaskID }

func readDropResult(cmd *cobra.Command) (boardservice.DropResult, error) {
	var r boardservice.DropResult

	if cmd.Flags().Changed("result") {
		raw, _ := cmd.Flags().GetString("result")
		text, err := cli.ReadText(raw, cmd.InOrStdin())
		if err != nil {
			return r, err
		}
		if err := json.Unmarshal([]byte(text), &r); err != nil {
			return r, fmt.Errorf("invalid drop result: %w", err)
		}
		return r, nil
	}

	r.DraggableID, _ = cmd.Flags().GetString("id")
	r.Source.ColumnID, _ = cmd.Flags().GetString("from")
	r.Source.Index, _ = cmd.Flags().GetInt("from-index")
	if to, _ := cmd.Flags().GetString("to"); to != "" {
		index, _ := cmd.Flags().GetInt("index")
		r.Destination = &boardservice.Location{ColumnID: to, Index: index}
	}
	return r, nil
}

func runDrop(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	formatter := cli.NewFormatter(cmd)

	result, err := readDropResult(cmd)
	if err != nil {
		_ = formatter.Error("INVALID_INPUT", err.Error())
		return &cli.ExitError{Code: cli.ExitDataErr, Err: err}
	}
	if result.DraggableID == "" || result.Source.ColumnID == "" {
		return cli.Usage(formatter, "a drop needs the task (--id) and its source column (--from), or --result")
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

	if _, err := cliInstance.OpenBoard(ctx, boardID); err != nil {
		return cli.Fail(formatter, err)
	}

	ok, err := cliInstance.App.DragController.HandleDrop(ctx, result)
	if err != nil {
		return cli.Fail(formatter, err)
	}

	outcome := dropOutcome{TaskID: result.DraggableID, Moved: ok}
	return formatter.Success(outcome, func(w io.Writer) error {
		if !ok {
			fmt.Fprintln(w, "Nothing to do: the drop left the board unchanged")
			return nil
		}
		fmt.Fprintf(w, "✓ Task %s moved to %s\n", result.DraggableID, result.Destination.ColumnID)
		return nil
	})
}
