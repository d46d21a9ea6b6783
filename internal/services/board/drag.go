package board

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/thenoetrevino/collabflow/internal/models"
)

// Location is a slot on the board: a column and a position inside it.
type Location struct {
	ColumnID string `json:"droppableId"`
	Index    int    `json:"index"`
}

// DropResult describes a finished drag. Destination is nil when the task was
// dropped outside any column.
type DropResult struct {
	DraggableID string    `json:"draggableId"`
	Source      Location  `json:"source"`
	Destination *Location `json:"destination,omitempty"`
}

// Mover is the part of the board service the drag controller needs.
type Mover interface {
	CurrentBoard() (models.Board, bool)
	MoveTask(ctx context.Context, taskID, sourceColumnID, destColumnID string) error
}

// DragController turns drop gestures into task moves.
type DragController struct {
	mover  Mover
	logger *slog.Logger
}

func NewDragController(mover Mover, logger *slog.Logger) *DragController {
	if logger == nil {
		logger = slog.Default()
	}
	return &DragController{mover: mover, logger: logger}
}

// HandleDrop moves the dragged task when the drop lands somewhere new. It
// reports whether a move was issued. Drops outside a column, onto the
// starting slot, or against a board that no longer has the task in its
// source column are ignored.
func (d *DragController) HandleDrop(ctx context.Context, r DropResult) (bool, error) {
	if r.Destination == nil {
		return false, nil
	}
	dst := *r.Destination
	if dst.ColumnID == r.Source.ColumnID && dst.Index == r.Source.Index {
		return false, nil
	}

	b, ok := d.mover.CurrentBoard()
	if !ok {
		d.logger.Debug("drop ignored: no board loaded", "task_id", r.DraggableID)
		return false, nil
	}
	src, ok := b.Column(r.Source.ColumnID)
	if !ok {
		d.logger.Debug("drop ignored: unknown source column", "task_id", r.DraggableID, "column_id", r.Source.ColumnID)
		return false, nil
	}
	if _, ok := b.Column(dst.ColumnID); !ok {
		d.logger.Debug("drop ignored: unknown destination column", "task_id", r.DraggableID, "column_id", dst.ColumnID)
		return false, nil
	}

	if !slices.Contains(src.TaskIDs, r.DraggableID) {
		d.logger.Debug("drop ignored: task left its source column", "task_id", r.DraggableID, "column_id", r.Source.ColumnID)
		return false, nil
	}

	if err := d.mover.MoveTask(ctx, r.DraggableID, r.Source.ColumnID, dst.ColumnID); err != nil {
		if errors.Is(err, ErrTaskNotInColumn) {
			d.logger.Debug("drop ignored: stale source", "task_id", r.DraggableID, "error", err)
			return false, nil
		}
		return false, err
	}
	return true, nil
}
