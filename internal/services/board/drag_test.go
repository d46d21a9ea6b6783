package board

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/collabflow/internal/models"
)

type moveCall struct {
	taskID, src, dst string
}

type fakeMover struct {
	board  *models.Board
	calls  []moveCall
	failOn error
}

func (f *fakeMover) CurrentBoard() (models.Board, bool) {
	if f.board == nil {
		return models.Board{}, false
	}
	return f.board.Clone(), true
}

func (f *fakeMover) MoveTask(_ context.Context, taskID, src, dst string) error {
	f.calls = append(f.calls, moveCall{taskID, src, dst})
	return f.failOn
}

func dragBoard() *models.Board {
	return &models.Board{ID: "b", Columns: []models.Column{
		{ID: "todo", TaskIDs: []string{"t1", "t2"}},
		{ID: "doing", TaskIDs: []string{"t3"}},
	}}
}

func TestHandleDrop(t *testing.T) {
	tests := []struct {
		name      string
		board     *models.Board
		drop      DropResult
		wantMoved bool
		wantCall  *moveCall
	}{
		{
			name:  "outside any column",
			board: dragBoard(),
			drop:  DropResult{DraggableID: "t1", Source: Location{"todo", 0}},
		},
		{
			name:  "back onto the starting slot",
			board: dragBoard(),
			drop:  DropResult{DraggableID: "t1", Source: Location{"todo", 0}, Destination: &Location{"todo", 0}},
		},
		{
			name:      "to another column",
			board:     dragBoard(),
			drop:      DropResult{DraggableID: "t1", Source: Location{"todo", 0}, Destination: &Location{"doing", 0}},
			wantMoved: true,
			wantCall:  &moveCall{"t1", "todo", "doing"},
		},
		{
			name:      "within the same column",
			board:     dragBoard(),
			drop:      DropResult{DraggableID: "t1", Source: Location{"todo", 0}, Destination: &Location{"todo", 1}},
			wantMoved: true,
			wantCall:  &moveCall{"t1", "todo", "todo"},
		},
		{
			name: "no board loaded",
			drop: DropResult{DraggableID: "t1", Source: Location{"todo", 0}, Destination: &Location{"doing", 0}},
		},
		{
			name:  "unknown source column",
			board: dragBoard(),
			drop:  DropResult{DraggableID: "t1", Source: Location{"gone", 0}, Destination: &Location{"doing", 0}},
		},
		{
			name:  "task no longer in the source column",
			board: dragBoard(),
			drop:  DropResult{DraggableID: "t1", Source: Location{"doing", 0}, Destination: &Location{"todo", 0}},
		},
		{
			name:  "unknown destination column",
			board: dragBoard(),
			drop:  DropResult{DraggableID: "t1", Source: Location{"todo", 0}, Destination: &Location{"gone", 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &fakeMover{board: tt.board}
			moved, err := NewDragController(m, nil).HandleDrop(context.Background(), tt.drop)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMoved, moved)
			if tt.wantCall == nil {
				assert.Empty(t, m.calls)
				return
			}
			require.Len(t, m.calls, 1)
			assert.Equal(t, *tt.wantCall, m.calls[0])
		})
	}
}

func TestHandleDropPropagatesMoveError(t *testing.T) {
	boom := errors.New("boom")
	m := &fakeMover{board: dragBoard(), failOn: boom}

	moved, err := NewDragController(m, nil).HandleDrop(context.Background(), DropResult{
		DraggableID: "t3",
		Source:      Location{"doing", 0},
		Destination: &Location{"todo", 2},
	})
	assert.False(t, moved)
	assert.ErrorIs(t, err, boom)
}

func TestHandleDropStaleMoveIsIgnored(t *testing.T) {
	m := &fakeMover{board: dragBoard(), failOn: fmt.Errorf("%w: t3", ErrTaskNotInColumn)}

	moved, err := NewDragController(m, nil).HandleDrop(context.Background(), DropResult{
		DraggableID: "t3",
		Source:      Location{"doing", 0},
		Destination: &Location{"todo", 2},
	})
	require.NoError(t, err)
	assert.False(t, moved)
	assert.Len(t, m.calls, 1)
}

func TestHandleDropStaleSourceKeepsTaskInOneColumn(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	b := setupBoard(t, svc)
	todo, doing, done := b.Columns[0].ID, b.Columns[1].ID, b.Columns[2].ID

	task, err := svc.CreateTask(ctx, todo, CreateTaskRequest{Title: "Drag me"})
	require.NoError(t, err)

	moved, err := NewDragController(svc, nil).HandleDrop(ctx, DropResult{
		DraggableID: task.ID,
		Source:      Location{doing, 0},
		Destination: &Location{done, 0},
	})
	require.NoError(t, err)
	assert.False(t, moved)

	cur, _ := svc.CurrentBoard()
	assert.Equal(t, []string{task.ID}, cur.Columns[0].TaskIDs)
	assert.Empty(t, cur.Columns[1].TaskIDs)
	assert.Empty(t, cur.Columns[2].TaskIDs)
}

func TestHandleDropWithService(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	b := setupBoard(t, svc)
	todo, doing := b.Columns[0].ID, b.Columns[1].ID

	task, err := svc.CreateTask(ctx, todo, CreateTaskRequest{Title: "Drag me"})
	require.NoError(t, err)

	moved, err := NewDragController(svc, nil).HandleDrop(ctx, DropResult{
		DraggableID: task.ID,
		Source:      Location{todo, 0},
		Destination: &Location{doing, 0},
	})
	require.NoError(t, err)
	assert.True(t, moved)

	cur, _ := svc.CurrentBoard()
	assert.Empty(t, cur.Columns[0].TaskIDs)
	assert.Equal(t, []string{task.ID}, cur.Columns[1].TaskIDs)
}
