package launcher

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/collabflow/internal/docstore/memstore"
	"github.com/thenoetrevino/collabflow/internal/logging"
	boardservice "github.com/thenoetrevino/collabflow/internal/services/board"
	"github.com/thenoetrevino/collabflow/internal/tui"
	"github.com/thenoetrevino/collabflow/internal/types"
)

func next(t *testing.T, ch <-chan tui.Snapshot, match func(tui.Snapshot) bool) tui.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap, ok := <-ch:
			require.True(t, ok, "snapshot channel closed")
			if match(snap) {
				return snap
			}
		case <-deadline:
			t.Fatal("timed out waiting for snapshot")
		}
	}
}

func TestFollowEmitsRemoteChanges(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	t.Cleanup(func() { _ = store.Close() })

	// Two clients of the same store: the watcher and a collaborator.
	watcher := boardservice.NewService(store, boardservice.WithIDs(types.Sequence("w")), boardservice.WithLogger(logging.Discard()))
	other := boardservice.NewService(store, boardservice.WithIDs(types.Sequence("o")), boardservice.WithLogger(logging.Discard()))

	b, err := other.CreateBoard(ctx, "Launch", "Q3 launch")
	require.NoError(t, err)

	snapshots, stop, err := Follow(ctx, watcher, b.ID, logging.Discard())
	require.NoError(t, err)
	defer stop()

	first := next(t, snapshots, func(tui.Snapshot) bool { return true })
	assert.Equal(t, "Launch", first.Board.Title)
	require.Len(t, first.Board.Columns, 3)

	_, err = other.Open(ctx, b.ID)
	require.NoError(t, err)
	todo := b.Columns[0].ID
	task, err := other.CreateTask(ctx, todo, boardservice.CreateTaskRequest{Title: "Write docs"})
	require.NoError(t, err)

	snap := next(t, snapshots, func(s tui.Snapshot) bool { return len(s.Tasks[todo]) == 1 })
	assert.Equal(t, task.ID, snap.Tasks[todo][0].ID)
	assert.Equal(t, "Write docs", snap.Tasks[todo][0].Title)
}

func TestFollowMissingBoard(t *testing.T) {
	store := memstore.New()
	t.Cleanup(func() { _ = store.Close() })
	svc := boardservice.NewService(store, boardservice.WithLogger(logging.Discard()))

	_, _, err := Follow(context.Background(), svc, "nope", nil)
	assert.ErrorIs(t, err, boardservice.ErrBoardNotFound)
}

func TestFollowStopClosesChannel(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	t.Cleanup(func() { _ = store.Close() })
	svc := boardservice.NewService(store, boardservice.WithLogger(logging.Discard()))

	b, err := svc.CreateBoard(ctx, "Launch", "")
	require.NoError(t, err)

	snapshots, stop, err := Follow(ctx, svc, b.ID, nil)
	require.NoError(t, err)
	stop()

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-snapshots:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after stop")
		}
	}
}
