// Package storetest holds the behaviour every docstore backend must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/collabflow/internal/docstore"
)

// Factory opens a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) docstore.Store

// Run exercises a backend against the document store contract.
func Run(t *testing.T, open Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s docstore.Store)
	}{
		{"GetMissing", testGetMissing},
		{"SetAndGet", testSetAndGet},
		{"SetReplaces", testSetReplaces},
		{"UpdateMissing", testUpdateMissing},
		{"UpdateMerges", testUpdateMerges},
		{"MergeCreates", testMergeCreates},
		{"DeleteIsIdempotent", testDeleteIsIdempotent},
		{"InvalidPath", testInvalidPath},
		{"QueryEquality", testQueryEquality},
		{"QueryArrayContains", testQueryArrayContains},
		{"BatchIsAtomic", testBatchIsAtomic},
		{"BatchAppliesAll", testBatchAppliesAll},
		{"SubscribeDeliversChanges", testSubscribeDeliversChanges},
		{"SubscribeMissingDocument", testSubscribeMissingDocument},
		{"UnsubscribeStopsDelivery", testUnsubscribeStopsDelivery},
		{"SubscribeContextCancel", testSubscribeContextCancel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

func testGetMissing(t *testing.T, s docstore.Store) {
	snap, err := s.Get(context.Background(), docstore.Doc("boards", "missing"))
	require.NoError(t, err)
	assert.False(t, snap.Exists)
	assert.Equal(t, "missing", snap.Path.ID)
}

func testSetAndGet(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	p := docstore.Doc("boards", "b1")
	require.NoError(t, s.Set(ctx, p, docstore.Document{
		"title":   "Roadmap",
		"columns": []any{map[string]any{"id": "c1", "taskIds": []any{"t1"}}},
		"count":   3,
	}))

	snap, err := s.Get(ctx, p)
	require.NoError(t, err)
	require.True(t, snap.Exists)
	assert.Equal(t, "Roadmap", snap.Data["title"])
	assert.Equal(t, float64(3), snap.Data["count"])
	assert.Equal(t, []any{map[string]any{"id": "c1", "taskIds": []any{"t1"}}}, snap.Data["columns"])

	// Mutating a read snapshot never leaks into the store.
	snap.Data["title"] = "changed"
	again, err := s.Get(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "Roadmap", again.Data["title"])
}

func testSetReplaces(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	p := docstore.Doc("tasks", "t1")
	require.NoError(t, s.Set(ctx, p, docstore.Document{"title": "a", "description": "d"}))
	require.NoError(t, s.Set(ctx, p, docstore.Document{"title": "b"}))

	snap, err := s.Get(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, docstore.Document{"title": "b"}, snap.Data)
}

func testUpdateMissing(t *testing.T, s docstore.Store) {
	err := s.Update(context.Background(), docstore.Doc("tasks", "nope"), docstore.Document{"title": "x"})
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func testUpdateMerges(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	p := docstore.Doc("tasks", "t1")
	require.NoError(t, s.Set(ctx, p, docstore.Document{"title": "a", "labels": []any{"x"}}))
	require.NoError(t, s.Update(ctx, p, docstore.Document{"title": "b"}))

	snap, err := s.Get(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, docstore.Document{"title": "b", "labels": []any{"x"}}, snap.Data)
}

func testMergeCreates(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	p := docstore.Doc("users", "u1")
	require.NoError(t, s.Merge(ctx, p, docstore.Document{"fcmToken": "tok"}))
	require.NoError(t, s.Merge(ctx, p, docstore.Document{"name": "Ada"}))

	snap, err := s.Get(ctx, p)
	require.NoError(t, err)
	assert.Equal(t, docstore.Document{"fcmToken": "tok", "name": "Ada"}, snap.Data)
}

func testDeleteIsIdempotent(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	p := docstore.Doc("tasks", "t1")
	require.NoError(t, s.Set(ctx, p, docstore.Document{"title": "a"}))
	require.NoError(t, s.Delete(ctx, p))
	require.NoError(t, s.Delete(ctx, p))

	snap, err := s.Get(ctx, p)
	require.NoError(t, err)
	assert.False(t, snap.Exists)
}

func testInvalidPath(t *testing.T, s docstore.Store) {
	err := s.Set(context.Background(), docstore.Doc("", "x"), docstore.Document{})
	assert.ErrorIs(t, err, docstore.ErrInvalidPath)
}

func testQueryEquality(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	seed(t, s,
		docstore.SetOp(docstore.Doc("notifications", "n3"), docstore.Document{"userId": "u1", "read": false}),
		docstore.SetOp(docstore.Doc("notifications", "n1"), docstore.Document{"userId": "u1", "read": false}),
		docstore.SetOp(docstore.Doc("notifications", "n2"), docstore.Document{"userId": "u1", "read": true}),
		docstore.SetOp(docstore.Doc("notifications", "n4"), docstore.Document{"userId": "u2", "read": false}),
		docstore.SetOp(docstore.Doc("tasks", "n5"), docstore.Document{"userId": "u1", "read": false}),
	)

	snaps, err := s.Query(ctx, "notifications",
		docstore.Where("userId", docstore.OpEqual, "u1"),
		docstore.Where("read", docstore.OpEqual, false),
	)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "n1", snaps[0].Path.ID)
	assert.Equal(t, "n3", snaps[1].Path.ID)
	assert.Equal(t, "notifications", snaps[0].Path.Collection)

	all, err := s.Query(ctx, "notifications")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	none, err := s.Query(ctx, "empty")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testQueryArrayContains(t *testing.T, s docstore.Store) {
	seed(t, s,
		docstore.SetOp(docstore.Doc("projects", "p1"), docstore.Document{"members": []string{"u1", "u2"}}),
		docstore.SetOp(docstore.Doc("projects", "p2"), docstore.Document{"members": []string{"u2"}}),
		docstore.SetOp(docstore.Doc("projects", "p3"), docstore.Document{"members": []string{}}),
	)

	snaps, err := s.Query(context.Background(), "projects", docstore.Where("members", docstore.OpArrayContains, "u1"))
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "p1", snaps[0].Path.ID)
}

func testBatchIsAtomic(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	board := docstore.Doc("boards", "b1")
	require.NoError(t, s.Set(ctx, board, docstore.Document{"title": "keep"}))

	err := s.Batch(ctx, []docstore.Op{
		docstore.UpdateOp(board, docstore.Document{"title": "changed"}),
		docstore.SetOp(docstore.Doc("tasks", "t1"), docstore.Document{"title": "task"}),
		docstore.UpdateOp(docstore.Doc("tasks", "missing"), docstore.Document{"x": 1}),
	})
	require.ErrorIs(t, err, docstore.ErrNotFound)

	snap, err := s.Get(ctx, board)
	require.NoError(t, err)
	assert.Equal(t, "keep", snap.Data["title"])

	task, err := s.Get(ctx, docstore.Doc("tasks", "t1"))
	require.NoError(t, err)
	assert.False(t, task.Exists)
}

func testBatchAppliesAll(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	board := docstore.Doc("boards", "b1")
	task := docstore.Doc("tasks", "t1")
	require.NoError(t, s.Set(ctx, board, docstore.Document{"title": "b"}))
	require.NoError(t, s.Set(ctx, task, docstore.Document{"title": "t"}))

	require.NoError(t, s.Batch(ctx, []docstore.Op{
		docstore.UpdateOp(board, docstore.Document{"columns": []any{}}),
		docstore.DeleteOp(task),
		docstore.MergeOp(docstore.Doc("users", "u1"), docstore.Document{"a": 1}),
	}))

	snap, err := s.Get(ctx, board)
	require.NoError(t, err)
	assert.Equal(t, docstore.Document{"title": "b", "columns": []any{}}, snap.Data)

	gone, err := s.Get(ctx, task)
	require.NoError(t, err)
	assert.False(t, gone.Exists)

	user, err := s.Get(ctx, docstore.Doc("users", "u1"))
	require.NoError(t, err)
	assert.True(t, user.Exists)
}

func testSubscribeDeliversChanges(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	p := docstore.Doc("boards", "b1")
	require.NoError(t, s.Set(ctx, p, docstore.Document{"title": "v1"}))

	ch := make(chan docstore.Snapshot, 16)
	unsub, err := s.Subscribe(ctx, p, func(snap docstore.Snapshot) { ch <- snap })
	require.NoError(t, err)
	defer unsub()

	first := waitSnapshot(t, ch)
	assert.True(t, first.Exists)
	assert.Equal(t, "v1", first.Data["title"])

	require.NoError(t, s.Update(ctx, p, docstore.Document{"title": "v2"}))
	assert.Equal(t, "v2", waitFor(t, ch, "v2").Data["title"])

	require.NoError(t, s.Batch(ctx, []docstore.Op{docstore.UpdateOp(p, docstore.Document{"title": "v3"})}))
	assert.Equal(t, "v3", waitFor(t, ch, "v3").Data["title"])

	require.NoError(t, s.Delete(ctx, p))
	require.Eventually(t, func() bool {
		select {
		case snap := <-ch:
			return !snap.Exists
		default:
			return false
		}
	}, 2*time.Second, 5*time.Millisecond)
}

func testSubscribeMissingDocument(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	p := docstore.Doc("boards", "later")

	ch := make(chan docstore.Snapshot, 16)
	unsub, err := s.Subscribe(ctx, p, func(snap docstore.Snapshot) { ch <- snap })
	require.NoError(t, err)
	defer unsub()

	assert.False(t, waitSnapshot(t, ch).Exists)

	require.NoError(t, s.Set(ctx, p, docstore.Document{"title": "created"}))
	assert.Equal(t, "created", waitFor(t, ch, "created").Data["title"])
}

func testUnsubscribeStopsDelivery(t *testing.T, s docstore.Store) {
	ctx := context.Background()
	p := docstore.Doc("boards", "b1")
	require.NoError(t, s.Set(ctx, p, docstore.Document{"title": "v1"}))

	ch := make(chan docstore.Snapshot, 16)
	unsub, err := s.Subscribe(ctx, p, func(snap docstore.Snapshot) { ch <- snap })
	require.NoError(t, err)
	waitSnapshot(t, ch)

	unsub()
	unsub()

	require.NoError(t, s.Update(ctx, p, docstore.Document{"title": "v2"}))
	select {
	case snap := <-ch:
		t.Fatalf("snapshot after unsubscribe: %+v", snap)
	case <-time.After(100 * time.Millisecond):
	}
}

func testSubscribeContextCancel(t *testing.T, s docstore.Store) {
	p := docstore.Doc("boards", "b1")
	require.NoError(t, s.Set(context.Background(), p, docstore.Document{"title": "v1"}))

	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan docstore.Snapshot, 16)
	unsub, err := s.Subscribe(ctx, p, func(snap docstore.Snapshot) { ch <- snap })
	require.NoError(t, err)
	defer unsub()
	waitSnapshot(t, ch)

	cancel()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, s.Update(context.Background(), p, docstore.Document{"title": "v2"}))
	select {
	case snap := <-ch:
		t.Fatalf("snapshot after cancel: %+v", snap)
	case <-time.After(100 * time.Millisecond):
	}
}

func seed(t *testing.T, s docstore.Store, ops ...docstore.Op) {
	t.Helper()
	require.NoError(t, s.Batch(context.Background(), ops))
}

func waitSnapshot(t *testing.T, ch <-chan docstore.Snapshot) docstore.Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for snapshot")
		return docstore.Snapshot{}
	}
}

// waitFor skips snapshots until one carries the wanted title. Coalescing
// may fold intermediate states together.
func waitFor(t *testing.T, ch <-chan docstore.Snapshot, title string) docstore.Snapshot {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-ch:
			if snap.Exists && snap.Data["title"] == title {
				return snap
			}
		case <-deadline:
			t.Fatalf("timeout waiting for title %q", title)
			return docstore.Snapshot{}
		}
	}
}
