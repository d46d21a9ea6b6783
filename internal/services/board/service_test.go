package board

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/thenoetrevino/collabflow/internal/docstore"
	"github.com/thenoetrevino/collabflow/internal/docstore/memstore"
	"github.com/thenoetrevino/collabflow/internal/models"
	"github.com/thenoetrevino/collabflow/internal/types"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

var errStoreDown = errors.New("store unavailable")

// flakyStore fails every write while failing is set.
type flakyStore struct {
	docstore.Store
	failing atomic.Bool
}

func (f *flakyStore) Set(ctx context.Context, p docstore.Path, d docstore.Document) error {
	if f.failing.Load() {
		return errStoreDown
	}
	return f.Store.Set(ctx, p, d)
}

func (f *flakyStore) Update(ctx context.Context, p docstore.Path, d docstore.Document) error {
	if f.failing.Load() {
		return errStoreDown
	}
	return f.Store.Update(ctx, p, d)
}

func (f *flakyStore) Batch(ctx context.Context, ops []docstore.Op) error {
	if f.failing.Load() {
		return errStoreDown
	}
	return f.Store.Batch(ctx, ops)
}

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func setupService(t *testing.T, opts ...Option) (Service, *flakyStore) {
	t.Helper()
	mem := memstore.New()
	t.Cleanup(func() { _ = mem.Close() })
	store := &flakyStore{Store: mem}

	opts = append([]Option{
		WithClock(func() time.Time { return fixedNow }),
		WithIDs(types.Sequence("id")),
	}, opts...)
	return NewService(store, opts...), store
}

// setupBoard creates a board with the default columns and makes it current.
func setupBoard(t *testing.T, svc Service) models.Board {
	t.Helper()
	ctx := context.Background()
	b, err := svc.CreateBoard(ctx, "Roadmap", "")
	require.NoError(t, err)
	b, err = svc.Open(ctx, b.ID)
	require.NoError(t, err)
	return b
}

func storedBoard(t *testing.T, store docstore.Store, id string) models.Board {
	t.Helper()
	snap, err := store.Get(context.Background(), docstore.Doc(BoardsCollection, id))
	require.NoError(t, err)
	b, err := decodeBoard(snap)
	require.NoError(t, err)
	return b
}

func columnIDs(b models.Board) []string {
	ids := make([]string, len(b.Columns))
	for i, c := range b.Columns {
		ids[i] = c.ID
	}
	return ids
}

// ============================================================================
// CREATE BOARD / OPEN
// ============================================================================

func TestCreateBoardSeedsDefaultColumns(t *testing.T) {
	svc, store := setupService(t)

	b, err := svc.CreateBoard(context.Background(), "  Roadmap ", "Q3 plan")
	require.NoError(t, err)

	assert.Equal(t, "Roadmap", b.Title)
	require.Len(t, b.Columns, 3)
	for i, title := range models.DefaultColumnTitles {
		assert.Equal(t, title, b.Columns[i].Title)
		assert.Empty(t, b.Columns[i].TaskIDs)
	}

	stored := storedBoard(t, store, b.ID)
	assert.Equal(t, columnIDs(b), columnIDs(stored))
	assert.True(t, fixedNow.Equal(stored.CreatedAt))

	_, current := svc.CurrentBoard()
	assert.False(t, current, "creating a board does not select it")
}

func TestCreateBoardValidation(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.CreateBoard(ctx, "   ", "")
	assert.ErrorIs(t, err, ErrEmptyTitle)

	long := make([]byte, maxTitleLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err = svc.CreateBoard(ctx, string(long), "")
	assert.ErrorIs(t, err, ErrTitleTooLong)
}

func TestOpenMissingBoard(t *testing.T) {
	svc, _ := setupService(t)
	_, err := svc.Open(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrBoardNotFound)
}

func TestListBoardsOrdersByCreation(t *testing.T) {
	now := fixedNow
	svc, _ := setupService(t, WithClock(func() time.Time {
		now = now.Add(time.Minute)
		return now
	}), WithIDs(func() func() string {
		// Ids sort opposite to creation order.
		ids := []string{"z", "z1", "z2", "z3", "a", "a1", "a2", "a3"}
		var i int
		return func() string { i++; return ids[i-1] }
	}()))
	ctx := context.Background()

	_, err := svc.CreateBoard(ctx, "First", "")
	require.NoError(t, err)
	_, err = svc.CreateBoard(ctx, "Second", "")
	require.NoError(t, err)

	boards, err := svc.ListBoards(ctx)
	require.NoError(t, err)
	require.Len(t, boards, 2)
	assert.Equal(t, "First", boards[0].Title)
	assert.Equal(t, "Second", boards[1].Title)
	assert.Len(t, svc.Boards(), 2)
}

func TestMutationsRequireBoard(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.CreateTask(ctx, "c", CreateTaskRequest{Title: "x"})
	assert.ErrorIs(t, err, ErrNoBoardSelected)
	assert.ErrorIs(t, svc.MoveTask(ctx, "t", "a", "b"), ErrNoBoardSelected)
	assert.ErrorIs(t, svc.DeleteTask(ctx, "t"), ErrNoBoardSelected)
	_, err = svc.AddColumn(ctx, "Review")
	assert.ErrorIs(t, err, ErrNoBoardSelected)
	assert.ErrorIs(t, svc.DeleteColumn(ctx, "c"), ErrNoBoardSelected)
	assert.ErrorIs(t, svc.LoadTasks(ctx), ErrNoBoardSelected)
}

// ============================================================================
// TASKS
// ============================================================================

func TestCreateTaskAppendsToColumn(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()
	b := setupBoard(t, svc)
	todo := b.Columns[0].ID

	first, err := svc.CreateTask(ctx, todo, CreateTaskRequest{Title: "Write docs"})
	require.NoError(t, err)
	second, err := svc.CreateTask(ctx, todo, CreateTaskRequest{Title: "Ship", Labels: []string{"release"}})
	require.NoError(t, err)

	current, ok := svc.CurrentBoard()
	require.True(t, ok)
	assert.Equal(t, []string{first.ID, second.ID}, current.Columns[0].TaskIDs)

	stored := storedBoard(t, store, b.ID)
	assert.Equal(t, []string{first.ID, second.ID}, stored.Columns[0].TaskIDs)

	snap, err := store.Get(ctx, docstore.Doc(TasksCollection, second.ID))
	require.NoError(t, err)
	require.True(t, snap.Exists)
	var task models.Task
	require.NoError(t, snap.Decode(&task))
	assert.Equal(t, "Ship", task.Title)
	assert.Equal(t, []string{"release"}, task.Labels)
	assert.Empty(t, task.Assignees)

	cached, ok := svc.Task(second.ID)
	require.True(t, ok)
	assert.Equal(t, "Ship", cached.Title)
	assert.Len(t, svc.ColumnTasks(todo), 2)
}

func TestCreateTaskErrors(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	b := setupBoard(t, svc)

	_, err := svc.CreateTask(ctx, "missing", CreateTaskRequest{Title: "x"})
	assert.ErrorIs(t, err, ErrColumnNotFound)

	_, err = svc.CreateTask(ctx, b.Columns[0].ID, CreateTaskRequest{Title: ""})
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestUpdateTask(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()
	b := setupBoard(t, svc)

	due := fixedNow.Add(48 * time.Hour)
	task, err := svc.CreateTask(ctx, b.Columns[0].ID, CreateTaskRequest{Title: "Draft", DueDate: &due})
	require.NoError(t, err)

	title := "Final"
	assignees := []string{"ana"}
	require.NoError(t, svc.UpdateTask(ctx, task.ID, TaskPatch{
		Title:        &title,
		Assignees:    &assignees,
		ClearDueDate: true,
	}))

	cached, ok := svc.Task(task.ID)
	require.True(t, ok)
	assert.Equal(t, "Final", cached.Title)
	assert.Equal(t, []string{"ana"}, cached.Assignees)
	assert.Nil(t, cached.DueDate)

	snap, err := store.Get(ctx, docstore.Doc(TasksCollection, task.ID))
	require.NoError(t, err)
	var stored models.Task
	require.NoError(t, snap.Decode(&stored))
	assert.Equal(t, "Final", stored.Title)
	assert.Nil(t, stored.DueDate)

	err = svc.UpdateTask(ctx, "ghost", TaskPatch{Title: &title})
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestDeleteTask(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()
	b := setupBoard(t, svc)
	todo := b.Columns[0].ID

	keep, err := svc.CreateTask(ctx, todo, CreateTaskRequest{Title: "Keep"})
	require.NoError(t, err)
	drop, err := svc.CreateTask(ctx, todo, CreateTaskRequest{Title: "Drop"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(ctx, drop.ID))

	current, _ := svc.CurrentBoard()
	assert.Equal(t, []string{keep.ID}, current.Columns[0].TaskIDs)
	assert.Equal(t, []string{keep.ID}, storedBoard(t, store, b.ID).Columns[0].TaskIDs)

	snap, err := store.Get(ctx, docstore.Doc(TasksCollection, drop.ID))
	require.NoError(t, err)
	assert.False(t, snap.Exists)
	_, ok := svc.Task(drop.ID)
	assert.False(t, ok)

	// Deleting again is harmless.
	assert.NoError(t, svc.DeleteTask(ctx, drop.ID))
}

func TestMoveTaskBetweenColumns(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()
	b := setupBoard(t, svc)
	todo, doing, done := b.Columns[0].ID, b.Columns[1].ID, b.Columns[2].ID

	a, _ := svc.CreateTask(ctx, todo, CreateTaskRequest{Title: "A"})
	x, _ := svc.CreateTask(ctx, todo, CreateTaskRequest{Title: "X"})
	d, _ := svc.CreateTask(ctx, doing, CreateTaskRequest{Title: "D"})
	f, _ := svc.CreateTask(ctx, done, CreateTaskRequest{Title: "F"})

	require.NoError(t, svc.MoveTask(ctx, a.ID, todo, doing))

	current, _ := svc.CurrentBoard()
	assert.Equal(t, []string{x.ID}, current.Columns[0].TaskIDs)
	assert.Equal(t, []string{d.ID, a.ID}, current.Columns[1].TaskIDs, "moved task lands at the end")
	assert.Equal(t, []string{f.ID}, current.Columns[2].TaskIDs, "uninvolved column untouched")

	stored := storedBoard(t, store, b.ID)
	assert.Equal(t, current.Columns, stored.Columns)
}

func TestMoveTaskWithinColumnGoesToEnd(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	b := setupBoard(t, svc)
	todo := b.Columns[0].ID

	a, _ := svc.CreateTask(ctx, todo, CreateTaskRequest{Title: "A"})
	x, _ := svc.CreateTask(ctx, todo, CreateTaskRequest{Title: "X"})
	y, _ := svc.CreateTask(ctx, todo, CreateTaskRequest{Title: "Y"})

	require.NoError(t, svc.MoveTask(ctx, a.ID, todo, todo))

	current, _ := svc.CurrentBoard()
	assert.Equal(t, []string{x.ID, y.ID, a.ID}, current.Columns[0].TaskIDs)
}

func TestMoveTaskRequiresTaskInSource(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()
	b := setupBoard(t, svc)
	todo, doing, done := b.Columns[0].ID, b.Columns[1].ID, b.Columns[2].ID

	task, err := svc.CreateTask(ctx, todo, CreateTaskRequest{Title: "A"})
	require.NoError(t, err)
	before, _ := svc.CurrentBoard()

	err = svc.MoveTask(ctx, task.ID, doing, done)
	assert.ErrorIs(t, err, ErrTaskNotInColumn)
	err = svc.MoveTask(ctx, task.ID, doing, todo)
	assert.ErrorIs(t, err, ErrTaskNotInColumn)

	after, _ := svc.CurrentBoard()
	assert.Equal(t, before.Columns, after.Columns)
	assert.Equal(t, []string{task.ID}, storedBoard(t, store, b.ID).Columns[0].TaskIDs)
	assert.Empty(t, storedBoard(t, store, b.ID).Columns[2].TaskIDs)
}

func TestMoveTaskUnknownColumn(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	b := setupBoard(t, svc)

	err := svc.MoveTask(ctx, "t", b.Columns[0].ID, "nowhere")
	assert.ErrorIs(t, err, ErrColumnNotFound)
	err = svc.MoveTask(ctx, "t", "nowhere", b.Columns[0].ID)
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestLoadTasks(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()
	b := setupBoard(t, svc)

	task, err := svc.CreateTask(ctx, b.Columns[0].ID, CreateTaskRequest{Title: "Remote"})
	require.NoError(t, err)

	// A fresh service over the same store starts with an empty task cache.
	fresh := NewService(store)
	_, err = fresh.Open(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, fresh.ColumnTasks(b.Columns[0].ID))

	require.NoError(t, fresh.LoadTasks(ctx))
	got, ok := fresh.Task(task.ID)
	require.True(t, ok)
	assert.Equal(t, "Remote", got.Title)
}

// ============================================================================
// COLUMNS
// ============================================================================

func TestAddAndDeleteColumns(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()
	b := setupBoard(t, svc)

	review, err := svc.AddColumn(ctx, "Review")
	require.NoError(t, err)
	qa, err := svc.AddColumn(ctx, "QA")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteColumn(ctx, b.Columns[1].ID))

	want := []string{b.Columns[0].ID, b.Columns[2].ID, review.ID, qa.ID}
	current, _ := svc.CurrentBoard()
	assert.Equal(t, want, columnIDs(current))
	assert.Equal(t, want, columnIDs(storedBoard(t, store, b.ID)))

	assert.ErrorIs(t, svc.DeleteColumn(ctx, "missing"), ErrColumnNotFound)
}

func TestDeleteColumnKeepsTaskDocuments(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()
	b := setupBoard(t, svc)

	task, err := svc.CreateTask(ctx, b.Columns[0].ID, CreateTaskRequest{Title: "Orphan"})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteColumn(ctx, b.Columns[0].ID))

	snap, err := store.Get(ctx, docstore.Doc(TasksCollection, task.ID))
	require.NoError(t, err)
	assert.True(t, snap.Exists)
}

func TestUpdateColumn(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	b := setupBoard(t, svc)
	todo := b.Columns[0].ID

	a, _ := svc.CreateTask(ctx, todo, CreateTaskRequest{Title: "A"})
	x, _ := svc.CreateTask(ctx, todo, CreateTaskRequest{Title: "X"})

	title := "Backlog"
	require.NoError(t, svc.UpdateColumn(ctx, todo, ColumnPatch{Title: &title, TaskIDs: []string{x.ID, a.ID}}))

	current, _ := svc.CurrentBoard()
	assert.Equal(t, "Backlog", current.Columns[0].Title)
	assert.Equal(t, []string{x.ID, a.ID}, current.Columns[0].TaskIDs)
	assert.Equal(t, "In Progress", current.Columns[1].Title)

	assert.ErrorIs(t, svc.UpdateColumn(ctx, "missing", ColumnPatch{Title: &title}), ErrColumnNotFound)
}

// ============================================================================
// FAILURES
// ============================================================================

func TestFailedWriteLeavesStateUnchanged(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()
	b := setupBoard(t, svc)
	todo, doing := b.Columns[0].ID, b.Columns[1].ID
	task, err := svc.CreateTask(ctx, todo, CreateTaskRequest{Title: "A"})
	require.NoError(t, err)

	before, _ := svc.CurrentBoard()
	store.failing.Store(true)

	err = svc.MoveTask(ctx, task.ID, todo, doing)
	require.Error(t, err)
	var pe *docstore.PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "move task", pe.Op)
	assert.ErrorIs(t, err, errStoreDown)

	_, err = svc.AddColumn(ctx, "Review")
	assert.ErrorIs(t, err, errStoreDown)
	_, err = svc.CreateTask(ctx, todo, CreateTaskRequest{Title: "B"})
	assert.ErrorIs(t, err, errStoreDown)

	after, _ := svc.CurrentBoard()
	assert.Equal(t, before, after)
	assert.False(t, svc.Loading())

	store.failing.Store(false)
	assert.Equal(t, before.Columns, storedBoard(t, store, b.ID).Columns)
}

func TestOperationsRecordSpans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	svc, _ := setupService(t, WithTracerProvider(tp))
	ctx := context.Background()
	b := setupBoard(t, svc)

	require.Error(t, svc.MoveTask(ctx, "t", b.Columns[0].ID, "nowhere"))

	spans := sr.Ended()
	require.NotEmpty(t, spans)
	last := spans[len(spans)-1]
	assert.Equal(t, "board.MoveTask", last.Name())
	assert.Equal(t, codes.Error, last.Status().Code)

	names := make([]string, 0, len(spans))
	for _, s := range spans {
		names = append(names, s.Name())
	}
	assert.Contains(t, names, "board.CreateBoard")
	assert.Contains(t, names, "board.Open")
}

// ============================================================================
// SUBSCRIPTIONS
// ============================================================================

func TestSubscribeReplacesCurrentBoard(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()
	b, err := svc.CreateBoard(ctx, "Shared", "")
	require.NoError(t, err)

	changes := make(chan models.Board, 16)
	remove := svc.OnChange(func(b models.Board) { changes <- b })
	defer remove()

	unsub, err := svc.Subscribe(ctx, b.ID)
	require.NoError(t, err)
	defer unsub()

	select {
	case got := <-changes:
		assert.Equal(t, b.ID, got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial snapshot")
	}

	// Another client renames the board.
	require.NoError(t, store.Update(ctx, docstore.Doc(BoardsCollection, b.ID), docstore.Document{"title": "Renamed"}))

	require.Eventually(t, func() bool {
		cur, ok := svc.CurrentBoard()
		return ok && cur.Title == "Renamed"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUnsubscribeStopsReplacement(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()
	b, err := svc.CreateBoard(ctx, "Shared", "")
	require.NoError(t, err)

	unsub, err := svc.Subscribe(ctx, b.ID)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		_, ok := svc.CurrentBoard()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	unsub()
	unsub()

	require.NoError(t, store.Update(ctx, docstore.Doc(BoardsCollection, b.ID), docstore.Document{"title": "Later"}))
	time.Sleep(100 * time.Millisecond)

	cur, _ := svc.CurrentBoard()
	assert.Equal(t, "Shared", cur.Title)
}

func TestLatestSubscriptionWins(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()
	first, err := svc.CreateBoard(ctx, "First", "")
	require.NoError(t, err)
	second, err := svc.CreateBoard(ctx, "Second", "")
	require.NoError(t, err)

	unsubFirst, err := svc.Subscribe(ctx, first.ID)
	require.NoError(t, err)
	defer unsubFirst()
	unsubSecond, err := svc.Subscribe(ctx, second.ID)
	require.NoError(t, err)
	defer unsubSecond()

	require.Eventually(t, func() bool {
		cur, ok := svc.CurrentBoard()
		return ok && cur.ID == second.ID
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, store.Update(ctx, docstore.Doc(BoardsCollection, first.ID), docstore.Document{"title": "Stale"}))
	time.Sleep(100 * time.Millisecond)

	cur, _ := svc.CurrentBoard()
	assert.Equal(t, second.ID, cur.ID)
}

func TestSubscribeEchoMatchesLocalWrite(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	b, err := svc.CreateBoard(ctx, "Echo", "")
	require.NoError(t, err)

	unsub, err := svc.Subscribe(ctx, b.ID)
	require.NoError(t, err)
	defer unsub()
	require.Eventually(t, func() bool {
		_, ok := svc.CurrentBoard()
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	col, err := svc.AddColumn(ctx, "Review")
	require.NoError(t, err)

	// Once the echo arrives the board still has the new column exactly once.
	time.Sleep(100 * time.Millisecond)
	cur, _ := svc.CurrentBoard()
	require.Len(t, cur.Columns, 4)
	assert.Equal(t, col.ID, cur.Columns[3].ID)
}
