package board

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/thenoetrevino/collabflow/internal/docstore"
	"github.com/thenoetrevino/collabflow/internal/models"
	"github.com/thenoetrevino/collabflow/internal/types"
)

const (
	BoardsCollection = "boards"
	TasksCollection  = "tasks"

	maxTitleLength = 200
	tracerName     = "github.com/thenoetrevino/collabflow/internal/services/board"
)

// Service keeps the selected board and its tasks in sync with the document
// store. Mutations compute the new state from the cached board, write it,
// and install it locally once the write succeeds; the subscription then
// delivers the authoritative document, which replaces local state wholesale.
//
// Column mutations rewrite the board's whole columns array. Two writers
// racing on the same board therefore resolve last-writer-wins at array
// granularity.
type Service interface {
	// Subscriptions
	Subscribe(ctx context.Context, boardID string) (docstore.Unsubscribe, error)
	OnChange(fn func(models.Board)) (remove func())

	// Read operations
	Open(ctx context.Context, boardID string) (models.Board, error)
	ListBoards(ctx context.Context) ([]models.Board, error)
	LoadTasks(ctx context.Context) error
	CurrentBoard() (models.Board, bool)
	Boards() []models.Board
	Task(id string) (models.Task, bool)
	ColumnTasks(columnID string) []models.Task
	Loading() bool

	// Write operations
	CreateBoard(ctx context.Context, title, description string) (models.Board, error)
	CreateTask(ctx context.Context, columnID string, req CreateTaskRequest) (models.Task, error)
	UpdateTask(ctx context.Context, taskID string, patch TaskPatch) error
	DeleteTask(ctx context.Context, taskID string) error
	MoveTask(ctx context.Context, taskID, sourceColumnID, destColumnID string) error
	AddColumn(ctx context.Context, title string) (models.Column, error)
	UpdateColumn(ctx context.Context, columnID string, patch ColumnPatch) error
	DeleteColumn(ctx context.Context, columnID string) error
}

// CreateTaskRequest carries the fields of a new task.
type CreateTaskRequest struct {
	Title       string
	Description string
	Assignees   []string
	Labels      []string
	DueDate     *time.Time
}

// TaskPatch lists task fields to change; nil fields are untouched.
type TaskPatch struct {
	Title        *string
	Description  *string
	Assignees    *[]string
	Labels       *[]string
	DueDate      *time.Time
	ClearDueDate bool
}

func (p TaskPatch) fields(now time.Time) docstore.Document {
	doc := docstore.Document{"updatedAt": now}
	if p.Title != nil {
		doc["title"] = *p.Title
	}
	if p.Description != nil {
		doc["description"] = *p.Description
	}
	if p.Assignees != nil {
		doc["assignees"] = nonNil(*p.Assignees)
	}
	if p.Labels != nil {
		doc["labels"] = nonNil(*p.Labels)
	}
	if p.ClearDueDate {
		doc["dueDate"] = nil
	} else if p.DueDate != nil {
		doc["dueDate"] = *p.DueDate
	}
	return doc
}

func (p TaskPatch) apply(t models.Task, now time.Time) models.Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Assignees != nil {
		t.Assignees = nonNil(*p.Assignees)
	}
	if p.Labels != nil {
		t.Labels = nonNil(*p.Labels)
	}
	if p.ClearDueDate {
		t.DueDate = nil
	} else if p.DueDate != nil {
		due := *p.DueDate
		t.DueDate = &due
	}
	t.UpdatedAt = now
	return t
}

// ColumnPatch lists column fields to change. A non-nil TaskIDs replaces the
// column's order.
type ColumnPatch struct {
	Title   *string
	TaskIDs []string
}

// Option configures the service.
type Option func(*service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now types.Clock) Option {
	return func(s *service) { s.now = now }
}

func WithIDs(newID types.IDFunc) Option {
	return func(s *service) { s.newID = newID }
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *service) { s.tracer = tp.Tracer(tracerName) }
}

type service struct {
	store  docstore.Store
	logger *slog.Logger
	tracer trace.Tracer
	now    types.Clock
	newID  types.IDFunc

	mu        sync.RWMutex
	boards    []models.Board
	current   *models.Board
	tasks     map[string]models.Task
	subGen    uint64
	listeners map[int]func(models.Board)
	nextLstn  int

	inflight atomic.Int32
}

// NewService creates a board service backed by store.
func NewService(store docstore.Store, opts ...Option) Service {
	s := &service{
		store:     store,
		logger:    slog.Default(),
		tracer:    otel.Tracer(tracerName),
		now:       func() time.Time { return time.Now().UTC() },
		newID:     types.NewID,
		tasks:     make(map[string]models.Task),
		listeners: make(map[int]func(models.Board)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// begin marks an operation in flight and opens its span. The returned func
// must be deferred with a pointer to the operation's error result.
func (s *service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	s.inflight.Add(1)
	ctx, span := s.tracer.Start(ctx, "board."+op, trace.WithAttributes(attrs...))
	return ctx, func(errp *error) {
		if err := *errp; err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Warn("board operation failed", "op", op, "error", err)
		}
		span.End()
		s.inflight.Add(-1)
	}
}

func validateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}
	if len(title) > maxTitleLength {
		return ErrTitleTooLong
	}
	return nil
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return append([]string{}, ss...)
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func decodeBoard(snap docstore.Snapshot) (models.Board, error) {
	var b models.Board
	if err := snap.Decode(&b); err != nil {
		return models.Board{}, err
	}
	if b.ID == "" {
		b.ID = snap.Path.ID
	}
	b.Normalize()
	return b, nil
}

func decodeTask(snap docstore.Snapshot) (models.Task, error) {
	var t models.Task
	if err := snap.Decode(&t); err != nil {
		return models.Task{}, err
	}
	if t.ID == "" {
		t.ID = snap.Path.ID
	}
	t.Normalize()
	return t, nil
}

// ============================================================================
// Subscriptions and local state
// ============================================================================

// Subscribe follows one board document. Only the most recent subscription
// drives currentBoard; cancelling it stops further replacements even if a
// snapshot is already in flight.
func (s *service) Subscribe(ctx context.Context, boardID string) (docstore.Unsubscribe, error) {
	p := docstore.Doc(BoardsCollection, boardID)

	s.mu.Lock()
	s.subGen++
	gen := s.subGen
	s.mu.Unlock()

	unsub, err := s.store.Subscribe(ctx, p, func(snap docstore.Snapshot) {
		s.applySnapshot(gen, snap)
	})
	if err != nil {
		return nil, docstore.Persist("subscribe", p, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			unsub()
			s.mu.Lock()
			if s.subGen == gen {
				s.subGen++
			}
			s.mu.Unlock()
		})
	}, nil
}

func (s *service) applySnapshot(gen uint64, snap docstore.Snapshot) {
	if !snap.Exists {
		s.logger.Debug("ignoring snapshot of missing board", "board_id", snap.Path.ID)
		return
	}
	b, err := decodeBoard(snap)
	if err != nil {
		s.logger.Warn("failed to decode board snapshot", "board_id", snap.Path.ID, "error", err)
		return
	}

	s.mu.Lock()
	if gen != s.subGen {
		s.mu.Unlock()
		return
	}
	s.current = &b
	s.upsertBoardLocked(b)
	s.mu.Unlock()

	s.emit(b)
}

// OnChange registers fn to run after currentBoard is replaced.
func (s *service) OnChange(fn func(models.Board)) func() {
	s.mu.Lock()
	id := s.nextLstn
	s.nextLstn++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *service) emit(b models.Board) {
	s.mu.RLock()
	fns := make([]func(models.Board), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(b.Clone())
	}
}

func (s *service) upsertBoardLocked(b models.Board) {
	for i := range s.boards {
		if s.boards[i].ID == b.ID {
			s.boards[i] = b.Clone()
			return
		}
	}
}

func (s *service) requireBoard() (models.Board, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return models.Board{}, ErrNoBoardSelected
	}
	return s.current.Clone(), nil
}

// CurrentBoard returns the selected board. false means nothing has been
// loaded yet.
func (s *service) CurrentBoard() (models.Board, bool) {
	b, err := s.requireBoard()
	return b, err == nil
}

func (s *service) Boards() []models.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Board, len(s.boards))
	for i, b := range s.boards {
		out[i] = b.Clone()
	}
	return out
}

func (s *service) Task(id string) (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	return t, ok
}

// ColumnTasks returns the cached tasks of a column in column order. Ids
// whose task has not been loaded are skipped.
func (s *service) ColumnTasks(columnID string) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	col, ok := s.current.Column(columnID)
	if !ok {
		return nil
	}
	out := make([]models.Task, 0, len(col.TaskIDs))
	for _, id := range col.TaskIDs {
		if t, ok := s.tasks[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Loading reports whether any operation is in flight.
func (s *service) Loading() bool {
	return s.inflight.Load() > 0
}

// ============================================================================
// Read operations
// ============================================================================

// Open reads a board once and makes it current.
func (s *service) Open(ctx context.Context, boardID string) (b models.Board, err error) {
	ctx, done := s.begin(ctx, "Open", attribute.String("board_id", boardID))
	defer done(&err)

	p := docstore.Doc(BoardsCollection, boardID)
	snap, err := s.store.Get(ctx, p)
	if err != nil {
		return models.Board{}, docstore.Persist("get board", p, err)
	}
	if !snap.Exists {
		return models.Board{}, fmt.Errorf("%w: %s", ErrBoardNotFound, boardID)
	}
	b, err = decodeBoard(snap)
	if err != nil {
		return models.Board{}, docstore.Persist("decode board", p, err)
	}

	s.mu.Lock()
	current := b.Clone()
	s.current = &current
	s.upsertBoardLocked(b)
	s.mu.Unlock()

	s.emit(b)
	return b, nil
}

// ListBoards reads every board, oldest first, and caches the list.
func (s *service) ListBoards(ctx context.Context) (boards []models.Board, err error) {
	ctx, done := s.begin(ctx, "ListBoards")
	defer done(&err)

	snaps, err := s.store.Query(ctx, BoardsCollection)
	if err != nil {
		return nil, docstore.Persist("query boards", nil, err)
	}
	boards = make([]models.Board, 0, len(snaps))
	for _, snap := range snaps {
		b, err := decodeBoard(snap)
		if err != nil {
			return nil, docstore.Persist("decode board", snap.Path, err)
		}
		boards = append(boards, b)
	}
	sort.SliceStable(boards, func(i, j int) bool {
		return boards[i].CreatedAt.Before(boards[j].CreatedAt)
	})

	s.mu.Lock()
	s.boards = make([]models.Board, len(boards))
	for i, b := range boards {
		s.boards[i] = b.Clone()
	}
	s.mu.Unlock()
	return boards, nil
}

// LoadTasks fetches every task referenced by the current board that is not
// cached yet. Ids without a task document are skipped.
func (s *service) LoadTasks(ctx context.Context) (err error) {
	ctx, done := s.begin(ctx, "LoadTasks")
	defer done(&err)

	b, err := s.requireBoard()
	if err != nil {
		return err
	}

	var missing []string
	s.mu.RLock()
	for _, c := range b.Columns {
		for _, id := range c.TaskIDs {
			if _, ok := s.tasks[id]; !ok {
				missing = append(missing, id)
			}
		}
	}
	s.mu.RUnlock()

	loaded := make(map[string]models.Task, len(missing))
	for _, id := range missing {
		p := docstore.Doc(TasksCollection, id)
		snap, err := s.store.Get(ctx, p)
		if err != nil {
			return docstore.Persist("get task", p, err)
		}
		if !snap.Exists {
			s.logger.Debug("board references missing task", "board_id", b.ID, "task_id", id)
			continue
		}
		t, err := decodeTask(snap)
		if err != nil {
			return docstore.Persist("decode task", p, err)
		}
		loaded[id] = t
	}

	s.mu.Lock()
	for id, t := range loaded {
		s.tasks[id] = t
	}
	s.mu.Unlock()
	return nil
}

// ============================================================================
// Write operations
// ============================================================================

// commitColumns writes cols (and any extra ops) in one batch and, on
// success, installs them as the board's columns.
func (s *service) commitColumns(ctx context.Context, op string, b models.Board, cols []models.Column, extra ...docstore.Op) (models.Board, error) {
	now := s.now()
	p := docstore.Doc(BoardsCollection, b.ID)
	ops := append([]docstore.Op{
		docstore.UpdateOp(p, docstore.Document{"columns": cols, "updatedAt": now}),
	}, extra...)

	if err := s.store.Batch(ctx, ops); err != nil {
		return b, docstore.Persist(op, p, err)
	}

	next := b.Clone()
	next.Columns = models.CloneColumns(cols)
	next.UpdatedAt = now

	s.mu.Lock()
	if s.current != nil && s.current.ID == next.ID {
		installed := next.Clone()
		s.current = &installed
	}
	s.upsertBoardLocked(next)
	s.mu.Unlock()

	s.emit(next)
	return next, nil
}

// CreateBoard persists a new board seeded with the default columns.
func (s *service) CreateBoard(ctx context.Context, title, description string) (b models.Board, err error) {
	ctx, done := s.begin(ctx, "CreateBoard")
	defer done(&err)

	if err := validateTitle(title); err != nil {
		return models.Board{}, err
	}

	now := s.now()
	b = models.Board{
		ID:          s.newID(),
		Title:       strings.TrimSpace(title),
		Description: description,
		Columns:     make([]models.Column, 0, len(models.DefaultColumnTitles)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, t := range models.DefaultColumnTitles {
		b.Columns = append(b.Columns, models.Column{ID: s.newID(), Title: t, TaskIDs: []string{}})
	}

	p := docstore.Doc(BoardsCollection, b.ID)
	doc, err := docstore.Encode(b)
	if err != nil {
		return models.Board{}, err
	}
	if err := s.store.Set(ctx, p, doc); err != nil {
		return models.Board{}, docstore.Persist("create board", p, err)
	}

	s.mu.Lock()
	s.boards = append(s.boards, b.Clone())
	s.mu.Unlock()

	s.logger.Info("board created", "board_id", b.ID, "title", b.Title)
	return b, nil
}

// CreateTask appends a new task to the end of columnID. The task document
// and the board's columns are written in one batch.
func (s *service) CreateTask(ctx context.Context, columnID string, req CreateTaskRequest) (task models.Task, err error) {
	ctx, done := s.begin(ctx, "CreateTask", attribute.String("column_id", columnID))
	defer done(&err)

	b, err := s.requireBoard()
	if err != nil {
		return models.Task{}, err
	}
	if err := validateTitle(req.Title); err != nil {
		return models.Task{}, err
	}
	idx := b.ColumnIndex(columnID)
	if idx < 0 {
		return models.Task{}, fmt.Errorf("%w: %s", ErrColumnNotFound, columnID)
	}

	now := s.now()
	task = models.Task{
		ID:          s.newID(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Assignees:   nonNil(req.Assignees),
		Labels:      nonNil(req.Labels),
		DueDate:     req.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	doc, err := docstore.Encode(task)
	if err != nil {
		return models.Task{}, err
	}

	cols := models.CloneColumns(b.Columns)
	cols[idx].TaskIDs = append(cols[idx].TaskIDs, task.ID)

	if _, err := s.commitColumns(ctx, "create task", b, cols,
		docstore.SetOp(docstore.Doc(TasksCollection, task.ID), doc),
	); err != nil {
		return models.Task{}, err
	}

	s.mu.Lock()
	s.tasks[task.ID] = task
	s.mu.Unlock()
	return task, nil
}

// UpdateTask writes the patched fields and a fresh updatedAt.
func (s *service) UpdateTask(ctx context.Context, taskID string, patch TaskPatch) (err error) {
	ctx, done := s.begin(ctx, "UpdateTask", attribute.String("task_id", taskID))
	defer done(&err)

	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return err
		}
		trimmed := strings.TrimSpace(*patch.Title)
		patch.Title = &trimmed
	}

	now := s.now()
	p := docstore.Doc(TasksCollection, taskID)
	if err := s.store.Update(ctx, p, patch.fields(now)); err != nil {
		return docstore.Persist("update task", p, err)
	}

	s.mu.Lock()
	if t, ok := s.tasks[taskID]; ok {
		s.tasks[taskID] = patch.apply(t, now)
	}
	s.mu.Unlock()
	return nil
}

// DeleteTask removes taskID from every column and deletes its document.
// Deleting an id that is already gone succeeds.
func (s *service) DeleteTask(ctx context.Context, taskID string) (err error) {
	ctx, done := s.begin(ctx, "DeleteTask", attribute.String("task_id", taskID))
	defer done(&err)

	b, err := s.requireBoard()
	if err != nil {
		return err
	}

	cols := models.CloneColumns(b.Columns)
	for i := range cols {
		cols[i].TaskIDs = without(cols[i].TaskIDs, taskID)
	}

	if _, err := s.commitColumns(ctx, "delete task", b, cols,
		docstore.DeleteOp(docstore.Doc(TasksCollection, taskID)),
	); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.tasks, taskID)
	s.mu.Unlock()
	return nil
}

// MoveTask takes taskID out of the source column and appends it to the end
// of the destination column. The task must be in the source column. The drop position inside the destination is
// not kept; moving within one column sends the task to its end.
func (s *service) MoveTask(ctx context.Context, taskID, sourceColumnID, destColumnID string) (err error) {
	ctx, done := s.begin(ctx, "MoveTask",
		attribute.String("task_id", taskID),
		attribute.String("source_column_id", sourceColumnID),
		attribute.String("dest_column_id", destColumnID),
	)
	defer done(&err)

	b, err := s.requireBoard()
	if err != nil {
		return err
	}
	src := b.ColumnIndex(sourceColumnID)
	if src < 0 {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, sourceColumnID)
	}
	dst := b.ColumnIndex(destColumnID)
	if dst < 0 {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, destColumnID)
	}

	if !slices.Contains(b.Columns[src].TaskIDs, taskID) {
		return fmt.Errorf("%w: %s not in %s", ErrTaskNotInColumn, taskID, sourceColumnID)
	}

	cols := models.CloneColumns(b.Columns)
	cols[src].TaskIDs = without(cols[src].TaskIDs, taskID)
	cols[dst].TaskIDs = append(without(cols[dst].TaskIDs, taskID), taskID)

	_, err = s.commitColumns(ctx, "move task", b, cols)
	return err
}

// AddColumn appends an empty column.
func (s *service) AddColumn(ctx context.Context, title string) (col models.Column, err error) {
	ctx, done := s.begin(ctx, "AddColumn")
	defer done(&err)

	b, err := s.requireBoard()
	if err != nil {
		return models.Column{}, err
	}
	if err := validateTitle(title); err != nil {
		return models.Column{}, err
	}

	col = models.Column{ID: s.newID(), Title: strings.TrimSpace(title), TaskIDs: []string{}}
	cols := append(models.CloneColumns(b.Columns), col)

	if _, err := s.commitColumns(ctx, "add column", b, cols); err != nil {
		return models.Column{}, err
	}
	return col, nil
}

// UpdateColumn changes one column in place.
func (s *service) UpdateColumn(ctx context.Context, columnID string, patch ColumnPatch) (err error) {
	ctx, done := s.begin(ctx, "UpdateColumn", attribute.String("column_id", columnID))
	defer done(&err)

	b, err := s.requireBoard()
	if err != nil {
		return err
	}
	idx := b.ColumnIndex(columnID)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, columnID)
	}

	cols := models.CloneColumns(b.Columns)
	if patch.Title != nil {
		if err := validateTitle(*patch.Title); err != nil {
			return err
		}
		cols[idx].Title = strings.TrimSpace(*patch.Title)
	}
	if patch.TaskIDs != nil {
		cols[idx].TaskIDs = nonNil(patch.TaskIDs)
	}

	_, err = s.commitColumns(ctx, "update column", b, cols)
	return err
}

// DeleteColumn removes a column without reordering the others. Task
// documents referenced by the column are left in place.
func (s *service) DeleteColumn(ctx context.Context, columnID string) (err error) {
	ctx, done := s.begin(ctx, "DeleteColumn", attribute.String("column_id", columnID))
	defer done(&err)

	b, err := s.requireBoard()
	if err != nil {
		return err
	}
	if b.ColumnIndex(columnID) < 0 {
		return fmt.Errorf("%w: %s", ErrColumnNotFound, columnID)
	}

	cols := make([]models.Column, 0, len(b.Columns))
	for _, c := range models.CloneColumns(b.Columns) {
		if c.ID != columnID {
			cols = append(cols, c)
		}
	}

	_, err = s.commitColumns(ctx, "delete column", b, cols)
	return err
}
