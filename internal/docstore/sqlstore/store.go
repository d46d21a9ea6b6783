package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/thenoetrevino/collabflow/internal/docstore"
)

// Store implements docstore.Store on a documents table holding one JSON
// blob per (collection, id).
type Store struct {
	db     *sql.DB
	hub    *docstore.Hub
	closed atomic.Bool
}

var _ docstore.Store = (*Store)(nil)

// Open opens (and migrates) the database at path. Use InMemory for a
// throwaway database.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := openDB(ctx, path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, hub: docstore.NewHub()}, nil
}

func (s *Store) Get(ctx context.Context, p docstore.Path) (docstore.Snapshot, error) {
	if err := p.Validate(); err != nil {
		return docstore.Snapshot{}, err
	}
	if s.closed.Load() {
		return docstore.Snapshot{}, docstore.ErrClosed
	}
	doc, ok, err := readDoc(ctx, s.db, p)
	if err != nil {
		return docstore.Snapshot{}, err
	}
	return docstore.Snapshot{Path: p, Exists: ok, Data: doc}, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readDoc(ctx context.Context, q queryer, p docstore.Path) (docstore.Document, bool, error) {
	var raw string
	err := q.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?",
		p.Collection, p.ID,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", p, err)
	}
	var doc docstore.Document
	if err := docstore.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", p, err)
	}
	return doc, true, nil
}

func (s *Store) Set(ctx context.Context, p docstore.Path, data docstore.Document) error {
	return s.Batch(ctx, []docstore.Op{docstore.SetOp(p, data)})
}

func (s *Store) Update(ctx context.Context, p docstore.Path, data docstore.Document) error {
	return s.Batch(ctx, []docstore.Op{docstore.UpdateOp(p, data)})
}

func (s *Store) Merge(ctx context.Context, p docstore.Path, data docstore.Document) error {
	return s.Batch(ctx, []docstore.Op{docstore.MergeOp(p, data)})
}

func (s *Store) Delete(ctx context.Context, p docstore.Path) error {
	return s.Batch(ctx, []docstore.Op{docstore.DeleteOp(p)})
}

// Query loads the collection and applies filters to the decoded documents.
func (s *Store) Query(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Snapshot, error) {
	m, err := docstore.Compile(filters...)
	if err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, docstore.ErrClosed
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, data FROM documents WHERE collection = ? ORDER BY id",
		collection,
	)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	var snaps []docstore.Snapshot
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var doc docstore.Document
		if err := docstore.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
		}
		snaps = append(snaps, docstore.Snapshot{
			Path:   docstore.Doc(collection, id),
			Exists: true,
			Data:   doc,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return m.Select(snaps), nil
}

func (s *Store) Subscribe(ctx context.Context, p docstore.Path, fn docstore.Listener) (docstore.Unsubscribe, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.hub.Subscribe(ctx, p, func(ctx context.Context) (docstore.Snapshot, error) {
		return s.Get(ctx, p)
	}, fn)
}

func (s *Store) Batch(ctx context.Context, ops []docstore.Op) error {
	if s.closed.Load() {
		return docstore.ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	changes, err := docstore.Plan(ops, func(p docstore.Path) (docstore.Document, bool, error) {
		return readDoc(ctx, tx, p)
	})
	if err != nil {
		return err
	}

	for _, c := range changes {
		if c.Deleted {
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM documents WHERE collection = ? AND id = ?",
				c.Path.Collection, c.Path.ID,
			); err != nil {
				return fmt.Errorf("delete %s: %w", c.Path, err)
			}
			continue
		}

		raw, err := docstore.Marshal(c.Data)
		if err != nil {
			return fmt.Errorf("encode %s: %w", c.Path, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)
			ON CONFLICT (collection, id) DO UPDATE
			SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
			c.Path.Collection, c.Path.ID, string(raw),
		); err != nil {
			return fmt.Errorf("write %s: %w", c.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.hub.Publish(docstore.ChangedPaths(changes)...)
	return nil
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.hub.Close()
	return s.db.Close()
}
