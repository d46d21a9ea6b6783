// Package memstore is an in-process docstore backend used by tests and the
// "memory" store setting.
package memstore

import (
	"context"
	"sync"

	"github.com/thenoetrevino/collabflow/internal/docstore"
)

type Store struct {
	mu     sync.RWMutex
	docs   map[docstore.Path]docstore.Document
	hub    *docstore.Hub
	closed bool
}

var _ docstore.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		docs: make(map[docstore.Path]docstore.Document),
		hub:  docstore.NewHub(),
	}
}

func (s *Store) Get(ctx context.Context, p docstore.Path) (docstore.Snapshot, error) {
	if err := p.Validate(); err != nil {
		return docstore.Snapshot{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return docstore.Snapshot{}, docstore.ErrClosed
	}
	return s.snapshot(p)
}

func (s *Store) snapshot(p docstore.Path) (docstore.Snapshot, error) {
	doc, ok := s.docs[p]
	if !ok {
		return docstore.Snapshot{Path: p}, nil
	}
	data, err := docstore.Normalize(doc)
	if err != nil {
		return docstore.Snapshot{}, err
	}
	return docstore.Snapshot{Path: p, Exists: true, Data: data}, nil
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

func (s *Store) Query(ctx context.Context, collection string, filters ...docstore.Filter) ([]docstore.Snapshot, error) {
	m, err := docstore.Compile(filters...)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, docstore.ErrClosed
	}

	var snaps []docstore.Snapshot
	for p := range s.docs {
		if p.Collection != collection {
			continue
		}
		snap, err := s.snapshot(p)
		if err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
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
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return docstore.ErrClosed
	}
	changes, err := docstore.Plan(ops, func(p docstore.Path) (docstore.Document, bool, error) {
		doc, ok := s.docs[p]
		return doc, ok, nil
	})
	if err != nil {
		s.mu.Unlock()
		return err
	}
	for _, c := range changes {
		if c.Deleted {
			delete(s.docs, c.Path)
		} else {
			s.docs[c.Path] = c.Data
		}
	}
	s.mu.Unlock()

	s.hub.Publish(docstore.ChangedPaths(changes)...)
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.hub.Close()
	return nil
}
