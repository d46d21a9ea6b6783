// Package badgerstore keeps documents in an embedded Badger key-value store.
//
// Keys are "doc/<collection>/<id>" and values are the JSON-encoded document.
package badgerstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/dgraph-io/badger/v4"

	"github.com/thenoetrevino/collabflow/internal/docstore"
)

const (
	keyPrefix       = "doc/"
	maxTxnConflicts = 8
)

type Store struct {
	db     *badger.DB
	hub    *docstore.Hub
	closed atomic.Bool
}

var _ docstore.Store = (*Store)(nil)

// Open opens a store at path, or an in-memory store when path is empty.
func Open(path string) (*Store, error) {
	var opts badger.Options
	if path == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithLoggingLevel(badger.ERROR)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Store{db: db, hub: docstore.NewHub()}, nil
}

func docKey(p docstore.Path) []byte {
	return []byte(keyPrefix + p.Collection + "/" + p.ID)
}

func collectionPrefix(collection string) []byte {
	return []byte(keyPrefix + collection + "/")
}

func readDoc(txn *badger.Txn, p docstore.Path) (docstore.Document, bool, error) {
	item, err := txn.Get(docKey(p))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var doc docstore.Document
	err = item.Value(func(val []byte) error {
		return docstore.Unmarshal(val, &doc)
	})
	if err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", p, err)
	}
	return doc, true, nil
}

func (s *Store) Get(ctx context.Context, p docstore.Path) (docstore.Snapshot, error) {
	if err := p.Validate(); err != nil {
		return docstore.Snapshot{}, err
	}
	if s.closed.Load() {
		return docstore.Snapshot{}, docstore.ErrClosed
	}

	snap := docstore.Snapshot{Path: p}
	err := s.db.View(func(txn *badger.Txn) error {
		doc, ok, err := readDoc(txn, p)
		snap.Data, snap.Exists = doc, ok
		return err
	})
	return snap, err
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
	if s.closed.Load() {
		return nil, docstore.ErrClosed
	}

	prefix := collectionPrefix(collection)
	var snaps []docstore.Snapshot
	err = s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			id := string(bytes.TrimPrefix(item.Key(), prefix))
			if strings.Contains(id, "/") {
				continue
			}
			var doc docstore.Document
			if err := item.Value(func(val []byte) error {
				return docstore.Unmarshal(val, &doc)
			}); err != nil {
				return fmt.Errorf("decode %s/%s: %w", collection, id, err)
			}
			snaps = append(snaps, docstore.Snapshot{
				Path:   docstore.Doc(collection, id),
				Exists: true,
				Data:   doc,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return m.Select(snaps), nil
}

// Subscribe uses the in-process hub: Badger's own Subscribe only sees
// writes made after its goroutine has registered, which leaves a window
// between the first read and the first notification.
func (s *Store) Subscribe(ctx context.Context, p docstore.Path, fn docstore.Listener) (docstore.Unsubscribe, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.hub.Subscribe(ctx, p, func(ctx context.Context) (docstore.Snapshot, error) {
		return s.Get(ctx, p)
	}, fn)
}

// Batch runs ops in one read-write transaction, retrying when a concurrent
// transaction wins the conflict check.
func (s *Store) Batch(ctx context.Context, ops []docstore.Op) error {
	if s.closed.Load() {
		return docstore.ErrClosed
	}

	var changes []docstore.Change
	var err error
	for attempt := 0; attempt < maxTxnConflicts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			planned, err := docstore.Plan(ops, func(p docstore.Path) (docstore.Document, bool, error) {
				return readDoc(txn, p)
			})
			if err != nil {
				return err
			}
			for _, c := range planned {
				if c.Deleted {
					if err := txn.Delete(docKey(c.Path)); err != nil {
						return err
					}
					continue
				}
				raw, err := docstore.Marshal(c.Data)
				if err != nil {
					return fmt.Errorf("encode %s: %w", c.Path, err)
				}
				if err := txn.Set(docKey(c.Path), raw); err != nil {
					return err
				}
			}
			changes = planned
			return nil
		})
		if !errors.Is(err, badger.ErrConflict) {
			break
		}
	}
	if err != nil {
		return err
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
