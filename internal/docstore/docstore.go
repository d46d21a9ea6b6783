// Package docstore defines the document database contract that boards,
// tasks, notifications and user profiles are persisted through.
//
// Documents are JSON-shaped maps addressed by collection and id. Every backend
// normalises documents through the same codec, so a value read back from
// sqlite, badger, redis or memory has the same Go shape.
package docstore

import (
	"context"
	"fmt"
	"strings"
)

// Document is a JSON object stored under a Path.
type Document map[string]any

// Path addresses one document.
type Path struct {
	Collection string
	ID         string
}

// Doc builds a Path.
func Doc(collection, id string) Path {
	return Path{Collection: collection, ID: id}
}

func (p Path) String() string {
	return p.Collection + "/" + p.ID
}

// Validate rejects paths backends cannot key on.
func (p Path) Validate() error {
	if p.Collection == "" || p.ID == "" {
		return fmt.Errorf("%w: %q", ErrInvalidPath, p.String())
	}
	if strings.Contains(p.Collection, "/") || strings.Contains(p.ID, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, p.String())
	}
	return nil
}

// Snapshot is the state of a document at a point in time.
type Snapshot struct {
	Path   Path
	Exists bool
	Data   Document
}

// Decode unmarshals the snapshot data into v.
func (s Snapshot) Decode(v any) error {
	if !s.Exists {
		return fmt.Errorf("%w: %s", ErrNotFound, s.Path)
	}
	return Decode(s.Data, v)
}

// OpKind selects how an Op changes its document.
type OpKind int

const (
	// OpSet creates or replaces the document.
	OpSet OpKind = iota
	// OpUpdate merges top-level fields into an existing document.
	OpUpdate
	// OpMerge merges top-level fields, creating the document when absent.
	OpMerge
	// OpDelete removes the document. Deleting an absent document is not an error.
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpSet:
		return "set"
	case OpUpdate:
		return "update"
	case OpMerge:
		return "merge"
	case OpDelete:
		return "delete"
	default:
		return fmt.Sprintf("op(%d)", int(k))
	}
}

// Op is one write inside a Batch.
type Op struct {
	Kind OpKind
	Path Path
	Data Document
}

func SetOp(p Path, data Document) Op    { return Op{Kind: OpSet, Path: p, Data: data} }
func UpdateOp(p Path, data Document) Op { return Op{Kind: OpUpdate, Path: p, Data: data} }
func MergeOp(p Path, data Document) Op  { return Op{Kind: OpMerge, Path: p, Data: data} }
func DeleteOp(p Path) Op                { return Op{Kind: OpDelete, Path: p} }

// Listener receives snapshots from a subscription. It runs on the
// subscription's own goroutine.
type Listener func(Snapshot)

// Unsubscribe stops a subscription. Calling it more than once is safe.
type Unsubscribe func()

// Store is the remote document database.
type Store interface {
	// Get reads a document. A missing document yields Exists == false.
	Get(ctx context.Context, p Path) (Snapshot, error)

	// Set creates or replaces a document.
	Set(ctx context.Context, p Path, data Document) error

	// Update merges top-level fields into an existing document and fails
	// with ErrNotFound when it does not exist.
	Update(ctx context.Context, p Path, data Document) error

	// Merge merges top-level fields, creating the document if needed.
	Merge(ctx context.Context, p Path, data Document) error

	// Delete removes a document.
	Delete(ctx context.Context, p Path) error

	// Query returns the documents of a collection matching every filter,
	// ordered by id.
	Query(ctx context.Context, collection string, filters ...Filter) ([]Snapshot, error)

	// Subscribe delivers the current snapshot of p and then a snapshot after
	// each committed change. Snapshots that pile up behind a slow listener
	// coalesce into the latest one. Cancelling ctx also unsubscribes.
	Subscribe(ctx context.Context, p Path, fn Listener) (Unsubscribe, error)

	// Batch applies all ops atomically or none of them.
	Batch(ctx context.Context, ops []Op) error

	Close() error
}
