// Package redisstore keeps documents in Redis and uses Redis pub/sub as the
// change feed, so subscribers in other processes see every commit.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/thenoetrevino/collabflow/internal/docstore"
)

const (
	defaultPrefix = "collabflow"
	maxTxRetries  = 16
)

// Store implements docstore.Store. Each document is a JSON string key; a set
// per collection indexes ids for queries.
type Store struct {
	rdb    *redis.Client
	prefix string
	closed atomic.Bool
}

var _ docstore.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithPrefix namespaces every key and channel.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New wraps an existing client. Close closes the client.
func New(rdb *redis.Client, opts ...Option) *Store {
	s := &Store{rdb: rdb, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dial connects using a redis:// URL and verifies the connection.
func Dial(ctx context.Context, url string, opts ...Option) (*Store, error) {
	o, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(o)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(rdb, opts...), nil
}

func (s *Store) docKey(p docstore.Path) string {
	return s.prefix + ":doc/" + p.Collection + "/" + p.ID
}

func (s *Store) indexKey(collection string) string {
	return s.prefix + ":idx/" + collection
}

func (s *Store) channel(p docstore.Path) string {
	return s.prefix + ":chg/" + p.Collection + "/" + p.ID
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) readDoc(ctx context.Context, g getter, p docstore.Path) (docstore.Document, bool, error) {
	raw, err := g.Get(ctx, s.docKey(p)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var doc docstore.Document
	if err := docstore.Unmarshal(raw, &doc); err != nil {
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
	doc, ok, err := s.readDoc(ctx, s.rdb, p)
	if err != nil {
		return docstore.Snapshot{}, err
	}
	return docstore.Snapshot{Path: p, Exists: ok, Data: doc}, nil
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

	ids, err := s.rdb.SMembers(ctx, s.indexKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	if len(ids) == 0 {
		return []docstore.Snapshot{}, nil
	}
	sort.Strings(ids)

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(docstore.Doc(collection, id))
	}
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	snaps := make([]docstore.Snapshot, 0, len(ids))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Index entry outlived its document.
			continue
		}
		var doc docstore.Document
		if err := docstore.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, fmt.Errorf("decode %s/%s: %w", collection, ids[i], err)
		}
		snaps = append(snaps, docstore.Snapshot{
			Path:   docstore.Doc(collection, ids[i]),
			Exists: true,
			Data:   doc,
		})
	}
	return m.Select(snaps), nil
}

// Subscribe listens on the document's change channel. The channel
// subscription is confirmed before the first read so no commit can slip
// between them.
func (s *Store) Subscribe(ctx context.Context, p docstore.Path, fn docstore.Listener) (docstore.Unsubscribe, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if s.closed.Load() {
		return nil, docstore.ErrClosed
	}

	sub := s.rdb.Subscribe(ctx, s.channel(p))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", p, err)
	}

	feed := docstore.StartFeed(ctx, func(ctx context.Context) (docstore.Snapshot, error) {
		return s.Get(ctx, p)
	}, fn)

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-feed.Done():
				if err := sub.Close(); err != nil {
					slog.Debug("failed to close redis subscription", "path", p.String(), "error", err)
				}
				return
			case _, ok := <-ch:
				if !ok {
					feed.Stop()
					return
				}
				feed.Notify()
			}
		}
	}()

	return feed.Stop, nil
}

// Batch runs ops as an optimistic WATCH/MULTI transaction and publishes a
// change message per touched document inside the same transaction.
func (s *Store) Batch(ctx context.Context, ops []docstore.Op) error {
	if s.closed.Load() {
		return docstore.ErrClosed
	}

	keys := make([]string, 0, len(ops))
	seen := make(map[string]bool, len(ops))
	for _, op := range ops {
		if err := op.Path.Validate(); err != nil {
			return err
		}
		k := s.docKey(op.Path)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}

	txf := func(tx *redis.Tx) error {
		changes, err := docstore.Plan(ops, func(p docstore.Path) (docstore.Document, bool, error) {
			return s.readDoc(ctx, tx, p)
		})
		if err != nil {
			return err
		}

		payloads := make([][]byte, len(changes))
		for i, c := range changes {
			if c.Deleted {
				continue
			}
			raw, err := docstore.Marshal(c.Data)
			if err != nil {
				return fmt.Errorf("encode %s: %w", c.Path, err)
			}
			payloads[i] = raw
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for i, c := range changes {
				if c.Deleted {
					pipe.Del(ctx, s.docKey(c.Path))
					pipe.SRem(ctx, s.indexKey(c.Path.Collection), c.Path.ID)
				} else {
					pipe.Set(ctx, s.docKey(c.Path), payloads[i], 0)
					pipe.SAdd(ctx, s.indexKey(c.Path.Collection), c.Path.ID)
				}
				pipe.Publish(ctx, s.channel(c.Path), "")
			}
			return nil
		})
		return err
	}

	var err error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err = s.rdb.Watch(ctx, txf, keys...)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}
	return err
}

func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.rdb.Close()
}
