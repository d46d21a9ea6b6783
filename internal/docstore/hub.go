package docstore

import (
	"context"
	"sync"
)

// Hub fans committed changes out to in-process feeds. Backends without a
// native change stream publish the paths of every committed batch here.
type Hub struct {
	mu     sync.Mutex
	feeds  map[Path]map[*Feed]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{feeds: make(map[Path]map[*Feed]struct{})}
}

// Subscribe starts a feed for p that reloads through load.
func (h *Hub) Subscribe(ctx context.Context, p Path, load Loader, fn Listener) (Unsubscribe, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}

	f, feedCtx := newFeed(ctx, load, fn)
	f.onStop = func() { h.remove(p, f) }
	if h.feeds[p] == nil {
		h.feeds[p] = make(map[*Feed]struct{})
	}
	h.feeds[p][f] = struct{}{}
	go f.run(feedCtx)
	return f.Stop, nil
}

// Publish wakes every feed watching one of paths.
func (h *Hub) Publish(paths ...Path) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range paths {
		for f := range h.feeds[p] {
			f.Notify()
		}
	}
}

// Close stops every feed.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var all []*Feed
	for _, set := range h.feeds {
		for f := range set {
			all = append(all, f)
		}
	}
	h.mu.Unlock()

	for _, f := range all {
		f.Stop()
	}
}

func (h *Hub) remove(p Path, f *Feed) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.feeds[p], f)
	if len(h.feeds[p]) == 0 {
		delete(h.feeds, p)
	}
}

// ChangedPaths lists the paths touched by changes.
func ChangedPaths(changes []Change) []Path {
	paths := make([]Path, len(changes))
	for i, c := range changes {
		paths[i] = c.Path
	}
	return paths
}
