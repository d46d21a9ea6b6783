package docstore

import (
	"context"
	"log/slog"
	"reflect"
	"sync"
)

// Loader reads the current snapshot of a subscribed document.
type Loader func(ctx context.Context) (Snapshot, error)

// Feed delivers snapshots of one document to one listener. Notify only marks
// the feed dirty; the feed goroutine then reloads the document, so bursts of
// changes collapse into the latest state and delivery order follows commit
// order.
type Feed struct {
	load   Loader
	fn     Listener
	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	onStop func()
}

// StartFeed starts delivering snapshots. The first delivery is the current
// snapshot.
func StartFeed(ctx context.Context, load Loader, fn Listener) *Feed {
	f, ctx := newFeed(ctx, load, fn)
	go f.run(ctx)
	return f
}

func newFeed(ctx context.Context, load Loader, fn Listener) (*Feed, context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	f := &Feed{
		load:   load,
		fn:     fn,
		wake:   make(chan struct{}, 1),
		cancel: cancel,
		done:   make(chan struct{}),
	}
	f.wake <- struct{}{}
	return f, ctx
}

// Notify schedules a reload. It never blocks.
func (f *Feed) Notify() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

// Stop ends the feed. It is safe to call repeatedly and from the listener.
func (f *Feed) Stop() {
	f.once.Do(func() {
		f.cancel()
		if f.onStop != nil {
			f.onStop()
		}
	})
}

// Done is closed once the feed goroutine has exited.
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

func (f *Feed) run(ctx context.Context) {
	defer close(f.done)
	defer f.Stop()

	var last *Snapshot
	for {
		select {
		case <-ctx.Done():
			return
		case <-f.wake:
		}

		snap, err := f.load(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Warn("subscription reload failed", "error", err)
			continue
		}
		if last != nil && last.Exists == snap.Exists && reflect.DeepEqual(last.Data, snap.Data) {
			continue
		}
		if ctx.Err() != nil {
			return
		}
		f.fn(snap)
		last = &snap
	}
}
