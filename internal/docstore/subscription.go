package docstore

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Snapshot is one full result set pushed by a live query.  When the reload
// failed, Err is set and Docs is nil; the subscription stays open and the
// next change triggers another attempt.
type Snapshot struct {
	Docs []Document
	Err  error
}

// Subscription is a live query.  Snapshots are delivered in the order they
// were produced.  A subscription holds a standing listener on the feed
// until Close is called or the context passed to Subscribe ends.
type Subscription struct {
	snapshots chan Snapshot
	cancel    context.CancelFunc
	done      chan struct{}
	once      sync.Once
}

// Snapshots returns the channel of result sets.  It is closed once the
// subscription has been released.
func (s *Subscription) Snapshots() <-chan Snapshot { return s.snapshots }

// Close releases the subscription and waits for its goroutine to exit.  It
// is safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed when the subscription has been released.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// tracker counts open subscriptions of a store.
type tracker struct{ open atomic.Int64 }

// OpenSubscriptions reports how many live queries are still running.
func (t *tracker) OpenSubscriptions() int { return int(t.open.Load()) }

type loader func(ctx context.Context) ([]Document, error)

// subscribe registers with the feed before the first load so that a write
// landing between load and listen cannot be missed.
func (t *tracker) subscribe(ctx context.Context, q Query, feed Feed, load loader) (*Subscription, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	changes, stop, err := feed.Listen(ctx, q.Collection)
	if err != nil {
		cancel()
		return nil, err
	}

	sub := &Subscription{
		snapshots: make(chan Snapshot, 1),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	t.open.Add(1)

	go func() {
		defer func() {
			stop()
			t.open.Add(-1)
			close(sub.snapshots)
			close(sub.done)
		}()
		for {
			docs, err := load(ctx)
			if ctx.Err() != nil {
				return
			}
			snap := Snapshot{Docs: docs, Err: err}
			if err != nil {
				slog.Warn("live query reload failed", "collection", q.Collection, "error", err)
				snap.Docs = nil
			}
			select {
			case sub.snapshots <- snap:
			case <-ctx.Done():
				return
			}
			select {
			case <-changes:
			case <-ctx.Done():
				return
			}
		}
	}()
	return sub, nil
}
